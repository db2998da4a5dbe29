package gateway

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/DeBrosOfficial/kvpubsub/pkg/httputil"
)

func (g *Gateway) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(g.loggingMiddleware)
	r.Use(middleware.Recoverer)

	r.Get("/health", g.healthHandler)
	r.Get("/v1/health", g.healthHandler)

	r.Route("/v1/pubsub", func(r chi.Router) {
		r.Get("/ws", g.pubsub.WebsocketHandler)
		r.Post("/publish", g.pubsub.PublishHandler)
		r.Get("/stats", g.pubsub.StatsHandler)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteError(w, http.StatusNotFound, "not found")
	})
	return r
}
