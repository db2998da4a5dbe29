package gateway

import (
	"context"
	"net/http"
	"time"

	"github.com/DeBrosOfficial/kvpubsub/pkg/client"
	"github.com/DeBrosOfficial/kvpubsub/pkg/httputil"
)

// healthChecker is implemented by clients that can report connection health.
type healthChecker interface {
	Health(ctx context.Context) *client.HealthStatus
}

// healthResponse is the JSON structure used by healthHandler
type healthResponse struct {
	Status    string               `json:"status"`
	StartedAt time.Time            `json:"started_at"`
	Uptime    string               `json:"uptime"`
	Client    *client.HealthStatus `json:"client,omitempty"`
}

func (g *Gateway) healthHandler(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:    "ok",
		StartedAt: g.startedAt,
		Uptime:    time.Since(g.startedAt).String(),
	}
	code := http.StatusOK

	switch c := g.client.(type) {
	case nil:
		resp.Status = "unhealthy"
		code = http.StatusServiceUnavailable
	case healthChecker:
		resp.Client = c.Health(r.Context())
		if resp.Client.Status == "unhealthy" {
			resp.Status = "unhealthy"
			code = http.StatusServiceUnavailable
		} else if resp.Client.Status != "healthy" {
			resp.Status = resp.Client.Status
		}
	}

	httputil.WriteJSON(w, code, resp)
}
