package gateway

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/DeBrosOfficial/kvpubsub/pkg/client"
	"github.com/DeBrosOfficial/kvpubsub/pkg/config"
	"github.com/DeBrosOfficial/kvpubsub/pkg/gateway/handlers/pubsub"
	"github.com/DeBrosOfficial/kvpubsub/pkg/logging"
)

// Gateway exposes a pub/sub client over HTTP and WebSocket.
type Gateway struct {
	cfg       config.GatewayConfig
	client    client.PubSubClient
	logger    *logging.ColoredLogger
	router    chi.Router
	pubsub    *pubsub.PubSubHandlers
	startedAt time.Time

	mu     sync.Mutex
	server *http.Server
	ln     net.Listener
}

// New creates a gateway serving c. c may be nil, in which case pub/sub
// endpoints answer 503.
func New(cfg config.GatewayConfig, c client.PubSubClient, logger *zap.Logger) *Gateway {
	g := &Gateway{
		cfg:       cfg,
		client:    c,
		logger:    logging.Named(logger, logging.ComponentGateway),
		pubsub:    pubsub.NewPubSubHandlers(c, cfg, logger),
		startedAt: time.Now(),
	}
	g.router = g.routes()
	return g
}

// Handler returns the http.Handler with all routes and middleware configured
func (g *Gateway) Handler() http.Handler {
	return g.router
}

// Start listens on the configured address and serves until ctx is
// cancelled, then shuts down.
func (g *Gateway) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", g.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", g.cfg.ListenAddr, err)
	}

	server := &http.Server{
		Handler:           g.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	g.mu.Lock()
	g.server, g.ln = server, ln
	g.mu.Unlock()

	g.logger.ComponentInfo(logging.ComponentGateway, "Gateway server starting",
		zap.String("listen_addr", ln.Addr().String()))

	errCh := make(chan error, 1)
	go func() {
		if err := server.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		return g.Stop()
	case err := <-errCh:
		if err != nil {
			g.logger.ComponentError(logging.ComponentGateway, "Gateway server error", zap.Error(err))
		}
		return err
	}
}

// Addr returns the listening address once Start has bound it.
func (g *Gateway) Addr() net.Addr {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.ln == nil {
		return nil
	}
	return g.ln.Addr()
}

// Stop gracefully stops the server and disconnects WebSocket clients, which
// Shutdown does not track.
func (g *Gateway) Stop() error {
	g.mu.Lock()
	server := g.server
	g.mu.Unlock()
	if server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	g.logger.ComponentInfo(logging.ComponentGateway, "Gateway shutting down")
	g.pubsub.Close()
	if err := server.Shutdown(ctx); err != nil {
		g.logger.ComponentError(logging.ComponentGateway, "Gateway shutdown error", zap.Error(err))
		return err
	}
	g.logger.ComponentInfo(logging.ComponentGateway, "Gateway shutdown complete")
	return nil
}
