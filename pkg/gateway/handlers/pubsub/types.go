package pubsub

import (
	"sync"

	"go.uber.org/zap"

	"github.com/DeBrosOfficial/kvpubsub/pkg/client"
	"github.com/DeBrosOfficial/kvpubsub/pkg/config"
	"github.com/DeBrosOfficial/kvpubsub/pkg/errors"
	"github.com/DeBrosOfficial/kvpubsub/pkg/logging"
)

var errNoClient = errors.NewServiceError("kv", "client not initialized", nil)

// PubSubHandlers handles all pubsub-related HTTP and WebSocket endpoints
type PubSubHandlers struct {
	client client.PubSubClient
	cfg    config.GatewayConfig
	logger *logging.ColoredLogger

	// opMu serialises the first-join and last-leave transitions of a key so
	// SUBSCRIBE and UNSUBSCRIBE for it reach the server in order.
	opMu sync.Mutex

	// Local fan-out from one server subscription to many WebSocket clients
	localSubscribers map[string]map[*localSubscriber]struct{} // key -> subscribers
	mu               sync.RWMutex
}

// NewPubSubHandlers creates a new PubSubHandlers instance
func NewPubSubHandlers(c client.PubSubClient, cfg config.GatewayConfig, logger *zap.Logger) *PubSubHandlers {
	if cfg.ClientBuffer <= 0 {
		cfg.ClientBuffer = 1
	}
	return &PubSubHandlers{
		client:           c,
		cfg:              cfg,
		logger:           logging.Named(logger, logging.ComponentGateway),
		localSubscribers: make(map[string]map[*localSubscriber]struct{}),
	}
}

// localSubscriber is one WebSocket connection attached to a key
type localSubscriber struct {
	id      string
	key     string
	pattern bool
	msgChan chan Envelope
	ws      *wsClient
}

// Envelope is the JSON frame written to WebSocket clients for every message.
type Envelope struct {
	Channel   string `json:"channel"`
	Pattern   string `json:"pattern,omitempty"`
	Data      string `json:"data"` // base64
	Timestamp int64  `json:"timestamp"`
}

// PublishRequest represents the request body for publishing a message
type PublishRequest struct {
	Channel string `json:"channel"`
	DataB64 string `json:"data_base64"`
}

// PublishResponse reports how many subscribers the server delivered to.
type PublishResponse struct {
	Status    string `json:"status"`
	Receivers int64  `json:"receivers"`
}

// StatsResponse is returned by GET /v1/pubsub/stats
type StatsResponse struct {
	Subscriptions int64          `json:"subscriptions"`
	Keys          []string       `json:"keys"`
	WSClients     map[string]int `json:"ws_clients"`
}
