package client

import (
	"context"
	"time"

	"github.com/DeBrosOfficial/kvpubsub/pkg/pubsub"
)

// PubSubClient is the subset of Client used by the gateway and the CLI.
type PubSubClient interface {
	Subscribe(channel string, h pubsub.MessageHandler) error
	PSubscribe(pattern string, h pubsub.MessageHandler) error
	Unsubscribe(channel string) error
	PUnsubscribe(pattern string) error
	Publish(ctx context.Context, channel string, payload []byte) (int64, error)
	SubscriptionCount() int64
	Keys() []string
}

// HealthStatus contains health check information
type HealthStatus struct {
	Status        string            `json:"status"` // "healthy", "degraded", "unhealthy"
	Checks        map[string]string `json:"checks"`
	Subscriptions int64             `json:"subscriptions"`
	Pending       int               `json:"pending"`
	Uptime        time.Duration     `json:"uptime"`
	LastUpdated   time.Time         `json:"last_updated"`
	ResponseTime  time.Duration     `json:"response_time"`
}
