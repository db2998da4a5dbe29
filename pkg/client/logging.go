package client

import (
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/DeBrosOfficial/kvpubsub/pkg/logging"
)

var redisLoggerOnce sync.Once

// newClientLogger tags logger with the client component. go-redis keeps a
// single process-wide logger, so the first client to connect installs it.
func newClientLogger(logger *zap.Logger) *logging.ColoredLogger {
	l := logging.Named(logger, logging.ComponentClient)
	redisLoggerOnce.Do(func() {
		redis.SetLogger(logging.NewRedisLogger(l, logging.ComponentClient))
	})
	return l
}
