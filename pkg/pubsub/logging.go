package pubsub

import (
	"github.com/DeBrosOfficial/kvpubsub/pkg/logging"
	"go.uber.org/zap"
)

// newPubSubLogger tags logger for the subscriber. A nil logger discards
// output so library users stay quiet unless they opt in.
func newPubSubLogger(logger *zap.Logger) *logging.ColoredLogger {
	return logging.Named(logger, logging.ComponentSubscriber)
}
