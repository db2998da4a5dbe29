package pubsub

import (
	"net/http"
	"sort"

	"go.uber.org/zap"

	"github.com/DeBrosOfficial/kvpubsub/pkg/errors"
	"github.com/DeBrosOfficial/kvpubsub/pkg/httputil"
	"github.com/DeBrosOfficial/kvpubsub/pkg/logging"
	"github.com/DeBrosOfficial/kvpubsub/pkg/pubsub"
)

// PublishHandler handles POST /v1/pubsub/publish {channel, data_base64}
func (p *PubSubHandlers) PublishHandler(w http.ResponseWriter, r *http.Request) {
	if p.client == nil {
		httputil.WriteErr(w, r, errNoClient)
		return
	}

	var body PublishRequest
	if err := httputil.DecodeJSONStrict(w, r, &body); err != nil {
		httputil.WriteErr(w, r, err)
		return
	}
	if err := pubsub.ValidateKey(body.Channel, false); err != nil {
		httputil.WriteErr(w, r, err)
		return
	}
	data, err := httputil.DecodeBase64("data_base64", body.DataB64)
	if err != nil {
		httputil.WriteErr(w, r, err)
		return
	}

	n, err := p.client.Publish(r.Context(), body.Channel, data)
	if err != nil {
		p.logger.ComponentWarn(logging.ComponentGateway, "pubsub publish failed",
			zap.String("channel", body.Channel),
			zap.Error(err))
		httputil.WriteErr(w, r, errors.NewServiceError("kv", "publish failed", err))
		return
	}

	p.logger.ComponentDebug(logging.ComponentGateway, "pubsub publish",
		zap.String("channel", body.Channel),
		zap.Int("data_len", len(data)),
		zap.Int64("receivers", n))

	httputil.WriteJSON(w, http.StatusOK, PublishResponse{Status: "ok", Receivers: n})
}

// StatsHandler handles GET /v1/pubsub/stats
func (p *PubSubHandlers) StatsHandler(w http.ResponseWriter, r *http.Request) {
	if p.client == nil {
		httputil.WriteErr(w, r, errNoClient)
		return
	}
	keys := p.client.Keys()
	sort.Strings(keys)
	httputil.WriteJSON(w, http.StatusOK, StatsResponse{
		Subscriptions: p.client.SubscriptionCount(),
		Keys:          keys,
		WSClients:     p.clientCounts(),
	})
}
