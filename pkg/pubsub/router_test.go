package pubsub

import (
	"errors"
	"sync"
	"testing"

	kverrors "github.com/DeBrosOfficial/kvpubsub/pkg/errors"
	"github.com/DeBrosOfficial/kvpubsub/pkg/resp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type delivery struct {
	tag     string
	key     string
	payload string
}

type recorder struct {
	mu    sync.Mutex
	calls []delivery
}

func (r *recorder) handler(tag string) MessageHandler {
	return func(key string, payload []byte) error {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.calls = append(r.calls, delivery{tag: tag, key: key, payload: string(payload)})
		return nil
	}
}

func (r *recorder) all() []delivery {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]delivery(nil), r.calls...)
}

func TestRouteMessageComposesHandlers(t *testing.T) {
	sub, _, rep := newTestSubscriber()
	rec := &recorder{}

	require.NoError(t, sub.Subscribe("chan1", rec.handler("first")))
	require.NoError(t, sub.Subscribe("chan1", rec.handler("second")))
	sub.OnMessage(rec.handler("global"))

	sub.Route(messageFrame("chan1", "payload"))

	assert.Equal(t, []delivery{
		{tag: "first", key: "chan1", payload: "payload"},
		{tag: "second", key: "chan1", payload: "payload"},
		{tag: "global", key: "chan1", payload: "payload"},
	}, rec.all())
	assert.Empty(t, rep.all())
}

func TestRoutePMessageUsesConcreteChannel(t *testing.T) {
	sub, _, _ := newTestSubscriber()
	rec := &recorder{}

	require.NoError(t, sub.PSubscribe("ch*", rec.handler("pattern")))
	require.NoError(t, sub.Subscribe("chan1", rec.handler("exact")))
	sub.OnMessage(rec.handler("global"))

	sub.Route(pmessageFrame("ch*", "chan1", "payload"))

	assert.Equal(t, []delivery{
		{tag: "pattern", key: "chan1", payload: "payload"},
		{tag: "global", key: "chan1", payload: "payload"},
	}, rec.all())
}

func TestRouteGlobalListenerWithoutKeyHandlers(t *testing.T) {
	sub, _, _ := newTestSubscriber()
	rec := &recorder{}
	sub.OnMessage(rec.handler("global"))

	sub.Route(messageFrame("unregistered", "x"))

	assert.Equal(t, []delivery{{tag: "global", key: "unregistered", payload: "x"}}, rec.all())
}

func TestRouteAckSetsCount(t *testing.T) {
	tests := []struct {
		name  string
		frame resp.Frame
		want  int64
	}{
		{"subscribe", ackFrame("subscribe", "chan1", 4), 4},
		{"unsubscribe", ackFrame("unsubscribe", "chan1", 0), 0},
		{"psubscribe", ackFrame("psubscribe", "ch*", 7), 7},
		{"punsubscribe", ackFrame("punsubscribe", "ch*", 2), 2},
		{"bulk count", resp.Array(resp.BulkString("subscribe"), resp.BulkString("a"), resp.BulkString("9")), 9},
		{"null channel", resp.Array(resp.BulkString("unsubscribe"), resp.NullBulk(), resp.Integer(3)), 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub, _, _ := newTestSubscriber()
			rec := &recorder{}
			sub.OnMessage(rec.handler("global"))

			sub.Route(tt.frame)

			assert.Equal(t, tt.want, sub.SubscriptionCount())
			assert.Empty(t, rec.all(), "acks must not be dispatched")
			assert.Empty(t, sub.Keys(), "acks must not touch the registry")
		})
	}
}

func TestRouteAckReplacesCount(t *testing.T) {
	sub, _, _ := newTestSubscriber()
	sub.Route(ackFrame("subscribe", "a", 4))
	sub.Route(ackFrame("subscribe", "b", 2))
	assert.EqualValues(t, 2, sub.SubscriptionCount())

	sub.Route(resp.Array(resp.BulkString("subscribe"), resp.BulkString("c"), resp.BulkString("many")))
	assert.EqualValues(t, 2, sub.SubscriptionCount(), "unparseable count is ignored")
}

func TestRouteIgnoresUnknownFrames(t *testing.T) {
	sub, _, rep := newTestSubscriber()
	rec := &recorder{}
	require.NoError(t, sub.Subscribe("chan1", rec.handler("exact")))
	sub.OnMessage(rec.handler("global"))

	frames := []resp.Frame{
		resp.ErrorFrame("ERR wrong"),
		resp.SimpleString("OK"),
		resp.Array(),
		resp.Array(resp.BulkString("pong"), resp.BulkString("")),
		resp.Array(resp.BulkString("message"), resp.BulkString("chan1")),
		resp.Array(resp.BulkString("pmessage"), resp.BulkString("chan1"), resp.BulkString("x")),
		resp.Array(resp.BulkString("message"), resp.BulkString("chan1"), resp.BulkString("x"), resp.BulkString("y")),
		resp.Array(resp.BulkString("MESSAGE"), resp.BulkString("chan1"), resp.BulkString("x")),
		resp.Array(resp.Array(resp.BulkString("message")), resp.BulkString("chan1"), resp.BulkString("x")),
	}
	for _, f := range frames {
		sub.Route(f)
	}

	assert.Empty(t, rec.all())
	assert.Empty(t, rep.all())
	assert.Zero(t, sub.SubscriptionCount())
}

func TestRouteIsolatesHandlerFailures(t *testing.T) {
	sub, _, rep := newTestSubscriber()
	rec := &recorder{}
	boom := errors.New("boom")

	require.NoError(t, sub.Subscribe("chan1", func(string, []byte) error { panic("kaboom") }))
	require.NoError(t, sub.Subscribe("chan1", func(string, []byte) error { return boom }))
	require.NoError(t, sub.Subscribe("chan1", rec.handler("survivor")))
	sub.OnMessage(func(string, []byte) error { panic(boom) })
	sub.OnMessage(rec.handler("global"))

	sub.Route(messageFrame("chan1", "one"))
	sub.Route(messageFrame("chan1", "two"))

	assert.Equal(t, []delivery{
		{tag: "survivor", key: "chan1", payload: "one"},
		{tag: "global", key: "chan1", payload: "one"},
		{tag: "survivor", key: "chan1", payload: "two"},
		{tag: "global", key: "chan1", payload: "two"},
	}, rec.all())

	reported := rep.all()
	require.Len(t, reported, 6)
	for _, r := range reported {
		assert.False(t, r.fatal)
		assert.True(t, kverrors.IsHandler(r.err))
		var herr *kverrors.HandlerError
		require.ErrorAs(t, r.err, &herr)
		assert.Equal(t, "chan1", herr.Key)
	}
	assert.ErrorIs(t, reported[1].err, boom)
	assert.ErrorIs(t, reported[2].err, boom)
}

func TestRouteWithoutReporterLogs(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	sub := NewSubscriber(&fakeTransport{}, nil, zap.New(core))
	require.NoError(t, sub.Subscribe("chan1", func(string, []byte) error { panic("nope") }))

	sub.Route(messageFrame("chan1", "x"))

	entries := logs.FilterMessage("[ROUTER] Message handler failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "chan1", entries[0].ContextMap()["key"])
}

func TestRemoveListener(t *testing.T) {
	sub, _, _ := newTestSubscriber()
	rec := &recorder{}
	a := sub.OnMessage(rec.handler("a"))
	sub.OnMessage(rec.handler("b"))

	assert.Equal(t, ListenerID(""), sub.OnMessage(nil))
	assert.True(t, sub.RemoveListener(a))
	assert.False(t, sub.RemoveListener(a))

	sub.Route(messageFrame("k", "v"))
	assert.Equal(t, []delivery{{tag: "b", key: "k", payload: "v"}}, rec.all())
}

func TestHandlerMayResubscribeReentrantly(t *testing.T) {
	sub, tr, _ := newTestSubscriber()
	rec := &recorder{}

	require.NoError(t, sub.Subscribe("first", func(key string, payload []byte) error {
		if err := sub.Unsubscribe("first"); err != nil {
			return err
		}
		return sub.Subscribe("second", rec.handler("second"))
	}))

	sub.Route(messageFrame("first", "x"))
	sub.Route(messageFrame("first", "y"))
	sub.Route(messageFrame("second", "z"))

	assert.Equal(t, []delivery{{tag: "second", key: "second", payload: "z"}}, rec.all())
	assert.Equal(t, []string{"SUBSCRIBE first", "UNSUBSCRIBE first", "SUBSCRIBE second"}, tr.commands())
}
