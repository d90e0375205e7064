package limiter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// rateUpdate is the wire format published on the config channel.
type rateUpdate struct {
	Namespace     string  `json:"namespace"`
	Key           string  `json:"key"`
	RatePerSecond float64 `json:"rate_per_second"`
}

// RateConfigWatcher propagates SetRate calls to a Registry across process
// boundaries by subscribing to a Redis Pub/Sub channel. It distributes
// *configuration*, never permit or stored-permits state: each process still
// runs its own independent single-process accounting core, so this does not
// implement (or attempt to implement) cross-process token coordination. It
// exists so that an operator can change a tenant's rate in one place and
// have every replica pick it up.
type RateConfigWatcher struct {
	client   *redis.Client
	registry *Registry
	channel  string
	log      *zap.Logger
}

// NewRateConfigWatcher creates a watcher that applies rate updates published
// on channel to registry. It does not start watching until Run is called.
func NewRateConfigWatcher(client *redis.Client, registry *Registry, channel string, log *zap.Logger) *RateConfigWatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &RateConfigWatcher{client: client, registry: registry, channel: channel, log: log}
}

// Publish announces a rate change for id on the watcher's channel. Every
// process subscribed via Run (including the publisher's own, if it is also
// running Run) will apply it to its local Registry.
func (w *RateConfigWatcher) Publish(ctx context.Context, id Identity, ratePerSecond float64) error {
	payload, err := json.Marshal(rateUpdate{Namespace: id.Namespace, Key: id.Key, RatePerSecond: ratePerSecond})
	if err != nil {
		return fmt.Errorf("redisconfig: marshal rate update: %w", err)
	}
	if err := w.client.Publish(ctx, w.channel, payload).Err(); err != nil {
		return fmt.Errorf("redisconfig: publish: %w", err)
	}
	return nil
}

// Run subscribes to the watcher's channel and applies every well-formed
// rate update to the Registry until ctx is canceled or the subscription
// errors. Malformed messages are logged and skipped rather than aborting
// the subscription.
func (w *RateConfigWatcher) Run(ctx context.Context) error {
	sub := w.client.Subscribe(ctx, w.channel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var upd rateUpdate
			if err := json.Unmarshal([]byte(msg.Payload), &upd); err != nil {
				w.log.Warn("redisconfig: discarding malformed rate update", zap.Error(err))
				continue
			}
			id := Identity{Namespace: upd.Namespace, Key: upd.Key}
			if err := w.registry.SetRate(id, upd.RatePerSecond); err != nil {
				w.log.Warn("redisconfig: rejecting rate update",
					zap.String("identity", id.String()),
					zap.Float64("rate_per_second", upd.RatePerSecond),
					zap.Error(err))
				continue
			}
			w.log.Debug("redisconfig: applied rate update",
				zap.String("identity", id.String()),
				zap.Float64("rate_per_second", upd.RatePerSecond))
		}
	}
}
