package redis

import (
	"context"
	"encoding/json"
	"sync"

	busDomain "github.com/davicafu/eventlab/internal/eventbus/domain"
	sharedEvents "github.com/davicafu/eventlab/internal/shared/events"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Transport es el transporte rápido de pub/sub del bus: entrega de baja
// latencia, como mucho una vez, sin garantía de replay.
type Transport struct {
	client  *redis.Client
	channel string
	log     *zap.Logger

	mu        sync.RWMutex
	connected bool
}

func NewTransport(client *redis.Client, channel string, log *zap.Logger) *Transport {
	return &Transport{client: client, channel: channel, log: log}
}

func (t *Transport) Name() string { return busDomain.TransportCache }

func (t *Transport) Connect(ctx context.Context) error {
	if err := t.client.Ping(ctx).Err(); err != nil {
		t.setConnected(false)
		return err
	}
	t.setConnected(true)
	return nil
}

func (t *Transport) Publish(ctx context.Context, event sharedEvents.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if err := t.client.Publish(ctx, t.channel, payload).Err(); err != nil {
		t.log.Error("Error publishing to Redis", zap.Error(err))
		t.setConnected(false)
		return err
	}
	return nil
}

func (t *Transport) Healthy() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.connected
}

func (t *Transport) Close() error {
	t.setConnected(false)
	return t.client.Close()
}

func (t *Transport) setConnected(v bool) {
	t.mu.Lock()
	t.connected = v
	t.mu.Unlock()
}

// Verificación estática
var _ busDomain.Transport = (*Transport)(nil)
