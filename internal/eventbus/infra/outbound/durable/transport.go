package durable

import (
	"context"
	"strings"
	"sync"

	busDomain "github.com/davicafu/eventlab/internal/eventbus/domain"
	storeDomain "github.com/davicafu/eventlab/internal/eventstore/domain"
	sharedEvents "github.com/davicafu/eventlab/internal/shared/events"
	"go.uber.org/zap"
)

// Transport es el transporte de log durable del bus. Mantiene su propia
// conexión al backend (distinta de la del EventStore) para que todo lo
// publicado quede también disponible para replay.
type Transport struct {
	backend storeDomain.DurableBackend
	log     *zap.Logger

	mu        sync.RWMutex
	connected bool
}

func NewTransport(backend storeDomain.DurableBackend, log *zap.Logger) *Transport {
	return &Transport{backend: backend, log: log}
}

func (t *Transport) Name() string { return busDomain.TransportDurable }

func (t *Transport) Connect(ctx context.Context) error {
	if err := t.backend.Ping(ctx); err != nil {
		t.setConnected(false)
		return err
	}
	t.setConnected(true)
	return nil
}

// Publish añade el evento al stream de su agregado cuando la metadata lo
// identifica, o al stream del primer segmento del tipo en caso contrario
// (community.post.created -> stream "community").
func (t *Transport) Publish(ctx context.Context, event sharedEvents.Event) error {
	_, _, err := t.backend.Append(ctx, StreamFor(event), event)
	if err != nil {
		t.setConnected(false)
		return err
	}
	return nil
}

// History lee directamente del log durable, sin camino de respaldo: es la
// base de getEventHistory del gestor.
func (t *Transport) History(ctx context.Context, streamName string, fromRevision uint64, maxCount int) ([]storeDomain.StoredEvent, error) {
	if !t.Healthy() {
		return nil, storeDomain.ErrNotConnected
	}
	return t.backend.ReadStream(ctx, streamName, storeDomain.ReadStreamOptions{
		FromRevision:    fromRevision,
		Direction:       storeDomain.Forward,
		MaxCount:        maxCount,
		IncludeMetadata: true,
	})
}

func (t *Transport) Healthy() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.connected
}

func (t *Transport) Close() error {
	t.setConnected(false)
	return t.backend.Close()
}

func (t *Transport) setConnected(v bool) {
	t.mu.Lock()
	t.connected = v
	t.mu.Unlock()
}

// StreamFor deriva el stream de destino de un evento publicado.
func StreamFor(event sharedEvents.Event) string {
	if event.Metadata.AggregateType != "" && event.Metadata.AggregateID != "" {
		return event.Metadata.AggregateType + "-" + event.Metadata.AggregateID
	}
	if i := strings.Index(event.Type, "."); i > 0 {
		return event.Type[:i]
	}
	return event.Type
}

// Verificación estática
var _ busDomain.Transport = (*Transport)(nil)
