package application

import (
	"context"
	"testing"

	"github.com/davicafu/eventlab/internal/eventstore/domain"
	sharedEvents "github.com/davicafu/eventlab/internal/shared/events"
	"github.com/davicafu/eventlab/tests/mocks"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestInitialize_DisabledBackendGoesStraightToFallback(t *testing.T) {
	store := NewEventStore(nil, zap.NewNop())

	result := store.Initialize(context.Background())

	assert.True(t, result.Success)
	assert.Equal(t, "fallback", result.Mode)
	assert.Equal(t, ModeFallback, store.Mode())
}

func TestInitialize_PingFailureFallsBack(t *testing.T) {
	backend := mocks.NewFakeBackend()
	backend.FailPing = true
	store := NewEventStore(backend, zap.NewNop())

	result := store.Initialize(context.Background())

	assert.True(t, result.Success)
	assert.Equal(t, "fallback", result.Mode)
}

func TestAppendEvent_EmptyStreamNameIsProgrammerError(t *testing.T) {
	store := NewEventStore(nil, zap.NewNop())
	store.Initialize(context.Background())

	_, err := store.AppendEvent(context.Background(), "  ", "test.event", nil, sharedEvents.Metadata{})
	assert.ErrorIs(t, err, domain.ErrEmptyStreamName)

	_, err = store.ReadStream(context.Background(), "", domain.ReadStreamOptions{})
	assert.ErrorIs(t, err, domain.ErrEmptyStreamName)
}

func TestFallbackTransparency_AppendAndReadStillWork(t *testing.T) {
	store := NewEventStore(nil, zap.NewNop())
	store.Initialize(context.Background())

	for i := 0; i < 3; i++ {
		result, err := store.AppendEvent(context.Background(), "orders-42", "orders.created", map[string]interface{}{"i": i}, sharedEvents.Metadata{})
		assert.NoError(t, err)
		assert.Equal(t, uint64(i), result.Revision)
		assert.Equal(t, domain.SourceFallback, result.Source)
	}

	read, err := store.ReadStream(context.Background(), "orders-42", domain.ReadStreamOptions{Direction: domain.Forward})
	assert.NoError(t, err)
	assert.Len(t, read.Events, 3)
	assert.Equal(t, domain.SourceFallback, read.Source)
}

func TestAppendEvent_DurableFailureDowngradesPerCall(t *testing.T) {
	backend := mocks.NewFakeBackend()
	store := NewEventStore(backend, zap.NewNop())
	store.Initialize(context.Background())
	assert.Equal(t, ModeConnected, store.Mode())

	// Primer append: durable.
	first, err := store.AppendEvent(context.Background(), "stream-x", "test.a", nil, sharedEvents.Metadata{})
	assert.NoError(t, err)
	assert.Equal(t, domain.SourceDurable, first.Source)

	// Fallo inyectado: esta llamada se sirve del respaldo sin cambiar el modo.
	backend.FailAppend = true
	second, err := store.AppendEvent(context.Background(), "stream-x", "test.b", nil, sharedEvents.Metadata{})
	assert.NoError(t, err)
	assert.Equal(t, domain.SourceFallback, second.Source)
	assert.Equal(t, ModeConnected, store.Mode())

	// Recuperado: la siguiente llamada vuelve al durable.
	backend.FailAppend = false
	third, err := store.AppendEvent(context.Background(), "stream-x", "test.c", nil, sharedEvents.Metadata{})
	assert.NoError(t, err)
	assert.Equal(t, domain.SourceDurable, third.Source)
}

func TestReadStream_NonexistentIsNotAnError(t *testing.T) {
	backend := mocks.NewFakeBackend()
	store := NewEventStore(backend, zap.NewNop())
	store.Initialize(context.Background())

	read, err := store.ReadStream(context.Background(), "ghost-stream", domain.ReadStreamOptions{})
	assert.NoError(t, err)
	assert.Empty(t, read.Events)
}

func TestSnapshotAuthority_LatestWins(t *testing.T) {
	store := NewEventStore(nil, zap.NewNop())
	store.Initialize(context.Background())

	_, err := store.CreateSnapshot(context.Background(), "42", "order", map[string]interface{}{"total": 10}, 1)
	assert.NoError(t, err)
	_, err = store.CreateSnapshot(context.Background(), "42", "order", map[string]interface{}{"total": 25}, 2)
	assert.NoError(t, err)

	snap, err := store.LoadSnapshot(context.Background(), "42", "order")
	assert.NoError(t, err)
	assert.Equal(t, 2, snap.Version)
	assert.Equal(t, 25, snap.State["total"])
	assert.Equal(t, "42", snap.AggregateID)
	assert.Equal(t, "order", snap.AggregateType)
}

func TestLoadSnapshot_NoneFound(t *testing.T) {
	store := NewEventStore(nil, zap.NewNop())
	store.Initialize(context.Background())

	_, err := store.LoadSnapshot(context.Background(), "404", "order")
	assert.ErrorIs(t, err, domain.ErrNoSnapshot)
}

func TestHealthCheck_States(t *testing.T) {
	// degraded: operando correctamente en fallback
	fallbackStore := NewEventStore(nil, zap.NewNop())
	fallbackStore.Initialize(context.Background())
	assert.Equal(t, "degraded", fallbackStore.HealthCheck(context.Background()).Status)

	// healthy: la sonda durable responde
	backend := mocks.NewFakeBackend()
	connected := NewEventStore(backend, zap.NewNop())
	connected.Initialize(context.Background())
	assert.Equal(t, "healthy", connected.HealthCheck(context.Background()).Status)

	// unhealthy: la propia sonda falla
	backend.FailPing = true
	assert.Equal(t, "unhealthy", connected.HealthCheck(context.Background()).Status)
}

func TestStats_Monotonic(t *testing.T) {
	store := NewEventStore(nil, zap.NewNop())
	store.Initialize(context.Background())

	before := store.Stats()
	assert.Zero(t, before.EventsAppended)

	for i := 0; i < 4; i++ {
		store.AppendEvent(context.Background(), "stats-stream", "test.event", nil, sharedEvents.Metadata{})
	}
	afterAppend := store.Stats()
	assert.Equal(t, uint64(4), afterAppend.EventsAppended)
	assert.Equal(t, uint64(1), afterAppend.StreamsCreated)
	assert.Equal(t, 1, afterAppend.FallbackStreams)

	store.ReadStream(context.Background(), "stats-stream", domain.ReadStreamOptions{})
	afterRead := store.Stats()
	assert.Equal(t, uint64(4), afterRead.EventsRead)
	assert.GreaterOrEqual(t, afterRead.EventsAppended, afterAppend.EventsAppended)
}
