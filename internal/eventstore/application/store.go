package application

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/davicafu/eventlab/internal/eventstore/domain"
	"github.com/davicafu/eventlab/internal/eventstore/infra/outbound/memory"
	sharedEvents "github.com/davicafu/eventlab/internal/shared/events"
	"go.uber.org/zap"
)

// Mode es el estado de conexión del almacén. Se fija en Initialize y solo
// cambia en Close; un fallo puntual del backend durable NO cambia el modo:
// cada llamada reintenta contra el respaldo de forma independiente.
type Mode string

const (
	ModeUninitialized Mode = "uninitialized"
	ModeConnected     Mode = "connected"
	ModeFallback      Mode = "fallback"
)

const initProbeTimeout = 5 * time.Second

// Stats son los contadores expuestos por /stats y /health.
type Stats struct {
	EventsAppended   uint64 `json:"eventsAppended"`
	EventsRead       uint64 `json:"eventsRead"`
	SnapshotsCreated uint64 `json:"snapshotsCreated"`
	StreamsCreated   uint64 `json:"streamsCreated"`
	Errors           uint64 `json:"errors"`
	FallbackOps      uint64 `json:"fallbackOps"`
	FallbackStreams  int    `json:"fallbackStreams"`
	Mode             string `json:"mode"`
}

// InitResult resume el resultado de Initialize.
type InitResult struct {
	Success bool   `json:"success"`
	Mode    string `json:"mode"`
}

// ReadStreamResult es la respuesta de ReadStream.
type ReadStreamResult struct {
	StreamName string               `json:"streamName"`
	Events     []domain.StoredEvent `json:"events"`
	Source     string               `json:"source"`
}

// ReadAllResult es la respuesta de ReadAll.
type ReadAllResult struct {
	Events []domain.StoredEvent `json:"events"`
	Source string               `json:"source"`
}

// Health es la respuesta de HealthCheck.
type Health struct {
	Status string `json:"status"` // healthy | degraded | unhealthy
	Mode   string `json:"mode"`
	Stats  Stats  `json:"stats"`
}

// EventStore es el log de eventos durable y reproducible con respaldo en
// memoria siempre disponible. El respaldo es de propiedad exclusiva de
// este tipo y nunca se comparte con el bus.
type EventStore struct {
	backend  domain.DurableBackend // nil cuando el backend durable está deshabilitado
	fallback *memory.FallbackStore
	log      *zap.Logger

	mu   sync.RWMutex
	mode Mode

	statsMu sync.Mutex
	stats   Stats
}

// NewEventStore crea el almacén sin inicializar. backend puede ser nil si
// la configuración deshabilita el log durable.
func NewEventStore(backend domain.DurableBackend, log *zap.Logger) *EventStore {
	return &EventStore{
		backend:  backend,
		fallback: memory.NewFallbackStore(),
		log:      log,
		mode:     ModeUninitialized,
	}
}

// Initialize sondea el backend durable y fija el modo del almacén. Con el
// backend deshabilitado pasa directo a fallback sin tocar la red.
func (s *EventStore) Initialize(ctx context.Context) InitResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.backend == nil {
		s.mode = ModeFallback
		s.log.Info("📦 EventStore en modo fallback (backend durable deshabilitado)")
		return InitResult{Success: true, Mode: string(ModeFallback)}
	}

	probeCtx, cancel := context.WithTimeout(ctx, initProbeTimeout)
	defer cancel()

	if err := s.backend.Ping(probeCtx); err != nil {
		s.mode = ModeFallback
		s.log.Warn("⚠️ Backend durable no disponible, EventStore en modo fallback", zap.Error(err))
		return InitResult{Success: true, Mode: string(ModeFallback)}
	}

	s.mode = ModeConnected
	s.log.Info("✅ EventStore conectado al backend durable")
	return InitResult{Success: true, Mode: string(ModeConnected)}
}

// Mode devuelve el modo actual.
func (s *EventStore) Mode() Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

// AppendEvent añade un evento al final del stream. El único error que
// escapa es un nombre de stream inválido (bug del llamante); cualquier
// fallo del backend durable se degrada al respaldo solo para esta llamada.
func (s *EventStore) AppendEvent(ctx context.Context, streamName, eventType string, data map[string]interface{}, meta sharedEvents.Metadata) (domain.AppendResult, error) {
	if strings.TrimSpace(streamName) == "" {
		return domain.AppendResult{}, domain.ErrEmptyStreamName
	}

	event := sharedEvents.NewEvent(eventType, data, meta)

	if s.Mode() == ModeConnected {
		revision, _, err := s.backend.Append(ctx, streamName, event)
		if err == nil {
			s.recordAppend(revision == 0, false)
			return domain.AppendResult{
				EventID:    event.ID,
				StreamName: streamName,
				EventType:  eventType,
				Revision:   revision,
				Source:     domain.SourceDurable,
			}, nil
		}
		s.log.Warn("⚠️ Append durable falló, usando respaldo en memoria",
			zap.String("stream", streamName),
			zap.Error(err),
		)
		s.recordError()
	}

	revision, created := s.fallback.Append(streamName, event)
	s.recordAppend(created, true)
	return domain.AppendResult{
		EventID:    event.ID,
		StreamName: streamName,
		EventType:  eventType,
		Revision:   revision,
		Source:     domain.SourceFallback,
	}, nil
}

// ReadStream lee un stream. Un stream inexistente devuelve una lista
// vacía: no es una condición de error.
func (s *EventStore) ReadStream(ctx context.Context, streamName string, opts domain.ReadStreamOptions) (ReadStreamResult, error) {
	if strings.TrimSpace(streamName) == "" {
		return ReadStreamResult{}, domain.ErrEmptyStreamName
	}

	var events []domain.StoredEvent
	source := domain.SourceFallback

	if s.Mode() == ModeConnected {
		durable, err := s.backend.ReadStream(ctx, streamName, opts)
		if err == nil {
			events, source = durable, domain.SourceDurable
		} else {
			s.log.Warn("⚠️ Lectura durable falló, usando respaldo en memoria",
				zap.String("stream", streamName),
				zap.Error(err),
			)
			s.recordError()
			events = s.fallback.ReadStream(streamName, opts)
			s.recordFallbackOp()
		}
	} else {
		events = s.fallback.ReadStream(streamName, opts)
		s.recordFallbackOp()
	}

	if !opts.IncludeMetadata {
		events = stripMetadata(events)
	}
	s.recordRead(len(events))

	return ReadStreamResult{StreamName: streamName, Events: events, Source: source}, nil
}

// ReadAll lee entre streams: en durable, por orden de append global; en
// fallback, por timestamp registrado (no hay secuencia global).
func (s *EventStore) ReadAll(ctx context.Context, opts domain.ReadAllOptions) ReadAllResult {
	if s.Mode() == ModeConnected {
		durable, err := s.backend.ReadAll(ctx, opts)
		if err == nil {
			s.recordRead(len(durable))
			return ReadAllResult{Events: durable, Source: domain.SourceDurable}
		}
		s.log.Warn("⚠️ Lectura global durable falló, usando respaldo en memoria", zap.Error(err))
		s.recordError()
	}

	events := s.fallback.ReadAll(opts)
	s.recordFallbackOp()
	s.recordRead(len(events))
	return ReadAllResult{Events: events, Source: domain.SourceFallback}
}

// CreateSnapshot registra el estado de un agregado como un evento del tipo
// reservado en su stream de snapshots; hereda todas las garantías de
// AppendEvent.
func (s *EventStore) CreateSnapshot(ctx context.Context, aggregateID, aggregateType string, state map[string]interface{}, version int) (domain.AppendResult, error) {
	data := map[string]interface{}{
		"aggregateId":       aggregateID,
		"aggregateType":     aggregateType,
		"state":             state,
		"version":           version,
		"snapshotTimestamp": time.Now().UTC().Format(time.RFC3339Nano),
	}
	meta := sharedEvents.Metadata{
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		Source:        "eventstore",
	}

	result, err := s.AppendEvent(ctx, domain.SnapshotStream(aggregateType, aggregateID), domain.SnapshotEventType, data, meta)
	if err != nil {
		return domain.AppendResult{}, err
	}

	s.statsMu.Lock()
	s.stats.SnapshotsCreated++
	s.statsMu.Unlock()
	return result, nil
}

// LoadSnapshot lee el stream de snapshots hacia atrás con maxCount=1: el
// último snapshot registrado es el autoritativo.
func (s *EventStore) LoadSnapshot(ctx context.Context, aggregateID, aggregateType string) (domain.Snapshot, error) {
	result, err := s.ReadStream(ctx, domain.SnapshotStream(aggregateType, aggregateID), domain.ReadStreamOptions{
		Direction:       domain.Backward,
		MaxCount:        1,
		IncludeMetadata: true,
	})
	if err != nil {
		return domain.Snapshot{}, err
	}
	if len(result.Events) == 0 {
		return domain.Snapshot{}, domain.ErrNoSnapshot
	}

	return parseSnapshot(result.Events[0]), nil
}

// HealthCheck: healthy solo si el backend durable responde a la sonda;
// degraded operando correctamente en fallback; unhealthy si la sonda falla.
func (s *EventStore) HealthCheck(ctx context.Context) Health {
	mode := s.Mode()
	health := Health{Mode: string(mode), Stats: s.Stats()}

	if mode != ModeConnected {
		health.Status = "degraded"
		return health
	}

	if err := s.backend.Ping(ctx); err != nil {
		s.log.Warn("⚠️ Sonda de salud del backend durable falló", zap.Error(err))
		health.Status = "unhealthy"
		return health
	}

	health.Status = "healthy"
	return health
}

// Stats devuelve una copia de los contadores.
func (s *EventStore) Stats() Stats {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	snapshot := s.stats
	snapshot.FallbackStreams = s.fallback.StreamCount()
	snapshot.Mode = string(s.Mode())
	return snapshot
}

// Close libera el backend durable y devuelve el almacén a Uninitialized.
func (s *EventStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = ModeUninitialized
	if s.backend != nil {
		return s.backend.Close()
	}
	return nil
}

// ------------------ Contadores ------------------

func (s *EventStore) recordAppend(newStream, viaFallback bool) {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	s.stats.EventsAppended++
	if newStream {
		s.stats.StreamsCreated++
	}
	if viaFallback {
		s.stats.FallbackOps++
	}
}

func (s *EventStore) recordRead(count int) {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	s.stats.EventsRead += uint64(count)
}

func (s *EventStore) recordError() {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	s.stats.Errors++
}

func (s *EventStore) recordFallbackOp() {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	s.stats.FallbackOps++
}

// ------------------ Helpers ------------------

func stripMetadata(events []domain.StoredEvent) []domain.StoredEvent {
	out := make([]domain.StoredEvent, len(events))
	for i, evt := range events {
		evt.Metadata = sharedEvents.Metadata{}
		out[i] = evt
	}
	return out
}

func parseSnapshot(evt domain.StoredEvent) domain.Snapshot {
	snap := domain.Snapshot{
		AggregateID:   asString(evt.Data["aggregateId"]),
		AggregateType: asString(evt.Data["aggregateType"]),
		Timestamp:     evt.RecordedAt,
	}
	if state, ok := evt.Data["state"].(map[string]interface{}); ok {
		snap.State = state
	}
	switch v := evt.Data["version"].(type) {
	case int:
		snap.Version = v
	case float64:
		snap.Version = int(v)
	}
	if ts, err := time.Parse(time.RFC3339Nano, asString(evt.Data["snapshotTimestamp"])); err == nil {
		snap.Timestamp = ts
	}
	return snap
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}
