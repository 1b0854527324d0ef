package memory

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/davicafu/eventlab/internal/eventstore/domain"
	sharedEvents "github.com/davicafu/eventlab/internal/shared/events"
)

// FallbackStore es el respaldo en memoria del almacén de eventos: un mapa
// de stream -> lista de eventos, de propiedad exclusiva del EventStore.
// Todas las operaciones son síncronas y no pueden fallar; nada se persiste.
type FallbackStore struct {
	mu       sync.RWMutex
	streams  map[string][]domain.StoredEvent
	position uint64 // contador local, solo para desempatar lecturas globales
}

func NewFallbackStore() *FallbackStore {
	return &FallbackStore{
		streams: make(map[string][]domain.StoredEvent),
	}
}

// Append añade el evento al final del stream, creándolo si no existe.
// Devuelve la revisión asignada y si el stream es nuevo.
func (s *FallbackStore) Append(streamName string, event sharedEvents.Event) (revision uint64, created bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stream, exists := s.streams[streamName]
	revision = uint64(len(stream))
	s.position++

	s.streams[streamName] = append(stream, domain.StoredEvent{
		ID:         event.ID,
		StreamName: streamName,
		Type:       event.Type,
		Data:       event.Data,
		Metadata:   event.Metadata,
		Revision:   revision,
		Position:   s.position,
		RecordedAt: time.Now().UTC(),
	})
	return revision, !exists
}

// ReadStream devuelve los eventos del stream según las opciones. Un
// stream inexistente devuelve una lista vacía.
func (s *FallbackStore) ReadStream(streamName string, opts domain.ReadStreamOptions) []domain.StoredEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stream := s.streams[streamName]
	var out []domain.StoredEvent
	for _, evt := range stream {
		if evt.Revision >= opts.FromRevision {
			out = append(out, evt)
		}
	}

	if opts.Direction == domain.Backward {
		reverse(out)
	}
	if opts.MaxCount > 0 && len(out) > opts.MaxCount {
		out = out[:opts.MaxCount]
	}
	return out
}

// ReadAll devuelve eventos de todos los streams. Sin secuencia global
// propia, el respaldo ordena por instante de registro.
func (s *FallbackStore) ReadAll(opts domain.ReadAllOptions) []domain.StoredEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.StoredEvent
	for name, stream := range s.streams {
		if opts.StreamPrefix != "" && !strings.HasPrefix(name, opts.StreamPrefix) {
			continue
		}
		for _, evt := range stream {
			if evt.Position >= opts.FromPosition {
				out = append(out, evt)
			}
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].RecordedAt.Equal(out[j].RecordedAt) {
			return out[i].Position < out[j].Position
		}
		return out[i].RecordedAt.Before(out[j].RecordedAt)
	})

	if opts.Direction == domain.Backward {
		reverse(out)
	}
	if opts.MaxCount > 0 && len(out) > opts.MaxCount {
		out = out[:opts.MaxCount]
	}
	return out
}

// StreamCount devuelve cuántos streams viven en el respaldo.
func (s *FallbackStore) StreamCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.streams)
}

func reverse(events []domain.StoredEvent) {
	for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
		events[i], events[j] = events[j], events[i]
	}
}
