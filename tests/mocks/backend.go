package mocks

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/davicafu/eventlab/internal/eventstore/domain"
	sharedEvents "github.com/davicafu/eventlab/internal/shared/events"
)

// FakeBackend implementa el puerto DurableBackend en memoria, con
// inyección de fallos para probar la degradación del almacén y del bus.
type FakeBackend struct {
	mu       sync.Mutex
	streams  map[string][]domain.StoredEvent
	position uint64

	FailAppend bool
	FailRead   bool
	FailPing   bool
	Closed     bool
}

func NewFakeBackend() *FakeBackend {
	return &FakeBackend{streams: make(map[string][]domain.StoredEvent)}
}

var errInjected = errors.New("injected backend failure")

func (b *FakeBackend) Append(ctx context.Context, streamName string, event sharedEvents.Event) (uint64, uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.FailAppend {
		return 0, 0, errInjected
	}

	revision := uint64(len(b.streams[streamName]))
	b.position++
	b.streams[streamName] = append(b.streams[streamName], domain.StoredEvent{
		ID:         event.ID,
		StreamName: streamName,
		Type:       event.Type,
		Data:       event.Data,
		Metadata:   event.Metadata,
		Revision:   revision,
		Position:   b.position,
		RecordedAt: time.Now().UTC(),
	})
	return revision, b.position, nil
}

func (b *FakeBackend) ReadStream(ctx context.Context, streamName string, opts domain.ReadStreamOptions) ([]domain.StoredEvent, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.FailRead {
		return nil, errInjected
	}

	var out []domain.StoredEvent
	for _, evt := range b.streams[streamName] {
		if evt.Revision >= opts.FromRevision {
			out = append(out, evt)
		}
	}
	if opts.Direction == domain.Backward {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	if opts.MaxCount > 0 && len(out) > opts.MaxCount {
		out = out[:opts.MaxCount]
	}
	return out, nil
}

func (b *FakeBackend) ReadAll(ctx context.Context, opts domain.ReadAllOptions) ([]domain.StoredEvent, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.FailRead {
		return nil, errInjected
	}

	var out []domain.StoredEvent
	for name, stream := range b.streams {
		if opts.StreamPrefix != "" && !strings.HasPrefix(name, opts.StreamPrefix) {
			continue
		}
		for _, evt := range stream {
			if evt.Position >= opts.FromPosition {
				out = append(out, evt)
			}
		}
	}
	// Orden global por posición de append.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Position < out[j-1].Position; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	if opts.Direction == domain.Backward {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	if opts.MaxCount > 0 && len(out) > opts.MaxCount {
		out = out[:opts.MaxCount]
	}
	return out, nil
}

func (b *FakeBackend) Ping(ctx context.Context) error {
	if b.FailPing {
		return errInjected
	}
	return nil
}

func (b *FakeBackend) Close() error {
	b.Closed = true
	return nil
}

// Verificación estática
var _ domain.DurableBackend = (*FakeBackend)(nil)
