package mocks

import (
	"context"
	"errors"
	"sync"

	busDomain "github.com/davicafu/eventlab/internal/eventbus/domain"
	sharedEvents "github.com/davicafu/eventlab/internal/shared/events"
)

// FakeTransport implementa el puerto Transport del bus para las pruebas.
type FakeTransport struct {
	TransportName string
	FailConnect   bool
	FailPublish   bool

	mu        sync.Mutex
	connected bool
	published []sharedEvents.Event
}

func NewFakeTransport(name string) *FakeTransport {
	return &FakeTransport{TransportName: name}
}

func (t *FakeTransport) Name() string { return t.TransportName }

func (t *FakeTransport) Connect(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.FailConnect {
		t.connected = false
		return errors.New("injected connect failure")
	}
	t.connected = true
	return nil
}

func (t *FakeTransport) Publish(ctx context.Context, event sharedEvents.Event) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.FailPublish {
		t.connected = false
		return errors.New("injected publish failure")
	}
	t.published = append(t.published, event)
	return nil
}

func (t *FakeTransport) Healthy() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connected
}

func (t *FakeTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.connected = false
	return nil
}

// Published devuelve una copia de los eventos aceptados.
func (t *FakeTransport) Published() []sharedEvents.Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]sharedEvents.Event, len(t.published))
	copy(out, t.published)
	return out
}

// Verificación estática
var _ busDomain.Transport = (*FakeTransport)(nil)
