package application

import (
	"context"
	"fmt"
	"sync"

	busDomain "github.com/davicafu/eventlab/internal/eventbus/domain"
	"github.com/davicafu/eventlab/internal/eventbus/infra/outbound/durable"
	storeDomain "github.com/davicafu/eventlab/internal/eventstore/domain"
	sharedEvents "github.com/davicafu/eventlab/internal/shared/events"
	"github.com/davicafu/eventlab/internal/validation"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ValidationError envuelve las violaciones de esquema de un publish. Es el
// único error "normal" que PublishEvent devuelve al llamante.
type ValidationError struct {
	Errors []validation.FieldError
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("event failed validation with %d violations", len(e.Errors))
}

// PublishResult indica qué transportes aceptaron el evento.
type PublishResult struct {
	EventID   string   `json:"eventId"`
	EventType string   `json:"eventType"`
	Published []string `json:"published"`
	Failed    []string `json:"failed"`

	// Event es el evento canónico que construyó la validación (timestamp y
	// payload normalizados). No viaja en la respuesta HTTP; existe para que
	// el llamante archive exactamente lo que se publicó.
	Event sharedEvents.Event `json:"-"`
}

// Stats son los contadores globales del bus.
type Stats struct {
	Published        uint64          `json:"published"`
	Failed           uint64          `json:"failed"`
	Consumed         uint64          `json:"consumed"`
	Retries          uint64          `json:"retries"`
	SubscriberErrors uint64          `json:"subscriberErrors"`
	Subscriptions    int             `json:"subscriptions"`
	Standalone       bool            `json:"standalone"`
	Transports       map[string]bool `json:"transports"`
}

// Manager publica cada evento en todos los transportes conectados en
// paralelo y lo reparte a los suscriptores locales. A diferencia del
// EventStore, aquí el estado de cada transporte es un flag global: un
// fallo deja el transporte desconectado hasta que su reconexión prospere.
type Manager struct {
	validator  *validation.Validator
	transports []busDomain.Transport
	durable    *durable.Transport // nil si el log durable está deshabilitado
	standalone bool
	log        *zap.Logger

	subsMu sync.RWMutex
	subs   map[string]busDomain.Subscription

	statsMu sync.Mutex
	stats   Stats

	seenMu   sync.Mutex
	seenIDs  map[string]struct{}
	seenRing []string
	seenNext int
}

const seenRingSize = 1024

// NewManager crea el gestor. transports puede estar vacío (modo
// standalone): solo habrá entrega local, que es un modo de operación
// legítimo, no un estado de error.
func NewManager(validator *validation.Validator, transports []busDomain.Transport, durableTransport *durable.Transport, standalone bool, log *zap.Logger) *Manager {
	return &Manager{
		validator:  validator,
		transports: transports,
		durable:    durableTransport,
		standalone: standalone || len(transports) == 0,
		log:        log,
		subs:       make(map[string]busDomain.Subscription),
		seenIDs:    make(map[string]struct{}),
		seenRing:   make([]string, seenRingSize),
	}
}

// Initialize conecta cada transporte externo por separado; el fallo de uno
// lo deja desconectado y se registra, sin abortar el arranque.
func (m *Manager) Initialize(ctx context.Context) {
	if m.standalone {
		m.log.Info("⚡️ EventBus en modo standalone: solo entrega local")
		return
	}

	for _, t := range m.transports {
		if err := t.Connect(ctx); err != nil {
			m.log.Warn("⚠️ Transporte no disponible en el arranque",
				zap.String("transport", t.Name()),
				zap.Error(err),
			)
			continue
		}
		m.log.Info("✅ Transporte conectado", zap.String("transport", t.Name()))
	}
}

// PublishEvent valida, construye el evento canónico y lo entrega a cada
// transporte conectado en paralelo. El fallo de un transporte se anota en
// failed y no impide el resto de entregas; la notificación local va
// siempre la última y siempre cuenta como publicada.
func (m *Manager) PublishEvent(ctx context.Context, eventType string, data, meta map[string]interface{}) (PublishResult, error) {
	result := m.validator.Validate(eventType, data, meta)
	if !result.Valid {
		return PublishResult{}, &ValidationError{Errors: result.Errors}
	}
	event := *result.Event

	pub := PublishResult{EventID: event.ID, EventType: event.Type, Event: event}

	var wg sync.WaitGroup
	var resMu sync.Mutex
	for _, t := range m.transports {
		if !t.Healthy() {
			pub.Failed = append(pub.Failed, t.Name())
			continue
		}
		wg.Add(1)
		go func(t busDomain.Transport) {
			defer wg.Done()
			err := t.Publish(ctx, event)

			resMu.Lock()
			defer resMu.Unlock()
			if err != nil {
				m.log.Warn("⚠️ Transporte rechazó el evento",
					zap.String("transport", t.Name()),
					zap.String("event_id", event.ID),
					zap.Error(err),
				)
				pub.Failed = append(pub.Failed, t.Name())
				return
			}
			pub.Published = append(pub.Published, t.Name())
		}(t)
	}
	wg.Wait()

	// La entrega local no puede fallar desde el punto de vista del
	// publicador: los errores de cada handler se absorben por suscriptor.
	m.markSeen(event.ID)
	m.notifyLocal(event)
	pub.Published = append(pub.Published, busDomain.TransportLocal)

	m.statsMu.Lock()
	m.stats.Published++
	m.stats.Failed += uint64(len(pub.Failed))
	m.statsMu.Unlock()

	return pub, nil
}

// Subscribe registra un handler para un patrón y devuelve el id de la
// suscripción. Ver MatchPattern para la semántica de los patrones.
func (m *Manager) Subscribe(pattern string, handler busDomain.Handler) string {
	id := uuid.NewString()
	m.subsMu.Lock()
	m.subs[id] = busDomain.Subscription{ID: id, Pattern: pattern, Handler: handler}
	m.subsMu.Unlock()

	m.log.Debug("Nueva suscripción", zap.String("subscription_id", id), zap.String("pattern", pattern))
	return id
}

// Unsubscribe elimina la suscripción; es idempotente y devuelve false si
// el id no existe.
func (m *Manager) Unsubscribe(id string) bool {
	m.subsMu.Lock()
	defer m.subsMu.Unlock()
	if _, ok := m.subs[id]; !ok {
		return false
	}
	delete(m.subs, id)
	return true
}

// DeliverRemote reinyecta en los suscriptores locales un evento recibido
// por un puente de entrada (Kafka/Redis), descartando los que este mismo
// proceso publicó.
func (m *Manager) DeliverRemote(event sharedEvents.Event) {
	if m.wasSeen(event.ID) {
		return
	}
	m.markSeen(event.ID)

	m.statsMu.Lock()
	m.stats.Consumed++
	m.statsMu.Unlock()

	m.notifyLocal(event)
}

// RecordRetry cuenta un intento de reconexión automática de un transporte.
func (m *Manager) RecordRetry() {
	m.statsMu.Lock()
	m.stats.Retries++
	m.statsMu.Unlock()
}

// EventHistory lee directamente del log durable; no tiene camino de
// respaldo y falla si el transporte durable no está conectado.
func (m *Manager) EventHistory(ctx context.Context, streamName string, fromVersion uint64, maxCount int) ([]storeDomain.StoredEvent, error) {
	if m.durable == nil {
		return nil, storeDomain.ErrNotConnected
	}
	return m.durable.History(ctx, streamName, fromVersion, maxCount)
}

// TransportStatus devuelve el flag de conexión de cada transporte.
func (m *Manager) TransportStatus() map[string]bool {
	status := make(map[string]bool, len(m.transports)+1)
	for _, t := range m.transports {
		status[t.Name()] = t.Healthy()
	}
	status[busDomain.TransportLocal] = true
	return status
}

// Stats devuelve una copia de los contadores globales.
func (m *Manager) Stats() Stats {
	m.subsMu.RLock()
	subCount := len(m.subs)
	m.subsMu.RUnlock()

	m.statsMu.Lock()
	snapshot := m.stats
	m.statsMu.Unlock()

	snapshot.Subscriptions = subCount
	snapshot.Standalone = m.standalone
	snapshot.Transports = m.TransportStatus()
	return snapshot
}

// Close cierra todos los transportes externos.
func (m *Manager) Close() {
	for _, t := range m.transports {
		if err := t.Close(); err != nil {
			m.log.Warn("⚠️ Error cerrando transporte", zap.String("transport", t.Name()), zap.Error(err))
		}
	}
}

// ------------------ Entrega local ------------------

func (m *Manager) notifyLocal(event sharedEvents.Event) {
	m.subsMu.RLock()
	matching := make([]busDomain.Subscription, 0, len(m.subs))
	for _, sub := range m.subs {
		if busDomain.MatchPattern(sub.Pattern, event.Type) {
			matching = append(matching, sub)
		}
	}
	m.subsMu.RUnlock()

	for _, sub := range matching {
		m.deliver(sub, event)
	}
}

// deliver aísla cada handler: un pánico solo cuenta contra esa entrega.
func (m *Manager) deliver(sub busDomain.Subscription, event sharedEvents.Event) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("Handler de suscripción falló",
				zap.String("subscription_id", sub.ID),
				zap.String("event_type", event.Type),
				zap.Any("panic", r),
			)
			m.statsMu.Lock()
			m.stats.SubscriberErrors++
			m.statsMu.Unlock()
		}
	}()
	sub.Handler(event)
}

// ------------------ Dedup de eventos propios ------------------

func (m *Manager) markSeen(id string) {
	m.seenMu.Lock()
	defer m.seenMu.Unlock()
	if old := m.seenRing[m.seenNext]; old != "" {
		delete(m.seenIDs, old)
	}
	m.seenRing[m.seenNext] = id
	m.seenIDs[id] = struct{}{}
	m.seenNext = (m.seenNext + 1) % seenRingSize
}

func (m *Manager) wasSeen(id string) bool {
	m.seenMu.Lock()
	defer m.seenMu.Unlock()
	_, ok := m.seenIDs[id]
	return ok
}
