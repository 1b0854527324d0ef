package kafka

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	busDomain "github.com/davicafu/eventlab/internal/eventbus/domain"
	sharedEvents "github.com/davicafu/eventlab/internal/shared/events"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Transport es el transporte de broker fiable del bus. Los mensajes se
// escriben con acks de todas las réplicas; ante una pérdida de conexión el
// transporte queda desconectado y un bucle de reconexión con espera fija
// intenta restablecerlo.
type Transport struct {
	writer         *kafka.Writer
	brokers        []string
	reconnectDelay time.Duration
	onRetry        func() // contador de reintentos del gestor
	log            *zap.Logger

	mu           sync.Mutex
	connected    bool
	reconnecting bool
	closed       bool
}

func NewTransport(brokers []string, topic string, reconnectDelay time.Duration, onRetry func(), log *zap.Logger) *Transport {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
	}
	if onRetry == nil {
		onRetry = func() {}
	}
	return &Transport{
		writer:         writer,
		brokers:        brokers,
		reconnectDelay: reconnectDelay,
		onRetry:        onRetry,
		log:            log,
	}
}

func (t *Transport) Name() string { return busDomain.TransportBroker }

// Connect sondea el primer broker; la topología (topic) se declara una vez
// en el arranque del clúster, no aquí.
func (t *Transport) Connect(ctx context.Context) error {
	conn, err := kafka.DialContext(ctx, "tcp", t.brokers[0])
	if err != nil {
		t.setConnected(false)
		return err
	}
	conn.Close()
	t.setConnected(true)
	return nil
}

func (t *Transport) Publish(ctx context.Context, event sharedEvents.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		// La clave de partición agrupa los eventos del mismo tipo.
		Key:   []byte(event.Type),
		Value: payload,
	}

	if err := t.writer.WriteMessages(ctx, msg); err != nil {
		t.log.Error("Error publishing to Kafka", zap.Error(err))
		t.setConnected(false)
		t.scheduleReconnect()
		return err
	}

	t.log.Debug("Event published to Kafka", zap.String("event_id", event.ID), zap.String("event_type", event.Type))
	return nil
}

func (t *Transport) Healthy() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connected
}

func (t *Transport) Close() error {
	t.mu.Lock()
	t.closed = true
	t.connected = false
	t.mu.Unlock()
	return t.writer.Close()
}

func (t *Transport) setConnected(v bool) {
	t.mu.Lock()
	t.connected = v
	t.mu.Unlock()
}

// scheduleReconnect lanza, como mucho, un bucle de reconexión a la vez.
func (t *Transport) scheduleReconnect() {
	t.mu.Lock()
	if t.reconnecting || t.closed {
		t.mu.Unlock()
		return
	}
	t.reconnecting = true
	t.mu.Unlock()

	go func() {
		defer func() {
			t.mu.Lock()
			t.reconnecting = false
			t.mu.Unlock()
		}()

		for {
			time.Sleep(t.reconnectDelay)

			t.mu.Lock()
			if t.closed {
				t.mu.Unlock()
				return
			}
			t.mu.Unlock()

			t.onRetry()
			ctx, cancel := context.WithTimeout(context.Background(), t.reconnectDelay)
			err := t.Connect(ctx)
			cancel()
			if err == nil {
				t.log.Info("✅ Reconectado a Kafka")
				return
			}
			t.log.Warn("⚠️ Reintento de conexión a Kafka fallido", zap.Error(err))
		}
	}()
}

// Verificación estática
var _ busDomain.Transport = (*Transport)(nil)
