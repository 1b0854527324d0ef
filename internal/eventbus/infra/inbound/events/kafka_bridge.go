package events

import (
	"context"
	"errors"
	"io"

	sharedEvents "github.com/davicafu/eventlab/internal/shared/events"
	sharedUtils "github.com/davicafu/eventlab/internal/shared/infra/utils"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// RemoteDeliverer recibe eventos publicados por otros servicios para
// repartirlos entre los suscriptores locales.
type RemoteDeliverer interface {
	DeliverRemote(event sharedEvents.Event)
}

// KafkaBridge es el "oído" del bus en Kafka: reinyecta el tráfico del
// clúster en la tabla de suscripciones local.
type KafkaBridge struct {
	reader *kafka.Reader
	bus    RemoteDeliverer
	log    *zap.Logger
}

func NewKafkaBridge(reader *kafka.Reader, bus RemoteDeliverer, log *zap.Logger) *KafkaBridge {
	return &KafkaBridge{reader: reader, bus: bus, log: log}
}

// Start inicia el bucle de consumo de mensajes en una goroutine.
func (b *KafkaBridge) Start(ctx context.Context) {
	b.log.Info("🎧 Iniciando puente de entrada de Kafka",
		zap.String("topic", b.reader.Config().Topic),
		zap.Strings("brokers", b.reader.Config().Brokers),
	)

	go func() {
		for {
			// ReadMessage es una llamada bloqueante.
			msg, err := b.reader.ReadMessage(ctx)
			if err != nil {
				if stopReading(ctx, err) {
					b.log.Info("Puente de Kafka detenido.", zap.String("topic", b.reader.Config().Topic))
					return
				}
				b.log.Error("Error al leer mensaje de Kafka", zap.Error(err))
				continue
			}

			sharedUtils.UnmarshalAndHandle(b.log, msg.Value, func(evt sharedEvents.Event) {
				b.bus.DeliverRemote(evt)
			})
		}
	}()
}

func (b *KafkaBridge) Close() error {
	return b.reader.Close()
}

// stopReading decide si el error del reader marca el fin del bucle:
// contexto cancelado, o el reader ya cerrado por Close (kafka-go devuelve
// io.EOF tras cerrarlo). Cualquier otro error se registra y se reintenta.
func stopReading(ctx context.Context, err error) bool {
	return ctx.Err() != nil || errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe)
}
