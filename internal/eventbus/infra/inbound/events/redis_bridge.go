package events

import (
	"context"

	sharedEvents "github.com/davicafu/eventlab/internal/shared/events"
	sharedUtils "github.com/davicafu/eventlab/internal/shared/infra/utils"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// RedisBridge escucha el canal de pub/sub rápido y reparte lo recibido a
// los suscriptores locales. Entrega como mucho una vez: lo que llegue
// mientras el proceso no escucha se pierde, sin replay.
type RedisBridge struct {
	client  *redis.Client
	channel string
	bus     RemoteDeliverer
	log     *zap.Logger
}

func NewRedisBridge(client *redis.Client, channel string, bus RemoteDeliverer, log *zap.Logger) *RedisBridge {
	return &RedisBridge{client: client, channel: channel, bus: bus, log: log}
}

// Start suscribe al canal y procesa mensajes hasta que el contexto muera.
func (b *RedisBridge) Start(ctx context.Context) {
	pubsub := b.client.Subscribe(ctx, b.channel)
	b.log.Info("🎧 Iniciando puente de entrada de Redis", zap.String("channel", b.channel))

	go func() {
		defer pubsub.Close()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				b.log.Info("Puente de Redis detenido.", zap.String("channel", b.channel))
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				sharedUtils.UnmarshalAndHandle(b.log, []byte(msg.Payload), func(evt sharedEvents.Event) {
					b.bus.DeliverRemote(evt)
				})
			}
		}
	}()
}
