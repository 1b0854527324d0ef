package domain

import (
	"context"

	sharedEvents "github.com/davicafu/eventlab/internal/shared/events"
)

// Nombres de los transportes conocidos, tal y como aparecen en los campos
// published/failed del resultado de publicación.
const (
	TransportDurable = "eventstore"
	TransportBroker  = "kafka"
	TransportCache   = "redis"
	TransportLocal   = "local"
)

// Transport es la capacidad mínima de un mecanismo de entrega externo.
// Cada transporte es opcional y se conecta/desconecta por separado; el
// gestor recorre la colección y acumula resultados por transporte.
type Transport interface {
	// Name identifica el transporte en published/failed y en stats.
	Name() string

	// Connect establece (o restablece) la conexión. Un fallo deja el
	// transporte desconectado sin abortar el arranque del gestor.
	Connect(ctx context.Context) error

	// Publish entrega un evento ya validado. Solo se invoca con el
	// transporte conectado.
	Publish(ctx context.Context, event sharedEvents.Event) error

	// Healthy indica si la última sonda/operación de conexión funcionó.
	Healthy() bool

	Close() error
}

// Handler procesa un evento entregado a una suscripción local. Un pánico o
// error de un handler solo afecta a su propia entrega.
type Handler func(event sharedEvents.Event)

// Subscription vive solo en memoria durante la vida del proceso.
type Subscription struct {
	ID      string
	Pattern string
	Handler Handler
}
