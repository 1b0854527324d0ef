package domain

import (
	"context"

	sharedEvents "github.com/davicafu/eventlab/internal/shared/events"
)

// DurableBackend es el puerto del log durable. Lo implementan los
// adaptadores de Postgres, SQLite y MongoDB; el almacén decide en cada
// llamada si usa este puerto o el mapa de respaldo en memoria.
type DurableBackend interface {
	// Append persiste el evento al final del stream y devuelve la
	// revisión asignada dentro del stream y la posición global.
	Append(ctx context.Context, streamName string, event sharedEvents.Event) (revision, position uint64, err error)

	// ReadStream devuelve los eventos de un stream. Un stream inexistente
	// devuelve una lista vacía, nunca error.
	ReadStream(ctx context.Context, streamName string, opts ReadStreamOptions) ([]StoredEvent, error)

	// ReadAll lee entre streams en orden de append global.
	ReadAll(ctx context.Context, opts ReadAllOptions) ([]StoredEvent, error)

	// Ping es la sonda de vida usada por Initialize y HealthCheck.
	Ping(ctx context.Context) error

	Close() error
}
