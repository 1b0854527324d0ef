package domain

import (
	"errors"
	"fmt"
	"time"

	sharedEvents "github.com/davicafu/eventlab/internal/shared/events"
)

// Source indica qué camino sirvió una operación del almacén.
const (
	SourceDurable  = "durable"
	SourceFallback = "fallback"
)

// Direction controla el sentido de lectura de un stream.
type Direction string

const (
	Forward  Direction = "forward"
	Backward Direction = "backward"
)

// SnapshotEventType es el tipo reservado de los eventos de snapshot.
const SnapshotEventType = "$snapshot"

var (
	// ErrEmptyStreamName es un error de programación del llamante, no un
	// fallo normal: es el único error que AppendEvent deja escapar.
	ErrEmptyStreamName = errors.New("stream name must be a non-empty string")
	// ErrNoSnapshot se devuelve cuando el agregado no tiene snapshot.
	ErrNoSnapshot = errors.New("no snapshot found")
	// ErrNotConnected indica que la operación exige el backend durable.
	ErrNotConnected = errors.New("durable backend is not connected")
)

// StoredEvent es un evento ya persistido, con su posición en el stream.
type StoredEvent struct {
	ID         string                 `json:"id"`
	StreamName string                 `json:"streamName"`
	Type       string                 `json:"type"`
	Data       map[string]interface{} `json:"data"`
	Metadata   sharedEvents.Metadata  `json:"metadata,omitempty"`
	Revision   uint64                 `json:"revision"`
	Position   uint64                 `json:"position"`
	RecordedAt time.Time              `json:"recordedAt"`
}

// ReadStreamOptions parametriza la lectura de un stream concreto.
type ReadStreamOptions struct {
	FromRevision    uint64
	Direction       Direction
	MaxCount        int
	IncludeMetadata bool
}

// ReadAllOptions parametriza la lectura global entre streams.
type ReadAllOptions struct {
	FromPosition uint64
	Direction    Direction
	MaxCount     int
	StreamPrefix string
}

// AppendResult resume un append correcto.
type AppendResult struct {
	EventID    string `json:"eventId"`
	StreamName string `json:"streamName"`
	EventType  string `json:"eventType"`
	Revision   uint64 `json:"appendPosition"`
	Source     string `json:"source"`
}

// Snapshot es el estado serializado de un agregado en un punto del tiempo.
type Snapshot struct {
	AggregateID   string                 `json:"aggregateId"`
	AggregateType string                 `json:"aggregateType"`
	State         map[string]interface{} `json:"state"`
	Version       int                    `json:"version"`
	Timestamp     time.Time              `json:"snapshotTimestamp"`
}

// SnapshotStream devuelve el nombre del stream reservado de snapshots de
// un agregado. El snapshot más reciente de ese stream es el autoritativo.
func SnapshotStream(aggregateType, aggregateID string) string {
	return fmt.Sprintf("%s-%s-snapshots", aggregateType, aggregateID)
}
