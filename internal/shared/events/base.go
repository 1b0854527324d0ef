package events

import (
	"time"

	"github.com/google/uuid"
)

// SchemaVersion es la versión por defecto del contrato de eventos.
const SchemaVersion = "1.0"

// Metadata acompaña a todo evento de integración.
type Metadata struct {
	Timestamp     time.Time `json:"timestamp"`
	CorrelationID string    `json:"correlationId"`
	CausationID   string    `json:"causationId,omitempty"`
	Source        string    `json:"source"`
	Version       string    `json:"version"`
	UserID        string    `json:"userId,omitempty"`
	AggregateID   string    `json:"aggregateId,omitempty"`
	AggregateType string    `json:"aggregateType,omitempty"`
}

// Event es la unidad atómica del sistema. ID y Timestamp se asignan una
// sola vez en la construcción y no se mutan después.
type Event struct {
	ID       string                 `json:"id"`
	Type     string                 `json:"type"`
	Data     map[string]interface{} `json:"data"`
	Metadata Metadata               `json:"metadata"`
}

// NewEvent construye el evento canónico rellenando los valores por defecto
// de la metadata (timestamp, correlationId, source, version).
func NewEvent(eventType string, data map[string]interface{}, meta Metadata) Event {
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now().UTC()
	}
	if meta.CorrelationID == "" {
		meta.CorrelationID = uuid.NewString()
	}
	if meta.Source == "" {
		meta.Source = "unknown"
	}
	if meta.Version == "" {
		meta.Version = SchemaVersion
	}
	if data == nil {
		data = map[string]interface{}{}
	}
	return Event{
		ID:       uuid.NewString(),
		Type:     eventType,
		Data:     data,
		Metadata: meta,
	}
}
