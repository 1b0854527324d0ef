package clickhouse

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	sharedEvents "github.com/davicafu/eventlab/internal/shared/events"

	"github.com/ClickHouse/clickhouse-go/v2"
)

// EventLogRepo archiva los eventos publicados en ClickHouse para analítica
// (volumen por tipo, trazas de correlación, auditoría de fuentes).
type EventLogRepo struct {
	db *sql.DB
}

// NewEventLogRepo es el constructor.
func NewEventLogRepo(addr string, dbName string) (*EventLogRepo, error) {
	conn := clickhouse.OpenDB(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: dbName,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
	})

	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("could not ping clickhouse: %w", err)
	}

	return &EventLogRepo{db: conn}, nil
}

// LogBatch inserta un lote de eventos. ClickHouse funciona mejor con
// inserciones en lotes.
func (r *EventLogRepo) LogBatch(ctx context.Context, events []sharedEvents.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO events_log (id, event_type, source, correlation_id, event_time, payload)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, evt := range events {
		payload, err := json.Marshal(evt.Data)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to marshal payload for event %s: %w", evt.ID, err)
		}
		if _, err := stmt.ExecContext(
			ctx,
			evt.ID,
			evt.Type,
			evt.Metadata.Source,
			evt.Metadata.CorrelationID,
			evt.Metadata.Timestamp,
			string(payload),
		); err != nil {
			// Si un registro falla, hacemos rollback de todo el lote.
			tx.Rollback()
			return fmt.Errorf("failed to exec statement for event %s: %w", evt.ID, err)
		}
	}

	return tx.Commit()
}

// VolumeByType cuenta eventos por tipo en una ventana de tiempo.
func (r *EventLogRepo) VolumeByType(ctx context.Context, start, end time.Time) (map[string]uint64, error) {
	query := `
		SELECT event_type, count() AS total
		FROM events_log
		WHERE event_time BETWEEN ? AND ?
		GROUP BY event_type
		ORDER BY total DESC
	`
	rows, err := r.db.QueryContext(ctx, query, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	volumes := make(map[string]uint64)
	for rows.Next() {
		var eventType string
		var total uint64
		if err := rows.Scan(&eventType, &total); err != nil {
			return nil, err
		}
		volumes[eventType] = total
	}
	return volumes, rows.Err()
}

// InitSchema crea la tabla en ClickHouse si no existe.
func (r *EventLogRepo) InitSchema() error {
	// Tabla optimizada para analítica: particionada por mes y ordenada
	// por los campos habituales de consulta.
	query := `
		CREATE TABLE IF NOT EXISTS events_log (
			id             UUID,
			event_type     String,
			source         String,
			correlation_id String,
			event_time     DateTime64(3),
			payload        String
		) ENGINE = MergeTree()
		PARTITION BY toYYYYMM(event_time)
		ORDER BY (event_type, source, event_time);
	`
	_, err := r.db.Exec(query)
	return err
}
