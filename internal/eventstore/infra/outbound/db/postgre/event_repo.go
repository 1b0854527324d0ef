package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/davicafu/eventlab/internal/eventstore/domain"
	sharedEvents "github.com/davicafu/eventlab/internal/shared/events"
	sharedUtils "github.com/davicafu/eventlab/internal/shared/infra/utils"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// EventRepoPostgres implementa el puerto DurableBackend sobre Postgres.
type EventRepoPostgres struct {
	db *sql.DB
}

func NewEventRepoPostgres(db *sql.DB) *EventRepoPostgres {
	return &EventRepoPostgres{db: db}
}

// ------------------ Append ------------------

// Append inserta el evento asignando la siguiente revisión del stream en
// la propia sentencia; el índice único (stream_name, revision) hace que
// dos appends concurrentes al mismo stream nunca colisionen en silencio.
func (r *EventRepoPostgres) Append(ctx context.Context, streamName string, event sharedEvents.Event) (uint64, uint64, error) {
	dataBytes, err := json.Marshal(event.Data)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to marshal event data: %w", err)
	}
	metaBytes, err := json.Marshal(event.Metadata)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to marshal event metadata: %w", err)
	}

	var revision, position uint64
	err = r.db.QueryRowContext(ctx,
		`INSERT INTO events (event_id, stream_name, revision, event_type, data, metadata, recorded_at)
		 VALUES ($1, $2,
		         (SELECT COALESCE(MAX(revision) + 1, 0) FROM events WHERE stream_name = $2),
		         $3, $4, $5, NOW())
		 RETURNING revision, position`,
		event.ID, streamName, event.Type, dataBytes, metaBytes,
	).Scan(&revision, &position)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to append event: %w", err)
	}
	return revision, position, nil
}

// ------------------ Lectura ------------------

func (r *EventRepoPostgres) ReadStream(ctx context.Context, streamName string, opts domain.ReadStreamOptions) ([]domain.StoredEvent, error) {
	order := sharedUtils.Ternary(opts.Direction == domain.Backward, "DESC", "ASC")
	query := fmt.Sprintf(
		`SELECT event_id, stream_name, revision, position, event_type, data, metadata, recorded_at
		 FROM events
		 WHERE stream_name = $1 AND revision >= $2
		 ORDER BY revision %s`, order)

	args := []interface{}{streamName, opts.FromRevision}
	if opts.MaxCount > 0 {
		query += " LIMIT $3"
		args = append(args, opts.MaxCount)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to read stream: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

func (r *EventRepoPostgres) ReadAll(ctx context.Context, opts domain.ReadAllOptions) ([]domain.StoredEvent, error) {
	order := sharedUtils.Ternary(opts.Direction == domain.Backward, "DESC", "ASC")
	query := fmt.Sprintf(
		`SELECT event_id, stream_name, revision, position, event_type, data, metadata, recorded_at
		 FROM events
		 WHERE position >= $1 AND stream_name LIKE $2 ESCAPE '\'
		 ORDER BY position %s`, order)

	// El prefijo es un literal, no un patrón: % y _ se escapan.
	args := []interface{}{opts.FromPosition, sharedUtils.EscapeLike(opts.StreamPrefix) + "%"}
	if opts.MaxCount > 0 {
		query += " LIMIT $3"
		args = append(args, opts.MaxCount)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to read all events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]domain.StoredEvent, error) {
	var events []domain.StoredEvent
	for rows.Next() {
		var evt domain.StoredEvent
		var dataBytes, metaBytes []byte
		if err := rows.Scan(&evt.ID, &evt.StreamName, &evt.Revision, &evt.Position,
			&evt.Type, &dataBytes, &metaBytes, &evt.RecordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan event row: %w", err)
		}
		if err := json.Unmarshal(dataBytes, &evt.Data); err != nil {
			return nil, fmt.Errorf("failed to unmarshal event data: %w", err)
		}
		if err := json.Unmarshal(metaBytes, &evt.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal event metadata: %w", err)
		}
		events = append(events, evt)
	}
	return events, rows.Err()
}

// ------------------ Salud ------------------

func (r *EventRepoPostgres) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *EventRepoPostgres) Close() error {
	return r.db.Close()
}

// ------------------ Inicialización ------------------

func InitPostgres(db *sql.DB) error {
	_, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS events (
		position    BIGSERIAL PRIMARY KEY,
		event_id    UUID NOT NULL,
		stream_name TEXT NOT NULL,
		revision    BIGINT NOT NULL,
		event_type  TEXT NOT NULL,
		data        JSONB NOT NULL,
		metadata    JSONB NOT NULL,
		recorded_at TIMESTAMP NOT NULL,
		UNIQUE (stream_name, revision)
	)`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_events_stream ON events (stream_name, revision)`)
	return err
}

// Verificación estática
var _ domain.DurableBackend = (*EventRepoPostgres)(nil)
