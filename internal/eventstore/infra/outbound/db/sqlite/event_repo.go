package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/davicafu/eventlab/internal/eventstore/domain"
	sharedEvents "github.com/davicafu/eventlab/internal/shared/events"
	sharedUtils "github.com/davicafu/eventlab/internal/shared/infra/utils"

	// _ "github.com/mattn/go-sqlite3" // better performance but requires gcc
	_ "modernc.org/sqlite"
)

// EventRepoSQLite implementa DurableBackend sobre SQLite para despliegues
// locales sin Postgres.
type EventRepoSQLite struct {
	db *sql.DB
}

func NewEventRepoSQLite(db *sql.DB) *EventRepoSQLite {
	return &EventRepoSQLite{db: db}
}

// ------------------ Append ------------------

func (r *EventRepoSQLite) Append(ctx context.Context, streamName string, event sharedEvents.Event) (uint64, uint64, error) {
	dataBytes, err := json.Marshal(event.Data)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to marshal event data: %w", err)
	}
	metaBytes, err := json.Marshal(event.Metadata)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to marshal event metadata: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var revision uint64
	if err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(revision) + 1, 0) FROM events WHERE stream_name = ?`,
		streamName,
	).Scan(&revision); err != nil {
		return 0, 0, fmt.Errorf("failed to compute next revision: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO events (event_id, stream_name, revision, event_type, data, metadata, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		event.ID, streamName, revision, event.Type, string(dataBytes), string(metaBytes), time.Now().UTC(),
	)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to append event: %w", err)
	}

	position, err := res.LastInsertId()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read append position: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("failed to commit append: %w", err)
	}
	return revision, uint64(position), nil
}

// ------------------ Lectura ------------------

func (r *EventRepoSQLite) ReadStream(ctx context.Context, streamName string, opts domain.ReadStreamOptions) ([]domain.StoredEvent, error) {
	order := sharedUtils.Ternary(opts.Direction == domain.Backward, "DESC", "ASC")
	query := fmt.Sprintf(
		`SELECT event_id, stream_name, revision, position, event_type, data, metadata, recorded_at
		 FROM events
		 WHERE stream_name = ? AND revision >= ?
		 ORDER BY revision %s`, order)

	args := []interface{}{streamName, opts.FromRevision}
	if opts.MaxCount > 0 {
		query += " LIMIT ?"
		args = append(args, opts.MaxCount)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to read stream: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

func (r *EventRepoSQLite) ReadAll(ctx context.Context, opts domain.ReadAllOptions) ([]domain.StoredEvent, error) {
	order := sharedUtils.Ternary(opts.Direction == domain.Backward, "DESC", "ASC")
	query := fmt.Sprintf(
		`SELECT event_id, stream_name, revision, position, event_type, data, metadata, recorded_at
		 FROM events
		 WHERE position >= ? AND stream_name LIKE ? ESCAPE '\'
		 ORDER BY position %s`, order)

	// El prefijo es un literal, no un patrón: % y _ se escapan.
	args := []interface{}{opts.FromPosition, sharedUtils.EscapeLike(opts.StreamPrefix) + "%"}
	if opts.MaxCount > 0 {
		query += " LIMIT ?"
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
		var dataStr, metaStr string
		if err := rows.Scan(&evt.ID, &evt.StreamName, &evt.Revision, &evt.Position,
			&evt.Type, &dataStr, &metaStr, &evt.RecordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan event row: %w", err)
		}
		if err := json.Unmarshal([]byte(dataStr), &evt.Data); err != nil {
			return nil, fmt.Errorf("failed to unmarshal event data: %w", err)
		}
		if err := json.Unmarshal([]byte(metaStr), &evt.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal event metadata: %w", err)
		}
		events = append(events, evt)
	}
	return events, rows.Err()
}

// ------------------ Salud ------------------

func (r *EventRepoSQLite) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *EventRepoSQLite) Close() error {
	return r.db.Close()
}

// ------------------ Inicialización ------------------

func InitSQLite(db *sql.DB) error {
	_, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS events (
		position    INTEGER PRIMARY KEY AUTOINCREMENT,
		event_id    TEXT NOT NULL,
		stream_name TEXT NOT NULL,
		revision    INTEGER NOT NULL,
		event_type  TEXT NOT NULL,
		data        TEXT NOT NULL,
		metadata    TEXT NOT NULL,
		recorded_at TIMESTAMP NOT NULL,
		UNIQUE (stream_name, revision)
	)`)
	return err
}

// Verificación estática
var _ domain.DurableBackend = (*EventRepoSQLite)(nil)
