package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS traces (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	session_id    TEXT NOT NULL,
	project       TEXT NOT NULL,
	message_index INTEGER NOT NULL,
	input         JSONB,
	output        JSONB,
	timestamp     TEXT NOT NULL,
	received_at   TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS traces_session_id_idx ON traces (session_id);`

// Postgres stores traces in a single traces table.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects, pings, and creates the traces table if needed.
func NewPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Close() {
	p.pool.Close()
}

// Upsert inserts the record or replaces the one with the same trace id.
func (p *Postgres) Upsert(ctx context.Context, r Record) error {
	t := r.Trace
	_, err := p.pool.Exec(ctx, `
		INSERT INTO traces (id, name, session_id, project, message_index, input, output, timestamp, received_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			session_id = EXCLUDED.session_id,
			project = EXCLUDED.project,
			message_index = EXCLUDED.message_index,
			input = EXCLUDED.input,
			output = EXCLUDED.output,
			timestamp = EXCLUDED.timestamp,
			received_at = EXCLUDED.received_at`,
		t.ID, t.Name, t.SessionID, t.Metadata.Project, t.Metadata.MessageIndex,
		nullableJSON(t.Input), nullableJSON(t.Output), t.Timestamp, r.ReceivedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert trace %s: %w", t.ID, err)
	}
	return nil
}

func (p *Postgres) Get(ctx context.Context, id string) (Record, error) {
	row := p.pool.QueryRow(ctx, `
		SELECT id, name, session_id, project, message_index, input, output, timestamp, received_at
		FROM traces WHERE id = $1`, id)
	r, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("get trace %s: %w", id, err)
	}
	return r, nil
}

// ListBySession returns a session's traces ordered by message index.
func (p *Postgres) ListBySession(ctx context.Context, sessionID string) ([]Record, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, name, session_id, project, message_index, input, output, timestamp, received_at
		FROM traces WHERE session_id = $1
		ORDER BY message_index, received_at`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list traces: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trace: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanRecord(row pgx.Row) (Record, error) {
	var (
		r             Record
		input, output []byte
	)
	err := row.Scan(
		&r.Trace.ID, &r.Trace.Name, &r.Trace.SessionID,
		&r.Trace.Metadata.Project, &r.Trace.Metadata.MessageIndex,
		&input, &output, &r.Trace.Timestamp, &r.ReceivedAt,
	)
	if err != nil {
		return Record{}, err
	}
	r.Trace.Input = json.RawMessage(input)
	r.Trace.Output = json.RawMessage(output)
	return r, nil
}

// nullableJSON maps an absent value to SQL NULL instead of an empty document.
func nullableJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
