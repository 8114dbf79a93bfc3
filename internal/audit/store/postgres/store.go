package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"pressroom/internal/audit"
	"pressroom/internal/moderation/models"
)

// Store persists audit records in PostgreSQL. The table carries no UPDATE or
// DELETE path anywhere in this codebase; immutability is a code-level
// contract backed by append-only access here.
type Store struct {
	db *sql.DB
}

// New creates a new PostgreSQL audit store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// EnsureSchema creates the audit_records table when absent.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS audit_records (
			id          TEXT PRIMARY KEY,
			action      TEXT NOT NULL,
			actor_id    TEXT,
			target_kind TEXT NOT NULL,
			target_id   TEXT NOT NULL,
			prev        JSONB NOT NULL,
			next        JSONB NOT NULL,
			meta        JSONB,
			created_at  TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_audit_records_target
			ON audit_records (target_id, created_at);
	`)
	if err != nil {
		return fmt.Errorf("ensure audit_records schema: %w", err)
	}
	return nil
}

func (s *Store) Append(ctx context.Context, record audit.Record) error {
	prev, err := json.Marshal(record.Prev)
	if err != nil {
		return fmt.Errorf("marshal prev snapshot: %w", err)
	}
	next, err := json.Marshal(record.Next)
	if err != nil {
		return fmt.Errorf("marshal next snapshot: %w", err)
	}
	var meta []byte
	if record.Meta != nil {
		if meta, err = json.Marshal(record.Meta); err != nil {
			return fmt.Errorf("marshal meta: %w", err)
		}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO audit_records (
			id, action, actor_id, target_kind, target_id, prev, next, meta, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		record.ID,
		string(record.Action),
		record.ActorID,
		record.TargetKind,
		record.TargetID,
		prev,
		next,
		meta,
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit record: %w", err)
	}
	return nil
}

func (s *Store) ListByTarget(ctx context.Context, targetID string) ([]audit.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, action, actor_id, target_kind, target_id, prev, next, meta, created_at
		FROM audit_records
		WHERE target_id = $1
		ORDER BY created_at ASC
	`, targetID)
	if err != nil {
		return nil, fmt.Errorf("query audit records: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, action, actor_id, target_kind, target_id, prev, next, meta, created_at
		FROM audit_records
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit records: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

func scanRecords(rows *sql.Rows) ([]audit.Record, error) {
	var records []audit.Record
	for rows.Next() {
		var (
			rec    audit.Record
			action string
			prev   []byte
			next   []byte
			meta   []byte
		)
		err := rows.Scan(
			&rec.ID,
			&action,
			&rec.ActorID,
			&rec.TargetKind,
			&rec.TargetID,
			&prev,
			&next,
			&meta,
			&rec.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit record: %w", err)
		}
		rec.Action = models.Action(action)
		if err := json.Unmarshal(prev, &rec.Prev); err != nil {
			return nil, fmt.Errorf("unmarshal prev snapshot: %w", err)
		}
		if err := json.Unmarshal(next, &rec.Next); err != nil {
			return nil, fmt.Errorf("unmarshal next snapshot: %w", err)
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &rec.Meta); err != nil {
				return nil, fmt.Errorf("unmarshal meta: %w", err)
			}
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit records: %w", err)
	}
	return records, nil
}
