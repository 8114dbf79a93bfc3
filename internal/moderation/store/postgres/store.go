package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"pressroom/internal/moderation/models"
	"pressroom/internal/moderation/store"
	"pressroom/pkg/sentinel"
)

// Store persists moderation events in PostgreSQL.
type Store struct {
	db *sql.DB
}

// New creates a new PostgreSQL moderation event store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// EnsureSchema creates the moderation_events table when absent. Kept simple
// until the deployment grows a real migration pipeline.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS moderation_events (
			id            TEXT PRIMARY KEY,
			type          TEXT NOT NULL,
			status        TEXT NOT NULL,
			assigned_to   TEXT,
			author_id     TEXT,
			second_review BOOLEAN NOT NULL DEFAULT FALSE,
			visibility    TEXT NOT NULL,
			title         TEXT NOT NULL DEFAULT '',
			created_at    TIMESTAMPTZ NOT NULL,
			updated_at    TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_moderation_events_assigned
			ON moderation_events (assigned_to, status);
	`)
	if err != nil {
		return fmt.Errorf("ensure moderation_events schema: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (*models.ModerationEvent, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, type, status, assigned_to, author_id, second_review,
		       visibility, title, created_at, updated_at
		FROM moderation_events
		WHERE id = $1
	`, id)

	ev, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get moderation event: %w", err)
	}
	return ev, nil
}

func (s *Store) Save(ctx context.Context, ev *models.ModerationEvent) error {
	now := time.Now()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO moderation_events (
			id, type, status, assigned_to, author_id, second_review,
			visibility, title, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			status        = EXCLUDED.status,
			assigned_to   = EXCLUDED.assigned_to,
			second_review = EXCLUDED.second_review,
			updated_at    = EXCLUDED.updated_at
	`,
		ev.ID,
		ev.Type,
		string(ev.Status),
		ev.AssignedTo,
		ev.AuthorID,
		ev.SecondReview,
		ev.Visibility,
		ev.Title,
		ev.CreatedAt,
		now,
	)
	if err != nil {
		return fmt.Errorf("save moderation event: %w", err)
	}
	ev.UpdatedAt = now
	return nil
}

func (s *Store) List(ctx context.Context, filter store.ListFilter) ([]*models.ModerationEvent, error) {
	query := `
		SELECT id, type, status, assigned_to, author_id, second_review,
		       visibility, title, created_at, updated_at
		FROM moderation_events
		WHERE ($1::text IS NULL OR status = $1)
		  AND ($2::text IS NULL OR assigned_to = $2)
		ORDER BY updated_at DESC
	`
	args := []any{nullableStatus(filter.Status), filter.AssignedTo}
	if filter.Limit > 0 {
		query += " LIMIT $3"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list moderation events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

func (s *Store) ListUpdatedSince(ctx context.Context, assignee string, since time.Time) ([]*models.ModerationEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, type, status, assigned_to, author_id, second_review,
		       visibility, title, created_at, updated_at
		FROM moderation_events
		WHERE assigned_to = $1 AND updated_at > $2
		ORDER BY updated_at DESC
	`, assignee, since)
	if err != nil {
		return nil, fmt.Errorf("list updated moderation events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

func (s *Store) CountAssignedActive(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM moderation_events
		WHERE assigned_to = $1 AND status IN ('open', 'in_review', 'flagged')
	`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count assigned active events: %w", err)
	}
	return count, nil
}

func nullableStatus(s *models.Status) *string {
	if s == nil {
		return nil
	}
	v := string(*s)
	return &v
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*models.ModerationEvent, error) {
	var (
		ev     models.ModerationEvent
		status string
	)
	err := row.Scan(
		&ev.ID,
		&ev.Type,
		&status,
		&ev.AssignedTo,
		&ev.AuthorID,
		&ev.SecondReview,
		&ev.Visibility,
		&ev.Title,
		&ev.CreatedAt,
		&ev.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	ev.Status = models.Status(status)
	return &ev, nil
}

func scanEvents(rows *sql.Rows) ([]*models.ModerationEvent, error) {
	var events []*models.ModerationEvent
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan moderation event: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate moderation events: %w", err)
	}
	return events, nil
}
