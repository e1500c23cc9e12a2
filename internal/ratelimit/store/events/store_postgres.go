package events

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"confide/internal/ratelimit/models"
)

// PostgresStore keeps the event log in the action_events table.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed event log.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// CountSince runs a COUNT(*) over the (source_address, action_class, occurred_at) index.
func (s *PostgresStore) CountSince(ctx context.Context, address string, class models.ClassName, since time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM action_events
		WHERE source_address = $1 AND action_class = $2 AND occurred_at >= $3
	`, address, string(class), since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count action events: %w", err)
	}
	return count, nil
}

// Record inserts one event; occurred_at comes from the column default.
func (s *PostgresStore) Record(ctx context.Context, address string, class models.ClassName) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO action_events (source_address, action_class)
		VALUES ($1, $2)
	`, address, string(class))
	if err != nil {
		return fmt.Errorf("insert action event: %w", err)
	}
	return nil
}

// PruneBefore deletes events older than cutoff.
func (s *PostgresStore) PruneBefore(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM action_events WHERE occurred_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune action events: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune action events rows affected: %w", err)
	}
	return int(n), nil
}
