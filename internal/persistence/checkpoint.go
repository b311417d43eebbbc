package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/aristath/tower/internal/transition"
)

// ReadCheckpoint returns the stored resume point.
// A fresh profile has none and resumes at the home floor.
func (s *SQLiteStore) ReadCheckpoint(ctx context.Context) (transition.Checkpoint, error) {
	var cp transition.Checkpoint
	err := s.db.QueryRowContext(ctx, `
		SELECT floor_id, up_symbol, max_floor_id
		FROM checkpoint
		WHERE id = 1
	`).Scan(&cp.FloorID, &cp.UpSymbol, &cp.MaxFloorID)

	if errors.Is(err, sql.ErrNoRows) {
		return transition.Checkpoint{}, nil
	}
	if err != nil {
		return transition.Checkpoint{}, fmt.Errorf("failed to query checkpoint: %w", err)
	}
	return cp, nil
}

// WriteCheckpoint replaces the stored resume point.
func (s *SQLiteStore) WriteCheckpoint(ctx context.Context, cp transition.Checkpoint) error {
	err := withBusyRetry(ctx, s.retry, func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO checkpoint (id, floor_id, up_symbol, max_floor_id, updated_at)
			VALUES (1, ?, ?, ?, CURRENT_TIMESTAMP)
			ON CONFLICT(id) DO UPDATE SET
				floor_id = excluded.floor_id,
				up_symbol = excluded.up_symbol,
				max_floor_id = excluded.max_floor_id,
				updated_at = CURRENT_TIMESTAMP
		`, cp.FloorID, cp.UpSymbol, cp.MaxFloorID)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	return nil
}
