package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/aristath/tower/internal/quest"
)

// SaveTasks replaces all stored task states with records.
// Record order is kept so a restored tracker resolves shared items the same way.
func (s *SQLiteStore) SaveTasks(ctx context.Context, records []quest.Record) error {
	return withBusyRetry(ctx, s.retry, func() error {
		return s.saveTasks(ctx, records)
	})
}

func (s *SQLiteStore) saveTasks(ctx context.Context, records []quest.Record) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM task_states`); err != nil {
		return fmt.Errorf("failed to clear task states: %w", err)
	}

	for i, r := range records {
		var item sql.NullInt64
		if r.HasRequiredItem {
			item = sql.NullInt64{Int64: int64(r.RequiredItem), Valid: true}
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO task_states (task_id, state, required_item, seq, updated_at)
			VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		`, int64(r.TaskID), int64(r.State), item, i)
		if err != nil {
			return fmt.Errorf("failed to insert task %d: %w", r.TaskID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// LoadTasks returns stored task states in the order they were saved.
func (s *SQLiteStore) LoadTasks(ctx context.Context) ([]quest.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT task_id, state, required_item
		FROM task_states
		ORDER BY seq
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query task states: %w", err)
	}
	defer rows.Close()

	records := []quest.Record{}
	for rows.Next() {
		var taskID, state int64
		var item sql.NullInt64
		if err := rows.Scan(&taskID, &state, &item); err != nil {
			return nil, fmt.Errorf("failed to scan task state: %w", err)
		}

		r := quest.Record{TaskID: quest.TaskID(taskID), State: quest.State(state)}
		if item.Valid {
			r.RequiredItem = quest.ItemID(item.Int64)
			r.HasRequiredItem = true
		}
		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating task states: %w", err)
	}
	return records, nil
}
