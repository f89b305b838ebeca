package sqlite

import (
	"context"
	"fmt"
	"time"

	"socialharvest/pkg/task"
)

const taskColumns = `id, influencer_id, platform, type, target_id, status, priority, worker_id,
	started_at, completed_at, duration_ms, items_collected, items_failed, error_message,
	retry_count, max_retries, next_retry_at, created_at, updated_at`

// SaveTask inserts a newly created task.
func (s *Store) SaveTask(ctx context.Context, t *task.Task) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.InfluencerID, t.Platform, string(t.Type), t.TargetID, string(t.Status), int(t.Priority),
		t.WorkerID, timeToMs(t.StartedAt), timeToMs(t.CompletedAt), t.Duration.Milliseconds(),
		t.ItemsCollected, t.ItemsFailed, t.ErrorMessage,
		t.RetryCount, t.MaxRetries, timeToMs(t.NextRetryAt), timeToMs(t.CreatedAt), timeToMs(t.UpdatedAt))
	if err != nil {
		return fmt.Errorf("save task %s: %w", t.ID, err)
	}
	return nil
}

// UpdateTask persists a task's current state over its saved row.
func (s *Store) UpdateTask(ctx context.Context, t *task.Task) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE tasks SET
			status = ?, priority = ?, worker_id = ?,
			started_at = ?, completed_at = ?, duration_ms = ?,
			items_collected = ?, items_failed = ?, error_message = ?,
			retry_count = ?, next_retry_at = ?, updated_at = ?
		WHERE id = ?
	`, string(t.Status), int(t.Priority), t.WorkerID,
		timeToMs(t.StartedAt), timeToMs(t.CompletedAt), t.Duration.Milliseconds(),
		t.ItemsCollected, t.ItemsFailed, t.ErrorMessage,
		t.RetryCount, timeToMs(t.NextRetryAt), timeToMs(t.UpdatedAt), t.ID)
	if err != nil {
		return fmt.Errorf("update task %s: %w", t.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update task %s: %w", t.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("update task %s: not found", t.ID)
	}
	return nil
}

func scanTask(scan func(dest ...interface{}) error) (*task.Task, error) {
	var row struct {
		id             string
		influencerID   string
		platformName   string
		taskType       string
		targetID       string
		status         string
		priority       int
		workerID       string
		startedAt      int64
		completedAt    int64
		durationMs     int64
		itemsCollected int
		itemsFailed    int
		errorMessage   string
		retryCount     int
		maxRetries     int
		nextRetryAt    int64
		createdAt      int64
		updatedAt      int64
	}
	if err := scan(&row.id, &row.influencerID, &row.platformName, &row.taskType, &row.targetID,
		&row.status, &row.priority, &row.workerID, &row.startedAt, &row.completedAt, &row.durationMs,
		&row.itemsCollected, &row.itemsFailed, &row.errorMessage,
		&row.retryCount, &row.maxRetries, &row.nextRetryAt, &row.createdAt, &row.updatedAt); err != nil {
		return nil, err
	}
	return &task.Task{
		ID:             row.id,
		InfluencerID:   row.influencerID,
		Platform:       row.platformName,
		Type:           task.Type(row.taskType),
		TargetID:       row.targetID,
		Status:         task.Status(row.status),
		Priority:       task.Priority(row.priority),
		WorkerID:       row.workerID,
		StartedAt:      msToTime(row.startedAt),
		CompletedAt:    msToTime(row.completedAt),
		Duration:       time.Duration(row.durationMs) * time.Millisecond,
		ItemsCollected: row.itemsCollected,
		ItemsFailed:    row.itemsFailed,
		ErrorMessage:   row.errorMessage,
		RetryCount:     row.retryCount,
		MaxRetries:     row.maxRetries,
		NextRetryAt:    msToTime(row.nextRetryAt),
		CreatedAt:      msToTime(row.createdAt),
		UpdatedAt:      msToTime(row.updatedAt),
	}, nil
}

// Task loads one task by ID.
func (s *Store) Task(ctx context.Context, taskID string) (*task.Task, error) {
	t, err := scanTask(s.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = ?`, taskID).Scan)
	if err != nil {
		return nil, fmt.Errorf("task %s: %w", taskID, err)
	}
	return t, nil
}

// DueTasks returns runnable tasks: pending ones plus retry tasks whose
// schedule has come due, highest priority first and oldest first within
// a priority.
func (s *Store) DueTasks(ctx context.Context, limit int) ([]*task.Task, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+taskColumns+` FROM tasks
		WHERE status = ? OR (status = ? AND next_retry_at > 0 AND next_retry_at <= ?)
		ORDER BY priority DESC, created_at ASC
		LIMIT ?
	`, string(task.StatusPending), string(task.StatusRetry), time.Now().UTC().UnixMilli(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*task.Task
	for rows.Next() {
		t, err := scanTask(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ListTasks returns tasks, optionally filtered by status, newest first.
// A limit of zero or less means no limit.
func (s *Store) ListTasks(ctx context.Context, status task.Status, limit int) ([]*task.Task, error) {
	if limit <= 0 {
		limit = -1
	}
	query := `SELECT ` + taskColumns + ` FROM tasks`
	args := []interface{}{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*task.Task
	for rows.Next() {
		t, err := scanTask(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// TaskCounts tallies tasks by status.
func (s *Store) TaskCounts(ctx context.Context) (map[task.Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM tasks GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[task.Status]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		out[task.Status(status)] = n
	}
	return out, rows.Err()
}
