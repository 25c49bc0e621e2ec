// internal/store/taskstore.go
package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"

	apperrors "taskhub-notifier/internal/common/errors"
	"taskhub-notifier/internal/models"
)

// TaskStore reads reminder candidates from the task tables. The reminder
// engine never writes tasks; ownership lives with the task service.
type TaskStore struct {
	db *sql.DB
}

func NewTaskStore(db *sql.DB) *TaskStore {
	return &TaskStore{db: db}
}

const taskSelect = `
	SELECT t.id, t.title, t.owner_id, t.start_at, t.due_at, t.completed,
	       COALESCE(array_agg(a.user_id) FILTER (WHERE a.user_id IS NOT NULL), '{}')
	FROM tasks t
	LEFT JOIN task_assignees a ON a.task_id = t.id`

// FindDueInRange returns incomplete tasks with due_at in [start, end),
// ordered by due date for readable logs.
func (s *TaskStore) FindDueInRange(ctx context.Context, start, end time.Time) ([]models.Task, error) {
	rows, err := s.db.QueryContext(ctx, taskSelect+`
	WHERE t.due_at >= $1 AND t.due_at < $2 AND t.completed = false
	GROUP BY t.id
	ORDER BY t.due_at`, start, end)
	if err != nil {
		return nil, apperrors.NewDataFetchError("tasks due in range", err)
	}
	defer rows.Close()

	return scanTasks(rows)
}

// FindOverdue returns incomplete tasks whose due date has passed.
func (s *TaskStore) FindOverdue(ctx context.Context, now time.Time) ([]models.Task, error) {
	rows, err := s.db.QueryContext(ctx, taskSelect+`
	WHERE t.due_at < $1 AND t.completed = false
	GROUP BY t.id
	ORDER BY t.due_at`, now)
	if err != nil {
		return nil, apperrors.NewDataFetchError("overdue tasks", err)
	}
	defer rows.Close()

	return scanTasks(rows)
}

// FindByOwnerOrAssignee returns every task the user owns or is assigned to.
func (s *TaskStore) FindByOwnerOrAssignee(ctx context.Context, userID string) ([]models.Task, error) {
	rows, err := s.db.QueryContext(ctx, taskSelect+`
	WHERE t.owner_id = $1
	   OR t.id IN (SELECT task_id FROM task_assignees WHERE user_id = $1)
	GROUP BY t.id
	ORDER BY t.due_at`, userID)
	if err != nil {
		return nil, apperrors.NewDataFetchError("tasks by owner or assignee", err)
	}
	defer rows.Close()

	return scanTasks(rows)
}

func scanTasks(rows *sql.Rows) ([]models.Task, error) {
	var tasks []models.Task
	for rows.Next() {
		var task models.Task
		var assignees pq.StringArray
		if err := rows.Scan(&task.ID, &task.Title, &task.OwnerID,
			&task.StartAt, &task.DueAt, &task.Completed, &assignees); err != nil {
			return nil, apperrors.NewDataFetchError("scan task row", err)
		}
		task.AssigneeIDs = assignees
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewDataFetchError("iterate task rows", err)
	}
	return tasks, nil
}
