package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/lakron/internal/schedule/domain"
	"github.com/felixgeelhaar/lakron/internal/shared/infrastructure/database"
)

const taskColumns = `id, profile_id, title, description, date, time, type, priority,
	recurring, recurrence_rule, completed_dates, completed, created_at`

// SQLiteTaskRepository implements domain.Repository on the local store.
// Completion dates are kept as a JSON array and timestamps as RFC 3339 text.
type SQLiteTaskRepository struct {
	conn database.Connection
	now  func() time.Time
}

// NewSQLiteTaskRepository creates a repository on conn.
func NewSQLiteTaskRepository(conn database.Connection) *SQLiteTaskRepository {
	return &SQLiteTaskRepository{conn: conn, now: time.Now}
}

func (r *SQLiteTaskRepository) exec(ctx context.Context) database.Executor {
	return database.ExecutorFromContext(ctx, r.conn)
}

// ListByProfile returns the profile's tasks ordered by date then time.
func (r *SQLiteTaskRepository) ListByProfile(ctx context.Context, profileID uuid.UUID) ([]domain.Task, error) {
	rows, err := r.exec(ctx).Query(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE profile_id = ? ORDER BY date, time, created_at`,
		profileID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := []domain.Task{}
	for rows.Next() {
		task, err := scanSQLiteTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// FindByID returns domain.ErrNotFound for an unknown id.
func (r *SQLiteTaskRepository) FindByID(ctx context.Context, id uuid.UUID) (domain.Task, error) {
	row := r.exec(ctx).QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id.String())
	task, err := scanSQLiteTask(row)
	if database.IsNoRows(err) {
		return domain.Task{}, domain.ErrNotFound
	}
	return task, err
}

// Create stores a new task with a fresh id and creation time.
func (r *SQLiteTaskRepository) Create(ctx context.Context, task domain.Task) (domain.Task, error) {
	task.ID = uuid.New()
	task.CreatedAt = r.now().UTC()
	if task.Recurring && task.CompletedDates == nil {
		task.CompletedDates = []string{}
	}

	dates, err := encodeDates(task.CompletedDates)
	if err != nil {
		return domain.Task{}, err
	}

	_, err = r.exec(ctx).Exec(ctx,
		`INSERT INTO tasks (`+taskColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		task.ID.String(),
		task.ProfileID.String(),
		task.Title,
		task.Description,
		task.Date,
		task.Time,
		string(task.Kind),
		int(task.Priority),
		task.Recurring,
		string(task.RecurrenceRule),
		dates,
		task.Completed,
		task.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return domain.Task{}, fmt.Errorf("insert task: %w", err)
	}
	return task, nil
}

// Update applies patch and returns the stored record.
func (r *SQLiteTaskRepository) Update(ctx context.Context, id uuid.UUID, patch domain.Patch) (domain.Task, error) {
	if patch.IsEmpty() {
		return r.FindByID(ctx, id)
	}

	var sets []string
	var args []any
	if patch.Completed != nil {
		sets = append(sets, "completed = ?")
		args = append(args, *patch.Completed)
	}
	if patch.CompletedDates != nil {
		dates, err := encodeDates(patch.CompletedDates)
		if err != nil {
			return domain.Task{}, err
		}
		sets = append(sets, "completed_dates = ?")
		args = append(args, dates)
	}
	args = append(args, id.String())

	row := r.exec(ctx).QueryRow(ctx,
		`UPDATE tasks SET `+strings.Join(sets, ", ")+` WHERE id = ? RETURNING `+taskColumns,
		args...)
	task, err := scanSQLiteTask(row)
	if database.IsNoRows(err) {
		return domain.Task{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Task{}, fmt.Errorf("update task: %w", err)
	}
	return task, nil
}

// Delete removes a task. Unknown ids yield domain.ErrNotFound.
func (r *SQLiteTaskRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.exec(ctx).Exec(ctx, `DELETE FROM tasks WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanSQLiteTask(row database.Row) (domain.Task, error) {
	var (
		task             domain.Task
		id, profileID    string
		kind, rule       string
		dates, createdAt string
		priority         int
	)
	err := row.Scan(
		&id,
		&profileID,
		&task.Title,
		&task.Description,
		&task.Date,
		&task.Time,
		&kind,
		&priority,
		&task.Recurring,
		&rule,
		&dates,
		&task.Completed,
		&createdAt,
	)
	if err != nil {
		return domain.Task{}, err
	}

	if task.ID, err = uuid.Parse(id); err != nil {
		return domain.Task{}, fmt.Errorf("task id: %w", err)
	}
	if task.ProfileID, err = uuid.Parse(profileID); err != nil {
		return domain.Task{}, fmt.Errorf("task profile id: %w", err)
	}
	task.Kind = domain.Kind(kind)
	task.Priority = domain.Priority(priority)
	task.RecurrenceRule = domain.RecurrenceRule(rule)
	if err := json.Unmarshal([]byte(dates), &task.CompletedDates); err != nil {
		return domain.Task{}, fmt.Errorf("task completed dates: %w", err)
	}
	if !task.Recurring && len(task.CompletedDates) == 0 {
		task.CompletedDates = nil
	}
	if task.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return domain.Task{}, fmt.Errorf("task created_at: %w", err)
	}
	return task, nil
}

func encodeDates(dates []string) (string, error) {
	if dates == nil {
		dates = []string{}
	}
	b, err := json.Marshal(dates)
	if err != nil {
		return "", fmt.Errorf("encode completed dates: %w", err)
	}
	return string(b), nil
}
