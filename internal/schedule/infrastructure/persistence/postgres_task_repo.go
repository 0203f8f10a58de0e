package persistence

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/lakron/internal/schedule/domain"
	"github.com/felixgeelhaar/lakron/internal/shared/infrastructure/database"
)

const pgTaskColumns = `id::text, profile_id::text, title, description, date, time, type, priority,
	recurring, recurrence_rule, completed_dates, completed, created_at`

// PostgresTaskRepository implements domain.Repository on the hosted store.
// Writes fire the tasks_notify trigger that feeds LISTEN subscribers.
type PostgresTaskRepository struct {
	conn database.Connection
	now  func() time.Time
}

// NewPostgresTaskRepository creates a repository on conn.
func NewPostgresTaskRepository(conn database.Connection) *PostgresTaskRepository {
	return &PostgresTaskRepository{conn: conn, now: time.Now}
}

func (r *PostgresTaskRepository) exec(ctx context.Context) database.Executor {
	return database.ExecutorFromContext(ctx, r.conn)
}

// ListByProfile returns the profile's tasks ordered by date then time.
func (r *PostgresTaskRepository) ListByProfile(ctx context.Context, profileID uuid.UUID) ([]domain.Task, error) {
	rows, err := r.exec(ctx).Query(ctx,
		`SELECT `+pgTaskColumns+` FROM tasks WHERE profile_id = $1 ORDER BY date, time, created_at`,
		profileID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := []domain.Task{}
	for rows.Next() {
		task, err := scanPostgresTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// FindByID returns domain.ErrNotFound for an unknown id.
func (r *PostgresTaskRepository) FindByID(ctx context.Context, id uuid.UUID) (domain.Task, error) {
	row := r.exec(ctx).QueryRow(ctx, `SELECT `+pgTaskColumns+` FROM tasks WHERE id = $1`, id.String())
	task, err := scanPostgresTask(row)
	if database.IsNoRows(err) {
		return domain.Task{}, domain.ErrNotFound
	}
	return task, err
}

// Create stores a new task with a fresh id and creation time.
func (r *PostgresTaskRepository) Create(ctx context.Context, task domain.Task) (domain.Task, error) {
	task.ID = uuid.New()
	task.CreatedAt = r.now().UTC()
	if task.CompletedDates == nil {
		task.CompletedDates = []string{}
	}

	_, err := r.exec(ctx).Exec(ctx,
		`INSERT INTO tasks (id, profile_id, title, description, date, time, type, priority,
			recurring, recurrence_rule, completed_dates, completed, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
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
		task.CompletedDates,
		task.Completed,
		task.CreatedAt,
	)
	if err != nil {
		return domain.Task{}, fmt.Errorf("insert task: %w", err)
	}
	if !task.Recurring {
		task.CompletedDates = nil
	}
	return task, nil
}

// Update applies patch and returns the stored record.
func (r *PostgresTaskRepository) Update(ctx context.Context, id uuid.UUID, patch domain.Patch) (domain.Task, error) {
	if patch.IsEmpty() {
		return r.FindByID(ctx, id)
	}

	var sets []string
	var args []any
	if patch.Completed != nil {
		args = append(args, *patch.Completed)
		sets = append(sets, "completed = $"+strconv.Itoa(len(args)))
	}
	if patch.CompletedDates != nil {
		args = append(args, patch.CompletedDates)
		sets = append(sets, "completed_dates = $"+strconv.Itoa(len(args)))
	}
	args = append(args, id.String())

	row := r.exec(ctx).QueryRow(ctx,
		`UPDATE tasks SET `+strings.Join(sets, ", ")+
			` WHERE id = $`+strconv.Itoa(len(args))+` RETURNING `+pgTaskColumns,
		args...)
	task, err := scanPostgresTask(row)
	if database.IsNoRows(err) {
		return domain.Task{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Task{}, fmt.Errorf("update task: %w", err)
	}
	return task, nil
}

// Delete removes a task. Unknown ids yield domain.ErrNotFound.
func (r *PostgresTaskRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.exec(ctx).Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id.String())
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanPostgresTask(row database.Row) (domain.Task, error) {
	var (
		task          domain.Task
		id, profileID string
		kind, rule    string
		priority      int
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
		&task.CompletedDates,
		&task.Completed,
		&task.CreatedAt,
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
	if !task.Recurring && len(task.CompletedDates) == 0 {
		task.CompletedDates = nil
	}
	return task, nil
}
