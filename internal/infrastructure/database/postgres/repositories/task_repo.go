package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/turtacn/taskboard/internal/domain/recurrence"
	"github.com/turtacn/taskboard/internal/domain/task"
	"github.com/turtacn/taskboard/internal/infrastructure/database/postgres"
	"github.com/turtacn/taskboard/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/taskboard/pkg/errors"
)

// PostgreSQL error codes the repository maps onto application errors.
const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
	pqInvalidText         = "22P02"
)

const taskColumns = `id, board_id, column_id, title, description, priority, tags, position,
	due_date, is_completed, archived_at, recurrence_rule, recurrence_end_date,
	recurrence_count, recurrence_completed_count, original_task_id,
	is_recurrence_instance, created_at, updated_at`

type postgresTaskRepo struct {
	conn     *postgres.Connection
	log      logging.Logger
	executor queryExecutor
	inTx     bool
}

// NewPostgresTaskRepo returns a task.Repository backed by conn.
func NewPostgresTaskRepo(conn *postgres.Connection, log logging.Logger) task.Repository {
	return &postgresTaskRepo{
		conn:     conn,
		log:      log,
		executor: conn.DB(),
	}
}

// WithTx implementation.  Nested calls join the running transaction.
func (r *postgresTaskRepo) WithTx(ctx context.Context, fn func(task.Repository) error) error {
	if r.inTx {
		return fn(r)
	}

	tx, err := r.conn.DB().BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to begin transaction")
	}

	txRepo := &postgresTaskRepo{
		conn:     r.conn,
		log:      r.log,
		executor: tx,
		inTx:     true,
	}

	if err := fn(txRepo); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			r.log.Warn("rollback failed", logging.Err(rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to commit transaction")
	}
	return nil
}

// GetByID loads the task and its subtasks.
func (r *postgresTaskRepo) GetByID(ctx context.Context, id string) (*task.Task, error) {
	row := r.executor.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id)
	t, err := scanTask(row)
	if err != nil {
		return nil, mapError(err, id, "failed to get task")
	}
	if t.Subtasks, err = r.subtasks(ctx, t.ID); err != nil {
		return nil, err
	}
	return t, nil
}

func (r *postgresTaskRepo) subtasks(ctx context.Context, taskID string) ([]task.Subtask, error) {
	rows, err := r.executor.QueryContext(ctx,
		`SELECT id, task_id, title, is_completed, position FROM subtasks WHERE task_id = $1 ORDER BY position, id`, taskID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list subtasks")
	}
	defer rows.Close()

	var out []task.Subtask
	for rows.Next() {
		var s task.Subtask
		if err := rows.Scan(&s.ID, &s.TaskID, &s.Title, &s.Completed, &s.Position); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan subtask")
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate subtasks")
	}
	return out, nil
}

// Create inserts t and copies of its subtasks.
func (r *postgresTaskRepo) Create(ctx context.Context, t *task.Task) (*task.Task, error) {
	c := t.Clone()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Priority == "" {
		c.Priority = task.PriorityMedium
	}

	if c.Position < 0 {
		err := r.executor.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(position), -1) + 1 FROM tasks WHERE column_id = $1`, c.ColumnID).Scan(&c.Position)
		if err != nil {
			return nil, mapError(err, c.ID, "failed to compute task position")
		}
	}

	rule, err := ruleArg(c.RecurrenceRule)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO tasks (
			id, board_id, column_id, title, description, priority, tags, position,
			due_date, is_completed, archived_at, recurrence_rule, recurrence_end_date,
			recurrence_count, recurrence_completed_count, original_task_id, is_recurrence_instance
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING created_at, updated_at`
	err = r.executor.QueryRowContext(ctx, query,
		c.ID, c.BoardID, c.ColumnID, c.Title, c.Description, string(c.Priority), pq.Array(nonNil(c.Tags)), c.Position,
		dateArg(c.DueDate), c.Completed, c.ArchivedAt, rule, dateArg(c.RecurrenceEndDate),
		intArg(c.RecurrenceCount), c.RecurrenceCompletedCount, stringArg(c.OriginalTaskID), c.IsRecurrenceInstance,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, mapError(err, c.ID, "failed to create task")
	}

	for i := range c.Subtasks {
		s := &c.Subtasks[i]
		s.ID = uuid.NewString()
		s.TaskID = c.ID
		_, err := r.executor.ExecContext(ctx,
			`INSERT INTO subtasks (id, task_id, title, is_completed, position) VALUES ($1, $2, $3, $4, $5)`,
			s.ID, s.TaskID, s.Title, s.Completed, s.Position)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to create subtask")
		}
	}

	r.log.Debug("task created",
		logging.String(logging.FieldTaskID, c.ID),
		logging.Int("subtasks", len(c.Subtasks)))
	return c, nil
}

// Update applies the non-nil fields of p and returns the stored row.
func (r *postgresTaskRepo) Update(ctx context.Context, id string, p task.Patch) (*task.Task, error) {
	var (
		sets []string
		args []interface{}
	)
	set := func(col string, v interface{}) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if p.DueDate != nil {
		set("due_date", p.DueDate.String())
	}
	if p.RecurrenceCompletedCount != nil {
		set("recurrence_completed_count", *p.RecurrenceCompletedCount)
	}
	if p.ClearRecurrence {
		sets = append(sets, "recurrence_rule = NULL", "recurrence_end_date = NULL", "recurrence_count = NULL")
	}
	if p.ColumnID != nil {
		set("column_id", *p.ColumnID)
	}
	if p.Completed != nil {
		set("is_completed", *p.Completed)
	}
	if p.Archived != nil {
		if *p.Archived {
			sets = append(sets, "archived_at = now()")
		} else {
			sets = append(sets, "archived_at = NULL")
		}
	}
	sets = append(sets, "updated_at = now()")

	args = append(args, id)
	query := fmt.Sprintf(`UPDATE tasks SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), taskColumns)

	t, err := scanTask(r.executor.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, mapError(err, id, "failed to update task")
	}
	if t.Subtasks, err = r.subtasks(ctx, t.ID); err != nil {
		return nil, err
	}
	return t, nil
}

// Delete removes the task; subtasks go with it by cascade.
func (r *postgresTaskRepo) Delete(ctx context.Context, id string) error {
	res, err := r.executor.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return mapError(err, id, "failed to delete task")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to delete task")
	}
	if n == 0 {
		return taskNotFound(id)
	}
	return nil
}

// ColumnExists reports whether columnID belongs to boardID.
func (r *postgresTaskRepo) ColumnExists(ctx context.Context, boardID, columnID string) (bool, error) {
	var exists bool
	err := r.executor.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM columns WHERE id = $1 AND board_id = $2)`, columnID, boardID).Scan(&exists)
	if err != nil {
		if isPQCode(err, pqInvalidText) {
			return false, nil
		}
		return false, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to look up column")
	}
	return exists, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Scanning & arguments
// ─────────────────────────────────────────────────────────────────────────────

func scanTask(row scanner) (*task.Task, error) {
	var (
		t          task.Task
		priority   string
		tags       []string
		due, until sql.NullTime
		archivedAt sql.NullTime
		ruleJSON   []byte
		count      sql.NullInt64
		original   sql.NullString
	)
	err := row.Scan(
		&t.ID, &t.BoardID, &t.ColumnID, &t.Title, &t.Description, &priority, pq.Array(&tags), &t.Position,
		&due, &t.Completed, &archivedAt, &ruleJSON, &until,
		&count, &t.RecurrenceCompletedCount, &original,
		&t.IsRecurrenceInstance, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.Priority = task.Priority(priority)
	t.Tags = tags
	if due.Valid {
		d := civil.DateOf(due.Time)
		t.DueDate = &d
	}
	if until.Valid {
		d := civil.DateOf(until.Time)
		t.RecurrenceEndDate = &d
	}
	if archivedAt.Valid {
		at := archivedAt.Time
		t.ArchivedAt = &at
	}
	if count.Valid {
		n := int(count.Int64)
		t.RecurrenceCount = &n
	}
	if original.Valid {
		id := original.String
		t.OriginalTaskID = &id
	}
	if t.RecurrenceRule, err = recurrence.Unmarshal(ruleJSON); err != nil {
		return nil, err
	}
	return &t, nil
}

func ruleArg(r recurrence.Rule) (interface{}, error) {
	if r == nil {
		return nil, nil
	}
	b, err := recurrence.Marshal(r)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode recurrence rule")
	}
	return string(b), nil
}

func dateArg(d *civil.Date) interface{} {
	if d == nil {
		return nil
	}
	return d.String()
}

func intArg(n *int) interface{} {
	if n == nil {
		return nil
	}
	return *n
}

func stringArg(s *string) interface{} {
	if s == nil || *s == "" {
		return nil
	}
	return *s
}

func nonNil(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

// ─────────────────────────────────────────────────────────────────────────────
// Error mapping
// ─────────────────────────────────────────────────────────────────────────────

func taskNotFound(id string) error {
	return errors.New(errors.ErrCodeTaskNotFound, "task not found").WithDetail("id=" + id)
}

func isPQCode(err error, code string) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == code
}

// mapError turns driver errors into application errors.  A malformed id
// cannot name an existing row and is reported as not found.
func mapError(err error, id, msg string) error {
	switch {
	case err == sql.ErrNoRows, isPQCode(err, pqInvalidText):
		return taskNotFound(id)
	case isPQCode(err, pqUniqueViolation):
		return errors.Wrap(err, errors.ErrCodeConflict, "task already exists")
	case isPQCode(err, pqForeignKeyViolation):
		return errors.Wrap(err, errors.ErrCodeColumnNotFound, "board or column does not exist")
	}
	if errors.GetCode(err) != errors.CodeUnknown {
		return err
	}
	return errors.Wrap(err, errors.ErrCodeDatabaseError, msg)
}

//Personal.AI order the ending
