package task

import (
	"context"
)

// Repository is the persistence contract used by the recurrence engine.
type Repository interface {
	// GetByID returns the task with its subtasks, or an ErrCodeTaskNotFound
	// error.
	GetByID(ctx context.Context, id string) (*Task, error)

	// Create stores t and copies of its subtasks under the new task id.  An
	// empty ID is assigned by the store; Position AppendPosition places the
	// task after the last task of its column.
	Create(ctx context.Context, t *Task) (*Task, error)

	// Update applies p to the task and returns the updated row.
	Update(ctx context.Context, id string, p Patch) (*Task, error)

	// Delete removes the task and its subtasks permanently.
	Delete(ctx context.Context, id string) error

	// ColumnExists reports whether columnID belongs to boardID.
	ColumnExists(ctx context.Context, boardID, columnID string) (bool, error)

	// WithTx runs fn against a repository bound to a single transaction.  The
	// transaction commits when fn returns nil and rolls back otherwise.
	WithTx(ctx context.Context, fn func(Repository) error) error
}

//Personal.AI order the ending
