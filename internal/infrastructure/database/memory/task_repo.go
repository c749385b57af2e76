// Package memory provides an in-process task store used for
// database.driver=memory and in tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/taskboard/internal/domain/task"
	"github.com/turtacn/taskboard/pkg/errors"
)

type state struct {
	tasks   map[string]*task.Task
	columns map[string]string // column id → board id
}

func (s *state) clone() *state {
	c := &state{
		tasks:   make(map[string]*task.Task, len(s.tasks)),
		columns: make(map[string]string, len(s.columns)),
	}
	for id, t := range s.tasks {
		c.tasks[id] = t.Clone()
	}
	for col, board := range s.columns {
		c.columns[col] = board
	}
	return c
}

// TaskRepository is a task.Repository backed by maps.  Transactions are
// serialised: WithTx holds the lock for the duration of fn and restores a
// snapshot when fn fails.
type TaskRepository struct {
	mu   *sync.Mutex
	data *state
	inTx bool
	now  func() time.Time
}

// Option configures a TaskRepository.
type Option func(*TaskRepository)

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *TaskRepository) { r.now = now }
}

// NewTaskRepository returns an empty store.
func NewTaskRepository(opts ...Option) *TaskRepository {
	r := &TaskRepository{
		mu:   &sync.Mutex{},
		data: &state{tasks: map[string]*task.Task{}, columns: map[string]string{}},
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var _ task.Repository = (*TaskRepository)(nil)

func (r *TaskRepository) lock() func() {
	if r.inTx {
		return func() {}
	}
	r.mu.Lock()
	return r.mu.Unlock
}

// AddColumn registers a column so ColumnExists and Create accept it.
func (r *TaskRepository) AddColumn(boardID, columnID string) {
	defer r.lock()()
	r.data.columns[columnID] = boardID
}

// GetByID implements task.Repository.
func (r *TaskRepository) GetByID(_ context.Context, id string) (*task.Task, error) {
	defer r.lock()()
	t, ok := r.data.tasks[id]
	if !ok {
		return nil, errors.New(errors.ErrCodeTaskNotFound, "task not found").WithDetail("id=" + id)
	}
	return t.Clone(), nil
}

// Create implements task.Repository.
func (r *TaskRepository) Create(_ context.Context, t *task.Task) (*task.Task, error) {
	defer r.lock()()

	c := t.Clone()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if _, dup := r.data.tasks[c.ID]; dup {
		return nil, errors.Conflict("task already exists").WithDetail("id=" + c.ID)
	}
	if c.Position < 0 {
		c.Position = r.nextPosition(c.ColumnID)
	}
	now := r.now()
	c.CreatedAt, c.UpdatedAt = now, now
	for i := range c.Subtasks {
		c.Subtasks[i].ID = uuid.NewString()
		c.Subtasks[i].TaskID = c.ID
	}
	r.data.tasks[c.ID] = c
	r.data.columns[c.ColumnID] = c.BoardID
	return c.Clone(), nil
}

func (r *TaskRepository) nextPosition(columnID string) int {
	pos := 0
	for _, t := range r.data.tasks {
		if t.ColumnID == columnID && t.Position >= pos {
			pos = t.Position + 1
		}
	}
	return pos
}

// Update implements task.Repository.
func (r *TaskRepository) Update(_ context.Context, id string, p task.Patch) (*task.Task, error) {
	defer r.lock()()
	t, ok := r.data.tasks[id]
	if !ok {
		return nil, errors.New(errors.ErrCodeTaskNotFound, "task not found").WithDetail("id=" + id)
	}
	p.Apply(t, r.now())
	return t.Clone(), nil
}

// Delete implements task.Repository.
func (r *TaskRepository) Delete(_ context.Context, id string) error {
	defer r.lock()()
	if _, ok := r.data.tasks[id]; !ok {
		return errors.New(errors.ErrCodeTaskNotFound, "task not found").WithDetail("id=" + id)
	}
	delete(r.data.tasks, id)
	return nil
}

// ColumnExists implements task.Repository.
func (r *TaskRepository) ColumnExists(_ context.Context, boardID, columnID string) (bool, error) {
	defer r.lock()()
	b, ok := r.data.columns[columnID]
	return ok && b == boardID, nil
}

// WithTx implements task.Repository.
func (r *TaskRepository) WithTx(ctx context.Context, fn func(task.Repository) error) error {
	if r.inTx {
		return fn(r)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	snapshot := r.data.clone()
	txRepo := &TaskRepository{mu: r.mu, data: r.data, inTx: true, now: r.now}
	if err := fn(txRepo); err != nil {
		*r.data = *snapshot
		return err
	}
	return nil
}

// All returns every stored task ordered by column then position.
func (r *TaskRepository) All() []*task.Task {
	defer r.lock()()
	out := make([]*task.Task, 0, len(r.data.tasks))
	for _, t := range r.data.tasks {
		out = append(out, t.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ColumnID != out[j].ColumnID {
			return out[i].ColumnID < out[j].ColumnID
		}
		return out[i].Position < out[j].Position
	})
	return out
}

// Ping always succeeds; it lets the store stand in as a readiness probe.
func (r *TaskRepository) Ping(context.Context) error { return nil }

//Personal.AI order the ending
