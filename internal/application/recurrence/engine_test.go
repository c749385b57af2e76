package recurrence_test

import (
	"context"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/taskboard/internal/application/recurrence"
	domainRecurrence "github.com/turtacn/taskboard/internal/domain/recurrence"
	"github.com/turtacn/taskboard/internal/domain/task"
	"github.com/turtacn/taskboard/internal/infrastructure/database/memory"
	"github.com/turtacn/taskboard/pkg/errors"
)

var fixedNow = time.Date(2024, time.May, 10, 9, 30, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func ptr[T any](v T) *T { return &v }

func date(s string) *civil.Date {
	d, err := civil.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return &d
}

func newRepo() *memory.TaskRepository {
	r := memory.NewTaskRepository(memory.WithClock(clock))
	r.AddColumn("board-1", "col-todo")
	r.AddColumn("board-1", "col-done")
	r.AddColumn("board-2", "col-other")
	return r
}

func seed(t *testing.T, repo task.Repository, tk *task.Task) *task.Task {
	t.Helper()
	created, err := repo.Create(context.Background(), tk)
	require.NoError(t, err)
	return created
}

func weeklyRoot() *task.Task {
	return &task.Task{
		ID:             "root",
		BoardID:        "board-1",
		ColumnID:       "col-todo",
		Title:          "Team sync notes",
		Priority:       task.PriorityMedium,
		Tags:           []string{"meeting"},
		Position:       0,
		DueDate:        date("2024-03-04"),
		RecurrenceRule: domainRecurrence.Weekly{Interval: 1, Weekdays: []time.Weekday{time.Monday}},
		Subtasks: []task.Subtask{
			{Title: "Collect agenda", Completed: true, Position: 0},
			{Title: "Send minutes", Position: 1},
		},
	}
}

func TestEngine_Spawn_CreatesNextInstance(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := newRepo()
	root := seed(t, repo, weeklyRoot())
	seed(t, repo, &task.Task{ID: "other", BoardID: "board-1", ColumnID: "col-todo", Position: task.AppendPosition})

	res, err := recurrence.NewEngine(clock).Spawn(ctx, repo, root)
	require.NoError(t, err)
	assert.Equal(t, recurrence.OutcomeSpawned, res.Outcome)
	assert.Equal(t, 1, res.CompletedCount)

	next := res.Next
	require.NotNil(t, next)
	assert.NotEmpty(t, next.ID)
	assert.NotEqual(t, root.ID, next.ID)
	assert.Equal(t, "2024-03-11", next.DueDate.String())
	assert.Equal(t, "root", *next.OriginalTaskID)
	assert.True(t, next.IsRecurrenceInstance)
	assert.Equal(t, 1, next.RecurrenceCompletedCount)
	assert.Equal(t, 2, next.Position, "appended after the last task of the column")
	assert.Equal(t, root.Title, next.Title)
	assert.Equal(t, root.Tags, next.Tags)
	require.Len(t, next.Subtasks, 2)
	for _, s := range next.Subtasks {
		assert.False(t, s.Completed)
		assert.Equal(t, next.ID, s.TaskID)
		assert.NotEmpty(t, s.ID)
	}

	stored, err := repo.GetByID(ctx, "root")
	require.NoError(t, err)
	assert.Equal(t, 1, stored.RecurrenceCompletedCount)
	assert.Equal(t, "2024-03-04", stored.DueDate.String(), "root due date is not touched")
}

func TestEngine_Spawn_CountLimit(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := newRepo()
	root := weeklyRoot()
	root.RecurrenceCount = ptr(3)
	seed(t, repo, root)
	engine := recurrence.NewEngine(clock)

	var outcomes []recurrence.Outcome
	for i := 0; i < 3; i++ {
		current, err := repo.GetByID(ctx, "root")
		require.NoError(t, err)
		res, err := engine.Spawn(ctx, repo, current)
		require.NoError(t, err)
		outcomes = append(outcomes, res.Outcome)
		if i == 2 {
			assert.Nil(t, res.Next)
			assert.Equal(t, 2, res.CompletedCount)
		}
	}

	assert.Equal(t, []recurrence.Outcome{
		recurrence.OutcomeSpawned,
		recurrence.OutcomeSpawned,
		recurrence.OutcomeEndedCountReached,
	}, outcomes)

	all := repo.All()
	require.Len(t, all, 3)
	instances := 0
	for _, tk := range all {
		if tk.IsRecurrenceInstance {
			instances++
			assert.Equal(t, "2024-03-11", tk.DueDate.String())
		} else {
			assert.Equal(t, "2024-03-04", tk.DueDate.String())
			assert.Equal(t, 2, tk.RecurrenceCompletedCount)
		}
	}
	assert.Equal(t, 2, instances)
}

func TestEngine_Spawn_PastEndDateWritesNothing(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := newRepo()
	root := weeklyRoot()
	root.RecurrenceEndDate = date("2024-03-10")
	seed(t, repo, root)

	res, err := recurrence.NewEngine(clock).Spawn(ctx, repo, root)
	require.NoError(t, err)
	assert.Equal(t, recurrence.OutcomeEndedPastEndDate, res.Outcome)
	assert.Nil(t, res.Next)

	require.Len(t, repo.All(), 1)
	stored, _ := repo.GetByID(ctx, "root")
	assert.Equal(t, 0, stored.RecurrenceCompletedCount)
	assert.True(t, stored.IsRecurring())
}

func TestEngine_Spawn_EndDateCheckedBeforeCount(t *testing.T) {
	t.Parallel()

	root := weeklyRoot()
	root.RecurrenceEndDate = date("2024-03-05")
	root.RecurrenceCount = ptr(1)

	res, err := recurrence.NewEngine(clock).Spawn(context.Background(), newRepo(), root)
	require.NoError(t, err)
	assert.Equal(t, recurrence.OutcomeEndedPastEndDate, res.Outcome)
}

func TestEngine_Spawn_EndDateInclusive(t *testing.T) {
	t.Parallel()

	repo := newRepo()
	root := weeklyRoot()
	root.RecurrenceEndDate = date("2024-03-11")
	seed(t, repo, root)

	res, err := recurrence.NewEngine(clock).Spawn(context.Background(), repo, root)
	require.NoError(t, err)
	assert.Equal(t, recurrence.OutcomeSpawned, res.Outcome)
}

func TestEngine_Spawn_NoDueDateUsesToday(t *testing.T) {
	t.Parallel()

	repo := newRepo()
	root := seed(t, repo, &task.Task{
		ID: "r", BoardID: "board-1", ColumnID: "col-todo",
		RecurrenceRule: domainRecurrence.Daily{Interval: 2},
	})

	res, err := recurrence.NewEngine(clock).Spawn(context.Background(), repo, root)
	require.NoError(t, err)
	assert.Equal(t, "2024-05-12", res.Next.DueDate.String())
}

func TestEngine_Spawn_RootDeleted(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := newRepo()
	inst := weeklyRoot()
	inst.ID = "inst"
	inst.OriginalTaskID = ptr("gone")
	inst.IsRecurrenceInstance = true
	inst.RecurrenceCompletedCount = 4
	seed(t, repo, inst)

	res, err := recurrence.NewEngine(clock).Spawn(ctx, repo, inst)
	require.NoError(t, err)
	assert.Equal(t, recurrence.OutcomeSpawned, res.Outcome)
	assert.Equal(t, 5, res.Next.RecurrenceCompletedCount)
	assert.Equal(t, "gone", *res.Next.OriginalTaskID)
}

func TestEngine_NotRecurring(t *testing.T) {
	t.Parallel()

	plain := &task.Task{ID: "plain", BoardID: "board-1", ColumnID: "col-todo"}
	engine := recurrence.NewEngine(clock)

	_, err := engine.Spawn(context.Background(), newRepo(), plain)
	assert.True(t, errors.IsCode(err, errors.ErrCodeTaskNotRecurring))

	_, err = engine.Skip(context.Background(), newRepo(), plain)
	assert.True(t, errors.IsCode(err, errors.ErrCodeTaskNotRecurring))
	assert.True(t, errors.IsValidation(err))
}

func TestEngine_Skip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := newRepo()
	seed(t, repo, weeklyRoot())

	current, _ := repo.GetByID(ctx, "root")
	res, err := recurrence.NewEngine(clock).Skip(ctx, repo, current)
	require.NoError(t, err)

	assert.Equal(t, recurrence.OutcomeSkipped, res.Outcome)
	require.NotNil(t, res.NextDue)
	assert.Equal(t, "2024-03-11", res.NextDue.String())
	assert.Equal(t, "2024-03-11", res.Task.DueDate.String())
	assert.Equal(t, 1, res.Task.RecurrenceCompletedCount)
	assert.True(t, res.Task.IsRecurring())
	assert.Len(t, repo.All(), 1, "skip never creates a row")
}

func TestEngine_Skip_PastEndDate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := newRepo()
	root := weeklyRoot()
	root.RecurrenceEndDate = date("2024-03-08")
	root.RecurrenceCount = ptr(10)
	root.RecurrenceCompletedCount = 2
	seed(t, repo, root)

	res, err := recurrence.NewEngine(clock).Skip(ctx, repo, root)
	require.NoError(t, err)

	assert.Equal(t, recurrence.OutcomeEndedPastEndDate, res.Outcome)
	assert.Nil(t, res.NextDue)
	assert.Nil(t, res.Task.RecurrenceRule)
	assert.Nil(t, res.Task.RecurrenceEndDate)
	assert.Nil(t, res.Task.RecurrenceCount)
	assert.Equal(t, "2024-03-04", res.Task.DueDate.String())
	assert.Equal(t, 2, res.Task.RecurrenceCompletedCount)
}

func TestEngine_Skip_CountReached(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := newRepo()
	root := weeklyRoot()
	root.RecurrenceCount = ptr(3)
	root.RecurrenceCompletedCount = 2
	seed(t, repo, root)

	res, err := recurrence.NewEngine(clock).Skip(ctx, repo, root)
	require.NoError(t, err)

	assert.Equal(t, recurrence.OutcomeEndedCountReached, res.Outcome)
	assert.False(t, res.Task.IsRecurring())
	assert.Equal(t, 3, res.Task.RecurrenceCompletedCount)
	assert.Equal(t, "2024-03-04", res.Task.DueDate.String())
}

type failingRepo struct {
	task.Repository
	err error
}

func (f failingRepo) Update(context.Context, string, task.Patch) (*task.Task, error) {
	return nil, f.err
}

func TestEngine_StoreFailurePropagates(t *testing.T) {
	t.Parallel()

	dbErr := errors.New(errors.ErrCodeDatabaseError, "connection refused")
	repo := failingRepo{Repository: newRepo(), err: dbErr}

	_, err := recurrence.NewEngine(clock).Spawn(context.Background(), repo, weeklyRoot())
	assert.Same(t, dbErr, err)

	_, err = recurrence.NewEngine(clock).Skip(context.Background(), repo, weeklyRoot())
	assert.Same(t, dbErr, err)
}

func TestOutcome_Message(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Skipped. Next due date: 2024-03-11", recurrence.OutcomeSkipped.Message(date("2024-03-11")))
	assert.Equal(t, "Recurrence ended (past end date)", recurrence.OutcomeEndedPastEndDate.Message(nil))
	assert.Equal(t, "Recurrence ended (reached occurrence limit)", recurrence.OutcomeEndedCountReached.Message(nil))
	assert.True(t, recurrence.OutcomeEndedCountReached.Ended())
	assert.False(t, recurrence.OutcomeSpawned.Ended())
}

//Personal.AI order the ending
