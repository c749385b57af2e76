// Package recurrence drives recurring task series: complete-and-spawn,
// skip-in-place and the summary view served to the board UI.
package recurrence

import (
	"context"
	"time"

	"cloud.google.com/go/civil"

	domainRecurrence "github.com/turtacn/taskboard/internal/domain/recurrence"
	"github.com/turtacn/taskboard/internal/domain/task"
	"github.com/turtacn/taskboard/pkg/errors"
)

// Outcome is the result of a lifecycle step.  Termination is an outcome,
// not an error.
type Outcome string

const (
	OutcomeSpawned           Outcome = "spawned"
	OutcomeSkipped           Outcome = "skipped"
	OutcomeEndedPastEndDate  Outcome = "ended_past_end_date"
	OutcomeEndedCountReached Outcome = "ended_count_reached"
)

// Ended reports whether the series has no further occurrence.
func (o Outcome) Ended() bool {
	return o == OutcomeEndedPastEndDate || o == OutcomeEndedCountReached
}

// Message renders o for display.  next is used by OutcomeSkipped.
func (o Outcome) Message(next *civil.Date) string {
	switch o {
	case OutcomeSpawned:
		if next != nil {
			return "Next occurrence created for " + next.String()
		}
		return "Next occurrence created"
	case OutcomeSkipped:
		if next != nil {
			return "Skipped. Next due date: " + next.String()
		}
		return "Skipped"
	case OutcomeEndedPastEndDate:
		return "Recurrence ended (past end date)"
	case OutcomeEndedCountReached:
		return "Recurrence ended (reached occurrence limit)"
	default:
		return string(o)
	}
}

// SpawnResult is returned by Engine.Spawn.  Next is nil when the series ended.
type SpawnResult struct {
	Outcome        Outcome
	Next           *task.Task
	CompletedCount int
}

// SkipResult is returned by Engine.Skip.  Task is the row after the update.
type SkipResult struct {
	Outcome Outcome
	Task    *task.Task
	NextDue *civil.Date
}

// Engine runs the two mutation protocols against a task store.  Both share
// one NextOccurrence call and differ only in what they persist.
type Engine struct {
	now func() time.Time
}

// NewEngine returns an Engine reading "today" from now.  A nil now uses
// time.Now.
func NewEngine(now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{now: now}
}

// Today is the calendar date the engine substitutes for a missing due date.
func (e *Engine) Today() civil.Date {
	return civil.DateOf(e.now())
}

func (e *Engine) nextDue(t *task.Task) civil.Date {
	from := e.Today()
	if t.DueDate != nil {
		from = *t.DueDate
	}
	return domainRecurrence.NextOccurrence(from, t.RecurrenceRule)
}

func notRecurring(id string) error {
	return errors.New(errors.ErrCodeTaskNotRecurring, "task is not recurring").WithDetail("id=" + id)
}

// pastEnd reports whether next falls after the series end date.
func pastEnd(t *task.Task, next civil.Date) bool {
	return t.RecurrenceEndDate != nil && next.After(*t.RecurrenceEndDate)
}

func countReached(t *task.Task, newCount int) bool {
	return t.RecurrenceCount != nil && newCount >= *t.RecurrenceCount
}

// Spawn completes the current occurrence of t and creates the next one.  The
// end date is checked before the count limit; neither termination writes
// anything.  Otherwise the root's completed count is advanced and a copy of
// t due on the next occurrence is created.
func (e *Engine) Spawn(ctx context.Context, repo task.Repository, t *task.Task) (*SpawnResult, error) {
	if !t.IsRecurring() {
		return nil, notRecurring(t.ID)
	}

	newCount := t.RecurrenceCompletedCount + 1
	next := e.nextDue(t)

	if pastEnd(t, next) {
		return &SpawnResult{Outcome: OutcomeEndedPastEndDate, CompletedCount: t.RecurrenceCompletedCount}, nil
	}
	if countReached(t, newCount) {
		return &SpawnResult{Outcome: OutcomeEndedCountReached, CompletedCount: t.RecurrenceCompletedCount}, nil
	}

	rootID := t.RootID()
	if _, err := repo.Update(ctx, rootID, task.Patch{RecurrenceCompletedCount: &newCount}); err != nil {
		// A root removed by an earlier delete disposition leaves the
		// instances to carry the count.
		if rootID == t.ID || !errors.IsCode(err, errors.ErrCodeTaskNotFound) {
			return nil, err
		}
	}

	created, err := repo.Create(ctx, t.SpawnNext(next, newCount))
	if err != nil {
		return nil, err
	}
	return &SpawnResult{Outcome: OutcomeSpawned, Next: created, CompletedCount: newCount}, nil
}

// Skip advances t in place to its next occurrence.  Past the end date the
// rule is cleared and the due date kept; at the count limit the rule is
// cleared and the count advanced.
func (e *Engine) Skip(ctx context.Context, repo task.Repository, t *task.Task) (*SkipResult, error) {
	if !t.IsRecurring() {
		return nil, notRecurring(t.ID)
	}

	next := e.nextDue(t)
	if pastEnd(t, next) {
		updated, err := repo.Update(ctx, t.ID, task.Patch{ClearRecurrence: true})
		if err != nil {
			return nil, err
		}
		return &SkipResult{Outcome: OutcomeEndedPastEndDate, Task: updated}, nil
	}

	newCount := t.RecurrenceCompletedCount + 1
	if countReached(t, newCount) {
		updated, err := repo.Update(ctx, t.ID, task.Patch{ClearRecurrence: true, RecurrenceCompletedCount: &newCount})
		if err != nil {
			return nil, err
		}
		return &SkipResult{Outcome: OutcomeEndedCountReached, Task: updated}, nil
	}

	updated, err := repo.Update(ctx, t.ID, task.Patch{DueDate: &next, RecurrenceCompletedCount: &newCount})
	if err != nil {
		return nil, err
	}
	return &SkipResult{Outcome: OutcomeSkipped, Task: updated, NextDue: &next}, nil
}

//Personal.AI order the ending
