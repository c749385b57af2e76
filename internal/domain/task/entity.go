// Package task defines the Task aggregate as far as the recurrence engine
// needs it, and the store contract the engine drives.
package task

import (
	"time"

	"cloud.google.com/go/civil"

	"github.com/turtacn/taskboard/internal/domain/recurrence"
)

// Priority of a task.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// AppendPosition asks the store to place a new task after the last task of
// its column.
const AppendPosition = -1

// Subtask is a checklist item owned by a task.
type Subtask struct {
	ID        string
	TaskID    string
	Title     string
	Completed bool
	Position  int
}

// Task is a card on a board column.  The Recurrence* fields describe the
// series the task belongs to; a nil RecurrenceRule marks a plain task.
type Task struct {
	ID          string
	BoardID     string
	ColumnID    string
	Title       string
	Description string
	Priority    Priority
	Tags        []string
	Position    int
	DueDate     *civil.Date
	Completed   bool
	ArchivedAt  *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Subtasks    []Subtask

	RecurrenceRule           recurrence.Rule
	RecurrenceEndDate        *civil.Date
	RecurrenceCount          *int
	RecurrenceCompletedCount int
	OriginalTaskID           *string
	IsRecurrenceInstance     bool
}

// IsRecurring reports whether t carries a recurrence rule.
func (t *Task) IsRecurring() bool {
	return t != nil && t.RecurrenceRule != nil
}

// RootID is the id of the series root: OriginalTaskID when set, else t.ID.
func (t *Task) RootID() string {
	if t.OriginalTaskID != nil && *t.OriginalTaskID != "" {
		return *t.OriginalTaskID
	}
	return t.ID
}

// IsArchived reports whether t has been archived.
func (t *Task) IsArchived() bool {
	return t.ArchivedAt != nil
}

// SpawnNext builds the next instance of t's series, due on due, carrying
// completedCount.  Descriptive fields, tags and subtasks are copied; subtask
// completion is reset and ids are left for the store to assign.
func (t *Task) SpawnNext(due civil.Date, completedCount int) *Task {
	root := t.RootID()
	next := &Task{
		BoardID:     t.BoardID,
		ColumnID:    t.ColumnID,
		Title:       t.Title,
		Description: t.Description,
		Priority:    t.Priority,
		Tags:        append([]string(nil), t.Tags...),
		Position:    AppendPosition,
		DueDate:     &due,

		RecurrenceRule:           t.RecurrenceRule,
		RecurrenceEndDate:        copyDate(t.RecurrenceEndDate),
		RecurrenceCount:          copyInt(t.RecurrenceCount),
		RecurrenceCompletedCount: completedCount,
		OriginalTaskID:           &root,
		IsRecurrenceInstance:     true,
	}
	if len(t.Subtasks) > 0 {
		next.Subtasks = make([]Subtask, len(t.Subtasks))
		for i, s := range t.Subtasks {
			next.Subtasks[i] = Subtask{Title: s.Title, Position: s.Position}
		}
	}
	return next
}

// Clone returns a deep copy of t.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	c.Tags = append([]string(nil), t.Tags...)
	c.Subtasks = append([]Subtask(nil), t.Subtasks...)
	c.DueDate = copyDate(t.DueDate)
	c.RecurrenceEndDate = copyDate(t.RecurrenceEndDate)
	c.RecurrenceCount = copyInt(t.RecurrenceCount)
	if t.OriginalTaskID != nil {
		id := *t.OriginalTaskID
		c.OriginalTaskID = &id
	}
	if t.ArchivedAt != nil {
		at := *t.ArchivedAt
		c.ArchivedAt = &at
	}
	return &c
}

func copyDate(d *civil.Date) *civil.Date {
	if d == nil {
		return nil
	}
	v := *d
	return &v
}

func copyInt(n *int) *int {
	if n == nil {
		return nil
	}
	v := *n
	return &v
}

// ─────────────────────────────────────────────────────────────────────────────
// Patch
// ─────────────────────────────────────────────────────────────────────────────

// Patch is a partial update.  Nil fields are left untouched.
type Patch struct {
	DueDate                  *civil.Date
	RecurrenceCompletedCount *int
	// ClearRecurrence drops the rule, end date and count, turning the task
	// into a plain task.  The completed count is kept.
	ClearRecurrence bool
	ColumnID        *string
	Completed       *bool
	// Archived sets ArchivedAt to the update time, or clears it.
	Archived *bool
}

// IsEmpty reports whether p changes nothing.
func (p Patch) IsEmpty() bool {
	return p.DueDate == nil && p.RecurrenceCompletedCount == nil && !p.ClearRecurrence &&
		p.ColumnID == nil && p.Completed == nil && p.Archived == nil
}

// Apply writes p onto t, stamping UpdatedAt with now.
func (p Patch) Apply(t *Task, now time.Time) {
	if p.DueDate != nil {
		t.DueDate = copyDate(p.DueDate)
	}
	if p.RecurrenceCompletedCount != nil {
		t.RecurrenceCompletedCount = *p.RecurrenceCompletedCount
	}
	if p.ClearRecurrence {
		t.RecurrenceRule = nil
		t.RecurrenceEndDate = nil
		t.RecurrenceCount = nil
	}
	if p.ColumnID != nil {
		t.ColumnID = *p.ColumnID
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	if p.Archived != nil {
		if *p.Archived {
			at := now
			t.ArchivedAt = &at
		} else {
			t.ArchivedAt = nil
		}
	}
	t.UpdatedAt = now
}

//Personal.AI order the ending
