package recurrence

import (
	"time"

	"cloud.google.com/go/civil"

	domainRecurrence "github.com/turtacn/taskboard/internal/domain/recurrence"
	"github.com/turtacn/taskboard/internal/domain/task"
	"github.com/turtacn/taskboard/pkg/errors"
)

// Disposition is what happens to the just-completed task.
type Disposition string

const (
	DispositionArchive  Disposition = "archive"
	DispositionDelete   Disposition = "delete"
	DispositionComplete Disposition = "complete"
)

// ParseDisposition validates s.  An empty string yields def.
func ParseDisposition(s string, def Disposition) (Disposition, error) {
	if s == "" {
		s = string(def)
	}
	switch d := Disposition(s); d {
	case DispositionArchive, DispositionDelete, DispositionComplete:
		return d, nil
	}
	return "", errors.New(errors.ErrCodeDispositionInvalid, "invalid action").
		WithDetail("action must be archive, delete or complete, got " + s)
}

// CompleteRequest is the input of Service.CompleteRecurring.
type CompleteRequest struct {
	TaskID       string `json:"-"`
	Action       string `json:"action"`
	DoneColumnID string `json:"done_column_id,omitempty"`
}

// CompleteResponse reports the disposition applied and the spawned task.
type CompleteResponse struct {
	CompletedTaskID string      `json:"completed_task_id"`
	Action          Disposition `json:"action"`
	Outcome         Outcome     `json:"outcome"`
	SeriesEnded     bool        `json:"series_ended"`
	Reason          string      `json:"reason,omitempty"`
	NextTask        *TaskDTO    `json:"next_task,omitempty"`
}

// SkipResponse reports the in-place advance of a task.
type SkipResponse struct {
	Outcome     Outcome  `json:"outcome"`
	Message     string   `json:"message"`
	NextDueDate *string  `json:"next_due_date,omitempty"`
	Task        *TaskDTO `json:"task"`
}

// SummaryResponse is the recurrence-summary view of a task.
type SummaryResponse struct {
	IsRecurring    bool                   `json:"is_recurring"`
	Summary        string                 `json:"summary"`
	Rule           *domainRecurrence.Spec `json:"rule"`
	EndDate        *string                `json:"end_date"`
	Count          *int                   `json:"count"`
	CompletedCount int                    `json:"completed_count"`
}

// PreviewRequest asks for the next occurrences of a rule.  An empty From
// means today; Count defaults to DefaultPreviewCount.
type PreviewRequest struct {
	Rule  domainRecurrence.Spec `json:"rule"`
	From  string                `json:"from,omitempty"`
	Count int                   `json:"count,omitempty"`
}

// PreviewResponse lists upcoming occurrence dates.
type PreviewResponse struct {
	Summary string   `json:"summary"`
	From    string   `json:"from"`
	Dates   []string `json:"dates"`
}

// DefaultPreviewCount is used when PreviewRequest.Count is zero.
const DefaultPreviewCount = 5

// SubtaskDTO is the wire form of task.Subtask.
type SubtaskDTO struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Completed bool   `json:"is_completed"`
	Position  int    `json:"position"`
}

// TaskDTO is the wire form of task.Task.
type TaskDTO struct {
	ID                       string                 `json:"id"`
	BoardID                  string                 `json:"board_id"`
	ColumnID                 string                 `json:"column_id"`
	Title                    string                 `json:"title"`
	Description              string                 `json:"description,omitempty"`
	Priority                 string                 `json:"priority,omitempty"`
	Tags                     []string               `json:"tags"`
	Position                 int                    `json:"position"`
	DueDate                  *string                `json:"due_date"`
	Completed                bool                   `json:"is_completed"`
	ArchivedAt               *time.Time             `json:"archived_at,omitempty"`
	Subtasks                 []SubtaskDTO           `json:"subtasks"`
	RecurrenceRule           *domainRecurrence.Spec `json:"recurrence_rule"`
	RecurrenceEndDate        *string                `json:"recurrence_end_date"`
	RecurrenceCount          *int                   `json:"recurrence_count"`
	RecurrenceCompletedCount int                    `json:"recurrence_completed_count"`
	OriginalTaskID           *string                `json:"original_task_id"`
	IsRecurrenceInstance     bool                   `json:"is_recurrence_instance"`
	CreatedAt                time.Time              `json:"created_at"`
	UpdatedAt                time.Time              `json:"updated_at"`
}

// NewTaskDTO converts t.  A nil t yields nil.
func NewTaskDTO(t *task.Task) *TaskDTO {
	if t == nil {
		return nil
	}
	dto := &TaskDTO{
		ID:                       t.ID,
		BoardID:                  t.BoardID,
		ColumnID:                 t.ColumnID,
		Title:                    t.Title,
		Description:              t.Description,
		Priority:                 string(t.Priority),
		Tags:                     append([]string{}, t.Tags...),
		Position:                 t.Position,
		DueDate:                  dateString(t.DueDate),
		Completed:                t.Completed,
		ArchivedAt:               t.ArchivedAt,
		Subtasks:                 make([]SubtaskDTO, 0, len(t.Subtasks)),
		RecurrenceRule:           ruleSpec(t.RecurrenceRule),
		RecurrenceEndDate:        dateString(t.RecurrenceEndDate),
		RecurrenceCount:          t.RecurrenceCount,
		RecurrenceCompletedCount: t.RecurrenceCompletedCount,
		OriginalTaskID:           t.OriginalTaskID,
		IsRecurrenceInstance:     t.IsRecurrenceInstance,
		CreatedAt:                t.CreatedAt,
		UpdatedAt:                t.UpdatedAt,
	}
	for _, s := range t.Subtasks {
		dto.Subtasks = append(dto.Subtasks, SubtaskDTO{ID: s.ID, Title: s.Title, Completed: s.Completed, Position: s.Position})
	}
	return dto
}

func dateString(d *civil.Date) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}

func ruleSpec(r domainRecurrence.Rule) *domainRecurrence.Spec {
	if r == nil {
		return nil
	}
	s := domainRecurrence.ToSpec(r)
	return &s
}

//Personal.AI order the ending
