package client

import (
	"context"
	"net/http"
	"net/url"
	"time"
)

// Rule is the wire form of a recurrence rule.
type Rule struct {
	Type         string `json:"type"`
	Interval     int    `json:"interval,omitempty"`
	Weekdays     []int  `json:"weekdays,omitempty"`
	MonthDay     *int   `json:"monthDay,omitempty"`
	MonthWeek    *int   `json:"monthWeek,omitempty"`
	MonthWeekday *int   `json:"monthWeekday,omitempty"`
}

// Subtask is a checklist item of a Task.
type Subtask struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Completed bool   `json:"is_completed"`
	Position  int    `json:"position"`
}

// Task is a task as returned by the lifecycle endpoints.
type Task struct {
	ID                       string     `json:"id"`
	BoardID                  string     `json:"board_id"`
	ColumnID                 string     `json:"column_id"`
	Title                    string     `json:"title"`
	Description              string     `json:"description,omitempty"`
	Priority                 string     `json:"priority,omitempty"`
	Tags                     []string   `json:"tags"`
	Position                 int        `json:"position"`
	DueDate                  *string    `json:"due_date"`
	Completed                bool       `json:"is_completed"`
	ArchivedAt               *time.Time `json:"archived_at,omitempty"`
	Subtasks                 []Subtask  `json:"subtasks"`
	RecurrenceRule           *Rule      `json:"recurrence_rule"`
	RecurrenceEndDate        *string    `json:"recurrence_end_date"`
	RecurrenceCount          *int       `json:"recurrence_count"`
	RecurrenceCompletedCount int        `json:"recurrence_completed_count"`
	OriginalTaskID           *string    `json:"original_task_id"`
	IsRecurrenceInstance     bool       `json:"is_recurrence_instance"`
	CreatedAt                time.Time  `json:"created_at"`
	UpdatedAt                time.Time  `json:"updated_at"`
}

// CompleteOptions selects what happens to the completed task.  The zero
// value uses the server default action.
type CompleteOptions struct {
	Action       string `json:"action,omitempty"`
	DoneColumnID string `json:"done_column_id,omitempty"`
}

// CompleteResult is the response of CompleteRecurring.
type CompleteResult struct {
	CompletedTaskID string `json:"completed_task_id"`
	Action          string `json:"action"`
	Outcome         string `json:"outcome"`
	SeriesEnded     bool   `json:"series_ended"`
	Reason          string `json:"reason,omitempty"`
	NextTask        *Task  `json:"next_task,omitempty"`
}

// SkipResult is the response of SkipOccurrence.
type SkipResult struct {
	Outcome     string  `json:"outcome"`
	Message     string  `json:"message"`
	NextDueDate *string `json:"next_due_date,omitempty"`
	Task        *Task   `json:"task"`
}

// Summary is the recurrence-summary view of a task.
type Summary struct {
	IsRecurring    bool    `json:"is_recurring"`
	Summary        string  `json:"summary"`
	Rule           *Rule   `json:"rule"`
	EndDate        *string `json:"end_date"`
	Count          *int    `json:"count"`
	CompletedCount int     `json:"completed_count"`
}

// TasksClient drives the series lifecycle of stored tasks.
type TasksClient struct {
	client *Client
}

func taskPath(taskID, suffix string) string {
	return "/api/v1/tasks/" + url.PathEscape(taskID) + "/" + suffix
}

// CompleteRecurring completes taskID and spawns its next occurrence.
func (t *TasksClient) CompleteRecurring(ctx context.Context, taskID string, opts CompleteOptions) (*CompleteResult, error) {
	if taskID == "" {
		return nil, ErrInvalidConfig.WithDetail("task id is required")
	}
	var out CompleteResult
	if err := t.client.post(ctx, taskPath(taskID, "complete-recurring"), opts, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SkipOccurrence advances taskID to its next occurrence in place.
func (t *TasksClient) SkipOccurrence(ctx context.Context, taskID string) (*SkipResult, error) {
	if taskID == "" {
		return nil, ErrInvalidConfig.WithDetail("task id is required")
	}
	var out SkipResult
	if err := t.client.post(ctx, taskPath(taskID, "skip-occurrence"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Summary returns the recurrence summary of taskID.
func (t *TasksClient) Summary(ctx context.Context, taskID string) (*Summary, error) {
	if taskID == "" {
		return nil, ErrInvalidConfig.WithDetail("task id is required")
	}
	var out Summary
	if err := t.client.get(ctx, taskPath(taskID, "recurrence-summary"), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Calendar downloads taskID as an iCalendar document.
func (t *TasksClient) Calendar(ctx context.Context, taskID string) ([]byte, error) {
	if taskID == "" {
		return nil, ErrInvalidConfig.WithDetail("task id is required")
	}
	return t.client.doRaw(ctx, http.MethodGet, taskPath(taskID, "calendar.ics"), nil, "text/calendar")
}

// PreviewRequest asks the server for upcoming dates of a rule.
type PreviewRequest struct {
	Rule  Rule   `json:"rule"`
	From  string `json:"from,omitempty"`
	Count int    `json:"count,omitempty"`
}

// Preview lists upcoming occurrence dates.
type Preview struct {
	Summary string   `json:"summary"`
	From    string   `json:"from"`
	Dates   []string `json:"dates"`
}

// RecurrenceClient evaluates rules without touching stored tasks.
type RecurrenceClient struct {
	client *Client
}

// Preview validates req.Rule and returns its next dates.
func (r *RecurrenceClient) Preview(ctx context.Context, req PreviewRequest) (*Preview, error) {
	var out Preview
	if err := r.client.post(ctx, "/api/v1/recurrence/preview", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

//Personal.AI order the ending
