// Package calendar renders tasks as iCalendar documents so a series can be
// subscribed to from a calendar client.
package calendar

import (
	"bytes"
	"context"
	"strconv"
	"time"

	"cloud.google.com/go/civil"
	"github.com/emersion/go-ical"
	"github.com/teambition/rrule-go"

	domainRecurrence "github.com/turtacn/taskboard/internal/domain/recurrence"
	"github.com/turtacn/taskboard/internal/domain/task"
	"github.com/turtacn/taskboard/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/taskboard/pkg/errors"
)

// ProductID is written as PRODID on every exported calendar.
const ProductID = "-//taskboard//Recurring Tasks//EN"

// ContentType of an exported document.
const ContentType = "text/calendar; charset=utf-8"

// Exporter renders tasks.
type Exporter struct {
	now func() time.Time
}

// NewExporter returns an Exporter stamping DTSTAMP with now.  A nil now uses
// time.Now.
func NewExporter(now func() time.Time) *Exporter {
	if now == nil {
		now = time.Now
	}
	return &Exporter{now: now}
}

// Render encodes t as a VCALENDAR with a single all-day VEVENT on the due
// date.  Recurring tasks carry an RRULE describing the remaining series.
func (e *Exporter) Render(t *task.Task) ([]byte, error) {
	if t == nil {
		return nil, errors.InvalidParam("task must not be nil")
	}
	if t.DueDate == nil {
		return nil, errors.New(errors.ErrCodeDueDateRequired, "task has no due date").WithDetail("id=" + t.ID)
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropProductID, ProductID)
	cal.Props.SetText(ical.PropVersion, "2.0")

	event := ical.NewEvent()
	event.Props.SetText(ical.PropUID, t.ID+"@taskboard")
	event.Props.SetDateTime(ical.PropDateTimeStamp, e.now().UTC())
	event.Props.SetDate(ical.PropDateTimeStart, dateTime(*t.DueDate))
	event.Props.SetText(ical.PropSummary, t.Title)
	if t.Description != "" {
		event.Props.SetText(ical.PropDescription, t.Description)
	}
	if n := icalPriority(t.Priority); n > 0 {
		p := ical.NewProp(ical.PropPriority)
		p.Value = strconv.Itoa(n)
		event.Props.Set(p)
	}
	if t.OriginalTaskID != nil && *t.OriginalTaskID != "" {
		event.Props.SetText(ical.PropRelatedTo, *t.OriginalTaskID+"@taskboard")
	}
	if opt := RecurrenceOption(t); opt != nil {
		event.Props.SetRecurrenceRule(opt)
	}
	cal.Children = append(cal.Children, event.Component)

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "encode calendar")
	}
	return buf.Bytes(), nil
}

// RecurrenceOption maps the task's rule onto an RRULE.  Custom rules are
// emitted as FREQ=DAILY.  Weekly rules start their weeks on Sunday.  A
// day-of-month past the 28th is written as a BYMONTHDAY set with
// BYSETPOS=-1 so short months fall back to their last day; a same-day
// monthly rule takes that day from the due date.  Only one of COUNT and
// UNTIL is written: COUNT (the occurrences still to come, this one
// included) when the count limit ends the series on or before the end date,
// UNTIL otherwise.  It returns nil for a plain task.
//
// Two monthly shapes cannot be expressed exactly.  A same-day rule whose
// due day was already clamped keeps the clamped day from then on, while the
// RRULE returns to the original day on the next long month.  A 5th weekday
// missing from a month rolls into the next month, while the RRULE skips
// that month.  Both agree with the engine until the first such month.
func RecurrenceOption(t *task.Task) *rrule.ROption {
	if !t.IsRecurring() {
		return nil
	}

	opt := &rrule.ROption{Interval: t.RecurrenceRule.Every()}
	switch r := t.RecurrenceRule.(type) {
	case domainRecurrence.Daily, domainRecurrence.Custom:
		opt.Freq = rrule.DAILY
	case domainRecurrence.Weekly:
		opt.Freq = rrule.WEEKLY
		opt.Wkst = rrule.SU
		for _, d := range r.Weekdays {
			opt.Byweekday = append(opt.Byweekday, weekday(d))
		}
	case domainRecurrence.Monthly:
		opt.Freq = rrule.MONTHLY
		switch a := r.Anchor.(type) {
		case domainRecurrence.DayOfMonth:
			setMonthDay(opt, a.Day)
		case domainRecurrence.NthWeekday:
			wd := weekday(a.Weekday)
			opt.Byweekday = []rrule.Weekday{wd.Nth(a.Week)}
		default:
			if t.DueDate != nil {
				setMonthDay(opt, t.DueDate.Day)
			}
		}
	}

	setLimit(opt, t)
	return opt
}

func setMonthDay(opt *rrule.ROption, day int) {
	if day <= 28 {
		opt.Bymonthday = []int{day}
		return
	}
	for d := 28; d <= day; d++ {
		opt.Bymonthday = append(opt.Bymonthday, d)
	}
	opt.Bysetpos = []int{-1}
}

// setLimit writes COUNT or UNTIL, never both.
func setLimit(opt *rrule.ROption, t *task.Task) {
	remaining := 0
	if t.RecurrenceCount != nil {
		remaining = *t.RecurrenceCount - t.RecurrenceCompletedCount
		if remaining < 1 {
			remaining = 1
		}
	}

	switch {
	case t.RecurrenceEndDate == nil:
		opt.Count = remaining
	case remaining > 0 && t.DueDate != nil && !lastByCount(*t.DueDate, t.RecurrenceRule, remaining).After(*t.RecurrenceEndDate):
		opt.Count = remaining
	default:
		opt.Until = dateTime(*t.RecurrenceEndDate)
	}
}

// lastByCount returns the date of the n-th occurrence counting due as the
// first.
func lastByCount(due civil.Date, rule domainRecurrence.Rule, n int) civil.Date {
	if n <= 1 {
		return due
	}
	dates := domainRecurrence.Occurrences(due, rule, n-1)
	return dates[len(dates)-1]
}

func weekday(d time.Weekday) rrule.Weekday {
	// rrule numbers weekdays from Monday.
	return [...]rrule.Weekday{rrule.SU, rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA}[d]
}

func dateTime(d civil.Date) time.Time {
	return d.In(time.UTC)
}

func icalPriority(p task.Priority) int {
	switch p {
	case task.PriorityUrgent:
		return 1
	case task.PriorityHigh:
		return 3
	case task.PriorityMedium:
		return 5
	case task.PriorityLow:
		return 9
	}
	return 0
}

// ─────────────────────────────────────────────────────────────────────────────
// Service
// ─────────────────────────────────────────────────────────────────────────────

// Service exports stored tasks.
type Service interface {
	ExportTask(ctx context.Context, taskID string) ([]byte, error)
}

type serviceImpl struct {
	repo     task.Repository
	exporter *Exporter
	log      logging.Logger
}

// NewService constructs a Service.
func NewService(repo task.Repository, exporter *Exporter, log logging.Logger) Service {
	if exporter == nil {
		exporter = NewExporter(nil)
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &serviceImpl{repo: repo, exporter: exporter, log: log.Named("calendar")}
}

// ExportTask loads taskID and renders it.
func (s *serviceImpl) ExportTask(ctx context.Context, taskID string) ([]byte, error) {
	t, err := s.repo.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	data, err := s.exporter.Render(t)
	if err != nil {
		if !errors.IsValidation(err) {
			s.log.WithError(err).Error("render calendar failed", logging.String(logging.FieldTaskID, taskID))
		}
		return nil, err
	}
	s.log.Debug("calendar exported",
		logging.String(logging.FieldTaskID, taskID),
		logging.Int("bytes", len(data)))
	return data, nil
}

//Personal.AI order the ending
