// Package recurrence models how a task series repeats and holds the pure
// calendar arithmetic and phrasing built on that model.
//
// A Rule is a closed set of variants (Daily, Weekly, Monthly, Custom).  The
// flat JSON shape stored alongside a task is Spec; it is translated into a
// Rule by Parse immediately after decoding and never used for computation.
package recurrence

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/turtacn/taskboard/pkg/errors"
)

// Type is the discriminant of a rule.
type Type string

const (
	TypeDaily   Type = "daily"
	TypeWeekly  Type = "weekly"
	TypeMonthly Type = "monthly"
	TypeCustom  Type = "custom"
)

// LastWeek selects the last matching weekday of a month in NthWeekday.
const LastWeek = -1

// MaxNthWeek is the largest "Nth weekday" accepted by Parse.
const MaxNthWeek = 5

// ─────────────────────────────────────────────────────────────────────────────
// Rule variants
// ─────────────────────────────────────────────────────────────────────────────

// Rule describes how a series repeats.  Implementations are limited to the
// variants declared in this package.
type Rule interface {
	Type() Type
	// Every returns the repeat interval, never less than 1.
	Every() int
	isRule()
}

// Daily repeats every Interval days.
type Daily struct {
	Interval int
}

// Weekly repeats every Interval weeks, optionally on a set of weekdays.
type Weekly struct {
	Interval int
	Weekdays []time.Weekday
}

// Monthly repeats every Interval months at the position given by Anchor.
type Monthly struct {
	Interval int
	Anchor   Anchor
}

// Custom repeats every Interval days.
type Custom struct {
	Interval int
}

func (Daily) Type() Type   { return TypeDaily }
func (Weekly) Type() Type  { return TypeWeekly }
func (Monthly) Type() Type { return TypeMonthly }
func (Custom) Type() Type  { return TypeCustom }

func (r Daily) Every() int   { return every(r.Interval) }
func (r Weekly) Every() int  { return every(r.Interval) }
func (r Monthly) Every() int { return every(r.Interval) }
func (r Custom) Every() int  { return every(r.Interval) }

func (Daily) isRule()   {}
func (Weekly) isRule()  {}
func (Monthly) isRule() {}
func (Custom) isRule()  {}

func every(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

// ─────────────────────────────────────────────────────────────────────────────
// Monthly anchors
// ─────────────────────────────────────────────────────────────────────────────

// Anchor positions a monthly occurrence inside its month.
type Anchor interface {
	isAnchor()
}

// SameDay keeps the day-of-month of the previous occurrence, clamped to the
// length of the target month.
type SameDay struct{}

// DayOfMonth pins the occurrence to Day (1-31), clamped to the month length.
type DayOfMonth struct {
	Day int
}

// NthWeekday selects the Week-th Weekday of the month; Week == LastWeek
// selects the last one.
type NthWeekday struct {
	Week    int
	Weekday time.Weekday
}

func (SameDay) isAnchor()    {}
func (DayOfMonth) isAnchor() {}
func (NthWeekday) isAnchor() {}

// ─────────────────────────────────────────────────────────────────────────────
// Wire shape
// ─────────────────────────────────────────────────────────────────────────────

// Spec is the flat, all-optional serialization of a Rule.
type Spec struct {
	Type         string `json:"type"`
	Interval     int    `json:"interval,omitempty"`
	Weekdays     []int  `json:"weekdays,omitempty"`
	MonthDay     *int   `json:"monthDay,omitempty"`
	MonthWeek    *int   `json:"monthWeek,omitempty"`
	MonthWeekday *int   `json:"monthWeekday,omitempty"`
}

func invalid(format string, args ...interface{}) error {
	return errors.New(errors.ErrCodeRecurrenceRuleInvalid, "invalid recurrence rule").
		WithDetail(fmt.Sprintf(format, args...))
}

// Parse validates s and converts it into a Rule.  A missing or zero interval
// becomes 1.  Companion fields that do not belong to the rule type are
// ignored.  When both monthDay and the relative pair are present, monthDay
// wins.
func Parse(s Spec) (Rule, error) {
	if s.Interval < 0 {
		return nil, invalid("interval must be positive, got %d", s.Interval)
	}
	interval := every(s.Interval)

	switch Type(s.Type) {
	case TypeDaily:
		return Daily{Interval: interval}, nil

	case TypeCustom:
		return Custom{Interval: interval}, nil

	case TypeWeekly:
		days, err := parseWeekdays(s.Weekdays)
		if err != nil {
			return nil, err
		}
		return Weekly{Interval: interval, Weekdays: days}, nil

	case TypeMonthly:
		anchor, err := parseAnchor(s)
		if err != nil {
			return nil, err
		}
		return Monthly{Interval: interval, Anchor: anchor}, nil

	case "":
		return nil, invalid("type is required")
	}
	return nil, invalid("unknown type %q", s.Type)
}

func parseWeekdays(in []int) ([]time.Weekday, error) {
	if len(in) == 0 {
		return nil, nil
	}
	seen := make(map[int]bool, len(in))
	out := make([]time.Weekday, 0, len(in))
	for _, d := range in {
		if d < 0 || d > 6 {
			return nil, invalid("weekday %d is outside 0-6", d)
		}
		if seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, time.Weekday(d))
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func parseAnchor(s Spec) (Anchor, error) {
	if s.MonthDay != nil {
		if *s.MonthDay < 1 || *s.MonthDay > 31 {
			return nil, invalid("monthDay %d is outside 1-31", *s.MonthDay)
		}
		return DayOfMonth{Day: *s.MonthDay}, nil
	}

	switch {
	case s.MonthWeek == nil && s.MonthWeekday == nil:
		return SameDay{}, nil
	case s.MonthWeek == nil || s.MonthWeekday == nil:
		return nil, invalid("monthWeek and monthWeekday must be set together")
	}

	week, wd := *s.MonthWeek, *s.MonthWeekday
	if week != LastWeek && (week < 1 || week > MaxNthWeek) {
		return nil, invalid("monthWeek %d must be -1 or 1-%d", week, MaxNthWeek)
	}
	if wd < 0 || wd > 6 {
		return nil, invalid("monthWeekday %d is outside 0-6", wd)
	}
	return NthWeekday{Week: week, Weekday: time.Weekday(wd)}, nil
}

// ToSpec converts r back to its flat form.  A nil rule yields the zero Spec.
func ToSpec(r Rule) Spec {
	switch v := r.(type) {
	case Daily:
		return Spec{Type: string(TypeDaily), Interval: v.Every()}
	case Custom:
		return Spec{Type: string(TypeCustom), Interval: v.Every()}
	case Weekly:
		s := Spec{Type: string(TypeWeekly), Interval: v.Every()}
		for _, d := range v.Weekdays {
			s.Weekdays = append(s.Weekdays, int(d))
		}
		return s
	case Monthly:
		s := Spec{Type: string(TypeMonthly), Interval: v.Every()}
		switch a := v.Anchor.(type) {
		case DayOfMonth:
			s.MonthDay = intPtr(a.Day)
		case NthWeekday:
			s.MonthWeek = intPtr(a.Week)
			s.MonthWeekday = intPtr(int(a.Weekday))
		}
		return s
	}
	return Spec{}
}

func intPtr(v int) *int { return &v }

// Marshal encodes r as Spec JSON.  A nil rule encodes as JSON null.
func Marshal(r Rule) ([]byte, error) {
	if r == nil {
		return []byte("null"), nil
	}
	return json.Marshal(ToSpec(r))
}

// Unmarshal decodes Spec JSON into a Rule.  Empty input and JSON null decode
// to a nil Rule without error.
func Unmarshal(data []byte) (Rule, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}
	var s Spec
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeRecurrenceRuleInvalid, "invalid recurrence rule")
	}
	return Parse(s)
}

//Personal.AI order the ending
