package recurrence

import (
	"time"

	"cloud.google.com/go/civil"
)

// NextOccurrence returns the first occurrence of rule strictly after from.
// It is pure: all arithmetic happens on calendar dates, never on instants.
// A nil rule returns from unchanged.
func NextOccurrence(from civil.Date, rule Rule) civil.Date {
	switch r := rule.(type) {
	case Daily:
		return from.AddDays(r.Every())
	case Custom:
		return from.AddDays(r.Every())
	case Weekly:
		return nextWeekly(from, r)
	case Monthly:
		return nextMonthly(from, r)
	}
	return from
}

// Occurrences returns the next n occurrences after from, each computed from
// its predecessor.
func Occurrences(from civil.Date, rule Rule, n int) []civil.Date {
	if rule == nil || n <= 0 {
		return nil
	}
	out := make([]civil.Date, 0, n)
	cur := from
	for i := 0; i < n; i++ {
		cur = NextOccurrence(cur, rule)
		out = append(out, cur)
	}
	return out
}

// Weekday returns the day of the week of d.
func Weekday(d civil.Date) time.Weekday {
	return d.In(time.UTC).Weekday()
}

// nextWeekly advances to the next listed weekday later in the same week; when
// none remains it wraps to the first listed weekday and then skips
// (interval-1) further weeks.  Weeks start on Sunday.
func nextWeekly(from civil.Date, r Weekly) civil.Date {
	if len(r.Weekdays) == 0 {
		return from.AddDays(7 * r.Every())
	}

	cur := int(Weekday(from))
	next, first := -1, 7
	for _, wd := range r.Weekdays {
		d := int(wd)
		if d > cur && (next < 0 || d < next) {
			next = d
		}
		if d < first {
			first = d
		}
	}
	if next >= 0 {
		return from.AddDays(next - cur)
	}
	return from.AddDays(7 - cur + first + (r.Every()-1)*7)
}

func nextMonthly(from civil.Date, r Monthly) civil.Date {
	year, month := addMonths(from.Year, from.Month, r.Every())
	length := daysIn(year, month)

	switch a := r.Anchor.(type) {
	case DayOfMonth:
		return civil.Date{Year: year, Month: month, Day: minInt(a.Day, length)}
	case NthWeekday:
		return nthWeekday(year, month, a)
	}
	return civil.Date{Year: year, Month: month, Day: minInt(from.Day, length)}
}

// nthWeekday counts forward from the 1st for a positive week, so a 5th
// weekday that does not exist lands in the following month.  LastWeek counts
// backward from the final day.
func nthWeekday(year int, month time.Month, a NthWeekday) civil.Date {
	if a.Week == LastWeek {
		last := civil.Date{Year: year, Month: month, Day: daysIn(year, month)}
		back := (int(Weekday(last)) - int(a.Weekday) + 7) % 7
		return last.AddDays(-back)
	}
	first := civil.Date{Year: year, Month: month, Day: 1}
	offset := (int(a.Weekday) - int(Weekday(first)) + 7) % 7
	week := a.Week
	if week < 1 {
		week = 1
	}
	return first.AddDays(offset + (week-1)*7)
}

// addMonths moves from the first of the month so no day overflow can leak
// into the month arithmetic.
func addMonths(year int, month time.Month, n int) (int, time.Month) {
	m := int(month) - 1 + n
	year += m / 12
	m %= 12
	if m < 0 {
		m += 12
		year--
	}
	return year, time.Month(m + 1)
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

//Personal.AI order the ending
