package recurrence

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Fallback is the phrase used when a rule cannot be described.
const Fallback = "Recurring"

var shortWeekday = [...]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// Summarize renders rule as a short English phrase such as
// "Every 2 weeks on Mon, Wed" or "Monthly on the 3rd".
func Summarize(rule Rule) string {
	switch r := rule.(type) {
	case Daily:
		if r.Every() == 1 {
			return "Daily"
		}
		return fmt.Sprintf("Every %d days", r.Every())

	case Custom:
		return fmt.Sprintf("Every %d days", r.Every())

	case Weekly:
		return summarizeWeekly(r)

	case Monthly:
		return summarizeMonthly(r)
	}
	return Fallback
}

func summarizeWeekly(r Weekly) string {
	days := uniqueSorted(r.Weekdays)
	switch {
	case len(days) == 7:
		return "Every day"
	case isWorkWeek(days):
		return "Weekdays"
	}

	prefix := "Weekly"
	if r.Every() > 1 {
		prefix = fmt.Sprintf("Every %d weeks", r.Every())
	}
	if len(days) == 0 {
		return prefix
	}

	names := make([]string, len(days))
	for i, d := range days {
		names[i] = shortWeekday[d]
	}
	return prefix + " on " + strings.Join(names, ", ")
}

func summarizeMonthly(r Monthly) string {
	prefix := "Monthly"
	if r.Every() > 1 {
		prefix = fmt.Sprintf("Every %d months", r.Every())
	}

	switch a := r.Anchor.(type) {
	case DayOfMonth:
		return fmt.Sprintf("%s on the %s", prefix, Ordinal(a.Day))
	case NthWeekday:
		which := "last"
		if a.Week != LastWeek {
			which = Ordinal(a.Week)
		}
		return fmt.Sprintf("%s on the %s %s", prefix, which, a.Weekday)
	}
	return prefix
}

func isWorkWeek(days []time.Weekday) bool {
	if len(days) != 5 {
		return false
	}
	for i, d := range days {
		if d != time.Monday+time.Weekday(i) {
			return false
		}
	}
	return true
}

func uniqueSorted(in []time.Weekday) []time.Weekday {
	seen := make(map[time.Weekday]bool, len(in))
	out := make([]time.Weekday, 0, len(in))
	for _, d := range in {
		if d < time.Sunday || d > time.Saturday || seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// OrdinalSuffix returns "st", "nd", "rd" or "th" for n; 11, 12 and 13 take "th".
func OrdinalSuffix(n int) string {
	if n < 0 {
		n = -n
	}
	if rem := n % 100; rem >= 11 && rem <= 13 {
		return "th"
	}
	switch n % 10 {
	case 1:
		return "st"
	case 2:
		return "nd"
	case 3:
		return "rd"
	}
	return "th"
}

// Ordinal formats n with its suffix, e.g. 22 → "22nd".
func Ordinal(n int) string {
	return fmt.Sprintf("%d%s", n, OrdinalSuffix(n))
}

//Personal.AI order the ending
