package recurrence_test

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/taskboard/internal/domain/recurrence"
)

func date(t *testing.T, s string) civil.Date {
	t.Helper()
	d, err := civil.ParseDate(s)
	require.NoError(t, err)
	return d
}

// ─────────────────────────────────────────────────────────────────────────────
// Daily / Custom
// ─────────────────────────────────────────────────────────────────────────────

func TestNextOccurrence_DailyAndCustomAddInterval(t *testing.T) {
	t.Parallel()

	starts := []string{"2024-01-01", "2024-02-28", "2024-12-31", "2023-02-28"}
	for _, s := range starts {
		from := date(t, s)
		for n := 1; n <= 45; n++ {
			want := from.AddDays(n)
			assert.Equal(t, want, recurrence.NextOccurrence(from, recurrence.Daily{Interval: n}), "daily %s +%d", s, n)
			assert.Equal(t, want, recurrence.NextOccurrence(from, recurrence.Custom{Interval: n}), "custom %s +%d", s, n)
		}
	}
}

func TestNextOccurrence_ZeroIntervalTreatedAsOne(t *testing.T) {
	t.Parallel()

	from := date(t, "2024-03-10")
	assert.Equal(t, date(t, "2024-03-11"), recurrence.NextOccurrence(from, recurrence.Daily{}))
	assert.Equal(t, date(t, "2024-03-17"), recurrence.NextOccurrence(from, recurrence.Weekly{}))
}

func TestNextOccurrence_DailyCrossesYear(t *testing.T) {
	t.Parallel()

	got := recurrence.NextOccurrence(date(t, "2024-12-31"), recurrence.Daily{Interval: 1})
	assert.Equal(t, "2025-01-01", got.String())
}

// ─────────────────────────────────────────────────────────────────────────────
// Weekly
// ─────────────────────────────────────────────────────────────────────────────

func TestNextOccurrence_Weekly(t *testing.T) {
	t.Parallel()

	monWedFri := []time.Weekday{time.Monday, time.Wednesday, time.Friday}

	cases := []struct {
		name string
		rule recurrence.Weekly
		from string
		want string
	}{
		{"no weekdays adds whole weeks", recurrence.Weekly{Interval: 1}, "2024-03-06", "2024-03-13"},
		{"no weekdays interval 3", recurrence.Weekly{Interval: 3}, "2024-03-06", "2024-03-27"},
		{"wednesday to friday same week", recurrence.Weekly{Interval: 1, Weekdays: monWedFri}, "2024-03-06", "2024-03-08"},
		{"friday wraps to monday", recurrence.Weekly{Interval: 1, Weekdays: monWedFri}, "2024-03-08", "2024-03-11"},
		{"monday to wednesday", recurrence.Weekly{Interval: 1, Weekdays: monWedFri}, "2024-03-04", "2024-03-06"},
		{"sunday before set", recurrence.Weekly{Interval: 1, Weekdays: monWedFri}, "2024-03-03", "2024-03-04"},
		{"single day interval 2", recurrence.Weekly{Interval: 2, Weekdays: []time.Weekday{time.Monday}}, "2024-03-04", "2024-03-18"},
		{"interval 2 advances within week first", recurrence.Weekly{Interval: 2, Weekdays: monWedFri}, "2024-03-06", "2024-03-08"},
		{"interval 2 wrap skips a week", recurrence.Weekly{Interval: 2, Weekdays: monWedFri}, "2024-03-08", "2024-03-18"},
		{"saturday wraps to sunday", recurrence.Weekly{Interval: 1, Weekdays: []time.Weekday{time.Sunday, time.Saturday}}, "2024-03-09", "2024-03-10"},
		{"sunday to saturday", recurrence.Weekly{Interval: 1, Weekdays: []time.Weekday{time.Sunday, time.Saturday}}, "2024-03-10", "2024-03-16"},
		{"unsorted set", recurrence.Weekly{Interval: 1, Weekdays: []time.Weekday{time.Friday, time.Monday}}, "2024-03-05", "2024-03-08"},
		{"across year boundary", recurrence.Weekly{Interval: 1, Weekdays: []time.Weekday{time.Tuesday}}, "2024-12-31", "2025-01-07"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := recurrence.NextOccurrence(date(t, tc.from), tc.rule)
			assert.Equal(t, tc.want, got.String())
		})
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Monthly
// ─────────────────────────────────────────────────────────────────────────────

func TestNextOccurrence_Monthly(t *testing.T) {
	t.Parallel()

	lastFriday := recurrence.NthWeekday{Week: recurrence.LastWeek, Weekday: time.Friday}

	cases := []struct {
		name string
		rule recurrence.Monthly
		from string
		want string
	}{
		{"day 31 clamps to leap february", recurrence.Monthly{Interval: 1, Anchor: recurrence.DayOfMonth{Day: 31}}, "2024-01-31", "2024-02-29"},
		{"day 31 clamps to february", recurrence.Monthly{Interval: 1, Anchor: recurrence.DayOfMonth{Day: 31}}, "2023-01-31", "2023-02-28"},
		{"day 31 restores in march", recurrence.Monthly{Interval: 1, Anchor: recurrence.DayOfMonth{Day: 31}}, "2024-02-29", "2024-03-31"},
		{"absolute day ignores from day", recurrence.Monthly{Interval: 1, Anchor: recurrence.DayOfMonth{Day: 15}}, "2024-01-31", "2024-02-15"},
		{"absolute interval 3", recurrence.Monthly{Interval: 3, Anchor: recurrence.DayOfMonth{Day: 3}}, "2024-11-03", "2025-02-03"},
		{"same day clamps", recurrence.Monthly{Interval: 1, Anchor: recurrence.SameDay{}}, "2024-01-31", "2024-02-29"},
		{"same day stays clamped", recurrence.Monthly{Interval: 1, Anchor: recurrence.SameDay{}}, "2024-02-29", "2024-03-29"},
		{"nil anchor is same day", recurrence.Monthly{Interval: 1}, "2024-05-20", "2024-06-20"},
		{"same day interval 2 across year", recurrence.Monthly{Interval: 2, Anchor: recurrence.SameDay{}}, "2024-12-31", "2025-02-28"},
		{"same day interval 12 from leap day", recurrence.Monthly{Interval: 12, Anchor: recurrence.SameDay{}}, "2024-02-29", "2025-02-28"},
		{"last friday of march", recurrence.Monthly{Interval: 1, Anchor: lastFriday}, "2024-02-10", "2024-03-29"},
		{"last friday of april", recurrence.Monthly{Interval: 1, Anchor: lastFriday}, "2024-03-29", "2024-04-26"},
		{"last day is the weekday", recurrence.Monthly{Interval: 1, Anchor: recurrence.NthWeekday{Week: recurrence.LastWeek, Weekday: time.Sunday}}, "2024-02-01", "2024-03-31"},
		{"second tuesday", recurrence.Monthly{Interval: 1, Anchor: recurrence.NthWeekday{Week: 2, Weekday: time.Tuesday}}, "2024-01-09", "2024-02-13"},
		{"first monday when first is monday", recurrence.Monthly{Interval: 1, Anchor: recurrence.NthWeekday{Week: 1, Weekday: time.Monday}}, "2023-12-04", "2024-01-01"},
		{"fifth friday spills into next month", recurrence.Monthly{Interval: 1, Anchor: recurrence.NthWeekday{Week: 5, Weekday: time.Friday}}, "2024-01-15", "2024-03-01"},
		{"third thursday interval 2", recurrence.Monthly{Interval: 2, Anchor: recurrence.NthWeekday{Week: 3, Weekday: time.Thursday}}, "2024-11-21", "2025-01-16"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := recurrence.NextOccurrence(date(t, tc.from), tc.rule)
			assert.Equal(t, tc.want, got.String())
		})
	}
}

func TestNextOccurrence_LastFridayFromAnyFebruaryDate(t *testing.T) {
	t.Parallel()

	rule := recurrence.Monthly{Interval: 1, Anchor: recurrence.NthWeekday{Week: recurrence.LastWeek, Weekday: time.Friday}}
	for d := date(t, "2024-02-01"); d.Month == time.February; d = d.AddDays(1) {
		assert.Equal(t, "2024-03-29", recurrence.NextOccurrence(d, rule).String(), "from %s", d)
	}
}

func TestNextOccurrence_NilRuleReturnsFrom(t *testing.T) {
	t.Parallel()

	from := date(t, "2024-07-01")
	assert.Equal(t, from, recurrence.NextOccurrence(from, nil))
}

// ─────────────────────────────────────────────────────────────────────────────
// Occurrences
// ─────────────────────────────────────────────────────────────────────────────

func TestOccurrences_MonthlyAbsoluteAcrossYearMatchesSummary(t *testing.T) {
	t.Parallel()

	rule := recurrence.Monthly{Interval: 1, Anchor: recurrence.DayOfMonth{Day: 15}}
	got := recurrence.Occurrences(date(t, "2024-11-15"), rule, 3)

	require.Len(t, got, 3)
	assert.Equal(t, []string{"2024-12-15", "2025-01-15", "2025-02-15"},
		[]string{got[0].String(), got[1].String(), got[2].String()})

	assert.Equal(t, "Monthly on the 15th", recurrence.Summarize(rule))
	for i, d := range got {
		assert.Equal(t, 15, d.Day)
		if i > 0 {
			assert.True(t, got[i-1].Before(d))
		}
	}
}

func TestOccurrences_ChainsFromPrevious(t *testing.T) {
	t.Parallel()

	rule := recurrence.Monthly{Interval: 1, Anchor: recurrence.SameDay{}}
	got := recurrence.Occurrences(date(t, "2024-01-31"), rule, 3)
	require.Len(t, got, 3)
	// Same-day clamping is sticky because each step starts from the previous result.
	assert.Equal(t, "2024-02-29", got[0].String())
	assert.Equal(t, "2024-03-29", got[1].String())
	assert.Equal(t, "2024-04-29", got[2].String())
}

func TestOccurrences_Empty(t *testing.T) {
	t.Parallel()

	assert.Empty(t, recurrence.Occurrences(date(t, "2024-01-01"), recurrence.Daily{Interval: 1}, 0))
	assert.Empty(t, recurrence.Occurrences(date(t, "2024-01-01"), nil, 3))
}

func TestWeekday(t *testing.T) {
	t.Parallel()

	assert.Equal(t, time.Friday, recurrence.Weekday(date(t, "2024-03-01")))
	assert.Equal(t, time.Monday, recurrence.Weekday(date(t, "2024-01-01")))
}

//Personal.AI order the ending
