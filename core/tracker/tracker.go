// Package tracker derives assembly report completion from the report list and the current week.
package tracker

import (
	"math"

	"github.com/skmethodistpj/laporan/core/report"
)

type WeekStatus string

const (
	Filled   WeekStatus = "FILLED"
	Current  WeekStatus = "CURRENT"
	PastDue  WeekStatus = "PAST_DUE"
	Upcoming WeekStatus = "UPCOMING"
)

type WeekState struct {
	Week    int        `json:"week"`
	Status  WeekStatus `json:"status"`
	Reports []string   `json:"reports,omitempty"` // ids
}

// Summary is the dashboard view of a Tracker.
type Summary struct {
	CurrentWeek   int         `json:"current_week"`
	TotalWeeks    int         `json:"total_weeks"`
	Filled        int         `json:"filled"`
	RawCount      int         `json:"raw_count"`
	Percentage    int         `json:"percentage"`
	RawPercentage int         `json:"raw_percentage"`
	Missed        int         `json:"missed"`
	PastDue       []int       `json:"past_due"`
	Weeks         []WeekState `json:"weeks"`
}

// Tracker is computed once from a snapshot of the list and never mutated.
type Tracker struct {
	currentWeek int
	totalWeeks  int
	rawCount    int
	byWeek      map[int][]string
}

func New(reports []report.Assembly, currentWeek, totalWeeks int) *Tracker {
	t := &Tracker{
		currentWeek: currentWeek,
		totalWeeks:  totalWeeks,
		rawCount:    len(reports),
		byWeek:      make(map[int][]string),
	}
	for _, r := range reports {
		if w, ok := r.Week(); ok {
			t.byWeek[w] = append(t.byWeek[w], r.ID)
		}
	}
	return t
}

func (t *Tracker) CurrentWeek() int { return t.currentWeek }
func (t *Tracker) TotalWeeks() int  { return t.totalWeeks }

// IsWeekFilled reports whether at least one report's parsed week equals w.
func (t *Tracker) IsWeekFilled(w int) bool {
	return len(t.byWeek[w]) > 0
}

// FilledCount is the number of distinct weeks in [1, total] with a report.
func (t *Tracker) FilledCount() int {
	var n int
	for w := range t.byWeek {
		if w >= 1 && w <= t.totalWeeks {
			n++
		}
	}
	return n
}

// RawCount is the number of reports, duplicates and out-of-range weeks included.
func (t *Tracker) RawCount() int { return t.rawCount }

// CompletionPercentage counts distinct filled weeks, so resubmitting a week cannot inflate it.
func (t *Tracker) CompletionPercentage() int {
	return percentage(t.FilledCount(), t.totalWeeks)
}

// RawCompletionPercentage is the figure computed from the raw report count. It can pass 100.
func (t *Tracker) RawCompletionPercentage() int {
	return percentage(t.rawCount, t.totalWeeks)
}

func (t *Tracker) MissedWeeks() int {
	if missed := t.currentWeek - t.FilledCount(); missed > 0 {
		return missed
	}
	return 0
}

func (t *Tracker) Status(w int) WeekStatus {
	switch {
	case t.IsWeekFilled(w):
		return Filled
	case w == t.currentWeek:
		return Current
	case w < t.currentWeek:
		return PastDue
	default:
		return Upcoming
	}
}

// Weeks returns the state of weeks 1 to total.
func (t *Tracker) Weeks() []WeekState {
	weeks := make([]WeekState, 0, t.totalWeeks)
	for w := 1; w <= t.totalWeeks; w++ {
		weeks = append(weeks, WeekState{Week: w, Status: t.Status(w), Reports: t.byWeek[w]})
	}
	return weeks
}

// PastDueWeeks lists the unfilled weeks before the current one.
func (t *Tracker) PastDueWeeks() []int {
	weeks := make([]int, 0)
	for w := 1; w < t.currentWeek && w <= t.totalWeeks; w++ {
		if !t.IsWeekFilled(w) {
			weeks = append(weeks, w)
		}
	}
	return weeks
}

func (t *Tracker) Summary() Summary {
	return Summary{
		CurrentWeek:   t.currentWeek,
		TotalWeeks:    t.totalWeeks,
		Filled:        t.FilledCount(),
		RawCount:      t.rawCount,
		Percentage:    t.CompletionPercentage(),
		RawPercentage: t.RawCompletionPercentage(),
		Missed:        t.MissedWeeks(),
		PastDue:       t.PastDueWeeks(),
		Weeks:         t.Weeks(),
	}
}

// percentage rounds half away from zero, like Math.round for positive values.
func percentage(n, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(n) / float64(total)))
}
