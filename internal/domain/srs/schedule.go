// Package srs implements the fixed spacing schedule used to derive the next
// review date for a topic from how many repetitions it has accumulated.
package srs

import "time"

// defaultIntervals holds the spacing schedule in days, indexed by repetition
// ordinal. Ordinals past the end of the table reuse the last entry.
var defaultIntervals = []int{1, 3, 7, 14, 30, 60}

// Schedule maps repetition ordinals to review intervals.
type Schedule struct {
	intervals []int
}

// NewDefaultSchedule returns the standard spacing schedule.
func NewDefaultSchedule() *Schedule {
	return &Schedule{intervals: defaultIntervals}
}

// NewSchedule returns a schedule with custom intervals. An empty slice falls
// back to the defaults.
func NewSchedule(intervals []int) *Schedule {
	if len(intervals) == 0 {
		return NewDefaultSchedule()
	}
	return &Schedule{intervals: intervals}
}

// IntervalDays returns the interval in days for the given repetition ordinal,
// where ordinal 0 is the first completed repetition.
func (s *Schedule) IntervalDays(ordinal int) int {
	if ordinal < 0 {
		ordinal = 0
	}
	if ordinal >= len(s.intervals) {
		ordinal = len(s.intervals) - 1
	}
	return s.intervals[ordinal]
}

// NextReviewDate returns when a topic should next be reviewed given the
// ordinal of the repetition just completed and the completion time.
func (s *Schedule) NextReviewDate(ordinal int, completedAt time.Time) time.Time {
	return completedAt.AddDate(0, 0, s.IntervalDays(ordinal))
}
