// Package schedule projects events and performances onto calendar and
// per-stage views. Everything here is pure: callers load the rows, the
// functions bucket and sort them.
//
// Dates are naive local calendar days; no timezone conversion happens
// during bucketing.
package schedule

import (
	"sort"
	"time"

	"github.com/festify/festify/internal/models"
)

// Span is the inclusive date interval an event occupies. A nil End
// means the event is single-day: the span is Start alone.
type Span struct {
	Start time.Time
	End   *time.Time
}

// EventSpan derives the span from an event's timestamps.
func EventSpan(e *models.Event) Span {
	span := Span{Start: dateOf(e.StartTime)}
	if e.EndTime != nil {
		end := dateOf(*e.EndTime)
		span.End = &end
	}
	return span
}

// Covers reports whether the span includes the given day.
func (s Span) Covers(day time.Time) bool {
	day = dateOf(day)
	start := dateOf(s.Start)
	end := start
	if s.End != nil {
		end = dateOf(*s.End)
	}
	return !day.Before(start) && !day.After(end)
}

// DaysCovered returns every day in the intersection of the span and the
// inclusive [winStart, winEnd] window, in order. The result is empty
// when the span and window are disjoint or the window is inverted.
func DaysCovered(span Span, winStart, winEnd time.Time) []time.Time {
	winStart = dateOf(winStart)
	winEnd = dateOf(winEnd)

	from := dateOf(span.Start)
	if from.Before(winStart) {
		from = winStart
	}
	to := dateOf(span.Start)
	if span.End != nil {
		to = dateOf(*span.End)
	}
	if to.After(winEnd) {
		to = winEnd
	}

	var days []time.Time
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// DayCell is one square of the calendar grid.
type DayCell struct {
	Date    time.Time       `json:"date"`
	InMonth bool            `json:"in_month"`
	Events  []*models.Event `json:"events"`
}

// MonthGrid builds the 7-column Monday-first calendar for a month. The
// grid includes the leading and trailing adjacent-month days needed to
// fill whole weeks, and every event whose span touches a cell's day is
// listed in that cell, adjacent-month cells included. A month with no
// events still yields the fully populated grid.
func MonthGrid(year int, month time.Month, events []*models.Event) [][]DayCell {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.Local)
	last := first.AddDate(0, 1, -1)

	gridStart := first.AddDate(0, 0, -mondayOffset(first))
	gridEnd := last.AddDate(0, 0, 6-mondayOffset(last))

	buckets := make(map[time.Time][]*models.Event)
	for _, e := range events {
		for _, day := range DaysCovered(EventSpan(e), gridStart, gridEnd) {
			buckets[day] = append(buckets[day], e)
		}
	}
	for _, bucket := range buckets {
		sortEvents(bucket)
	}

	var weeks [][]DayCell
	for d := gridStart; !d.After(gridEnd); d = d.AddDate(0, 0, 7) {
		week := make([]DayCell, 7)
		for i := 0; i < 7; i++ {
			day := d.AddDate(0, 0, i)
			week[i] = DayCell{
				Date:    day,
				InMonth: day.Month() == month && day.Year() == year,
				Events:  buckets[day],
			}
		}
		weeks = append(weeks, week)
	}
	return weeks
}

// StageSlot pairs a stage with its earliest performance for the day.
// Performance is nil for a stage with nothing scheduled; silent stages
// are reported explicitly, never omitted.
type StageSlot struct {
	Stage       models.Stage        `json:"stage"`
	Performance *models.Performance `json:"performance"`
}

// TodayLineup selects events whose span covers the given day, then for
// each stage picks the single performance with the earliest start time.
// Ties break to the lowest performance ID so the result is
// reproducible. Output follows stage display order.
func TodayLineup(today time.Time, events []*models.Event, performances []models.Performance, stages []models.Stage) []StageSlot {
	covered := make(map[uint]bool)
	for _, e := range events {
		if EventSpan(e).Covers(today) {
			covered[e.ID] = true
		}
	}

	earliest := make(map[uint]*models.Performance)
	for i := range performances {
		p := &performances[i]
		if !covered[p.EventID] {
			continue
		}
		best, ok := earliest[p.StageID]
		if !ok || p.StartTime < best.StartTime ||
			(p.StartTime == best.StartTime && p.ID < best.ID) {
			earliest[p.StageID] = p
		}
	}

	sorted := make([]models.Stage, len(stages))
	copy(sorted, stages)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].DisplayOrder != sorted[j].DisplayOrder {
			return sorted[i].DisplayOrder < sorted[j].DisplayOrder
		}
		return sorted[i].ID < sorted[j].ID
	})

	slots := make([]StageSlot, 0, len(sorted))
	for _, stage := range sorted {
		slots = append(slots, StageSlot{Stage: stage, Performance: earliest[stage.ID]})
	}
	return slots
}

// StageProgram orders one stage's performances by the owning event's
// start timestamp, then performance start time, then ID. Performances
// must have their Event loaded.
func StageProgram(performances []models.Performance) []models.Performance {
	sorted := make([]models.Performance, len(performances))
	copy(sorted, performances)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Event != nil && b.Event != nil && !a.Event.StartTime.Equal(b.Event.StartTime) {
			return a.Event.StartTime.Before(b.Event.StartTime)
		}
		if a.StartTime != b.StartTime {
			return a.StartTime < b.StartTime
		}
		return a.ID < b.ID
	})
	return sorted
}

// EventProgram orders one event's performances by stage display order,
// then start time, then ID. Performances must have their Stage loaded.
func EventProgram(performances []models.Performance) []models.Performance {
	sorted := make([]models.Performance, len(performances))
	copy(sorted, performances)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Stage != nil && b.Stage != nil && a.Stage.DisplayOrder != b.Stage.DisplayOrder {
			return a.Stage.DisplayOrder < b.Stage.DisplayOrder
		}
		if a.StartTime != b.StartTime {
			return a.StartTime < b.StartTime
		}
		return a.ID < b.ID
	})
	return sorted
}

// dateOf keeps the wall-clock calendar day and pins the location so
// days from differently-located timestamps compare and hash equal.
func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.Local)
}

// mondayOffset is the number of days since the most recent Monday.
func mondayOffset(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

func sortEvents(events []*models.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].StartTime.Equal(events[j].StartTime) {
			return events[i].StartTime.Before(events[j].StartTime)
		}
		return events[i].ID < events[j].ID
	})
}
