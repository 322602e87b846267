// Package stats aggregates daily totals and intake logs for the history views.
package stats

import (
	"slices"
	"strings"
	"time"

	"github.com/theirongolddev/hydrate/internal/model"
)

// Summarize computes totals, averages and streaks over days. today is the
// current day key; an unfinished today that has not met its goal yet does
// not break the current streak.
func Summarize(days []model.DayTotal, today string) model.SummaryStats {
	var stats model.SummaryStats
	if len(days) == 0 {
		return stats
	}

	sorted := slices.Clone(days)
	slices.SortFunc(sorted, func(a, b model.DayTotal) int {
		return strings.Compare(b.Date, a.Date) // newest first
	})

	for _, d := range sorted {
		stats.Days++
		stats.TotalML += d.TotalML
		if d.Entries > 0 || d.TotalML != 0 {
			stats.ActiveDays++
		}
		if d.Met() {
			stats.MetDays++
		}
		if stats.BestDate == "" || d.TotalML > stats.BestML {
			stats.BestDate = d.Date
			stats.BestML = d.TotalML
		}
	}
	if stats.ActiveDays > 0 {
		stats.AverageML = stats.TotalML / float64(stats.ActiveDays)
	}

	stats.LongestStreak = longestStreak(sorted)
	stats.CurrentStreak = currentStreak(sorted, today)
	return stats
}

// longestStreak walks newest-first days and returns the longest run of
// consecutive calendar days that met their goal.
func longestStreak(sorted []model.DayTotal) int {
	longest, run := 0, 0
	prev := ""
	for _, d := range sorted {
		switch {
		case !d.Met():
			run = 0
		case run > 0 && prev != "" && d.Date == previousDay(prev):
			run++
		default:
			run = 1
		}
		prev = d.Date
		longest = max(longest, run)
	}
	return longest
}

func currentStreak(sorted []model.DayTotal, today string) int {
	expected := today
	streak := 0
	for _, d := range sorted {
		if d.Date > today {
			continue
		}
		if d.Date == today && !d.Met() {
			expected = previousDay(today)
			continue
		}
		if d.Date != expected || !d.Met() {
			break
		}
		streak++
		expected = previousDay(expected)
	}
	return streak
}

// FillDays returns one entry per calendar day from today back to the oldest
// recorded day, newest first, capped at limit days when limit > 0. Days
// without a record get a zero total and the goal of the closest older
// record, or of the newest one when there is none.
func FillDays(days []model.DayTotal, today string, limit int) []model.DayTotal {
	if len(days) == 0 {
		return days
	}
	end, err := time.Parse(time.DateOnly, today)
	if err != nil {
		return days
	}

	byDate := make(map[string]model.DayTotal, len(days))
	oldest, newest := days[0], days[0]
	for _, d := range days {
		byDate[d.Date] = d
		if d.Date < oldest.Date {
			oldest = d
		}
		if d.Date > newest.Date {
			newest = d
		}
	}
	start, err := time.Parse(time.DateOnly, oldest.Date)
	if err != nil || start.After(end) {
		return days
	}

	out := make([]model.DayTotal, 0, int(end.Sub(start).Hours()/24)+1)
	for day := end; !day.Before(start); day = day.AddDate(0, 0, -1) {
		if limit > 0 && len(out) == limit {
			break
		}
		key := model.DayKey(day)
		if d, ok := byDate[key]; ok {
			out = append(out, d)
			continue
		}
		out = append(out, model.DayTotal{Date: key, GoalML: goalBefore(days, key, newest.GoalML)})
	}
	return out
}

// goalBefore returns the goal of the newest record older than key.
func goalBefore(days []model.DayTotal, key string, fallback float64) float64 {
	best := ""
	goal := fallback
	for _, d := range days {
		if d.Date < key && d.Date > best {
			best = d.Date
			goal = d.GoalML
		}
	}
	return goal
}

// AggregateHourly buckets one day's intakes into 24 hours of loc. Reset
// entries are not intake and are skipped.
func AggregateHourly(intakes []model.Intake, loc *time.Location) []model.HourlyStats {
	if loc == nil {
		loc = time.Local
	}
	hours := make([]model.HourlyStats, 24)
	for i := range hours {
		hours[i].Hour = i
	}

	for _, in := range intakes {
		if in.Kind == model.KindReset || in.At.IsZero() {
			continue
		}
		h := in.At.In(loc).Hour()
		hours[h].Entries++
		if in.AmountML >= 0 {
			hours[h].AddedML += in.AmountML
		} else {
			hours[h].RemovedML -= in.AmountML
		}
	}
	return hours
}

func previousDay(key string) string {
	t, err := time.Parse(time.DateOnly, key)
	if err != nil {
		return ""
	}
	return model.DayKey(t.AddDate(0, 0, -1))
}
