// Package model holds the records shared by the tracker, the store and the
// presentation layers.
package model

import "time"

// IntakeKind says how an intake entry came about.
type IntakeKind string

const (
	KindManual IntakeKind = "manual"
	KindPreset IntakeKind = "preset"
	KindReset  IntakeKind = "reset"
)

// Intake is one recorded change to the daily total.
type Intake struct {
	ID       string     `json:"id" yaml:"id"`
	At       time.Time  `json:"at" yaml:"at"`
	Day      string     `json:"day" yaml:"day"`
	AmountML float64    `json:"amount_ml" yaml:"amount_ml"`
	Kind     IntakeKind `json:"kind" yaml:"kind"`
}

// DayTotal is the final (or running) total for one calendar day.
type DayTotal struct {
	Date    string  `json:"date" yaml:"date"` // YYYY-MM-DD in the tracker's zone
	TotalML float64 `json:"total_ml" yaml:"total_ml"`
	GoalML  float64 `json:"goal_ml" yaml:"goal_ml"`
	Entries int     `json:"entries" yaml:"entries"`
}

// Progress returns TotalML/GoalML, or 0 for a non-positive goal.
func (d DayTotal) Progress() float64 {
	if d.GoalML <= 0 {
		return 0
	}
	return d.TotalML / d.GoalML
}

// Met reports whether the day's goal was reached.
func (d DayTotal) Met() bool {
	return d.GoalML > 0 && d.TotalML >= d.GoalML
}

// DayKey formats t as the date key used for DayTotal.Date.
func DayKey(t time.Time) string {
	return t.Format(time.DateOnly)
}
