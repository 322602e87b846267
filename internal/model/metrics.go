package model

// SummaryStats holds the aggregate over a run of days.
type SummaryStats struct {
	Days       int `json:"days" yaml:"days"`
	ActiveDays int `json:"active_days" yaml:"active_days"` // days with at least one entry
	MetDays    int `json:"met_days" yaml:"met_days"`

	TotalML   float64 `json:"total_ml" yaml:"total_ml"`
	AverageML float64 `json:"average_ml" yaml:"average_ml"` // per active day

	BestDate string  `json:"best_date,omitempty" yaml:"best_date,omitempty"`
	BestML   float64 `json:"best_ml" yaml:"best_ml"`

	CurrentStreak int `json:"current_streak" yaml:"current_streak"`
	LongestStreak int `json:"longest_streak" yaml:"longest_streak"`
}

// HourlyStats holds the intake of one hour of a day.
type HourlyStats struct {
	Hour      int     `json:"hour" yaml:"hour"`
	AddedML   float64 `json:"added_ml" yaml:"added_ml"`
	RemovedML float64 `json:"removed_ml" yaml:"removed_ml"`
	Entries   int     `json:"entries" yaml:"entries"`
}

// NetML is what the hour contributed to the total.
func (h HourlyStats) NetML() float64 {
	return h.AddedML - h.RemovedML
}
