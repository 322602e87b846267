package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/theirongolddev/hydrate/internal/cli"
	"github.com/theirongolddev/hydrate/internal/model"
	"github.com/theirongolddev/hydrate/internal/quantity"
	"github.com/theirongolddev/hydrate/internal/stats"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	flagHistoryDays   int
	flagHistoryFormat string
	flagHistoryDay    string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show daily totals against the goal",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&flagHistoryDays, "days", "n", 7, "Number of days to show (0 for all)")
	historyCmd.Flags().StringVarP(&flagHistoryFormat, "format", "f", "table", "Output format: table, json or yaml")
	historyCmd.Flags().StringVar(&flagHistoryDay, "day", "", "List the entries of one day (YYYY-MM-DD or today)")
	rootCmd.AddCommand(historyCmd)
}

var errNoDatabase = errors.New("history needs the database, which could not be opened")

func runHistory(_ *cobra.Command, _ []string) error {
	format, err := parseFormat(flagHistoryFormat)
	if err != nil {
		return err
	}

	s := openSession()
	defer s.Close()
	if s.store == nil {
		return errNoDatabase
	}
	unit := s.tracker.Unit()
	now := time.Now().In(s.loc)

	if flagHistoryDay != "" {
		day, err := resolveDay(flagHistoryDay, now)
		if err != nil {
			return err
		}
		intakes, err := s.store.Intakes(day)
		if err != nil {
			return fmt.Errorf("loading entries: %w", err)
		}
		return writeIntakes(os.Stdout, format, day, intakes, unit, s.loc)
	}

	days, err := s.store.History(flagHistoryDays)
	if err != nil {
		return fmt.Errorf("loading history: %w", err)
	}
	return writeHistory(os.Stdout, format, newHistoryReport(days, model.DayKey(now), flagHistoryDays), unit)
}

// historyReport is the --format json/yaml shape of `hydrate history`.
type historyReport struct {
	Days    []model.DayTotal   `json:"days" yaml:"days"`
	Summary model.SummaryStats `json:"summary" yaml:"summary"`
}

// newHistoryReport fills calendar gaps so every one of the last n days is
// listed, newest first.
func newHistoryReport(recorded []model.DayTotal, today string, n int) historyReport {
	days := stats.FillDays(recorded, today, n)
	if days == nil {
		days = []model.DayTotal{}
	}
	return historyReport{Days: days, Summary: stats.Summarize(days, today)}
}

func parseFormat(f string) (string, error) {
	switch f = strings.ToLower(strings.TrimSpace(f)); f {
	case "table", "json", "yaml":
		return f, nil
	case "yml":
		return "yaml", nil
	}
	return "", fmt.Errorf("unknown format %q (want table, json or yaml)", f)
}

// resolveDay accepts a YYYY-MM-DD key or "today".
func resolveDay(arg string, now time.Time) (string, error) {
	if strings.EqualFold(arg, "today") {
		return model.DayKey(now), nil
	}
	d, err := time.Parse(time.DateOnly, arg)
	if err != nil {
		return "", fmt.Errorf("invalid day %q (want YYYY-MM-DD)", arg)
	}
	return model.DayKey(d), nil
}

func writeHistory(w io.Writer, format string, r historyReport, unit quantity.Unit) error {
	switch format {
	case "json":
		return writeJSON(w, r)
	case "yaml":
		return writeYAML(w, r)
	}
	_, err := fmt.Fprint(w, "\n"+cli.RenderHistory(r.Days, unit)+cli.RenderSummary(r.Summary, unit))
	return err
}

func writeIntakes(w io.Writer, format, day string, intakes []model.Intake, unit quantity.Unit, loc *time.Location) error {
	if intakes == nil {
		intakes = []model.Intake{}
	}
	switch format {
	case "json":
		return writeJSON(w, intakes)
	case "yaml":
		return writeYAML(w, intakes)
	}
	out := "\n" + cli.RenderIntakes(day, intakes, unit)
	if len(intakes) > 0 {
		out += "\n" + cli.RenderHourly(stats.AggregateHourly(intakes, loc))
	}
	_, err := fmt.Fprint(w, out)
	return err
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
