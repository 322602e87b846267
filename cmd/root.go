// Package cmd implements the hydrate CLI commands.
package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/theirongolddev/hydrate/internal/cli"
	"github.com/theirongolddev/hydrate/internal/config"
	"github.com/theirongolddev/hydrate/internal/logger"
	"github.com/theirongolddev/hydrate/internal/progress"
	"github.com/theirongolddev/hydrate/internal/store"

	"github.com/spf13/cobra"
)

var (
	flagDBPath string
	flagQuiet  bool
	flagDebug  bool
)

var rootCmd = &cobra.Command{
	Use:          "hydrate",
	Short:        "Daily water intake tracker",
	Long:         "Log what you drink, keep an eye on your daily goal, and start fresh every midnight.",
	SilenceUsage: true,
	RunE:         runStatus,
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDBPath, "db", "", "Database path (default from config)")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress warnings")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Verbose logging to stderr")
}

// session is what every tracker command works with.
type session struct {
	cfg     config.Config // as loaded; --db only affects dbPath
	dbPath  string
	loc     *time.Location
	tracker *progress.Tracker
	store   *store.Store // nil when the database could not be opened

	saveErrs []error
}

// openSession is the shared startup path: config, logging, database and a
// tracker that has already caught up with the calendar.
func openSession() *session {
	cfg, err := config.Load()
	if err != nil {
		warnf("%v (using defaults)", err)
	}
	dbPath := cfg.DBPath()
	if flagDBPath != "" {
		dbPath = flagDBPath
	}

	if err := logger.Init(logger.Config{Debug: flagDebug || cfg.Log.Debug, ConfigDir: config.Dir()}); err != nil {
		warnf("logging disabled: %v", err)
	}

	loc, err := cfg.Location()
	if err != nil {
		warnf("%v (using local time)", err)
		loc = time.Local
	}

	defaults, problems := cfg.TrackerDefaults()
	for _, p := range problems {
		warnf("config %v", p)
	}

	s := &session{cfg: cfg, loc: loc, dbPath: dbPath}
	opts := []progress.Option{progress.WithLocation(loc), progress.WithDefaults(defaults)}

	var gw progress.Gateway
	st, err := store.Open(dbPath)
	if err != nil {
		logger.Error("database unavailable", "path", dbPath, "err", err)
		warnf("database unavailable, changes will not be saved: %v", err)
		gw = progress.NewMemoryGateway(nil)
	} else {
		s.store = st
		gw = st
		opts = append(opts, progress.WithRecorder(st))
	}

	s.tracker = progress.Load(gw, opts...)
	if s.tracker.CheckRollover() {
		logger.Info("new day, total reset")
	}
	return s
}

func (s *session) Close() {
	if s.store != nil {
		_ = s.store.Close()
	}
}

// noteSave collects the write failure of the last mutation. Each mutation
// clears the tracker's error, so commands making several call this between
// them.
func (s *session) noteSave() {
	err := s.tracker.LastSaveError()
	if err == nil {
		return
	}
	for _, e := range s.saveErrs {
		if errors.Is(e, err) {
			return
		}
	}
	s.saveErrs = append(s.saveErrs, err)
}

// saveError joins every write failure seen during the command.
func (s *session) saveError() error {
	s.noteSave()
	return errors.Join(s.saveErrs...)
}

// saveWarning reports failed writes after the command's mutations.
func (s *session) saveWarning() {
	if err := s.saveError(); err != nil {
		warnf("change applied but not saved: %v", err)
	}
}

func warnf(format string, args ...any) {
	if flagQuiet {
		return
	}
	fmt.Fprintln(os.Stderr, cli.RenderWarning(fmt.Sprintf(format, args...)))
}

// summaryLine is the one-line progress readout printed after a change.
func summaryLine(snap progress.Snapshot) string {
	return fmt.Sprintf("%s / %s (%s)", snap.Level, snap.Goal, cli.FormatPercent(snap.Progress))
}
