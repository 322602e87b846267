package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/theirongolddev/hydrate/internal/config"
	"github.com/theirongolddev/hydrate/internal/daemon"
	"github.com/theirongolddev/hydrate/internal/logger"

	"github.com/spf13/cobra"
)

var (
	flagDaemonAddr         string
	flagDaemonCron         string
	flagDaemonDetach       bool
	flagDaemonPIDFile      string
	flagDaemonLogFile      string
	flagDaemonEventsBuffer int
	flagDaemonChild        bool
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the local HTTP/SSE API and midnight rollover",
	Args:  cobra.NoArgs,
	RunE:  runDaemon,
}

var daemonStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon process and API status",
	Args:  cobra.NoArgs,
	RunE:  runDaemonStatus,
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running daemon",
	Args:  cobra.NoArgs,
	RunE:  runDaemonStop,
}

func init() {
	defaultPID := filepath.Join(config.Dir(), "hydrated.pid")
	defaultLog := filepath.Join(config.Dir(), "logs", "hydrated.out")

	daemonCmd.PersistentFlags().StringVar(&flagDaemonAddr, "addr", "", "HTTP listen address (default from config)")
	daemonCmd.PersistentFlags().StringVar(&flagDaemonPIDFile, "pid-file", defaultPID, "PID file path")
	daemonCmd.Flags().StringVar(&flagDaemonLogFile, "log-file", defaultLog, "Output file for detached mode")
	daemonCmd.Flags().StringVar(&flagDaemonCron, "cron", "", "Rollover schedule with seconds field (default from config)")
	daemonCmd.Flags().IntVar(&flagDaemonEventsBuffer, "events-buffer", 0, "Max in-memory events retained (default from config)")

	daemonCmd.Flags().BoolVar(&flagDaemonDetach, "detach", false, "Run daemon as a background process")
	daemonCmd.Flags().BoolVar(&flagDaemonChild, "child", false, "Internal: mark detached child process")
	_ = daemonCmd.Flags().MarkHidden("child")

	daemonCmd.AddCommand(daemonStatusCmd)
	daemonCmd.AddCommand(daemonStopCmd)
	rootCmd.AddCommand(daemonCmd)
}

func runDaemon(_ *cobra.Command, _ []string) error {
	if flagDaemonDetach && flagDaemonChild {
		return errors.New("invalid daemon launch mode")
	}

	files := daemonFiles(flagDaemonPIDFile)
	if pid, alive, err := files.running(); err != nil {
		return err
	} else if alive {
		return fmt.Errorf("daemon already running (pid %d)", pid)
	}

	if flagDaemonDetach {
		return startDaemonDetached()
	}
	return runDaemonForeground(files)
}

// daemonConfig merges flags over the [daemon] config section.
func daemonConfig(cfg config.Config) daemon.Config {
	dc := daemon.Config{
		Addr:         cfg.Daemon.Addr,
		RolloverCron: cfg.Daemon.RolloverCron,
		EventsBuffer: cfg.Daemon.EventsBuffer,
	}
	if flagDaemonAddr != "" {
		dc.Addr = flagDaemonAddr
	}
	if flagDaemonCron != "" {
		dc.RolloverCron = flagDaemonCron
	}
	if flagDaemonEventsBuffer > 0 {
		dc.EventsBuffer = flagDaemonEventsBuffer
	}
	return dc
}

// daemonAddr is where status probes the API: the running daemon's state
// file first, then flags and config.
func daemonAddr(files daemonFiles) string {
	if st, err := files.readState(); err == nil && st.Addr != "" {
		return st.Addr
	}
	cfg, _ := config.Load()
	return daemonConfig(cfg).Addr
}

func startDaemonDetached() error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(flagDaemonLogFile), 0o750); err != nil {
		return fmt.Errorf("create daemon log directory: %w", err)
	}
	//nolint:gosec // daemon log path is configured by the local user
	out, err := os.OpenFile(flagDaemonLogFile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("open daemon log file: %w", err)
	}
	defer func() { _ = out.Close() }()

	child := exec.Command(exe, childArgs(os.Args[1:])...) //nolint:gosec // re-runs the current invocation
	child.Stdout = out
	child.Stderr = out
	child.Env = os.Environ()
	if err := child.Start(); err != nil {
		return fmt.Errorf("start detached daemon: %w", err)
	}

	fmt.Printf("  Started daemon (pid %d)\n", child.Process.Pid)
	fmt.Printf("  PID file: %s\n", flagDaemonPIDFile)
	fmt.Printf("  Output:   %s\n", flagDaemonLogFile)
	fmt.Println("  Check it with: hydrate daemon status")
	return child.Process.Release()
}

func runDaemonForeground(files daemonFiles) error {
	s := openSession()
	defer s.Close()

	dc := daemonConfig(s.cfg)
	dc.Location = s.loc

	var history daemon.HistorySource
	if s.store != nil {
		history = s.store
	}
	svc, err := daemon.New(dc, s.tracker, history)
	if err != nil {
		return err
	}

	if err := files.write(daemonRuntimeState{
		PID:       os.Getpid(),
		Addr:      dc.Addr,
		StartedAt: time.Now(),
		DBPath:    s.dbPath,
	}); err != nil {
		return err
	}
	defer files.remove()

	fmt.Printf("  hydrate daemon listening on http://%s\n", dc.Addr)
	fmt.Printf("  Rollover schedule %q (%s)\n", dc.RolloverCron, s.loc)
	fmt.Printf("  Stop with: hydrate daemon stop --pid-file %s\n", files.pidPath())

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := svc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("daemon stopped", "err", err)
		return err
	}
	return nil
}

func runDaemonStatus(_ *cobra.Command, _ []string) error {
	files := daemonFiles(flagDaemonPIDFile)
	pid, err := files.readPID()
	if err != nil {
		fmt.Println("  Daemon: not running")
		return nil
	}
	proc, alive := daemonProcess(pid)
	if !alive {
		fmt.Printf("  Daemon: stale pid file (pid %d not alive)\n", pid)
		return nil
	}

	addr := daemonAddr(files)
	fmt.Printf("  Daemon PID: %d (%s)\n", pid, proc.Executable())
	fmt.Printf("  Address: http://%s\n", addr)

	st, err := fetchStatus(addr)
	if err != nil {
		fmt.Printf("  API status: %v\n", err)
		return nil
	}

	fmt.Printf("  Up since: %s\n", st.StartedAt.Local().Format(time.RFC3339))
	fmt.Printf("  Today: %s\n", summaryLine(st.Today))
	if st.NextRollover.IsZero() {
		fmt.Println("  Next rollover: pending")
	} else {
		fmt.Printf("  Next rollover: %s\n", st.NextRollover.Local().Format(time.RFC3339))
	}
	if !st.LastRollover.IsZero() {
		fmt.Printf("  Last rollover: %s\n", st.LastRollover.Local().Format(time.RFC3339))
	}
	fmt.Printf("  Events: %d  ·  Subscribers: %d\n", st.EventCount, st.SubscriberCount)
	if st.LastError != "" {
		fmt.Printf("  Last error: %s\n", st.LastError)
	}
	return nil
}

func fetchStatus(addr string) (daemon.Status, error) {
	var st daemon.Status
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get("http://" + addr + "/v1/status") //nolint:noctx // short status probe
	if err != nil {
		return st, fmt.Errorf("unreachable (%w)", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return st, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return st, fmt.Errorf("malformed response (%w)", err)
	}
	return st, nil
}

func runDaemonStop(_ *cobra.Command, _ []string) error {
	files := daemonFiles(flagDaemonPIDFile)
	pid, alive, err := files.running()
	if err != nil {
		return err
	}
	if !alive {
		return errors.New("daemon is not running")
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("find daemon process: %w", err)
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("signal daemon process: %w", err)
	}

	deadline := time.Now().Add(8 * time.Second)
	for time.Now().Before(deadline) {
		if _, alive := daemonProcess(pid); !alive {
			files.remove()
			fmt.Printf("  Stopped daemon (pid %d)\n", pid)
			return nil
		}
		time.Sleep(150 * time.Millisecond)
	}
	return fmt.Errorf("daemon (pid %d) did not exit in time", pid)
}
