package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/theirongolddev/hydrate/internal/logger"

	"github.com/mitchellh/go-ps"
)

var findProcessFunc = ps.FindProcess

// daemonRuntimeState is written next to the pid file while the daemon runs.
type daemonRuntimeState struct {
	PID       int       `json:"pid"`
	Addr      string    `json:"addr"`
	StartedAt time.Time `json:"started_at"`
	DBPath    string    `json:"db_path"`
}

// daemonFiles names the pid file of one daemon and its state file.
type daemonFiles string

func (f daemonFiles) pidPath() string   { return string(f) }
func (f daemonFiles) statePath() string { return string(f) + ".json" }

// write records a running daemon. The state file is informational, so a
// failure there is only logged.
func (f daemonFiles) write(st daemonRuntimeState) error {
	if err := os.MkdirAll(filepath.Dir(f.pidPath()), 0o750); err != nil {
		return fmt.Errorf("create daemon directory: %w", err)
	}
	if err := os.WriteFile(f.pidPath(), []byte(strconv.Itoa(st.PID)+"\n"), 0o600); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err == nil {
		err = os.WriteFile(f.statePath(), append(data, '\n'), 0o600)
	}
	if err != nil {
		logger.Warn("writing daemon state", "path", f.statePath(), "err", err)
	}
	return nil
}

func (f daemonFiles) readPID() (int, error) {
	//nolint:gosec // daemon pid path is configured by the local user
	data, err := os.ReadFile(f.pidPath())
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("invalid pid in %s", f.pidPath())
	}
	return pid, nil
}

func (f daemonFiles) readState() (daemonRuntimeState, error) {
	var st daemonRuntimeState
	//nolint:gosec // daemon state path is configured by the local user
	data, err := os.ReadFile(f.statePath())
	if err != nil {
		return st, err
	}
	err = json.Unmarshal(data, &st)
	return st, err
}

func (f daemonFiles) remove() {
	_ = os.Remove(f.pidPath())
	_ = os.Remove(f.statePath())
}

// running returns the pid of a live daemon. Stale files are cleaned up.
func (f daemonFiles) running() (int, bool, error) {
	pid, err := f.readPID()
	if errors.Is(err, os.ErrNotExist) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	if _, alive := daemonProcess(pid); alive {
		return pid, true, nil
	}
	f.remove()
	return pid, false, nil
}

// daemonProcess looks pid up in the process table. A recycled pid that now
// belongs to some other program does not count as the daemon.
func daemonProcess(pid int) (ps.Process, bool) {
	proc, err := findProcessFunc(pid)
	if err != nil || proc == nil {
		return nil, false
	}
	if !strings.HasPrefix(filepath.Base(proc.Executable()), "hydrate") {
		return nil, false
	}
	return proc, true
}

// childArgs turns the current invocation into the detached child's.
func childArgs(args []string) []string {
	out := make([]string, 0, len(args)+1)
	for _, a := range args {
		if a == "--detach" || strings.HasPrefix(a, "--detach=") {
			continue
		}
		out = append(out, a)
	}
	return append(out, "--child")
}
