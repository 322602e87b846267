package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/theirongolddev/hydrate/internal/progress"
	"github.com/theirongolddev/hydrate/internal/quantity"
)

// Config holds all hydrate configuration.
type Config struct {
	General    GeneralConfig    `toml:"general"`
	Defaults   DefaultsConfig   `toml:"defaults"`
	Appearance AppearanceConfig `toml:"appearance"`
	Daemon     DaemonConfig     `toml:"daemon"`
	Log        LogConfig        `toml:"log"`
}

// GeneralConfig holds storage and time zone settings.
type GeneralConfig struct {
	DBPath   string `toml:"db_path,omitempty"`
	Timezone string `toml:"timezone,omitempty"` // IANA name; empty or "Local" means the system zone
}

// DefaultsConfig seeds a fresh database. Once values are stored they win.
type DefaultsConfig struct {
	Goal    string   `toml:"goal"`
	Unit    string   `toml:"unit"`
	Presets []string `toml:"presets"`
}

// AppearanceConfig holds theme settings.
type AppearanceConfig struct {
	Theme string `toml:"theme"`
}

// DaemonConfig holds local API settings.
type DaemonConfig struct {
	Addr         string `toml:"addr"`
	RolloverCron string `toml:"rollover_cron"`
	EventsBuffer int    `toml:"events_buffer"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Debug bool `toml:"debug"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Defaults: DefaultsConfig{
			Goal:    "3L",
			Unit:    "L",
			Presets: []string{"150ml", "250ml", "500ml"},
		},
		Appearance: AppearanceConfig{
			Theme: "flexoki-dark",
		},
		Daemon: DaemonConfig{
			Addr:         "127.0.0.1:8787",
			RolloverCron: "0 0 0 * * *",
			EventsBuffer: 200,
		},
	}
}

// Dir returns the XDG-compliant config directory.
func Dir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "hydrate")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "hydrate")
}

// Path returns the full path to the config file.
func Path() string {
	return filepath.Join(Dir(), "config.toml")
}

// DefaultDBPath is where the database lives unless configured otherwise.
func DefaultDBPath() string {
	return filepath.Join(Dir(), "hydrate.db")
}

// Load reads the config file, returning defaults if it doesn't exist.
// HYDRATE_DB and HYDRATE_TZ override the file.
func Load() (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(Path())
	if err != nil && !os.IsNotExist(err) {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err == nil {
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config: %w", err)
		}
	}

	if v := os.Getenv("HYDRATE_DB"); v != "" {
		cfg.General.DBPath = v
	}
	if v := os.Getenv("HYDRATE_TZ"); v != "" {
		cfg.General.Timezone = v
	}

	return cfg, nil
}

// Save writes the config to disk.
func Save(cfg Config) error {
	dir := Dir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.OpenFile(Path(), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	return enc.Encode(cfg)
}

// Exists returns true if a config file exists on disk.
func Exists() bool {
	_, err := os.Stat(Path())
	return err == nil
}

// DBPath returns the configured database path or the default one.
func (c Config) DBPath() string {
	if c.General.DBPath != "" {
		return expandHome(c.General.DBPath)
	}
	return DefaultDBPath()
}

// Location resolves the configured time zone.
func (c Config) Location() (*time.Location, error) {
	return LoadLocation(c.General.Timezone)
}

// LoadLocation loads an IANA zone. Empty and "Local" mean time.Local.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("loading time zone %q: %w", name, err)
	}
	return loc, nil
}

// TrackerDefaults converts the [defaults] section into tracker defaults.
// Entries that do not parse fall back to the built-in values.
func (c Config) TrackerDefaults() (progress.Defaults, []error) {
	d := progress.DefaultDefaults()
	var problems []error

	if c.Defaults.Unit != "" {
		if u, err := quantity.ParseUnit(c.Defaults.Unit); err == nil {
			d.Unit = u
		} else {
			problems = append(problems, fmt.Errorf("defaults.unit: %w", err))
		}
	}

	if c.Defaults.Goal != "" {
		q, err := quantity.Parse(c.Defaults.Goal, d.Unit)
		switch {
		case err != nil:
			problems = append(problems, fmt.Errorf("defaults.goal: %w", err))
		case q.ML() <= 0:
			problems = append(problems, fmt.Errorf("defaults.goal: %w", progress.ErrNonPositiveGoal))
		default:
			d.Goal = q.ML()
		}
	}

	for i, p := range c.Defaults.Presets {
		if i >= progress.NumPresets {
			problems = append(problems, fmt.Errorf("defaults.presets: only %d presets are used", progress.NumPresets))
			break
		}
		q, err := quantity.Parse(p, d.Unit)
		if err != nil || q.ML() <= 0 {
			problems = append(problems, fmt.Errorf("defaults.presets[%d]: invalid amount %q", i, p))
			continue
		}
		d.Presets[i] = strings.TrimSpace(p)
	}

	return d, problems
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}
