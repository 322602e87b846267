package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/theirongolddev/hydrate/internal/quantity"
)

func useTempConfigDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("HYDRATE_DB", "")
	t.Setenv("HYDRATE_TZ", "")
	return filepath.Join(dir, "hydrate")
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	dir := useTempConfigDir(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if Exists() {
		t.Error("Exists() = true with no file")
	}
	if cfg.Daemon.RolloverCron != "0 0 0 * * *" {
		t.Errorf("RolloverCron = %q", cfg.Daemon.RolloverCron)
	}
	if cfg.Appearance.Theme != "flexoki-dark" {
		t.Errorf("Theme = %q", cfg.Appearance.Theme)
	}
	if got, want := cfg.DBPath(), filepath.Join(dir, "hydrate.db"); got != want {
		t.Errorf("DBPath() = %q, want %q", got, want)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	useTempConfigDir(t)

	cfg := DefaultConfig()
	cfg.Defaults.Goal = "2.5L"
	cfg.Defaults.Unit = "oz"
	cfg.Appearance.Theme = "tokyo-night"
	cfg.General.Timezone = "UTC"
	cfg.Log.Debug = true

	if err := Save(cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !Exists() {
		t.Fatal("Exists() = false after Save")
	}

	got, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Defaults.Goal != "2.5L" || got.Defaults.Unit != "oz" || got.Appearance.Theme != "tokyo-night" {
		t.Errorf("loaded = %+v", got)
	}
	if !got.Log.Debug {
		t.Error("Log.Debug lost in round trip")
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	dir := useTempConfigDir(t)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	data := "[appearance]\ntheme = \"catppuccin-mocha\"\n"
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Appearance.Theme != "catppuccin-mocha" {
		t.Errorf("Theme = %q", cfg.Appearance.Theme)
	}
	if cfg.Daemon.Addr != "127.0.0.1:8787" {
		t.Errorf("Daemon.Addr = %q, want default", cfg.Daemon.Addr)
	}
}

func TestLoad_InvalidTOML(t *testing.T) {
	dir := useTempConfigDir(t)
	_ = os.MkdirAll(dir, 0o755)
	_ = os.WriteFile(filepath.Join(dir, "config.toml"), []byte("[general\n"), 0o600)

	if _, err := Load(); err == nil {
		t.Error("Load() succeeded on malformed TOML")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	useTempConfigDir(t)
	t.Setenv("HYDRATE_DB", "/tmp/elsewhere.db")
	t.Setenv("HYDRATE_TZ", "Europe/Berlin")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DBPath() != "/tmp/elsewhere.db" {
		t.Errorf("DBPath() = %q", cfg.DBPath())
	}
	if cfg.General.Timezone != "Europe/Berlin" {
		t.Errorf("Timezone = %q", cfg.General.Timezone)
	}
}

func TestLoadLocation(t *testing.T) {
	tests := []struct {
		name    string
		wantErr bool
		want    *time.Location
	}{
		{"", false, time.Local},
		{"Local", false, time.Local},
		{"UTC", false, time.UTC},
		{"Not/AZone", true, nil},
	}
	for _, tt := range tests {
		loc, err := LoadLocation(tt.name)
		if (err != nil) != tt.wantErr {
			t.Errorf("LoadLocation(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			continue
		}
		if tt.want != nil && loc != tt.want {
			t.Errorf("LoadLocation(%q) = %v, want %v", tt.name, loc, tt.want)
		}
	}
}

func TestTrackerDefaults(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Defaults.Unit = "oz"
	cfg.Defaults.Goal = "100"
	cfg.Defaults.Presets = []string{"8oz", "nope", "0", "12oz"}

	d, problems := cfg.TrackerDefaults()

	if d.Unit != quantity.Ounces {
		t.Errorf("Unit = %s, want Ounces", d.Unit)
	}
	if want := 100 * quantity.OunceFactor; math.Abs(d.Goal-want) > 1e-9 {
		t.Errorf("Goal = %v, want %v", d.Goal, want)
	}
	if d.Presets != [3]string{"8oz", "250ml", "500ml"} {
		t.Errorf("Presets = %v", d.Presets)
	}
	if len(problems) != 3 {
		t.Errorf("problems = %v, want 3", problems)
	}
}

func TestTrackerDefaults_BuiltIn(t *testing.T) {
	d, problems := DefaultConfig().TrackerDefaults()
	if len(problems) != 0 {
		t.Fatalf("problems = %v", problems)
	}
	if d.Goal != 3000 || d.Unit != quantity.Liters {
		t.Errorf("defaults = %+v", d)
	}
}
