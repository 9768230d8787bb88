package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/gonzalop/ftransfer/internal/protocol"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"FT_CONTROL_PORT", "FT_DATA_PORT", "FT_ROOT_DIR", "FT_LOG_LEVEL", "FT_MAX_SESSIONS"} {
		t.Setenv(key, "")
	}

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ControlPort != protocol.DefaultControlPort || cfg.DataPort != protocol.DefaultDataPort {
		t.Errorf("ports = %d/%d, want defaults", cfg.ControlPort, cfg.DataPort)
	}
	if cfg.RootDir != "." || cfg.MaxSessions != 1 || cfg.BufferSize != protocol.FileBufferSize {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoad_EnvFile(t *testing.T) {
	// Variables loaded from the file stay set for the rest of the process;
	// register them with t.Setenv so they are restored, then unset them so
	// godotenv does not skip them.
	t.Setenv("FT_CONTROL_PORT", "")
	t.Setenv("FT_DATA_PORT", "")
	t.Setenv("FT_LOG_FORMAT", "")
	os.Unsetenv("FT_CONTROL_PORT")
	os.Unsetenv("FT_DATA_PORT")
	os.Unsetenv("FT_LOG_FORMAT")

	envFile := filepath.Join(t.TempDir(), "test.env")
	content := "FT_CONTROL_PORT=4021\nFT_DATA_PORT=4020\nFT_LOG_FORMAT=json\n"
	if err := os.WriteFile(envFile, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(envFile)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ControlPort != 4021 || cfg.DataPort != 4020 || cfg.LogFormat != "json" {
		t.Errorf("env file not applied: %+v", cfg)
	}
}

func TestLoad_BadNumber(t *testing.T) {
	t.Setenv("FT_DATA_PORT", "twenty")
	if _, err := Load(filepath.Join(t.TempDir(), "missing.env")); err == nil {
		t.Fatal("expected an error for a malformed port")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()
	valid := func() *Config {
		return &Config{
			ControlPort: 30021, DataPort: 30020, MaxLineLength: 256, BufferSize: 4096,
			MaxSessions: 1, LogLevel: "info", LogFormat: "text",
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port zero", func(c *Config) { c.ControlPort = 0 }},
		{"port too large", func(c *Config) { c.DataPort = 70000 }},
		{"same ports", func(c *Config) { c.DataPort = c.ControlPort }},
		{"tiny line", func(c *Config) { c.MaxLineLength = 2 }},
		{"zero buffer", func(c *Config) { c.BufferSize = 0 }},
		{"negative bandwidth", func(c *Config) { c.BandwidthLimit = -1 }},
		{"no sessions", func(c *Config) { c.MaxSessions = 0 }},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }},
		{"bad format", func(c *Config) { c.LogFormat = "xml" }},
	}

	if err := valid().Validate(); err != nil {
		t.Fatalf("baseline should validate: %v", err)
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			if err := c.Validate(); err == nil {
				t.Error("expected a validation error")
			}
		})
	}
}

func TestLevel(t *testing.T) {
	t.Parallel()
	c := &Config{LogLevel: "debug"}
	level, err := c.Level()
	if err != nil || level != slog.LevelDebug {
		t.Errorf("Level() = %v, %v", level, err)
	}
}

func TestLoad_BrokenEnvFile(t *testing.T) {
	dir := t.TempDir()
	malformed := filepath.Join(dir, "bad.env")
	if err := os.WriteFile(malformed, []byte("NOT-A-KEY=1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		path string
	}{
		{"malformed", malformed},
		{"directory", dir},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(tt.path); err == nil {
				t.Errorf("Load(%s) succeeded, want error", tt.name)
			}
		})
	}
}
