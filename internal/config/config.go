// Package config loads process configuration for the ftserve and ftclient
// commands from the environment, optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/gonzalop/ftransfer/internal/protocol"
)

// Config holds the settings shared by both commands.
type Config struct {
	ControlPort    int
	DataPort       int
	RootDir        string
	DownloadDir    string
	MaxLineLength  int
	BufferSize     int
	BandwidthLimit int64 // bytes per second, 0 = unlimited
	MaxSessions    int
	LogLevel       string
	LogFormat      string
}

// Load reads the optional .env files, then the FT_* environment variables.
// Missing variables keep their defaults; malformed numbers are errors.
func Load(envFiles ...string) (*Config, error) {
	// A missing .env is normal; a broken one is not.
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}

	cfg := &Config{
		RootDir:     getEnvOrDefault("FT_ROOT_DIR", "."),
		DownloadDir: getEnvOrDefault("FT_DOWNLOAD_DIR", "."),
		LogLevel:    getEnvOrDefault("FT_LOG_LEVEL", "info"),
		LogFormat:   getEnvOrDefault("FT_LOG_FORMAT", "text"),
	}

	ints := []struct {
		key  string
		def  int
		dest *int
	}{
		{"FT_CONTROL_PORT", protocol.DefaultControlPort, &cfg.ControlPort},
		{"FT_DATA_PORT", protocol.DefaultDataPort, &cfg.DataPort},
		{"FT_MAX_LINE", protocol.MaxLineLength, &cfg.MaxLineLength},
		{"FT_BUFFER_SIZE", protocol.FileBufferSize, &cfg.BufferSize},
		{"FT_MAX_SESSIONS", 1, &cfg.MaxSessions},
	}
	for _, v := range ints {
		n, err := getIntOrDefault(v.key, v.def)
		if err != nil {
			return nil, err
		}
		*v.dest = n
	}

	limit, err := getIntOrDefault("FT_BANDWIDTH_LIMIT", 0)
	if err != nil {
		return nil, err
	}
	cfg.BandwidthLimit = int64(limit)

	return cfg, nil
}

// Validate checks ranges after flags have been applied.
func (c *Config) Validate() error {
	if err := validPort("control port", c.ControlPort); err != nil {
		return err
	}
	if err := validPort("data port", c.DataPort); err != nil {
		return err
	}
	if c.ControlPort == c.DataPort {
		return fmt.Errorf("control and data ports must differ (both %d)", c.ControlPort)
	}
	if c.MaxLineLength <= len(protocol.Prompt) {
		return fmt.Errorf("max line length %d is too small", c.MaxLineLength)
	}
	if c.BufferSize <= 0 {
		return fmt.Errorf("buffer size must be positive, got %d", c.BufferSize)
	}
	if c.BandwidthLimit < 0 {
		return fmt.Errorf("bandwidth limit must not be negative, got %d", c.BandwidthLimit)
	}
	if c.MaxSessions < 1 {
		return fmt.Errorf("max sessions must be at least 1, got %d", c.MaxSessions)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q (want text or json)", c.LogFormat)
	}
	return nil
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	return level, nil
}

// Logger builds the process logger writing to w.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	level, err := c.Level()
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func validPort(name string, port int) error {
	if port <= 0 || port > 65535 {
		return fmt.Errorf("%s %d out of range", name, port)
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return n, nil
}
