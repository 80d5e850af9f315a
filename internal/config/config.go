package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type AppConfig struct {
	Input                string
	OnError              string
	StrictDisambiguation bool
	Verify               bool
	PNGDir               string
	SquareSize           int

	RedisURL    string
	SnapshotTTL time.Duration
	DatabaseURL string
	ArchiveDir  string

	SnapshotWSURL   string
	SnapshotHTTPURL string
	EgressMode      string
	EgressDryrun    bool
	EgressRetryMax  int

	HTTPAddr    string
	MessagesDir string
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		OnError:        "abort",
		SquareSize:     72,
		SnapshotTTL:    24 * time.Hour,
		EgressMode:     "auto",
		EgressRetryMax: 3,
		HTTPAddr:       ":8080",
	}

	cfg.Input = strings.TrimSpace(os.Getenv("REPLAY_INPUT"))
	if v := strings.TrimSpace(os.Getenv("REPLAY_ON_ERROR")); v != "" {
		cfg.OnError = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv("REPLAY_STRICT_DISAMBIGUATION")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.StrictDisambiguation = b
		}
	}
	if v := strings.TrimSpace(os.Getenv("REPLAY_VERIFY")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Verify = b
		}
	}
	cfg.PNGDir = strings.TrimSpace(os.Getenv("REPLAY_PNG_DIR"))
	if v := strings.TrimSpace(os.Getenv("REPLAY_SQUARE_SIZE")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.SquareSize = n
		}
	}

	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	cfg.ArchiveDir = strings.TrimSpace(os.Getenv("REPLAY_ARCHIVE_DIR"))
	if v := strings.TrimSpace(os.Getenv("REPLAY_SNAPSHOT_TTL_SEC")); v != "" { // seconds
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.SnapshotTTL = time.Duration(n) * time.Second
		}
	}

	cfg.SnapshotWSURL = strings.TrimSpace(os.Getenv("SNAPSHOT_WS_URL"))
	cfg.SnapshotHTTPURL = strings.TrimSpace(os.Getenv("SNAPSHOT_HTTP_URL"))
	if v := strings.TrimSpace(os.Getenv("SNAPSHOT_EGRESS_MODE")); v != "" {
		cfg.EgressMode = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv("SNAPSHOT_EGRESS_DRYRUN")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.EgressDryrun = b
		}
	}
	if v := strings.TrimSpace(os.Getenv("SNAPSHOT_RETRY_MAX")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.EgressRetryMax = n
		}
	}

	if v := strings.TrimSpace(os.Getenv("HTTP_ADDR")); v != "" {
		cfg.HTTPAddr = v
	}
	cfg.MessagesDir = strings.TrimSpace(os.Getenv("MESSAGES_DIR"))

	switch cfg.OnError {
	case "abort", "skip":
	default:
		return nil, fmt.Errorf("REPLAY_ON_ERROR must be abort or skip, got %q", cfg.OnError)
	}
	switch cfg.EgressMode {
	case "http", "ws", "auto":
	default:
		return nil, fmt.Errorf("SNAPSHOT_EGRESS_MODE must be http, ws or auto, got %q", cfg.EgressMode)
	}

	return cfg, nil
}

// HasEgress reports whether any remote snapshot endpoint is configured.
func (c *AppConfig) HasEgress() bool {
	return c.SnapshotWSURL != "" || c.SnapshotHTTPURL != ""
}
