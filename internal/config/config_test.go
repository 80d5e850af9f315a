package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"REPLAY_INPUT", "REPLAY_ON_ERROR", "REPLAY_VERIFY", "REDIS_URL", "REPLAY_SNAPSHOT_TTL_SEC", "SNAPSHOT_EGRESS_MODE", "HTTP_ADDR", "SNAPSHOT_WS_URL", "SNAPSHOT_HTTP_URL"} {
		t.Setenv(k, "")
	}
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.OnError != "abort" || cfg.SnapshotTTL != 24*time.Hour || cfg.EgressMode != "auto" || cfg.HTTPAddr != ":8080" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.HasEgress() {
		t.Fatalf("no egress endpoint configured")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("REPLAY_ON_ERROR", "SKIP")
	t.Setenv("REPLAY_STRICT_DISAMBIGUATION", "true")
	t.Setenv("REPLAY_VERIFY", "1")
	t.Setenv("REPLAY_SNAPSHOT_TTL_SEC", "90")
	t.Setenv("REPLAY_SQUARE_SIZE", "not-a-number")
	t.Setenv("SNAPSHOT_HTTP_URL", " http://localhost:9000/snap ")
	t.Setenv("REPLAY_ARCHIVE_DIR", "/var/lib/replay")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.OnError != "skip" || !cfg.StrictDisambiguation || !cfg.Verify {
		t.Fatalf("flags not read: %+v", cfg)
	}
	if cfg.SnapshotTTL != 90*time.Second || cfg.SquareSize != 72 {
		t.Fatalf("ttl=%s square=%d", cfg.SnapshotTTL, cfg.SquareSize)
	}
	if cfg.ArchiveDir != "/var/lib/replay" {
		t.Fatalf("archive dir = %q", cfg.ArchiveDir)
	}
	if cfg.SnapshotHTTPURL != "http://localhost:9000/snap" || !cfg.HasEgress() {
		t.Fatalf("http url = %q", cfg.SnapshotHTTPURL)
	}
}

func TestLoadRejectsUnknownPolicy(t *testing.T) {
	t.Setenv("REPLAY_ON_ERROR", "retry")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error")
	}
	t.Setenv("REPLAY_ON_ERROR", "")
	t.Setenv("SNAPSHOT_EGRESS_MODE", "carrier-pigeon")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error")
	}
}
