// Package store keeps replay snapshots and summaries in Redis as JSON blobs
// with a sliding TTL.
package store

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/park285/chess-replay/pkg/replaydto"
)

const DefaultTTL = 24 * time.Hour

var ErrNotFound = errors.New("replay not found")

type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{rdb: rdb, ttl: ttl}
}

// Open dials redisURL and pings it.
func Open(ctx context.Context, redisURL string, ttl time.Duration) (*Store, error) {
	opts, err := ParseRedisURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewStore(rdb, ttl), nil
}

func (s *Store) Close() error {
	if s == nil || s.rdb == nil {
		return nil
	}
	return s.rdb.Close()
}

// ParseRedisURL accepts redis:// and rediss:// URLs with an optional /db path.
func ParseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("redis url has no host")
	}
	db := 0
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid redis db %q", p)
		}
		db = n
	}
	pass, _ := u.User.Password()
	opts := &redis.Options{Addr: u.Host, Username: u.User.Username(), Password: pass, DB: db}
	if u.Scheme == "rediss" {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12, ServerName: u.Hostname()}
	}
	return opts, nil
}

func keySnapshots(id string) string { return "replay:" + strings.TrimSpace(id) + ":snaps" }
func keySummary(id string) string   { return "replay:" + strings.TrimSpace(id) + ":summary" }
func keyIndex() string              { return "replay:index" }

func (s *Store) SaveSnapshot(ctx context.Context, snap replaydto.Snapshot) error {
	if strings.TrimSpace(snap.ReplayID) == "" {
		return fmt.Errorf("snapshot has no replay id")
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	key := keySnapshots(snap.ReplayID)
	pipe := s.rdb.TxPipeline()
	pipe.RPush(ctx, key, raw)
	pipe.Expire(ctx, key, s.ttl)
	pipe.ZAdd(ctx, keyIndex(), redis.Z{Score: float64(snap.CreatedAt.Unix()), Member: snap.ReplayID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save snapshot %s/%d: %w", snap.ReplayID, snap.Ply, err)
	}
	return nil
}

// Snapshots returns every stored snapshot for id in ply order.
func (s *Store) Snapshots(ctx context.Context, id string) ([]replaydto.Snapshot, error) {
	raws, err := s.rdb.LRange(ctx, keySnapshots(id), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if len(raws) == 0 {
		return nil, ErrNotFound
	}
	out := make([]replaydto.Snapshot, 0, len(raws))
	for _, raw := range raws {
		var snap replaydto.Snapshot
		if err := json.Unmarshal([]byte(raw), &snap); err != nil {
			return nil, fmt.Errorf("decode snapshot: %w", err)
		}
		out = append(out, snap)
	}
	return out, nil
}

func (s *Store) Latest(ctx context.Context, id string) (*replaydto.Snapshot, error) {
	raw, err := s.rdb.LIndex(ctx, keySnapshots(id), -1).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var snap replaydto.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}

func (s *Store) SaveSummary(ctx context.Context, sum *replaydto.Summary) error {
	if sum == nil || strings.TrimSpace(sum.ReplayID) == "" {
		return fmt.Errorf("summary has no replay id")
	}
	raw, err := json.Marshal(sum)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, keySummary(sum.ReplayID), raw, s.ttl).Err(); err != nil {
		return err
	}
	// keep the snapshot list alive as long as its summary
	_ = s.rdb.Expire(ctx, keySnapshots(sum.ReplayID), s.ttl).Err()
	return s.rdb.ZAdd(ctx, keyIndex(), redis.Z{Score: float64(sum.StartedAt.Unix()), Member: sum.ReplayID}).Err()
}

func (s *Store) LoadSummary(ctx context.Context, id string) (*replaydto.Summary, error) {
	raw, err := s.rdb.Get(ctx, keySummary(id)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var sum replaydto.Summary
	if err := json.Unmarshal(raw, &sum); err != nil {
		return nil, fmt.Errorf("decode summary: %w", err)
	}
	return &sum, nil
}

// IDs lists up to limit replay ids, newest first. Index entries whose data
// has expired are pruned on the way.
func (s *Store) IDs(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 50
	}
	ids, err := s.rdb.ZRevRange(ctx, keyIndex(), 0, int64(limit)-1).Result()
	if err != nil {
		return nil, err
	}
	out := ids[:0]
	for _, id := range ids {
		n, err := s.rdb.Exists(ctx, keySummary(id), keySnapshots(id)).Result()
		if err != nil {
			return nil, err
		}
		if n == 0 {
			_ = s.rdb.ZRem(ctx, keyIndex(), id).Err()
			continue
		}
		out = append(out, id)
	}
	return out, nil
}

// Consume stores the snapshot without its rendered image.
func (s *Store) Consume(ctx context.Context, snap replaydto.Snapshot) error {
	snap.Image = nil
	return s.SaveSnapshot(ctx, snap)
}

func (s *Store) Finish(ctx context.Context, sum *replaydto.Summary) error {
	return s.SaveSummary(ctx, sum)
}
