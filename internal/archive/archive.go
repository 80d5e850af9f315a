// Package archive keeps replays in an embedded Badger database so a run can
// be inspected later without Redis or PostgreSQL.
package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/park285/chess-replay/pkg/replaydto"
)

var ErrNotFound = errors.New("replay not in archive")

const (
	summaryPrefix  = "summary/"
	snapshotPrefix = "snap/"
)

type Archive struct {
	db *badger.DB
}

// Open opens (or creates) the database in dir. An empty dir keeps everything
// in memory.
func Open(dir string) (*Archive, error) {
	opts := badger.DefaultOptions(dir)
	if strings.TrimSpace(dir) == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	return &Archive{db: db}, nil
}

func (a *Archive) Close() error {
	if a == nil || a.db == nil {
		return nil
	}
	return a.db.Close()
}

func summaryKey(id string) []byte { return []byte(summaryPrefix + strings.TrimSpace(id)) }

func snapshotsKeyPrefix(id string) []byte {
	return []byte(snapshotPrefix + strings.TrimSpace(id) + "/")
}

// snapshotKey zero-pads the ply so key order is ply order.
func snapshotKey(id string, ply int) []byte {
	return append(snapshotsKeyPrefix(id), fmt.Sprintf("%06d", ply)...)
}

func (a *Archive) SaveSnapshot(snap replaydto.Snapshot) error {
	if strings.TrimSpace(snap.ReplayID) == "" {
		return fmt.Errorf("snapshot has no replay id")
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return a.db.Update(func(txn *badger.Txn) error {
		return txn.Set(snapshotKey(snap.ReplayID, snap.Ply), data)
	})
}

func (a *Archive) SaveSummary(sum *replaydto.Summary) error {
	if sum == nil || strings.TrimSpace(sum.ReplayID) == "" {
		return fmt.Errorf("summary has no replay id")
	}
	data, err := json.Marshal(sum)
	if err != nil {
		return err
	}
	return a.db.Update(func(txn *badger.Txn) error {
		return txn.Set(summaryKey(sum.ReplayID), data)
	})
}

func (a *Archive) LoadSummary(id string) (*replaydto.Summary, error) {
	var sum replaydto.Summary
	err := a.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(summaryKey(id))
		if err == badger.ErrKeyNotFound {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &sum)
		})
	})
	if err != nil {
		return nil, err
	}
	return &sum, nil
}

// Snapshots returns the stored snapshots of id in ply order.
func (a *Archive) Snapshots(id string) ([]replaydto.Snapshot, error) {
	var out []replaydto.Snapshot
	prefix := snapshotsKeyPrefix(id)
	err := a.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var snap replaydto.Snapshot
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &snap)
			}); err != nil {
				return fmt.Errorf("decode snapshot: %w", err)
			}
			out = append(out, snap)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return out, nil
}

// Summaries lists archived summaries, newest first.
func (a *Archive) Summaries(limit int) ([]replaydto.Summary, error) {
	var out []replaydto.Summary
	prefix := []byte(summaryPrefix)
	err := a.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var sum replaydto.Summary
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &sum)
			}); err != nil {
				return fmt.Errorf("decode summary: %w", err)
			}
			out = append(out, sum)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Consume archives the snapshot without its rendered image.
func (a *Archive) Consume(_ context.Context, snap replaydto.Snapshot) error {
	snap.Image = nil
	return a.SaveSnapshot(snap)
}

func (a *Archive) Finish(_ context.Context, sum *replaydto.Summary) error {
	return a.SaveSummary(sum)
}
