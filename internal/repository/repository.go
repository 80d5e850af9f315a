// Package repository archives finished replays in PostgreSQL.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/park285/chess-replay/pkg/replaydto"
)

var ErrNotFound = errors.New("archived replay not found")

const Schema = `CREATE TABLE IF NOT EXISTS replays (
    replay_id   TEXT PRIMARY KEY,
    source      TEXT NOT NULL DEFAULT '',
    plies       INTEGER NOT NULL,
    tokens      JSONB NOT NULL,
    errors      JSONB NOT NULL,
    final_rows  JSONB NOT NULL,
    white_king  TEXT NOT NULL,
    black_king  TEXT NOT NULL,
    result      TEXT NOT NULL,
    eco         TEXT NOT NULL DEFAULT '',
    opening     TEXT NOT NULL DEFAULT '',
    aborted     BOOLEAN NOT NULL DEFAULT FALSE,
    pgn         TEXT NOT NULL,
    started_at  TIMESTAMPTZ NOT NULL,
    ended_at    TIMESTAMPTZ NOT NULL,
    duration_ms BIGINT NOT NULL
)`

// Record is one archived replay.
type Record struct {
	Summary *replaydto.Summary
	Source  string
	PGN     string
}

type Repository struct {
	db     *sql.DB
	source string
}

func NewRepository(databaseURL string) (*Repository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Repository{db: db}, nil
}

// WithSource labels replays archived through Finish (typically the input path).
func (r *Repository) WithSource(source string) *Repository {
	if r == nil {
		return nil
	}
	cp := *r
	cp.source = source
	return &cp
}

func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

func (r *Repository) EnsureSchema(ctx context.Context) error {
	if r == nil || r.db == nil {
		return nil
	}
	_, err := r.db.ExecContext(ctx, Schema)
	return err
}

// SaveReplay upserts a replay summary keyed by its id.
func (r *Repository) SaveReplay(ctx context.Context, sum *replaydto.Summary, source string) error {
	if r == nil || r.db == nil || sum == nil {
		return nil
	}
	tokensRaw, err := json.Marshal(nonNil(sum.Tokens))
	if err != nil {
		return err
	}
	errorsRaw, err := json.Marshal(nonNilErrors(sum.Errors))
	if err != nil {
		return err
	}
	rowsRaw, err := json.Marshal(nonNil(sum.Rows))
	if err != nil {
		return err
	}
	result := mapResultToPGN(sum.Result)
	duration := sum.EndedAt.Sub(sum.StartedAt).Milliseconds()
	if duration < 0 {
		duration = 0
	}

	q := `INSERT INTO replays (
        replay_id, source, plies, tokens, errors, final_rows,
        white_king, black_king, result, eco, opening, aborted, pgn,
        started_at, ended_at, duration_ms
      ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16
      ) ON CONFLICT (replay_id) DO UPDATE SET
        source=EXCLUDED.source,
        plies=EXCLUDED.plies,
        tokens=EXCLUDED.tokens,
        errors=EXCLUDED.errors,
        final_rows=EXCLUDED.final_rows,
        white_king=EXCLUDED.white_king,
        black_king=EXCLUDED.black_king,
        result=EXCLUDED.result,
        eco=EXCLUDED.eco,
        opening=EXCLUDED.opening,
        aborted=EXCLUDED.aborted,
        pgn=EXCLUDED.pgn,
        started_at=EXCLUDED.started_at,
        ended_at=EXCLUDED.ended_at,
        duration_ms=EXCLUDED.duration_ms`

	_, err = r.db.ExecContext(ctx, q,
		sum.ReplayID, strings.TrimSpace(source), sum.Plies,
		string(tokensRaw), string(errorsRaw), string(rowsRaw),
		sum.WhiteKing, sum.BlackKing, result, sum.ECO, sum.Opening, sum.Aborted, buildPGN(sum, source),
		sum.StartedAt, sum.EndedAt, duration,
	)
	if err != nil {
		return fmt.Errorf("save replay %s: %w", sum.ReplayID, err)
	}
	return nil
}

func (r *Repository) GetReplay(ctx context.Context, id string) (*Record, error) {
	if r == nil || r.db == nil {
		return nil, ErrNotFound
	}
	q := `SELECT replay_id, source, plies, tokens, errors, final_rows,
        white_king, black_king, result, eco, opening, aborted, pgn, started_at, ended_at
      FROM replays WHERE replay_id = $1`

	var (
		rec                           Record
		sum                           replaydto.Summary
		tokensRaw, errorsRaw, rowsRaw []byte
		result                        string
	)
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&sum.ReplayID, &rec.Source, &sum.Plies, &tokensRaw, &errorsRaw, &rowsRaw,
		&sum.WhiteKing, &sum.BlackKing, &result, &sum.ECO, &sum.Opening, &sum.Aborted, &rec.PGN, &sum.StartedAt, &sum.EndedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(tokensRaw, &sum.Tokens); err != nil {
		return nil, fmt.Errorf("decode tokens: %w", err)
	}
	if err := json.Unmarshal(errorsRaw, &sum.Errors); err != nil {
		return nil, fmt.Errorf("decode errors: %w", err)
	}
	if err := json.Unmarshal(rowsRaw, &sum.Rows); err != nil {
		return nil, fmt.Errorf("decode rows: %w", err)
	}
	if result != "*" {
		sum.Result = result
	}
	rec.Summary = &sum
	return &rec, nil
}

// Consume ignores individual plies; only the finished replay is archived.
func (r *Repository) Consume(context.Context, replaydto.Snapshot) error { return nil }

// Finish archives the summary under the configured source label.
func (r *Repository) Finish(ctx context.Context, sum *replaydto.Summary) error {
	if r == nil {
		return nil
	}
	return r.SaveReplay(ctx, sum, r.source)
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

func nonNilErrors(v []replaydto.PlyError) []replaydto.PlyError {
	if v == nil {
		return []replaydto.PlyError{}
	}
	return v
}
