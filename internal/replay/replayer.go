// Package replay drives a game record through the resolver one ply at a time
// and fans each resulting position out to the configured sinks.
package replay

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/park285/chess-replay/internal/board"
	"github.com/park285/chess-replay/internal/notation"
	"github.com/park285/chess-replay/internal/resolver"
	"github.com/park285/chess-replay/pkg/replaydto"
)

const maxLineBytes = 64 * 1024

// ClassifyFunc names the opening of the accepted tokens.
type ClassifyFunc func(tokens []string) (code, title string)

// ImageFunc renders the board after a ply; the bytes land in Snapshot.Image.
type ImageFunc func(ctx context.Context, b *board.Board, mv resolver.Move) ([]byte, error)

type Options struct {
	Policy   Policy
	Resolver resolver.Options
	Sinks    []Sink
	Image    ImageFunc
	Classify ClassifyFunc
	// ReplayID overrides the generated identifier.
	ReplayID string
	Now      func() time.Time
}

// Replayer owns the live board for one game. It is not safe for concurrent use.
type Replayer struct {
	id      string
	board   *board.Board
	res     *resolver.Resolver
	opts    Options
	logger  *zap.Logger
	ply     int
	moveNo  int
	summary *replaydto.Summary
}

func New(opts Options, logger *zap.Logger) *Replayer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	id := opts.ReplayID
	if id == "" {
		id = uuid.NewString()
	}
	r := &Replayer{
		id:     id,
		board:  board.New(),
		res:    resolver.New(opts.Resolver, logger),
		opts:   opts,
		logger: logger.With(zap.String("replay_id", id)),
	}
	r.summary = &replaydto.Summary{ReplayID: id, Tokens: []string{}, StartedAt: opts.Now()}
	return r
}

func (r *Replayer) ID() string { return r.id }

// Board returns a copy of the live board.
func (r *Replayer) Board() *board.Board { return r.board.Clone() }

// Plies is the number of plies attempted so far.
func (r *Replayer) Plies() int { return r.ply }

// Summary returns the running summary with the current position filled in.
func (r *Replayer) Summary() *replaydto.Summary {
	s := *r.summary
	s.Tokens = append([]string(nil), r.summary.Tokens...)
	s.Errors = append([]replaydto.PlyError(nil), r.summary.Errors...)
	s.Plies = r.ply
	s.Rows = r.board.Rows()
	s.WhiteKing = r.board.WhiteKing().String()
	s.BlackKing = r.board.BlackKing().String()
	return &s
}

// Play decodes and executes one ply for side and emits the snapshot to every
// sink. A decode or resolution failure leaves the board unchanged and is
// returned as *notation.ParseError or *resolver.ResolutionError.
func (r *Replayer) Play(ctx context.Context, token string, side board.Side) (replaydto.Snapshot, error) {
	r.ply++
	ply := r.ply

	in, err := notation.Decode(token)
	if err != nil {
		var pe *notation.ParseError
		if errors.As(err, &pe) {
			pe.Ply = ply
		}
		return replaydto.Snapshot{}, err
	}
	mv, err := r.res.Execute(r.board, in, side)
	if err != nil {
		var re *resolver.ResolutionError
		if errors.As(err, &re) {
			re.Ply = ply
		}
		return replaydto.Snapshot{}, err
	}
	r.summary.Tokens = append(r.summary.Tokens, token)

	snap := r.snapshot(ply, side, mv)
	if r.opts.Image != nil {
		img, err := r.opts.Image(ctx, r.board.Clone(), mv)
		if err != nil {
			return snap, fmt.Errorf("render ply %d: %w", ply, err)
		}
		snap.Image = img
	}
	r.logger.Debug("replay_ply",
		zap.Int("ply", ply),
		zap.String("token", token),
		zap.Stringer("side", side),
		zap.String("from", mv.From.Algebraic()),
		zap.String("to", mv.To.Algebraic()),
	)
	for _, sink := range r.opts.Sinks {
		if err := sink.Consume(ctx, snap); err != nil {
			return snap, fmt.Errorf("sink %T at ply %d: %w", sink, ply, err)
		}
	}
	return snap, nil
}

func (r *Replayer) snapshot(ply int, side board.Side, mv resolver.Move) replaydto.Snapshot {
	return replaydto.Snapshot{
		ReplayID:   r.id,
		Ply:        ply,
		MoveNumber: r.moveNo,
		Side:       side.String(),
		Token:      mv.Token,
		From:       mv.From.Algebraic(),
		To:         mv.To.Algebraic(),
		Rows:       r.board.Rows(),
		WhiteKing:  r.board.WhiteKing().String(),
		BlackKing:  r.board.BlackKing().String(),
		CreatedAt:  r.opts.Now(),
	}
}

// PlayLine plays White's and then Black's token from one input line, applying
// the error policy to each ply.
func (r *Replayer) PlayLine(ctx context.Context, text string) error {
	line, ok, err := ParseLine(text)
	if err != nil {
		// a malformed line consumes one ply so error indices stay unique
		r.ply++
		r.moveNo++
		var pe *notation.ParseError
		if errors.As(err, &pe) {
			pe.Ply = r.ply
		}
		return r.handle(err, r.ply, r.moveNo, board.Undefined, text)
	}
	if !ok {
		return nil
	}
	if line.Result != "" {
		r.summary.Result = line.Result
	}
	if line.White == "" {
		return nil
	}
	if line.MoveNumber > 0 {
		r.moveNo = line.MoveNumber
	} else {
		r.moveNo++
	}
	if err := r.step(ctx, line.White, board.White); err != nil {
		return err
	}
	if line.Black == "" {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.step(ctx, line.Black, board.Black)
}

func (r *Replayer) step(ctx context.Context, token string, side board.Side) error {
	_, err := r.Play(ctx, token, side)
	if err == nil {
		return nil
	}
	return r.handle(err, r.ply, r.moveNo, side, token)
}

// handle applies the policy to a ply failure. Sink and render failures always
// propagate.
func (r *Replayer) handle(err error, ply, moveNo int, side board.Side, token string) error {
	code := ""
	switch {
	case errors.Is(err, notation.ErrMalformedToken):
		code = replaydto.CodeParseError
	case errors.Is(err, resolver.ErrUnresolvable):
		code = replaydto.CodeResolutionError
	default:
		return err
	}
	r.summary.Errors = append(r.summary.Errors, replaydto.PlyError{
		Ply:        ply,
		MoveNumber: moveNo,
		Side:       side.String(),
		Token:      token,
		Code:       code,
		Message:    err.Error(),
	})
	if r.opts.Policy == PolicySkip {
		r.logger.Warn("replay_ply_skipped", zap.String("token", token), zap.String("code", code), zap.Error(err))
		return nil
	}
	r.logger.Warn("replay_ply_error", zap.String("token", token), zap.String("code", code), zap.Error(err))
	return err
}

// Run reads move lines from src until EOF and returns the summary. Under
// PolicyAbort the first failing ply ends the run; the partial summary is
// returned alongside the error. Sinks implementing Finisher receive the
// summary in both cases.
func (r *Replayer) Run(ctx context.Context, src io.Reader) (*replaydto.Summary, error) {
	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 0, 4096), maxLineBytes)

	var runErr error
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		if err := r.PlayLine(ctx, scanner.Text()); err != nil {
			runErr = err
			break
		}
	}
	if runErr == nil {
		if err := scanner.Err(); err != nil {
			runErr = fmt.Errorf("read moves: %w", err)
		}
	}

	r.summary.EndedAt = r.opts.Now()
	r.summary.Aborted = runErr != nil
	if r.opts.Classify != nil {
		r.summary.ECO, r.summary.Opening = r.opts.Classify(r.summary.Tokens)
	}
	summary := r.Summary()
	if runErr != nil {
		r.logger.Warn("replay_aborted", zap.Int("plies", summary.Plies), zap.Error(runErr))
	} else {
		r.logger.Info("replay_done",
			zap.Int("plies", summary.Plies),
			zap.Int("accepted", summary.Accepted()),
			zap.Int("errors", len(summary.Errors)),
		)
	}

	var finishErrs []error
	for _, sink := range r.opts.Sinks {
		f, ok := sink.(Finisher)
		if !ok {
			continue
		}
		// a cancelled ctx still lets finishers persist the partial summary
		if err := f.Finish(context.WithoutCancel(ctx), summary); err != nil {
			r.logger.Warn("replay_finish_failed", zap.String("sink", fmt.Sprintf("%T", sink)), zap.Error(err))
			finishErrs = append(finishErrs, fmt.Errorf("finish %T: %w", sink, err))
		}
	}
	if runErr != nil {
		return summary, runErr
	}
	return summary, errors.Join(finishErrs...)
}
