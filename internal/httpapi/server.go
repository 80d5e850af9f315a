// Package httpapi exposes replays over HTTP.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/park285/chess-replay/internal/archive"
	"github.com/park285/chess-replay/internal/msgcat"
	"github.com/park285/chess-replay/internal/notation"
	"github.com/park285/chess-replay/internal/openingbook"
	"github.com/park285/chess-replay/internal/render"
	"github.com/park285/chess-replay/internal/replay"
	"github.com/park285/chess-replay/internal/repository"
	"github.com/park285/chess-replay/internal/resolver"
	"github.com/park285/chess-replay/internal/store"
	"github.com/park285/chess-replay/pkg/replaydto"
)

const (
	maxBodyBytes   = 1 << 20
	defaultTimeout = 30 * time.Second
	apiCSP         = "default-src 'none'; frame-ancestors 'none'; base-uri 'none'"
)

// Server serves replay runs and stored results. Store, archive, repository
// and renderer are optional; routes that need a missing dependency answer 404.
type Server struct {
	store    *store.Store
	archive  *archive.Archive
	repo     *repository.Repository
	renderer *render.Renderer
	catalog  *msgcat.Catalog
	logger   *zap.Logger
	timeout  time.Duration

	srvMu sync.Mutex
	srv   *fasthttp.Server
}

type Option func(*Server)

func WithStore(st *store.Store) Option { return func(s *Server) { s.store = st } }

func WithArchive(a *archive.Archive) Option { return func(s *Server) { s.archive = a } }

func WithRepository(r *repository.Repository) Option { return func(s *Server) { s.repo = r } }

func WithRenderer(r *render.Renderer) Option { return func(s *Server) { s.renderer = r } }

func WithCatalog(c *msgcat.Catalog) Option { return func(s *Server) { s.catalog = c } }

func WithTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func NewServer(logger *zap.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{logger: logger, timeout: defaultTimeout}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Listen serves on addr until Close.
func (s *Server) Listen(addr string) error {
	srv := &fasthttp.Server{
		Handler:            s.Handler,
		Name:               "chess-replay",
		ReadTimeout:        10 * time.Second,
		WriteTimeout:       s.timeout + 5*time.Second,
		IdleTimeout:        60 * time.Second,
		MaxRequestBodySize: maxBodyBytes,
	}
	s.srvMu.Lock()
	s.srv = srv
	s.srvMu.Unlock()

	s.logger.Info("http_listen", zap.String("addr", addr))
	return srv.ListenAndServe(addr)
}

// Close shuts the listener down gracefully.
func (s *Server) Close(ctx context.Context) error {
	s.srvMu.Lock()
	srv := s.srv
	s.srvMu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.ShutdownWithContext(ctx)
}

// Handler routes one request.
func (s *Server) Handler(ctx *fasthttp.RequestCtx) {
	ctx.Response.Header.Set("Content-Security-Policy", apiCSP)
	ctx.Response.Header.Set("Cross-Origin-Opener-Policy", "same-origin")

	path := strings.TrimRight(string(ctx.Path()), "/")
	method := string(ctx.Method())

	switch {
	case path == "/healthz":
		ctx.SetContentType("text/plain; charset=utf-8")
		ctx.SetBodyString("ok")
	case path == "/replay":
		if method != fasthttp.MethodPost {
			s.writeError(ctx, fasthttp.StatusMethodNotAllowed, replaydto.DomainError{Code: replaydto.CodeBadRequest, Message: "method not allowed"})
			return
		}
		s.handleRun(ctx)
	case path == "/replays":
		if !s.requireGet(ctx, method) {
			return
		}
		s.handleList(ctx)
	case strings.HasPrefix(path, "/replay/"):
		if !s.requireGet(ctx, method) {
			return
		}
		id, sub, _ := strings.Cut(strings.TrimPrefix(path, "/replay/"), "/")
		if strings.TrimSpace(id) == "" {
			s.notFound(ctx, id)
			return
		}
		switch sub {
		case "":
			s.handleSummary(ctx, id)
		case "latest":
			s.handleLatest(ctx, id)
		case "snapshots":
			s.handleSnapshots(ctx, id)
		case "pgn":
			s.handlePGN(ctx, id)
		default:
			s.notFound(ctx, id)
		}
	default:
		ctx.SetStatusCode(fasthttp.StatusNotFound)
	}
}

func (s *Server) requireGet(ctx *fasthttp.RequestCtx, method string) bool {
	if method == fasthttp.MethodGet || method == fasthttp.MethodHead {
		return true
	}
	s.writeError(ctx, fasthttp.StatusMethodNotAllowed, replaydto.DomainError{Code: replaydto.CodeBadRequest, Message: "method not allowed"})
	return false
}

// RunResponse is the body of a successful POST /replay.
type RunResponse struct {
	Summary   *replaydto.Summary   `json:"summary"`
	Snapshots []replaydto.Snapshot `json:"snapshots"`
}

func (s *Server) handleRun(ctx *fasthttp.RequestCtx) {
	args := ctx.QueryArgs()
	policy, err := replay.ParsePolicy(string(args.Peek("on_error")))
	if err != nil {
		s.badRequest(ctx, err.Error())
		return
	}
	body := ctx.PostBody()
	if len(bytes.TrimSpace(body)) == 0 {
		s.writeError(ctx, fasthttp.StatusBadRequest, replaydto.DomainError{
			Code:    replaydto.CodeBadRequest,
			Message: s.catalog.RenderOr("api.empty_body", nil, "request body holds no moves"),
		})
		return
	}

	var snaps []replaydto.Snapshot
	sinks := []replay.Sink{replay.SinkFunc(func(_ context.Context, snap replaydto.Snapshot) error {
		snaps = append(snaps, snap)
		return nil
	})}
	if s.store != nil {
		sinks = append(sinks, s.store)
	}
	if s.archive != nil {
		sinks = append(sinks, s.archive)
	}
	if s.repo != nil {
		sinks = append(sinks, s.repo.WithSource("http"))
	}
	opts := replay.Options{
		Policy:   policy,
		Resolver: resolver.Options{StrictDisambiguation: queryBool(args, "strict")},
		Sinks:    sinks,
		Classify: openingbook.Classify,
	}
	if s.renderer != nil && queryBool(args, "png") {
		opts.Image = s.renderer.RenderMove
	}

	runCtx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	r := replay.New(opts, s.logger)
	sum, err := r.Run(runCtx, bytes.NewReader(body))
	if err != nil {
		s.writeRunError(ctx, r.ID(), err)
		return
	}
	if snaps == nil {
		snaps = []replaydto.Snapshot{}
	}
	s.writeJSON(ctx, fasthttp.StatusOK, RunResponse{Summary: sum, Snapshots: snaps})
}

func (s *Server) writeRunError(ctx *fasthttp.RequestCtx, id string, err error) {
	var (
		pe *notation.ParseError
		re *resolver.ResolutionError
	)
	switch {
	case errors.As(err, &pe):
		s.writeError(ctx, fasthttp.StatusUnprocessableEntity, replaydto.DomainError{
			Code: replaydto.CodeParseError, Message: err.Error(), Ply: pe.Ply, Token: pe.Token,
		})
	case errors.As(err, &re):
		s.writeError(ctx, fasthttp.StatusUnprocessableEntity, replaydto.DomainError{
			Code: replaydto.CodeResolutionError, Message: err.Error(), Ply: re.Ply, Token: re.Token,
		})
	default:
		s.logger.Error("http_replay_failed", zap.String("replay_id", id), zap.Error(err))
		s.writeError(ctx, fasthttp.StatusInternalServerError, replaydto.DomainError{
			Code: replaydto.CodeInternal, Message: err.Error(), Retryable: true,
		})
	}
}

func (s *Server) handleList(ctx *fasthttp.RequestCtx) {
	rctx, cancel := s.lookupContext()
	defer cancel()
	limit := 50
	if v := string(ctx.QueryArgs().Peek("limit")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.badRequest(ctx, "limit must be a positive integer")
			return
		}
		limit = n
	}
	ids := []string{}
	switch {
	case s.store != nil:
		got, err := s.store.IDs(rctx, limit)
		if err != nil {
			s.internal(ctx, err)
			return
		}
		ids = append(ids, got...)
	case s.archive != nil:
		sums, err := s.archive.Summaries(limit)
		if err != nil {
			s.internal(ctx, err)
			return
		}
		for _, sum := range sums {
			ids = append(ids, sum.ReplayID)
		}
	}
	s.writeJSON(ctx, fasthttp.StatusOK, ids)
}

// handleSummary prefers the live Redis copy, then the local archive, then
// PostgreSQL.
func (s *Server) handleSummary(ctx *fasthttp.RequestCtx, id string) {
	rctx, cancel := s.lookupContext()
	defer cancel()
	if s.store != nil {
		sum, err := s.store.LoadSummary(rctx, id)
		switch {
		case err == nil:
			s.writeJSON(ctx, fasthttp.StatusOK, sum)
			return
		case !errors.Is(err, store.ErrNotFound):
			s.internal(ctx, err)
			return
		}
	}
	if s.archive != nil {
		sum, err := s.archive.LoadSummary(id)
		switch {
		case err == nil:
			s.writeJSON(ctx, fasthttp.StatusOK, sum)
			return
		case !errors.Is(err, archive.ErrNotFound):
			s.internal(ctx, err)
			return
		}
	}
	rec, err := s.repo.GetReplay(rctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		s.notFound(ctx, id)
		return
	}
	if err != nil {
		s.internal(ctx, err)
		return
	}
	s.writeJSON(ctx, fasthttp.StatusOK, rec.Summary)
}

func (s *Server) handleLatest(ctx *fasthttp.RequestCtx, id string) {
	if s.store != nil {
		rctx, cancel := s.lookupContext()
		snap, err := s.store.Latest(rctx, id)
		cancel()
		switch {
		case err == nil:
			s.writeJSON(ctx, fasthttp.StatusOK, snap)
			return
		case !errors.Is(err, store.ErrNotFound):
			s.internal(ctx, err)
			return
		}
	}
	snaps, ok := s.loadSnapshots(ctx, id)
	if !ok {
		return
	}
	s.writeJSON(ctx, fasthttp.StatusOK, snaps[len(snaps)-1])
}

func (s *Server) handleSnapshots(ctx *fasthttp.RequestCtx, id string) {
	if snaps, ok := s.loadSnapshots(ctx, id); ok {
		s.writeJSON(ctx, fasthttp.StatusOK, snaps)
	}
}

// loadSnapshots reads from Redis, then the local archive. It writes the error
// response itself and reports false when nothing was found.
func (s *Server) loadSnapshots(ctx *fasthttp.RequestCtx, id string) ([]replaydto.Snapshot, bool) {
	rctx, cancel := s.lookupContext()
	defer cancel()
	if s.store != nil {
		snaps, err := s.store.Snapshots(rctx, id)
		switch {
		case err == nil && len(snaps) > 0:
			return snaps, true
		case err != nil && !errors.Is(err, store.ErrNotFound):
			s.internal(ctx, err)
			return nil, false
		}
	}
	if s.archive != nil {
		snaps, err := s.archive.Snapshots(id)
		switch {
		case err == nil && len(snaps) > 0:
			return snaps, true
		case err != nil && !errors.Is(err, archive.ErrNotFound):
			s.internal(ctx, err)
			return nil, false
		}
	}
	s.notFound(ctx, id)
	return nil, false
}

func (s *Server) handlePGN(ctx *fasthttp.RequestCtx, id string) {
	rctx, cancel := s.lookupContext()
	defer cancel()
	rec, err := s.repo.GetReplay(rctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		s.notFound(ctx, id)
		return
	}
	if err != nil {
		s.internal(ctx, err)
		return
	}
	ctx.SetContentType("application/x-chess-pgn; charset=utf-8")
	ctx.SetBodyString(rec.PGN)
}

func (s *Server) lookupContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}

func queryBool(args *fasthttp.Args, key string) bool {
	v := strings.ToLower(strings.TrimSpace(string(args.Peek(key))))
	if v == "y" || v == "yes" {
		return true
	}
	b, _ := strconv.ParseBool(v)
	return b
}

func (s *Server) writeJSON(ctx *fasthttp.RequestCtx, status int, v any) {
	ctx.SetContentType("application/json; charset=utf-8")
	ctx.SetStatusCode(status)
	enc := json.NewEncoder(ctx)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		s.logger.Warn("http_encode_failed", zap.Error(err))
	}
}

func (s *Server) writeError(ctx *fasthttp.RequestCtx, status int, de replaydto.DomainError) {
	s.writeJSON(ctx, status, de)
}

func (s *Server) badRequest(ctx *fasthttp.RequestCtx, reason string) {
	s.writeError(ctx, fasthttp.StatusBadRequest, replaydto.DomainError{
		Code:    replaydto.CodeBadRequest,
		Message: s.catalog.RenderOr("api.bad_request", map[string]string{"Reason": reason}, "bad request: "+reason),
	})
}

func (s *Server) notFound(ctx *fasthttp.RequestCtx, id string) {
	s.writeError(ctx, fasthttp.StatusNotFound, replaydto.DomainError{
		Code:    replaydto.CodeNotFound,
		Message: s.catalog.RenderOr("api.not_found", map[string]string{"ID": id}, "replay "+id+" not found"),
	})
}

func (s *Server) internal(ctx *fasthttp.RequestCtx, err error) {
	s.logger.Error("http_request_failed", zap.ByteString("path", ctx.Path()), zap.Error(err))
	s.writeError(ctx, fasthttp.StatusInternalServerError, replaydto.DomainError{
		Code: replaydto.CodeInternal, Message: "internal error", Retryable: true,
	})
}
