package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/park285/chess-replay/internal/archive"
	appcfg "github.com/park285/chess-replay/internal/config"
	"github.com/park285/chess-replay/internal/crosscheck"
	"github.com/park285/chess-replay/internal/egress"
	"github.com/park285/chess-replay/internal/msgcat"
	"github.com/park285/chess-replay/internal/obslog"
	"github.com/park285/chess-replay/internal/openingbook"
	"github.com/park285/chess-replay/internal/render"
	"github.com/park285/chess-replay/internal/replay"
	"github.com/park285/chess-replay/internal/repository"
	"github.com/park285/chess-replay/internal/resolver"
	"github.com/park285/chess-replay/internal/store"
)

func main() {
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	logger := obslog.L()
	defer func() { _ = logger.Sync() }()

	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	input := flag.String("in", cfg.Input, "Move file (defaults to stdin)")
	onError := flag.String("on-error", cfg.OnError, "Error policy: abort or skip")
	strict := flag.Bool("strict", cfg.StrictDisambiguation, "Validate disambiguated moves like any other piece move")
	verify := flag.Bool("verify", cfg.Verify, "Cross-check every ply against an independent move generator")
	pngDir := flag.String("png-dir", cfg.PNGDir, "Write ply-NNN.png for every ply into this directory")
	squareSize := flag.Int("square", cfg.SquareSize, "PNG square size in pixels")
	quiet := flag.Bool("quiet", false, "Suppress per-ply board output")
	replayID := flag.String("id", "", "Replay id (defaults to a random UUID)")
	archiveDir := flag.String("archive", cfg.ArchiveDir, "Keep the replay in a local Badger archive under this directory")
	flag.Parse()

	policy, err := replay.ParsePolicy(*onError)
	if err != nil {
		log.Fatalf("flag error: %v", err)
	}
	catalog, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		log.Fatalf("messages error: %v", err)
	}

	src, source, closeSrc, err := openInput(*input)
	if err != nil {
		log.Fatalf("input error: %v", err)
	}
	defer closeSrc()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := replay.Options{
		Policy:   policy,
		Resolver: resolver.Options{StrictDisambiguation: *strict},
		ReplayID: *replayID,
		Classify: openingbook.Classify,
	}
	if !*quiet {
		opts.Sinks = append(opts.Sinks, newTextSink(os.Stdout, catalog))
	}
	if *pngDir != "" {
		opts.Image = render.New(*squareSize).RenderMove
		opts.Sinks = append(opts.Sinks, newPNGDirSink(*pngDir))
	}
	var checker *crosscheck.Sink
	if *verify {
		checker = crosscheck.NewSink(logger)
		opts.Sinks = append(opts.Sinks, checker)
	}

	cfg.ArchiveDir = *archiveDir
	closers, err := attachRemoteSinks(ctx, cfg, &opts, source, logger)
	defer func() {
		for _, c := range closers {
			_ = c()
		}
	}()
	if err != nil {
		log.Fatalf("sink init error: %v", err)
	}

	r := replay.New(opts, logger)
	sum, runErr := r.Run(ctx, src)

	fmt.Println(catalog.RenderOr("replay.kings", sum, "White king: "+sum.WhiteKing+"\nBlack king: "+sum.BlackKing))
	if sum.ECO != "" {
		fmt.Println(catalog.RenderOr("replay.opening", sum, sum.ECO+" "+sum.Opening))
	}
	if sum.Result != "" {
		fmt.Println(catalog.RenderOr("replay.result", sum, sum.Result))
	}
	stats := map[string]any{"ReplayID": sum.ReplayID, "Plies": sum.Plies, "Accepted": sum.Accepted(), "Errors": len(sum.Errors)}
	for _, pe := range sum.Errors {
		fmt.Fprintln(os.Stderr, catalog.RenderOr("replay.skipped", pe, pe.Message))
	}
	if runErr != nil {
		stats["Error"] = runErr
		var me *crosscheck.MismatchError
		if errors.As(runErr, &me) {
			fmt.Fprintln(os.Stderr, catalog.RenderOr("verify.mismatch", map[string]any{"Error": me}, me.Error()))
		}
		fmt.Fprintln(os.Stderr, catalog.RenderOr("replay.aborted", stats, runErr.Error()))
		os.Exit(1)
	}
	if checker != nil {
		fmt.Fprintln(os.Stderr, catalog.RenderOr("verify.ok", map[string]any{"Plies": checker.Oracle().Moves()}, "cross-check passed"))
	}
	fmt.Fprintln(os.Stderr, catalog.RenderOr("replay.done", stats, "done"))
}

func openInput(path string) (io.Reader, string, func(), error) {
	if path == "" || path == "-" {
		return os.Stdin, "stdin", func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, "", nil, err
	}
	return f, path, func() { _ = f.Close() }, nil
}

// attachRemoteSinks wires Redis, the local archive, PostgreSQL and the
// snapshot egress when they are configured. The returned closers run even when an error is returned.
func attachRemoteSinks(ctx context.Context, cfg *appcfg.AppConfig, opts *replay.Options, source string, logger *zap.Logger) ([]func() error, error) {
	var closers []func() error

	if cfg.RedisURL != "" {
		octx, cancel := context.WithTimeout(ctx, 5*time.Second)
		st, err := store.Open(octx, cfg.RedisURL, cfg.SnapshotTTL)
		cancel()
		if err != nil {
			return closers, err
		}
		closers = append(closers, st.Close)
		opts.Sinks = append(opts.Sinks, st)
	}

	if cfg.ArchiveDir != "" {
		a, err := archive.Open(cfg.ArchiveDir)
		if err != nil {
			return closers, err
		}
		closers = append(closers, a.Close)
		opts.Sinks = append(opts.Sinks, a)
	}

	if cfg.DatabaseURL != "" {
		repo, err := repository.NewRepository(cfg.DatabaseURL)
		if err != nil {
			return closers, err
		}
		closers = append(closers, repo.Close)
		if err := repo.EnsureSchema(ctx); err != nil {
			return closers, err
		}
		opts.Sinks = append(opts.Sinks, repo.WithSource(source))
	}

	if cfg.HasEgress() || cfg.EgressDryrun {
		headers := func() map[string]string {
			return map[string]string{"X-Replay-Source": source}
		}
		client := egress.NewClient(cfg.SnapshotHTTPURL,
			egress.WithHeaderProvider(headers),
			egress.WithRetry(cfg.EgressRetryMax),
		)
		var ws *egress.WebSocket
		if cfg.SnapshotWSURL != "" {
			ws = egress.NewWebSocket(cfg.SnapshotWSURL, 3)
			ws.SetHeaderProvider(headers)
			cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
			if err := ws.Connect(cctx); err != nil {
				logger.Warn("egress_ws_connect_failed", zap.String("url", cfg.SnapshotWSURL), zap.Error(err))
			}
			cancel()
			closers = append(closers, ws.Close)
		}
		mode := cfg.EgressMode
		if mode == egress.ModeAuto && cfg.SnapshotHTTPURL == "" {
			mode = egress.ModeWS
		}
		opts.Sinks = append(opts.Sinks, egress.NewSink(egress.NewEgress(mode, cfg.EgressDryrun, client, ws, logger), opts.Image != nil))
	}
	return closers, nil
}
