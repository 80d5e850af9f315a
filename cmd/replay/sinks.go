package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/park285/chess-replay/internal/msgcat"
	"github.com/park285/chess-replay/pkg/replaydto"
)

// textSink prints a header line and the board block for every ply.
type textSink struct {
	w       io.Writer
	catalog *msgcat.Catalog
}

func newTextSink(w io.Writer, catalog *msgcat.Catalog) *textSink {
	return &textSink{w: w, catalog: catalog}
}

func (t *textSink) Consume(_ context.Context, snap replaydto.Snapshot) error {
	header := t.catalog.RenderOr("replay.ply_header", snap, fmt.Sprintf("%d. %s %s", snap.MoveNumber, snap.Side, snap.Token))
	_, err := fmt.Fprintf(t.w, "%s\n%s\n", header, snap.Text())
	return err
}

// pngDirSink writes each rendered image as ply-NNN.png.
type pngDirSink struct {
	dir string
}

func newPNGDirSink(dir string) *pngDirSink {
	return &pngDirSink{dir: dir}
}

func (p *pngDirSink) Consume(_ context.Context, snap replaydto.Snapshot) error {
	if len(snap.Image) == 0 {
		return nil
	}
	if err := os.MkdirAll(p.dir, 0o755); err != nil {
		return fmt.Errorf("create png dir: %w", err)
	}
	name := filepath.Join(p.dir, fmt.Sprintf("ply-%03d.png", snap.Ply))
	if err := os.WriteFile(name, snap.Image, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}
