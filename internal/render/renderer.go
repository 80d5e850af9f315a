// Package render draws board positions as PNG images.
package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"
	"math"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/park285/chess-replay/internal/board"
	"github.com/park285/chess-replay/internal/resolver"
)

const DefaultSquareSize = 72

type Highlight struct {
	From board.Square
	To   board.Square
}

type Options struct {
	Highlight *Highlight
	Header    string
}

type Renderer struct {
	squareSize int
	face       font.Face
}

func New(squareSize int) *Renderer {
	if squareSize <= 0 {
		squareSize = DefaultSquareSize
	}
	return &Renderer{squareSize: squareSize, face: basicfont.Face7x13}
}

// RenderMove renders b after mv with the move highlighted. Its signature
// matches replay.ImageFunc.
func (r *Renderer) RenderMove(ctx context.Context, b *board.Board, mv resolver.Move) ([]byte, error) {
	return r.RenderPNG(ctx, b, Options{
		Highlight: &Highlight{From: mv.From, To: mv.To},
		Header:    fmt.Sprintf("%s %s", mv.Side, mv.Token),
	})
}

func (r *Renderer) RenderPNG(ctx context.Context, b *board.Board, opts Options) ([]byte, error) {
	if b == nil {
		return nil, fmt.Errorf("board is nil")
	}

	squareSize := r.squareSize
	boardSize := squareSize * board.Size
	sideMargin := squareSize / 2
	headerHeight := 0
	if strings.TrimSpace(opts.Header) != "" {
		headerHeight = 28
	}
	topMargin := sideMargin + headerHeight

	origin := image.Point{X: sideMargin, Y: topMargin}
	boardRect := image.Rect(origin.X, origin.Y, origin.X+boardSize, origin.Y+boardSize)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	img := image.NewRGBA(image.Rect(0, 0, boardSize+sideMargin*2, boardSize+topMargin+sideMargin))
	imagedraw.Draw(img, img.Bounds(), image.NewUniform(backgroundColor), image.Point{}, imagedraw.Src)

	drawHeader(img, r.face, opts.Header, boardRect, headerHeight)
	drawSquares(img, squareSize, origin)
	if err := drawPieces(img, b, squareSize, origin); err != nil {
		return nil, err
	}
	drawHighlight(img, b, opts.Highlight, squareSize, origin)
	drawCoordinates(img, r.face, squareSize, origin, sideMargin)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

var (
	backgroundColor         = color.RGBA{28, 31, 46, 255}
	lightSquare             = color.RGBA{233, 207, 163, 255}
	darkSquare              = color.RGBA{187, 136, 96, 255}
	whiteMoveHighlightFill  = color.NRGBA{R: 255, G: 228, B: 120, A: 140}
	blackMoveHighlightArrow = color.NRGBA{R: 148, G: 207, B: 255, A: 170}
	headerTextColor         = color.NRGBA{R: 236, G: 239, B: 255, A: 255}
	coordinateTextColor     = color.NRGBA{R: 8, G: 214, B: 120, A: 255}
)

func squareRect(sq board.Square, squareSize int, origin image.Point) image.Rectangle {
	x := origin.X + sq.File*squareSize
	y := origin.Y + sq.Rank*squareSize
	return image.Rect(x, y, x+squareSize, y+squareSize)
}

// squareColor: a1 (row 7, file 0) is dark.
func squareColor(sq board.Square) color.Color {
	if (sq.Rank+sq.File)%2 == 1 {
		return darkSquare
	}
	return lightSquare
}

func drawSquares(dst imagedraw.Image, squareSize int, origin image.Point) {
	for rank := 0; rank < board.Size; rank++ {
		for file := 0; file < board.Size; file++ {
			sq := board.Sq(rank, file)
			imagedraw.Draw(dst, squareRect(sq, squareSize, origin), image.NewUniform(squareColor(sq)), image.Point{}, imagedraw.Src)
		}
	}
}

func drawPieces(dst imagedraw.Image, b *board.Board, squareSize int, origin image.Point) error {
	for rank := 0; rank < board.Size; rank++ {
		for file := 0; file < board.Size; file++ {
			sq := board.Sq(rank, file)
			piece := b.PieceAt(sq)
			if piece.IsEmpty() {
				continue
			}
			img, err := renderPieceImage(piece, squareSize)
			if err != nil {
				return err
			}
			imagedraw.Draw(dst, squareRect(sq, squareSize, origin), img, image.Point{}, imagedraw.Over)
		}
	}
	return nil
}

// drawHighlight shades both squares of a White move and draws an arrow for a
// Black move. The mover is read from the destination square.
func drawHighlight(img *image.RGBA, b *board.Board, h *Highlight, squareSize int, origin image.Point) {
	if h == nil || !h.From.InBounds() || !h.To.InBounds() {
		return
	}
	if b.PieceAt(h.To).Side == board.Black {
		drawArrow(img, h.From, h.To, squareSize, origin, blackMoveHighlightArrow)
		return
	}
	drawSquareOverlay(img, h.From, squareSize, origin, whiteMoveHighlightFill)
	drawSquareOverlay(img, h.To, squareSize, origin, whiteMoveHighlightFill)
}

func drawSquareOverlay(img *image.RGBA, sq board.Square, squareSize int, origin image.Point, clr color.Color) {
	imagedraw.Draw(img, squareRect(sq, squareSize, origin), image.NewUniform(clr), image.Point{}, imagedraw.Over)
}

func drawArrow(img *image.RGBA, from, to board.Square, squareSize int, origin image.Point, clr color.Color) {
	if from == to {
		return
	}
	startRect := squareRect(from, squareSize, origin)
	endRect := squareRect(to, squareSize, origin)
	start := pointF{X: float64(startRect.Min.X + squareSize/2), Y: float64(startRect.Min.Y + squareSize/2)}
	end := pointF{X: float64(endRect.Min.X + squareSize/2), Y: float64(endRect.Min.Y + squareSize/2)}

	dx := end.X - start.X
	dy := end.Y - start.Y
	length := math.Hypot(dx, dy)
	if length == 0 {
		return
	}
	dirX, dirY := dx/length, dy/length
	perpX, perpY := -dirY, dirX

	baseLength := length - float64(squareSize)*0.45
	if baseLength < float64(squareSize)*0.35 {
		baseLength = length * 0.6
	}
	halfWidth := float64(squareSize) * 0.18
	headWidth := float64(squareSize) * 0.32

	baseX := start.X + dirX*baseLength
	baseY := start.Y + dirY*baseLength

	fillQuad(img,
		pointF{X: start.X - perpX*halfWidth, Y: start.Y - perpY*halfWidth},
		pointF{X: start.X + perpX*halfWidth, Y: start.Y + perpY*halfWidth},
		pointF{X: baseX + perpX*halfWidth, Y: baseY + perpY*halfWidth},
		pointF{X: baseX - perpX*halfWidth, Y: baseY - perpY*halfWidth},
		clr,
	)
	fillTriangleF(img,
		end,
		pointF{X: baseX - perpX*headWidth/2, Y: baseY - perpY*headWidth/2},
		pointF{X: baseX + perpX*headWidth/2, Y: baseY + perpY*headWidth/2},
		clr,
	)
}

func drawHeader(img *image.RGBA, face font.Face, header string, boardRect image.Rectangle, height int) {
	header = strings.TrimSpace(header)
	if header == "" || height == 0 {
		return
	}
	drawer := &font.Drawer{Dst: img, Face: face, Src: image.NewUniform(headerTextColor)}
	header = truncateWithEllipsis(face, header, boardRect.Dx())
	width := drawer.MeasureString(header).Round()
	baseline := boardRect.Min.Y - height/2
	drawer.Dot = fixed.P(boardRect.Min.X+(boardRect.Dx()-width)/2, baseline)
	drawer.DrawString(header)
}

func drawCoordinates(dst imagedraw.Image, face font.Face, squareSize int, origin image.Point, margin int) {
	drawer := &font.Drawer{Dst: dst, Face: face, Src: image.NewUniform(coordinateTextColor)}
	ascent := face.Metrics().Ascent.Ceil()
	boardEndY := origin.Y + board.Size*squareSize

	for i := 0; i < board.Size; i++ {
		sq := board.Sq(i, i)
		label := sq.Algebraic()
		rankCenter := origin.Y + i*squareSize + squareSize/2
		drawCenteredText(drawer, label[1:], origin.X-margin/2, rankCenter+ascent/2)
		fileCenter := origin.X + i*squareSize + squareSize/2
		drawCenteredText(drawer, label[:1], fileCenter, boardEndY+ascent)
	}
}

func drawCenteredText(drawer *font.Drawer, text string, centerX, baseline int) {
	if text == "" {
		return
	}
	width := drawer.MeasureString(text).Round()
	drawer.Dot = fixed.P(centerX-width/2, baseline)
	drawer.DrawString(text)
}

func truncateWithEllipsis(face font.Face, text string, maxWidth int) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || maxWidth <= 0 || face == nil {
		return trimmed
	}
	drawer := font.Drawer{Face: face}
	if drawer.MeasureString(trimmed).Round() <= maxWidth {
		return trimmed
	}
	const ellipsis = "..."
	if drawer.MeasureString(ellipsis).Round() > maxWidth {
		return ""
	}
	runes := []rune(trimmed)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		candidate := string(runes) + ellipsis
		if drawer.MeasureString(candidate).Round() <= maxWidth {
			return candidate
		}
	}
	return ellipsis
}
