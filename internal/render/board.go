// Package render draws a position as a PNG board diagram.
package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"

	nchess "github.com/corentings/chess/v2"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/park285/chess-relay/internal/rules"
)

const (
	DefaultSquareSize = 64
	margin            = 22
)

var (
	lightSquare    = color.RGBA{233, 207, 163, 255}
	darkSquare     = color.RGBA{187, 136, 96, 255}
	frameColor     = color.RGBA{44, 47, 62, 255}
	lastMoveFill   = color.NRGBA{R: 255, G: 228, B: 120, A: 140}
	coordTextColor = color.NRGBA{R: 220, G: 224, B: 240, A: 255}
)

// Options controls a single render. Orientation is the side drawn at the
// bottom; LastFrom and LastTo, when valid squares, are tinted.
type Options struct {
	Orientation rules.Side
	LastFrom    string
	LastTo      string
}

type Renderer struct {
	square int
}

func New(squareSize int) *Renderer {
	if squareSize < 16 {
		squareSize = DefaultSquareSize
	}
	return &Renderer{square: squareSize}
}

// Size is the edge length of every image this renderer produces.
func (r *Renderer) Size() int { return r.square*8 + margin*2 }

func (r *Renderer) RenderPNG(ctx context.Context, pos rules.Position, opts Options) ([]byte, error) {
	opt, err := nchess.FEN(string(pos))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", rules.ErrBadPosition, err)
	}
	board := nchess.NewGame(opt).Position().Board()
	flipped := opts.Orientation == rules.Black

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	size := r.Size()
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	imagedraw.Draw(img, img.Bounds(), image.NewUniform(frameColor), image.Point{}, imagedraw.Src)

	// 칸 배경
	for file := 0; file < 8; file++ {
		for rank := 0; rank < 8; rank++ {
			clr := lightSquare
			if (file+rank)%2 == 0 {
				clr = darkSquare
			}
			imagedraw.Draw(img, r.squareRect(file, rank, flipped), image.NewUniform(clr), image.Point{}, imagedraw.Src)
		}
	}
	// 직전 수 강조
	for _, sq := range []string{opts.LastFrom, opts.LastTo} {
		if file, rank, ok := squareIndex(sq); ok {
			imagedraw.Draw(img, r.squareRect(file, rank, flipped), image.NewUniform(lastMoveFill), image.Point{}, imagedraw.Over)
		}
	}
	// 기물
	for sq, piece := range board.SquareMap() {
		if piece == nchess.NoPiece {
			continue
		}
		glyph, err := pieceImage(piece, r.square)
		if err != nil {
			return nil, err
		}
		rect := r.squareRect(int(sq.File()), int(sq.Rank()), flipped)
		imagedraw.Draw(img, rect, glyph, image.Point{}, imagedraw.Over)
	}
	r.drawCoordinates(img, flipped)

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

// squareRect maps 0-based file and rank to pixels.
func (r *Renderer) squareRect(file, rank int, flipped bool) image.Rectangle {
	col, row := file, 7-rank
	if flipped {
		col, row = 7-file, rank
	}
	x := margin + col*r.square
	y := margin + row*r.square
	return image.Rect(x, y, x+r.square, y+r.square)
}

func (r *Renderer) drawCoordinates(dst imagedraw.Image, flipped bool) {
	face := basicfont.Face7x13
	d := &font.Drawer{Dst: dst, Face: face, Src: image.NewUniform(coordTextColor)}
	ascent := face.Metrics().Ascent.Ceil()
	bottom := margin + 8*r.square
	for i := 0; i < 8; i++ {
		fileRect := r.squareRect(i, 0, flipped)
		drawCentered(d, string(rune('a'+i)), fileRect.Min.X+r.square/2, bottom+(margin+ascent)/2)
		rankRect := r.squareRect(0, i, flipped)
		drawCentered(d, string(rune('1'+i)), margin/2, rankRect.Min.Y+(r.square+ascent)/2)
	}
}

func drawCentered(d *font.Drawer, text string, centerX, baseline int) {
	width := d.MeasureString(text).Round()
	d.Dot = fixed.P(centerX-width/2, baseline)
	d.DrawString(text)
}

func squareIndex(sq string) (file, rank int, ok bool) {
	if len(sq) != 2 || sq[0] < 'a' || sq[0] > 'h' || sq[1] < '1' || sq[1] > '8' {
		return 0, 0, false
	}
	return int(sq[0] - 'a'), int(sq[1] - '1'), true
}
