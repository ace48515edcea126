package render

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/park285/chess-relay/internal/rules"
)

const startFEN = rules.Position("rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1")

func decode(t *testing.T, raw []byte) image.Image {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	return img
}

func brightness(c color.Color) uint32 {
	r, g, b, _ := c.RGBA()
	return (r + g + b) / 3 >> 8
}

func TestRenderPNGSize(t *testing.T) {
	r := New(32)
	raw, err := r.RenderPNG(context.Background(), startFEN, Options{})
	require.NoError(t, err)
	img := decode(t, raw)
	assert.Equal(t, r.Size(), img.Bounds().Dx())
	assert.Equal(t, r.Size(), img.Bounds().Dy())
	assert.Equal(t, 32*8+2*margin, r.Size())
}

func TestRenderPNGOrientation(t *testing.T) {
	r := New(DefaultSquareSize)
	center := margin + DefaultSquareSize/2

	white := decode(t, mustRender(t, r, Options{Orientation: rules.White}))
	assert.Less(t, brightness(white.At(center, center)), uint32(80), "a8 holds a black rook")

	black := decode(t, mustRender(t, r, Options{Orientation: rules.Black}))
	assert.Greater(t, brightness(black.At(center, center)), uint32(200), "h1 holds a white rook")
}

func TestRenderPNGHighlightsLastMove(t *testing.T) {
	r := New(DefaultSquareSize)
	p := r.squareRect(4, 2, false).Min.Add(image.Pt(2, 2))
	x, y := p.X, p.Y

	plain := decode(t, mustRender(t, r, Options{}))
	lit := decode(t, mustRender(t, r, Options{LastFrom: "e2", LastTo: "e3"}))

	pr, pg, pb, _ := plain.At(x, y).RGBA()
	lr, lg, lb, _ := lit.At(x, y).RGBA()
	assert.False(t, pr == lr && pg == lg && pb == lb, "e3 should be tinted")
}

func TestRenderPNGRejectsBadPosition(t *testing.T) {
	_, err := New(0).RenderPNG(context.Background(), "not a fen", Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, rules.ErrBadPosition))
}

func TestRenderPNGHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(0).RenderPNG(ctx, startFEN, Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSquareIndex(t *testing.T) {
	f, r, ok := squareIndex("h8")
	assert.True(t, ok)
	assert.Equal(t, 7, f)
	assert.Equal(t, 7, r)
	_, _, ok = squareIndex("i1")
	assert.False(t, ok)
}

func mustRender(t *testing.T, r *Renderer, opts Options) []byte {
	t.Helper()
	raw, err := r.RenderPNG(context.Background(), startFEN, opts)
	require.NoError(t, err)
	return raw
}
