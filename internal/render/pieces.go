package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync"

	nchess "github.com/corentings/chess/v2"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

// Outlines on a 45x45 grid.
var pieceShapes = map[nchess.PieceType]string{
	nchess.Pawn: `<path d="M15 38 L30 38 L27 26 L18 26 Z"/><circle cx="22.5" cy="18" r="6"/>`,
	nchess.Rook: `<path d="M11 38 L34 38 L34 34 L30 34 L30 17 L33 17 L33 9 L29 9 L29 12 L25 12 L25 9 ` +
		`L20 9 L20 12 L16 12 L16 9 L12 9 L12 17 L15 17 L15 34 L11 34 Z"/>`,
	nchess.Knight: `<path d="M12 38 L33 38 L31 20 L26 9 L22 12 L14 20 L16 25 L22 22 L17 31 Z"/>`,
	nchess.Bishop: `<path d="M13 38 L32 38 L28 32 L29 22 L22.5 10 L16 22 L17 32 Z"/><circle cx="22.5" cy="7" r="2.5"/>`,
	nchess.Queen:  `<path d="M11 38 L34 38 L32 29 L36 13 L29 24 L27 10 L22.5 23 L18 10 L16 24 L9 13 L13 29 Z"/>`,
	nchess.King: `<path d="M12 38 L33 38 L31 27 L34 20 L26 19 L24 16 L24 12 L27 12 L27 9 L24 9 L24 6 ` +
		`L21 6 L21 9 L18 9 L18 12 L21 12 L21 16 L19 19 L11 20 L14 27 Z"/>`,
}

func pieceSVG(p nchess.Piece) ([]byte, error) {
	shape, ok := pieceShapes[p.Type()]
	if !ok {
		return nil, fmt.Errorf("no shape for piece %v", p)
	}
	fill, stroke := "#1b1b1b", "#f0f0f0"
	if p.Color() == nchess.White {
		fill, stroke = "#fafafa", "#202020"
	}
	var b bytes.Buffer
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="45" height="45" viewBox="0 0 45 45">`)
	fmt.Fprintf(&b, `<g fill="%s" stroke="%s" stroke-width="1.5" stroke-linejoin="round">%s</g></svg>`, fill, stroke, shape)
	return b.Bytes(), nil
}

type pieceKey struct {
	piece nchess.Piece
	size  int
}

var (
	pieceCache   = map[pieceKey]image.Image{}
	pieceCacheMu sync.RWMutex
)

func pieceImage(p nchess.Piece, size int) (image.Image, error) {
	key := pieceKey{piece: p, size: size}
	pieceCacheMu.RLock()
	img, ok := pieceCache[key]
	pieceCacheMu.RUnlock()
	if ok {
		return img, nil
	}

	data, err := pieceSVG(p)
	if err != nil {
		return nil, err
	}
	icon, err := oksvg.ReadIconStream(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse piece svg: %w", err)
	}
	icon.SetTarget(0, 0, float64(size), float64(size))

	rgba := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(rgba, rgba.Bounds(), image.NewUniform(color.Transparent), image.Point{}, draw.Src)
	scanner := rasterx.NewScannerGV(size, size, rgba, rgba.Bounds())
	icon.Draw(rasterx.NewDasher(size, size, scanner), 1.0)

	pieceCacheMu.Lock()
	pieceCache[key] = rgba
	pieceCacheMu.Unlock()
	return rgba, nil
}
