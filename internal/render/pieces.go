package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"
	"sync"

	svg "github.com/ajstarks/svgo"
	nchess "github.com/corentings/chess/v2"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

type pieceCacheKey struct {
	piece nchess.Piece
	size  int
}

var (
	pieceCache   = map[pieceCacheKey]*image.RGBA{}
	pieceCacheMu sync.RWMutex
)

var (
	whitePieceFill = "#f6f1e7"
	blackPieceFill = "#26272b"
)

// pieceSVG describes a token for p on a 100x100 view box. Pawns are smaller; kings and
// queens carry an inner ring.
func pieceSVG(p nchess.Piece) string {
	fill, stroke := whitePieceFill, blackPieceFill
	if p.Color() == nchess.Black {
		fill, stroke = blackPieceFill, whitePieceFill
	}
	radius := 36
	if p.Type() == nchess.Pawn {
		radius = 28
	}

	var b strings.Builder
	canvas := svg.New(&b)
	canvas.Startview(100, 100, 0, 0, 100, 100)
	canvas.Circle(50, 52, radius, "fill:#000000;fill-opacity:0.25")
	canvas.Circle(50, 50, radius, fmt.Sprintf("fill:%s;stroke:%s;stroke-width:5", fill, stroke))
	switch p.Type() {
	case nchess.King, nchess.Queen:
		canvas.Circle(50, 50, radius-8, fmt.Sprintf("fill:none;stroke:%s;stroke-width:3", stroke))
	}
	canvas.End()
	return b.String()
}

// pieceImage rasterizes p at size x size pixels. Results are cached per piece and size.
func pieceImage(p nchess.Piece, size int) (*image.RGBA, error) {
	key := pieceCacheKey{piece: p, size: size}

	pieceCacheMu.RLock()
	img, ok := pieceCache[key]
	pieceCacheMu.RUnlock()
	if ok {
		return img, nil
	}

	icon, err := oksvg.ReadIconStream(strings.NewReader(pieceSVG(p)))
	if err != nil {
		return nil, fmt.Errorf("parse piece svg: %w", err)
	}
	icon.SetTarget(0, 0, float64(size), float64(size))

	img = image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Transparent), image.Point{}, draw.Src)
	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	icon.Draw(rasterx.NewDasher(size, size, scanner), 1.0)

	pieceCacheMu.Lock()
	pieceCache[key] = img
	pieceCacheMu.Unlock()
	return img, nil
}

// pieceLetter is the upper-case SAN letter, "P" for pawns.
func pieceLetter(p nchess.Piece) string {
	switch p.Type() {
	case nchess.King:
		return "K"
	case nchess.Queen:
		return "Q"
	case nchess.Rook:
		return "R"
	case nchess.Bishop:
		return "B"
	case nchess.Knight:
		return "N"
	case nchess.Pawn:
		return "P"
	}
	return ""
}

func letterColor(p nchess.Piece) color.Color {
	if p.Color() == nchess.Black {
		return color.NRGBA{R: 246, G: 241, B: 231, A: 255}
	}
	return color.NRGBA{R: 38, G: 39, B: 43, A: 255}
}
