// Package render draws a position as a PNG with optional move, threat and check markers.
package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"strings"

	nchess "github.com/corentings/chess/v2"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/park285/blundex/internal/board"
	"github.com/park285/blundex/internal/rules"
)

const (
	DefaultSquareSize = 64

	sideMargin   = 24
	titleHeight  = 40
	bottomMargin = 24
	panelRadius  = 8
)

var ErrNilPosition = errors.New("position is nil")

// Highlight marks the last move played.
type Highlight struct {
	From nchess.Square
	To   nchess.Square
}

// Overlay selects what is drawn on top of the plain board. The king of the side to move
// is marked automatically when it is in check.
type Overlay struct {
	LastMove *Highlight
	Hanging  []nchess.Square
	Marked   []nchess.Square
	Flip     bool
	Title    string
}

type Renderer struct {
	squareSize int
}

type Option func(*Renderer)

func WithSquareSize(px int) Option {
	return func(r *Renderer) {
		if px >= 16 {
			r.squareSize = px
		}
	}
}

func New(opts ...Option) *Renderer {
	r := &Renderer{squareSize: DefaultSquareSize}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Size reports the dimensions of every image this renderer produces.
func (r *Renderer) Size() (width, height int) {
	boardSize := r.squareSize * 8
	return boardSize + sideMargin*2, boardSize + titleHeight + bottomMargin
}

func (r *Renderer) RenderPNG(ctx context.Context, pos *nchess.Position, ov Overlay) ([]byte, error) {
	img, err := r.Render(ctx, pos, ov)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) Render(ctx context.Context, pos *nchess.Position, ov Overlay) (*image.RGBA, error) {
	if pos == nil {
		return nil, ErrNilPosition
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	width, height := r.Size()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(backgroundColor), image.Point{}, draw.Src)

	l := layout{origin: image.Point{X: sideMargin, Y: titleHeight}, square: r.squareSize, flip: ov.Flip}
	b := pos.Board()

	drawSquares(img, l)
	if ov.LastMove != nil && moverColor(b, ov.LastMove) != nchess.Black {
		drawSquareOverlay(img, l, ov.LastMove.From, lastMoveFill)
		drawSquareOverlay(img, l, ov.LastMove.To, lastMoveFill)
	}
	for _, sq := range ov.Marked {
		drawSquareOverlay(img, l, sq, markedFill)
	}
	for _, sq := range ov.Hanging {
		drawSquareOverlay(img, l, sq, hangingFill)
	}
	if turn := pos.Turn(); rules.InCheck(b, turn) {
		if king := rules.KingSquare(b, turn); king != nchess.NoSquare {
			drawSquareOverlay(img, l, king, checkFill)
			c := l.center(king)
			drawDisc(img, image.Pt(int(c.X), int(c.Y)), r.squareSize*2/5, checkGlow)
		}
	}

	if err := drawPieces(img, l, b); err != nil {
		return nil, err
	}
	if ov.LastMove != nil && moverColor(b, ov.LastMove) == nchess.Black {
		drawArrow(img, l, ov.LastMove.From, ov.LastMove.To, lastMoveArrow)
	}
	drawCoordinates(img, l)
	drawTitle(img, l, ov.Title)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return img, nil
}

var (
	backgroundColor = color.RGBA{R: 36, G: 39, B: 52, A: 255}
	lightSquare     = color.RGBA{R: 233, G: 207, B: 163, A: 255}
	darkSquare      = color.RGBA{R: 187, G: 136, B: 96, A: 255}
	lastMoveFill    = color.NRGBA{R: 255, G: 228, B: 120, A: 140}
	lastMoveArrow   = color.NRGBA{R: 148, G: 207, B: 255, A: 170}
	markedFill      = color.NRGBA{R: 120, G: 170, B: 255, A: 90}
	hangingFill     = color.NRGBA{R: 220, G: 50, B: 47, A: 120}
	checkFill       = color.NRGBA{R: 255, G: 60, B: 60, A: 110}
	checkGlow       = color.NRGBA{R: 255, G: 30, B: 30, A: 90}
	panelColor      = color.NRGBA{R: 28, G: 31, B: 46, A: 250}
	titleTextColor  = color.NRGBA{R: 236, G: 239, B: 255, A: 255}
	coordinateColor = color.NRGBA{R: 204, G: 210, B: 236, A: 255}
)

type pointF struct {
	X, Y float64
}

// layout maps squares to pixels. With flip set, h1 is drawn top-left.
type layout struct {
	origin image.Point
	square int
	flip   bool
}

func (l layout) cell(sq nchess.Square) (row, col int) {
	row, col = board.CoordsFromSquare(sq)
	if l.flip {
		row, col = 7-row, 7-col
	}
	return row, col
}

func (l layout) rect(sq nchess.Square) image.Rectangle {
	row, col := l.cell(sq)
	x := l.origin.X + col*l.square
	y := l.origin.Y + row*l.square
	return image.Rect(x, y, x+l.square, y+l.square)
}

func (l layout) center(sq nchess.Square) pointF {
	r := l.rect(sq)
	return pointF{X: float64(r.Min.X) + float64(l.square)/2, Y: float64(r.Min.Y) + float64(l.square)/2}
}

// squareAt is the square drawn at the given row and column of the grid.
func (l layout) squareAt(row, col int) nchess.Square {
	if l.flip {
		row, col = 7-row, 7-col
	}
	return board.SquareFromCoords(row, col)
}

func squareColor(sq nchess.Square) color.Color {
	if (board.FileOf(sq)+board.RankOf(sq))%2 == 0 {
		return darkSquare
	}
	return lightSquare
}

func drawSquares(img *image.RGBA, l layout) {
	for sq := nchess.A1; sq <= nchess.H8; sq++ {
		draw.Draw(img, l.rect(sq), image.NewUniform(squareColor(sq)), image.Point{}, draw.Src)
	}
}

func drawPieces(img *image.RGBA, l layout, b *nchess.Board) error {
	face := basicfont.Face7x13
	d := &font.Drawer{Dst: img, Face: face}
	ascent := face.Metrics().Ascent.Ceil()

	for sq := nchess.A1; sq <= nchess.H8; sq++ {
		p := b.Piece(sq)
		if p == nchess.NoPiece {
			continue
		}
		glyph, err := pieceImage(p, l.square)
		if err != nil {
			return err
		}
		rect := l.rect(sq)
		draw.Draw(img, rect, glyph, image.Point{}, draw.Over)

		d.Src = image.NewUniform(letterColor(p))
		c := l.center(sq)
		drawCenteredText(d, pieceLetter(p), int(c.X), int(c.Y)+ascent/2-1)
	}
	return nil
}

func moverColor(b *nchess.Board, h *Highlight) nchess.Color {
	if p := b.Piece(h.To); p != nchess.NoPiece {
		return p.Color()
	}
	if p := b.Piece(h.From); p != nchess.NoPiece {
		return p.Color()
	}
	return nchess.NoColor
}

func drawSquareOverlay(img *image.RGBA, l layout, sq nchess.Square, clr color.Color) {
	draw.Draw(img, l.rect(sq), image.NewUniform(clr), image.Point{}, draw.Over)
}

func drawArrow(img *image.RGBA, l layout, from, to nchess.Square, clr color.Color) {
	if from == to {
		return
	}
	start, end := l.center(from), l.center(to)
	dx, dy := end.X-start.X, end.Y-start.Y
	length := math.Hypot(dx, dy)
	if length == 0 {
		return
	}
	size := float64(l.square)
	dir := pointF{X: dx / length, Y: dy / length}
	perp := pointF{X: -dir.Y, Y: dir.X}

	shaft := length - size*0.45
	if shaft < size*0.35 {
		shaft = length * 0.6
	}
	half := size * 0.18
	head := size * 0.32
	base := pointF{X: start.X + dir.X*shaft, Y: start.Y + dir.Y*shaft}

	offset := func(p pointF, w float64) pointF {
		return pointF{X: p.X + perp.X*w, Y: p.Y + perp.Y*w}
	}
	fillTriangle(img, offset(start, -half), offset(start, half), offset(base, half), clr)
	fillTriangle(img, offset(start, -half), offset(base, half), offset(base, -half), clr)
	fillTriangle(img, end, offset(base, -head), offset(base, head), clr)
}

func fillTriangle(img *image.RGBA, a, b, c pointF, clr color.Color) {
	minX := int(math.Floor(math.Min(a.X, math.Min(b.X, c.X))))
	maxX := int(math.Ceil(math.Max(a.X, math.Max(b.X, c.X))))
	minY := int(math.Floor(math.Min(a.Y, math.Min(b.Y, c.Y))))
	maxY := int(math.Ceil(math.Max(a.Y, math.Max(b.Y, c.Y))))

	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			if inTriangle(float64(x)+0.5, float64(y)+0.5, a, b, c) {
				blendPixel(img, x, y, clr)
			}
		}
	}
}

func inTriangle(x, y float64, a, b, c pointF) bool {
	denom := (b.Y-c.Y)*(a.X-c.X) + (c.X-b.X)*(a.Y-c.Y)
	if denom == 0 {
		return false
	}
	alpha := ((b.Y-c.Y)*(x-c.X) + (c.X-b.X)*(y-c.Y)) / denom
	beta := ((c.Y-a.Y)*(x-c.X) + (a.X-c.X)*(y-c.Y)) / denom
	return alpha >= 0 && beta >= 0 && alpha+beta <= 1
}

func drawDisc(img *image.RGBA, center image.Point, radius int, clr color.Color) {
	rr := radius * radius
	for y := -radius; y <= radius; y++ {
		for x := -radius; x <= radius; x++ {
			if x*x+y*y <= rr {
				blendPixel(img, center.X+x, center.Y+y, clr)
			}
		}
	}
}

// blendPixel composites clr over the pixel at (x, y). Points outside img are ignored.
func blendPixel(img *image.RGBA, x, y int, clr color.Color) {
	if !(image.Point{X: x, Y: y}).In(img.Bounds()) {
		return
	}
	sr, sg, sb, sa := clr.RGBA()
	if sa == 0 {
		return
	}
	dst := img.RGBAAt(x, y)
	inv := 0xffff - sa
	mix := func(s uint32, d uint8) uint8 {
		return uint8((s + uint32(d)*0x101*inv/0xffff) >> 8)
	}
	img.SetRGBA(x, y, color.RGBA{
		R: mix(sr, dst.R),
		G: mix(sg, dst.G),
		B: mix(sb, dst.B),
		A: mix(sa, dst.A),
	})
}

func drawCoordinates(img *image.RGBA, l layout) {
	face := basicfont.Face7x13
	d := &font.Drawer{Dst: img, Face: face, Src: image.NewUniform(coordinateColor)}
	ascent := face.Metrics().Ascent.Ceil()
	boardBottom := l.origin.Y + 8*l.square

	for i := 0; i < 8; i++ {
		left := l.squareAt(i, 0)
		y := l.origin.Y + i*l.square + l.square/2 + ascent/2
		drawCenteredText(d, fmt.Sprint(board.RankOf(left)+1), l.origin.X-sideMargin/2, y)

		bottom := l.squareAt(7, i)
		x := l.origin.X + i*l.square + l.square/2
		drawCenteredText(d, string(rune('a'+board.FileOf(bottom))), x, boardBottom+ascent+4)
	}
}

func drawTitle(img *image.RGBA, l layout, title string) {
	title = strings.TrimSpace(title)
	if title == "" {
		return
	}
	face := basicfont.Face7x13
	d := &font.Drawer{Dst: img, Face: face, Src: image.NewUniform(titleTextColor)}

	maxWidth := 8*l.square - 2*panelRadius
	title = truncateWithEllipsis(d, title, maxWidth)
	width := d.MeasureString(title).Round() + 4*panelRadius
	left := l.origin.X + (8*l.square-width)/2
	panel := image.Rect(left, 6, left+width, titleHeight-6)
	drawRoundedPanel(img, panel, panelRadius, panelColor)

	m := face.Metrics()
	baseline := panel.Min.Y + (panel.Dy()+m.Ascent.Ceil()-m.Descent.Ceil())/2
	drawCenteredText(d, title, panel.Min.X+panel.Dx()/2, baseline)
}

func truncateWithEllipsis(d *font.Drawer, text string, maxWidth int) string {
	if d.MeasureString(text).Round() <= maxWidth {
		return text
	}
	runes := []rune(text)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		if candidate := string(runes) + "..."; d.MeasureString(candidate).Round() <= maxWidth {
			return candidate
		}
	}
	return ""
}

func drawRoundedPanel(img *image.RGBA, rect image.Rectangle, radius int, clr color.Color) {
	if rect.Empty() {
		return
	}
	radius = min(radius, rect.Dx()/2, rect.Dy()/2)
	fill := image.NewUniform(clr)
	draw.Draw(img, image.Rect(rect.Min.X+radius, rect.Min.Y, rect.Max.X-radius, rect.Max.Y), fill, image.Point{}, draw.Over)
	draw.Draw(img, image.Rect(rect.Min.X, rect.Min.Y+radius, rect.Min.X+radius, rect.Max.Y-radius), fill, image.Point{}, draw.Over)
	draw.Draw(img, image.Rect(rect.Max.X-radius, rect.Min.Y+radius, rect.Max.X, rect.Max.Y-radius), fill, image.Point{}, draw.Over)
	if radius <= 0 {
		return
	}
	corners := []image.Point{
		{rect.Min.X + radius, rect.Min.Y + radius},
		{rect.Max.X - radius - 1, rect.Min.Y + radius},
		{rect.Min.X + radius, rect.Max.Y - radius - 1},
		{rect.Max.X - radius - 1, rect.Max.Y - radius - 1},
	}
	for _, c := range corners {
		drawQuarter(img, c, radius, clr, c.X < rect.Min.X+rect.Dx()/2, c.Y < rect.Min.Y+rect.Dy()/2)
	}
}

// drawQuarter fills the outward quarter of a disc so panel corners are not painted twice.
func drawQuarter(img *image.RGBA, center image.Point, radius int, clr color.Color, left, top bool) {
	rr := radius * radius
	for y := 0; y <= radius; y++ {
		for x := 0; x <= radius; x++ {
			if x*x+y*y > rr {
				continue
			}
			px, py := center.X+x, center.Y+y
			if left {
				px = center.X - x
			}
			if top {
				py = center.Y - y
			}
			if (left && px >= center.X) || (!left && px <= center.X) || (top && py >= center.Y) || (!top && py <= center.Y) {
				continue
			}
			blendPixel(img, px, py, clr)
		}
	}
}

func drawCenteredText(d *font.Drawer, text string, centerX, baseline int) {
	if text == "" {
		return
	}
	width := d.MeasureString(text).Round()
	d.Dot = fixed.P(centerX-width/2, baseline)
	d.DrawString(text)
}
