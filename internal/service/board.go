package service

import (
	"context"

	nchess "github.com/corentings/chess/v2"

	"github.com/park285/blundex/internal/render"
	"github.com/park285/blundex/internal/settings"
	"github.com/park285/blundex/internal/tactics"
)

// BoardOptions overrides the persisted help toggles for one image. Nil fields follow the
// settings store.
type BoardOptions struct {
	Flip    *bool
	Hanging *bool
	Marked  *bool
}

// RenderBoard draws the session's position as a PNG.
func (r *Registry) RenderBoard(ctx context.Context, id string, opts BoardOptions) ([]byte, error) {
	e, err := r.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	pos := e.sess.Position()
	last, hasLast := e.sess.LastMove()
	title := e.white + " vs " + e.black
	e.mu.Unlock()

	ov := render.Overlay{
		Flip:  r.toggle(opts.Flip, settings.FlipBoard),
		Title: title,
	}
	if hasLast {
		ov.LastMove = &render.Highlight{From: last.From, To: last.To}
	}
	a := tactics.New(pos)
	if r.toggle(opts.Hanging, settings.HangingPieces) {
		ov.Hanging = append(a.HangingPieces(nchess.White), a.HangingPieces(nchess.Black)...)
	}
	if r.toggle(opts.Marked, settings.ExchangeEvaluation) {
		ov.Marked = a.TacticallyInterestingSquares()
	}
	return r.deps.Renderer.RenderPNG(ctx, pos, ov)
}

func (r *Registry) toggle(override *bool, key string) bool {
	if override != nil {
		return *override
	}
	return r.enabled(key)
}
