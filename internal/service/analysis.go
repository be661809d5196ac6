package service

import (
	"context"
	"strings"

	nchess "github.com/corentings/chess/v2"

	"github.com/park285/blundex/internal/board"
	"github.com/park285/blundex/internal/settings"
	"github.com/park285/blundex/internal/tactics"
)

// Exchange lists the pieces bearing on one contested square.
type Exchange struct {
	Square    string   `json:"square"`
	Piece     string   `json:"piece"`
	Attackers []string `json:"attackers"`
	Defenders []string `json:"defenders"`
}

type Analysis struct {
	ID        string              `json:"id"`
	FEN       string              `json:"fen"`
	Summary   tactics.Summary     `json:"summary"`
	Hanging   map[string][]string `json:"hanging"`
	Developed map[string][]string `json:"developed"`
	Exchanges []Exchange          `json:"exchanges"`
	Notes     []string            `json:"notes,omitempty"`
}

// Analysis evaluates the current position. Notes are rendered from the message catalog for
// every help toggle that is switched on; the status line is always included.
func (r *Registry) Analysis(ctx context.Context, id string) (*Analysis, error) {
	e, err := r.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	pos := e.sess.Position()
	check, mate, stale := e.sess.IsCheck(), e.sess.IsCheckmate(), e.sess.IsStalemate()
	e.mu.Unlock()

	a := tactics.New(pos)
	out := &Analysis{
		ID:      id,
		FEN:     pos.String(),
		Summary: a.Summary(),
		Hanging: map[string][]string{
			"white": squareNames(a.HangingPieces(nchess.White)),
			"black": squareNames(a.HangingPieces(nchess.Black)),
		},
		Developed: map[string][]string{
			"white": squareNames(a.DevelopedPieces(nchess.White)),
			"black": squareNames(a.DevelopedPieces(nchess.Black)),
		},
	}
	b := pos.Board()
	for _, sq := range a.TacticallyInterestingSquares() {
		attackers, defenders := a.AttackersAndDefenders(sq)
		out.Exchanges = append(out.Exchanges, Exchange{
			Square:    board.SquareName(sq),
			Piece:     pieceName(b.Piece(sq)),
			Attackers: squareNames(attackers),
			Defenders: squareNames(defenders),
		})
	}
	out.Notes = r.notes(out, pos.Turn(), check, mate, stale)
	return out, nil
}

func (r *Registry) notes(an *Analysis, turn nchess.Color, check, mate, stale bool) []string {
	c := r.deps.Catalog
	if c == nil {
		return nil
	}
	side := sideLabel(turn)
	var out []string
	switch {
	case mate:
		out = append(out, c.RenderOr("status.checkmate", map[string]any{"Winner": sideLabel(turn.Other())}, ""))
	case stale:
		out = append(out, c.RenderOr("status.stalemate", nil, ""))
	case check:
		out = append(out, c.RenderOr("status.check", map[string]any{"Side": side}, ""))
	default:
		out = append(out, c.RenderOr("status.to_move", map[string]any{"Side": side}, ""))
	}

	for _, color := range []nchess.Color{nchess.White, nchess.Black} {
		name, label := colorName(color), sideLabel(color)
		scores := an.Summary.White
		if color == nchess.Black {
			scores = an.Summary.Black
		}
		if r.enabled(settings.HangingPieces) {
			if sqs := an.Hanging[name]; len(sqs) > 0 {
				out = append(out, c.RenderOr("analysis.hanging", map[string]any{"Side": label, "Squares": strings.Join(sqs, ", ")}, ""))
			} else {
				out = append(out, c.RenderOr("analysis.none_hanging", map[string]any{"Side": label}, ""))
			}
		}
		if r.enabled(settings.Activity) || r.enabled(settings.Development) {
			out = append(out, c.RenderOr("analysis.activity", map[string]any{
				"Side":        label,
				"Activity":    scores.Activity,
				"Development": scores.Development,
			}, ""))
		}
		if r.enabled(settings.PawnStructure) {
			p := scores.Pawns
			out = append(out, c.RenderOr("analysis.pawns", map[string]any{
				"Side":     label,
				"Count":    p.Count,
				"Isolated": p.Isolated,
				"Doubled":  p.Doubled,
				"Backward": p.Backward,
				"Passed":   p.Passed,
			}, ""))
		}
	}
	if r.enabled(settings.ExchangeEvaluation) {
		for _, ex := range an.Exchanges {
			out = append(out, c.RenderOr("analysis.exchange", map[string]any{
				"Square":    ex.Square,
				"Attackers": len(ex.Attackers),
				"Defenders": len(ex.Defenders),
			}, ""))
		}
	}

	kept := out[:0]
	for _, line := range out {
		if line != "" {
			kept = append(kept, line)
		}
	}
	return kept
}

func (r *Registry) enabled(key string) bool {
	return r.deps.Settings != nil && r.deps.Settings.Enabled(key)
}

func squareNames(sqs []nchess.Square) []string {
	out := make([]string, len(sqs))
	for i, sq := range sqs {
		out[i] = board.SquareName(sq)
	}
	return out
}
