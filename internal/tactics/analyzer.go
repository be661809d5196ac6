// Package tactics answers tactical questions about a single position: hanging pieces,
// attacker and defender sets, piece activity, pawn structure and development.
package tactics

import (
	"sort"

	nchess "github.com/corentings/chess/v2"

	"github.com/park285/blundex/internal/rules"
)

// Analyzer is a read-only view over one position. New fills the position's legal-move cache,
// after which one Analyzer may be shared between goroutines.
type Analyzer struct {
	pos   *nchess.Position
	board *nchess.Board
}

func New(pos *nchess.Position) *Analyzer {
	pos.ValidMoves()
	return &Analyzer{pos: pos, board: pos.Board()}
}

// HangingPieces returns squares of color's pieces that are attacked by the opponent and not
// attacked by color.
func (a *Analyzer) HangingPieces(color nchess.Color) []nchess.Square {
	var out []nchess.Square
	for sq := nchess.A1; sq <= nchess.H8; sq++ {
		p := a.board.Piece(sq)
		if p == nchess.NoPiece || p.Color() != color {
			continue
		}
		if rules.IsAttackedBy(a.board, color.Other(), sq) && !rules.IsAttackedBy(a.board, color, sq) {
			out = append(out, sq)
		}
	}
	return out
}

// AttackersAndDefenders splits the pieces bearing on sq.
//
// On an empty square every attacker of either color is returned and defenders is empty. On an
// occupied square attackers are the opponent's pieces, and defenders are the occupant's
// friends that would attack sq were it empty (x-ray through the occupant).
func (a *Analyzer) AttackersAndDefenders(sq nchess.Square) (attackers, defenders []nchess.Square) {
	occupant := a.board.Piece(sq)
	if occupant == nchess.NoPiece {
		attackers = append(rules.AttackersOf(a.board, nchess.White, sq), rules.AttackersOf(a.board, nchess.Black, sq)...)
		sortSquares(attackers)
		return attackers, nil
	}
	own := occupant.Color()
	attackers = rules.AttackersOf(a.board, own.Other(), sq)
	emptied := rules.WithoutPiece(a.board, sq)
	for _, d := range rules.AttackersOf(emptied, own, sq) {
		if d != sq {
			defenders = append(defenders, d)
		}
	}
	return attackers, defenders
}

// TacticallyInterestingSquares returns every occupied square attacked by the other color.
func (a *Analyzer) TacticallyInterestingSquares() []nchess.Square {
	var out []nchess.Square
	for sq := nchess.A1; sq <= nchess.H8; sq++ {
		p := a.board.Piece(sq)
		if p == nchess.NoPiece {
			continue
		}
		if rules.IsAttackedBy(a.board, p.Color().Other(), sq) {
			out = append(out, sq)
		}
	}
	return out
}

// Activity counts distinct squares reachable by color's non-pawn pieces.
//
// Moves are generated with color as the side to move even when it is not. When the real side
// to move is in check this may miscount; it is a mobility estimate, not a legality oracle.
func (a *Analyzer) Activity(color nchess.Color) int {
	return len(a.ActivitySquares(color))
}

// ActivitySquares returns the destination squares counted by Activity, sorted.
func (a *Analyzer) ActivitySquares(color nchess.Color) []nchess.Square {
	seen := make(map[nchess.Square]struct{})
	for _, mv := range rules.LegalMovesFor(a.pos, color) {
		p := a.board.Piece(mv.S1())
		if p == nchess.NoPiece || p.Color() != color || p.Type() == nchess.Pawn {
			continue
		}
		seen[mv.S2()] = struct{}{}
	}
	out := make([]nchess.Square, 0, len(seen))
	for sq := range seen {
		out = append(out, sq)
	}
	sortSquares(out)
	return out
}

// Scores collects the per-color numbers shown side by side in a stats panel.
type Scores struct {
	Activity    int       `json:"activity"`
	Development int       `json:"development"`
	Hanging     int       `json:"hanging"`
	Pawns       PawnStats `json:"pawns"`
}

type Summary struct {
	White Scores `json:"white"`
	Black Scores `json:"black"`
}

// Summary computes Scores for both colors.
func (a *Analyzer) Summary() Summary {
	return Summary{White: a.scores(nchess.White), Black: a.scores(nchess.Black)}
}

func (a *Analyzer) scores(c nchess.Color) Scores {
	return Scores{
		Activity:    a.Activity(c),
		Development: a.Development(c),
		Hanging:     len(a.HangingPieces(c)),
		Pawns:       a.PawnStatistics(c),
	}
}

func sortSquares(sqs []nchess.Square) {
	sort.Slice(sqs, func(i, j int) bool { return sqs[i] < sqs[j] })
}
