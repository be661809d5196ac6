package rules

import (
	"errors"
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"
)

// StartFEN is the standard initial position.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

var ErrBadFEN = errors.New("invalid FEN")

// Initial returns a fresh starting position.
func Initial() *nchess.Position {
	return nchess.NewGame().Position()
}

// FromFEN decodes a FEN string into a position.
func FromFEN(fen string) (*nchess.Position, error) {
	opt, err := nchess.FEN(strings.TrimSpace(fen))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadFEN, err)
	}
	return nchess.NewGame(opt).Position(), nil
}

// Clone returns an independent copy of pos. Repetition history is not carried.
func Clone(pos *nchess.Position) *nchess.Position {
	cp, err := FromFEN(pos.String())
	if err != nil {
		// positions are never mutated after Update, so sharing is still correct
		return pos
	}
	return cp
}

// WithTurn returns pos with color to move. When the turn changes, the en-passant target is
// dropped since it only exists for the side that was actually to move. pos is not modified.
func WithTurn(pos *nchess.Position, color nchess.Color) (*nchess.Position, error) {
	if pos.Turn() == color {
		return pos, nil
	}
	fields := strings.Fields(pos.String())
	if len(fields) < 4 {
		return nil, fmt.Errorf("%w: %q", ErrBadFEN, pos.String())
	}
	fields[1] = turnField(color)
	fields[3] = "-"
	return FromFEN(strings.Join(fields, " "))
}

func turnField(c nchess.Color) string {
	if c == nchess.Black {
		return "b"
	}
	return "w"
}

// LegalMovesFor returns the legal moves of color, generated as if color were to move.
func LegalMovesFor(pos *nchess.Position, color nchess.Color) []nchess.Move {
	p, err := WithTurn(pos, color)
	if err != nil {
		return nil
	}
	return p.ValidMoves()
}

// StatusFor reports Checkmate, Stalemate or NoMethod with color as the side to move.
func StatusFor(pos *nchess.Position, color nchess.Color) nchess.Method {
	p, err := WithTurn(pos, color)
	if err != nil {
		return nchess.NoMethod
	}
	return p.Status()
}

// MoveFrom returns the first legal move in pos matching from, to and promo.
func MoveFrom(pos *nchess.Position, from, to nchess.Square, promo nchess.PieceType) (nchess.Move, bool) {
	for _, mv := range pos.ValidMoves() {
		if mv.S1() == from && mv.S2() == to && mv.Promo() == promo {
			return mv, true
		}
	}
	return nchess.Move{}, false
}
