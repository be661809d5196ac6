// Package rules adapts github.com/corentings/chess/v2 to the queries the session layer needs.
//
// The library generates legal moves and detects mate and stalemate, but it does not export an
// attack query, so attack sets are computed here from the public board API.
package rules

import (
	nchess "github.com/corentings/chess/v2"

	"github.com/park285/blundex/internal/board"
)

type delta struct{ df, dr int }

var (
	knightDeltas = []delta{{1, 2}, {2, 1}, {2, -1}, {1, -2}, {-1, -2}, {-2, -1}, {-2, 1}, {-1, 2}}
	kingDeltas   = []delta{{1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0}, {-1, -1}, {0, -1}, {1, -1}}
	diagonals    = []delta{{1, 1}, {-1, 1}, {1, -1}, {-1, -1}}
	orthogonals  = []delta{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
)

// Attacks returns the pseudo-attack set of the piece standing on sq.
// Pins and checks are ignored; an empty square attacks nothing.
func Attacks(b *nchess.Board, sq nchess.Square) []nchess.Square {
	p := b.Piece(sq)
	if p == nchess.NoPiece {
		return nil
	}
	f, r := board.FileOf(sq), board.RankOf(sq)
	switch p.Type() {
	case nchess.Pawn:
		dir := 1
		if p.Color() == nchess.Black {
			dir = -1
		}
		return steps(f, r, []delta{{-1, dir}, {1, dir}})
	case nchess.Knight:
		return steps(f, r, knightDeltas)
	case nchess.King:
		return steps(f, r, kingDeltas)
	case nchess.Bishop:
		return rays(b, f, r, diagonals)
	case nchess.Rook:
		return rays(b, f, r, orthogonals)
	case nchess.Queen:
		return append(rays(b, f, r, diagonals), rays(b, f, r, orthogonals)...)
	}
	return nil
}

func steps(f, r int, ds []delta) []nchess.Square {
	out := make([]nchess.Square, 0, len(ds))
	for _, d := range ds {
		if sq, ok := board.At(f+d.df, r+d.dr); ok {
			out = append(out, sq)
		}
	}
	return out
}

// rays walks each direction until it leaves the board or hits a piece (included).
func rays(b *nchess.Board, f, r int, ds []delta) []nchess.Square {
	var out []nchess.Square
	for _, d := range ds {
		for i := 1; ; i++ {
			sq, ok := board.At(f+d.df*i, r+d.dr*i)
			if !ok {
				break
			}
			out = append(out, sq)
			if b.Piece(sq) != nchess.NoPiece {
				break
			}
		}
	}
	return out
}

// AttacksSquare reports whether the piece on from attacks target.
func AttacksSquare(b *nchess.Board, from, target nchess.Square) bool {
	for _, sq := range Attacks(b, from) {
		if sq == target {
			return true
		}
	}
	return false
}

// AttackersOf lists the squares of color's pieces attacking target, in A1..H8 order.
func AttackersOf(b *nchess.Board, color nchess.Color, target nchess.Square) []nchess.Square {
	var out []nchess.Square
	for sq := nchess.A1; sq <= nchess.H8; sq++ {
		p := b.Piece(sq)
		if p == nchess.NoPiece || p.Color() != color {
			continue
		}
		if AttacksSquare(b, sq, target) {
			out = append(out, sq)
		}
	}
	return out
}

// IsAttackedBy reports whether any piece of color attacks target.
func IsAttackedBy(b *nchess.Board, color nchess.Color, target nchess.Square) bool {
	for sq := nchess.A1; sq <= nchess.H8; sq++ {
		p := b.Piece(sq)
		if p == nchess.NoPiece || p.Color() != color {
			continue
		}
		if AttacksSquare(b, sq, target) {
			return true
		}
	}
	return false
}

// WithoutPiece returns a new board with sq emptied. b is not modified.
func WithoutPiece(b *nchess.Board, sq nchess.Square) *nchess.Board {
	m := b.SquareMap()
	delete(m, sq)
	return nchess.NewBoard(m)
}

// KingSquare returns the square of color's king, or NoSquare.
func KingSquare(b *nchess.Board, color nchess.Color) nchess.Square {
	for sq := nchess.A1; sq <= nchess.H8; sq++ {
		p := b.Piece(sq)
		if p.Type() == nchess.King && p.Color() == color {
			return sq
		}
	}
	return nchess.NoSquare
}

// InCheck reports whether color's king is attacked. A board without that king is never in check.
func InCheck(b *nchess.Board, color nchess.Color) bool {
	k := KingSquare(b, color)
	if k == nchess.NoSquare {
		return false
	}
	return IsAttackedBy(b, color.Other(), k)
}
