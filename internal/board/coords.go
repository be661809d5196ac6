// Package board converts between the display grid and the rules library's square index.
//
// The display grid has row 0 at the top (black's back rank) and col 0 on the a-file.
package board

import (
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"
)

// SquareFromCoords maps a display (row, col) to a square. Callers pass 0..7.
func SquareFromCoords(row, col int) nchess.Square {
	rank := 7 - row
	file := col
	return nchess.Square(rank*8 + file)
}

// CoordsFromSquare is the inverse of SquareFromCoords.
func CoordsFromSquare(sq nchess.Square) (row, col int) {
	rank := int(sq) / 8
	file := int(sq) % 8
	return 7 - rank, file
}

// SquareName returns the algebraic name ("e4").
func SquareName(sq nchess.Square) string {
	if sq < nchess.A1 || sq > nchess.H8 {
		return "-"
	}
	return sq.String()
}

// ParseSquare parses an algebraic square name such as "e4".
func ParseSquare(s string) (nchess.Square, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) != 2 || s[0] < 'a' || s[0] > 'h' || s[1] < '1' || s[1] > '8' {
		return nchess.NoSquare, fmt.Errorf("invalid square %q", s)
	}
	return nchess.NewSquare(nchess.File(s[0]-'a'), nchess.Rank(s[1]-'1')), nil
}

// FileOf and RankOf return 0-based file and rank indexes.
func FileOf(sq nchess.Square) int { return int(sq) % 8 }
func RankOf(sq nchess.Square) int { return int(sq) / 8 }

// At builds a square from 0-based file and rank; ok is false off the board.
func At(file, rank int) (nchess.Square, bool) {
	if file < 0 || file > 7 || rank < 0 || rank > 7 {
		return nchess.NoSquare, false
	}
	return nchess.Square(rank*8 + file), true
}
