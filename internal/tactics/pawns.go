package tactics

import (
	nchess "github.com/corentings/chess/v2"

	"github.com/park285/blundex/internal/board"
)

type PawnStats struct {
	Count    int `json:"count"`
	Backward int `json:"backward"`
	Isolated int `json:"isolated"`
	Doubled  int `json:"doubled"`
	Passed   int `json:"passed"`
}

// PawnCounts returns the number of white and black pawns.
func (a *Analyzer) PawnCounts() (white, black int) {
	return len(a.pawns(nchess.White)), len(a.pawns(nchess.Black))
}

func (a *Analyzer) PawnStatistics(c nchess.Color) PawnStats {
	return PawnStats{
		Count:    len(a.pawns(c)),
		Backward: a.BackwardPawns(c),
		Isolated: a.IsolatedPawns(c),
		Doubled:  a.DoubledPawns(c),
		Passed:   a.PassedPawns(c),
	}
}

func (a *Analyzer) BackwardPawns(c nchess.Color) int { return len(a.BackwardPawnSquares(c)) }
func (a *Analyzer) IsolatedPawns(c nchess.Color) int { return len(a.IsolatedPawnSquares(c)) }
func (a *Analyzer) PassedPawns(c nchess.Color) int   { return len(a.PassedPawnSquares(c)) }

// DoubledPawns sums, over files, the pawns beyond the first on that file.
func (a *Analyzer) DoubledPawns(c nchess.Color) int {
	var perFile [8]int
	for _, sq := range a.pawns(c) {
		perFile[board.FileOf(sq)]++
	}
	n := 0
	for _, k := range perFile {
		if k > 1 {
			n += k - 1
		}
	}
	return n
}

// DoubledPawnSquares returns every pawn standing on a file shared with a friendly pawn.
func (a *Analyzer) DoubledPawnSquares(c nchess.Color) []nchess.Square {
	var perFile [8]int
	ps := a.pawns(c)
	for _, sq := range ps {
		perFile[board.FileOf(sq)]++
	}
	var out []nchess.Square
	for _, sq := range ps {
		if perFile[board.FileOf(sq)] > 1 {
			out = append(out, sq)
		}
	}
	return out
}

// IsolatedPawnSquares returns pawns with no friendly pawn on an adjacent file.
func (a *Analyzer) IsolatedPawnSquares(c nchess.Color) []nchess.Square {
	var files [8]bool
	ps := a.pawns(c)
	for _, sq := range ps {
		files[board.FileOf(sq)] = true
	}
	var out []nchess.Square
	for _, sq := range ps {
		f := board.FileOf(sq)
		left := f > 0 && files[f-1]
		right := f < 7 && files[f+1]
		if !left && !right {
			out = append(out, sq)
		}
	}
	return out
}

// PassedPawnSquares returns pawns with no enemy pawn ahead of them on their own or an adjacent
// file, scanning up to and including the promotion rank.
func (a *Analyzer) PassedPawnSquares(c nchess.Color) []nchess.Square {
	dir := forward(c)
	var out []nchess.Square
	for _, sq := range a.pawns(c) {
		f, r := board.FileOf(sq), board.RankOf(sq)
		blocked := false
		for rr := r + dir; rr >= 0 && rr <= 7 && !blocked; rr += dir {
			for ff := f - 1; ff <= f+1; ff++ {
				if a.pawnAt(ff, rr, c.Other()) {
					blocked = true
					break
				}
			}
		}
		if !blocked {
			out = append(out, sq)
		}
	}
	return out
}

// BackwardPawnSquares returns pawns that no friendly pawn can defend from one rank behind and
// whose advance square is covered by an enemy pawn.
func (a *Analyzer) BackwardPawnSquares(c nchess.Color) []nchess.Square {
	dir := forward(c)
	var out []nchess.Square
	for _, sq := range a.pawns(c) {
		f, r := board.FileOf(sq), board.RankOf(sq)
		defended := a.pawnAt(f-1, r-dir, c) || a.pawnAt(f+1, r-dir, c)
		if defended {
			continue
		}
		ahead := r + dir
		if ahead < 0 || ahead > 7 {
			continue
		}
		if a.pawnAt(f-1, ahead+dir, c.Other()) || a.pawnAt(f+1, ahead+dir, c.Other()) {
			out = append(out, sq)
		}
	}
	return out
}

func (a *Analyzer) pawns(c nchess.Color) []nchess.Square {
	var out []nchess.Square
	for sq := nchess.A1; sq <= nchess.H8; sq++ {
		p := a.board.Piece(sq)
		if p.Type() == nchess.Pawn && p.Color() == c {
			out = append(out, sq)
		}
	}
	return out
}

func (a *Analyzer) pawnAt(file, rank int, c nchess.Color) bool {
	sq, ok := board.At(file, rank)
	if !ok {
		return false
	}
	p := a.board.Piece(sq)
	return p.Type() == nchess.Pawn && p.Color() == c
}

func forward(c nchess.Color) int {
	if c == nchess.Black {
		return -1
	}
	return 1
}
