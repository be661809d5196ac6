package tactics

import (
	nchess "github.com/corentings/chess/v2"

	"github.com/park285/blundex/internal/board"
	"github.com/park285/blundex/internal/rules"
)

// Development returns how many of color's pieces count as developed.
func (a *Analyzer) Development(c nchess.Color) int {
	return len(a.DevelopedPieces(c))
}

// DevelopedPieces lists developed pieces of color:
//   - knights, bishops and queens off the back rank
//   - the king once it has left its starting square
//   - rooks off the back rank, or both rooks on it with nothing between them
func (a *Analyzer) DevelopedPieces(c nchess.Color) []nchess.Square {
	backRank, kingHome := 0, nchess.E1
	if c == nchess.Black {
		backRank, kingHome = 7, nchess.E8
	}

	var out, rooks []nchess.Square
	for sq := nchess.A1; sq <= nchess.H8; sq++ {
		p := a.board.Piece(sq)
		if p == nchess.NoPiece || p.Color() != c {
			continue
		}
		switch p.Type() {
		case nchess.Knight, nchess.Bishop, nchess.Queen:
			if board.RankOf(sq) != backRank {
				out = append(out, sq)
			}
		case nchess.Rook:
			rooks = append(rooks, sq)
		}
	}

	if k := rules.KingSquare(a.board, c); k != nchess.NoSquare && k != kingHome {
		out = append(out, k)
	}

	connected := a.rooksConnected(rooks, backRank)
	for _, sq := range rooks {
		if board.RankOf(sq) != backRank || connected {
			out = append(out, sq)
		}
	}
	sortSquares(out)
	return out
}

func (a *Analyzer) rooksConnected(rooks []nchess.Square, backRank int) bool {
	if len(rooks) != 2 {
		return false
	}
	r1, r2 := rooks[0], rooks[1]
	if board.RankOf(r1) != backRank || board.RankOf(r2) != backRank {
		return false
	}
	lo, hi := board.FileOf(r1), board.FileOf(r2)
	if lo > hi {
		lo, hi = hi, lo
	}
	for f := lo + 1; f < hi; f++ {
		sq, _ := board.At(f, backRank)
		if a.board.Piece(sq) != nchess.NoPiece {
			return false
		}
	}
	return true
}
