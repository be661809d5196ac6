package session

import (
	"strconv"
	"strings"

	nchess "github.com/corentings/chess/v2"
)

// Move is an applied move. Values are never modified after construction, so histories may
// share them freely.
type Move struct {
	From      nchess.Square
	To        nchess.Square
	Promotion nchess.PieceType

	Piece    nchess.Piece
	Captured nchess.Piece

	IsCastle         bool
	CastleKingside   bool
	IsEnPassant      bool
	IsDoublePawnPush bool

	// Number is the full-move number the move was played on.
	Number   int
	Notation string
}

// UCI returns the coordinate form, e.g. "e7e8q".
func (m Move) UCI() string {
	s := m.From.String() + m.To.String()
	if m.Promotion != nchess.NoPieceType {
		s += strings.ToLower(m.Promotion.String())
	}
	return s
}

func (m Move) String() string {
	if m.Notation != "" {
		return m.Notation
	}
	return m.UCI()
}

func newMove(pos *nchess.Position, mv *nchess.Move) Move {
	b := pos.Board()
	piece := b.Piece(mv.S1())
	out := Move{
		From:      mv.S1(),
		To:        mv.S2(),
		Promotion: mv.Promo(),
		Piece:     piece,
		Captured:  b.Piece(mv.S2()),
		Number:    fullMoveNumber(pos),
		Notation:  nchess.AlgebraicNotation{}.Encode(pos, mv),
	}
	switch {
	case mv.HasTag(nchess.KingSideCastle):
		out.IsCastle, out.CastleKingside = true, true
	case mv.HasTag(nchess.QueenSideCastle):
		out.IsCastle = true
	}
	if mv.HasTag(nchess.EnPassant) {
		out.IsEnPassant = true
		// the captured pawn stands beside the destination, on the origin rank
		capSq := nchess.NewSquare(mv.S2().File(), mv.S1().Rank())
		out.Captured = b.Piece(capSq)
	}
	if piece.Type() == nchess.Pawn {
		d := int(mv.S2().Rank()) - int(mv.S1().Rank())
		out.IsDoublePawnPush = d == 2 || d == -2
	}
	return out
}

// fullMoveNumber reads the sixth FEN field.
func fullMoveNumber(pos *nchess.Position) int {
	fields := strings.Fields(pos.String())
	if len(fields) < 6 {
		return 1
	}
	n, err := strconv.Atoi(fields[5])
	if err != nil || n < 1 {
		return 1
	}
	return n
}
