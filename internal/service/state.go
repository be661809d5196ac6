package service

import (
	"strings"
	"time"

	nchess "github.com/corentings/chess/v2"

	"github.com/park285/blundex/internal/session"
)

// MoveInfo describes one applied move.
type MoveInfo struct {
	UCI        string `json:"uci"`
	SAN        string `json:"san"`
	Number     int    `json:"number"`
	Piece      string `json:"piece"`
	Captured   string `json:"captured,omitempty"`
	Promotion  string `json:"promotion,omitempty"`
	Castle     string `json:"castle,omitempty"`
	EnPassant  bool   `json:"en_passant,omitempty"`
	DoublePush bool   `json:"double_push,omitempty"`
}

// State is the client view of a session after an operation.
type State struct {
	ID        string    `json:"id"`
	FEN       string    `json:"fen"`
	Turn      string    `json:"turn"`
	MovesSAN  []string  `json:"moves_san"`
	MovesUCI  []string  `json:"moves_uci"`
	LastMove  *MoveInfo `json:"last_move,omitempty"`
	Check     bool      `json:"check"`
	Checkmate bool      `json:"checkmate"`
	Stalemate bool      `json:"stalemate"`
	Outcome   string    `json:"outcome"`
	CanUndo   bool      `json:"can_undo"`
	CanRedo   bool      `json:"can_redo"`
	White     string    `json:"white"`
	Black     string    `json:"black"`
	Version   int64     `json:"version"`
	Preview   bool      `json:"preview,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Finished reports whether no further move is possible.
func (s *State) Finished() bool { return s.Checkmate || s.Stalemate }

func colorName(c nchess.Color) string {
	if c == nchess.Black {
		return "black"
	}
	return "white"
}

func pieceName(p nchess.Piece) string {
	if p == nchess.NoPiece {
		return ""
	}
	return colorName(p.Color()) + " " + typeName(p.Type())
}

func typeName(t nchess.PieceType) string {
	switch t {
	case nchess.King:
		return "king"
	case nchess.Queen:
		return "queen"
	case nchess.Rook:
		return "rook"
	case nchess.Bishop:
		return "bishop"
	case nchess.Knight:
		return "knight"
	case nchess.Pawn:
		return "pawn"
	}
	return ""
}

func moveInfo(m session.Move) *MoveInfo {
	info := &MoveInfo{
		UCI:        m.UCI(),
		SAN:        m.Notation,
		Number:     m.Number,
		Piece:      pieceName(m.Piece),
		Captured:   pieceName(m.Captured),
		Promotion:  typeName(m.Promotion),
		EnPassant:  m.IsEnPassant,
		DoublePush: m.IsDoublePawnPush,
	}
	if m.IsEnPassant {
		info.Captured = colorName(m.Piece.Color().Other()) + " pawn"
	}
	if m.IsCastle {
		info.Castle = "queenside"
		if m.CastleKingside {
			info.Castle = "kingside"
		}
	}
	return info
}

func stateOf(id string, s *session.Session, meta *entry) *State {
	st := &State{
		ID:        id,
		FEN:       s.FEN(),
		Turn:      colorName(s.Turn()),
		MovesSAN:  s.SANMoves(),
		MovesUCI:  s.UCIMoves(),
		Check:     s.IsCheck(),
		Checkmate: s.IsCheckmate(),
		Stalemate: s.IsStalemate(),
		Outcome:   s.Outcome(),
		CanUndo:   s.CanUndo(),
		CanRedo:   s.CanRedo(),
	}
	if m, ok := s.LastMove(); ok {
		st.LastMove = moveInfo(m)
	}
	if meta != nil {
		st.White = meta.white
		st.Black = meta.black
		st.Version = meta.version
		st.UpdatedAt = meta.updatedAt
	}
	return st
}

// sideLabel capitalizes a color name for messages ("White").
func sideLabel(c nchess.Color) string {
	name := colorName(c)
	return strings.ToUpper(name[:1]) + name[1:]
}
