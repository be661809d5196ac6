// Package session holds one game in progress: the live position, the applied moves and
// linear undo/redo over full snapshots.
//
// A Session is not safe for concurrent use. Hosts with several goroutines wrap it in a mutex
// (see internal/service); previews use Copy, which shares no mutable state.
package session

import (
	"errors"
	"fmt"
	"slices"

	nchess "github.com/corentings/chess/v2"
	"go.uber.org/zap"

	"github.com/park285/blundex/internal/rules"
)

var (
	ErrIllegalMove  = errors.New("illegal move")
	ErrEmptyHistory = errors.New("no moves to undo or redo")
)

// snapshot shares positions by pointer; the rules library never mutates a position after
// Update, so only the history slice needs copying.
type snapshot struct {
	pos     *nchess.Position
	history []Move
	last    *Move
}

type Session struct {
	pos     *nchess.Position
	history []Move
	last    *Move

	undo []snapshot
	redo []snapshot

	check     bool
	checkmate bool
	stalemate bool

	logger *zap.Logger
}

type Option func(*Session)

func WithLogger(l *zap.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// New starts a session from the standard initial position.
func New(opts ...Option) *Session {
	s := &Session{pos: rules.Initial(), logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	s.refreshStatus()
	return s
}

// FromFEN starts a session from an arbitrary position. Reset still returns to the standard
// initial position.
func FromFEN(fen string, opts ...Option) (*Session, error) {
	pos, err := rules.FromFEN(fen)
	if err != nil {
		return nil, err
	}
	s := New(opts...)
	s.pos = pos
	s.refreshStatus()
	return s, nil
}

// MakeMove plays from→to. When the move promotes, the queen is chosen.
func (s *Session) MakeMove(from, to nchess.Square) error {
	for _, mv := range s.pos.ValidMoves() {
		if mv.S1() != from || mv.S2() != to {
			continue
		}
		if mv.Promo() == nchess.NoPieceType || mv.Promo() == nchess.Queen {
			return s.apply(mv)
		}
	}
	return fmt.Errorf("%w: %s%s", ErrIllegalMove, from, to)
}

// MakeMoveWithPromotion plays from→to promoting to piece. piece is ignored when the move is
// not a promotion.
func (s *Session) MakeMoveWithPromotion(from, to nchess.Square, piece nchess.PieceType) error {
	for _, mv := range s.pos.ValidMoves() {
		if mv.S1() != from || mv.S2() != to {
			continue
		}
		if mv.Promo() == nchess.NoPieceType || mv.Promo() == piece {
			return s.apply(mv)
		}
	}
	return fmt.Errorf("%w: %s%s=%s", ErrIllegalMove, from, to, piece)
}

func (s *Session) apply(mv nchess.Move) error {
	played := newMove(s.pos, &mv)
	next := s.pos.Update(&mv)
	if next == nil {
		return fmt.Errorf("%w: %s", ErrIllegalMove, played.UCI())
	}

	s.undo = append(s.undo, s.snapshot())
	s.redo = nil

	s.pos = next
	s.history = append(s.history, played)
	s.last = &played
	s.refreshStatus()

	s.logger.Debug("session_move",
		zap.String("uci", played.UCI()),
		zap.String("san", played.Notation),
		zap.Int("ply", len(s.history)),
		zap.Bool("check", s.check),
		zap.Bool("checkmate", s.checkmate),
		zap.Bool("stalemate", s.stalemate),
	)
	return nil
}

func (s *Session) snapshot() snapshot {
	return snapshot{pos: s.pos, history: slices.Clone(s.history), last: s.last}
}

func (s *Session) restore(sn snapshot) {
	s.pos = sn.pos
	s.history = sn.history
	s.last = sn.last
}

func (s *Session) CanUndo() bool { return len(s.undo) > 0 }
func (s *Session) CanRedo() bool { return len(s.redo) > 0 }

// Undo steps back one move. It fails with ErrEmptyHistory when there is nothing to undo.
func (s *Session) Undo() error {
	if len(s.undo) == 0 {
		return ErrEmptyHistory
	}
	s.redo = append(s.redo, s.snapshot())
	n := len(s.undo) - 1
	s.restore(s.undo[n])
	s.undo = s.undo[:n]
	s.refreshStatus()
	s.logger.Debug("session_undo", zap.Int("ply", len(s.history)), zap.Int("redo_depth", len(s.redo)))
	return nil
}

// Redo replays the last undone move. Any new move made after an undo discards the redo stack.
func (s *Session) Redo() error {
	if len(s.redo) == 0 {
		return ErrEmptyHistory
	}
	s.undo = append(s.undo, s.snapshot())
	n := len(s.redo) - 1
	s.restore(s.redo[n])
	s.redo = s.redo[:n]
	s.refreshStatus()
	s.logger.Debug("session_redo", zap.Int("ply", len(s.history)), zap.Int("undo_depth", len(s.undo)))
	return nil
}

// Reset returns to the initial position and forgets all history.
func (s *Session) Reset() {
	s.pos = rules.Initial()
	s.history = nil
	s.last = nil
	s.undo = nil
	s.redo = nil
	s.refreshStatus()
}

// Copy returns an independent session at the same position and history, without undo/redo.
func (s *Session) Copy() *Session {
	cp := &Session{
		pos:     rules.Clone(s.pos),
		history: slices.Clone(s.history),
		last:    s.last,
		logger:  s.logger,
	}
	cp.refreshStatus()
	return cp
}

// Clone returns an independent session with the same position, history and undo/redo
// stacks. Snapshots are shared; they are never modified once pushed.
func (s *Session) Clone() *Session {
	cp := *s
	cp.history = slices.Clone(s.history)
	cp.undo = slices.Clone(s.undo)
	cp.redo = slices.Clone(s.redo)
	return &cp
}

func (s *Session) refreshStatus() {
	turn := s.pos.Turn()
	s.check = rules.InCheck(s.pos.Board(), turn)
	noMoves := len(s.pos.ValidMoves()) == 0
	s.checkmate = noMoves && s.check
	s.stalemate = noMoves && !s.check
}

func (s *Session) IsCheck() bool     { return s.check }
func (s *Session) IsCheckmate() bool { return s.checkmate }
func (s *Session) IsStalemate() bool { return s.stalemate }

// IsCheckmateFor reports mate with color as the side to move, whoever actually moves next.
func (s *Session) IsCheckmateFor(color nchess.Color) bool {
	if color == s.pos.Turn() {
		return s.checkmate
	}
	return rules.StatusFor(s.pos, color) == nchess.Checkmate
}

// IsStalemateFor is the stalemate counterpart of IsCheckmateFor.
func (s *Session) IsStalemateFor(color nchess.Color) bool {
	if color == s.pos.Turn() {
		return s.stalemate
	}
	return rules.StatusFor(s.pos, color) == nchess.Stalemate
}

// Outcome returns the PGN result token for the current position.
func (s *Session) Outcome() string {
	switch {
	case s.checkmate && s.pos.Turn() == nchess.White:
		return "0-1"
	case s.checkmate:
		return "1-0"
	case s.stalemate:
		return "1/2-1/2"
	default:
		return "*"
	}
}

// IsPromotion reports whether from→to is a legal promoting move.
func (s *Session) IsPromotion(from, to nchess.Square) bool {
	for _, mv := range s.pos.ValidMoves() {
		if mv.S1() == from && mv.S2() == to && mv.Promo() != nchess.NoPieceType {
			return true
		}
	}
	return false
}

// LegalDestinations lists the squares the piece on from may move to.
func (s *Session) LegalDestinations(from nchess.Square) []nchess.Square {
	var out []nchess.Square
	for _, mv := range s.pos.ValidMoves() {
		if mv.S1() == from && !slices.Contains(out, mv.S2()) {
			out = append(out, mv.S2())
		}
	}
	return out
}

func (s *Session) Position() *nchess.Position { return s.pos }
func (s *Session) Turn() nchess.Color         { return s.pos.Turn() }
func (s *Session) FEN() string                { return s.pos.String() }

func (s *Session) PieceAt(sq nchess.Square) nchess.Piece { return s.pos.Board().Piece(sq) }

// History returns a copy of the applied moves, oldest first.
func (s *Session) History() []Move { return slices.Clone(s.history) }

// LastMove returns the most recent move, if any.
func (s *Session) LastMove() (Move, bool) {
	if s.last == nil {
		return Move{}, false
	}
	return *s.last, true
}

// UCIMoves returns the history in coordinate form, the format persisted by the stores.
func (s *Session) UCIMoves() []string {
	out := make([]string, len(s.history))
	for i, m := range s.history {
		out[i] = m.UCI()
	}
	return out
}

// RedoUCIMoves returns the undone moves in coordinate form, next redo first.
func (s *Session) RedoUCIMoves() []string {
	out := make([]string, 0, len(s.redo))
	for i := len(s.redo) - 1; i >= 0; i-- {
		h := s.redo[i].history
		out = append(out, h[len(h)-1].UCI())
	}
	return out
}

// SANMoves returns the history in standard algebraic notation.
func (s *Session) SANMoves() []string {
	out := make([]string, len(s.history))
	for i, m := range s.history {
		out[i] = m.Notation
	}
	return out
}
