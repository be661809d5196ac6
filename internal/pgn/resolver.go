package pgn

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	nchess "github.com/corentings/chess/v2"
	"go.uber.org/zap"

	"github.com/park285/blundex/internal/board"
)

var (
	ErrBadToken    = errors.New("unrecognized move token")
	ErrNoCandidate = errors.New("no piece can make this move")
)

var (
	coordRe = regexp.MustCompile(`^([a-h][1-8])([a-h][1-8])(?:=?([QRBNqrbn]))?$`)
	promoRe = regexp.MustCompile(`=([QRBN])$`)
	destRe  = regexp.MustCompile(`([a-h][1-8])$`)
)

var pieceLetters = map[byte]nchess.PieceType{
	'K': nchess.King,
	'Q': nchess.Queen,
	'R': nchess.Rook,
	'B': nchess.Bishop,
	'N': nchess.Knight,
}

// Mover is the part of a game session the resolver drives.
type Mover interface {
	Position() *nchess.Position
	MakeMove(from, to nchess.Square) error
	MakeMoveWithPromotion(from, to nchess.Square, piece nchess.PieceType) error
}

// Resolution is a token mapped onto concrete squares. Promotion is NoPieceType when the
// token names none; the session then promotes to a queen.
type Resolution struct {
	From      nchess.Square
	To        nchess.Square
	Promotion nchess.PieceType
}

type Resolver struct {
	logger *zap.Logger
}

func NewResolver(logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{logger: logger}
}

var defaultResolver = NewResolver(nil)

// ApplyMove resolves token against the session's position and plays it.
func ApplyMove(s Mover, token string) error { return defaultResolver.ApplyMove(s, token) }

func (r *Resolver) ApplyMove(s Mover, token string) error {
	res, err := r.Resolve(s.Position(), token)
	if err != nil {
		return err
	}
	if res.Promotion != nchess.NoPieceType {
		return s.MakeMoveWithPromotion(res.From, res.To, res.Promotion)
	}
	return s.MakeMove(res.From, res.To)
}

// Resolve maps a castling, coordinate or SAN token onto squares. Legality of the final
// move is left to the session, except that SAN candidates must already reach the target.
//
// When several pieces fit a SAN token and its qualifier does not pick exactly one, the
// first candidate in board-scan order (rank 8 to rank 1, a-file to h-file) wins.
func (r *Resolver) Resolve(pos *nchess.Position, token string) (Resolution, error) {
	tok := strings.TrimSpace(token)
	if tok == "" {
		return Resolution{}, fmt.Errorf("%w: empty", ErrBadToken)
	}

	switch tok {
	case "O-O", "0-0":
		return castle(pos.Turn(), true), nil
	case "O-O-O", "0-0-0":
		return castle(pos.Turn(), false), nil
	}

	if m := coordRe.FindStringSubmatch(tok); m != nil {
		from, _ := board.ParseSquare(m[1])
		to, _ := board.ParseSquare(m[2])
		res := Resolution{From: from, To: to}
		if m[3] != "" {
			res.Promotion = pieceLetters[strings.ToUpper(m[3])[0]]
		}
		return res, nil
	}

	return r.resolveSAN(pos, tok)
}

func castle(turn nchess.Color, kingside bool) Resolution {
	res := Resolution{From: nchess.E1, To: nchess.C1}
	if kingside {
		res.To = nchess.G1
	}
	if turn == nchess.Black {
		res.From += 56
		res.To += 56
	}
	return res
}

func (r *Resolver) resolveSAN(pos *nchess.Position, token string) (Resolution, error) {
	mv := strings.TrimRight(token, "+#!?")

	var res Resolution
	if m := promoRe.FindStringSubmatch(mv); m != nil {
		res.Promotion = pieceLetters[m[1][0]]
		mv = mv[:len(mv)-len(m[0])]
	}

	kind := nchess.Pawn
	if mv != "" && mv[0] >= 'A' && mv[0] <= 'Z' {
		if pt, ok := pieceLetters[mv[0]]; ok {
			kind = pt
		}
		mv = mv[1:]
	}
	mv = strings.ReplaceAll(mv, "x", "")

	loc := destRe.FindStringIndex(mv)
	if loc == nil {
		return Resolution{}, fmt.Errorf("%w: %q", ErrBadToken, token)
	}
	res.To, _ = board.ParseSquare(mv[loc[0]:])
	qualifier := mv[:loc[0]]

	candidates := candidatesFor(pos, kind, res.To)
	switch len(candidates) {
	case 0:
		return Resolution{}, fmt.Errorf("%w: %q", ErrNoCandidate, token)
	case 1:
		res.From = candidates[0]
		return res, nil
	}

	res.From = candidates[0]
	if pick, ok := disambiguate(candidates, qualifier); ok {
		res.From = pick
	} else {
		r.logger.Debug("pgn_ambiguous_move",
			zap.String("token", token),
			zap.Int("candidates", len(candidates)),
			zap.String("chosen", res.From.String()),
		)
	}
	return res, nil
}

// candidatesFor lists origin squares of the mover's pieces of kind that can legally reach to.
func candidatesFor(pos *nchess.Position, kind nchess.PieceType, to nchess.Square) []nchess.Square {
	b := pos.Board()
	turn := pos.Turn()
	reaches := make(map[nchess.Square]bool)
	for _, mv := range pos.ValidMoves() {
		if mv.S2() == to {
			reaches[mv.S1()] = true
		}
	}

	var out []nchess.Square
	for row := 0; row < 8; row++ {
		for col := 0; col < 8; col++ {
			sq := board.SquareFromCoords(row, col)
			p := b.Piece(sq)
			if p == nchess.NoPiece || p.Color() != turn || p.Type() != kind {
				continue
			}
			if reaches[sq] {
				out = append(out, sq)
			}
		}
	}
	return out
}

// disambiguate applies a SAN qualifier: a rank digit, a file letter or a full square.
func disambiguate(candidates []nchess.Square, qualifier string) (nchess.Square, bool) {
	match := func(ok func(nchess.Square) bool) (nchess.Square, bool) {
		for _, sq := range candidates {
			if ok(sq) {
				return sq, true
			}
		}
		return nchess.NoSquare, false
	}

	switch {
	case len(qualifier) == 1 && qualifier[0] >= '1' && qualifier[0] <= '8':
		rank := int(qualifier[0] - '1')
		return match(func(sq nchess.Square) bool { return board.RankOf(sq) == rank })
	case len(qualifier) == 1 && qualifier[0] >= 'a' && qualifier[0] <= 'h':
		file := int(qualifier[0] - 'a')
		return match(func(sq nchess.Square) bool { return board.FileOf(sq) == file })
	case len(qualifier) == 2:
		want, err := board.ParseSquare(qualifier)
		if err != nil {
			return nchess.NoSquare, false
		}
		return match(func(sq nchess.Square) bool { return sq == want })
	}
	return nchess.NoSquare, false
}
