package rules

import (
	"testing"

	nchess "github.com/corentings/chess/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustFEN(t *testing.T, fen string) *nchess.Position {
	t.Helper()
	pos, err := FromFEN(fen)
	require.NoError(t, err)
	return pos
}

func TestAttacksKnightCorner(t *testing.T) {
	pos := mustFEN(t, "4k3/8/8/8/8/8/8/N3K3 w - - 0 1")
	got := Attacks(pos.Board(), nchess.A1)
	assert.ElementsMatch(t, []nchess.Square{nchess.B3, nchess.C2}, got)
}

func TestAttacksSlidingStopsAtBlocker(t *testing.T) {
	pos := mustFEN(t, "4k3/8/8/8/R2p4/8/8/4K3 w - - 0 1")
	got := Attacks(pos.Board(), nchess.A4)
	assert.Contains(t, got, nchess.D4)
	assert.NotContains(t, got, nchess.E4)
	assert.Contains(t, got, nchess.A8)
	assert.Contains(t, got, nchess.A1)
}

func TestPawnAttacksDiagonalOnly(t *testing.T) {
	pos := mustFEN(t, "4k3/8/8/3p4/4P3/8/8/4K3 w - - 0 1")
	assert.ElementsMatch(t, []nchess.Square{nchess.D5, nchess.F5}, Attacks(pos.Board(), nchess.E4))
	assert.ElementsMatch(t, []nchess.Square{nchess.C4, nchess.E4}, Attacks(pos.Board(), nchess.D5))
	assert.True(t, IsAttackedBy(pos.Board(), nchess.Black, nchess.E4))
}

func TestAttackersOfScanOrder(t *testing.T) {
	// knights on b1 and f3 both reach d2
	pos := mustFEN(t, "4k3/8/8/8/8/5N2/8/1N2K3 w - - 0 1")
	got := AttackersOf(pos.Board(), nchess.White, nchess.D2)
	require.Equal(t, []nchess.Square{nchess.B1, nchess.E1, nchess.F3}, got)
}

func TestWithoutPieceLeavesSourceIntact(t *testing.T) {
	pos := Initial()
	b := WithoutPiece(pos.Board(), nchess.E2)
	assert.Equal(t, nchess.NoPiece, b.Piece(nchess.E2))
	assert.Equal(t, nchess.WhitePawn, pos.Board().Piece(nchess.E2))
}

func TestWithTurnIsPure(t *testing.T) {
	pos := Initial()
	black, err := WithTurn(pos, nchess.Black)
	require.NoError(t, err)
	assert.Equal(t, nchess.Black, black.Turn())
	assert.Equal(t, nchess.White, pos.Turn())
	assert.Len(t, black.ValidMoves(), 20)
}

func TestStatusForFoolsMate(t *testing.T) {
	pos := mustFEN(t, "rnb1kbnr/pppp1ppp/8/4p3/6Pq/5P2/PPPPP2P/RNBQKBNR w KQkq - 1 3")
	assert.Equal(t, nchess.Checkmate, StatusFor(pos, nchess.White))
	assert.True(t, InCheck(pos.Board(), nchess.White))
	assert.False(t, InCheck(pos.Board(), nchess.Black))
}

func TestStatusForStalemate(t *testing.T) {
	pos := mustFEN(t, "7k/5Q2/6K1/8/8/8/8/8 b - - 0 1")
	assert.Equal(t, nchess.Stalemate, StatusFor(pos, nchess.Black))
}

func TestMoveFromPromotion(t *testing.T) {
	pos := mustFEN(t, "8/P6k/8/8/8/8/8/K7 w - - 0 1")
	mv, ok := MoveFrom(pos, nchess.A7, nchess.A8, nchess.Knight)
	require.True(t, ok)
	assert.Equal(t, nchess.Knight, mv.Promo())
	_, ok = MoveFrom(pos, nchess.A7, nchess.A8, nchess.NoPieceType)
	assert.False(t, ok)
}

func TestCloneIndependent(t *testing.T) {
	pos := Initial()
	cp := Clone(pos)
	assert.Equal(t, pos.String(), cp.String())
	assert.NotSame(t, pos, cp)
}
