package tactics

import (
	"sync"
	"testing"

	nchess "github.com/corentings/chess/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/park285/blundex/internal/rules"
)

func analyzerFor(t *testing.T, fen string) *Analyzer {
	t.Helper()
	pos, err := rules.FromFEN(fen)
	require.NoError(t, err)
	return New(pos)
}

func TestInitialPosition(t *testing.T) {
	a := New(rules.Initial())

	assert.Empty(t, a.HangingPieces(nchess.White))
	assert.Empty(t, a.HangingPieces(nchess.Black))

	w, b := a.PawnCounts()
	assert.Equal(t, 8, w)
	assert.Equal(t, 8, b)

	for _, c := range []nchess.Color{nchess.White, nchess.Black} {
		assert.Zero(t, a.IsolatedPawns(c))
		assert.Zero(t, a.DoubledPawns(c))
		assert.Zero(t, a.BackwardPawns(c))
		assert.Zero(t, a.Development(c))
	}

	aw, ab := a.Activity(nchess.White), a.Activity(nchess.Black)
	assert.Equal(t, aw, ab)
	assert.Equal(t, 4, aw) // knight hops only
}

func TestActivityIgnoresRealTurn(t *testing.T) {
	pos := rules.Initial()
	a := New(pos)
	assert.Equal(t, 4, a.Activity(nchess.Black))
	assert.Equal(t, nchess.White, pos.Turn())
}

func TestHangingKnight(t *testing.T) {
	a := analyzerFor(t, "4k3/8/8/3n4/4P3/8/8/4K3 w - - 0 1")
	assert.Equal(t, []nchess.Square{nchess.D5}, a.HangingPieces(nchess.Black))
	assert.Empty(t, a.HangingPieces(nchess.White))
}

func TestAttackersAndDefendersOccupied(t *testing.T) {
	a := analyzerFor(t, "3rk3/8/8/4p3/3N4/8/3R4/3QK3 w - - 0 1")
	attackers, defenders := a.AttackersAndDefenders(nchess.D4)
	assert.Equal(t, []nchess.Square{nchess.E5, nchess.D8}, attackers)
	// the queen sits behind the rook, so only the rook defends
	assert.Equal(t, []nchess.Square{nchess.D2}, defenders)
}

func TestAttackersAndDefendersEmpty(t *testing.T) {
	a := New(rules.Initial())

	attackers, defenders := a.AttackersAndDefenders(nchess.E3)
	assert.Equal(t, []nchess.Square{nchess.D2, nchess.F2}, attackers)
	assert.Empty(t, defenders)

	attackers, defenders = a.AttackersAndDefenders(nchess.F6)
	assert.Equal(t, []nchess.Square{nchess.E7, nchess.G7, nchess.G8}, attackers)
	assert.Empty(t, defenders)
}

func TestDefendersDoNotMutatePosition(t *testing.T) {
	pos, err := rules.FromFEN("3rk3/8/8/4p3/3N4/8/3R4/3QK3 w - - 0 1")
	require.NoError(t, err)
	before := pos.String()
	New(pos).AttackersAndDefenders(nchess.D4)
	assert.Equal(t, before, pos.String())
}

func TestTacticallyInterestingSquares(t *testing.T) {
	a := analyzerFor(t, "4k3/8/8/3p4/4P3/8/8/4K3 w - - 0 1")
	assert.Equal(t, []nchess.Square{nchess.E4, nchess.D5}, a.TacticallyInterestingSquares())
}

func TestIsolatedPawns(t *testing.T) {
	a := analyzerFor(t, "4k3/8/8/8/8/8/P1P1P2P/4K3 w - - 0 1")
	assert.Equal(t, 4, a.IsolatedPawns(nchess.White))
	assert.Zero(t, a.IsolatedPawns(nchess.Black))
}

func TestDoubledPawns(t *testing.T) {
	a := analyzerFor(t, "4k3/8/8/8/2P5/2P5/2P5/4K3 w - - 0 1")
	assert.Equal(t, 2, a.DoubledPawns(nchess.White))
	assert.Len(t, a.DoubledPawnSquares(nchess.White), 3)
	assert.Equal(t, 3, a.IsolatedPawns(nchess.White))
}

func TestPassedPawns(t *testing.T) {
	a := analyzerFor(t, "4k3/8/8/3p4/8/8/P3P3/4K3 w - - 0 1")
	assert.Equal(t, []nchess.Square{nchess.A2}, a.PassedPawnSquares(nchess.White))
	assert.Zero(t, a.PassedPawns(nchess.Black))
}

func TestBackwardPawns(t *testing.T) {
	a := analyzerFor(t, "4k3/8/8/2p5/8/3P4/8/4K3 w - - 0 1")
	assert.Equal(t, []nchess.Square{nchess.D3}, a.BackwardPawnSquares(nchess.White))
	assert.Equal(t, []nchess.Square{nchess.C5}, a.BackwardPawnSquares(nchess.Black))

	a = analyzerFor(t, "4k3/8/8/2p5/8/3P4/4P3/4K3 w - - 0 1")
	assert.Zero(t, a.BackwardPawns(nchess.White))

	// only a pawn exactly one rank behind counts as a defender
	a = analyzerFor(t, "4k3/8/2p5/8/3P4/8/4P3/4K3 w - - 0 1")
	assert.Equal(t, []nchess.Square{nchess.D4}, a.BackwardPawnSquares(nchess.White))
}

func TestAnalyzerSharedAcrossGoroutines(t *testing.T) {
	a := analyzerFor(t, "r1bqkbnr/pppp1ppp/2n5/4p3/4P3/5N2/PPPP1PPP/RNBQKB1R w KQkq - 2 3")
	want := a.Summary()

	var wg sync.WaitGroup
	results := make([]Summary, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = a.Summary()
		}(i)
	}
	wg.Wait()
	for _, got := range results {
		assert.Equal(t, want, got)
	}
}

func TestDevelopmentItalian(t *testing.T) {
	a := analyzerFor(t, "r1bqk1nr/pppp1ppp/2n5/2b1p3/2B1P3/5N2/PPPP1PPP/RNBQ1RK1 b kq - 5 4")
	assert.Equal(t, []nchess.Square{nchess.G1, nchess.F3, nchess.C4}, a.DevelopedPieces(nchess.White))
	assert.Equal(t, 2, a.Development(nchess.Black))
}

func TestDevelopmentConnectedRooks(t *testing.T) {
	a := analyzerFor(t, "4k3/8/8/8/8/8/8/R4RK1 w - - 0 1")
	assert.Equal(t, 3, a.Development(nchess.White))
}

func TestSummary(t *testing.T) {
	s := New(rules.Initial()).Summary()
	assert.Equal(t, s.White, s.Black)
	assert.Equal(t, 8, s.White.Pawns.Count)
}
