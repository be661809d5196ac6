package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appcfg "github.com/park285/blundex/internal/config"
	"github.com/park285/blundex/internal/pgn"
)

func testConfig(t *testing.T) *appcfg.AppConfig {
	t.Helper()
	return &appcfg.AppConfig{
		SettingsFile: filepath.Join(t.TempDir(), "settings.yaml"),
		PlayerName:   "Player",
		OpponentName: "Opponent",
		Event:        "Casual Game",
	}
}

func writePGN(t *testing.T, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "game.pgn")
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))
	return path
}

func TestAnalyzeAllNotes(t *testing.T) {
	var out bytes.Buffer
	err := runAnalyze(testConfig(t), []string{"-all", "-fen", "4k3/8/8/3p4/4P3/8/8/4K3 w - - 0 1"}, &out)
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "White to move")
	assert.Contains(t, text, "Hanging White pieces: e4")
	assert.Contains(t, text, "Hanging Black pieces: d5")
}

func TestAnalyzeQuietWithoutToggles(t *testing.T) {
	var out bytes.Buffer
	err := runAnalyze(testConfig(t), []string{"-fen", "4k3/8/8/3p4/4P3/8/8/4K3 w - - 0 1"}, &out)
	require.NoError(t, err)
	assert.NotContains(t, out.String(), "Hanging")
}

func TestAnalyzeRejectsBothSources(t *testing.T) {
	err := runAnalyze(testConfig(t), []string{"-fen", "8/8/8/8/8/8/8/K6k w - - 0 1", "-pgn", "x.pgn"}, &bytes.Buffer{})
	assert.True(t, errors.Is(err, errUsage))
}

func TestReplayPrintsMoves(t *testing.T) {
	path := writePGN(t, "[Event \"Club\"]\n\n1. e4 e5 2. Nf3 *\n")
	var out bytes.Buffer
	require.NoError(t, runReplay(testConfig(t), []string{"-pgn", path}, &out))

	text := out.String()
	assert.Contains(t, text, "1. e4\n")
	assert.Contains(t, text, "1. ... e5\n")
	assert.Contains(t, text, "2. Nf3\n")
	assert.Contains(t, text, "\n*\n")
}

func TestReplayReportsFailure(t *testing.T) {
	path := writePGN(t, "1. e4 e5 2. Ke3 *\n")
	var out bytes.Buffer
	err := runReplay(testConfig(t), []string{"-pgn", path}, &out)

	var replay *pgn.ReplayError
	require.True(t, errors.As(err, &replay))
	assert.Equal(t, 2, replay.Index)
	assert.Contains(t, out.String(), "Move 3 (Ke3) could not be played")
	assert.Contains(t, out.String(), "1. ... e5\n")
}

func TestReplayGameOutOfRange(t *testing.T) {
	path := writePGN(t, "1. e4 *\n")
	err := runReplay(testConfig(t), []string{"-pgn", path, "-game", "2"}, &bytes.Buffer{})
	assert.True(t, errors.Is(err, pgn.ErrNoGames))
}

func TestExportMoves(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "out.pgn")
	var out bytes.Buffer
	err := runExport(testConfig(t), []string{"-moves", "f3 e5 g4 Qh4#", "-out", dest, "-white", "Ann"}, &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Saved 4 moves to "+dest)

	raw, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `[White "Ann"]`)
	assert.Contains(t, string(raw), "1. f3 e5 2. g4 Qh4# 0-1")
}

func TestExportFromPGN(t *testing.T) {
	src := writePGN(t, "1. d4 d5 2. c4 *\n")
	dest := filepath.Join(t.TempDir(), "copy.pgn")
	require.NoError(t, runExport(testConfig(t), []string{"-pgn", src, "-out", dest}, &bytes.Buffer{}))

	games, err := pgn.LoadFile(dest)
	require.NoError(t, err)
	require.Len(t, games, 1)
	assert.Equal(t, []string{"d4", "d5", "c4"}, games[0].Moves)
}

func TestExportRequiresOut(t *testing.T) {
	err := runExport(testConfig(t), []string{"-moves", "e4"}, &bytes.Buffer{})
	assert.True(t, errors.Is(err, errUsage))
}

func TestExportBadMove(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "out.pgn")
	err := runExport(testConfig(t), []string{"-moves", "e4 Ke7", "-out", dest}, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Move 2 (Ke7)")
	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr))
}

func TestBoardWritesPNG(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "board.png")
	var out bytes.Buffer
	require.NoError(t, runBoard(testConfig(t), []string{"-out", dest, "-flip"}, &out))

	raw, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(raw, []byte("\x89PNG")))
	assert.Contains(t, out.String(), dest)
}
