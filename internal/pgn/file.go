package pgn

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

var ErrNoGames = errors.New("no games in pgn")

// IOError wraps a failed file operation.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("pgn %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// LoadFile parses every game in path.
func LoadFile(path string) ([]*Game, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &IOError{Op: "read", Path: path, Err: err}
	}
	return Parse(string(raw)), nil
}

// SaveFile writes games to path. The file is replaced through a rename, so readers never
// see a partial write.
func SaveFile(path string, games []*Game) error {
	var buf bytes.Buffer
	if err := WriteGames(&buf, games); err != nil {
		return &IOError{Op: "encode", Path: path, Err: err}
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".pgn-*")
	if err != nil {
		return &IOError{Op: "write", Path: path, Err: err}
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return &IOError{Op: "write", Path: path, Err: err}
	}
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return &IOError{Op: "write", Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &IOError{Op: "write", Path: path, Err: err}
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return &IOError{Op: "rename", Path: path, Err: err}
	}
	return nil
}

// LoadIntoSession replays the first game of path onto s.
func LoadIntoSession(path string, s Replayer) error {
	games, err := LoadFile(path)
	if err != nil {
		return err
	}
	if len(games) == 0 {
		return &IOError{Op: "read", Path: path, Err: ErrNoGames}
	}
	return Apply(s, games[0])
}

// SaveSession exports s as a single game to path.
func SaveSession(path string, s Record, opts ExportOptions) error {
	return SaveFile(path, []*Game{FromSession(s, opts)})
}
