package domain

import "time"

// SessionSnapshot is the persisted form of a live session. Positions are rebuilt by
// replaying MovesUCI from StartFEN; RedoUCI holds undone moves, next redo first.
type SessionSnapshot struct {
	ID        string    `json:"id"`
	StartFEN  string    `json:"start_fen,omitempty"`
	MovesUCI  []string  `json:"moves_uci"`
	RedoUCI   []string  `json:"redo_uci,omitempty"`
	White     string    `json:"white,omitempty"`
	Black     string    `json:"black,omitempty"`
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ArchivedGame is a finished game kept after its session is closed.
type ArchivedGame struct {
	ID          int64         `json:"id"`
	SessionID   string        `json:"session_id"`
	White       string        `json:"white"`
	Black       string        `json:"black"`
	Result      string        `json:"result"`
	Termination string        `json:"termination"`
	MovesUCI    []string      `json:"moves_uci"`
	MovesSAN    []string      `json:"moves_san"`
	PGN         string        `json:"pgn"`
	StartedAt   time.Time     `json:"started_at"`
	EndedAt     time.Time     `json:"ended_at"`
	Duration    time.Duration `json:"duration_ns"`
}

// Termination values.
const (
	TerminationCheckmate = "checkmate"
	TerminationStalemate = "stalemate"
	TerminationAbandoned = "abandoned"
)
