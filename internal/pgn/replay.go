package pgn

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Replayer is a session that can be rewound before a game is replayed onto it.
type Replayer interface {
	Mover
	Reset()
}

// ReplayError reports the first move token that could not be played. Moves before it
// remain applied.
type ReplayError struct {
	Index int
	Token string
	Err   error
}

func (e *ReplayError) Error() string {
	return fmt.Sprintf("replay move %d %q: %v", e.Index+1, e.Token, e.Err)
}

func (e *ReplayError) Unwrap() error { return e.Err }

// Apply resets s and plays every move of g.
func Apply(s Replayer, g *Game) error { return defaultResolver.Apply(s, g) }

func (r *Resolver) Apply(s Replayer, g *Game) error {
	s.Reset()
	for i, token := range g.Moves {
		if err := r.ApplyMove(s, token); err != nil {
			r.logger.Warn("pgn_replay_failed",
				zap.Int("index", i),
				zap.String("token", token),
				zap.Error(err),
			)
			return &ReplayError{Index: i, Token: token, Err: err}
		}
	}
	r.logger.Debug("pgn_replay_done", zap.Int("moves", len(g.Moves)))
	return nil
}

// Record is what an export needs from a session.
type Record interface {
	SANMoves() []string
	Outcome() string
}

// ExportOptions fills the seven-tag roster. Empty fields take the defaults.
type ExportOptions struct {
	Event string
	Site  string
	Round string
	White string
	Black string
	Date  time.Time
}

func (o ExportOptions) withDefaults() ExportOptions {
	if o.Event == "" {
		o.Event = "Casual Game"
	}
	if o.Site == "" {
		o.Site = "Blundex Chess"
	}
	if o.Round == "" {
		o.Round = "1"
	}
	if o.White == "" {
		o.White = "Player"
	}
	if o.Black == "" {
		o.Black = "Opponent"
	}
	if o.Date.IsZero() {
		o.Date = time.Now()
	}
	return o
}

// FromSession builds a game from the session's history in SAN.
func FromSession(s Record, opts ExportOptions) *Game {
	opts = opts.withDefaults()
	g := NewGame()
	g.SetTag("Event", opts.Event)
	g.SetTag("Site", opts.Site)
	g.SetTag("Date", fmt.Sprintf("%04d.%02d.%02d", opts.Date.Year(), int(opts.Date.Month()), opts.Date.Day()))
	g.SetTag("Round", opts.Round)
	g.SetTag("White", opts.White)
	g.SetTag("Black", opts.Black)
	g.Moves = s.SANMoves()
	g.Result = s.Outcome()
	g.SetTag("Result", g.Result)
	return g
}
