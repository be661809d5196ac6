// Package pgn reads and writes Portable Game Notation and replays PGN move text onto a
// game session.
package pgn

import (
	"io"
	"slices"
	"strconv"
	"strings"
)

// Result tokens.
const (
	ResultWhiteWins = "1-0"
	ResultBlackWins = "0-1"
	ResultDraw      = "1/2-1/2"
	ResultUnknown   = "*"
)

// requiredTags are always written first, in this order.
var requiredTags = []string{"Event", "Site", "Date", "Round", "White", "Black", "Result"}

const lineWidth = 80

type Tag struct {
	Key   string
	Value string
}

// Game is one parsed or exported game. Tags keep insertion order.
type Game struct {
	Tags   []Tag
	Moves  []string
	Result string
}

func NewGame() *Game {
	return &Game{Result: ResultUnknown}
}

// SetTag sets key, keeping its original position when it already exists.
func (g *Game) SetTag(key, value string) {
	for i := range g.Tags {
		if g.Tags[i].Key == key {
			g.Tags[i].Value = value
			return
		}
	}
	g.Tags = append(g.Tags, Tag{Key: key, Value: value})
}

// Tag returns the value for key, or def when unset.
func (g *Game) Tag(key, def string) string {
	for _, t := range g.Tags {
		if t.Key == key {
			return t.Value
		}
	}
	return def
}

func (g *Game) AddMove(token string) {
	g.Moves = append(g.Moves, token)
}

// String renders the game: tag pairs, a blank line, then wrapped move text. No trailing
// newline.
func (g *Game) String() string {
	lines := make([]string, 0, len(requiredTags)+4)
	for _, key := range requiredTags {
		def := "?"
		if key == "Result" {
			def = ResultUnknown
		}
		lines = append(lines, tagLine(key, g.Tag(key, def)))
	}
	for _, t := range g.Tags {
		if slices.Contains(requiredTags, t.Key) {
			continue
		}
		lines = append(lines, tagLine(t.Key, t.Value))
	}
	lines = append(lines, "")

	result := g.Result
	if result == "" {
		result = ResultUnknown
	}
	if len(g.Moves) == 0 {
		lines = append(lines, result)
		return strings.Join(lines, "\n")
	}

	var b strings.Builder
	for i, mv := range g.Moves {
		if i%2 == 0 {
			b.WriteString(strconv.Itoa(i/2 + 1))
			b.WriteString(". ")
		}
		b.WriteString(mv)
		b.WriteByte(' ')
	}
	b.WriteString(result)
	lines = append(lines, wrap(b.String(), lineWidth)...)
	return strings.Join(lines, "\n")
}

// Write writes the game followed by a newline.
func (g *Game) Write(w io.Writer) error {
	_, err := io.WriteString(w, g.String()+"\n")
	return err
}

// WriteGames writes games separated by one blank line, ending with a newline.
func WriteGames(w io.Writer, games []*Game) error {
	var b strings.Builder
	for i, g := range games {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(g.String())
	}
	b.WriteString("\n")
	_, err := io.WriteString(w, b.String())
	return err
}

func tagLine(key, value string) string {
	return "[" + key + " \"" + sanitizeTag(value) + "\"]"
}

func sanitizeTag(s string) string {
	s = strings.ReplaceAll(s, "\\", " ")
	s = strings.ReplaceAll(s, "\"", "'")
	return strings.TrimSpace(s)
}

// wrap packs whitespace-separated words greedily into lines of at most width characters.
// A word longer than width gets a line of its own.
func wrap(text string, width int) []string {
	var (
		lines []string
		cur   string
	)
	for _, word := range strings.Fields(text) {
		if len(cur)+len(word)+1 <= width {
			if cur != "" {
				cur += " " + word
			} else {
				cur = word
			}
			continue
		}
		if cur != "" {
			lines = append(lines, cur)
		}
		cur = word
	}
	if cur != "" {
		lines = append(lines, cur)
	}
	return lines
}
