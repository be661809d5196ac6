package pgn

import (
	"fmt"
	"io"
	"regexp"
	"strings"
)

var (
	tagRe        = regexp.MustCompile(`^\[(\w+)\s+"(.*)"\]$`)
	commentRe    = regexp.MustCompile(`\{[^}]*\}`)
	variationRe  = regexp.MustCompile(`\([^)]*\)`)
	moveNumberRe = regexp.MustCompile(`^\d+\.+`)
	annotationRe = regexp.MustCompile(`[?!+#]+$`)
)

func isResult(token string) bool {
	switch token {
	case ResultWhiteWins, ResultBlackWins, ResultDraw, ResultUnknown:
		return true
	}
	return false
}

// Parse splits text into games. Tag lines open a game or extend the open one; other lines
// are move text. A blank line after move text closes the game. Malformed tag lines are
// skipped. A game with tags but no move text is dropped.
func Parse(text string) []*Game {
	var (
		games    []*Game
		cur      *Game
		inMoves  bool
		moveText strings.Builder
	)
	finish := func() {
		if cur != nil && inMoves && strings.TrimSpace(moveText.String()) != "" {
			cur.Moves, cur.Result = parseMoves(moveText.String())
			games = append(games, cur)
		}
		cur, inMoves = nil, false
		moveText.Reset()
	}

	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			if inMoves && strings.TrimSpace(moveText.String()) != "" {
				finish()
			}
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			if cur == nil {
				cur = NewGame()
				inMoves = false
			}
			if m := tagRe.FindStringSubmatch(line); m != nil {
				cur.SetTag(m[1], m[2])
			}
			continue
		}
		if cur == nil {
			cur = NewGame()
		}
		inMoves = true
		moveText.WriteByte(' ')
		moveText.WriteString(line)
	}
	finish()
	return games
}

// ParseReader reads all of r and parses it.
func ParseReader(r io.Reader) ([]*Game, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read pgn: %w", err)
	}
	return Parse(string(raw)), nil
}

// parseMoves tokenizes move text. Comments and variations are removed one level deep; the
// first result token ends the move list.
func parseMoves(text string) ([]string, string) {
	text = commentRe.ReplaceAllString(text, " ")
	text = variationRe.ReplaceAllString(text, " ")

	var moves []string
	result := ResultUnknown
	for _, token := range strings.Fields(text) {
		if isResult(token) {
			result = token
			break
		}
		// "12." and "12..." as well as "12.e4"
		token = moveNumberRe.ReplaceAllString(token, "")
		if token == "" || strings.Trim(token, ".") == "" {
			continue
		}
		if mv := annotationRe.ReplaceAllString(token, ""); mv != "" {
			moves = append(moves, mv)
		}
	}
	return moves, result
}
