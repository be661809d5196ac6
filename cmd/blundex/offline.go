package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	nchess "github.com/corentings/chess/v2"

	appcfg "github.com/park285/blundex/internal/config"
	"github.com/park285/blundex/internal/msgcat"
	"github.com/park285/blundex/internal/obslog"
	"github.com/park285/blundex/internal/pgn"
	"github.com/park285/blundex/internal/service"
	"github.com/park285/blundex/internal/session"
	"github.com/park285/blundex/internal/settings"
)

var errUsage = errors.New("invalid arguments")

// offline is an in-memory registry for one-shot commands. Nothing is persisted or archived.
type offline struct {
	reg     *service.Registry
	catalog *msgcat.Catalog
}

// newOffline builds the registry. With allNotes every help toggle is on regardless of the
// settings file.
func newOffline(cfg *appcfg.AppConfig, allNotes bool) (*offline, error) {
	path := cfg.SettingsFile
	if allNotes {
		path = ""
	}
	prefs, err := settings.Open(path, obslog.L())
	if err != nil {
		return nil, err
	}
	if allNotes {
		for _, k := range prefs.Keys() {
			if err := prefs.Set(k, true); err != nil {
				return nil, err
			}
		}
	}
	catalog, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		return nil, err
	}
	reg := service.NewRegistry(service.Deps{Settings: prefs, Catalog: catalog}, service.Config{
		White: cfg.PlayerName,
		Black: cfg.OpponentName,
		Event: cfg.Event,
	}, obslog.L())
	return &offline{reg: reg, catalog: catalog}, nil
}

// load starts a session from fen, or from the first game of the PGN file at path.
func (o *offline) load(ctx context.Context, fen, path string) (*service.State, error) {
	if fen != "" && path != "" {
		return nil, fmt.Errorf("%w: -fen and -pgn are exclusive", errUsage)
	}
	st, err := o.reg.Create(ctx, service.CreateRequest{FEN: fen})
	if err != nil || path == "" {
		return st, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &pgn.IOError{Op: "read", Path: path, Err: err}
	}
	return o.reg.ImportPGN(ctx, st.ID, string(raw))
}

func (o *offline) replayFailure(err error) string {
	var replay *pgn.ReplayError
	if !errors.As(err, &replay) {
		return err.Error()
	}
	return o.catalog.RenderOr("pgn.replay_failed", map[string]any{
		"Index": replay.Index + 1,
		"Token": replay.Token,
		"Err":   replay.Err,
	}, err.Error())
}

func runAnalyze(cfg *appcfg.AppConfig, args []string, w io.Writer) error {
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	fen := fs.String("fen", "", "position to analyze")
	path := fs.String("pgn", "", "PGN file whose final position is analyzed")
	all := fs.Bool("all", false, "include every note regardless of the settings file")
	asJSON := fs.Bool("json", false, "print the full analysis as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	o, err := newOffline(cfg, *all)
	if err != nil {
		return err
	}
	ctx := context.Background()
	st, err := o.load(ctx, *fen, *path)
	if err != nil {
		if st == nil {
			return err
		}
		fmt.Fprintln(w, o.replayFailure(err))
	}
	an, err := o.reg.Analysis(ctx, st.ID)
	if err != nil {
		return err
	}

	if *asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(an)
	}
	fmt.Fprintln(w, an.FEN)
	for _, line := range an.Notes {
		fmt.Fprintln(w, line)
	}
	return nil
}

func runReplay(cfg *appcfg.AppConfig, args []string, w io.Writer) error {
	fs := flag.NewFlagSet("replay", flag.ContinueOnError)
	path := fs.String("pgn", "", "PGN file to replay")
	index := fs.Int("game", 1, "game number within the file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *path == "" {
		return fmt.Errorf("%w: -pgn is required", errUsage)
	}

	o, err := newOffline(cfg, false)
	if err != nil {
		return err
	}
	games, err := pgn.LoadFile(*path)
	if err != nil {
		return err
	}
	if *index < 1 || *index > len(games) {
		return fmt.Errorf("%w: game %d of %d", pgn.ErrNoGames, *index, len(games))
	}
	g := games[*index-1]

	sess := session.New(session.WithLogger(obslog.L()))
	replayErr := pgn.NewResolver(obslog.L()).Apply(sess, g)
	for _, mv := range sess.History() {
		notation := mv.Notation
		if mv.Piece.Color() == nchess.Black {
			notation = "... " + notation
		}
		fmt.Fprintln(w, o.catalog.RenderOr("move.played", map[string]any{
			"Number":   mv.Number,
			"Notation": notation,
		}, mv.String()))
	}
	if replayErr != nil {
		fmt.Fprintln(w, o.replayFailure(replayErr))
	}
	fmt.Fprintln(w, sess.FEN())
	fmt.Fprintln(w, sess.Outcome())
	return replayErr
}

func runExport(cfg *appcfg.AppConfig, args []string, w io.Writer) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	in := fs.String("pgn", "", "PGN file to re-export (first game)")
	moves := fs.String("moves", "", "space separated moves in SAN or UCI")
	out := fs.String("out", "", "destination PGN file")
	white := fs.String("white", cfg.PlayerName, "White player tag")
	black := fs.String("black", cfg.OpponentName, "Black player tag")
	event := fs.String("event", cfg.Event, "Event tag")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *out == "" {
		return fmt.Errorf("%w: -out is required", errUsage)
	}
	if *in != "" && *moves != "" {
		return fmt.Errorf("%w: -pgn and -moves are exclusive", errUsage)
	}

	o, err := newOffline(cfg, false)
	if err != nil {
		return err
	}
	sess := session.New(session.WithLogger(obslog.L()))
	if *in != "" {
		if err := pgn.LoadIntoSession(*in, sess); err != nil {
			return errors.New(o.replayFailure(err))
		}
	}
	for i, token := range strings.Fields(*moves) {
		if err := pgn.ApplyMove(sess, token); err != nil {
			return errors.New(o.replayFailure(&pgn.ReplayError{Index: i, Token: token, Err: err}))
		}
	}

	opts := pgn.ExportOptions{Event: *event, White: *white, Black: *black}
	if err := pgn.SaveSession(*out, sess, opts); err != nil {
		return err
	}
	fmt.Fprintln(w, o.catalog.RenderOr("pgn.saved", map[string]any{
		"Moves": len(sess.History()),
		"Path":  *out,
	}, *out))
	return nil
}

func runBoard(cfg *appcfg.AppConfig, args []string, w io.Writer) error {
	fs := flag.NewFlagSet("board", flag.ContinueOnError)
	fen := fs.String("fen", "", "position to draw")
	path := fs.String("pgn", "", "PGN file whose final position is drawn")
	out := fs.String("out", "board.png", "destination PNG file")
	flip := fs.Bool("flip", false, "draw from Black's side")
	hanging := fs.Bool("hanging", false, "mark hanging pieces")
	if err := fs.Parse(args); err != nil {
		return err
	}

	o, err := newOffline(cfg, false)
	if err != nil {
		return err
	}
	ctx := context.Background()
	st, err := o.load(ctx, *fen, *path)
	if err != nil {
		if st == nil {
			return err
		}
		fmt.Fprintln(w, o.replayFailure(err))
	}
	img, err := o.reg.RenderBoard(ctx, st.ID, service.BoardOptions{Flip: flip, Hanging: hanging})
	if err != nil {
		return err
	}
	if err := os.WriteFile(*out, img, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", *out, err)
	}
	fmt.Fprintln(w, *out)
	return nil
}
