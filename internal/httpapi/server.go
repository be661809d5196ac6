// Package httpapi exposes the session registry over HTTP and a websocket state stream.
package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/park285/blundex/internal/service"
	"github.com/park285/blundex/internal/settings"
)

const maxBodyBytes = 1 << 20

type Server struct {
	reg    *service.Registry
	prefs  *settings.Store
	router *mux.Router
	logger *zap.Logger
}

// New wires the routes. prefs may be nil, in which case the settings endpoints report
// every toggle as off and reject changes.
func New(reg *service.Registry, prefs *settings.Store, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{reg: reg, prefs: prefs, router: mux.NewRouter(), logger: logger}

	r := s.router
	r.HandleFunc("/healthz", s.health).Methods(http.MethodGet)

	r.HandleFunc("/sessions", s.createSession).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{id}", s.getSession).Methods(http.MethodGet)
	r.HandleFunc("/sessions/{id}", s.closeSession).Methods(http.MethodDelete)
	r.HandleFunc("/sessions/{id}/moves", s.move).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{id}/undo", s.undo).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{id}/redo", s.redo).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{id}/reset", s.reset).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{id}/analysis", s.analysis).Methods(http.MethodGet)
	r.HandleFunc("/sessions/{id}/preview", s.preview).Methods(http.MethodGet)
	r.HandleFunc("/sessions/{id}/pgn", s.exportPGN).Methods(http.MethodGet)
	r.HandleFunc("/sessions/{id}/pgn", s.importPGN).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{id}/board.png", s.board).Methods(http.MethodGet)
	r.HandleFunc("/sessions/{id}/ws", s.stream).Methods(http.MethodGet)

	r.HandleFunc("/games", s.recentGames).Methods(http.MethodGet)
	r.HandleFunc("/games/{id:[0-9]+}", s.game).Methods(http.MethodGet)

	r.HandleFunc("/settings", s.listSettings).Methods(http.MethodGet)
	r.HandleFunc("/settings/{key}", s.setSetting).Methods(http.MethodPut)
	r.HandleFunc("/settings/{key}/toggle", s.toggleSetting).Methods(http.MethodPost)
	return s
}

// Handler returns the router wrapped with panic recovery and access logging.
func (s *Server) Handler() http.Handler {
	access := zap.NewStdLog(s.logger.Named("access")).Writer()
	recovery := handlers.RecoveryHandler(
		handlers.RecoveryLogger(zap.NewStdLog(s.logger.Named("panic"))),
		handlers.PrintRecoveryStack(true),
	)
	return handlers.LoggingHandler(access, recovery(s.router))
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var req service.CreateRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		s.fail(w, r, err, nil)
		return
	}
	st, err := s.reg.Create(r.Context(), req)
	if err != nil {
		s.fail(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusCreated, st)
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	st, err := s.reg.Get(r.Context(), mux.Vars(r)["id"])
	s.respond(w, r, st, err)
}

func (s *Server) closeSession(w http.ResponseWriter, r *http.Request) {
	game, err := s.reg.Close(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, r, err, nil)
		return
	}
	if game == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, game)
}

type moveRequest struct {
	Move string `json:"move"`
}

func (s *Server) move(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err, nil)
		return
	}
	st, err := s.reg.Move(r.Context(), mux.Vars(r)["id"], req.Move)
	s.respond(w, r, st, err)
}

func (s *Server) undo(w http.ResponseWriter, r *http.Request) {
	st, err := s.reg.Undo(r.Context(), mux.Vars(r)["id"])
	s.respond(w, r, st, err)
}

func (s *Server) redo(w http.ResponseWriter, r *http.Request) {
	st, err := s.reg.Redo(r.Context(), mux.Vars(r)["id"])
	s.respond(w, r, st, err)
}

func (s *Server) reset(w http.ResponseWriter, r *http.Request) {
	st, err := s.reg.Reset(r.Context(), mux.Vars(r)["id"])
	s.respond(w, r, st, err)
}

func (s *Server) preview(w http.ResponseWriter, r *http.Request) {
	st, err := s.reg.Preview(r.Context(), mux.Vars(r)["id"], r.URL.Query().Get("move"))
	s.respond(w, r, st, err)
}

func (s *Server) analysis(w http.ResponseWriter, r *http.Request) {
	an, err := s.reg.Analysis(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, an)
}

func (s *Server) exportPGN(w http.ResponseWriter, r *http.Request) {
	text, err := s.reg.ExportPGN(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, r, err, nil)
		return
	}
	w.Header().Set("Content-Type", "application/x-chess-pgn")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, text+"\n")
}

func (s *Server) importPGN(w http.ResponseWriter, r *http.Request) {
	raw, err := readBody(r)
	if err != nil {
		s.fail(w, r, err, nil)
		return
	}
	st, err := s.reg.ImportPGN(r.Context(), mux.Vars(r)["id"], string(raw))
	s.respond(w, r, st, err)
}

func (s *Server) board(w http.ResponseWriter, r *http.Request) {
	var opts service.BoardOptions
	q := r.URL.Query()
	for name, dst := range map[string]**bool{"flip": &opts.Flip, "hanging": &opts.Hanging, "marked": &opts.Marked} {
		v := q.Get(name)
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			s.fail(w, r, errBadBool, nil)
			return
		}
		*dst = &b
	}
	img, err := s.reg.RenderBoard(r.Context(), mux.Vars(r)["id"], opts)
	if err != nil {
		s.fail(w, r, err, nil)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(img)
}

func (s *Server) recentGames(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			s.fail(w, r, errBadLimit, nil)
			return
		}
		limit = n
	}
	games, err := s.reg.RecentGames(r.Context(), limit)
	if err != nil {
		s.fail(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, games)
}

func (s *Server) game(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		s.fail(w, r, errBadGameID, nil)
		return
	}
	g, err := s.reg.Game(r.Context(), id)
	if err != nil {
		s.fail(w, r, err, nil)
		return
	}
	if g == nil {
		s.fail(w, r, errGameAbsent, nil)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) listSettings(w http.ResponseWriter, r *http.Request) {
	if s.prefs == nil {
		writeJSON(w, http.StatusOK, map[string]bool{})
		return
	}
	writeJSON(w, http.StatusOK, s.prefs.All())
}

type settingRequest struct {
	Enabled bool `json:"enabled"`
}

func (s *Server) setSetting(w http.ResponseWriter, r *http.Request) {
	var req settingRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err, nil)
		return
	}
	key := mux.Vars(r)["key"]
	if s.prefs == nil {
		s.fail(w, r, settings.ErrUnknownKey, nil)
		return
	}
	if err := s.prefs.Set(key, req.Enabled); err != nil {
		s.fail(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{key: req.Enabled})
}

func (s *Server) toggleSetting(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	if s.prefs == nil {
		s.fail(w, r, settings.ErrUnknownKey, nil)
		return
	}
	on, err := s.prefs.Toggle(key)
	if err != nil {
		s.fail(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{key: on})
}

// respond writes st, or the error with st attached when an operation partly applied.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, st *service.State, err error) {
	if err != nil {
		s.fail(w, r, err, st)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, st *service.State) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("http_request_failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	} else {
		s.logger.Debug("http_request_rejected",
			zap.String("path", r.URL.Path),
			zap.String("code", code),
			zap.Error(err),
		)
	}
	writeJSON(w, status, Error{Code: code, Message: err.Error(), State: st})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func readBody(r *http.Request) ([]byte, error) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return nil, err
	}
	if len(raw) > maxBodyBytes {
		return nil, errBodyTooBig
	}
	return raw, nil
}

func decodeJSON(r *http.Request, v any) error {
	raw, err := readBody(r)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return errBadJSON
	}
	return nil
}

// decodeOptionalJSON accepts an empty body as the zero value.
func decodeOptionalJSON(r *http.Request, v any) error {
	raw, err := readBody(r)
	if err != nil {
		return err
	}
	if strings.TrimSpace(string(raw)) == "" {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return errBadJSON
	}
	return nil
}
