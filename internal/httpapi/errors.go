package httpapi

import (
	"errors"
	"net/http"

	"github.com/park285/blundex/internal/pgn"
	"github.com/park285/blundex/internal/rules"
	"github.com/park285/blundex/internal/service"
	"github.com/park285/blundex/internal/session"
	"github.com/park285/blundex/internal/settings"
)

type staticErr string

func (e staticErr) Error() string { return string(e) }

const (
	errBadJSON    = staticErr("request body is not valid JSON")
	errBadGameID  = staticErr("game id must be a positive integer")
	errBadBool    = staticErr("flag must be true or false")
	errBadLimit   = staticErr("limit must be an integer")
	errGameAbsent = staticErr("game not found")
	errBodyTooBig = staticErr("request body too large")
)

// Error is the JSON body of every failed request.
type Error struct {
	Code    string         `json:"error"`
	Message string         `json:"message"`
	State   *service.State `json:"state,omitempty"`
}

// classify maps an error to a status and a stable code.
func classify(err error) (int, string) {
	var replay *pgn.ReplayError
	switch {
	case errors.As(err, &replay):
		return http.StatusUnprocessableEntity, "replay_failed"
	case errors.Is(err, service.ErrSessionNotFound):
		return http.StatusNotFound, "session_not_found"
	case errors.Is(err, errGameAbsent):
		return http.StatusNotFound, "game_not_found"
	case errors.Is(err, settings.ErrUnknownKey):
		return http.StatusNotFound, "unknown_setting"
	case errors.Is(err, service.ErrEmptyMove), errors.Is(err, pgn.ErrBadToken):
		return http.StatusBadRequest, "bad_move"
	case errors.Is(err, pgn.ErrNoCandidate), errors.Is(err, session.ErrIllegalMove):
		return http.StatusUnprocessableEntity, "illegal_move"
	case errors.Is(err, session.ErrEmptyHistory):
		return http.StatusConflict, "empty_history"
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, pgn.ErrNoGames):
		return http.StatusBadRequest, "no_games"
	case errors.Is(err, rules.ErrBadFEN):
		return http.StatusBadRequest, "bad_fen"
	case errors.Is(err, errBadJSON), errors.Is(err, errBadGameID), errors.Is(err, errBadBool), errors.Is(err, errBadLimit):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, errBodyTooBig):
		return http.StatusRequestEntityTooLarge, "too_large"
	case errors.Is(err, service.ErrArchiveUnavailable):
		return http.StatusServiceUnavailable, "archive_unavailable"
	default:
		return http.StatusInternalServerError, "internal"
	}
}
