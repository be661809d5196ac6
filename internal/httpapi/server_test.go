package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/blundex/internal/domain"
	"github.com/park285/blundex/internal/service"
	"github.com/park285/blundex/internal/settings"
	"github.com/park285/blundex/internal/store"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	prefs, err := settings.Open("", nil)
	require.NoError(t, err)
	reg := service.NewRegistry(service.Deps{Archive: store.NewMemoryArchive(), Settings: prefs}, service.Config{}, nil)
	srv := httptest.NewServer(New(reg, prefs, nil).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func createSession(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	resp := do(t, http.MethodPost, srv.URL+"/sessions", "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[service.State](t, resp).ID
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)
	resp := do(t, http.MethodGet, srv.URL+"/healthz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSessionLifecycle(t *testing.T) {
	srv := newTestServer(t)
	id := createSession(t, srv)
	base := srv.URL + "/sessions/" + id

	for _, mv := range []string{"f3", "e5", "g4"} {
		resp := do(t, http.MethodPost, base+"/moves", `{"move":"`+mv+`"}`)
		require.Equal(t, http.StatusOK, resp.StatusCode, mv)
	}

	resp := do(t, http.MethodGet, base+"/preview?move=Qh4%23", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	pv := decode[service.State](t, resp)
	assert.True(t, pv.Checkmate)

	resp = do(t, http.MethodGet, base, "")
	st := decode[service.State](t, resp)
	assert.False(t, st.Checkmate)
	assert.Len(t, st.MovesSAN, 3)

	resp = do(t, http.MethodPost, base+"/moves", `{"move":"Qh4#"}`)
	st = decode[service.State](t, resp)
	assert.Equal(t, "0-1", st.Outcome)

	resp = do(t, http.MethodGet, base+"/pgn", "")
	assert.Equal(t, "application/x-chess-pgn", resp.Header.Get("Content-Type"))
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "2. g4 Qh4# 0-1")

	resp = do(t, http.MethodDelete, base, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	game := decode[domain.ArchivedGame](t, resp)
	assert.Equal(t, domain.TerminationCheckmate, game.Termination)

	resp = do(t, http.MethodGet, srv.URL+"/games", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]domain.ArchivedGame](t, resp), 1)

	resp = do(t, http.MethodGet, base, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "session_not_found", decode[Error](t, resp).Code)
}

func TestErrorCodes(t *testing.T) {
	srv := newTestServer(t)
	id := createSession(t, srv)
	base := srv.URL + "/sessions/" + id

	cases := []struct {
		method, path, body string
		status             int
		code               string
	}{
		{http.MethodPost, "/moves", `{"move":"e2e5"}`, http.StatusUnprocessableEntity, "illegal_move"},
		{http.MethodPost, "/moves", `{"move":"??"}`, http.StatusBadRequest, "bad_move"},
		{http.MethodPost, "/moves", `{`, http.StatusBadRequest, "bad_request"},
		{http.MethodPost, "/undo", "", http.StatusConflict, "empty_history"},
		{http.MethodPost, "/pgn", `[Event "x"]`, http.StatusBadRequest, "no_games"},
		{http.MethodGet, "/board.png?flip=maybe", "", http.StatusBadRequest, "bad_request"},
	}
	for _, tc := range cases {
		resp := do(t, tc.method, base+tc.path, tc.body)
		assert.Equal(t, tc.status, resp.StatusCode, tc.path)
		assert.Equal(t, tc.code, decode[Error](t, resp).Code, tc.path)
	}

	resp := do(t, http.MethodPost, srv.URL+"/sessions", `{"fen":"garbage"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "bad_fen", decode[Error](t, resp).Code)

	resp = do(t, http.MethodGet, srv.URL+"/games/99", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestImportReportsPartialState(t *testing.T) {
	srv := newTestServer(t)
	id := createSession(t, srv)

	resp := do(t, http.MethodPost, srv.URL+"/sessions/"+id+"/pgn", "1. e4 e5 2. Ke3 *")
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	body := decode[Error](t, resp)
	assert.Equal(t, "replay_failed", body.Code)
	require.NotNil(t, body.State)
	assert.Equal(t, []string{"e4", "e5"}, body.State.MovesSAN)
}

func TestBoardPNG(t *testing.T) {
	srv := newTestServer(t)
	id := createSession(t, srv)

	resp := do(t, http.MethodGet, srv.URL+"/sessions/"+id+"/board.png?flip=true&hanging=1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(raw, []byte("\x89PNG")))
}

func TestSettingsEndpoints(t *testing.T) {
	srv := newTestServer(t)

	resp := do(t, http.MethodPost, srv.URL+"/settings/flip_board/toggle", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string]bool{"flip_board": true}, decode[map[string]bool](t, resp))

	resp = do(t, http.MethodPut, srv.URL+"/settings/hanging_pieces", `{"enabled":true}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, http.MethodGet, srv.URL+"/settings", "")
	all := decode[map[string]bool](t, resp)
	assert.True(t, all["flip_board"])
	assert.True(t, all["hanging_pieces"])
	assert.False(t, all["activity"])

	resp = do(t, http.MethodPost, srv.URL+"/settings/sound/toggle", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "unknown_setting", decode[Error](t, resp).Code)
}

func TestStream(t *testing.T) {
	srv := newTestServer(t)
	id := createSession(t, srv)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/sessions/" + id + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	var first service.State
	require.NoError(t, wsjson.Read(ctx, conn, &first))
	assert.Equal(t, id, first.ID)
	assert.Empty(t, first.MovesSAN)

	resp := do(t, http.MethodPost, srv.URL+"/sessions/"+id+"/moves", `{"move":"d4"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var next service.State
	require.NoError(t, wsjson.Read(ctx, conn, &next))
	assert.Equal(t, []string{"d4"}, next.MovesSAN)

	resp = do(t, http.MethodGet, srv.URL+"/sessions/missing/ws", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
