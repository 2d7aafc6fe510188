package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/scoreboard/go/internal/matchstore"
	"github.com/mcdev12/scoreboard/go/internal/matchstore/memory"
)

func newMux(t *testing.T, store matchstore.Reader) *http.ServeMux {
	t.Helper()
	mux := http.NewServeMux()
	NewHistoryHandler(store).RegisterRoutes(mux)
	return mux
}

func do(mux http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func seed(t *testing.T) *memory.Store {
	t.Helper()
	ctx := context.Background()
	s := memory.New()
	base := time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)
	for i := range 12 {
		_, err := s.SubmitMatch(ctx, matchstore.MatchRecord{
			GameWinner: "Hong",
			FinalScore: map[string]int64{"hong": int64(i)},
			ReplayData: "No replay data",
			Hong:       "Kim",
			Chung:      "Lee",
			Timestamp:  base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}
	require.NoError(t, s.AddPlayer(ctx, "Kim"))
	return s
}

func TestListMatches(t *testing.T) {
	mux := newMux(t, seed(t))

	rec := do(mux, http.MethodGet, "/api/matches", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var matches []matchstore.Match
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&matches))
	assert.Len(t, matches, matchstore.DefaultMatchLimit)
	assert.Equal(t, int64(11), matches[0].FinalScore["hong"])

	rec = do(mux, http.MethodGet, "/api/matches?limit=3", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&matches))
	assert.Len(t, matches, 3)

	rec = do(mux, http.MethodGet, "/api/matches?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListMatches_EmptyIsArray(t *testing.T) {
	mux := newMux(t, memory.New())
	rec := do(mux, http.MethodGet, "/api/matches", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestGetMatch(t *testing.T) {
	store := seed(t)
	mux := newMux(t, store)
	matches, err := store.ListMatches(context.Background(), 1)
	require.NoError(t, err)

	rec := do(mux, http.MethodGet, "/api/matches/"+matches[0].ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, matches[0].ID, body["id"])
	assert.Equal(t, "Hong", body["game_winner"])
	assert.Equal(t, "No replay data", body["replay_data"])

	rec = do(mux, http.MethodGet, "/api/matches/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPlayers(t *testing.T) {
	mux := newMux(t, seed(t))

	rec := do(mux, http.MethodPost, "/api/players", `{"name":"Lee"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = do(mux, http.MethodPost, "/api/players", `{"name":"Lee"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(mux, http.MethodPost, "/api/players", `{"name":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(mux, http.MethodPost, "/api/players", `nope`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(mux, http.MethodGet, "/api/players", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `["Kim","Lee"]`, rec.Body.String())

	rec = do(mux, http.MethodGet, "/api/players/Kim", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var p matchstore.Player
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&p))
	assert.Equal(t, "Kim", p.Name)
	assert.NotNil(t, p.Matches)

	rec = do(mux, http.MethodGet, "/api/players/Nobody", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

type brokenReader struct{ matchstore.Reader }

func (brokenReader) ListMatches(context.Context, int) ([]matchstore.Match, error) {
	return nil, errors.New("db down")
}

func TestListMatches_StoreError(t *testing.T) {
	mux := newMux(t, brokenReader{})
	rec := do(mux, http.MethodGet, "/api/matches", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"failed to list matches"}`, rec.Body.String())
}
