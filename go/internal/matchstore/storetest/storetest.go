// Package storetest holds the behaviour every matchstore backend must share.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/scoreboard/go/internal/matchstore"
)

// Run exercises a backend. newStore must return an empty store.
func Run(t *testing.T, newStore func(t *testing.T) matchstore.Store) {
	t.Run("submit and get match", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		rec := record("Chung", time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC))

		id, err := s.SubmitMatch(ctx, rec)
		require.NoError(t, err)
		require.NotEmpty(t, id)

		got, err := s.GetMatch(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, id, got.ID)
		assert.Equal(t, "Chung", got.GameWinner)
		assert.Equal(t, rec.FinalScore, got.FinalScore)
		assert.JSONEq(t, rec.ReplayData, got.ReplayData)
		assert.Equal(t, "Kim", got.Hong)
		assert.Equal(t, "Lee", got.Chung)
		assert.True(t, rec.Timestamp.Equal(got.Timestamp))
	})

	t.Run("replay sentinel round trips", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		rec := record("Hong", time.Now().UTC().Truncate(time.Millisecond))
		rec.ReplayData = "No replay data"

		id, err := s.SubmitMatch(ctx, rec)
		require.NoError(t, err)
		got, err := s.GetMatch(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "No replay data", got.ReplayData)
	})

	t.Run("missing match", func(t *testing.T) {
		s := newStore(t)
		_, err := s.GetMatch(context.Background(), "00000000-0000-0000-0000-000000000000")
		assert.ErrorIs(t, err, matchstore.ErrMatchNotFound)
	})

	t.Run("list matches newest first with limit", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		base := time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)
		var ids []string
		for i := range 3 {
			id, err := s.SubmitMatch(ctx, record("Hong", base.Add(time.Duration(i)*time.Minute)))
			require.NoError(t, err)
			ids = append(ids, id)
		}

		got, err := s.ListMatches(ctx, 2)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, ids[2], got[0].ID)
		assert.Equal(t, ids[1], got[1].ID)

		all, err := s.ListMatches(ctx, 0)
		require.NoError(t, err)
		assert.Len(t, all, 3)
	})

	t.Run("players", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.AddPlayer(ctx, "Lee"))
		require.NoError(t, s.AddPlayer(ctx, "Kim"))
		assert.ErrorIs(t, s.AddPlayer(ctx, "Kim"), matchstore.ErrPlayerExists)
		assert.ErrorIs(t, s.AddPlayer(ctx, "  "), matchstore.ErrInvalidName)

		names, err := s.ListPlayerNames(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"Kim", "Lee"}, names)

		p, err := s.GetPlayer(ctx, "Kim")
		require.NoError(t, err)
		assert.Equal(t, "Kim", p.Name)
		assert.Zero(t, p.Wins)
		assert.Empty(t, p.Matches)

		_, err = s.GetPlayer(ctx, "Park")
		assert.ErrorIs(t, err, matchstore.ErrPlayerNotFound)
	})

	t.Run("append player history", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.AddPlayer(ctx, "Kim"))

		score := map[string]int64{"Hong": 3, "Chung": 5}
		require.NoError(t, s.AppendPlayerHistory(ctx, matchstore.HistoryEntry{
			PlayerName: "Kim", MatchID: "m1", Opponent: "Lee", Score: score, Result: matchstore.ResultLoss,
		}))
		require.NoError(t, s.AppendPlayerHistory(ctx, matchstore.HistoryEntry{
			PlayerName: "Kim", MatchID: "m2", Opponent: "Lee", Score: score, Result: matchstore.ResultWin,
		}))
		require.NoError(t, s.AppendPlayerHistory(ctx, matchstore.HistoryEntry{
			PlayerName: "Kim", MatchID: "m3", Opponent: "Lee", Score: score, Result: matchstore.ResultDraw,
		}))

		p, err := s.GetPlayer(ctx, "Kim")
		require.NoError(t, err)
		assert.Equal(t, 1, p.Wins)
		assert.Equal(t, 1, p.Losses)
		require.Len(t, p.Matches, 3)
		assert.Equal(t, "m1", p.Matches[0].MatchID)
		assert.Equal(t, "Lee", p.Matches[0].Opponent)
		assert.Equal(t, score, p.Matches[0].Score)
		assert.Equal(t, matchstore.ResultDraw, p.Matches[2].Result)

		err = s.AppendPlayerHistory(ctx, matchstore.HistoryEntry{PlayerName: "Nobody", MatchID: "m1", Result: matchstore.ResultWin})
		assert.ErrorIs(t, err, matchstore.ErrPlayerNotFound)
	})
}

func record(winner string, at time.Time) matchstore.MatchRecord {
	return matchstore.MatchRecord{
		GameWinner: winner,
		FinalScore: map[string]int64{"hong": 3, "chung": 5},
		ReplayData: `[{"round":1,"technique":"punch","player":"chung","timestamp":1000}]`,
		Hong:       "Kim",
		Chung:      "Lee",
		Timestamp:  at,
	}
}
