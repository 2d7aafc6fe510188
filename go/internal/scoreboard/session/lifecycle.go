package session

import (
	"context"
	"errors"
	"maps"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/scoreboard/go/internal/matchstore"
	"github.com/mcdev12/scoreboard/go/internal/scoreboard/protocol"
	"github.com/mcdev12/scoreboard/go/internal/scoreboard/replay"
)

func (s *Session) startRound() {
	s.round++
	log.Info().Int("round", s.round).Msg("round started")
}

func (s *Session) selectPlayer(m protocol.SelectPlayer) {
	if m.Hong != nil {
		s.hong = *m.Hong
	}
	if m.Chung != nil {
		s.chung = *m.Chung
	}
	log.Info().Str("hong", s.hong).Str("chung", s.chung).Msg("players selected")
}

// finishMatch captures the match record and resets per-match state. The
// counters are left as they are. Persistence runs in the background.
func (s *Session) finishMatch(m protocol.GameOver) {
	data, err := s.replay.Serialize()
	if err != nil {
		log.Error().Err(err).Msg("failed to serialize replay, submitting without it")
		data = replay.NoData
	}

	rec := matchstore.MatchRecord{
		GameWinner: m.GameWinner,
		FinalScore: maps.Clone(m.Scores),
		ReplayData: data,
		Hong:       s.hong,
		Chung:      s.chung,
		Timestamp:  s.clock.Now().UTC(),
	}
	if rec.FinalScore == nil {
		rec.FinalScore = map[string]int64{}
	}

	log.Info().
		Str("game_winner", rec.GameWinner).
		Int("replay_events", s.replay.Len()).
		Int("rounds", s.round).
		Msg("match finished")

	s.round = 1
	s.replay.Clear()

	if s.store == nil {
		return
	}
	s.inflight.Add(1)
	go s.persist(rec)
}

// persist submits the match then appends each competitor's history. Failures are only logged.
func (s *Session) persist(rec matchstore.MatchRecord) {
	defer s.inflight.Done()

	ctx, cancel := s.persistContext()
	matchID, err := s.store.SubmitMatch(ctx, rec)
	cancel()
	if err != nil {
		log.Error().Err(err).Str("game_winner", rec.GameWinner).Msg("failed to submit match")
		return
	}
	log.Info().Str("match_id", matchID).Msg("match submitted")

	sides := []struct {
		name     string
		opponent string
		label    string
	}{
		{name: rec.Hong, opponent: rec.Chung, label: matchstore.SideHong},
		{name: rec.Chung, opponent: rec.Hong, label: matchstore.SideChung},
	}
	for _, side := range sides {
		entry := matchstore.HistoryEntry{
			PlayerName: side.name,
			MatchID:    matchID,
			Opponent:   side.opponent,
			Score:      rec.FinalScore,
			Result:     matchstore.ResultFor(rec.GameWinner, side.label),
		}
		ctx, cancel := s.persistContext()
		err := s.store.AppendPlayerHistory(ctx, entry)
		cancel()
		switch {
		case errors.Is(err, matchstore.ErrPlayerNotFound):
			log.Warn().Str("player", side.name).Str("match_id", matchID).Msg("player not found, history not recorded")
		case err != nil:
			log.Error().Err(err).Str("player", side.name).Str("match_id", matchID).Msg("failed to append player history")
		}
	}

	if s.publisher == nil {
		return
	}
	ctx, cancel = s.persistContext()
	defer cancel()
	if err := s.publisher.PublishMatchCompleted(ctx, matchID, rec); err != nil {
		log.Error().Err(err).Str("match_id", matchID).Msg("failed to publish match completed event")
	}
}

func (s *Session) persistContext() (context.Context, context.CancelFunc) {
	if s.persistTimeout > 0 {
		return context.WithTimeout(context.Background(), s.persistTimeout)
	}
	return context.WithCancel(context.Background())
}

// Wait blocks until every background persistence task has finished
func (s *Session) Wait() {
	s.inflight.Wait()
}
