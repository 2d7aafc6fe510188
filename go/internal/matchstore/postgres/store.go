package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
	"github.com/sqlc-dev/pqtype"

	"github.com/mcdev12/scoreboard/go/internal/dbconfig"
	"github.com/mcdev12/scoreboard/go/internal/matchstore"
	"github.com/mcdev12/scoreboard/go/internal/scoreboard/replay"
	"github.com/mcdev12/scoreboard/go/internal/sqlutil"
)

//go:embed schema.sql
var schema string

const uniqueViolation = "23505"

// Store persists matches and players in Postgres
type Store struct {
	db      *sql.DB
	queries *Queries
}

var _ matchstore.Store = (*Store)(nil)

// Open connects with cfg, applies the schema and returns a ready store
func Open(ctx context.Context, cfg dbconfig.Config) (*Store, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to create database connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s, err := NewStore(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}

	log.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("database", cfg.Database).
		Msg("connected to postgres match store")
	return s, nil
}

// NewStore wraps an open database and applies the schema
func NewStore(ctx context.Context, db *sql.DB) (*Store, error) {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &Store{db: db, queries: New(db)}, nil
}

func (s *Store) SubmitMatch(ctx context.Context, rec matchstore.MatchRecord) (string, error) {
	score, err := sqlutil.MarshalJSONColumn(nonNil(rec.FinalScore))
	if err != nil {
		return "", fmt.Errorf("failed to encode final score: %w", err)
	}

	id := uuid.New()
	err = s.queries.InsertMatch(ctx, MatchRow{
		ID:         id,
		GameWinner: rec.GameWinner,
		FinalScore: score,
		ReplayData: replayColumn(rec.ReplayData),
		Hong:       rec.Hong,
		Chung:      rec.Chung,
		CreatedAt:  rec.Timestamp,
	})
	if err != nil {
		return "", fmt.Errorf("failed to insert match: %w", err)
	}
	return id.String(), nil
}

func (s *Store) AppendPlayerHistory(ctx context.Context, entry matchstore.HistoryEntry) error {
	score, err := sqlutil.MarshalJSONColumn(nonNil(entry.Score))
	if err != nil {
		return fmt.Errorf("failed to encode score: %w", err)
	}
	wins, losses := matchstore.Tally(entry.Result)

	return sqlutil.Run(ctx, s.db, s.queries.WithTx, func(q *Queries) error {
		n, err := q.UpdatePlayerTally(ctx, UpdatePlayerTallyParams{
			Name:   entry.PlayerName,
			Wins:   int32(wins),
			Losses: int32(losses),
		})
		if err != nil {
			return fmt.Errorf("failed to update player tally: %w", err)
		}
		if n == 0 {
			return matchstore.ErrPlayerNotFound
		}
		if err := q.InsertPlayerMatch(ctx, InsertPlayerMatchParams{
			PlayerName: entry.PlayerName,
			MatchID:    entry.MatchID,
			Opponent:   entry.Opponent,
			Score:      score,
			Result:     string(entry.Result),
		}); err != nil {
			return fmt.Errorf("failed to insert player match: %w", err)
		}
		return nil
	})
}

func (s *Store) ListMatches(ctx context.Context, limit int) ([]matchstore.Match, error) {
	rows, err := s.queries.ListMatches(ctx, int32(matchstore.NormalizeLimit(limit)))
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	out := make([]matchstore.Match, 0, len(rows))
	for _, row := range rows {
		m, err := toMatch(row)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func (s *Store) GetMatch(ctx context.Context, id string) (matchstore.Match, error) {
	matchID, err := uuid.Parse(id)
	if err != nil {
		return matchstore.Match{}, matchstore.ErrMatchNotFound
	}
	row, err := s.queries.GetMatch(ctx, matchID)
	if errors.Is(err, sql.ErrNoRows) {
		return matchstore.Match{}, matchstore.ErrMatchNotFound
	}
	if err != nil {
		return matchstore.Match{}, fmt.Errorf("failed to get match: %w", err)
	}
	return toMatch(row)
}

func (s *Store) GetPlayer(ctx context.Context, name string) (matchstore.Player, error) {
	row, err := s.queries.GetPlayer(ctx, name)
	if errors.Is(err, sql.ErrNoRows) {
		return matchstore.Player{}, matchstore.ErrPlayerNotFound
	}
	if err != nil {
		return matchstore.Player{}, fmt.Errorf("failed to get player: %w", err)
	}

	history, err := s.queries.ListPlayerMatches(ctx, name)
	if err != nil {
		return matchstore.Player{}, fmt.Errorf("failed to list player matches: %w", err)
	}

	p := matchstore.Player{
		Name:    row.Name,
		Height:  row.Height,
		Weight:  row.Weight,
		Wins:    int(row.Wins),
		Losses:  int(row.Losses),
		Matches: make([]matchstore.HistoryEntry, 0, len(history)),
	}
	for _, h := range history {
		var score map[string]int64
		if err := json.Unmarshal(h.Score, &score); err != nil {
			return matchstore.Player{}, fmt.Errorf("failed to decode score for match %s: %w", h.MatchID, err)
		}
		p.Matches = append(p.Matches, matchstore.HistoryEntry{
			PlayerName: row.Name,
			MatchID:    h.MatchID,
			Opponent:   h.Opponent,
			Score:      score,
			Result:     matchstore.Result(h.Result),
		})
	}
	return p, nil
}

func (s *Store) ListPlayerNames(ctx context.Context) ([]string, error) {
	names, err := s.queries.ListPlayerNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list player names: %w", err)
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}

func (s *Store) AddPlayer(ctx context.Context, name string) error {
	name, err := matchstore.ValidateName(name)
	if err != nil {
		return err
	}
	err = s.queries.InsertPlayer(ctx, name)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return matchstore.ErrPlayerExists
	}
	if err != nil {
		return fmt.Errorf("failed to insert player: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func toMatch(row MatchRow) (matchstore.Match, error) {
	var score map[string]int64
	if err := json.Unmarshal(row.FinalScore, &score); err != nil {
		return matchstore.Match{}, fmt.Errorf("failed to decode final score for match %s: %w", row.ID, err)
	}
	return matchstore.Match{
		ID: row.ID.String(),
		MatchRecord: matchstore.MatchRecord{
			GameWinner: row.GameWinner,
			FinalScore: score,
			ReplayData: sqlutil.FromNullRawMessage(row.ReplayData, replay.NoData),
			Hong:       row.Hong,
			Chung:      row.Chung,
			Timestamp:  row.CreatedAt,
		},
	}, nil
}

// replayColumn stores the no-data sentinel as NULL
func replayColumn(data string) pqtype.NullRawMessage {
	if data == replay.NoData {
		return sqlutil.ToNullRawMessage(nil)
	}
	return sqlutil.ToNullRawMessage([]byte(data))
}

func nonNil(m map[string]int64) map[string]int64 {
	if m == nil {
		return map[string]int64{}
	}
	return m
}
