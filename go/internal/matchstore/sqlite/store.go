// Package sqlite provides a single-file match store for standalone deployments.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/mcdev12/scoreboard/go/internal/matchstore"
	"github.com/mcdev12/scoreboard/go/internal/scoreboard/replay"
)

//go:embed schema.sql
var schema string

// Store persists matches and players in SQLite.
type Store struct {
	sqlDB *sql.DB
}

var _ matchstore.Store = (*Store)(nil)

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite store at path and applies the embedded schema.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) SubmitMatch(ctx context.Context, rec matchstore.MatchRecord) (string, error) {
	score, err := encodeScore(rec.FinalScore)
	if err != nil {
		return "", err
	}
	var replayData sql.NullString
	if rec.ReplayData != replay.NoData {
		replayData = sql.NullString{String: rec.ReplayData, Valid: true}
	}

	id := uuid.New().String()
	_, err = s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO matches (id, game_winner, final_score, replay_data, hong, chung, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, rec.GameWinner, score, replayData, rec.Hong, rec.Chung, toMillis(rec.Timestamp),
	)
	if err != nil {
		return "", fmt.Errorf("insert match: %w", err)
	}
	return id, nil
}

func (s *Store) AppendPlayerHistory(ctx context.Context, entry matchstore.HistoryEntry) error {
	score, err := encodeScore(entry.Score)
	if err != nil {
		return err
	}
	wins, losses := matchstore.Tally(entry.Result)

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`UPDATE players SET wins = wins + ?, losses = losses + ? WHERE name = ?`,
		wins, losses, entry.PlayerName,
	)
	if err != nil {
		return fmt.Errorf("update player tally: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update player tally: %w", err)
	}
	if n == 0 {
		return matchstore.ErrPlayerNotFound
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO player_matches (player_name, match_id, opponent, score, result) VALUES (?, ?, ?, ?, ?)`,
		entry.PlayerName, entry.MatchID, entry.Opponent, score, string(entry.Result),
	); err != nil {
		return fmt.Errorf("insert player match: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *Store) ListMatches(ctx context.Context, limit int) ([]matchstore.Match, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT id, game_winner, final_score, replay_data, hong, chung, created_at
		 FROM matches ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		matchstore.NormalizeLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	defer rows.Close()

	out := []matchstore.Match{}
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	return out, nil
}

func (s *Store) GetMatch(ctx context.Context, id string) (matchstore.Match, error) {
	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT id, game_winner, final_score, replay_data, hong, chung, created_at
		 FROM matches WHERE id = ?`,
		id,
	)
	m, err := scanMatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return matchstore.Match{}, matchstore.ErrMatchNotFound
	}
	return m, err
}

func (s *Store) GetPlayer(ctx context.Context, name string) (matchstore.Player, error) {
	var p matchstore.Player
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT name, height, weight, wins, losses FROM players WHERE name = ?`, name,
	).Scan(&p.Name, &p.Height, &p.Weight, &p.Wins, &p.Losses)
	if errors.Is(err, sql.ErrNoRows) {
		return matchstore.Player{}, matchstore.ErrPlayerNotFound
	}
	if err != nil {
		return matchstore.Player{}, fmt.Errorf("get player: %w", err)
	}

	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT match_id, opponent, score, result FROM player_matches WHERE player_name = ? ORDER BY id`, name,
	)
	if err != nil {
		return matchstore.Player{}, fmt.Errorf("list player matches: %w", err)
	}
	defer rows.Close()

	p.Matches = []matchstore.HistoryEntry{}
	for rows.Next() {
		var (
			h      matchstore.HistoryEntry
			score  string
			result string
		)
		if err := rows.Scan(&h.MatchID, &h.Opponent, &score, &result); err != nil {
			return matchstore.Player{}, fmt.Errorf("scan player match: %w", err)
		}
		if err := json.Unmarshal([]byte(score), &h.Score); err != nil {
			return matchstore.Player{}, fmt.Errorf("decode score for match %s: %w", h.MatchID, err)
		}
		h.PlayerName = p.Name
		h.Result = matchstore.Result(result)
		p.Matches = append(p.Matches, h)
	}
	if err := rows.Err(); err != nil {
		return matchstore.Player{}, fmt.Errorf("list player matches: %w", err)
	}
	return p, nil
}

func (s *Store) ListPlayerNames(ctx context.Context) ([]string, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT name FROM players ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list player names: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan player name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (s *Store) AddPlayer(ctx context.Context, name string) error {
	name, err := matchstore.ValidateName(name)
	if err != nil {
		return err
	}
	_, err = s.sqlDB.ExecContext(ctx, `INSERT INTO players (name) VALUES (?)`, name)
	if isUniqueViolation(err) {
		return matchstore.ErrPlayerExists
	}
	if err != nil {
		return fmt.Errorf("insert player: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMatch(row scanner) (matchstore.Match, error) {
	var (
		m          matchstore.Match
		score      string
		replayData sql.NullString
		createdAt  int64
	)
	if err := row.Scan(&m.ID, &m.GameWinner, &score, &replayData, &m.Hong, &m.Chung, &createdAt); err != nil {
		return matchstore.Match{}, err
	}
	if err := json.Unmarshal([]byte(score), &m.FinalScore); err != nil {
		return matchstore.Match{}, fmt.Errorf("decode final score for match %s: %w", m.ID, err)
	}
	m.ReplayData = replay.NoData
	if replayData.Valid {
		m.ReplayData = replayData.String
	}
	m.Timestamp = fromMillis(createdAt)
	return m, nil
}

func encodeScore(score map[string]int64) (string, error) {
	if score == nil {
		score = map[string]int64{}
	}
	b, err := json.Marshal(score)
	if err != nil {
		return "", fmt.Errorf("encode score: %w", err)
	}
	return string(b), nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
