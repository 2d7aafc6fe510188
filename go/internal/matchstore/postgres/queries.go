package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type MatchRow struct {
	ID         uuid.UUID
	GameWinner string
	FinalScore json.RawMessage
	ReplayData pqtype.NullRawMessage
	Hong       string
	Chung      string
	CreatedAt  time.Time
}

type PlayerRow struct {
	Name   string
	Height float64
	Weight float64
	Wins   int32
	Losses int32
}

type PlayerMatchRow struct {
	MatchID  string
	Opponent string
	Score    json.RawMessage
	Result   string
}

const insertMatch = `-- name: InsertMatch :exec
INSERT INTO matches (id, game_winner, final_score, replay_data, hong, chung, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`

func (q *Queries) InsertMatch(ctx context.Context, arg MatchRow) error {
	_, err := q.db.ExecContext(ctx, insertMatch,
		arg.ID,
		arg.GameWinner,
		arg.FinalScore,
		arg.ReplayData,
		arg.Hong,
		arg.Chung,
		arg.CreatedAt,
	)
	return err
}

const getMatch = `-- name: GetMatch :one
SELECT id, game_winner, final_score, replay_data, hong, chung, created_at
FROM matches
WHERE id = $1
`

func (q *Queries) GetMatch(ctx context.Context, id uuid.UUID) (MatchRow, error) {
	row := q.db.QueryRowContext(ctx, getMatch, id)
	var i MatchRow
	err := row.Scan(
		&i.ID,
		&i.GameWinner,
		&i.FinalScore,
		&i.ReplayData,
		&i.Hong,
		&i.Chung,
		&i.CreatedAt,
	)
	return i, err
}

const listMatches = `-- name: ListMatches :many
SELECT id, game_winner, final_score, replay_data, hong, chung, created_at
FROM matches
ORDER BY created_at DESC, id
LIMIT $1
`

func (q *Queries) ListMatches(ctx context.Context, limit int32) ([]MatchRow, error) {
	rows, err := q.db.QueryContext(ctx, listMatches, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []MatchRow
	for rows.Next() {
		var i MatchRow
		if err := rows.Scan(
			&i.ID,
			&i.GameWinner,
			&i.FinalScore,
			&i.ReplayData,
			&i.Hong,
			&i.Chung,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const insertPlayer = `-- name: InsertPlayer :exec
INSERT INTO players (name) VALUES ($1)
`

func (q *Queries) InsertPlayer(ctx context.Context, name string) error {
	_, err := q.db.ExecContext(ctx, insertPlayer, name)
	return err
}

const getPlayer = `-- name: GetPlayer :one
SELECT name, height, weight, wins, losses
FROM players
WHERE name = $1
`

func (q *Queries) GetPlayer(ctx context.Context, name string) (PlayerRow, error) {
	row := q.db.QueryRowContext(ctx, getPlayer, name)
	var i PlayerRow
	err := row.Scan(&i.Name, &i.Height, &i.Weight, &i.Wins, &i.Losses)
	return i, err
}

const listPlayerNames = `-- name: ListPlayerNames :many
SELECT name FROM players ORDER BY name
`

func (q *Queries) ListPlayerNames(ctx context.Context) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listPlayerNames)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		items = append(items, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

type UpdatePlayerTallyParams struct {
	Name   string
	Wins   int32
	Losses int32
}

const updatePlayerTally = `-- name: UpdatePlayerTally :execrows
UPDATE players
SET wins = wins + $2, losses = losses + $3
WHERE name = $1
`

func (q *Queries) UpdatePlayerTally(ctx context.Context, arg UpdatePlayerTallyParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updatePlayerTally, arg.Name, arg.Wins, arg.Losses)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

type InsertPlayerMatchParams struct {
	PlayerName string
	MatchID    string
	Opponent   string
	Score      json.RawMessage
	Result     string
}

const insertPlayerMatch = `-- name: InsertPlayerMatch :exec
INSERT INTO player_matches (player_name, match_id, opponent, score, result)
VALUES ($1, $2, $3, $4, $5)
`

func (q *Queries) InsertPlayerMatch(ctx context.Context, arg InsertPlayerMatchParams) error {
	_, err := q.db.ExecContext(ctx, insertPlayerMatch,
		arg.PlayerName,
		arg.MatchID,
		arg.Opponent,
		arg.Score,
		arg.Result,
	)
	return err
}

const listPlayerMatches = `-- name: ListPlayerMatches :many
SELECT match_id, opponent, score, result
FROM player_matches
WHERE player_name = $1
ORDER BY id
`

func (q *Queries) ListPlayerMatches(ctx context.Context, playerName string) ([]PlayerMatchRow, error) {
	rows, err := q.db.QueryContext(ctx, listPlayerMatches, playerName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []PlayerMatchRow
	for rows.Next() {
		var i PlayerMatchRow
		if err := rows.Scan(&i.MatchID, &i.Opponent, &i.Score, &i.Result); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
