package matchstore

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	ErrMatchNotFound  = errors.New("match not found")
	ErrPlayerNotFound = errors.New("player not found")
	ErrPlayerExists   = errors.New("player already exists")
	ErrInvalidName    = errors.New("player name is required")
)

// Side labels used by game_winner and the score map
const (
	SideHong  = "Hong"
	SideChung = "Chung"
)

// Result is the outcome of a match for one competitor
type Result string

const (
	ResultWin  Result = "win"
	ResultLoss Result = "loss"
	ResultDraw Result = "draw"
)

// DefaultMatchLimit is used by ListMatches callers that do not supply a limit
const DefaultMatchLimit = 10

// MatchRecord is a finalized match as handed over at game-over
type MatchRecord struct {
	GameWinner string           `json:"game_winner"`
	FinalScore map[string]int64 `json:"final_score"`
	ReplayData string           `json:"replay_data"`
	Hong       string           `json:"hong"`
	Chung      string           `json:"chung"`
	Timestamp  time.Time        `json:"timestamp"`
}

// Match is a stored MatchRecord with its identifier
type Match struct {
	ID string `json:"id"`
	MatchRecord
}

// HistoryEntry is one per-player summary appended after a match
type HistoryEntry struct {
	PlayerName string           `json:"-"`
	MatchID    string           `json:"match_id"`
	Opponent   string           `json:"opponent"`
	Score      map[string]int64 `json:"score"`
	Result     Result           `json:"result"`
}

// Player is a competitor with their running tally
type Player struct {
	Name    string         `json:"name"`
	Height  float64        `json:"height"`
	Weight  float64        `json:"weight"`
	Wins    int            `json:"wins"`
	Losses  int            `json:"losses"`
	Matches []HistoryEntry `json:"matches"`
}

// Writer is what the live session needs at game-over
type Writer interface {
	SubmitMatch(ctx context.Context, rec MatchRecord) (string, error)
	// AppendPlayerHistory returns ErrPlayerNotFound when the player does not exist
	AppendPlayerHistory(ctx context.Context, entry HistoryEntry) error
}

// Reader backs the history API
type Reader interface {
	// ListMatches returns the newest matches first
	ListMatches(ctx context.Context, limit int) ([]Match, error)
	GetMatch(ctx context.Context, id string) (Match, error)
	GetPlayer(ctx context.Context, name string) (Player, error)
	ListPlayerNames(ctx context.Context) ([]string, error)
	AddPlayer(ctx context.Context, name string) error
}

// Store is a complete backend
type Store interface {
	Writer
	Reader
	Close() error
}

// ResultFor resolves the outcome for the competitor on side. A winner that
// names neither side is a draw for both.
func ResultFor(winner, side string) Result {
	switch {
	case strings.EqualFold(winner, side):
		return ResultWin
	case strings.EqualFold(winner, SideHong), strings.EqualFold(winner, SideChung):
		return ResultLoss
	default:
		return ResultDraw
	}
}

// Tally returns the wins and losses increments for a result
func Tally(r Result) (wins, losses int) {
	switch r {
	case ResultWin:
		return 1, 0
	case ResultLoss:
		return 0, 1
	default:
		return 0, 0
	}
}

// NormalizeLimit applies the default and a ceiling to a requested page size
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultMatchLimit
	}
	return min(limit, 500)
}

// ValidateName trims a player name and rejects empty ones
func ValidateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrInvalidName
	}
	return name, nil
}
