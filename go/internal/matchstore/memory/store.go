package memory

import (
	"context"
	"maps"
	"slices"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/mcdev12/scoreboard/go/internal/matchstore"
)

// Store keeps matches and players in process memory
type Store struct {
	mu      sync.RWMutex
	matches []matchstore.Match
	players map[string]*matchstore.Player
}

var _ matchstore.Store = (*Store)(nil)

// New creates an empty store
func New() *Store {
	return &Store{players: make(map[string]*matchstore.Player)}
}

func (s *Store) SubmitMatch(ctx context.Context, rec matchstore.MatchRecord) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	rec.FinalScore = maps.Clone(rec.FinalScore)
	m := matchstore.Match{ID: uuid.New().String(), MatchRecord: rec}

	s.mu.Lock()
	s.matches = append(s.matches, m)
	s.mu.Unlock()
	return m.ID, nil
}

func (s *Store) AppendPlayerHistory(ctx context.Context, entry matchstore.HistoryEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.players[entry.PlayerName]
	if !ok {
		return matchstore.ErrPlayerNotFound
	}
	wins, losses := matchstore.Tally(entry.Result)
	p.Wins += wins
	p.Losses += losses
	entry.Score = maps.Clone(entry.Score)
	p.Matches = append(p.Matches, entry)
	return nil
}

func (s *Store) ListMatches(ctx context.Context, limit int) ([]matchstore.Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	limit = matchstore.NormalizeLimit(limit)

	s.mu.RLock()
	out := slices.Clone(s.matches)
	s.mu.RUnlock()

	slices.Reverse(out)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) GetMatch(ctx context.Context, id string) (matchstore.Match, error) {
	if err := ctx.Err(); err != nil {
		return matchstore.Match{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, m := range s.matches {
		if m.ID == id {
			return m, nil
		}
	}
	return matchstore.Match{}, matchstore.ErrMatchNotFound
}

func (s *Store) GetPlayer(ctx context.Context, name string) (matchstore.Player, error) {
	if err := ctx.Err(); err != nil {
		return matchstore.Player{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.players[name]
	if !ok {
		return matchstore.Player{}, matchstore.ErrPlayerNotFound
	}
	out := *p
	out.Matches = slices.Clone(p.Matches)
	return out, nil
}

func (s *Store) ListPlayerNames(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	names := slices.Collect(maps.Keys(s.players))
	s.mu.RUnlock()

	slices.Sort(names)
	return names, nil
}

func (s *Store) AddPlayer(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	name, err := matchstore.ValidateName(name)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.players[name]; ok {
		return matchstore.ErrPlayerExists
	}
	s.players[name] = &matchstore.Player{Name: name, Matches: []matchstore.HistoryEntry{}}
	return nil
}

func (s *Store) Close() error { return nil }
