package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/scoreboard/go/internal/matchstore"
	"github.com/mcdev12/scoreboard/go/internal/scoreboard/counter"
	"github.com/mcdev12/scoreboard/go/internal/scoreboard/gateway"
	"github.com/mcdev12/scoreboard/go/internal/scoreboard/protocol"
	"github.com/mcdev12/scoreboard/go/internal/scoreboard/replay"
	"github.com/mcdev12/scoreboard/go/internal/scoreboard/timer"
)

// DefaultName is the competitor name used until select-player arrives
const DefaultName = "Unknown"

// MatchPublisher announces finalized matches
type MatchPublisher interface {
	PublishMatchCompleted(ctx context.Context, matchID string, rec matchstore.MatchRecord) error
}

// Config holds session defaults
type Config struct {
	DefaultDurationSec int64
	DefaultName        string
	// PersistTimeout bounds each match store call. Zero means no bound.
	PersistTimeout time.Duration
}

// Session owns the live match state. Every request runs to completion under mu,
// including the enqueue of its broadcast, so all connections observe mutations
// in the same order.
type Session struct {
	mu sync.Mutex

	connections *gateway.ConnectionManager
	clock       clockwork.Clock

	counters *counter.Store
	timer    *timer.Machine
	replay   *replay.Log
	round    int
	hong     string
	chung    string

	store          matchstore.Writer
	publisher      MatchPublisher
	persistTimeout time.Duration
	inflight       sync.WaitGroup
}

// State is a point-in-time copy of the session for diagnostics and tests
type State struct {
	Counters     map[string]int64
	Timer        timer.State
	Round        int
	Hong         string
	Chung        string
	ReplayEvents []replay.Event
}

var _ gateway.Handler = (*Session)(nil)

// New creates a session in its initial state. publisher may be nil.
func New(cm *gateway.ConnectionManager, store matchstore.Writer, publisher MatchPublisher, clock clockwork.Clock, cfg Config) *Session {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	name := cfg.DefaultName
	if name == "" {
		name = DefaultName
	}
	return &Session{
		connections:    cm,
		clock:          clock,
		counters:       counter.NewStore(),
		timer:          timer.NewMachine(clock, cfg.DefaultDurationSec),
		replay:         replay.NewLog(),
		round:          1,
		hong:           name,
		chung:          name,
		store:          store,
		publisher:      publisher,
		persistTimeout: cfg.PersistTimeout,
	}
}

// Join registers the connection and sends it the counters and timer snapshots
func (s *Session) Join(c *gateway.Connection) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.connections.Register(c)
	if err := s.connections.Unicast(c, protocol.NewCounters(s.counters.Snapshot())); err != nil {
		log.Warn().Err(err).Str("connection_id", c.ID).Msg("failed to send counters snapshot")
		return
	}
	if err := s.connections.Unicast(c, s.timer.Snapshot()); err != nil {
		log.Warn().Err(err).Str("connection_id", c.ID).Msg("failed to send timer snapshot")
	}
}

// Leave unregisters the connection
func (s *Session) Leave(c *gateway.Connection) {
	s.connections.Unregister(c)
}

// HandleMessage decodes one frame and applies it
func (s *Session) HandleMessage(c *gateway.Connection, data []byte) {
	msg, typ, err := protocol.Decode(data)
	switch {
	case errors.Is(err, protocol.ErrUnknownType):
		log.Debug().Str("connection_id", c.ID).Str("type", string(typ)).Msg("ignoring unknown message type")
		return
	case err != nil:
		log.Warn().Err(err).Str("connection_id", c.ID).Msg("dropping malformed message")
		return
	}
	s.Apply(c, msg)
}

// Apply runs one decoded request against the session state
func (s *Session) Apply(c *gateway.Connection, msg protocol.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch m := msg.(type) {
	case protocol.Increment:
		s.changeCounter(m.CounterChange, s.counters.Increment)
	case protocol.SubtractCounter:
		s.changeCounter(m.CounterChange, s.counters.Subtract)
	case protocol.ResetCounters:
		s.counters.ResetAll()
		s.broadcast(protocol.ResetNotice())
		s.broadcast(protocol.NewCounters(s.counters.Snapshot()))
	case protocol.TimerStart:
		s.broadcast(s.timer.Start(timer.StartOptions{
			Duration:    m.Duration,
			StartTime:   m.StartTime,
			ElapsedTime: m.ElapsedTime,
		}))
	case protocol.TimerPause:
		s.broadcast(s.timer.Pause(timer.PauseOptions{
			PausedTime:          m.PausedTime,
			PausedTimeRemaining: m.PausedTimeRemaining,
		}))
	case protocol.TimerReset:
		s.broadcast(s.timer.Reset(m.Duration))
	case protocol.TimerSyncRequest:
		s.unicast(c, s.timer.Snapshot())
	case protocol.Ping:
		s.unicast(c, protocol.Pong())
	case protocol.RoundStart:
		s.startRound()
	case protocol.SelectPlayer:
		s.selectPlayer(m)
	case protocol.GameOver:
		s.finishMatch(m)
	default:
		log.Debug().Str("type", string(msg.MessageType())).Msg("no handler for message")
	}
}

// Snapshot returns a copy of the current state
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return State{
		Counters:     s.counters.Snapshot(),
		Timer:        s.timer.Snapshot(),
		Round:        s.round,
		Hong:         s.hong,
		Chung:        s.chung,
		ReplayEvents: s.replay.Events(),
	}
}

func (s *Session) changeCounter(change protocol.CounterChange, apply func(string, int64) (map[string]int64, error)) {
	values, err := apply(change.CounterID, change.Amount())
	if err != nil {
		log.Warn().Err(err).Msg("ignoring counter request")
		return
	}
	if change.Scoring() {
		ts := s.clock.Now().UnixMilli()
		if change.Timestamp != nil {
			ts = *change.Timestamp
		}
		s.replay.Append(replay.Event{
			Round:     s.round,
			Technique: change.Technique,
			Player:    change.Player,
			Timestamp: ts,
		})
	}
	s.broadcast(protocol.NewCounters(values))
}

func (s *Session) broadcast(msg any) {
	if err := s.connections.Broadcast(msg); err != nil {
		log.Error().Err(err).Msg("broadcast failed")
	}
}

func (s *Session) unicast(c *gateway.Connection, msg any) {
	if err := s.connections.Unicast(c, msg); err != nil {
		log.Warn().Err(err).Str("connection_id", c.ID).Msg("unicast failed")
	}
}
