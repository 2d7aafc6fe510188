package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrMalformed is returned for payloads that are not a JSON object with a type tag
	ErrMalformed = errors.New("malformed message")
	// ErrUnknownType is returned for well-formed messages carrying an unrecognised type tag
	ErrUnknownType = errors.New("unknown message type")
)

// Type is the wire tag carried in every envelope
type Type string

// Client -> server
const (
	TypeIncrement        Type = "increment"
	TypeSubtractCounter  Type = "subtract-counter"
	TypeResetCounters    Type = "reset-counters"
	TypeTimerStart       Type = "timer-start"
	TypeTimerPause       Type = "timer-pause"
	TypeTimerReset       Type = "timer-reset"
	TypeTimerSyncRequest Type = "timer-sync-request"
	TypePing             Type = "ping"
	TypeRoundStart       Type = "round-start"
	TypeGameOver         Type = "game-over"
	TypeSelectPlayer     Type = "select-player"
)

// Server -> client
const (
	TypeCounters Type = "counters"
	TypePong     Type = "pong"
)

// Message is a decoded client request. The set of implementations is closed.
type Message interface {
	MessageType() Type
	isMessage()
}

// CounterChange is the shared body of increment and subtract-counter.
// ID is the legacy alias for CounterID.
type CounterChange struct {
	CounterID string `json:"counterId"`
	ID        string `json:"id,omitempty"`
	Value     *int64 `json:"value,omitempty"`
	Technique string `json:"technique,omitempty"`
	Player    string `json:"player,omitempty"`
	Timestamp *int64 `json:"timestamp,omitempty"`
}

// Amount returns the requested step, 1 when the client omitted it
func (c CounterChange) Amount() int64 {
	if c.Value == nil {
		return 1
	}
	return *c.Value
}

// Scoring reports whether the change should also be recorded in the replay log
func (c CounterChange) Scoring() bool {
	return c.Technique != "" || c.Player != ""
}

type Increment struct {
	CounterChange
}

type SubtractCounter struct {
	CounterChange
}

type ResetCounters struct{}

type TimerStart struct {
	Duration    *int64 `json:"duration,omitempty"`
	StartTime   *int64 `json:"startTime,omitempty"`
	ElapsedTime *int64 `json:"elapsedTime,omitempty"`
}

type TimerPause struct {
	PausedTime          *int64 `json:"pausedTime,omitempty"`
	PausedTimeRemaining *int64 `json:"pausedTimeRemaining,omitempty"`
}

type TimerReset struct {
	Duration *int64 `json:"duration,omitempty"`
}

type TimerSyncRequest struct{}

type Ping struct{}

type RoundStart struct{}

// GameOver finalizes the current match
type GameOver struct {
	GameWinner string           `json:"game_winner"`
	Scores     map[string]int64 `json:"scores"`
}

// SelectPlayer sets either or both competitor names; nil leaves the slot unchanged
type SelectPlayer struct {
	Hong  *string `json:"hong,omitempty"`
	Chung *string `json:"chung,omitempty"`
}

func (Increment) MessageType() Type        { return TypeIncrement }
func (SubtractCounter) MessageType() Type  { return TypeSubtractCounter }
func (ResetCounters) MessageType() Type    { return TypeResetCounters }
func (TimerStart) MessageType() Type       { return TypeTimerStart }
func (TimerPause) MessageType() Type       { return TypeTimerPause }
func (TimerReset) MessageType() Type       { return TypeTimerReset }
func (TimerSyncRequest) MessageType() Type { return TypeTimerSyncRequest }
func (Ping) MessageType() Type             { return TypePing }
func (RoundStart) MessageType() Type       { return TypeRoundStart }
func (GameOver) MessageType() Type         { return TypeGameOver }
func (SelectPlayer) MessageType() Type     { return TypeSelectPlayer }

func (Increment) isMessage()        {}
func (SubtractCounter) isMessage()  {}
func (ResetCounters) isMessage()    {}
func (TimerStart) isMessage()       {}
func (TimerPause) isMessage()       {}
func (TimerReset) isMessage()       {}
func (TimerSyncRequest) isMessage() {}
func (Ping) isMessage()             {}
func (RoundStart) isMessage()       {}
func (GameOver) isMessage()         {}
func (SelectPlayer) isMessage()     {}

type envelope struct {
	Type Type `json:"type"`
}

// Decode parses one client frame into its concrete message.
// The returned Type is set whenever the envelope itself could be read, so callers
// can log the tag of an unknown message.
func Decode(data []byte) (Message, Type, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if env.Type == "" {
		return nil, "", fmt.Errorf("%w: missing type", ErrMalformed)
	}

	var (
		msg Message
		err error
	)
	switch env.Type {
	case TypeIncrement:
		var m Increment
		err = unmarshal(data, &m)
		m.CounterChange = m.normalize()
		msg = m
	case TypeSubtractCounter:
		var m SubtractCounter
		err = unmarshal(data, &m)
		m.CounterChange = m.normalize()
		msg = m
	case TypeResetCounters:
		msg = ResetCounters{}
	case TypeTimerStart:
		var m TimerStart
		err = unmarshal(data, &m)
		msg = m
	case TypeTimerPause:
		var m TimerPause
		err = unmarshal(data, &m)
		msg = m
	case TypeTimerReset:
		var m TimerReset
		err = unmarshal(data, &m)
		msg = m
	case TypeTimerSyncRequest:
		msg = TimerSyncRequest{}
	case TypePing:
		msg = Ping{}
	case TypeRoundStart:
		msg = RoundStart{}
	case TypeGameOver:
		var m GameOver
		err = unmarshal(data, &m)
		msg = m
	case TypeSelectPlayer:
		var m SelectPlayer
		err = unmarshal(data, &m)
		msg = m
	default:
		return nil, env.Type, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}
	if err != nil {
		return nil, env.Type, err
	}
	return msg, env.Type, nil
}

func (c CounterChange) normalize() CounterChange {
	if c.CounterID == "" {
		c.CounterID = c.ID
	}
	c.ID = ""
	return c
}

func unmarshal(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}
