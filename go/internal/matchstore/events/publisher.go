package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/scoreboard/go/internal/matchstore"
)

// EventTypeMatchCompleted is published once per submitted match
const EventTypeMatchCompleted = "match.completed"

type JetStreamConfig struct {
	URL             string
	StreamName      string
	SubjectPrefix   string
	MaxReconnects   int
	ReconnectWait   time.Duration
	MaxAge          time.Duration // How long to keep messages
	Replicas        int
	DuplicateWindow time.Duration // Window for duplicate detection
}

func DefaultJetStreamConfig() JetStreamConfig {
	return JetStreamConfig{
		URL:             nats.DefaultURL,
		StreamName:      "SCOREBOARD_EVENTS",
		SubjectPrefix:   "scoreboard.events",
		MaxReconnects:   -1, // Infinite
		ReconnectWait:   2 * time.Second,
		MaxAge:          30 * 24 * time.Hour,
		Replicas:        1,
		DuplicateWindow: 2 * time.Hour,
	}
}

// MatchCompleted is the JSON body of a match.completed message
type MatchCompleted struct {
	EventID    string           `json:"eventId"`
	EventType  string           `json:"eventType"`
	MatchID    string           `json:"matchId"`
	GameWinner string           `json:"gameWinner"`
	FinalScore map[string]int64 `json:"finalScore"`
	Hong       string           `json:"hong"`
	Chung      string           `json:"chung"`
	Timestamp  time.Time        `json:"timestamp"`
}

// JetStreamPublisher announces finished matches on a JetStream stream
type JetStreamPublisher struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	config JetStreamConfig
}

func NewJetStreamPublisher(ctx context.Context, cfg JetStreamConfig) (*JetStreamPublisher, error) {
	opts := []nats.Option{
		nats.Name("scoreboard"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("nats disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("nats reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("nats error")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	p := &JetStreamPublisher{nc: nc, js: js, config: cfg}

	if err := p.ensureStream(ctx); err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure stream: %w", err)
	}

	return p, nil
}

func (p *JetStreamPublisher) ensureStream(ctx context.Context) error {
	sc := jetstream.StreamConfig{
		Name:        p.config.StreamName,
		Description: "Finished scoreboard matches",
		Subjects:    []string{fmt.Sprintf("%s.>", p.config.SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      p.config.MaxAge,
		Storage:     jetstream.FileStorage,
		Replicas:    p.config.Replicas,
		Duplicates:  p.config.DuplicateWindow,
	}

	stream, err := p.js.CreateOrUpdateStream(ctx, sc)
	if err != nil {
		return fmt.Errorf("create or update stream: %w", err)
	}
	log.Info().
		Str("stream", stream.CachedInfo().Config.Name).
		Msg("jetstream stream ready")
	return nil
}

// PublishMatchCompleted publishes one event per match. The match id is the
// dedupe key, so a retried publish inside the duplicate window is dropped by the server.
func (p *JetStreamPublisher) PublishMatchCompleted(ctx context.Context, matchID string, rec matchstore.MatchRecord) error {
	subject := p.subject(EventTypeMatchCompleted)
	event := newMatchCompleted(uuid.New().String(), matchID, rec)

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ack, err := p.js.PublishMsg(ctx, &nats.Msg{
		Subject: subject,
		Data:    data,
		Header: nats.Header{
			"Event-Type": []string{EventTypeMatchCompleted},
			"Match-ID":   []string{matchID},
			"Event-ID":   []string{event.EventID},
		},
	},
		jetstream.WithMsgID(matchID),
		jetstream.WithExpectStream(p.config.StreamName),
	)
	if err != nil {
		return fmt.Errorf("publish to JetStream: %w", err)
	}

	log.Info().
		Str("subject", subject).
		Str("match_id", matchID).
		Uint64("sequence", ack.Sequence).
		Bool("duplicate", ack.Duplicate).
		Msg("published match completed event")

	return nil
}

func (p *JetStreamPublisher) Close() error {
	if p.nc != nil {
		p.nc.Close()
	}
	return nil
}

func (p *JetStreamPublisher) subject(eventType string) string {
	return fmt.Sprintf("%s.%s", p.config.SubjectPrefix, eventType)
}

func newMatchCompleted(eventID, matchID string, rec matchstore.MatchRecord) MatchCompleted {
	return MatchCompleted{
		EventID:    eventID,
		EventType:  EventTypeMatchCompleted,
		MatchID:    matchID,
		GameWinner: rec.GameWinner,
		FinalScore: rec.FinalScore,
		Hong:       rec.Hong,
		Chung:      rec.Chung,
		Timestamp:  rec.Timestamp.UTC(),
	}
}

// NoopPublisher is used when no NATS server is configured
type NoopPublisher struct{}

func (NoopPublisher) PublishMatchCompleted(ctx context.Context, matchID string, _ matchstore.MatchRecord) error {
	log.Debug().Str("match_id", matchID).Msg("event publishing disabled, skipping match completed event")
	return nil
}

func (NoopPublisher) Close() error { return nil }
