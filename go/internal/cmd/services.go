package main

import (
	"context"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/scoreboard/go/internal/matchstore"
	"github.com/mcdev12/scoreboard/go/internal/matchstore/events"
	"github.com/mcdev12/scoreboard/go/internal/scoreboard/api"
	"github.com/mcdev12/scoreboard/go/internal/scoreboard/gateway"
	"github.com/mcdev12/scoreboard/go/internal/scoreboard/session"
)

type publisher interface {
	session.MatchPublisher
	Close() error
}

type Services struct {
	Connections *gateway.ConnectionManager
	Session     *session.Session
	WebSocket   *gateway.WebSocketHandler
	History     *api.HistoryHandler
}

func setupPublisher(ctx context.Context, cfg Config) (publisher, error) {
	if cfg.Events.NATSURL == "" {
		log.Info().Msg("no nats url configured, match events disabled")
		return events.NoopPublisher{}, nil
	}
	p, err := events.NewJetStreamPublisher(ctx, cfg.jetStreamConfig())
	if err != nil {
		return nil, err
	}
	log.Info().Str("nats_url", cfg.Events.NATSURL).Str("stream", cfg.Events.Stream).Msg("publishing match events")
	return p, nil
}

func setupServices(cfg Config, store matchstore.Store, pub session.MatchPublisher) *Services {
	// Registry → Session → transport and read API
	connections := gateway.NewConnectionManager(cfg.connectionConfig())
	sess := session.New(connections, store, pub, clockwork.NewRealClock(), cfg.sessionConfig())

	return &Services{
		Connections: connections,
		Session:     sess,
		WebSocket:   gateway.NewWebSocketHandler(connections, sess),
		History:     api.NewHistoryHandler(store),
	}
}
