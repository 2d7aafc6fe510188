package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/scoreboard/go/internal/matchstore"
)

// fakeJetStream records published messages; every other method panics
type fakeJetStream struct {
	jetstream.JetStream
	msgs []*nats.Msg
	err  error
}

func (f *fakeJetStream) PublishMsg(_ context.Context, msg *nats.Msg, _ ...jetstream.PublishOpt) (*jetstream.PubAck, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.msgs = append(f.msgs, msg)
	return &jetstream.PubAck{Stream: "SCOREBOARD_EVENTS", Sequence: uint64(len(f.msgs))}, nil
}

var finished = matchstore.MatchRecord{
	GameWinner: "Chung",
	FinalScore: map[string]int64{"hong": 2, "chung": 7},
	ReplayData: "No replay data",
	Hong:       "Kim",
	Chung:      "Lee",
	Timestamp:  time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC),
}

func TestPublishMatchCompleted(t *testing.T) {
	js := &fakeJetStream{}
	p := &JetStreamPublisher{js: js, config: DefaultJetStreamConfig()}

	require.NoError(t, p.PublishMatchCompleted(context.Background(), "m-1", finished))

	require.Len(t, js.msgs, 1)
	msg := js.msgs[0]
	assert.Equal(t, "scoreboard.events.match.completed", msg.Subject)
	assert.Equal(t, "m-1", msg.Header.Get("Match-ID"))
	assert.Equal(t, EventTypeMatchCompleted, msg.Header.Get("Event-Type"))

	var body MatchCompleted
	require.NoError(t, json.Unmarshal(msg.Data, &body))
	assert.Equal(t, "m-1", body.MatchID)
	assert.Equal(t, "Chung", body.GameWinner)
	assert.Equal(t, finished.FinalScore, body.FinalScore)
	assert.Equal(t, msg.Header.Get("Event-ID"), body.EventID)
	assert.NotEmpty(t, body.EventID)
}

func TestPublishMatchCompleted_Error(t *testing.T) {
	js := &fakeJetStream{err: errors.New("no responders")}
	p := &JetStreamPublisher{js: js, config: DefaultJetStreamConfig()}

	err := p.PublishMatchCompleted(context.Background(), "m-1", finished)
	assert.ErrorContains(t, err, "no responders")
}

func TestNoopPublisher(t *testing.T) {
	var p NoopPublisher
	assert.NoError(t, p.PublishMatchCompleted(context.Background(), "m-1", finished))
	assert.NoError(t, p.Close())
}
