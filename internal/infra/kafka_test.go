package infra

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/attaboy/gamesocial/internal/domain"
	"github.com/attaboy/gamesocial/internal/guard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentMessage struct {
	topic      string
	key, value []byte
}

type fakeSink struct {
	sent []sentMessage
	err  error
}

func (s *fakeSink) Publish(_ context.Context, topic string, key, value []byte) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, sentMessage{topic, key, value})
	return nil
}

func TestEventPublisher_Topic(t *testing.T) {
	assert.Equal(t, "gamesocial.score.incremented",
		NewEventPublisher(&fakeSink{}, "gamesocial", nil).Topic(domain.EventScoreIncremented))
	assert.Equal(t, "chat.log.deleted",
		NewEventPublisher(&fakeSink{}, "", nil).Topic(domain.EventChatDeleted))
}

func TestEventPublisher_Publish(t *testing.T) {
	sink := &fakeSink{}
	pub := NewEventPublisher(sink, "gamesocial", nil)

	draft, err := domain.NewChatDeletedEvent("g1")
	require.NoError(t, err)
	require.NoError(t, pub.Publish(context.Background(), draft))

	require.Len(t, sink.sent, 1)
	assert.Equal(t, "gamesocial.chat.log.deleted", sink.sent[0].topic)
	assert.Equal(t, []byte("g1"), sink.sent[0].key)

	var decoded domain.OutboxDraft
	require.NoError(t, json.Unmarshal(sink.sent[0].value, &decoded))
	assert.Equal(t, draft.EventID, decoded.EventID)
	assert.Equal(t, domain.EventChatDeleted, decoded.EventType)
	assert.JSONEq(t, `{"gameId":"g1"}`, string(decoded.Payload))
}

func TestEventPublisher_BreakerSheds(t *testing.T) {
	ctx := context.Background()
	sink := &fakeSink{err: errors.New("broker unreachable")}
	breaker := guard.NewCircuitBreaker(2, time.Hour)
	pub := NewEventPublisher(sink, "gamesocial", breaker)
	draft, err := domain.NewChatDeletedEvent("g1")
	require.NoError(t, err)
	topic := pub.Topic(draft.EventType)

	require.Error(t, pub.Publish(ctx, draft))
	require.Error(t, pub.Publish(ctx, draft))
	assert.Equal(t, guard.CircuitOpen, breaker.State(topic))

	sink.err = nil
	err = pub.Publish(ctx, draft)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "skipped")
	assert.Empty(t, sink.sent)

	// other topics keep flowing
	reset, err := domain.NewWindowResetEvent(domain.ResetResult{Window: domain.WindowDay})
	require.NoError(t, err)
	require.NoError(t, pub.Publish(ctx, reset))
	assert.Len(t, sink.sent, 1)
}

func TestEventPublisher_RejectsEmptyPayload(t *testing.T) {
	sink := &fakeSink{}
	pub := NewEventPublisher(sink, "gamesocial", nil)

	err := pub.Publish(context.Background(), domain.OutboxDraft{EventType: domain.EventChatAppended})
	assert.ErrorContains(t, err, "no payload")
	assert.Empty(t, sink.sent)
}

func TestKafkaProducer_Disabled(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	p := NewKafkaProducer("localhost:9092", false, logger)

	assert.NoError(t, p.Publish(context.Background(), "t", []byte("k"), []byte("v")))
	assert.NoError(t, p.Close())
}
