package domain

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType enumerates all domain event types.
type EventType string

const (
	EventScoreIncremented EventType = "score.incremented"
	EventWindowReset      EventType = "score.window.reset"
	EventChatAppended     EventType = "chat.message.appended"
	EventChatDeleted      EventType = "chat.log.deleted"
)

// AggregateType enumerates the aggregate root types for published events.
type AggregateType string

const (
	AggregateUser    AggregateType = "user"
	AggregateWindow  AggregateType = "window"
	AggregateSession AggregateType = "session"
)

// OutboxDraft is an event handed to the external message feed.
type OutboxDraft struct {
	EventID       uuid.UUID       `json:"eventId"`
	AggregateType AggregateType   `json:"aggregateType"`
	AggregateID   string          `json:"aggregateId"`
	EventType     EventType       `json:"eventType"`
	PartitionKey  string          `json:"partitionKey"`
	Payload       json.RawMessage `json:"payload"`
	OccurredAt    time.Time       `json:"occurredAt"`
}

// EventPublisher delivers drafts to the external message feed.
// Publishing happens after the store commit; a failed publish never undoes the write.
type EventPublisher interface {
	Publish(ctx context.Context, draft OutboxDraft) error
}
