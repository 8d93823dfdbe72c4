package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

func newDraft(aggType AggregateType, aggID string, evtType EventType, payload interface{}) (OutboxDraft, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return OutboxDraft{}, fmt.Errorf("marshal %s payload: %w", evtType, err)
	}
	return OutboxDraft{
		EventID:       uuid.New(),
		AggregateType: aggType,
		AggregateID:   aggID,
		EventType:     evtType,
		PartitionKey:  aggID,
		Payload:       data,
		OccurredAt:    time.Now(),
	}, nil
}

// NewScoreIncrementedEvent carries the post-increment counters.
func NewScoreIncrementedEvent(score UserScore) (OutboxDraft, error) {
	return newDraft(AggregateUser, score.UID, EventScoreIncremented, score)
}

// NewWindowResetEvent summarizes a finished reset run, complete or partial.
func NewWindowResetEvent(result ResetResult) (OutboxDraft, error) {
	return newDraft(AggregateWindow, string(result.Window), EventWindowReset, result)
}

// NewChatAppendedEvent is emitted for every stored chat message.
func NewChatAppendedEvent(msg ChatMessage) (OutboxDraft, error) {
	return newDraft(AggregateSession, msg.GameID, EventChatAppended, msg)
}

// NewChatDeletedEvent is emitted when a session's log is dropped.
func NewChatDeletedEvent(gameID string) (OutboxDraft, error) {
	return newDraft(AggregateSession, gameID, EventChatDeleted, map[string]string{
		"gameId": gameID,
	})
}
