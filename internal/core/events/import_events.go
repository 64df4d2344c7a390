package events

import (
	"fmt"
	"time"
)

const (
	EventTypeImportConfirmed  = "import.confirmed"
	EventTypeImportRolledBack = "import.rolled_back"
	EventTypeImportCleanedUp  = "import.cleaned_up"
)

func NewImportConfirmedEvent(entityKind string, entityID int64, userID int64, reason string) BaseEvent {
	return BaseEvent{
		ID:        fmt.Sprintf("%s-%d-%d", EventTypeImportConfirmed, entityID, time.Now().UnixNano()),
		Type:      EventTypeImportConfirmed,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"entity_kind": entityKind,
			"entity_id":   entityID,
			"user_id":     userID,
			"reason":      reason,
		},
	}
}

func NewImportRolledBackEvent(entityKind string, entityID int64) BaseEvent {
	return BaseEvent{
		ID:        fmt.Sprintf("%s-%d-%d", EventTypeImportRolledBack, entityID, time.Now().UnixNano()),
		Type:      EventTypeImportRolledBack,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"entity_kind": entityKind,
			"entity_id":   entityID,
		},
	}
}

func NewImportCleanedUpEvent(entityKind string, removed int64) BaseEvent {
	return BaseEvent{
		ID:        fmt.Sprintf("%s-%d", EventTypeImportCleanedUp, time.Now().UnixNano()),
		Type:      EventTypeImportCleanedUp,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"entity_kind": entityKind,
			"removed":     removed,
		},
	}
}
