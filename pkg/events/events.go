package events

import (
	"github.com/go-go-golems/arbor/pkg/conversation"
)

// EventType labels the branching-engine happenings published to UIs and
// other observers.
type EventType string

const (
	EventTypeThreadLoaded   EventType = "thread-loaded"
	EventTypeThreadSaved    EventType = "thread-saved"
	EventTypeThreadDeleted  EventType = "thread-deleted"
	EventTypeMessagesMerged EventType = "messages-merged"
	EventTypeBranchCreated  EventType = "branch-created"
	EventTypeBranchSelected EventType = "branch-selected"
)

// Event is the wire payload for a single branching event. Fields beyond
// Type and ThreadID are filled per event type.
type Event struct {
	Type     EventType `json:"type"`
	ThreadID string    `json:"threadId"`

	// message-level events
	MessageID  conversation.NodeID `json:"messageId,omitempty"`
	EditedFrom conversation.NodeID `json:"editedFromId,omitempty"`

	// branch navigation
	ParentKey conversation.ParentKey `json:"parentKey,omitempty"`
	Index     int                    `json:"index,omitempty"`

	// reconciliation
	MessageCount int `json:"messageCount,omitempty"`
}

func NewThreadLoadedEvent(threadID string, messageCount int) Event {
	return Event{Type: EventTypeThreadLoaded, ThreadID: threadID, MessageCount: messageCount}
}

func NewThreadSavedEvent(threadID string, messageCount int) Event {
	return Event{Type: EventTypeThreadSaved, ThreadID: threadID, MessageCount: messageCount}
}

func NewThreadDeletedEvent(threadID string) Event {
	return Event{Type: EventTypeThreadDeleted, ThreadID: threadID}
}

func NewMessagesMergedEvent(threadID string, messageCount int) Event {
	return Event{Type: EventTypeMessagesMerged, ThreadID: threadID, MessageCount: messageCount}
}

func NewBranchCreatedEvent(threadID string, msg *conversation.Message) Event {
	ev := Event{Type: EventTypeBranchCreated, ThreadID: threadID}
	if msg != nil {
		ev.MessageID = msg.ID
		ev.EditedFrom = msg.EditedFrom
		ev.ParentKey = msg.Parent.Key()
	}
	return ev
}

func NewBranchSelectedEvent(threadID string, key conversation.ParentKey, index int) Event {
	return Event{Type: EventTypeBranchSelected, ThreadID: threadID, ParentKey: key, Index: index}
}
