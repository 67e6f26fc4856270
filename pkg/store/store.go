package store

// Package store persists thread state for the conversation branching
// engine. A thread's serializable state is its descriptor, the flat
// message list with branching metadata intact, and the branch selection
// map. Stores load and save this state opaquely; no transformation happens
// at the boundary.

import (
	"time"

	"github.com/go-go-golems/arbor/pkg/conversation"
)

// ThreadState is the complete serializable state of a thread. The tree
// index and visible path are always recomputed from Messages and Selection
// and are never persisted.
type ThreadState struct {
	ID        string                    `json:"id"`
	Title     string                    `json:"title,omitempty"`
	CreatedAt time.Time                 `json:"createdAt"`
	UpdatedAt time.Time                 `json:"updatedAt"`
	Messages  conversation.Conversation `json:"messages"`
	Selection conversation.Selection    `json:"selection,omitempty"`
}

// ThreadInfo is the descriptor returned by listings.
type ThreadInfo struct {
	ID        string    `json:"id"`
	Title     string    `json:"title,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Messages  int       `json:"messages"`
}

func (s *ThreadState) Info() ThreadInfo {
	return ThreadInfo{
		ID:        s.ID,
		Title:     s.Title,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
		Messages:  len(s.Messages),
	}
}

// ThreadStore is the persistence collaborator contract. Deletion is
// idempotent: deleting an absent thread is a successful no-op. Load
// operations report absence through the boolean, not an error.
type ThreadStore interface {
	LoadLastThread() (*ThreadState, bool, error)
	LoadThread(id string) (*ThreadState, bool, error)
	ListThreads() ([]ThreadInfo, error)
	SaveThread(state *ThreadState) error
	DeleteThread(id string) error
	Clear() error
	Close() error
}
