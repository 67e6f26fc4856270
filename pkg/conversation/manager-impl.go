package conversation

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

type ManagerImpl struct {
	messages  Conversation
	selection Selection
	threadID  string

	autosaveEnabled bool
	autosaveDir     string
}

var _ Manager = (*ManagerImpl)(nil)

type ManagerOption func(*ManagerImpl)

func WithMessages(messages ...*Message) ManagerOption {
	return func(m *ManagerImpl) {
		m.AppendMessages(messages...)
	}
}

func WithSelection(selection Selection) ManagerOption {
	return func(m *ManagerImpl) {
		m.selection = selection
	}
}

func WithManagerThreadID(threadID string) ManagerOption {
	return func(m *ManagerImpl) {
		m.threadID = threadID
	}
}

// WithAutosave snapshots the thread to a dated directory layout under dir
// after every mutation. Failures are logged, never surfaced: autosave is
// best-effort.
func WithAutosave(dir string) ManagerOption {
	return func(m *ManagerImpl) {
		m.autosaveEnabled = true

		if dir == "" {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				// fallback to current directory if home dir cannot be determined
				homeDir = "."
			}
			m.autosaveDir = filepath.Join(homeDir, ".arbor", "history")
		} else {
			m.autosaveDir = dir
		}
	}
}

func NewManager(options ...ManagerOption) *ManagerImpl {
	ret := &ManagerImpl{
		threadID:  uuid.NewString(),
		selection: Selection{},
	}
	for _, option := range options {
		option(ret)
	}
	return ret
}

func (m *ManagerImpl) ThreadID() string {
	return m.threadID
}

func (m *ManagerImpl) Messages() Conversation {
	return m.messages
}

func (m *ManagerImpl) Selection() Selection {
	return m.selection
}

func (m *ManagerImpl) VisiblePath() Conversation {
	return DerivePath(m.messages, m.selection)
}

func (m *ManagerImpl) GetMessage(id NodeID) (*Message, bool) {
	for _, msg := range m.messages {
		if msg != nil && msg.ID == id {
			return msg, true
		}
	}
	return nil, false
}

// AppendMessages adds messages to the end of the authoritative list.
// Messages without a parent reference are attached to the current visible
// leaf, so plain sequential chat needs no explicit parent bookkeeping.
func (m *ManagerImpl) AppendMessages(msgs ...*Message) {
	for _, msg := range msgs {
		if msg == nil {
			continue
		}
		if msg.Parent.IsUnset() {
			if leaf := m.visibleLeaf(); leaf != nil {
				msg.Parent = ParentOf(leaf.ID)
			} else {
				msg.Parent = RootParent()
			}
		}
		m.messages = append(m.messages, msg)
	}
	m.autosave()
}

func (m *ManagerImpl) visibleLeaf() *Message {
	path := DerivePath(m.messages, m.selection)
	if len(path) == 0 {
		return nil
	}
	return path[len(path)-1]
}

// MergeIncoming reconciles the authoritative list with an incoming one,
// e.g. after a store reload or while a response streams in.
func (m *ManagerImpl) MergeIncoming(incoming Conversation) {
	m.messages = Merge(m.messages, incoming)
	m.autosave()
}

// EditMessage creates a sibling of the given message carrying the new
// content, with edit provenance pointing back at the original. The
// original stays in the list; the parent's selection entry is cleared so
// the default-to-latest rule makes the edit visible immediately.
func (m *ManagerImpl) EditMessage(id NodeID, content MessageContent) (*Message, error) {
	orig, ok := m.GetMessage(id)
	if !ok {
		return nil, errors.Errorf("message %s not found", id)
	}

	edited := NewMessage(content,
		WithParent(orig.Parent),
		WithEditedFrom(orig.ID),
	)
	m.messages = append(m.messages, edited)
	m.selection = m.selection.Without(orig.Parent.Key())
	m.autosave()
	return edited, nil
}

// RetryMessage creates an empty assistant sibling of the given message for
// a regenerated response to stream into (via MergeIncoming on the
// placeholder's id). The model identifier of the original is carried over
// when present.
func (m *ManagerImpl) RetryMessage(id NodeID) (*Message, error) {
	orig, ok := m.GetMessage(id)
	if !ok {
		return nil, errors.Errorf("message %s not found", id)
	}

	options := []MessageOption{
		WithParent(orig.Parent),
		WithEditedFrom(orig.ID),
	}
	if model := orig.Model(); model != "" {
		options = append(options, WithModel(model))
	}
	placeholder := NewChatMessage(RoleAssistant, "", options...)
	m.messages = append(m.messages, placeholder)
	m.selection = m.selection.Without(orig.Parent.Key())
	m.autosave()
	return placeholder, nil
}

// SelectBranch records which sibling is shown under a parent. The index is
// clamped against the parent's current bucket.
func (m *ManagerImpl) SelectBranch(key ParentKey, index int) {
	n := len(BuildIndex(m.messages)[key])
	if n > 0 {
		if index < 0 {
			index = 0
		}
		if index >= n {
			index = n - 1
		}
	}
	m.selection = m.selection.With(key, index)
	m.autosave()
}

// SelectSibling moves the shown branch of the given message by delta
// (clamped) and returns the resulting sibling index.
func (m *ManagerImpl) SelectSibling(id NodeID, delta int) (int, error) {
	msg, ok := m.GetMessage(id)
	if !ok {
		return 0, errors.Errorf("message %s not found", id)
	}

	ss := SiblingsOf(m.messages, msg)
	index := ss.Index + delta
	if index < 0 {
		index = 0
	}
	if index >= len(ss.Siblings) {
		index = len(ss.Siblings) - 1
	}
	m.selection = m.selection.With(ss.ParentKey, index)
	m.autosave()
	return index, nil
}

type threadSnapshot struct {
	ThreadID  string       `json:"threadId"`
	Messages  Conversation `json:"messages"`
	Selection Selection    `json:"selection,omitempty"`
}

func (m *ManagerImpl) SaveToFile(filename string) error {
	snapshot := threadSnapshot{
		ThreadID:  m.threadID,
		Messages:  m.messages,
		Selection: m.selection,
	}
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return errors.Wrap(err, "could not marshal thread snapshot")
	}
	return os.WriteFile(filename, data, 0644)
}

func (m *ManagerImpl) autosave() {
	if !m.autosaveEnabled {
		return
	}

	now := time.Now()
	dir := filepath.Join(m.autosaveDir, now.Format("2006/01/02"))
	if err := os.MkdirAll(dir, 0755); err != nil {
		log.Warn().Err(err).Str("dir", dir).Msg("could not create autosave directory")
		return
	}
	filename := filepath.Join(dir, fmt.Sprintf("%s-%s.json", now.Format("150405"), m.threadID))
	if err := m.SaveToFile(filename); err != nil {
		log.Warn().Err(err).Str("file", filename).Msg("could not autosave thread")
	}
}
