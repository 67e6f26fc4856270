package conversation

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type ContentType string

const (
	ContentTypeChatMessage ContentType = "chat-message"
)

// MessageContent is an interface for different types of node content. The
// branching engine never inspects it beyond serialization.
type MessageContent interface {
	ContentType() ContentType
	String() string
	View() string
}

type Role string

const (
	RoleSystem    Role = "system"
	RoleAssistant Role = "assistant"
	RoleUser      Role = "user"
)

type ChatMessageContent struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

func (c *ChatMessageContent) ContentType() ContentType {
	return ContentTypeChatMessage
}

func (c *ChatMessageContent) String() string {
	return c.Text
}

func (c *ChatMessageContent) View() string {
	return fmt.Sprintf("[%s]: %s", c.Role, strings.TrimRight(c.Text, "\n"))
}

var _ MessageContent = (*ChatMessageContent)(nil)

// Message is a single node in the conversation tree. Identity (ID),
// parentage (Parent) and edit provenance (EditedFrom) are what the engine
// operates on; content and the free-form metadata map ride along opaquely.
//
// Parent is append-only: it is set at creation time and never rewired.
// Replacing a message's position in the tree means creating a new message
// with a new id.
type Message struct {
	ID         NodeID    `json:"id"`
	Parent     ParentRef `json:"-"`
	EditedFrom NodeID    `json:"editedFromId,omitempty"`

	Time       time.Time `json:"time"`
	LastUpdate time.Time `json:"lastUpdate"`

	Content  MessageContent         `json:"content"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// MetadataModelKey holds the model identifier for assistant messages.
const MetadataModelKey = "model"

type MessageOption func(*Message)

func WithMetadata(metadata map[string]interface{}) MessageOption {
	return func(message *Message) {
		message.Metadata = metadata
	}
}

func WithTime(time time.Time) MessageOption {
	return func(message *Message) {
		message.Time = time
	}
}

func WithParent(parent ParentRef) MessageOption {
	return func(message *Message) {
		message.Parent = parent
	}
}

func WithParentID(parentID NodeID) MessageOption {
	return func(message *Message) {
		message.Parent = ParentOf(parentID)
	}
}

func WithEditedFrom(id NodeID) MessageOption {
	return func(message *Message) {
		message.EditedFrom = id
	}
}

func WithID(id NodeID) MessageOption {
	return func(message *Message) {
		message.ID = id
	}
}

func WithModel(model string) MessageOption {
	return func(message *Message) {
		if message.Metadata == nil {
			message.Metadata = map[string]interface{}{}
		}
		message.Metadata[MetadataModelKey] = model
	}
}

func NewMessage(content MessageContent, options ...MessageOption) *Message {
	ret := &Message{
		Content:    content,
		ID:         NewNodeID(),
		Time:       time.Now(),
		LastUpdate: time.Now(),
	}

	for _, option := range options {
		option(ret)
	}

	return ret
}

func NewChatMessage(role Role, text string, options ...MessageOption) *Message {
	return NewMessage(&ChatMessageContent{
		Role: role,
		Text: text,
	}, options...)
}

// Model returns the model identifier riding in the metadata map, if any.
func (mn *Message) Model() string {
	if mn == nil || mn.Metadata == nil {
		return ""
	}
	if s, ok := mn.Metadata[MetadataModelKey].(string); ok {
		return s
	}
	return ""
}

func (mn *Message) MarshalJSON() ([]byte, error) {
	contentType := ContentTypeChatMessage
	if mn.Content != nil {
		contentType = mn.Content.ContentType()
	}
	type Alias Message
	return json.Marshal(&struct {
		ContentType ContentType     `json:"contentType"`
		ParentID    json.RawMessage `json:"parentId,omitempty"`
		*Alias
	}{
		ContentType: contentType,
		ParentID:    mn.Parent.rawParent(),
		Alias:       (*Alias)(mn),
	})
}

// Intermediate representation for unmarshaling.
type messageNodeAlias struct {
	ID          NodeID                 `json:"id"`
	ParentID    json.RawMessage        `json:"parentId"`
	EditedFrom  NodeID                 `json:"editedFromId"`
	Time        time.Time              `json:"time"`
	LastUpdate  time.Time              `json:"lastUpdate"`
	Content     json.RawMessage        `json:"content"`
	Metadata    map[string]interface{} `json:"metadata"`
	ContentType ContentType            `json:"contentType"`
}

// UnmarshalJSON custom unmarshaler for Message. Tolerant: an unknown
// content type or garbled content block degrades to a plain chat message
// holding the raw text, and a garbled parentId degrades to unset. Loading
// never fails on a single bad envelope.
func (mn *Message) UnmarshalJSON(data []byte) error {
	var mna messageNodeAlias
	if err := json.Unmarshal(data, &mna); err != nil {
		return err
	}

	switch mna.ContentType {
	case ContentTypeChatMessage:
		var content *ChatMessageContent
		if err := json.Unmarshal(mna.Content, &content); err != nil || content == nil {
			content = &ChatMessageContent{Text: string(mna.Content)}
		}
		mn.Content = content
	default:
		var text string
		if err := json.Unmarshal(mna.Content, &text); err != nil {
			text = string(mna.Content)
		}
		mn.Content = &ChatMessageContent{Text: text}
	}

	mn.ID = mna.ID
	mn.Parent = parentFromRaw(mna.ParentID)
	mn.EditedFrom = mna.EditedFrom
	mn.Time = mna.Time
	mn.LastUpdate = mna.LastUpdate
	mn.Metadata = mna.Metadata
	return nil
}

type Conversation []*Message

// View renders the conversation as a transcript, one message per line.
func (messages Conversation) View() string {
	var sb strings.Builder
	for _, message := range messages {
		if message == nil || message.Content == nil {
			continue
		}
		sb.WriteString(message.Content.View())
		sb.WriteString("\n")
	}
	return sb.String()
}

// IDs returns the message ids in list order, skipping empty ids.
func (messages Conversation) IDs() []NodeID {
	ids := make([]NodeID, 0, len(messages))
	for _, message := range messages {
		if message == nil || message.ID == NullNode {
			continue
		}
		ids = append(ids, message.ID)
	}
	return ids
}
