package conversation

// Package conversation implements non-linear conversation history for AI
// chat: any message may be edited or regenerated, producing sibling
// branches under the same parent, while the UI always renders exactly one
// linear path through the resulting tree.
//
// The engine itself is a set of pure functions over a flat message list:
// BuildIndex groups messages by parent, DerivePath resolves the visible
// transcript from a branch selection map, SiblingsOf drives prev/next
// branch navigation, and Merge reconciles two lists after a store load or
// a streaming round-trip. The flat list plus the selection map are the
// complete serializable state; everything else is recomputed on demand.
//
// The Manager interface wraps those functions with the caller-side state
// they operate on: the authoritative list, the selection map, and the
// edit/retry operations that create branches.

// Manager defines the interface for high-level thread management
// operations on top of the pure branching primitives.
type Manager interface {
	ThreadID() string
	Messages() Conversation
	VisiblePath() Conversation
	Selection() Selection
	GetMessage(id NodeID) (*Message, bool)

	AppendMessages(msgs ...*Message)
	MergeIncoming(incoming Conversation)
	EditMessage(id NodeID, content MessageContent) (*Message, error)
	RetryMessage(id NodeID) (*Message, error)

	SelectBranch(key ParentKey, index int)
	SelectSibling(id NodeID, delta int) (int, error)

	SaveToFile(filename string) error
}
