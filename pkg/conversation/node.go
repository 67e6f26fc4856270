package conversation

import (
	"encoding/json"

	"github.com/google/uuid"
)

// NodeID is the stable identifier of a message. New messages get a UUID,
// but the engine treats any non-empty string as a valid id, so ids minted
// elsewhere (or in tests) pass through untouched.
type NodeID string

func NewNodeID() NodeID {
	return NodeID(uuid.NewString())
}

func (id NodeID) String() string {
	return string(id)
}

// NullNode is the empty id. Messages without an id are skipped by the
// reconciler and never indexed as parents.
const NullNode NodeID = ""

// ParentKey is the normalized bucket key derived from a parent reference.
// Every message maps to exactly one key: RootKey when it has no effective
// parent, its parent's id otherwise.
type ParentKey string

// RootKey is the sentinel bucket for messages attached to the conversation
// root (parent absent or explicitly null).
const RootKey ParentKey = "__root__"

type parentState uint8

const (
	parentUnset parentState = iota
	parentRoot
	parentSet
)

// ParentRef records a message's parent reference with tagged presence.
// Three states round-trip through JSON: unset (field absent), explicit root
// (null), and a concrete parent id. Callers that only care about the
// effective parent use Key(), which collapses unset and root.
type ParentRef struct {
	state parentState
	id    NodeID
}

// RootParent returns an explicit-root reference (serialized as null).
func RootParent() ParentRef {
	return ParentRef{state: parentRoot}
}

// ParentOf returns a reference to the given parent id. An empty id is
// normalized to an explicit root.
func ParentOf(id NodeID) ParentRef {
	if id == NullNode {
		return RootParent()
	}
	return ParentRef{state: parentSet, id: id}
}

func (p ParentRef) IsUnset() bool {
	return p.state == parentUnset
}

// IsRoot reports an explicit root reference. Unset references also behave
// as root for path derivation, but remain distinguishable here.
func (p ParentRef) IsRoot() bool {
	return p.state == parentRoot
}

// Get returns the parent id and whether one is set.
func (p ParentRef) Get() (NodeID, bool) {
	if p.state != parentSet {
		return NullNode, false
	}
	return p.id, true
}

// Key maps the reference to its index bucket. Total: unset and explicit
// root both land on RootKey.
func (p ParentRef) Key() ParentKey {
	if p.state != parentSet {
		return RootKey
	}
	return ParentKey(p.id)
}

func (p ParentRef) Equal(o ParentRef) bool {
	return p.state == o.state && p.id == o.id
}

// rawParent encodes a ParentRef for the message-level JSON alias. A nil
// RawMessage stands for unset and is dropped via omitempty.
func (p ParentRef) rawParent() json.RawMessage {
	switch p.state {
	case parentRoot:
		return json.RawMessage("null")
	case parentSet:
		b, err := json.Marshal(string(p.id))
		if err != nil {
			return nil
		}
		return b
	default:
		return nil
	}
}

// parentFromRaw decodes the three-way JSON encoding. Garbled values (a
// number, an object) degrade to unset rather than failing.
func parentFromRaw(raw json.RawMessage) ParentRef {
	if len(raw) == 0 {
		return ParentRef{}
	}
	var id *string
	if err := json.Unmarshal(raw, &id); err != nil {
		return ParentRef{}
	}
	if id == nil {
		return RootParent()
	}
	return ParentOf(NodeID(*id))
}
