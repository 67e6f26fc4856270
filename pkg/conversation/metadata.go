package conversation

import (
	"github.com/huandu/go-clone"
)

// BranchMeta is the branching envelope of a message: where it hangs in the
// tree and, for edited or regenerated messages, which message it replaces.
// EditedFrom is informational provenance only and never affects path
// derivation.
type BranchMeta struct {
	Parent     ParentRef
	EditedFrom NodeID
}

// BranchMetaOf reads a message's branching metadata. Nil-safe: a nil
// message yields the zero value (unset parent, no provenance).
func BranchMetaOf(msg *Message) BranchMeta {
	if msg == nil {
		return BranchMeta{}
	}
	return BranchMeta{
		Parent:     msg.Parent,
		EditedFrom: msg.EditedFrom,
	}
}

// ParseBranchMeta extracts branching metadata from a loose envelope, as
// found in metadata maps coming from external stores. Anything that is not
// a structured object, and any field of the wrong shape, degrades to the
// zero value instead of failing.
//
// The three parentId states survive the round trip: a missing key stays
// unset, an explicit nil becomes RootParent, a string becomes ParentOf.
func ParseBranchMeta(v interface{}) BranchMeta {
	m, ok := v.(map[string]interface{})
	if !ok {
		return BranchMeta{}
	}

	var meta BranchMeta
	if raw, present := m["parentId"]; present {
		switch p := raw.(type) {
		case nil:
			meta.Parent = RootParent()
		case string:
			meta.Parent = ParentOf(NodeID(p))
		}
	}
	if raw, present := m["editedFromId"]; present {
		if s, ok := raw.(string); ok {
			meta.EditedFrom = NodeID(s)
		}
	}
	return meta
}

// WithBranchMeta returns a deep copy of the message with the patch
// shallow-merged over its branching metadata: set patch fields overwrite,
// unset ones leave the existing value alone. The receiver is never
// mutated.
func (mn *Message) WithBranchMeta(patch BranchMeta) *Message {
	if mn == nil {
		return nil
	}
	ret := clone.Clone(mn).(*Message)
	if !patch.Parent.IsUnset() {
		ret.Parent = patch.Parent
	}
	if patch.EditedFrom != NullNode {
		ret.EditedFrom = patch.EditedFrom
	}
	return ret
}
