package conversation

// The conversation tree is never stored as a linked structure. The flat
// message list is the single source of truth; the index below is rebuilt
// from it on demand and must be treated as derived data.

// Index groups a flat message list into children-by-parent buckets. Bucket
// order equals the messages' relative order in the input list, which is
// load-bearing: "latest sibling" means last in list order, not newest
// timestamp.
type Index map[ParentKey]Conversation

// BuildIndex walks the list once and buckets every message under its
// effective parent key. No referential integrity is checked: a parent id
// that never appears as a message id simply produces a bucket unreachable
// from the root walk.
func BuildIndex(messages Conversation) Index {
	index := make(Index, len(messages))
	for _, msg := range messages {
		if msg == nil {
			continue
		}
		key := msg.Parent.Key()
		index[key] = append(index[key], msg)
	}
	return index
}

// Selection maps a parent key to the sibling index currently shown under
// that parent. It is owned by the caller; the engine only reads it.
// Parents without an entry default to their latest sibling, so a fresh
// edit or regeneration becomes visible without a selection write.
type Selection map[ParentKey]int

// With returns a copy of the selection with one entry replaced. The
// receiver is never mutated.
func (s Selection) With(key ParentKey, index int) Selection {
	ret := make(Selection, len(s)+1)
	for k, v := range s {
		ret[k] = v
	}
	ret[key] = index
	return ret
}

// Without returns a copy of the selection with one entry removed.
func (s Selection) Without(key ParentKey) Selection {
	ret := make(Selection, len(s))
	for k, v := range s {
		if k == key {
			continue
		}
		ret[k] = v
	}
	return ret
}

// Resolve picks the sibling index for a parent with n children. A recorded
// index is clamped into [0, n-1]; stale selections from before a data
// change degrade to the nearest valid sibling instead of failing. Absent
// entries default to the latest sibling.
func (s Selection) Resolve(key ParentKey, n int) int {
	if n <= 0 {
		return 0
	}
	index, ok := s[key]
	if !ok {
		return n - 1
	}
	if index < 0 {
		return 0
	}
	if index >= n {
		return n - 1
	}
	return index
}

// DerivePath walks the tree from the root, following the selection at each
// level, and returns the single visible linear transcript. A repeated id
// stops the walk, so cyclic parent references from corrupt data terminate
// instead of hanging. The result is empty when there are no messages.
func DerivePath(messages Conversation, selection Selection) Conversation {
	index := BuildIndex(messages)

	var path Conversation
	visited := make(map[NodeID]bool, len(messages))
	key := RootKey
	for {
		children := index[key]
		if len(children) == 0 {
			return path
		}
		chosen := children[selection.Resolve(key, len(children))]
		if visited[chosen.ID] {
			return path
		}
		visited[chosen.ID] = true
		path = append(path, chosen)
		key = ParentKey(chosen.ID)
	}
}

// SiblingSet is a message's branch bucket: all messages sharing its parent
// key, in list order, plus the message's own position among them.
type SiblingSet struct {
	ParentKey ParentKey
	Siblings  Conversation
	Index     int
}

// Next returns the clamped index of the following sibling.
func (ss SiblingSet) Next() int {
	if ss.Index+1 >= len(ss.Siblings) {
		return len(ss.Siblings) - 1
	}
	return ss.Index + 1
}

// Prev returns the clamped index of the preceding sibling.
func (ss SiblingSet) Prev() int {
	if ss.Index <= 0 {
		return 0
	}
	return ss.Index - 1
}

// SiblingsOf locates a message among its branch siblings. This drives the
// prev/next branch controls: the caller moves the index and writes it back
// into its selection map under ParentKey.
//
// If the message is missing from its own computed bucket (impossible while
// parent ids stay append-only, but data can arrive broken) the result
// degrades to a single-element bucket holding just the message.
func SiblingsOf(messages Conversation, msg *Message) SiblingSet {
	key := BranchMetaOf(msg).Parent.Key()
	bucket := BuildIndex(messages)[key]

	for i, sibling := range bucket {
		if msg != nil && sibling.ID == msg.ID {
			return SiblingSet{ParentKey: key, Siblings: bucket, Index: i}
		}
	}
	return SiblingSet{ParentKey: key, Siblings: Conversation{msg}, Index: 0}
}
