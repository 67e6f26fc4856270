package conversation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMergeDisjointListsConcatenate(t *testing.T) {
	a := Conversation{
		chatMsg("m1", RootParent(), "one"),
		chatMsg("m2", ParentOf("m1"), "two"),
	}
	b := Conversation{
		chatMsg("m3", ParentOf("m2"), "three"),
	}

	merged := Merge(a, b)
	require.Equal(t, []NodeID{"m1", "m2", "m3"}, merged.IDs())
}

func TestMergeIncomingWinsAtFirstOccurrenceSlot(t *testing.T) {
	base := Conversation{
		chatMsg("m1", RootParent(), "one"),
		chatMsg("m2", ParentOf("m1"), "partial resp"),
	}
	incoming := Conversation{
		chatMsg("m2", ParentOf("m1"), "full response"),
		chatMsg("m3", ParentOf("m2"), "three"),
	}

	merged := Merge(base, incoming)
	require.Equal(t, []NodeID{"m1", "m2", "m3"}, merged.IDs())
	require.Equal(t, "full response", merged[1].Content.String())
}

func TestMergeIdempotent(t *testing.T) {
	x := branchedFixture()
	merged := Merge(x, x)

	require.Len(t, merged, len(x))
	for i := range x {
		require.Same(t, x[i], merged[i])
	}
}

func TestMergeSkipsMessagesWithoutID(t *testing.T) {
	base := Conversation{
		chatMsg("m1", RootParent(), "one"),
		NewChatMessage(RoleUser, "no id", WithID(NullNode)),
		nil,
	}
	incoming := Conversation{
		NewChatMessage(RoleAssistant, "also no id", WithID(NullNode)),
		chatMsg("m2", ParentOf("m1"), "two"),
	}

	merged := Merge(base, incoming)
	require.Equal(t, []NodeID{"m1", "m2"}, merged.IDs())
	require.Len(t, merged, 2)
}

func TestMergeDuplicateIDsWithinOneListLastWins(t *testing.T) {
	base := Conversation{
		chatMsg("m1", RootParent(), "stale"),
		chatMsg("m1", RootParent(), "fresher"),
	}
	merged := Merge(base, nil)
	require.Len(t, merged, 1)
	require.Equal(t, "fresher", merged[0].Content.String())
}

func TestMergeDoesNotMutateInputs(t *testing.T) {
	base := Conversation{chatMsg("m1", RootParent(), "one")}
	incoming := Conversation{chatMsg("m1", RootParent(), "one'"), chatMsg("m2", ParentOf("m1"), "two")}

	_ = Merge(base, incoming)
	require.Len(t, base, 1)
	require.Equal(t, "one", base[0].Content.String())
	require.Len(t, incoming, 2)
}

func TestMergeIncrementalStreamingConverges(t *testing.T) {
	base := Conversation{chatMsg("u1", RootParent(), "question")}
	chunk1 := Conversation{chatMsg("a1", ParentOf("u1"), "The")}
	chunk2 := Conversation{chatMsg("a1", ParentOf("u1"), "The answer")}
	final := Conversation{chatMsg("a1", ParentOf("u1"), "The answer is 42.")}

	incremental := Merge(Merge(Merge(base, chunk1), chunk2), final)
	oneShot := Merge(base, final)

	require.Equal(t, oneShot.IDs(), incremental.IDs())
	require.Equal(t, oneShot[1].Content.String(), incremental[1].Content.String())
}

func TestMergeRetainsUnreachableMessages(t *testing.T) {
	base := branchedFixture()
	incoming := Conversation{chatMsg("orphan", ParentOf("gone"), "dangling")}

	merged := Merge(base, incoming)
	require.Equal(t, []NodeID{"u1", "a1", "a1b", "orphan"}, merged.IDs())
}
