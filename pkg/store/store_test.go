package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/arbor/pkg/conversation"
)

func testState(id string) *ThreadState {
	return &ThreadState{
		ID:    id,
		Title: "a conversation",
		Messages: conversation.Conversation{
			conversation.NewChatMessage(conversation.RoleUser, "hello",
				conversation.WithID("u1"), conversation.WithParent(conversation.RootParent())),
			conversation.NewChatMessage(conversation.RoleAssistant, "hi",
				conversation.WithID("a1"), conversation.WithParentID("u1")),
		},
		Selection: conversation.Selection{"u1": 0},
	}
}

func openStores(t *testing.T) map[string]ThreadStore {
	t.Helper()
	fileStore, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	pebbleStore, err := NewPebbleStore(filepath.Join(t.TempDir(), "pebble"))
	require.NoError(t, err)
	return map[string]ThreadStore{
		"file":   fileStore,
		"pebble": pebbleStore,
	}
}

func TestStoreSaveLoadRoundTrip(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			defer func() { _ = s.Close() }()

			require.NoError(t, s.SaveThread(testState("t1")))

			loaded, ok, err := s.LoadThread("t1")
			require.NoError(t, err)
			require.True(t, ok)
			require.Equal(t, "t1", loaded.ID)
			require.Len(t, loaded.Messages, 2)
			require.Equal(t, conversation.Selection{"u1": 0}, loaded.Selection)
			require.False(t, loaded.CreatedAt.IsZero())

			// branching metadata survives the round trip
			parent, set := loaded.Messages[1].Parent.Get()
			require.True(t, set)
			require.Equal(t, conversation.NodeID("u1"), parent)
			require.True(t, loaded.Messages[0].Parent.IsRoot())
		})
	}
}

func TestStoreLoadLastThread(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			defer func() { _ = s.Close() }()

			_, ok, err := s.LoadLastThread()
			require.NoError(t, err)
			require.False(t, ok)

			require.NoError(t, s.SaveThread(testState("t1")))
			require.NoError(t, s.SaveThread(testState("t2")))

			last, ok, err := s.LoadLastThread()
			require.NoError(t, err)
			require.True(t, ok)
			require.Equal(t, "t2", last.ID)
		})
	}
}

func TestStoreDeleteIsIdempotent(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			defer func() { _ = s.Close() }()

			// deleting a thread that never existed is a no-op
			require.NoError(t, s.DeleteThread("ghost"))

			require.NoError(t, s.SaveThread(testState("t1")))
			require.NoError(t, s.DeleteThread("t1"))
			require.NoError(t, s.DeleteThread("t1"))

			_, ok, err := s.LoadThread("t1")
			require.NoError(t, err)
			require.False(t, ok)

			// the last pointer no longer resolves
			_, ok, err = s.LoadLastThread()
			require.NoError(t, err)
			require.False(t, ok)
		})
	}
}

func TestStoreListThreads(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			defer func() { _ = s.Close() }()

			require.NoError(t, s.SaveThread(testState("t1")))
			require.NoError(t, s.SaveThread(testState("t2")))

			infos, err := s.ListThreads()
			require.NoError(t, err)
			require.Len(t, infos, 2)
			for _, info := range infos {
				require.Equal(t, 2, info.Messages)
				require.Equal(t, "a conversation", info.Title)
			}
		})
	}
}

func TestStoreClear(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			defer func() { _ = s.Close() }()

			require.NoError(t, s.SaveThread(testState("t1")))
			require.NoError(t, s.Clear())

			infos, err := s.ListThreads()
			require.NoError(t, err)
			require.Empty(t, infos)

			_, ok, err := s.LoadLastThread()
			require.NoError(t, err)
			require.False(t, ok)
		})
	}
}

func TestFileStoreListSkipsUnreadableFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	require.NoError(t, err)

	require.NoError(t, s.SaveThread(testState("t1")))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{nope"), 0644))

	infos, err := s.ListThreads()
	require.NoError(t, err)
	require.Len(t, infos, 1)
	require.Equal(t, "t1", infos[0].ID)
}

func TestThreadStateSchema(t *testing.T) {
	schema := ThreadStateSchema()
	require.NotNil(t, schema)

	data, err := json.Marshal(testState("t1"))
	require.NoError(t, err)
	require.Empty(t, ValidateThreadJSON(data))

	issues := ValidateThreadJSON([]byte(`{"title": 42}`))
	require.NotEmpty(t, issues)
}
