package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/arbor/pkg/conversation"
	"github.com/go-go-golems/arbor/pkg/store"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	threadStore, err := store.NewFileStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = threadStore.Close() })

	s := NewServer(threadStore)
	ts := httptest.NewServer(s.Router())
	t.Cleanup(ts.Close)
	return s, ts
}

func seedThread(t *testing.T, ts *httptest.Server, id string) {
	t.Helper()
	state := store.ThreadState{
		Title: "seeded",
		Messages: conversation.Conversation{
			conversation.NewChatMessage(conversation.RoleUser, "hello",
				conversation.WithID("u1"), conversation.WithParent(conversation.RootParent())),
			conversation.NewChatMessage(conversation.RoleAssistant, "first",
				conversation.WithID("a1"), conversation.WithParentID("u1")),
			conversation.NewChatMessage(conversation.RoleAssistant, "second",
				conversation.WithID("a1b"), conversation.WithParentID("u1")),
		},
	}
	body, err := json.Marshal(state)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPut, ts.URL+"/api/threads/"+id, bytes.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServerSaveAndLoadThread(t *testing.T) {
	_, ts := newTestServer(t)
	seedThread(t, ts, "t1")

	resp, err := http.Get(ts.URL + "/api/threads/t1")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var state store.ThreadState
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&state))
	require.Equal(t, "t1", state.ID)
	require.Len(t, state.Messages, 3)
}

func TestServerGetLastThread(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/threads/last")
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	seedThread(t, ts, "t1")

	resp, err = http.Get(ts.URL + "/api/threads/last")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServerThreadNotFound(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/threads/nope")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServerDeleteIsIdempotent(t *testing.T) {
	_, ts := newTestServer(t)
	seedThread(t, ts, "t1")

	for i := 0; i < 2; i++ {
		req, err := http.NewRequest(http.MethodDelete, ts.URL+"/api/threads/t1", nil)
		require.NoError(t, err)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		_ = resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode, "delete attempt %d", i+1)
	}

	resp, err := http.Get(ts.URL + "/api/threads/t1")
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServerDerivesPath(t *testing.T) {
	_, ts := newTestServer(t)
	seedThread(t, ts, "t1")

	resp, err := http.Get(ts.URL + "/api/threads/t1/path")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var path conversation.Conversation
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&path))
	// no selection stored: the latest sibling wins
	require.Equal(t, []conversation.NodeID{"u1", "a1b"}, path.IDs())
}

func TestServerPutReconcilesWithStoredState(t *testing.T) {
	_, ts := newTestServer(t)
	seedThread(t, ts, "t1")

	// a client that only knows about one new message must not wipe the rest
	update := store.ThreadState{
		Messages: conversation.Conversation{
			conversation.NewChatMessage(conversation.RoleUser, "followup",
				conversation.WithID("u2"), conversation.WithParentID("a1b")),
		},
	}
	body, err := json.Marshal(update)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPut, ts.URL+"/api/threads/t1", bytes.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var info store.ThreadInfo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&info))
	require.Equal(t, 4, info.Messages)
}

func TestServerListThreads(t *testing.T) {
	_, ts := newTestServer(t)
	for i := 1; i <= 3; i++ {
		seedThread(t, ts, fmt.Sprintf("t%d", i))
	}

	resp, err := http.Get(ts.URL + "/api/threads")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var infos []store.ThreadInfo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&infos))
	require.Len(t, infos, 3)
}
