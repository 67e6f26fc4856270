package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/arbor/pkg/conversation"
)

func TestPublisherManagerDistributesWithSequenceNumbers(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer func() { _ = pubSub.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	messages, err := pubSub.Subscribe(ctx, "branching")
	require.NoError(t, err)

	pm := NewPublisherManager()
	pm.SubscribePublisher("branching", pubSub)

	msg := conversation.NewChatMessage(conversation.RoleAssistant, "v2",
		conversation.WithID("a1b"),
		conversation.WithParentID("u1"),
		conversation.WithEditedFrom("a1"),
	)
	require.NoError(t, pm.Publish(NewBranchCreatedEvent("t1", msg)))
	require.NoError(t, pm.Publish(NewBranchSelectedEvent("t1", "u1", 1)))

	first := <-messages
	first.Ack()
	require.Equal(t, "0", first.Metadata.Get("sequence_number"))
	require.Equal(t, string(EventTypeBranchCreated), first.Metadata.Get("event_type"))

	var ev Event
	require.NoError(t, json.Unmarshal(first.Payload, &ev))
	require.Equal(t, "t1", ev.ThreadID)
	require.Equal(t, conversation.NodeID("a1b"), ev.MessageID)
	require.Equal(t, conversation.NodeID("a1"), ev.EditedFrom)
	require.Equal(t, conversation.ParentKey("u1"), ev.ParentKey)

	second := <-messages
	second.Ack()
	require.Equal(t, "1", second.Metadata.Get("sequence_number"))

	var selected Event
	require.NoError(t, json.Unmarshal(second.Payload, &selected))
	require.Equal(t, EventTypeBranchSelected, selected.Type)
	require.Equal(t, 1, selected.Index)
}
