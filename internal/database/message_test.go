package database_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thereayou/direct-chat/internal/models"
	"github.com/thereayou/direct-chat/internal/testutil"
)

func TestListConversationMessagesAscending(t *testing.T) {
	db := testutil.NewDatabase(t)
	ctx := context.Background()
	base := time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)

	alice := testutil.CreateUser(t, db, "Alice", "alice@example.com")
	bob := testutil.CreateUser(t, db, "Bob", "bob@example.com")
	conv, _, err := db.FindOrCreateConversation(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	// Inserted out of order on purpose.
	for i, offset := range []time.Duration{2 * time.Second, 0, time.Second} {
		require.NoError(t, db.CreateMessage(ctx, &models.Message{
			ConversationID: conv.ID,
			SenderID:       alice.ID,
			ReceiverID:     bob.ID,
			Content:        []string{"third", "first", "second"}[i],
			CreatedAt:      base.Add(offset),
		}))
	}

	messages, err := db.ListConversationMessages(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, messages, 3)

	assert.Equal(t, "first", messages[0].Content)
	assert.Equal(t, "second", messages[1].Content)
	assert.Equal(t, "third", messages[2].Content)
	assert.Equal(t, "Alice", messages[0].Sender.Name)
}

func TestGetMessage(t *testing.T) {
	db := testutil.NewDatabase(t)
	ctx := context.Background()

	alice := testutil.CreateUser(t, db, "Alice", "alice@example.com")
	bob := testutil.CreateUser(t, db, "Bob", "bob@example.com")
	conv, _, err := db.FindOrCreateConversation(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	msg := &models.Message{ConversationID: conv.ID, SenderID: bob.ID, ReceiverID: alice.ID, Content: "hey"}
	require.NoError(t, db.CreateMessage(ctx, msg))

	got, err := db.GetMessage(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, "hey", got.Content)
	assert.Equal(t, bob.ID, got.Sender.ID)
}
