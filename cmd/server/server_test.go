package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thereayou/direct-chat/internal/clock"
	"github.com/thereayou/direct-chat/internal/presence"
	"github.com/thereayou/direct-chat/internal/testutil"
)

func TestClearStalePresence(t *testing.T) {
	tests := []struct {
		backplane  string
		cleared    bool
		stayOnline bool
	}{
		{"", true, false},
		{"none", true, false},
		{"redis", false, true},
		{"nats", false, true},
	}

	for _, tt := range tests {
		t.Run("backplane="+tt.backplane, func(t *testing.T) {
			db := testutil.NewDatabase(t)
			ctx := context.Background()
			tracker := presence.NewTracker(db, clock.NewFake(time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)))

			alice := testutil.CreateUser(t, db, "Alice", "alice@example.com")
			require.NoError(t, db.SetUserPresence(ctx, alice.ID, true, nil))

			assert.Equal(t, tt.cleared, clearStalePresence(ctx, tracker, tt.backplane))

			user, err := db.GetUser(ctx, alice.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.stayOnline, user.IsOnline)
		})
	}
}
