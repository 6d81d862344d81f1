package presence

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thereayou/direct-chat/internal/clock"
)

type write struct {
	online   bool
	lastSeen *time.Time
}

type fakeStore struct {
	mu     sync.Mutex
	writes map[uuid.UUID][]write
	fail   error
	resets int
}

func newFakeStore() *fakeStore {
	return &fakeStore{writes: make(map[uuid.UUID][]write)}
}

func (s *fakeStore) SetUserPresence(_ context.Context, id uuid.UUID, online bool, lastSeen *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	s.writes[id] = append(s.writes[id], write{online: online, lastSeen: lastSeen})
	return nil
}

func (s *fakeStore) ResetPresence(_ context.Context, _ time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resets++
	return 3, nil
}

func (s *fakeStore) history(id uuid.UUID) []write {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]write(nil), s.writes[id]...)
}

func TestConnectIsEdgeTriggered(t *testing.T) {
	store := newFakeStore()
	tracker := NewTracker(store, clock.NewFake(time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)))
	ctx := context.Background()
	user := uuid.New()

	tr, changed, err := tracker.Connect(ctx, user)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.True(t, tr.Online)
	assert.Equal(t, user, tr.UserID)
	assert.Nil(t, tr.LastSeen)

	for i := 0; i < 2; i++ {
		_, changed, err = tracker.Connect(ctx, user)
		require.NoError(t, err)
		assert.False(t, changed)
	}
	assert.Equal(t, 3, tracker.Connections(user))

	for i := 0; i < 2; i++ {
		_, changed, err = tracker.Disconnect(ctx, user)
		require.NoError(t, err)
		assert.False(t, changed, "closing a subset of connections must not go offline")
	}
	assert.True(t, tracker.Online(user))

	tr, changed, err = tracker.Disconnect(ctx, user)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.False(t, tr.Online)
	require.NotNil(t, tr.LastSeen)
	assert.False(t, tracker.Online(user))

	writes := store.history(user)
	require.Len(t, writes, 2)
	assert.True(t, writes[0].online)
	assert.False(t, writes[1].online)
	assert.NotNil(t, writes[1].lastSeen)
}

func TestDisconnectUnknownUser(t *testing.T) {
	tracker := NewTracker(newFakeStore(), nil)

	_, changed, err := tracker.Disconnect(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestConcurrentConnectDisconnectConverges(t *testing.T) {
	store := newFakeStore()
	tracker := NewTracker(store, nil)
	ctx := context.Background()
	user := uuid.New()

	const n = 50
	var (
		wg          sync.WaitGroup
		mu          sync.Mutex
		transitions []bool
	)
	record := func(tr Transition, changed bool, err error) {
		assert.NoError(t, err)
		if changed {
			mu.Lock()
			transitions = append(transitions, tr.Online)
			mu.Unlock()
		}
	}

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			record(tracker.Connect(ctx, user))
			record(tracker.Disconnect(ctx, user))
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, tracker.Connections(user))
	assert.False(t, tracker.Online(user))

	// Broadcasts alternate and end offline, one per persisted transition.
	require.NotEmpty(t, transitions)
	for i, online := range transitions {
		assert.Equal(t, i%2 == 0, online)
	}
	assert.False(t, transitions[len(transitions)-1])
	assert.Len(t, store.history(user), len(transitions))
}

func TestStoreFailureIsReported(t *testing.T) {
	store := newFakeStore()
	store.fail = errors.New("db down")
	tracker := NewTracker(store, nil)

	_, changed, err := tracker.Connect(context.Background(), uuid.New())
	assert.Error(t, err)
	assert.False(t, changed)
}

func TestReset(t *testing.T) {
	store := newFakeStore()
	tracker := NewTracker(store, nil)
	user := uuid.New()

	_, _, err := tracker.Connect(context.Background(), user)
	require.NoError(t, err)

	n, err := tracker.Reset(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
	assert.Equal(t, 1, store.resets)
	assert.False(t, tracker.Online(user))
}
