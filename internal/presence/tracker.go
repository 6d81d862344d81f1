// Package presence derives a user's online state from the number of live
// connections it owns and persists only real transitions.
//
// A user is online while at least one connection is open. Connect and
// Disconnect adjust the count under the tracker lock and then reconcile the
// durable record under a per-user lock, outside the tracker lock. Reconcile
// always writes the state implied by the current count, so interleaved
// connects and disconnects converge and each real transition is reported
// exactly once.
package presence

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/thereayou/direct-chat/internal/clock"
	"github.com/thereayou/direct-chat/internal/metrics"
)

// Store is the durable side of presence.
type Store interface {
	SetUserPresence(ctx context.Context, id uuid.UUID, online bool, lastSeen *time.Time) error
	ResetPresence(ctx context.Context, at time.Time) (int64, error)
}

// Transition describes a persisted presence change.
type Transition struct {
	UserID   uuid.UUID
	Online   bool
	LastSeen *time.Time
}

type entry struct {
	conns     int
	persisted bool
	mu        sync.Mutex
}

type Tracker struct {
	store Store
	clock clock.Clock

	mu      sync.Mutex
	entries map[uuid.UUID]*entry
}

func NewTracker(store Store, clk clock.Clock) *Tracker {
	if clk == nil {
		clk = clock.Real()
	}
	return &Tracker{
		store:   store,
		clock:   clk,
		entries: make(map[uuid.UUID]*entry),
	}
}

// Connect records a new connection for userID. changed is true when this call
// persisted a transition the caller should broadcast.
func (t *Tracker) Connect(ctx context.Context, userID uuid.UUID) (Transition, bool, error) {
	t.mu.Lock()
	e, ok := t.entries[userID]
	if !ok {
		e = &entry{}
		t.entries[userID] = e
	}
	e.conns++
	t.mu.Unlock()

	return t.reconcile(ctx, userID, e)
}

// Disconnect records a closed connection for userID.
func (t *Tracker) Disconnect(ctx context.Context, userID uuid.UUID) (Transition, bool, error) {
	t.mu.Lock()
	e, ok := t.entries[userID]
	if !ok {
		t.mu.Unlock()
		return Transition{}, false, nil
	}
	if e.conns > 0 {
		e.conns--
	}
	t.mu.Unlock()

	return t.reconcile(ctx, userID, e)
}

func (t *Tracker) reconcile(ctx context.Context, userID uuid.UUID, e *entry) (Transition, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	t.mu.Lock()
	online := e.conns > 0
	t.mu.Unlock()

	if online == e.persisted {
		t.forget(userID, e)
		return Transition{}, false, nil
	}

	tr := Transition{UserID: userID, Online: online}
	if !online {
		now := t.clock.Now()
		tr.LastSeen = &now
	}

	if err := t.store.SetUserPresence(ctx, userID, tr.Online, tr.LastSeen); err != nil {
		return Transition{}, false, err
	}
	e.persisted = online
	t.forget(userID, e)

	metrics.RecordPresenceTransition(online)
	return tr, true, nil
}

// forget drops an idle entry. Callers hold e.mu.
func (t *Tracker) forget(userID uuid.UUID, e *entry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e.conns == 0 && !e.persisted && t.entries[userID] == e {
		delete(t.entries, userID)
	}
}

// Reset marks every user offline in the store and clears in-memory state.
// Only safe at startup of a single-node deployment.
func (t *Tracker) Reset(ctx context.Context) (int64, error) {
	t.mu.Lock()
	t.entries = make(map[uuid.UUID]*entry)
	t.mu.Unlock()

	return t.store.ResetPresence(ctx, t.clock.Now())
}

// Online reports the in-memory view: true while userID has a live connection.
func (t *Tracker) Online(userID uuid.UUID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[userID]
	return ok && e.conns > 0
}

// Connections returns the number of live connections for userID.
func (t *Tracker) Connections(userID uuid.UUID) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok := t.entries[userID]; ok {
		return e.conns
	}
	return 0
}
