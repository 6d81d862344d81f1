package websocket

import (
	"sync"

	"github.com/google/uuid"
)

// Registry indexes live clients and the groups they have joined. It holds no
// persistent state.
type Registry struct {
	mu      sync.RWMutex
	clients map[uuid.UUID]*Client
	groups  map[string]map[uuid.UUID]*Client
}

func NewRegistry() *Registry {
	return &Registry{
		clients: make(map[uuid.UUID]*Client),
		groups:  make(map[string]map[uuid.UUID]*Client),
	}
}

func (r *Registry) Add(client *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[client.ID] = client
}

// Remove drops the client and all of its memberships. It returns the groups
// the client was in and false if the client was not registered.
func (r *Registry) Remove(client *Client) ([]string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.clients[client.ID]; !ok {
		return nil, false
	}

	groups := client.Groups()
	for _, group := range groups {
		r.leaveUnsafe(group, client)
	}
	delete(r.clients, client.ID)

	return groups, true
}

// Join adds client to group. It reports whether the membership is new.
func (r *Registry) Join(group string, client *Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.clients[client.ID]; !ok {
		return false
	}

	members, ok := r.groups[group]
	if !ok {
		members = make(map[uuid.UUID]*Client)
		r.groups[group] = members
	}
	if _, ok := members[client.ID]; ok {
		return false
	}

	members[client.ID] = client
	client.addGroup(group)
	return true
}

// Leave removes client from group. It reports whether client was a member.
func (r *Registry) Leave(group string, client *Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.leaveUnsafe(group, client)
}

func (r *Registry) leaveUnsafe(group string, client *Client) bool {
	members, ok := r.groups[group]
	if !ok {
		return false
	}
	if _, ok := members[client.ID]; !ok {
		return false
	}

	delete(members, client.ID)
	client.removeGroup(group)
	if len(members) == 0 {
		delete(r.groups, group)
	}
	return true
}

// Members returns a snapshot of the clients in group.
func (r *Registry) Members(group string) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := r.groups[group]
	out := make([]*Client, 0, len(members))
	for _, client := range members {
		out = append(out, client)
	}
	return out
}

func (r *Registry) IsEmpty(group string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.groups[group]) == 0
}

// Clients returns a snapshot of every registered client.
func (r *Registry) Clients() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Client, 0, len(r.clients))
	for _, client := range r.clients {
		out = append(out, client)
	}
	return out
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}
