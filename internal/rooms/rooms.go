// Package rooms tracks named broadcast groups of connections.
//
// Rooms carry no payload or ownership of their own, only membership.
// A connection may belong to any number of rooms. There is no explicit
// leave operation; memberships are dropped when the connection is torn
// down.
package rooms

import "sync"

type Rooms struct {
	mu      sync.RWMutex
	members map[string]map[string]struct{} // room -> connection ids
	joined  map[string]map[string]struct{} // connection id -> rooms
}

func New() *Rooms {
	return &Rooms{
		members: make(map[string]map[string]struct{}),
		joined:  make(map[string]map[string]struct{}),
	}
}

// Join adds connID to room. Repeated joins are idempotent.
func (r *Rooms) Join(room, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.members[room] == nil {
		r.members[room] = make(map[string]struct{})
	}
	r.members[room][connID] = struct{}{}

	if r.joined[connID] == nil {
		r.joined[connID] = make(map[string]struct{})
	}
	r.joined[connID][room] = struct{}{}
}

// Others returns the room's members excluding connID.
func (r *Rooms) Others(room, connID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.members[room]
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for id := range set {
		if id == connID {
			continue
		}
		out = append(out, id)
	}
	return out
}

// Drop removes connID from every room it joined, deleting rooms that
// become empty. Called from connection teardown.
func (r *Rooms) Drop(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for room := range r.joined[connID] {
		set := r.members[room]
		delete(set, connID)
		if len(set) == 0 {
			delete(r.members, room)
		}
	}
	delete(r.joined, connID)
}

// Stats returns the number of rooms and total memberships.
func (r *Rooms) Stats() (rooms, memberships int) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rooms = len(r.members)
	for _, set := range r.members {
		memberships += len(set)
	}
	return rooms, memberships
}
