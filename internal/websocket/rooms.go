package websocket

import (
	"sort"
	"sync"
)

// Rooms indexes chat rooms by connection in both directions so a closing
// connection can leave every room it joined.
type Rooms struct {
	mu      sync.RWMutex
	members map[string]map[string]struct{} // chatID -> connIDs
	joined  map[string]map[string]struct{} // connID -> chatIDs
}

func NewRooms() *Rooms {
	return &Rooms{
		members: make(map[string]map[string]struct{}),
		joined:  make(map[string]map[string]struct{}),
	}
}

// Join adds connID to chatID and reports whether it was newly added.
func (r *Rooms) Join(chatID, connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.members[chatID]
	if !ok {
		set = make(map[string]struct{})
		r.members[chatID] = set
	}
	if _, exists := set[connID]; exists {
		return false
	}
	set[connID] = struct{}{}

	chats, ok := r.joined[connID]
	if !ok {
		chats = make(map[string]struct{})
		r.joined[connID] = chats
	}
	chats[chatID] = struct{}{}
	return true
}

// Leave removes connID from chatID and reports whether it was a member.
func (r *Rooms) Leave(chatID, connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.leaveLocked(chatID, connID)
}

// LeaveAll removes connID from every room and returns the rooms it left.
func (r *Rooms) LeaveAll(connID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	left := sortedKeys(r.joined[connID])
	for _, chatID := range left {
		r.leaveLocked(chatID, connID)
	}
	return left
}

func (r *Rooms) leaveLocked(chatID, connID string) bool {
	set, ok := r.members[chatID]
	if !ok {
		return false
	}
	if _, exists := set[connID]; !exists {
		return false
	}

	delete(set, connID)
	if len(set) == 0 {
		delete(r.members, chatID)
	}

	chats := r.joined[connID]
	delete(chats, chatID)
	if len(chats) == 0 {
		delete(r.joined, connID)
	}
	return true
}

// MembersOf returns a snapshot of the connections in chatID.
func (r *Rooms) MembersOf(chatID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.members[chatID])
}

// RoomsOf returns a snapshot of the rooms connID has joined.
func (r *Rooms) RoomsOf(connID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.joined[connID])
}

func sortedKeys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
