package rooms

import (
	"sync"

	"github.com/jackwatters45/gate-cs-ws/core"
)

// Registry maps room keys to their live members.
//
// Each room carries its own mutex, so operations on one room are strictly
// ordered while different rooms only share the short critical sections on
// the registry map. Room entries are reference counted (members plus
// in-flight operations) and dropped once nothing references them.
//
// Lock order is room.mu before Registry.mu; Registry.mu is never held while
// acquiring a room lock.
type Registry struct {
	mu          sync.Mutex
	rooms       map[string]*Room
	memberships map[string]string // peer id -> room key
}

func NewRegistry() *Registry {
	return &Registry{
		rooms:       make(map[string]*Room),
		memberships: make(map[string]string),
	}
}

func (r *Registry) acquire(key string, create bool) *Room {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[key]
	if !ok {
		if !create {
			return nil
		}
		room = newRoom(key, r)
		r.rooms[key] = room
	}
	room.refs++
	return room
}

func (r *Registry) release(room *Room) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unrefLocked(room)
}

func (r *Registry) unrefLocked(room *Room) {
	room.refs--
	if room.refs == 0 && r.rooms[room.key] == room {
		delete(r.rooms, room.key)
	}
}

// Do runs fn with the room locked, creating the room entry if needed. The
// entry is kept alive for the duration of fn.
func (r *Registry) Do(key string, fn func(room *Room) error) error {
	room := r.acquire(key, true)
	defer r.release(room)

	room.mu.Lock()
	defer room.mu.Unlock()
	return fn(room)
}

// Leave removes peer from the room and reports whether it was a member.
// Leaving a room one is not in is a no-op.
func (r *Registry) Leave(key string, peer core.Peer) bool {
	room := r.acquire(key, false)
	if room == nil {
		return false
	}
	defer r.release(room)

	room.mu.Lock()
	defer room.mu.Unlock()
	return room.Remove(peer)
}

// RoomOf returns the room the peer is currently a member of.
func (r *Registry) RoomOf(peerID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key, ok := r.memberships[peerID]
	return key, ok
}

// Len returns the number of room entries currently held in memory.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms)
}

// Rooms returns a snapshot of rooms that have at least one member.
func (r *Registry) Rooms() []core.RoomInfo {
	r.mu.Lock()
	live := make([]*Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		live = append(live, room)
	}
	r.mu.Unlock()

	infos := make([]core.RoomInfo, 0, len(live))
	for _, room := range live {
		room.mu.Lock()
		info := core.RoomInfo{
			ID:          room.key,
			Members:     len(room.members),
			LastUpdated: room.last,
		}
		room.mu.Unlock()

		if info.Members > 0 {
			infos = append(infos, info)
		}
	}
	return infos
}
