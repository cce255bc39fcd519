package rooms

import (
	"sync"

	"github.com/jackwatters45/gate-cs-ws/core"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

// Room is one shared document scope. Its methods must be called with the
// room locked, i.e. from inside Registry.Do.
type Room struct {
	key      string
	registry *Registry

	mu      sync.Mutex
	members map[string]core.Peer
	last    int64

	refs int // guarded by registry.mu
}

func newRoom(key string, registry *Registry) *Room {
	return &Room{
		key:      key,
		registry: registry,
		members:  make(map[string]core.Peer),
	}
}

func (room *Room) Key() string { return room.key }

func (room *Room) Members() int { return len(room.members) }

// Add registers peer as a member. Adding an existing member is a no-op.
func (room *Room) Add(peer core.Peer) {
	id := peer.ID()
	if _, ok := room.members[id]; ok {
		return
	}
	room.members[id] = peer

	room.registry.mu.Lock()
	room.refs++
	room.registry.memberships[id] = room.key
	room.registry.mu.Unlock()
}

// Remove drops peer from the member set and reports whether it was present.
func (room *Room) Remove(peer core.Peer) bool {
	id := peer.ID()
	if _, ok := room.members[id]; !ok {
		return false
	}
	delete(room.members, id)

	room.registry.mu.Lock()
	if room.registry.memberships[id] == room.key {
		delete(room.registry.memberships, id)
	}
	room.registry.unrefLocked(room)
	room.registry.mu.Unlock()
	return true
}

// Broadcast emits to every member except sender. A failed delivery is
// logged and does not affect the other recipients.
func (room *Room) Broadcast(sender core.Peer, event string, payload any) int {
	recipients := lo.Filter(lo.Values(room.members), func(p core.Peer, _ int) bool {
		return sender == nil || p.ID() != sender.ID()
	})

	delivered := 0
	for _, peer := range recipients {
		if err := peer.Emit(event, payload); err != nil {
			logrus.WithFields(logrus.Fields{
				"room":    room.key,
				"peer_id": peer.ID(),
				"event":   event,
			}).WithError(err).Warn("Failed to deliver broadcast")
			continue
		}
		delivered++
	}
	return delivered
}

// LastUpdated is the newest document timestamp seen for this room.
func (room *Room) LastUpdated() int64 { return room.last }

// Observe records a persisted timestamp.
func (room *Room) Observe(ts int64) {
	if ts > room.last {
		room.last = ts
	}
}

// NextTimestamp returns now, or one past the last persisted timestamp when
// the clock has not moved beyond it.
func (room *Room) NextTimestamp(now int64) int64 {
	if now <= room.last {
		return room.last + 1
	}
	return now
}
