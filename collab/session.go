package collab

import (
	"sync"

	"github.com/jackwatters45/gate-cs-ws/core"
	"github.com/oklog/ulid/v2"
)

// Session is the server side of one client connection. It implements
// core.Peer by delegating to the transport's emitter.
type Session struct {
	id      string
	emitter Emitter

	// mu orders the session's engine operations.
	mu   sync.Mutex
	room string
}

// Emitter sends one event to a single client.
type Emitter interface {
	Emit(event string, payload any) error
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(event string, payload any) error

func (f EmitterFunc) Emit(event string, payload any) error { return f(event, payload) }

var _ core.Peer = (*Session)(nil)

func NewSession(emitter Emitter) *Session {
	return &Session{
		id:      ulid.Make().String(),
		emitter: emitter,
	}
}

func (s *Session) ID() string { return s.id }

func (s *Session) Emit(event string, payload any) error {
	return s.emitter.Emit(event, payload)
}

// Room returns the session's current room, or "" when it has not joined.
func (s *Session) Room() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.room
}
