package collab

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackwatters45/gate-cs-ws/core"
	"github.com/jackwatters45/gate-cs-ws/rooms"
	"github.com/sirupsen/logrus"
)

var ErrEmptyRoomKey = errors.New("room key is required")

// Engine runs the join, update and leave protocols. Writes are last writer
// wins per room: every successful update replaces the stored document and
// is only broadcast after it has been persisted.
type Engine struct {
	store core.DocumentStore
	rooms *rooms.Registry
	now   func() time.Time
}

type Option func(*Engine)

// WithClock overrides the time source used for document timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func NewEngine(store core.DocumentStore, registry *rooms.Registry, opts ...Option) *Engine {
	e := &Engine{
		store: store,
		rooms: registry,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Rooms() *rooms.Registry { return e.rooms }

// Join moves the session into roomKey, sends it the room's current document
// as initialData and returns that document. A missing document is created
// empty. The reply is emitted before the room is unlocked, so the session
// sees it ahead of any later update. On failure the session is left without
// a room and nothing is emitted.
func (e *Engine) Join(ctx context.Context, s *Session, roomKey string) (*core.Document, error) {
	if roomKey == "" {
		return nil, ErrEmptyRoomKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	log := logrus.WithFields(logrus.Fields{"session_id": s.id, "room": roomKey})

	if s.room != "" {
		e.rooms.Leave(s.room, s)
		s.room = ""
	}

	var doc *core.Document
	err := e.rooms.Do(roomKey, func(room *rooms.Room) error {
		current, err := e.load(ctx, room)
		if err != nil {
			return err
		}
		room.Add(s)
		if err := s.Emit(EventInitialData, current); err != nil {
			log.WithError(err).Warn("Failed to send initial data")
		}
		doc = current
		return nil
	})
	if err != nil {
		log.WithError(err).Warn("Join failed")
		return nil, err
	}

	s.room = roomKey
	log.Info("Session joined room")
	return doc, nil
}

// load returns the stored document for the room, creating an empty one on
// first use. Called with the room locked.
func (e *Engine) load(ctx context.Context, room *rooms.Room) (*core.Document, error) {
	doc, err := e.store.Get(ctx, room.Key())
	if err == nil {
		room.Observe(doc.LastUpdated)
		return doc, nil
	}
	if !errors.Is(err, core.ErrDocumentNotFound) {
		return nil, fmt.Errorf("load room %s: %w", room.Key(), err)
	}

	doc = &core.Document{
		Content:     "",
		LastUpdated: room.NextTimestamp(e.now().UnixMilli()),
	}
	if err := e.store.Set(ctx, room.Key(), doc); err != nil {
		return nil, fmt.Errorf("create room %s: %w", room.Key(), err)
	}
	room.Observe(doc.LastUpdated)
	logrus.WithField("room", room.Key()).Debug("Created empty document")
	return doc, nil
}

// Update replaces the session's room document with content and broadcasts
// it to the other members. It is a no-op for a session that has not joined
// a room.
func (e *Engine) Update(ctx context.Context, s *Session, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	log := logrus.WithField("session_id", s.id)
	if s.room == "" {
		log.Debug("Ignoring update from session without a room")
		return nil
	}
	log = log.WithField("room", s.room)

	return e.rooms.Do(s.room, func(room *rooms.Room) error {
		doc := &core.Document{
			Content:     content,
			LastUpdated: room.NextTimestamp(e.now().UnixMilli()),
		}
		if err := e.store.Set(ctx, room.Key(), doc); err != nil {
			log.WithError(err).Warn("Failed to persist update")
			return fmt.Errorf("persist room %s: %w", room.Key(), err)
		}
		room.Observe(doc.LastUpdated)

		delivered := room.Broadcast(s, EventDocumentUpdate, doc)
		log.WithField("recipients", delivered).Debug("Update broadcast")
		return nil
	})
}

// Leave removes the session from its room. Safe to call more than once.
func (e *Engine) Leave(s *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.room == "" {
		return
	}
	if e.rooms.Leave(s.room, s) {
		logrus.WithFields(logrus.Fields{"session_id": s.id, "room": s.room}).Info("Session left room")
	}
	s.room = ""
}
