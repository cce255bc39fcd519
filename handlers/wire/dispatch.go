package wire

import (
	"context"
	"errors"

	"github.com/jackwatters45/gate-cs-ws/collab"
	"github.com/sirupsen/logrus"
)

// Dispatch runs one inbound event against the engine. Errors are replied to
// s only; join replies and broadcasts are sent by the engine.
func Dispatch(ctx context.Context, engine *collab.Engine, s *collab.Session, event string, payload any) {
	log := logrus.WithFields(logrus.Fields{"session_id": s.ID(), "event": event})

	op, ok := Canonical(event)
	if !ok {
		log.Debug("Ignoring unknown event")
		return
	}

	switch op {
	case collab.EventJoin:
		key, err := RoomKey(payload)
		if err != nil {
			reply(log, s, collab.EventError, Error(err))
			return
		}
		// The engine sends initialData itself.
		_, err = engine.Join(ctx, s, key)
		if errors.Is(err, collab.ErrEmptyRoomKey) {
			reply(log, s, collab.EventError, Error(err))
			return
		}
		if err != nil {
			reply(log, s, collab.EventError, collab.ErrorPayload{Message: "failed to load room " + key})
		}

	case collab.EventUpdate:
		content, err := Content(payload)
		if err != nil {
			log.WithError(err).Warn("Dropping malformed update")
			return
		}
		if err := engine.Update(ctx, s, content); err != nil {
			reply(log, s, collab.EventError, collab.ErrorPayload{Message: "failed to save update"})
		}
	}
}

func reply(log *logrus.Entry, s *collab.Session, event string, payload any) {
	if err := s.Emit(event, payload); err != nil {
		log.WithError(err).WithField("reply", event).Warn("Failed to reply")
	}
}
