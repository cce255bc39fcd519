// Package wire normalizes client payloads for the transport adapters.
// Clients send either bare strings or objects; the engine only ever sees
// a room key or raw content.
package wire

import (
	"errors"
	"fmt"

	"github.com/jackwatters45/gate-cs-ws/collab"
	"github.com/jackwatters45/gate-cs-ws/core"
)

var (
	ErrMissingRoomKey = errors.New("room id is required")
	ErrMissingContent = errors.New("update content is required")
)

var inbound = func() map[string]string {
	m := map[string]string{
		collab.EventJoin:   collab.EventJoin,
		collab.EventUpdate: collab.EventUpdate,
	}
	for _, alias := range collab.JoinAliases {
		m[alias] = collab.EventJoin
	}
	for _, alias := range collab.UpdateAliases {
		m[alias] = collab.EventUpdate
	}
	return m
}()

// Canonical maps an inbound event name, including legacy aliases, to the
// engine operation it triggers.
func Canonical(event string) (string, bool) {
	name, ok := inbound[event]
	return name, ok
}

// InboundEvents lists every event name a transport should listen for.
func InboundEvents() []string {
	names := make([]string, 0, len(inbound))
	for name := range inbound {
		names = append(names, name)
	}
	return names
}

// RoomKey extracts the room key from a join payload: a string, or an object
// with a "roomId", "room" or "roomKey" field.
func RoomKey(v any) (string, error) {
	switch p := v.(type) {
	case string:
		if p != "" {
			return p, nil
		}
	case map[string]any:
		for _, field := range []string{"roomId", "room", "roomKey"} {
			if key, ok := p[field].(string); ok && key != "" {
				return key, nil
			}
		}
	}
	return "", ErrMissingRoomKey
}

// Content extracts the document content from an update payload: a string,
// or a document-shaped object with a string "content" field.
func Content(v any) (string, error) {
	switch p := v.(type) {
	case string:
		return p, nil
	case map[string]any:
		if content, ok := p["content"].(string); ok {
			return content, nil
		}
	}
	return "", fmt.Errorf("%w: got %T", ErrMissingContent, v)
}

// Generic converts outbound payloads into plain maps for encoders that
// do not honour struct tags.
func Generic(payload any) any {
	switch p := payload.(type) {
	case *core.Document:
		return p.Payload()
	case collab.ErrorPayload:
		return map[string]any{"message": p.Message}
	}
	return payload
}

// Error builds the payload of an error event.
func Error(err error) collab.ErrorPayload {
	return collab.ErrorPayload{Message: err.Error()}
}
