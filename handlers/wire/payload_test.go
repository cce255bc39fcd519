package wire

import (
	"errors"
	"testing"

	"github.com/jackwatters45/gate-cs-ws/collab"
	"github.com/jackwatters45/gate-cs-ws/core"
	"github.com/stretchr/testify/require"
)

func TestCanonical(t *testing.T) {
	testCases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"join", collab.EventJoin, true},
		{"join-room", collab.EventJoin, true},
		{"update", collab.EventUpdate, true},
		{"codeChange", collab.EventUpdate, true},
		{"whiteboardUpdate", collab.EventUpdate, true},
		{"server-broadcast", "", false},
	}

	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			got, ok := Canonical(tc.in)
			require.Equal(t, tc.ok, ok)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestInboundEvents_ContainsAliases(t *testing.T) {
	require.ElementsMatch(t,
		[]string{"join", "join-room", "update", "codeChange", "whiteboardUpdate"},
		InboundEvents())
}

func TestRoomKey(t *testing.T) {
	testCases := []struct {
		name    string
		in      any
		want    string
		wantErr bool
	}{
		{"string", "doc1", "doc1", false},
		{"roomId object", map[string]any{"roomId": "doc2"}, "doc2", false},
		{"room object", map[string]any{"room": "doc3"}, "doc3", false},
		{"empty string", "", "", true},
		{"number", 42.0, "", true},
		{"nil", nil, "", true},
		{"object without key", map[string]any{"other": "x"}, "", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := RoomKey(tc.in)
			if tc.wantErr {
				require.ErrorIs(t, err, ErrMissingRoomKey)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestContent(t *testing.T) {
	got, err := Content("// Start coding here\n")
	require.NoError(t, err)
	require.Equal(t, "// Start coding here\n", got)

	got, err = Content("")
	require.NoError(t, err)
	require.Equal(t, "", got)

	got, err = Content(map[string]any{"content": "shapes", "lastUpdated": 12.0})
	require.NoError(t, err)
	require.Equal(t, "shapes", got)

	_, err = Content(map[string]any{"content": 3.0})
	require.True(t, errors.Is(err, ErrMissingContent))

	_, err = Content(nil)
	require.ErrorIs(t, err, ErrMissingContent)
}

func TestGeneric(t *testing.T) {
	doc := &core.Document{Content: "c", LastUpdated: 5}
	require.Equal(t, map[string]any{"content": "c", "lastUpdated": int64(5)}, Generic(doc))
	require.Equal(t, map[string]any{"message": "boom"}, Generic(Error(errors.New("boom"))))
	require.Equal(t, "raw", Generic("raw"))
}
