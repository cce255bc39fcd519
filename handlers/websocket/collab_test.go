package websocket

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jackwatters45/gate-cs-ws/collab"
	"github.com/jackwatters45/gate-cs-ws/core"
	"github.com/jackwatters45/gate-cs-ws/mocks"
	"github.com/jackwatters45/gate-cs-ws/rooms"
	"github.com/jackwatters45/gate-cs-ws/stores/memory"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const allowedOrigin = "http://localhost:4321"

func startServer(t *testing.T, store core.DocumentStore) string {
	t.Helper()
	engine := collab.NewEngine(store, rooms.NewRegistry())
	srv := httptest.NewServer(NewHandler(engine, Options{
		Origins:         []string{allowedOrigin},
		SendBuffer:      16,
		MaxMessageBytes: 1 << 20,
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func send(t *testing.T, c *websocket.Conn, event string, data any) {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, c.WriteJSON(Frame{Event: event, Data: raw}))
}

func expect(t *testing.T, c *websocket.Conn, event string) json.RawMessage {
	t.Helper()
	require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))
	var frame Frame
	require.NoError(t, c.ReadJSON(&frame))
	require.Equal(t, event, frame.Event)
	return frame.Data
}

func expectDocument(t *testing.T, c *websocket.Conn, event string) core.Document {
	t.Helper()
	var doc core.Document
	require.NoError(t, json.Unmarshal(expect(t, c, event), &doc))
	return doc
}

func expectSilence(t *testing.T, c *websocket.Conn) {
	t.Helper()
	require.NoError(t, c.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err := c.ReadMessage()
	var netErr net.Error
	require.True(t, errors.As(err, &netErr) && netErr.Timeout(), "expected no frame, got %v", err)
}

func TestHandler_JoinUpdateScenario(t *testing.T) {
	url := startServer(t, memory.NewDocumentStore())
	x, y := dial(t, url), dial(t, url)

	// Given X and Y in doc1
	send(t, x, collab.EventJoin, "doc1")
	require.Equal(t, "", expectDocument(t, x, collab.EventInitialData).Content)
	send(t, y, collab.EventJoin, "doc1")
	require.Equal(t, "", expectDocument(t, y, collab.EventInitialData).Content)

	// When X updates
	send(t, x, collab.EventUpdate, "hello")

	// Then Y receives it and X does not
	got := expectDocument(t, y, collab.EventDocumentUpdate)
	require.Equal(t, "hello", got.Content)
	require.Positive(t, got.LastUpdated)

	// And a late joiner sees the persisted content
	z := dial(t, url)
	send(t, z, "join-room", "doc1")
	require.Equal(t, "hello", expectDocument(t, z, collab.EventInitialData).Content)

	expectSilence(t, x)
}

func TestHandler_RoomIsolation(t *testing.T) {
	url := startServer(t, memory.NewDocumentStore())
	a, b := dial(t, url), dial(t, url)

	send(t, a, collab.EventJoin, "r1")
	expect(t, a, collab.EventInitialData)
	send(t, b, collab.EventJoin, "r2")
	expect(t, b, collab.EventInitialData)

	send(t, a, "codeChange", map[string]any{"content": "only r1"})

	expectSilence(t, b)
}

func TestHandler_StoreFailureSendsError(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockDocumentStore(ctrl)
	store.EXPECT().Get(gomock.Any(), "doc1").Return(nil, errors.New("connection reset"))

	c := dial(t, startServer(t, store))
	send(t, c, collab.EventJoin, "doc1")

	var payload collab.ErrorPayload
	require.NoError(t, json.Unmarshal(expect(t, c, collab.EventError), &payload))
	require.NotEmpty(t, payload.Message)
}

func TestHandler_MalformedFrameKeepsConnection(t *testing.T) {
	c := dial(t, startServer(t, memory.NewDocumentStore()))

	require.NoError(t, c.WriteMessage(websocket.TextMessage, []byte("not json")))
	send(t, c, collab.EventJoin, "doc1")

	expect(t, c, collab.EventInitialData)
}

func TestHandler_RejectsUnknownOrigin(t *testing.T) {
	url := startServer(t, memory.NewDocumentStore())

	header := http.Header{}
	header.Set("Origin", "http://evil.example")
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	header.Set("Origin", allowedOrigin)
	c, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	_ = c.Close()
}

func TestConn_DropsSlowConsumer(t *testing.T) {
	serverSide := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := (&websocket.Upgrader{}).Upgrade(w, r, nil)
		if err != nil {
			return
		}
		serverSide <- ws
	}))
	t.Cleanup(srv.Close)
	dial(t, "ws"+strings.TrimPrefix(srv.URL, "http"))

	// No writer goroutine drains the buffer.
	c := newConn(<-serverSide, 1)

	require.NoError(t, c.Emit(collab.EventDocumentUpdate, "first"))
	require.ErrorIs(t, c.Emit(collab.EventDocumentUpdate, "second"), ErrSlowConsumer)
	require.ErrorIs(t, c.Emit(collab.EventDocumentUpdate, "third"), ErrConnClosed)
}
