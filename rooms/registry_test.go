package rooms

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/jackwatters45/gate-cs-ws/core"
	"github.com/jackwatters45/gate-cs-ws/mocks"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type received struct {
	event   string
	payload any
}

type fakePeer struct {
	id  string
	mu  sync.Mutex
	got []received
	err error
}

func newPeer(id string) *fakePeer { return &fakePeer{id: id} }

func (p *fakePeer) ID() string { return p.id }

func (p *fakePeer) Emit(event string, payload any) error {
	if p.err != nil {
		return p.err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.got = append(p.got, received{event, payload})
	return nil
}

func (p *fakePeer) events() []received {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]received(nil), p.got...)
}

func join(registry *Registry, key string, peer core.Peer) {
	_ = registry.Do(key, func(room *Room) error {
		room.Add(peer)
		return nil
	})
}

func broadcast(registry *Registry, key string, sender core.Peer, event string, payload any) int {
	var delivered int
	_ = registry.Do(key, func(room *Room) error {
		delivered = room.Broadcast(sender, event, payload)
		return nil
	})
	return delivered
}

func TestRegistry_Join_One_Room_One_Peer(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	peer := newPeer("a")

	// Given no room exists
	req.Zero(registry.Len())

	// When a peer joins a room
	join(registry, "doc1", peer)

	// Then the room is created with one member
	req.Equal(1, registry.Len())
	key, ok := registry.RoomOf("a")
	req.True(ok)
	req.Equal("doc1", key)
	req.Equal([]core.RoomInfo{{ID: "doc1", Members: 1}}, registry.Rooms())
}

func TestRegistry_Join_Twice_Is_Single_Membership(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	peer := newPeer("a")

	join(registry, "doc1", peer)
	join(registry, "doc1", peer)

	req.Equal([]core.RoomInfo{{ID: "doc1", Members: 1}}, registry.Rooms())
	req.True(registry.Leave("doc1", peer))
	req.Zero(registry.Len())
}

func TestRegistry_Leave_Evicts_Empty_Room(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	peer := newPeer("a")

	join(registry, "doc1", peer)

	// When the last member leaves
	req.True(registry.Leave("doc1", peer))

	// Then the room entry is gone
	req.Zero(registry.Len())
	_, ok := registry.RoomOf("a")
	req.False(ok)
}

func TestRegistry_Leave_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	peer := newPeer("a")

	join(registry, "doc1", peer)
	req.True(registry.Leave("doc1", peer))
	req.False(registry.Leave("doc1", peer))
	req.False(registry.Leave("never-joined", peer))
	req.Zero(registry.Len())
}

func TestRegistry_Broadcast_Excludes_Sender(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	x, y, z := newPeer("x"), newPeer("y"), newPeer("z")
	join(registry, "doc1", x)
	join(registry, "doc1", y)
	join(registry, "doc1", z)

	delivered := broadcast(registry, "doc1", x, "documentUpdate", "hello")

	req.Equal(2, delivered)
	req.Empty(x.events())
	req.Equal([]received{{"documentUpdate", "hello"}}, y.events())
	req.Equal([]received{{"documentUpdate", "hello"}}, z.events())
}

func TestRegistry_Broadcast_Room_Isolation(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	a1, a2, b := newPeer("a1"), newPeer("a2"), newPeer("b")
	join(registry, "A", a1)
	join(registry, "A", a2)
	join(registry, "B", b)

	broadcast(registry, "A", a1, "documentUpdate", "only A")

	req.Len(a2.events(), 1)
	req.Empty(b.events())
}

func TestRegistry_Broadcast_Empty_Room(t *testing.T) {
	registry := NewRegistry()
	require.Zero(t, broadcast(registry, "nobody", nil, "documentUpdate", nil))
	require.Zero(t, registry.Len())
}

func TestRegistry_Broadcast_Failure_Is_Isolated(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	registry := NewRegistry()

	broken := mocks.NewMockPeer(ctrl)
	broken.EXPECT().ID().Return("broken").AnyTimes()
	broken.EXPECT().Emit("documentUpdate", "x").Return(errors.New("connection gone"))

	healthy := newPeer("healthy")
	sender := newPeer("sender")
	join(registry, "doc1", broken)
	join(registry, "doc1", healthy)
	join(registry, "doc1", sender)

	req.Equal(1, broadcast(registry, "doc1", sender, "documentUpdate", "x"))
	req.Len(healthy.events(), 1)
}

func TestRegistry_Do_Keeps_Room_While_Running(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	err := registry.Do("doc1", func(room *Room) error {
		req.Equal(1, registry.Len())
		req.Zero(room.Members())
		return nil
	})
	req.NoError(err)

	// An operation that added no member leaves nothing behind
	req.Zero(registry.Len())
}

func TestRegistry_Do_Returns_Callback_Error(t *testing.T) {
	boom := errors.New("boom")
	err := NewRegistry().Do("doc1", func(room *Room) error { return boom })
	require.ErrorIs(t, err, boom)
}

func TestRegistry_Do_Serializes_Same_Room(t *testing.T) {
	registry := NewRegistry()
	var (
		wg      sync.WaitGroup
		inside  int
		maxSeen int
		mu      sync.Mutex
	)

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = registry.Do("doc1", func(room *Room) error {
				mu.Lock()
				inside++
				if inside > maxSeen {
					maxSeen = inside
				}
				mu.Unlock()

				mu.Lock()
				inside--
				mu.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()

	require.Equal(t, 1, maxSeen)
}

func TestRegistry_Different_Rooms_Do_Not_Block(t *testing.T) {
	registry := NewRegistry()
	entered := make(chan struct{})
	release := make(chan struct{})

	go func() {
		_ = registry.Do("A", func(room *Room) error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered

	// Room B is usable while room A is held
	done := make(chan struct{})
	go func() {
		join(registry, "B", newPeer("b"))
		close(done)
	}()
	<-done
	close(release)
}

func TestRegistry_Concurrent_Join_Leave(t *testing.T) {
	registry := NewRegistry()
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(index int) {
			defer wg.Done()
			peer := newPeer(fmt.Sprintf("peer-%d", index))
			key := fmt.Sprintf("room-%d", index%3)
			join(registry, key, peer)
			broadcast(registry, key, peer, "documentUpdate", index)
			registry.Leave(key, peer)
		}(i)
	}
	wg.Wait()

	require.Zero(t, registry.Len())
}

func TestRoom_NextTimestamp_Strictly_Increases(t *testing.T) {
	req := require.New(t)
	room := newRoom("doc1", NewRegistry())

	room.Observe(100)
	req.EqualValues(101, room.NextTimestamp(50))
	req.EqualValues(101, room.NextTimestamp(100))
	req.EqualValues(200, room.NextTimestamp(200))

	room.Observe(90)
	req.EqualValues(100, room.LastUpdated())
}
