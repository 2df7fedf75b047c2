package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/dkeye/Huddle/internal/protocol"
)

type fakeConn struct {
	mu     sync.Mutex
	frames []core.Frame
	fail   bool
	closed bool
}

func (f *fakeConn) TrySend(fr core.Frame) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("backpressure")
	}
	f.frames = append(f.frames, fr)
	return nil
}

func (f *fakeConn) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeConn) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// messages decodes every captured frame into a generic map.
func (f *fakeConn) messages(t *testing.T) []map[string]any {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]map[string]any, 0, len(f.frames))
	for _, fr := range f.frames {
		var m map[string]any
		require.NoError(t, sonic.Unmarshal(fr, &m))
		out = append(out, m)
	}
	return out
}

func (f *fakeConn) byType(t *testing.T, typ string) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, m := range f.messages(t) {
		if m["type"] == typ {
			out = append(out, m)
		}
	}
	return out
}

func newTestCoordinator() *Coordinator {
	return NewCoordinator(core.NewRoomStore(), NewRegistry(), KickPolicy{})
}

func join(t *testing.T, c *Coordinator, cid, room, uid, name string) *fakeConn {
	t.Helper()
	conn := &fakeConn{}
	u, err := domain.NewUser(uid, name)
	require.NoError(t, err)
	c.Handle(core.ConnID(cid), Join{Room: domain.RoomID(room), User: u, Role: domain.RoleParticipant, Conn: conn})
	return conn
}

func TestJoinSequence(t *testing.T) {
	c := newTestCoordinator()

	// First joiner creates the room and sees an empty participant list.
	c1 := join(t, c, "c1", "standup", "u1", "Alice")
	lists := c1.byType(t, protocol.TypeParticipantsList)
	require.Len(t, lists, 1)
	assert.Empty(t, lists[0]["participants"])

	c2 := join(t, c, "c2", "standup", "u2", "Bob")
	lists = c2.byType(t, protocol.TypeParticipantsList)
	require.Len(t, lists, 1)
	participants, ok := lists[0]["participants"].([]any)
	require.True(t, ok)
	require.Len(t, participants, 1)
	first, ok := participants[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "u1", first["userId"])
	assert.Equal(t, "Alice", first["displayName"])

	joined := c1.byType(t, protocol.TypeUserJoined)
	require.Len(t, joined, 1)
	assert.Equal(t, "u2", joined[0]["userId"])
	// The joiner does not receive its own user-joined.
	assert.Empty(t, c2.byType(t, protocol.TypeUserJoined))
}

// Two users joining at the same moment must each learn about the other: every
// peer shows up either in the joiner's participants-list or as a later
// user-joined. With the snapshot taken inside the store's insert critical
// section, no interleaving can leave both lists empty with no broadcast.
func TestConcurrentJoinersSeeEachOther(t *testing.T) {
	const n = 8
	c := newTestCoordinator()
	conns := make([]*fakeConn, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		conns[i] = &fakeConn{}
		u, err := domain.NewUser(fmt.Sprintf("u%d", i), fmt.Sprintf("user %d", i))
		require.NoError(t, err)
		wg.Add(1)
		go func(i int, u domain.User) {
			defer wg.Done()
			c.Handle(core.ConnID(fmt.Sprintf("c%d", i)), Join{
				Room: "standup", User: u, Role: domain.RoleParticipant, Conn: conns[i],
			})
		}(i, u)
	}
	wg.Wait()

	require.Equal(t, n, c.Rooms.Count("standup"))

	for i := 0; i < n; i++ {
		seen := make(map[string]bool)
		lists := conns[i].byType(t, protocol.TypeParticipantsList)
		require.Len(t, lists, 1)
		if participants, ok := lists[0]["participants"].([]any); ok {
			for _, p := range participants {
				seen[p.(map[string]any)["userId"].(string)] = true
			}
		}
		for _, m := range conns[i].byType(t, protocol.TypeUserJoined) {
			seen[m["userId"].(string)] = true
		}
		assert.False(t, seen[fmt.Sprintf("u%d", i)], "joiner u%d told about itself", i)
		for j := 0; j < n; j++ {
			if j == i {
				continue
			}
			assert.True(t, seen[fmt.Sprintf("u%d", j)], "u%d never learned about u%d", i, j)
		}
	}
}

func TestToggleVideoBroadcastsToWholeRoom(t *testing.T) {
	c := newTestCoordinator()
	c1 := join(t, c, "c1", "standup", "u1", "Alice")
	c2 := join(t, c, "c2", "standup", "u2", "Bob")

	c.Handle("c1", Toggle{Room: "standup", Flag: domain.FlagVideo, Value: true})

	for _, conn := range []*fakeConn{c1, c2} {
		msgs := conn.byType(t, protocol.TypeVideoChanged)
		require.Len(t, msgs, 1)
		assert.Equal(t, "u1", msgs[0]["userId"])
		assert.Equal(t, true, msgs[0]["isVideoOn"])
	}

	sess, ok := c.Rooms.Find("standup", "u1")
	require.True(t, ok)
	assert.True(t, sess.Participant.Flags().VideoOn)
}

func TestToggleIsIdempotent(t *testing.T) {
	c := newTestCoordinator()
	join(t, c, "c1", "standup", "u1", "Alice")
	c2 := join(t, c, "c2", "standup", "u2", "Bob")

	c.Handle("c1", Toggle{Room: "standup", Flag: domain.FlagHandRaise, Value: true})
	c.Handle("c1", Toggle{Room: "standup", Flag: domain.FlagHandRaise, Value: true})

	// Same value twice: same observable state, one broadcast per event.
	sess, ok := c.Rooms.Find("standup", "u1")
	require.True(t, ok)
	assert.True(t, sess.Participant.Flags().HandRaised)
	msgs := c2.byType(t, protocol.TypeHandRaised)
	require.Len(t, msgs, 2)
	assert.Equal(t, msgs[0], msgs[1])
}

func TestScreenShareEventTypes(t *testing.T) {
	c := newTestCoordinator()
	join(t, c, "c1", "standup", "u1", "Alice")
	c2 := join(t, c, "c2", "standup", "u2", "Bob")

	c.Handle("c1", Toggle{Room: "standup", Flag: domain.FlagScreenShare, Value: true})
	c.Handle("c1", Toggle{Room: "standup", Flag: domain.FlagScreenShare, Value: false})

	assert.Len(t, c2.byType(t, protocol.TypeScreenShareStart), 1)
	assert.Len(t, c2.byType(t, protocol.TypeScreenShareStop), 1)
}

func TestChatBroadcast(t *testing.T) {
	c := newTestCoordinator()
	ts := time.Date(2026, 2, 3, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return ts }

	c1 := join(t, c, "c1", "standup", "u1", "Alice")
	c2 := join(t, c, "c2", "standup", "u2", "Bob")

	c.Handle("c1", Chat{Room: "standup", Text: "hello"})

	for _, conn := range []*fakeConn{c1, c2} {
		msgs := conn.byType(t, protocol.TypeChatReceived)
		require.Len(t, msgs, 1)
		assert.Equal(t, "u1", msgs[0]["userId"])
		assert.Equal(t, "Alice", msgs[0]["displayName"])
		assert.Equal(t, "hello", msgs[0]["text"])
		assert.Equal(t, ts.Format(time.RFC3339), msgs[0]["timestamp"])
	}
}

func TestSignalUnicast(t *testing.T) {
	c := newTestCoordinator()
	c1 := join(t, c, "c1", "standup", "u1", "Alice")
	c2 := join(t, c, "c2", "standup", "u2", "Bob")
	c3 := join(t, c, "c3", "standup", "u3", "Carol")

	offer := json.RawMessage(`{"type":"offer","sdp":"v=0"}`)
	c.Handle("c1", Signal{Kind: protocol.TypeSignalOffer, To: "u2", Payload: offer})

	msgs := c2.byType(t, protocol.TypeSignalOffer)
	require.Len(t, msgs, 1)
	assert.Equal(t, "u1", msgs[0]["from"])
	blob, err := sonic.Marshal(msgs[0]["offer"])
	require.NoError(t, err)
	assert.JSONEq(t, string(offer), string(blob))

	// Nobody else in the room sees the unicast, the sender included.
	assert.Empty(t, c1.byType(t, protocol.TypeSignalOffer))
	assert.Empty(t, c3.byType(t, protocol.TypeSignalOffer))
}

func TestSignalToDepartedPeerDropped(t *testing.T) {
	c := newTestCoordinator()
	join(t, c, "c1", "standup", "u1", "Alice")
	c2 := join(t, c, "c2", "standup", "u2", "Bob")
	c.Handle("c2", Leave{Room: "standup"})

	c.Handle("c1", Signal{Kind: protocol.TypeSignalAnswer, To: "u2", Payload: json.RawMessage(`{}`)})
	assert.Empty(t, c2.byType(t, protocol.TypeSignalAnswer))
}

func TestDisconnectCleansUp(t *testing.T) {
	c := newTestCoordinator()
	join(t, c, "c1", "standup", "u1", "Alice")
	c2 := join(t, c, "c2", "standup", "u2", "Bob")

	c.Handle("c1", Disconnect{})

	left := c2.byType(t, protocol.TypeUserLeft)
	require.Len(t, left, 1)
	assert.Equal(t, "u1", left[0]["userId"])

	_, ok := c.Rooms.Find("standup", "u1")
	assert.False(t, ok)
	assert.Equal(t, 1, c.Rooms.Count("standup"))
	assert.Equal(t, 1, c.Registry.Len())

	// A late toggle from the dead connection is dropped without broadcast.
	before := len(c2.messages(t))
	c.Handle("c1", Toggle{Room: "standup", Flag: domain.FlagVideo, Value: true})
	assert.Len(t, c2.messages(t), before)
}

func TestDisconnectBeforeJoinIsNoop(t *testing.T) {
	c := newTestCoordinator()
	c.Handle("c1", Disconnect{})
	assert.Zero(t, c.Registry.Len())
}

func TestRoomDestroyedWhenLastParticipantLeaves(t *testing.T) {
	c := newTestCoordinator()
	join(t, c, "c1", "standup", "u1", "Alice")
	c.Handle("c1", Leave{Room: "standup"})

	assert.False(t, c.Rooms.Has("standup"))
	assert.Zero(t, c.Registry.Len())

	// A fresh joiner gets a fresh room with an empty list.
	c2 := join(t, c, "c2", "standup", "u2", "Bob")
	lists := c2.byType(t, protocol.TypeParticipantsList)
	require.Len(t, lists, 1)
	assert.Empty(t, lists[0]["participants"])
}

func TestLeaveWrongRoomDropped(t *testing.T) {
	c := newTestCoordinator()
	join(t, c, "c1", "standup", "u1", "Alice")
	c.Handle("c1", Leave{Room: "retro"})

	assert.True(t, c.Rooms.Has("standup"))
	assert.Equal(t, 1, c.Registry.Len())
}

func TestBroadcastIsolationBetweenRooms(t *testing.T) {
	c := newTestCoordinator()
	join(t, c, "c1", "standup", "u1", "Alice")
	other := join(t, c, "c2", "retro", "u2", "Bob")

	c.Handle("c1", Chat{Room: "standup", Text: "hi"})
	assert.Empty(t, other.byType(t, protocol.TypeChatReceived))
}

func TestReconnectDisplacesStaleConnection(t *testing.T) {
	c := newTestCoordinator()
	old := join(t, c, "c1", "standup", "u1", "Alice")
	join(t, c, "c2", "standup", "u1", "Alice")

	assert.True(t, old.isClosed())
	assert.Equal(t, 1, c.Rooms.Count("standup"))
	assert.Equal(t, 1, c.Registry.Len())

	cur, ok := c.Rooms.Find("standup", "u1")
	require.True(t, ok)
	assert.Equal(t, core.ConnID("c2"), cur.ID)

	// The stale connection's disconnect arrives later and must not evict the
	// reconnected participant.
	c.Handle("c1", Disconnect{})
	assert.Equal(t, 1, c.Rooms.Count("standup"))
	assert.Equal(t, 1, c.Registry.Len())
}

func TestRejoinOnSameConnectionMovesRooms(t *testing.T) {
	c := newTestCoordinator()
	conn := join(t, c, "c1", "standup", "u1", "Alice")
	u, err := domain.NewUser("u1", "Alice")
	require.NoError(t, err)
	c.Handle("c1", Join{Room: "retro", User: u, Role: domain.RoleParticipant, Conn: conn})

	assert.False(t, c.Rooms.Has("standup"))
	assert.Equal(t, 1, c.Rooms.Count("retro"))
	assert.Equal(t, 1, c.Registry.Len())
}

func TestSlowConsumerKicked(t *testing.T) {
	c := newTestCoordinator()
	join(t, c, "c1", "standup", "u1", "Alice")
	slow := join(t, c, "c2", "standup", "u2", "Bob")
	slow.fail = true

	c.Handle("c1", Toggle{Room: "standup", Flag: domain.FlagAudio, Value: true})

	assert.True(t, slow.isClosed())
	_, ok := c.Rooms.Find("standup", "u2")
	assert.False(t, ok)
	assert.Equal(t, 1, c.Registry.Len())
}

func TestRegistryConsistency(t *testing.T) {
	c := newTestCoordinator()
	join(t, c, "c1", "standup", "u1", "Alice")
	join(t, c, "c2", "standup", "u2", "Bob")
	join(t, c, "c3", "retro", "u3", "Carol")

	// Every bound connection maps to a live participant record and back.
	for _, cid := range []core.ConnID{"c1", "c2", "c3"} {
		room, sess, ok := c.Registry.Resolve(cid)
		require.True(t, ok)
		cur, found := c.Rooms.Find(room, sess.Participant.User.ID)
		require.True(t, found)
		assert.Equal(t, cid, cur.ID)
	}

	c.Handle("c2", Disconnect{})
	c.Handle("c3", Leave{Room: "retro"})
	assert.Equal(t, 1, c.Registry.Len())
	assert.Equal(t, 1, c.Rooms.Count("standup"))
	assert.False(t, c.Rooms.Has("retro"))
}
