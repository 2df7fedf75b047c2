package core

import (
	"sync"

	"github.com/dkeye/Huddle/internal/domain"
	"github.com/rs/zerolog/log"
)

// room is a threadsafe membership set keyed by user id.
// It never closes adapter-owned resources.
type room struct {
	mu     sync.RWMutex
	byUser map[domain.UserID]*Session
}

// PublishResult reports delivery stats/backpressure to the coordinator.
type PublishResult struct {
	SentTo  int
	Dropped []*Session
}

// RoomInfo is a read-only view for APIs (no transport fields).
type RoomInfo struct {
	ID               domain.RoomID `json:"id"`
	ParticipantCount int           `json:"participant_count"`
}

// RoomStore owns the authoritative set of active rooms. Rooms are created on
// first Add and destroyed in the same critical section that empties them, so
// a room id exists here if and only if it has at least one participant.
type RoomStore struct {
	mu    sync.RWMutex
	rooms map[domain.RoomID]*room
}

func NewRoomStore() *RoomStore {
	return &RoomStore{rooms: make(map[domain.RoomID]*room)}
}

// Add inserts a session keyed by user id, creating the room when unseen, and
// returns the membership as it was just before the insert. Snapshot and
// insert are one critical section, so two users joining concurrently cannot
// both observe an empty room. The map-level write lock is held across the
// insert so it cannot land in a room a concurrent Remove already dropped.
// A stale record with the same user id is replaced (last writer wins); the
// displaced session is returned so the caller can unbind and close it.
func (s *RoomStore) Add(id domain.RoomID, sess *Session) (existing []*Session, displaced *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[id]
	if !ok {
		r = &room{byUser: make(map[domain.UserID]*Session)}
		s.rooms[id] = r
	}

	uid := sess.Participant.User.ID
	r.mu.Lock()
	defer r.mu.Unlock()
	existing = make([]*Session, 0, len(r.byUser))
	for _, cur := range r.byUser {
		existing = append(existing, cur)
	}
	if old, ok := r.byUser[uid]; ok && old.ID != sess.ID {
		displaced = old
	}
	r.byUser[uid] = sess
	log.Debug().Str("module", "core.store").Str("room", string(id)).Str("user", string(uid)).Msg("participant added")
	return existing, displaced
}

// Remove deletes the participant's entry; when the room empties it is deleted
// from the store in the same operation. The map-level write lock is held for
// the whole call because it may destroy the room.
func (s *RoomStore) Remove(id domain.RoomID, uid domain.UserID) (removed *Session, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, found := s.rooms[id]
	if !found {
		return nil, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	removed, ok = r.byUser[uid]
	if !ok {
		return nil, false
	}
	delete(r.byUser, uid)
	if len(r.byUser) == 0 {
		delete(s.rooms, id)
		log.Debug().Str("module", "core.store").Str("room", string(id)).Msg("room destroyed")
	}
	return removed, true
}

// Find is the point lookup used by the toggle and relay paths.
func (s *RoomStore) Find(id domain.RoomID, uid domain.UserID) (*Session, bool) {
	s.mu.RLock()
	r, ok := s.rooms[id]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	sess, ok := r.byUser[uid]
	return sess, ok
}

// Snapshot returns a copy of the current membership, not a live view.
func (s *RoomStore) Snapshot(id domain.RoomID) []*Session {
	s.mu.RLock()
	r, ok := s.rooms[id]
	s.mu.RUnlock()
	if !ok {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Session, 0, len(r.byUser))
	for _, sess := range r.byUser {
		out = append(out, sess)
	}
	return out
}

func (s *RoomStore) Has(id domain.RoomID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.rooms[id]
	return ok
}

func (s *RoomStore) Count(id domain.RoomID) int {
	s.mu.RLock()
	r, ok := s.rooms[id]
	s.mu.RUnlock()
	if !ok {
		return 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser)
}

func (s *RoomStore) List() []RoomInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]RoomInfo, 0, len(s.rooms))
	for id, r := range s.rooms {
		r.mu.RLock()
		n := len(r.byUser)
		r.mu.RUnlock()
		out = append(out, RoomInfo{ID: id, ParticipantCount: n})
	}
	return out
}

// Broadcast pushes a frame to every participant in the room except the user
// named by exclude (empty excludes nobody). Slow consumers are reported, not
// waited on.
func (s *RoomStore) Broadcast(id domain.RoomID, exclude domain.UserID, data Frame) PublishResult {
	s.mu.RLock()
	r, ok := s.rooms[id]
	s.mu.RUnlock()
	res := PublishResult{}
	if !ok {
		return res
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for uid, sess := range r.byUser {
		if exclude != "" && uid == exclude {
			continue
		}
		if err := sess.Conn.TrySend(data); err != nil {
			res.Dropped = append(res.Dropped, sess)
			continue
		}
		res.SentTo++
	}
	log.Debug().Str("module", "core.store").Str("room", string(id)).Int("sent_to", res.SentTo).Int("dropped", len(res.Dropped)).Msg("broadcast result")
	return res
}
