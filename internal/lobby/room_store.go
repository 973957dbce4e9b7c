// internal/lobby/room_store.go
package lobby

import (
	"math/rand"
	"sort"
	"sync"
)

const (
	roomCodeLength  = 5
	roomCodeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// RoomStore is the table of live rooms keyed by room code.
type RoomStore struct {
	mu    sync.Mutex
	rooms map[string]*Room
}

// NewRoomStore initializes and returns an empty RoomStore.
func NewRoomStore() *RoomStore {
	return &RoomStore{
		rooms: make(map[string]*Room),
	}
}

// UniqueCode returns a random room code not used by any live room.
// The caller must add the room before releasing the Manager lock for the code to stay unique.
func (s *RoomStore) UniqueCode() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		code := randomCode()
		if _, taken := s.rooms[code]; !taken {
			return code
		}
	}
}

func randomCode() string {
	b := make([]byte, roomCodeLength)
	for i := range b {
		b[i] = roomCodeCharset[rand.Intn(len(roomCodeCharset))]
	}
	return string(b)
}

// Add registers a room. It reports false if the code is already taken.
func (s *RoomStore) Add(r *Room) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.rooms[r.Code]; exists {
		return false
	}
	s.rooms[r.Code] = r
	return true
}

// Delete removes a room by code. Deleting an unknown code is a no-op.
func (s *RoomStore) Delete(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, code)
}

// Get retrieves a live room by code.
func (s *RoomStore) Get(code string) (*Room, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[code]
	return r, ok
}

// Rooms returns the live rooms in creation order. The slice is a copy; the rooms are not.
func (s *RoomStore) Rooms() []*Room {
	s.mu.Lock()
	out := make([]*Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		out = append(out, r)
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

// Len returns the number of live rooms.
func (s *RoomStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rooms)
}
