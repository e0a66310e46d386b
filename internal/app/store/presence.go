package store

import (
	"slices"

	"github.com/Aequiternus/rtcs.io-storage/internal/app/user"
)

// index maps a key to a set of members. A key exists iff its set is non-empty.
type index map[string]map[string]struct{}

func (ix index) has(key string) bool {
	_, ok := ix[key]
	return ok
}

func (ix index) contains(key, member string) bool {
	_, ok := ix[key][member]
	return ok
}

func (ix index) add(key, member string) {
	set, ok := ix[key]
	if !ok {
		set = make(map[string]struct{})
		ix[key] = set
	}
	set[member] = struct{}{}
}

// remove deletes member from the set of key and prunes the key once the set is empty.
func (ix index) remove(key, member string) {
	set, ok := ix[key]
	if !ok {
		return
	}
	delete(set, member)
	if len(set) == 0 {
		delete(ix, key)
	}
}

// members returns the sorted members of key, or an empty slice.
func (ix index) members(key string) []string {
	set := ix[key]
	out := make([]string, 0, len(set))
	for m := range set {
		out = append(out, m)
	}
	slices.Sort(out)
	return out
}

// AddSocket registers socketID as a connection of userID.
func (s *Store) AddSocket(socketID, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.sockets.add(userID, socketID)
	s.cancelGuestExpiryLocked(userID)
}

// RemoveSocket deregisters socketID and reports whether userID still has
// sockets. When the last socket goes away the user record is dropped as well.
func (s *Store) RemoveSocket(socketID, userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.removeSocketLocked(socketID, userID)
}

func (s *Store) removeSocketLocked(socketID, userID string) bool {
	s.sockets.remove(userID, socketID)
	if s.sockets.has(userID) {
		return true
	}

	s.dropUserLocked(userID)
	return false
}

// Departure describes what a disconnect took away from a user.
type Departure struct {
	// Remaining is true when the user still has other sockets.
	Remaining bool

	// Left lists the rooms the user left because its last socket closed.
	Left []string

	// Profile is the public profile the user had, if a record existed.
	Profile *user.Profile
}

// DisconnectSocket removes socketID like RemoveSocket and, when it was the
// user's last socket, removes the user from every room under the same lock.
// A concurrent reconnect observes either all old memberships or none.
func (s *Store) DisconnectSocket(socketID, userID string) Departure {
	s.mu.Lock()
	defer s.mu.Unlock()

	var profile *user.Profile
	if u, ok := s.users[userID]; ok {
		p := u.Public.Clone()
		profile = &p
	}

	if s.removeSocketLocked(socketID, userID) {
		return Departure{Remaining: true}
	}

	left := s.userRooms.members(userID)
	for _, roomID := range left {
		s.linkLocked(userID, roomID, false)
	}

	return Departure{Left: left, Profile: profile}
}

// GetSockets returns the socket IDs registered for userID.
func (s *Store) GetSockets(userID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.sockets.members(userID)
}

// linkLocked adds or removes the (userID, roomID) pair on both sides of the
// membership index and reports whether the pair was present beforehand.
// Membership is never written anywhere else.
func (s *Store) linkLocked(userID, roomID string, member bool) bool {
	wasMember := s.userRooms.contains(userID, roomID)

	if member {
		s.userRooms.add(userID, roomID)
		s.roomUsers.add(roomID, userID)
		s.cancelEvictionLocked(roomID)
		return wasMember
	}

	if !wasMember {
		return false
	}

	s.userRooms.remove(userID, roomID)
	s.roomUsers.remove(roomID, userID)
	if !s.roomUsers.has(roomID) {
		s.scheduleEvictionLocked(roomID)
	}
	return true
}

// AddUserToRoom makes userID a member of roomID and reports whether it already was one.
func (s *Store) AddUserToRoom(userID, roomID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	return s.linkLocked(userID, roomID, true)
}

// RemoveUserFromRoom removes userID from roomID. It reports whether the user
// was not a member to begin with, and whether the room still has members.
func (s *Store) RemoveUserFromRoom(userID, roomID string) (wasAbsent bool, roomHasMembers bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wasMember := s.linkLocked(userID, roomID, false)
	return !wasMember, s.roomUsers.has(roomID)
}

// GetUserRooms returns the rooms userID is a member of. The boolean is false
// when the user is in no room.
func (s *Store) GetUserRooms(userID string) ([]string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.userRooms.has(userID) {
		return nil, false
	}
	return s.userRooms.members(userID), true
}

// GetRoomUsers returns the public profiles of the members of roomID. Members
// without a user record map to an empty profile.
func (s *Store) GetRoomUsers(roomID string) map[string]user.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()

	members := s.roomUsers[roomID]
	out := make(map[string]user.Profile, len(members))
	for userID := range members {
		if u, ok := s.users[userID]; ok {
			out[userID] = u.Public.Clone()
		} else {
			out[userID] = user.Profile{}
		}
	}
	return out
}

// RoomInfo summarizes the state of a room.
type RoomInfo struct {
	ID              string `json:"id"`
	Members         int    `json:"members"`
	Messages        int    `json:"messages"`
	EvictionPending bool   `json:"evictionPending"`
}

// GetRoom returns a summary of roomID. The boolean is false when the room has
// neither members nor history.
func (s *Store) GetRoom(roomID string) (RoomInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	log, hasLog := s.logs[roomID]
	if !hasLog && !s.roomUsers.has(roomID) {
		return RoomInfo{ID: roomID}, false
	}

	_, pending := s.roomTimers[roomID]
	return RoomInfo{
		ID:              roomID,
		Members:         len(s.roomUsers[roomID]),
		Messages:        len(log),
		EvictionPending: pending,
	}, true
}
