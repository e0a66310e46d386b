package store

import (
	"context"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/Aequiternus/rtcs.io-storage/internal/app/user"
)

// Session is an authenticated identity resolved by an external backend.
type Session struct {
	ID   string
	User user.User
}

// SessionResolver looks up sessions in an external authentication backend.
// A nil session with a nil error means the session is unknown.
type SessionResolver interface {
	ResolveSession(ctx context.Context, sessionID string) (*Session, error)
}

// GetSession resolves sessionID through the configured backend.
// Without a backend every session is unknown.
func (s *Store) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	if s.sessions == nil || sessionID == "" {
		return nil, nil
	}
	return s.sessions.ResolveSession(ctx, sessionID)
}

// GetUser returns a copy of the user record with the given ID.
func (s *Store) GetUser(id string) (user.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return user.User{}, false
	}
	return u.Clone(), true
}

// GetUsers returns copies of the requested records. Every requested ID is
// present in the result; unknown IDs map to nil.
func (s *Store) GetUsers(ids []string) map[string]*user.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]*user.User, len(ids))
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			c := u.Clone()
			out[id] = &c
		} else {
			out[id] = nil
		}
	}
	return out
}

// PutUser installs an externally supplied user record, replacing any previous one.
func (s *Store) PutUser(u user.User) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	c := u.Clone()
	s.users[u.ID] = &c
}

// GetGuest creates a guest user and returns its ID. The display name is
// trimmed; an empty name is replaced by a per-store sequence number.
func (s *Store) GetGuest(name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", ErrClosed
	}

	id, err := s.uniqueIDLocked(user.GuestIDPrefix, s.cfg.GuestIDLength, func(id string) bool {
		_, taken := s.users[id]
		return taken
	})
	if err != nil {
		return "", err
	}

	display := strings.TrimSpace(name)
	if display == "" {
		s.guestNum++
		display = strconv.Itoa(s.guestNum)
	}

	s.users[id] = &user.User{
		ID: id,
		Public: user.Profile{
			Guest: true,
			Name:  s.cfg.GuestName + display,
		},
		Rooms: slices.Clone(s.cfg.GuestRooms),
	}

	s.logger.Debug().Str("user_id", id).Msg("Guest created.")
	return id, nil
}

// RemoveGuest deletes a guest record. Non-guest IDs are ignored, and so are
// guests that still have registered sockets: their record goes away with the
// last socket.
func (s *Store) RemoveGuest(id string) {
	if !user.IsGuestID(id) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.dropUserLocked(id)
}

// guestExpiry is a pending removal of a guest that has not connected yet.
type guestExpiry struct {
	timer *time.Timer
}

// ExpireGuest removes guest id after d unless it registers a socket first.
// It reports false for unknown IDs, non-guests and a closed store.
// Scheduling again replaces the pending removal.
func (s *Store) ExpireGuest(id string, d time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	if u, ok := s.users[id]; !ok || !u.Public.Guest {
		return false
	}

	s.cancelGuestExpiryLocked(id)

	entry := &guestExpiry{}
	entry.timer = time.AfterFunc(d, func() {
		s.expireGuest(id, entry)
	})
	s.guestTimers[id] = entry
	return true
}

func (s *Store) cancelGuestExpiryLocked(id string) {
	if entry, ok := s.guestTimers[id]; ok {
		entry.timer.Stop()
		delete(s.guestTimers, id)
	}
}

// expireGuest runs when the timer of entry fires. A timer that has been
// replaced or cancelled in the meantime does nothing.
func (s *Store) expireGuest(id string, entry *guestExpiry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if current, ok := s.guestTimers[id]; !ok || current != entry {
		return
	}
	delete(s.guestTimers, id)

	if s.dropUserLocked(id) {
		s.logger.Debug().Str("user_id", id).Msg("Unconnected guest expired.")
	}
}

// dropUserLocked deletes the record of a user without sockets.
// It is the only place a user record is removed.
func (s *Store) dropUserLocked(id string) bool {
	if s.sockets.has(id) {
		return false
	}
	if _, ok := s.users[id]; !ok {
		return false
	}

	s.cancelGuestExpiryLocked(id)
	delete(s.users, id)
	s.logger.Debug().Str("user_id", id).Msg("User record removed.")
	return true
}
