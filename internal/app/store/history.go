package store

import (
	"encoding/json"
	"slices"
	"time"
)

// Message is a single entry of a room history.
type Message struct {
	ID   string          `json:"id,omitempty"`
	Room string          `json:"room,omitempty"`
	From string          `json:"from,omitempty"`
	Text string          `json:"message,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`

	// Time is the message time in Unix milliseconds.
	Time int64 `json:"time"`
}

// AddLog appends msg to the history of roomID, then drops entries from the
// front until at most HistoryLength remain and none is older than
// HistoryExpire relative to msg.Time.
func (s *Store) AddLog(roomID string, msg Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	log := append(s.logs[roomID], msg)

	if over := len(log) - s.cfg.HistoryLength; over > 0 {
		log = log[over:]
	}

	cutoff := msg.Time - s.cfg.HistoryExpire.Milliseconds()
	drop := 0
	for drop < len(log) && log[drop].Time < cutoff {
		drop++
	}
	s.logs[roomID] = log[drop:]

	// A log nobody listens to still has to expire.
	if !s.roomUsers.has(roomID) {
		s.scheduleEvictionLocked(roomID)
	}
}

// GetLog returns the history of roomID. With since > 0 only messages newer
// than since are returned. The result is always a fresh slice.
func (s *Store) GetLog(roomID string, since int64) []Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	log := s.logs[roomID]
	if since <= 0 {
		out := make([]Message, len(log))
		copy(out, log)
		return out
	}

	out := make([]Message, 0, len(log))
	for _, m := range log {
		if m.Time > since {
			out = append(out, m)
		}
	}
	return slices.Clip(out)
}

// evictionTimer is a pending idle eviction of one room.
type evictionTimer struct {
	timer *time.Timer
}

// scheduleEvictionLocked arms the idle timer of a memberless room unless one is already pending.
func (s *Store) scheduleEvictionLocked(roomID string) {
	if s.closed {
		return
	}
	if _, pending := s.roomTimers[roomID]; pending {
		return
	}

	entry := &evictionTimer{}
	entry.timer = time.AfterFunc(s.cfg.HistoryExpire, func() {
		s.evictRoom(roomID, entry)
	})
	s.roomTimers[roomID] = entry
}

// cancelEvictionLocked stops the idle timer of roomID, if any.
func (s *Store) cancelEvictionLocked(roomID string) {
	if entry, ok := s.roomTimers[roomID]; ok {
		entry.timer.Stop()
		delete(s.roomTimers, roomID)
	}
}

// evictRoom runs when the idle timer entry of roomID fires. A timer that has
// been cancelled or replaced in the meantime does nothing.
func (s *Store) evictRoom(roomID string, entry *evictionTimer) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if current, ok := s.roomTimers[roomID]; !ok || current != entry {
		return
	}
	delete(s.roomTimers, roomID)

	if s.roomUsers.has(roomID) {
		return
	}

	delete(s.logs, roomID)
	s.evictedRooms++

	s.logger.Debug().Str("room_id", roomID).Msg("Idle room history evicted.")
}
