package store

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func texts(log []Message) []string {
	out := make([]string, 0, len(log))
	for _, m := range log {
		out = append(out, m.Text)
	}
	return out
}

func TestAddLog_LengthBound(t *testing.T) {
	s := newTestStore(t, Config{HistoryLength: 2})
	s.AddUserToRoom("u1", "r1")

	now := time.Now().UnixMilli()
	s.AddLog("r1", Message{Text: "1", Time: now})
	s.AddLog("r1", Message{Text: "2", Time: now})
	s.AddLog("r1", Message{Text: "3", Time: now})

	assert.Equal(t, []string{"2", "3"}, texts(s.GetLog("r1", 0)))
}

func TestAddLog_AgeBound(t *testing.T) {
	s := newTestStore(t, Config{HistoryExpire: time.Second})
	s.AddUserToRoom("u1", "r1")

	s.AddLog("r1", Message{Text: "old", Time: 100})
	s.AddLog("r1", Message{Text: "new", Time: 1500})

	assert.Equal(t, []string{"new"}, texts(s.GetLog("r1", 0)))
}

func TestAddLog_AgeBoundKeepsBoundary(t *testing.T) {
	s := newTestStore(t, Config{HistoryExpire: time.Second})
	s.AddUserToRoom("u1", "r1")

	s.AddLog("r1", Message{Text: "edge", Time: 500})
	s.AddLog("r1", Message{Text: "new", Time: 1500})

	assert.Equal(t, []string{"edge", "new"}, texts(s.GetLog("r1", 0)))
}

func TestAddLog_KeepsPayload(t *testing.T) {
	s := newTestStore(t, Config{})
	s.AddUserToRoom("u1", "r1")

	msg := Message{
		ID:   "m1",
		Room: "r1",
		From: "u1",
		Text: "hello",
		Data: json.RawMessage(`{"k":1}`),
		Time: time.Now().UnixMilli(),
	}
	s.AddLog("r1", msg)

	assert.Equal(t, []Message{msg}, s.GetLog("r1", 0))
}

func TestGetLog_Since(t *testing.T) {
	s := newTestStore(t, Config{HistoryExpire: time.Hour})
	s.AddUserToRoom("u1", "r1")

	for i, ts := range []int64{1000, 2000, 3000} {
		s.AddLog("r1", Message{Text: string(rune('a' + i)), Time: ts})
	}

	assert.Equal(t, []string{"a", "b", "c"}, texts(s.GetLog("r1", 0)))
	assert.Equal(t, []string{"a", "b", "c"}, texts(s.GetLog("r1", -5)))
	assert.Equal(t, []string{"c"}, texts(s.GetLog("r1", 2000)))
	assert.Empty(t, s.GetLog("r1", 3000))
	assert.Empty(t, s.GetLog("unknown", 0))
}

func TestGetLog_ReturnsCopy(t *testing.T) {
	s := newTestStore(t, Config{})
	s.AddUserToRoom("u1", "r1")
	s.AddLog("r1", Message{Text: "a", Time: time.Now().UnixMilli()})

	log := s.GetLog("r1", 0)
	log[0].Text = "changed"
	_ = append(log, Message{Text: "extra"})

	assert.Equal(t, []string{"a"}, texts(s.GetLog("r1", 0)))
}

func TestEviction_MemberlessLog(t *testing.T) {
	s := newTestStore(t, Config{HistoryExpire: 30 * time.Millisecond})

	s.AddLog("r1", Message{Text: "a", Time: time.Now().UnixMilli()})
	info, ok := s.GetRoom("r1")
	require.True(t, ok)
	assert.True(t, info.EvictionPending)

	require.Eventually(t, func() bool {
		_, ok := s.GetRoom("r1")
		return !ok
	}, time.Second, 5*time.Millisecond)

	assert.Empty(t, s.GetLog("r1", 0))
	assert.Equal(t, uint64(1), s.Stats().EvictedRooms)
}

func TestEviction_AfterLastMemberLeaves(t *testing.T) {
	s := newTestStore(t, Config{HistoryExpire: 30 * time.Millisecond})

	s.AddUserToRoom("u1", "r1")
	s.AddLog("r1", Message{Text: "a", Time: time.Now().UnixMilli()})

	time.Sleep(60 * time.Millisecond)
	assert.Len(t, s.GetLog("r1", 0), 1, "occupied room keeps its log")

	s.RemoveUserFromRoom("u1", "r1")

	require.Eventually(t, func() bool {
		return len(s.GetLog("r1", 0)) == 0
	}, time.Second, 5*time.Millisecond)
}

func TestEviction_CancelledByJoin(t *testing.T) {
	s := newTestStore(t, Config{HistoryExpire: 50 * time.Millisecond})

	s.AddLog("r1", Message{Text: "a", Time: time.Now().UnixMilli()})
	s.AddUserToRoom("u1", "r1")

	info, _ := s.GetRoom("r1")
	assert.False(t, info.EvictionPending)

	time.Sleep(150 * time.Millisecond)

	assert.Len(t, s.GetLog("r1", 0), 1)
	assert.Zero(t, s.Stats().EvictedRooms)
}
