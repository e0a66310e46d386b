package store

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aequiternus/rtcs.io-storage/internal/pkg/randx"
)

func TestToken_ReleasedOnce(t *testing.T) {
	s := newTestStore(t, Config{})

	token, err := s.CreateToken(map[string]string{"user": "u1"})
	require.NoError(t, err)
	assert.Len(t, token, DefaultTokenLength)
	assert.True(t, randx.IsBase62(token))

	payload, ok := s.ReleaseToken(token)
	require.True(t, ok)
	assert.Equal(t, map[string]string{"user": "u1"}, payload)

	payload, ok = s.ReleaseToken(token)
	assert.False(t, ok)
	assert.Nil(t, payload)

	_, ok = s.ReleaseToken("never-issued")
	assert.False(t, ok)
}

func TestToken_ConcurrentReleaseHasOneWinner(t *testing.T) {
	s := newTestStore(t, Config{})
	token, err := s.CreateToken("p")
	require.NoError(t, err)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := s.ReleaseToken(token); ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
}

func TestToken_Expires(t *testing.T) {
	s := newTestStore(t, Config{TokenExpire: 20 * time.Millisecond})

	token, err := s.CreateToken("p")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return s.Stats().Tokens == 0
	}, time.Second, 5*time.Millisecond)

	_, ok := s.ReleaseToken(token)
	assert.False(t, ok)
	assert.Equal(t, uint64(1), s.Stats().ExpiredTokens)
}

func TestToken_ReleaseStopsExpiry(t *testing.T) {
	s := newTestStore(t, Config{TokenExpire: 20 * time.Millisecond})

	token, err := s.CreateToken("p")
	require.NoError(t, err)
	_, ok := s.ReleaseToken(token)
	require.True(t, ok)

	time.Sleep(60 * time.Millisecond)
	assert.Zero(t, s.Stats().ExpiredTokens)
}

func TestToken_StaleTimerIgnoresReissuedToken(t *testing.T) {
	s := newTestStore(t, Config{TokenExpire: 40 * time.Millisecond}, WithIDGenerator(sequence("tok")))

	token, err := s.CreateToken("first")
	require.NoError(t, err)

	s.mu.Lock()
	stale := s.tokens[token]
	s.mu.Unlock()

	_, ok := s.ReleaseToken(token)
	require.True(t, ok)

	again, err := s.CreateToken("second")
	require.NoError(t, err)
	require.Equal(t, token, again)

	s.expireToken(token, stale)

	payload, ok := s.ReleaseToken(again)
	require.True(t, ok)
	assert.Equal(t, "second", payload)
}

func TestToken_Unique(t *testing.T) {
	s := newTestStore(t, Config{TokenLength: 8})

	seen := make(map[string]struct{})
	for i := 0; i < 500; i++ {
		token, err := s.CreateToken(nil)
		require.NoError(t, err)
		_, dup := seen[token]
		require.False(t, dup)
		seen[token] = struct{}{}
	}
}
