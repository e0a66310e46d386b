package store

import "time"

// tokenEntry is a live token. The pointer identity distinguishes it from a
// later token that happens to reuse the same string.
type tokenEntry struct {
	timer   *time.Timer
	payload any
}

// CreateToken stores payload under a new one-shot token that expires after TokenExpire.
func (s *Store) CreateToken(payload any) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", ErrClosed
	}

	token, err := s.uniqueIDLocked("", s.cfg.TokenLength, func(id string) bool {
		_, taken := s.tokens[id]
		return taken
	})
	if err != nil {
		return "", err
	}

	entry := &tokenEntry{payload: payload}
	entry.timer = time.AfterFunc(s.cfg.TokenExpire, func() {
		s.expireToken(token, entry)
	})
	s.tokens[token] = entry

	return token, nil
}

// ReleaseToken removes token and returns its payload. The boolean is false if
// the token is unknown, already released or expired.
func (s *Store) ReleaseToken(token string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.tokens[token]
	if !ok {
		return nil, false
	}

	entry.timer.Stop()
	delete(s.tokens, token)
	return entry.payload, true
}

// expireToken runs when the timer of entry fires. It is a no-op if the token
// was released first.
func (s *Store) expireToken(token string, entry *tokenEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if current, ok := s.tokens[token]; !ok || current != entry {
		return
	}
	delete(s.tokens, token)
	s.expiredTokens++

	s.logger.Debug().Msg("Token expired unreleased.")
}
