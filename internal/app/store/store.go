/*
Package store implements the ephemeral, in-process state of the presence service.

A single Store holds the user records, the socket and room membership indices,
the per-room message history and the one-shot token vault. All state is guarded
by one mutex so that multi-field invariants (the user/room mirror index in
particular) are never observed half-updated. Expiry is driven by background
timers that re-validate their target under the same mutex when they fire.
*/
package store

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Aequiternus/rtcs.io-storage/internal/app/user"
	"github.com/Aequiternus/rtcs.io-storage/internal/pkg/logx"
	"github.com/Aequiternus/rtcs.io-storage/internal/pkg/randx"
)

const (
	// DefaultGuestName is prepended to every guest display name.
	DefaultGuestName = "Guest "

	// DefaultHistoryLength is the maximum number of messages retained per room.
	DefaultHistoryLength = 100

	// DefaultHistoryExpire is both the message age window and the idle room lifetime.
	DefaultHistoryExpire = 24 * time.Hour

	// DefaultTokenExpire is the lifetime of an unreleased token.
	DefaultTokenExpire = 30 * time.Second

	// DefaultGuestIDLength is the length of the random part of a guest ID.
	DefaultGuestIDLength = 16

	// DefaultTokenLength is the length of a generated token.
	DefaultTokenLength = 24

	// maxIDAttempts bounds the retry-until-unique loop of identifier generation.
	maxIDAttempts = 32
)

var (
	// ErrIdentifierExhausted is returned when no free guest ID or token could be generated.
	ErrIdentifierExhausted = errors.New("store: identifier space exhausted")

	// ErrClosed is returned by operations that would allocate state on a closed store.
	ErrClosed = errors.New("store: closed")
)

// Config holds the tunables of a Store. Zero values are replaced by defaults.
type Config struct {
	GuestName     string
	GuestRooms    []string
	HistoryLength int
	HistoryExpire time.Duration
	TokenExpire   time.Duration
	GuestIDLength int
	TokenLength   int
}

// DefaultConfig returns the configuration used when no options are supplied.
func DefaultConfig() Config {
	return Config{
		GuestName:     DefaultGuestName,
		GuestRooms:    []string{"help"},
		HistoryLength: DefaultHistoryLength,
		HistoryExpire: DefaultHistoryExpire,
		TokenExpire:   DefaultTokenExpire,
		GuestIDLength: DefaultGuestIDLength,
		TokenLength:   DefaultTokenLength,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.GuestName == "" {
		c.GuestName = d.GuestName
	}
	if c.GuestRooms == nil {
		c.GuestRooms = d.GuestRooms
	}
	if c.HistoryLength <= 0 {
		c.HistoryLength = d.HistoryLength
	}
	if c.HistoryExpire <= 0 {
		c.HistoryExpire = d.HistoryExpire
	}
	if c.TokenExpire <= 0 {
		c.TokenExpire = d.TokenExpire
	}
	if c.GuestIDLength <= 0 {
		c.GuestIDLength = d.GuestIDLength
	}
	if c.TokenLength <= 0 {
		c.TokenLength = d.TokenLength
	}
	return c
}

// IDGenerator produces an identifier made of prefix and length random characters.
type IDGenerator func(prefix string, length int) (string, error)

// Option customizes a Store at construction time.
type Option func(*Store)

// WithSessionResolver delegates GetSession to an external session backend.
func WithSessionResolver(r SessionResolver) Option {
	return func(s *Store) {
		s.sessions = r
	}
}

// WithGatePolicy replaces the default join/chat/peer policy.
func WithGatePolicy(p GatePolicy) Option {
	return func(s *Store) {
		s.gates = p
	}
}

// WithIDGenerator replaces the random identifier source.
func WithIDGenerator(gen IDGenerator) Option {
	return func(s *Store) {
		s.newID = gen
	}
}

// Store is the ephemeral state of one server process.
type Store struct {
	cfg Config

	// mu guards every field below; timers re-acquire it before touching state.
	mu     sync.Mutex
	closed bool

	users       map[string]*user.User
	guestNum    int
	guestTimers map[string]*guestExpiry

	sockets   index
	userRooms index
	roomUsers index

	logs       map[string][]Message
	roomTimers map[string]*evictionTimer

	tokens map[string]*tokenEntry

	evictedRooms  uint64
	expiredTokens uint64

	sessions SessionResolver
	gates    GatePolicy
	newID    IDGenerator

	logger zerolog.Logger
}

// New constructs a Store with the given configuration.
func New(cfg Config, opts ...Option) *Store {
	s := &Store{
		cfg:         cfg.withDefaults(),
		users:       make(map[string]*user.User),
		guestTimers: make(map[string]*guestExpiry),
		sockets:     make(index),
		userRooms:   make(index),
		roomUsers:   make(index),
		logs:        make(map[string][]Message),
		roomTimers:  make(map[string]*evictionTimer),
		tokens:      make(map[string]*tokenEntry),
		gates:       DefaultGates{},
		newID:       randx.Base62,
		logger:      logx.Logger().With().Str("component", "Store").Logger(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Config returns the effective configuration of the store.
func (s *Store) Config() Config {
	return s.cfg
}

// Close cancels every outstanding timer and drops all state. It is safe to call multiple times.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true

	for roomID, entry := range s.roomTimers {
		entry.timer.Stop()
		delete(s.roomTimers, roomID)
	}
	for token, entry := range s.tokens {
		entry.timer.Stop()
		delete(s.tokens, token)
	}
	for id, entry := range s.guestTimers {
		entry.timer.Stop()
		delete(s.guestTimers, id)
	}

	clear(s.users)
	clear(s.sockets)
	clear(s.userRooms)
	clear(s.roomUsers)
	clear(s.logs)

	s.logger.Info().Msg("Store closed.")
}

// uniqueIDLocked generates an identifier not rejected by taken, retrying a bounded number of times.
func (s *Store) uniqueIDLocked(prefix string, length int, taken func(string) bool) (string, error) {
	for i := 0; i < maxIDAttempts; i++ {
		id, err := s.newID(prefix, length)
		if err != nil {
			return "", err
		}
		if !taken(id) {
			return id, nil
		}
	}

	s.logger.Error().
		Str("prefix", prefix).
		Int("attempts", maxIDAttempts).
		Msg("Failed to generate a unique identifier.")

	return "", ErrIdentifierExhausted
}

// Stats is a point-in-time view of the store sizes.
type Stats struct {
	Users            int
	Guests           int
	ConnectedUsers   int
	Sockets          int
	Rooms            int
	Logs             int
	Messages         int
	Tokens           int
	PendingEvictions int
	EvictedRooms     uint64
	ExpiredTokens    uint64
}

// Stats returns current counts of the store's entities.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Stats{
		Users:            len(s.users),
		ConnectedUsers:   len(s.sockets),
		Rooms:            len(s.roomUsers),
		Logs:             len(s.logs),
		Tokens:           len(s.tokens),
		PendingEvictions: len(s.roomTimers),
		EvictedRooms:     s.evictedRooms,
		ExpiredTokens:    s.expiredTokens,
	}
	for _, u := range s.users {
		if u.Public.Guest {
			st.Guests++
		}
	}
	for _, socks := range s.sockets {
		st.Sockets += len(socks)
	}
	for _, log := range s.logs {
		st.Messages += len(log)
	}

	return st
}
