package store

import (
	"context"
	"strings"
)

// Decision is the outcome of a gate hook.
type Decision int

const (
	// DecisionTimedOut means no decision was delivered in time. Callers treat it as a decline.
	DecisionTimedOut Decision = iota

	// DecisionPermitted allows the action.
	DecisionPermitted

	// DecisionDeclined rejects the action.
	DecisionDeclined
)

// String returns a human readable name of the decision.
func (d Decision) String() string {
	switch d {
	case DecisionPermitted:
		return "permitted"
	case DecisionDeclined:
		return "declined"
	default:
		return "timed_out"
	}
}

// Permitted reports whether the action may proceed.
func (d Decision) Permitted() bool {
	return d == DecisionPermitted
}

// Conn identifies the connection requesting an action.
type Conn struct {
	SocketID string
	UserID   string
}

// Action is the action a connection proposes.
type Action struct {
	Room    string
	Message string
	Target  string
}

// GatePolicy decides whether connections may join rooms, chat and reach peers.
// An implementation may block (e.g. on a remote policy service); it should
// honor ctx cancellation.
type GatePolicy interface {
	CanJoin(ctx context.Context, c Conn, a Action) Decision
	CanChat(ctx context.Context, c Conn, a Action) Decision
	CanPeer(ctx context.Context, c Conn, a Action) Decision
}

// DefaultGates permits joins and peer traffic, and chat messages with non-blank text.
type DefaultGates struct{}

func (DefaultGates) CanJoin(context.Context, Conn, Action) Decision {
	return DecisionPermitted
}

func (DefaultGates) CanChat(_ context.Context, _ Conn, a Action) Decision {
	if strings.TrimSpace(a.Message) == "" {
		return DecisionDeclined
	}
	return DecisionPermitted
}

func (DefaultGates) CanPeer(context.Context, Conn, Action) Decision {
	return DecisionPermitted
}

// CanJoin asks the gate policy whether c may join a.Room.
func (s *Store) CanJoin(ctx context.Context, c Conn, a Action) *Future[Decision] {
	return Async(func() Decision { return s.gates.CanJoin(ctx, c, a) })
}

// CanChat asks the gate policy whether c may post a.Message to a.Room.
func (s *Store) CanChat(ctx context.Context, c Conn, a Action) *Future[Decision] {
	return Async(func() Decision { return s.gates.CanChat(ctx, c, a) })
}

// CanPeer asks the gate policy whether c may send a peer message to a.Target.
func (s *Store) CanPeer(ctx context.Context, c Conn, a Action) *Future[Decision] {
	return Async(func() Decision { return s.gates.CanPeer(ctx, c, a) })
}

// AwaitDecision waits for f until ctx is done. A missing decision yields DecisionTimedOut.
func AwaitDecision(ctx context.Context, f *Future[Decision]) Decision {
	d, err := f.Await(ctx)
	if err != nil {
		return DecisionTimedOut
	}
	return d
}
