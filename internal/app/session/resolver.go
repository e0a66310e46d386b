/*
Package session resolves session identifiers into authenticated users.

Sessions are signed tokens issued by an external authentication backend; the
session identifier is the token itself.
*/
package session

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/Aequiternus/rtcs.io-storage/internal/app/store"
	"github.com/Aequiternus/rtcs.io-storage/internal/app/user"
	"github.com/Aequiternus/rtcs.io-storage/internal/pkg/auth/jwt"
	"github.com/Aequiternus/rtcs.io-storage/internal/pkg/logx"
)

// ErrNoSecret is returned by NewResolver when no signing secret is configured.
var ErrNoSecret = errors.New("session: signing secret is empty")

// Resolver validates session tokens signed with a shared secret.
type Resolver struct {
	secret string
	logger zerolog.Logger
}

var _ store.SessionResolver = (*Resolver)(nil)

// NewResolver creates a Resolver for tokens signed with secret.
func NewResolver(secret string) (*Resolver, error) {
	if secret == "" {
		return nil, ErrNoSecret
	}
	return &Resolver{
		secret: secret,
		logger: logx.Logger().With().Str("component", "SessionResolver").Logger(),
	}, nil
}

// ResolveSession returns the session for sessionID, or nil when the token is
// not valid. Guest identifiers are never accepted from a session token.
func (r *Resolver) ResolveSession(ctx context.Context, sessionID string) (*store.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	claims, err := jwt.ParseToken(sessionID, r.secret)
	if err != nil {
		r.logger.Debug().Err(err).Msg("Session token rejected.")
		return nil, nil
	}

	if user.IsGuestID(claims.Subject) {
		r.logger.Warn().Str("user_id", claims.Subject).Msg("Session token claims a guest identity.")
		return nil, nil
	}

	return &store.Session{
		ID: sessionID,
		User: user.User{
			ID: claims.Subject,
			Public: user.Profile{
				Name:  claims.Name,
				Extra: claims.Extra,
			},
			Rooms: claims.Rooms,
		},
	}, nil
}
