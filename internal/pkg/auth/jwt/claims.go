package jwt

import "github.com/golang-jwt/jwt"

// Claims is the payload of a session token issued by the authentication backend.
// The standard Subject claim carries the user ID.
type Claims struct {
	jwt.StandardClaims

	// Name is the display name of the authenticated user.
	Name string `json:"name"`

	// Rooms lists the rooms the user joins on connect.
	Rooms []string `json:"rooms,omitempty"`

	// Extra carries profile attributes that are forwarded to room members as is.
	Extra map[string]any `json:"extra,omitempty"`
}
