/*
Package user contains core data structures related to participant identity.

It defines the User record held by the ephemeral store and the public Profile
that is shared with other participants of a room.
*/
package user

import (
	"maps"
	"slices"
	"strings"
)

// GuestIDPrefix marks identifiers issued to guest users.
const GuestIDPrefix = "guest:"

// Profile is the public part of a user record, visible to room members.
// Fields use JSON tags for serialization in WebSocket messages.
type Profile struct {
	// Guest is true for users created through guest issuance.
	Guest bool `json:"guest,omitempty"`

	// Name is the display name of the user.
	Name string `json:"name,omitempty"`

	// Extra carries additional profile attributes supplied by a session backend.
	Extra map[string]any `json:"extra,omitempty"`
}

// User is a participant record owned by the store.
type User struct {
	// ID is the unique identifier of the user.
	ID string `json:"id"`

	// Public is the profile shared with other participants.
	Public Profile `json:"public"`

	// Rooms lists the rooms the user joins by default on connect.
	Rooms []string `json:"rooms"`
}

// IsGuestID reports whether id was issued to a guest user.
func IsGuestID(id string) bool {
	return strings.HasPrefix(id, GuestIDPrefix)
}

// Clone returns a deep copy of the profile.
func (p Profile) Clone() Profile {
	p.Extra = maps.Clone(p.Extra)
	return p
}

// Clone returns a deep copy of the user, safe to hand out of the store.
func (u User) Clone() User {
	u.Public = u.Public.Clone()
	u.Rooms = slices.Clone(u.Rooms)
	return u
}
