/*
Package handler provides HTTP handler functions that issue one-shot connect tokens.

A client first obtains a token through the guest or the session endpoint, then opens
the WebSocket with it. Tokens are released on first use and expire quickly.
*/
package handler

import (
	"net/http"

	"github.com/Aequiternus/rtcs.io-storage/internal/app/chat"
	"github.com/Aequiternus/rtcs.io-storage/internal/app/user"
	"github.com/Aequiternus/rtcs.io-storage/internal/pkg/auth/jwt"
	"github.com/Aequiternus/rtcs.io-storage/internal/pkg/errs"
	"github.com/Aequiternus/rtcs.io-storage/internal/pkg/logx"
	"github.com/Aequiternus/rtcs.io-storage/internal/pkg/req"
	"github.com/Aequiternus/rtcs.io-storage/internal/pkg/resp"
)

// MaxNameLength bounds a requested guest display name.
const MaxNameLength = 64

type GuestInput struct {
	Name string `json:"name"`
}

type SessionInput struct {
	Session string `json:"session"`
}

// ConnectOutput is returned by both connect endpoints.
type ConnectOutput struct {
	UserID    string       `json:"userId"`
	Profile   user.Profile `json:"profile"`
	Token     string       `json:"token"`
	ExpiresIn int64        `json:"expiresIn"`
}

// issueToken stores a grant for u and writes the connect response.
func issueToken(deps *AppDeps, w http.ResponseWriter, r *http.Request, u user.User) bool {
	token, err := deps.Store.CreateToken(chat.Grant{User: u})
	if err != nil {
		logx.Error(err, "Failed to create connect token", "user_id", u.ID)
		resp.RespondError(w, r, chat.StoreError(err))
		return false
	}

	resp.RespondSuccess(w, r, ConnectOutput{
		UserID:    u.ID,
		Profile:   u.Public,
		Token:     token,
		ExpiresIn: deps.Store.Config().TokenExpire.Milliseconds(),
	})
	return true
}

// HandleGuest creates a guest user and returns a connect token for it.
// A guest that never connects is removed once its token could no longer be used.
func HandleGuest(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input GuestInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if len(input.Name) > MaxNameLength {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		guestID, err := deps.Store.GetGuest(input.Name)
		if err != nil {
			logx.Error(err, "Failed to create guest")
			resp.RespondError(w, r, chat.StoreError(err))
			return
		}

		guest, ok := deps.Store.GetUser(guestID)
		if !ok {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		if !issueToken(deps, w, r, guest) {
			deps.Store.RemoveGuest(guestID)
			return
		}

		deps.Store.ExpireGuest(guestID, deps.Store.Config().TokenExpire)

		logx.Info("Guest issued.", "user_id", guestID)
	}
}

// HandleSession resolves an authenticated session and returns a connect token
// for its user. The session is taken from the body or from a Bearer header.
func HandleSession(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, ok := jwt.BearerToken(r)
		if !ok {
			var input SessionInput
			if customErr := req.BindJSON(w, r, &input); customErr != nil {
				resp.RespondError(w, r, customErr)
				return
			}
			sessionID = input.Session
		}

		if sessionID == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		session, err := deps.Store.GetSession(r.Context(), sessionID)
		if err != nil {
			logx.Error(err, "Session lookup failed")
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown, err))
			return
		}
		if session == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrSessionInvalid))
			return
		}

		// The record is installed when the token is redeemed.
		issueToken(deps, w, r, session.User)
	}
}
