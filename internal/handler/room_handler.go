/*
Package handler provides HTTP handler functions for room and user lookups.
*/
package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Aequiternus/rtcs.io-storage/internal/app/store"
	"github.com/Aequiternus/rtcs.io-storage/internal/app/user"
	"github.com/Aequiternus/rtcs.io-storage/internal/pkg/errs"
	"github.com/Aequiternus/rtcs.io-storage/internal/pkg/resp"
)

// MaxLookupIDs bounds the number of user IDs accepted by HandleGetUsers.
const MaxLookupIDs = 100

// RoomOutput describes a room and its current members.
type RoomOutput struct {
	store.RoomInfo
	Active bool                    `json:"active"`
	Users  map[string]user.Profile `json:"users"`
}

// HandleGetRoom reports the state of a room. Unknown rooms are reported as inactive.
func HandleGetRoom(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID := chi.URLParam(r, "room")
		if roomID == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		info, active := deps.Store.GetRoom(roomID)

		resp.RespondSuccess(w, r, RoomOutput{
			RoomInfo: info,
			Active:   active,
			Users:    deps.Store.GetRoomUsers(roomID),
		})
	}
}

// HandleGetUsers returns the public profiles of the requested users.
// Unknown IDs map to null.
func HandleGetUsers(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var ids []string
		for _, id := range strings.Split(r.URL.Query().Get("ids"), ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}

		if len(ids) == 0 || len(ids) > MaxLookupIDs {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		users := deps.Store.GetUsers(ids)
		out := make(map[string]*user.Profile, len(users))
		for id, u := range users {
			if u == nil {
				out[id] = nil
				continue
			}
			out[id] = &u.Public
		}

		resp.RespondSuccess(w, r, out)
	}
}
