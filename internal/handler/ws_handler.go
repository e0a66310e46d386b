/*
Package handler provides the HTTP handler function for WebSocket connection upgrading and initialization.

This file contains HandleWebSocket, which redeems the one-shot connect token, upgrades the HTTP
connection to WebSocket and hands the connection to the Hub.
*/
package handler

import (
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/Aequiternus/rtcs.io-storage/internal/app/chat"
	"github.com/Aequiternus/rtcs.io-storage/internal/pkg/errs"
	"github.com/Aequiternus/rtcs.io-storage/internal/pkg/logx"
	"github.com/Aequiternus/rtcs.io-storage/internal/pkg/resp"
)

// HandleWebSocket creates an HTTP HandlerFunc to process WebSocket connection requests.
func HandleWebSocket(deps *AppDeps, upgrader websocket.Upgrader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		if token == "" {
			logx.Warn("WebSocket request rejected: Missing token query parameter")
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		payload, ok := deps.Store.ReleaseToken(token)
		if !ok {
			logx.Info("WebSocket connection rejected: Unknown or expired token.")
			resp.RespondError(w, r, errs.NewError(errs.ErrTokenInvalid))
			return
		}

		grant, ok := payload.(chat.Grant)
		if !ok || grant.User.ID == "" {
			logx.Warn("WebSocket connection rejected: Token carries no grant.")
			resp.RespondError(w, r, errs.NewError(errs.ErrTokenInvalid))
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket", "user_id", grant.User.ID)
			return
		}

		deps.Hub.Serve(conn, grant)
	}
}
