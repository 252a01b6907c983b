package ws

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ettoiadev/williamdiskpizza/internal/utils/jwt"
	"github.com/ettoiadev/williamdiskpizza/internal/utils/response"
	"github.com/ettoiadev/williamdiskpizza/internal/websocket"
)

// Serve upgrades an admin connection and streams change events to it.
// Browsers cannot set headers on WebSocket requests, so the token is
// accepted from the query string as well as the Authorization header.
// @Summary Subscribe to change events
// @Tags events
// @Param token query string false "JWT token"
// @Success 101 "Switching protocols"
// @Failure 401 {object} response.Response "Unauthorized"
// @Router /ws [get]
func Serve(hub *websocket.Hub, jwtSecret string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		if token == "" {
			if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
				token = strings.TrimPrefix(h, "Bearer ")
			}
		}
		if token == "" {
			response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(errors.New("missing token")))
			return
		}

		userID, err := jwt.ExtractUserIDFromToken(token, jwtSecret)
		if err != nil {
			response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(errors.New("invalid token")))
			return
		}

		conn, err := websocket.Upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Error("WebSocket upgrade failed", slog.String("error", err.Error()))
			return
		}

		client := websocket.NewClient(conn, userID, hub)
		hub.RegisterClient(client)
		client.Start()
	}
}
