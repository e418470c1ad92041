package realtime

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/igm/sockjs-go/sockjs"
	"github.com/sirupsen/logrus"
)

// Prefix is where the SockJS endpoint is mounted.
const Prefix = "/realtime"

// Close codes sent before dropping a connection.
const (
	CloseMissingToken = 4001
	CloseInvalidToken = 4002
)

// Authenticator resolves an access token to a user id.
type Authenticator interface {
	UserID(token string) (string, error)
}

// Handler serves the SockJS endpoint.  The token comes from the
// Authorization header or the token query parameter.
func Handler(h *Hub, auth Authenticator) http.Handler {
	return sockjs.NewHandler(Prefix, sockjs.DefaultOptions, func(session sockjs.Session) {
		token := TokenFromRequest(session.Request())
		if token == "" {
			_ = session.Close(CloseMissingToken, "missing token")
			return
		}
		userID, err := auth.UserID(token)
		if err != nil {
			_ = session.Close(CloseInvalidToken, "invalid token")
			return
		}

		client := &Client{ID: uuid.NewString(), UserID: userID, Send: make(chan []byte, 32)}
		h.Register(client)
		defer h.Unregister(client)
		log := h.log.WithFields(logrus.Fields{"client": client.ID, "user_id": userID})
		log.Debug("realtime client connected")

		go func() {
			for msg := range client.Send {
				if err := session.Send(string(msg)); err != nil {
					return
				}
			}
		}()

		for {
			msg, err := session.Recv()
			if err != nil {
				log.Debug("realtime client disconnected")
				return
			}
			ctl, ok := ParseControl([]byte(msg))
			if !ok {
				continue
			}
			if ctl.Action == "unsubscribe" {
				h.Unsubscribe(client, ctl.Topics)
			} else {
				h.Subscribe(client, ctl.Topics)
			}
		}
	})
}

// TokenFromRequest extracts the bearer token.
func TokenFromRequest(r *http.Request) string {
	if r == nil {
		return ""
	}
	if parts := strings.Fields(r.Header.Get("Authorization")); len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return parts[1]
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}
