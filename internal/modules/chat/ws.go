package chat

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"medichat/internal/middleware"
	"medichat/internal/pkg/token"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Cookie-authenticated endpoint; origin is enforced by the CORS layer
	// on the REST surface and by the cookie's SameSite policy here.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSHandler owns the websocket handshake: upgrade, authenticate once from the
// access cookie, then hand the connection to the hub.
type WSHandler struct {
	hub    *Hub
	issuer *token.Issuer
	log    zerolog.Logger
}

func NewWSHandler(hub *Hub, issuer *token.Issuer, log zerolog.Logger) *WSHandler {
	return &WSHandler{hub: hub, issuer: issuer, log: log}
}

// HandleWebSocket serves GET /ws.
//
// The access token is read once, at handshake time. An unauthenticated
// connection is closed immediately with a policy-violation code; there is no
// retry and no unauthenticated mode.
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	userID, authErr := h.authenticate(c)
	if authErr != nil {
		h.log.Info().Err(authErr).Msg("websocket auth failed")
		msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "Unauthorized")
		_ = ws.WriteMessage(websocket.CloseMessage, msg)
		_ = ws.Close()
		return
	}

	conn := h.hub.Register(userID, ws)
	defer func() {
		h.hub.Unregister(conn)
		_ = ws.Close()
	}()

	ws.SetPongHandler(func(string) error {
		conn.markAlive()
		return nil
	})

	// No client→server protocol beyond pong frames: the read loop exists to
	// process control frames and notice the close.
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseNormalClosure,
				websocket.CloseAbnormalClosure) {
				h.log.Warn().Err(err).Int64("user_id", userID).Msg("websocket read error")
			}
			return
		}
	}
}

func (h *WSHandler) authenticate(c *gin.Context) (int64, error) {
	raw, err := c.Cookie(middleware.AccessCookie)
	if err != nil || raw == "" {
		return 0, token.ErrInvalidToken
	}
	return h.issuer.VerifyAccess(raw)
}
