package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/LovationAdmin/crm-api/middleware"
	"github.com/LovationAdmin/crm-api/utils"

	"github.com/gin-gonic/gin"
	"github.com/olahol/melody"
)

const sessionUserKey = "user_id"

// Notification is the change signal pushed to connected clients. It never
// carries the record itself; clients refetch through the REST API.
type Notification struct {
	Type   string `json:"type"`
	Action string `json:"action"`
	ID     string `json:"id"`
	User   string `json:"user"`
}

type WSHandler struct {
	M *melody.Melody
}

func NewWSHandler() *WSHandler {
	m := melody.New()
	m.Config.MaxMessageSize = 64 * 1024
	m.Config.PingPeriod = 30 * time.Second
	m.Config.PongWait = 60 * time.Second

	m.HandleConnect(func(s *melody.Session) {
		utils.LogWebSocket("connected", "team", sessionUser(s))
	})
	m.HandleDisconnect(func(s *melody.Session) {
		utils.LogWebSocket("disconnected", "team", sessionUser(s))
	})
	m.HandleError(func(s *melody.Session, err error) {
		utils.SafeWarn("websocket error: %v", err)
	})

	return &WSHandler{M: m}
}

func sessionUser(s *melody.Session) string {
	v, _ := s.Get(sessionUserKey)
	id, _ := v.(string)
	return id
}

// HandleWS upgrades an authenticated request.
func (h *WSHandler) HandleWS(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		fail(c, http.StatusUnauthorized, "Unauthorized")
		return
	}
	if err := h.M.HandleRequestWithKeys(c.Writer, c.Request, map[string]interface{}{sessionUserKey: userID}); err != nil {
		utils.SafeWarn("failed to upgrade websocket: %v", err)
	}
}

// Broadcast notifies every connected team member.
func (h *WSHandler) Broadcast(n Notification) {
	h.broadcast(n, func(*melody.Session) bool { return true })
}

// BroadcastTo notifies only the sessions of userID.
func (h *WSHandler) BroadcastTo(userID string, n Notification) {
	h.broadcast(n, func(s *melody.Session) bool {
		return sessionUser(s) == userID
	})
}

func (h *WSHandler) broadcast(n Notification, filter func(*melody.Session) bool) {
	if h == nil || h.M == nil {
		return
	}
	msg, err := json.Marshal(n)
	if err != nil {
		return
	}
	if err := h.M.BroadcastFilter(msg, filter); err != nil {
		utils.SafeWarn("broadcast %s/%s failed: %v", n.Type, n.Action, err)
	}
}

func (h *WSHandler) Close() error {
	if h == nil || h.M == nil {
		return nil
	}
	return h.M.Close()
}
