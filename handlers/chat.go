package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/LovationAdmin/crm-api/models"
	"github.com/LovationAdmin/crm-api/services"

	"github.com/gin-gonic/gin"
)

type ChatHandler struct {
	Chat *services.ChatService
	WS   *WSHandler
}

func (h *ChatHandler) List(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	var before time.Time
	if raw := c.Query("before"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			fail(c, http.StatusBadRequest, "before must be RFC 3339")
			return
		}
		before = t
	}
	messages, err := h.Chat.Recent(c.Request.Context(), userID, limit, before)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, messages)
}

func (h *ChatHandler) Post(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	var req models.PostMessageRequest
	if !bindJSON(c, &req) {
		return
	}
	m, err := h.Chat.Post(c.Request.Context(), userID, req.Content)
	if err != nil {
		respondError(c, err)
		return
	}
	h.WS.Broadcast(Notification{Type: "chat", Action: "created", ID: m.ID, User: userID})
	respond(c, http.StatusCreated, m)
}
