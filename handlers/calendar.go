package handlers

import (
	"net/http"

	"github.com/LovationAdmin/crm-api/models"
	"github.com/LovationAdmin/crm-api/services"

	"github.com/gin-gonic/gin"
)

type CalendarHandler struct {
	Calendar *services.CalendarService
	WS       *WSHandler
}

// notify pushes shared changes to the team and personal ones to the owner.
func (h *CalendarHandler) notify(e *models.CalendarEvent, action, userID string) {
	n := Notification{Type: "event", Action: action, ID: e.ID, User: userID}
	if e.IsShared {
		h.WS.Broadcast(n)
		return
	}
	if e.OwnerID != nil {
		h.WS.BroadcastTo(*e.OwnerID, n)
	}
}

func (h *CalendarHandler) List(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	view, err := services.ParseView(c.Query("view"))
	if err != nil {
		respondError(c, err)
		return
	}
	w, err := window(c)
	if err != nil {
		respondError(c, err)
		return
	}
	events, err := h.Calendar.List(c.Request.Context(), userID, view, w)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, events)
}

func (h *CalendarHandler) Get(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	e, err := h.Calendar.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, e)
}

func (h *CalendarHandler) Create(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	var req models.CreateEventRequest
	if !bindJSON(c, &req) {
		return
	}
	e, err := h.Calendar.Create(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	h.notify(e, "created", userID)
	respond(c, http.StatusCreated, e)
}

func (h *CalendarHandler) Update(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	var req models.UpdateEventRequest
	if !bindJSON(c, &req) {
		return
	}
	e, err := h.Calendar.Update(c.Request.Context(), userID, c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	h.notify(e, "updated", userID)
	respond(c, http.StatusOK, e)
}

func (h *CalendarHandler) Delete(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	e, err := h.Calendar.Delete(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	h.notify(e, "deleted", userID)
	respond(c, http.StatusOK, gin.H{"id": e.ID})
}

func (h *CalendarHandler) Occurrences(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	view, err := services.ParseView(c.Query("view"))
	if err != nil {
		respondError(c, err)
		return
	}
	w, err := window(c)
	if err != nil {
		respondError(c, err)
		return
	}
	occ, err := h.Calendar.Occurrences(c.Request.Context(), userID, view, w)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, occ)
}

func (h *CalendarHandler) ExportICS(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	view, err := services.ParseView(c.Query("view"))
	if err != nil {
		respondError(c, err)
		return
	}
	feed, err := h.Calendar.ExportICS(c.Request.Context(), userID, view)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="calendar.ics"`)
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", []byte(feed))
}
