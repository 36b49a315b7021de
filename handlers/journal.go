package handlers

import (
	"net/http"

	"github.com/LovationAdmin/crm-api/models"
	"github.com/LovationAdmin/crm-api/services"

	"github.com/gin-gonic/gin"
)

type JournalHandler struct {
	Journal *services.JournalService
}

func (h *JournalHandler) List(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	entries, err := h.Journal.List(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, entries)
}

func (h *JournalHandler) Create(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	var req models.CreateJournalEntryRequest
	if !bindJSON(c, &req) {
		return
	}
	e, err := h.Journal.Create(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, e)
}

func (h *JournalHandler) Delete(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	if err := h.Journal.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"id": c.Param("id")})
}
