package handlers

import (
	"net/http"

	"github.com/LovationAdmin/crm-api/services"

	"github.com/gin-gonic/gin"
)

type InsightHandler struct {
	Insights *services.InsightService
}

func (h *InsightHandler) Financial(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	w, err := window(c)
	if err != nil {
		respondError(c, err)
		return
	}
	insight, err := h.Insights.Financial(c.Request.Context(), userID, w)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, insight)
}
