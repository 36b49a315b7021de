package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/LovationAdmin/crm-api/models"
	"github.com/LovationAdmin/crm-api/services"

	"github.com/gin-gonic/gin"
)

type ReportHandler struct {
	Reports *services.ReportService
}

// Generate handles POST /reports/:type. An empty body means an unbounded
// JSON report.
func (h *ReportHandler) Generate(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	var req models.GenerateReportRequest
	if c.Request.ContentLength != 0 {
		if !bindJSON(c, &req) {
			return
		}
	}
	res, err := h.Reports.Generate(c.Request.Context(), userID, c.Param("type"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, res)
}

func (h *ReportHandler) ListJobs(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	jobs, err := h.Reports.ListJobs(c.Request.Context(), userID, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, jobs)
}

func (h *ReportHandler) GetJob(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	job, err := h.Reports.GetJob(c.Request.Context(), userID, c.Param("jobId"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, job)
}

// Export streams a stored job in the requested format.
func (h *ReportHandler) Export(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	file, err := h.Reports.Export(c.Request.Context(), userID, c.Param("jobId"), c.Param("format"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, file.Filename))
	c.Data(http.StatusOK, file.ContentType, file.Body)
}
