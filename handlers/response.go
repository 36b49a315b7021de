package handlers

import (
	"errors"
	"net/http"

	"github.com/LovationAdmin/crm-api/middleware"
	"github.com/LovationAdmin/crm-api/services"
	"github.com/LovationAdmin/crm-api/utils"

	"github.com/gin-gonic/gin"
)

func respond(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

func fail(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "error": message})
}

// StatusFor maps a service error onto an HTTP status.
func StatusFor(err error) int {
	var storeErr *services.DataStoreError
	switch {
	case errors.Is(err, services.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, services.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrAINotConfigured):
		return http.StatusServiceUnavailable
	case errors.As(err, &storeErr):
		return http.StatusInternalServerError
	}
	return http.StatusInternalServerError
}

// respondError writes the error envelope. 5xx details stay in the logs.
func respondError(c *gin.Context, err error) {
	status := StatusFor(err)
	switch status {
	case http.StatusUnauthorized:
		fail(c, status, "Unauthorized")
	case http.StatusForbidden:
		fail(c, status, "Forbidden")
	case http.StatusBadRequest, http.StatusNotFound:
		fail(c, status, err.Error())
	case http.StatusServiceUnavailable:
		fail(c, status, "AI insights are not configured")
	default:
		utils.SafeError("%s %s: %v", c.Request.Method, c.FullPath(), err)
		fail(c, status, "Internal server error")
	}
}

// bindJSON decodes the body or writes a 400.
func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// callerID returns the authenticated user or writes a 401.
func callerID(c *gin.Context) (string, bool) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		fail(c, http.StatusUnauthorized, "Unauthorized")
		return "", false
	}
	return userID, true
}

// window parses start_date/end_date query parameters.
func window(c *gin.Context) (services.Window, error) {
	return services.ParseWindow(c.Query("start_date"), c.Query("end_date"))
}
