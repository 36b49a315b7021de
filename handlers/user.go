package handlers

import (
	"database/sql"
	"net/http"

	"github.com/LovationAdmin/crm-api/models"
	"github.com/LovationAdmin/crm-api/services"
	"github.com/LovationAdmin/crm-api/utils"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	DB    *sql.DB
	Users *services.UserService
}

func (h *UserHandler) Me(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	user, err := h.Users.Get(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, user)
}

// ListUsers returns the team directory.
func (h *UserHandler) ListUsers(c *gin.Context) {
	if _, ok := callerID(c); !ok {
		return
	}
	users, err := h.Users.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, users)
}

func (h *UserHandler) SetupTOTP(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	user, err := h.Users.Get(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	secret, url, err := utils.GenerateTOTPSecret(user.Email)
	if err != nil {
		fail(c, http.StatusInternalServerError, "Failed to generate TOTP")
		return
	}
	_, err = h.DB.ExecContext(c.Request.Context(), `
		UPDATE users
		SET totp_secret = $1, totp_enabled = FALSE, updated_at = NOW()
		WHERE id = $2
	`, secret, userID)
	if err != nil {
		fail(c, http.StatusInternalServerError, "Failed to store TOTP secret")
		return
	}
	respond(c, http.StatusOK, models.TOTPSetupResponse{Secret: secret, URL: url})
}

func (h *UserHandler) VerifyTOTP(c *gin.Context) {
	h.toggleTOTP(c, true)
}

func (h *UserHandler) DisableTOTP(c *gin.Context) {
	h.toggleTOTP(c, false)
}

// toggleTOTP requires a valid current code to enable or disable 2FA.
func (h *UserHandler) toggleTOTP(c *gin.Context, enable bool) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	var req models.VerifyTOTPRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.Users.Get(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	if user.TOTPSecret == "" {
		fail(c, http.StatusBadRequest, "TOTP not set up")
		return
	}
	if !utils.VerifyTOTP(user.TOTPSecret, req.Code) {
		utils.LogAuthAction("2fa verify", user.Email, false)
		fail(c, http.StatusUnauthorized, "Invalid TOTP code")
		return
	}

	query := `UPDATE users SET totp_enabled = TRUE, updated_at = NOW() WHERE id = $1`
	if !enable {
		query = `UPDATE users SET totp_enabled = FALSE, totp_secret = NULL, updated_at = NOW() WHERE id = $1`
	}
	if _, err := h.DB.ExecContext(c.Request.Context(), query, userID); err != nil {
		fail(c, http.StatusInternalServerError, "Failed to update 2FA")
		return
	}
	respond(c, http.StatusOK, gin.H{"totp_enabled": enable})
}
