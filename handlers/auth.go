package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/LovationAdmin/crm-api/models"
	"github.com/LovationAdmin/crm-api/utils"

	"github.com/gin-gonic/gin"
	"github.com/lib/pq"
)

const refreshTokenTTL = 7 * 24 * time.Hour

type AuthHandler struct {
	DB        *sql.DB
	JWTSecret string
}

func (h *AuthHandler) Signup(c *gin.Context) {
	var req models.SignupRequest
	if !bindJSON(c, &req) {
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	passwordHash, err := utils.HashPassword(req.Password)
	if err != nil {
		fail(c, http.StatusInternalServerError, "Failed to hash password")
		return
	}

	user := models.User{Email: email, Name: strings.TrimSpace(req.Name)}
	err = h.DB.QueryRowContext(c.Request.Context(), `
		INSERT INTO users (email, password_hash, name)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`, email, passwordHash, user.Name).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		utils.LogAuthAction("signup", email, false)
		fail(c, http.StatusConflict, "Email already registered")
		return
	}
	if err != nil {
		utils.SafeError("signup: %v", err)
		fail(c, http.StatusInternalServerError, "Failed to create user")
		return
	}

	resp, err := h.issueTokens(c, user)
	if err != nil {
		fail(c, http.StatusInternalServerError, "Failed to create session")
		return
	}
	utils.LogAuthAction("signup", email, true)
	respond(c, http.StatusCreated, resp)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if !bindJSON(c, &req) {
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	var user models.User
	var passwordHash string
	var totpSecret sql.NullString
	err := h.DB.QueryRowContext(c.Request.Context(), `
		SELECT id, email, password_hash, name, totp_secret, COALESCE(totp_enabled, FALSE), created_at, updated_at
		FROM users
		WHERE email = $1
	`, email).Scan(&user.ID, &user.Email, &passwordHash, &user.Name, &totpSecret, &user.TOTPEnabled, &user.CreatedAt, &user.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		utils.LogAuthAction("login", email, false)
		fail(c, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if err != nil {
		utils.SafeError("login: %v", err)
		fail(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	if !utils.CheckPassword(req.Password, passwordHash) {
		utils.LogAuthAction("login", email, false)
		fail(c, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	if user.TOTPEnabled {
		if req.TOTPCode == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "2FA code required", "requires_2fa": true})
			return
		}
		if !utils.VerifyTOTP(totpSecret.String, req.TOTPCode) {
			utils.LogAuthAction("login 2fa", email, false)
			fail(c, http.StatusUnauthorized, "Invalid 2FA code")
			return
		}
	}

	resp, err := h.issueTokens(c, user)
	if err != nil {
		fail(c, http.StatusInternalServerError, "Failed to create session")
		return
	}
	utils.LogAuthAction("login", email, true)
	respond(c, http.StatusOK, resp)
}

func (h *AuthHandler) issueTokens(c *gin.Context, user models.User) (*models.AuthResponse, error) {
	accessToken, err := utils.GenerateAccessToken(h.JWTSecret, user.ID, user.Email)
	if err != nil {
		return nil, err
	}
	refreshToken, err := utils.GenerateRefreshToken()
	if err != nil {
		return nil, err
	}
	_, err = h.DB.ExecContext(c.Request.Context(), `
		INSERT INTO sessions (user_id, refresh_token, expires_at)
		VALUES ($1, $2, $3)
	`, user.ID, refreshToken, time.Now().Add(refreshTokenTTL))
	if err != nil {
		utils.SafeError("create session: %v", err)
		return nil, err
	}
	return &models.AuthResponse{User: user, AccessToken: accessToken, RefreshToken: refreshToken}, nil
}
