package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/LovationAdmin/crm-api/utils"

	"github.com/gin-gonic/gin"
)

const testSecret = "test-secret-test-secret-test-secret"

func authRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", AuthMiddleware(testSecret), func(c *gin.Context) {
		c.String(http.StatusOK, GetUserID(c))
	})
	return r
}

func TestAuthMiddleware(t *testing.T) {
	token, err := utils.GenerateAccessToken(testSecret, "user-1", "a@example.com")
	if err != nil {
		t.Fatal(err)
	}
	forged, err := utils.GenerateAccessToken("another-secret-another-secret-xx", "user-1", "a@example.com")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		header string
		query  string
		code   int
		body   string
	}{
		{"bearer header", "Bearer " + token, "", http.StatusOK, "user-1"},
		{"lowercase scheme", "bearer " + token, "", http.StatusOK, "user-1"},
		{"query token", "", "?token=" + token, http.StatusOK, "user-1"},
		{"missing", "", "", http.StatusUnauthorized, ""},
		{"wrong scheme", "Basic " + token, "", http.StatusUnauthorized, ""},
		{"forged", "Bearer " + forged, "", http.StatusUnauthorized, ""},
		{"garbage", "Bearer abc.def.ghi", "", http.StatusUnauthorized, ""},
	}
	r := authRouter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/me"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			r.ServeHTTP(w, req)
			if w.Code != tt.code {
				t.Errorf("code = %d, want %d", w.Code, tt.code)
			}
			if tt.body != "" && w.Body.String() != tt.body {
				t.Errorf("body = %q", w.Body.String())
			}
		})
	}
}
