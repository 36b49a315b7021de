package middleware

import (
	"time"

	"github.com/LovationAdmin/crm-api/utils"

	"github.com/gin-gonic/gin"
)

func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		utils.LogAPIRequest(c.Request.Method, c.Request.URL.Path, GetUserID(c),
			c.Writer.Status(), time.Since(start).Round(time.Millisecond).String())
	}
}
