package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/edumesh/edumesh-api/internal/middleware"
	"github.com/edumesh/edumesh-api/internal/models"
)

// schoolScope reads the explicit school override. Operators must send it;
// tenant-bound roles may omit it and act within their own school.
func schoolScope(c *gin.Context) string {
	if id := c.GetHeader("X-School-ID"); id != "" {
		return id
	}
	return c.Query("schoolId")
}

func currentUser(c *gin.Context) *models.JWTClaims {
	return middleware.CurrentUser(c)
}
