package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	config "github.com/phillip/lets-hang-go/config"
)

// AdminOnly lets through callers whose email is listed in ADMIN_EMAILS.
// Must run after AuthMiddleware.
func AdminOnly(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !cfg.IsAdmin(c.GetString(CtxEmail)) {
			abort(c, http.StatusForbidden, "Admin access required")
			return
		}
		c.Next()
	}
}
