package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/phillip/lets-hang-go/errutil"
	"github.com/phillip/lets-hang-go/models"
)

const (
	CtxUserID = "user_id"
	CtxUser   = "user"
	CtxEmail  = "email"
)

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

func abort(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "message": msg})
}

// AuthMiddleware requires "Authorization: Bearer <token>" and puts the
// caller's id, email and user document on the context.
func AuthMiddleware(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			abort(c, http.StatusUnauthorized, "Not authorized, no token")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		user, err := auth.Authenticate(ctx, strings.TrimSpace(token))
		if err != nil {
			be := errutil.From(err, "Not authorized")
			abort(c, be.Code.HTTPStatus(), be.Message)
			return
		}

		c.Set(CtxUserID, user.ID.Hex())
		c.Set(CtxEmail, user.Email)
		c.Set(CtxUser, user)
		c.Next()
	}
}

// CurrentUser returns the user loaded by AuthMiddleware.
func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get(CtxUser)
	if !ok {
		return nil
	}
	u, _ := v.(*models.User)
	return u
}
