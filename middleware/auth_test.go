package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	config "github.com/phillip/lets-hang-go/config"
	"github.com/phillip/lets-hang-go/errutil"
	"github.com/phillip/lets-hang-go/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeAuth struct {
	users map[string]*models.User
}

func (f fakeAuth) Authenticate(_ context.Context, token string) (*models.User, error) {
	u, ok := f.users[token]
	if !ok {
		return nil, errutil.Unauthorized("Not authorized, token failed", nil)
	}
	return u, nil
}

func newRouter(cfg *config.Config) (*gin.Engine, *models.User) {
	u := &models.User{ID: primitive.NewObjectID(), Email: "admin@letshang.app"}
	other := &models.User{ID: primitive.NewObjectID(), Email: "guest@example.com"}
	auth := fakeAuth{users: map[string]*models.User{"good": u, "guest": other}}

	r := gin.New()
	r.Use(AuthMiddleware(auth))
	r.GET("/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"userId": c.GetString(CtxUserID), "email": CurrentUser(c).Email})
	})
	r.GET("/admin", AdminOnly(cfg), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	return r, u
}

func do(r http.Handler, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	r, u := newRouter(&config.Config{})

	w := do(r, "/me", "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Contains(t, w.Body.String(), `"success":false`)

	w = do(r, "/me", "Token good")
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, "/me", "Bearer bad")
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, "/me", "Bearer good")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), u.ID.Hex())
}

func TestAdminOnly(t *testing.T) {
	r, _ := newRouter(&config.Config{AdminEmails: []string{"Admin@LetsHang.app"}})

	require.Equal(t, http.StatusNoContent, do(r, "/admin", "Bearer good").Code)
	require.Equal(t, http.StatusForbidden, do(r, "/admin", "Bearer guest").Code)
}

func TestRateLimit_DisabledWithoutRedis(t *testing.T) {
	r := gin.New()
	r.Use(RateLimit(nil, "auth", 1, time.Minute))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 5; i++ {
		require.Equal(t, http.StatusOK, do(r, "/", "").Code)
	}
}
