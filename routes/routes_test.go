package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	config "github.com/phillip/lets-hang-go/config"
	"github.com/phillip/lets-hang-go/controllers"
	"github.com/phillip/lets-hang-go/errutil"
	"github.com/phillip/lets-hang-go/models"
	"github.com/phillip/lets-hang-go/notify"
	"github.com/phillip/lets-hang-go/repository"
)

func init() {
	gin.SetMode(gin.TestMode)
	zap.ReplaceGlobals(zap.NewNop())
}

type stubEvents struct {
	controllers.EventService
}

func (stubEvents) List(context.Context, repository.EventFilter) ([]models.Event, error) {
	return []models.Event{}, nil
}

type denyAll struct{}

func (denyAll) Authenticate(context.Context, string) (*models.User, error) {
	return nil, errutil.Unauthorized("Not authorized, token failed", nil)
}

type stubGateway struct {
	controllers.PaymentGateway
}

func (stubGateway) Configured() bool { return false }
func (stubGateway) KeyID() string    { return "" }

type nopDispatcher struct{}

func (nopDispatcher) Dispatch(context.Context, notify.Message) {}

func newTestRouter() http.Handler {
	cfg := &config.Config{}
	cfg.RateLimit.Requests = 20
	return NewRouter(Deps{
		Config:        cfg,
		Log:           zap.NewNop(),
		Events:        stubEvents{},
		Authenticator: denyAll{},
		Gateway:       stubGateway{},
		Dispatcher:    nopDispatcher{},
	})
}

func get(h http.Handler, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRoutes(t *testing.T) {
	h := newTestRouter()

	w := get(h, http.MethodGet, "/api/nope")
	require.Equal(t, http.StatusNotFound, w.Code)
	require.JSONEq(t, `{"success":false,"message":"Route not found"}`, w.Body.String())

	require.Equal(t, http.StatusOK, get(h, http.MethodGet, "/api/health").Code)
	require.Equal(t, http.StatusOK, get(h, http.MethodGet, "/api/events").Code)
	require.Equal(t, http.StatusOK, get(h, http.MethodGet, "/api/payment/config").Code)

	// protected routes never reach their handlers without a token
	for _, r := range []struct{ method, path string }{
		{http.MethodGet, "/api/auth/me"},
		{http.MethodPost, "/api/events"},
		{http.MethodGet, "/api/events/user/hosted"},
		{http.MethodPost, "/api/events/abc/join"},
		{http.MethodPost, "/api/events/abc/requests/u1/approve"},
		{http.MethodGet, "/api/payouts"},
		{http.MethodPost, "/api/payouts/PAY-1/trigger"},
		{http.MethodPost, "/api/payment/create-order"},
		{http.MethodPost, "/api/uploads/image"},
	} {
		require.Equal(t, http.StatusUnauthorized, get(h, r.method, r.path).Code, r.path)
	}
}

func TestReady_WithoutMongo(t *testing.T) {
	w := get(newTestRouter(), http.MethodGet, "/api/health/ready")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	require.Contains(t, w.Body.String(), `"redis":"disabled"`)
}

func TestCORSConfig(t *testing.T) {
	cfg := &config.Config{FrontendURL: "https://letshang.app, https://www.letshang.app"}
	c := corsConfig(cfg)
	require.Contains(t, c.AllowOrigins, "https://letshang.app")
	require.Contains(t, c.AllowOrigins, "https://www.letshang.app")
	require.Contains(t, c.ExposeHeaders, "ETag")
}
