package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/phillip/lets-hang-go/errutil"
	"github.com/phillip/lets-hang-go/middleware"
	"github.com/phillip/lets-hang-go/models"
	"github.com/phillip/lets-hang-go/repository"
	"github.com/phillip/lets-hang-go/services/events"
)

func init() {
	gin.SetMode(gin.TestMode)
	zap.ReplaceGlobals(zap.NewNop())
}

// fakeEvents only implements what a test sets; anything else panics on the
// nil embedded interface.
type fakeEvents struct {
	EventService

	getFn      func(ctx context.Context, id string) (*models.Event, error)
	listFn     func(ctx context.Context, f repository.EventFilter) ([]models.Event, error)
	joinFn     func(ctx context.Context, eventID string, p events.Participant, in events.JoinInput) (*models.Event, events.JoinResult, error)
	cancelFn   func(ctx context.Context, eventID, userID string) (*models.Event, events.CancelResult, error)
	updateFn   func(ctx context.Context, eventID, hostID string, in events.EventInput) (*models.Event, []string, error)
	statusFn   func(ctx context.Context, eventID, userID string) (events.Membership, error)
	completeFn func(ctx context.Context, eventID, hostID string) (*models.Event, error)
}

func (f *fakeEvents) Get(ctx context.Context, id string) (*models.Event, error) {
	return f.getFn(ctx, id)
}

func (f *fakeEvents) List(ctx context.Context, flt repository.EventFilter) ([]models.Event, error) {
	return f.listFn(ctx, flt)
}

func (f *fakeEvents) Join(ctx context.Context, eventID string, p events.Participant, in events.JoinInput) (*models.Event, events.JoinResult, error) {
	return f.joinFn(ctx, eventID, p, in)
}

func (f *fakeEvents) Cancel(ctx context.Context, eventID, userID string) (*models.Event, events.CancelResult, error) {
	return f.cancelFn(ctx, eventID, userID)
}

func (f *fakeEvents) Update(ctx context.Context, eventID, hostID string, in events.EventInput) (*models.Event, []string, error) {
	return f.updateFn(ctx, eventID, hostID, in)
}

func (f *fakeEvents) Status(ctx context.Context, eventID, userID string) (events.Membership, error) {
	return f.statusFn(ctx, eventID, userID)
}

func (f *fakeEvents) Complete(ctx context.Context, eventID, hostID string) (*models.Event, error) {
	return f.completeFn(ctx, eventID, hostID)
}

type recordingImages struct {
	deleted []string
}

func (r *recordingImages) Delete(_ context.Context, url string) error {
	r.deleted = append(r.deleted, url)
	return nil
}

var caller = &models.User{ID: primitive.NewObjectID(), Name: "Asha", Email: "asha@example.com"}

// asCaller stands in for AuthMiddleware.
func asCaller(c *gin.Context) {
	c.Set(middleware.CtxUserID, caller.ID.Hex())
	c.Set(middleware.CtxEmail, caller.Email)
	c.Set(middleware.CtxUser, caller)
	c.Next()
}

func serve(r http.Handler, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestGetEvent_ETag(t *testing.T) {
	ev := &models.Event{ID: primitive.NewObjectID(), Name: "Rooftop", UpdatedAt: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)}
	svc := &fakeEvents{getFn: func(_ context.Context, id string) (*models.Event, error) {
		if id != ev.ID.Hex() {
			return nil, errutil.NotFound("Event not found", nil)
		}
		return ev, nil
	}}

	r := gin.New()
	r.GET("/events/:id", GetEvent(svc))

	w := serve(r, http.MethodGet, "/events/"+ev.ID.Hex(), nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	etag := w.Header().Get("ETag")
	require.NotEmpty(t, etag)
	require.NotEmpty(t, w.Header().Get("Last-Modified"))
	body := decode(t, w)
	require.Equal(t, true, body["success"])
	require.Equal(t, "Rooftop", body["event"].(map[string]any)["name"])

	w = serve(r, http.MethodGet, "/events/"+ev.ID.Hex(), nil, map[string]string{"If-None-Match": etag})
	require.Equal(t, http.StatusNotModified, w.Code)
	require.Empty(t, w.Body.String())

	w = serve(r, http.MethodGet, "/events/"+primitive.NewObjectID().Hex(), nil, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, "Event not found", decode(t, w)["message"])
}

func TestListEvents_FiltersAndEmpty(t *testing.T) {
	var got repository.EventFilter
	svc := &fakeEvents{listFn: func(_ context.Context, f repository.EventFilter) ([]models.Event, error) {
		got = f
		return nil, nil
	}}

	r := gin.New()
	r.GET("/events", ListEvents(svc))

	w := serve(r, http.MethodGet, "/events?search=jazz&category=music&status=upcoming&hostId=h1", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, repository.EventFilter{Search: "jazz", Category: "music", Status: "upcoming", HostID: "h1"}, got)
	require.Equal(t, []any{}, decode(t, w)["events"])
}

func TestEventReads_HideContactDetails(t *testing.T) {
	ev := &models.Event{
		ID:           primitive.NewObjectID(),
		Name:         "Rooftop",
		HostID:       caller.ID.Hex(),
		HostEmail:    caller.Email,
		InviteCode:   "JAZZ42",
		Attendees:    []models.Attendee{{ID: "u1", Name: "Ravi", Email: "ravi@example.com", PlusOnes: []models.PlusOne{{Name: "Mia", Email: "mia@example.com"}}}},
		JoinRequests: []models.JoinRequest{{ID: "u2", Name: "Dev", Email: "dev@example.com"}},
		GuestList:    []models.Guest{{Email: "guest@example.com"}},
		UpdatedAt:    time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	svc := &fakeEvents{
		getFn: func(context.Context, string) (*models.Event, error) { return ev, nil },
		listFn: func(context.Context, repository.EventFilter) ([]models.Event, error) {
			return []models.Event{*ev}, nil
		},
	}

	r := gin.New()
	r.GET("/events/:id", GetEvent(svc))
	r.GET("/events", ListEvents(svc))
	r.GET("/mine", asCaller, ListEvents(svc))

	for _, path := range []string{"/events/" + ev.ID.Hex(), "/events"} {
		w := serve(r, http.MethodGet, path, nil, nil)
		require.Equal(t, http.StatusOK, w.Code)
		require.NotContains(t, w.Body.String(), "@example.com", path)
		require.NotContains(t, w.Body.String(), "JAZZ42", path)
		require.Contains(t, w.Body.String(), "Ravi", path)
	}

	// the stored event is untouched and its host still sees everything
	require.Equal(t, "ravi@example.com", ev.Attendees[0].Email)
	w := serve(r, http.MethodGet, "/mine", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "ravi@example.com")
	require.Contains(t, w.Body.String(), "mia@example.com")
	require.Contains(t, w.Body.String(), "JAZZ42")
}

func TestJoinEvent(t *testing.T) {
	var gotP events.Participant
	var gotIn events.JoinInput
	svc := &fakeEvents{joinFn: func(_ context.Context, _ string, p events.Participant, in events.JoinInput) (*models.Event, events.JoinResult, error) {
		gotP, gotIn = p, in
		if in.TicketCount > 2 {
			return nil, events.JoinResult{}, errutil.Conflict("Only 2 spots left", nil)
		}
		return &models.Event{}, events.JoinResult{Attendee: models.Attendee{ID: p.ID, TicketCount: in.TicketCount}}, nil
	}}

	r := gin.New()
	r.POST("/events/:id/join", asCaller, JoinEvent(svc))

	w := serve(r, http.MethodPost, "/events/e1/join", gin.H{"paymentId": "pay_1", "amountPaid": 2000, "ticketCount": 2}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, caller.ID.Hex(), gotP.ID)
	require.Equal(t, caller.Email, gotP.Email)
	require.Equal(t, int64(2000), gotIn.AmountPaid)
	body := decode(t, w)
	require.Equal(t, "Successfully purchased 2 tickets", body["message"])
	require.Equal(t, float64(2), body["ticketCount"])

	w = serve(r, http.MethodPost, "/events/e1/join", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "Successfully joined the event", decode(t, w)["message"])

	w = serve(r, http.MethodPost, "/events/e1/join", gin.H{"ticketCount": 3}, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	body = decode(t, w)
	require.Equal(t, false, body["success"])
	require.Equal(t, "Only 2 spots left", body["message"])
}

func TestCancelAttendance(t *testing.T) {
	pending := false
	svc := &fakeEvents{cancelFn: func(_ context.Context, _, userID string) (*models.Event, events.CancelResult, error) {
		if pending {
			return &models.Event{}, events.CancelResult{OriginalAmount: 500, RefundAmount: 500, PaymentID: "pay_p", WasPending: true}, nil
		}
		return &models.Event{}, events.CancelResult{OriginalAmount: 1000, CancellationFee: 200, RefundAmount: 800, PaymentID: "pay_1"}, nil
	}}

	r := gin.New()
	r.POST("/events/:id/cancel", asCaller, CancelAttendance(svc))

	body := decode(t, serve(r, http.MethodPost, "/events/e1/cancel", nil, nil))
	require.Equal(t, "Attendance cancelled. ₹8.00 will be refunded.", body["message"])
	require.Equal(t, float64(1000), body["originalAmount"])
	require.Equal(t, float64(200), body["cancellationFee"])
	require.Equal(t, float64(800), body["refundAmount"])
	require.Equal(t, "pay_1", body["paymentId"])

	pending = true
	body = decode(t, serve(r, http.MethodPost, "/events/e1/cancel", nil, nil))
	require.Equal(t, "Join request cancelled", body["message"])
	require.Equal(t, float64(500), body["refundAmount"])
	require.NotContains(t, body, "cancellationFee")
}

func TestUpdateEvent_DeletesReplacedImages(t *testing.T) {
	svc := &fakeEvents{updateFn: func(_ context.Context, _, hostID string, in events.EventInput) (*models.Event, []string, error) {
		if hostID != caller.ID.Hex() {
			return nil, nil, errutil.Forbidden("Only the host can update this event", nil)
		}
		return &models.Event{FlyerURL: *in.FlyerURL}, []string{"https://res.cloudinary.com/d/image/upload/v1/events/old.jpg"}, nil
	}}
	images := &recordingImages{}

	r := gin.New()
	r.PUT("/events/:id", asCaller, UpdateEvent(svc, images))

	w := serve(r, http.MethodPut, "/events/e1", gin.H{"flyerUrl": "https://res.cloudinary.com/d/image/upload/v2/events/new.jpg"}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, []string{"https://res.cloudinary.com/d/image/upload/v1/events/old.jpg"}, images.deleted)
}

func TestEventStatus(t *testing.T) {
	svc := &fakeEvents{statusFn: func(_ context.Context, _, userID string) (events.Membership, error) {
		return events.Membership{Status: events.MembershipPending, Request: &models.JoinRequest{ID: userID, Status: models.RequestPending}}, nil
	}}

	r := gin.New()
	r.GET("/events/:id/status", asCaller, EventStatus(svc))

	body := decode(t, serve(r, http.MethodGet, "/events/e1/status", nil, nil))
	require.Equal(t, "pending", body["status"])
	require.Equal(t, caller.ID.Hex(), body["request"].(map[string]any)["id"])
	require.NotContains(t, body, "attendee")
}

func TestCompleteEvent_NotHost(t *testing.T) {
	svc := &fakeEvents{completeFn: func(context.Context, string, string) (*models.Event, error) {
		return nil, errutil.Forbidden("Only the host can complete this event", nil)
	}}

	r := gin.New()
	r.POST("/events/:id/complete", asCaller, CompleteEvent(svc))

	w := serve(r, http.MethodPost, "/events/e1/complete", nil, nil)
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Equal(t, "Only the host can complete this event", decode(t, w)["message"])
}
