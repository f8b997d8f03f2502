package controllers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/phillip/lets-hang-go/middleware"
	"github.com/phillip/lets-hang-go/models"
	"github.com/phillip/lets-hang-go/notify"
	"github.com/phillip/lets-hang-go/repository"
	"github.com/phillip/lets-hang-go/services/events"
)

type EventService interface {
	Get(ctx context.Context, id string) (*models.Event, error)
	List(ctx context.Context, f repository.EventFilter) ([]models.Event, error)
	Hosted(ctx context.Context, userID string) ([]models.Event, error)
	Attending(ctx context.Context, userID string) ([]models.Event, error)
	Status(ctx context.Context, eventID, userID string) (events.Membership, error)
	Create(ctx context.Context, host events.Host, in events.EventInput) (*models.Event, error)
	Update(ctx context.Context, eventID, hostID string, in events.EventInput) (*models.Event, []string, error)
	SetStatus(ctx context.Context, eventID, hostID, status string) (*models.Event, error)
	Join(ctx context.Context, eventID string, p events.Participant, in events.JoinInput) (*models.Event, events.JoinResult, error)
	RequestJoin(ctx context.Context, eventID string, p events.Participant, in events.JoinInput) (*models.Event, models.JoinRequest, error)
	Approve(ctx context.Context, eventID, hostID, userID string) (*models.Event, events.JoinResult, error)
	Reject(ctx context.Context, eventID, hostID, userID string) (*models.Event, events.CancelResult, error)
	Cancel(ctx context.Context, eventID, userID string) (*models.Event, events.CancelResult, error)
	Complete(ctx context.Context, eventID, hostID string) (*models.Event, error)
	RequestPayout(ctx context.Context, eventID, hostID string) (*models.Event, error)
}

type ImageDeleter interface {
	Delete(ctx context.Context, imageURL string) error
}

func participant(c *gin.Context) events.Participant {
	u := middleware.CurrentUser(c)
	if u == nil {
		return events.Participant{ID: c.GetString(middleware.CtxUserID)}
	}
	return events.Participant{ID: u.ID.Hex(), Name: u.Name, Email: u.Email, Avatar: u.Avatar}
}

// viewFor hides contact details from everyone but the event's host.
func viewFor(c *gin.Context, e models.Event) models.Event {
	if uid := c.GetString(middleware.CtxUserID); uid != "" && uid == e.HostID {
		return e
	}
	return e.PublicView()
}

// respondList writes an events list with validators taken from the most
// recently updated item.
func respondList(c *gin.Context, list []models.Event) {
	if len(list) == 0 {
		ok(c, http.StatusOK, gin.H{"events": []models.Event{}})
		return
	}
	for i := range list {
		list[i] = viewFor(c, list[i])
	}

	latest := list[0]
	for _, ev := range list {
		if ev.UpdatedAt.After(latest.UpdatedAt) {
			latest = ev
		}
	}
	if notModified(c, latest.ID, latest.UpdatedAt, len(list)) {
		return
	}
	ok(c, http.StatusOK, gin.H{"events": list})
}

// ---------------- LIST ----------------
func ListEvents(svc EventService) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), listTimeout)
		defer cancel()

		list, err := svc.List(ctx, repository.EventFilter{
			Search:   c.Query("search"),
			Category: c.Query("category"),
			Status:   c.Query("status"),
			HostID:   c.Query("hostId"),
		})
		if err != nil {
			respondError(c, err, "Failed to fetch events")
			return
		}
		respondList(c, list)
	}
}

func HostedEvents(svc EventService) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), listTimeout)
		defer cancel()

		list, err := svc.Hosted(ctx, c.GetString(middleware.CtxUserID))
		if err != nil {
			respondError(c, err, "Failed to fetch hosted events")
			return
		}
		respondList(c, list)
	}
}

func AttendingEvents(svc EventService) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), listTimeout)
		defer cancel()

		list, err := svc.Attending(ctx, c.GetString(middleware.CtxUserID))
		if err != nil {
			respondError(c, err, "Failed to fetch attending events")
			return
		}
		respondList(c, list)
	}
}

// ---------------- GET ----------------
func GetEvent(svc EventService) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), readTimeout)
		defer cancel()

		event, err := svc.Get(ctx, c.Param("id"))
		if err != nil {
			respondError(c, err, "Failed to fetch event")
			return
		}
		if notModified(c, event.ID, event.UpdatedAt) {
			return
		}
		ok(c, http.StatusOK, gin.H{"event": viewFor(c, *event)})
	}
}

// ---------------- CREATE ----------------
func CreateEvent(svc EventService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input events.EventInput
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, err.Error())
			return
		}

		u := middleware.CurrentUser(c)
		if u == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Not authorized"})
			return
		}
		host := events.Host{ID: u.ID.Hex(), Name: u.Name, Email: u.Email, Avatar: u.Avatar}

		ctx, cancel := context.WithTimeout(c.Request.Context(), writeTimeout)
		defer cancel()

		event, err := svc.Create(ctx, host, input)
		if err != nil {
			respondError(c, err, "Failed to create event")
			return
		}

		zap.L().Info("[Events] created", zap.String("event_id", event.ID.Hex()), zap.String("host_id", host.ID))
		ok(c, http.StatusCreated, gin.H{"event": event})
	}
}

// ---------------- UPDATE ----------------
func UpdateEvent(svc EventService, images ImageDeleter) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input events.EventInput
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, err.Error())
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), writeTimeout)
		defer cancel()

		event, replaced, err := svc.Update(ctx, c.Param("id"), c.GetString(middleware.CtxUserID), input)
		if err != nil {
			respondError(c, err, "Failed to update event")
			return
		}

		// old flyer/background cleanup is best-effort
		for _, url := range replaced {
			if err := images.Delete(ctx, url); err != nil {
				zap.L().Warn("[Events] could not delete replaced image", zap.String("url", url), zap.Error(err))
			}
		}

		ok(c, http.StatusOK, gin.H{"event": event})
	}
}

func SetEventStatus(svc EventService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			Status string `json:"status" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, "status is required")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), writeTimeout)
		defer cancel()

		event, err := svc.SetStatus(ctx, c.Param("id"), c.GetString(middleware.CtxUserID), input.Status)
		if err != nil {
			respondError(c, err, "Failed to update event status")
			return
		}
		ok(c, http.StatusOK, gin.H{"event": event})
	}
}

// ---------------- JOIN ----------------
func JoinEvent(svc EventService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input events.JoinInput
		if c.Request.ContentLength != 0 {
			if err := c.ShouldBindJSON(&input); err != nil {
				badRequest(c, err.Error())
				return
			}
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), writeTimeout)
		defer cancel()

		_, res, err := svc.Join(ctx, c.Param("id"), participant(c), input)
		if err != nil {
			respondError(c, err, "Failed to join event")
			return
		}

		count := max(input.TicketCount, 1)
		msg := "Successfully joined the event"
		if count > 1 {
			msg = fmt.Sprintf("Successfully purchased %d tickets", count)
		}
		ok(c, http.StatusOK, gin.H{"message": msg, "ticketCount": count, "attendee": res.Attendee})
	}
}

func RequestToJoin(svc EventService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input events.JoinInput
		if c.Request.ContentLength != 0 {
			if err := c.ShouldBindJSON(&input); err != nil {
				badRequest(c, err.Error())
				return
			}
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), writeTimeout)
		defer cancel()

		_, req, err := svc.RequestJoin(ctx, c.Param("id"), participant(c), input)
		if err != nil {
			respondError(c, err, "Failed to send join request")
			return
		}
		ok(c, http.StatusOK, gin.H{"message": "Join request sent", "request": req})
	}
}

func ApproveRequest(svc EventService) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), writeTimeout)
		defer cancel()

		_, res, err := svc.Approve(ctx, c.Param("id"), c.GetString(middleware.CtxUserID), c.Param("userId"))
		if err != nil {
			respondError(c, err, "Failed to approve request")
			return
		}
		ok(c, http.StatusOK, gin.H{"message": "Request approved", "attendee": res.Attendee})
	}
}

func RejectRequest(svc EventService) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), writeTimeout)
		defer cancel()

		_, res, err := svc.Reject(ctx, c.Param("id"), c.GetString(middleware.CtxUserID), c.Param("userId"))
		if err != nil {
			respondError(c, err, "Failed to reject request")
			return
		}
		ok(c, http.StatusOK, gin.H{
			"message":      "Request rejected",
			"refundAmount": res.RefundAmount,
			"paymentId":    res.PaymentID,
		})
	}
}

// ---------------- CANCEL ----------------
func CancelAttendance(svc EventService) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), writeTimeout)
		defer cancel()

		_, res, err := svc.Cancel(ctx, c.Param("id"), c.GetString(middleware.CtxUserID))
		if err != nil {
			respondError(c, err, "Failed to cancel attendance")
			return
		}

		if res.WasPending {
			ok(c, http.StatusOK, gin.H{
				"message":      "Join request cancelled",
				"refundAmount": res.RefundAmount,
				"paymentId":    res.PaymentID,
			})
			return
		}

		msg := "Attendance cancelled."
		if res.RefundAmount > 0 {
			msg = fmt.Sprintf("Attendance cancelled. %s will be refunded.", notify.FormatAmount(res.RefundAmount))
		}
		ok(c, http.StatusOK, gin.H{
			"message":         msg,
			"originalAmount":  res.OriginalAmount,
			"cancellationFee": res.CancellationFee,
			"refundAmount":    res.RefundAmount,
			"paymentId":       res.PaymentID,
		})
	}
}

// ---------------- HOST ----------------
func CompleteEvent(svc EventService) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), writeTimeout)
		defer cancel()

		event, err := svc.Complete(ctx, c.Param("id"), c.GetString(middleware.CtxUserID))
		if err != nil {
			respondError(c, err, "Failed to complete event")
			return
		}
		ok(c, http.StatusOK, gin.H{"message": "Event marked as completed", "event": event})
	}
}

func RequestPayout(svc EventService) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), writeTimeout)
		defer cancel()

		event, err := svc.RequestPayout(ctx, c.Param("id"), c.GetString(middleware.CtxUserID))
		if err != nil {
			respondError(c, err, "Failed to request payout")
			return
		}
		ok(c, http.StatusOK, gin.H{
			"message": "Payout requested. You will receive the funds shortly.",
			"amount":  event.HostEarnings,
		})
	}
}

func EventStatus(svc EventService) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), readTimeout)
		defer cancel()

		m, err := svc.Status(ctx, c.Param("id"), c.GetString(middleware.CtxUserID))
		if err != nil {
			respondError(c, err, "Failed to get event status")
			return
		}

		body := gin.H{"status": m.Status}
		if m.Attendee != nil {
			body["attendee"] = m.Attendee
		}
		if m.Request != nil {
			body["request"] = m.Request
		}
		ok(c, http.StatusOK, body)
	}
}
