package controllers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/phillip/lets-hang-go/errutil"
	"github.com/phillip/lets-hang-go/gateway"
	"github.com/phillip/lets-hang-go/middleware"
	"github.com/phillip/lets-hang-go/money"
	"github.com/phillip/lets-hang-go/notify"
)

const maxReceiptLen = 40

type PaymentGateway interface {
	Configured() bool
	KeyID() string
	VerifyPayment(orderID, paymentID, signature string) bool
	CreateOrder(ctx context.Context, amount int64, currency, receipt string, notes map[string]string) (*gateway.Order, error)
	Refund(ctx context.Context, paymentID string, amount int64, notes map[string]string) (*gateway.Refund, error)
}

func gatewayError(err error, fallback string) error {
	if errors.Is(err, gateway.ErrNotConfigured) {
		return errutil.Internal("Payment gateway not configured. Please contact support.", err)
	}
	return errutil.Internal(fallback, err)
}

// receipt builds evt_<first 8 of event id>_<base36 millis>, capped at the
// gateway's 40 character limit.
func receipt(eventID string, now time.Time) string {
	prefix := eventID
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	r := "evt_" + prefix + "_" + strconv.FormatInt(now.UnixMilli(), 36)
	if len(r) > maxReceiptLen {
		r = r[:maxReceiptLen]
	}
	return r
}

// ---------------- ORDER ----------------
func CreateOrder(gw PaymentGateway) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			Amount    int64  `json:"amount"`
			EventID   string `json:"eventId"`
			EventName string `json:"eventName"`
			Currency  string `json:"currency"`
		}
		if err := c.ShouldBindJSON(&input); err != nil || input.Amount <= 0 || input.EventID == "" {
			badRequest(c, "Amount and eventId are required")
			return
		}

		currency := gateway.NormalizeCurrency(input.Currency)
		notes := map[string]string{
			"eventId":          input.EventID,
			"eventName":        input.EventName,
			"userId":           c.GetString(middleware.CtxUserID),
			"userEmail":        c.GetString(middleware.CtxEmail),
			"originalCurrency": input.Currency,
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), writeTimeout)
		defer cancel()

		order, err := gw.CreateOrder(ctx, input.Amount, currency, receipt(input.EventID, time.Now()), notes)
		if err != nil {
			respondError(c, gatewayError(err, "Failed to create payment order"), "Failed to create payment order")
			return
		}

		zap.L().Info("[Payment] order created", zap.String("order_id", order.ID), zap.String("currency", order.Currency))
		ok(c, http.StatusOK, gin.H{
			"order": gin.H{"id": order.ID, "amount": order.Amount, "currency": order.Currency},
			"key":   gw.KeyID(),
		})
	}
}

// ---------------- VERIFY ----------------
func VerifyPayment(gw PaymentGateway) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			OrderID   string `json:"razorpay_order_id"`
			PaymentID string `json:"razorpay_payment_id"`
			Signature string `json:"razorpay_signature"`
			EventID   string `json:"eventId"`
		}
		if err := c.ShouldBindJSON(&input); err != nil || input.OrderID == "" || input.PaymentID == "" || input.Signature == "" {
			badRequest(c, "Missing payment verification details")
			return
		}

		if !gw.VerifyPayment(input.OrderID, input.PaymentID, input.Signature) {
			zap.L().Warn("[Payment] signature mismatch",
				zap.String("order_id", input.OrderID),
				zap.String("payment_id", input.PaymentID),
			)
			badRequest(c, "Payment verification failed. Invalid signature.")
			return
		}

		ok(c, http.StatusOK, gin.H{
			"message":   "Payment verified successfully",
			"paymentId": input.PaymentID,
			"orderId":   input.OrderID,
		})
	}
}

// ---------------- REFUND ----------------
func RefundPayment(gw PaymentGateway) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			PaymentID string `json:"paymentId"`
			Amount    int64  `json:"amount"`
			EventID   string `json:"eventId"`
			Reason    string `json:"reason"`
		}
		if err := c.ShouldBindJSON(&input); err != nil || input.PaymentID == "" || input.Amount <= 0 {
			badRequest(c, "Payment ID and amount are required")
			return
		}
		if input.Reason == "" {
			input.Reason = "User requested cancellation"
		}

		fee, refundAmount, err := money.Cancellation(input.Amount)
		if err != nil {
			badRequest(c, err.Error())
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), writeTimeout)
		defer cancel()

		refund, err := gw.Refund(ctx, input.PaymentID, refundAmount, map[string]string{
			"reason":          input.Reason,
			"userId":          c.GetString(middleware.CtxUserID),
			"eventId":         input.EventID,
			"originalAmount":  strconv.FormatInt(input.Amount, 10),
			"cancellationFee": strconv.FormatInt(fee, 10),
			"refundAmount":    strconv.FormatInt(refundAmount, 10),
		})
		if err != nil {
			if errors.Is(err, gateway.ErrNotConfigured) {
				badRequest(c, "Payment gateway not configured")
				return
			}
			msg := err.Error()
			if i := strings.LastIndex(msg, ": "); i >= 0 {
				msg = msg[i+2:]
			}
			respondError(c, errutil.BadRequest(msg, err), "Refund failed")
			return
		}

		zap.L().Info("[Payment] refund processed",
			zap.String("refund_id", refund.ID),
			zap.String("payment_id", input.PaymentID),
			zap.Int64("refund_amount", refundAmount),
			zap.Int64("cancellation_fee", fee),
		)
		ok(c, http.StatusOK, gin.H{
			"message": fmt.Sprintf("Refund processed. %s will be credited (%s cancellation fee deducted)",
				notify.FormatAmount(refundAmount), notify.FormatAmount(fee)),
			"refund": gin.H{
				"id":              refund.ID,
				"paymentId":       input.PaymentID,
				"originalAmount":  input.Amount,
				"cancellationFee": fee,
				"refundAmount":    refundAmount,
				"status":          refund.Status,
			},
			"cancellationFeePercent": money.CancellationFeePercent,
		})
	}
}

// ---------------- TICKET ----------------
func SendTicket(dispatcher notify.Dispatcher) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			EventID          string             `json:"eventId"`
			EventName        string             `json:"eventName"`
			EventDescription string             `json:"eventDescription"`
			EventDate        string             `json:"eventDate"`
			EventLocation    string             `json:"eventLocation"`
			PaymentID        string             `json:"paymentId"`
			Amount           int64              `json:"amount"`
			TicketCount      int                `json:"ticketCount"`
			HostName         string             `json:"hostName"`
			HostEmail        string             `json:"hostEmail"`
			TicketTierName   string             `json:"ticketTierName"`
			AddOns           []notify.AddOnLine `json:"addOns"`
		}
		if err := c.ShouldBindJSON(&input); err != nil || input.EventID == "" || input.EventName == "" || input.EventDate == "" {
			badRequest(c, "Event details are required")
			return
		}

		u := middleware.CurrentUser(c)
		if u == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Not authorized"})
			return
		}
		if input.TicketCount < 1 {
			input.TicketCount = 1
		}
		if input.EventLocation == "" {
			input.EventLocation = "See event page for details"
		}

		ticketID := notify.NewTicketID(input.EventID, time.Now())
		dispatcher.Dispatch(c.Request.Context(), notify.Message{
			Kind: notify.KindTicket,
			To:   u.Email,
			Name: u.Name,
			Ticket: &notify.TicketData{
				TicketID:         ticketID,
				EventID:          input.EventID,
				EventName:        input.EventName,
				EventDescription: input.EventDescription,
				EventDate:        input.EventDate,
				EventLocation:    input.EventLocation,
				TicketCount:      input.TicketCount,
				AmountPaid:       input.Amount,
				PaymentID:        input.PaymentID,
				HostName:         input.HostName,
				HostEmail:        input.HostEmail,
				TicketTierName:   input.TicketTierName,
				AddOns:           input.AddOns,
			},
		})

		msg := "Ticket sent to your email!"
		if input.TicketCount > 1 {
			msg = fmt.Sprintf("%d tickets sent to your email!", input.TicketCount)
		}
		ok(c, http.StatusOK, gin.H{"message": msg, "ticketId": ticketID})
	}
}

// ---------------- CONFIG ----------------
func PaymentConfig(gw PaymentGateway) gin.HandlerFunc {
	return func(c *gin.Context) {
		var key any
		if gw.KeyID() != "" {
			key = gw.KeyID()
		}
		ok(c, http.StatusOK, gin.H{"key": key, "configured": gw.Configured()})
	}
}
