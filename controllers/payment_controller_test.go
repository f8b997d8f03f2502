package controllers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/phillip/lets-hang-go/gateway"
	"github.com/phillip/lets-hang-go/notify"
)

type fakeGateway struct {
	configured bool
	secret     string

	orderFn  func(ctx context.Context, amount int64, currency, receipt string, notes map[string]string) (*gateway.Order, error)
	refundFn func(ctx context.Context, paymentID string, amount int64, notes map[string]string) (*gateway.Refund, error)
}

func (f *fakeGateway) Configured() bool { return f.configured }

func (f *fakeGateway) KeyID() string {
	if !f.configured {
		return ""
	}
	return "rzp_test_key"
}

func (f *fakeGateway) VerifyPayment(orderID, paymentID, signature string) bool {
	return gateway.VerifySignature(f.secret, orderID, paymentID, signature)
}

func (f *fakeGateway) CreateOrder(ctx context.Context, amount int64, currency, receipt string, notes map[string]string) (*gateway.Order, error) {
	return f.orderFn(ctx, amount, currency, receipt, notes)
}

func (f *fakeGateway) Refund(ctx context.Context, paymentID string, amount int64, notes map[string]string) (*gateway.Refund, error) {
	return f.refundFn(ctx, paymentID, amount, notes)
}

type recordingDispatcher struct {
	msgs []notify.Message
}

func (d *recordingDispatcher) Dispatch(_ context.Context, msg notify.Message) {
	d.msgs = append(d.msgs, msg)
}

func TestReceipt(t *testing.T) {
	now := time.UnixMilli(1700000000000)
	r := receipt("65f0c0ffee1234567890abcd", now)
	require.True(t, strings.HasPrefix(r, "evt_65f0c0ff_"))
	require.LessOrEqual(t, len(r), maxReceiptLen)
	require.Equal(t, "evt_abc_loyw3v28", receipt("abc", now))
}

func TestCreateOrder(t *testing.T) {
	var gotCurrency, gotReceipt string
	var gotNotes map[string]string
	gw := &fakeGateway{configured: true, orderFn: func(_ context.Context, amount int64, currency, receipt string, notes map[string]string) (*gateway.Order, error) {
		gotCurrency, gotReceipt, gotNotes = currency, receipt, notes
		return &gateway.Order{ID: "order_1", Amount: amount, Currency: currency}, nil
	}}

	r := gin.New()
	r.POST("/create-order", asCaller, CreateOrder(gw))

	w := serve(r, http.MethodPost, "/create-order", gin.H{"amount": 150000, "eventId": "65f0c0ffee1234567890abcd", "currency": "xyz"}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "INR", gotCurrency)
	require.True(t, strings.HasPrefix(gotReceipt, "evt_65f0c0ff_"))
	require.Equal(t, caller.ID.Hex(), gotNotes["userId"])
	require.Equal(t, "xyz", gotNotes["originalCurrency"])

	body := decode(t, w)
	require.Equal(t, "rzp_test_key", body["key"])
	require.Equal(t, "order_1", body["order"].(map[string]any)["id"])

	w = serve(r, http.MethodPost, "/create-order", gin.H{"amount": 100}, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "Amount and eventId are required", decode(t, w)["message"])
}

func TestCreateOrder_NotConfigured(t *testing.T) {
	gw := &fakeGateway{orderFn: func(context.Context, int64, string, string, map[string]string) (*gateway.Order, error) {
		return nil, gateway.ErrNotConfigured
	}}

	r := gin.New()
	r.POST("/create-order", asCaller, CreateOrder(gw))

	w := serve(r, http.MethodPost, "/create-order", gin.H{"amount": 100, "eventId": "e1"}, nil)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.Equal(t, "Payment gateway not configured. Please contact support.", decode(t, w)["message"])
}

func TestVerifyPayment(t *testing.T) {
	gw := &fakeGateway{configured: true, secret: "shh"}
	r := gin.New()
	r.POST("/verify", asCaller, VerifyPayment(gw))

	good := gateway.Sign("shh", "order_1", "pay_1")
	w := serve(r, http.MethodPost, "/verify", gin.H{
		"razorpay_order_id": "order_1", "razorpay_payment_id": "pay_1", "razorpay_signature": good,
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "pay_1", decode(t, w)["paymentId"])

	w = serve(r, http.MethodPost, "/verify", gin.H{
		"razorpay_order_id": "order_1", "razorpay_payment_id": "pay_2", "razorpay_signature": good,
	}, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(r, http.MethodPost, "/verify", gin.H{"razorpay_order_id": "order_1"}, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "Missing payment verification details", decode(t, w)["message"])
}

func TestRefundPayment(t *testing.T) {
	var gotAmount int64
	var gotNotes map[string]string
	gw := &fakeGateway{configured: true, refundFn: func(_ context.Context, paymentID string, amount int64, notes map[string]string) (*gateway.Refund, error) {
		if paymentID == "pay_bad" {
			return nil, errors.New("razorpay /payments/pay_bad/refund: The payment has been fully refunded already")
		}
		gotAmount, gotNotes = amount, notes
		return &gateway.Refund{ID: "rfnd_1", PaymentID: paymentID, Amount: amount, Status: "processed"}, nil
	}}

	r := gin.New()
	r.POST("/refund", asCaller, RefundPayment(gw))

	w := serve(r, http.MethodPost, "/refund", gin.H{"paymentId": "pay_1", "amount": 1000, "eventId": "e1"}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, int64(800), gotAmount)
	require.Equal(t, "200", gotNotes["cancellationFee"])
	require.Equal(t, "User requested cancellation", gotNotes["reason"])

	body := decode(t, w)
	refund := body["refund"].(map[string]any)
	require.Equal(t, float64(800), refund["refundAmount"])
	require.Equal(t, float64(200), refund["cancellationFee"])
	require.Equal(t, float64(20), body["cancellationFeePercent"])
	require.Equal(t, "Refund processed. ₹8.00 will be credited (₹2.00 cancellation fee deducted)", body["message"])

	w = serve(r, http.MethodPost, "/refund", gin.H{"paymentId": "pay_bad", "amount": 1000}, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, decode(t, w)["message"], "fully refunded")

	w = serve(r, http.MethodPost, "/refund", gin.H{"amount": 1000}, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSendTicket(t *testing.T) {
	d := &recordingDispatcher{}
	r := gin.New()
	r.POST("/send-ticket", asCaller, SendTicket(d))

	w := serve(r, http.MethodPost, "/send-ticket", gin.H{
		"eventId": "65f0c0ffee1234567890abcd", "eventName": "Rooftop", "eventDate": "2026-06-01T19:00:00Z", "ticketCount": 3,
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	require.Equal(t, "3 tickets sent to your email!", body["message"])
	require.Regexp(t, `^TKT-65F0C0FF-[0-9A-Z]+$`, body["ticketId"])

	require.Len(t, d.msgs, 1)
	msg := d.msgs[0]
	require.Equal(t, notify.KindTicket, msg.Kind)
	require.Equal(t, caller.Email, msg.To)
	require.Equal(t, body["ticketId"], msg.Ticket.TicketID)
	require.Equal(t, "See event page for details", msg.Ticket.EventLocation)

	w = serve(r, http.MethodPost, "/send-ticket", gin.H{"eventId": "e1"}, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Len(t, d.msgs, 1)
}

func TestPaymentConfig(t *testing.T) {
	r := gin.New()
	r.GET("/on", PaymentConfig(&fakeGateway{configured: true}))
	r.GET("/off", PaymentConfig(&fakeGateway{}))

	on := decode(t, serve(r, http.MethodGet, "/on", nil, nil))
	require.Equal(t, "rzp_test_key", on["key"])
	require.Equal(t, true, on["configured"])

	off := decode(t, serve(r, http.MethodGet, "/off", nil, nil))
	require.Nil(t, off["key"])
	require.Equal(t, false, off["configured"])
}
