// Package notify delivers transactional email after a state change has
// been committed. Delivery is best-effort: failures are logged and never
// reach the caller.
package notify

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

type Kind string

const (
	KindOTP          Kind = "otp"
	KindWelcome      Kind = "welcome"
	KindCancellation Kind = "cancellation"
	KindTicket       Kind = "ticket"
	KindPayout       Kind = "payout"
)

type CancellationData struct {
	EventName       string `json:"eventName"`
	EventDate       string `json:"eventDate"`
	EventLocation   string `json:"eventLocation"`
	TicketCount     int    `json:"ticketCount"`
	OriginalAmount  int64  `json:"originalAmount"`
	CancellationFee int64  `json:"cancellationFee"`
	RefundAmount    int64  `json:"refundAmount"`
	FeePercent      int    `json:"feePercent"`
}

type AddOnLine struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

type TicketData struct {
	TicketID         string      `json:"ticketId"`
	EventID          string      `json:"eventId"`
	EventName        string      `json:"eventName"`
	EventDescription string      `json:"eventDescription,omitempty"`
	EventDate        string      `json:"eventDate"`
	EventLocation    string      `json:"eventLocation"`
	TicketCount      int         `json:"ticketCount"`
	AmountPaid       int64       `json:"amountPaid"`
	PaymentID        string      `json:"paymentId,omitempty"`
	HostName         string      `json:"hostName,omitempty"`
	HostEmail        string      `json:"hostEmail,omitempty"`
	TicketTierName   string      `json:"ticketTierName,omitempty"`
	AddOns           []AddOnLine `json:"addOns,omitempty"`
}

type PayoutData struct {
	PayoutID      string `json:"payoutId"`
	EventName     string `json:"eventName"`
	HostEarnings  int64  `json:"hostEarnings"`
	TransactionID string `json:"transactionId"`
}

type Message struct {
	Kind         Kind              `json:"kind"`
	To           string            `json:"to"`
	Name         string            `json:"name"`
	OTP          string            `json:"otp,omitempty"`
	Cancellation *CancellationData `json:"cancellation,omitempty"`
	Ticket       *TicketData       `json:"ticket,omitempty"`
	Payout       *PayoutData       `json:"payout,omitempty"`
}

// Dispatcher hands a message off for asynchronous delivery.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg Message)
}

// NewTicketID builds TKT-<first 8 of event id>-<base36 timestamp>.
func NewTicketID(eventID string, now time.Time) string {
	prefix := eventID
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	return fmt.Sprintf("TKT-%s-%s",
		strings.ToUpper(prefix),
		strings.ToUpper(strconv.FormatInt(now.UnixMilli(), 36)),
	)
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// FormatEventDate renders "Mon, Jan 2, 2006 at 3:04 PM"; unparseable
// dates are returned unchanged.
func FormatEventDate(raw string) string {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			if layout == "2006-01-02" {
				return t.Format("Mon, Jan 2, 2006")
			}
			return t.Format("Mon, Jan 2, 2006 at 3:04 PM")
		}
	}
	return raw
}

// FormatAmount renders minor units as rupees.
func FormatAmount(minor int64) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return fmt.Sprintf("%s₹%d.%02d", sign, minor/100, minor%100)
}
