package models

import "time"

const (
	PayoutScheduled = "scheduled"
	// PayoutProcessing is shared with the event-side status.
	PayoutCompleted = "completed"
	PayoutFailed    = "failed"
)

type PayoutDestination struct {
	Method      string       `bson:"method" json:"method"` // upi, bank, none
	UPIID       string       `bson:"upi_id,omitempty" json:"upiId,omitempty"`
	BankDetails *BankDetails `bson:"bank_details,omitempty" json:"bankDetails,omitempty"`
}

type Payout struct {
	ID            string            `bson:"_id" json:"id"`
	EventID       string            `bson:"event_id" json:"eventId"`
	EventName     string            `bson:"event_name" json:"eventName"`
	HostID        string            `bson:"host_id" json:"hostId"`
	HostName      string            `bson:"host_name" json:"hostName"`
	HostEmail     string            `bson:"host_email,omitempty" json:"hostEmail,omitempty"`
	Destination   PayoutDestination `bson:"destination" json:"destination"`
	TotalAmount   int64             `bson:"total_amount" json:"totalAmount"`
	PlatformFee   int64             `bson:"platform_fee" json:"platformFee"`
	HostEarnings  int64             `bson:"host_earnings" json:"hostEarnings"`
	Status        string            `bson:"status" json:"status"` // scheduled, processing, completed, failed
	ScheduledFor  time.Time         `bson:"scheduled_for" json:"scheduledFor"`
	TransactionID string            `bson:"transaction_id,omitempty" json:"transactionId,omitempty"`
	Error         string            `bson:"error,omitempty" json:"error,omitempty"`
	ProcessedAt   *time.Time        `bson:"processed_at,omitempty" json:"processedAt,omitempty"`
	CreatedAt     time.Time         `bson:"created_at" json:"createdAt"`
	UpdatedAt     time.Time         `bson:"updated_at" json:"updatedAt"`
}

type PayoutSummary struct {
	Scheduled      int64 `json:"scheduled"`
	Completed      int64 `json:"completed"`
	Failed         int64 `json:"failed"`
	ScheduledTotal int64 `json:"scheduledTotal"`
}
