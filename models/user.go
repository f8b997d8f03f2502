package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	PaymentMethodUPI  = "upi"
	PaymentMethodBank = "bank"
	PaymentMethodNone = "none"
)

type OTP struct {
	Code      string    `bson:"code" json:"-"`
	ExpiresAt time.Time `bson:"expires_at" json:"-"`
}

type BankDetails struct {
	AccountHolderName string `bson:"account_holder_name,omitempty" json:"accountHolderName,omitempty"`
	AccountNumber     string `bson:"account_number,omitempty" json:"accountNumber,omitempty"`
	IFSCCode          string `bson:"ifsc_code,omitempty" json:"ifscCode,omitempty"`
	BankName          string `bson:"bank_name,omitempty" json:"bankName,omitempty"`
}

// User never serializes its password hash or pending OTP.
type User struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name           string             `bson:"name" json:"name"`
	Email          string             `bson:"email" json:"email"`
	Password       string             `bson:"password" json:"-"`
	Avatar         string             `bson:"avatar,omitempty" json:"avatar,omitempty"`
	Bio            string             `bson:"bio" json:"bio"`
	Location       string             `bson:"location" json:"location"`
	Website        string             `bson:"website" json:"website"`
	IsVerified     bool               `bson:"is_verified" json:"isVerified"`
	OTP            *OTP               `bson:"otp,omitempty" json:"-"`
	PaymentMethod  string             `bson:"payment_method" json:"paymentMethod"`
	UPIID          string             `bson:"upi_id,omitempty" json:"upiId,omitempty"`
	BankDetails    *BankDetails       `bson:"bank_details,omitempty" json:"bankDetails,omitempty"`
	EventsHosted   int                `bson:"events_hosted" json:"eventsHosted"`
	EventsAttended int                `bson:"events_attended" json:"eventsAttended"`
	CreatedAt      time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt      time.Time          `bson:"updated_at" json:"updatedAt"`
}
