package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"time"

	"github.com/phillip/lets-hang-go/models"
)

const otpTTL = 10 * time.Minute

var otpMax = big.NewInt(1_000_000)

// NewOTP returns a 6-digit code valid for ten minutes from now.
func NewOTP(now time.Time) (*models.OTP, error) {
	n, err := rand.Int(rand.Reader, otpMax)
	if err != nil {
		return nil, fmt.Errorf("generate otp: %w", err)
	}
	return &models.OTP{
		Code:      fmt.Sprintf("%06d", n.Int64()),
		ExpiresAt: now.Add(otpTTL),
	}, nil
}

func checkOTP(otp *models.OTP, code string, now time.Time) bool {
	if otp == nil || otp.Code == "" || code == "" {
		return false
	}
	if now.After(otp.ExpiresAt) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(otp.Code), []byte(code)) == 1
}
