// Package money holds the fee arithmetic applied to every payment. All
// amounts are integer minor currency units (paise, cents).
package money

import "errors"

const (
	PlatformFeePercent     = 10
	CancellationFeePercent = 20
)

var ErrInvalidAmount = errors.New("amount must not be negative")

// PercentOf returns amount*percent/100 rounded half up.
func PercentOf(amount, percent int64) (int64, error) {
	if amount < 0 || percent < 0 {
		return 0, ErrInvalidAmount
	}
	return (amount*percent + 50) / 100, nil
}

// Split divides a collected total into the platform's cut and the host's
// earnings. fee + earnings == total for every valid total.
func Split(total int64) (platformFee, hostEarnings int64, err error) {
	platformFee, err = PercentOf(total, PlatformFeePercent)
	if err != nil {
		return 0, 0, err
	}
	return platformFee, total - platformFee, nil
}

// Cancellation computes the retained fee and the refund for a confirmed
// attendee cancelling a paid booking.
func Cancellation(amount int64) (fee, refund int64, err error) {
	fee, err = PercentOf(amount, CancellationFeePercent)
	if err != nil {
		return 0, 0, err
	}
	return fee, amount - fee, nil
}
