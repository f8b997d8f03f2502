package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVerifySignature(t *testing.T) {
	secret := "rzp_secret"
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte("order_123|pay_456"))
	sig := hex.EncodeToString(mac.Sum(nil))

	require.Equal(t, sig, Sign(secret, "order_123", "pay_456"))
	require.True(t, VerifySignature(secret, "order_123", "pay_456", sig))

	require.False(t, VerifySignature(secret, "order_123", "pay_999", sig))
	require.False(t, VerifySignature("other", "order_123", "pay_456", sig))
	require.False(t, VerifySignature(secret, "order_123", "pay_456", ""))
	require.False(t, VerifySignature("", "order_123", "pay_456", sig))
}

func TestNormalizeCurrency(t *testing.T) {
	require.Equal(t, "USD", NormalizeCurrency("usd"))
	require.Equal(t, "INR", NormalizeCurrency("INR"))
	require.Equal(t, "INR", NormalizeCurrency("XYZ"))
	require.Equal(t, "INR", NormalizeCurrency(""))
}
