package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/fx"

	config "github.com/phillip/lets-hang-go/config"
	models "github.com/phillip/lets-hang-go/models"
)

var Module = fx.Module("gateway", fx.Provide(NewRazorpay))

var (
	ErrNotConfigured  = errors.New("payment gateway not configured")
	ErrNoDestination  = errors.New("host has no payout destination")
	supportedCurrency = map[string]bool{}
)

func init() {
	for _, c := range strings.Fields("INR USD EUR GBP SGD AED AUD CAD CNY SEK NZD MXN BRL HKD JPY MYR NOK PHP PLN RUB SAR THB TRY TWD ZAR") {
		supportedCurrency[c] = true
	}
}

// NormalizeCurrency upper-cases a currency code and falls back to INR for
// anything Razorpay does not settle.
func NormalizeCurrency(c string) string {
	c = strings.ToUpper(strings.TrimSpace(c))
	if supportedCurrency[c] {
		return c
	}
	return "INR"
}

type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

type Refund struct {
	ID        string `json:"id"`
	PaymentID string `json:"payment_id"`
	Amount    int64  `json:"amount"`
	Status    string `json:"status"`
}

type PayoutRequest struct {
	ReferenceID string
	Amount      int64
	Name        string
	Email       string
	Destination models.PayoutDestination
	Narration   string
}

type PayoutResult struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	UTR    string `json:"utr"`
}

type apiError struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

type Razorpay struct {
	client        *resty.Client
	keyID         string
	keySecret     string
	accountNumber string
}

func NewRazorpay(cfg *config.Config) *Razorpay {
	client := resty.New().
		SetBaseURL(cfg.Razorpay.BaseURL).
		SetBasicAuth(cfg.Razorpay.KeyID, cfg.Razorpay.KeySecret).
		SetTimeout(15 * time.Second).
		SetHeader("Content-Type", "application/json")

	return &Razorpay{
		client:        client,
		keyID:         cfg.Razorpay.KeyID,
		keySecret:     cfg.Razorpay.KeySecret,
		accountNumber: cfg.Razorpay.AccountNumber,
	}
}

func (r *Razorpay) Configured() bool {
	return r.keyID != "" && r.keySecret != ""
}

func (r *Razorpay) KeyID() string {
	return r.keyID
}

func (r *Razorpay) VerifyPayment(orderID, paymentID, signature string) bool {
	return VerifySignature(r.keySecret, orderID, paymentID, signature)
}

func (r *Razorpay) CreateOrder(ctx context.Context, amount int64, currency, receipt string, notes map[string]string) (*Order, error) {
	if !r.Configured() {
		return nil, ErrNotConfigured
	}
	var order Order
	err := r.post(ctx, "/orders", map[string]any{
		"amount":   amount,
		"currency": NormalizeCurrency(currency),
		"receipt":  receipt,
		"notes":    notes,
	}, &order, "")
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *Razorpay) Refund(ctx context.Context, paymentID string, amount int64, notes map[string]string) (*Refund, error) {
	if !r.Configured() {
		return nil, ErrNotConfigured
	}
	var refund Refund
	err := r.post(ctx, "/payments/"+paymentID+"/refund", map[string]any{
		"amount": amount,
		"speed":  "normal",
		"notes":  notes,
	}, &refund, "")
	if err != nil {
		return nil, err
	}
	return &refund, nil
}

// CreatePayout uses the composite payouts API so the fund account is
// created inline from the host's UPI id or bank details.
func (r *Razorpay) CreatePayout(ctx context.Context, req PayoutRequest) (*PayoutResult, error) {
	if !r.Configured() {
		return nil, ErrNotConfigured
	}

	contact := map[string]any{
		"name":         req.Name,
		"email":        req.Email,
		"type":         "vendor",
		"reference_id": req.ReferenceID,
	}

	var fundAccount map[string]any
	mode := "UPI"
	switch req.Destination.Method {
	case models.PaymentMethodUPI:
		if req.Destination.UPIID == "" {
			return nil, ErrNoDestination
		}
		fundAccount = map[string]any{
			"account_type": "vpa",
			"vpa":          map[string]any{"address": req.Destination.UPIID},
			"contact":      contact,
		}
	case models.PaymentMethodBank:
		b := req.Destination.BankDetails
		if b == nil || b.AccountNumber == "" || b.IFSCCode == "" {
			return nil, ErrNoDestination
		}
		mode = "IMPS"
		fundAccount = map[string]any{
			"account_type": "bank_account",
			"bank_account": map[string]any{
				"name":           b.AccountHolderName,
				"ifsc":           b.IFSCCode,
				"account_number": b.AccountNumber,
			},
			"contact": contact,
		}
	default:
		return nil, ErrNoDestination
	}

	var out PayoutResult
	err := r.post(ctx, "/payouts", map[string]any{
		"account_number":       r.accountNumber,
		"amount":               req.Amount,
		"currency":             "INR",
		"mode":                 mode,
		"purpose":              "payout",
		"fund_account":         fundAccount,
		"queue_if_low_balance": true,
		"reference_id":         req.ReferenceID,
		"narration":            req.Narration,
	}, &out, req.ReferenceID)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *Razorpay) post(ctx context.Context, path string, body any, out any, idempotencyKey string) error {
	var apiErr apiError
	req := r.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(out).
		SetError(&apiErr)
	if idempotencyKey != "" {
		req.SetHeader("X-Payout-Idempotency", idempotencyKey)
	}

	resp, err := req.Post(path)
	if err != nil {
		return fmt.Errorf("razorpay %s: %w", path, err)
	}
	if resp.IsError() {
		if apiErr.Error.Description != "" {
			return fmt.Errorf("razorpay %s: %s", path, apiErr.Error.Description)
		}
		return fmt.Errorf("razorpay %s: %s", path, resp.Status())
	}
	return nil
}
