package controllers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/phillip/lets-hang-go/errutil"
	"github.com/phillip/lets-hang-go/middleware"
	"github.com/phillip/lets-hang-go/models"
	"github.com/phillip/lets-hang-go/services/payouts"
)

type PayoutLedger interface {
	ForEvent(ctx context.Context, eventID string) (*models.Payout, error)
	ListForHost(ctx context.Context, hostID string) ([]models.Payout, error)
	Trigger(ctx context.Context, id string) (*models.Payout, error)
}

func payoutError(err error) error {
	switch {
	case errors.Is(err, payouts.ErrPayoutNotFound):
		return errutil.NotFound("Payout not found", err)
	case errors.Is(err, payouts.ErrPayoutNotClaimable):
		return errutil.Conflict("Payout is already being processed or has been paid", err)
	}
	return err
}

// ---------------- LIST ----------------
func ListPayouts(ledger PayoutLedger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), listTimeout)
		defer cancel()

		list, err := ledger.ListForHost(ctx, c.GetString(middleware.CtxUserID))
		if err != nil {
			respondError(c, err, "Failed to fetch payouts")
			return
		}
		if list == nil {
			list = []models.Payout{}
		}
		ok(c, http.StatusOK, gin.H{"payouts": list})
	}
}

// EventPayout shows the ledger entry of one event to its host.
func EventPayout(svc EventService, ledger PayoutLedger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), readTimeout)
		defer cancel()

		event, err := svc.Get(ctx, c.Param("id"))
		if err != nil {
			respondError(c, err, "Failed to fetch payout")
			return
		}
		if event.HostID != c.GetString(middleware.CtxUserID) {
			respondError(c, errutil.Forbidden("Only the host can view the payout", nil), "")
			return
		}

		p, err := ledger.ForEvent(ctx, event.ID.Hex())
		if err != nil {
			respondError(c, payoutError(err), "Failed to fetch payout")
			return
		}
		ok(c, http.StatusOK, gin.H{"payout": p})
	}
}

// ---------------- ADMIN ----------------
func TriggerPayout(ledger PayoutLedger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), writeTimeout)
		defer cancel()

		p, err := ledger.Trigger(ctx, c.Param("id"))
		if err != nil {
			respondError(c, payoutError(err), "Failed to process payout")
			return
		}

		zap.L().Info("[Payouts] triggered manually",
			zap.String("payout_id", p.ID),
			zap.String("status", p.Status),
			zap.String("by", c.GetString(middleware.CtxEmail)),
		)
		ok(c, http.StatusOK, gin.H{"payout": p})
	}
}
