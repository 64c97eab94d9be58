package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"delguur.mn/app/internal/http/middleware"
	"delguur.mn/app/internal/http/validation"
	"delguur.mn/app/internal/modules/payments"
	"delguur.mn/app/internal/shared/apperr"
)

type SMSWebhookHandler struct {
	logger     *slog.Logger
	reconciler *payments.Reconciler
}

func NewSMSWebhookHandler(logger *slog.Logger, rec *payments.Reconciler) *SMSWebhookHandler {
	return &SMSWebhookHandler{logger: logger, reconciler: rec}
}

type smsWebhookRequest struct {
	From       string    `json:"from" binding:"required,max=32"`
	Message    string    `json:"message" binding:"required"`
	ReceivedAt time.Time `json:"received_at"`
}

// POST /webhooks/sms
// Inbound SMS from the gateway. Returns 200 whether or not a match was
// found (unmatched is a normal outcome); 500 only on store failure, so the
// gateway redelivers. Redelivery is safe, matching is idempotent.
func (h *SMSWebhookHandler) Handle(c *gin.Context) {
	var req smsWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fields := validation.FromBindError(err, &req)
		middleware.Fail(c, apperr.InvalidErr("Invalid SMS payload.", fields))
		return
	}

	receivedAt := req.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = time.Now()
	}

	res, err := h.reconciler.Ingest(c.Request.Context(), req.From, req.Message, receivedAt)
	if err != nil {
		h.logger.Error("sms ingest failed", "from", req.From, "err", err)
		middleware.Fail(c, apperr.Wrap(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":           true,
		"log_id":       res.LogID,
		"matched":      res.Matched,
		"order_id":     res.OrderID,
		"automatic":    res.Automatic,
		"needs_review": res.NeedsReview,
	})
}
