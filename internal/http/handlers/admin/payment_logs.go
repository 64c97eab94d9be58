package admin

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"delguur.mn/app/internal/http/middleware"
	"delguur.mn/app/internal/http/validation"
	"delguur.mn/app/internal/modules/payments"
	"delguur.mn/app/internal/shared/apperr"
)

// PaymentLogsHandler is the operator surface over the audit log: list
// unmatched transfers and bind one to an order by hand.
type PaymentLogsHandler struct {
	logger     *slog.Logger
	reconciler *payments.Reconciler
}

func NewPaymentLogsHandler(logger *slog.Logger, rec *payments.Reconciler) *PaymentLogsHandler {
	return &PaymentLogsHandler{logger: logger, reconciler: rec}
}

type paymentLogView struct {
	ID                   string    `json:"id"`
	From                 string    `json:"from"`
	Message              string    `json:"message"`
	ReceivedAt           time.Time `json:"received_at"`
	ParsedAmount         *string   `json:"parsed_amount"`
	ParsedCode           string    `json:"parsed_code,omitempty"`
	ParsedBank           string    `json:"parsed_bank,omitempty"`
	ParsedDate           string    `json:"parsed_date,omitempty"`
	IsIncoming           bool      `json:"is_incoming"`
	IsValid              bool      `json:"is_valid"`
	Matched              bool      `json:"matched"`
	MatchedOrderID       *string   `json:"matched_order_id"`
	MatchedAutomatically bool      `json:"matched_automatically"`
	MatchedBy            *string   `json:"matched_by"`
	NeedsReview          bool      `json:"needs_review"`
	ReviewReason         *string   `json:"review_reason"`
}

func toView(e payments.PaymentLog) paymentLogView {
	v := paymentLogView{
		ID:                   e.ID,
		From:                 e.From,
		Message:              e.Message,
		ReceivedAt:           e.ReceivedAt,
		ParsedCode:           e.ParsedCode,
		ParsedBank:           e.ParsedBank,
		ParsedDate:           e.ParsedDate,
		IsIncoming:           e.IsIncoming,
		IsValid:              e.IsValid,
		Matched:              e.Matched,
		MatchedOrderID:       e.MatchedOrderID,
		MatchedAutomatically: e.MatchedAutomatically,
		MatchedBy:            e.MatchedBy,
		NeedsReview:          e.NeedsReview,
		ReviewReason:         e.ReviewReason,
	}
	if e.ParsedAmount.Valid {
		s := e.ParsedAmount.Decimal.String()
		v.ParsedAmount = &s
	}
	return v
}

// GET /admin/payment-logs?matched=false&needs_review=&page=1&page_size=20
func (h *PaymentLogsHandler) List(c *gin.Context) {
	params := payments.ListLogsParams{}

	if s := c.Query("matched"); s != "" {
		b, err := strconv.ParseBool(s)
		if err != nil {
			middleware.Fail(c, apperr.InvalidErr("Invalid matched filter.", nil))
			return
		}
		params.Matched = &b
	}
	if s := c.Query("needs_review"); s != "" {
		b, err := strconv.ParseBool(s)
		if err != nil {
			middleware.Fail(c, apperr.InvalidErr("Invalid needs_review filter.", nil))
			return
		}
		params.NeedsReview = &b
	}
	params.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	params.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))

	out, err := h.reconciler.ListLogs(c.Request.Context(), params)
	if err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}

	items := make([]paymentLogView, len(out.Items))
	for i, e := range out.Items {
		items[i] = toView(e)
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "total": out.Total})
}

// GET /admin/payment-logs/:id
func (h *PaymentLogsHandler) Get(c *gin.Context) {
	entry, err := h.reconciler.GetLog(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			middleware.Fail(c, apperr.NotFoundErr("Payment log entry not found."))
			return
		}
		middleware.Fail(c, apperr.Wrap(err))
		return
	}
	c.JSON(http.StatusOK, toView(entry))
}

type manualMatchRequest struct {
	OrderID    string `json:"order_id" binding:"required,uuid4"`
	OperatorID string `json:"operator_id" binding:"required,uuid4"`
}

// POST /admin/payment-logs/:id/match
func (h *PaymentLogsHandler) Match(c *gin.Context) {
	var req manualMatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fields := validation.FromBindError(err, &req)
		middleware.Fail(c, apperr.InvalidErr("Invalid match request.", fields))
		return
	}

	res, err := h.reconciler.ManualMatch(c.Request.Context(), c.Param("id"), req.OrderID, req.OperatorID)
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			middleware.Fail(c, apperr.NotFoundErr("Payment log entry or order not found."))
		case errors.Is(err, payments.ErrAlreadyMatched):
			middleware.Fail(c, apperr.ConflictErr("This payment was already matched."))
		case errors.Is(err, payments.ErrOrderNotPending):
			middleware.Fail(c, apperr.ConflictErr("Order is not awaiting payment."))
		default:
			middleware.Fail(c, apperr.Wrap(err))
		}
		return
	}

	h.logger.Info("manual match applied",
		"log_id", res.LogID, "order_id", res.OrderID, "operator_id", req.OperatorID)
	c.JSON(http.StatusOK, gin.H{"ok": true, "order_id": res.OrderID})
}
