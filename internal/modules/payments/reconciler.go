package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"delguur.mn/app/internal/modules/orders"
	"delguur.mn/app/internal/sms"
)

type ReconcileResult struct {
	LogID       string
	Matched     bool
	OrderID     string
	Automatic   bool
	NeedsReview bool
}

// Reconciler binds parsed bank SMS to pending orders. Designed for
// at-least-once delivery: every entry point is safe to retry because the
// order transition is a single status-gated conditional update.
type Reconciler struct {
	db     *gorm.DB
	orders *orders.Repo
	logger *slog.Logger

	// Maximum allowed difference between the order total and the parsed
	// amount before the match is routed to manual review.
	tolerance decimal.Decimal
}

func NewReconciler(db *gorm.DB, ordersRepo *orders.Repo) *Reconciler {
	return &Reconciler{db: db, orders: ordersRepo, logger: slog.Default()}
}

func (s *Reconciler) SetLogger(logger *slog.Logger) { s.logger = logger }

func (s *Reconciler) SetAmountTolerance(d decimal.Decimal) { s.tolerance = d }

// Ingest is the transport-agnostic entry point: raw SMS in, reconciliation
// outcome out. The SMS gateway (or a polling job) retries on error.
func (s *Reconciler) Ingest(ctx context.Context, from, message string, receivedAt time.Time) (ReconcileResult, error) {
	return s.Reconcile(ctx, sms.Parse(message, from), receivedAt)
}

func (s *Reconciler) Reconcile(ctx context.Context, parsed sms.ParsedPayment, receivedAt time.Time) (ReconcileResult, error) {
	// Durability first: the inbound signal is persisted before any
	// matching attempt, rejects included. A failed write propagates so
	// the gateway redelivers.
	entry, err := s.appendLog(ctx, parsed, receivedAt)
	if err != nil {
		s.logger.ErrorContext(ctx, "payment log write failed", "from", parsed.From, "err", err)
		return ReconcileResult{}, err
	}
	res := ReconcileResult{LogID: entry.ID}

	if !parsed.IsValid || parsed.PaymentCode == "" {
		s.logger.InfoContext(ctx, "payment sms not matchable",
			"log_id", entry.ID, "incoming", parsed.IsIncoming, "valid", parsed.IsValid, "has_code", parsed.PaymentCode != "")
		return res, nil
	}

	candidates, err := s.orders.FindPendingByCode(ctx, parsed.PaymentCode)
	if err != nil {
		return res, err
	}

	switch {
	case len(candidates) == 0:
		// Nothing pending under this code: either an unknown transfer or
		// a redelivery of an already-applied one. Stays open for manual
		// follow-up either way.
		s.logger.InfoContext(ctx, "payment unmatched", "log_id", entry.ID, "code", parsed.PaymentCode)
		return res, nil

	case len(candidates) > 1:
		// Uniqueness invariant violated. Guessing here could complete the
		// wrong order, so never auto-resolve.
		s.logger.WarnContext(ctx, "duplicate pending payment code",
			"log_id", entry.ID, "code", parsed.PaymentCode, "orders", len(candidates))
		if err := s.flagReview(ctx, entry.ID, "duplicate pending payment code"); err != nil {
			return res, err
		}
		res.NeedsReview = true
		return res, nil
	}

	order := candidates[0]

	if diff := order.TotalAmount.Sub(parsed.Amount.Decimal).Abs(); diff.Cmp(s.tolerance) > 0 {
		s.logger.WarnContext(ctx, "payment amount mismatch",
			"log_id", entry.ID, "order_id", order.ID,
			"expected", order.TotalAmount, "received", parsed.Amount.Decimal)
		if err := s.flagReview(ctx, entry.ID, "amount mismatch: expected "+order.TotalAmount.String()+", received "+parsed.Amount.Decimal.String()); err != nil {
			return res, err
		}
		res.NeedsReview = true
		return res, nil
	}

	details := orders.PaymentDetails{
		Method:                "bank_transfer",
		TransactionID:         entry.ID,
		Amount:                parsed.Amount,
		PaymentCode:           parsed.PaymentCode,
		SenderName:            parsed.From,
		BankName:              parsed.BankName,
		ReceivedAt:            &receivedAt,
		RawSMS:                parsed.RawMessage,
		VerifiedAutomatically: true,
		ManuallyMatched:       false,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := s.orders.MarkPaidIfPending(ctx, tx, order.ID, details)
		if err != nil {
			return err
		}
		if !ok {
			// A concurrent delivery won the conditional update between
			// our lookup and now. This one stays unmatched.
			return nil
		}
		if err := s.markLogMatched(ctx, tx, entry.ID, order.ID, true, nil); err != nil {
			return err
		}
		res.Matched = true
		res.OrderID = order.ID
		res.Automatic = true
		return nil
	})
	if err != nil {
		return res, err
	}

	if res.Matched {
		s.logger.InfoContext(ctx, "payment matched",
			"log_id", entry.ID, "order_id", order.ID, "code", parsed.PaymentCode, "amount", parsed.Amount.Decimal)
	} else {
		s.logger.InfoContext(ctx, "payment lost conditional update, left unmatched",
			"log_id", entry.ID, "order_id", order.ID)
	}
	return res, nil
}

func (s *Reconciler) appendLog(ctx context.Context, parsed sms.ParsedPayment, receivedAt time.Time) (PaymentLog, error) {
	snapshot, err := json.Marshal(map[string]any{
		"amount":      parsed.Amount,
		"paymentCode": parsed.PaymentCode,
		"bankName":    parsed.BankName,
		"date":        parsed.Date,
		"isIncoming":  parsed.IsIncoming,
		"isValid":     parsed.IsValid,
	})
	if err != nil {
		return PaymentLog{}, fmt.Errorf("marshal parse snapshot: %w", err)
	}

	now := time.Now()
	entry := PaymentLog{
		ID:           uuid.NewString(),
		From:         parsed.From,
		Message:      parsed.RawMessage,
		ReceivedAt:   receivedAt,
		ParsedAmount: parsed.Amount,
		ParsedCode:   parsed.PaymentCode,
		ParsedBank:   parsed.BankName,
		ParsedDate:   parsed.Date,
		IsIncoming:   parsed.IsIncoming,
		IsValid:      parsed.IsValid,
		ParsedJSON:   datatypes.JSON(snapshot),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return PaymentLog{}, err
	}
	return entry, nil
}

func (s *Reconciler) flagReview(ctx context.Context, logID, reason string) error {
	reason = truncate(reason, 250)
	return s.db.WithContext(ctx).Model(&PaymentLog{}).
		Where("id = ?", logID).
		Updates(map[string]any{
			"needs_review":  true,
			"review_reason": reason,
			"updated_at":    time.Now(),
		}).Error
}

// markLogMatched flips an unmatched entry to matched. The matched = false
// guard keeps the flip one-way.
func (s *Reconciler) markLogMatched(ctx context.Context, tx *gorm.DB, logID, orderID string, automatic bool, operatorID *string) error {
	if tx == nil {
		tx = s.db
	}
	return tx.WithContext(ctx).Model(&PaymentLog{}).
		Where("id = ? AND matched = ?", logID, false).
		Updates(map[string]any{
			"matched":               true,
			"matched_order_id":      orderID,
			"matched_automatically": automatic,
			"matched_by":            operatorID,
			"needs_review":          false,
			"review_reason":         nil,
			"updated_at":            time.Now(),
		}).Error
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[:n]
}
