package payments

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"delguur.mn/app/internal/modules/orders"
)

// ManualMatch binds an unmatched log entry to a specific order on an
// operator's say-so. Same conditional order transition as the automatic
// path; the log entry records who matched it.
func (s *Reconciler) ManualMatch(ctx context.Context, logID, orderID, operatorID string) (ReconcileResult, error) {
	var entry PaymentLog
	if err := s.db.WithContext(ctx).First(&entry, "id = ?", logID).Error; err != nil {
		return ReconcileResult{}, err
	}
	if entry.Matched {
		return ReconcileResult{}, ErrAlreadyMatched
	}

	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return ReconcileResult{}, err
	}

	details := orders.PaymentDetails{
		Method:                "bank_transfer",
		TransactionID:         entry.ID,
		Amount:                entry.ParsedAmount,
		PaymentCode:           entry.ParsedCode,
		SenderName:            entry.From,
		BankName:              entry.ParsedBank,
		ReceivedAt:            &entry.ReceivedAt,
		RawSMS:                entry.Message,
		VerifiedAutomatically: false,
		ManuallyMatched:       true,
		MatchedBy:             &operatorID,
	}

	res := ReconcileResult{LogID: entry.ID}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := s.orders.MarkPaidIfPending(ctx, tx, order.ID, details)
		if err != nil {
			return err
		}
		if !ok {
			return ErrOrderNotPending
		}
		if err := s.markLogMatched(ctx, tx, entry.ID, order.ID, false, &operatorID); err != nil {
			return err
		}
		res.Matched = true
		res.OrderID = order.ID
		return nil
	})
	if err != nil {
		return ReconcileResult{}, err
	}

	s.logger.InfoContext(ctx, "payment matched manually",
		"log_id", entry.ID, "order_id", order.ID, "operator_id", operatorID)
	return res, nil
}

type ListLogsParams struct {
	Matched     *bool // nil = all
	NeedsReview *bool
	Page        int
	PageSize    int
}

type ListLogsResult struct {
	Items []PaymentLog
	Total int64
}

// ListLogs pages through the audit log, newest first. Operator tooling
// lists Matched=false to populate the manual-matching queue.
func (s *Reconciler) ListLogs(ctx context.Context, in ListLogsParams) (ListLogsResult, error) {
	page := in.Page
	if page < 1 {
		page = 1
	}
	size := in.PageSize
	if size < 1 || size > 100 {
		size = 20
	}

	q := s.db.WithContext(ctx).Model(&PaymentLog{})
	if in.Matched != nil {
		q = q.Where("matched = ?", *in.Matched)
	}
	if in.NeedsReview != nil {
		q = q.Where("needs_review = ?", *in.NeedsReview)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return ListLogsResult{}, err
	}

	var items []PaymentLog
	if err := q.
		Order("created_at DESC").
		Limit(size).
		Offset((page - 1) * size).
		Find(&items).Error; err != nil {
		return ListLogsResult{}, err
	}

	return ListLogsResult{Items: items, Total: total}, nil
}

func (s *Reconciler) GetLog(ctx context.Context, id string) (PaymentLog, error) {
	var entry PaymentLog
	err := s.db.WithContext(ctx).First(&entry, "id = ?", strings.TrimSpace(id)).Error
	return entry, err
}
