package orders

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// createRetries bounds the collision retry loop in Create. The code space is
// 32^4; collisions stay rare until the pending set grows far beyond what a
// single shop sees.
const createRetries = 5

type Repo struct{ db *gorm.DB }

func NewRepo(db *gorm.DB) *Repo { return &Repo{db: db} }

// Create persists a new order with a freshly generated payment code,
// retrying generation when the unique index reports a collision.
func (r *Repo) Create(ctx context.Context, o *Order) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.PaymentStatus == "" {
		o.PaymentStatus = PaymentPending
	}
	now := time.Now()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	o.UpdatedAt = now

	for attempt := 0; attempt < createRetries; attempt++ {
		code, err := GeneratePaymentCode()
		if err != nil {
			return err
		}
		o.PaymentCode = &code

		err = r.db.WithContext(ctx).Create(o).Error
		if err == nil {
			return nil
		}
		if isDupKey(err) {
			continue
		}
		return err
	}
	return ErrCodeExhausted
}

// FindPendingByCode returns every pending order carrying the given payment
// code. More than one result is an integrity violation the caller must not
// auto-resolve.
func (r *Repo) FindPendingByCode(ctx context.Context, code string) ([]Order, error) {
	var out []Order
	err := r.db.WithContext(ctx).
		Where("payment_code = ? AND payment_status = ?", code, PaymentPending).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// MarkPaidIfPending transitions payment_status pending -> paid and writes
// the payment details as a single conditional update. Returns false when
// the condition did not hold (already paid, or order gone); that is the
// idempotency gate for redelivered SMS.
func (r *Repo) MarkPaidIfPending(ctx context.Context, tx *gorm.DB, orderID string, d PaymentDetails) (bool, error) {
	if tx == nil {
		tx = r.db
	}
	res := tx.WithContext(ctx).Model(&Order{}).
		Where("id = ? AND payment_status = ?", orderID, PaymentPending).
		Updates(map[string]any{
			"payment_status":                 PaymentPaid,
			"payment_method":                 d.Method,
			"payment_transaction_id":         d.TransactionID,
			"payment_amount":                 d.Amount,
			"payment_payment_code":           d.PaymentCode,
			"payment_sender_name":            d.SenderName,
			"payment_bank_name":              d.BankName,
			"payment_received_at":            d.ReceivedAt,
			"payment_raw_sms":                d.RawSMS,
			"payment_verified_automatically": d.VerifiedAutomatically,
			"payment_manually_matched":       d.ManuallyMatched,
			"payment_matched_by":             d.MatchedBy,
			"updated_at":                     time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *Repo) Get(ctx context.Context, id string) (Order, error) {
	var o Order
	err := r.db.WithContext(ctx).First(&o, "id = ?", id).Error
	return o, err
}

func isDupKey(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1062
	}
	// sqlite (tests) reports duplicates as a plain constraint error
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
