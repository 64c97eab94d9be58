package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	PaymentPending  = "pending"
	PaymentPaid     = "paid"
	PaymentFailed   = "failed"
	PaymentRefunded = "refunded"
)

// PaymentDetails is written once, when an inbound bank transfer is bound to
// the order (automatically or by an operator). Columns live on the orders
// row under the payment_ prefix.
type PaymentDetails struct {
	Method                string              `gorm:"type:varchar(32)"`
	TransactionID         string              `gorm:"type:varchar(128)"`
	Amount                decimal.NullDecimal `gorm:"type:decimal(20,2)"`
	PaymentCode           string              `gorm:"type:varchar(16)"`
	SenderName            string              `gorm:"type:varchar(128)"`
	BankName              string              `gorm:"type:varchar(64)"`
	ReceivedAt            *time.Time          `gorm:"type:datetime(3)"`
	RawSMS                string              `gorm:"type:text"`
	VerifiedAutomatically bool
	ManuallyMatched       bool
	MatchedBy             *string `gorm:"type:char(36)"`
}

type Order struct {
	ID          string          `gorm:"type:char(36);primaryKey"`
	UserID      *string         `gorm:"type:char(36);index:ix_orders_user_id"`
	TotalAmount decimal.Decimal `gorm:"type:decimal(20,2);not null"`
	Currency    string          `gorm:"type:char(3);not null"`

	// Customer-facing transfer reference (ORD-XXXX). Unique when set;
	// assigned once at creation and never reassigned.
	PaymentCode   *string        `gorm:"type:varchar(16);uniqueIndex:ux_orders_payment_code"`
	PaymentStatus string         `gorm:"type:varchar(16);not null;index:ix_orders_payment_status"`
	Payment       PaymentDetails `gorm:"embedded;embeddedPrefix:payment_"`

	CreatedAt time.Time `gorm:"type:datetime(3);not null"`
	UpdatedAt time.Time `gorm:"type:datetime(3);not null"`
}

func (Order) TableName() string { return "orders" }
