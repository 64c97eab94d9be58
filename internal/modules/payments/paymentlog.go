package payments

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// PaymentLog is the append-only record of every inbound bank SMS, written
// before any matching is attempted. Rejects are kept too; a mis-parsed
// message must stay reviewable after the fact. The only mutation ever
// applied is the unmatched -> matched flip (plus review flags).
type PaymentLog struct {
	ID         string    `gorm:"type:char(36);primaryKey"`
	From       string    `gorm:"type:varchar(32);not null"`
	Message    string    `gorm:"type:text;not null"`
	ReceivedAt time.Time `gorm:"type:datetime(3);not null;index:ix_payment_logs_received_at"`

	// Extraction snapshot. Typed columns drive queries; the JSON copy
	// preserves the complete parser output for forensics.
	ParsedAmount decimal.NullDecimal `gorm:"type:decimal(20,2)"`
	ParsedCode   string              `gorm:"type:varchar(32);index:ix_payment_logs_parsed_code"`
	ParsedBank   string              `gorm:"type:varchar(64)"`
	ParsedDate   string              `gorm:"type:varchar(32)"`
	IsIncoming   bool                `gorm:"not null"`
	IsValid      bool                `gorm:"not null"`
	ParsedJSON   datatypes.JSON      `gorm:"type:json"`

	Matched              bool    `gorm:"not null;index:ix_payment_logs_matched,priority:1"`
	MatchedOrderID       *string `gorm:"type:char(36);index:ix_payment_logs_matched_order"`
	MatchedAutomatically bool    `gorm:"not null"`
	MatchedBy            *string `gorm:"type:char(36)"`

	// Set when automatic matching refused to proceed (duplicate pending
	// codes, amount discrepancy) and an operator needs to look.
	NeedsReview  bool    `gorm:"not null"`
	ReviewReason *string `gorm:"type:varchar(255)"`

	CreatedAt time.Time `gorm:"type:datetime(3);not null;index:ix_payment_logs_matched,priority:2"`
	UpdatedAt time.Time `gorm:"type:datetime(3);not null"`
}

func (PaymentLog) TableName() string { return "payment_logs" }
