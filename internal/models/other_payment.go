package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OtherPayment is an ad-hoc fee payment (reconnection, repair, fine)
// outside the recurring billing cycle. These records never influence a
// connection's payment-status set; they exist for manual billing and
// history only. Their receipt numbers carry the OP- prefix in storage
// but draw from the same numeric sequence as every other payment kind,
// so soft-deleted rows still reserve their number.
type OtherPayment struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	ConnectionID    uint            `gorm:"not null;index" json:"connection_id"`
	Concept         string          `gorm:"not null" json:"concept"`
	Amount          decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"`
	PaymentDate     time.Time       `gorm:"type:date;not null" json:"payment_date"`
	ReceiptNumber   string          `gorm:"uniqueIndex;not null" json:"receipt_number"`
	PayerName       string          `gorm:"not null" json:"payer_name"`
	PayerIdentity   string          `json:"payer_identity"`
	Notes           *string         `gorm:"type:text" json:"notes"`
	CreatedByUserID *uint           `gorm:"index" json:"created_by_user_id"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	DeletedAt       gorm.DeletedAt  `gorm:"index" json:"-"`

	// Associations
	Connection    Connection `gorm:"foreignKey:ConnectionID" json:"-"`
	CreatedByUser *User      `gorm:"foreignKey:CreatedByUserID" json:"-"`
}

// TableName specifies the table name for OtherPayment
func (OtherPayment) TableName() string {
	return "other_payments"
}

// ReceiptPrefix is prepended to other-payment receipt numbers in
// storage. It is stripped for numeric comparison when sequencing.
const ReceiptPrefix = "OP-"

// LegacyPayment is a receipt record imported from the association's
// previous paper-based system. Rows are read-only; the table only
// participates in receipt-number sequencing.
type LegacyPayment struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	ConnectionID  *uint           `gorm:"index" json:"connection_id"`
	Description   string          `json:"description"`
	Amount        decimal.Decimal `gorm:"type:decimal(10,2)" json:"amount"`
	PaymentDate   *time.Time      `gorm:"type:date" json:"payment_date"`
	ReceiptNumber string          `gorm:"uniqueIndex;not null" json:"receipt_number"`
	CreatedAt     time.Time       `json:"created_at"`
}

// TableName specifies the table name for LegacyPayment
func (LegacyPayment) TableName() string {
	return "payments"
}
