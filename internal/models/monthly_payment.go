package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PaidMonth is one calendar month covered by a monthly payment.
type PaidMonth struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// String renders the month as YYYY-MM for receipts and reports.
func (m PaidMonth) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, m.Month)
}

// PaidMonths is the JSON column holding the months covered by one
// payment record (the current multi-month shape).
type PaidMonths []PaidMonth

// Value implements driver.Valuer
func (m PaidMonths) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	b, err := json.Marshal([]PaidMonth(m))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (m *PaidMonths) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported type for PaidMonths: %T", value)
	}
	return json.Unmarshal(raw, (*[]PaidMonth)(m))
}

// MonthlyPayment is one recorded payment covering one or more calendar
// months of the recurring fee for one connection. Records migrated from
// the old system carry a single (Month, Year) pair instead of the
// MonthsPaid list; both shapes count toward the paid-month set.
type MonthlyPayment struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	ConnectionID    uint            `gorm:"not null;index" json:"connection_id"`
	Month           *int            `json:"month"`
	Year            *int            `json:"year"`
	MonthsPaid      PaidMonths      `gorm:"type:jsonb" json:"months_paid"`
	PaymentDate     time.Time       `gorm:"type:date;not null;index" json:"payment_date"`
	ReceiptNumber   string          `gorm:"uniqueIndex;not null" json:"receipt_number"`
	PaymentGroupID  string          `gorm:"index" json:"payment_group_id"`
	PayerName       string          `gorm:"not null" json:"payer_name"`
	PayerIdentity   string          `json:"payer_identity"`
	AmountPerMonth  decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount_per_month"`
	TotalAmount     decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total_amount"`
	Notes           *string         `gorm:"type:text" json:"notes"`
	CreatedByUserID *uint           `gorm:"index" json:"created_by_user_id"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`

	// Associations
	Connection    Connection `gorm:"foreignKey:ConnectionID" json:"-"`
	CreatedByUser *User      `gorm:"foreignKey:CreatedByUserID" json:"-"`
}

// TableName specifies the table name for MonthlyPayment
func (MonthlyPayment) TableName() string {
	return "monthly_payments"
}

// CoveredMonths expands the record into the months it pays for,
// handling both the legacy single-month shape and the current list.
func (p *MonthlyPayment) CoveredMonths() []PaidMonth {
	if len(p.MonthsPaid) > 0 {
		return p.MonthsPaid
	}
	if p.Month != nil && p.Year != nil {
		return []PaidMonth{{Year: *p.Year, Month: *p.Month}}
	}
	return nil
}
