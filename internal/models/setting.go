package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Setting is a persisted key-value system setting.
type Setting struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Key       string    `gorm:"uniqueIndex;not null" json:"key"`
	Value     string    `gorm:"not null" json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for Setting
func (Setting) TableName() string {
	return "settings"
}

// Setting keys
const (
	SettingMonthlyFee       = "monthly_fee"
	SettingBillingStartDate = "monthly_billing_start_date"
)

// Defaults applied when a setting row does not exist yet. The billing
// start date is the cutover from the old paper system: connections
// migrated from it are never billed for earlier months.
const (
	DefaultBillingStartDate = "2025-01-01"
)

// DefaultMonthlyFee is the fee applied before an administrator sets one.
var DefaultMonthlyFee = decimal.RequireFromString("10.00")

// BillingPolicy is the value object handed to the billing engines. It
// is built from persisted settings by the policy service; tests can
// construct arbitrary values directly.
type BillingPolicy struct {
	MonthlyFee       decimal.Decimal
	BillingStartDate time.Time
}
