package models

import "time"

// CoveredMonth pins one billed calendar month to the monthly-payment
// record that covered it. The unique index over (connection, year,
// month) is the storage-level guard: of two concurrent recordings of
// the same month, only one can commit. Rows exist for records created
// by this system; migrated records keep their single-month columns and
// are checked through the payment table itself.
type CoveredMonth struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	ConnectionID     uint      `gorm:"not null;uniqueIndex:idx_covered_month,priority:1" json:"connection_id"`
	Year             int       `gorm:"not null;uniqueIndex:idx_covered_month,priority:2" json:"year"`
	Month            int       `gorm:"not null;uniqueIndex:idx_covered_month,priority:3" json:"month"`
	MonthlyPaymentID uint      `gorm:"not null;index" json:"monthly_payment_id"`
	CreatedAt        time.Time `json:"created_at"`
}

// TableName specifies the table name for CoveredMonth
func (CoveredMonth) TableName() string {
	return "covered_months"
}
