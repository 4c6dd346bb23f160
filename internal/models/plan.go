package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Plan represents a fixed-count installment plan attached to one
// connection, covering either an installation cost or a meter cost.
// At most one active plan exists per (connection, plan type).
type Plan struct {
	ID                 uint            `gorm:"primaryKey" json:"id"`
	ConnectionID       uint            `gorm:"not null;index" json:"connection_id"`
	PlanType           string          `gorm:"not null;index" json:"plan_type"`
	TotalAmount        decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total_amount"`
	InstallmentCount   int             `gorm:"not null" json:"installment_count"`
	InstallmentAmount  decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"installment_amount"`
	StartDate          time.Time       `gorm:"type:date;not null" json:"start_date"`
	Status             string          `gorm:"default:active;not null;index" json:"status"`
	CompletedAt        *time.Time      `json:"completed_at"`
	CompletedByUserID  *uint           `json:"completed_by_user_id"`
	CancelledAt        *time.Time      `json:"cancelled_at"`
	CancelledByUserID  *uint           `json:"cancelled_by_user_id"`
	CancellationReason *string         `gorm:"type:text" json:"cancellation_reason"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
	DeletedAt          gorm.DeletedAt  `gorm:"index" json:"-"`

	// Associations
	Connection Connection    `gorm:"foreignKey:ConnectionID" json:"connection,omitempty"`
	Payments   []PlanPayment `gorm:"foreignKey:PlanID" json:"payments,omitempty"`
}

// TableName specifies the table name for Plan
func (Plan) TableName() string {
	return "plans"
}

// Plan status constants
const (
	PlanStatusActive    = "active"
	PlanStatusCompleted = "completed"
	PlanStatusCancelled = "cancelled"
)

// Plan type constants
const (
	PlanTypeInstallation = "installation"
	PlanTypeMeter        = "meter"
)

// Installment count bounds
const (
	MinInstallmentCount = 1
	MaxInstallmentCount = 60
)

// TotalPaid sums the amounts of the loaded payments.
func (p *Plan) TotalPaid() decimal.Decimal {
	total := decimal.Zero
	for _, payment := range p.Payments {
		total = total.Add(payment.AmountPaid)
	}
	return total
}

// Balance returns the outstanding amount, floored at zero. Requires
// Payments to be preloaded.
func (p *Plan) Balance() decimal.Decimal {
	balance := p.TotalAmount.Sub(p.TotalPaid())
	if balance.IsNegative() {
		return decimal.Zero
	}
	return balance
}

// MoraStatus returns the delinquency token this plan type maps to on
// the owning connection.
func (p *Plan) MoraStatus() string {
	if p.PlanType == PlanTypeMeter {
		return StatusDelinquentMeter
	}
	return StatusDelinquentInstallation
}

// MayComplete returns true if the plan can transition to completed
func (p *Plan) MayComplete() bool {
	return p.Status == PlanStatusActive
}

// MayCancel returns true if the plan can be cancelled
func (p *Plan) MayCancel() bool {
	return p.Status == PlanStatusActive || p.Status == PlanStatusCompleted
}

// MayReactivate returns true if the plan can leave the cancelled state
func (p *Plan) MayReactivate() bool {
	return p.Status == PlanStatusCancelled
}

// PlanResponse is the JSON response format for plans
type PlanResponse struct {
	ID                 uint            `json:"id"`
	ConnectionID       uint            `json:"connection_id"`
	PlanType           string          `json:"plan_type"`
	TotalAmount        decimal.Decimal `json:"total_amount"`
	InstallmentCount   int             `json:"installment_count"`
	InstallmentAmount  decimal.Decimal `json:"installment_amount"`
	StartDate          time.Time       `json:"start_date"`
	Status             string          `json:"status"`
	TotalPaid          decimal.Decimal `json:"total_paid"`
	Balance            decimal.Decimal `json:"balance"`
	CompletedAt        *time.Time      `json:"completed_at"`
	CancelledAt        *time.Time      `json:"cancelled_at"`
	CancellationReason *string         `json:"cancellation_reason"`
	CreatedAt          time.Time       `json:"created_at"`
	Payments           []PlanPayment   `json:"payments,omitempty"`
}

// ToResponse converts Plan to PlanResponse
func (p *Plan) ToResponse() PlanResponse {
	return PlanResponse{
		ID:                 p.ID,
		ConnectionID:       p.ConnectionID,
		PlanType:           p.PlanType,
		TotalAmount:        p.TotalAmount,
		InstallmentCount:   p.InstallmentCount,
		InstallmentAmount:  p.InstallmentAmount,
		StartDate:          p.StartDate,
		Status:             p.Status,
		TotalPaid:          p.TotalPaid(),
		Balance:            p.Balance(),
		CompletedAt:        p.CompletedAt,
		CancelledAt:        p.CancelledAt,
		CancellationReason: p.CancellationReason,
		CreatedAt:          p.CreatedAt,
		Payments:           p.Payments,
	}
}

// PlanPayment is one recorded payment against one installment number of
// one plan. Duplicate installment numbers are rejected by the plan
// service and guarded by a unique index.
type PlanPayment struct {
	ID                uint            `gorm:"primaryKey" json:"id"`
	PlanID            uint            `gorm:"not null;index;uniqueIndex:idx_plan_installment,priority:1" json:"plan_id"`
	InstallmentNumber int             `gorm:"not null;uniqueIndex:idx_plan_installment,priority:2" json:"installment_number"`
	PaymentDate       time.Time       `gorm:"type:date;not null" json:"payment_date"`
	ReceiptNumber     string          `gorm:"uniqueIndex;not null" json:"receipt_number"`
	PayerName         string          `gorm:"not null" json:"payer_name"`
	PayerIdentity     string          `json:"payer_identity"`
	AmountPaid        decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount_paid"`
	Notes             *string         `gorm:"type:text" json:"notes"`
	CreatedByUserID   *uint           `gorm:"index" json:"created_by_user_id"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`

	// Associations
	Plan          Plan  `gorm:"foreignKey:PlanID" json:"-"`
	CreatedByUser *User `gorm:"foreignKey:CreatedByUserID" json:"-"`
}

// TableName specifies the table name for PlanPayment
func (PlanPayment) TableName() string {
	return "plan_payments"
}
