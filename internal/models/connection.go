package models

import (
	"time"

	"gorm.io/gorm"
)

// Connection represents one physical water-service connection (paja).
// Its payment-status set is derived state: it is mutated only by the
// payment-status recompute and the plan mora-flag sync, never directly
// by handlers.
type Connection struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	OwnerID       uint           `gorm:"not null;index" json:"owner_id"`
	Community     string         `gorm:"index" json:"community"`
	Status        string         `gorm:"default:active;not null;index" json:"status"`
	PaymentStatus StatusSet      `gorm:"type:jsonb;not null" json:"payment_status"`
	Note          *string        `gorm:"type:text" json:"note"`
	CreatedAt     time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`

	// Associations
	Owner           Owner            `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	Plans           []Plan           `gorm:"foreignKey:ConnectionID" json:"plans,omitempty"`
	MonthlyPayments []MonthlyPayment `gorm:"foreignKey:ConnectionID" json:"monthly_payments,omitempty"`
	OtherPayments   []OtherPayment   `gorm:"foreignKey:ConnectionID" json:"other_payments,omitempty"`
}

// TableName specifies the table name for Connection
func (Connection) TableName() string {
	return "connections"
}

// Connection operational status constants
const (
	ConnectionStatusActive    = "active"
	ConnectionStatusSuspended = "suspended"
)

// BeforeCreate seeds the payment-status set; a new connection has no
// payment history, so it starts current.
func (c *Connection) BeforeCreate(tx *gorm.DB) error {
	if len(c.PaymentStatus) == 0 {
		c.PaymentStatus = NewStatusSet()
	}
	if c.Status == "" {
		c.Status = ConnectionStatusActive
	}
	return nil
}

// IsActive returns true if the connection is operationally active
func (c *Connection) IsActive() bool {
	return c.Status == ConnectionStatusActive
}

// ConnectionResponse is the JSON response format for connections
type ConnectionResponse struct {
	ID            uint      `json:"id"`
	OwnerID       uint      `json:"owner_id"`
	OwnerName     string    `json:"owner_name,omitempty"`
	OwnerIdentity string    `json:"owner_identity,omitempty"`
	Community     string    `json:"community"`
	Status        string    `json:"status"`
	PaymentStatus []string  `json:"payment_status"`
	Note          *string   `json:"note"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ToResponse converts Connection to ConnectionResponse
func (c *Connection) ToResponse() ConnectionResponse {
	resp := ConnectionResponse{
		ID:            c.ID,
		OwnerID:       c.OwnerID,
		Community:     c.Community,
		Status:        c.Status,
		PaymentStatus: c.PaymentStatus,
		Note:          c.Note,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
	if c.Owner.ID != 0 {
		resp.OwnerName = c.Owner.FullName
		resp.OwnerIdentity = c.Owner.Identity
	}
	return resp
}
