package models

import (
	"time"

	"gorm.io/gorm"
)

// Owner represents a property owner registered with the association.
// One owner may hold several water connections.
type Owner struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	FullName  string         `gorm:"not null" json:"full_name"`
	Identity  string         `gorm:"uniqueIndex;not null" json:"identity"`
	Phone     *string        `json:"phone"`
	Email     *string        `json:"email"`
	Community string         `gorm:"index" json:"community"`
	Address   *string        `json:"address"`
	Note      *string        `gorm:"type:text" json:"note"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Associations
	Connections []Connection `gorm:"foreignKey:OwnerID" json:"connections,omitempty"`
}

// TableName specifies the table name for Owner
func (Owner) TableName() string {
	return "owners"
}

// OwnerResponse is the JSON response format for owners
type OwnerResponse struct {
	ID          uint      `json:"id"`
	FullName    string    `json:"full_name"`
	Identity    string    `json:"identity"`
	Phone       *string   `json:"phone"`
	Email       *string   `json:"email"`
	Community   string    `json:"community"`
	Address     *string   `json:"address"`
	Note        *string   `json:"note"`
	Connections int       `json:"connections"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ToResponse converts Owner to OwnerResponse
func (o *Owner) ToResponse() OwnerResponse {
	return OwnerResponse{
		ID:          o.ID,
		FullName:    o.FullName,
		Identity:    o.Identity,
		Phone:       o.Phone,
		Email:       o.Email,
		Community:   o.Community,
		Address:     o.Address,
		Note:        o.Note,
		Connections: len(o.Connections),
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
}
