package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/jcastellanos/aguadora-api/internal/models"
)

// OtherPaymentRepository defines the interface for ad-hoc payment data access
type OtherPaymentRepository interface {
	FindByID(ctx context.Context, id uint) (*models.OtherPayment, error)
	FindByConnection(ctx context.Context, connectionID uint) ([]models.OtherPayment, error)
	FindByDateRange(ctx context.Context, from, to string) ([]models.OtherPayment, error)
	Create(ctx context.Context, payment *models.OtherPayment) error
	Delete(ctx context.Context, id uint) error
}

type otherPaymentRepository struct {
	db *gorm.DB
}

// NewOtherPaymentRepository creates a new other payment repository
func NewOtherPaymentRepository(db *gorm.DB) OtherPaymentRepository {
	return &otherPaymentRepository{db: db}
}

func (r *otherPaymentRepository) FindByID(ctx context.Context, id uint) (*models.OtherPayment, error) {
	var payment models.OtherPayment
	err := r.db.WithContext(ctx).First(&payment, id).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *otherPaymentRepository) FindByConnection(ctx context.Context, connectionID uint) ([]models.OtherPayment, error) {
	var payments []models.OtherPayment
	err := r.db.WithContext(ctx).
		Where("connection_id = ?", connectionID).
		Order("payment_date ASC, id ASC").
		Find(&payments).Error
	return payments, err
}

func (r *otherPaymentRepository) FindByDateRange(ctx context.Context, from, to string) ([]models.OtherPayment, error) {
	var payments []models.OtherPayment
	err := r.db.WithContext(ctx).
		Where("payment_date BETWEEN ? AND ?", from, to).
		Order("payment_date ASC, id ASC").
		Find(&payments).Error
	return payments, err
}

func (r *otherPaymentRepository) Create(ctx context.Context, payment *models.OtherPayment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *otherPaymentRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.OtherPayment{}, id).Error
}
