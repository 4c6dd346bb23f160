package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/jcastellanos/aguadora-api/internal/models"
)

// PlanRepository defines the interface for installment plan data access
type PlanRepository interface {
	WithTx(tx *gorm.DB) PlanRepository
	FindByID(ctx context.Context, id uint) (*models.Plan, error)
	FindByIDWithPayments(ctx context.Context, id uint) (*models.Plan, error)
	FindByConnection(ctx context.Context, connectionID uint) ([]models.Plan, error)
	FindActiveByConnection(ctx context.Context, connectionID uint) ([]models.Plan, error)
	HasActivePlan(ctx context.Context, connectionID uint, planType string) (bool, error)
	Create(ctx context.Context, plan *models.Plan) error
	Update(ctx context.Context, plan *models.Plan) error
	Delete(ctx context.Context, id uint) error

	FindPayment(ctx context.Context, planID uint, installmentNumber int) (*models.PlanPayment, error)
	FindPaymentByID(ctx context.Context, paymentID uint) (*models.PlanPayment, error)
	FindPaymentsByDateRange(ctx context.Context, from, to string) ([]models.PlanPayment, error)
	CreatePayment(ctx context.Context, payment *models.PlanPayment) error
	DeletePayment(ctx context.Context, paymentID uint) error
}

type planRepository struct {
	db *gorm.DB
}

// NewPlanRepository creates a new plan repository
func NewPlanRepository(db *gorm.DB) PlanRepository {
	return &planRepository{db: db}
}

// WithTx returns a copy bound to the given transaction. A nil tx
// returns the repository unchanged.
func (r *planRepository) WithTx(tx *gorm.DB) PlanRepository {
	if tx == nil {
		return r
	}
	return &planRepository{db: tx}
}

func (r *planRepository) FindByID(ctx context.Context, id uint) (*models.Plan, error) {
	var plan models.Plan
	err := r.db.WithContext(ctx).First(&plan, id).Error
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *planRepository) FindByIDWithPayments(ctx context.Context, id uint) (*models.Plan, error) {
	var plan models.Plan
	err := r.db.WithContext(ctx).
		Preload("Payments", func(db *gorm.DB) *gorm.DB {
			return db.Order("installment_number ASC")
		}).
		First(&plan, id).Error
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *planRepository) FindByConnection(ctx context.Context, connectionID uint) ([]models.Plan, error) {
	var plans []models.Plan
	err := r.db.WithContext(ctx).
		Preload("Payments").
		Where("connection_id = ?", connectionID).
		Order("created_at ASC").
		Find(&plans).Error
	return plans, err
}

func (r *planRepository) FindActiveByConnection(ctx context.Context, connectionID uint) ([]models.Plan, error) {
	var plans []models.Plan
	err := r.db.WithContext(ctx).
		Preload("Payments").
		Where("connection_id = ? AND status = ?", connectionID, models.PlanStatusActive).
		Find(&plans).Error
	return plans, err
}

func (r *planRepository) HasActivePlan(ctx context.Context, connectionID uint, planType string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Plan{}).
		Where("connection_id = ? AND plan_type = ? AND status = ?", connectionID, planType, models.PlanStatusActive).
		Count(&count).Error
	return count > 0, err
}

func (r *planRepository) Create(ctx context.Context, plan *models.Plan) error {
	return r.db.WithContext(ctx).Create(plan).Error
}

func (r *planRepository) Update(ctx context.Context, plan *models.Plan) error {
	// Omit associations so saving a plan never re-inserts payments the
	// caller loaded earlier.
	return r.db.WithContext(ctx).Omit("Payments", "Connection").Save(plan).Error
}

func (r *planRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Plan{}, id).Error
}

func (r *planRepository) FindPayment(ctx context.Context, planID uint, installmentNumber int) (*models.PlanPayment, error) {
	var payment models.PlanPayment
	err := r.db.WithContext(ctx).
		Where("plan_id = ? AND installment_number = ?", planID, installmentNumber).
		First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *planRepository) FindPaymentByID(ctx context.Context, paymentID uint) (*models.PlanPayment, error) {
	var payment models.PlanPayment
	err := r.db.WithContext(ctx).First(&payment, paymentID).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *planRepository) FindPaymentsByDateRange(ctx context.Context, from, to string) ([]models.PlanPayment, error) {
	var payments []models.PlanPayment
	err := r.db.WithContext(ctx).
		Preload("Plan").
		Where("payment_date BETWEEN ? AND ?", from, to).
		Order("payment_date ASC, id ASC").
		Find(&payments).Error
	return payments, err
}

func (r *planRepository) CreatePayment(ctx context.Context, payment *models.PlanPayment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *planRepository) DeletePayment(ctx context.Context, paymentID uint) error {
	return r.db.WithContext(ctx).Delete(&models.PlanPayment{}, paymentID).Error
}
