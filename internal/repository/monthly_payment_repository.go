package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/jcastellanos/aguadora-api/internal/models"
)

// ErrMonthAlreadyCovered reports that another record already covers one
// of the months being written. It comes from the unique index on
// covered_months, not from a read, so it also catches two concurrent
// recordings of the same month.
var ErrMonthAlreadyCovered = errors.New("el mes ya está cubierto por otro pago")

// MonthlyPaymentRepository defines the interface for monthly fee payment data access
type MonthlyPaymentRepository interface {
	WithTx(tx *gorm.DB) MonthlyPaymentRepository
	FindByID(ctx context.Context, id uint) (*models.MonthlyPayment, error)
	FindByConnection(ctx context.Context, connectionID uint) ([]models.MonthlyPayment, error)
	FindByGroup(ctx context.Context, paymentGroupID string) ([]models.MonthlyPayment, error)
	FindByDateRange(ctx context.Context, from, to string) ([]models.MonthlyPayment, error)
	ExistsForMonth(ctx context.Context, connectionID uint, year, month int) (bool, error)
	Create(ctx context.Context, payment *models.MonthlyPayment) error
}

type monthlyPaymentRepository struct {
	db *gorm.DB
}

// NewMonthlyPaymentRepository creates a new monthly payment repository
func NewMonthlyPaymentRepository(db *gorm.DB) MonthlyPaymentRepository {
	return &monthlyPaymentRepository{db: db}
}

// WithTx returns a copy bound to the given transaction. A nil tx
// returns the repository unchanged.
func (r *monthlyPaymentRepository) WithTx(tx *gorm.DB) MonthlyPaymentRepository {
	if tx == nil {
		return r
	}
	return &monthlyPaymentRepository{db: tx}
}

func (r *monthlyPaymentRepository) FindByID(ctx context.Context, id uint) (*models.MonthlyPayment, error) {
	var payment models.MonthlyPayment
	err := r.db.WithContext(ctx).First(&payment, id).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *monthlyPaymentRepository) FindByConnection(ctx context.Context, connectionID uint) ([]models.MonthlyPayment, error) {
	var payments []models.MonthlyPayment
	err := r.db.WithContext(ctx).
		Where("connection_id = ?", connectionID).
		Order("payment_date ASC, id ASC").
		Find(&payments).Error
	return payments, err
}

func (r *monthlyPaymentRepository) FindByGroup(ctx context.Context, paymentGroupID string) ([]models.MonthlyPayment, error) {
	var payments []models.MonthlyPayment
	err := r.db.WithContext(ctx).
		Where("payment_group_id = ?", paymentGroupID).
		Order("id ASC").
		Find(&payments).Error
	return payments, err
}

func (r *monthlyPaymentRepository) FindByDateRange(ctx context.Context, from, to string) ([]models.MonthlyPayment, error) {
	var payments []models.MonthlyPayment
	err := r.db.WithContext(ctx).
		Where("payment_date BETWEEN ? AND ?", from, to).
		Order("payment_date ASC, id ASC").
		Find(&payments).Error
	return payments, err
}

// ExistsForMonth reports whether any record already covers the given
// month: either through the months_paid list (jsonb containment) or
// through the legacy single-month columns.
func (r *monthlyPaymentRepository) ExistsForMonth(ctx context.Context, connectionID uint, year, month int) (bool, error) {
	contains := fmt.Sprintf(`[{"year":%d,"month":%d}]`, year, month)

	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.MonthlyPayment{}).
		Where("connection_id = ?", connectionID).
		Where("(months_paid @> ?) OR (year = ? AND month = ?)", contains, year, month).
		Count(&count).Error
	return count > 0, err
}

// Create inserts the payment record together with one covered_months
// row per month it pays for. The unique index on (connection, year,
// month) rejects a month another record already covers; a duplicate
// receipt number keeps surfacing as gorm.ErrDuplicatedKey so the
// allocation retry in the receipt service still fires.
func (r *monthlyPaymentRepository) Create(ctx context.Context, payment *models.MonthlyPayment) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(payment).Error; err != nil {
			return err
		}
		for _, m := range payment.CoveredMonths() {
			covered := models.CoveredMonth{
				ConnectionID:     payment.ConnectionID,
				Year:             m.Year,
				Month:            m.Month,
				MonthlyPaymentID: payment.ID,
			}
			if err := tx.Create(&covered).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return fmt.Errorf("%s: %w", m.String(), ErrMonthAlreadyCovered)
				}
				return err
			}
		}
		return nil
	})
}
