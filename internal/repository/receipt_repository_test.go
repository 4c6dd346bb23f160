package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/jcastellanos/aguadora-api/internal/models"
)

// newTestDB opens a throwaway sqlite database with the payment tables
// migrated. The raw SQL in the repositories under test sticks to
// functions both Postgres and sqlite implement.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		TranslateError:                           true,
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	if err := db.AutoMigrate(
		&models.MonthlyPayment{},
		&models.CoveredMonth{},
		&models.Plan{},
		&models.PlanPayment{},
		&models.OtherPayment{},
		&models.LegacyPayment{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedMonthlyPayment(t *testing.T, db *gorm.DB, receipt string) {
	t.Helper()
	err := db.Create(&models.MonthlyPayment{
		ConnectionID:   1,
		MonthsPaid:     models.PaidMonths{{Year: 2025, Month: 1}},
		PaymentDate:    time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
		ReceiptNumber:  receipt,
		PayerName:      "Ana Pérez",
		AmountPerMonth: decimal.NewFromInt(10),
		TotalAmount:    decimal.NewFromInt(10),
	}).Error
	assert.NoError(t, err)
}

func seedPlanPayment(t *testing.T, db *gorm.DB, installment int, receipt string) {
	t.Helper()
	err := db.Create(&models.PlanPayment{
		PlanID:            1,
		InstallmentNumber: installment,
		PaymentDate:       time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC),
		ReceiptNumber:     receipt,
		PayerName:         "Ana Pérez",
		AmountPaid:        decimal.NewFromInt(100),
	}).Error
	assert.NoError(t, err)
}

func seedOtherPayment(t *testing.T, db *gorm.DB, receipt string) *models.OtherPayment {
	t.Helper()
	op := &models.OtherPayment{
		ConnectionID:  1,
		Concept:       "Reconexión",
		Amount:        decimal.NewFromInt(25),
		PaymentDate:   time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC),
		ReceiptNumber: receipt,
		PayerName:     "Ana Pérez",
	}
	assert.NoError(t, db.Create(op).Error)
	return op
}

func TestReceiptRepository_MaxReceiptNumber(t *testing.T) {
	db := newTestDB(t)
	repo := NewReceiptRepository(db)
	ctx := context.Background()

	t.Run("Empty Tables Report Zero", func(t *testing.T) {
		max, err := repo.MaxReceiptNumber(ctx)
		assert.NoError(t, err)
		assert.Equal(t, int64(0), max)
	})

	t.Run("Max Spans All Four Tables", func(t *testing.T) {
		seedMonthlyPayment(t, db, "000012")
		seedPlanPayment(t, db, 1, "000047")
		assert.NoError(t, db.Create(&models.LegacyPayment{ReceiptNumber: "000008"}).Error)

		// The OP- prefix is stripped before comparing
		seedOtherPayment(t, db, "OP-000051")

		max, err := repo.MaxReceiptNumber(ctx)
		assert.NoError(t, err)
		assert.Equal(t, int64(51), max)
	})

	t.Run("Soft-Deleted Rows Keep Their Number", func(t *testing.T) {
		op := seedOtherPayment(t, db, "OP-000099")
		assert.NoError(t, db.Delete(op).Error)

		max, err := repo.MaxReceiptNumber(ctx)
		assert.NoError(t, err)
		assert.Equal(t, int64(99), max)
	})
}
