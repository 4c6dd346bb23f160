package repository

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"github.com/jcastellanos/aguadora-api/internal/models"
)

func monthlyPaymentCovering(receipt string, months ...models.PaidMonth) *models.MonthlyPayment {
	return &models.MonthlyPayment{
		ConnectionID:   7,
		MonthsPaid:     months,
		PaymentDate:    time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC),
		ReceiptNumber:  receipt,
		PayerName:      "María López",
		AmountPerMonth: decimal.NewFromInt(10),
		TotalAmount:    decimal.NewFromInt(10).Mul(decimal.NewFromInt(int64(len(months)))),
	}
}

func TestMonthlyPaymentRepository_Create_MonthUniqueness(t *testing.T) {
	db := newTestDB(t)
	repo := NewMonthlyPaymentRepository(db)
	ctx := context.Background()

	first := monthlyPaymentCovering("000001",
		models.PaidMonth{Year: 2025, Month: 6},
		models.PaidMonth{Year: 2025, Month: 7})
	assert.NoError(t, repo.Create(ctx, first))

	var covered int64
	db.Model(&models.CoveredMonth{}).Count(&covered)
	assert.Equal(t, int64(2), covered)

	t.Run("Overlapping Month Rejected And Rolled Back", func(t *testing.T) {
		second := monthlyPaymentCovering("000002", models.PaidMonth{Year: 2025, Month: 7})
		err := repo.Create(ctx, second)
		assert.ErrorIs(t, err, ErrMonthAlreadyCovered)

		// The losing record must not persist alongside its conflict
		var count int64
		db.Model(&models.MonthlyPayment{}).Count(&count)
		assert.Equal(t, int64(1), count)

		db.Model(&models.CoveredMonth{}).Count(&covered)
		assert.Equal(t, int64(2), covered)
	})

	t.Run("Duplicate Receipt Still Surfaces As Duplicated Key", func(t *testing.T) {
		// The receipt allocation retry keys on this error kind
		clash := monthlyPaymentCovering("000001", models.PaidMonth{Year: 2025, Month: 8})
		err := repo.Create(ctx, clash)
		assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
		assert.NotErrorIs(t, err, ErrMonthAlreadyCovered)
	})

	t.Run("Distinct Month On Same Connection Accepted", func(t *testing.T) {
		third := monthlyPaymentCovering("000003", models.PaidMonth{Year: 2025, Month: 8})
		assert.NoError(t, repo.Create(ctx, third))
	})
}

func TestMonthlyPaymentRepository_Create_LegacyShapeCoversItsMonth(t *testing.T) {
	db := newTestDB(t)
	repo := NewMonthlyPaymentRepository(db)
	ctx := context.Background()

	month, year := 5, 2025
	legacy := &models.MonthlyPayment{
		ConnectionID:   3,
		Month:          &month,
		Year:           &year,
		PaymentDate:    time.Date(2025, 5, 2, 0, 0, 0, 0, time.UTC),
		ReceiptNumber:  "000010",
		PayerName:      "Pedro Gómez",
		AmountPerMonth: decimal.NewFromInt(10),
		TotalAmount:    decimal.NewFromInt(10),
	}
	assert.NoError(t, repo.Create(ctx, legacy))

	// The single-month shape writes its covered row too
	dup := monthlyPaymentCovering("000011", models.PaidMonth{Year: 2025, Month: 5})
	dup.ConnectionID = 3
	assert.ErrorIs(t, repo.Create(ctx, dup), ErrMonthAlreadyCovered)
}
