package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/jcastellanos/aguadora-api/internal/jobs"
	"github.com/jcastellanos/aguadora-api/internal/models"
	"github.com/jcastellanos/aguadora-api/internal/repository"
)

type paymentServiceFixture struct {
	service        *PaymentService
	paymentRepo    *mockMonthlyPaymentRepository
	connectionRepo *mockConnectionRepository
	receiptRepo    *mockReceiptRepository
}

func newPaymentServiceFixture(t *testing.T) *paymentServiceFixture {
	t.Helper()

	paymentRepo := &mockMonthlyPaymentRepository{}
	connectionRepo := &mockConnectionRepository{
		mockFindByID: func(ctx context.Context, id uint) (*models.Connection, error) {
			return &models.Connection{
				ID:            id,
				Status:        models.ConnectionStatusActive,
				PaymentStatus: models.NewStatusSet(models.StatusDelinquent),
				CreatedAt:     date(2025, 1, 1),
			}, nil
		},
	}
	receiptRepo := &mockReceiptRepository{}

	policySvc := NewBillingPolicyService(&mockSettingRepository{}, nil)
	statusSvc := NewPaymentStatusService(connectionRepo, paymentRepo, policySvc)
	statusSvc.now = func() time.Time { return date(2025, 8, 27) }

	worker := jobs.NewWorker(0)
	t.Cleanup(worker.Shutdown)

	service := NewPaymentService(nil, paymentRepo, connectionRepo,
		NewReceiptService(receiptRepo), statusSvc, policySvc, nil, worker)
	service.now = func() time.Time { return date(2025, 8, 27) }

	return &paymentServiceFixture{
		service:        service,
		paymentRepo:    paymentRepo,
		connectionRepo: connectionRepo,
		receiptRepo:    receiptRepo,
	}
}

func monthlyInput(months ...models.PaidMonth) RecordMonthlyPaymentInput {
	return RecordMonthlyPaymentInput{
		ConnectionID: 4,
		Months:       months,
		PayerName:    "María López",
	}
}

func TestPaymentService_RecordPayment_Validation(t *testing.T) {
	f := newPaymentServiceFixture(t)

	t.Run("No Months", func(t *testing.T) {
		_, err := f.service.RecordPayment(context.Background(), monthlyInput(), nil)
		assert.True(t, IsValidation(err))
	})

	t.Run("Missing Payer Name", func(t *testing.T) {
		input := monthlyInput(models.PaidMonth{Year: 2025, Month: 7})
		input.PayerName = ""
		_, err := f.service.RecordPayment(context.Background(), input, nil)
		assert.True(t, IsValidation(err))
	})

	t.Run("Invalid Month Number", func(t *testing.T) {
		_, err := f.service.RecordPayment(context.Background(),
			monthlyInput(models.PaidMonth{Year: 2025, Month: 13}), nil)
		assert.True(t, IsValidation(err))
	})

	t.Run("Repeated Month", func(t *testing.T) {
		m := models.PaidMonth{Year: 2025, Month: 7}
		_, err := f.service.RecordPayment(context.Background(), monthlyInput(m, m), nil)
		assert.True(t, IsValidation(err))
	})

	t.Run("Future Month", func(t *testing.T) {
		_, err := f.service.RecordPayment(context.Background(),
			monthlyInput(models.PaidMonth{Year: 2025, Month: 9}), nil)
		assert.True(t, IsValidation(err))
	})

	t.Run("Already Paid Month", func(t *testing.T) {
		f.paymentRepo.mockExistsForMonth = func(ctx context.Context, connectionID uint, year, month int) (bool, error) {
			return year == 2025 && month == 6, nil
		}
		defer func() { f.paymentRepo.mockExistsForMonth = nil }()

		_, err := f.service.RecordPayment(context.Background(),
			monthlyInput(models.PaidMonth{Year: 2025, Month: 6}), nil)
		assert.True(t, IsValidation(err))
	})

	t.Run("Suspended Connection", func(t *testing.T) {
		f.connectionRepo.mockFindByID = func(ctx context.Context, id uint) (*models.Connection, error) {
			return &models.Connection{ID: id, Status: models.ConnectionStatusSuspended, PaymentStatus: models.NewStatusSet()}, nil
		}

		_, err := f.service.RecordPayment(context.Background(),
			monthlyInput(models.PaidMonth{Year: 2025, Month: 7}), nil)
		assert.True(t, IsValidation(err))
	})
}

func TestPaymentService_RecordPayment_SingleRecordMultipleMonths(t *testing.T) {
	f := newPaymentServiceFixture(t)

	var created *models.MonthlyPayment
	f.paymentRepo.mockCreate = func(ctx context.Context, payment *models.MonthlyPayment) error {
		created = payment
		return nil
	}
	f.paymentRepo.mockFindByConnection = func(ctx context.Context, connectionID uint) ([]models.MonthlyPayment, error) {
		if created != nil {
			return []models.MonthlyPayment{*created}, nil
		}
		return nil, nil
	}

	recomputed := false
	f.connectionRepo.mockUpdatePaymentStatus = func(ctx context.Context, id uint, status models.StatusSet) error {
		recomputed = true
		return nil
	}

	months := []models.PaidMonth{
		{Year: 2025, Month: 6},
		{Year: 2025, Month: 7},
		{Year: 2025, Month: 8},
	}

	payment, err := f.service.RecordPayment(context.Background(), monthlyInput(months...), nil)
	assert.NoError(t, err)
	assert.NotNil(t, created)

	// One record covers all selected months under one receipt
	assert.Equal(t, models.PaidMonths(months), payment.MonthsPaid)
	assert.Equal(t, "000001", payment.ReceiptNumber)
	assert.NotEmpty(t, payment.PaymentGroupID)

	// Default policy fee times the month count
	assert.True(t, payment.AmountPerMonth.Equal(models.DefaultMonthlyFee))
	assert.True(t, payment.TotalAmount.Equal(models.DefaultMonthlyFee.Mul(decimal.NewFromInt(3))))

	assert.True(t, recomputed, "status recompute should run after recording")
}

func TestPaymentService_RecordPayment_FailedInsertSkipsRecompute(t *testing.T) {
	f := newPaymentServiceFixture(t)

	f.paymentRepo.mockCreate = func(ctx context.Context, payment *models.MonthlyPayment) error {
		return errors.New("conexión perdida")
	}

	recomputed := false
	f.connectionRepo.mockUpdatePaymentStatus = func(ctx context.Context, id uint, status models.StatusSet) error {
		recomputed = true
		return nil
	}

	_, err := f.service.RecordPayment(context.Background(),
		monthlyInput(models.PaidMonth{Year: 2025, Month: 7}), nil)
	assert.Error(t, err)

	// Insert and recompute are one unit of work: no insert, no recompute
	assert.False(t, recomputed)
}

func TestPaymentService_RecordPayment_CoveredMonthConflict(t *testing.T) {
	f := newPaymentServiceFixture(t)

	allocations := 0
	f.receiptRepo.mockMax = func(ctx context.Context) (int64, error) {
		allocations++
		return 0, nil
	}
	f.paymentRepo.mockCreate = func(ctx context.Context, payment *models.MonthlyPayment) error {
		return fmt.Errorf("2025-07: %w", repository.ErrMonthAlreadyCovered)
	}

	_, err := f.service.RecordPayment(context.Background(),
		monthlyInput(models.PaidMonth{Year: 2025, Month: 7}), nil)
	assert.ErrorIs(t, err, ErrConflict)

	// A covered-month clash is final; only a receipt clash re-allocates
	assert.Equal(t, 1, allocations)
}

func TestPaymentService_RecordPayment_FeeOverride(t *testing.T) {
	f := newPaymentServiceFixture(t)

	t.Run("Override Applied", func(t *testing.T) {
		fee := decimal.NewFromFloat(12.50)
		input := monthlyInput(models.PaidMonth{Year: 2025, Month: 7})
		input.FeePerMonth = &fee

		payment, err := f.service.RecordPayment(context.Background(), input, nil)
		assert.NoError(t, err)
		assert.True(t, payment.AmountPerMonth.Equal(fee))
		assert.True(t, payment.TotalAmount.Equal(fee))
	})

	t.Run("Non-Positive Override Rejected", func(t *testing.T) {
		fee := decimal.Zero
		input := monthlyInput(models.PaidMonth{Year: 2025, Month: 7})
		input.FeePerMonth = &fee

		_, err := f.service.RecordPayment(context.Background(), input, nil)
		assert.True(t, IsValidation(err))
	})
}
