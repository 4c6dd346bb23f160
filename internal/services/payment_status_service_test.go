package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"github.com/jcastellanos/aguadora-api/internal/models"
	"github.com/jcastellanos/aguadora-api/internal/repository"
)

// Mock ConnectionRepository (using embedding to avoid implementing all methods)
type mockConnectionRepository struct {
	repository.ConnectionRepository
	mockFindByID            func(ctx context.Context, id uint) (*models.Connection, error)
	mockUpdatePaymentStatus func(ctx context.Context, id uint, status models.StatusSet) error
}

func (m *mockConnectionRepository) WithTx(tx *gorm.DB) repository.ConnectionRepository {
	return m
}

func (m *mockConnectionRepository) FindByID(ctx context.Context, id uint) (*models.Connection, error) {
	if m.mockFindByID != nil {
		return m.mockFindByID(ctx, id)
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockConnectionRepository) UpdatePaymentStatus(ctx context.Context, id uint, status models.StatusSet) error {
	if m.mockUpdatePaymentStatus != nil {
		return m.mockUpdatePaymentStatus(ctx, id, status)
	}
	return nil
}

// Mock MonthlyPaymentRepository
type mockMonthlyPaymentRepository struct {
	repository.MonthlyPaymentRepository
	mockFindByConnection func(ctx context.Context, connectionID uint) ([]models.MonthlyPayment, error)
	mockExistsForMonth   func(ctx context.Context, connectionID uint, year, month int) (bool, error)
	mockCreate           func(ctx context.Context, payment *models.MonthlyPayment) error
}

func (m *mockMonthlyPaymentRepository) WithTx(tx *gorm.DB) repository.MonthlyPaymentRepository {
	return m
}

func (m *mockMonthlyPaymentRepository) FindByConnection(ctx context.Context, connectionID uint) ([]models.MonthlyPayment, error) {
	if m.mockFindByConnection != nil {
		return m.mockFindByConnection(ctx, connectionID)
	}
	return nil, nil
}

func (m *mockMonthlyPaymentRepository) ExistsForMonth(ctx context.Context, connectionID uint, year, month int) (bool, error) {
	if m.mockExistsForMonth != nil {
		return m.mockExistsForMonth(ctx, connectionID, year, month)
	}
	return false, nil
}

func (m *mockMonthlyPaymentRepository) Create(ctx context.Context, payment *models.MonthlyPayment) error {
	if m.mockCreate != nil {
		return m.mockCreate(ctx, payment)
	}
	return nil
}

// Mock SettingRepository. The zero value answers every Get with
// record-not-found, so the policy service falls back to defaults.
type mockSettingRepository struct {
	repository.SettingRepository
	mockGet func(ctx context.Context, key string) (*models.Setting, error)
}

func (m *mockSettingRepository) Get(ctx context.Context, key string) (*models.Setting, error) {
	if m.mockGet != nil {
		return m.mockGet(ctx, key)
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSettingRepository) Set(ctx context.Context, key, value string) error {
	return nil
}

func date(year, month, day int) time.Time {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

func testPolicy(start time.Time) models.BillingPolicy {
	return models.BillingPolicy{
		MonthlyFee:       models.DefaultMonthlyFee,
		BillingStartDate: start,
	}
}

func TestBillingStart_HybridRule(t *testing.T) {
	policy := testPolicy(date(2025, 1, 1))

	// Migrated connection: created before the cutover, bills from the cutover
	assert.Equal(t, date(2025, 1, 1), BillingStart(date(2019, 6, 10), policy))

	// New connection: created after the cutover, bills from its own creation
	assert.Equal(t, date(2025, 3, 20), BillingStart(date(2025, 3, 20), policy))

	// Created exactly on the cutover bills from the cutover
	assert.Equal(t, date(2025, 1, 1), BillingStart(date(2025, 1, 1), policy))
}

func TestRequiredMonths(t *testing.T) {
	t.Run("Spans Year Boundary", func(t *testing.T) {
		months := RequiredMonths(date(2025, 11, 15), date(2026, 2, 10))
		assert.Equal(t, []models.PaidMonth{
			{Year: 2025, Month: 11},
			{Year: 2025, Month: 12},
			{Year: 2026, Month: 1},
			{Year: 2026, Month: 2},
		}, months)
	})

	t.Run("Mid-Month Creation Owes The Whole Month", func(t *testing.T) {
		months := RequiredMonths(date(2026, 8, 25), date(2026, 8, 27))
		assert.Equal(t, []models.PaidMonth{{Year: 2026, Month: 8}}, months)
	})

	t.Run("Start After Now Is Empty", func(t *testing.T) {
		assert.Empty(t, RequiredMonths(date(2026, 9, 1), date(2026, 8, 27)))
	})
}

func TestPaidMonthSet_BothRecordShapes(t *testing.T) {
	month := 2
	year := 2025
	payments := []models.MonthlyPayment{
		// Multi-month record
		{MonthsPaid: models.PaidMonths{{Year: 2025, Month: 1}, {Year: 2025, Month: 3}}},
		// Migrated single-month record
		{Month: &month, Year: &year},
		// Overlap with the first record deduplicates
		{MonthsPaid: models.PaidMonths{{Year: 2025, Month: 3}}},
	}

	paid := PaidMonthSet(payments)
	assert.Len(t, paid, 3)
	assert.True(t, paid[models.PaidMonth{Year: 2025, Month: 1}])
	assert.True(t, paid[models.PaidMonth{Year: 2025, Month: 2}])
	assert.True(t, paid[models.PaidMonth{Year: 2025, Month: 3}])
}

func TestUnpaidMonths(t *testing.T) {
	policy := testPolicy(date(2025, 1, 1))
	now := date(2025, 4, 15)
	createdAt := date(2023, 7, 1) // migrated, bills from the cutover

	payments := []models.MonthlyPayment{
		{MonthsPaid: models.PaidMonths{{Year: 2025, Month: 1}, {Year: 2025, Month: 3}}},
	}

	unpaid := UnpaidMonths(createdAt, policy, payments, now)
	assert.Equal(t, []models.PaidMonth{
		{Year: 2025, Month: 2},
		{Year: 2025, Month: 4},
	}, unpaid)
}

func TestComputeStatus(t *testing.T) {
	policy := testPolicy(date(2025, 1, 1))
	now := date(2025, 3, 10)

	t.Run("All Paid Is Current", func(t *testing.T) {
		payments := []models.MonthlyPayment{
			{MonthsPaid: models.PaidMonths{
				{Year: 2025, Month: 1}, {Year: 2025, Month: 2}, {Year: 2025, Month: 3},
			}},
		}
		status := ComputeStatus(models.NewStatusSet(), date(2024, 1, 1), policy, payments, now)
		assert.Equal(t, models.StatusSet{models.StatusCurrent}, status)
	})

	t.Run("Missing Month Is Delinquent", func(t *testing.T) {
		status := ComputeStatus(models.NewStatusSet(), date(2024, 1, 1), policy, nil, now)
		assert.Equal(t, models.StatusSet{models.StatusDelinquent}, status)
	})

	t.Run("Plan Flags Are Preserved", func(t *testing.T) {
		current := models.NewStatusSet(models.StatusDelinquent, models.StatusDelinquentMeter)
		payments := []models.MonthlyPayment{
			{MonthsPaid: models.PaidMonths{
				{Year: 2025, Month: 1}, {Year: 2025, Month: 2}, {Year: 2025, Month: 3},
			}},
		}

		// Monthly dimension clears, meter flag survives
		status := ComputeStatus(current, date(2024, 1, 1), policy, payments, now)
		assert.Equal(t, models.StatusSet{models.StatusDelinquentMeter}, status)

		// Monthly dimension stays delinquent alongside the meter flag
		status = ComputeStatus(current, date(2024, 1, 1), policy, nil, now)
		assert.Equal(t, models.StatusSet{models.StatusDelinquent, models.StatusDelinquentMeter}, status)
	})

	t.Run("New Connection Owes Its Creation Month", func(t *testing.T) {
		status := ComputeStatus(models.NewStatusSet(), date(2025, 3, 5), policy, nil, now)
		assert.Equal(t, models.StatusSet{models.StatusDelinquent}, status)
	})
}

func TestPaymentStatusService_Recompute(t *testing.T) {
	connection := &models.Connection{
		ID:            7,
		Status:        models.ConnectionStatusActive,
		PaymentStatus: models.NewStatusSet(models.StatusDelinquentInstallation),
		CreatedAt:     date(2024, 5, 1),
	}

	connectionRepo := &mockConnectionRepository{
		mockFindByID: func(ctx context.Context, id uint) (*models.Connection, error) {
			assert.Equal(t, uint(7), id)
			return connection, nil
		},
	}
	paymentRepo := &mockMonthlyPaymentRepository{
		mockFindByConnection: func(ctx context.Context, connectionID uint) ([]models.MonthlyPayment, error) {
			return []models.MonthlyPayment{
				{MonthsPaid: models.PaidMonths{{Year: 2025, Month: 1}}},
			}, nil
		},
	}
	policySvc := NewBillingPolicyService(&mockSettingRepository{}, nil)

	service := NewPaymentStatusService(connectionRepo, paymentRepo, policySvc)
	service.now = func() time.Time { return date(2025, 2, 20) }

	var persisted models.StatusSet
	connectionRepo.mockUpdatePaymentStatus = func(ctx context.Context, id uint, status models.StatusSet) error {
		assert.Equal(t, uint(7), id)
		persisted = status
		return nil
	}

	status, err := service.Recompute(context.Background(), 7)
	assert.NoError(t, err)

	// February 2025 is unpaid; the installation flag carries over
	assert.Equal(t, models.StatusSet{models.StatusDelinquent, models.StatusDelinquentInstallation}, status)
	assert.Equal(t, status, persisted)
}

func TestPaymentStatusService_OwedMonths(t *testing.T) {
	connection := &models.Connection{
		ID:            3,
		PaymentStatus: models.NewStatusSet(),
		CreatedAt:     date(2025, 6, 12),
	}

	connectionRepo := &mockConnectionRepository{
		mockFindByID: func(ctx context.Context, id uint) (*models.Connection, error) {
			return connection, nil
		},
	}
	paymentRepo := &mockMonthlyPaymentRepository{
		mockFindByConnection: func(ctx context.Context, connectionID uint) ([]models.MonthlyPayment, error) {
			return []models.MonthlyPayment{
				{MonthsPaid: models.PaidMonths{{Year: 2025, Month: 7}}},
			}, nil
		},
	}

	service := NewPaymentStatusService(connectionRepo, paymentRepo, NewBillingPolicyService(&mockSettingRepository{}, nil))
	service.now = func() time.Time { return date(2025, 8, 3) }

	owed, err := service.OwedMonths(context.Background(), 3)
	assert.NoError(t, err)
	assert.Equal(t, []models.PaidMonth{
		{Year: 2025, Month: 6},
		{Year: 2025, Month: 8},
	}, owed)
}
