package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"github.com/jcastellanos/aguadora-api/internal/jobs"
	"github.com/jcastellanos/aguadora-api/internal/models"
	"github.com/jcastellanos/aguadora-api/internal/repository"
)

// Mock PlanRepository
type mockPlanRepository struct {
	repository.PlanRepository
	mockFindByIDWithPayments   func(ctx context.Context, id uint) (*models.Plan, error)
	mockFindActiveByConnection func(ctx context.Context, connectionID uint) ([]models.Plan, error)
	mockHasActivePlan          func(ctx context.Context, connectionID uint, planType string) (bool, error)
	mockCreate                 func(ctx context.Context, plan *models.Plan) error
	mockUpdate                 func(ctx context.Context, plan *models.Plan) error
	mockDelete                 func(ctx context.Context, id uint) error
	mockFindPaymentByID        func(ctx context.Context, paymentID uint) (*models.PlanPayment, error)
	mockCreatePayment          func(ctx context.Context, payment *models.PlanPayment) error
	mockDeletePayment          func(ctx context.Context, paymentID uint) error
}

func (m *mockPlanRepository) WithTx(tx *gorm.DB) repository.PlanRepository {
	return m
}

func (m *mockPlanRepository) FindByIDWithPayments(ctx context.Context, id uint) (*models.Plan, error) {
	if m.mockFindByIDWithPayments != nil {
		return m.mockFindByIDWithPayments(ctx, id)
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockPlanRepository) FindActiveByConnection(ctx context.Context, connectionID uint) ([]models.Plan, error) {
	if m.mockFindActiveByConnection != nil {
		return m.mockFindActiveByConnection(ctx, connectionID)
	}
	return nil, nil
}

func (m *mockPlanRepository) HasActivePlan(ctx context.Context, connectionID uint, planType string) (bool, error) {
	if m.mockHasActivePlan != nil {
		return m.mockHasActivePlan(ctx, connectionID, planType)
	}
	return false, nil
}

func (m *mockPlanRepository) Create(ctx context.Context, plan *models.Plan) error {
	if m.mockCreate != nil {
		return m.mockCreate(ctx, plan)
	}
	plan.ID = 1
	return nil
}

func (m *mockPlanRepository) Update(ctx context.Context, plan *models.Plan) error {
	if m.mockUpdate != nil {
		return m.mockUpdate(ctx, plan)
	}
	return nil
}

func (m *mockPlanRepository) Delete(ctx context.Context, id uint) error {
	if m.mockDelete != nil {
		return m.mockDelete(ctx, id)
	}
	return nil
}

func (m *mockPlanRepository) FindPaymentByID(ctx context.Context, paymentID uint) (*models.PlanPayment, error) {
	if m.mockFindPaymentByID != nil {
		return m.mockFindPaymentByID(ctx, paymentID)
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockPlanRepository) CreatePayment(ctx context.Context, payment *models.PlanPayment) error {
	if m.mockCreatePayment != nil {
		return m.mockCreatePayment(ctx, payment)
	}
	payment.ID = 1
	return nil
}

func (m *mockPlanRepository) DeletePayment(ctx context.Context, paymentID uint) error {
	if m.mockDeletePayment != nil {
		return m.mockDeletePayment(ctx, paymentID)
	}
	return nil
}

// Mock NotificationRepository
type mockNotificationRepository struct {
	repository.NotificationRepository
	mockCreate func(ctx context.Context, notification *models.Notification) error
}

func (m *mockNotificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	if m.mockCreate != nil {
		return m.mockCreate(ctx, notification)
	}
	return nil
}

// Mock UserRepository
type mockUserRepository struct {
	repository.UserRepository
	mockFindAdmins func(ctx context.Context) ([]models.User, error)
}

func (m *mockUserRepository) FindAdmins(ctx context.Context) ([]models.User, error) {
	if m.mockFindAdmins != nil {
		return m.mockFindAdmins(ctx)
	}
	return nil, nil
}

type planServiceFixture struct {
	service        *PlanService
	planRepo       *mockPlanRepository
	connectionRepo *mockConnectionRepository
	worker         *jobs.Worker
}

func newPlanServiceFixture(t *testing.T) *planServiceFixture {
	t.Helper()

	planRepo := &mockPlanRepository{}
	connectionRepo := &mockConnectionRepository{}
	receiptSvc := NewReceiptService(&mockReceiptRepository{})
	notifSvc := NewNotificationService(&mockNotificationRepository{}, &mockUserRepository{})

	worker := jobs.NewWorker(0)
	t.Cleanup(worker.Shutdown)

	return &planServiceFixture{
		service:        NewPlanService(nil, planRepo, connectionRepo, receiptSvc, nil, notifSvc, worker),
		planRepo:       planRepo,
		connectionRepo: connectionRepo,
		worker:         worker,
	}
}

func activeConnection(id uint) *models.Connection {
	return &models.Connection{
		ID:            id,
		Status:        models.ConnectionStatusActive,
		PaymentStatus: models.NewStatusSet(),
	}
}

func validPlanInput() CreatePlanInput {
	return CreatePlanInput{
		ConnectionID:      5,
		PlanType:          models.PlanTypeInstallation,
		TotalAmount:       decimal.NewFromInt(1200),
		InstallmentCount:  12,
		InstallmentAmount: decimal.NewFromInt(100),
		StartDate:         time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestPlanService_Create_Validation(t *testing.T) {
	f := newPlanServiceFixture(t)
	f.connectionRepo.mockFindByID = func(ctx context.Context, id uint) (*models.Connection, error) {
		return activeConnection(id), nil
	}

	t.Run("Invalid Plan Type", func(t *testing.T) {
		input := validPlanInput()
		input.PlanType = "loan"
		_, err := f.service.Create(context.Background(), input, nil)
		assert.True(t, IsValidation(err))
	})

	t.Run("Zero Total Amount", func(t *testing.T) {
		input := validPlanInput()
		input.TotalAmount = decimal.Zero
		_, err := f.service.Create(context.Background(), input, nil)
		assert.True(t, IsValidation(err))
	})

	t.Run("Installment Count Out Of Range", func(t *testing.T) {
		input := validPlanInput()
		input.InstallmentCount = 61
		_, err := f.service.Create(context.Background(), input, nil)
		assert.True(t, IsValidation(err))

		input.InstallmentCount = 0
		_, err = f.service.Create(context.Background(), input, nil)
		assert.True(t, IsValidation(err))
	})

	t.Run("Suspended Connection Rejected", func(t *testing.T) {
		f.connectionRepo.mockFindByID = func(ctx context.Context, id uint) (*models.Connection, error) {
			return &models.Connection{ID: id, Status: models.ConnectionStatusSuspended, PaymentStatus: models.NewStatusSet()}, nil
		}
		defer func() {
			f.connectionRepo.mockFindByID = func(ctx context.Context, id uint) (*models.Connection, error) {
				return activeConnection(id), nil
			}
		}()

		_, err := f.service.Create(context.Background(), validPlanInput(), nil)
		assert.True(t, IsValidation(err))
	})

	t.Run("Duplicate Active Plan Rejected", func(t *testing.T) {
		f.planRepo.mockHasActivePlan = func(ctx context.Context, connectionID uint, planType string) (bool, error) {
			return true, nil
		}
		defer func() { f.planRepo.mockHasActivePlan = nil }()

		_, err := f.service.Create(context.Background(), validPlanInput(), nil)
		assert.True(t, IsValidation(err))
	})
}

func TestPlanService_Create_SetsMoraFlag(t *testing.T) {
	f := newPlanServiceFixture(t)
	f.connectionRepo.mockFindByID = func(ctx context.Context, id uint) (*models.Connection, error) {
		return activeConnection(id), nil
	}

	var persisted models.StatusSet
	f.connectionRepo.mockUpdatePaymentStatus = func(ctx context.Context, id uint, status models.StatusSet) error {
		persisted = status
		return nil
	}

	plan, err := f.service.Create(context.Background(), validPlanInput(), nil)
	assert.NoError(t, err)
	assert.Equal(t, models.PlanStatusActive, plan.Status)

	// Full balance outstanding from day one
	assert.Equal(t, models.StatusSet{models.StatusDelinquentInstallation}, persisted)
}

func TestPlanService_RecordPayment(t *testing.T) {
	paidInstallment := func(n int, amount int64) models.PlanPayment {
		return models.PlanPayment{InstallmentNumber: n, AmountPaid: decimal.NewFromInt(amount)}
	}

	t.Run("Duplicate Installment Rejected", func(t *testing.T) {
		f := newPlanServiceFixture(t)
		plan := &models.Plan{
			ID: 1, ConnectionID: 5, PlanType: models.PlanTypeMeter,
			TotalAmount: decimal.NewFromInt(300), InstallmentCount: 3,
			InstallmentAmount: decimal.NewFromInt(100), Status: models.PlanStatusActive,
			Payments: []models.PlanPayment{paidInstallment(1, 100)},
		}
		f.planRepo.mockFindByIDWithPayments = func(ctx context.Context, id uint) (*models.Plan, error) {
			return plan, nil
		}

		_, err := f.service.RecordPayment(context.Background(), RecordInstallmentPaymentInput{
			PlanID: 1, InstallmentNumber: 1, PayerName: "Ana", AmountPaid: decimal.NewFromInt(100),
		}, nil)
		assert.True(t, IsValidation(err))
	})

	t.Run("Installment Number Out Of Range", func(t *testing.T) {
		f := newPlanServiceFixture(t)
		plan := &models.Plan{
			ID: 1, ConnectionID: 5, PlanType: models.PlanTypeMeter,
			TotalAmount: decimal.NewFromInt(300), InstallmentCount: 3,
			InstallmentAmount: decimal.NewFromInt(100), Status: models.PlanStatusActive,
		}
		f.planRepo.mockFindByIDWithPayments = func(ctx context.Context, id uint) (*models.Plan, error) {
			return plan, nil
		}

		_, err := f.service.RecordPayment(context.Background(), RecordInstallmentPaymentInput{
			PlanID: 1, InstallmentNumber: 4, PayerName: "Ana", AmountPaid: decimal.NewFromInt(100),
		}, nil)
		assert.True(t, IsValidation(err))
	})

	t.Run("Final Installment Completes Plan And Clears Flag", func(t *testing.T) {
		f := newPlanServiceFixture(t)
		plan := &models.Plan{
			ID: 1, ConnectionID: 5, PlanType: models.PlanTypeMeter,
			TotalAmount: decimal.NewFromInt(300), InstallmentCount: 3,
			InstallmentAmount: decimal.NewFromInt(100), Status: models.PlanStatusActive,
			Payments: []models.PlanPayment{paidInstallment(1, 100), paidInstallment(2, 100)},
		}
		f.planRepo.mockFindByIDWithPayments = func(ctx context.Context, id uint) (*models.Plan, error) {
			return plan, nil
		}
		f.connectionRepo.mockFindByID = func(ctx context.Context, id uint) (*models.Connection, error) {
			return &models.Connection{
				ID: 5, Status: models.ConnectionStatusActive,
				PaymentStatus: models.NewStatusSet(models.StatusDelinquentMeter),
			}, nil
		}

		var persisted models.StatusSet
		f.connectionRepo.mockUpdatePaymentStatus = func(ctx context.Context, id uint, status models.StatusSet) error {
			persisted = status
			return nil
		}

		payment, err := f.service.RecordPayment(context.Background(), RecordInstallmentPaymentInput{
			PlanID: 1, InstallmentNumber: 3, PayerName: "Ana", AmountPaid: decimal.NewFromInt(100),
		}, nil)
		assert.NoError(t, err)
		assert.Equal(t, "000001", payment.ReceiptNumber)
		assert.Equal(t, models.PlanStatusCompleted, plan.Status)
		assert.NotNil(t, plan.CompletedAt)
		assert.Equal(t, models.StatusSet{models.StatusCurrent}, persisted)
	})

	t.Run("Failed Insert Writes Nothing Downstream", func(t *testing.T) {
		f := newPlanServiceFixture(t)
		plan := &models.Plan{
			ID: 1, ConnectionID: 5, PlanType: models.PlanTypeMeter,
			TotalAmount: decimal.NewFromInt(300), InstallmentCount: 3,
			InstallmentAmount: decimal.NewFromInt(100), Status: models.PlanStatusActive,
			Payments: []models.PlanPayment{paidInstallment(1, 100), paidInstallment(2, 100)},
		}
		f.planRepo.mockFindByIDWithPayments = func(ctx context.Context, id uint) (*models.Plan, error) {
			return plan, nil
		}
		f.planRepo.mockCreatePayment = func(ctx context.Context, payment *models.PlanPayment) error {
			return errors.New("conexión perdida")
		}

		planUpdated := false
		f.planRepo.mockUpdate = func(ctx context.Context, p *models.Plan) error {
			planUpdated = true
			return nil
		}
		statusWritten := false
		f.connectionRepo.mockUpdatePaymentStatus = func(ctx context.Context, id uint, status models.StatusSet) error {
			statusWritten = true
			return nil
		}

		_, err := f.service.RecordPayment(context.Background(), RecordInstallmentPaymentInput{
			PlanID: 1, InstallmentNumber: 3, PayerName: "Ana", AmountPaid: decimal.NewFromInt(100),
		}, nil)
		assert.Error(t, err)

		// Nothing after the failed insert runs: the plan stays active
		// and the mora flag is untouched
		assert.False(t, planUpdated)
		assert.False(t, statusWritten)
		assert.Equal(t, models.PlanStatusActive, plan.Status)
		assert.Len(t, plan.Payments, 2)
	})

	t.Run("Inactive Plan Rejected", func(t *testing.T) {
		f := newPlanServiceFixture(t)
		f.planRepo.mockFindByIDWithPayments = func(ctx context.Context, id uint) (*models.Plan, error) {
			return &models.Plan{ID: 1, Status: models.PlanStatusCancelled, InstallmentCount: 3}, nil
		}

		_, err := f.service.RecordPayment(context.Background(), RecordInstallmentPaymentInput{
			PlanID: 1, InstallmentNumber: 1, PayerName: "Ana", AmountPaid: decimal.NewFromInt(100),
		}, nil)
		assert.True(t, IsValidation(err))
	})
}

func TestPlanService_DeletePayment_NeverReversesCompleted(t *testing.T) {
	f := newPlanServiceFixture(t)

	completedAt := time.Now()
	plan := &models.Plan{
		ID: 1, ConnectionID: 5, PlanType: models.PlanTypeMeter,
		TotalAmount: decimal.NewFromInt(300), InstallmentCount: 3,
		InstallmentAmount: decimal.NewFromInt(100),
		Status:            models.PlanStatusCompleted, CompletedAt: &completedAt,
		Payments: []models.PlanPayment{
			{ID: 10, InstallmentNumber: 1, AmountPaid: decimal.NewFromInt(100)},
			{ID: 11, InstallmentNumber: 2, AmountPaid: decimal.NewFromInt(100)},
		},
	}

	f.planRepo.mockFindPaymentByID = func(ctx context.Context, paymentID uint) (*models.PlanPayment, error) {
		return &models.PlanPayment{ID: 12, PlanID: 1, InstallmentNumber: 3}, nil
	}
	f.planRepo.mockFindByIDWithPayments = func(ctx context.Context, id uint) (*models.Plan, error) {
		return plan, nil
	}
	f.connectionRepo.mockFindByID = func(ctx context.Context, id uint) (*models.Connection, error) {
		return activeConnection(5), nil
	}

	var persisted models.StatusSet
	f.connectionRepo.mockUpdatePaymentStatus = func(ctx context.Context, id uint, status models.StatusSet) error {
		persisted = status
		return nil
	}

	err := f.service.DeletePayment(context.Background(), 12, nil)
	assert.NoError(t, err)

	// The balance reopened but the plan stays completed, so no mora flag
	assert.Equal(t, models.PlanStatusCompleted, plan.Status)
	assert.Equal(t, models.StatusSet{models.StatusCurrent}, persisted)
}

func TestPlanService_Cancel(t *testing.T) {
	t.Run("Reason Is Mandatory", func(t *testing.T) {
		f := newPlanServiceFixture(t)
		_, err := f.service.Cancel(context.Background(), 1, "", nil)
		assert.True(t, IsValidation(err))
	})

	t.Run("Cancels And Clears Flag", func(t *testing.T) {
		f := newPlanServiceFixture(t)
		plan := &models.Plan{
			ID: 1, ConnectionID: 5, PlanType: models.PlanTypeInstallation,
			TotalAmount: decimal.NewFromInt(1200), InstallmentCount: 12,
			InstallmentAmount: decimal.NewFromInt(100), Status: models.PlanStatusActive,
		}
		f.planRepo.mockFindByIDWithPayments = func(ctx context.Context, id uint) (*models.Plan, error) {
			return plan, nil
		}
		f.connectionRepo.mockFindByID = func(ctx context.Context, id uint) (*models.Connection, error) {
			return &models.Connection{
				ID: 5, Status: models.ConnectionStatusActive,
				PaymentStatus: models.NewStatusSet(models.StatusDelinquentInstallation),
			}, nil
		}

		var persisted models.StatusSet
		f.connectionRepo.mockUpdatePaymentStatus = func(ctx context.Context, id uint, status models.StatusSet) error {
			persisted = status
			return nil
		}

		actor := uint(3)
		cancelled, err := f.service.Cancel(context.Background(), 1, "Propietario se mudó", &actor)
		assert.NoError(t, err)
		assert.Equal(t, models.PlanStatusCancelled, cancelled.Status)
		assert.NotNil(t, cancelled.CancelledAt)
		assert.Equal(t, "Propietario se mudó", *cancelled.CancellationReason)
		assert.Equal(t, models.StatusSet{models.StatusCurrent}, persisted)
	})

	t.Run("Cancelled Plan Cannot Cancel Again", func(t *testing.T) {
		f := newPlanServiceFixture(t)
		f.planRepo.mockFindByIDWithPayments = func(ctx context.Context, id uint) (*models.Plan, error) {
			return &models.Plan{ID: 1, Status: models.PlanStatusCancelled}, nil
		}

		_, err := f.service.Cancel(context.Background(), 1, "otra vez", nil)
		assert.ErrorIs(t, err, ErrInvalidState)
	})
}

func TestPlanService_Reactivate(t *testing.T) {
	t.Run("Outstanding Balance Returns To Active With Flag", func(t *testing.T) {
		f := newPlanServiceFixture(t)
		reason := "error administrativo"
		plan := &models.Plan{
			ID: 1, ConnectionID: 5, PlanType: models.PlanTypeMeter,
			TotalAmount: decimal.NewFromInt(300), InstallmentCount: 3,
			InstallmentAmount: decimal.NewFromInt(100),
			Status:            models.PlanStatusCancelled, CancellationReason: &reason,
			Payments: []models.PlanPayment{{InstallmentNumber: 1, AmountPaid: decimal.NewFromInt(100)}},
		}
		f.planRepo.mockFindByIDWithPayments = func(ctx context.Context, id uint) (*models.Plan, error) {
			return plan, nil
		}
		f.connectionRepo.mockFindByID = func(ctx context.Context, id uint) (*models.Connection, error) {
			return activeConnection(5), nil
		}

		var persisted models.StatusSet
		f.connectionRepo.mockUpdatePaymentStatus = func(ctx context.Context, id uint, status models.StatusSet) error {
			persisted = status
			return nil
		}

		reactivated, err := f.service.Reactivate(context.Background(), 1, nil)
		assert.NoError(t, err)
		assert.Equal(t, models.PlanStatusActive, reactivated.Status)
		assert.Nil(t, reactivated.CancelledAt)
		assert.Nil(t, reactivated.CancellationReason)
		assert.Equal(t, models.StatusSet{models.StatusDelinquentMeter}, persisted)
	})

	t.Run("Settled Balance Goes Straight To Completed", func(t *testing.T) {
		f := newPlanServiceFixture(t)
		plan := &models.Plan{
			ID: 1, ConnectionID: 5, PlanType: models.PlanTypeMeter,
			TotalAmount: decimal.NewFromInt(200), InstallmentCount: 2,
			InstallmentAmount: decimal.NewFromInt(100), Status: models.PlanStatusCancelled,
			Payments: []models.PlanPayment{
				{InstallmentNumber: 1, AmountPaid: decimal.NewFromInt(100)},
				{InstallmentNumber: 2, AmountPaid: decimal.NewFromInt(100)},
			},
		}
		f.planRepo.mockFindByIDWithPayments = func(ctx context.Context, id uint) (*models.Plan, error) {
			return plan, nil
		}
		f.connectionRepo.mockFindByID = func(ctx context.Context, id uint) (*models.Connection, error) {
			return activeConnection(5), nil
		}

		actor := uint(9)
		reactivated, err := f.service.Reactivate(context.Background(), 1, &actor)
		assert.NoError(t, err)
		assert.Equal(t, models.PlanStatusCompleted, reactivated.Status)
		assert.NotNil(t, reactivated.CompletedAt)
		assert.Equal(t, &actor, reactivated.CompletedByUserID)
	})
}

func TestPlanService_Delete_CancelsActiveFirst(t *testing.T) {
	f := newPlanServiceFixture(t)
	plan := &models.Plan{
		ID: 1, ConnectionID: 5, PlanType: models.PlanTypeInstallation,
		TotalAmount: decimal.NewFromInt(1200), InstallmentCount: 12,
		InstallmentAmount: decimal.NewFromInt(100), Status: models.PlanStatusActive,
	}
	f.planRepo.mockFindByIDWithPayments = func(ctx context.Context, id uint) (*models.Plan, error) {
		return plan, nil
	}
	f.connectionRepo.mockFindByID = func(ctx context.Context, id uint) (*models.Connection, error) {
		return activeConnection(5), nil
	}

	deleted := false
	f.planRepo.mockDelete = func(ctx context.Context, id uint) error {
		deleted = true
		return nil
	}

	err := f.service.Delete(context.Background(), 1, nil)
	assert.NoError(t, err)
	assert.True(t, deleted)
	assert.Equal(t, models.PlanStatusCancelled, plan.Status)
	assert.Equal(t, systemCancelReason, *plan.CancellationReason)
}
