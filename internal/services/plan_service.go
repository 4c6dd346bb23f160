package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/jcastellanos/aguadora-api/internal/jobs"
	"github.com/jcastellanos/aguadora-api/internal/models"
	"github.com/jcastellanos/aguadora-api/internal/repository"
	"github.com/jcastellanos/aguadora-api/internal/statemachine"
)

// systemCancelReason is stamped when a plan is cancelled implicitly by
// a delete rather than by an explicit administrative action.
const systemCancelReason = "Plan eliminado del sistema"

// PlanService owns the installment-plan lifecycle and the propagation
// of meter/installation delinquency flags onto the owning connection.
// Every mutation that touches both a plan and its connection runs in
// one transaction so a crash never leaves the mora flag out of step
// with the plan's balance.
type PlanService struct {
	db              *gorm.DB
	repo            repository.PlanRepository
	connectionRepo  repository.ConnectionRepository
	receiptSvc      *ReceiptService
	auditSvc        *AuditService
	notificationSvc *NotificationService
	worker          *jobs.Worker
}

func NewPlanService(
	db *gorm.DB,
	repo repository.PlanRepository,
	connectionRepo repository.ConnectionRepository,
	receiptSvc *ReceiptService,
	auditSvc *AuditService,
	notificationSvc *NotificationService,
	worker *jobs.Worker,
) *PlanService {
	return &PlanService{
		db:              db,
		repo:            repo,
		connectionRepo:  connectionRepo,
		receiptSvc:      receiptSvc,
		auditSvc:        auditSvc,
		notificationSvc: notificationSvc,
		worker:          worker,
	}
}

func (s *PlanService) FindByID(ctx context.Context, id uint) (*models.Plan, error) {
	return s.repo.FindByIDWithPayments(ctx, id)
}

func (s *PlanService) FindByConnection(ctx context.Context, connectionID uint) ([]models.Plan, error) {
	return s.repo.FindByConnection(ctx, connectionID)
}

// CreatePlanInput carries the parameters for opening a new plan
type CreatePlanInput struct {
	ConnectionID      uint
	PlanType          string
	TotalAmount       decimal.Decimal
	InstallmentCount  int
	InstallmentAmount decimal.Decimal
	StartDate         time.Time
}

// Create opens a new active plan after enforcing the one-active-plan
// per (connection, type) invariant.
func (s *PlanService) Create(ctx context.Context, input CreatePlanInput, actorID *uint) (*models.Plan, error) {
	if input.PlanType != models.PlanTypeInstallation && input.PlanType != models.PlanTypeMeter {
		return nil, NewValidationError("plan_type", "tipo de plan inválido")
	}
	if !input.TotalAmount.IsPositive() {
		return nil, NewValidationError("total_amount", "el monto total debe ser mayor que cero")
	}
	if input.InstallmentCount < models.MinInstallmentCount || input.InstallmentCount > models.MaxInstallmentCount {
		return nil, NewValidationError("installment_count",
			fmt.Sprintf("el número de cuotas debe estar entre %d y %d", models.MinInstallmentCount, models.MaxInstallmentCount))
	}
	if !input.InstallmentAmount.IsPositive() {
		return nil, NewValidationError("installment_amount", "el monto de la cuota debe ser mayor que cero")
	}

	connection, err := s.connectionRepo.FindByID(ctx, input.ConnectionID)
	if err != nil {
		return nil, ErrNotFound
	}
	if !connection.IsActive() {
		return nil, NewValidationError("connection_id", "la paja de agua no está activa")
	}

	exists, err := s.repo.HasActivePlan(ctx, input.ConnectionID, input.PlanType)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, NewValidationError("plan_type", "ya existe un plan activo de este tipo para la paja")
	}

	plan := &models.Plan{
		ConnectionID:      input.ConnectionID,
		PlanType:          input.PlanType,
		TotalAmount:       input.TotalAmount,
		InstallmentCount:  input.InstallmentCount,
		InstallmentAmount: input.InstallmentAmount,
		StartDate:         input.StartDate,
		Status:            models.PlanStatusActive,
	}
	// The insert and the mora flag land together: a freshly created
	// plan has its full balance outstanding, so the connection picks up
	// the corresponding flag in the same transaction.
	if err := runInTransaction(ctx, s.db, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, plan); err != nil {
			return err
		}
		return s.syncConnectionFlag(ctx, tx, plan)
	}); err != nil {
		return nil, err
	}

	s.auditSvc.Log(ctx, actorID, "CREATE", "Plan", plan.ID,
		fmt.Sprintf("Plan de %s creado para la paja #%d. Total: %s en %d cuotas",
			planTypeLabel(plan.PlanType), plan.ConnectionID, plan.TotalAmount.StringFixed(2), plan.InstallmentCount), "", "")

	return plan, nil
}

// RecordInstallmentPaymentInput carries the parameters for one installment payment
type RecordInstallmentPaymentInput struct {
	PlanID            uint
	InstallmentNumber int
	PaymentDate       time.Time
	PayerName         string
	PayerIdentity     string
	AmountPaid        decimal.Decimal
	Notes             *string
}

// RecordPayment registers a payment against one installment, mints its
// receipt number and re-derives plan and connection state.
func (s *PlanService) RecordPayment(ctx context.Context, input RecordInstallmentPaymentInput, actorID *uint) (*models.PlanPayment, error) {
	plan, err := s.repo.FindByIDWithPayments(ctx, input.PlanID)
	if err != nil {
		return nil, ErrNotFound
	}

	if plan.Status != models.PlanStatusActive {
		return nil, NewValidationError("plan_id", "el plan no está activo")
	}
	if input.InstallmentNumber < 1 || input.InstallmentNumber > plan.InstallmentCount {
		return nil, NewValidationError("installment_number",
			fmt.Sprintf("el número de cuota debe estar entre 1 y %d", plan.InstallmentCount))
	}
	if !input.AmountPaid.IsPositive() {
		return nil, NewValidationError("amount_paid", "el monto pagado debe ser mayor que cero")
	}
	for _, existing := range plan.Payments {
		if existing.InstallmentNumber == input.InstallmentNumber {
			return nil, NewValidationError("installment_number", "la cuota ya fue pagada")
		}
	}

	if input.PaymentDate.IsZero() {
		input.PaymentDate = time.Now()
	}

	payment := &models.PlanPayment{
		PlanID:            plan.ID,
		InstallmentNumber: input.InstallmentNumber,
		PaymentDate:       input.PaymentDate,
		PayerName:         input.PayerName,
		PayerIdentity:     input.PayerIdentity,
		AmountPaid:        input.AmountPaid,
		Notes:             input.Notes,
		CreatedByUserID:   actorID,
	}

	// Insert, plan recompute and mora-flag sync commit or roll back as
	// one unit. A duplicate receipt number aborts the attempt before
	// the recompute, so the retry starts from a clean slate.
	var completed bool
	if _, err := s.receiptSvc.WithRetry(ctx, func(receipt string) error {
		payment.ReceiptNumber = receipt
		return runInTransaction(ctx, s.db, func(tx *gorm.DB) error {
			if err := s.repo.WithTx(tx).CreatePayment(ctx, payment); err != nil {
				return err
			}
			plan.Payments = append(plan.Payments, *payment)

			done, err := s.recomputeStatus(ctx, tx, plan, actorID)
			if err != nil {
				return err
			}
			completed = done
			return s.syncConnectionFlag(ctx, tx, plan)
		})
	}); err != nil {
		return nil, err
	}

	if completed {
		s.notifyPlanCompleted(plan)
	}

	s.auditSvc.Log(ctx, actorID, "RECORD_PAYMENT", "Plan", plan.ID,
		fmt.Sprintf("Cuota %d/%d pagada. Recibo %s por %s",
			payment.InstallmentNumber, plan.InstallmentCount, payment.ReceiptNumber, payment.AmountPaid.StringFixed(2)), "", "")

	return payment, nil
}

// DeletePayment removes a recorded installment payment and re-derives
// plan and connection state. The recompute never reverses a completed
// plan back to active; an administrator reactivates explicitly if the
// deletion reopened a balance.
func (s *PlanService) DeletePayment(ctx context.Context, paymentID uint, actorID *uint) error {
	payment, err := s.repo.FindPaymentByID(ctx, paymentID)
	if err != nil {
		return ErrNotFound
	}

	var plan *models.Plan
	if err := runInTransaction(ctx, s.db, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.DeletePayment(ctx, paymentID); err != nil {
			return err
		}

		plan, err = repo.FindByIDWithPayments(ctx, payment.PlanID)
		if err != nil {
			return err
		}

		if _, err := s.recomputeStatus(ctx, tx, plan, nil); err != nil {
			return err
		}
		return s.syncConnectionFlag(ctx, tx, plan)
	}); err != nil {
		return err
	}

	s.auditSvc.Log(ctx, actorID, "DELETE_PAYMENT", "Plan", plan.ID,
		fmt.Sprintf("Pago de cuota %d eliminado (recibo %s)", payment.InstallmentNumber, payment.ReceiptNumber), "", "")

	return nil
}

// Cancel closes a plan explicitly. The reason is mandatory; cancelling
// drops the plan's mora flag from the connection.
func (s *PlanService) Cancel(ctx context.Context, planID uint, reason string, actorID *uint) (*models.Plan, error) {
	if reason == "" {
		return nil, NewValidationError("reason", "la razón de cancelación es obligatoria")
	}

	plan, err := s.repo.FindByIDWithPayments(ctx, planID)
	if err != nil {
		return nil, ErrNotFound
	}

	fsm := statemachine.NewPlanFSM(plan)
	if err := fsm.Cancel(ctx); err != nil {
		return nil, ErrInvalidState
	}

	now := time.Now()
	plan.CancelledAt = &now
	plan.CancelledByUserID = actorID
	plan.CancellationReason = &reason

	if err := runInTransaction(ctx, s.db, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Update(ctx, plan); err != nil {
			return err
		}
		return s.syncConnectionFlag(ctx, tx, plan)
	}); err != nil {
		return nil, err
	}

	s.auditSvc.Log(ctx, actorID, "CANCEL", "Plan", plan.ID,
		fmt.Sprintf("Plan de %s cancelado. Razón: %s", planTypeLabel(plan.PlanType), reason), "", "")

	s.worker.EnqueueAsync(func(ctx context.Context) error {
		return s.notificationSvc.NotifyAdmins(ctx,
			"Plan cancelado",
			fmt.Sprintf("El plan #%d de la paja #%d fue cancelado: %s", plan.ID, plan.ConnectionID, reason),
			models.NotificationTypePlanCancelled)
	})

	return plan, nil
}

// Reactivate returns a cancelled plan to service. The destination state
// depends on the balance at reactivation time.
func (s *PlanService) Reactivate(ctx context.Context, planID uint, actorID *uint) (*models.Plan, error) {
	plan, err := s.repo.FindByIDWithPayments(ctx, planID)
	if err != nil {
		return nil, ErrNotFound
	}

	settled := !plan.Balance().IsPositive()

	fsm := statemachine.NewPlanFSM(plan)
	if err := fsm.Reactivate(ctx, settled); err != nil {
		return nil, ErrInvalidState
	}

	plan.CancelledAt = nil
	plan.CancelledByUserID = nil
	plan.CancellationReason = nil
	if settled && plan.CompletedAt == nil {
		now := time.Now()
		plan.CompletedAt = &now
		plan.CompletedByUserID = actorID
	}

	if err := runInTransaction(ctx, s.db, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Update(ctx, plan); err != nil {
			return err
		}
		return s.syncConnectionFlag(ctx, tx, plan)
	}); err != nil {
		return nil, err
	}

	s.auditSvc.Log(ctx, actorID, "REACTIVATE", "Plan", plan.ID,
		fmt.Sprintf("Plan de %s reactivado en estado %s", planTypeLabel(plan.PlanType), plan.Status), "", "")

	return plan, nil
}

// Delete soft-deletes a plan. An active plan is cancelled first so the
// connection's mora flag is released and the cancellation is recorded.
func (s *PlanService) Delete(ctx context.Context, planID uint, actorID *uint) error {
	plan, err := s.repo.FindByIDWithPayments(ctx, planID)
	if err != nil {
		return ErrNotFound
	}

	if plan.Status == models.PlanStatusActive {
		if _, err := s.Cancel(ctx, planID, systemCancelReason, actorID); err != nil {
			return err
		}
	}

	if err := s.repo.Delete(ctx, planID); err != nil {
		return err
	}

	s.auditSvc.Log(ctx, actorID, "DELETE", "Plan", planID, "Plan eliminado", "", "")
	return nil
}

// CancelActiveForConnection cancels every active plan of a connection.
// Used by the connection delete cascade; the actor may be nil for
// system-triggered deletes.
func (s *PlanService) CancelActiveForConnection(ctx context.Context, connectionID uint, reason string, actorID *uint) error {
	plans, err := s.repo.FindActiveByConnection(ctx, connectionID)
	if err != nil {
		return err
	}
	if reason == "" {
		reason = systemCancelReason
	}
	for i := range plans {
		if _, err := s.Cancel(ctx, plans[i].ID, reason, actorID); err != nil {
			return err
		}
	}
	return nil
}

// recomputeStatus applies the automatic active → completed transition
// when the balance reaches zero, reporting whether it fired. Cancelled
// plans are left untouched and completed plans never revert on their
// own. Runs on the caller's transaction; the completion notification is
// the caller's job, after the transaction commits.
func (s *PlanService) recomputeStatus(ctx context.Context, tx *gorm.DB, plan *models.Plan, actorID *uint) (bool, error) {
	if plan.Status == models.PlanStatusCancelled {
		return false, nil
	}
	if plan.Balance().IsPositive() || plan.Status == models.PlanStatusCompleted {
		return false, nil
	}

	fsm := statemachine.NewPlanFSM(plan)
	if err := fsm.Complete(ctx); err != nil {
		return false, err
	}

	now := time.Now()
	plan.CompletedAt = &now
	plan.CompletedByUserID = actorID

	if err := s.repo.WithTx(tx).Update(ctx, plan); err != nil {
		return false, err
	}
	return true, nil
}

// notifyPlanCompleted fans a completion notice out to every admin.
func (s *PlanService) notifyPlanCompleted(plan *models.Plan) {
	s.worker.EnqueueAsync(func(ctx context.Context) error {
		return s.notificationSvc.NotifyAdmins(ctx,
			"Plan completado",
			fmt.Sprintf("El plan #%d de la paja #%d fue pagado en su totalidad", plan.ID, plan.ConnectionID),
			models.NotificationTypePlanCompleted)
	})
}

// syncConnectionFlag reconciles the connection's mora flag for this
// plan's type: present while the plan is active with an outstanding
// balance, absent otherwise. The status-set normalization restores
// "current" when the last delinquency of any kind disappears. Runs on
// the caller's transaction.
func (s *PlanService) syncConnectionFlag(ctx context.Context, tx *gorm.DB, plan *models.Plan) error {
	connRepo := s.connectionRepo.WithTx(tx)

	connection, err := connRepo.FindByID(ctx, plan.ConnectionID)
	if err != nil {
		return err
	}

	mora := plan.MoraStatus()

	var status models.StatusSet
	if plan.Status == models.PlanStatusActive && plan.Balance().IsPositive() {
		status = connection.PaymentStatus.With(mora)
	} else {
		status = connection.PaymentStatus.Without(mora)
	}

	return connRepo.UpdatePaymentStatus(ctx, connection.ID, status)
}

func planTypeLabel(planType string) string {
	if planType == models.PlanTypeMeter {
		return "contador"
	}
	return "instalación"
}
