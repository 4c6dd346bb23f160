package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/jcastellanos/aguadora-api/internal/jobs"
	"github.com/jcastellanos/aguadora-api/internal/models"
	"github.com/jcastellanos/aguadora-api/internal/repository"
)

// PaymentService records monthly-fee payments. The record insert and
// the payment-status recompute commit in one transaction.
type PaymentService struct {
	db             *gorm.DB
	repo           repository.MonthlyPaymentRepository
	connectionRepo repository.ConnectionRepository
	receiptSvc     *ReceiptService
	statusSvc      *PaymentStatusService
	policySvc      *BillingPolicyService
	auditSvc       *AuditService
	worker         *jobs.Worker

	// now is swappable in tests
	now func() time.Time
}

func NewPaymentService(
	db *gorm.DB,
	repo repository.MonthlyPaymentRepository,
	connectionRepo repository.ConnectionRepository,
	receiptSvc *ReceiptService,
	statusSvc *PaymentStatusService,
	policySvc *BillingPolicyService,
	auditSvc *AuditService,
	worker *jobs.Worker,
) *PaymentService {
	return &PaymentService{
		db:             db,
		repo:           repo,
		connectionRepo: connectionRepo,
		receiptSvc:     receiptSvc,
		statusSvc:      statusSvc,
		policySvc:      policySvc,
		auditSvc:       auditSvc,
		worker:         worker,
		now:            time.Now,
	}
}

func (s *PaymentService) FindByID(ctx context.Context, id uint) (*models.MonthlyPayment, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *PaymentService) FindByConnection(ctx context.Context, connectionID uint) ([]models.MonthlyPayment, error) {
	return s.repo.FindByConnection(ctx, connectionID)
}

// RecordMonthlyPaymentInput carries the parameters for one monthly-fee recording
type RecordMonthlyPaymentInput struct {
	ConnectionID  uint
	Months        []models.PaidMonth
	PayerName     string
	PayerIdentity string
	FeePerMonth   *decimal.Decimal // nil means the current policy fee
	PaymentDate   time.Time
	Notes         *string
}

// RecordPayment registers one payment covering the selected months. The
// months must be distinct, not already paid and not beyond the current
// month; a single receipt number covers the whole recording.
func (s *PaymentService) RecordPayment(ctx context.Context, input RecordMonthlyPaymentInput, actorID *uint) (*models.MonthlyPayment, error) {
	if len(input.Months) == 0 {
		return nil, NewValidationError("months", "debe seleccionar al menos un mes")
	}
	if input.PayerName == "" {
		return nil, NewValidationError("payer_name", "el nombre del pagador es obligatorio")
	}

	connection, err := s.connectionRepo.FindByID(ctx, input.ConnectionID)
	if err != nil {
		return nil, ErrNotFound
	}
	if !connection.IsActive() {
		return nil, NewValidationError("connection_id", "la paja de agua no está activa")
	}

	now := s.now()
	currentMonth := models.PaidMonth{Year: now.Year(), Month: int(now.Month())}

	seen := make(map[models.PaidMonth]bool, len(input.Months))
	for _, m := range input.Months {
		if m.Month < 1 || m.Month > 12 {
			return nil, NewValidationError("months", fmt.Sprintf("mes inválido: %d", m.Month))
		}
		if seen[m] {
			return nil, NewValidationError("months", "el mes "+m.String()+" está repetido")
		}
		seen[m] = true

		if m.Year > currentMonth.Year || (m.Year == currentMonth.Year && m.Month > currentMonth.Month) {
			return nil, NewValidationError("months", "no se pueden pagar meses futuros: "+m.String())
		}

		paid, err := s.repo.ExistsForMonth(ctx, input.ConnectionID, m.Year, m.Month)
		if err != nil {
			return nil, err
		}
		if paid {
			return nil, NewValidationError("months", "el mes "+m.String()+" ya fue pagado")
		}
	}

	fee, err := s.resolveFee(ctx, input.FeePerMonth)
	if err != nil {
		return nil, err
	}

	if input.PaymentDate.IsZero() {
		input.PaymentDate = now
	}

	payment := &models.MonthlyPayment{
		ConnectionID:    input.ConnectionID,
		MonthsPaid:      input.Months,
		PaymentDate:     input.PaymentDate,
		PaymentGroupID:  uuid.NewString(),
		PayerName:       input.PayerName,
		PayerIdentity:   input.PayerIdentity,
		AmountPerMonth:  fee,
		TotalAmount:     fee.Mul(decimal.NewFromInt(int64(len(input.Months)))),
		Notes:           input.Notes,
		CreatedByUserID: actorID,
	}

	// Insert and status recompute commit together. The months check
	// above is advisory; the unique index on covered months is what
	// stops a concurrent recording of the same month, surfaced here as
	// a conflict.
	if _, err := s.receiptSvc.WithRetry(ctx, func(receipt string) error {
		payment.ReceiptNumber = receipt
		return runInTransaction(ctx, s.db, func(tx *gorm.DB) error {
			if err := s.repo.WithTx(tx).Create(ctx, payment); err != nil {
				return err
			}
			_, err := s.statusSvc.withTx(tx).Recompute(ctx, input.ConnectionID)
			return err
		})
	}); err != nil {
		if errors.Is(err, repository.ErrMonthAlreadyCovered) {
			return nil, ErrConflict
		}
		return nil, err
	}

	s.auditSvc.Log(ctx, actorID, "RECORD_PAYMENT", "MonthlyPayment", payment.ID,
		fmt.Sprintf("Pago mensual de la paja #%d. Recibo %s, %d mes(es), total %s",
			payment.ConnectionID, payment.ReceiptNumber, len(input.Months), payment.TotalAmount.StringFixed(2)), "", "")

	return payment, nil
}

func (s *PaymentService) resolveFee(ctx context.Context, override *decimal.Decimal) (decimal.Decimal, error) {
	if override != nil {
		if !override.IsPositive() {
			return decimal.Zero, NewValidationError("fee_per_month", "la tarifa por mes debe ser mayor que cero")
		}
		return *override, nil
	}
	policy, err := s.policySvc.Policy(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return policy.MonthlyFee, nil
}
