package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jcastellanos/aguadora-api/internal/models"
	"github.com/jcastellanos/aguadora-api/internal/repository"
)

// OtherPaymentService records ad-hoc payments (reconnections, repairs,
// fines). These never touch the connection's payment-status set; their
// receipts carry the OP- prefix over the shared numeric sequence.
type OtherPaymentService struct {
	repo           repository.OtherPaymentRepository
	connectionRepo repository.ConnectionRepository
	receiptSvc     *ReceiptService
	auditSvc       *AuditService
}

func NewOtherPaymentService(
	repo repository.OtherPaymentRepository,
	connectionRepo repository.ConnectionRepository,
	receiptSvc *ReceiptService,
	auditSvc *AuditService,
) *OtherPaymentService {
	return &OtherPaymentService{
		repo:           repo,
		connectionRepo: connectionRepo,
		receiptSvc:     receiptSvc,
		auditSvc:       auditSvc,
	}
}

func (s *OtherPaymentService) FindByID(ctx context.Context, id uint) (*models.OtherPayment, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *OtherPaymentService) FindByConnection(ctx context.Context, connectionID uint) ([]models.OtherPayment, error) {
	return s.repo.FindByConnection(ctx, connectionID)
}

// RecordOtherPaymentInput carries the parameters for one ad-hoc payment
type RecordOtherPaymentInput struct {
	ConnectionID  uint
	Concept       string
	Amount        decimal.Decimal
	PaymentDate   time.Time
	PayerName     string
	PayerIdentity string
	Notes         *string
}

// Record registers one ad-hoc payment with an OP-prefixed receipt.
func (s *OtherPaymentService) Record(ctx context.Context, input RecordOtherPaymentInput, actorID *uint) (*models.OtherPayment, error) {
	if input.Concept == "" {
		return nil, NewValidationError("concept", "el concepto del pago es obligatorio")
	}
	if !input.Amount.IsPositive() {
		return nil, NewValidationError("amount", "el monto debe ser mayor que cero")
	}
	if input.PayerName == "" {
		return nil, NewValidationError("payer_name", "el nombre del pagador es obligatorio")
	}

	if _, err := s.connectionRepo.FindByID(ctx, input.ConnectionID); err != nil {
		return nil, ErrNotFound
	}

	if input.PaymentDate.IsZero() {
		input.PaymentDate = time.Now()
	}

	payment := &models.OtherPayment{
		ConnectionID:    input.ConnectionID,
		Concept:         input.Concept,
		Amount:          input.Amount,
		PaymentDate:     input.PaymentDate,
		PayerName:       input.PayerName,
		PayerIdentity:   input.PayerIdentity,
		Notes:           input.Notes,
		CreatedByUserID: actorID,
	}

	if _, err := s.receiptSvc.WithRetry(ctx, func(receipt string) error {
		payment.ReceiptNumber = models.ReceiptPrefix + receipt
		return s.repo.Create(ctx, payment)
	}); err != nil {
		return nil, err
	}

	s.auditSvc.Log(ctx, actorID, "RECORD_PAYMENT", "OtherPayment", payment.ID,
		fmt.Sprintf("Pago por %s de la paja #%d. Recibo %s por %s",
			payment.Concept, payment.ConnectionID, payment.ReceiptNumber, payment.Amount.StringFixed(2)), "", "")

	return payment, nil
}

// Delete soft-deletes an ad-hoc payment. The receipt number remains
// reserved: the sequencer scans soft-deleted rows too.
func (s *OtherPaymentService) Delete(ctx context.Context, id uint, actorID *uint) error {
	payment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return ErrNotFound
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.auditSvc.Log(ctx, actorID, "DELETE", "OtherPayment", id,
		fmt.Sprintf("Pago eliminado (recibo %s)", payment.ReceiptNumber), "", "")
	return nil
}
