package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/jcastellanos/aguadora-api/internal/models"
	"github.com/jcastellanos/aguadora-api/internal/repository"
)

// PaymentStatusService derives a connection's payment-status set from
// its monthly-payment history. It owns only the monthly (delinquent)
// dimension; the meter and installation flags belong to the plan
// service and are preserved verbatim here.
type PaymentStatusService struct {
	connectionRepo repository.ConnectionRepository
	paymentRepo    repository.MonthlyPaymentRepository
	policySvc      *BillingPolicyService

	// now is swappable in tests
	now func() time.Time
}

func NewPaymentStatusService(
	connectionRepo repository.ConnectionRepository,
	paymentRepo repository.MonthlyPaymentRepository,
	policySvc *BillingPolicyService,
) *PaymentStatusService {
	return &PaymentStatusService{
		connectionRepo: connectionRepo,
		paymentRepo:    paymentRepo,
		policySvc:      policySvc,
		now:            time.Now,
	}
}

// withTx returns a copy whose repositories run on the transaction, so
// a recompute inside it sees the rows written earlier in the same
// transaction.
func (s *PaymentStatusService) withTx(tx *gorm.DB) *PaymentStatusService {
	if tx == nil {
		return s
	}
	scoped := *s
	scoped.connectionRepo = s.connectionRepo.WithTx(tx)
	scoped.paymentRepo = s.paymentRepo.WithTx(tx)
	return &scoped
}

// BillingStart resolves the hybrid billing-start rule: connections
// migrated from the old paper system bill from the global cutover date,
// connections created after it bill from their own creation date.
func BillingStart(createdAt time.Time, policy models.BillingPolicy) time.Time {
	if createdAt.After(policy.BillingStartDate) {
		return createdAt
	}
	return policy.BillingStartDate
}

// RequiredMonths enumerates every calendar month from the billing start
// through the month containing now, inclusive. A connection created
// mid-month still owes that whole month.
func RequiredMonths(billingStart, now time.Time) []models.PaidMonth {
	start := time.Date(billingStart.Year(), billingStart.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	var months []models.PaidMonth
	for m := start; !m.After(end); m = m.AddDate(0, 1, 0) {
		months = append(months, models.PaidMonth{Year: m.Year(), Month: int(m.Month())})
	}
	return months
}

// PaidMonthSet expands all payment records into the set of months they
// cover, handling both record shapes and deduplicating.
func PaidMonthSet(payments []models.MonthlyPayment) map[models.PaidMonth]bool {
	paid := make(map[models.PaidMonth]bool)
	for i := range payments {
		for _, m := range payments[i].CoveredMonths() {
			paid[m] = true
		}
	}
	return paid
}

// UnpaidMonths returns the required months with no covering payment,
// in chronological order.
func UnpaidMonths(createdAt time.Time, policy models.BillingPolicy, payments []models.MonthlyPayment, now time.Time) []models.PaidMonth {
	paid := PaidMonthSet(payments)

	var unpaid []models.PaidMonth
	for _, m := range RequiredMonths(BillingStart(createdAt, policy), now) {
		if !paid[m] {
			unpaid = append(unpaid, m)
		}
	}
	return unpaid
}

// ComputeStatus is the pure recompute: it derives the new status set
// from the monthly dimension while carrying over any meter or
// installation delinquency already present on the connection.
func ComputeStatus(current models.StatusSet, createdAt time.Time, policy models.BillingPolicy, payments []models.MonthlyPayment, now time.Time) models.StatusSet {
	tokens := make([]string, 0, 3)
	if len(UnpaidMonths(createdAt, policy, payments, now)) > 0 {
		tokens = append(tokens, models.StatusDelinquent)
	}
	if current.Contains(models.StatusDelinquentMeter) {
		tokens = append(tokens, models.StatusDelinquentMeter)
	}
	if current.Contains(models.StatusDelinquentInstallation) {
		tokens = append(tokens, models.StatusDelinquentInstallation)
	}
	return models.NewStatusSet(tokens...)
}

// Recompute re-derives and persists the payment-status set of one
// connection. The replacement is a single atomic column update.
func (s *PaymentStatusService) Recompute(ctx context.Context, connectionID uint) (models.StatusSet, error) {
	connection, err := s.connectionRepo.FindByID(ctx, connectionID)
	if err != nil {
		return nil, err
	}

	policy, err := s.policySvc.Policy(ctx)
	if err != nil {
		return nil, err
	}

	payments, err := s.paymentRepo.FindByConnection(ctx, connectionID)
	if err != nil {
		return nil, err
	}

	status := ComputeStatus(connection.PaymentStatus, connection.CreatedAt, policy, payments, s.now())
	if err := s.connectionRepo.UpdatePaymentStatus(ctx, connectionID, status); err != nil {
		return nil, err
	}
	return status, nil
}

// OwedMonths returns the unpaid months of a connection, for statements
// and the delinquency report.
func (s *PaymentStatusService) OwedMonths(ctx context.Context, connectionID uint) ([]models.PaidMonth, error) {
	connection, err := s.connectionRepo.FindByID(ctx, connectionID)
	if err != nil {
		return nil, err
	}

	policy, err := s.policySvc.Policy(ctx)
	if err != nil {
		return nil, err
	}

	payments, err := s.paymentRepo.FindByConnection(ctx, connectionID)
	if err != nil {
		return nil, err
	}

	return UnpaidMonths(connection.CreatedAt, policy, payments, s.now()), nil
}
