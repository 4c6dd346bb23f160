package services

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/jcastellanos/aguadora-api/internal/models"
	"github.com/jcastellanos/aguadora-api/internal/repository"
	"github.com/jcastellanos/aguadora-api/pkg/logger"
)

// BillingPolicyService loads and mutates the two system-wide billing
// settings. Engines never read settings themselves; they receive a
// BillingPolicy value built here, so tests can pass arbitrary policies.
type BillingPolicyService struct {
	repo     repository.SettingRepository
	auditSvc *AuditService
}

func NewBillingPolicyService(repo repository.SettingRepository, auditSvc *AuditService) *BillingPolicyService {
	return &BillingPolicyService{repo: repo, auditSvc: auditSvc}
}

// Policy returns the current billing policy, falling back to defaults
// for settings that were never written.
func (s *BillingPolicyService) Policy(ctx context.Context) (models.BillingPolicy, error) {
	policy := models.BillingPolicy{
		MonthlyFee: models.DefaultMonthlyFee,
	}

	start, err := time.Parse("2006-01-02", models.DefaultBillingStartDate)
	if err != nil {
		return policy, err
	}
	policy.BillingStartDate = start

	if setting, err := s.repo.Get(ctx, models.SettingMonthlyFee); err == nil {
		fee, parseErr := decimal.NewFromString(setting.Value)
		if parseErr != nil {
			logger.Warn("Invalid monthly_fee setting, using default", "value", setting.Value)
		} else {
			policy.MonthlyFee = fee
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return policy, err
	}

	if setting, err := s.repo.Get(ctx, models.SettingBillingStartDate); err == nil {
		date, parseErr := time.Parse("2006-01-02", setting.Value)
		if parseErr != nil {
			logger.Warn("Invalid monthly_billing_start_date setting, using default", "value", setting.Value)
		} else {
			policy.BillingStartDate = date
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return policy, err
	}

	return policy, nil
}

// SetMonthlyFee updates the recurring fee charged per month
func (s *BillingPolicyService) SetMonthlyFee(ctx context.Context, amount decimal.Decimal, actorID *uint) error {
	if !amount.IsPositive() {
		return NewValidationError("monthly_fee", "la tarifa mensual debe ser mayor que cero")
	}

	if err := s.repo.Set(ctx, models.SettingMonthlyFee, amount.StringFixed(2)); err != nil {
		return err
	}

	s.auditSvc.Log(ctx, actorID, "UPDATE", "Setting", 0,
		"Tarifa mensual actualizada a "+amount.StringFixed(2), "", "")
	return nil
}

// SetBillingStartDate updates the global billing cutover date
func (s *BillingPolicyService) SetBillingStartDate(ctx context.Context, date string, actorID *uint) error {
	parsed, err := time.Parse("2006-01-02", date)
	if err != nil {
		return NewValidationError("monthly_billing_start_date", "la fecha debe tener formato AAAA-MM-DD")
	}

	if err := s.repo.Set(ctx, models.SettingBillingStartDate, parsed.Format("2006-01-02")); err != nil {
		return err
	}

	s.auditSvc.Log(ctx, actorID, "UPDATE", "Setting", 0,
		"Fecha de inicio de facturación actualizada a "+parsed.Format("2006-01-02"), "", "")
	return nil
}
