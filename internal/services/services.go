package services

import (
	"context"

	"gorm.io/gorm"

	"github.com/jcastellanos/aguadora-api/internal/config"
	"github.com/jcastellanos/aguadora-api/internal/jobs"
	"github.com/jcastellanos/aguadora-api/internal/repository"
)

// Services holds all service instances
type Services struct {
	Auth          *AuthService
	User          *UserService
	Owner         *OwnerService
	Connection    *ConnectionService
	Plan          *PlanService
	Payment       *PaymentService
	OtherPayment  *OtherPaymentService
	PaymentStatus *PaymentStatusService
	BillingPolicy *BillingPolicyService
	Receipt       *ReceiptService
	Notification  *NotificationService
	Report        *ReportService
	Audit         *AuditService
	Email         *EmailService
	StatusJob     *StatusJobService
}

// NewServices creates all service instances
func NewServices(repos *repository.Repositories, worker *jobs.Worker, cfg *config.Config, db *gorm.DB) *Services {
	auditSvc := NewAuditService(db)
	emailSvc := NewEmailService(cfg)
	notificationSvc := NewNotificationService(repos.Notification, repos.User)
	receiptSvc := NewReceiptService(repos.Receipt)
	policySvc := NewBillingPolicyService(repos.Setting, auditSvc)
	statusSvc := NewPaymentStatusService(repos.Connection, repos.MonthlyPayment, policySvc)
	planSvc := NewPlanService(db, repos.Plan, repos.Connection, receiptSvc, auditSvc, notificationSvc, worker)
	reportSvc := NewReportService(repos.Connection, repos.MonthlyPayment, repos.Plan, repos.OtherPayment, statusSvc, policySvc)

	return &Services{
		Auth:          NewAuthService(repos.User, repos.RefreshToken, cfg),
		User:          NewUserService(repos.User, emailSvc, auditSvc, worker),
		Owner:         NewOwnerService(repos.Owner, repos.Connection, auditSvc),
		Connection:    NewConnectionService(repos.Connection, repos.Owner, planSvc, statusSvc, auditSvc),
		Plan:          planSvc,
		Payment:       NewPaymentService(db, repos.MonthlyPayment, repos.Connection, receiptSvc, statusSvc, policySvc, auditSvc, worker),
		OtherPayment:  NewOtherPaymentService(repos.OtherPayment, repos.Connection, receiptSvc, auditSvc),
		PaymentStatus: statusSvc,
		BillingPolicy: policySvc,
		Receipt:       receiptSvc,
		Notification:  notificationSvc,
		Report:        reportSvc,
		Audit:         auditSvc,
		Email:         emailSvc,
		StatusJob:     NewStatusJobService(repos.Connection, repos.User, statusSvc, reportSvc, notificationSvc, emailSvc, worker),
	}
}

// runInTransaction executes fn atomically when a database handle is
// available. With a nil db the sequence runs on the repositories' own
// handles; services built from mocked repositories take that path.
func runInTransaction(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.WithContext(ctx).Transaction(fn)
}
