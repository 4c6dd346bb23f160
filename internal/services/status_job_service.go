package services

import (
	"context"
	"fmt"

	"github.com/jcastellanos/aguadora-api/internal/jobs"
	"github.com/jcastellanos/aguadora-api/internal/models"
	"github.com/jcastellanos/aguadora-api/internal/repository"
	"github.com/jcastellanos/aguadora-api/pkg/logger"
)

// StatusJobService runs the nightly payment-status sweep: every
// connection is recomputed so a new month rolling in flips unpaid
// connections to delinquent without waiting for a payment event.
type StatusJobService struct {
	connectionRepo  repository.ConnectionRepository
	userRepo        repository.UserRepository
	statusSvc       *PaymentStatusService
	reportSvc       *ReportService
	notificationSvc *NotificationService
	emailSvc        *EmailService
	worker          *jobs.Worker
}

func NewStatusJobService(
	connectionRepo repository.ConnectionRepository,
	userRepo repository.UserRepository,
	statusSvc *PaymentStatusService,
	reportSvc *ReportService,
	notificationSvc *NotificationService,
	emailSvc *EmailService,
	worker *jobs.Worker,
) *StatusJobService {
	return &StatusJobService{
		connectionRepo:  connectionRepo,
		userRepo:        userRepo,
		statusSvc:       statusSvc,
		reportSvc:       reportSvc,
		notificationSvc: notificationSvc,
		emailSvc:        emailSvc,
		worker:          worker,
	}
}

// RecomputeAll re-derives the payment-status set of every connection.
// Connections that turn delinquent during the sweep are reported to the
// administrators; individual failures are logged and skipped so one bad
// row never aborts the sweep.
func (s *StatusJobService) RecomputeAll(ctx context.Context) error {
	ids, err := s.connectionRepo.FindAllIDs(ctx)
	if err != nil {
		return err
	}

	var newlyDelinquent []uint
	for _, id := range ids {
		connection, err := s.connectionRepo.FindByID(ctx, id)
		if err != nil {
			logger.Error(fmt.Sprintf("[StatusSweep] Failed to load connection %d: %v", id, err))
			continue
		}
		wasCurrent := connection.PaymentStatus.IsCurrent()

		status, err := s.statusSvc.Recompute(ctx, id)
		if err != nil {
			logger.Error(fmt.Sprintf("[StatusSweep] Failed to recompute connection %d: %v", id, err))
			continue
		}

		if wasCurrent && !status.IsCurrent() {
			newlyDelinquent = append(newlyDelinquent, id)
		}
	}

	logger.Info(fmt.Sprintf("[StatusSweep] Recomputed %d connections, %d newly delinquent", len(ids), len(newlyDelinquent)))

	if len(newlyDelinquent) > 0 {
		if err := s.notificationSvc.NotifyAdmins(ctx,
			"Nuevas pajas en mora",
			fmt.Sprintf("La revisión nocturna detectó %d paja(s) que pasaron a mora", len(newlyDelinquent)),
			models.NotificationTypeNewDelinquent); err != nil {
			logger.Error(fmt.Sprintf("[StatusSweep] Failed to notify admins: %v", err))
		}

		s.worker.EnqueueAsync(func(ctx context.Context) error {
			return s.emailDelinquencySummary(ctx)
		})
	}

	return nil
}

func (s *StatusJobService) emailDelinquencySummary(ctx context.Context) error {
	rows, err := s.reportSvc.DelinquentRows(ctx)
	if err != nil {
		return err
	}

	entries := make([]DelinquentEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, DelinquentEntry{
			OwnerName:    row.OwnerName,
			Community:    row.Community,
			ConnectionID: row.ConnectionID,
			OwedMonths:   len(row.OwedMonths),
		})
	}

	admins, err := s.userRepo.FindAdmins(ctx)
	if err != nil {
		return err
	}
	for i := range admins {
		if err := s.emailSvc.SendDelinquencySummary(ctx, &admins[i], entries); err != nil {
			logger.Error(fmt.Sprintf("[StatusSweep] Failed to email %s: %v", admins[i].Email, err))
		}
	}
	return nil
}

// GetWorkerStats exposes worker statistics for the health endpoint
func (s *StatusJobService) GetWorkerStats() jobs.WorkerStats {
	return s.worker.GetStats()
}
