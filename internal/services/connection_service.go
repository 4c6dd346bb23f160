package services

import (
	"context"
	"fmt"

	"github.com/jcastellanos/aguadora-api/internal/models"
	"github.com/jcastellanos/aguadora-api/internal/repository"
)

// ConnectionService manages water connections. Deleting a connection
// cascades: active plans are cancelled first so no orphaned mora flags
// survive the delete.
type ConnectionService struct {
	repo      repository.ConnectionRepository
	ownerRepo repository.OwnerRepository
	planSvc   *PlanService
	statusSvc *PaymentStatusService
	auditSvc  *AuditService
}

func NewConnectionService(
	repo repository.ConnectionRepository,
	ownerRepo repository.OwnerRepository,
	planSvc *PlanService,
	statusSvc *PaymentStatusService,
	auditSvc *AuditService,
) *ConnectionService {
	return &ConnectionService{
		repo:      repo,
		ownerRepo: ownerRepo,
		planSvc:   planSvc,
		statusSvc: statusSvc,
		auditSvc:  auditSvc,
	}
}

func (s *ConnectionService) FindByID(ctx context.Context, id uint) (*models.Connection, error) {
	connection, err := s.repo.FindByIDWithOwner(ctx, id)
	if err != nil {
		return nil, ErrNotFound
	}
	return connection, nil
}

func (s *ConnectionService) List(ctx context.Context, query *repository.ListQuery) ([]models.Connection, int64, error) {
	return s.repo.List(ctx, query)
}

// Create registers a new connection and derives its initial payment
// status. A connection created after the billing cutover owes from its
// own creation month, so it may be delinquent from day one.
func (s *ConnectionService) Create(ctx context.Context, connection *models.Connection, actorID *uint) error {
	if _, err := s.ownerRepo.FindByID(ctx, connection.OwnerID); err != nil {
		return NewValidationError("owner_id", "el propietario no existe")
	}

	if err := s.repo.Create(ctx, connection); err != nil {
		return err
	}

	if _, err := s.statusSvc.Recompute(ctx, connection.ID); err != nil {
		return err
	}

	s.auditSvc.Log(ctx, actorID, "CREATE", "Connection", connection.ID,
		fmt.Sprintf("Paja registrada para el propietario #%d en %s", connection.OwnerID, connection.Community), "", "")
	return nil
}

func (s *ConnectionService) Update(ctx context.Context, connection *models.Connection, actorID *uint) error {
	if err := s.repo.Update(ctx, connection); err != nil {
		return err
	}

	s.auditSvc.Log(ctx, actorID, "UPDATE", "Connection", connection.ID, "Paja actualizada", "", "")
	return nil
}

// Suspend marks a connection operationally suspended. A suspended
// connection accepts no new payments or plans until reactivated.
func (s *ConnectionService) Suspend(ctx context.Context, id uint, actorID *uint) (*models.Connection, error) {
	return s.setStatus(ctx, id, models.ConnectionStatusSuspended, actorID)
}

// Activate returns a suspended connection to service
func (s *ConnectionService) Activate(ctx context.Context, id uint, actorID *uint) (*models.Connection, error) {
	return s.setStatus(ctx, id, models.ConnectionStatusActive, actorID)
}

func (s *ConnectionService) setStatus(ctx context.Context, id uint, status string, actorID *uint) (*models.Connection, error) {
	connection, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, ErrNotFound
	}
	if connection.Status == status {
		return nil, NewValidationError("status", "la paja ya se encuentra en ese estado")
	}

	connection.Status = status
	if err := s.repo.Update(ctx, connection); err != nil {
		return nil, err
	}

	s.auditSvc.Log(ctx, actorID, "UPDATE", "Connection", id,
		"Estado operativo de la paja cambiado a "+status, "", "")
	return connection, nil
}

// Delete soft-deletes a connection. Active plans are cancelled first so
// the cancellation and its reason enter the audit trail.
func (s *ConnectionService) Delete(ctx context.Context, id uint, actorID *uint) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return ErrNotFound
	}

	if err := s.planSvc.CancelActiveForConnection(ctx, id, "Paja de agua eliminada", actorID); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.auditSvc.Log(ctx, actorID, "DELETE", "Connection", id, "Paja eliminada", "", "")
	return nil
}
