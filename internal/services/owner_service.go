package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/jcastellanos/aguadora-api/internal/models"
	"github.com/jcastellanos/aguadora-api/internal/repository"
)

type OwnerService struct {
	repo           repository.OwnerRepository
	connectionRepo repository.ConnectionRepository
	auditSvc       *AuditService
}

func NewOwnerService(repo repository.OwnerRepository, connectionRepo repository.ConnectionRepository, auditSvc *AuditService) *OwnerService {
	return &OwnerService{repo: repo, connectionRepo: connectionRepo, auditSvc: auditSvc}
}

func (s *OwnerService) FindByID(ctx context.Context, id uint) (*models.Owner, error) {
	owner, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, ErrNotFound
	}
	return owner, nil
}

func (s *OwnerService) List(ctx context.Context, query *repository.ListQuery) ([]models.Owner, int64, error) {
	return s.repo.List(ctx, query)
}

func (s *OwnerService) Create(ctx context.Context, owner *models.Owner, actorID *uint) error {
	if owner.FullName == "" {
		return NewValidationError("full_name", "el nombre completo es obligatorio")
	}
	if owner.Identity == "" {
		return NewValidationError("identity", "el número de identidad es obligatorio")
	}

	if _, err := s.repo.FindByIdentity(ctx, owner.Identity); err == nil {
		return NewValidationError("identity", "ya existe un propietario con esta identidad")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	if err := s.repo.Create(ctx, owner); err != nil {
		return err
	}

	s.auditSvc.Log(ctx, actorID, "CREATE", "Owner", owner.ID,
		"Propietario registrado: "+owner.FullName, "", "")
	return nil
}

func (s *OwnerService) Update(ctx context.Context, owner *models.Owner, actorID *uint) error {
	if owner.FullName == "" {
		return NewValidationError("full_name", "el nombre completo es obligatorio")
	}

	if existing, err := s.repo.FindByIdentity(ctx, owner.Identity); err == nil && existing.ID != owner.ID {
		return NewValidationError("identity", "ya existe un propietario con esta identidad")
	} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	if err := s.repo.Update(ctx, owner); err != nil {
		return err
	}

	s.auditSvc.Log(ctx, actorID, "UPDATE", "Owner", owner.ID,
		"Propietario actualizado: "+owner.FullName, "", "")
	return nil
}

// Delete soft-deletes an owner. Owners with connections on record
// cannot be removed; the connections must be deleted first.
func (s *OwnerService) Delete(ctx context.Context, id uint, actorID *uint) error {
	owner, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return ErrNotFound
	}

	connections, err := s.connectionRepo.FindByOwner(ctx, id)
	if err != nil {
		return err
	}
	if len(connections) > 0 {
		return NewValidationError("id", "el propietario tiene pajas registradas y no puede eliminarse")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.auditSvc.Log(ctx, actorID, "DELETE", "Owner", id,
		"Propietario eliminado: "+owner.FullName, "", "")
	return nil
}
