package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/jcastellanos/aguadora-api/internal/jobs"
	"github.com/jcastellanos/aguadora-api/internal/models"
	"github.com/jcastellanos/aguadora-api/internal/repository"
)

// UserService manages staff accounts
type UserService struct {
	repo     repository.UserRepository
	emailSvc *EmailService
	auditSvc *AuditService
	worker   *jobs.Worker
}

func NewUserService(repo repository.UserRepository, emailSvc *EmailService, auditSvc *AuditService, worker *jobs.Worker) *UserService {
	return &UserService{repo: repo, emailSvc: emailSvc, auditSvc: auditSvc, worker: worker}
}

func (s *UserService) FindByID(ctx context.Context, id uint) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, ErrNotFound
	}
	return user, nil
}

func (s *UserService) List(ctx context.Context, query *repository.ListQuery) ([]models.User, int64, error) {
	return s.repo.List(ctx, query)
}

// Create registers a staff account and emails the welcome notice
func (s *UserService) Create(ctx context.Context, user *models.User, password string, actorID *uint) error {
	if user.Email == "" {
		return NewValidationError("email", "el correo es obligatorio")
	}
	if len(password) < 8 {
		return NewValidationError("password", "la contraseña debe tener al menos 8 caracteres")
	}
	if user.Role != models.RoleAdmin && user.Role != models.RoleOperator {
		return NewValidationError("role", "rol inválido")
	}

	if _, err := s.repo.FindByEmail(ctx, user.Email); err == nil {
		return NewValidationError("email", "ya existe un usuario con este correo")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hashed, err := HashPassword(password)
	if err != nil {
		return err
	}
	user.EncryptedPassword = hashed

	if err := s.repo.Create(ctx, user); err != nil {
		return err
	}

	s.auditSvc.Log(ctx, actorID, "CREATE", "User", user.ID,
		"Usuario creado: "+user.Email+" ("+user.Role+")", "", "")

	created := *user
	s.worker.EnqueueAsync(func(ctx context.Context) error {
		return s.emailSvc.SendAccountCreated(ctx, &created)
	})

	return nil
}

// Update modifies a staff account; the password only changes when a new
// one is provided.
func (s *UserService) Update(ctx context.Context, user *models.User, newPassword string, actorID *uint) error {
	if newPassword != "" {
		if len(newPassword) < 8 {
			return NewValidationError("password", "la contraseña debe tener al menos 8 caracteres")
		}
		hashed, err := HashPassword(newPassword)
		if err != nil {
			return err
		}
		user.EncryptedPassword = hashed
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return err
	}

	s.auditSvc.Log(ctx, actorID, "UPDATE", "User", user.ID,
		"Usuario actualizado: "+user.Email, "", "")
	return nil
}

// Deactivate disables a staff account without removing its history
func (s *UserService) Deactivate(ctx context.Context, id uint, actorID *uint) error {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return ErrNotFound
	}
	if actorID != nil && *actorID == id {
		return NewValidationError("id", "no puede desactivar su propia cuenta")
	}

	user.Status = models.UserStatusInactive
	if err := s.repo.Update(ctx, user); err != nil {
		return err
	}

	s.auditSvc.Log(ctx, actorID, "UPDATE", "User", id,
		"Usuario desactivado: "+user.Email, "", "")
	return nil
}
