package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/jcastellanos/aguadora-api/internal/models"
)

// OwnerRepository defines the interface for property owner data access
type OwnerRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Owner, error)
	FindByIdentity(ctx context.Context, identity string) (*models.Owner, error)
	List(ctx context.Context, query *ListQuery) ([]models.Owner, int64, error)
	Create(ctx context.Context, owner *models.Owner) error
	Update(ctx context.Context, owner *models.Owner) error
	Delete(ctx context.Context, id uint) error
}

type ownerRepository struct {
	db *gorm.DB
}

// NewOwnerRepository creates a new owner repository
func NewOwnerRepository(db *gorm.DB) OwnerRepository {
	return &ownerRepository{db: db}
}

func (r *ownerRepository) FindByID(ctx context.Context, id uint) (*models.Owner, error) {
	var owner models.Owner
	err := r.db.WithContext(ctx).Preload("Connections").First(&owner, id).Error
	if err != nil {
		return nil, err
	}
	return &owner, nil
}

func (r *ownerRepository) FindByIdentity(ctx context.Context, identity string) (*models.Owner, error) {
	var owner models.Owner
	err := r.db.WithContext(ctx).Where("identity = ?", identity).First(&owner).Error
	if err != nil {
		return nil, err
	}
	return &owner, nil
}

func (r *ownerRepository) List(ctx context.Context, query *ListQuery) ([]models.Owner, int64, error) {
	db := r.db.WithContext(ctx).Model(&models.Owner{})

	if community := query.Filters["community"]; community != "" {
		db = db.Where("community = ?", community)
	}
	if search := query.Filters["search_term"]; search != "" {
		db = db.Where("full_name ILIKE ? OR identity ILIKE ?", "%"+search+"%", "%"+search+"%")
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var owners []models.Owner
	err := db.Preload("Connections").
		Order("full_name ASC").
		Limit(query.PerPage).
		Offset(query.Offset()).
		Find(&owners).Error
	return owners, total, err
}

func (r *ownerRepository) Create(ctx context.Context, owner *models.Owner) error {
	return r.db.WithContext(ctx).Create(owner).Error
}

func (r *ownerRepository) Update(ctx context.Context, owner *models.Owner) error {
	return r.db.WithContext(ctx).Omit("Connections").Save(owner).Error
}

func (r *ownerRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Owner{}, id).Error
}
