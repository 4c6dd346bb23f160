package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/jcastellanos/aguadora-api/internal/models"
)

// ConnectionRepository defines the interface for water connection data access
type ConnectionRepository interface {
	WithTx(tx *gorm.DB) ConnectionRepository
	FindByID(ctx context.Context, id uint) (*models.Connection, error)
	FindByIDWithOwner(ctx context.Context, id uint) (*models.Connection, error)
	FindByOwner(ctx context.Context, ownerID uint) ([]models.Connection, error)
	FindAllIDs(ctx context.Context) ([]uint, error)
	List(ctx context.Context, query *ListQuery) ([]models.Connection, int64, error)
	Create(ctx context.Context, connection *models.Connection) error
	Update(ctx context.Context, connection *models.Connection) error
	UpdatePaymentStatus(ctx context.Context, id uint, status models.StatusSet) error
	Delete(ctx context.Context, id uint) error
}

type connectionRepository struct {
	db *gorm.DB
}

// NewConnectionRepository creates a new connection repository
func NewConnectionRepository(db *gorm.DB) ConnectionRepository {
	return &connectionRepository{db: db}
}

// WithTx returns a copy bound to the given transaction. A nil tx
// returns the repository unchanged.
func (r *connectionRepository) WithTx(tx *gorm.DB) ConnectionRepository {
	if tx == nil {
		return r
	}
	return &connectionRepository{db: tx}
}

func (r *connectionRepository) FindByID(ctx context.Context, id uint) (*models.Connection, error) {
	var connection models.Connection
	err := r.db.WithContext(ctx).First(&connection, id).Error
	if err != nil {
		return nil, err
	}
	return &connection, nil
}

func (r *connectionRepository) FindByIDWithOwner(ctx context.Context, id uint) (*models.Connection, error) {
	var connection models.Connection
	err := r.db.WithContext(ctx).
		Preload("Owner").
		First(&connection, id).Error
	if err != nil {
		return nil, err
	}
	return &connection, nil
}

func (r *connectionRepository) FindByOwner(ctx context.Context, ownerID uint) ([]models.Connection, error) {
	var connections []models.Connection
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("id ASC").
		Find(&connections).Error
	return connections, err
}

// FindAllIDs returns the IDs of every non-deleted connection. Used by
// the nightly status recompute, which works one connection at a time
// to keep memory flat.
func (r *connectionRepository) FindAllIDs(ctx context.Context) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&models.Connection{}).
		Order("id ASC").
		Pluck("id", &ids).Error
	return ids, err
}

func (r *connectionRepository) List(ctx context.Context, query *ListQuery) ([]models.Connection, int64, error) {
	db := r.db.WithContext(ctx).Model(&models.Connection{}).Preload("Owner")

	if status := query.Filters["status"]; status != "" {
		db = db.Where("connections.status = ?", status)
	}
	if community := query.Filters["community"]; community != "" {
		db = db.Where("connections.community = ?", community)
	}
	if paymentStatus := query.Filters["payment_status"]; paymentStatus != "" {
		db = db.Where("connections.payment_status @> ?", `["`+paymentStatus+`"]`)
	}
	if search := query.Filters["search_term"]; search != "" {
		db = db.Joins("JOIN owners ON owners.id = connections.owner_id").
			Where("owners.full_name ILIKE ? OR owners.identity ILIKE ?", "%"+search+"%", "%"+search+"%")
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	order := "connections.id ASC"
	if query.SortBy == "created_at" {
		order = "connections.created_at"
		if query.SortDir == "desc" {
			order += " DESC"
		}
	}

	var connections []models.Connection
	err := db.Order(order).Limit(query.PerPage).Offset(query.Offset()).Find(&connections).Error
	return connections, total, err
}

func (r *connectionRepository) Create(ctx context.Context, connection *models.Connection) error {
	return r.db.WithContext(ctx).Create(connection).Error
}

func (r *connectionRepository) Update(ctx context.Context, connection *models.Connection) error {
	return r.db.WithContext(ctx).Save(connection).Error
}

// UpdatePaymentStatus replaces the payment-status set in one UPDATE so
// concurrent recomputes never leave a partially written set.
func (r *connectionRepository) UpdatePaymentStatus(ctx context.Context, id uint, status models.StatusSet) error {
	return r.db.WithContext(ctx).
		Model(&models.Connection{}).
		Where("id = ?", id).
		Update("payment_status", status).Error
}

func (r *connectionRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Connection{}, id).Error
}
