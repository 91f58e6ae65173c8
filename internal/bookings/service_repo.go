package bookings

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/epharm-labs/epharm-backend/pkg/db/models"
)

// ServiceRepository handles the bookable offerings catalog.
type ServiceRepository interface {
	WithTx(tx *gorm.DB) ServiceRepository
	Create(ctx context.Context, service *models.Service) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Service, error)
	List(ctx context.Context) ([]models.Service, error)
}

type serviceRepository struct {
	db *gorm.DB
}

// NewServiceRepository returns a service offering repository.
func NewServiceRepository(db *gorm.DB) ServiceRepository {
	return &serviceRepository{db: db}
}

func (r *serviceRepository) WithTx(tx *gorm.DB) ServiceRepository {
	if tx == nil {
		return r
	}
	return &serviceRepository{db: tx}
}

func (r *serviceRepository) Create(ctx context.Context, service *models.Service) error {
	return r.db.WithContext(ctx).Create(service).Error
}

func (r *serviceRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Service, error) {
	var service models.Service
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&service).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &service, nil
}

func (r *serviceRepository) List(ctx context.Context) ([]models.Service, error) {
	var services []models.Service
	if err := r.db.WithContext(ctx).
		Order("name ASC").
		Find(&services).Error; err != nil {
		return nil, err
	}
	return services, nil
}
