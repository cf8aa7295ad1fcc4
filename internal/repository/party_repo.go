package repository

import (
	"context"

	"github.com/Eursukkul/courier-backoffice/internal/models"
	"gorm.io/gorm"
)

type ShipperRepository interface {
	Create(ctx context.Context, shipper *models.Shipper) error
	FindByID(ctx context.Context, id uint) (*models.Shipper, error)
}

type ConsigneeRepository interface {
	Create(ctx context.Context, consignee *models.Consignee) error
	FindByID(ctx context.Context, id uint) (*models.Consignee, error)
}

type shipperRepository struct {
	db *gorm.DB
}

func NewShipperRepository(db *gorm.DB) ShipperRepository {
	return &shipperRepository{db: db}
}

func (r *shipperRepository) Create(ctx context.Context, shipper *models.Shipper) error {
	return r.db.WithContext(ctx).Create(shipper).Error
}

func (r *shipperRepository) FindByID(ctx context.Context, id uint) (*models.Shipper, error) {
	var shipper models.Shipper
	if err := r.db.WithContext(ctx).First(&shipper, id).Error; err != nil {
		return nil, err
	}
	return &shipper, nil
}

type consigneeRepository struct {
	db *gorm.DB
}

func NewConsigneeRepository(db *gorm.DB) ConsigneeRepository {
	return &consigneeRepository{db: db}
}

func (r *consigneeRepository) Create(ctx context.Context, consignee *models.Consignee) error {
	return r.db.WithContext(ctx).Create(consignee).Error
}

func (r *consigneeRepository) FindByID(ctx context.Context, id uint) (*models.Consignee, error) {
	var consignee models.Consignee
	if err := r.db.WithContext(ctx).First(&consignee, id).Error; err != nil {
		return nil, err
	}
	return &consignee, nil
}
