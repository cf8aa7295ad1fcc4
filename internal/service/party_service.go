package service

import (
	"context"
	"errors"
	"strings"

	"github.com/Eursukkul/courier-backoffice/internal/models"
	"github.com/Eursukkul/courier-backoffice/internal/repository"
	"github.com/Eursukkul/courier-backoffice/pkg/validation"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ShipperInput struct {
	Name    string `json:"name" validate:"required,max=120"`
	Company string `json:"company,omitempty" validate:"max=120"`
	Email   string `json:"email,omitempty" validate:"omitempty,email,max=120"`
	Phone   string `json:"phone" validate:"required,phone"`
	Address string `json:"address,omitempty"`
	City    string `json:"city,omitempty" validate:"max=80"`
	Country string `json:"country,omitempty" validate:"max=80"`
}

// PartyService registers the shippers and consignees bookings refer to.
type PartyService interface {
	CreateShipper(ctx context.Context, in ShipperInput) (*models.Shipper, error)
	GetShipper(ctx context.Context, id uint) (*models.Shipper, error)
	CreateConsignee(ctx context.Context, in models.ContactSnapshot) (*models.Consignee, error)
	GetConsignee(ctx context.Context, id uint) (*models.Consignee, error)
}

type partyService struct {
	shippers   repository.ShipperRepository
	consignees repository.ConsigneeRepository
	validator  *validation.Validator
	logger     *zap.Logger
}

func NewPartyService(shippers repository.ShipperRepository, consignees repository.ConsigneeRepository, v *validation.Validator, logger *zap.Logger) PartyService {
	return &partyService{shippers: shippers, consignees: consignees, validator: v, logger: logger}
}

func (s *partyService) CreateShipper(ctx context.Context, in ShipperInput) (*models.Shipper, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := s.validator.Struct(in); err != nil {
		return nil, validationError(err)
	}

	shipper := &models.Shipper{
		Name:    in.Name,
		Company: in.Company,
		Email:   in.Email,
		Phone:   in.Phone,
		Address: in.Address,
		City:    in.City,
		Country: in.Country,
	}
	if err := s.shippers.Create(ctx, shipper); err != nil {
		return nil, err
	}
	s.logger.Info("shipper registered", zap.Uint("shipper_id", shipper.ID))
	return shipper, nil
}

func (s *partyService) GetShipper(ctx context.Context, id uint) (*models.Shipper, error) {
	shipper, err := s.shippers.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrShipperNotFound
		}
		return nil, err
	}
	return shipper, nil
}

func (s *partyService) CreateConsignee(ctx context.Context, in models.ContactSnapshot) (*models.Consignee, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := s.validator.Struct(in); err != nil {
		return nil, validationError(err)
	}

	consignee := &models.Consignee{
		Name:       in.Name,
		Company:    in.Company,
		Email:      in.Email,
		Phone:      in.Phone,
		Address:    in.Address,
		City:       in.City,
		PostalCode: in.PostalCode,
		Country:    in.Country,
	}
	if err := s.consignees.Create(ctx, consignee); err != nil {
		return nil, err
	}
	s.logger.Info("consignee registered", zap.Uint("consignee_id", consignee.ID))
	return consignee, nil
}

func (s *partyService) GetConsignee(ctx context.Context, id uint) (*models.Consignee, error) {
	consignee, err := s.consignees.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConsigneeNotFound
		}
		return nil, err
	}
	return consignee, nil
}
