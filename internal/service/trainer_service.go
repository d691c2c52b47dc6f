package service

import (
	"context"
	"errors"
	"strings"

	"alcyxob/protocol-engine/internal/domain"
	"alcyxob/protocol-engine/internal/repository"
	"alcyxob/protocol-engine/internal/safety"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TrainerService manages the customers a trainer generates protocols for.
type TrainerService interface {
	AddCustomerByEmail(ctx context.Context, trainerID primitive.ObjectID, customerEmail string) (*domain.User, error)
	GetManagedCustomers(ctx context.Context, trainerID primitive.ObjectID) ([]domain.User, error)
	// UpdateCustomerProfile replaces the profile merged into every assignment for the customer.
	UpdateCustomerProfile(ctx context.Context, trainerID, customerID primitive.ObjectID, profile domain.ClientProfile) (*domain.User, error)
}

type trainerService struct {
	userRepo  repository.UserRepository
	validator *safety.Validator
}

func NewTrainerService(userRepo repository.UserRepository, validator *safety.Validator) TrainerService {
	return &trainerService{userRepo: userRepo, validator: validator}
}

// AddCustomerByEmail links an already registered customer to the trainer.
func (s *trainerService) AddCustomerByEmail(ctx context.Context, trainerID primitive.ObjectID, customerEmail string) (*domain.User, error) {
	customerEmail = strings.TrimSpace(customerEmail)
	if trainerID == primitive.NilObjectID || customerEmail == "" {
		return nil, errors.New("trainer ID and customer email are required")
	}

	customer, err := s.userRepo.GetByEmail(ctx, customerEmail)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCustomerNotFound
		}
		return nil, err
	}
	if !customer.IsCustomer() {
		return nil, ErrCustomerNotRole
	}

	if customer.TrainerID != nil && *customer.TrainerID != primitive.NilObjectID {
		if *customer.TrainerID == trainerID {
			customer.PasswordHash = ""
			return customer, nil
		}
		return nil, ErrCustomerAssigned
	}

	if err := s.userRepo.AddCustomerIDToTrainer(ctx, trainerID, customer.ID); err != nil {
		return nil, err
	}
	// Not transactional; a failure here leaves the id on the trainer only, and a retry is idempotent.
	if err := s.userRepo.SetTrainerForCustomer(ctx, customer.ID, trainerID); err != nil {
		return nil, err
	}

	customer.TrainerID = &trainerID
	customer.PasswordHash = ""
	return customer, nil
}

func (s *trainerService) GetManagedCustomers(ctx context.Context, trainerID primitive.ObjectID) ([]domain.User, error) {
	if trainerID == primitive.NilObjectID {
		return nil, errors.New("trainer ID is required")
	}
	customers, err := s.userRepo.GetCustomersByTrainerID(ctx, trainerID)
	if err != nil {
		return nil, err
	}
	for i := range customers {
		customers[i].PasswordHash = ""
	}
	return customers, nil
}

func (s *trainerService) UpdateCustomerProfile(ctx context.Context, trainerID, customerID primitive.ObjectID, profile domain.ClientProfile) (*domain.User, error) {
	customer, err := s.userRepo.GetByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCustomerNotFound
		}
		return nil, err
	}
	if !customer.IsManagedBy(trainerID) {
		return nil, ErrCustomerNotManaged
	}
	if err := s.validator.ValidateProfile(profile); err != nil {
		return nil, err
	}
	if err := s.userRepo.UpdateProfile(ctx, customerID, profile); err != nil {
		return nil, err
	}

	customer.Profile = &profile
	customer.PasswordHash = ""
	return customer, nil
}
