package service

import (
	"context"
	"errors"
	"time"

	"alcyxob/protocol-engine/internal/domain"
	"alcyxob/protocol-engine/internal/repository"
	"alcyxob/protocol-engine/internal/storage"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// CustomerService is the customer's read side of assigned protocols.
type CustomerService interface {
	ListProtocols(ctx context.Context, customerID primitive.ObjectID) ([]domain.ProtocolInstance, error)
	GetProtocol(ctx context.Context, customerID, instanceID primitive.ObjectID) (*domain.ProtocolInstance, error)
	// AcknowledgeDisclaimer records that the customer has read the safety disclaimer.
	// Repeated calls keep the first acknowledgment time.
	AcknowledgeDisclaimer(ctx context.Context, customerID, instanceID primitive.ObjectID) (*domain.ProtocolInstance, error)
	ExportURL(ctx context.Context, customerID, instanceID primitive.ObjectID) (string, error)
}

type customerService struct {
	instanceRepo repository.ProtocolInstanceRepository
	snapshots    storage.FileStorage
	urlExpiry    time.Duration
	logger       *zap.Logger
	now          func() time.Time
}

func NewCustomerService(instanceRepo repository.ProtocolInstanceRepository, snapshots storage.FileStorage, logger *zap.Logger) CustomerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &customerService{
		instanceRepo: instanceRepo,
		snapshots:    snapshots,
		urlExpiry:    storage.DefaultPresignedURLExpiry,
		logger:       logger.Named("customer"),
		now:          time.Now,
	}
}

func (s *customerService) ListProtocols(ctx context.Context, customerID primitive.ObjectID) ([]domain.ProtocolInstance, error) {
	if customerID == primitive.NilObjectID {
		return nil, errors.New("customer ID is required")
	}
	return s.instanceRepo.ListByCustomer(ctx, customerID)
}

func (s *customerService) GetProtocol(ctx context.Context, customerID, instanceID primitive.ObjectID) (*domain.ProtocolInstance, error) {
	instance, err := s.instanceRepo.GetByID(ctx, instanceID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInstanceNotFound
		}
		return nil, err
	}
	if instance.CustomerID != customerID {
		return nil, ErrInstanceAccess
	}
	return instance, nil
}

func (s *customerService) AcknowledgeDisclaimer(ctx context.Context, customerID, instanceID primitive.ObjectID) (*domain.ProtocolInstance, error) {
	instance, err := s.GetProtocol(ctx, customerID, instanceID)
	if err != nil {
		return nil, err
	}
	if instance.AcknowledgedAt != nil {
		return instance, nil
	}
	if err := s.instanceRepo.Acknowledge(ctx, instanceID, s.now()); err != nil {
		return nil, err
	}
	return s.instanceRepo.GetByID(ctx, instanceID)
}

func (s *customerService) ExportURL(ctx context.Context, customerID, instanceID primitive.ObjectID) (string, error) {
	instance, err := s.GetProtocol(ctx, customerID, instanceID)
	if err != nil {
		return "", err
	}
	if s.snapshots == nil || instance.ArtifactObjectKey == "" {
		return "", ErrSnapshotUnavailable
	}
	url, err := s.snapshots.GeneratePresignedDownloadURL(ctx, instance.ArtifactObjectKey, s.urlExpiry)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return "", ErrSnapshotUnavailable
		}
		s.logger.Error("presign export failed", zap.String("instanceId", instanceID.Hex()), zap.Error(err))
		return "", err
	}
	return url, nil
}
