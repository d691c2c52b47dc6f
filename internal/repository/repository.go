package repository

import (
	"context"
	"time"

	"alcyxob/protocol-engine/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Error constants for repository layer
var (
	ErrNotFound     = RepositoryError("not found")
	ErrDuplicate    = RepositoryError("already exists")
	ErrUpdateFailed = RepositoryError("update failed")
	ErrDeleteFailed = RepositoryError("delete failed")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// UserRepository defines the interface for interacting with user data.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (primitive.ObjectID, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
	AddCustomerIDToTrainer(ctx context.Context, trainerID, customerID primitive.ObjectID) error
	GetCustomersByTrainerID(ctx context.Context, trainerID primitive.ObjectID) ([]domain.User, error)
	SetTrainerForCustomer(ctx context.Context, customerID, trainerID primitive.ObjectID) error
	UpdateProfile(ctx context.Context, customerID primitive.ObjectID, profile domain.ClientProfile) error
}

// ProtocolPlanRepository stores trainer-owned plan configurations.
type ProtocolPlanRepository interface {
	Create(ctx context.Context, plan *domain.ProtocolPlan) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.ProtocolPlan, error)
	// ListByTrainer matches search case-insensitively against planName, newest first.
	// Archived plans are skipped. An empty search returns every plan of the trainer.
	ListByTrainer(ctx context.Context, trainerID primitive.ObjectID, search string) ([]domain.ProtocolPlan, error)
	// IncrementUsage atomically adds one to usageCount and returns the new value.
	// It returns ErrNotFound for a missing plan or one marked as deleting.
	IncrementUsage(ctx context.Context, id primitive.ObjectID) (int64, error)
	SetDeleting(ctx context.Context, id, trainerID primitive.ObjectID, deleting bool) error
	Archive(ctx context.Context, id, trainerID primitive.ObjectID, at time.Time) error
	Delete(ctx context.Context, id, trainerID primitive.ObjectID) error
}

// ProtocolInstanceRepository stores the artifacts assigned to customers.
type ProtocolInstanceRepository interface {
	Create(ctx context.Context, instance *domain.ProtocolInstance) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.ProtocolInstance, error)
	ListByPlan(ctx context.Context, planID primitive.ObjectID) ([]domain.ProtocolInstance, error)
	ListByCustomer(ctx context.Context, customerID primitive.ObjectID) ([]domain.ProtocolInstance, error)
	CountActiveByPlan(ctx context.Context, planID primitive.ObjectID) (int64, error)
	UpdateStatus(ctx context.Context, id primitive.ObjectID, status domain.InstanceStatus) error
	Acknowledge(ctx context.Context, id primitive.ObjectID, at time.Time) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	// DeleteInactiveByPlan removes the plan's completed and cancelled instances.
	DeleteInactiveByPlan(ctx context.Context, planID primitive.ObjectID) (int64, error)
}
