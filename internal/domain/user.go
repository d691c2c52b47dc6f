package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role type to distinguish between user roles
type Role string

const (
	RoleTrainer  Role = "trainer"
	RoleCustomer Role = "customer"
)

// User represents a user in the system (either a Trainer or a Customer).
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string             `bson:"name" json:"name"`
	Email        string             `bson:"email" json:"email"`    // Unique
	PasswordHash string             `bson:"passwordHash" json:"-"` // Never expose this via JSON
	Role         Role               `bson:"role" json:"role"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`

	// --- Trainer-specific ---
	CustomerIDs []primitive.ObjectID `bson:"customerIds,omitempty" json:"customerIds,omitempty"`

	// --- Customer-specific ---
	TrainerID *primitive.ObjectID `bson:"trainerId,omitempty" json:"trainerId,omitempty"`
	// Profile is maintained by the trainer and merged into every protocol assigned to the customer.
	Profile *ClientProfile `bson:"profile,omitempty" json:"profile,omitempty"`
}

func (u *User) IsTrainer() bool {
	return u.Role == RoleTrainer
}

func (u *User) IsCustomer() bool {
	return u.Role == RoleCustomer
}

// IsManagedBy reports whether the customer belongs to the given trainer.
func (u *User) IsManagedBy(trainerID primitive.ObjectID) bool {
	return u.IsCustomer() && u.TrainerID != nil && *u.TrainerID == trainerID
}
