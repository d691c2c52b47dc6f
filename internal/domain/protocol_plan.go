// internal/domain/protocol_plan.go
package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProtocolPlan is a reusable, trainer-owned wizard configuration.
// Only the configuration is stored; artifacts are regenerated on each assignment.
type ProtocolPlan struct {
	ID                  primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	TrainerID           primitive.ObjectID `bson:"trainerId" json:"trainerId"`
	PlanName            string             `bson:"planName" json:"planName"`
	PlanDescription     string             `bson:"planDescription,omitempty" json:"planDescription,omitempty"`
	WizardConfiguration GenerationRequest  `bson:"wizardConfiguration" json:"wizardConfiguration"`
	UsageCount          int64              `bson:"usageCount" json:"usageCount"`
	IsTemplate          bool               `bson:"isTemplate" json:"isTemplate"`
	CreatedAt           time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt           time.Time          `bson:"updatedAt" json:"updatedAt"`
	ArchivedAt          *time.Time         `bson:"archivedAt,omitempty" json:"archivedAt,omitempty"` // Soft delete marker
	// Deleting is set while a delete checks for active instances; usage cannot be counted meanwhile.
	Deleting bool `bson:"deleting,omitempty" json:"-"`
}

func (p *ProtocolPlan) IsArchived() bool {
	return p.ArchivedAt != nil
}

// InstanceStatus tracks a customer's progress through an assigned protocol.
type InstanceStatus string

const (
	InstanceActive    InstanceStatus = "active"
	InstanceCompleted InstanceStatus = "completed"
	InstanceCancelled InstanceStatus = "cancelled"
)

// ProtocolInstance is one customer-bound realization of a ProtocolPlan.
type ProtocolInstance struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	PlanID            primitive.ObjectID `bson:"planId" json:"planId"`
	TrainerID         primitive.ObjectID `bson:"trainerId" json:"trainerId"`   // Denormalized for ownership checks
	CustomerID        primitive.ObjectID `bson:"customerId" json:"customerId"` // The customer this instance belongs to
	PlanName          string             `bson:"planName" json:"planName"`     // Copied so the instance stays readable after archive
	Artifact          ProtocolArtifact   `bson:"artifact" json:"artifact"`
	Status            InstanceStatus     `bson:"status" json:"status"`
	ArtifactObjectKey string             `bson:"artifactObjectKey,omitempty" json:"-"`
	AssignedAt        time.Time          `bson:"assignedAt" json:"assignedAt"`
	AcknowledgedAt    *time.Time         `bson:"acknowledgedAt,omitempty" json:"acknowledgedAt,omitempty"`
	UpdatedAt         time.Time          `bson:"updatedAt" json:"updatedAt"`
}
