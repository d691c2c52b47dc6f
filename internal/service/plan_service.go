package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"alcyxob/protocol-engine/internal/domain"
	"alcyxob/protocol-engine/internal/metrics"
	"alcyxob/protocol-engine/internal/repository"
	"alcyxob/protocol-engine/internal/sanitize"
	"alcyxob/protocol-engine/internal/storage"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const fieldSearch = "search"

// PlanService manages reusable protocol plans and their assignment to customers.
type PlanService interface {
	SavePlan(ctx context.Context, trainerID primitive.ObjectID, name, description string, config domain.GenerationRequest, isTemplate bool) (*domain.ProtocolPlan, error)
	GetPlan(ctx context.Context, trainerID, planID primitive.ObjectID) (*domain.ProtocolPlan, error)
	ListPlans(ctx context.Context, trainerID primitive.ObjectID, search string) ([]domain.ProtocolPlan, error)
	ArchivePlan(ctx context.Context, trainerID, planID primitive.ObjectID) error
	DeletePlan(ctx context.Context, trainerID, planID primitive.ObjectID) error

	// AssignPlan regenerates the plan's artifact for the customer and stores it as a new instance.
	AssignPlan(ctx context.Context, trainerID, planID, customerID primitive.ObjectID) (*domain.ProtocolInstance, error)
	ListInstances(ctx context.Context, trainerID, planID primitive.ObjectID) ([]domain.ProtocolInstance, error)
	UpdateInstanceStatus(ctx context.Context, trainerID, instanceID primitive.ObjectID, status domain.InstanceStatus) (*domain.ProtocolInstance, error)
}

type planService struct {
	planRepo     repository.ProtocolPlanRepository
	instanceRepo repository.ProtocolInstanceRepository
	userRepo     repository.UserRepository
	protocols    ProtocolService
	sanitizer    *sanitize.Sanitizer
	snapshots    storage.FileStorage // nil disables snapshots
	logger       *zap.Logger
	now          func() time.Time
}

func NewPlanService(
	planRepo repository.ProtocolPlanRepository,
	instanceRepo repository.ProtocolInstanceRepository,
	userRepo repository.UserRepository,
	protocols ProtocolService,
	sanitizer *sanitize.Sanitizer,
	snapshots storage.FileStorage,
	logger *zap.Logger,
) PlanService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &planService{
		planRepo:     planRepo,
		instanceRepo: instanceRepo,
		userRepo:     userRepo,
		protocols:    protocols,
		sanitizer:    sanitizer,
		snapshots:    snapshots,
		logger:       logger.Named("plans"),
		now:          time.Now,
	}
}

// SavePlan stores the configuration only. It must pass the same sanitizer and safety
// gate as a direct generation, so a saved plan is always assignable as far as input goes.
func (s *planService) SavePlan(ctx context.Context, trainerID primitive.ObjectID, name, description string, config domain.GenerationRequest, isTemplate bool) (*domain.ProtocolPlan, error) {
	if trainerID == primitive.NilObjectID {
		return nil, errors.New("trainer ID is required")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = strings.TrimSpace(config.PlanName)
	}
	if name == "" {
		return nil, domain.NewInvalidRequestError(sanitize.FieldPlanName, "plan name is required")
	}
	if _, err := s.sanitizer.Check(sanitize.FieldPlanName, name); err != nil {
		return nil, err
	}
	if _, err := s.sanitizer.Check(sanitize.FieldPlanDescription, description); err != nil {
		return nil, err
	}

	config = config.Clone()
	config.PlanName = name
	if _, err := s.protocols.Screen(&config); err != nil {
		return nil, err
	}

	plan := &domain.ProtocolPlan{
		TrainerID:           trainerID,
		PlanName:            name,
		PlanDescription:     description,
		WizardConfiguration: config,
		IsTemplate:          isTemplate,
	}
	planID, err := s.planRepo.Create(ctx, plan)
	if err != nil {
		return nil, err
	}
	plan.ID = planID
	s.logger.Info("protocol plan saved", zap.String("planId", planID.Hex()), zap.String("trainerId", trainerID.Hex()))
	return plan, nil
}

func (s *planService) GetPlan(ctx context.Context, trainerID, planID primitive.ObjectID) (*domain.ProtocolPlan, error) {
	plan, err := s.planRepo.GetByID(ctx, planID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}
	if plan.TrainerID != trainerID {
		return nil, ErrPlanAccessDenied
	}
	return plan, nil
}

// ListPlans returns the trainer's plans whose name contains search, ignoring case.
func (s *planService) ListPlans(ctx context.Context, trainerID primitive.ObjectID, search string) ([]domain.ProtocolPlan, error) {
	search = strings.TrimSpace(search)
	if _, err := s.sanitizer.Check(fieldSearch, search); err != nil {
		return nil, err
	}
	return s.planRepo.ListByTrainer(ctx, trainerID, search)
}

func (s *planService) ArchivePlan(ctx context.Context, trainerID, planID primitive.ObjectID) error {
	if _, err := s.GetPlan(ctx, trainerID, planID); err != nil {
		return err
	}
	return s.planRepo.Archive(ctx, planID, trainerID, s.now())
}

// DeletePlan refuses while any instance of the plan is active. Otherwise the plan is
// removed together with its finished instances and their snapshots.
func (s *planService) DeletePlan(ctx context.Context, trainerID, planID primitive.ObjectID) error {
	if _, err := s.GetPlan(ctx, trainerID, planID); err != nil {
		return err
	}

	// Flag first: an assignment that has not counted its usage yet will now
	// roll back, and one that has counted is already visible to the count below.
	if err := s.planRepo.SetDeleting(ctx, planID, trainerID, true); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrPlanNotFound
		}
		return err
	}
	active, err := s.instanceRepo.CountActiveByPlan(ctx, planID)
	if err == nil && active > 0 {
		err = domain.NewPlanInUseError(active)
	}
	if err != nil {
		if clearErr := s.planRepo.SetDeleting(ctx, planID, trainerID, false); clearErr != nil {
			s.logger.Error("plan delete flag not cleared", zap.String("planId", planID.Hex()), zap.Error(clearErr))
		}
		return err
	}

	instances, err := s.instanceRepo.ListByPlan(ctx, planID)
	if err != nil {
		return err
	}
	removed, err := s.instanceRepo.DeleteInactiveByPlan(ctx, planID)
	if err != nil {
		return err
	}
	for _, inst := range instances {
		if inst.Status != domain.InstanceActive {
			s.deleteSnapshot(ctx, inst.ArtifactObjectKey)
		}
	}

	if err := s.planRepo.Delete(ctx, planID, trainerID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrPlanNotFound
		}
		return err
	}
	s.logger.Info("protocol plan deleted", zap.String("planId", planID.Hex()), zap.Int64("instancesRemoved", removed))
	return nil
}

func (s *planService) AssignPlan(ctx context.Context, trainerID, planID, customerID primitive.ObjectID) (*domain.ProtocolInstance, error) {
	plan, err := s.GetPlan(ctx, trainerID, planID)
	if err != nil {
		return nil, err
	}
	if plan.IsArchived() {
		return nil, ErrPlanArchived
	}

	customer, err := s.userRepo.GetByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCustomerNotFound
		}
		return nil, err
	}
	if !customer.IsCustomer() {
		return nil, ErrCustomerNotRole
	}
	if !customer.IsManagedBy(trainerID) {
		return nil, ErrCustomerNotManaged
	}

	// Values set on the plan win over the customer's stored profile.
	config := plan.WizardConfiguration.Clone()
	config.ClientProfile = config.ClientProfile.Merge(customer.Profile)

	result, err := s.protocols.Generate(ctx, config)
	if err != nil {
		return nil, err
	}

	instance := &domain.ProtocolInstance{
		ID:         primitive.NewObjectID(),
		PlanID:     plan.ID,
		TrainerID:  trainerID,
		CustomerID: customerID,
		PlanName:   plan.PlanName,
		Artifact:   *result.Artifact,
		Status:     domain.InstanceActive,
	}
	instance.ArtifactObjectKey = s.putSnapshot(ctx, instance)

	if _, err := s.instanceRepo.Create(ctx, instance); err != nil {
		s.deleteSnapshot(ctx, instance.ArtifactObjectKey)
		return nil, err
	}

	usage, err := s.planRepo.IncrementUsage(ctx, plan.ID)
	if errors.Is(err, repository.ErrNotFound) {
		// The plan was deleted while the artifact was generated.
		s.rollbackInstance(ctx, instance)
		return nil, ErrPlanNotFound
	}
	if err != nil {
		// The instance is already visible to the customer; a lost count is not worth failing for.
		s.logger.Error("usage count not incremented", zap.String("planId", plan.ID.Hex()), zap.Error(err))
	}
	metrics.PlanAssignments.Inc()
	s.logger.Info("protocol plan assigned",
		zap.String("planId", plan.ID.Hex()),
		zap.String("instanceId", instance.ID.Hex()),
		zap.String("customerId", customerID.Hex()),
		zap.Int64("usageCount", usage),
		zap.Int("attempts", result.Attempts))
	return instance, nil
}

func (s *planService) ListInstances(ctx context.Context, trainerID, planID primitive.ObjectID) ([]domain.ProtocolInstance, error) {
	if _, err := s.GetPlan(ctx, trainerID, planID); err != nil {
		return nil, err
	}
	return s.instanceRepo.ListByPlan(ctx, planID)
}

func (s *planService) UpdateInstanceStatus(ctx context.Context, trainerID, instanceID primitive.ObjectID, status domain.InstanceStatus) (*domain.ProtocolInstance, error) {
	switch status {
	case domain.InstanceActive, domain.InstanceCompleted, domain.InstanceCancelled:
	default:
		return nil, ErrInvalidStatus
	}

	instance, err := s.instanceRepo.GetByID(ctx, instanceID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInstanceNotFound
		}
		return nil, err
	}
	if instance.TrainerID != trainerID {
		return nil, ErrInstanceAccess
	}
	if err := s.instanceRepo.UpdateStatus(ctx, instanceID, status); err != nil {
		return nil, err
	}
	return s.instanceRepo.GetByID(ctx, instanceID)
}

// putSnapshot stores the artifact as JSON and returns its key, or "" when the
// snapshot could not be written. The instance is usable without it.
func (s *planService) putSnapshot(ctx context.Context, instance *domain.ProtocolInstance) string {
	if s.snapshots == nil {
		return ""
	}
	body, err := json.Marshal(instance.Artifact)
	if err != nil {
		s.logger.Error("artifact snapshot encoding failed", zap.String("instanceId", instance.ID.Hex()), zap.Error(err))
		return ""
	}
	key := storage.ArtifactObjectKey(instance.TrainerID, instance.ID)
	if err := s.snapshots.PutObject(ctx, key, storage.ContentTypeJSON, body); err != nil {
		s.logger.Warn("artifact snapshot not stored", zap.String("instanceId", instance.ID.Hex()), zap.Error(err))
		return ""
	}
	return key
}

// rollbackInstance uses a fresh context so a cancelled request still cleans up.
func (s *planService) rollbackInstance(ctx context.Context, instance *domain.ProtocolInstance) {
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := s.instanceRepo.Delete(cleanupCtx, instance.ID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		s.logger.Error("orphaned instance not removed", zap.String("instanceId", instance.ID.Hex()), zap.Error(err))
	}
	s.deleteSnapshot(cleanupCtx, instance.ArtifactObjectKey)
	s.logger.Warn("assignment rolled back, plan deleted during generation",
		zap.String("planId", instance.PlanID.Hex()), zap.String("instanceId", instance.ID.Hex()))
}

func (s *planService) deleteSnapshot(ctx context.Context, key string) {
	if s.snapshots == nil || key == "" {
		return
	}
	if err := s.snapshots.DeleteObject(ctx, key); err != nil {
		s.logger.Warn("artifact snapshot not deleted", zap.String("key", key), zap.Error(err))
	}
}
