package service

import (
	"context"
	"errors"
	"testing"

	"alcyxob/protocol-engine/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestSavePlan(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	trainerID, _ := f.trainerWithCustomer(t)

	plan, err := f.planSvc.SavePlan(ctx, trainerID, "Gut Reset", "Three gentle days", digestiveRequest(), true)
	require.NoError(t, err)
	assert.False(t, plan.ID.IsZero())
	assert.Equal(t, "Gut Reset", plan.WizardConfiguration.PlanName)
	assert.Zero(t, plan.UsageCount)
	assert.Zero(t, f.drafter.calls.Load(), "saving a plan must not generate")

	stored, err := f.planSvc.GetPlan(ctx, trainerID, plan.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsTemplate)
}

func TestSavePlan_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	trainerID, _ := f.trainerWithCustomer(t)

	_, err := f.planSvc.SavePlan(ctx, trainerID, "<script>alert(1)</script>", "", digestiveRequest(), false)
	assert.True(t, errors.Is(err, domain.ErrUnsafeInput))

	_, err = f.planSvc.SavePlan(ctx, trainerID, "", "", digestiveRequest(), false)
	assert.True(t, errors.Is(err, domain.ErrInvalidRequest))

	cfg := digestiveRequest()
	cfg.ProtocolKind = domain.KindParasiteCleanse
	cfg.PregnancyOrBreastfeeding = true
	_, err = f.planSvc.SavePlan(ctx, trainerID, "Cleanse", "", cfg, false)
	assert.True(t, errors.Is(err, domain.ErrContraindication))

	plans, err := f.planSvc.ListPlans(ctx, trainerID, "")
	require.NoError(t, err)
	assert.Empty(t, plans)
}

func TestListPlans_Search(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	trainerID, _ := f.trainerWithCustomer(t)

	for _, name := range []string{"Gut Reset", "Calm Mind", "gut maintenance"} {
		_, err := f.planSvc.SavePlan(ctx, trainerID, name, "", digestiveRequest(), false)
		require.NoError(t, err)
	}

	all, err := f.planSvc.ListPlans(ctx, trainerID, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	gut, err := f.planSvc.ListPlans(ctx, trainerID, "  GUT ")
	require.NoError(t, err)
	assert.Len(t, gut, 2)

	other, err := f.planSvc.ListPlans(ctx, primitive.NewObjectID(), "")
	require.NoError(t, err)
	assert.Empty(t, other)

	_, err = f.planSvc.ListPlans(ctx, trainerID, "'; DROP TABLE plans; --")
	assert.True(t, errors.Is(err, domain.ErrUnsafeInput))
}

func TestAssignPlan(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	trainerID, customerID := f.trainerWithCustomer(t)

	_, err := f.trainers.UpdateCustomerProfile(ctx, trainerID, customerID, domain.ClientProfile{Age: intPtr(44), Gender: "female"})
	require.NoError(t, err)

	plan, err := f.planSvc.SavePlan(ctx, trainerID, "Gut Reset", "", digestiveRequest(), false)
	require.NoError(t, err)

	instance, err := f.planSvc.AssignPlan(ctx, trainerID, plan.ID, customerID)
	require.NoError(t, err)
	assert.Equal(t, domain.InstanceActive, instance.Status)
	assert.Equal(t, customerID, instance.CustomerID)
	assert.Equal(t, "Gut Reset", instance.PlanName)
	assert.Len(t, instance.Artifact.DailySchedules, 3)
	require.NotEmpty(t, instance.ArtifactObjectKey)

	body, contentType, ok := f.snapshots.Object(instance.ArtifactObjectKey)
	require.True(t, ok)
	assert.Equal(t, "application/json", contentType)
	assert.Contains(t, string(body), `"durationDays":3`)

	stored, err := f.planSvc.GetPlan(ctx, trainerID, plan.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.UsageCount)

	mine, err := f.customers.ListProtocols(ctx, customerID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, instance.ID, mine[0].ID)
}

func TestAssignPlan_ConcurrentAssignmentsCountBoth(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	trainerID, customerID := f.trainerWithCustomer(t)

	plan, err := f.planSvc.SavePlan(ctx, trainerID, "Gut Reset", "", digestiveRequest(), false)
	require.NoError(t, err)

	errs := make(chan error, 2)
	parallel(2, func() {
		_, err := f.planSvc.AssignPlan(ctx, trainerID, plan.ID, customerID)
		errs <- err
	})
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	stored, err := f.planSvc.GetPlan(ctx, trainerID, plan.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stored.UsageCount)

	instances, err := f.planSvc.ListInstances(ctx, trainerID, plan.ID)
	require.NoError(t, err)
	require.Len(t, instances, 2)
	assert.NotEqual(t, instances[0].ID, instances[1].ID)
}

func TestAssignPlan_GenerationFailureLeavesNoTrace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	trainerID, customerID := f.trainerWithCustomer(t)

	plan, err := f.planSvc.SavePlan(ctx, trainerID, "Gut Reset", "", digestiveRequest(), false)
	require.NoError(t, err)

	f.drafter.err = domain.NewGenerationFailedError(errors.New("timeout"))
	_, err = f.planSvc.AssignPlan(ctx, trainerID, plan.ID, customerID)
	assert.True(t, errors.Is(err, domain.ErrGenerationFailed))

	stored, _ := f.planSvc.GetPlan(ctx, trainerID, plan.ID)
	assert.Zero(t, stored.UsageCount)
	instances, _ := f.planSvc.ListInstances(ctx, trainerID, plan.ID)
	assert.Empty(t, instances)
	assert.Zero(t, f.snapshots.Len())
}

func TestAssignPlan_AccessRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	trainerID, customerID := f.trainerWithCustomer(t)
	otherTrainer, otherCustomer := f.trainerWithCustomer(t)

	plan, err := f.planSvc.SavePlan(ctx, trainerID, "Gut Reset", "", digestiveRequest(), false)
	require.NoError(t, err)

	_, err = f.planSvc.AssignPlan(ctx, otherTrainer, plan.ID, otherCustomer)
	assert.ErrorIs(t, err, ErrPlanAccessDenied)

	_, err = f.planSvc.AssignPlan(ctx, trainerID, plan.ID, otherCustomer)
	assert.ErrorIs(t, err, ErrCustomerNotManaged)

	_, err = f.planSvc.AssignPlan(ctx, trainerID, primitive.NewObjectID(), customerID)
	assert.ErrorIs(t, err, ErrPlanNotFound)

	_, err = f.planSvc.AssignPlan(ctx, trainerID, plan.ID, primitive.NewObjectID())
	assert.ErrorIs(t, err, ErrCustomerNotFound)

	require.NoError(t, f.planSvc.ArchivePlan(ctx, trainerID, plan.ID))
	_, err = f.planSvc.AssignPlan(ctx, trainerID, plan.ID, customerID)
	assert.ErrorIs(t, err, ErrPlanArchived)

	plans, err := f.planSvc.ListPlans(ctx, trainerID, "")
	require.NoError(t, err)
	assert.Empty(t, plans, "archived plans are not listed")
	assert.Zero(t, f.drafter.calls.Load())
}

func TestDeletePlan(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	trainerID, customerID := f.trainerWithCustomer(t)

	plan, err := f.planSvc.SavePlan(ctx, trainerID, "Gut Reset", "", digestiveRequest(), false)
	require.NoError(t, err)
	instance, err := f.planSvc.AssignPlan(ctx, trainerID, plan.ID, customerID)
	require.NoError(t, err)

	err = f.planSvc.DeletePlan(ctx, trainerID, plan.ID)
	pe, ok := domain.AsProtocolError(err)
	require.True(t, ok)
	assert.Equal(t, domain.CodePlanInUse, pe.Code)

	_, err = f.planSvc.UpdateInstanceStatus(ctx, trainerID, instance.ID, "paused")
	assert.ErrorIs(t, err, ErrInvalidStatus)
	updated, err := f.planSvc.UpdateInstanceStatus(ctx, trainerID, instance.ID, domain.InstanceCompleted)
	require.NoError(t, err)
	assert.Equal(t, domain.InstanceCompleted, updated.Status)

	require.NoError(t, f.planSvc.DeletePlan(ctx, trainerID, plan.ID))

	_, err = f.planSvc.GetPlan(ctx, trainerID, plan.ID)
	assert.ErrorIs(t, err, ErrPlanNotFound)
	_, err = f.customers.GetProtocol(ctx, customerID, instance.ID)
	assert.ErrorIs(t, err, ErrInstanceNotFound)
	assert.Zero(t, f.snapshots.Len())
}

func TestAssignPlan_PlanDeletedDuringGeneration(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	trainerID, customerID := f.trainerWithCustomer(t)

	plan, err := f.planSvc.SavePlan(ctx, trainerID, "Gut Reset", "", digestiveRequest(), false)
	require.NoError(t, err)

	f.drafter.during = func() {
		require.NoError(t, f.planSvc.DeletePlan(ctx, trainerID, plan.ID))
	}
	_, err = f.planSvc.AssignPlan(ctx, trainerID, plan.ID, customerID)
	assert.ErrorIs(t, err, ErrPlanNotFound)

	instances, err := f.customers.ListProtocols(ctx, customerID)
	require.NoError(t, err)
	assert.Empty(t, instances)
	assert.Zero(t, f.snapshots.Len())
}

func TestDeletePlan_RefusedDeleteKeepsPlanAssignable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	trainerID, customerID := f.trainerWithCustomer(t)

	plan, err := f.planSvc.SavePlan(ctx, trainerID, "Gut Reset", "", digestiveRequest(), false)
	require.NoError(t, err)
	_, err = f.planSvc.AssignPlan(ctx, trainerID, plan.ID, customerID)
	require.NoError(t, err)

	err = f.planSvc.DeletePlan(ctx, trainerID, plan.ID)
	assert.ErrorIs(t, err, domain.ErrPlanInUse)

	_, err = f.planSvc.AssignPlan(ctx, trainerID, plan.ID, customerID)
	require.NoError(t, err)
	stored, err := f.planSvc.GetPlan(ctx, trainerID, plan.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, stored.UsageCount)
}

func TestUpdateInstanceStatus_OtherTrainer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	trainerID, customerID := f.trainerWithCustomer(t)
	otherTrainer, _ := f.trainerWithCustomer(t)

	plan, err := f.planSvc.SavePlan(ctx, trainerID, "Gut Reset", "", digestiveRequest(), false)
	require.NoError(t, err)
	instance, err := f.planSvc.AssignPlan(ctx, trainerID, plan.ID, customerID)
	require.NoError(t, err)

	_, err = f.planSvc.UpdateInstanceStatus(ctx, otherTrainer, instance.ID, domain.InstanceCancelled)
	assert.ErrorIs(t, err, ErrInstanceAccess)
	_, err = f.planSvc.ListInstances(ctx, otherTrainer, plan.ID)
	assert.ErrorIs(t, err, ErrPlanAccessDenied)
}
