package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"alcyxob/protocol-engine/internal/domain"
	"alcyxob/protocol-engine/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestProtocolPlanRepository_ListByTrainer(t *testing.T) {
	ctx := context.Background()
	repo := NewProtocolPlanRepository()
	trainer := primitive.NewObjectID()
	other := primitive.NewObjectID()

	var ids []primitive.ObjectID
	for _, name := range []string{"Gut Reset", "Longevity 16:8", "gut calm"} {
		id, err := repo.Create(ctx, &domain.ProtocolPlan{TrainerID: trainer, PlanName: name})
		require.NoError(t, err)
		ids = append(ids, id)
	}
	_, err := repo.Create(ctx, &domain.ProtocolPlan{TrainerID: other, PlanName: "Gut other"})
	require.NoError(t, err)

	all, err := repo.ListByTrainer(ctx, trainer, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "gut calm", all[0].PlanName)
	assert.Equal(t, "Gut Reset", all[2].PlanName)

	gut, err := repo.ListByTrainer(ctx, trainer, "GUT")
	require.NoError(t, err)
	assert.Len(t, gut, 2)

	require.NoError(t, repo.Archive(ctx, ids[0], trainer, time.Now()))
	gut, err = repo.ListByTrainer(ctx, trainer, "gut")
	require.NoError(t, err)
	require.Len(t, gut, 1)
	assert.Equal(t, "gut calm", gut[0].PlanName)

	none, err := repo.ListByTrainer(ctx, trainer, "zzz")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	assert.ErrorIs(t, repo.Delete(ctx, ids[1], other), repository.ErrNotFound)
	assert.NoError(t, repo.Delete(ctx, ids[1], trainer))
	_, err = repo.GetByID(ctx, ids[1])
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestProtocolPlanRepository_IncrementUsageIsAtomic(t *testing.T) {
	ctx := context.Background()
	repo := NewProtocolPlanRepository()
	id, err := repo.Create(ctx, &domain.ProtocolPlan{TrainerID: primitive.NewObjectID(), PlanName: "p", UsageCount: 7})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = repo.IncrementUsage(ctx, id)
		}()
	}
	wg.Wait()

	plan, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(50), plan.UsageCount)
}

func TestProtocolPlanRepository_DeletingBlocksUsage(t *testing.T) {
	ctx := context.Background()
	repo := NewProtocolPlanRepository()
	trainer := primitive.NewObjectID()
	id, err := repo.Create(ctx, &domain.ProtocolPlan{TrainerID: trainer, PlanName: "p"})
	require.NoError(t, err)

	assert.ErrorIs(t, repo.SetDeleting(ctx, id, primitive.NewObjectID(), true), repository.ErrNotFound)
	require.NoError(t, repo.SetDeleting(ctx, id, trainer, true))
	_, err = repo.IncrementUsage(ctx, id)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	require.NoError(t, repo.SetDeleting(ctx, id, trainer, false))
	usage, err := repo.IncrementUsage(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(1), usage)
}

func TestProtocolInstanceRepository_Delete(t *testing.T) {
	ctx := context.Background()
	repo := NewProtocolInstanceRepository()
	id, err := repo.Create(ctx, &domain.ProtocolInstance{PlanID: primitive.NewObjectID(), CustomerID: primitive.NewObjectID()})
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, id))
	_, err = repo.GetByID(ctx, id)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, id), repository.ErrNotFound)
}

func TestProtocolPlanRepository_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewProtocolPlanRepository()
	cfg := domain.GenerationRequest{SelectedConditionIDs: []string{"bloating"}}
	id, err := repo.Create(ctx, &domain.ProtocolPlan{TrainerID: primitive.NewObjectID(), PlanName: "p", WizardConfiguration: cfg})
	require.NoError(t, err)

	got, _ := repo.GetByID(ctx, id)
	got.WizardConfiguration.SelectedConditionIDs[0] = "acne"

	again, _ := repo.GetByID(ctx, id)
	assert.Equal(t, []string{"bloating"}, again.WizardConfiguration.SelectedConditionIDs)
}

func TestProtocolInstanceRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewProtocolInstanceRepository()
	plan := primitive.NewObjectID()
	customer := primitive.NewObjectID()

	first, err := repo.Create(ctx, &domain.ProtocolInstance{PlanID: plan, CustomerID: customer})
	require.NoError(t, err)
	second, err := repo.Create(ctx, &domain.ProtocolInstance{PlanID: plan, CustomerID: customer})
	require.NoError(t, err)

	n, err := repo.CountActiveByPlan(ctx, plan)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	require.NoError(t, repo.UpdateStatus(ctx, first, domain.InstanceCompleted))
	require.NoError(t, repo.Acknowledge(ctx, second, time.Now()))

	n, _ = repo.CountActiveByPlan(ctx, plan)
	assert.Equal(t, int64(1), n)

	deleted, err := repo.DeleteInactiveByPlan(ctx, plan)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	left, err := repo.ListByCustomer(ctx, customer)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, second, left[0].ID)
	assert.NotNil(t, left[0].AcknowledgedAt)

	assert.ErrorIs(t, repo.UpdateStatus(ctx, first, domain.InstanceActive), repository.ErrNotFound)
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository()

	trainerID, err := repo.Create(ctx, &domain.User{Email: "t@example.com", PasswordHash: "x", Role: domain.RoleTrainer})
	require.NoError(t, err)
	customerID, err := repo.Create(ctx, &domain.User{Name: "Ana", Email: "c@example.com", PasswordHash: "x", Role: domain.RoleCustomer})
	require.NoError(t, err)

	_, err = repo.Create(ctx, &domain.User{Email: "c@example.com", PasswordHash: "x", Role: domain.RoleCustomer})
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	require.NoError(t, repo.SetTrainerForCustomer(ctx, customerID, trainerID))
	require.NoError(t, repo.AddCustomerIDToTrainer(ctx, trainerID, customerID))
	require.NoError(t, repo.AddCustomerIDToTrainer(ctx, trainerID, customerID))

	trainer, err := repo.GetByID(ctx, trainerID)
	require.NoError(t, err)
	assert.Len(t, trainer.CustomerIDs, 1)

	age := 41
	require.NoError(t, repo.UpdateProfile(ctx, customerID, domain.ClientProfile{Age: &age, Gender: "female"}))

	customers, err := repo.GetCustomersByTrainerID(ctx, trainerID)
	require.NoError(t, err)
	require.Len(t, customers, 1)
	require.NotNil(t, customers[0].Profile)
	assert.Equal(t, 41, *customers[0].Profile.Age)

	assert.ErrorIs(t, repo.UpdateProfile(ctx, trainerID, domain.ClientProfile{}), repository.ErrNotFound)
}
