package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"alcyxob/protocol-engine/internal/assembler"
	"alcyxob/protocol-engine/internal/domain"
	"alcyxob/protocol-engine/internal/knowledge"
	"alcyxob/protocol-engine/internal/repository/memory"
	"alcyxob/protocol-engine/internal/safety"
	"alcyxob/protocol-engine/internal/sanitize"
	"alcyxob/protocol-engine/internal/storage"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// fakeDrafter returns a complete draft for the requested duration unless err or short is set.
type fakeDrafter struct {
	calls atomic.Int32
	err   error
	short int // when > 0, only this many days are returned
	// during runs inside Generate, standing in for work done by other requests meanwhile.
	during func()
}

func (f *fakeDrafter) Generate(_ context.Context, req *domain.GenerationRequest, _ domain.NutritionFocus) (*domain.RawArtifactDraft, error) {
	f.calls.Add(1)
	if f.during != nil {
		f.during()
	}
	if f.err != nil {
		return nil, f.err
	}
	n := req.DurationDays
	if f.short > 0 {
		n = f.short
	}
	days := make([]domain.DraftDay, n)
	for i := range days {
		days[i] = domain.DraftDay{
			Day: i + 1,
			Meals: []domain.Meal{
				{MealType: "breakfast", Name: "Kiwi oats", Ingredients: []string{"Oats", "Kiwi"}, Macros: domain.Macros{Calories: 420, ProteinG: 14, CarbsG: 70, FatG: 9}},
				{MealType: "dinner", Name: "Ginger salmon", Ingredients: []string{"Salmon", "Ginger", "Rice"}, Macros: domain.Macros{Calories: 650, ProteinG: 40, CarbsG: 60, FatG: 22}},
			},
		}
	}
	return &domain.RawArtifactDraft{Days: days, Attempts: 1}, nil
}

type fixture struct {
	drafter   *fakeDrafter
	users     *memory.UserRepository
	plans     *memory.ProtocolPlanRepository
	instances *memory.ProtocolInstanceRepository
	snapshots *storage.MemoryStorage
	validator *safety.Validator

	protocols ProtocolService
	planSvc   PlanService
	customers CustomerService
	trainers  TrainerService
	auth      AuthService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	base := knowledge.MustDefault()
	sanitizer := sanitize.Default()
	validator := safety.NewValidator(base, safety.DefaultLimits())

	f := &fixture{
		drafter:   &fakeDrafter{},
		users:     memory.NewUserRepository(),
		plans:     memory.NewProtocolPlanRepository(),
		instances: memory.NewProtocolInstanceRepository(),
		snapshots: storage.NewMemoryStorage(""),
		validator: validator,
	}
	f.protocols = NewProtocolService(base, sanitizer, validator, f.drafter, assembler.New(base), nil)
	f.planSvc = NewPlanService(f.plans, f.instances, f.users, f.protocols, sanitizer, f.snapshots, nil)
	f.customers = NewCustomerService(f.instances, f.snapshots, nil)
	f.trainers = NewTrainerService(f.users, validator)
	f.auth = NewAuthService(f.users, "test-secret", 0)
	return f
}

// trainerWithCustomer registers a trainer and a customer managed by them.
func (f *fixture) trainerWithCustomer(t *testing.T) (trainerID, customerID primitive.ObjectID) {
	t.Helper()
	ctx := context.Background()
	trainer, err := f.auth.Register(ctx, "Tess Trainer", "trainer-"+primitive.NewObjectID().Hex()+"@example.com", "pw-trainer", domain.RoleTrainer)
	require.NoError(t, err)
	email := "customer-" + primitive.NewObjectID().Hex() + "@example.com"
	_, err = f.auth.Register(ctx, "Cam Customer", email, "pw-customer", domain.RoleCustomer)
	require.NoError(t, err)
	customer, err := f.trainers.AddCustomerByEmail(ctx, trainer.ID, email)
	require.NoError(t, err)
	return trainer.ID, customer.ID
}

func intPtr(v int) *int { return &v }

func digestiveRequest() domain.GenerationRequest {
	return domain.GenerationRequest{
		ProtocolKind:         domain.KindAilmentTargeted,
		DurationDays:         3,
		Intensity:            domain.IntensityGentle,
		ExperienceLevel:      domain.ExperienceBeginner,
		SelectedConditionIDs: []string{"bloating", "constipation"},
		PriorityLevel:        domain.PriorityMedium,
		DailyCalorieTarget:   2000,
		Notes:                "Prefers warm breakfasts.",
	}
}

func parallel(n int, fn func()) {
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn()
		}()
	}
	wg.Wait()
}
