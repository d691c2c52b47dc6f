// Package memory provides mutex-guarded in-process repositories for local runs and tests.
// Records are copied on the way in and out so callers never share state with the store.
package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"alcyxob/protocol-engine/internal/domain"
	"alcyxob/protocol-engine/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type UserRepository struct {
	mu    sync.RWMutex
	users map[primitive.ObjectID]domain.User
}

func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[primitive.ObjectID]domain.User)}
}

var _ repository.UserRepository = (*UserRepository)(nil)

func (r *UserRepository) Create(_ context.Context, user *domain.User) (primitive.ObjectID, error) {
	if user.Email == "" || user.PasswordHash == "" || user.Role == "" {
		return primitive.NilObjectID, errors.New("user email, password hash, and role are required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Email == user.Email {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
	}
	user.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.users[user.ID] = copyUser(*user)
	return user.ID, nil
}

func (r *UserRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.Email == email {
			c := copyUser(u)
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *UserRepository) GetByID(_ context.Context, id primitive.ObjectID) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := copyUser(u)
	return &c, nil
}

func (r *UserRepository) AddCustomerIDToTrainer(_ context.Context, trainerID, customerID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.users[trainerID]
	if !ok || !t.IsTrainer() {
		return repository.ErrNotFound
	}
	for _, id := range t.CustomerIDs {
		if id == customerID {
			return nil
		}
	}
	t.CustomerIDs = append(append([]primitive.ObjectID(nil), t.CustomerIDs...), customerID)
	t.UpdatedAt = time.Now().UTC()
	r.users[trainerID] = t
	return nil
}

func (r *UserRepository) GetCustomersByTrainerID(_ context.Context, trainerID primitive.ObjectID) ([]domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []domain.User{}
	for _, u := range r.users {
		if u.IsManagedBy(trainerID) {
			out = append(out, copyUser(u))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *UserRepository) SetTrainerForCustomer(_ context.Context, customerID, trainerID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[customerID]
	if !ok || !u.IsCustomer() {
		return repository.ErrNotFound
	}
	tid := trainerID
	u.TrainerID = &tid
	u.UpdatedAt = time.Now().UTC()
	r.users[customerID] = u
	return nil
}

func (r *UserRepository) UpdateProfile(_ context.Context, customerID primitive.ObjectID, profile domain.ClientProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[customerID]
	if !ok || !u.IsCustomer() {
		return repository.ErrNotFound
	}
	p := domain.ClientProfile{}.Merge(&profile)
	u.Profile = &p
	u.UpdatedAt = time.Now().UTC()
	r.users[customerID] = u
	return nil
}

func copyUser(u domain.User) domain.User {
	u.CustomerIDs = append([]primitive.ObjectID(nil), u.CustomerIDs...)
	if u.TrainerID != nil {
		id := *u.TrainerID
		u.TrainerID = &id
	}
	if u.Profile != nil {
		p := domain.ClientProfile{}.Merge(u.Profile)
		u.Profile = &p
	}
	return u
}

type ProtocolPlanRepository struct {
	mu    sync.Mutex
	plans map[primitive.ObjectID]domain.ProtocolPlan
}

func NewProtocolPlanRepository() *ProtocolPlanRepository {
	return &ProtocolPlanRepository{plans: make(map[primitive.ObjectID]domain.ProtocolPlan)}
}

var _ repository.ProtocolPlanRepository = (*ProtocolPlanRepository)(nil)

func (r *ProtocolPlanRepository) Create(_ context.Context, plan *domain.ProtocolPlan) (primitive.ObjectID, error) {
	if plan.TrainerID == primitive.NilObjectID || plan.PlanName == "" {
		return primitive.NilObjectID, errors.New("plan requires trainerId and planName")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	plan.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	plan.CreatedAt = now
	plan.UpdatedAt = now
	plan.UsageCount = 0
	r.plans[plan.ID] = copyPlan(*plan)
	return plan.ID, nil
}

func (r *ProtocolPlanRepository) GetByID(_ context.Context, id primitive.ObjectID) (*domain.ProtocolPlan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.plans[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := copyPlan(p)
	return &c, nil
}

func (r *ProtocolPlanRepository) ListByTrainer(_ context.Context, trainerID primitive.ObjectID, search string) ([]domain.ProtocolPlan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	needle := strings.ToLower(search)
	out := []domain.ProtocolPlan{}
	for _, p := range r.plans {
		if p.TrainerID != trainerID || p.IsArchived() {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(p.PlanName), needle) {
			continue
		}
		out = append(out, copyPlan(p))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.Hex() > out[j].ID.Hex()
	})
	return out, nil
}

func (r *ProtocolPlanRepository) IncrementUsage(_ context.Context, id primitive.ObjectID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.plans[id]
	if !ok || p.Deleting {
		return 0, repository.ErrNotFound
	}
	p.UsageCount++
	p.UpdatedAt = time.Now().UTC()
	r.plans[id] = p
	return p.UsageCount, nil
}

func (r *ProtocolPlanRepository) Archive(_ context.Context, id, trainerID primitive.ObjectID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.plans[id]
	if !ok || p.TrainerID != trainerID {
		return repository.ErrNotFound
	}
	ts := at.UTC()
	p.ArchivedAt = &ts
	p.UpdatedAt = time.Now().UTC()
	r.plans[id] = p
	return nil
}

func (r *ProtocolPlanRepository) SetDeleting(_ context.Context, id, trainerID primitive.ObjectID, deleting bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.plans[id]
	if !ok || p.TrainerID != trainerID {
		return repository.ErrNotFound
	}
	p.Deleting = deleting
	r.plans[id] = p
	return nil
}

func (r *ProtocolPlanRepository) Delete(_ context.Context, id, trainerID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.plans[id]
	if !ok || p.TrainerID != trainerID {
		return repository.ErrNotFound
	}
	delete(r.plans, id)
	return nil
}

func copyPlan(p domain.ProtocolPlan) domain.ProtocolPlan {
	p.WizardConfiguration = p.WizardConfiguration.Clone()
	if p.ArchivedAt != nil {
		ts := *p.ArchivedAt
		p.ArchivedAt = &ts
	}
	return p
}

type ProtocolInstanceRepository struct {
	mu        sync.RWMutex
	instances map[primitive.ObjectID]domain.ProtocolInstance
}

func NewProtocolInstanceRepository() *ProtocolInstanceRepository {
	return &ProtocolInstanceRepository{instances: make(map[primitive.ObjectID]domain.ProtocolInstance)}
}

var _ repository.ProtocolInstanceRepository = (*ProtocolInstanceRepository)(nil)

func (r *ProtocolInstanceRepository) Create(_ context.Context, instance *domain.ProtocolInstance) (primitive.ObjectID, error) {
	if instance.PlanID == primitive.NilObjectID || instance.CustomerID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("instance requires planId and customerId")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if instance.ID == primitive.NilObjectID {
		instance.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	instance.AssignedAt = now
	instance.UpdatedAt = now
	if instance.Status == "" {
		instance.Status = domain.InstanceActive
	}
	r.instances[instance.ID] = copyInstance(*instance)
	return instance.ID, nil
}

func (r *ProtocolInstanceRepository) GetByID(_ context.Context, id primitive.ObjectID) (*domain.ProtocolInstance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	in, ok := r.instances[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := copyInstance(in)
	return &c, nil
}

func (r *ProtocolInstanceRepository) ListByPlan(_ context.Context, planID primitive.ObjectID) ([]domain.ProtocolInstance, error) {
	return r.filter(func(in domain.ProtocolInstance) bool { return in.PlanID == planID }), nil
}

func (r *ProtocolInstanceRepository) ListByCustomer(_ context.Context, customerID primitive.ObjectID) ([]domain.ProtocolInstance, error) {
	return r.filter(func(in domain.ProtocolInstance) bool { return in.CustomerID == customerID }), nil
}

func (r *ProtocolInstanceRepository) filter(keep func(domain.ProtocolInstance) bool) []domain.ProtocolInstance {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []domain.ProtocolInstance{}
	for _, in := range r.instances {
		if keep(in) {
			out = append(out, copyInstance(in))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].AssignedAt.Equal(out[j].AssignedAt) {
			return out[i].AssignedAt.After(out[j].AssignedAt)
		}
		return out[i].ID.Hex() > out[j].ID.Hex()
	})
	return out
}

func (r *ProtocolInstanceRepository) CountActiveByPlan(_ context.Context, planID primitive.ObjectID) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var n int64
	for _, in := range r.instances {
		if in.PlanID == planID && in.Status == domain.InstanceActive {
			n++
		}
	}
	return n, nil
}

func (r *ProtocolInstanceRepository) UpdateStatus(_ context.Context, id primitive.ObjectID, status domain.InstanceStatus) error {
	return r.update(id, func(in *domain.ProtocolInstance) { in.Status = status })
}

func (r *ProtocolInstanceRepository) Acknowledge(_ context.Context, id primitive.ObjectID, at time.Time) error {
	ts := at.UTC()
	return r.update(id, func(in *domain.ProtocolInstance) { in.AcknowledgedAt = &ts })
}

func (r *ProtocolInstanceRepository) update(id primitive.ObjectID, apply func(*domain.ProtocolInstance)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	in, ok := r.instances[id]
	if !ok {
		return repository.ErrNotFound
	}
	apply(&in)
	in.UpdatedAt = time.Now().UTC()
	r.instances[id] = in
	return nil
}

func (r *ProtocolInstanceRepository) Delete(_ context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.instances[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.instances, id)
	return nil
}

func (r *ProtocolInstanceRepository) DeleteInactiveByPlan(_ context.Context, planID primitive.ObjectID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, in := range r.instances {
		if in.PlanID == planID && in.Status != domain.InstanceActive {
			delete(r.instances, id)
			n++
		}
	}
	return n, nil
}

// copyInstance shares the artifact's inner slices; artifacts are immutable once created.
func copyInstance(in domain.ProtocolInstance) domain.ProtocolInstance {
	if in.AcknowledgedAt != nil {
		ts := *in.AcknowledgedAt
		in.AcknowledgedAt = &ts
	}
	return in
}
