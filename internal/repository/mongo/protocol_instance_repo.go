package mongo

import (
	"context"
	"errors"
	"time"

	"alcyxob/protocol-engine/internal/domain"
	"alcyxob/protocol-engine/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const protocolInstanceCollectionName = "protocol_instances"

// mongoProtocolInstanceRepository implements repository.ProtocolInstanceRepository
type mongoProtocolInstanceRepository struct {
	collection *mongo.Collection
}

func NewMongoProtocolInstanceRepository(db *mongo.Database) repository.ProtocolInstanceRepository {
	return &mongoProtocolInstanceRepository{
		collection: db.Collection(protocolInstanceCollectionName),
	}
}

// Create inserts a new instance. The artifact is written once and never updated.
func (r *mongoProtocolInstanceRepository) Create(ctx context.Context, instance *domain.ProtocolInstance) (primitive.ObjectID, error) {
	if instance.PlanID == primitive.NilObjectID || instance.CustomerID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("instance requires planId and customerId")
	}

	if instance.ID == primitive.NilObjectID {
		instance.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	instance.AssignedAt = now
	instance.UpdatedAt = now
	if instance.Status == "" {
		instance.Status = domain.InstanceActive
	}

	result, err := r.collection.InsertOne(ctx, instance)
	if err != nil {
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted instance ID")
	}
	return insertedID, nil
}

func (r *mongoProtocolInstanceRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.ProtocolInstance, error) {
	var instance domain.ProtocolInstance
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&instance)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &instance, nil
}

func (r *mongoProtocolInstanceRepository) ListByPlan(ctx context.Context, planID primitive.ObjectID) ([]domain.ProtocolInstance, error) {
	return r.find(ctx, bson.M{"planId": planID})
}

func (r *mongoProtocolInstanceRepository) ListByCustomer(ctx context.Context, customerID primitive.ObjectID) ([]domain.ProtocolInstance, error) {
	return r.find(ctx, bson.M{"customerId": customerID})
}

func (r *mongoProtocolInstanceRepository) find(ctx context.Context, filter bson.M) ([]domain.ProtocolInstance, error) {
	// Newest assignment first
	findOptions := options.Find().SetSort(bson.D{{Key: "assignedAt", Value: -1}, {Key: "_id", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	instances := []domain.ProtocolInstance{}
	if err = cursor.All(ctx, &instances); err != nil {
		return nil, err
	}
	return instances, nil
}

func (r *mongoProtocolInstanceRepository) CountActiveByPlan(ctx context.Context, planID primitive.ObjectID) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"planId": planID, "status": domain.InstanceActive})
}

func (r *mongoProtocolInstanceRepository) UpdateStatus(ctx context.Context, id primitive.ObjectID, status domain.InstanceStatus) error {
	update := bson.M{"$set": bson.M{"status": status, "updatedAt": time.Now().UTC()}}
	return r.updateOne(ctx, id, update)
}

func (r *mongoProtocolInstanceRepository) Acknowledge(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	update := bson.M{"$set": bson.M{"acknowledgedAt": at.UTC(), "updatedAt": time.Now().UTC()}}
	return r.updateOne(ctx, id, update)
}

func (r *mongoProtocolInstanceRepository) updateOne(ctx context.Context, id primitive.ObjectID, update bson.M) error {
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *mongoProtocolInstanceRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *mongoProtocolInstanceRepository) DeleteInactiveByPlan(ctx context.Context, planID primitive.ObjectID) (int64, error) {
	filter := bson.M{"planId": planID, "status": bson.M{"$ne": domain.InstanceActive}}
	result, err := r.collection.DeleteMany(ctx, filter)
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

// EnsureProtocolInstanceIndexes creates necessary indexes. Call during startup.
func EnsureProtocolInstanceIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			// Active-instance count guarding plan deletion
			Keys:    bson.D{{Key: "planId", Value: 1}, {Key: "status", Value: 1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "customerId", Value: 1}, {Key: "assignedAt", Value: -1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "trainerId", Value: 1}},
			Options: options.Index(),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
