// internal/repository/mongo/protocol_plan_repo.go
package mongo

import (
	"context"
	"errors"
	"regexp"
	"time"

	"alcyxob/protocol-engine/internal/domain"
	"alcyxob/protocol-engine/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const protocolPlanCollectionName = "protocol_plans"

// mongoProtocolPlanRepository implements repository.ProtocolPlanRepository
type mongoProtocolPlanRepository struct {
	collection *mongo.Collection
}

func NewMongoProtocolPlanRepository(db *mongo.Database) repository.ProtocolPlanRepository {
	return &mongoProtocolPlanRepository{
		collection: db.Collection(protocolPlanCollectionName),
	}
}

// Create inserts a new plan with a zero usage count.
func (r *mongoProtocolPlanRepository) Create(ctx context.Context, plan *domain.ProtocolPlan) (primitive.ObjectID, error) {
	if plan.TrainerID == primitive.NilObjectID || plan.PlanName == "" {
		return primitive.NilObjectID, errors.New("plan requires trainerId and planName")
	}
	plan.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	plan.CreatedAt = now
	plan.UpdatedAt = now
	plan.UsageCount = 0

	result, err := r.collection.InsertOne(ctx, plan)
	if err != nil {
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted plan ID")
	}
	return insertedID, nil
}

func (r *mongoProtocolPlanRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.ProtocolPlan, error) {
	var plan domain.ProtocolPlan
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&plan)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &plan, nil
}

func (r *mongoProtocolPlanRepository) ListByTrainer(ctx context.Context, trainerID primitive.ObjectID, search string) ([]domain.ProtocolPlan, error) {
	filter := bson.M{
		"trainerId":  trainerID,
		"archivedAt": bson.M{"$exists": false},
	}
	if search != "" {
		filter["planName"] = primitive.Regex{Pattern: regexp.QuoteMeta(search), Options: "i"}
	}
	// Sort by creation date, newest first; _id breaks ties within the same millisecond
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	plans := []domain.ProtocolPlan{}
	if err = cursor.All(ctx, &plans); err != nil {
		return nil, err
	}
	return plans, nil
}

// IncrementUsage is a single $inc so concurrent assignments never lose an update.
func (r *mongoProtocolPlanRepository) IncrementUsage(ctx context.Context, id primitive.ObjectID) (int64, error) {
	update := bson.M{
		"$inc": bson.M{"usageCount": 1},
		"$set": bson.M{"updatedAt": time.Now().UTC()},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var plan domain.ProtocolPlan
	filter := bson.M{"_id": id, "deleting": bson.M{"$ne": true}}
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&plan)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, repository.ErrNotFound
		}
		return 0, err
	}
	return plan.UsageCount, nil
}

func (r *mongoProtocolPlanRepository) Archive(ctx context.Context, id, trainerID primitive.ObjectID, at time.Time) error {
	filter := bson.M{"_id": id, "trainerId": trainerID}
	update := bson.M{"$set": bson.M{"archivedAt": at.UTC(), "updatedAt": time.Now().UTC()}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// SetDeleting flags the plan so IncrementUsage refuses it while a delete is deciding.
func (r *mongoProtocolPlanRepository) SetDeleting(ctx context.Context, id, trainerID primitive.ObjectID, deleting bool) error {
	filter := bson.M{"_id": id, "trainerId": trainerID}
	update := bson.M{"$set": bson.M{"deleting": deleting}}
	if !deleting {
		update = bson.M{"$unset": bson.M{"deleting": ""}}
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *mongoProtocolPlanRepository) Delete(ctx context.Context, id, trainerID primitive.ObjectID) error {
	if id == primitive.NilObjectID || trainerID == primitive.NilObjectID {
		return errors.New("plan ID and trainer ID are required for deletion")
	}

	// Filter ensures that the plan exists AND belongs to the specified trainer.
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id, "trainerId": trainerID})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsureProtocolPlanIndexes creates necessary indexes. Call during startup.
func EnsureProtocolPlanIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			// Main listing pattern: a trainer's plans, newest first
			Keys:    bson.D{{Key: "trainerId", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "isTemplate", Value: 1}},
			Options: options.Index(),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
