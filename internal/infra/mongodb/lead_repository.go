package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xavierca1/course-funnel/internal/entity"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	collectionName = "leads"

	// DocumentValidationFailure
	codeDocumentValidation = 121
)

// LeadRepository stores leads as documents keyed by a UUID _id with a
// unique index on email.
type LeadRepository struct {
	coll *mongo.Collection
}

// NewLeadRepository binds the leads collection and makes sure the unique
// email index exists before any write is accepted.
func NewLeadRepository(ctx context.Context, db *mongo.Database) (*LeadRepository, error) {
	repo := &LeadRepository{coll: db.Collection(collectionName)}
	if err := repo.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *LeadRepository) ensureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
	}

	if _, err := r.coll.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func (r *LeadRepository) Upsert(ctx context.Context, lead *entity.Lead) (bool, error) {
	created, err := r.upsert(ctx, lead)
	// Two concurrent upserts on a new email can both miss the filter; the
	// loser hits the unique index and finds the winner's document on retry.
	if mongo.IsDuplicateKeyError(err) {
		created, err = r.upsert(ctx, lead)
	}
	if err != nil {
		return false, mapError("upsert lead", err)
	}
	return created, nil
}

func (r *LeadRepository) upsert(ctx context.Context, lead *entity.Lead) (bool, error) {
	now := time.Now().UTC()

	set := bson.M{
		"name":          lead.Name,
		"phone":         lead.Phone,
		"course":        lead.Course,
		"paymentStatus": entity.PaymentPending,
		"updatedAt":     now,
	}
	for field, value := range map[string]string{
		"city":       lead.City,
		"college":    lead.College,
		"university": lead.University,
	} {
		if value != "" {
			set[field] = value
		}
	}

	update := bson.M{
		"$set": set,
		"$setOnInsert": bson.M{
			"_id":       lead.ID,
			"emailSent": false,
			"createdAt": now,
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var stored entity.Lead
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"email": lead.Email}, update, opts).Decode(&stored)
	if err != nil {
		return false, err
	}

	created := stored.ID == lead.ID
	*lead = stored
	return created, nil
}

func (r *LeadRepository) FindByID(ctx context.Context, id string) (*entity.Lead, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *LeadRepository) FindByEmail(ctx context.Context, email string) (*entity.Lead, error) {
	return r.findOne(ctx, bson.M{"email": entity.NormalizeEmail(email)})
}

func (r *LeadRepository) findOne(ctx context.Context, filter bson.M) (*entity.Lead, error) {
	var lead entity.Lead
	if err := r.coll.FindOne(ctx, filter).Decode(&lead); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, entity.ErrLeadNotFound
		}
		return nil, fmt.Errorf("find lead: %w", err)
	}
	return &lead, nil
}

func (r *LeadRepository) ListRecent(ctx context.Context, limit int) ([]*entity.Lead, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}
	defer cursor.Close(ctx)

	leads := make([]*entity.Lead, 0, limit)
	for cursor.Next(ctx) {
		var lead entity.Lead
		if err := cursor.Decode(&lead); err != nil {
			return nil, fmt.Errorf("decode lead: %w", err)
		}
		leads = append(leads, &lead)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}
	return leads, nil
}

func (r *LeadRepository) MarkEmailSent(ctx context.Context, id string) error {
	return r.setFields(ctx, "mark email sent", id, bson.M{"emailSent": true})
}

func (r *LeadRepository) UpdatePaymentStatus(ctx context.Context, id string, status entity.PaymentStatus) error {
	return r.setFields(ctx, "update payment status", id, bson.M{"paymentStatus": status})
}

func (r *LeadRepository) setFields(ctx context.Context, op, id string, fields bson.M) error {
	fields["updatedAt"] = time.Now().UTC()

	result, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": fields})
	if err != nil {
		return mapError(op, err)
	}
	if result.MatchedCount == 0 {
		return entity.ErrLeadNotFound
	}
	return nil
}

func mapError(op string, err error) error {
	var serverErr mongo.ServerError
	if errors.As(err, &serverErr) && serverErr.HasErrorCode(codeDocumentValidation) {
		return fmt.Errorf("%w: %s", entity.ErrValidation, err.Error())
	}
	return fmt.Errorf("%s: %w", op, err)
}
