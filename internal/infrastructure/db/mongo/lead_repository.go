package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/minicrm/crm-api/internal/core/domain"
	"github.com/minicrm/crm-api/internal/core/ports"
)

const collectionLeads = "leads"

type LeadRepository struct {
	col *mongo.Collection
}

func NewLeadRepository(db *mongo.Database) *LeadRepository {
	return &LeadRepository{col: db.Collection(collectionLeads)}
}

type mongoLead struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Name      string             `bson:"name"`
	Email     string             `bson:"email"`
	Contact   string             `bson:"contact,omitempty"`
	Status    string             `bson:"status"`
	UserID    string             `bson:"user_id,omitempty"`
	CreatedAt time.Time          `bson:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at"`
}

func (m *mongoLead) toDomain() *domain.Lead {
	return &domain.Lead{
		ID:        m.ID.Hex(),
		Name:      m.Name,
		Email:     m.Email,
		Contact:   m.Contact,
		Status:    domain.LeadStatus(m.Status),
		UserID:    m.UserID,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func (r *LeadRepository) Create(ctx context.Context, lead *domain.Lead) (*domain.Lead, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := mongoLead{
		ID:        primitive.NewObjectID(),
		Name:      lead.Name,
		Email:     lead.Email,
		Contact:   lead.Contact,
		Status:    string(lead.Status),
		UserID:    lead.UserID,
		CreatedAt: lead.CreatedAt,
		UpdatedAt: lead.UpdatedAt,
	}
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrLeadExists
		}
		return nil, fmt.Errorf("insert lead: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *LeadRepository) FindByID(ctx context.Context, id string) (*domain.Lead, error) {
	oid, ok := objectID(id)
	if !ok {
		return nil, domain.ErrLeadNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *LeadRepository) FindByEmail(ctx context.Context, email string) (*domain.Lead, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *LeadRepository) findOne(ctx context.Context, filter bson.M) (*domain.Lead, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var ml mongoLead
	if err := r.col.FindOne(ctx, filter).Decode(&ml); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrLeadNotFound
		}
		return nil, fmt.Errorf("find lead: %w", err)
	}
	return ml.toDomain(), nil
}

func leadFilter(f ports.LeadFilter) bson.M {
	filter := bson.M{}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	return filter
}

func (r *LeadRepository) List(ctx context.Context, f ports.LeadFilter) ([]*domain.Lead, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.col.Find(ctx, leadFilter(f), opts)
	if err != nil {
		return nil, fmt.Errorf("find leads: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []mongoLead
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode leads: %w", err)
	}

	leads := make([]*domain.Lead, 0, len(docs))
	for i := range docs {
		leads = append(leads, docs[i].toDomain())
	}
	return leads, nil
}

func leadPatchSet(patch ports.LeadPatch, now time.Time) bson.M {
	set := bson.M{"updated_at": now}
	if patch.Name != nil {
		set["name"] = *patch.Name
	}
	if patch.Contact != nil {
		set["contact"] = *patch.Contact
	}
	if patch.Status != nil {
		set["status"] = string(*patch.Status)
	}
	if patch.UserID != nil {
		set["user_id"] = *patch.UserID
	}
	return set
}

func (r *LeadRepository) Update(ctx context.Context, id string, patch ports.LeadPatch) (*domain.Lead, error) {
	oid, ok := objectID(id)
	if !ok {
		return nil, domain.ErrLeadNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var ml mongoLead
	err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": leadPatchSet(patch, time.Now().UTC())}, opts).Decode(&ml)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrLeadNotFound
		}
		return nil, fmt.Errorf("update lead: %w", err)
	}
	return ml.toDomain(), nil
}

func (r *LeadRepository) Delete(ctx context.Context, id string) error {
	oid, ok := objectID(id)
	if !ok {
		return domain.ErrLeadNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete lead: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrLeadNotFound
	}
	return nil
}

func (r *LeadRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, indexTimeout)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "status", Value: 1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
