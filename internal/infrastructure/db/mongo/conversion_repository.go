package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/minicrm/crm-api/internal/core/domain"
)

const collectionConversions = "conversion_intents"

// ConversionRepository stores conversion intents. The unique lead_id index is
// what makes a second conversion of the same lead fail fast.
type ConversionRepository struct {
	col *mongo.Collection
}

func NewConversionRepository(db *mongo.Database) *ConversionRepository {
	return &ConversionRepository{col: db.Collection(collectionConversions)}
}

type mongoIntent struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	LeadID    string             `bson:"lead_id"`
	ClientID  string             `bson:"client_id"`
	UserID    string             `bson:"user_id,omitempty"`
	Email     string             `bson:"email"`
	Name      string             `bson:"name"`
	Contact   string             `bson:"contact,omitempty"`
	State     string             `bson:"state"`
	Attempts  int                `bson:"attempts"`
	LastError string             `bson:"last_error,omitempty"`
	CreatedAt time.Time          `bson:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at"`
}

func (m *mongoIntent) toDomain() *domain.ConversionIntent {
	return &domain.ConversionIntent{
		ID:        m.ID.Hex(),
		LeadID:    m.LeadID,
		ClientID:  m.ClientID,
		UserID:    m.UserID,
		Email:     m.Email,
		Name:      m.Name,
		Contact:   m.Contact,
		State:     domain.IntentState(m.State),
		Attempts:  m.Attempts,
		LastError: m.LastError,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func (r *ConversionRepository) CreateIntent(ctx context.Context, in *domain.ConversionIntent) (*domain.ConversionIntent, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := mongoIntent{
		ID:        primitive.NewObjectID(),
		LeadID:    in.LeadID,
		ClientID:  in.ClientID,
		UserID:    in.UserID,
		Email:     in.Email,
		Name:      in.Name,
		Contact:   in.Contact,
		State:     string(in.State),
		Attempts:  in.Attempts,
		CreatedAt: in.CreatedAt,
		UpdatedAt: in.UpdatedAt,
	}
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrConversionInProgress
		}
		return nil, fmt.Errorf("insert conversion intent: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *ConversionRepository) SaveIntent(ctx context.Context, in *domain.ConversionIntent) error {
	oid, ok := objectID(in.ID)
	if !ok {
		return fmt.Errorf("save conversion intent: invalid id %q", in.ID)
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	set := bson.M{
		"state":      string(in.State),
		"attempts":   in.Attempts,
		"last_error": in.LastError,
		"updated_at": in.UpdatedAt,
	}
	if _, err := r.col.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set}); err != nil {
		return fmt.Errorf("save conversion intent: %w", err)
	}
	return nil
}

// pendingFilter selects intents that are still pending and have not been
// touched since olderThan.
func pendingFilter(olderThan time.Time) bson.M {
	return bson.M{
		"state":      string(domain.IntentPending),
		"updated_at": bson.M{"$lte": olderThan},
	}
}

func (r *ConversionRepository) ListPending(ctx context.Context, olderThan time.Time, limit int) ([]*domain.ConversionIntent, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "updated_at", Value: 1}}).
		SetLimit(int64(limit))
	cursor, err := r.col.Find(ctx, pendingFilter(olderThan), opts)
	if err != nil {
		return nil, fmt.Errorf("find pending intents: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []mongoIntent
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode pending intents: %w", err)
	}

	intents := make([]*domain.ConversionIntent, 0, len(docs))
	for i := range docs {
		intents = append(intents, docs[i].toDomain())
	}
	return intents, nil
}

func (r *ConversionRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, indexTimeout)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "lead_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "state", Value: 1}, {Key: "updated_at", Value: 1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
