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

const collectionClients = "clients"

type ClientRepository struct {
	col *mongo.Collection
}

func NewClientRepository(db *mongo.Database) *ClientRepository {
	return &ClientRepository{col: db.Collection(collectionClients)}
}

type mongoClient struct {
	ID                primitive.ObjectID `bson:"_id"`
	Name              string             `bson:"name"`
	Email             string             `bson:"email"`
	Contact           string             `bson:"contact,omitempty"`
	UserID            string             `bson:"user_id,omitempty"`
	Projects          []string           `bson:"projects"`
	AssignedStaff     []string           `bson:"assigned_staff"`
	ConvertedFromLead string             `bson:"converted_from_lead,omitempty"`
	CreatedAt         time.Time          `bson:"created_at"`
	UpdatedAt         time.Time          `bson:"updated_at"`
}

func (m *mongoClient) toDomain() *domain.Client {
	return &domain.Client{
		ID:                m.ID.Hex(),
		Name:              m.Name,
		Email:             m.Email,
		Contact:           m.Contact,
		UserID:            m.UserID,
		Projects:          emptyIfNil(m.Projects),
		AssignedStaff:     emptyIfNil(m.AssignedStaff),
		ConvertedFromLead: m.ConvertedFromLead,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

// Create keeps client.ID when it is a valid object id so that replaying a
// conversion hits the duplicate _id instead of inserting a second client. The
// unique email index rejects a second client for the same address.
func (r *ClientRepository) Create(ctx context.Context, client *domain.Client) (*domain.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	oid, ok := objectID(client.ID)
	if !ok {
		oid = primitive.NewObjectID()
	}
	doc := mongoClient{
		ID:                oid,
		Name:              client.Name,
		Email:             client.Email,
		Contact:           client.Contact,
		UserID:            client.UserID,
		Projects:          emptyIfNil(client.Projects),
		AssignedStaff:     emptyIfNil(client.AssignedStaff),
		ConvertedFromLead: client.ConvertedFromLead,
		CreatedAt:         client.CreatedAt,
		UpdatedAt:         client.UpdatedAt,
	}
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrClientExists
		}
		return nil, fmt.Errorf("insert client: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *ClientRepository) FindByID(ctx context.Context, id string) (*domain.Client, error) {
	oid, ok := objectID(id)
	if !ok {
		return nil, domain.ErrClientNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var mc mongoClient
	if err := r.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&mc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrClientNotFound
		}
		return nil, fmt.Errorf("find client: %w", err)
	}
	return mc.toDomain(), nil
}

func (r *ClientRepository) FindByEmail(ctx context.Context, email string) (*domain.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var mc mongoClient
	if err := r.col.FindOne(ctx, bson.M{"email": email}).Decode(&mc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrClientNotFound
		}
		return nil, fmt.Errorf("find client by email: %w", err)
	}
	return mc.toDomain(), nil
}

func (r *ClientRepository) List(ctx context.Context) ([]*domain.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find clients: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []mongoClient
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode clients: %w", err)
	}

	clients := make([]*domain.Client, 0, len(docs))
	for i := range docs {
		clients = append(clients, docs[i].toDomain())
	}
	return clients, nil
}

func clientPatchSet(patch ports.ClientPatch, now time.Time) bson.M {
	set := bson.M{"updated_at": now}
	if patch.Name != nil {
		set["name"] = *patch.Name
	}
	if patch.Contact != nil {
		set["contact"] = *patch.Contact
	}
	return set
}

func (r *ClientRepository) Update(ctx context.Context, id string, patch ports.ClientPatch) (*domain.Client, error) {
	oid, ok := objectID(id)
	if !ok {
		return nil, domain.ErrClientNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var mc mongoClient
	err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": clientPatchSet(patch, time.Now().UTC())}, opts).Decode(&mc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrClientNotFound
		}
		return nil, fmt.Errorf("update client: %w", err)
	}
	return mc.toDomain(), nil
}

func (r *ClientRepository) Delete(ctx context.Context, id string) error {
	oid, ok := objectID(id)
	if !ok {
		return domain.ErrClientNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete client: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrClientNotFound
	}
	return nil
}

func (r *ClientRepository) SetAssignments(ctx context.Context, userID string, projectIDs, staffIDs []string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	update := bson.M{"$set": bson.M{
		"projects":       emptyIfNil(projectIDs),
		"assigned_staff": emptyIfNil(staffIDs),
		"updated_at":     time.Now().UTC(),
	}}
	res, err := r.col.UpdateOne(ctx, bson.M{"user_id": userID}, update)
	if err != nil {
		return fmt.Errorf("set client assignments: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrClientNotFound
	}
	return nil
}

func (r *ClientRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, indexTimeout)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}}},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "projects", Value: 1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
