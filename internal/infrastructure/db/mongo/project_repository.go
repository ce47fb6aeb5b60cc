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

const collectionProjects = "projects"

type ProjectRepository struct {
	col *mongo.Collection
}

func NewProjectRepository(db *mongo.Database) *ProjectRepository {
	return &ProjectRepository{col: db.Collection(collectionProjects)}
}

type mongoProject struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Title       string             `bson:"title"`
	Description string             `bson:"description,omitempty"`
	Deadline    time.Time          `bson:"deadline,omitempty"`
	Progress    string             `bson:"progress"`
	ClientID    string             `bson:"client_id"`
	StaffIDs    []string           `bson:"staff_ids"`
	CreatedAt   time.Time          `bson:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at"`
}

func (m *mongoProject) toDomain() *domain.Project {
	return &domain.Project{
		ID:          m.ID.Hex(),
		Title:       m.Title,
		Description: m.Description,
		Deadline:    m.Deadline,
		Progress:    domain.Progress(m.Progress),
		ClientID:    m.ClientID,
		StaffIDs:    emptyIfNil(m.StaffIDs),
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

// projectFilter translates a listing filter. staff_ids is an array field, so
// an equality match on it selects projects that contain the id.
func projectFilter(f ports.ProjectFilter) bson.M {
	filter := bson.M{}
	if f.ClientID != "" {
		filter["client_id"] = f.ClientID
	}
	if f.StaffID != "" {
		filter["staff_ids"] = f.StaffID
	}
	if f.Progress != "" {
		filter["progress"] = f.Progress
	}
	return filter
}

func (r *ProjectRepository) Create(ctx context.Context, p *domain.Project) (*domain.Project, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := mongoProject{
		ID:          primitive.NewObjectID(),
		Title:       p.Title,
		Description: p.Description,
		Deadline:    p.Deadline,
		Progress:    string(p.Progress),
		ClientID:    p.ClientID,
		StaffIDs:    emptyIfNil(p.StaffIDs),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("insert project: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *ProjectRepository) FindByID(ctx context.Context, id string) (*domain.Project, error) {
	oid, ok := objectID(id)
	if !ok {
		return nil, domain.ErrProjectNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var mp mongoProject
	if err := r.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&mp); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrProjectNotFound
		}
		return nil, fmt.Errorf("find project: %w", err)
	}
	return mp.toDomain(), nil
}

func (r *ProjectRepository) List(ctx context.Context, f ports.ProjectFilter) ([]*domain.Project, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.col.Find(ctx, projectFilter(f), opts)
	if err != nil {
		return nil, fmt.Errorf("find projects: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []mongoProject
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode projects: %w", err)
	}

	projects := make([]*domain.Project, 0, len(docs))
	for i := range docs {
		projects = append(projects, docs[i].toDomain())
	}
	return projects, nil
}

func (r *ProjectRepository) Save(ctx context.Context, p *domain.Project) (*domain.Project, error) {
	oid, ok := objectID(p.ID)
	if !ok {
		return nil, domain.ErrProjectNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	set := bson.M{
		"title":       p.Title,
		"description": p.Description,
		"deadline":    p.Deadline,
		"progress":    string(p.Progress),
		"client_id":   p.ClientID,
		"staff_ids":   emptyIfNil(p.StaffIDs),
		"updated_at":  p.UpdatedAt,
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var mp mongoProject
	if err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, opts).Decode(&mp); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrProjectNotFound
		}
		return nil, fmt.Errorf("update project: %w", err)
	}
	return mp.toDomain(), nil
}

func (r *ProjectRepository) Delete(ctx context.Context, id string) error {
	oid, ok := objectID(id)
	if !ok {
		return domain.ErrProjectNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrProjectNotFound
	}
	return nil
}

func (r *ProjectRepository) CountByClient(ctx context.Context, clientUserID string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	return r.col.CountDocuments(ctx, bson.M{"client_id": clientUserID})
}

func (r *ProjectRepository) RemoveStaff(ctx context.Context, staffID string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.UpdateMany(ctx,
		bson.M{"staff_ids": staffID},
		bson.M{"$pull": bson.M{"staff_ids": staffID}, "$set": bson.M{"updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return 0, fmt.Errorf("remove staff: %w", err)
	}
	return res.ModifiedCount, nil
}

func (r *ProjectRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, indexTimeout)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "client_id", Value: 1}}},
		{Keys: bson.D{{Key: "staff_ids", Value: 1}}},
		{Keys: bson.D{{Key: "progress", Value: 1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
