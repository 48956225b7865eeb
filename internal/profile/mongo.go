package profile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	defaultDatabase    = "job_apply_agent"
	profilesCollection = "user_profiles"
)

// MongoStore keeps profiles in the user_profiles collection.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	if uri == "" {
		return nil, errors.New("mongo uri is required")
	}
	if database == "" {
		database = defaultDatabase
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}

	if err := client.Ping(connectCtx, nil); err != nil {
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	return &MongoStore{
		client: client,
		coll:   client.Database(database).Collection(profilesCollection),
	}, nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) GetByID(ctx context.Context, id string) (*Profile, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("malformed user id %q: %w", id, ErrNotFound)
	}

	return s.findOne(ctx, bson.M{"_id": oid})
}

func (s *MongoStore) GetByEmail(ctx context.Context, email string) (*Profile, error) {
	return s.findOne(ctx, bson.M{"email": email})
}

func (s *MongoStore) findOne(ctx context.Context, filter bson.M) (*Profile, error) {
	var doc struct {
		Profile `bson:",inline"`
		OID     primitive.ObjectID `bson:"_id"`
	}

	err := s.coll.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find profile: %w", err)
	}

	p := doc.Profile
	p.ID = doc.OID.Hex()
	return &p, nil
}

func (s *MongoStore) Create(ctx context.Context, p *Profile) (string, error) {
	existing, err := s.GetByEmail(ctx, p.Email)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return "", err
	}
	if existing != nil {
		return "", fmt.Errorf("email %s: %w", p.Email, ErrDuplicateEmail)
	}

	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	doc := bson.M{
		"full_name":  p.FullName,
		"email":      p.Email,
		"phone":      p.Phone,
		"skills":     p.Skills,
		"education":  p.Education,
		"experience": p.Experience,
		"locations":  p.Locations,
		"visa_type":  p.VisaType,
		"summary":    p.Summary,
		"password":   p.PasswordHash,
		"created_at": p.CreatedAt,
	}

	res, err := s.coll.InsertOne(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("insert profile: %w", err)
	}

	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", errors.New("mongo returned unexpected inserted id type")
	}

	p.ID = oid.Hex()
	return p.ID, nil
}
