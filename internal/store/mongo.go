package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"stockroom/internal/model"
)

// MongoStore implements Store on top of a MongoDB database. Documents are
// addressed by ObjectID; the hex form is what travels through the API.
type MongoStore struct {
	client *mongo.Client
	items  *mongo.Collection
	users  *mongo.Collection
}

// itemDoc is the persisted shape of an item. It keeps bson concerns out
// of the model package.
type itemDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Name      string             `bson:"name"`
	Price     float64            `bson:"price"`
	CreatedAt time.Time          `bson:"created_at"`
}

// userDoc is the persisted shape of a user.
type userDoc struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Username     string             `bson:"username"`
	PasswordHash string             `bson:"password_hash"`
	CreatedAt    time.Time          `bson:"created_at"`
}

func (d *itemDoc) toModel() *model.Item {
	return &model.Item{
		ID:        d.ID.Hex(),
		Name:      d.Name,
		Price:     d.Price,
		CreatedAt: d.CreatedAt,
	}
}

func (d *userDoc) toModel() *model.User {
	return &model.User{
		ID:           d.ID.Hex(),
		Username:     d.Username,
		PasswordHash: d.PasswordHash,
		CreatedAt:    d.CreatedAt,
	}
}

// ConnectMongo establishes and verifies a MongoDB connection. The caller
// treats any error as fatal: nothing in the service can function without
// the document store.
func ConnectMongo(ctx context.Context, uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect document store: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping document store: %w", err)
	}

	db := client.Database(database)

	return &MongoStore{
		client: client,
		items:  db.Collection(CollectionItems),
		users:  db.Collection(CollectionUsers),
	}, nil
}

// parseObjectID validates the store's identifier format before any I/O.
func parseObjectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, ErrInvalidID
	}
	return oid, nil
}

// List returns all items from the store.
func (s *MongoStore) List(ctx context.Context) ([]model.Item, error) {
	cursor, err := s.items.Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}

	var docs []itemDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("list items: decode: %w", err)
	}

	items := make([]model.Item, 0, len(docs))
	for i := range docs {
		items = append(items, *docs[i].toModel())
	}

	return items, nil
}

// Get retrieves an item by its ID.
func (s *MongoStore) Get(ctx context.Context, id string) (*model.Item, error) {
	oid, err := parseObjectID(id)
	if err != nil {
		return nil, err
	}

	var doc itemDoc
	if err := s.items.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get item: %w", err)
	}

	return doc.toModel(), nil
}

// Create inserts a new item and returns it with the generated ID.
func (s *MongoStore) Create(ctx context.Context, item *model.Item) (*model.Item, error) {
	if item == nil {
		return nil, ErrNilItem
	}

	doc := itemDoc{
		Name:      item.Name,
		Price:     item.Price,
		CreatedAt: time.Now().UTC(),
	}

	res, err := s.items.InsertOne(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("create item: %w", err)
	}

	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return nil, fmt.Errorf("create item: unexpected inserted id type %T", res.InsertedID)
	}
	doc.ID = oid

	return doc.toModel(), nil
}

// Update applies the patch via a $set of only the provided fields, so
// absent fields are never overwritten and Modified stays meaningful when
// the document already holds the requested values.
func (s *MongoStore) Update(ctx context.Context, id string, patch model.ItemPatch) (*UpdateResult, error) {
	oid, err := parseObjectID(id)
	if err != nil {
		return nil, err
	}

	set := bson.M{}
	if patch.Name != nil {
		set["name"] = *patch.Name
	}
	if patch.Price != nil {
		set["price"] = *patch.Price
	}
	if len(set) == 0 {
		return nil, ErrEmptyPatch
	}

	res, err := s.items.UpdateByID(ctx, oid, bson.M{"$set": set})
	if err != nil {
		return nil, fmt.Errorf("update item: %w", err)
	}

	if res.MatchedCount == 0 {
		return nil, ErrNotFound
	}

	return &UpdateResult{
		Matched:  res.MatchedCount,
		Modified: res.ModifiedCount,
	}, nil
}

// Delete removes an item from the store by its ID.
func (s *MongoStore) Delete(ctx context.Context, id string) error {
	oid, err := parseObjectID(id)
	if err != nil {
		return err
	}

	res, err := s.items.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}

	if res.DeletedCount == 0 {
		return ErrNotFound
	}

	return nil
}

// CreateUser inserts a new user and returns it with the generated ID.
// Username uniqueness is enforced by the registration handler's
// pre-check query, not by a store-level constraint.
func (s *MongoStore) CreateUser(ctx context.Context, user *model.User) (*model.User, error) {
	if user == nil {
		return nil, ErrNilUser
	}

	doc := userDoc{
		Username:     user.Username,
		PasswordHash: user.PasswordHash,
		CreatedAt:    time.Now().UTC(),
	}

	res, err := s.users.InsertOne(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return nil, fmt.Errorf("create user: unexpected inserted id type %T", res.InsertedID)
	}
	doc.ID = oid

	return doc.toModel(), nil
}

// UserByUsername retrieves a user by username.
func (s *MongoStore) UserByUsername(ctx context.Context, username string) (*model.User, error) {
	var doc userDoc
	if err := s.users.FindOne(ctx, bson.M{"username": username}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	return doc.toModel(), nil
}

// Ping verifies the connection is still healthy.
func (s *MongoStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("ping document store: %w", err)
	}
	return nil
}

// Close disconnects from the database.
func (s *MongoStore) Close(ctx context.Context) error {
	if err := s.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("disconnect document store: %w", err)
	}
	return nil
}
