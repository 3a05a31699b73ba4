package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"stockroom/internal/model"
)

// DynamoOptions configures the DynamoDB backend. Endpoint overrides the
// SDK endpoint resolution for dynamodb-local setups.
type DynamoOptions struct {
	Region     string
	Endpoint   string
	ItemsTable string
	UsersTable string
}

// DynamoStore implements Store on top of DynamoDB. Items live in a table
// keyed by a UUID id; users live in a table keyed by username, which
// makes the duplicate-username check a conditional put.
type DynamoStore struct {
	client     *dynamodb.Client
	itemsTable string
	usersTable string
}

// dynamoItemRecord is the persisted shape of an item.
type dynamoItemRecord struct {
	ID        string    `dynamodbav:"id"`
	Name      string    `dynamodbav:"name"`
	Price     float64   `dynamodbav:"price"`
	CreatedAt time.Time `dynamodbav:"created_at"`
}

// dynamoUserRecord is the persisted shape of a user.
type dynamoUserRecord struct {
	Username     string    `dynamodbav:"username"`
	ID           string    `dynamodbav:"id"`
	PasswordHash string    `dynamodbav:"password_hash"`
	CreatedAt    time.Time `dynamodbav:"created_at"`
}

func (r *dynamoItemRecord) toModel() *model.Item {
	return &model.Item{
		ID:        r.ID,
		Name:      r.Name,
		Price:     r.Price,
		CreatedAt: r.CreatedAt,
	}
}

func (r *dynamoUserRecord) toModel() *model.User {
	return &model.User{
		ID:           r.ID,
		Username:     r.Username,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt,
	}
}

// ConnectDynamo builds a DynamoDB client from the default AWS config
// chain and verifies the items table is reachable. The caller treats any
// error as fatal.
func ConnectDynamo(ctx context.Context, opts DynamoOptions) (*DynamoStore, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS configuration: %w", err)
	}

	client := dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
	})

	s := &DynamoStore{
		client:     client,
		itemsTable: opts.ItemsTable,
		usersTable: opts.UsersTable,
	}

	if err := s.Ping(ctx); err != nil {
		return nil, err
	}

	return s, nil
}

// parseUUID validates the store's identifier format before any I/O.
func parseUUID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrInvalidID
	}
	return nil
}

// itemKey builds the primary key for the items table.
func (s *DynamoStore) itemKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"id": &types.AttributeValueMemberS{Value: id},
	}
}

// List returns all items from the store.
func (s *DynamoStore) List(ctx context.Context) ([]model.Item, error) {
	out, err := s.client.Scan(ctx, &dynamodb.ScanInput{
		TableName: aws.String(s.itemsTable),
	})
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}

	var records []dynamoItemRecord
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &records); err != nil {
		return nil, fmt.Errorf("list items: decode: %w", err)
	}

	items := make([]model.Item, 0, len(records))
	for i := range records {
		items = append(items, *records[i].toModel())
	}

	return items, nil
}

// Get retrieves an item by its ID.
func (s *DynamoStore) Get(ctx context.Context, id string) (*model.Item, error) {
	if err := parseUUID(id); err != nil {
		return nil, err
	}

	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.itemsTable),
		Key:       s.itemKey(id),
	})
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, ErrNotFound
	}

	var record dynamoItemRecord
	if err := attributevalue.UnmarshalMap(out.Item, &record); err != nil {
		return nil, fmt.Errorf("get item: decode: %w", err)
	}

	return record.toModel(), nil
}

// Create inserts a new item and returns it with the generated ID.
func (s *DynamoStore) Create(ctx context.Context, item *model.Item) (*model.Item, error) {
	if item == nil {
		return nil, ErrNilItem
	}

	record := dynamoItemRecord{
		ID:        uuid.New().String(),
		Name:      item.Name,
		Price:     item.Price,
		CreatedAt: time.Now().UTC(),
	}

	av, err := attributevalue.MarshalMap(record)
	if err != nil {
		return nil, fmt.Errorf("create item: encode: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.itemsTable),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(id)"),
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return nil, ErrAlreadyExists
		}
		return nil, fmt.Errorf("create item: %w", err)
	}

	return record.toModel(), nil
}

// Update applies the patch through an update expression built from only
// the provided fields. The old item image (ALL_OLD) is compared against
// the patch to report whether anything actually changed.
func (s *DynamoStore) Update(ctx context.Context, id string, patch model.ItemPatch) (*UpdateResult, error) {
	if err := parseUUID(id); err != nil {
		return nil, err
	}

	// "name" is a DynamoDB reserved word, so both attributes go through
	// expression name placeholders.
	exprNames := map[string]string{}
	exprValues := map[string]types.AttributeValue{}
	var setClauses []string

	if patch.Name != nil {
		exprNames["#name"] = "name"
		exprValues[":name"] = &types.AttributeValueMemberS{Value: *patch.Name}
		setClauses = append(setClauses, "#name = :name")
	}
	if patch.Price != nil {
		exprNames["#price"] = "price"
		exprValues[":price"] = &types.AttributeValueMemberN{
			Value: strconv.FormatFloat(*patch.Price, 'f', -1, 64),
		}
		setClauses = append(setClauses, "#price = :price")
	}
	if len(setClauses) == 0 {
		return nil, ErrEmptyPatch
	}

	out, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.itemsTable),
		Key:                       s.itemKey(id),
		UpdateExpression:          aws.String("SET " + strings.Join(setClauses, ", ")),
		ConditionExpression:       aws.String("attribute_exists(id)"),
		ExpressionAttributeNames:  exprNames,
		ExpressionAttributeValues: exprValues,
		ReturnValues:              types.ReturnValueAllOld,
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update item: %w", err)
	}

	var old dynamoItemRecord
	if err := attributevalue.UnmarshalMap(out.Attributes, &old); err != nil {
		return nil, fmt.Errorf("update item: decode old image: %w", err)
	}

	result := &UpdateResult{Matched: 1}
	if (patch.Name != nil && *patch.Name != old.Name) ||
		(patch.Price != nil && *patch.Price != old.Price) {
		result.Modified = 1
	}

	return result, nil
}

// Delete removes an item from the store by its ID.
func (s *DynamoStore) Delete(ctx context.Context, id string) error {
	if err := parseUUID(id); err != nil {
		return err
	}

	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(s.itemsTable),
		Key:                 s.itemKey(id),
		ConditionExpression: aws.String("attribute_exists(id)"),
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return ErrNotFound
		}
		return fmt.Errorf("delete item: %w", err)
	}

	return nil
}

// CreateUser inserts a new user. The conditional put doubles as a
// uniqueness guard because the users table is keyed by username.
func (s *DynamoStore) CreateUser(ctx context.Context, user *model.User) (*model.User, error) {
	if user == nil {
		return nil, ErrNilUser
	}

	record := dynamoUserRecord{
		Username:     user.Username,
		ID:           uuid.New().String(),
		PasswordHash: user.PasswordHash,
		CreatedAt:    time.Now().UTC(),
	}

	av, err := attributevalue.MarshalMap(record)
	if err != nil {
		return nil, fmt.Errorf("create user: encode: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.usersTable),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(username)"),
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return nil, ErrAlreadyExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	return record.toModel(), nil
}

// UserByUsername retrieves a user by username.
func (s *DynamoStore) UserByUsername(ctx context.Context, username string) (*model.User, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.usersTable),
		Key: map[string]types.AttributeValue{
			"username": &types.AttributeValueMemberS{Value: username},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, ErrNotFound
	}

	var record dynamoUserRecord
	if err := attributevalue.UnmarshalMap(out.Item, &record); err != nil {
		return nil, fmt.Errorf("get user: decode: %w", err)
	}

	return record.toModel(), nil
}

// Ping verifies the items table is reachable.
func (s *DynamoStore) Ping(ctx context.Context) error {
	_, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(s.itemsTable),
	})
	if err != nil {
		return fmt.Errorf("describe items table: %w", err)
	}
	return nil
}

// Close is a no-op: the DynamoDB client holds no persistent connection.
func (s *DynamoStore) Close(_ context.Context) error {
	return nil
}
