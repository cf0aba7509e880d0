package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/ignite/mailmap-inbound/internal/config"
)

// DynamoStore is a DynamoDB-backed document store using a single table with
// PK = collection name and SK = document id.
type DynamoStore struct {
	client *dynamodb.Client
	table  string
}

// NewAWS creates the DynamoDB document store and the S3 object store from a
// single shared AWS configuration.
func NewAWS(ctx context.Context, cfg config.StorageConfig) (*DynamoStore, *S3Store, error) {
	var awsCfg aws.Config
	var err error

	if profile := cfg.GetAWSProfile(); profile != "" {
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(cfg.AWSRegion),
			awsconfig.WithSharedConfigProfile(profile),
		)
	} else {
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(cfg.AWSRegion),
		)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("loading AWS config: %w", err)
	}

	docs := &DynamoStore{
		client: dynamodb.NewFromConfig(awsCfg),
		table:  cfg.DynamoDBTable,
	}
	objects := &S3Store{
		client:    s3.NewFromConfig(awsCfg),
		bucket:    cfg.S3Bucket,
		region:    cfg.AWSRegion,
		cdnDomain: cfg.CDNDomain,
	}
	return docs, objects, nil
}

func (s *DynamoStore) key(collection, id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: collection},
		"SK": &types.AttributeValueMemberS{Value: id},
	}
}

// Get returns one document, or ErrNotFound.
func (s *DynamoStore) Get(ctx context.Context, collection, id string) (Document, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key:       s.key(collection, id),
	})
	if err != nil {
		return nil, fmt.Errorf("getting %s/%s from DynamoDB: %w", collection, id, err)
	}
	if result.Item == nil {
		return nil, ErrNotFound
	}

	var doc Document
	if err := attributevalue.UnmarshalMap(result.Item, &doc); err != nil {
		return nil, fmt.Errorf("unmarshaling %s/%s: %w", collection, id, err)
	}
	delete(doc, "PK")
	delete(doc, "SK")
	return doc, nil
}

// Create writes a new document under a generated id and returns the id.
func (s *DynamoStore) Create(ctx context.Context, collection string, doc Document) (string, error) {
	id := uuid.New().String()

	item, err := s.marshalItem(collection, id, doc)
	if err != nil {
		return "", err
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	})
	if err != nil {
		return "", fmt.Errorf("putting %s/%s to DynamoDB: %w", collection, id, err)
	}
	return id, nil
}

// Update merges partial fields into an existing document.
func (s *DynamoStore) Update(ctx context.Context, collection, id string, partial Document) error {
	if len(partial) == 0 {
		return nil
	}

	expr := "SET "
	names := make(map[string]string, len(partial))
	values := make(map[string]types.AttributeValue, len(partial))
	i := 0
	for field, value := range partial {
		av, err := attributevalue.Marshal(value)
		if err != nil {
			return fmt.Errorf("marshaling field %s: %w", field, err)
		}
		namePlaceholder := fmt.Sprintf("#f%d", i)
		valuePlaceholder := fmt.Sprintf(":v%d", i)
		if i > 0 {
			expr += ", "
		}
		expr += namePlaceholder + " = " + valuePlaceholder
		names[namePlaceholder] = field
		values[valuePlaceholder] = av
		i++
	}

	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.table),
		Key:                       s.key(collection, id),
		UpdateExpression:          aws.String(expr),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	})
	if err != nil {
		return fmt.Errorf("updating %s/%s in DynamoDB: %w", collection, id, err)
	}
	return nil
}

// Increment atomically adds delta to a numeric field.
func (s *DynamoStore) Increment(ctx context.Context, collection, id, field string, delta int64) error {
	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        aws.String(s.table),
		Key:              s.key(collection, id),
		UpdateExpression: aws.String("ADD #f :d"),
		ExpressionAttributeNames: map[string]string{
			"#f": field,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":d": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", delta)},
		},
	})
	if err != nil {
		return fmt.Errorf("incrementing %s on %s/%s: %w", field, collection, id, err)
	}
	return nil
}

// ConditionalIncrement adds delta only while the field is still below limit.
// ErrConditionFailed is returned when the counter already reached the limit,
// including when a concurrent request got there first.
func (s *DynamoStore) ConditionalIncrement(ctx context.Context, collection, id, field string, delta, limit int64) error {
	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(s.table),
		Key:                 s.key(collection, id),
		UpdateExpression:    aws.String("ADD #f :d"),
		ConditionExpression: aws.String("attribute_not_exists(#f) OR #f < :lim"),
		ExpressionAttributeNames: map[string]string{
			"#f": field,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":d":   &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", delta)},
			":lim": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", limit)},
		},
	})
	if err != nil {
		var conditionErr *types.ConditionalCheckFailedException
		if errors.As(err, &conditionErr) {
			return ErrConditionFailed
		}
		return fmt.Errorf("conditionally incrementing %s on %s/%s: %w", field, collection, id, err)
	}
	return nil
}

// BatchWrite puts every op through BatchWriteItem. DynamoDB limits one
// request to 25 items; ops are chunked accordingly.
func (s *DynamoStore) BatchWrite(ctx context.Context, ops []WriteOp) error {
	const chunkSize = 25

	for start := 0; start < len(ops); start += chunkSize {
		end := start + chunkSize
		if end > len(ops) {
			end = len(ops)
		}

		requests := make([]types.WriteRequest, 0, end-start)
		for _, op := range ops[start:end] {
			item, err := s.marshalItem(op.Collection, op.ID, op.Doc)
			if err != nil {
				return err
			}
			requests = append(requests, types.WriteRequest{
				PutRequest: &types.PutRequest{Item: item},
			})
		}

		_, err := s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{
				s.table: requests,
			},
		})
		if err != nil {
			return fmt.Errorf("batch writing %d items to DynamoDB: %w", end-start, err)
		}
	}
	return nil
}

func (s *DynamoStore) marshalItem(collection, id string, doc Document) (map[string]types.AttributeValue, error) {
	item, err := attributevalue.MarshalMap(doc)
	if err != nil {
		return nil, fmt.Errorf("marshaling %s/%s: %w", collection, id, err)
	}
	item["PK"] = &types.AttributeValueMemberS{Value: collection}
	item["SK"] = &types.AttributeValueMemberS{Value: id}
	return item, nil
}
