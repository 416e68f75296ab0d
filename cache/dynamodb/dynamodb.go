// Package dynamodb provides a cache backend on Amazon DynamoDB.
package dynamodb

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/johtso/http-caching/cache"
)

// Config defines the configuration of the DynamoDB backend.
type Config struct {
	// Table is the DynamoDB table name. The table's partition key must
	// be the string attribute "key".
	Table string
	// ItemExpiration, when positive, stamps an "expired_at" TTL
	// attribute so DynamoDB can evict old entries on its own. This is
	// independent of HTTP freshness, which the policy layer governs.
	ItemExpiration time.Duration
}

// Cache stores serialized entries as DynamoDB items.
type Cache struct {
	client     *dynamodb.Client
	table      string
	expiration time.Duration
	now        func() time.Time
}

type item struct {
	Key       string `dynamodbav:"key"`
	Data      []byte `dynamodbav:"data"`
	UpdatedAt int64  `dynamodbav:"updated_at"`
	ExpiredAt int64  `dynamodbav:"expired_at,omitempty"`
}

// New creates a DynamoDB-backed cache using the given client.
func New(client *dynamodb.Client, config Config) *Cache {
	return &Cache{
		client:     client,
		table:      config.Table,
		expiration: config.ItemExpiration,
		now:        time.Now,
	}
}

// NewFromDefaultConfig creates a cache with a client built from the
// default AWS config chain (environment, shared config, instance role).
func NewFromDefaultConfig(ctx context.Context, config Config) (*Cache, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}
	return New(dynamodb.NewFromConfig(awsCfg), config), nil
}

func (c *Cache) Get(ctx context.Context, key string) (*cache.Entry, error) {
	keyAttr, err := attributevalue.Marshal(key)
	if err != nil {
		return nil, err
	}
	output, err := c.client.GetItem(ctx, &dynamodb.GetItemInput{
		Key:            map[string]types.AttributeValue{"key": keyAttr},
		ConsistentRead: aws.Bool(true),
		TableName:      aws.String(c.table),
	})
	if err != nil {
		return nil, err
	}
	if output.Item == nil {
		return nil, cache.ErrNotFound
	}
	var it item
	if err := attributevalue.UnmarshalMap(output.Item, &it); err != nil {
		return nil, err
	}
	return cache.DecodeEntry(it.Data)
}

func (c *Cache) Set(ctx context.Context, key string, entry *cache.Entry) error {
	data, err := cache.EncodeEntry(entry)
	if err != nil {
		return err
	}
	it := item{
		Key:       key,
		Data:      data,
		UpdatedAt: c.now().Unix(),
	}
	if c.expiration > 0 {
		it.ExpiredAt = c.now().Add(c.expiration).Unix()
	}
	attrs, err := attributevalue.MarshalMap(it)
	if err != nil {
		return err
	}
	_, err = c.client.PutItem(ctx, &dynamodb.PutItemInput{
		Item:      attrs,
		TableName: aws.String(c.table),
	})
	return err
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	keyAttr, err := attributevalue.Marshal(key)
	if err != nil {
		return err
	}
	_, err = c.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		Key:       map[string]types.AttributeValue{"key": keyAttr},
		TableName: aws.String(c.table),
	})
	return err
}
