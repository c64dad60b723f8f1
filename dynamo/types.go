package dynamo

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// Record is the open item shape stored in the table. Values may be
// strings, numbers, booleans, nested maps or slices; the adapter never
// constrains fields beyond the key fields.
type Record map[string]any

// Key addresses one record. Only the schema's partition and sort fields
// are read from it; anything else is ignored.
type Key map[string]any

// Patch pairs a key with the attributes to change on that record.
type Patch struct {
	Keys    Key
	Updates Record
}

// Default field names, matching the table layout this adapter grew up
// with: a generic id/sk pair with a GSI keyed on sk.
const (
	DefaultPartitionField = "id"
	DefaultSortField      = "sk"
	DefaultIndexName      = "gsiBySk"
)

// KeySchema names the table and the fields that address records in it.
// It is fixed once the adapter is built.
type KeySchema struct {
	TableName      string `env:"DYNAMO_TABLE_NAME"`
	PartitionField string `env:"DYNAMO_PARTITION_FIELD"`
	SortField      string `env:"DYNAMO_SORT_FIELD"`
	IndexName      string `env:"DYNAMO_INDEX_NAME"`
}

func (s KeySchema) withDefaults() KeySchema {
	if s.PartitionField == "" {
		s.PartitionField = DefaultPartitionField
	}
	if s.SortField == "" {
		s.SortField = DefaultSortField
	}
	if s.IndexName == "" {
		s.IndexName = DefaultIndexName
	}
	return s
}

func (s KeySchema) keyFields() [2]string {
	return [2]string{s.PartitionField, s.SortField}
}

// Clock supplies the current time for timestamp bookkeeping. Tests swap
// it for a fixed instant.
type Clock func() time.Time

// DefaultClock reads the wall clock in UTC.
func DefaultClock() time.Time {
	return time.Now().UTC()
}

// DynamoDBClient is the slice of the SDK client the adapter needs. The
// concrete *dynamodb.Client satisfies it, and so do test doubles like
// MockClient or memdb.Client.
type DynamoDBClient interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
	BatchGetItem(ctx context.Context, params *dynamodb.BatchGetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchGetItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}
