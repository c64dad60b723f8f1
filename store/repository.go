package store

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"

	"github.com/vitkuz/aws-dynamo-adapter/dynamo"
)

var (
	// ErrNotFound reports a get for a key with nothing stored under it.
	ErrNotFound = errors.New("store: item not found")
	// ErrInvalidInput reports missing key arguments.
	ErrInvalidInput = errors.New("store: invalid input")
)

// Repository converts between the caller's model type and the adapter's
// open-shape records. T must marshal to a DynamoDB item: a struct with
// dynamodbav tags or a map. Its methods are unexported; use a Service,
// which adds validation and hooks on top.
type Repository[T any] struct {
	adapter *dynamo.Adapter
}

// NewRepository wraps an adapter for the model type T.
func NewRepository[T any](adapter *dynamo.Adapter) *Repository[T] {
	return &Repository[T]{adapter: adapter}
}

func (r *Repository[T]) key(pk, sk any) dynamo.Key {
	schema := r.adapter.Schema()
	return dynamo.Key{
		schema.PartitionField: pk,
		schema.SortField:      sk,
	}
}

func (r *Repository[T]) create(ctx context.Context, item *T) (*T, error) {
	rec, err := toRecord(item)
	if err != nil {
		return nil, err
	}
	stored, err := r.adapter.CreateOne(ctx, rec)
	if err != nil {
		return nil, err
	}
	return fromRecord[T](stored)
}

func (r *Repository[T]) get(ctx context.Context, pk, sk any) (*T, error) {
	rec, err := r.adapter.FetchOne(ctx, r.key(pk, sk))
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrNotFound
	}
	return fromRecord[T](rec)
}

func (r *Repository[T]) replace(ctx context.Context, item *T) (*T, error) {
	rec, err := toRecord(item)
	if err != nil {
		return nil, err
	}
	stored, err := r.adapter.ReplaceOne(ctx, rec)
	if err != nil {
		return nil, err
	}
	return fromRecord[T](stored)
}

func (r *Repository[T]) patch(ctx context.Context, pk, sk any, updates dynamo.Record) (*T, error) {
	stored, err := r.adapter.PatchOne(ctx, r.key(pk, sk), updates)
	if err != nil {
		return nil, err
	}
	return fromRecord[T](stored)
}

func (r *Repository[T]) delete(ctx context.Context, pk, sk any) error {
	return r.adapter.DeleteOne(ctx, r.key(pk, sk))
}

func (r *Repository[T]) listBySort(ctx context.Context, value any) ([]T, error) {
	recs, err := r.adapter.FetchAllByIndexValue(ctx, value)
	if err != nil {
		return nil, err
	}
	return fromRecords[T](recs)
}

func (r *Repository[T]) listAll(ctx context.Context) ([]T, error) {
	recs, err := r.adapter.Fetcher().FetchAll(ctx)
	if err != nil {
		return nil, err
	}
	return fromRecords[T](recs)
}

// toRecord round-trips through attributevalue so dynamodbav tags decide
// the stored field names, the same rules the wire itself uses.
func toRecord(v any) (dynamo.Record, error) {
	avs, err := attributevalue.MarshalMap(v)
	if err != nil {
		return nil, err
	}
	var rec dynamo.Record
	if err := attributevalue.UnmarshalMap(avs, &rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func fromRecord[T any](rec dynamo.Record) (*T, error) {
	avs, err := attributevalue.MarshalMap(map[string]any(rec))
	if err != nil {
		return nil, err
	}
	out := new(T)
	if err := attributevalue.UnmarshalMap(avs, out); err != nil {
		return nil, err
	}
	return out, nil
}

func fromRecords[T any](recs []dynamo.Record) ([]T, error) {
	items := make([]T, 0, len(recs))
	for _, rec := range recs {
		item, err := fromRecord[T](rec)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, nil
}
