package dynamo

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Fetcher is a reusable read bound to an index and an optional sort
// value. With a value it queries the index; without one it degrades to a
// full-table scan. Either way the cursor loop is drained before results
// come back, callers never see a partial page.
type Fetcher struct {
	adapter   *Adapter
	indexName string
	sortValue any
	hasValue  bool
}

// Fetcher starts a fetch against the schema's configured index.
func (a *Adapter) Fetcher() *Fetcher {
	return &Fetcher{adapter: a, indexName: a.schema.IndexName}
}

// Index points the fetch at another index.
func (f *Fetcher) Index(name string) *Fetcher {
	f.indexName = name
	return f
}

// SortValue restricts the fetch to records whose sort field equals v.
func (f *Fetcher) SortValue(v any) *Fetcher {
	f.sortValue = v
	f.hasValue = true
	return f
}

// FetchAll runs the fetch and returns every matching record.
func (f *Fetcher) FetchAll(ctx context.Context) (_ []Record, err error) {
	defer f.adapter.done("fetch_all", time.Now(), &err)

	if !f.hasValue {
		return f.adapter.scanAll(ctx)
	}
	return f.adapter.queryIndex(ctx, f.indexName, f.sortValue)
}

// FetchAllByIndexValue returns every record whose sort field equals value,
// read through the schema's index across however many pages it takes.
func (a *Adapter) FetchAllByIndexValue(ctx context.Context, value any) (_ []Record, err error) {
	defer a.done("fetch_all_by_index", time.Now(), &err)
	return a.queryIndex(ctx, a.schema.IndexName, value)
}

func (a *Adapter) queryIndex(ctx context.Context, index string, value any) ([]Record, error) {
	if reason := checkKeyValue(value); reason != "" {
		return nil, &ValidationError{Field: a.schema.SortField, Reason: reason}
	}

	keyCond := expression.KeyEqual(expression.Key(a.schema.SortField), expression.Value(value))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, err
	}

	items, err := drainPages(ctx, func(ctx context.Context, cursor map[string]types.AttributeValue) ([]map[string]types.AttributeValue, map[string]types.AttributeValue, error) {
		out, err := a.client.Query(ctx, &dynamodb.QueryInput{
			TableName:                 aws.String(a.schema.TableName),
			IndexName:                 aws.String(index),
			KeyConditionExpression:    expr.KeyCondition(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
			ExclusiveStartKey:         cursor,
		})
		if err != nil {
			return nil, nil, err
		}
		return out.Items, out.LastEvaluatedKey, nil
	})
	if err != nil {
		return nil, err
	}
	return unmarshalRecords(items)
}

func (a *Adapter) scanAll(ctx context.Context) ([]Record, error) {
	items, err := drainPages(ctx, func(ctx context.Context, cursor map[string]types.AttributeValue) ([]map[string]types.AttributeValue, map[string]types.AttributeValue, error) {
		out, err := a.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:         aws.String(a.schema.TableName),
			ExclusiveStartKey: cursor,
		})
		if err != nil {
			return nil, nil, err
		}
		return out.Items, out.LastEvaluatedKey, nil
	})
	if err != nil {
		return nil, err
	}
	return unmarshalRecords(items)
}

// pageFunc fetches one page and hands back the next cursor, nil when the
// backend is done.
type pageFunc func(ctx context.Context, cursor map[string]types.AttributeValue) ([]map[string]types.AttributeValue, map[string]types.AttributeValue, error)

// drainPages walks the cursor loop until the backend stops handing one
// back, accumulating every page in order.
func drainPages(ctx context.Context, fetch pageFunc) ([]map[string]types.AttributeValue, error) {
	var (
		items  []map[string]types.AttributeValue
		cursor map[string]types.AttributeValue
	)
	for {
		page, next, err := fetch(ctx, cursor)
		if err != nil {
			return nil, err
		}
		items = append(items, page...)
		if len(next) == 0 {
			return items, nil
		}
		cursor = next
	}
}
