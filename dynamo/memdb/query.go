package memdb

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Query evaluates a single-equality key condition, either against the
// table's partition key or against a global secondary index. Results
// come back in primary-key order, paginated when PageSize or Limit
// apply.
func (c *Client) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	if params == nil {
		return nil, fmt.Errorf("memdb: params is required")
	}
	if params.KeyConditionExpression == nil {
		return nil, fmt.Errorf("memdb: key condition expression is required")
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, err := c.lookup(params.TableName)
	if err != nil {
		return nil, err
	}
	field, want, err := parseKeyEqual(*params.KeyConditionExpression, params.ExpressionAttributeNames, params.ExpressionAttributeValues)
	if err != nil {
		return nil, err
	}
	if idxName := aws.ToString(params.IndexName); idxName != "" {
		idx, err := t.index(idxName)
		if err != nil {
			return nil, err
		}
		if field != idx.KeyField {
			return nil, fmt.Errorf("memdb: key condition field %q does not match index key %q", field, idx.KeyField)
		}
	} else if field != t.def.PartitionField {
		return nil, fmt.Errorf("memdb: key condition field %q does not match partition key %q", field, t.def.PartitionField)
	}

	match := func(item map[string]types.AttributeValue) bool {
		v, ok := item[field]
		return ok && avEqual(v, want)
	}
	items, last, err := t.collect(match, params.ExclusiveStartKey, c.pageLimit(params.Limit))
	if err != nil {
		return nil, err
	}
	return &dynamodb.QueryOutput{
		Items:            items,
		Count:            int32(len(items)),
		ScannedCount:     int32(len(items)),
		LastEvaluatedKey: last,
	}, nil
}

// Scan walks the whole table in primary-key order. Scanning an index
// restricts the walk to items that carry the index key field.
func (c *Client) Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	if params == nil {
		return nil, fmt.Errorf("memdb: params is required")
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, err := c.lookup(params.TableName)
	if err != nil {
		return nil, err
	}
	var match func(map[string]types.AttributeValue) bool
	if idxName := aws.ToString(params.IndexName); idxName != "" {
		idx, err := t.index(idxName)
		if err != nil {
			return nil, err
		}
		match = func(item map[string]types.AttributeValue) bool {
			_, ok := item[idx.KeyField]
			return ok
		}
	}
	items, last, err := t.collect(match, params.ExclusiveStartKey, c.pageLimit(params.Limit))
	if err != nil {
		return nil, err
	}
	return &dynamodb.ScanOutput{
		Items:            items,
		Count:            int32(len(items)),
		ScannedCount:     int32(len(items)),
		LastEvaluatedKey: last,
	}, nil
}

// collect walks the tree in order, keeping items the match function
// accepts. A positive limit caps the page; when another matching item
// remains beyond it, the returned cursor points at the last item kept.
func (t *memTable) collect(match func(map[string]types.AttributeValue) bool, start map[string]types.AttributeValue, limit int) ([]map[string]types.AttributeValue, map[string]types.AttributeValue, error) {
	var (
		items []map[string]types.AttributeValue
		last  map[string]types.AttributeValue
	)
	visit := func(doc *document) bool {
		if match != nil && !match(doc.item) {
			return true
		}
		if limit > 0 && len(items) == limit {
			last = t.keyAttrs(items[len(items)-1])
			return false
		}
		items = append(items, copyItem(doc.item))
		return true
	}
	if start == nil {
		t.tree.Ascend(visit)
		return items, last, nil
	}
	pk, sk, err := t.keyOf(start)
	if err != nil {
		return nil, nil, fmt.Errorf("memdb: invalid exclusive start key: %w", err)
	}
	pivot := &document{pk: pk, sk: sk}
	t.tree.AscendGreaterOrEqual(pivot, func(doc *document) bool {
		if !docLess(pivot, doc) && !docLess(doc, pivot) {
			// The start key itself is exclusive.
			return true
		}
		return visit(doc)
	})
	return items, last, nil
}

func (c *Client) pageLimit(limit *int32) int {
	n := c.PageSize
	if limit != nil && *limit > 0 && (n == 0 || int(*limit) < n) {
		n = int(*limit)
	}
	return n
}
