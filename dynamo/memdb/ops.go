package memdb

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Batch limits enforced by the hosted service. Oversized requests fail
// here too so callers cannot rely on behavior the real backend rejects.
const (
	maxBatchWrite = 25
	maxBatchGet   = 100
)

// GetItem returns the stored item for a key, or an output with a nil
// Item when nothing is stored. Reads are always consistent in memory,
// so ConsistentRead is accepted and ignored.
func (c *Client) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	if params == nil || params.Key == nil {
		return nil, fmt.Errorf("memdb: key is required")
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, err := c.lookup(params.TableName)
	if err != nil {
		return nil, err
	}
	pk, sk, err := t.keyOf(params.Key)
	if err != nil {
		return nil, err
	}
	doc, found := t.tree.Get(&document{pk: pk, sk: sk})
	if !found {
		return &dynamodb.GetItemOutput{}, nil
	}
	return &dynamodb.GetItemOutput{Item: copyItem(doc.item)}, nil
}

// PutItem stores an item, replacing any previous one under the same key.
func (c *Client) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	if params == nil || params.Item == nil {
		return nil, fmt.Errorf("memdb: item is required")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	t, err := c.lookup(params.TableName)
	if err != nil {
		return nil, err
	}
	old, err := t.put(params.Item)
	if err != nil {
		return nil, err
	}
	out := &dynamodb.PutItemOutput{}
	if params.ReturnValues == types.ReturnValueAllOld && old != nil {
		out.Attributes = copyItem(old)
	}
	return out, nil
}

// DeleteItem removes an item. Deleting an absent key is not an error.
func (c *Client) DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	if params == nil || params.Key == nil {
		return nil, fmt.Errorf("memdb: key is required")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	t, err := c.lookup(params.TableName)
	if err != nil {
		return nil, err
	}
	old, err := t.remove(params.Key)
	if err != nil {
		return nil, err
	}
	out := &dynamodb.DeleteItemOutput{}
	if params.ReturnValues == types.ReturnValueAllOld && old != nil {
		out.Attributes = copyItem(old)
	}
	return out, nil
}

// UpdateItem applies a SET expression to the stored item. Like the
// hosted service, an update against an absent key creates the item from
// the request key plus the assigned fields.
func (c *Client) UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	if params == nil || params.Key == nil {
		return nil, fmt.Errorf("memdb: key is required")
	}
	if params.UpdateExpression == nil {
		return nil, fmt.Errorf("memdb: update expression is required")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	t, err := c.lookup(params.TableName)
	if err != nil {
		return nil, err
	}
	pk, sk, err := t.keyOf(params.Key)
	if err != nil {
		return nil, err
	}

	updated := make(map[string]types.AttributeValue, len(params.Key))
	old, found := t.tree.Get(&document{pk: pk, sk: sk})
	if found {
		updated = copyItem(old.item)
	}
	// Upsert semantics: the request key seeds the item when absent.
	for field, value := range params.Key {
		updated[field] = value
	}
	if err := applyUpdate(*params.UpdateExpression, params.ExpressionAttributeNames, params.ExpressionAttributeValues, updated); err != nil {
		return nil, err
	}
	newPk, newSk, err := t.keyOf(updated)
	if err != nil {
		return nil, err
	}
	if !avEqual(newPk, pk) || !avEqual(newSk, sk) {
		return nil, fmt.Errorf("memdb: update expression may not change key attributes")
	}
	t.tree.ReplaceOrInsert(&document{pk: pk, sk: sk, item: updated})

	out := &dynamodb.UpdateItemOutput{}
	switch params.ReturnValues {
	case types.ReturnValueAllNew:
		out.Attributes = copyItem(updated)
	case types.ReturnValueAllOld:
		if found {
			out.Attributes = copyItem(old.item)
		}
	case types.ReturnValueNone, "":
	default:
		return nil, fmt.Errorf("memdb: return values %q are not supported", params.ReturnValues)
	}
	return out, nil
}

// BatchWriteItem dispatches put and delete requests per table. Requests
// never come back unprocessed; the output carries an empty map so
// callers that inspect it see the same shape the service returns.
func (c *Client) BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	if params == nil || params.RequestItems == nil {
		return nil, fmt.Errorf("memdb: request items are required")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for name, writes := range params.RequestItems {
		t, err := c.lookup(&name)
		if err != nil {
			return nil, err
		}
		if len(writes) > maxBatchWrite {
			return nil, fmt.Errorf("memdb: batch write for table %q has %d requests, the limit is %d", name, len(writes), maxBatchWrite)
		}
		for _, write := range writes {
			switch {
			case write.PutRequest != nil:
				if _, err := t.put(write.PutRequest.Item); err != nil {
					return nil, err
				}
			case write.DeleteRequest != nil:
				if _, err := t.remove(write.DeleteRequest.Key); err != nil {
					return nil, err
				}
			default:
				return nil, fmt.Errorf("memdb: write request must carry a put or a delete")
			}
		}
	}
	return &dynamodb.BatchWriteItemOutput{UnprocessedItems: map[string][]types.WriteRequest{}}, nil
}

// BatchGetItem looks up each requested key. Absent keys are simply
// omitted from the responses, matching the service contract.
func (c *Client) BatchGetItem(ctx context.Context, params *dynamodb.BatchGetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchGetItemOutput, error) {
	if params == nil || params.RequestItems == nil {
		return nil, fmt.Errorf("memdb: request items are required")
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := &dynamodb.BatchGetItemOutput{
		Responses:       make(map[string][]map[string]types.AttributeValue),
		UnprocessedKeys: make(map[string]types.KeysAndAttributes),
	}
	for name, req := range params.RequestItems {
		t, err := c.lookup(&name)
		if err != nil {
			return nil, err
		}
		if len(req.Keys) > maxBatchGet {
			return nil, fmt.Errorf("memdb: batch get for table %q has %d keys, the limit is %d", name, len(req.Keys), maxBatchGet)
		}
		for _, key := range req.Keys {
			pk, sk, err := t.keyOf(key)
			if err != nil {
				return nil, err
			}
			if doc, found := t.tree.Get(&document{pk: pk, sk: sk}); found {
				out.Responses[name] = append(out.Responses[name], copyItem(doc.item))
			}
		}
	}
	return out, nil
}

func (t *memTable) put(item map[string]types.AttributeValue) (map[string]types.AttributeValue, error) {
	pk, sk, err := t.keyOf(item)
	if err != nil {
		return nil, err
	}
	old, hadOld := t.tree.ReplaceOrInsert(&document{pk: pk, sk: sk, item: copyItem(item)})
	if !hadOld {
		return nil, nil
	}
	return old.item, nil
}

func (t *memTable) remove(key map[string]types.AttributeValue) (map[string]types.AttributeValue, error) {
	pk, sk, err := t.keyOf(key)
	if err != nil {
		return nil, err
	}
	old, removed := t.tree.Delete(&document{pk: pk, sk: sk})
	if !removed {
		return nil, nil
	}
	return old.item, nil
}
