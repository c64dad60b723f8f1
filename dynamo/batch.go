package dynamo

import (
	"context"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// CreateMany validates and stamps every record, then writes them in
// 25-item batches, one call after the next. All records in one call share
// the same timestamp instant. An empty slice returns without touching the
// backend.
func (a *Adapter) CreateMany(ctx context.Context, recs []Record) (_ []Record, err error) {
	defer a.done("create_many", time.Now(), &err)

	if err = a.schema.validateRecords(recs); err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, nil
	}

	now := a.clock()
	stamped := make([]Record, 0, len(recs))
	writes := make([]types.WriteRequest, 0, len(recs))
	for _, rec := range recs {
		st := stampMissing(rec, now)
		item, err := attributevalue.MarshalMap(st)
		if err != nil {
			return nil, err
		}
		stamped = append(stamped, st)
		writes = append(writes, types.WriteRequest{
			PutRequest: &types.PutRequest{Item: item},
		})
	}

	if err = a.writeBatches(ctx, "create_many", writes); err != nil {
		return nil, err
	}
	return stamped, nil
}

// FetchMany loads the given keys in 100-key batches. Keys that match
// nothing are simply absent from the result; order follows the backend's
// responses, not the input.
func (a *Adapter) FetchMany(ctx context.Context, keys []Key) (_ []Record, err error) {
	defer a.done("fetch_many", time.Now(), &err)

	normalized, err := a.schema.validateKeys(keys)
	if err != nil {
		return nil, err
	}
	if len(normalized) == 0 {
		return nil, nil
	}

	lookups := make([]map[string]types.AttributeValue, 0, len(normalized))
	for _, key := range normalized {
		av, err := attributevalue.MarshalMap(key)
		if err != nil {
			return nil, err
		}
		lookups = append(lookups, av)
	}

	var records []Record
	for _, batch := range chunk(lookups, MaxBatchGet) {
		out, err := a.client.BatchGetItem(ctx, &dynamodb.BatchGetItemInput{
			RequestItems: map[string]types.KeysAndAttributes{
				a.schema.TableName: {
					Keys:           batch,
					ConsistentRead: aws.Bool(true),
				},
			},
		})
		if err != nil {
			return nil, err
		}

		recs, err := unmarshalRecords(out.Responses[a.schema.TableName])
		if err != nil {
			return nil, err
		}
		records = append(records, recs...)

		if n := len(out.UnprocessedKeys[a.schema.TableName].Keys); n > 0 {
			a.rec.Unprocessed(a.schema.TableName, "fetch_many", n)
			a.log.Warn().Str("op", "fetch_many").Int("unprocessed", n).Msg("batch get left unprocessed keys")
		}
	}
	return records, nil
}

// DeleteMany removes records in 25-item batches, walked sequentially.
func (a *Adapter) DeleteMany(ctx context.Context, keys []Key) (err error) {
	defer a.done("delete_many", time.Now(), &err)

	normalized, err := a.schema.validateKeys(keys)
	if err != nil {
		return err
	}
	if len(normalized) == 0 {
		return nil
	}

	writes := make([]types.WriteRequest, 0, len(normalized))
	for _, key := range normalized {
		av, err := attributevalue.MarshalMap(key)
		if err != nil {
			return err
		}
		writes = append(writes, types.WriteRequest{
			DeleteRequest: &types.DeleteRequest{Key: av},
		})
	}
	return a.writeBatches(ctx, "delete_many", writes)
}

// PatchMany applies every patch concurrently, one PatchOne per element,
// and waits for all of them to settle. Results keep request order. Any
// failure fails the whole call; there are no partial results.
func (a *Adapter) PatchMany(ctx context.Context, patches []Patch) (_ []Record, err error) {
	defer a.done("patch_many", time.Now(), &err)

	// Reject bad keys up front so nothing runs on invalid input.
	for i, p := range patches {
		if _, verr := a.schema.ValidateKey(p.Keys); verr != nil {
			return nil, &BatchValidationError{Index: i, Err: verr}
		}
	}
	if len(patches) == 0 {
		return nil, nil
	}

	results := make([]Record, len(patches))
	errs := make([]error, len(patches))
	var wg sync.WaitGroup
	for i, p := range patches {
		wg.Add(1)
		go func(i int, p Patch) {
			defer wg.Done()
			results[i], errs[i] = a.PatchOne(ctx, p.Keys, p.Updates)
		}(i, p)
	}
	wg.Wait()

	for _, e := range errs {
		if e != nil {
			return nil, e
		}
	}
	return results, nil
}

// writeBatches walks write chunks sequentially. Items the backend hands
// back as unprocessed are counted and logged, never retried.
func (a *Adapter) writeBatches(ctx context.Context, op string, writes []types.WriteRequest) error {
	for _, batch := range chunk(writes, MaxBatchWrite) {
		out, err := a.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{
				a.schema.TableName: batch,
			},
		})
		if err != nil {
			return err
		}
		if n := len(out.UnprocessedItems[a.schema.TableName]); n > 0 {
			a.rec.Unprocessed(a.schema.TableName, op, n)
			a.log.Warn().Str("op", op).Int("unprocessed", n).Msg("batch write left unprocessed items")
		}
	}
	return nil
}
