package dynamo

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// CreateOne validates rec, fills missing timestamps and writes it. The
// returned record is the stored shape, timestamps included. An existing
// record under the same key is overwritten.
func (a *Adapter) CreateOne(ctx context.Context, rec Record) (_ Record, err error) {
	defer a.done("create_one", time.Now(), &err)

	if err = a.schema.ValidateRecord(rec); err != nil {
		return nil, err
	}
	stamped := stampMissing(rec, a.clock())
	item, err := attributevalue.MarshalMap(stamped)
	if err != nil {
		return nil, err
	}

	_, err = a.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(a.schema.TableName),
		Item:      item,
	})
	if err != nil {
		return nil, err
	}
	return stamped, nil
}

// FetchOne loads one record by key. A record that does not exist is not
// an error: both return values are nil.
func (a *Adapter) FetchOne(ctx context.Context, keys Key) (_ Record, err error) {
	defer a.done("fetch_one", time.Now(), &err)

	key, err := a.schema.ValidateKey(keys)
	if err != nil {
		return nil, err
	}
	keyAV, err := attributevalue.MarshalMap(key)
	if err != nil {
		return nil, err
	}

	out, err := a.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(a.schema.TableName),
		Key:            keyAV,
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, nil
	}
	return unmarshalRecord(out.Item)
}

// ReplaceOne overwrites the stored record with rec. updatedAt is
// refreshed; createdAt is written exactly as supplied.
func (a *Adapter) ReplaceOne(ctx context.Context, rec Record) (_ Record, err error) {
	defer a.done("replace_one", time.Now(), &err)

	if err = a.schema.ValidateRecord(rec); err != nil {
		return nil, err
	}
	stamped := stampUpdated(rec, a.clock())
	item, err := attributevalue.MarshalMap(stamped)
	if err != nil {
		return nil, err
	}

	_, err = a.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(a.schema.TableName),
		Item:      item,
	})
	if err != nil {
		return nil, err
	}
	return stamped, nil
}

// PatchOne applies a partial update and returns the record as stored
// afterwards. Key fields in updates are dropped, a patch can never move a
// record; updatedAt is always refreshed. Like the UpdateItem call under
// it, patching a missing key creates the record.
func (a *Adapter) PatchOne(ctx context.Context, keys Key, updates Record) (_ Record, err error) {
	defer a.done("patch_one", time.Now(), &err)

	key, err := a.schema.ValidateKey(keys)
	if err != nil {
		return nil, err
	}
	keyAV, err := attributevalue.MarshalMap(key)
	if err != nil {
		return nil, err
	}
	expr, names, values, err := a.buildPatch(updates)
	if err != nil {
		return nil, err
	}

	out, err := a.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(a.schema.TableName),
		Key:                       keyAV,
		UpdateExpression:          aws.String(expr),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		return nil, err
	}
	return unmarshalRecord(out.Attributes)
}

// buildPatch assembles the SET expression for a patch: one numbered
// placeholder pair per attribute, plus the refreshed updatedAt. Fields
// are sorted so the expression is stable for a given payload.
func (a *Adapter) buildPatch(updates Record) (string, map[string]string, map[string]types.AttributeValue, error) {
	filtered := a.schema.filterUpdates(updates)
	fields := make([]string, 0, len(filtered))
	for field := range filtered {
		if field == FieldUpdatedAt {
			continue
		}
		fields = append(fields, field)
	}
	sort.Strings(fields)

	names := make(map[string]string, len(fields)+1)
	values := make(map[string]types.AttributeValue, len(fields)+1)
	clauses := make([]string, 0, len(fields)+1)

	for i, field := range fields {
		av, err := attributevalue.Marshal(filtered[field])
		if err != nil {
			return "", nil, nil, err
		}
		name := fmt.Sprintf("#u%d", i)
		value := fmt.Sprintf(":u%d", i)
		names[name] = field
		values[value] = av
		clauses = append(clauses, name+" = "+value)
	}

	ts, err := attributevalue.Marshal(formatTimestamp(a.clock()))
	if err != nil {
		return "", nil, nil, err
	}
	names["#updatedAt"] = FieldUpdatedAt
	values[":updatedAt"] = ts
	clauses = append(clauses, "#updatedAt = :updatedAt")

	return "SET " + strings.Join(clauses, ", "), names, values, nil
}

// DeleteOne removes a record. Deleting a key that does not exist is a
// quiet no-op.
func (a *Adapter) DeleteOne(ctx context.Context, keys Key) (err error) {
	defer a.done("delete_one", time.Now(), &err)

	key, err := a.schema.ValidateKey(keys)
	if err != nil {
		return err
	}
	keyAV, err := attributevalue.MarshalMap(key)
	if err != nil {
		return err
	}

	_, err = a.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(a.schema.TableName),
		Key:       keyAV,
	})
	return err
}
