package memdb

import (
	"context"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRecordsClient() *Client {
	return New(TableDef{
		Name: "records",
		Indexes: []IndexDef{
			{Name: "gsiBySk", KeyField: "sk"},
			{Name: "byStatus", KeyField: "status"},
		},
	})
}

func record(id, sk string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"id": &types.AttributeValueMemberS{Value: id},
		"sk": &types.AttributeValueMemberS{Value: sk},
	}
}

func mustPut(t *testing.T, c *Client, table string, item map[string]types.AttributeValue) {
	t.Helper()
	_, err := c.PutItem(context.Background(), &dynamodb.PutItemInput{
		TableName: aws.String(table),
		Item:      item,
	})
	require.NoError(t, err)
}

func itemIDs(items []map[string]types.AttributeValue) []string {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item["id"].(*types.AttributeValueMemberS).Value)
	}
	return ids
}

func TestItemRoundTrip(t *testing.T) {
	ctx := context.Background()
	client := newRecordsClient()
	mustPut(t, client, "records", record("a", "post"))

	t.Run("Get Returns Stored Item", func(t *testing.T) {
		out, err := client.GetItem(ctx, &dynamodb.GetItemInput{
			TableName: aws.String("records"),
			Key:       record("a", "post"),
		})
		require.NoError(t, err)
		assert.Equal(t, &types.AttributeValueMemberS{Value: "a"}, out.Item["id"])
	})

	t.Run("Get Misses With Nil Item", func(t *testing.T) {
		out, err := client.GetItem(ctx, &dynamodb.GetItemInput{
			TableName: aws.String("records"),
			Key:       record("nope", "post"),
		})
		require.NoError(t, err)
		assert.Nil(t, out.Item)
	})

	t.Run("Returned Items Are Copies", func(t *testing.T) {
		out, err := client.GetItem(ctx, &dynamodb.GetItemInput{
			TableName: aws.String("records"),
			Key:       record("a", "post"),
		})
		require.NoError(t, err)
		out.Item["tainted"] = &types.AttributeValueMemberS{Value: "x"}

		again, err := client.GetItem(ctx, &dynamodb.GetItemInput{
			TableName: aws.String("records"),
			Key:       record("a", "post"),
		})
		require.NoError(t, err)
		assert.NotContains(t, again.Item, "tainted")
	})

	t.Run("Put Returns Old Values On Request", func(t *testing.T) {
		item := record("a", "post")
		item["rev"] = &types.AttributeValueMemberN{Value: "2"}
		out, err := client.PutItem(ctx, &dynamodb.PutItemInput{
			TableName:    aws.String("records"),
			Item:         item,
			ReturnValues: types.ReturnValueAllOld,
		})
		require.NoError(t, err)
		require.NotNil(t, out.Attributes)
		assert.NotContains(t, out.Attributes, "rev")
	})

	t.Run("Delete Removes Item", func(t *testing.T) {
		_, err := client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName: aws.String("records"),
			Key:       record("a", "post"),
		})
		require.NoError(t, err)

		out, err := client.GetItem(ctx, &dynamodb.GetItemInput{
			TableName: aws.String("records"),
			Key:       record("a", "post"),
		})
		require.NoError(t, err)
		assert.Nil(t, out.Item)
	})

	t.Run("Unknown Table Fails", func(t *testing.T) {
		_, err := client.GetItem(ctx, &dynamodb.GetItemInput{
			TableName: aws.String("ghosts"),
			Key:       record("a", "post"),
		})
		var notFound *types.ResourceNotFoundException
		require.ErrorAs(t, err, &notFound)
	})

	t.Run("Malformed Key Fails", func(t *testing.T) {
		_, err := client.GetItem(ctx, &dynamodb.GetItemInput{
			TableName: aws.String("records"),
			Key: map[string]types.AttributeValue{
				"id": &types.AttributeValueMemberS{Value: "a"},
			},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), `missing key attribute "sk"`)
	})
}

func TestUpdateItem(t *testing.T) {
	ctx := context.Background()

	update := func(key map[string]types.AttributeValue, field, value string) *dynamodb.UpdateItemInput {
		return &dynamodb.UpdateItemInput{
			TableName:                 aws.String("records"),
			Key:                       key,
			UpdateExpression:          aws.String("SET #f = :v"),
			ExpressionAttributeNames:  map[string]string{"#f": field},
			ExpressionAttributeValues: map[string]types.AttributeValue{":v": &types.AttributeValueMemberS{Value: value}},
			ReturnValues:              types.ReturnValueAllNew,
		}
	}

	t.Run("Applies Set To Existing Item", func(t *testing.T) {
		client := newRecordsClient()
		item := record("a", "post")
		item["status"] = &types.AttributeValueMemberS{Value: "draft"}
		mustPut(t, client, "records", item)

		out, err := client.UpdateItem(ctx, update(record("a", "post"), "status", "published"))
		require.NoError(t, err)
		assert.Equal(t, &types.AttributeValueMemberS{Value: "published"}, out.Attributes["status"])
		assert.Equal(t, &types.AttributeValueMemberS{Value: "a"}, out.Attributes["id"])
	})

	t.Run("Creates Missing Item", func(t *testing.T) {
		client := newRecordsClient()
		out, err := client.UpdateItem(ctx, update(record("new", "post"), "status", "fresh"))
		require.NoError(t, err)
		assert.Equal(t, &types.AttributeValueMemberS{Value: "new"}, out.Attributes["id"])
		assert.Equal(t, &types.AttributeValueMemberS{Value: "post"}, out.Attributes["sk"])
		assert.Equal(t, &types.AttributeValueMemberS{Value: "fresh"}, out.Attributes["status"])

		got, err := client.GetItem(ctx, &dynamodb.GetItemInput{
			TableName: aws.String("records"),
			Key:       record("new", "post"),
		})
		require.NoError(t, err)
		require.NotNil(t, got.Item)
	})

	t.Run("Returns Old Values On Request", func(t *testing.T) {
		client := newRecordsClient()
		item := record("a", "post")
		item["status"] = &types.AttributeValueMemberS{Value: "draft"}
		mustPut(t, client, "records", item)

		in := update(record("a", "post"), "status", "published")
		in.ReturnValues = types.ReturnValueAllOld
		out, err := client.UpdateItem(ctx, in)
		require.NoError(t, err)
		assert.Equal(t, &types.AttributeValueMemberS{Value: "draft"}, out.Attributes["status"])
	})

	t.Run("Rejects Key Change", func(t *testing.T) {
		client := newRecordsClient()
		mustPut(t, client, "records", record("a", "post"))

		_, err := client.UpdateItem(ctx, update(record("a", "post"), "sk", "elsewhere"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "may not change key attributes")
	})

	t.Run("Rejects Unsupported Return Values", func(t *testing.T) {
		client := newRecordsClient()
		in := update(record("a", "post"), "status", "x")
		in.ReturnValues = types.ReturnValueUpdatedNew
		_, err := client.UpdateItem(ctx, in)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not supported")
	})
}

func TestQuery(t *testing.T) {
	ctx := context.Background()

	seed := func(client *Client) {
		for _, id := range []string{"a", "b", "c"} {
			mustPut(t, client, "records", record(id, "post"))
		}
		mustPut(t, client, "records", record("d", "draft"))
	}

	queryBySk := func(value string) *dynamodb.QueryInput {
		return &dynamodb.QueryInput{
			TableName:                 aws.String("records"),
			IndexName:                 aws.String("gsiBySk"),
			KeyConditionExpression:    aws.String("#0 = :0"),
			ExpressionAttributeNames:  map[string]string{"#0": "sk"},
			ExpressionAttributeValues: map[string]types.AttributeValue{":0": &types.AttributeValueMemberS{Value: value}},
		}
	}

	t.Run("Index Equality", func(t *testing.T) {
		client := newRecordsClient()
		seed(client)

		out, err := client.Query(ctx, queryBySk("post"))
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c"}, itemIDs(out.Items))
		assert.Nil(t, out.LastEvaluatedKey)
		assert.Equal(t, int32(3), out.Count)
	})

	t.Run("Paginates With PageSize", func(t *testing.T) {
		client := newRecordsClient()
		client.PageSize = 2
		seed(client)

		first, err := client.Query(ctx, queryBySk("post"))
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, itemIDs(first.Items))
		require.NotNil(t, first.LastEvaluatedKey)

		in := queryBySk("post")
		in.ExclusiveStartKey = first.LastEvaluatedKey
		second, err := client.Query(ctx, in)
		require.NoError(t, err)
		assert.Equal(t, []string{"c"}, itemIDs(second.Items))
		assert.Nil(t, second.LastEvaluatedKey)
	})

	t.Run("Exact Page Has No Cursor", func(t *testing.T) {
		client := newRecordsClient()
		client.PageSize = 3
		seed(client)

		out, err := client.Query(ctx, queryBySk("post"))
		require.NoError(t, err)
		assert.Len(t, out.Items, 3)
		assert.Nil(t, out.LastEvaluatedKey)
	})

	t.Run("Partition Key Without Index", func(t *testing.T) {
		client := newRecordsClient()
		seed(client)
		mustPut(t, client, "records", record("a", "comment"))

		out, err := client.Query(ctx, &dynamodb.QueryInput{
			TableName:                 aws.String("records"),
			KeyConditionExpression:    aws.String("#0 = :0"),
			ExpressionAttributeNames:  map[string]string{"#0": "id"},
			ExpressionAttributeValues: map[string]types.AttributeValue{":0": &types.AttributeValueMemberS{Value: "a"}},
		})
		require.NoError(t, err)
		require.Len(t, out.Items, 2)
		assert.Equal(t, &types.AttributeValueMemberS{Value: "comment"}, out.Items[0]["sk"])
		assert.Equal(t, &types.AttributeValueMemberS{Value: "post"}, out.Items[1]["sk"])
	})

	t.Run("Field Must Match Index Key", func(t *testing.T) {
		client := newRecordsClient()
		in := queryBySk("post")
		in.ExpressionAttributeNames = map[string]string{"#0": "id"}
		_, err := client.Query(ctx, in)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "does not match index key")
	})

	t.Run("Unknown Index Fails", func(t *testing.T) {
		client := newRecordsClient()
		in := queryBySk("post")
		in.IndexName = aws.String("nope")
		_, err := client.Query(ctx, in)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown index")
	})

	t.Run("Invalid Start Key Fails", func(t *testing.T) {
		client := newRecordsClient()
		seed(client)
		in := queryBySk("post")
		in.ExclusiveStartKey = map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: "a"},
		}
		_, err := client.Query(ctx, in)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid exclusive start key")
	})
}

func TestScan(t *testing.T) {
	ctx := context.Background()

	t.Run("Whole Table In Key Order", func(t *testing.T) {
		client := newRecordsClient()
		for _, id := range []string{"c", "a", "b"} {
			mustPut(t, client, "records", record(id, "post"))
		}
		out, err := client.Scan(ctx, &dynamodb.ScanInput{TableName: aws.String("records")})
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c"}, itemIDs(out.Items))
	})

	t.Run("Paginates With PageSize", func(t *testing.T) {
		client := newRecordsClient()
		client.PageSize = 2
		for _, id := range []string{"a", "b", "c", "d", "e"} {
			mustPut(t, client, "records", record(id, "post"))
		}

		var ids []string
		var cursor map[string]types.AttributeValue
		pages := 0
		for {
			out, err := client.Scan(ctx, &dynamodb.ScanInput{
				TableName:         aws.String("records"),
				ExclusiveStartKey: cursor,
			})
			require.NoError(t, err)
			ids = append(ids, itemIDs(out.Items)...)
			pages++
			if len(out.LastEvaluatedKey) == 0 {
				break
			}
			cursor = out.LastEvaluatedKey
		}
		assert.Equal(t, []string{"a", "b", "c", "d", "e"}, ids)
		assert.Equal(t, 3, pages)
	})

	t.Run("Index Scan Skips Sparse Items", func(t *testing.T) {
		client := newRecordsClient()
		flagged := record("a", "post")
		flagged["status"] = &types.AttributeValueMemberS{Value: "active"}
		mustPut(t, client, "records", flagged)
		mustPut(t, client, "records", record("b", "post"))

		out, err := client.Scan(ctx, &dynamodb.ScanInput{
			TableName: aws.String("records"),
			IndexName: aws.String("byStatus"),
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"a"}, itemIDs(out.Items))
	})

	t.Run("Numeric Sort Keys Order Numerically", func(t *testing.T) {
		client := New(TableDef{Name: "metrics", PartitionField: "id", SortField: "seq"})
		for _, seq := range []string{"2", "10", "1"} {
			mustPut(t, client, "metrics", map[string]types.AttributeValue{
				"id":  &types.AttributeValueMemberS{Value: "m"},
				"seq": &types.AttributeValueMemberN{Value: seq},
			})
		}
		out, err := client.Scan(ctx, &dynamodb.ScanInput{TableName: aws.String("metrics")})
		require.NoError(t, err)
		var seqs []string
		for _, item := range out.Items {
			seqs = append(seqs, item["seq"].(*types.AttributeValueMemberN).Value)
		}
		assert.Equal(t, []string{"1", "2", "10"}, seqs)
	})
}

func TestBatchWriteItem(t *testing.T) {
	ctx := context.Background()

	t.Run("Dispatches Puts And Deletes", func(t *testing.T) {
		client := newRecordsClient()
		mustPut(t, client, "records", record("gone", "post"))

		_, err := client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{
				"records": {
					{PutRequest: &types.PutRequest{Item: record("kept", "post")}},
					{DeleteRequest: &types.DeleteRequest{Key: record("gone", "post")}},
				},
			},
		})
		require.NoError(t, err)

		out, err := client.Scan(ctx, &dynamodb.ScanInput{TableName: aws.String("records")})
		require.NoError(t, err)
		assert.Equal(t, []string{"kept"}, itemIDs(out.Items))
	})

	t.Run("Enforces The Write Limit", func(t *testing.T) {
		client := newRecordsClient()
		writes := make([]types.WriteRequest, 26)
		for i := range writes {
			writes[i] = types.WriteRequest{
				PutRequest: &types.PutRequest{Item: record(fmt.Sprintf("r%02d", i), "post")},
			}
		}
		_, err := client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{"records": writes},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "limit is 25")
	})

	t.Run("Rejects Empty Write Requests", func(t *testing.T) {
		client := newRecordsClient()
		_, err := client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{"records": {{}}},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "put or a delete")
	})
}

func TestBatchGetItem(t *testing.T) {
	ctx := context.Background()

	t.Run("Omits Absent Keys", func(t *testing.T) {
		client := newRecordsClient()
		mustPut(t, client, "records", record("a", "post"))
		mustPut(t, client, "records", record("c", "post"))

		out, err := client.BatchGetItem(ctx, &dynamodb.BatchGetItemInput{
			RequestItems: map[string]types.KeysAndAttributes{
				"records": {Keys: []map[string]types.AttributeValue{
					record("a", "post"),
					record("b", "post"),
					record("c", "post"),
				}},
			},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "c"}, itemIDs(out.Responses["records"]))
		assert.Empty(t, out.UnprocessedKeys)
	})

	t.Run("Enforces The Read Limit", func(t *testing.T) {
		client := newRecordsClient()
		keys := make([]map[string]types.AttributeValue, 101)
		for i := range keys {
			keys[i] = record(fmt.Sprintf("r%03d", i), "post")
		}
		_, err := client.BatchGetItem(ctx, &dynamodb.BatchGetItemInput{
			RequestItems: map[string]types.KeysAndAttributes{"records": {Keys: keys}},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "limit is 100")
	})
}

func TestTableLifecycle(t *testing.T) {
	ctx := context.Background()
	client := New()

	createRecords := &dynamodb.CreateTableInput{
		TableName: aws.String("records"),
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("id"), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String("sk"), KeyType: types.KeyTypeRange},
		},
		GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{
			{
				IndexName: aws.String("gsiBySk"),
				KeySchema: []types.KeySchemaElement{
					{AttributeName: aws.String("sk"), KeyType: types.KeyTypeHash},
				},
			},
		},
	}

	t.Run("Create Then Describe", func(t *testing.T) {
		out, err := client.CreateTable(ctx, createRecords)
		require.NoError(t, err)
		assert.Equal(t, types.TableStatusActive, out.TableDescription.TableStatus)

		desc, err := client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String("records")})
		require.NoError(t, err)
		assert.Equal(t, types.TableStatusActive, desc.Table.TableStatus)
		require.Len(t, desc.Table.GlobalSecondaryIndexes, 1)
		assert.Equal(t, "gsiBySk", aws.ToString(desc.Table.GlobalSecondaryIndexes[0].IndexName))
	})

	t.Run("Duplicate Create Fails", func(t *testing.T) {
		_, err := client.CreateTable(ctx, createRecords)
		var inUse *types.ResourceInUseException
		require.ErrorAs(t, err, &inUse)
	})

	t.Run("List Is Sorted", func(t *testing.T) {
		_, err := client.CreateTable(ctx, &dynamodb.CreateTableInput{
			TableName: aws.String("archive"),
			KeySchema: []types.KeySchemaElement{
				{AttributeName: aws.String("id"), KeyType: types.KeyTypeHash},
				{AttributeName: aws.String("sk"), KeyType: types.KeyTypeRange},
			},
		})
		require.NoError(t, err)

		out, err := client.ListTables(ctx, &dynamodb.ListTablesInput{})
		require.NoError(t, err)
		assert.Equal(t, []string{"archive", "records"}, out.TableNames)
	})

	t.Run("Delete Then Describe Fails", func(t *testing.T) {
		_, err := client.DeleteTable(ctx, &dynamodb.DeleteTableInput{TableName: aws.String("archive")})
		require.NoError(t, err)

		_, err = client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String("archive")})
		var notFound *types.ResourceNotFoundException
		require.ErrorAs(t, err, &notFound)
	})

	t.Run("Hash Only Schema Fails", func(t *testing.T) {
		_, err := client.CreateTable(ctx, &dynamodb.CreateTableInput{
			TableName: aws.String("flat"),
			KeySchema: []types.KeySchemaElement{
				{AttributeName: aws.String("id"), KeyType: types.KeyTypeHash},
			},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "HASH and a RANGE key")
	})
}
