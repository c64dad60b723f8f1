// Package dynamo provides a schema-light access layer over a single AWS
// DynamoDB table (Go SDK v2).
//
// Overview:
// Records are open maps (Record) addressed by a partition/sort key pair
// (Key). The Adapter exposes single-record verbs (CreateOne, FetchOne,
// ReplaceOne, PatchOne, DeleteOne), batch verbs that hide the backend's
// chunk limits (CreateMany, FetchMany, DeleteMany, PatchMany) and index
// reads that drain pagination before returning (FetchAllByIndexValue,
// Fetcher).
//
// Writes keep createdAt/updatedAt bookkeeping: creates fill missing
// timestamps, replaces and patches refresh updatedAt. Timestamps are
// ISO-8601 with millisecond precision, always UTC.
//
// Key fields are validated locally before any network call; everything
// else about a record's shape is the caller's business. A fetch that finds
// nothing returns (nil, nil), not an error. Backend errors come back
// exactly as the SDK produced them.
//
// Basic usage:
//
//	adapter, err := dynamo.New(ctx, dynamo.Config{TableName: "records"})
//	if err != nil {
//		return err
//	}
//
//	stored, err := adapter.CreateOne(ctx, dynamo.Record{
//		"id": "item-1",
//		"sk": "products",
//		"name": "Keyboard",
//	})
//
//	rec, err := adapter.FetchOne(ctx, dynamo.Key{"id": "item-1", "sk": "products"})
//	if rec == nil && err == nil { /* not there */ }
//
//	all, err := adapter.FetchAllByIndexValue(ctx, "products")
//
// Configuration:
// Field names default to id/sk with a gsiBySk index; set TableName in
// Config or through the DYNAMO_TABLE_NAME environment variable.
package dynamo
