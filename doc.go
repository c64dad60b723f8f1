// Package awsdynamoadapter is a toolkit for building record services on
// DynamoDB: a schema-light access layer for one table, a typed layer on
// top of it, and the transport and tooling a small service needs around
// them.
//
// Overview:
// The core idea is one table, two key fields and an index, with records
// as open maps. Everything else layers on that:
// 1. Access (dynamo): single and batch verbs with timestamp bookkeeping.
// 2. Typing (store): struct mapping, validation and save hooks.
// 3. Serving (pkg/transport): HTTP, Lambda and SQS fronts for the table.
//
// Main sub-packages:
//
// 1. dynamo:
//   - Adapter with CreateOne/CreateMany, FetchOne/FetchMany, ReplaceOne,
//     PatchOne/PatchMany, DeleteOne/DeleteMany, FetchAllByIndexValue and
//     a draining Fetcher.
//   - createdAt/updatedAt stamped on writes; batches chunked to the
//     service limits (25 writes, 100 reads) and sent sequentially.
//   - dynamo/memdb: an in-memory backend with real pagination semantics
//     for development and tests.
//
// 2. store:
//   - Repository/Service pair generic over a struct type.
//   - validate tags checked before writes, BeforeCreate/BeforeUpdate
//     hooks, ErrNotFound instead of nil-nil.
//
// 3. pkg/transport:
//   - RecordAPI on gorilla/mux, a Lambda proxy handler with the same
//     routes, and an SQS ingestor that feeds records into the table.
//
// 4. pkg/config and envloader:
//   - YAML service configuration from file or S3 with ${env.*}, ${ssm.*}
//     and ${secret.*} injection.
//   - envloader fills tagged structs straight from the environment.
//
// The cmd/server binary serves the table over HTTP or Lambda from one
// YAML file; cmd/tablectl creates, inspects, seeds and dumps the table.
//
// Quick start:
//
//	package main
//
//	import (
//		"context"
//		"log"
//
//		"github.com/vitkuz/aws-dynamo-adapter/dynamo"
//	)
//
//	func main() {
//		ctx := context.Background()
//
//		// Table name and key fields may also come from DYNAMO_* env vars.
//		adapter, err := dynamo.New(ctx, dynamo.Config{TableName: "records"})
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		created, err := adapter.CreateOne(ctx, dynamo.Record{
//			"id": "post-1", "sk": "post", "title": "Hello",
//		})
//		if err != nil {
//			log.Fatal(err)
//		}
//		log.Printf("stored at %v", created["createdAt"])
//
//		rec, err := adapter.FetchOne(ctx, dynamo.Key{"id": "post-1", "sk": "post"})
//		if err != nil {
//			log.Fatal(err)
//		}
//		log.Printf("title: %v", rec["title"])
//	}
package awsdynamoadapter
