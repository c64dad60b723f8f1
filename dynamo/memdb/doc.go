// Package memdb provides an in-memory DynamoDB stand-in for local
// development and tests.
//
// A Client keeps every table in an ordered in-process structure and
// implements the same call surface the adapter uses against the real
// service: item reads and writes, batch operations, queries, scans, and
// the table-management calls (CreateTable, DescribeTable, DeleteTable,
// ListTables) that tooling relies on. Tables are born ACTIVE, so
// status waiters return immediately.
//
// The implementation is intentionally narrow. Update expressions are
// limited to SET clauses, key conditions to a single equality, and
// condition expressions are not evaluated. That covers everything the
// adapter emits; anything outside it returns an error rather than
// guessing.
//
// Pagination is real: set PageSize to force Query and Scan to hand out
// small pages with a LastEvaluatedKey cursor, which makes fetch-all
// code paths exercise their draining loops.
//
//	client := memdb.New(memdb.TableDef{
//		Name: "records",
//		Indexes: []memdb.IndexDef{{Name: "gsiBySk", KeyField: "sk"}},
//	})
//	client.PageSize = 2
package memdb
