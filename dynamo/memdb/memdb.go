package memdb

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/btree"
)

// Default key fields mirror the layout the adapter assumes when no
// overrides are given.
const (
	defaultPartitionField = "id"
	defaultSortField      = "sk"
)

// TableDef declares one table: its name, key fields, and any global
// secondary indexes. Empty key fields fall back to "id" and "sk".
type TableDef struct {
	Name           string
	PartitionField string
	SortField      string
	Indexes        []IndexDef
}

// IndexDef declares a global secondary index keyed on a single field.
type IndexDef struct {
	Name     string
	KeyField string
}

// Client is an in-memory implementation of the DynamoDB operations the
// adapter and its tooling call. The zero value is not usable; construct
// one with New.
//
// PageSize caps how many items Query and Scan return per call. When a
// result has more matches than fit in a page, the output carries a
// LastEvaluatedKey cursor, exactly like the hosted service. Zero means
// unpaginated. Set it before sharing the client across goroutines.
type Client struct {
	PageSize int

	mu     sync.RWMutex
	tables map[string]*memTable
}

type memTable struct {
	def  TableDef
	tree *btree.BTreeG[*document]
}

// New builds a client with the given tables registered and active.
// Further tables can be added later through CreateTable. New panics on
// a definition without a name, since that is a programming error.
func New(defs ...TableDef) *Client {
	c := &Client{tables: make(map[string]*memTable)}
	for _, def := range defs {
		if def.Name == "" {
			panic("memdb: table definition requires a name")
		}
		c.tables[def.Name] = newMemTable(def)
	}
	return c
}

func newMemTable(def TableDef) *memTable {
	if def.PartitionField == "" {
		def.PartitionField = defaultPartitionField
	}
	if def.SortField == "" {
		def.SortField = defaultSortField
	}
	return &memTable{
		def:  def,
		tree: btree.NewG(2, docLess),
	}
}

func (c *Client) lookup(name *string) (*memTable, error) {
	if name == nil || *name == "" {
		return nil, fmt.Errorf("memdb: table name is required")
	}
	t, ok := c.tables[*name]
	if !ok {
		return nil, &types.ResourceNotFoundException{
			Message: aws.String(fmt.Sprintf("table not found: %s", *name)),
		}
	}
	return t, nil
}

func (t *memTable) index(name string) (IndexDef, error) {
	for _, idx := range t.def.Indexes {
		if idx.Name == name {
			return idx, nil
		}
	}
	return IndexDef{}, fmt.Errorf("memdb: unknown index %q on table %q", name, t.def.Name)
}

// CreateTable registers a new table from the request's key schema. The
// table is immediately ACTIVE. Provisioning and projection settings are
// accepted and ignored.
func (c *Client) CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	if params == nil || params.TableName == nil {
		return nil, fmt.Errorf("memdb: table name is required")
	}
	def := TableDef{Name: *params.TableName}
	for _, elem := range params.KeySchema {
		switch elem.KeyType {
		case types.KeyTypeHash:
			def.PartitionField = aws.ToString(elem.AttributeName)
		case types.KeyTypeRange:
			def.SortField = aws.ToString(elem.AttributeName)
		}
	}
	if def.PartitionField == "" || def.SortField == "" {
		return nil, fmt.Errorf("memdb: table %q requires a HASH and a RANGE key", def.Name)
	}
	for _, gsi := range params.GlobalSecondaryIndexes {
		idx := IndexDef{Name: aws.ToString(gsi.IndexName)}
		for _, elem := range gsi.KeySchema {
			if elem.KeyType == types.KeyTypeHash {
				idx.KeyField = aws.ToString(elem.AttributeName)
			}
		}
		if idx.Name == "" || idx.KeyField == "" {
			return nil, fmt.Errorf("memdb: index on table %q requires a name and a HASH key", def.Name)
		}
		def.Indexes = append(def.Indexes, idx)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.tables[def.Name]; exists {
		return nil, &types.ResourceInUseException{
			Message: aws.String(fmt.Sprintf("table already exists: %s", def.Name)),
		}
	}
	c.tables[def.Name] = newMemTable(def)
	return &dynamodb.CreateTableOutput{TableDescription: c.tables[def.Name].describe()}, nil
}

// DescribeTable reports a registered table as ACTIVE, or a
// ResourceNotFoundException when it does not exist.
func (c *Client) DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	if params == nil {
		return nil, fmt.Errorf("memdb: params is required")
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, err := c.lookup(params.TableName)
	if err != nil {
		return nil, err
	}
	return &dynamodb.DescribeTableOutput{Table: t.describe()}, nil
}

// DeleteTable drops a table and everything in it.
func (c *Client) DeleteTable(ctx context.Context, params *dynamodb.DeleteTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteTableOutput, error) {
	if params == nil {
		return nil, fmt.Errorf("memdb: params is required")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	t, err := c.lookup(params.TableName)
	if err != nil {
		return nil, err
	}
	delete(c.tables, t.def.Name)
	return &dynamodb.DeleteTableOutput{TableDescription: t.describe()}, nil
}

// ListTables returns all registered table names in sorted order.
func (c *Client) ListTables(ctx context.Context, params *dynamodb.ListTablesInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ListTablesOutput, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.tables))
	for name := range c.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return &dynamodb.ListTablesOutput{TableNames: names}, nil
}

func (t *memTable) describe() *types.TableDescription {
	desc := &types.TableDescription{
		TableName:   aws.String(t.def.Name),
		TableStatus: types.TableStatusActive,
		ItemCount:   aws.Int64(int64(t.tree.Len())),
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(t.def.PartitionField), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String(t.def.SortField), KeyType: types.KeyTypeRange},
		},
	}
	for _, idx := range t.def.Indexes {
		desc.GlobalSecondaryIndexes = append(desc.GlobalSecondaryIndexes, types.GlobalSecondaryIndexDescription{
			IndexName:   aws.String(idx.Name),
			IndexStatus: types.IndexStatusActive,
			KeySchema: []types.KeySchemaElement{
				{AttributeName: aws.String(idx.KeyField), KeyType: types.KeyTypeHash},
			},
		})
	}
	return desc
}
