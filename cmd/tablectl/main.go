package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/vitkuz/aws-dynamo-adapter/dynamo"
	"github.com/vitkuz/aws-dynamo-adapter/pkg/config"
)

const waitTimeout = 2 * time.Minute

// Client is the slice of the DynamoDB API the tool drives: the adapter's
// data operations plus table management.
type Client interface {
	dynamo.DynamoDBClient
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	DeleteTable(ctx context.Context, params *dynamodb.DeleteTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteTableOutput, error)
	ListTables(ctx context.Context, params *dynamodb.ListTablesInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ListTablesOutput, error)
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}
	if err := dispatch(context.Background(), os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Println(`usage: tablectl <command> -config <file> [flags]

commands:
  create   create the record table and its index
  drop     delete the record table
  status   show the table status
  list     list tables
  seed     load records from a YAML file (-file)
  export   dump every record as JSON lines (-out, file or s3://)
  import   load records from a JSON lines source (-in, file or s3://)`)
}

func dispatch(ctx context.Context, command string, args []string) error {
	fs := flag.NewFlagSet(command, flag.ExitOnError)
	cfgPath := fs.String("config", "", "service configuration file (local path or s3:// URI)")
	seedFile := fs.String("file", "", "seed records YAML file")
	exportOut := fs.String("out", "", "export destination (file path or s3:// URI)")
	importIn := fs.String("in", "", "import source (file path or s3:// URI)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *cfgPath == "" {
		return fmt.Errorf("the -config flag is required")
	}

	cfg, err := config.NewUniversalLoader().Load(ctx, *cfgPath)
	if err != nil {
		return err
	}
	client, err := tableClient(ctx, cfg.Table)
	if err != nil {
		return err
	}

	switch command {
	case "create":
		return runCreate(ctx, client, cfg.Table)
	case "drop":
		return runDrop(ctx, client, cfg.Table.Name)
	case "status":
		return runStatus(ctx, client, cfg.Table.Name)
	case "list":
		return runList(ctx, client)
	case "seed":
		if *seedFile == "" {
			return fmt.Errorf("the -file flag is required for seed")
		}
		adapter, err := newAdapter(ctx, client, cfg.Table)
		if err != nil {
			return err
		}
		return runSeed(ctx, adapter, *seedFile)
	case "export":
		if *exportOut == "" {
			return fmt.Errorf("the -out flag is required for export")
		}
		adapter, err := newAdapter(ctx, client, cfg.Table)
		if err != nil {
			return err
		}
		return runExport(ctx, adapter, *exportOut)
	case "import":
		if *importIn == "" {
			return fmt.Errorf("the -in flag is required for import")
		}
		adapter, err := newAdapter(ctx, client, cfg.Table)
		if err != nil {
			return err
		}
		return runImport(ctx, adapter, *importIn)
	default:
		usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func tableClient(ctx context.Context, conf config.TableConf) (Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	if conf.Region != "" {
		opts = append(opts, awsconfig.WithRegion(conf.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	if conf.Endpoint != "" {
		return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
			o.BaseEndpoint = aws.String(conf.Endpoint)
		}), nil
	}
	return dynamodb.NewFromConfig(awsCfg), nil
}

func newAdapter(ctx context.Context, client Client, conf config.TableConf) (*dynamo.Adapter, error) {
	// Warnings still surface; per-operation debug lines stay out of the
	// tool's output.
	quiet := zerolog.New(zerolog.NewConsoleWriter()).Level(zerolog.WarnLevel).With().Timestamp().Logger()
	return dynamo.New(ctx, dynamo.Config{
		TableName:      conf.Name,
		PartitionField: conf.PartitionField,
		SortField:      conf.SortField,
		IndexName:      conf.IndexName,
		Client:         client,
		Logger:         &quiet,
	})
}

func runCreate(ctx context.Context, client Client, conf config.TableConf) error {
	partition := conf.PartitionField
	if partition == "" {
		partition = dynamo.DefaultPartitionField
	}
	sort := conf.SortField
	if sort == "" {
		sort = dynamo.DefaultSortField
	}
	index := conf.IndexName
	if index == "" {
		index = dynamo.DefaultIndexName
	}
	read := conf.ReadCapacity
	if read == 0 {
		read = 5
	}
	write := conf.WriteCapacity
	if write == 0 {
		write = 5
	}
	throughput := &types.ProvisionedThroughput{
		ReadCapacityUnits:  aws.Int64(read),
		WriteCapacityUnits: aws.Int64(write),
	}

	_, err := client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(conf.Name),
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String(partition), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String(sort), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(partition), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String(sort), KeyType: types.KeyTypeRange},
		},
		GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{{
			IndexName: aws.String(index),
			KeySchema: []types.KeySchemaElement{
				{AttributeName: aws.String(sort), KeyType: types.KeyTypeHash},
			},
			Projection:            &types.Projection{ProjectionType: types.ProjectionTypeAll},
			ProvisionedThroughput: throughput,
		}},
		ProvisionedThroughput: throughput,
	})
	var inUse *types.ResourceInUseException
	if errors.As(err, &inUse) {
		fmt.Printf("table %s already exists\n", conf.Name)
		return nil
	}
	if err != nil {
		return err
	}

	if err := waitForActive(ctx, client, conf.Name, waitTimeout); err != nil {
		return err
	}
	fmt.Printf("table %s is active\n", conf.Name)
	return nil
}

func runDrop(ctx context.Context, client Client, name string) error {
	_, err := client.DeleteTable(ctx, &dynamodb.DeleteTableInput{TableName: aws.String(name)})
	var notFound *types.ResourceNotFoundException
	if errors.As(err, &notFound) {
		fmt.Printf("table %s does not exist\n", name)
		return nil
	}
	if err != nil {
		return err
	}

	if err := waitForDeleted(ctx, client, name, waitTimeout); err != nil {
		return err
	}
	fmt.Printf("table %s deleted\n", name)
	return nil
}

func runStatus(ctx context.Context, client Client, name string) error {
	out, err := client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(name)})
	if err != nil {
		return err
	}
	table := out.Table
	fmt.Printf("table:  %s\n", aws.ToString(table.TableName))
	fmt.Printf("status: %s\n", table.TableStatus)
	fmt.Printf("items:  %d\n", aws.ToInt64(table.ItemCount))
	for _, gsi := range table.GlobalSecondaryIndexes {
		fmt.Printf("index:  %s (%s)\n", aws.ToString(gsi.IndexName), gsi.IndexStatus)
	}
	return nil
}

func runList(ctx context.Context, client Client) error {
	out, err := client.ListTables(ctx, &dynamodb.ListTablesInput{})
	if err != nil {
		return err
	}
	for _, name := range out.TableNames {
		fmt.Println(name)
	}
	return nil
}

func runSeed(ctx context.Context, adapter *dynamo.Adapter, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var recs []dynamo.Record
	if err := yaml.Unmarshal(data, &recs); err != nil {
		return fmt.Errorf("malformed seed file %s: %w", path, err)
	}
	if _, err := adapter.CreateMany(ctx, recs); err != nil {
		return err
	}
	fmt.Printf("seeded %d records\n", len(recs))
	return nil
}

// runExport dumps the whole table as JSON lines. Exported timestamps
// survive a later import unchanged, since create only fills timestamps
// that are missing.
func runExport(ctx context.Context, adapter *dynamo.Adapter, dest string) error {
	recs, err := adapter.Fetcher().FetchAll(ctx)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	for _, rec := range recs {
		line, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}

	if err := writeDest(ctx, dest, buf.Bytes()); err != nil {
		return err
	}
	fmt.Printf("exported %d records to %s\n", len(recs), dest)
	return nil
}

func runImport(ctx context.Context, adapter *dynamo.Adapter, src string) error {
	data, err := readSource(ctx, src)
	if err != nil {
		return err
	}

	var recs []dynamo.Record
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var rec dynamo.Record
		if err := json.Unmarshal(line, &rec); err != nil {
			return fmt.Errorf("line %d: %w", len(recs)+1, err)
		}
		recs = append(recs, rec)
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	if _, err := adapter.CreateMany(ctx, recs); err != nil {
		return err
	}
	fmt.Printf("imported %d records from %s\n", len(recs), src)
	return nil
}

func waitForActive(ctx context.Context, client Client, name string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		out, err := client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(name)})
		if err != nil {
			return err
		}
		if out.Table.TableStatus == types.TableStatusActive {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}
	}
	return fmt.Errorf("table %s did not become active within %v", name, timeout)
}

func waitForDeleted(ctx context.Context, client Client, name string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		_, err := client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(name)})
		if err != nil {
			var notFound *types.ResourceNotFoundException
			if errors.As(err, &notFound) {
				return nil
			}
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}
	}
	return fmt.Errorf("table %s was not deleted within %v", name, timeout)
}

func readSource(ctx context.Context, src string) ([]byte, error) {
	if !strings.HasPrefix(src, "s3://") {
		return os.ReadFile(src)
	}
	bucket, key, err := parseS3URI(src)
	if err != nil {
		return nil, err
	}
	client, err := s3Client(ctx)
	if err != nil {
		return nil, err
	}
	out, err := client.GetObject(ctx, &s3.GetObjectInput{Bucket: &bucket, Key: &key})
	if err != nil {
		return nil, err
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

func writeDest(ctx context.Context, dest string, data []byte) error {
	if !strings.HasPrefix(dest, "s3://") {
		return os.WriteFile(dest, data, 0o644)
	}
	bucket, key, err := parseS3URI(dest)
	if err != nil {
		return err
	}
	client, err := s3Client(ctx)
	if err != nil {
		return err
	}
	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: &bucket,
		Key:    &key,
		Body:   bytes.NewReader(data),
	})
	return err
}

func parseS3URI(uri string) (bucket, key string, err error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", "", fmt.Errorf("invalid S3 URI: %w", err)
	}
	return u.Host, strings.TrimPrefix(u.Path, "/"), nil
}

func s3Client(ctx context.Context) (*s3.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}
	return s3.NewFromConfig(awsCfg), nil
}
