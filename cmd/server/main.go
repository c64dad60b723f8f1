package main

import (
	"context"
	"fmt"
	stdlog "log"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/vitkuz/aws-dynamo-adapter/dynamo"
	"github.com/vitkuz/aws-dynamo-adapter/dynamo/memdb"
	"github.com/vitkuz/aws-dynamo-adapter/pkg/config"
	"github.com/vitkuz/aws-dynamo-adapter/pkg/logger"
	"github.com/vitkuz/aws-dynamo-adapter/pkg/observability"
	"github.com/vitkuz/aws-dynamo-adapter/pkg/transport"
)

var (
	configPath string
	// Injectable for tests.
	serverStarter = transport.StartHTTPServer
	lambdaStarter = lambda.Start
)

func init() {
	configPath = os.Getenv("CONFIG_FILE_PATH")
}

func main() {
	if configPath == "" {
		stdlog.Fatalln("FATAL: CONFIG_FILE_PATH is not set")
	}
	if err := run(context.Background(), configPath); err != nil {
		stdlog.Fatalf("FATAL: %v", err)
	}
}

func run(ctx context.Context, cfgPath string) error {
	cfg, err := config.NewUniversalLoader().Load(ctx, cfgPath)
	if err != nil {
		return err
	}

	appLogger := logger.Configure(cfg.Service.Logging)
	log.Logger = appLogger

	provider, err := observability.SetupMetrics(cfg.Service.Metrics)
	if err != nil {
		return err
	}

	backend, err := buildBackend(ctx, cfg.Table)
	if err != nil {
		return err
	}

	adapter, err := dynamo.New(ctx, dynamo.Config{
		TableName:      cfg.Table.Name,
		PartitionField: cfg.Table.PartitionField,
		SortField:      cfg.Table.SortField,
		IndexName:      cfg.Table.IndexName,
		Client:         backend,
		Logger:         &appLogger,
		Metrics:        provider,
	})
	if err != nil {
		return err
	}

	if cfg.Table.Memory && cfg.Table.SeedFile != "" {
		if err := seedTable(ctx, adapter, cfg.Table.SeedFile); err != nil {
			return fmt.Errorf("seed table: %w", err)
		}
	}

	if cfg.Ingest != nil {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return fmt.Errorf("load aws config for ingest: %w", err)
		}
		ingestor := transport.NewRecordIngestor(sqs.NewFromConfig(awsCfg), *cfg.Ingest, adapter)
		go ingestor.Start(ctx)
	}

	switch cfg.Service.Runtime {
	case "local":
		return serverStarter(cfg.Service, transport.NewRecordAPI(adapter))
	case "lambda":
		handler := transport.NewLambdaHandler(adapter, cfg.Service.BasePath)
		lambdaStarter(handler.Handle)
		return nil
	default:
		return fmt.Errorf("unknown runtime %q", cfg.Service.Runtime)
	}
}

// buildBackend picks the table client: the in-memory store, a client
// pinned to a local endpoint, or nil so the adapter builds the default
// SDK client itself.
func buildBackend(ctx context.Context, conf config.TableConf) (dynamo.DynamoDBClient, error) {
	if conf.Memory {
		return memBackend(conf), nil
	}
	if conf.Endpoint == "" {
		return nil, nil
	}

	opts := []func(*awsconfig.LoadOptions) error{}
	if conf.Region != "" {
		opts = append(opts, awsconfig.WithRegion(conf.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		o.BaseEndpoint = aws.String(conf.Endpoint)
	}), nil
}

func memBackend(conf config.TableConf) *memdb.Client {
	sortField := conf.SortField
	if sortField == "" {
		sortField = dynamo.DefaultSortField
	}
	indexName := conf.IndexName
	if indexName == "" {
		indexName = dynamo.DefaultIndexName
	}
	return memdb.New(memdb.TableDef{
		Name:           conf.Name,
		PartitionField: conf.PartitionField,
		SortField:      conf.SortField,
		Indexes:        []memdb.IndexDef{{Name: indexName, KeyField: sortField}},
	})
}

// seedTable loads a YAML list of records and writes them through the
// adapter, so seeded rows get timestamps like any other write.
func seedTable(ctx context.Context, adapter *dynamo.Adapter, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var recs []dynamo.Record
	if err := yaml.Unmarshal(data, &recs); err != nil {
		return fmt.Errorf("malformed seed file %s: %w", path, err)
	}
	if len(recs) == 0 {
		return nil
	}
	if _, err := adapter.CreateMany(ctx, recs); err != nil {
		return err
	}
	log.Info().Int("records", len(recs)).Str("file", path).Msg("seeded table")
	return nil
}
