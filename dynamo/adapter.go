package dynamo

import (
	"context"
	"fmt"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rs/zerolog"

	"github.com/vitkuz/aws-dynamo-adapter/envloader"
	"github.com/vitkuz/aws-dynamo-adapter/pkg/metrics"
)

// Config carries everything New needs. Only TableName is required, and
// even that may come from the environment instead.
type Config struct {
	TableName      string
	PartitionField string // default "id"
	SortField      string // default "sk"
	IndexName      string // default "gsiBySk"

	// Client overrides the backend connection. Nil means a real SDK
	// client built from the default AWS config chain.
	Client DynamoDBClient

	// Logger overrides the adapter's logger. Nil means a console logger
	// owned by this adapter; there is no package-level logger to mutate.
	Logger *zerolog.Logger

	// Metrics receives operation counts and latencies. Nil discards them.
	Metrics metrics.Provider

	// Clock feeds timestamp bookkeeping. Nil means UTC wall clock.
	Clock Clock
}

// Adapter is the table facade. It holds no mutable state, so one value
// can serve any number of goroutines.
type Adapter struct {
	client DynamoDBClient
	schema KeySchema
	log    zerolog.Logger
	rec    *metrics.Recorder
	clock  Clock
}

// New builds an adapter for one table. When cfg.TableName is empty the
// schema is loaded from DYNAMO_* environment variables before defaults
// are applied.
func New(ctx context.Context, cfg Config) (*Adapter, error) {
	schema := KeySchema{
		TableName:      cfg.TableName,
		PartitionField: cfg.PartitionField,
		SortField:      cfg.SortField,
		IndexName:      cfg.IndexName,
	}
	if schema.TableName == "" {
		if err := envloader.Load(&schema); err != nil {
			return nil, fmt.Errorf("dynamo: load schema from env: %w", err)
		}
	}
	if schema.TableName == "" {
		return nil, ErrMissingTable
	}
	schema = schema.withDefaults()
	if schema.PartitionField == schema.SortField {
		return nil, fmt.Errorf("dynamo: partition and sort field must differ, both are %q", schema.PartitionField)
	}

	client := cfg.Client
	if client == nil {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("dynamo: load aws config: %w", err)
		}
		client = dynamodb.NewFromConfig(awsCfg)
	}

	log := zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Logger()
	if cfg.Logger != nil {
		log = *cfg.Logger
	}

	clock := cfg.Clock
	if clock == nil {
		clock = DefaultClock
	}

	return &Adapter{
		client: client,
		schema: schema,
		log:    log.With().Str("table", schema.TableName).Logger(),
		rec:    metrics.NewRecorder(cfg.Metrics),
		clock:  clock,
	}, nil
}

// Schema returns the resolved key schema the adapter operates with.
func (a *Adapter) Schema() KeySchema {
	return a.schema
}

// done closes out an operation: metrics, then a debug line on success or
// an error line before the failure travels up.
func (a *Adapter) done(op string, start time.Time, errp *error) {
	err := *errp
	a.rec.Operation(a.schema.TableName, op, start, err)
	if err != nil {
		a.log.Error().Err(err).Str("op", op).Msg("operation failed")
		return
	}
	a.log.Debug().Str("op", op).Dur("took", time.Since(start)).Msg("operation complete")
}

func unmarshalRecord(item map[string]types.AttributeValue) (Record, error) {
	var rec Record
	if err := attributevalue.UnmarshalMap(item, &rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func unmarshalRecords(items []map[string]types.AttributeValue) ([]Record, error) {
	out := make([]Record, 0, len(items))
	for _, item := range items {
		rec, err := unmarshalRecord(item)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}
