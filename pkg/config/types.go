package config

import "time"

// ServiceConfig is the root of the service YAML file.
type ServiceConfig struct {
	Version string         `yaml:"version" validate:"required"`
	Service ServiceDetails `yaml:"service" validate:"required"`
	Table   TableConf      `yaml:"table" validate:"required"`
	Ingest  *IngestConf    `yaml:"ingest"` // optional queue poller
}

// ServiceDetails holds the service metadata and runtime settings.
type ServiceDetails struct {
	Name     string      `yaml:"name" validate:"required,hostname_rfc1123"`
	Runtime  string      `yaml:"runtime" validate:"required,oneof=local lambda"`
	Port     int         `yaml:"port" validate:"required_if=Runtime local"` // only the local runtime listens
	BasePath string      `yaml:"base_path" validate:"omitempty,startswith=/"`
	Timeout  string      `yaml:"timeout"` // e.g. "500ms", "2s"
	Logging  LoggingConf `yaml:"logging"`
	Metrics  MetricsConf `yaml:"metrics"`
}

// TableConf describes the record table the service fronts.
type TableConf struct {
	Name           string `yaml:"name" env:"DYNAMO_TABLE_NAME" validate:"required"`
	PartitionField string `yaml:"partition_field" env:"DYNAMO_PARTITION_FIELD"`
	SortField      string `yaml:"sort_field" env:"DYNAMO_SORT_FIELD"`
	IndexName      string `yaml:"index_name" env:"DYNAMO_INDEX_NAME"`
	Region         string `yaml:"region" env:"AWS_REGION"`

	// Endpoint points the SDK client at a non-default endpoint, typically
	// a DynamoDB Local container.
	Endpoint string `yaml:"endpoint"`

	// Memory swaps the backend for the in-process store. Development only.
	Memory bool `yaml:"memory"`

	// SeedFile preloads records into the in-memory backend at startup.
	SeedFile string `yaml:"seed_file"`

	// Provisioned throughput used by table management tooling.
	ReadCapacity  int64 `yaml:"read_capacity" validate:"omitempty,gte=1"`
	WriteCapacity int64 `yaml:"write_capacity" validate:"omitempty,gte=1"`
}

// IngestConf configures the SQS poller that feeds records into the table.
type IngestConf struct {
	QueueURL    string `yaml:"queue_url" validate:"required,url" env:"INGEST_QUEUE_URL"`
	WaitSeconds int32  `yaml:"wait_seconds" validate:"omitempty,gte=1,lte=20"`
	BatchSize   int32  `yaml:"batch_size" validate:"omitempty,gte=1,lte=10"`
}

type LoggingConf struct {
	Enabled bool   `yaml:"enabled"`
	Level   string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format  string `yaml:"format" validate:"omitempty,oneof=json console"`
}

type MetricsConf struct {
	Datadog DatadogConf `yaml:"datadog"`
}

type DatadogConf struct {
	Enabled   bool   `yaml:"enabled" env:"DD_ENABLED"`
	Addr      string `yaml:"addr" env:"DD_AGENT_HOST" validate:"required_if=Enabled true"`
	Namespace string `yaml:"namespace"`
}

// GetTimeout parses the service timeout, falling back to 30s when unset
// or unparseable.
func (s ServiceDetails) GetTimeout() time.Duration {
	d, err := time.ParseDuration(s.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}
