package config

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"gopkg.in/yaml.v2"

	"github.com/vitkuz/aws-dynamo-adapter/pkg/config/injector"
)

// Load reads, injects and validates a service configuration from source.
// It is the one-call entry point used at service startup.
func Load(source string) (*ServiceConfig, error) {
	return NewUniversalLoader().Load(context.Background(), source)
}

// S3Downloader is the slice of the S3 client the loader needs.
type S3Downloader interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// UniversalLoader reads configuration from local files or S3. The source
// scheme picks the strategy: "s3://bucket/key" or a plain path (an
// optional "file://" prefix is accepted).
type UniversalLoader struct {
	validator *ConfigValidator
}

// NewUniversalLoader builds a loader with a fresh validator.
func NewUniversalLoader() *UniversalLoader {
	return &UniversalLoader{
		validator: NewValidator(),
	}
}

// Load detects the source scheme, reads the raw YAML and runs it through
// injection and validation.
func (ul *UniversalLoader) Load(ctx context.Context, source string) (*ServiceConfig, error) {
	var rawData []byte
	var err error

	if strings.HasPrefix(source, "s3://") {
		cfg, cfgErr := awsconfig.LoadDefaultConfig(ctx)
		if cfgErr != nil {
			return nil, fmt.Errorf("config load (%s): %w", source, cfgErr)
		}
		rawData, err = ul.loadFromS3Internal(ctx, s3.NewFromConfig(cfg), source)
	} else {
		rawData, err = ul.loadFromFile(source)
	}

	if err != nil {
		return nil, fmt.Errorf("config load (%s): %w", source, err)
	}
	return ul.parseAndValidate(ctx, rawData)
}

func (ul *UniversalLoader) loadFromFile(path string) ([]byte, error) {
	cleanPath := strings.TrimPrefix(path, "file://")
	return os.ReadFile(cleanPath)
}

func (ul *UniversalLoader) loadFromS3Internal(ctx context.Context, client S3Downloader, uri string) ([]byte, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("invalid S3 URL: %w", err)
	}
	bucket := u.Host
	key := strings.TrimPrefix(u.Path, "/")

	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	})
	if err != nil {
		return nil, err
	}
	defer out.Body.Close()

	return io.ReadAll(out.Body)
}

func (ul *UniversalLoader) parseAndValidate(ctx context.Context, data []byte) (*ServiceConfig, error) {
	var cfg ServiceConfig

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("malformed YAML: %w", err)
	}

	// Resolve ${env.*}, ${ssm.*} and ${secret.*} references before the
	// validator sees the values.
	inj := injector.New()
	if err := inj.Inject(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("variable injection failed: %w", err)
	}

	if ul.validator != nil {
		if err := ul.validator.Validate(&cfg); err != nil {
			return nil, fmt.Errorf("configuration validation failed: %w", err)
		}
	}
	return &cfg, nil
}
