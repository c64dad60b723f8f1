package config

import (
	"context"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type MockS3Loader struct {
	GetObjectFunc func(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

func (m *MockS3Loader) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	return m.GetObjectFunc(ctx, params, optFns...)
}

func TestUniversalLoader_Load_Local(t *testing.T) {
	yamlContent := `
version: "1.0"
service:
  name: "records-local"
  runtime: "local"
  port: 8080
  timeout: "1s"
  logging:
    enabled: true
    level: "info"
    format: "console"
  metrics:
    datadog:
      enabled: false

table:
  name: "records"
  partition_field: "id"
  sort_field: "sk"
  index_name: "gsiBySk"
`
	tmpFile, err := os.CreateTemp("", "config_*.yaml")
	if err != nil {
		t.Fatalf("temp file: %v", err)
	}
	defer os.Remove(tmpFile.Name())

	if _, err := tmpFile.WriteString(yamlContent); err != nil {
		t.Fatalf("write file: %v", err)
	}
	tmpFile.Close()

	loader := NewUniversalLoader()
	cfg, err := loader.Load(context.Background(), tmpFile.Name())

	if err != nil {
		t.Fatalf("local load: %v", err)
	}
	if cfg.Service.Name != "records-local" {
		t.Errorf("wrong service name: %s", cfg.Service.Name)
	}
	if cfg.Table.IndexName != "gsiBySk" {
		t.Errorf("wrong index name: %s", cfg.Table.IndexName)
	}
}

func TestUniversalLoader_Load_EnvOverride(t *testing.T) {
	t.Setenv("DYNAMO_TABLE_NAME", "records-from-env")

	yamlContent := `
version: "1.0"
service:
  name: "records-local"
  runtime: "local"
  port: 8080
table:
  name: "records"
`
	tmpFile, err := os.CreateTemp("", "config_*.yaml")
	if err != nil {
		t.Fatalf("temp file: %v", err)
	}
	defer os.Remove(tmpFile.Name())
	if _, err := tmpFile.WriteString(yamlContent); err != nil {
		t.Fatalf("write file: %v", err)
	}
	tmpFile.Close()

	cfg, err := NewUniversalLoader().Load(context.Background(), tmpFile.Name())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Table.Name != "records-from-env" {
		t.Errorf("env tag should win over YAML, got %s", cfg.Table.Name)
	}
}

func TestUniversalLoader_S3_Internal(t *testing.T) {
	mockYaml := `version: "1.0"`
	mockClient := &MockS3Loader{
		GetObjectFunc: func(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
			if *params.Bucket != "my-bucket" || *params.Key != "configs/svc.yaml" {
				t.Errorf("wrong S3 params: %v", params)
			}
			return &s3.GetObjectOutput{
				Body: io.NopCloser(strings.NewReader(mockYaml)),
			}, nil
		},
	}

	loader := NewUniversalLoader()
	data, err := loader.loadFromS3Internal(context.Background(), mockClient, "s3://my-bucket/configs/svc.yaml")

	if err != nil {
		t.Fatalf("s3 internal: %v", err)
	}
	if string(data) != mockYaml {
		t.Errorf("wrong content: %s", data)
	}
}

func TestUniversalLoader_Load_InvalidYAML(t *testing.T) {
	tmpFile, err := os.CreateTemp("", "config_*.yaml")
	if err != nil {
		t.Fatalf("temp file: %v", err)
	}
	defer os.Remove(tmpFile.Name())
	if _, err := tmpFile.WriteString("::: not yaml :::"); err != nil {
		t.Fatalf("write file: %v", err)
	}
	tmpFile.Close()

	_, err = NewUniversalLoader().Load(context.Background(), tmpFile.Name())
	if err == nil {
		t.Fatal("expected error for malformed YAML")
	}
}
