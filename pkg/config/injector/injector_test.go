package injector_test

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitkuz/aws-dynamo-adapter/pkg/config/injector"
)

type TestConfig struct {
	Name        string                 `yaml:"name" env:"SERVICE_NAME"` // tag injection
	APIKey      string                 `yaml:"api_key"`                 // direct "${env.KEY}"
	Description string                 `yaml:"description"`             // mixed text
	Meta        map[string]interface{} // dynamic map
	Nested      *NestedConfig
}

type NestedConfig struct {
	URL string
}

func TestInjector_Inject_Environment(t *testing.T) {
	t.Setenv("SERVICE_NAME", "RecordService")
	t.Setenv("API_KEY", "12345-abcde")
	t.Setenv("REGION", "us-east-1")
	t.Setenv("DB_HOST", "localhost")

	inj := injector.New()

	target := &TestConfig{
		Name:        "Placeholder", // overwritten by the tag
		APIKey:      "${env.API_KEY}",
		Description: "Service running in ${env.REGION}",
		Meta: map[string]interface{}{
			"db_host": "${env.DB_HOST}",
			"timeout": 5000, // integers stay untouched
		},
		Nested: &NestedConfig{
			URL: "https://${env.REGION}.api.com",
		},
	}

	err := inj.Inject(context.Background(), target)
	assert.NoError(t, err)

	assert.Equal(t, "RecordService", target.Name, "env tag injection failed")
	assert.Equal(t, "12345-abcde", target.APIKey, "direct interpolation failed")
	assert.Equal(t, "Service running in us-east-1", target.Description, "mixed interpolation failed")
	assert.Equal(t, "localhost", target.Meta["db_host"], "map interpolation failed")
	assert.Equal(t, "https://us-east-1.api.com", target.Nested.URL, "nested interpolation failed")
}

type mockSSM struct {
	GetParameterFn func(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

func (m *mockSSM) GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	return m.GetParameterFn(ctx, params, optFns...)
}

type mockSecrets struct {
	GetSecretValueFn func(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

func (m *mockSecrets) GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	return m.GetSecretValueFn(ctx, params, optFns...)
}

func TestInjector_Inject_SSM(t *testing.T) {
	inj := injector.New()
	inj.SSM = &mockSSM{
		GetParameterFn: func(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
			require.Equal(t, "/app/records/table", *params.Name)
			require.True(t, *params.WithDecryption)
			return &ssm.GetParameterOutput{
				Parameter: &ssmtypes.Parameter{Value: aws.String("records-prod")},
			}, nil
		},
	}

	target := &NestedConfig{URL: "${ssm./app/records/table}"}

	err := inj.Inject(context.Background(), target)
	require.NoError(t, err)
	assert.Equal(t, "records-prod", target.URL)
}

func TestInjector_Inject_Secret(t *testing.T) {
	inj := injector.New()
	inj.Secrets = &mockSecrets{
		GetSecretValueFn: func(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
			require.Equal(t, "records/api-token", *params.SecretId)
			return &secretsmanager.GetSecretValueOutput{
				SecretString: aws.String("tok-42"),
			}, nil
		},
	}

	target := &NestedConfig{URL: "${secret.records/api-token}"}

	err := inj.Inject(context.Background(), target)
	require.NoError(t, err)
	assert.Equal(t, "tok-42", target.URL)
}
