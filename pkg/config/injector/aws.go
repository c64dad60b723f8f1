package injector

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// Interfaces over the AWS SDK so tests can inject fakes.

type SSMClient interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

type SecretsClient interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

var (
	awsCfg  aws.Config
	awsOnce sync.Once
	awsErr  error
)

// sharedAWSConfig loads the default AWS config chain once per process.
func sharedAWSConfig(ctx context.Context) (aws.Config, error) {
	awsOnce.Do(func() {
		opts := []func(*awsconfig.LoadOptions) error{}
		if region := os.Getenv("AWS_REGION"); region != "" {
			opts = append(opts, awsconfig.WithRegion(region))
		}
		awsCfg, awsErr = awsconfig.LoadDefaultConfig(ctx, opts...)
	})
	return awsCfg, awsErr
}

func (i *Injector) ssmClient(ctx context.Context) (SSMClient, error) {
	if i.SSM != nil {
		return i.SSM, nil
	}
	cfg, err := sharedAWSConfig(ctx)
	if err != nil {
		return nil, err
	}
	i.SSM = ssm.NewFromConfig(cfg)
	return i.SSM, nil
}

func (i *Injector) secretsClient(ctx context.Context) (SecretsClient, error) {
	if i.Secrets != nil {
		return i.Secrets, nil
	}
	cfg, err := sharedAWSConfig(ctx)
	if err != nil {
		return nil, err
	}
	i.Secrets = secretsmanager.NewFromConfig(cfg)
	return i.Secrets, nil
}

func getParameter(ctx context.Context, client SSMClient, path string, decrypt bool) (interface{}, error) {
	out, err := client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           &path,
		WithDecryption: &decrypt,
	})
	if err != nil {
		return nil, fmt.Errorf("SSM GetParameter failed: %w", err)
	}
	return *out.Parameter.Value, nil
}

func getSecret(ctx context.Context, client SecretsClient, secretID string) (interface{}, error) {
	out, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: &secretID,
	})
	if err != nil {
		return nil, fmt.Errorf("SecretsManager GetSecretValue failed: %w", err)
	}

	val := *out.SecretString

	// JSON secrets decode to a map; anything else stays a string.
	var data map[string]interface{}
	if err := json.Unmarshal([]byte(val), &data); err == nil {
		return data, nil
	}
	return val, nil
}
