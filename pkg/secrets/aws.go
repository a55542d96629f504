package secrets

import (
	"context"
	"encoding/json"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// AWSConfig holds configuration for AWS Secrets Manager
type AWSConfig struct {
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"access_key_id,omitempty"`
	SecretAccessKey string `yaml:"secret_access_key,omitempty"`
	SecretName      string `yaml:"secret_name"`
	// Endpoint is optional, for LocalStack or custom endpoints
	Endpoint string `yaml:"endpoint,omitempty"`
}

// Validate checks if the AWSConfig has all required fields set.
// Static credentials are optional; the default credential chain is used otherwise.
func (a AWSConfig) Validate() error {
	if a.Region == "" {
		return errors.New("AWS region is required")
	}
	if a.SecretName == "" {
		return errors.New("AWS secret name is required")
	}
	if (a.AccessKeyID == "") != (a.SecretAccessKey == "") {
		return errors.New("AWS access_key_id and secret_access_key must be set together")
	}
	return nil
}

// CreateClient creates an AWS Secrets Manager client from this config.
func (a AWSConfig) CreateClient() (*secretsmanager.Client, error) {
	if err := a.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid AWS configuration")
	}

	opts := []func(*config.LoadOptions) error{
		config.WithRegion(a.Region),
	}
	if a.Endpoint != "" {
		opts = append(opts, config.WithBaseEndpoint(a.Endpoint))
	}
	if a.AccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(a.AccessKeyID, a.SecretAccessKey, ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load AWS configuration")
	}
	return secretsmanager.NewFromConfig(cfg), nil
}

// SecretValueGetter is the part of the Secrets Manager API the loader needs.
type SecretValueGetter interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// AWSSecretLoader retrieves values from one AWS Secrets Manager secret.
// The secret is either a JSON object of key/value pairs or a plain string.
//
//	fallback: ${aws:ANDROID_MAPS_KEY}
type AWSSecretLoader struct {
	client     SecretValueGetter
	secretName string
}

// NewAWSSecretLoader creates a loader for secretName.
func NewAWSSecretLoader(client SecretValueGetter, secretName string) *AWSSecretLoader {
	return &AWSSecretLoader{client: client, secretName: secretName}
}

// Resolve fetches the secret and returns key from it. Plain string secrets
// ignore key and are returned whole.
func (a *AWSSecretLoader) Resolve(key string) (string, error) {
	result, err := a.client.GetSecretValue(context.Background(), &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(a.secretName),
	})
	if err != nil {
		return "", errors.Wrapf(err, "failed to read secret from AWS Secrets Manager: %q", a.secretName)
	}
	if result.SecretString == nil {
		return "", errors.Errorf("secret %q has no string value", a.secretName)
	}
	secretString := *result.SecretString

	var secretData map[string]interface{}
	if err := json.Unmarshal([]byte(secretString), &secretData); err == nil {
		value, ok := secretData[key].(string)
		if !ok {
			return "", errors.Errorf("key %q not found in AWS secret %q", key, a.secretName)
		}
		log.Debug().
			Str("secret_name", a.secretName).
			Str("key", key).
			Msg("Retrieved secret from AWS Secrets Manager")
		return value, nil
	}

	log.Debug().
		Str("secret_name", a.secretName).
		Msg("Retrieved secret from AWS Secrets Manager (plain text)")
	return secretString, nil
}

// Name returns the resolver name
func (a *AWSSecretLoader) Name() string {
	return "AWS Secrets Manager"
}
