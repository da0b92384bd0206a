// Fudosync - Incremental extraction engine for the Fudo POS API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fudosync

package secrets

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/smithy-go"

	"github.com/tomtom215/fudosync/internal/config"
	"github.com/tomtom215/fudosync/internal/logging"
)

// AWS error codes mapped to sentinel errors.
const (
	ResourceNotFoundException = "ResourceNotFoundException"
	AccessDeniedException     = "AccessDeniedException"
)

// ManagerAPI is the subset of the Secrets Manager client used here.
type ManagerAPI interface {
	GetSecretValue(
		ctx context.Context,
		params *secretsmanager.GetSecretValueInput,
		optFns ...func(*secretsmanager.Options),
	) (*secretsmanager.GetSecretValueOutput, error)
}

// AWSProvider resolves secrets from AWS Secrets Manager.
type AWSProvider struct {
	api ManagerAPI
}

// NewAWSProvider loads the default AWS configuration chain, applying the
// region and endpoint overrides from cfg.
func NewAWSProvider(ctx context.Context, cfg *config.SecretsConfig) (*AWSProvider, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.AWSRegion != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.AWSRegion))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	api := secretsmanager.NewFromConfig(awsCfg, func(o *secretsmanager.Options) {
		if cfg.AWSEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.AWSEndpoint)
		}
	})

	logging.Info().
		Str("region", awsCfg.Region).
		Bool("endpoint_override", cfg.AWSEndpoint != "").
		Msg("AWS Secrets Manager provider initialized")

	return NewAWSProviderWithAPI(api), nil
}

// NewAWSProviderWithAPI wraps an existing client. Used by tests.
func NewAWSProviderWithAPI(api ManagerAPI) *AWSProvider {
	return &AWSProvider{api: api}
}

// Resolve implements Provider.
func (p *AWSProvider) Resolve(ctx context.Context, name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("%w: empty secret name", ErrSecretNotFound)
	}

	out, err := p.api.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(name),
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			switch apiErr.ErrorCode() {
			case ResourceNotFoundException:
				return "", fmt.Errorf("%w: %s", ErrSecretNotFound, name)
			case AccessDeniedException:
				return "", fmt.Errorf("%w: %s", ErrAccessDenied, name)
			}
		}
		return "", fmt.Errorf("failed to get secret %s: %w", name, err)
	}

	if out.SecretString != nil && *out.SecretString != "" {
		return *out.SecretString, nil
	}
	if len(out.SecretBinary) > 0 {
		return string(out.SecretBinary), nil
	}
	return "", fmt.Errorf("%w: %s", ErrSecretEmpty, name)
}
