// Fudosync - Incremental extraction engine for the Fudo POS API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fudosync

package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/tomtom215/fudosync/internal/config"
)

var (
	// ErrSecretNotFound is returned when the named secret does not exist.
	ErrSecretNotFound = errors.New("secret not found")

	// ErrSecretEmpty is returned when the secret exists but has no value.
	ErrSecretEmpty = errors.New("secret value is empty")

	// ErrAccessDenied is returned when the caller may not read the secret.
	ErrAccessDenied = errors.New("access denied to secret")
)

// Provider resolves a secret name to its value.
type Provider interface {
	Resolve(ctx context.Context, name string) (string, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, name string) (string, error)

// Resolve implements Provider.
func (f ProviderFunc) Resolve(ctx context.Context, name string) (string, error) {
	return f(ctx, name)
}

// EnvProvider reads secrets from environment variables.
type EnvProvider struct {
	prefix string
	lookup func(string) (string, bool)
}

// NewEnvProvider creates an EnvProvider reading <prefix><name>.
func NewEnvProvider(prefix string) *EnvProvider {
	return &EnvProvider{prefix: prefix, lookup: os.LookupEnv}
}

// Resolve implements Provider.
func (p *EnvProvider) Resolve(_ context.Context, name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("%w: empty secret name", ErrSecretNotFound)
	}
	key := p.prefix + name
	value, ok := p.lookup(key)
	if !ok {
		return "", fmt.Errorf("%w: environment variable %s", ErrSecretNotFound, key)
	}
	if value == "" {
		return "", fmt.Errorf("%w: environment variable %s", ErrSecretEmpty, key)
	}
	return value, nil
}

// New builds the provider selected by cfg.Backend.
func New(ctx context.Context, cfg *config.SecretsConfig) (Provider, error) {
	switch cfg.Backend {
	case "", "env":
		return NewEnvProvider(cfg.EnvPrefix), nil
	case "aws":
		return NewAWSProvider(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown secrets backend %q", cfg.Backend)
	}
}
