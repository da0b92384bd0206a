// Fudosync - Incremental extraction engine for the Fudo POS API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fudosync

//go:build integration

package testinfra

import (
	"context"
	"fmt"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	// DefaultLocalStackImage is the LocalStack image used for AWS tests.
	DefaultLocalStackImage = "localstack/localstack:3.8"

	// LocalStackPort is the LocalStack edge port.
	LocalStackPort = "4566"
)

// LocalStackContainer is a running LocalStack instance.
type LocalStackContainer struct {
	testcontainers.Container
	Endpoint string
}

// LocalStackOption configures the container.
type LocalStackOption func(*localStackConfig)

type localStackConfig struct {
	image        string
	services     string
	startTimeout time.Duration
}

// WithLocalStackImage overrides the image.
func WithLocalStackImage(image string) LocalStackOption {
	return func(c *localStackConfig) {
		c.image = image
	}
}

// WithStartTimeout sets how long to wait for LocalStack to become healthy.
func WithStartTimeout(timeout time.Duration) LocalStackOption {
	return func(c *localStackConfig) {
		c.startTimeout = timeout
	}
}

// NewLocalStackContainer starts LocalStack with the secretsmanager service.
func NewLocalStackContainer(ctx context.Context, opts ...LocalStackOption) (*LocalStackContainer, error) {
	cfg := &localStackConfig{
		image:        DefaultLocalStackImage,
		services:     "secretsmanager",
		startTimeout: 90 * time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	req := testcontainers.ContainerRequest{
		Image:        cfg.image,
		ExposedPorts: []string{LocalStackPort + "/tcp"},
		Env: map[string]string{
			"SERVICES": cfg.services,
		},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort(LocalStackPort+"/tcp"),
			wait.ForHTTP("/_localstack/health").WithPort(LocalStackPort+"/tcp"),
		).WithStartupTimeout(cfg.startTimeout),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("create localstack container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		container.Terminate(ctx) //nolint:errcheck
		return nil, fmt.Errorf("get container host: %w", err)
	}

	port, err := container.MappedPort(ctx, LocalStackPort)
	if err != nil {
		container.Terminate(ctx) //nolint:errcheck
		return nil, fmt.Errorf("get mapped port: %w", err)
	}

	return &LocalStackContainer{
		Container: container,
		Endpoint:  fmt.Sprintf("http://%s:%s", host, port.Port()),
	}, nil
}
