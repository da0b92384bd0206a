// Fudosync - Incremental extraction engine for the Fudo POS API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fudosync

// Package secrets resolves the per-branch Fudo API credentials named in the
// branch registry.
//
// Two providers are available, selected by secrets.backend:
//
//   - env: the value of the environment variable <env_prefix><name>. Intended
//     for local development and containers with injected secrets.
//   - aws: AWS Secrets Manager GetSecretValue with the name as secret id.
//     secrets.aws_endpoint overrides the service endpoint (LocalStack).
//
// Secret values are never logged. Missing secrets map to ErrSecretNotFound in
// both providers.
package secrets
