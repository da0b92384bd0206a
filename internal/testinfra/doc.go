// Fudosync - Incremental extraction engine for the Fudo POS API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fudosync

// Package testinfra provides test doubles and containers shared by the
// package tests.
//
// # Fake Fudo API
//
// FakeFudo is an httptest server implementing the subset of the Fudo API the
// engine talks to: the token exchange and paginated JSON:API collections with
// the gte timestamp filter. Tests seed collections, script failures and then
// inspect the recorded requests:
//
//	fake := testinfra.NewFakeFudo(t)
//	fake.SetCollection("sales", testinfra.GenerateRecords(1317, start, time.Minute))
//	fake.FailNext("sales", 429, 429)
//
//	cfg.Fudo.APIBaseURL = fake.URL()
//	cfg.Fudo.AuthEndpoint = fake.AuthURL()
//
// # LocalStack
//
// Behind the integration build tag, NewLocalStackContainer starts LocalStack
// with testcontainers-go so the AWS secrets provider can be exercised against
// a real Secrets Manager API:
//
//	go test -tags=integration ./internal/secrets/...
package testinfra
