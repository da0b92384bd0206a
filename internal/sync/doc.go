// Fudosync - Incremental extraction engine for the Fudo POS API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fudosync

/*
Package sync is the Fudo extraction engine.

It pulls paginated collections from the Fudo POS API for every active branch,
chooses per collection how much to re-read, merges overlapping reads and
appends each new payload version to the raw store. A per (branch, entity)
watermark makes every pass incremental where the API allows it.

Key Components:

  - Fetcher: paginated JSON:API client with per-page retries, exponential
    backoff, Retry-After support, a circuit breaker and an optional rate limit
  - SelectPlan / Catalog: maps each collection class to a sync strategy
    (full reload, incremental, hybrid)
  - Reconcile: merges overlapping batches by record id, later batch wins
  - Loader: canonical JSON, SHA-256 checksum and source timestamp per record,
    stored with insert-if-absent semantics
  - Authenticator: per-branch bearer tokens with a refresh grace period
  - Manager: sequential driver over branches and entities

Strategies:

	Class                 First run     Later runs
	non_filterable        full reload   full reload
	filterable_immutable  full reload   filter createdAt >= watermark
	mutable_aggregate     full reload   last N pages + filter createdAt >= watermark

Error Handling:

Failures carry an ErrorKind. RetryableTransport is retried inside the
fetcher; what escapes it is RetriesExhausted, AuthInvalid, BadRequest or
PersistenceFailure. A token that cannot be obtained (AuthInvalid, or
CredentialsUnavailable when the secret store has no credentials) aborts the
branch, as does AuthInvalid while fetching. Other kinds abort only the
entity. The watermark is advanced only after the batch was stored,
so a failed entity re-reads the same window on the next pass.

Usage Example:

	fetcher := sync.NewFetcher(cfg.Fudo, cfg.Fetch)
	auth := sync.NewAuthenticator(cfg.Fudo, cfg.Sync.TokenGracePeriod, provider, store)
	manager := sync.NewManager(cfg.Sync, entities, sync.Deps{
		Fetcher:    fetcher,
		Tokens:     auth,
		Loader:     sync.NewLoader(db),
		Watermarks: store,
		Branches:   db,
	})
	summary, err := manager.RunOnce(ctx)
*/
package sync
