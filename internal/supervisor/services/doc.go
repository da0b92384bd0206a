// Fudosync - Incremental extraction engine for the Fudo POS API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fudosync

/*
Package services adapts fudosync components to suture.Service.

Each wrapper translates one lifecycle pattern into suture's
Serve(ctx) error contract:

  - SyncService: Start/Stop managers (sync.Manager)
  - HTTPServerService: blocking ListenAndServe with graceful Shutdown
  - MaintenanceService: named periodic tasks on a ticker

Wrappers depend on small interfaces rather than concrete types so they can
be tested with fakes and do not import the packages they supervise.

Returning an error from Serve makes suture restart the service under the
tree's backoff policy. Returning ctx.Err() after cancellation is the normal
shutdown path.
*/
//nolint:staticcheck // File documentation, not package doc
package services
