// Fudosync - Incremental extraction engine for the Fudo POS API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fudosync

/*
manager.go - Sequential extraction driver

The Manager runs extraction passes. A pass walks every active branch one at a
time and, within a branch, every configured entity one at a time:

 1. Acquire a bearer token for the branch (cached or freshly exchanged).
 2. For each entity: read the watermark, select a plan, fetch, reconcile,
    load, then advance the watermark to the instant captured before the
    first fetch request.

Failure policy:
  - An entity failure is logged and recorded in the summary; the pass moves
    on to the next entity. The watermark is left untouched.
  - A token failure, or an AuthInvalid answer while fetching, aborts the
    branch; the pass moves on to the next branch.

Lifecycle Methods:
  - RunOnce(): one pass, rejected with ErrRunInProgress while another is active
  - Start(): optional initial pass plus a ticker loop
  - Stop(): stop the loop, cancel the in-flight pass and wait for it
  - TriggerSync(): synchronous manual pass
  - TriggerAsync(): background manual pass used by the HTTP surface,
    detached from the request but cancelled by Stop

Thread Safety:
  - runMu: Prevents overlapping passes (TryLock, never queues)
  - mu: Protects running, life, lastSync and lastSummary
*/

//nolint:staticcheck // File documentation, not package doc
package sync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tomtom215/fudosync/internal/config"
	"github.com/tomtom215/fudosync/internal/logging"
	"github.com/tomtom215/fudosync/internal/metrics"
	"github.com/tomtom215/fudosync/internal/models"
	"github.com/tomtom215/fudosync/internal/state"
)

// ErrRunInProgress is returned when a pass is requested while one is running.
var ErrRunInProgress = errors.New("sync run already in progress")

// BranchSource lists the branches to extract. Implemented by database.DB.
type BranchSource interface {
	ActiveBranches(ctx context.Context) ([]models.Branch, error)
}

// PostRunHook runs after every pass, once all branches were processed.
type PostRunHook interface {
	AfterRun(ctx context.Context) error
}

// TokenSource provides bearer tokens per branch.
type TokenSource interface {
	Token(ctx context.Context, branch models.Branch) (string, error)
	Invalidate(ctx context.Context, branchID string) error
}

// CollectionFetcher performs one paginated fetch.
type CollectionFetcher interface {
	Fetch(ctx context.Context, token string, req FetchRequest) (models.FetchBatch, error)
}

// BatchLoader persists a reconciled batch.
type BatchLoader interface {
	Load(ctx context.Context, branchID string, spec models.EntitySpec, batch models.FetchBatch) (int, error)
}

// Deps are the collaborators of a Manager.
type Deps struct {
	Fetcher    CollectionFetcher
	Tokens     TokenSource
	Loader     BatchLoader
	Watermarks state.WatermarkStore
	Branches   BranchSource
	PostRun    PostRunHook // optional
}

// Manager drives extraction passes over all active branches.
type Manager struct {
	cfg      config.SyncConfig
	entities []models.EntitySpec
	deps     Deps

	logger *logging.SyncLogger
	now    func() time.Time
	sleep  SleepFunc

	mu          sync.RWMutex
	runMu       sync.Mutex
	running     bool
	inProgress  atomic.Bool
	stopChan    chan struct{}
	life        context.Context // cancelled by Stop
	cancelLife  context.CancelFunc
	wg          sync.WaitGroup
	lastSync    time.Time
	lastSummary *models.RunSummary
}

// NewManager creates a Manager extracting entities with the given collaborators.
func NewManager(cfg config.SyncConfig, entities []models.EntitySpec, deps Deps) *Manager {
	logging.Info().
		Dur("interval", cfg.Interval).
		Int("recent_window_pages", cfg.RecentWindowPages).
		Dur("inter_branch_delay", cfg.InterBranchDelay).
		Int("entities", len(entities)).
		Msg("Sync manager config loaded")

	life, cancelLife := context.WithCancel(context.Background())
	return &Manager{
		cfg:        cfg,
		entities:   entities,
		deps:       deps,
		logger:     logging.NewSyncLogger(),
		now:        time.Now,
		sleep:      sleepContext,
		stopChan:   make(chan struct{}),
		life:       life,
		cancelLife: cancelLife,
	}
}

// Start performs an optional initial pass and then a pass every interval.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return fmt.Errorf("sync manager is already running")
	}
	logging.Info().Msg("Starting sync manager...")
	m.running = true
	m.stopChan = make(chan struct{})
	if m.life.Err() != nil {
		m.life, m.cancelLife = context.WithCancel(context.Background())
	}
	loopCtx, cancelLoop := context.WithCancel(ctx)
	stopAfter := context.AfterFunc(m.life, cancelLoop)
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer stopAfter()
		defer cancelLoop()
		m.syncLoop(loopCtx)
	}()
	return nil
}

// Stop stops the loop, cancels any in-flight pass, scheduled or triggered,
// and waits for it to return.
func (m *Manager) Stop() error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return fmt.Errorf("sync manager is not running")
	}
	m.running = false
	close(m.stopChan)
	m.cancelLife()
	m.mu.Unlock()

	logging.Info().Msg("Stopping sync manager...")
	m.wg.Wait()
	logging.Info().Msg("Sync manager stopped")
	return nil
}

// Running reports whether the loop is active.
func (m *Manager) Running() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

// LastSyncTime returns the end of the last completed pass.
func (m *Manager) LastSyncTime() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastSync
}

// LastSummary returns the summary of the last completed pass, or nil.
func (m *Manager) LastSummary() *models.RunSummary {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastSummary
}

// InProgress reports whether a pass is executing right now.
func (m *Manager) InProgress() bool {
	return m.inProgress.Load()
}

// TriggerSync runs one pass now. It returns ErrRunInProgress instead of
// waiting when a pass is already active.
func (m *Manager) TriggerSync(ctx context.Context) (*models.RunSummary, error) {
	return m.RunOnce(ctx)
}

// TriggerAsync starts a pass in the background and returns immediately.
// The pass outlives ctx and keeps its values, but is cancelled by Stop.
func (m *Manager) TriggerAsync(ctx context.Context) error {
	if !m.runMu.TryLock() {
		return ErrRunInProgress
	}
	m.inProgress.Store(true)

	m.mu.RLock()
	life := m.life
	m.mu.RUnlock()

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stopAfter := context.AfterFunc(life, cancel)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer m.runMu.Unlock()
		defer m.inProgress.Store(false)
		defer stopAfter()
		defer cancel()
		if _, err := m.run(runCtx); err != nil {
			logging.Error().Err(err).Msg("Triggered sync failed")
		}
	}()
	return nil
}

func (m *Manager) syncLoop(ctx context.Context) {
	defer m.wg.Done()

	if m.cfg.RunOnStartup {
		m.runScheduled(ctx)
	}

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopChan:
			return
		case <-ticker.C:
			m.runScheduled(ctx)
		}
	}
}

func (m *Manager) runScheduled(ctx context.Context) {
	if _, err := m.RunOnce(ctx); err != nil {
		if errors.Is(err, ErrRunInProgress) {
			logging.Warn().Msg("Skipping scheduled sync, previous run still in progress")
			return
		}
		logging.Error().Err(err).Msg("Scheduled sync failed")
	}
}

// RunOnce performs one pass over all active branches. Branch and entity
// failures are reported in the summary, not as an error; the error is
// non-nil only when the pass could not start or ctx was cancelled.
func (m *Manager) RunOnce(ctx context.Context) (*models.RunSummary, error) {
	if !m.runMu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer m.runMu.Unlock()
	m.inProgress.Store(true)
	defer m.inProgress.Store(false)

	return m.run(ctx)
}

// run performs a pass. The caller holds runMu.
func (m *Manager) run(ctx context.Context) (*models.RunSummary, error) {
	metrics.TrackRun(true)
	defer metrics.TrackRun(false)

	ctx = logging.ContextWithNewCorrelationID(ctx)
	summary := &models.RunSummary{
		CorrelationID: logging.CorrelationIDFromContext(ctx),
		StartedAt:     m.now().UTC(),
	}

	branches, err := m.deps.Branches.ActiveBranches(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load active branches: %w", err)
	}
	if len(branches) == 0 {
		logging.Ctx(ctx).Warn().Msg("No active branches in the registry, nothing to extract")
	}
	m.logger.LogRunStarted(ctx, len(branches))

	var runErr error
	for i, branch := range branches {
		if i > 0 {
			if err := m.sleep(ctx, m.cfg.InterBranchDelay); err != nil {
				runErr = err
				break
			}
		}
		summary.Branches = append(summary.Branches, m.syncBranch(ctx, branch))
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
	}

	if m.deps.PostRun != nil && runErr == nil {
		if err := m.deps.PostRun.AfterRun(ctx); err != nil {
			logging.Ctx(ctx).Error().Err(err).Msg("Post-run hook failed")
		}
	}

	summary.FinishedAt = m.now().UTC()
	duration := summary.FinishedAt.Sub(summary.StartedAt)
	failedBranches, failedEntities := summary.FailureCounts()
	m.logger.LogRunFinished(ctx, duration, failedBranches, failedEntities)
	metrics.RecordRun(duration, failedBranches+failedEntities, summary.FinishedAt)

	m.mu.Lock()
	m.lastSync = summary.FinishedAt
	m.lastSummary = summary
	m.mu.Unlock()

	return summary, runErr
}

// syncBranch extracts every entity of branch.
func (m *Manager) syncBranch(ctx context.Context, branch models.Branch) models.BranchOutcome {
	ctx = logging.ContextWithBranch(ctx, branch.ID)
	outcome := models.BranchOutcome{BranchID: branch.ID}

	token, err := m.deps.Tokens.Token(ctx, branch)
	if err != nil {
		m.failBranch(ctx, &outcome, err)
		return outcome
	}

	for _, spec := range m.entities {
		if ctx.Err() != nil {
			break
		}
		entityOutcome, err := m.syncEntity(ctx, branch.ID, token, spec)
		outcome.Entities = append(outcome.Entities, entityOutcome)
		if err != nil && KindOf(err) == AuthInvalid {
			if invErr := m.deps.Tokens.Invalidate(ctx, branch.ID); invErr != nil {
				logging.Ctx(ctx).Error().Err(invErr).Msg("Failed to invalidate rejected token")
			}
			m.failBranch(ctx, &outcome, err)
			break
		}
	}
	return outcome
}

func (m *Manager) failBranch(ctx context.Context, outcome *models.BranchOutcome, err error) {
	kind := KindOf(err)
	outcome.Error = err.Error()
	outcome.ErrorKind = kind.String()
	metrics.BranchFailures.Inc()
	m.logger.LogBranchFailed(ctx, kind.String(), err)
}

// syncEntity runs one entity cycle. The watermark only advances after the
// batch was persisted.
func (m *Manager) syncEntity(ctx context.Context, branchID, token string, spec models.EntitySpec) (models.EntityOutcome, error) {
	ctx = logging.ContextWithEntity(ctx, spec.Name)
	started := m.now()
	outcome := models.EntityOutcome{Entity: spec.Name}

	fail := func(err error) (models.EntityOutcome, error) {
		kind := KindOf(err)
		outcome.Duration = m.now().Sub(started)
		outcome.Error = err.Error()
		outcome.ErrorKind = kind.String()
		metrics.RecordEntitySync(spec.Name, outcome.Fetched, 0, outcome.Duration, kind.String())
		m.logger.LogEntityFailed(ctx, kind.String(), err)
		return outcome, err
	}

	watermark, ok, err := m.deps.Watermarks.GetWatermark(ctx, branchID, spec.Name)
	if err != nil {
		return fail(persistenceError(spec.Name, fmt.Errorf("read watermark: %w", err)))
	}

	plan := SelectPlan(spec, watermark, ok, m.cfg.RecentWindowPages)
	outcome.Strategy = plan.Strategy.String()
	extractionStart := m.now().UTC()

	requests := plan.Requests()
	batches := make([]models.FetchBatch, 0, len(requests))
	for _, req := range requests {
		batch, err := m.deps.Fetcher.Fetch(ctx, token, req)
		if err != nil {
			return fail(err)
		}
		outcome.Fetched += len(batch)
		batches = append(batches, batch)
	}
	merged := Reconcile(batches...)

	inserted, err := m.deps.Loader.Load(ctx, branchID, spec, merged)
	if err != nil {
		return fail(err)
	}
	outcome.Inserted = inserted

	if err := m.deps.Watermarks.SetWatermark(ctx, branchID, spec.Name, extractionStart); err != nil {
		return fail(persistenceError(spec.Name, fmt.Errorf("advance watermark: %w", err)))
	}
	metrics.RecordWatermark(branchID, spec.Name, extractionStart)

	outcome.Duration = m.now().Sub(started)
	metrics.RecordEntitySync(spec.Name, outcome.Fetched, inserted, outcome.Duration, "")
	m.logger.LogEntityLoaded(ctx, outcome.Strategy, outcome.Fetched, inserted, outcome.Duration)
	return outcome, nil
}
