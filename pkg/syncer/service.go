// Package syncer reconciles a validated asset set with the configuration API.
package syncer

import (
	"context"

	"golang.org/x/sync/errgroup"
	"k8s.io/utils/clock"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/giantswarm/chronosphere-sync/pkg/chronosphere"
	"github.com/giantswarm/chronosphere-sync/pkg/domain/asset"
	"github.com/giantswarm/chronosphere-sync/pkg/metrics"
)

const defaultConcurrency = 4

// Selector reports whether an asset is part of the run. Unselected assets are skipped.
type Selector func(a *asset.Asset) bool

// SelectAll selects every asset.
func SelectAll(*asset.Asset) bool { return true }

// Option configures a Service.
type Option func(*Service)

// WithConcurrency bounds the number of assets of a tier synced at once.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithDryRun skips every remote call and reports each asset as skipped.
func WithDryRun(dryRun bool) Option {
	return func(s *Service) {
		s.dryRun = dryRun
	}
}

// WithClock sets the clock used to time runs.
func WithClock(c clock.PassiveClock) Option {
	return func(s *Service) {
		s.clock = c
	}
}

// Service syncs assets tier by tier: teams, collections, monitors, then notification policies.
type Service struct {
	api         chronosphere.API
	concurrency int
	dryRun      bool
	clock       clock.PassiveClock
}

// NewService creates a Service. api may be nil in dry-run mode.
func NewService(api chronosphere.API, opts ...Option) *Service {
	s := &Service{
		api:         api,
		concurrency: defaultConcurrency,
		clock:       clock.RealClock{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sync upserts every validated asset of set. A failure never stops other assets, but the assets
// referencing a failed asset of an earlier tier are skipped. After cancellation the assets not yet
// started are skipped.
func (s *Service) Sync(ctx context.Context, set *asset.Set, tracker *asset.Tracker, selector Selector) *Result {
	logger := log.FromContext(ctx)
	if selector == nil {
		selector = SelectAll
	}

	result := &Result{DryRun: s.dryRun, StartedAt: s.clock.Now()}
	store := newOutcomes()

	for _, kind := range asset.Kinds {
		assets := set.ByKind(kind)
		if len(assets) == 0 {
			continue
		}
		logger.V(1).Info("syncing tier", "kind", kind.String(), "assets", len(assets))

		g := new(errgroup.Group)
		g.SetLimit(s.concurrency)
		for _, a := range assets {
			if outcome, skip := s.precheck(ctx, a, tracker, selector, store); skip {
				store.set(outcome)
				continue
			}

			g.Go(func() error {
				store.set(s.syncAsset(ctx, a, tracker))
				return nil
			})
		}
		_ = g.Wait()
	}

	for _, a := range set.All() {
		outcome, _ := store.get(a.Key())
		result.Outcomes = append(result.Outcomes, outcome)
		metrics.AssetsSynced.WithLabelValues(a.Kind().String(), string(outcome.Action)).Inc()
	}
	result.FinishedAt = s.clock.Now()

	return result
}

// precheck returns the skipped outcome of an asset that must not be synced.
func (s *Service) precheck(ctx context.Context, a *asset.Asset, tracker *asset.Tracker, selector Selector, store *outcomes) (Outcome, bool) {
	key := a.Key()
	skipped := func(reason string, err error) (Outcome, bool) {
		return Outcome{Key: key, Action: ActionSkipped, Reason: reason, Err: err}, true
	}

	if state, _ := tracker.State(key); state != asset.StateValidated {
		return skipped(ReasonNotValidated, nil)
	}
	if s.dryRun {
		return skipped(ReasonDryRun, nil)
	}
	if !selector(a) {
		return skipped(ReasonNotSelected, nil)
	}

	for _, ref := range a.References() {
		if ref.Target.Kind.Tier() >= key.Kind.Tier() {
			continue
		}
		dep, ok := store.get(ref.Target)
		if !ok {
			continue
		}
		if dep.Action == ActionFailed || dep.Reason == ReasonDependencyFailed {
			return skipped(ReasonDependencyFailed, &asset.DependencyFailedError{Key: key, Dependency: ref.Target})
		}
	}

	if ctx.Err() != nil {
		return skipped(ReasonCancelled, nil)
	}
	return Outcome{}, false
}

func (s *Service) syncAsset(ctx context.Context, a *asset.Asset, tracker *asset.Tracker) Outcome {
	logger := log.FromContext(ctx)
	key := a.Key()

	if ctx.Err() != nil {
		return Outcome{Key: key, Action: ActionSkipped, Reason: ReasonCancelled}
	}

	if err := tracker.Transition(key, asset.StateSyncing); err != nil {
		return Outcome{Key: key, Action: ActionFailed, Err: err}
	}

	action, err := s.upsert(ctx, a)
	if err != nil {
		logger.Error(err, "failed to sync asset", "asset", key.String())
		_ = tracker.Transition(key, asset.StateFailed)
		return Outcome{Key: key, Action: ActionFailed, Err: err}
	}

	_ = tracker.Transition(key, asset.StateApplied)
	return Outcome{Key: key, Action: action}
}
