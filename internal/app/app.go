// Package app runs a sync: load, validate, sync and report.
package app

import (
	"context"
	"fmt"
	"io"
	"maps"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"k8s.io/apimachinery/pkg/util/sets"
	"k8s.io/utils/clock"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/giantswarm/chronosphere-sync/internal/version"
	"github.com/giantswarm/chronosphere-sync/pkg/chronosphere"
	"github.com/giantswarm/chronosphere-sync/pkg/config"
	"github.com/giantswarm/chronosphere-sync/pkg/domain/asset"
	"github.com/giantswarm/chronosphere-sync/pkg/loader"
	"github.com/giantswarm/chronosphere-sync/pkg/metrics"
	"github.com/giantswarm/chronosphere-sync/pkg/report"
	"github.com/giantswarm/chronosphere-sync/pkg/syncer"
	"github.com/giantswarm/chronosphere-sync/pkg/validation"
)

const pushTimeout = 10 * time.Second

type Option func(*App)

// WithFilesystem reads the asset root from fs instead of the local disk.
func WithFilesystem(fs billy.Filesystem) Option {
	return func(a *App) {
		a.fs = fs
	}
}

func WithClock(c clock.Clock) Option {
	return func(a *App) {
		a.clock = c
	}
}

// WithClientOptions adds options to the API client.
func WithClientOptions(opts ...chronosphere.Option) Option {
	return func(a *App) {
		a.clientOpts = append(a.clientOpts, opts...)
	}
}

// App is a single sync run.
type App struct {
	cfg        config.Config
	out        io.Writer
	fs         billy.Filesystem
	clock      clock.Clock
	clientOpts []chronosphere.Option
}

// New creates an App writing its report to out. cfg must be validated.
func New(cfg config.Config, out io.Writer, opts ...Option) *App {
	a := &App{
		cfg:   cfg,
		out:   out,
		clock: clock.RealClock{},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run loads, validates and syncs the asset tree, then prints the report. Local errors abort the
// run before any write. The returned error maps to an exit code with ExitCode.
func (a *App) Run(ctx context.Context) error {
	logger := log.FromContext(ctx).WithValues("tenant", a.cfg.Chronosphere.Tenant, "dryRun", a.cfg.Sync.DryRun)
	ctx = log.IntoContext(ctx, logger)
	started := a.clock.Now()

	loaded, err := a.load(ctx)
	if err != nil {
		return err
	}
	logger.Info("loaded assets", "assets", loaded.Set.Len(), "files", len(loaded.Files))

	// Field rules need no remote call, a broken tree is rejected before the API is contacted.
	if err := validation.CheckFields(loaded.Set); err != nil {
		return err
	}

	var (
		api      chronosphere.API
		resolver validation.Resolver
	)
	if !a.cfg.Sync.DryRun {
		client, err := a.newClient()
		if err != nil {
			return err
		}
		if err := client.Ping(ctx); err != nil {
			return preflightError(err)
		}
		api, resolver = client, client
	}

	tracker := asset.NewTracker(loaded.Set.Keys())
	if err := validation.New(resolver).Validate(ctx, loaded.Set, tracker); err != nil {
		return err
	}
	logger.Info("validated assets", "assets", tracker.Count(asset.StateValidated))

	service := syncer.NewService(api,
		syncer.WithConcurrency(a.cfg.Sync.Concurrency),
		syncer.WithDryRun(a.cfg.Sync.DryRun),
		syncer.WithClock(a.clock),
	)
	result := service.Sync(ctx, loaded.Set, tracker, a.selector(ctx, loaded))

	if err := report.Print(a.out, a.cfg.Sync.Output, result); err != nil {
		return err
	}

	syncErr := result.Err()
	a.recordRun(ctx, started, syncErr == nil)

	if syncErr != nil {
		logger.Info("sync finished with errors", "failed", len(result.Failed()), "duration", result.Duration())
		return syncErr
	}
	logger.Info("sync finished", "duration", result.Duration())
	return nil
}

func (a *App) load(ctx context.Context) (*loader.Result, error) {
	fs, root := a.fs, a.cfg.Sync.Root
	if fs == nil {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", config.ErrInvalidConfig, err)
		}
		fs, root = osfs.New("/"), abs
	}
	return loader.Load(ctx, fs, root, loader.WithTenant(a.cfg.Chronosphere.Tenant))
}

func (a *App) newClient() (*chronosphere.Client, error) {
	opts := []chronosphere.Option{
		chronosphere.WithTimeout(a.cfg.Chronosphere.RequestTimeout),
		chronosphere.WithMaxRetries(a.cfg.Chronosphere.MaxRetries),
		chronosphere.WithUserAgent(version.Get().UserAgent()),
	}
	client, err := chronosphere.New(a.cfg.Chronosphere.APIURL, a.cfg.Chronosphere.APIToken, append(opts, a.clientOpts...)...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", config.ErrInvalidConfig, err)
	}
	return client, nil
}

// selector restricts the run to the assets of the changed files. Paths are relative to the root,
// or start with it. A changed pack manifest selects every asset of its pack.
func (a *App) selector(ctx context.Context, loaded *loader.Result) syncer.Selector {
	if !a.cfg.Sync.ChangedOnly {
		return syncer.SelectAll
	}
	logger := log.FromContext(ctx)

	root := filepath.Clean(a.cfg.Sync.Root)
	loadedFiles := sets.New(loaded.Files...)
	files := sets.New[string]()
	packs := sets.New[string]()
	for _, file := range a.cfg.Sync.ChangedFiles {
		rel := filepath.Clean(file)
		if root != "." {
			if r, err := filepath.Rel(root, rel); err == nil && !strings.HasPrefix(r, "..") {
				rel = r
			}
		}
		rel = filepath.ToSlash(rel)

		if path.Base(rel) == loader.PackFile {
			if _, ok := loaded.Packs[path.Dir(rel)]; ok {
				packs.Insert(path.Dir(rel))
				continue
			}
		}
		if !loadedFiles.Has(rel) {
			logger.V(1).Info("changed file declares no assets", "file", file)
			continue
		}
		files.Insert(rel)
	}

	// Changes are reported per pack, files outside any pack are grouped under "".
	byPack := make(map[string][]string)
	for _, file := range sets.List(files) {
		dir, _ := loaded.PackDir(file)
		byPack[dir] = append(byPack[dir], file)
	}
	for _, dir := range sets.List(packs) {
		byPack[dir] = append(byPack[dir], loader.PackFile)
	}
	for _, dir := range slices.Sorted(maps.Keys(byPack)) {
		logger.Info("syncing changed pack", "pack", dir, "files", byPack[dir])
	}

	return func(candidate *asset.Asset) bool {
		if files.Has(candidate.Source()) {
			return true
		}
		dir, ok := loaded.PackDir(candidate.Source())
		return ok && packs.Has(dir)
	}
}

// recordRun sets the run metrics and exports them when configured. Export failures are logged.
func (a *App) recordRun(ctx context.Context, started time.Time, success bool) {
	if a.cfg.Sync.DryRun || !a.cfg.Metrics.Enabled() {
		return
	}
	logger := log.FromContext(ctx)

	finished := a.clock.Now()
	metrics.LastRunDuration.Set(finished.Sub(started).Seconds())
	metrics.LastRunTimestamp.Set(float64(finished.Unix()))
	if success {
		metrics.LastRunSuccess.Set(1)
	} else {
		metrics.LastRunSuccess.Set(0)
	}

	if path := a.cfg.Metrics.TextfilePath; path != "" {
		if err := metrics.WriteTextfile(path); err != nil {
			logger.Error(err, "failed to write metrics textfile")
		}
	}

	if url := a.cfg.Metrics.PushgatewayURL; url != "" {
		// The run context may already be cancelled.
		pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), pushTimeout)
		defer cancel()
		if err := metrics.Push(pushCtx, url, a.cfg.Chronosphere.Tenant); err != nil {
			logger.Error(err, "failed to push metrics")
		}
	}
}

func preflightError(err error) error {
	if chronosphere.IsUnauthorized(err) {
		return &asset.AuthError{Err: err}
	}
	return fmt.Errorf("preflight check failed: %w", err)
}
