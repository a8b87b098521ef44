// Copyright Safing ICS Technologies GmbH. Use of this source code is governed by the AGPL license that can be found in the LICENSE file.

/*
Package bootstrap runs the steps that create a data directory.

A full initialization validates the configuration, checks the target
locations, creates the directory tree and the initial catalog, applies the
permission profile, writes the control file and finally flushes everything
to stable storage. The sync-only mode only checks that the data directory
was initialized before and flushes it again.

Steps run one after another and a failing step aborts the run without
undoing earlier steps. The next run judges what was left behind.
*/
package bootstrap

import (
	"errors"
	"time"

	"github.com/davecgh/go-spew/spew"

	"github.com/safing/dbinit/catalog"
	"github.com/safing/dbinit/config"
	"github.com/safing/dbinit/controlfile"
	"github.com/safing/dbinit/dataroot"
	"github.com/safing/dbinit/initerr"
	"github.com/safing/dbinit/layout"
	"github.com/safing/dbinit/locale"
	"github.com/safing/dbinit/log"
	"github.com/safing/dbinit/metrics"
	"github.com/safing/dbinit/syncer"
	"github.com/safing/dbinit/utils"
)

// ErrSyncOnlyNoSync is returned when a sync-only run is asked not to sync.
var ErrSyncOnlyNoSync = errors.New("sync-only and no-sync are mutually exclusive")

// Options configures a run.
type Options struct {
	// Config is the bootstrap configuration. Unset values are filled in
	// from the environment. Ignored in sync-only mode.
	Config *config.BootstrapConfig

	DataDir string
	WALDir  string

	SyncMethod  syncer.Method
	SyncWorkers int

	// SyncOnly flushes an existing data directory without changing it.
	SyncOnly bool
	// NoSync skips flushing. The result is not safe against crashes.
	NoSync bool

	// Catalog writes the initial catalog. Defaults to catalog.New().
	Catalog catalog.Bootstrapper

	// Getenv is used to look up locale defaults. Defaults to os.Getenv.
	Getenv func(string) string
}

// Result describes a successful full initialization.
type Result struct {
	Plan     *dataroot.Plan
	Config   *config.BootstrapConfig
	Locale   *locale.Resolved
	Record   *controlfile.Record
	Profile  utils.PermissionProfile
	Synced   bool
	Duration time.Duration
}

// Run executes a full initialization or, with SyncOnly, a sync of an
// existing data directory. Errors are *initerr.Error values.
func Run(opts Options) (*Result, error) {
	if opts.SyncOnly && opts.NoSync {
		return nil, initerr.New(initerr.KindConfig, ErrSyncOnlyNoSync, "",
			"options --sync-only and --no-sync cannot be used together")
	}
	if opts.SyncOnly {
		return nil, runSyncOnly(opts)
	}
	return runInit(opts)
}

func runSyncOnly(opts Options) error {
	plan, err := step("resolve", func() (*dataroot.Plan, error) {
		return dataroot.Resolve(opts.DataDir, "")
	})
	if err != nil {
		return err
	}
	if _, err := step("guard", func() (struct{}, error) {
		return struct{}{}, dataroot.CheckForSync(plan)
	}); err != nil {
		return err
	}

	return flush(plan, opts)
}

func runInit(opts Options) (*Result, error) {
	started := time.Now()

	cfg := opts.Config
	if cfg == nil {
		cfg = &config.BootstrapConfig{}
	}
	cfg = cfg.ApplyDefaults(opts.Getenv)
	if log.GetLogLevel() == log.TraceLevel {
		log.Tracef("bootstrap: effective configuration:\n%s", spew.Sdump(cfg))
	}

	resolved, err := step("validate", cfg.Validate)
	if err != nil {
		return nil, err
	}
	log.Infof("bootstrap: locale %s, encoding %s", resolved.Provider, resolved.Encoding.Name)

	plan, err := step("resolve", func() (*dataroot.Plan, error) {
		return dataroot.Resolve(opts.DataDir, opts.WALDir)
	})
	if err != nil {
		return nil, err
	}

	if _, err := step("guard", func() (struct{}, error) {
		return struct{}{}, dataroot.CheckForInit(plan)
	}); err != nil {
		return nil, err
	}

	// Nothing may be created if the flush cannot happen afterwards.
	if !opts.NoSync {
		if err := syncer.Supported(syncMethod(opts)); err != nil {
			return nil, err
		}
	}

	if _, err := step("layout", func() (struct{}, error) {
		return struct{}{}, layout.Build(plan)
	}); err != nil {
		return nil, err
	}

	bootstrapper := opts.Catalog
	if bootstrapper == nil {
		bootstrapper = catalog.New()
	}
	if _, err := step("catalog", func() (struct{}, error) {
		return struct{}{}, bootstrapper.Bootstrap(plan, cfg, resolved)
	}); err != nil {
		return nil, err
	}

	profile := utils.ProfileFor(cfg.GroupAccess)
	if _, err := step("permissions", func() (struct{}, error) {
		return struct{}{}, applyProfile(plan, profile)
	}); err != nil {
		return nil, err
	}

	record, err := step("controlfile", func() (*controlfile.Record, error) {
		record, err := controlfile.NewRecord(cfg, resolved)
		if err != nil {
			return nil, initerr.Wrap(initerr.KindIO, err, plan.DataDir, "could not create control file")
		}
		return record, controlfile.Write(plan.DataDir, record, profile.FileMode())
	})
	if err != nil {
		return nil, err
	}

	result := &Result{
		Plan:    plan,
		Config:  cfg,
		Locale:  resolved,
		Record:  record,
		Profile: profile,
	}

	if opts.NoSync {
		log.Warning("bootstrap: sync skipped; the data directory may be corrupt if the operating system crashes")
	} else {
		if err := flush(plan, opts); err != nil {
			return nil, err
		}
		result.Synced = true
	}

	result.Duration = time.Since(started)
	log.Infof("bootstrap: created data directory %s in %s", plan.DataDir, result.Duration.Round(time.Millisecond))
	return result, nil
}

func applyProfile(plan *dataroot.Plan, profile utils.PermissionProfile) error {
	if err := utils.ApplyProfile(plan.DataDir, profile); err != nil {
		return initerr.Wrap(initerr.KindIO, err, plan.DataDir, "could not set permissions of data directory")
	}
	log.Debugf("bootstrap: applied %s permissions to %s", profile, plan.DataDir)
	return nil
}

func flush(plan *dataroot.Plan, opts Options) error {
	metrics.RegisterDiskUsage("data", plan.DataDir)
	if plan.Relocated() {
		metrics.RegisterDiskUsage("wal", plan.WALTarget())
	}

	_, err := step("sync", func() (struct{}, error) {
		return struct{}{}, syncer.Sync(plan.DataDir, syncer.Options{
			Method:  syncMethod(opts),
			Workers: opts.SyncWorkers,
		})
	})
	return err
}

func syncMethod(opts Options) syncer.Method {
	if opts.SyncMethod == "" {
		return syncer.MethodFsync
	}
	return opts.SyncMethod
}

// step runs fn and records its duration.
func step[T any](name string, fn func() (T, error)) (T, error) {
	started := time.Now()
	defer metrics.ObserveStep(name, started)

	log.Tracef("bootstrap: starting step %s", name)
	return fn()
}
