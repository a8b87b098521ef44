// Copyright Safing ICS Technologies GmbH. Use of this source code is governed by the AGPL license that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/safing/dbinit/bootstrap"
	"github.com/safing/dbinit/config"
	"github.com/safing/dbinit/info"
	"github.com/safing/dbinit/initerr"
	"github.com/safing/dbinit/locale"
	"github.com/safing/dbinit/log"
	"github.com/safing/dbinit/metrics"
	"github.com/safing/dbinit/run"
	"github.com/safing/dbinit/syncer"
)

// DataDirEnv names the environment variable holding the default data directory.
const DataDirEnv = "DBINIT_DATA"

type cliFlags struct {
	dataDir      string
	walDir       string
	syncMethod   string
	syncWorkers  int
	syncOnly     bool
	noSync       bool
	settingsFile string
	show         bool
	logLevel     string
	pkgLogLevels string
	debug        bool
	printMetrics bool
	version      bool
	noChecksums  bool
	printStack   bool

	cfg config.BootstrapConfig
}

func main() {
	info.Set("dbinit", "", "AGPLv3")

	fs, flags := newFlagSet()
	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		os.Exit(initerr.KindConfig.ExitCode())
	}

	switch {
	case flags.version:
		fmt.Println(info.FullVersion())
		return
	case flags.show:
		os.Exit(show(os.Stdout, fs, flags))
	}

	if level := log.ParseLevel(flags.logLevel); level != 0 {
		log.SetLogLevel(level)
	}
	if flags.debug {
		log.SetLogLevel(log.DebugLevel)
	}
	pkgLevels, err := parsePkgLevels(flags.pkgLogLevels)
	if err != nil {
		run.PrintError(os.Stderr, err)
		os.Exit(initerr.ExitCode(err))
	}
	log.SetPkgLevels(pkgLevels)
	run.PrintStackOnExit = flags.printStack

	code := run.Run(func() error {
		return execute(fs, flags)
	})
	if flags.printMetrics {
		metrics.WritePrometheus(os.Stdout, true)
	}
	os.Exit(code)
}

func newFlagSet() (*flag.FlagSet, *cliFlags) {
	f := &cliFlags{}
	fs := flag.NewFlagSet("dbinit", flag.ContinueOnError)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `dbinit creates a new database data directory.

Usage:
  dbinit [options] [-D] DATADIR
  dbinit --sync-only -D DATADIR

Options:
`)
		fs.PrintDefaults()
	}

	fs.StringVarP(&f.dataDir, "pgdata", "D", os.Getenv(DataDirEnv), "location of the data directory (env "+DataDirEnv+")")
	fs.StringVarP(&f.walDir, "waldir", "X", "", "absolute location of the write-ahead log directory")

	fs.StringVar((*string)(&f.cfg.Locale.Provider), config.KeyLocaleProvider, "", "locale provider for new databases: libc or icu (default libc)")
	fs.StringVar(&f.cfg.AllLocales, config.KeyLocale, "", "default locale for every category")
	fs.StringVar(&f.cfg.Locale.Categories.Collate, config.KeyLcCollate, "", "LC_COLLATE for new databases")
	fs.StringVar(&f.cfg.Locale.Categories.CType, config.KeyLcCType, "", "LC_CTYPE for new databases")
	fs.StringVar(&f.cfg.Locale.Categories.Messages, config.KeyLcMessages, "", "LC_MESSAGES for new databases")
	fs.StringVar(&f.cfg.Locale.Categories.Monetary, config.KeyLcMonetary, "", "LC_MONETARY for new databases")
	fs.StringVar(&f.cfg.Locale.Categories.Numeric, config.KeyLcNumeric, "", "LC_NUMERIC for new databases")
	fs.StringVar(&f.cfg.Locale.Categories.Time, config.KeyLcTime, "", "LC_TIME for new databases")
	fs.StringVar(&f.cfg.Locale.ICULocale, config.KeyICULocale, "", "ICU locale ID for new databases")
	fs.StringVarP(&f.cfg.Encoding, config.KeyEncoding, "E", "", "default encoding for new databases")
	fs.StringVarP(&f.cfg.Superuser, config.KeyUsername, "U", "", "database superuser name")
	fs.BoolVarP(&f.cfg.DataChecksums, config.KeyDataChecksums, "k", false, "use data page checksums")
	fs.BoolVar(&f.noChecksums, "no-data-checksums", false, "do not use data page checksums")
	fs.BoolVarP(&f.cfg.GroupAccess, config.KeyGroupAccess, "g", false, "allow group read/write access to the data directory")
	fs.IntVar(&f.cfg.WALSegmentSizeMB, config.KeyWALSegmentSize, 0, "size of WAL segments, in megabytes (default 16)")

	fs.StringVar(&f.syncMethod, "sync-method", string(syncer.MethodFsync), "method for syncing files to disk: fsync or syncfs")
	fs.IntVar(&f.syncWorkers, "sync-workers", 0, "number of files flushed concurrently (default GOMAXPROCS)")
	fs.BoolVarP(&f.syncOnly, "sync-only", "S", false, "only sync an existing data directory to disk, then exit")
	fs.BoolVarP(&f.noSync, "no-sync", "N", false, "do not wait for changes to be written safely to disk")

	fs.StringVar(&f.settingsFile, "settings", "", "JSON or YAML file with default settings")
	fs.BoolVarP(&f.show, "show", "s", false, "show the effective settings as JSON and exit")
	fs.StringVar(&f.logLevel, "log", "info", "log level: trace, debug, info, warning, error or critical")
	fs.StringVar(&f.pkgLogLevels, "flog", "", "set log level of packages: syncer=trace,catalog=debug")
	fs.BoolVarP(&f.debug, "debug", "d", false, "generate lots of debugging output")
	fs.BoolVar(&f.printMetrics, "print-metrics", false, "print metrics in the prometheus format after the run")
	fs.BoolVar(&f.printStack, "print-stack-on-exit", false, "print goroutine stacks when interrupted")
	fs.BoolVarP(&f.version, "version", "V", false, "output version information, then exit")

	return fs, f
}

// loadConfig layers the settings file and the changed flags on top of each
// other. Flags win.
func loadConfig(fs *flag.FlagSet, flags *cliFlags) (*config.BootstrapConfig, error) {
	cfg := &config.BootstrapConfig{}
	if flags.settingsFile != "" {
		if err := cfg.LoadFile(flags.settingsFile); err != nil {
			return nil, initerr.Wrap(initerr.KindConfig, err, flags.settingsFile, "could not load settings")
		}
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case config.KeyLocaleProvider:
			cfg.Locale.Provider = flags.cfg.Locale.Provider
		case config.KeyLocale:
			cfg.AllLocales = flags.cfg.AllLocales
		case config.KeyLcCollate:
			cfg.Locale.Categories.Collate = flags.cfg.Locale.Categories.Collate
		case config.KeyLcCType:
			cfg.Locale.Categories.CType = flags.cfg.Locale.Categories.CType
		case config.KeyLcMessages:
			cfg.Locale.Categories.Messages = flags.cfg.Locale.Categories.Messages
		case config.KeyLcMonetary:
			cfg.Locale.Categories.Monetary = flags.cfg.Locale.Categories.Monetary
		case config.KeyLcNumeric:
			cfg.Locale.Categories.Numeric = flags.cfg.Locale.Categories.Numeric
		case config.KeyLcTime:
			cfg.Locale.Categories.Time = flags.cfg.Locale.Categories.Time
		case config.KeyICULocale:
			cfg.Locale.ICULocale = flags.cfg.Locale.ICULocale
		case config.KeyEncoding:
			cfg.Encoding = flags.cfg.Encoding
		case config.KeyUsername:
			cfg.Superuser = flags.cfg.Superuser
		case config.KeyDataChecksums:
			cfg.DataChecksums = flags.cfg.DataChecksums
		case "no-data-checksums":
			if flags.noChecksums {
				cfg.DataChecksums = false
			}
		case config.KeyGroupAccess:
			cfg.GroupAccess = flags.cfg.GroupAccess
		case config.KeyWALSegmentSize:
			cfg.WALSegmentSizeMB = flags.cfg.WALSegmentSizeMB
		}
	})

	return cfg, nil
}

// parsePkgLevels parses a list like "syncer=trace,catalog=debug".
func parsePkgLevels(value string) (map[string]log.Severity, error) {
	levels := make(map[string]log.Severity)
	for _, pair := range strings.Split(value, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		pkg, name, ok := strings.Cut(pair, "=")
		level := log.ParseLevel(name)
		if !ok || pkg == "" || level == 0 {
			return nil, initerr.New(initerr.KindConfig, nil, pair, "invalid package log level %q", pair)
		}
		levels[pkg] = level
	}
	return levels, nil
}

func execute(fs *flag.FlagSet, flags *cliFlags) error {
	if flags.syncOnly && flags.noSync {
		return initerr.New(initerr.KindConfig, bootstrap.ErrSyncOnlyNoSync, "",
			"options --sync-only and --no-sync cannot be used together")
	}

	dataDir := flags.dataDir
	if fs.NArg() > 0 {
		if dataDir != "" && fs.Changed("pgdata") {
			return initerr.New(initerr.KindConfig, nil, fs.Arg(0), "data directory given twice: %q and %q", dataDir, fs.Arg(0))
		}
		dataDir = fs.Arg(0)
	}

	method, err := syncer.ParseMethod(flags.syncMethod)
	if err != nil {
		return err
	}

	opts := bootstrap.Options{
		DataDir:     dataDir,
		WALDir:      flags.walDir,
		SyncMethod:  method,
		SyncWorkers: flags.syncWorkers,
		SyncOnly:    flags.syncOnly,
		NoSync:      flags.noSync,
	}
	if !flags.syncOnly {
		opts.Config, err = loadConfig(fs, flags)
		if err != nil {
			return err
		}
	}

	result, err := bootstrap.Run(opts)
	if err != nil {
		return err
	}

	if result != nil {
		log.Infof(
			"main: success, data directory %s uses %s with encoding %s, checksums %s",
			result.Plan.DataDir, localeSummary(result.Locale), result.Locale.Encoding.Name, enabled(result.Record.DataChecksums()),
		)
	}
	return nil
}

func show(w io.Writer, fs *flag.FlagSet, flags *cliFlags) int {
	cfg, err := loadConfig(fs, flags)
	if err != nil {
		run.PrintError(os.Stderr, err)
		return initerr.ExitCode(err)
	}
	data, err := cfg.ApplyDefaults(nil).Export()
	if err != nil {
		run.PrintError(os.Stderr, err)
		return initerr.KindUnknown.ExitCode()
	}
	fmt.Fprintln(w, string(data))
	return 0
}

func localeSummary(r *locale.Resolved) string {
	if r.Provider == locale.ProviderICU {
		return fmt.Sprintf("ICU locale %q", r.ICULocale)
	}
	return fmt.Sprintf("libc locale %q", r.Categories.Collate)
}

func enabled(b bool) string {
	if b {
		return "enabled"
	}
	return "disabled"
}
