package bootstrap

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safing/dbinit/catalog"
	"github.com/safing/dbinit/config"
	"github.com/safing/dbinit/controlfile"
	"github.com/safing/dbinit/dataroot"
	"github.com/safing/dbinit/initerr"
	"github.com/safing/dbinit/locale"
	"github.com/safing/dbinit/syncer"
	"github.com/safing/dbinit/utils"
)

func noEnv(string) string { return "" }

func testOptions(dataDir string) Options {
	return Options{
		Config: &config.BootstrapConfig{
			Superuser:  "postgres",
			AllLocales: "C",
		},
		DataDir: dataDir,
		Getenv:  noEnv,
	}
}

func TestInitAndSyncOnly(t *testing.T) {
	t.Parallel()

	dataDir := filepath.Join(t.TempDir(), "data")
	opts := testOptions(dataDir)
	opts.Config.DataChecksums = true

	result, err := Run(opts)
	require.NoError(t, err)
	assert.True(t, result.Synced)
	assert.Equal(t, utils.Private, result.Profile)

	record, err := controlfile.Read(dataDir)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), record.ChecksumVersion)
	assert.Equal(t, locale.ProviderLibc, record.Provider)
	assert.Equal(t, result.Record.ClusterID, record.ClusterID)

	role, err := catalog.GetRole(dataDir, "postgres")
	require.NoError(t, err)
	assert.True(t, role.Superuser)

	// a second initialization is refused and changes nothing
	_, err = Run(opts)
	assert.ErrorIs(t, err, dataroot.ErrExistingDataDir)
	assert.Equal(t, initerr.KindState, initerr.KindOf(err))
	again, err := controlfile.Read(dataDir)
	require.NoError(t, err)
	assert.Equal(t, record, again)

	// sync-only is repeatable
	syncOnly := Options{DataDir: dataDir, SyncOnly: true}
	_, err = Run(syncOnly)
	require.NoError(t, err)
	_, err = Run(syncOnly)
	require.NoError(t, err)
}

func TestSyncOnlyMissing(t *testing.T) {
	t.Parallel()

	dataDir := filepath.Join(t.TempDir(), "missing")
	_, err := Run(Options{DataDir: dataDir, SyncOnly: true})
	assert.ErrorIs(t, err, dataroot.ErrMissingDataDir)
	assert.Equal(t, initerr.KindState, initerr.KindOf(err))
	assert.Contains(t, err.Error(), dataDir)

	// an empty directory was never initialized
	require.NoError(t, os.Mkdir(dataDir, 0o700))
	_, err = Run(Options{DataDir: dataDir, SyncOnly: true})
	assert.ErrorIs(t, err, dataroot.ErrNotInitialized)

	// a control file that does not verify is no initialized data directory
	require.NoError(t, os.Mkdir(filepath.Join(dataDir, "global"), 0o700))
	require.NoError(t, os.WriteFile(controlfile.Path(dataDir), []byte("control"), 0o600))
	_, err = Run(Options{DataDir: dataDir, SyncOnly: true})
	assert.ErrorIs(t, err, dataroot.ErrInvalidControl)
	assert.Equal(t, initerr.KindState, initerr.KindOf(err))

	_, err = Run(Options{DataDir: dataDir, SyncOnly: true, NoSync: true})
	assert.ErrorIs(t, err, ErrSyncOnlyNoSync)
	assert.Equal(t, initerr.KindConfig, initerr.KindOf(err))
}

func TestNonEmptyWALDir(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	walDir := filepath.Join(base, "wal")
	require.NoError(t, os.MkdirAll(walDir, 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(walDir, "stray"), nil, 0o600))

	opts := testOptions(filepath.Join(base, "data"))
	opts.WALDir = walDir
	_, err := Run(opts)
	assert.ErrorIs(t, err, dataroot.ErrNotEmpty)
	assert.Equal(t, initerr.KindState, initerr.KindOf(err))
	assert.Contains(t, err.Error(), walDir)

	// nothing was created
	_, err = os.Stat(opts.DataDir)
	assert.True(t, os.IsNotExist(err))
}

func TestRelativeWALDir(t *testing.T) {
	t.Parallel()

	opts := testOptions(filepath.Join(t.TempDir(), "does", "not", "exist"))
	opts.WALDir = "wal"
	_, err := Run(opts)
	assert.ErrorIs(t, err, dataroot.ErrWALDirNotAbsolute)
	assert.Equal(t, initerr.KindPath, initerr.KindOf(err))
}

func TestConfigErrorCreatesNothing(t *testing.T) {
	t.Parallel()

	opts := testOptions(filepath.Join(t.TempDir(), "data"))
	opts.Config.Locale.Provider = locale.ProviderICU
	_, err := Run(opts)
	assert.ErrorIs(t, err, locale.ErrLocaleRequired)
	assert.True(t, initerr.KindOf(err).IsConfig())

	_, err = os.Stat(opts.DataDir)
	assert.True(t, os.IsNotExist(err))
}

func TestICURootLocale(t *testing.T) {
	t.Parallel()

	opts := testOptions(filepath.Join(t.TempDir(), "data"))
	opts.Config.Encoding = locale.UTF8
	opts.Config.Locale = locale.Settings{Provider: locale.ProviderICU, ICULocale: "und"}
	opts.NoSync = true

	result, err := Run(opts)
	require.NoError(t, err)
	assert.False(t, result.Synced)

	record, err := controlfile.Read(opts.DataDir)
	require.NoError(t, err)
	assert.Equal(t, locale.ProviderICU, record.Provider)
	assert.Equal(t, "und", record.ICULocale)
	assert.Equal(t, uint32(0), record.ChecksumVersion)
}

func TestGroupAccessWithRelocatedWAL(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permissions and symlinks differ on windows")
	}
	t.Parallel()

	base := t.TempDir()
	opts := testOptions(filepath.Join(base, "data"))
	opts.WALDir = filepath.Join(base, "wal")
	opts.Config.GroupAccess = true
	opts.SyncWorkers = 1

	result, err := Run(opts)
	require.NoError(t, err)
	assert.Equal(t, utils.GroupReadable, result.Profile)

	for _, root := range []string{opts.DataDir, opts.WALDir} {
		err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
			require.NoError(t, err)
			switch {
			case info.IsDir():
				assert.Equal(t, os.FileMode(0o770), info.Mode().Perm(), path)
			case info.Mode().IsRegular():
				assert.Equal(t, os.FileMode(0o660), info.Mode().Perm(), path)
			}
			return nil
		})
		require.NoError(t, err)
	}

	target, err := os.Readlink(filepath.Join(opts.DataDir, dataroot.WALSlotName))
	require.NoError(t, err)
	assert.Equal(t, opts.WALDir, target)
}

func TestUnsupportedSyncMethod(t *testing.T) {
	if runtime.GOOS == "linux" {
		t.Skip("syncfs is supported on linux")
	}
	t.Parallel()

	opts := testOptions(filepath.Join(t.TempDir(), "data"))
	opts.SyncMethod = syncer.MethodSyncfs
	_, err := Run(opts)
	assert.ErrorIs(t, err, syncer.ErrUnsupportedMethod)
	assert.Equal(t, initerr.KindCapability, initerr.KindOf(err))

	_, err = os.Stat(opts.DataDir)
	assert.True(t, os.IsNotExist(err))
}
