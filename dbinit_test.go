package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/safing/dbinit/bootstrap"
	"github.com/safing/dbinit/controlfile"
	"github.com/safing/dbinit/dataroot"
	"github.com/safing/dbinit/initerr"
	"github.com/safing/dbinit/locale"
	"github.com/safing/dbinit/log"
)

func TestLoadConfigPrecedence(t *testing.T) {
	t.Parallel()

	settings := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(settings, []byte("encoding: LATIN1\nusername: fromfile\ndata-checksums: true\n"), 0o600))

	fs, flags := newFlagSet()
	require.NoError(t, fs.Parse([]string{
		"--settings", settings,
		"-U", "fromflag",
		"--no-data-checksums",
		"--locale-provider", "icu",
		"--icu-locale", "und",
	}))

	cfg, err := loadConfig(fs, flags)
	require.NoError(t, err)
	assert.Equal(t, "LATIN1", cfg.Encoding)
	assert.Equal(t, "fromflag", cfg.Superuser)
	assert.False(t, cfg.DataChecksums)
	assert.Equal(t, locale.ProviderICU, cfg.Locale.Provider)
	assert.Equal(t, "und", cfg.Locale.ICULocale)
}

func TestNoDataChecksumsFlag(t *testing.T) {
	t.Parallel()

	settings := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(settings, []byte(`{"data-checksums": false}`), 0o600))

	fs, flags := newFlagSet()
	require.NoError(t, fs.Parse([]string{"--settings", settings, "--no-data-checksums=false"}))
	cfg, err := loadConfig(fs, flags)
	require.NoError(t, err)
	assert.False(t, cfg.DataChecksums)

	// the negative flag turns checksums off, never on
	fs, flags = newFlagSet()
	require.NoError(t, fs.Parse([]string{"-k", "--no-data-checksums=false"}))
	cfg, err = loadConfig(fs, flags)
	require.NoError(t, err)
	assert.True(t, cfg.DataChecksums)

	fs, flags = newFlagSet()
	require.NoError(t, fs.Parse([]string{"-k", "--no-data-checksums"}))
	cfg, err = loadConfig(fs, flags)
	require.NoError(t, err)
	assert.False(t, cfg.DataChecksums)
}

func TestParsePkgLevels(t *testing.T) {
	t.Parallel()

	levels, err := parsePkgLevels("")
	require.NoError(t, err)
	assert.Empty(t, levels)

	levels, err = parsePkgLevels("syncer=trace, catalog=debug")
	require.NoError(t, err)
	assert.Equal(t, map[string]log.Severity{"syncer": log.TraceLevel, "catalog": log.DebugLevel}, levels)

	for _, value := range []string{"syncer", "=debug", "syncer=loud"} {
		_, err = parsePkgLevels(value)
		assert.Equal(t, initerr.KindConfig, initerr.KindOf(err), value)
	}
}

func TestShow(t *testing.T) {
	t.Parallel()

	fs, flags := newFlagSet()
	require.NoError(t, fs.Parse([]string{"-k", "-U", "admin", "--locale", "C"}))

	buf := &bytes.Buffer{}
	assert.Equal(t, 0, show(buf, fs, flags))
	assert.True(t, gjson.Get(buf.String(), "data-checksums").Bool())
	assert.Equal(t, "admin", gjson.Get(buf.String(), "username").String())
	assert.Equal(t, "C", gjson.Get(buf.String(), "lc-numeric").String())
}

func TestExecute(t *testing.T) {
	t.Parallel()

	dataDir := filepath.Join(t.TempDir(), "data")

	fs, flags := newFlagSet()
	require.NoError(t, fs.Parse([]string{"-U", "postgres", "--locale", "C", "-N", dataDir}))
	require.NoError(t, execute(fs, flags))

	_, err := controlfile.Read(dataDir)
	require.NoError(t, err)

	fs, flags = newFlagSet()
	require.NoError(t, fs.Parse([]string{"-S", "-D", dataDir}))
	require.NoError(t, execute(fs, flags))

	fs, flags = newFlagSet()
	require.NoError(t, fs.Parse([]string{"-U", "postgres", "--locale", "C", dataDir}))
	assert.ErrorIs(t, execute(fs, flags), dataroot.ErrExistingDataDir)

	fs, flags = newFlagSet()
	require.NoError(t, fs.Parse([]string{"-S", "-N", "-D", dataDir}))
	err = execute(fs, flags)
	assert.ErrorIs(t, err, bootstrap.ErrSyncOnlyNoSync)
	assert.Equal(t, initerr.KindConfig, initerr.KindOf(err))
}
