package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safing/dbinit/config"
	"github.com/safing/dbinit/dataroot"
	"github.com/safing/dbinit/formats/dsd"
	"github.com/safing/dbinit/info"
	"github.com/safing/dbinit/layout"
	"github.com/safing/dbinit/locale"
)

func bootstrapped(t *testing.T, b *BoltBootstrapper) string {
	t.Helper()

	plan, err := dataroot.Resolve(filepath.Join(t.TempDir(), "data"), "")
	require.NoError(t, err)
	require.NoError(t, layout.Build(plan))

	cfg := (&config.BootstrapConfig{
		Superuser:  "admin",
		AllLocales: "C",
		Encoding:   "UTF8",
		Locale: locale.Settings{
			Provider:  locale.ProviderICU,
			ICULocale: "de@collation=phonebook",
		},
	}).ApplyDefaults(func(string) string { return "" })
	resolved, err := cfg.Validate()
	require.NoError(t, err)

	require.NoError(t, b.Bootstrap(plan, cfg, resolved))
	return plan.DataDir
}

func TestBootstrap(t *testing.T) {
	t.Parallel()

	dataDir := bootstrapped(t, New())

	for _, path := range []string{
		filepath.Join(dataDir, dataroot.VersionFileName),
		filepath.Join(dataDir, TemplateDBPath, dataroot.VersionFileName),
	} {
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, info.MajorVersion+"\n", string(data))
	}

	role, err := GetRole(dataDir, "admin")
	require.NoError(t, err)
	assert.Equal(t, &Role{OID: BootstrapRoleOID, Name: "admin", Superuser: true}, role)

	db, err := GetDatabase(dataDir, "template1")
	require.NoError(t, err)
	assert.Equal(t, "icu", db.Provider)
	assert.Contains(t, db.ICULocale, "co-phonebk")
	assert.Equal(t, "C", db.Collate)
	assert.True(t, db.IsTemplate)

	_, err = GetDatabase(dataDir, "postgres")
	assert.ErrorIs(t, err, ErrNotFound)

	conf, err := os.ReadFile(filepath.Join(dataDir, ConfFileName))
	require.NoError(t, err)
	assert.Contains(t, string(conf), "lc_messages = 'C'")
	assert.NotContains(t, string(conf), "lc_collate")

	_, err = os.Stat(filepath.Join(dataDir, AutoConfFileName))
	assert.NoError(t, err)
}

func TestBootstrapMsgPack(t *testing.T) {
	t.Parallel()

	dataDir := bootstrapped(t, &BoltBootstrapper{Format: dsd.MsgPack})

	role, err := GetRole(dataDir, "admin")
	require.NoError(t, err)
	assert.True(t, role.Superuser)
}
