package dataroot

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safing/dbinit/controlfile"
	"github.com/safing/dbinit/info"
	"github.com/safing/dbinit/initerr"
	"github.com/safing/dbinit/locale"
)

func absPath(elems ...string) string {
	if runtime.GOOS == "windows" {
		return filepath.Join(append([]string{`C:\`}, elems...)...)
	}
	return filepath.Join(append([]string{"/"}, elems...)...)
}

func writeControlFile(t *testing.T, dataDir string) {
	t.Helper()

	r := &controlfile.Record{
		SystemID:       1,
		ClusterID:      uuid.Must(uuid.NewV4()),
		Created:        time.Unix(1700000000, 0),
		WALSegmentSize: 16 << 20,
		Provider:       locale.ProviderLibc,
		Categories:     locale.Categories{Collate: "C", CType: "C"},
	}
	require.NoError(t, controlfile.Write(dataDir, r, 0o600))
}

func TestResolve(t *testing.T) {
	t.Parallel()

	// relative WAL directories are rejected first, even without a data dir
	_, err := Resolve("", "wal")
	assert.ErrorIs(t, err, ErrWALDirNotAbsolute)
	assert.Equal(t, initerr.KindPath, initerr.KindOf(err))
	assert.Contains(t, err.Error(), `"wal"`)

	_, err = Resolve(filepath.Join(t.TempDir(), "does", "not", "exist"), "relative/wal")
	assert.ErrorIs(t, err, ErrWALDirNotAbsolute)

	_, err = Resolve("", "")
	assert.ErrorIs(t, err, ErrNoDataDir)

	plan, err := Resolve("data/../data", "")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(plan.DataDir))
	assert.Equal(t, "data", filepath.Base(plan.DataDir))
	assert.False(t, plan.Relocated())
	assert.Equal(t, filepath.Join(plan.DataDir, WALSlotName), plan.WALTarget())

	plan, err = Resolve(absPath("srv", "data"), absPath("srv", "wal"))
	require.NoError(t, err)
	assert.True(t, plan.Relocated())
	assert.Equal(t, absPath("srv", "wal"), plan.WALTarget())
	assert.Equal(t, absPath("srv", "data", "pg_wal"), plan.WALSlot())

	// a sibling with a common name prefix is fine
	_, err = Resolve(absPath("srv", "data"), absPath("srv", "data_wal"))
	assert.NoError(t, err)

	for _, wal := range []string{
		absPath("srv", "data"),
		absPath("srv", "data", "pg_wal"),
		absPath("srv"),
	} {
		_, err = Resolve(absPath("srv", "data"), wal)
		assert.ErrorIs(t, err, ErrWALDirContainment, wal)
		assert.Equal(t, initerr.KindPath, initerr.KindOf(err))
	}
}

func TestClassify(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	mkdir := func(name string, entries ...string) string {
		dir := filepath.Join(base, name)
		require.NoError(t, os.MkdirAll(dir, 0o700))
		for _, entry := range entries {
			require.NoError(t, os.MkdirAll(filepath.Join(dir, entry), 0o700))
		}
		return dir
	}

	tests := []struct {
		path     string
		state    State
		contents Contents
	}{
		{filepath.Join(base, "absent"), Absent, ContentsNone},
		{mkdir("empty"), EmptyExists, ContentsNone},
		{mkdir("hidden", ".snapshot"), ForeignNonEmpty, ContentsHidden},
		{mkdir("mount", ".snapshot", "lost+found"), ForeignNonEmpty, ContentsLostFound},
		{mkdir("foreign", "lost+found", "stuff"), ForeignNonEmpty, ContentsOther},
		{mkdir("initialized", "global"), Initialized, ContentsOther},
	}
	writeControlFile(t, filepath.Join(base, "initialized"))

	file := filepath.Join(base, "file")
	require.NoError(t, os.WriteFile(file, nil, 0o600))
	tests = append(tests, struct {
		path     string
		state    State
		contents Contents
	}{file, ForeignNonEmpty, ContentsNotDirectory})

	for _, test := range tests {
		c, err := Classify(test.path)
		require.NoError(t, err, test.path)
		assert.Equal(t, test.state, c.State, test.path)
		assert.Equal(t, test.contents, c.Contents, test.path)
	}
}

func TestCheckForInit(t *testing.T) {
	t.Parallel()

	base := t.TempDir()

	// absent data dir, absent WAL dir
	plan, err := Resolve(filepath.Join(base, "data"), filepath.Join(base, "wal"))
	require.NoError(t, err)
	assert.NoError(t, CheckForInit(plan))

	// WAL dir with a stray entry
	require.NoError(t, os.MkdirAll(filepath.Join(base, "wal", "stray"), 0o700))
	err = CheckForInit(plan)
	assert.ErrorIs(t, err, ErrNotEmpty)
	assert.Equal(t, initerr.KindState, initerr.KindOf(err))
	assert.Contains(t, err.Error(), plan.WALDir)

	// data dir with only lost+found
	require.NoError(t, os.MkdirAll(filepath.Join(base, "data", "lost+found"), 0o700))
	err = CheckForInit(plan)
	assert.ErrorIs(t, err, ErrNotEmpty)
	assert.Contains(t, err.Error(), plan.DataDir)
	assert.Contains(t, err.Error(), "lost+found")

	// data dir with a control file
	require.NoError(t, os.MkdirAll(filepath.Join(base, "data", "global"), 0o700))
	writeControlFile(t, plan.DataDir)
	err = CheckForInit(plan)
	assert.ErrorIs(t, err, ErrExistingDataDir)
	assert.Equal(t, initerr.KindState, initerr.KindOf(err))
}

func TestCheckForSync(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	plan, err := Resolve(filepath.Join(base, "data"), "")
	require.NoError(t, err)

	err = CheckForSync(plan)
	assert.ErrorIs(t, err, ErrMissingDataDir)
	assert.Equal(t, initerr.KindState, initerr.KindOf(err))
	assert.Contains(t, err.Error(), "cannot sync missing data directory")

	require.NoError(t, os.MkdirAll(plan.DataDir, 0o700))
	err = CheckForSync(plan)
	assert.ErrorIs(t, err, ErrNotInitialized)

	require.NoError(t, os.WriteFile(filepath.Join(plan.DataDir, "junk"), nil, 0o600))
	err = CheckForSync(plan)
	assert.ErrorIs(t, err, ErrNotInitialized)

	// a control file that does not decode is rejected
	require.NoError(t, os.MkdirAll(filepath.Join(plan.DataDir, "global"), 0o700))
	require.NoError(t, os.WriteFile(controlfile.Path(plan.DataDir), nil, 0o600))
	err = CheckForSync(plan)
	assert.ErrorIs(t, err, ErrInvalidControl)
	assert.ErrorIs(t, err, controlfile.ErrTruncated)
	assert.Equal(t, initerr.KindState, initerr.KindOf(err))

	corrupt := make([]byte, controlfile.Size)
	copy(corrupt, "INBD")
	require.NoError(t, os.WriteFile(controlfile.Path(plan.DataDir), corrupt, 0o600))
	err = CheckForSync(plan)
	assert.ErrorIs(t, err, ErrInvalidControl)
	assert.Equal(t, initerr.KindState, initerr.KindOf(err))

	require.NoError(t, os.Remove(controlfile.Path(plan.DataDir)))
	writeControlFile(t, plan.DataDir)
	require.NoError(t, os.WriteFile(filepath.Join(plan.DataDir, VersionFileName), []byte(info.MajorVersion+"\n"), 0o600))
	assert.NoError(t, CheckForSync(plan))
	assert.NoError(t, CheckForSync(plan))

	// a version mismatch only warns
	require.NoError(t, os.WriteFile(filepath.Join(plan.DataDir, VersionFileName), []byte("9.6\n"), 0o600))
	assert.NoError(t, CheckForSync(plan))
}
