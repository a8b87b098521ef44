package locale

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safing/dbinit/initerr"
)

func allCategories(name string) Categories {
	return Categories{
		Collate:  name,
		CType:    name,
		Messages: name,
		Monetary: name,
		Numeric:  name,
		Time:     name,
	}
}

func TestCheckProvider(t *testing.T) {
	t.Parallel()

	_, err := Check(Settings{Provider: "xyz", Categories: allCategories("C")}, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownProvider)
	assert.Contains(t, err.Error(), "xyz")
	assert.Equal(t, initerr.KindConfig, initerr.KindOf(err))
}

func TestCheckICULocaleRequired(t *testing.T) {
	t.Parallel()

	for _, enc := range []string{"", UTF8, "LATIN1", SQLASCII} {
		_, err := Check(Settings{Provider: ProviderICU, Categories: allCategories("C")}, enc)
		require.Error(t, err, enc)
		assert.ErrorIs(t, err, ErrLocaleRequired, enc)
		assert.NotErrorIs(t, err, ErrUnknownProvider, enc)
	}
}

func TestCheckProviderCombination(t *testing.T) {
	t.Parallel()

	_, err := Check(Settings{Provider: ProviderLibc, Categories: allCategories("C"), ICULocale: "en"}, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProviderCombination)
}

func TestCheckEncodingMismatch(t *testing.T) {
	t.Parallel()

	_, err := Check(Settings{Provider: ProviderICU, Categories: allCategories("C"), ICULocale: "en"}, SQLASCII)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEncodingMismatch)
	assert.Equal(t, initerr.KindConfig, initerr.KindOf(err))
	assert.NotEqual(t, initerr.KindLocale, initerr.KindOf(err))

	_, err = Check(Settings{Provider: ProviderLibc, Categories: allCategories("en_US.UTF-8")}, "LATIN1")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEncodingMismatch)
	assert.Contains(t, err.Error(), "en_US.UTF-8")

	_, err = Check(Settings{Provider: ProviderLibc, Categories: allCategories("en_US.utf8")}, "UTF-8")
	assert.NoError(t, err)

	_, err = Check(Settings{Provider: ProviderLibc, Categories: allCategories("de_DE.ISO-8859-1")}, "LATIN1")
	assert.NoError(t, err)

	// a C locale with a codeset is bound to it
	_, err = Check(Settings{Provider: ProviderLibc, Categories: allCategories("C.UTF-8")}, "LATIN1")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEncodingMismatch)
	assert.Contains(t, err.Error(), "C.UTF-8")

	_, err = Check(Settings{Provider: ProviderLibc, Categories: allCategories("C.UTF-8")}, "UTF8")
	assert.NoError(t, err)

	_, err = Check(Settings{Provider: ProviderLibc, Categories: allCategories("POSIX")}, "LATIN1")
	assert.NoError(t, err)
}

func TestCheckUnknownEncoding(t *testing.T) {
	t.Parallel()

	_, err := Check(Settings{Provider: ProviderLibc, Categories: allCategories("C")}, "EBCDIC")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownEncoding)

	// Client-only encodings are no server encodings.
	_, err = Check(Settings{Provider: ProviderLibc, Categories: allCategories("C")}, "SJIS")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownEncoding)
}

func TestCheckICUFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		id    string
		cause error
		msg   string
	}{
		{id: "nonsense-nowhere", cause: ErrUnknownLanguage, msg: `locale "nonsense-nowhere" has unknown language "nonsense"`},
		{id: "zz", cause: ErrUnknownLanguage},
		{id: "en-US-!!", cause: ErrUnknownLocale},
		{id: "en@foo=bar", cause: ErrUnknownLocale},
		{id: "@colNumeric=lower", cause: ErrIllegalArgument, msg: `could not open collator for locale "und-u-kn-lower"`},
		{id: "de-u-ks-level9", cause: ErrIllegalArgument},
	}
	for _, tt := range tests {
		_, err := Check(Settings{Provider: ProviderICU, Categories: allCategories("C"), ICULocale: tt.id}, "")
		require.Error(t, err, tt.id)
		assert.ErrorIs(t, err, tt.cause, tt.id)
		assert.Equal(t, initerr.KindLocale, initerr.KindOf(err), tt.id)
		if tt.msg != "" {
			assert.Contains(t, err.Error(), tt.msg)
		}
	}
}

func TestResolveICULocaleReportsFirstIllegalKey(t *testing.T) {
	t.Parallel()

	for i := 0; i < 20; i++ {
		_, err := ResolveICULocale("de-u-kn-lower-ks-level9")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrIllegalArgument)
		assert.Contains(t, err.Error(), "illegal argument kn=lower")
	}
}

func TestCheckICUSuccess(t *testing.T) {
	t.Parallel()

	resolved, err := Check(Settings{Provider: ProviderICU, Categories: allCategories("C"), ICULocale: "und"}, "")
	require.NoError(t, err)
	assert.Equal(t, "und", resolved.ICULocale)
	assert.Equal(t, UTF8, resolved.Encoding.Name)
	assert.Equal(t, ProviderICU, resolved.Provider)

	resolved, err = Check(Settings{Provider: ProviderICU, Categories: allCategories("C"), ICULocale: "en_US"}, "")
	require.NoError(t, err)
	assert.Equal(t, "en-US", resolved.ICULocale)

	resolved, err = Check(Settings{Provider: ProviderICU, Categories: allCategories("C"), ICULocale: "de@collation=phonebook"}, "")
	require.NoError(t, err)
	assert.Equal(t, "phonebk", mustTag(t, resolved.ICULocale).TypeForKey("co"))
}

func TestCheckInvalidPlatformLocale(t *testing.T) {
	t.Parallel()

	cats := allCategories("C")
	cats.Messages = "nonsense"
	_, err := Check(Settings{Provider: ProviderLibc, Categories: cats}, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidLocale)
	assert.Contains(t, err.Error(), "lc_messages")
}

func TestDefaultEncoding(t *testing.T) {
	t.Parallel()

	assert.Equal(t, SQLASCII, DefaultEncoding(Settings{Provider: ProviderLibc, Categories: allCategories("C")}))
	assert.Equal(t, UTF8, DefaultEncoding(Settings{Provider: ProviderICU, Categories: allCategories("C")}))
	assert.Equal(t, UTF8, DefaultEncoding(Settings{Provider: ProviderLibc, Categories: allCategories("en_US.UTF-8")}))
	assert.Equal(t, "LATIN1", DefaultEncoding(Settings{Provider: ProviderLibc, Categories: allCategories("de_DE.ISO-8859-1")}))
}

func TestProviderTag(t *testing.T) {
	t.Parallel()

	for _, p := range []Provider{ProviderLibc, ProviderICU} {
		got, ok := ProviderFromTag(p.Tag())
		assert.True(t, ok)
		assert.Equal(t, p, got)
	}
	_, ok := ProviderFromTag('x')
	assert.False(t, ok)
}

func TestLookupEncoding(t *testing.T) {
	t.Parallel()

	enc, ok := LookupEncoding("utf-8")
	require.True(t, ok)
	assert.Equal(t, uint32(6), enc.ID)

	enc, ok = LookupEncoding("unicode")
	require.True(t, ok)
	assert.Equal(t, UTF8, enc.Name)

	byID, ok := EncodingByID(enc.ID)
	require.True(t, ok)
	assert.Same(t, enc, byID)

	_, ok = LookupEncoding("")
	assert.False(t, ok)
}
