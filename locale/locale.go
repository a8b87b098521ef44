// Copyright Safing ICS Technologies GmbH. Use of this source code is governed by the AGPL license that can be found in the LICENSE file.

/*
Package locale validates the locale configuration of a new data directory.

Settings is a tagged variant: the Provider field selects which of the other
fields are meaningful. The platform provider (libc) takes its collation and
character classification from the per-category locale names, the
international provider (icu) from an ICU locale identifier. Check is a pure
function over Settings and an encoding name.
*/
package locale

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/language"

	"github.com/safing/dbinit/initerr"
)

// Provider is a locale provider.
type Provider string

// Locale providers.
const (
	ProviderLibc Provider = "libc"
	ProviderICU  Provider = "icu"
)

// Tag returns the single byte stored in the control file for the provider.
func (p Provider) Tag() byte {
	switch p {
	case ProviderLibc:
		return 'c'
	case ProviderICU:
		return 'i'
	default:
		return 0
	}
}

// ProviderFromTag is the inverse of Provider.Tag.
func ProviderFromTag(tag byte) (Provider, bool) {
	switch tag {
	case 'c':
		return ProviderLibc, true
	case 'i':
		return ProviderICU, true
	default:
		return "", false
	}
}

// Categories holds the platform locale name of every locale category.
type Categories struct {
	Collate  string
	CType    string
	Messages string
	Monetary string
	Numeric  string
	Time     string
}

// Each calls fn with the name and value of every category.
func (c Categories) Each(fn func(category, value string)) {
	fn("lc_collate", c.Collate)
	fn("lc_ctype", c.CType)
	fn("lc_messages", c.Messages)
	fn("lc_monetary", c.Monetary)
	fn("lc_numeric", c.Numeric)
	fn("lc_time", c.Time)
}

// Settings is the locale configuration of a data directory.
type Settings struct {
	Provider   Provider
	Categories Categories
	// ICULocale is the ICU locale identifier, only valid with ProviderICU.
	ICULocale string
}

// Resolved is the outcome of a successful Check.
type Resolved struct {
	Provider   Provider
	Categories Categories
	// ICULocale holds the canonical language tag of the ICU locale.
	ICULocale string
	Encoding  *Encoding
}

// Check validates the locale settings together with the server encoding.
// Rules are checked in a fixed order and the first violation is returned as
// an *initerr.Error.
func Check(s Settings, encodingName string) (*Resolved, error) {
	// Provider.
	switch s.Provider {
	case ProviderLibc, ProviderICU:
	default:
		return nil, initerr.New(initerr.KindConfig, ErrUnknownProvider, string(s.Provider),
			"unrecognized locale provider: %s", s.Provider)
	}

	// Provider and ICU locale combination.
	switch {
	case s.Provider == ProviderICU && s.ICULocale == "":
		return nil, initerr.New(initerr.KindConfig, ErrLocaleRequired, "",
			"ICU locale must be specified")
	case s.Provider == ProviderLibc && s.ICULocale != "":
		return nil, initerr.New(initerr.KindConfig, ErrProviderCombination, s.ICULocale,
			"ICU locale %q can only be specified if the ICU provider is selected", s.ICULocale)
	}

	// Encoding.
	enc, err := checkEncoding(s, encodingName)
	if err != nil {
		return nil, err
	}

	// Locale names.
	var catErr error
	s.Categories.Each(func(category, value string) {
		if catErr != nil {
			return
		}
		if _, ok := parsePlatformLocale(value); !ok {
			catErr = initerr.New(initerr.KindLocale, ErrInvalidLocale, value,
				"invalid locale name %q for %s", value, category)
		}
	})
	if catErr != nil {
		return nil, catErr
	}

	resolved := &Resolved{
		Provider:   s.Provider,
		Categories: s.Categories,
		Encoding:   enc,
	}
	if s.Provider == ProviderICU {
		tag, err := ResolveICULocale(s.ICULocale)
		if err != nil {
			return nil, err
		}
		resolved.ICULocale = tag.String()
	}

	return resolved, nil
}

func checkEncoding(s Settings, name string) (*Encoding, error) {
	if name == "" {
		name = DefaultEncoding(s)
	}
	enc, ok := LookupEncoding(name)
	if !ok || !enc.Server {
		return nil, initerr.New(initerr.KindConfig, ErrUnknownEncoding, name,
			"%q is not a valid server encoding name", name)
	}

	if s.Provider == ProviderICU && !enc.ICU {
		return nil, initerr.New(initerr.KindConfig, ErrEncodingMismatch, enc.Name,
			"encoding mismatch: encoding %q is not supported with ICU provider", enc.Name)
	}

	// The codeset of the platform locale must agree with the encoding.
	if enc.Name == SQLASCII {
		return enc, nil
	}
	for _, pair := range [][2]string{
		{"lc_ctype", s.Categories.CType},
		{"lc_collate", s.Categories.Collate},
	} {
		pl, ok := parsePlatformLocale(pair[1])
		// plain C and POSIX carry no codeset and accept any encoding
		if !ok || pl.codeset == "" {
			continue
		}
		localeEnc, ok := EncodingForCodeset(pl.codeset)
		if !ok || localeEnc.ID != enc.ID {
			return nil, initerr.New(initerr.KindConfig, ErrEncodingMismatch, pair[1],
				"encoding mismatch: encoding %q does not match locale %q for %s", enc.Name, pair[1], pair[0])
		}
	}

	return enc, nil
}

// DefaultEncoding derives the server encoding from the settings.
func DefaultEncoding(s Settings) string {
	pl, ok := parsePlatformLocale(s.Categories.CType)
	if ok && pl.codeset != "" {
		if enc, found := EncodingForCodeset(pl.codeset); found && (s.Provider != ProviderICU || enc.ICU) {
			return enc.Name
		}
	}
	if s.Provider != ProviderICU && (!ok || pl.isC()) {
		return SQLASCII
	}
	return UTF8
}

// platformLocale is a parsed libc locale name: language[_territory][.codeset][@modifier].
type platformLocale struct {
	language  string
	territory string
	codeset   string
	modifier  string
}

func (pl platformLocale) isC() bool {
	return pl.language == "C" || pl.language == "POSIX"
}

var platformLocaleRegex = regexp.MustCompile(`^([A-Za-z]{2,3}|C|POSIX)(?:_([A-Za-z]{2}|[0-9]{3}))?(?:\.([A-Za-z0-9_-]+))?(?:@([A-Za-z0-9_-]+))?$`)

func parsePlatformLocale(name string) (platformLocale, bool) {
	m := platformLocaleRegex.FindStringSubmatch(name)
	if m == nil {
		return platformLocale{}, false
	}
	pl := platformLocale{
		language:  m[1],
		territory: m[2],
		codeset:   m[3],
		modifier:  m[4],
	}
	if pl.isC() {
		return pl, pl.territory == "" && pl.modifier == ""
	}

	if _, err := language.ParseBase(strings.ToLower(pl.language)); err != nil {
		return pl, false
	}
	if pl.territory != "" {
		if _, err := language.ParseRegion(pl.territory); err != nil {
			return pl, false
		}
	}
	return pl, true
}

// String returns a short description of the settings for log messages.
func (s Settings) String() string {
	if s.Provider == ProviderICU {
		return fmt.Sprintf("provider=%s icu_locale=%s lc_collate=%s lc_ctype=%s", s.Provider, s.ICULocale, s.Categories.Collate, s.Categories.CType)
	}
	return fmt.Sprintf("provider=%s lc_collate=%s lc_ctype=%s", s.Provider, s.Categories.Collate, s.Categories.CType)
}
