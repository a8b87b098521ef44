// Copyright Safing ICS Technologies GmbH. Use of this source code is governed by the AGPL license that can be found in the LICENSE file.

package locale

import (
	"strings"

	"golang.org/x/text/encoding/ianaindex"
)

// Encoding describes a character encoding known to the storage engine.
type Encoding struct {
	// ID is the stable identifier written to the control file.
	ID uint32
	// Name is the engine's name for the encoding.
	Name string
	// Charset is the name in the IANA charset registry, if there is one.
	Charset string
	// Server is false for encodings that clients may use but that cannot
	// be the encoding of a data directory.
	Server bool
	// ICU reports whether the icu provider can collate this encoding.
	ICU bool
}

// Well-known encoding names.
const (
	SQLASCII = "SQL_ASCII"
	UTF8     = "UTF8"
)

var encodings = []*Encoding{
	{ID: 0, Name: SQLASCII, Server: true},
	{ID: 1, Name: "EUC_JP", Charset: "EUC-JP", Server: true, ICU: true},
	{ID: 2, Name: "EUC_CN", Charset: "GB2312", Server: true, ICU: true},
	{ID: 3, Name: "EUC_KR", Charset: "EUC-KR", Server: true, ICU: true},
	{ID: 4, Name: "EUC_TW", Server: true, ICU: true},
	{ID: 5, Name: "EUC_JIS_2004", Server: true},
	{ID: 6, Name: UTF8, Charset: "UTF-8", Server: true, ICU: true},
	{ID: 7, Name: "MULE_INTERNAL", Server: true},
	{ID: 8, Name: "LATIN1", Charset: "ISO-8859-1", Server: true, ICU: true},
	{ID: 9, Name: "LATIN2", Charset: "ISO-8859-2", Server: true, ICU: true},
	{ID: 10, Name: "LATIN3", Charset: "ISO-8859-3", Server: true, ICU: true},
	{ID: 11, Name: "LATIN4", Charset: "ISO-8859-4", Server: true, ICU: true},
	{ID: 12, Name: "LATIN5", Charset: "ISO-8859-9", Server: true, ICU: true},
	{ID: 13, Name: "LATIN6", Charset: "ISO-8859-10", Server: true, ICU: true},
	{ID: 14, Name: "LATIN7", Charset: "ISO-8859-13", Server: true, ICU: true},
	{ID: 15, Name: "LATIN8", Charset: "ISO-8859-14", Server: true, ICU: true},
	{ID: 16, Name: "LATIN9", Charset: "ISO-8859-15", Server: true, ICU: true},
	{ID: 17, Name: "LATIN10", Charset: "ISO-8859-16", Server: true, ICU: true},
	{ID: 18, Name: "WIN1256", Charset: "windows-1256", Server: true, ICU: true},
	{ID: 19, Name: "WIN1258", Charset: "windows-1258", Server: true, ICU: true},
	{ID: 20, Name: "WIN866", Charset: "IBM866", Server: true, ICU: true},
	{ID: 21, Name: "WIN874", Charset: "windows-874", Server: true, ICU: true},
	{ID: 22, Name: "KOI8R", Charset: "KOI8-R", Server: true, ICU: true},
	{ID: 23, Name: "WIN1251", Charset: "windows-1251", Server: true, ICU: true},
	{ID: 24, Name: "WIN1252", Charset: "windows-1252", Server: true, ICU: true},
	{ID: 25, Name: "ISO_8859_5", Charset: "ISO-8859-5", Server: true, ICU: true},
	{ID: 26, Name: "ISO_8859_6", Charset: "ISO-8859-6", Server: true, ICU: true},
	{ID: 27, Name: "ISO_8859_7", Charset: "ISO-8859-7", Server: true, ICU: true},
	{ID: 28, Name: "ISO_8859_8", Charset: "ISO-8859-8", Server: true, ICU: true},
	{ID: 29, Name: "WIN1250", Charset: "windows-1250", Server: true, ICU: true},
	{ID: 30, Name: "WIN1253", Charset: "windows-1253", Server: true, ICU: true},
	{ID: 31, Name: "WIN1254", Charset: "windows-1254", Server: true, ICU: true},
	{ID: 32, Name: "WIN1255", Charset: "windows-1255", Server: true, ICU: true},
	{ID: 33, Name: "WIN1257", Charset: "windows-1257", Server: true, ICU: true},
	{ID: 34, Name: "KOI8U", Charset: "KOI8-U", Server: true, ICU: true},
	{ID: 35, Name: "SJIS", Charset: "Shift_JIS"},
	{ID: 36, Name: "BIG5", Charset: "Big5"},
	{ID: 37, Name: "GBK", Charset: "GBK"},
	{ID: 38, Name: "UHC"},
	{ID: 39, Name: "GB18030", Charset: "GB18030"},
	{ID: 40, Name: "JOHAB"},
	{ID: 41, Name: "SHIFT_JIS_2004"},
}

var encodingAliases = map[string]string{
	"UNICODE": UTF8,
	"WIN":     "WIN1251",
	"ALT":     "WIN866",
	"KOI8":    "KOI8R",
	"TCVN":    "WIN1258",
}

// normalizeCharset upper-cases name and strips separators, so that "utf-8",
// "UTF8" and "utf_8" compare equal.
func normalizeCharset(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '-', '_', ' ':
			return -1
		}
		if r >= 'a' && r <= 'z' {
			return r - 'a' + 'A'
		}
		return r
	}, name)
}

// LookupEncoding returns the encoding with the given name. Aliases and
// separator variants ("utf-8", "unicode") are accepted.
func LookupEncoding(name string) (*Encoding, bool) {
	key := normalizeCharset(name)
	if key == "" {
		return nil, false
	}
	if alias, ok := encodingAliases[key]; ok {
		key = alias
	}
	for _, enc := range encodings {
		if normalizeCharset(enc.Name) == key {
			return enc, true
		}
	}
	return nil, false
}

// EncodingByID returns the encoding with the given control file id.
func EncodingByID(id uint32) (*Encoding, bool) {
	for _, enc := range encodings {
		if enc.ID == id {
			return enc, true
		}
	}
	return nil, false
}

// EncodingForCodeset returns the server encoding matching the codeset part
// of a platform locale name, such as "UTF-8" in "en_US.UTF-8".
func EncodingForCodeset(codeset string) (*Encoding, bool) {
	key := normalizeCharset(codeset)
	if key == "" {
		return nil, false
	}

	for _, enc := range encodings {
		if !enc.Server {
			continue
		}
		if normalizeCharset(enc.Name) == key || (enc.Charset != "" && normalizeCharset(enc.Charset) == key) {
			return enc, true
		}
	}

	// Fall back to the aliases of the IANA registry, eg. "latin1" or "csUTF8".
	e, err := ianaindex.IANA.Encoding(codeset)
	if err != nil || e == nil {
		return nil, false
	}
	canonical, err := ianaindex.IANA.Name(e)
	if err != nil {
		return nil, false
	}
	key = normalizeCharset(canonical)
	for _, enc := range encodings {
		if enc.Server && enc.Charset != "" && normalizeCharset(enc.Charset) == key {
			return enc, true
		}
	}
	return nil, false
}
