// Copyright Safing ICS Technologies GmbH. Use of this source code is governed by the AGPL license that can be found in the LICENSE file.

package locale

import (
	"sort"
	"strings"

	"golang.org/x/text/language"

	"github.com/safing/dbinit/initerr"
)

// legacyKeywords maps ICU keyword names of the "lang@key=value" syntax to
// the keys of the BCP 47 "u" extension.
var legacyKeywords = map[string]string{
	"collation":        "co",
	"colalternate":     "ka",
	"colbackwards":     "kb",
	"colcaselevel":     "kc",
	"colcasefirst":     "kf",
	"colnormalization": "kk",
	"colnumeric":       "kn",
	"colreorder":       "kr",
	"colstrength":      "ks",
}

// legacyValues maps legacy keyword values to their BCP 47 form.
var legacyValues = map[string]map[string]string{
	"co": {"phonebook": "phonebk", "traditional": "trad", "gb2312han": "gb2312", "dictionary": "dict"},
	"ka": {"non-ignorable": "noignore"},
	"kb": {"on": "true", "off": "false", "yes": "true", "no": "false"},
	"kc": {"on": "true", "off": "false", "yes": "true", "no": "false"},
	"kf": {"off": "false", "no": "false"},
	"kk": {"on": "true", "off": "false", "yes": "true", "no": "false"},
	"kn": {"on": "true", "off": "false", "yes": "true", "no": "false"},
	"ks": {"primary": "level1", "secondary": "level2", "tertiary": "level3", "quaternary": "level4", "identical": "identic"},
}

// collatorArguments lists the accepted values of the collation keys.
var collatorArguments = map[string][]string{
	"co": {
		"big5han", "compat", "dict", "direct", "ducet", "emoji", "eor", "gb2312",
		"phonebk", "phonetic", "pinyin", "reformed", "search", "searchjl",
		"standard", "stroke", "trad", "unihan", "zhuyin",
	},
	"ka": {"noignore", "shifted"},
	"kb": {"true", "false"},
	"kc": {"true", "false"},
	"kf": {"upper", "lower", "false"},
	"kk": {"true", "false"},
	"kn": {"true", "false"},
	"ks": {"level1", "level2", "level3", "level4", "identic"},
}

// collatorKeys are the keys of collatorArguments in a fixed order, so that
// the first illegal argument is always the one reported.
var collatorKeys = func() []string {
	keys := make([]string, 0, len(collatorArguments))
	for key := range collatorArguments {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}()

// ResolveICULocale converts an ICU locale identifier into a language tag.
// Both BCP 47 tags ("de-DE-u-co-phonebk") and the legacy ICU syntax
// ("de_DE@collation=phonebook") are accepted. The three failure causes are
// reported with distinct errors: ErrUnknownLanguage, ErrUnknownLocale and
// ErrIllegalArgument.
func ResolveICULocale(id string) (language.Tag, error) {
	bcp, lang, err := toLanguageTag(id)
	if err != nil {
		return language.Und, err
	}

	if !knownLanguage(lang) {
		return language.Und, initerr.New(initerr.KindLocale, ErrUnknownLanguage, id,
			"locale %q has unknown language %q", id, lang)
	}

	tag, err := language.Parse(bcp)
	if err != nil {
		return language.Und, initerr.New(initerr.KindLocale, ErrUnknownLocale, id,
			"could not convert locale %q to language tag: %s", id, err)
	}

	for _, key := range collatorKeys {
		value := tag.TypeForKey(key)
		if value == "" {
			continue
		}
		if !contains(collatorArguments[key], value) {
			return language.Und, initerr.New(initerr.KindLocale, ErrIllegalArgument, id,
				"could not open collator for locale %q: illegal argument %s=%s", bcp, key, value)
		}
	}

	return tag, nil
}

// toLanguageTag rewrites id into BCP 47 syntax and returns it together with
// its language subtag.
func toLanguageTag(id string) (tag, lang string, err error) {
	base, keywords, _ := strings.Cut(id, "@")
	base = strings.ReplaceAll(base, "_", "-")
	if base == "" || strings.EqualFold(base, "root") {
		base = "und"
	}

	subtags := strings.Split(base, "-")
	for _, subtag := range subtags {
		if !wellFormedSubtag(subtag) {
			return "", "", initerr.New(initerr.KindLocale, ErrUnknownLocale, id,
				"could not convert locale %q to language tag: malformed subtag %q", id, subtag)
		}
	}
	lang = strings.ToLower(subtags[0])

	if keywords == "" {
		return base, lang, nil
	}

	var ext []string
	for _, kw := range strings.Split(keywords, ";") {
		if kw == "" {
			continue
		}
		name, value, ok := strings.Cut(kw, "=")
		key, known := legacyKeywords[strings.ToLower(strings.TrimSpace(name))]
		if !ok || !known {
			return "", "", initerr.New(initerr.KindLocale, ErrUnknownLocale, id,
				"could not convert locale %q to language tag: unknown keyword %q", id, kw)
		}
		value = strings.ToLower(strings.TrimSpace(value))
		if mapped, found := legacyValues[key][value]; found {
			value = mapped
		}
		if !wellFormedSubtag(value) {
			return "", "", initerr.New(initerr.KindLocale, ErrUnknownLocale, id,
				"could not convert locale %q to language tag: malformed value %q", id, value)
		}
		ext = append(ext, key, value)
	}
	if len(ext) == 0 {
		return base, lang, nil
	}

	return base + "-u-" + strings.Join(ext, "-"), lang, nil
}

func knownLanguage(lang string) bool {
	if lang == "und" {
		return true
	}
	if len(lang) < 2 || len(lang) > 3 || !isAlpha(lang) {
		return false
	}
	_, err := language.ParseBase(lang)
	return err == nil
}

func wellFormedSubtag(s string) bool {
	if len(s) == 0 || len(s) > 8 {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}

func isAlpha(s string) bool {
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z') {
			return false
		}
	}
	return true
}

func contains(list []string, s string) bool {
	for _, entry := range list {
		if entry == s {
			return true
		}
	}
	return false
}
