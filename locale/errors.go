// Copyright Safing ICS Technologies GmbH. Use of this source code is governed by the AGPL license that can be found in the LICENSE file.

package locale

import "errors"

// Configuration errors.
var (
	ErrUnknownProvider     = errors.New("unrecognized locale provider")
	ErrLocaleRequired      = errors.New("ICU locale must be specified")
	ErrProviderCombination = errors.New("ICU locale can only be specified with the icu provider")
	ErrUnknownEncoding     = errors.New("invalid server encoding")
	ErrEncodingMismatch    = errors.New("encoding mismatch")
)

// Locale resolution errors.
var (
	ErrInvalidLocale   = errors.New("invalid locale name")
	ErrUnknownLanguage = errors.New("unknown language")
	ErrUnknownLocale   = errors.New("could not convert locale to language tag")
	ErrIllegalArgument = errors.New("illegal collator argument")
)
