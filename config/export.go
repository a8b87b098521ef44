// Copyright Safing ICS Technologies GmbH. Use of this source code is governed by the AGPL license that can be found in the LICENSE file.

package config

import (
	"github.com/tidwall/sjson"
)

// Export renders the configuration as a JSON settings object that LoadJSON
// accepts again.
func (cfg *BootstrapConfig) Export() ([]byte, error) {
	data := []byte("{}")

	values := []struct {
		key   string
		value interface{}
	}{
		{KeyEncoding, cfg.Encoding},
		{KeyLocaleProvider, string(cfg.Locale.Provider)},
		{KeyLocale, cfg.AllLocales},
		{KeyLcCollate, cfg.Locale.Categories.Collate},
		{KeyLcCType, cfg.Locale.Categories.CType},
		{KeyLcMessages, cfg.Locale.Categories.Messages},
		{KeyLcMonetary, cfg.Locale.Categories.Monetary},
		{KeyLcNumeric, cfg.Locale.Categories.Numeric},
		{KeyLcTime, cfg.Locale.Categories.Time},
		{KeyICULocale, cfg.Locale.ICULocale},
		{KeyUsername, cfg.Superuser},
		{KeyDataChecksums, cfg.DataChecksums},
		{KeyGroupAccess, cfg.GroupAccess},
		{KeyWALSegmentSize, cfg.WALSegmentSizeMB},
	}

	var err error
	for _, v := range values {
		if s, ok := v.value.(string); ok && s == "" {
			continue
		}
		data, err = sjson.SetBytes(data, v.key, v.value)
		if err != nil {
			return nil, err
		}
	}
	return data, nil
}
