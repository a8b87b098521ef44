// Copyright Safing ICS Technologies GmbH. Use of this source code is governed by the AGPL license that can be found in the LICENSE file.

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ghodss/yaml"
	"github.com/tidwall/gjson"

	"github.com/safing/dbinit/locale"
)

// Settings file keys. They match the long command line flag names.
const (
	KeyEncoding       = "encoding"
	KeyLocaleProvider = "locale-provider"
	KeyLocale         = "locale"
	KeyLcCollate      = "lc-collate"
	KeyLcCType        = "lc-ctype"
	KeyLcMessages     = "lc-messages"
	KeyLcMonetary     = "lc-monetary"
	KeyLcNumeric      = "lc-numeric"
	KeyLcTime         = "lc-time"
	KeyICULocale      = "icu-locale"
	KeyUsername       = "username"
	KeyDataChecksums  = "data-checksums"
	KeyGroupAccess    = "allow-group-access"
	KeyWALSegmentSize = "wal-segsize"
)

// LoadFile reads a JSON or YAML settings file and applies its values on top
// of the configuration. Files ending in .yaml or .yml are converted to JSON
// first.
func (cfg *BootstrapConfig) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: failed to read settings file %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.YAMLToJSON(data)
		if err != nil {
			return fmt.Errorf("config: failed to parse settings file %s: %w", path, err)
		}
	}

	return cfg.LoadJSON(data)
}

// LoadJSON applies the values of a JSON settings object on top of the
// configuration. Unknown keys are rejected.
func (cfg *BootstrapConfig) LoadJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("config: settings are not valid json: %w", ErrInvalidData)
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return fmt.Errorf("config: settings must be a json object: %w", ErrInvalidData)
	}

	var loadErr error
	root.ForEach(func(key, value gjson.Result) bool {
		loadErr = cfg.set(key.String(), value)
		return loadErr == nil
	})
	return loadErr
}

func (cfg *BootstrapConfig) set(key string, value gjson.Result) error {
	switch key {
	case KeyEncoding:
		return setString(key, value, &cfg.Encoding)
	case KeyLocaleProvider:
		var p string
		if err := setString(key, value, &p); err != nil {
			return err
		}
		cfg.Locale.Provider = locale.Provider(p)
		return nil
	case KeyLocale:
		return setString(key, value, &cfg.AllLocales)
	case KeyLcCollate:
		return setString(key, value, &cfg.Locale.Categories.Collate)
	case KeyLcCType:
		return setString(key, value, &cfg.Locale.Categories.CType)
	case KeyLcMessages:
		return setString(key, value, &cfg.Locale.Categories.Messages)
	case KeyLcMonetary:
		return setString(key, value, &cfg.Locale.Categories.Monetary)
	case KeyLcNumeric:
		return setString(key, value, &cfg.Locale.Categories.Numeric)
	case KeyLcTime:
		return setString(key, value, &cfg.Locale.Categories.Time)
	case KeyICULocale:
		return setString(key, value, &cfg.Locale.ICULocale)
	case KeyUsername:
		return setString(key, value, &cfg.Superuser)
	case KeyDataChecksums:
		return setBool(key, value, &cfg.DataChecksums)
	case KeyGroupAccess:
		return setBool(key, value, &cfg.GroupAccess)
	case KeyWALSegmentSize:
		if value.Type != gjson.Number || value.Float() != float64(value.Int()) {
			return newInvalidValueError(key, value.Raw, "expected integer")
		}
		cfg.WALSegmentSizeMB = int(value.Int())
		return nil
	default:
		return newInvalidValueError(key, value.Raw, "unknown option")
	}
}

func setString(key string, value gjson.Result, dst *string) error {
	if value.Type != gjson.String {
		return newInvalidValueError(key, value.Raw, "expected type string")
	}
	*dst = value.String()
	return nil
}

func setBool(key string, value gjson.Result, dst *bool) error {
	if !value.IsBool() {
		return newInvalidValueError(key, value.Raw, "expected type bool")
	}
	*dst = value.Bool()
	return nil
}
