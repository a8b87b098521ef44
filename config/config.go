// Copyright Safing ICS Technologies GmbH. Use of this source code is governed by the AGPL license that can be found in the LICENSE file.

/*
Package config holds the bootstrap configuration of a new data directory.

Values are layered: built-in defaults, then an optional settings file
(JSON or YAML), then command line flags. ApplyDefaults fills whatever is
still unset from the environment, and Validate checks the result before
anything touches the filesystem.
*/
package config

import (
	"fmt"
	"os"
	"os/user"
	"strings"

	"github.com/mitchellh/copystructure"

	"github.com/safing/dbinit/initerr"
	"github.com/safing/dbinit/locale"
)

// Defaults.
const (
	DefaultWALSegmentSizeMB = 16
	maxWALSegmentSizeMB     = 1024
	fallbackLocale          = "C"
)

// BootstrapConfig is the configuration of a single bootstrap run.
type BootstrapConfig struct {
	// Encoding is the server encoding. Empty derives it from the locale.
	Encoding string

	// Locale holds provider, per-category locales and the ICU locale.
	Locale locale.Settings

	// AllLocales is the default for every unset locale category.
	AllLocales string

	// Superuser is the name of the bootstrap superuser role.
	Superuser string

	// DataChecksums enables page checksums. Fixed for the lifetime of the data directory.
	DataChecksums bool

	// GroupAccess allows the owner's group to access the data directory.
	GroupAccess bool

	// WALSegmentSizeMB is the WAL segment size in megabytes.
	WALSegmentSizeMB int
}

// Clone returns a deep copy of the configuration.
func (cfg *BootstrapConfig) Clone() *BootstrapConfig {
	copied, err := copystructure.Copy(cfg)
	if err != nil {
		// BootstrapConfig only holds plain values.
		panic(fmt.Sprintf("config: failed to copy configuration: %s", err))
	}
	return copied.(*BootstrapConfig)
}

// ApplyDefaults returns a copy of the configuration with all unset values
// filled in. Locale categories fall back to AllLocales, then to the
// environment (LC_ALL, LC_<CATEGORY>, LANG), then to "C". getenv may be nil,
// in which case os.Getenv is used.
func (cfg *BootstrapConfig) ApplyDefaults(getenv func(string) string) *BootstrapConfig {
	if getenv == nil {
		getenv = os.Getenv
	}
	c := cfg.Clone()

	if c.Locale.Provider == "" {
		c.Locale.Provider = locale.ProviderLibc
	}

	categoryDefault := func(value, envName string) string {
		switch {
		case value != "":
			return value
		case c.AllLocales != "":
			return c.AllLocales
		case getenv("LC_ALL") != "":
			return getenv("LC_ALL")
		case getenv(envName) != "":
			return getenv(envName)
		case getenv("LANG") != "":
			return getenv("LANG")
		default:
			return fallbackLocale
		}
	}
	cats := &c.Locale.Categories
	cats.Collate = categoryDefault(cats.Collate, "LC_COLLATE")
	cats.CType = categoryDefault(cats.CType, "LC_CTYPE")
	cats.Messages = categoryDefault(cats.Messages, "LC_MESSAGES")
	cats.Monetary = categoryDefault(cats.Monetary, "LC_MONETARY")
	cats.Numeric = categoryDefault(cats.Numeric, "LC_NUMERIC")
	cats.Time = categoryDefault(cats.Time, "LC_TIME")

	if c.Superuser == "" {
		c.Superuser = currentUserName(getenv)
	}

	if c.WALSegmentSizeMB == 0 {
		c.WALSegmentSizeMB = DefaultWALSegmentSizeMB
	}

	return c
}

func currentUserName(getenv func(string) string) string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		// Windows reports DOMAIN\user.
		if i := strings.LastIndex(u.Username, `\`); i >= 0 {
			return u.Username[i+1:]
		}
		return u.Username
	}
	return getenv("USER")
}

// Validate checks the configuration and returns the resolved locale
// settings. Rules are checked in a fixed order: the superuser name, then the
// locale provider, the ICU locale requirement, the provider combination, the
// encoding, the locale names and finally the WAL segment size. The first
// violation is returned as an *initerr.Error.
func (cfg *BootstrapConfig) Validate() (*locale.Resolved, error) {
	switch {
	case cfg.Superuser == "":
		return nil, initerr.New(initerr.KindConfig, ErrEmptyRoleName, "",
			"superuser name must not be empty")
	case strings.HasPrefix(cfg.Superuser, ReservedRolePrefix):
		return nil, initerr.New(initerr.KindConfig, ErrReservedRoleName, cfg.Superuser,
			"superuser name %q is disallowed; role names cannot begin with %q", cfg.Superuser, ReservedRolePrefix)
	}

	resolved, err := locale.Check(cfg.Locale, cfg.Encoding)
	if err != nil {
		return nil, err
	}

	if !validWALSegmentSize(cfg.WALSegmentSizeMB) {
		return nil, initerr.New(initerr.KindConfig, ErrWALSegmentSize, fmt.Sprint(cfg.WALSegmentSizeMB),
			"invalid WAL segment size %d: %s", cfg.WALSegmentSizeMB, ErrWALSegmentSize)
	}

	return resolved, nil
}

func validWALSegmentSize(mb int) bool {
	return mb >= 1 && mb <= maxWALSegmentSizeMB && mb&(mb-1) == 0
}

// ChecksumVersion returns the data checksum version recorded in the control
// file: 0 when checksums are disabled.
func (cfg *BootstrapConfig) ChecksumVersion() uint32 {
	if cfg.DataChecksums {
		return DataChecksumVersion
	}
	return 0
}

// DataChecksumVersion is the id of the page checksum algorithm.
const DataChecksumVersion uint32 = 1
