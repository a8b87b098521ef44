// Copyright Safing ICS Technologies GmbH. Use of this source code is governed by the AGPL license that can be found in the LICENSE file.

package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.etcd.io/bbolt"

	"github.com/safing/dbinit/config"
	"github.com/safing/dbinit/dataroot"
	"github.com/safing/dbinit/formats/dsd"
	"github.com/safing/dbinit/info"
	"github.com/safing/dbinit/initerr"
	"github.com/safing/dbinit/locale"
	"github.com/safing/dbinit/log"
	"github.com/safing/dbinit/metrics"
)

// File names within the data directory.
const (
	DBFileName       = "global/catalog.db"
	ConfFileName     = "postgresql.conf"
	AutoConfFileName = "postgresql.auto.conf"
	TemplateDBPath   = "base/1"
)

// Well known object ids.
const (
	TemplateDatabaseOID = 1
	BootstrapRoleOID    = 10
)

const filePerm os.FileMode = 0o600

var (
	rolesBucket     = []byte("roles")
	databasesBucket = []byte("databases")

	// ErrNotFound is returned when a catalog object does not exist.
	ErrNotFound = errors.New("catalog object not found")
)

// Bootstrapper fills a freshly created data directory with its initial
// catalog.
type Bootstrapper interface {
	Bootstrap(plan *dataroot.Plan, cfg *config.BootstrapConfig, resolved *locale.Resolved) error
}

// Role is the catalog record of a role.
type Role struct {
	OID       uint32
	Name      string
	Superuser bool
}

// Database is the catalog record of a database.
type Database struct {
	OID        uint32
	Name       string
	EncodingID uint32
	Provider   string
	Collate    string
	CType      string
	ICULocale  string
	IsTemplate bool
	AllowConn  bool
}

// BoltBootstrapper writes a placeholder catalog to a bbolt database.
type BoltBootstrapper struct {
	// Format is the serialization format of catalog records.
	Format dsd.SerializationFormat
}

// New returns a BoltBootstrapper that stores CBOR records.
func New() *BoltBootstrapper {
	return &BoltBootstrapper{Format: dsd.CBOR}
}

// Bootstrap writes the version files, the catalog database and the
// configuration files.
func (b *BoltBootstrapper) Bootstrap(plan *dataroot.Plan, cfg *config.BootstrapConfig, resolved *locale.Resolved) error {
	version := []byte(info.MajorVersion + "\n")
	for _, path := range []string{
		filepath.Join(plan.DataDir, dataroot.VersionFileName),
		filepath.Join(plan.DataDir, filepath.FromSlash(TemplateDBPath), dataroot.VersionFileName),
	} {
		if err := writeFile(path, version); err != nil {
			return err
		}
	}

	if err := b.writeCatalog(plan.DataDir, cfg, resolved); err != nil {
		return err
	}

	if err := writeFile(filepath.Join(plan.DataDir, ConfFileName), renderConf(resolved)); err != nil {
		return err
	}
	autoConf := "# Do not edit this file manually!\n# It will be overwritten by the ALTER SYSTEM command.\n"
	if err := writeFile(filepath.Join(plan.DataDir, AutoConfFileName), []byte(autoConf)); err != nil {
		return err
	}

	log.Infof("catalog: bootstrapped catalog for superuser %q", cfg.Superuser)
	return nil
}

func (b *BoltBootstrapper) writeCatalog(dataDir string, cfg *config.BootstrapConfig, resolved *locale.Resolved) error {
	path := filepath.Join(dataDir, filepath.FromSlash(DBFileName))
	db, err := bbolt.Open(path, filePerm, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return initerr.Wrap(initerr.KindIO, err, path, "could not create catalog")
	}

	role := &Role{
		OID:       BootstrapRoleOID,
		Name:      cfg.Superuser,
		Superuser: true,
	}
	template := &Database{
		OID:        TemplateDatabaseOID,
		Name:       "template1",
		EncodingID: resolved.Encoding.ID,
		Provider:   string(resolved.Provider),
		Collate:    resolved.Categories.Collate,
		CType:      resolved.Categories.CType,
		ICULocale:  resolved.ICULocale,
		IsTemplate: true,
		AllowConn:  true,
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if err := b.put(tx, rolesBucket, role.Name, role); err != nil {
			return err
		}
		return b.put(tx, databasesBucket, template.Name, template)
	})
	if err != nil {
		_ = db.Close()
		return initerr.Wrap(initerr.KindIO, err, path, "could not write catalog")
	}

	if err := db.Close(); err != nil {
		return initerr.Wrap(initerr.KindIO, err, path, "could not close catalog")
	}
	return nil
}

func (b *BoltBootstrapper) put(tx *bbolt.Tx, bucketName []byte, key string, record interface{}) error {
	bucket, err := tx.CreateBucketIfNotExists(bucketName)
	if err != nil {
		return err
	}
	data, err := dsd.Dump(record, b.Format)
	if err != nil {
		return err
	}
	if err := bucket.Put([]byte(key), data); err != nil {
		return err
	}

	metrics.CatalogObjects.Inc()
	log.Tracef("catalog: wrote %s/%s", bucketName, key)
	return nil
}

// GetRole reads a role from the catalog of the given data directory.
func GetRole(dataDir, name string) (*Role, error) {
	r := &Role{}
	return r, get(dataDir, rolesBucket, name, r)
}

// GetDatabase reads a database from the catalog of the given data directory.
func GetDatabase(dataDir, name string) (*Database, error) {
	d := &Database{}
	return d, get(dataDir, databasesBucket, name, d)
}

func get(dataDir string, bucketName []byte, key string, record interface{}) error {
	path := filepath.Join(dataDir, filepath.FromSlash(DBFileName))
	db, err := bbolt.Open(path, filePerm, &bbolt.Options{Timeout: time.Second, ReadOnly: true})
	if err != nil {
		return fmt.Errorf("could not open catalog %s: %w", path, err)
	}
	defer db.Close() //nolint:errcheck

	return db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketName)
		if bucket == nil {
			return ErrNotFound
		}
		value := bucket.Get([]byte(key))
		if value == nil {
			return ErrNotFound
		}
		// bbolt values are only valid during the transaction.
		duplicate := make([]byte, len(value))
		copy(duplicate, value)
		_, err := dsd.Load(duplicate, record)
		return err
	})
}

func renderConf(resolved *locale.Resolved) []byte {
	var b strings.Builder
	b.WriteString("# Configuration written by dbinit.\n\n")
	resolved.Categories.Each(func(category, value string) {
		switch category {
		case "lc_collate", "lc_ctype":
			// fixed per database, recorded in the catalog
			return
		}
		fmt.Fprintf(&b, "%s = '%s'\n", category, strings.ReplaceAll(value, "'", "''"))
	})
	return []byte(b.String())
}

func writeFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, filePerm); err != nil {
		return initerr.Wrap(initerr.KindIO, err, path, "could not write file")
	}
	return nil
}
