// Copyright Safing ICS Technologies GmbH. Use of this source code is governed by the AGPL license that can be found in the LICENSE file.

/*
Package controlfile reads and writes the control file of a data directory.

The control file records the choices that are fixed for the lifetime of a
data directory. Its layout is little endian and bit-exact:

	offset  size  field
	0       4     magic 0x44424E49, the bytes "INBD" on disk
	4       4     format version
	8       8     system identifier
	16      16    cluster UUID
	32      8     creation time, unix seconds
	40      4     catalog version
	44      4     data checksum version, 0 = disabled
	48      4     encoding id
	52      4     WAL segment size in bytes
	56      1     locale provider tag
	57      3     reserved
	60      n     seven varint length prefixed strings
	60+n    4     CRC-32C of [0, 60+n)

The file is zero padded to Size bytes.
*/
package controlfile

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"os"
	"time"

	"github.com/gofrs/uuid"

	"github.com/safing/dbinit/config"
	"github.com/safing/dbinit/container"
	"github.com/safing/dbinit/info"
	"github.com/safing/dbinit/locale"
)

// Layout constants.
const (
	Magic         uint32 = 0x44424E49
	FormatVersion uint32 = 1
	Size                 = 8192

	headerSize  = 60
	crcSize     = 4
	stringCount = 7
)

// Decoding errors.
var (
	ErrTruncated     = errors.New("control file is truncated")
	ErrInvalidMagic  = errors.New("control file has an invalid magic number")
	ErrFormatVersion = errors.New("control file has an unsupported format version")
	ErrChecksum      = errors.New("control file checksum mismatch")
	ErrTooLarge      = errors.New("control file record does not fit")
	ErrInvalidRecord = errors.New("control file record is invalid")
)

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// Record is the content of a control file.
type Record struct {
	SystemID        uint64
	ClusterID       uuid.UUID
	Created         time.Time
	CatalogVersion  uint32
	ChecksumVersion uint32
	EncodingID      uint32
	WALSegmentSize  uint32
	Provider        locale.Provider
	Categories      locale.Categories
	ICULocale       string
}

// NewRecord builds the record of a new data directory from a validated
// configuration and its resolved locale settings.
func NewRecord(cfg *config.BootstrapConfig, resolved *locale.Resolved) (*Record, error) {
	clusterID, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("failed to generate cluster id: %w", err)
	}

	now := time.Now()
	return &Record{
		SystemID:        systemIdentifier(now),
		ClusterID:       clusterID,
		Created:         time.Unix(now.Unix(), 0),
		CatalogVersion:  info.CatalogVersion,
		ChecksumVersion: cfg.ChecksumVersion(),
		EncodingID:      resolved.Encoding.ID,
		WALSegmentSize:  uint32(cfg.WALSegmentSizeMB) << 20,
		Provider:        resolved.Provider,
		Categories:      resolved.Categories,
		ICULocale:       resolved.ICULocale,
	}, nil
}

// systemIdentifier combines the creation time with the process id, so that
// data directories created on the same host can be told apart.
func systemIdentifier(now time.Time) uint64 {
	id := uint64(now.Unix()) << 32
	id |= uint64(now.Nanosecond()/1000) << 12
	id |= uint64(os.Getpid() & 0xFFF)
	return id
}

// DataChecksums returns whether page checksums are enabled.
func (r *Record) DataChecksums() bool {
	return r.ChecksumVersion != 0
}

// Encoding returns the server encoding.
func (r *Record) Encoding() (*locale.Encoding, bool) {
	return locale.EncodingByID(r.EncodingID)
}

func (r *Record) strings() [stringCount]string {
	return [stringCount]string{
		r.Categories.Collate,
		r.Categories.CType,
		r.Categories.Messages,
		r.Categories.Monetary,
		r.Categories.Numeric,
		r.Categories.Time,
		r.ICULocale,
	}
}

// Encode returns the on-disk representation of the record.
func (r *Record) Encode() ([]byte, error) {
	tag := r.Provider.Tag()
	if tag == 0 {
		return nil, fmt.Errorf("%w: unknown locale provider %q", ErrInvalidRecord, r.Provider)
	}

	header := make([]byte, headerSize)
	binary.LittleEndian.PutUint32(header[0:], Magic)
	binary.LittleEndian.PutUint32(header[4:], FormatVersion)
	binary.LittleEndian.PutUint64(header[8:], r.SystemID)
	copy(header[16:32], r.ClusterID.Bytes())
	binary.LittleEndian.PutUint64(header[32:], uint64(r.Created.Unix()))
	binary.LittleEndian.PutUint32(header[40:], r.CatalogVersion)
	binary.LittleEndian.PutUint32(header[44:], r.ChecksumVersion)
	binary.LittleEndian.PutUint32(header[48:], r.EncodingID)
	binary.LittleEndian.PutUint32(header[52:], r.WALSegmentSize)
	header[56] = tag

	c := container.New(header)
	for _, s := range r.strings() {
		c.AppendString(s)
	}
	if c.Length()+crcSize > Size {
		return nil, ErrTooLarge
	}

	data := make([]byte, Size)
	n := copy(data, c.CompileData())
	binary.LittleEndian.PutUint32(data[n:], crc32.Checksum(data[:n], castagnoli))
	return data, nil
}

// Decode parses and verifies the on-disk representation of a record.
func Decode(data []byte) (*Record, error) {
	if len(data) < headerSize+stringCount+crcSize {
		return nil, ErrTruncated
	}
	if magic := binary.LittleEndian.Uint32(data[0:]); magic != Magic {
		return nil, fmt.Errorf("%w: %#08x", ErrInvalidMagic, magic)
	}
	if v := binary.LittleEndian.Uint32(data[4:]); v != FormatVersion {
		return nil, fmt.Errorf("%w: %d", ErrFormatVersion, v)
	}

	body := data[headerSize:]
	c := container.New(body)
	var values [stringCount]string
	for i := range values {
		s, err := c.GetNextString()
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrTruncated, err)
		}
		values[i] = s
	}

	end := headerSize + len(body) - c.Length()
	if end+crcSize > len(data) {
		return nil, ErrTruncated
	}
	if crc := binary.LittleEndian.Uint32(data[end:]); crc != crc32.Checksum(data[:end], castagnoli) {
		return nil, ErrChecksum
	}

	provider, ok := locale.ProviderFromTag(data[56])
	if !ok {
		return nil, fmt.Errorf("%w: unknown locale provider tag %q", ErrInvalidRecord, data[56])
	}
	clusterID, err := uuid.FromBytes(data[16:32])
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRecord, err)
	}

	return &Record{
		SystemID:        binary.LittleEndian.Uint64(data[8:]),
		ClusterID:       clusterID,
		Created:         time.Unix(int64(binary.LittleEndian.Uint64(data[32:])), 0),
		CatalogVersion:  binary.LittleEndian.Uint32(data[40:]),
		ChecksumVersion: binary.LittleEndian.Uint32(data[44:]),
		EncodingID:      binary.LittleEndian.Uint32(data[48:]),
		WALSegmentSize:  binary.LittleEndian.Uint32(data[52:]),
		Provider:        provider,
		Categories: locale.Categories{
			Collate:  values[0],
			CType:    values[1],
			Messages: values[2],
			Monetary: values[3],
			Numeric:  values[4],
			Time:     values[5],
		},
		ICULocale: values[6],
	}, nil
}
