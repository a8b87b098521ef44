// Copyright Safing ICS Technologies GmbH. Use of this source code is governed by the AGPL license that can be found in the LICENSE file.

package dsd

// dynamic structured data
// check here for some benchmarks: https://github.com/alecthomas/go_serialization_benchmarks

import (
	"encoding/json"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/safing/dbinit/formats/varint"
)

// Load loads the dsd structured data from the given bytes into t.
func Load(data []byte, t interface{}) (SerializationFormat, error) {
	format, read, err := loadFormat(data)
	if err != nil {
		return 0, err
	}
	return format, LoadAsFormat(data[read:], format, t)
}

// LoadAsFormat loads data of the given format into t. RAW data can only be
// loaded into a *[]byte.
func LoadAsFormat(data []byte, format SerializationFormat, t interface{}) error {
	switch format {
	case RAW:
		dst, ok := t.(*[]byte)
		if !ok {
			return ErrIncompatibleFormat
		}
		*dst = data
		return nil
	case CBOR:
		if err := cbor.Unmarshal(data, t); err != nil {
			return fmt.Errorf("dsd: failed to unpack cbor: %w", err)
		}
		return nil
	case JSON:
		if err := json.Unmarshal(data, t); err != nil {
			return fmt.Errorf("dsd: failed to unpack json: %w", err)
		}
		return nil
	case MsgPack:
		if err := msgpack.Unmarshal(data, t); err != nil {
			return fmt.Errorf("dsd: failed to unpack msgpack: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("%w: %d", ErrUnknownFormat, format)
	}
}

func loadFormat(data []byte) (format SerializationFormat, read int, err error) {
	f, read, err := varint.Unpack8(data)
	if err != nil {
		return 0, 0, err
	}
	if len(data) <= read {
		return 0, 0, ErrNoMoreSpace
	}
	return SerializationFormat(f), read, nil
}

// Dump stores the interface as a dsd formatted data structure.
func Dump(t interface{}, format SerializationFormat) ([]byte, error) {
	data, err := DumpWithoutIdentifier(t, format)
	if err != nil {
		return nil, err
	}

	// AUTO resolves to the default or to RAW for byte slices.
	if format == AUTO {
		if _, ok := t.([]byte); ok {
			format = RAW
		} else {
			format = DefaultSerializationFormat
		}
	}
	return append(varint.Pack8(uint8(format)), data...), nil
}

// DumpWithoutIdentifier stores the interface in the given format without the
// leading format byte.
func DumpWithoutIdentifier(t interface{}, format SerializationFormat) ([]byte, error) {
	if format == AUTO {
		if _, ok := t.([]byte); ok {
			format = RAW
		}
	}
	format, ok := format.ValidateSerializationFormat()
	if !ok {
		return nil, ErrUnknownFormat
	}

	var data []byte
	var err error
	switch format {
	case RAW:
		var ok bool
		data, ok = t.([]byte)
		if !ok {
			return nil, ErrIncompatibleFormat
		}
	case CBOR:
		data, err = cbor.Marshal(t)
		if err != nil {
			return nil, fmt.Errorf("dsd: failed to pack cbor: %w", err)
		}
	case JSON:
		data, err = json.Marshal(t)
		if err != nil {
			return nil, fmt.Errorf("dsd: failed to pack json: %w", err)
		}
	case MsgPack:
		data, err = msgpack.Marshal(t)
		if err != nil {
			return nil, fmt.Errorf("dsd: failed to pack msgpack: %w", err)
		}
	default:
		return nil, ErrIncompatibleFormat
	}

	return data, nil
}
