// Copyright Safing ICS Technologies GmbH. Use of this source code is governed by the AGPL license that can be found in the LICENSE file.

package config

import (
	"errors"
	"fmt"
)

// ReservedRolePrefix is the prefix reserved for roles created by the engine itself.
const ReservedRolePrefix = "pg_"

// Common error definitions.
var (
	ErrReservedRoleName = errors.New("role names cannot begin with \"" + ReservedRolePrefix + "\"")
	ErrEmptyRoleName    = errors.New("superuser name must not be empty")
	ErrWALSegmentSize   = errors.New("WAL segment size must be a power of two between 1 and 1024")
	ErrInvalidData      = errors.New("invalid data")
)

// InvalidValueError describes an invalid value in a settings file.
type InvalidValueError struct {
	Key   string
	Value interface{}
	Msg   string
}

func (ive *InvalidValueError) Error() string {
	msg := fmt.Sprintf("%s: invalid value %+v", ive.Key, ive.Value)
	if ive.Msg != "" {
		msg += ": " + ive.Msg
	}
	return msg
}

// Unwrap returns ErrInvalidData.
func (ive *InvalidValueError) Unwrap() error {
	return ErrInvalidData
}

func newInvalidValueError(key string, value interface{}, msg string) *InvalidValueError {
	return &InvalidValueError{
		Key:   key,
		Value: value,
		Msg:   msg,
	}
}
