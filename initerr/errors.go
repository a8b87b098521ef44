// Copyright Safing ICS Technologies GmbH. Use of this source code is governed by the AGPL license that can be found in the LICENSE file.

/*
Package initerr classifies every failure of a bootstrap run.

Each error carries a Kind, the offending input value and a sentinel cause
that can be matched with errors.Is. The CLI renders Error() verbatim and
maps the Kind to the process exit code.
*/
package initerr

import (
	"errors"
	"fmt"
)

// Kind is the stable classification of a bootstrap error.
type Kind uint8

// Error kinds.
const (
	KindUnknown Kind = iota
	KindConfig
	KindLocale
	KindPath
	KindState
	KindIO
	KindCapability
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindLocale:
		return "locale"
	case KindPath:
		return "path"
	case KindState:
		return "state"
	case KindIO:
		return "io"
	case KindCapability:
		return "capability"
	default:
		return "unknown"
	}
}

// IsConfig returns whether the kind is a configuration error. Locale errors
// are a refinement of configuration errors.
func (k Kind) IsConfig() bool {
	return k == KindConfig || k == KindLocale
}

// ExitCode returns the process exit code for the kind. It is never zero.
func (k Kind) ExitCode() int {
	switch k {
	case KindConfig, KindLocale:
		return 1
	case KindPath:
		return 2
	case KindState:
		return 3
	case KindIO:
		return 4
	case KindCapability:
		return 5
	default:
		return 10
	}
}

// Error is a classified bootstrap error.
type Error struct {
	Kind  Kind
	Value string
	Msg   string
	Err   error
}

// New returns a new classified error. The message is formatted from format
// and args and should quote the offending value.
func New(kind Kind, cause error, value string, format string, args ...interface{}) *Error {
	return &Error{
		Kind:  kind,
		Value: value,
		Msg:   fmt.Sprintf(format, args...),
		Err:   cause,
	}
}

// Wrap classifies err as kind. The message is formed from msg and err.
func Wrap(kind Kind, err error, value string, msg string) *Error {
	return &Error{
		Kind:  kind,
		Value: value,
		Msg:   fmt.Sprintf("%s: %s", msg, err),
		Err:   err,
	}
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "":
		return e.Msg
	case e.Err != nil:
		return e.Err.Error()
	default:
		return e.Kind.String() + " error"
	}
}

// Unwrap returns the cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of the first classified error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// ExitCode returns the process exit code for err. A nil error maps to 0.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	return KindOf(err).ExitCode()
}
