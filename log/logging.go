// Copyright Safing ICS Technologies GmbH. Use of this source code is governed by the AGPL license that can be found in the LICENSE file.

package log

import (
	"errors"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tevino/abool"
)

// concept
/*
- Logging function:
  - check if package-based levelling enabled
    - if yes, check if level is active for this package
  - check if level is active
  - send data to backend via big buffered channel
- Backend:
  - started with Start, drains the channel into the output writer
  - Shutdown drains what is left and stops the writer
- Channel overbuffering protection:
  - if buffer is full, trigger write
  - before Start, lines are kept until the buffer is full, then dropped
*/

// Severity describes a log level.
type Severity uint32

type logLine struct {
	msg       string
	level     Severity
	timestamp time.Time
	file      string
	line      int
}

// Log Levels.
const (
	TraceLevel    Severity = 1
	DebugLevel    Severity = 2
	InfoLevel     Severity = 3
	WarningLevel  Severity = 4
	ErrorLevel    Severity = 5
	CriticalLevel Severity = 6
)

var (
	logBuffer             chan *logLine
	forceEmptyingOfBuffer chan struct{}

	logLevelInt = uint32(InfoLevel)
	logLevel    = &logLevelInt

	pkgLevelsActive = abool.NewBool(false)
	pkgLevels       = make(map[string]Severity)
	pkgLevelsLock   sync.Mutex

	logsWaiting     = make(chan struct{}, 1)
	logsWaitingFlag = abool.NewBool(false)

	outputLock sync.Mutex
	output     io.Writer = os.Stderr
	useColor             = true

	started    = abool.NewBool(false)
	shutdownCh chan struct{}
	writerDone chan struct{}

	// ErrAlreadyStarted is returned by Start if logging was already started.
	ErrAlreadyStarted = errors.New("logging already started")
)

func init() {
	logBuffer = make(chan *logLine, 1024)
	forceEmptyingOfBuffer = make(chan struct{}, 4)
}

// SetPkgLevels sets individual log levels for packages. An empty map
// removes them.
func SetPkgLevels(levels map[string]Severity) {
	pkgLevelsLock.Lock()
	pkgLevels = levels
	pkgLevelsLock.Unlock()
	pkgLevelsActive.SetTo(len(levels) > 0)
}

// SetLogLevel sets a new log level.
func SetLogLevel(level Severity) {
	atomic.StoreUint32(logLevel, uint32(level))
}

// GetLogLevel returns the current log level.
func GetLogLevel() Severity {
	return Severity(atomic.LoadUint32(logLevel))
}

// ParseLevel returns the level severity of a log level name. It returns 0
// for unknown names.
func ParseLevel(level string) Severity {
	switch strings.ToLower(level) {
	case "trace":
		return TraceLevel
	case "debug":
		return DebugLevel
	case "info":
		return InfoLevel
	case "warning":
		return WarningLevel
	case "error":
		return ErrorLevel
	case "critical":
		return CriticalLevel
	}
	return 0
}

// SetOutput sets the writer that log lines are written to and whether they
// are colored. It must be called before Start.
func SetOutput(w io.Writer, color bool) {
	outputLock.Lock()
	defer outputLock.Unlock()

	output = w
	useColor = color
}

// Start starts the log writer.
func Start() error {
	if !started.SetToIf(false, true) {
		return ErrAlreadyStarted
	}

	shutdownCh = make(chan struct{})
	writerDone = make(chan struct{})
	go writer(shutdownCh, writerDone)

	// write what was logged before the start
	if logsWaitingFlag.SetToIf(false, true) {
		logsWaiting <- struct{}{}
	}

	return nil
}

// Shutdown writes all pending log lines and stops the log writer.
func Shutdown() {
	if !started.SetToIf(true, false) {
		return
	}

	close(shutdownCh)
	<-writerDone
}
