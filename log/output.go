// Copyright Safing ICS Technologies GmbH. Use of this source code is governed by the AGPL license that can be found in the LICENSE file.

package log

import (
	"fmt"
	"time"
)

func writeLine(line *logLine) {
	outputLock.Lock()
	defer outputLock.Unlock()

	fmt.Fprintln(output, formatLine(line, useColor))
}

func writer(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	for {
		// wait until logs need to be processed
		select {
		case <-logsWaiting:
			logsWaitingFlag.UnSet()
		case <-forceEmptyingOfBuffer:
		case <-stop:
			flushBuffer()
			return
		}

		flushBuffer()
	}
}

// flushBuffer writes all the logs that are currently buffered.
func flushBuffer() {
	for {
		select {
		case line := <-logBuffer:
			writeLine(line)
		case <-time.After(time.Millisecond):
			return
		}
	}
}
