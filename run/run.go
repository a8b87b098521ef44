// Copyright Safing ICS Technologies GmbH. Use of this source code is governed by the AGPL license that can be found in the LICENSE file.

package run

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime/pprof"
	"syscall"

	"github.com/fatih/color"

	"github.com/safing/dbinit/info"
	"github.com/safing/dbinit/initerr"
	"github.com/safing/dbinit/log"
)

// ExitInterrupted is the exit code of an interrupted run.
const ExitInterrupted = 130

// PrintStackOnExit prints all goroutine stacks when the run is interrupted.
var PrintStackOnExit bool

var errorColor = color.New(color.FgRed, color.Bold)

// Run starts logging, executes fn and returns the process exit code.
// Errors are printed to stderr. The work of fn is not cancelled on an
// interrupt: the process exits right away and leaves the data directory
// as it is, so that the next run judges it.
func Run(fn func() error) int {
	log.SetOutput(os.Stderr, !color.NoColor)
	if err := log.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start logging: %s\n", err)
		return initerr.KindUnknown.ExitCode()
	}
	defer log.Shutdown()

	signalCh := make(chan os.Signal, 1)
	signal.Notify(
		signalCh,
		os.Interrupt,
		syscall.SIGHUP,
		syscall.SIGTERM,
		syscall.SIGQUIT,
	)
	defer signal.Stop(signalCh)

	done := make(chan error, 1)
	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		if err != nil {
			PrintError(os.Stderr, err)
		}
		return initerr.ExitCode(err)

	case sig := <-signalCh:
		fmt.Fprintln(os.Stderr, " <INTERRUPT>")
		log.Warningf("run: received %s, the target directories are left in an unspecified state", sig)
		if PrintStackOnExit {
			printStackTo(os.Stderr)
		}
		return ExitInterrupted
	}
}

// PrintError prints the error the way a failed run reports it.
func PrintError(w io.Writer, err error) {
	kind := initerr.KindOf(err)
	fmt.Fprintf(w, "%s %s\n", errorColor.Sprintf("%s error:", kind), err)
	if kind.IsConfig() {
		fmt.Fprintf(w, "Try \"%s --help\" for more information.\n", info.GetInfo().Name)
	}
}

func printStackTo(writer io.Writer) {
	fmt.Fprintln(writer, "=== PRINTING TRACES ===")
	fmt.Fprintln(writer, "=== GOROUTINES ===")
	_ = pprof.Lookup("goroutine").WriteTo(writer, 1)
	fmt.Fprintln(writer, "=== END TRACES ===")
}
