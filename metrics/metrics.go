package metrics

import (
	"fmt"
	"io"
	"runtime"
	"strings"
	"sync"
	"time"

	vm "github.com/VictoriaMetrics/metrics"

	"github.com/safing/dbinit/info"
)

var (
	set = vm.NewSet()

	// SyncedFiles counts the files flushed to disk.
	SyncedFiles = set.NewCounter("dbinit_sync_files_total")
	// SyncedDirs counts the directories flushed to disk.
	SyncedDirs = set.NewCounter("dbinit_sync_dirs_total")
	// SyncErrors counts files and directories that failed to flush.
	SyncErrors = set.NewCounter("dbinit_sync_errors_total")
	// SyncDuration tracks how long a durability pass takes.
	SyncDuration = set.NewSummary("dbinit_sync_duration_seconds")
	// CreatedDirs counts directories created by the layout step.
	CreatedDirs = set.NewCounter("dbinit_layout_dirs_created_total")
	// CatalogObjects counts the objects written by the catalog bootstrap.
	CatalogObjects = set.NewCounter("dbinit_catalog_objects_total")
)

var registerInfo sync.Once

// registerInfoMetric registers the build info gauge. It must run after the
// program info was set.
func registerInfoMetric() {
	meta := info.GetInfo()
	set.NewGauge(fmt.Sprintf(
		`dbinit_info{version=%q,commit=%q,major_version=%q,go_os=%q,go_arch=%q,go_version=%q}`,
		checkUnknown(meta.Version),
		checkUnknown(meta.Commit),
		info.MajorVersion,
		runtime.GOOS,
		runtime.GOARCH,
		runtime.Version(),
	), func() float64 {
		return 1
	})
}

// ObserveStep records the duration of a bootstrap step.
func ObserveStep(step string, started time.Time) {
	set.GetOrCreateSummary(fmt.Sprintf(`dbinit_step_duration_seconds{step=%q}`, step)).UpdateDuration(started)
}

// WritePrometheus writes all metrics in the prometheus text format. Process
// metrics are included if requested.
func WritePrometheus(w io.Writer, withProcess bool) {
	registerInfo.Do(registerInfoMetric)
	set.WritePrometheus(w)
	if withProcess {
		vm.WriteProcessMetrics(w)
	}
}

func checkUnknown(s string) string {
	if strings.Contains(s, "unknown") {
		return "unknown"
	}
	return s
}
