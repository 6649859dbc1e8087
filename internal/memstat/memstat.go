// Package memstat snapshots runtime memory statistics around a pipeline
// run and renders the delta for --debug output. It never influences
// filter or pipeline behavior; it only observes.
package memstat

import (
	"fmt"
	"runtime"

	"github.com/dustin/go-humanize"
)

// Snapshot is a point-in-time capture of the fields that matter for a
// human-readable delta: current live allocation, total bytes ever
// allocated, and bytes obtained from the OS.
type Snapshot struct {
	Alloc      uint64
	TotalAlloc uint64
	Sys        uint64
}

// Take captures the current runtime.MemStats.
func Take() Snapshot {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return Snapshot{Alloc: m.Alloc, TotalAlloc: m.TotalAlloc, Sys: m.Sys}
}

// Delta renders a human-readable summary using humanize.Bytes for each
// field: total_alloc is the bytes allocated between before and after,
// while alloc and sys are the values taken at after.
func Delta(before, after Snapshot) string {
	return fmt.Sprintf(
		"alloc=%s total_alloc=%s sys=%s",
		humanize.Bytes(after.Alloc),
		humanize.Bytes(after.TotalAlloc-before.TotalAlloc),
		humanize.Bytes(after.Sys),
	)
}
