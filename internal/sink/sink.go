// Package sink provides the IO backends forecast output is written to. A
// backend is told the full output coordinate schema exactly once, before
// the first write, then accepts one incremental write per lead time.
package sink

import (
	"github.com/vk/gridcastgo/internal/grid"
)

// Backend is a write target for forecast trajectories.
type Backend interface {
	// AddArray declares the output schema: the full coordinate system of
	// the run (without the variable axis) plus the channel names. It must
	// be called exactly once, before the first Write.
	AddArray(total *grid.CoordSystem, variables []string) error

	// Write persists one forecast state. The state carries a variable axis
	// and a lead-time axis of length one; the backend files each channel at
	// the declared lead-time index.
	Write(x *grid.Field) error

	// SetAttr attaches a metadata attribute (run ID, provenance) to the
	// output.
	SetAttr(key, value string)

	// Close flushes and releases the backend.
	Close() error
}
