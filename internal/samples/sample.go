// internal/samples/sample.go
package samples

import (
	"time"

	"github.com/xkilldash9x/cursortrail/internal/geometry"
)

// Sample is one absolute cursor observation, timed from the start of the
// recording session.
type Sample struct {
	TimeOffset time.Duration
	X          int
	Y          int
}

// Zero is the batch boundary sentinel. Real observations never sit at the
// literal origin with a zero offset, so the all-zero row is reserved.
var Zero = Sample{}

// IsSentinel reports whether s marks a batch boundary.
func (s Sample) IsSentinel() bool {
	return s == Zero
}

// Position returns the screen point of the observation.
func (s Sample) Position() geometry.Position {
	return geometry.Position{X: s.X, Y: s.Y}
}
