// internal/geometry/vector.go
package geometry

import (
	"fmt"
	"math"
)

// Position is an absolute point on the screen, in pixels from the top left corner.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Sub returns the displacement that takes other to p.
func (p Position) Sub(other Position) Displacement {
	return Displacement{DX: p.X - other.X, DY: p.Y - other.Y}
}

// Add returns p moved by d.
func (p Position) Add(d Displacement) Position {
	return Position{X: p.X + d.DX, Y: p.Y + d.DY}
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// Displacement is a relative movement in whole pixels. It is either the step
// between two consecutive cursor samples or the net sum of a recorded path.
type Displacement struct {
	DX int `json:"dx"`
	DY int `json:"dy"`
}

// Add returns the vector sum of d and other.
func (d Displacement) Add(other Displacement) Displacement {
	return Displacement{DX: d.DX + other.DX, DY: d.DY + other.DY}
}

// IsZero reports whether d moves nowhere.
func (d Displacement) IsZero() bool {
	return d.DX == 0 && d.DY == 0
}

// Distance is the Euclidean length of d rounded to the nearest pixel.
func (d Displacement) Distance() int {
	// math.Hypot for numerical stability on large recordings.
	return int(math.Round(math.Hypot(float64(d.DX), float64(d.DY))))
}

// Angle returns the angle from the positive x axis to d in radians, on [0, 2π).
// The zero displacement has angle 0.
func (d Displacement) Angle() float64 {
	if d.IsZero() {
		return 0
	}
	return normalizeAngle(math.Atan2(float64(d.DY), float64(d.DX)))
}

// Rotate turns d by theta radians. Components are rounded after the transform,
// so the result may differ from the exact rotation by up to half a pixel per axis.
func (d Displacement) Rotate(theta float64) Displacement {
	sin, cos := math.Sincos(theta)
	x, y := float64(d.DX), float64(d.DY)
	return Displacement{
		DX: int(math.Round(x*cos - y*sin)),
		DY: int(math.Round(x*sin + y*cos)),
	}
}

func (d Displacement) String() string {
	return fmt.Sprintf("(%d,%d)", d.DX, d.DY)
}

// NetDisplacement sums a sequence of displacements.
func NetDisplacement(steps []Displacement) Displacement {
	var net Displacement
	for _, s := range steps {
		net = net.Add(s)
	}
	return net
}

// normalizeAngle maps any angle onto [0, 2π).
func normalizeAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	// Adding 2π to a tiny negative value can round up to exactly 2π.
	if a >= 2*math.Pi {
		a = 0
	}
	return a
}
