package lod

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidProjection is returned when the screen-space metric cannot be derived
// from the camera and tau.
var ErrInvalidProjection = errors.New("invalid projection parameters")

// Projection holds the camera values the screen-space metric depends on.
type Projection struct {
	Near           float32 // distance to the near plane
	Top            float32 // top edge of the near plane in view space
	ViewportHeight int     // pixels
}

// ThresholdScale returns C = near / (|top| * (2*tau / viewportHeight)), the factor that turns a
// geometric error into the viewer distance at which it projects to tau pixels.
func ThresholdScale(p Projection, tau float32) (float32, error) {
	if p.Near <= 0 || p.Top == 0 || p.ViewportHeight <= 0 {
		return 0, fmt.Errorf("%w: near=%v top=%v viewport=%d", ErrInvalidProjection, p.Near, p.Top, p.ViewportHeight)
	}
	if tau <= 0 {
		return 0, fmt.Errorf("%w: tau=%v", ErrInvalidProjection, tau)
	}
	top := float32(math.Abs(float64(p.Top)))
	return p.Near / (top * (2 * tau / float32(p.ViewportHeight))), nil
}

// Thresholds returns the minimum squared distances (delta*c)^2 for each tier.
func Thresholds(deltas []float32, c float32) []float32 {
	out := make([]float32, len(deltas))
	for i, d := range deltas {
		v := d * c
		out[i] = v * v
	}
	return out
}

// Select returns the coarsest tier whose threshold the viewer is beyond:
// the highest i >= 1 with distanceSquared > thresholds[i], else 0.
func Select(thresholds []float32, distanceSquared float32) int {
	tier := 0
	for i := 1; i < len(thresholds); i++ {
		if distanceSquared > thresholds[i] {
			tier = i
		}
	}
	return tier
}

// Monotone replaces each delta with the running maximum so thresholds never decrease
// with tier index.
func Monotone(deltas []float32) []float32 {
	out := make([]float32, len(deltas))
	var m float32
	for i, d := range deltas {
		if d > m {
			m = d
		}
		out[i] = m
	}
	return out
}

// Metric caches the per-tier thresholds of one level or patch and recomputes them only
// when tau or the projection changes.
type Metric struct {
	deltas     []float32
	thresholds []float32

	tau   float32
	proj  Projection
	valid bool
}

// NewMetric creates a metric over the given per-tier maximum deltas.
// Deltas are made monotone.
func NewMetric(deltas []float32) *Metric {
	return &Metric{deltas: Monotone(deltas)}
}

// Deltas returns the monotone per-tier maximum deltas.
func (m *Metric) Deltas() []float32 {
	return m.deltas
}

// Thresholds returns the current minimum squared distances, or nil before the first Update.
func (m *Metric) Thresholds() []float32 {
	return m.thresholds
}

// Update recomputes thresholds if tau or the projection changed.
// It reports whether a recomputation happened.
func (m *Metric) Update(p Projection, tau float32) (bool, error) {
	if m.valid && m.tau == tau && m.proj == p {
		return false, nil
	}
	c, err := ThresholdScale(p, tau)
	if err != nil {
		return false, err
	}
	m.thresholds = Thresholds(m.deltas, c)
	m.tau = tau
	m.proj = p
	m.valid = true
	return true, nil
}

// Select picks the tier for a viewer at the given squared distance.
func (m *Metric) Select(distanceSquared float32) int {
	return Select(m.thresholds, distanceSquared)
}
