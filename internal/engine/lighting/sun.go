// Package lighting provides lighting utilities for 3D rendering.
package lighting

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// ToSun converts a sun position to a unit vector pointing from the ground towards the
// sun. Azimuth is rotation around the Y axis in degrees, elevation is the angle above
// the horizon in degrees.
func ToSun(azimuth, elevation float32) mgl32.Vec3 {
	az := float64(mgl32.DegToRad(azimuth))
	el := float64(mgl32.DegToRad(elevation))
	return mgl32.Vec3{
		float32(math.Cos(el) * math.Sin(az)),
		float32(math.Sin(el)),
		float32(math.Cos(el) * math.Cos(az)),
	}
}

// SunDirection returns the direction sunlight travels, the form the terrain shaders
// take for uLightDir.
func SunDirection(azimuth, elevation float32) mgl32.Vec3 {
	return ToSun(azimuth, elevation).Mul(-1)
}
