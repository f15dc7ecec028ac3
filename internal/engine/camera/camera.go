// Package camera provides camera implementations for 3D rendering.
package camera

import (
	gomath "math"

	"github.com/go-gl/mathgl/mgl32"
)

// FlyCamera is a free-flying first-person camera.
type FlyCamera struct {
	// Eye position in world space
	Pos mgl32.Vec3

	// Orientation (radians)
	Yaw   float32 // 0 looks along +x
	Pitch float32

	// Projection
	FOV    float32 // vertical field of view (degrees)
	Near   float32
	Far    float32
	Width  int
	Height int

	// Constraints
	MaxPitch float32

	// Sensitivity
	MouseSensitivity float32
	Speed            float32 // world units per second
}

// NewFlyCamera creates a fly camera with default settings for a width x height viewport.
func NewFlyCamera(width, height int) *FlyCamera {
	return &FlyCamera{
		Yaw:              0,
		Pitch:            -0.3,
		FOV:              60,
		Near:             1,
		Far:              20000,
		Width:            width,
		Height:           height,
		MaxPitch:         1.55,
		MouseSensitivity: 0.0025,
		Speed:            200,
	}
}

// Position returns the camera position in world space.
func (c *FlyCamera) Position() mgl32.Vec3 {
	return c.Pos
}

// Forward returns the unit view direction.
func (c *FlyCamera) Forward() mgl32.Vec3 {
	cp := gomath.Cos(float64(c.Pitch))
	return mgl32.Vec3{
		float32(gomath.Cos(float64(c.Yaw)) * cp),
		float32(gomath.Sin(float64(c.Pitch))),
		float32(gomath.Sin(float64(c.Yaw)) * cp),
	}.Normalize()
}

// Right returns the unit right vector on the XZ plane.
func (c *FlyCamera) Right() mgl32.Vec3 {
	return mgl32.Vec3{
		float32(-gomath.Sin(float64(c.Yaw))),
		0,
		float32(gomath.Cos(float64(c.Yaw))),
	}
}

// View returns the view matrix.
func (c *FlyCamera) View() mgl32.Mat4 {
	return mgl32.LookAtV(c.Pos, c.Pos.Add(c.Forward()), mgl32.Vec3{0, 1, 0})
}

// Aspect returns the viewport aspect ratio.
func (c *FlyCamera) Aspect() float32 {
	if c.Height == 0 {
		return 1
	}
	return float32(c.Width) / float32(c.Height)
}

// Projection returns the perspective projection matrix.
func (c *FlyCamera) Projection() mgl32.Mat4 {
	return mgl32.Perspective(mgl32.DegToRad(c.FOV), c.Aspect(), c.Near, c.Far)
}

// ProjectionNear returns the near plane distance.
func (c *FlyCamera) ProjectionNear() float32 {
	return c.Near
}

// ProjectionTop returns the top edge of the view volume at the near plane.
func (c *FlyCamera) ProjectionTop() float32 {
	return c.Near * float32(gomath.Tan(float64(mgl32.DegToRad(c.FOV))/2))
}

// ViewportHeight returns the viewport height in pixels.
func (c *FlyCamera) ViewportHeight() int {
	return c.Height
}

// Frustum returns the culling volume of the current view.
func (c *FlyCamera) Frustum() Frustum {
	return NewFrustum(c.Projection().Mul4(c.View()))
}

// SetViewport updates the viewport size after a window resize.
func (c *FlyCamera) SetViewport(width, height int) {
	c.Width = width
	c.Height = height
}

// HandleMouse turns the camera by a mouse delta in pixels.
func (c *FlyCamera) HandleMouse(deltaX, deltaY float32) {
	c.Yaw += deltaX * c.MouseSensitivity
	c.Pitch -= deltaY * c.MouseSensitivity

	// Clamp pitch
	if c.Pitch > c.MaxPitch {
		c.Pitch = c.MaxPitch
	}
	if c.Pitch < -c.MaxPitch {
		c.Pitch = -c.MaxPitch
	}
}

// HandleMovement moves the camera along its view axes. Inputs are in [-1, 1]; dt is
// the frame time in seconds.
func (c *FlyCamera) HandleMovement(forward, right, up, dt float32) {
	step := c.Speed * dt
	move := c.Forward().Mul(forward).
		Add(c.Right().Mul(right)).
		Add(mgl32.Vec3{0, up, 0})
	c.Pos = c.Pos.Add(move.Mul(step))
}

// LookAt orients the camera towards target.
func (c *FlyCamera) LookAt(target mgl32.Vec3) {
	d := target.Sub(c.Pos)
	if d.Len() == 0 {
		return
	}
	d = d.Normalize()
	c.Yaw = float32(gomath.Atan2(float64(d.Z()), float64(d.X())))
	c.Pitch = float32(gomath.Asin(float64(d.Y())))
}
