// Package viewer implements the interactive terrain viewer: window, fly camera and the
// per-frame update and draw of a terrain driver.
package viewer

import (
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/veandco/go-sdl2/sdl"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-terrain/internal/config"
	"github.com/Faultbox/midgard-terrain/internal/engine/camera"
	"github.com/Faultbox/midgard-terrain/internal/engine/debug"
	"github.com/Faultbox/midgard-terrain/internal/engine/glrender"
	"github.com/Faultbox/midgard-terrain/internal/engine/input"
	"github.com/Faultbox/midgard-terrain/internal/engine/picking"
	"github.com/Faultbox/midgard-terrain/internal/engine/window"
	"github.com/Faultbox/midgard-terrain/internal/terrain/setup"
)

const (
	title = "Midgard Terrain"

	tauStep     = 1.25
	minTau      = 0.25
	maxTau      = 64
	boostFactor = 5
	pickStep    = 0.5
)

// Viewer owns the window, the GL device and the terrain scene.
type Viewer struct {
	cfg *config.Config
	log *zap.Logger

	window *window.Window
	dev    *glrender.Device
	input  *input.Input
	cam    *camera.FlyCamera
	scene  *setup.Scene
	shots  *debug.Screenshots

	running   bool
	tau       float32
	wireframe bool
	tint      bool
	frozen    bool
	follow    bool
}

// New opens the window, compiles the terrain programs and builds the scene cfg describes.
func New(cfg *config.Config, log *zap.Logger) (*Viewer, error) {
	if log == nil {
		log = zap.NewNop()
	}
	v := &Viewer{
		cfg:       cfg,
		log:       log,
		input:     input.New(),
		shots:     debug.NewScreenshots("screenshots", "terrain"),
		tau:       cfg.Terrain.Tau,
		wireframe: cfg.Graphics.Wireframe,
		follow:    cfg.Camera.FollowGround,
	}

	var err error
	v.window, err = window.New(title, cfg.Graphics, log.Named("window"))
	if err != nil {
		return nil, fmt.Errorf("failed to create window: %w", err)
	}

	width, height := v.window.DrawableSize()
	v.cam = camera.NewFlyCamera(width, height)
	v.cam.FOV = cfg.Graphics.FOV
	v.cam.Near = cfg.Graphics.Near
	v.cam.Far = cfg.Graphics.Far
	v.cam.Speed = cfg.Camera.Speed
	v.cam.Pos = mgl32.Vec3(cfg.Camera.Start)

	v.dev, err = glrender.New(log.Named("gl"), glrender.Options{FogFar: cfg.Graphics.Far * 0.8})
	if err != nil {
		v.Close()
		return nil, fmt.Errorf("failed to create GL device: %w", err)
	}

	v.scene, err = setup.Build(v.dev, v.cam, cfg, log)
	if err != nil {
		v.Close()
		return nil, err
	}
	_, hi := v.scene.Field.MinMax()
	v.dev.SetMaxHeight(hi)
	v.dev.SetWireframe(v.wireframe)

	log.Info("viewer initialized",
		zap.String("mode", cfg.Terrain.Mode),
		zap.Float32("tau", v.tau),
		zap.Int("width", width),
		zap.Int("height", height))
	return v, nil
}

// Run drives the frame loop until the window is closed or Escape is pressed.
func (v *Viewer) Run() error {
	v.running = true

	lastTime := time.Now()
	frameCount := 0
	fpsTimer := time.Now()

	v.log.Info("starting frame loop")
	for v.running {
		now := time.Now()
		dt := float32(now.Sub(lastTime).Seconds())
		lastTime = now

		if v.input.Update() {
			v.running = false
			break
		}
		v.handleEvents()

		if err := v.update(dt); err != nil {
			return fmt.Errorf("update error: %w", err)
		}
		if err := v.render(); err != nil {
			return fmt.Errorf("render error: %w", err)
		}
		v.window.SwapBuffers()

		frameCount++
		if elapsed := time.Since(fpsTimer); elapsed >= time.Second {
			fps := float64(frameCount) / elapsed.Seconds()
			st := v.scene.Driver.Stats()
			v.window.SetTitle(fmt.Sprintf("%s | %s | %.0f fps | tau %.2f | %s",
				title, v.cfg.Terrain.Mode, fps, v.tau, st))
			v.log.Debug("frame stats",
				zap.Float64("fps", fps),
				zap.Int("drawCalls", st.DrawCalls),
				zap.Int("triangles", st.Triangles),
				zap.Int("culled", st.Culled))
			frameCount = 0
			fpsTimer = time.Now()
		}
	}
	return nil
}

func (v *Viewer) handleEvents() {
	for _, event := range v.input.Events() {
		switch event.Type {
		case input.EventWindowResize:
			w, h := v.window.DrawableSize()
			v.cam.SetViewport(w, h)
		case input.EventMouseDown:
			if event.Button == sdl.BUTTON_LEFT {
				v.pick(event.MouseX, event.MouseY)
			}
		case input.EventKeyDown:
			v.handleKey(event.Key)
		}
	}
}

func (v *Viewer) handleKey(key sdl.Scancode) {
	switch key {
	case sdl.SCANCODE_ESCAPE:
		v.running = false
	case sdl.SCANCODE_EQUALS, sdl.SCANCODE_KP_PLUS:
		v.setTau(v.tau / tauStep)
	case sdl.SCANCODE_MINUS, sdl.SCANCODE_KP_MINUS:
		v.setTau(v.tau * tauStep)
	case sdl.SCANCODE_F1:
		v.wireframe = !v.wireframe
		v.dev.SetWireframe(v.wireframe)
	case sdl.SCANCODE_F2:
		v.tint = !v.tint
		v.dev.SetTintTiers(v.tint)
	case sdl.SCANCODE_F3:
		v.frozen = !v.frozen
		v.log.Info("level of detail", zap.Bool("frozen", v.frozen))
	case sdl.SCANCODE_G:
		v.follow = !v.follow
		v.log.Info("ground follow", zap.Bool("enabled", v.follow))
	case sdl.SCANCODE_F12:
		v.screenshot()
	}
}

// setTau clamps and applies a new screen-space error. A smaller tau means finer terrain.
func (v *Viewer) setTau(tau float32) {
	tau = mgl32.Clamp(tau, minTau, maxTau)
	if err := v.scene.Driver.SetTau(tau); err != nil {
		v.log.Warn("rejected tau", zap.Float32("tau", tau), zap.Error(err))
		return
	}
	v.tau = tau
	v.log.Info("tau changed", zap.Float32("tau", tau))
}

func (v *Viewer) update(dt float32) error {
	if v.input.IsButtonHeld(sdl.BUTTON_RIGHT) {
		dx, dy := v.input.MouseDelta()
		v.cam.HandleMouse(dx, dy)
	}

	speed := v.cfg.Camera.Speed
	if v.input.IsKeyHeld(sdl.SCANCODE_LSHIFT) {
		speed *= boostFactor
	}
	v.cam.Speed = speed
	v.cam.HandleMovement(
		v.input.Axis(sdl.SCANCODE_S, sdl.SCANCODE_W),
		v.input.Axis(sdl.SCANCODE_A, sdl.SCANCODE_D),
		v.input.Axis(sdl.SCANCODE_Q, sdl.SCANCODE_E),
		dt)
	v.clampToGround()

	if v.frozen {
		return nil
	}
	return v.scene.Driver.Update(v.cam.Position())
}

// clampToGround keeps the eye above the surface, or at eye height over it when following.
func (v *Viewer) clampToGround() {
	pos := v.cam.Pos
	heights, _ := v.scene.Driver.HeightAndNormalAt([]mgl32.Vec2{{pos.X(), pos.Z()}})
	ground := heights[0]
	switch {
	case v.follow:
		pos[1] = ground + v.cfg.Camera.EyeHeight
	case pos.Y() < ground+v.cam.Near:
		pos[1] = ground + v.cam.Near
	}
	v.cam.Pos = pos
}

func (v *Viewer) render() error {
	v.dev.Clear(v.cam.Width, v.cam.Height)
	return v.scene.Driver.Draw()
}

func (v *Viewer) pick(x, y int) {
	inv := v.cam.Projection().Mul4(v.cam.View()).Inv()
	ray := picking.ScreenToRay(float32(x), float32(y), float32(v.cam.Width), float32(v.cam.Height), inv)
	p, ok := picking.PickTerrain(ray, v.scene.Driver, v.scene.Driver.Bounds(), pickStep)
	if !ok {
		v.log.Info("pick missed terrain", zap.Int("x", x), zap.Int("y", y))
		return
	}
	_, normals := v.scene.Driver.HeightAndNormalAt([]mgl32.Vec2{{p.X(), p.Z()}})
	v.log.Info("picked terrain",
		zap.Float32("x", p.X()),
		zap.Float32("height", p.Y()),
		zap.Float32("z", p.Z()),
		zap.Float32s("normal", normals[0][:]))
}

func (v *Viewer) screenshot() {
	pixels := v.dev.ReadPixels(v.cam.Width, v.cam.Height)
	name, err := v.shots.Capture(pixels, v.cam.Width, v.cam.Height)
	if err != nil {
		v.log.Error("screenshot failed", zap.Error(err))
		return
	}
	v.log.Info("screenshot saved", zap.String("path", name))
}

// Close releases the scene, the GL device and the window.
func (v *Viewer) Close() {
	v.log.Info("closing viewer")
	if v.scene != nil {
		v.scene.Driver.Close()
	}
	if v.dev != nil {
		v.dev.Close()
	}
	if v.window != nil {
		v.window.Close()
	}
}
