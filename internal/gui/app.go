package gui

import (
	"errors"
	"fmt"
	"math"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/san-kum/bouncer/internal/audio"
	"github.com/san-kum/bouncer/internal/config"
	"github.com/san-kum/bouncer/internal/physics"
	"github.com/san-kum/bouncer/internal/sim"
)

var (
	ColBg      = rl.NewColor(10, 10, 10, 255)
	ColAccent  = rl.NewColor(180, 180, 180, 255)
	ColSelect  = rl.NewColor(255, 255, 255, 255)
	ColText    = rl.NewColor(140, 140, 140, 255)
	ColTextDim = rl.NewColor(60, 60, 60, 255)
	ColBall    = rl.NewColor(0, 200, 255, 255)
	ColTrail   = rl.NewColor(0, 200, 255, 90)
	ColShadow  = rl.NewColor(0, 0, 0, 160)
)

const (
	screenWidth  = 1280
	screenHeight = 720
	maxTrail     = 120
	maxTelemetry = 200
)

type App struct {
	sim     *sim.Simulation
	scene   string
	running bool
	inMenu  bool
	presets []string
	sel     int

	camera   rl.Camera3D
	yaw      float32
	pitch    float32
	distance float32

	trail     []rl.Vector3
	telemetry []float64
	bounces   int
	lastErr   error

	Audio *audio.Processor
}

func initWindow() {
	rl.InitWindow(screenWidth, screenHeight, "bouncer")
	rl.SetTargetFPS(60)
	rl.SetExitKey(0)
}

func newApp(proc *audio.Processor) *App {
	a := &App{
		presets:   config.ListPresets(),
		yaw:       0.6,
		pitch:     0.35,
		distance:  30,
		trail:     make([]rl.Vector3, 0, maxTrail),
		telemetry: make([]float64, 0, maxTelemetry),
		Audio:     proc,
	}
	a.camera = rl.NewCamera3D(
		rl.NewVector3(0, 10, 30),
		rl.NewVector3(0, 4, -2),
		rl.NewVector3(0, 1, 0),
		45.0,
		rl.CameraPerspective,
	)
	a.updateCamera()
	return a
}

// RunInteractive opens the window on the preset menu.
func RunInteractive(proc *audio.Processor) {
	initWindow()
	defer rl.CloseWindow()
	a := newApp(proc)
	a.inMenu = true
	a.RunLoop()
}

// Run opens the window directly on s.
func Run(s *sim.Simulation, scene string, proc *audio.Processor) {
	initWindow()
	defer rl.CloseWindow()
	a := newApp(proc)
	a.load(s, scene)
	a.RunLoop()
}

func (a *App) RunLoop() {
	for !rl.WindowShouldClose() {
		if !a.Update() {
			return
		}
		a.Draw()
	}
}

func (a *App) load(s *sim.Simulation, scene string) {
	a.sim = s
	a.scene = scene
	a.running = true
	a.inMenu = false
	a.clear()
}

func (a *App) clear() {
	a.trail = a.trail[:0]
	a.telemetry = a.telemetry[:0]
	a.bounces = 0
	a.lastErr = nil
}

// Update handles input and advances the simulation. It returns false when
// the user quits.
func (a *App) Update() bool {
	if rl.IsKeyPressed(rl.KeyQ) {
		return false
	}

	if a.inMenu {
		a.updateMenu()
		return true
	}

	if rl.IsKeyPressed(rl.KeyEscape) {
		a.inMenu = true
		a.running = false
		return true
	}
	if rl.IsKeyPressed(rl.KeySpace) {
		a.running = !a.running
	}
	if rl.IsKeyPressed(rl.KeyR) {
		if err := a.sim.Reset(); err != nil {
			a.lastErr = err
		} else {
			a.clear()
		}
	}

	if a.running {
		a.step()
	} else if rl.IsKeyPressed(rl.KeyPeriod) {
		a.step()
	}

	a.updateOrbit()
	return true
}

func (a *App) updateMenu() {
	if rl.IsKeyPressed(rl.KeyDown) || rl.IsKeyPressed(rl.KeyJ) {
		a.sel = (a.sel + 1) % len(a.presets)
	}
	if rl.IsKeyPressed(rl.KeyUp) || rl.IsKeyPressed(rl.KeyK) {
		a.sel = (a.sel - 1 + len(a.presets)) % len(a.presets)
	}
	if rl.IsKeyPressed(rl.KeyEnter) || rl.IsKeyPressed(rl.KeySpace) {
		name := a.presets[a.sel]
		s, err := sim.New(config.GetPreset(name))
		if err != nil {
			a.lastErr = err
			return
		}
		a.load(s, name)
	}
}

// step advances once. Rolled-back steps are shown but keep the run going;
// any other error pauses it.
func (a *App) step() {
	smp, err := a.sim.Advance()
	if err != nil {
		a.lastErr = err
		var stepErr *physics.StepError
		if !errors.As(err, &stepErr) {
			a.running = false
			return
		}
	}

	if smp.Contacts > 0 {
		a.bounces += smp.Contacts
		if a.Audio != nil && a.Audio.Active {
			a.Audio.Impact(smp.Velocity.Len())
		}
	}

	a.trail = append(a.trail, vec(smp.Position))
	if len(a.trail) > maxTrail {
		a.trail = a.trail[1:]
	}
	a.telemetry = append(a.telemetry, smp.Energy())
	if len(a.telemetry) > maxTelemetry {
		a.telemetry = a.telemetry[1:]
	}
}

// updateOrbit turns the camera around its target with the arrow keys or a
// right-button drag and zooms with the wheel.
func (a *App) updateOrbit() {
	const speed = 0.03
	if rl.IsKeyDown(rl.KeyLeft) {
		a.yaw -= speed
	}
	if rl.IsKeyDown(rl.KeyRight) {
		a.yaw += speed
	}
	if rl.IsKeyDown(rl.KeyUp) {
		a.pitch += speed
	}
	if rl.IsKeyDown(rl.KeyDown) {
		a.pitch -= speed
	}
	if rl.IsMouseButtonDown(rl.MouseRightButton) {
		d := rl.GetMouseDelta()
		a.yaw += d.X * 0.005
		a.pitch += d.Y * 0.005
	}
	if wheel := rl.GetMouseWheelMove(); wheel != 0 {
		a.distance = float32(math.Max(5, math.Min(120, float64(a.distance-wheel*2))))
	}
	a.pitch = float32(math.Max(-1.5, math.Min(1.5, float64(a.pitch))))
	a.updateCamera()
}

func (a *App) updateCamera() {
	cp := float32(math.Cos(float64(a.pitch)))
	off := rl.NewVector3(
		cp*float32(math.Sin(float64(a.yaw)))*a.distance,
		float32(math.Sin(float64(a.pitch)))*a.distance,
		cp*float32(math.Cos(float64(a.yaw)))*a.distance,
	)
	t := a.camera.Target
	a.camera.Position = rl.NewVector3(t.X+off.X, t.Y+off.Y, t.Z+off.Z)
}

func (a *App) Draw() {
	rl.BeginDrawing()
	rl.ClearBackground(ColBg)

	if a.inMenu {
		a.drawMenu()
	} else {
		rl.BeginMode3D(a.camera)
		a.renderScene()
		rl.EndMode3D()
		a.drawHUD()
	}

	rl.EndDrawing()
}

func (a *App) drawHUD() {
	rl.DrawText("bouncer", 30, 30, 24, ColSelect)
	rl.DrawText(fmt.Sprintf(":: %s", a.scene), 140, 34, 16, ColText)

	status, col := "RUNNING", ColSelect
	if !a.running {
		status, col = "PAUSED", ColTextDim
	}
	rl.DrawText(status, screenWidth-130, 30, 16, col)

	if smp, err := a.sim.Sample(); err == nil {
		lines := []string{
			fmt.Sprintf("t        %.2fs", smp.Time),
			fmt.Sprintf("pos      %6.2f %6.2f %6.2f", smp.Position[0], smp.Position[1], smp.Position[2]),
			fmt.Sprintf("vel      %6.2f %6.2f %6.2f", smp.Velocity[0], smp.Velocity[1], smp.Velocity[2]),
			fmt.Sprintf("bounces  %d", a.bounces),
			fmt.Sprintf("contacts %d", smp.Stats.Contacts),
		}
		for i, l := range lines {
			rl.DrawText(l, 30, int32(80+i*22), 16, ColText)
		}
	}
	if a.lastErr != nil {
		rl.DrawText(a.lastErr.Error(), 30, 200, 14, rl.Red)
	}

	a.drawTelemetry()

	rl.DrawText("[SPACE] PAUSE  [.] STEP  [R] RESET  [ARROWS] ORBIT  [ESC] MENU  [Q] QUIT", 560, screenHeight-40, 14, ColTextDim)
	rl.DrawText(fmt.Sprintf("%d FPS", rl.GetFPS()), 30, screenHeight-40, 14, ColTextDim)
}

// drawTelemetry plots total energy over the recent steps.
func (a *App) drawTelemetry() {
	if len(a.telemetry) < 2 {
		return
	}

	rectX, rectY := float32(30), float32(screenHeight-130)
	width, height := float32(400), float32(60)

	minVal, maxVal := a.telemetry[0], a.telemetry[0]
	for _, v := range a.telemetry {
		minVal = math.Min(minVal, v)
		maxVal = math.Max(maxVal, v)
	}
	if maxVal == minVal {
		maxVal = minVal + 1
	}

	points := make([]rl.Vector2, len(a.telemetry))
	for i, val := range a.telemetry {
		px := rectX + float32(i)/float32(len(a.telemetry))*width
		norm := (val - minVal) / (maxVal - minVal)
		points[i] = rl.NewVector2(px, rectY+height-float32(norm)*height)
	}

	rl.DrawLineStrip(points, ColAccent)
	rl.DrawText(fmt.Sprintf("E: %.2f", a.telemetry[len(a.telemetry)-1]), int32(rectX+width+10), int32(rectY+height-10), 14, ColText)
}

func (a *App) drawMenu() {
	rl.DrawText("bouncer", 50, 50, 40, ColSelect)
	rl.DrawText("select scene", 50, 100, 16, ColTextDim)

	y := int32(160)
	for i, name := range a.presets {
		if i == a.sel {
			rl.DrawText("> "+name, 50, y, 20, ColSelect)
		} else {
			rl.DrawText("  "+name, 50, y, 20, ColText)
		}
		y += 28
	}
	if a.lastErr != nil {
		rl.DrawText(a.lastErr.Error(), 50, y+20, 14, rl.Red)
	}

	rl.DrawText("ARROWS: NAVIGATE  ENTER: SELECT  Q: QUIT", 850, screenHeight-40, 14, ColTextDim)
}
