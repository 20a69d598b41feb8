package viz

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/bouncer/internal/physics"
	"github.com/san-kum/bouncer/internal/sim"
)

const (
	canvasWidth     = 60
	canvasHeight    = 22
	historyCapacity = 600
	trailLength     = 90
	recordingFile   = "bouncer.gif"
)

var (
	canvasStyle = lipgloss.NewStyle().Padding(1, 2)
	statsStyle  = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, false, true).BorderForeground(lipgloss.Color("240")).Padding(1, 2).Width(48)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
)

type TickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(time.Second/60, func(t time.Time) tea.Msg { return TickMsg(t) })
}

// Model steps a simulation once per tick and draws the scene as a
// wireframe next to a panel of ball statistics.
type Model struct {
	sim       *sim.Simulation
	scene     string
	canvas    *Canvas
	camera    *Camera
	running   bool
	history   []sim.Sample
	playHead  int
	trail     []mgl64.Vec3
	bounces   int
	lastErr   error
	recording bool
	frames    []*image.Paletted
	showHelp  bool
	frame     int
	onContact func(sim.Sample)
}

func NewModel(s *sim.Simulation, scene string) Model {
	return Model{
		sim:      s,
		scene:    scene,
		canvas:   NewCanvas(canvasWidth, canvasHeight),
		camera:   NewCamera(),
		running:  true,
		history:  make([]sim.Sample, 0, historyCapacity),
		playHead: -1,
		trail:    make([]mgl64.Vec3, 0, trailLength),
	}
}

func (m Model) Init() tea.Cmd {
	return tick()
}

// Update handles input events and steps the simulation.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case ".":
			if !m.running {
				m.step()
			}
		case "r":
			m.reset()
		case "[":
			m.scrub(-1)
		case "]":
			m.scrub(1)
		case "g":
			if m.recording {
				m.lastErr = m.saveGIF()
				m.recording = false
				m.frames = nil
			} else {
				m.recording = true
				m.frames = make([]*image.Paletted, 0)
			}
		case "?":
			m.showHelp = !m.showHelp
		case "t":
			NextTheme()
		case "left", "h":
			m.camera.Orbit(-0.1, 0)
		case "right", "l":
			m.camera.Orbit(0.1, 0)
		case "up", "k":
			m.camera.Orbit(0, 0.1)
		case "down", "j":
			m.camera.Orbit(0, -0.1)
		case "+", "=":
			m.camera.ZoomIn()
		case "-", "_":
			m.camera.ZoomOut()
		}
	case TickMsg:
		m.frame++
		if m.running {
			if m.playHead == -1 {
				m.step()
			} else {
				m.playHead++
				if m.playHead >= len(m.history) {
					m.playHead = -1
				}
			}
		}
		if m.recording {
			m.draw()
			m.captureFrame()
		}
		return m, tick()
	}
	return m, nil
}

// step advances the simulation once. Handle errors stop the viewer's
// stepping; rolled-back steps are only reported.
func (m *Model) step() {
	smp, err := m.sim.Advance()
	if err != nil {
		m.lastErr = err
		var stepErr *physics.StepError
		if !errors.As(err, &stepErr) {
			m.running = false
			return
		}
	}
	m.bounces += smp.Contacts
	if smp.Contacts > 0 && m.onContact != nil {
		m.onContact(smp)
	}

	m.history = append(m.history, smp)
	if len(m.history) > historyCapacity {
		m.history = m.history[1:]
	}
	m.trail = append(m.trail, smp.Position)
	if len(m.trail) > trailLength {
		m.trail = m.trail[1:]
	}
}

// scrub moves the replay position through the recorded history.
func (m *Model) scrub(dir int) {
	if m.playHead == -1 {
		if len(m.history) == 0 {
			return
		}
		m.playHead = len(m.history) - 1
		m.running = false
	}
	m.playHead += dir
	if m.playHead < 0 {
		m.playHead = 0
	}
	if m.playHead >= len(m.history) {
		m.playHead = -1
	}
}

// reset rebuilds the scene from its config.
func (m *Model) reset() {
	if err := m.sim.Reset(); err != nil {
		m.lastErr = err
		return
	}
	m.history = m.history[:0]
	m.trail = m.trail[:0]
	m.playHead = -1
	m.bounces = 0
	m.lastErr = nil
}

// current is the sample on screen: the replayed one or the latest.
func (m *Model) current() (sim.Sample, bool) {
	if m.playHead >= 0 && m.playHead < len(m.history) {
		return m.history[m.playHead], true
	}
	if len(m.history) > 0 {
		return m.history[len(m.history)-1], true
	}
	smp, err := m.sim.Sample()
	return smp, err == nil
}

// draw renders the static colliders from the world and the ball at the
// sample being shown, so replays move only the ball.
func (m *Model) draw() {
	m.canvas.Clear()
	world := m.sim.World()
	ballCollider := m.sim.Scene().BallCollider

	wf := NewWireframe()
	for _, h := range world.Colliders() {
		if h == ballCollider {
			continue
		}
		if c, err := world.Collider(h); err == nil {
			wf.AddCollider(c)
		}
	}
	if smp, ok := m.current(); ok {
		if c, err := world.Collider(ballCollider); err == nil {
			c.Position = smp.Position
			wf.AddCollider(c)
		}
	}
	for _, p := range m.trail {
		wf.AddPoint(p)
	}
	Render3D(m.canvas, wf, m.camera)
}

// View renders the TUI interface.
func (m Model) View() string {
	m.draw()
	theme := CurrentTheme
	canvasView := canvasStyle.Foreground(theme.Secondary).Render(m.canvas.String())

	var s strings.Builder
	s.WriteString(Title.Foreground(theme.Primary).Render(strings.ToUpper(m.scene)) + "\n")
	s.WriteString(m.status() + "\n\n")

	smp, ok := m.current()
	if ok {
		s.WriteString(Row("Time", fmt.Sprintf("%.2fs", smp.Time)) + "\n")
		s.WriteString(Row("Height", fmt.Sprintf("%.3f", smp.Position.Y())) + "\n")
		s.WriteString(Row("Speed", fmt.Sprintf("%.3f", smp.Velocity.Len())) + "\n")
		s.WriteString(Row("Energy", fmt.Sprintf("%.3f", smp.Energy())) + "\n")
		s.WriteString(Row("Contacts", fmt.Sprintf("%d", smp.Stats.Contacts)) + "\n")
		s.WriteString(Row("Sleeping", fmt.Sprintf("%d", smp.Stats.Sleeping)) + "\n")
	}
	s.WriteString(Row("Bounces", fmt.Sprintf("%d", m.bounces)) + "\n")
	if m.lastErr != nil {
		s.WriteString(StatusError.Render(m.lastErr.Error()) + "\n")
	}

	if len(m.history) > 1 {
		heights := make([]float64, len(m.history))
		energy := make([]float64, len(m.history))
		for i, h := range m.history {
			heights[i] = h.Position.Y()
			energy[i] = h.Energy()
		}
		s.WriteString("\n" + HeightPlot(heights, 36, 6, "height") + "\n")
		s.WriteString("\n" + Sparkline(energy, 36) + "\n")
	}
	s.WriteString(helpStyle.Render("SP:Pause R:Reset Q:Quit ?:Help\n[ ]:Time-Travel hjkl:Orbit"))

	mainView := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, statsStyle.Render(s.String()))
	if m.showHelp {
		return helpOverlay + "\n\n" + mainView
	}
	return mainView
}

func (m Model) status() string {
	switch {
	case m.recording:
		return StatusRecording.Render("● REC")
	case m.playHead != -1 && len(m.history) > 0:
		back := m.history[len(m.history)-1].Time - m.history[m.playHead].Time
		return StatusPaused.Render(fmt.Sprintf("REPLAY (-%.1fs)", back))
	case !m.running:
		return StatusPaused.Render("PAUSED")
	default:
		return StatusRunning.Render(AnimatedSpinner(m.frame) + " RUNNING")
	}
}

const helpOverlay = `
╔══════════════════════════════════════╗
║          KEYBOARD SHORTCUTS          ║
╠══════════════════════════════════════╣
║  Space    - Pause/Resume simulation  ║
║  .        - Single step when paused  ║
║  R        - Rebuild the scene        ║
║  Q        - Quit                     ║
║  [ ]      - Rewind / forward         ║
║  H/L J/K  - Orbit camera             ║
║  + -      - Zoom                     ║
║  G        - Toggle GIF recording     ║
║  T        - Cycle themes             ║
║  ?        - Toggle this help         ║
╚══════════════════════════════════════╝`

// captureFrame rasterizes the canvas dots into a GIF frame.
func (m *Model) captureFrame() {
	const dot = 4
	w, h := m.canvas.DotsWide(), m.canvas.DotsHigh()
	img := image.NewPaletted(image.Rect(0, 0, w*dot, h*dot), color.Palette{color.Black, color.White})
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if !m.canvas.IsSet(x, y) {
				continue
			}
			for py := 0; py < dot; py++ {
				for px := 0; px < dot; px++ {
					img.SetColorIndex(x*dot+px, y*dot+py, 1)
				}
			}
		}
	}
	m.frames = append(m.frames, img)
}

func (m *Model) saveGIF() error {
	if len(m.frames) == 0 {
		return nil
	}
	anim := gif.GIF{LoopCount: 0}
	for _, frame := range m.frames {
		anim.Image = append(anim.Image, frame)
		anim.Delay = append(anim.Delay, 2)
	}
	f, err := os.Create(recordingFile)
	if err != nil {
		return err
	}
	defer f.Close()
	return gif.EncodeAll(f, &anim)
}

// WithContactHook returns a copy of m that calls fn after every step in
// which the ball started a contact.
func (m Model) WithContactHook(fn func(sim.Sample)) Model {
	m.onContact = fn
	return m
}

// RunLive opens the viewer on s until the user quits.
func RunLive(s *sim.Simulation, scene string) error {
	return RunModel(NewModel(s, scene))
}

func RunModel(m Model) error {
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
