package viz

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/bouncer/internal/config"
	"github.com/san-kum/bouncer/internal/sim"
)

func TestCanvasSet(t *testing.T) {
	c := NewCanvas(2, 1)
	tests := []struct {
		x, y int
		want rune
	}{
		{0, 0, 0x2801},
		{1, 0, 0x2808},
		{0, 3, 0x2840},
		{3, 3, 0x2880},
	}
	for _, tt := range tests {
		c.Clear()
		c.Set(tt.x, tt.y)
		if got := c.Grid[tt.y/4][tt.x/2]; got != tt.want {
			t.Errorf("Set(%d, %d) = %U, want %U", tt.x, tt.y, got, tt.want)
		}
		if !c.IsSet(tt.x, tt.y) {
			t.Errorf("IsSet(%d, %d) = false", tt.x, tt.y)
		}
	}

	c.Clear()
	c.Set(-1, 0)
	c.Set(100, 100)
	if strings.Trim(c.String(), "⠀\n") != "" {
		t.Error("out-of-range dots should be ignored")
	}
}

func TestCanvasDrawLine(t *testing.T) {
	c := NewCanvas(10, 5)
	c.DrawLine(0, 0, 19, 19)
	for i := 0; i < 20; i++ {
		if !c.IsSet(i, i) {
			t.Fatalf("diagonal dot (%d, %d) not set", i, i)
		}
	}
}

func TestCanvasDrawCircle(t *testing.T) {
	c := NewCanvas(20, 10)
	c.DrawCircle(20, 20, 8)
	for _, p := range [][2]int{{28, 20}, {12, 20}, {20, 28}, {20, 12}} {
		if !c.IsSet(p[0], p[1]) {
			t.Errorf("circle misses (%d, %d)", p[0], p[1])
		}
	}
	if c.IsSet(20, 20) {
		t.Error("circle should be hollow")
	}
}

func TestCameraProjectsTargetToCentre(t *testing.T) {
	cam := NewCamera()
	x, y, depth, ok := cam.Project(cam.Target, 120, 88)
	if !ok || x != 60 || y != 44 {
		t.Errorf("target projected to (%d, %d, %v)", x, y, ok)
	}
	if depth != cam.Distance {
		t.Errorf("depth = %v, want %v", depth, cam.Distance)
	}

	behind := cam.Target.Add(cam.orientation().Rotate(mgl64.Vec3{0, 0, cam.Distance + 1}))
	if _, _, _, ok := cam.Project(behind, 120, 88); ok {
		t.Error("point behind the camera should not be visible")
	}
}

func TestCameraOrbitClampsPitch(t *testing.T) {
	cam := NewCamera()
	cam.Orbit(0, 10)
	if cam.Pitch != 1.5 {
		t.Errorf("pitch = %v, want 1.5", cam.Pitch)
	}
	cam.Orbit(0, -10)
	if cam.Pitch != -1.5 {
		t.Errorf("pitch = %v, want -1.5", cam.Pitch)
	}
}

func TestWorldWireframe(t *testing.T) {
	tests := []struct {
		preset string
		edges  int
	}{
		// ground box + ball rings
		{"bounce", 12 + 3*16},
		{"chamber", 6*12 + 3*16},
	}
	for _, tt := range tests {
		t.Run(tt.preset, func(t *testing.T) {
			s, err := sim.New(config.GetPreset(tt.preset))
			if err != nil {
				t.Fatal(err)
			}
			if got := len(WorldWireframe(s.World()).Edges); got != tt.edges {
				t.Errorf("edges = %d, want %d", got, tt.edges)
			}
		})
	}
}

func TestRender3DDrawsSomething(t *testing.T) {
	s, err := sim.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	c := NewCanvas(40, 20)
	Render3D(c, WorldWireframe(s.World()), NewCamera())
	if strings.Trim(c.String(), "⠀\n") == "" {
		t.Error("nothing rendered")
	}
}

func TestHeightPlot(t *testing.T) {
	if HeightPlot([]float64{1}, 20, 5, "h") != "" {
		t.Error("single sample should not plot")
	}
	out := HeightPlot([]float64{10, 5, 0.5, 3, 5}, 20, 5, "height")
	if !strings.Contains(out, "height") {
		t.Errorf("caption missing from plot:\n%s", out)
	}
	if ComparePlot([][]float64{{1}, {2}}, 20, 5, "") != "" {
		t.Error("series too short to compare should give empty plot")
	}
	if ComparePlot([][]float64{{1, 2, 3}, {3, 2, 1}}, 20, 5, "cmp") == "" {
		t.Error("compare plot is empty")
	}
}

func TestThemes(t *testing.T) {
	defer SetTheme("neon")

	if GetTheme("nope").Name != "neon" {
		t.Error("unknown theme should fall back to neon")
	}
	seen := map[string]bool{}
	for range Themes {
		seen[CurrentTheme.Name] = true
		NextTheme()
	}
	if len(seen) != len(ThemeNames()) {
		t.Errorf("cycled through %d themes, want %d", len(seen), len(ThemeNames()))
	}
}

func key(s string) tea.KeyMsg {
	switch s {
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(m Model, msg tea.Msg) Model {
	next, _ := m.Update(msg)
	return next.(Model)
}

func TestModelStepsOnTick(t *testing.T) {
	s, err := sim.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	m := NewModel(s, "bounce")
	for i := 0; i < 5; i++ {
		m = update(m, TickMsg{})
	}
	if s.World().StepCount() != 5 || len(m.history) != 5 {
		t.Fatalf("after 5 ticks: world step %d, history %d", s.World().StepCount(), len(m.history))
	}

	m = update(m, key(" "))
	m = update(m, TickMsg{})
	if s.World().StepCount() != 5 {
		t.Error("paused model kept stepping")
	}
	m = update(m, key("."))
	if s.World().StepCount() != 6 {
		t.Error("single step while paused did not advance")
	}

	m = update(m, key("["))
	if m.playHead != len(m.history)-2 {
		t.Errorf("playHead = %d after rewind", m.playHead)
	}
	if !strings.Contains(m.View(), "REPLAY") {
		t.Error("view does not show replay status")
	}

	m = update(m, key("r"))
	if s.World().StepCount() != 0 || len(m.history) != 0 || m.playHead != -1 {
		t.Error("reset did not rebuild the scene")
	}
}

func TestModelContactHook(t *testing.T) {
	s, err := sim.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	hits := 0
	m := NewModel(s, "bounce").WithContactHook(func(smp sim.Sample) {
		if smp.Contacts == 0 {
			t.Error("hook called without a contact")
		}
		hits++
	})
	for i := 0; i < 200; i++ {
		m = update(m, TickMsg{})
	}
	if hits == 0 || hits != m.bounces {
		t.Errorf("hook fired %d times, model counted %d bounces", hits, m.bounces)
	}
}

func TestMenu(t *testing.T) {
	m := NewMenu()
	if !strings.Contains(m.View(), "bounce") {
		t.Error("menu does not list presets")
	}
	next, _ := m.Update(key("j"))
	m = next.(Menu)
	if m.cursor != 1 {
		t.Errorf("cursor = %d", m.cursor)
	}
	next, cmd := m.Update(key("enter"))
	m = next.(Menu)
	if m.state != stateSim || cmd == nil {
		t.Fatal("enter did not open the viewer")
	}
	next, _ = m.Update(key("esc"))
	if next.(Menu).state != stateMenu {
		t.Error("esc did not return to the menu")
	}
}
