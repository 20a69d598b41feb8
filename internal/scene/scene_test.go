package scene

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/bouncer/internal/config"
	"github.com/san-kum/bouncer/internal/geom"
	"github.com/san-kum/bouncer/internal/physics"
)

func TestParseSide(t *testing.T) {
	tests := []struct {
		input   string
		want    Side
		wantErr bool
	}{
		{"left", SideLeft, false},
		{"Right", SideRight, false},
		{" top ", SideTop, false},
		{"BOTTOM", SideBottom, false},
		{"back", SideBack, false},
		{"front", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseSide(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidSide) {
					t.Errorf("expected ErrInvalidSide, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
			if got.String() != sideNames[tt.want] {
				t.Errorf("String() = %q", got.String())
			}
		})
	}
}

func TestPlacement(t *testing.T) {
	tests := []struct {
		side       Side
		wantPos    mgl64.Vec3
		wantNormal mgl64.Vec3
	}{
		{SideRight, mgl64.Vec3{5, 0, -5}, mgl64.Vec3{1, 0, 0}},
		{SideLeft, mgl64.Vec3{-5, 0, -5}, mgl64.Vec3{-1, 0, 0}},
		{SideBack, mgl64.Vec3{0, 0, -10}, mgl64.Vec3{0, 0, 1}},
		{SideTop, mgl64.Vec3{0, 5, -5}, mgl64.Vec3{0, 1, 0}},
		{SideBottom, mgl64.Vec3{0, -5, -5}, mgl64.Vec3{0, -1, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.side.String(), func(t *testing.T) {
			pos, rot, err := Placement(tt.side, 10)
			if err != nil {
				t.Fatal(err)
			}
			if pos.Sub(tt.wantPos).Len() > 1e-12 {
				t.Errorf("position = %v, want %v", pos, tt.wantPos)
			}
			if n := rot.Rotate(mgl64.Vec3{0, 0, 1}); n.Sub(tt.wantNormal).Len() > 1e-9 {
				t.Errorf("panel normal = %v, want %v", n, tt.wantNormal)
			}
		})
	}

	if _, _, err := Placement(Side(42), 10); !errors.Is(err, ErrInvalidSide) {
		t.Errorf("expected ErrInvalidSide for unknown side, got %v", err)
	}
}

// Every panel must be distinct; two sides sharing a placement would leave
// a hole in the chamber.
func TestPlacementsDistinct(t *testing.T) {
	seen := make(map[mgl64.Vec3]Side)
	for _, s := range Sides() {
		pos, _, _ := Placement(s, 10)
		if other, ok := seen[pos]; ok {
			t.Errorf("%v and %v share position %v", s, other, pos)
		}
		seen[pos] = s
	}
}

func TestBuildDefault(t *testing.T) {
	sc, err := Build(config.DefaultConfig())
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	ball, err := sc.World.Body(sc.Ball)
	if err != nil {
		t.Fatal(err)
	}
	if ball.Kind != physics.Dynamic {
		t.Errorf("ball kind = %v", ball.Kind)
	}
	if ball.Position != (mgl64.Vec3{0, 10, 1}) {
		t.Errorf("ball at %v, want (0, 10, 1)", ball.Position)
	}
	wantMass := 4.0 / 3.0 * math.Pi * 0.125
	if math.Abs(ball.Mass-wantMass) > 1e-9 {
		t.Errorf("ball mass = %v, want %v", ball.Mass, wantMass)
	}
	if !ball.CCD {
		t.Error("ball should have CCD enabled")
	}

	coll, _ := sc.World.Collider(sc.BallCollider)
	if coll.Shape.Kind != geom.KindSphere || coll.Shape.Radius != 0.5 {
		t.Errorf("ball shape = %+v", coll.Shape)
	}

	ground, _ := sc.World.Body(sc.Ground)
	if ground.Kind != physics.Fixed || len(ground.Colliders) != 1 {
		t.Fatalf("ground = %+v", ground)
	}
	gc, _ := sc.World.Collider(ground.Colliders[0])
	if top := gc.AABB.Max.Y(); math.Abs(top) > 1e-12 {
		t.Errorf("ground top at y = %v, want 0", top)
	}
	if len(sc.Panels) != 0 {
		t.Errorf("default scene has %d panels", len(sc.Panels))
	}
}

func TestBuildChamber(t *testing.T) {
	sc, err := Build(config.GetPreset("chamber"))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(sc.Panels) != 5 {
		t.Fatalf("expected 5 panels, got %d", len(sc.Panels))
	}
	for side, h := range sc.Panels {
		c, err := sc.World.Collider(h)
		if err != nil {
			t.Fatalf("%v: %v", side, err)
		}
		if c.Friction != 0 || c.Restitution != 1 {
			t.Errorf("%v panel friction %v restitution %v", side, c.Friction, c.Restitution)
		}
		parent, _ := sc.World.Body(c.Parent)
		if parent.Kind != physics.Fixed {
			t.Errorf("%v panel body is %v", side, parent.Kind)
		}
	}

	ball, _ := sc.World.Body(sc.Ball)
	if speed := ball.LinearVelocity.Len(); math.Abs(speed-8) > 1e-9 {
		t.Errorf("random launch speed = %v, want 8", speed)
	}
}

func TestBuildSeededVelocity(t *testing.T) {
	cfg := config.GetPreset("chamber")
	a, _ := Build(cfg)
	b, _ := Build(cfg)
	va, _ := a.World.Body(a.Ball)
	vb, _ := b.World.Body(b.Ball)
	if va.LinearVelocity != vb.LinearVelocity {
		t.Errorf("same seed gave %v and %v", va.LinearVelocity, vb.LinearVelocity)
	}

	cfg.Seed++
	c, _ := Build(cfg)
	vc, _ := c.World.Body(c.Ball)
	if va.LinearVelocity == vc.LinearVelocity {
		t.Error("different seeds gave the same velocity")
	}
}

func TestBuildRejectsUnknownSide(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Panels.Sides = []string{"left", "front"}
	if _, err := Build(cfg); !errors.Is(err, ErrInvalidSide) {
		t.Errorf("expected ErrInvalidSide, got %v", err)
	}
}

func TestPanelNamed(t *testing.T) {
	w, _ := physics.NewWorld(mgl64.Vec3{}, physics.DefaultIntegrationParameters())
	b := NewBuilder(w, 1)
	cfg := config.DefaultConfig().Panels

	if _, err := b.PanelNamed("back", cfg); err != nil {
		t.Errorf("back panel: %v", err)
	}
	if _, err := b.PanelNamed("sideways", cfg); !errors.Is(err, ErrInvalidSide) {
		t.Errorf("expected ErrInvalidSide, got %v", err)
	}
	if w.NumColliders() != 1 {
		t.Errorf("expected 1 collider, got %d", w.NumColliders())
	}
}

// The ball in a sealed elastic chamber without gravity keeps bouncing
// between the walls and never escapes through a panel.
func TestBallStaysInChamber(t *testing.T) {
	cfg := config.GetPreset("chamber")
	cfg.Sleep.Enabled = false
	sc, err := Build(cfg)
	if err != nil {
		t.Fatal(err)
	}
	// close the open front face with one more panel
	if _, err := sc.World.InsertCollider(physics.CuboidCollider(5, 5, 0.01).
		WithFriction(0).WithRestitution(1).WithRestitutionCombine(physics.CombineMax)); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 900; i++ {
		sc.World.Step()
		st, _ := sc.World.Body(sc.Ball)
		p := st.Position
		if p.X() < -5.1 || p.X() > 5.1 || p.Y() < -0.1 || p.Y() > 5.1 || p.Z() < -10.1 || p.Z() > 0.1 {
			t.Fatalf("ball escaped to %v at step %d", p, i)
		}
	}
}

// With the front left open the ball stays inside the box until it leaves
// through the front, and the preset run is long enough for that to happen.
func TestChamberBallLeavesThroughFront(t *testing.T) {
	cfg := config.GetPreset("chamber")
	cfg.Sleep.Enabled = false
	sc, err := Build(cfg)
	if err != nil {
		t.Fatal(err)
	}

	exited := -1
	for i := 0; i < cfg.Steps && exited < 0; i++ {
		sc.World.Step()
		st, _ := sc.World.Body(sc.Ball)
		p := st.Position
		if p.Z() > 0.1 {
			exited = i
			break
		}
		if p.X() < -5.1 || p.X() > 5.1 || p.Y() < -0.1 || p.Y() > 5.1 || p.Z() < -10.1 {
			t.Fatalf("ball left through a wall at %v, step %d", p, i)
		}
	}
	if exited < 0 {
		t.Errorf("ball still inside after %d steps", cfg.Steps)
	}
}
