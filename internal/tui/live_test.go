package tui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/bouncer/internal/sim"
)

func TestLiveRendererPlacesBall(t *testing.T) {
	tests := []struct {
		name string
		pos  mgl64.Vec3
		want point
	}{
		{"on ground", mgl64.Vec3{0, 0, 0}, point{width / 2, height - 2}},
		{"top", mgl64.Vec3{0, 10, 0}, point{width / 2, 0}},
		{"right", mgl64.Vec3{4, 0, 0}, point{width/2 + 14, height - 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			r := NewLiveRenderer(&buf, "bounce", 0, 20, 10)
			r.OnStep(sim.Sample{Position: tt.pos})
			if got := r.canvas[tt.want.y][tt.want.x]; got != 'O' {
				t.Errorf("cell %v = %q, want 'O'\n%s", tt.want, got, r.Frame())
			}
			if !strings.Contains(buf.String(), "bounce") {
				t.Error("header missing from output")
			}
		})
	}
}

func TestLiveRendererTrail(t *testing.T) {
	var buf bytes.Buffer
	r := NewLiveRenderer(&buf, "bounce", 0, 20, 10)
	for i := 0; i < 60; i++ {
		r.OnStep(sim.Sample{Position: mgl64.Vec3{0, float64(i%10) + 0.1, 0}})
	}
	if len(r.trail) != 40 {
		t.Errorf("trail length = %d, want 40", len(r.trail))
	}
	if !strings.Contains(r.Frame(), "=") {
		t.Error("ground not drawn")
	}
}
