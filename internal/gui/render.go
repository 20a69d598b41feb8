package gui

import (
	"github.com/go-gl/mathgl/mgl64"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/san-kum/bouncer/internal/viz"
)

func vec(v mgl64.Vec3) rl.Vector3 {
	return rl.NewVector3(float32(v[0]), float32(v[1]), float32(v[2]))
}

// renderScene draws the static colliders as outlines, then the ball, its
// shadow and its trail.
func (a *App) renderScene() {
	sc := a.sim.Scene()
	world := sc.World

	rl.DrawGrid(40, 1)

	wf := viz.NewWireframe()
	for _, h := range world.Colliders() {
		if h == sc.BallCollider {
			continue
		}
		c, err := world.Collider(h)
		if err != nil {
			continue
		}
		wf.AddCollider(c)
	}
	for _, e := range wf.Edges {
		rl.DrawLine3D(vec(e.Start), vec(e.End), ColAccent)
	}

	ball, err := world.Collider(sc.BallCollider)
	if err != nil {
		return
	}
	pos := vec(ball.Position)
	r := float32(ball.Shape.Radius)

	shadow := rl.NewVector3(pos.X, 0.01, pos.Z)
	rl.DrawCircle3D(shadow, r, rl.NewVector3(1, 0, 0), 90, ColShadow)

	rl.DrawSphere(pos, r, ColBall)
	rl.DrawSphereWires(pos, r*1.01, 8, 12, ColSelect)

	for i := 1; i < len(a.trail); i++ {
		rl.DrawLine3D(a.trail[i-1], a.trail[i], ColTrail)
	}
}
