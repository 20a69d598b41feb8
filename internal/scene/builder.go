package scene

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/bouncer/internal/config"
	"github.com/san-kum/bouncer/internal/physics"
)

const panelHalfThickness = 0.01

// Scene holds the handles of everything Build placed in a world.
type Scene struct {
	World        *physics.World
	Ground       physics.BodyHandle
	Ball         physics.BodyHandle
	BallCollider physics.ColliderHandle
	Panels       map[Side]physics.ColliderHandle
}

// Builder inserts scene pieces into a world. The seeded source makes the
// random initial ball velocity reproducible.
type Builder struct {
	world *physics.World
	rng   *rand.Rand
}

func NewBuilder(w *physics.World, seed int64) *Builder {
	return &Builder{world: w, rng: rand.New(rand.NewSource(seed))}
}

// Ground inserts a fixed slab whose top face lies at y = 0.
func (b *Builder) Ground(cfg config.GroundConfig) (physics.BodyHandle, error) {
	rule, err := physics.ParseCombineRule(cfg.Combine)
	if err != nil {
		return 0, err
	}
	h := cfg.HalfExtents
	body, err := b.world.InsertBody(physics.FixedBody().WithTranslation(mgl64.Vec3{0, -h[1], 0}))
	if err != nil {
		return 0, fmt.Errorf("ground body: %w", err)
	}
	desc := physics.CuboidCollider(h[0], h[1], h[2]).
		WithFriction(cfg.Friction).
		WithRestitution(cfg.Restitution).
		WithRestitutionCombine(rule)
	if _, err := b.world.InsertColliderWithParent(desc, body); err != nil {
		return 0, fmt.Errorf("ground collider: %w", err)
	}
	return body, nil
}

// Panel inserts one fixed chamber wall. Panels always use the Max
// restitution rule so their bounce is not averaged down by the ball.
func (b *Builder) Panel(side Side, cfg config.PanelConfig) (physics.ColliderHandle, error) {
	pos, rot, err := Placement(side, cfg.Size)
	if err != nil {
		return 0, err
	}
	body, err := b.world.InsertBody(physics.FixedBody().WithTranslation(pos).WithRotation(rot))
	if err != nil {
		return 0, fmt.Errorf("%v panel: %w", side, err)
	}
	desc := physics.CuboidCollider(cfg.Size/2, cfg.Size/2, panelHalfThickness).
		WithFriction(cfg.Friction).
		WithRestitution(cfg.Restitution).
		WithRestitutionCombine(physics.CombineMax)
	return b.world.InsertColliderWithParent(desc, body)
}

// PanelNamed is Panel for a side given by name.
func (b *Builder) PanelNamed(name string, cfg config.PanelConfig) (physics.ColliderHandle, error) {
	side, err := ParseSide(name)
	if err != nil {
		return 0, err
	}
	return b.Panel(side, cfg)
}

// Ball inserts the tracked dynamic sphere.
func (b *Builder) Ball(cfg config.BallConfig) (physics.BodyHandle, physics.ColliderHandle, error) {
	rule, err := physics.ParseCombineRule(cfg.Combine)
	if err != nil {
		return 0, 0, err
	}
	vel := mgl64.Vec3(cfg.Velocity)
	if cfg.RandomSpeed > 0 {
		vel = vel.Add(b.randomDirection().Mul(cfg.RandomSpeed))
	}
	body, err := b.world.InsertBody(physics.DynamicBody().
		WithTranslation(mgl64.Vec3(cfg.Position)).
		WithLinearVelocity(vel).
		WithCCD(cfg.CCD))
	if err != nil {
		return 0, 0, fmt.Errorf("ball body: %w", err)
	}
	desc := physics.SphereCollider(cfg.Radius).
		WithFriction(cfg.Friction).
		WithRestitution(cfg.Restitution).
		WithDensity(cfg.Density).
		WithRestitutionCombine(rule)
	coll, err := b.world.InsertColliderWithParent(desc, body)
	if err != nil {
		_ = b.world.RemoveBody(body)
		return 0, 0, fmt.Errorf("ball collider: %w", err)
	}
	return body, coll, nil
}

// randomDirection samples a unit vector uniformly on the sphere.
func (b *Builder) randomDirection() mgl64.Vec3 {
	z := 2*b.rng.Float64() - 1
	phi := 2 * math.Pi * b.rng.Float64()
	r := math.Sqrt(1 - z*z)
	return mgl64.Vec3{r * math.Cos(phi), r * math.Sin(phi), z}
}

// Build creates a world from cfg and fills it with the ground, the
// configured panels and the ball. Side names are validated before anything
// is inserted.
func Build(cfg *config.Config) (*Scene, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	sides := make([]Side, 0, len(cfg.Panels.Sides))
	for _, name := range cfg.Panels.Sides {
		s, err := ParseSide(name)
		if err != nil {
			return nil, err
		}
		sides = append(sides, s)
	}

	w, err := physics.NewWorld(cfg.GravityVec(), cfg.IntegrationParameters())
	if err != nil {
		return nil, err
	}
	b := NewBuilder(w, cfg.Seed)
	sc := &Scene{World: w, Panels: make(map[Side]physics.ColliderHandle, len(sides))}

	if sc.Ground, err = b.Ground(cfg.Ground); err != nil {
		return nil, err
	}
	for _, s := range sides {
		if _, dup := sc.Panels[s]; dup {
			continue
		}
		h, err := b.Panel(s, cfg.Panels)
		if err != nil {
			return nil, err
		}
		sc.Panels[s] = h
	}
	if sc.Ball, sc.BallCollider, err = b.Ball(cfg.Ball); err != nil {
		return nil, err
	}
	return sc, nil
}
