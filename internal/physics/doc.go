// Package physics implements a single-threaded 3-D rigid-body pipeline.
//
// A [World] owns every body, collider and joint through generation-checked
// handles ([BodyHandle], [ColliderHandle], [JointHandle]) and advances them
// with [World.Step]:
//
//   - apply gravity and accumulated forces to awake dynamic bodies
//   - broad phase: a bounding-volume hierarchy proposes candidate pairs
//   - narrow phase: shape-pair tests produce [ContactManifold]s
//   - islands: sleeping islands touched by awake bodies are woken
//   - solver: sequential impulses for contact, friction and restitution
//   - integrate positions and orientations, then the continuous pass
//   - sleep: islands at rest for long enough are put to sleep
//
// # Example
//
//	w, _ := physics.NewWorld(mgl64.Vec3{0, -9.81, 0}, physics.DefaultIntegrationParameters())
//	ground, _ := w.InsertBody(physics.FixedBody())
//	w.InsertColliderWithParent(physics.CuboidCollider(100, 0.1, 100), ground)
//	ball, _ := w.InsertBody(physics.DynamicBody().WithTranslation(mgl64.Vec3{0, 10, 0}))
//	w.InsertColliderWithParent(physics.SphereCollider(0.5), ball)
//	for i := 0; i < 120; i++ {
//	    w.Step()
//	}
//
// # Thread Safety
//
// A World is NOT thread-safe. Callers must serialize Step and every store
// mutation. Independent worlds share nothing and may run concurrently.
package physics
