package sim_test

import (
	"context"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/bouncer/internal/config"
	"github.com/san-kum/bouncer/internal/physics"
	"github.com/san-kum/bouncer/internal/sim"
)

var _ = Describe("Simulation", func() {
	var s *sim.Simulation

	run := func(steps int) *sim.Result {
		result, err := sim.NewRunner(s).Run(context.Background(), steps)
		Expect(err).NotTo(HaveOccurred())
		return result
	}

	Context("with the default scene", func() {
		const dropHeight = 9.5

		BeforeEach(func() {
			var err error
			s, err = sim.New(nil)
			Expect(err).NotTo(HaveOccurred())
		})

		It("does not reach the ground before free fall allows", func() {
			dt := s.Dt()
			tff := math.Sqrt(2 * dropHeight / 9.81)
			result := run(150)

			for i, y := range result.Heights() {
				if result.Times[i] < tff-2*dt {
					Expect(y).To(BeNumerically(">=", 0.5), "t=%.4f", result.Times[i])
				}
			}
			minY := math.Inf(1)
			for i, y := range result.Heights() {
				if result.Times[i] <= 2 {
					minY = math.Min(minY, y)
				}
			}
			Expect(minY).To(BeNumerically("<", 0.8))
		})

		It("bounces back to about restitution squared of the drop height", func() {
			tff := math.Sqrt(2 * dropHeight / 9.81)
			result := run(240)

			apex := math.Inf(-1)
			for i, y := range result.Heights() {
				if t := result.Times[i]; t > tff+0.2 && t < tff+1.6 {
					apex = math.Max(apex, y)
				}
			}
			Expect(apex).To(BeNumerically("~", 0.5+0.49*dropHeight, 0.4))
		})

		It("never moves the ground", func() {
			before, err := s.World().Body(s.Scene().Ground)
			Expect(err).NotTo(HaveOccurred())
			run(300)
			after, err := s.World().Body(s.Scene().Ground)
			Expect(err).NotTo(HaveOccurred())
			Expect(after.Position).To(Equal(before.Position))
			Expect(after.Rotation).To(Equal(before.Rotation))
		})

		It("reports an invalid handle once the ball is removed", func() {
			ball := s.Ball()
			Expect(s.World().RemoveBody(ball)).To(Succeed())
			// the freed slot is reused with a new generation
			reused, err := s.World().InsertBody(physics.DynamicBody().WithTranslation(mgl64.Vec3{3, 3, 3}))
			Expect(err).NotTo(HaveOccurred())
			Expect(reused.Index()).To(Equal(ball.Index()))

			_, err = s.Position()
			Expect(err).To(MatchError(physics.ErrInvalidHandle))
			_, err = s.Step()
			Expect(err).To(MatchError(physics.ErrInvalidHandle))
		})
	})

	Context("with a zero time step", func() {
		It("leaves every transform unchanged", func() {
			cfg := config.DefaultConfig()
			cfg.Dt = 0
			var err error
			s, err = sim.New(cfg)
			Expect(err).NotTo(HaveOccurred())

			before, _ := s.Position()
			for i := 0; i < 10; i++ {
				pos, err := s.Step()
				Expect(err).NotTo(HaveOccurred())
				Expect(pos).To(Equal(before))
			}
			Expect(s.World().StepCount()).To(BeZero())
		})
	})

	Context("with a perfectly elastic frictionless ground", func() {
		It("returns close to the start height", func() {
			var err error
			s, err = sim.New(config.GetPreset("elastic"))
			Expect(err).NotTo(HaveOccurred())
			tff := math.Sqrt(2 * 9.5 / 9.81)

			result := run(240)
			Expect(result.MaxHeightAfter(tff + 0.5)).To(BeNumerically("~", 10, 0.35))
		})
	})

	Context("with a dead ground", func() {
		It("comes to rest on the surface without sinking", func() {
			var err error
			s, err = sim.New(config.GetPreset("dead"))
			Expect(err).NotTo(HaveOccurred())

			run(300)
			pos, _ := s.Position()
			vel, _ := s.Velocity()
			Expect(math.Abs(vel[1])).To(BeNumerically("<", 1e-3))
			Expect(pos[1]).To(BeNumerically("~", 0.5, 0.02))
		})
	})
})
