package config

import (
	"fmt"
	"os"

	"github.com/go-gl/mathgl/mgl64"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/bouncer/internal/physics"
)

const (
	DefaultDt               = 1.0 / 60.0
	DefaultSteps            = 600
	DefaultSolverIterations = 8
	DefaultGravityY         = -9.81
	DefaultBallRadius       = 0.5
	DefaultBallY            = 10.0
	DefaultBallZ            = 1.0
	DefaultRestitution      = 0.7
	DefaultPanelSize        = 10.0
)

type Config struct {
	Gravity          [3]float64   `yaml:"gravity"`
	Dt               float64      `yaml:"dt"`
	Steps            int          `yaml:"steps"`
	SolverIterations int          `yaml:"solver_iterations"`
	Seed             int64        `yaml:"seed"`
	Ground           GroundConfig `yaml:"ground"`
	Ball             BallConfig   `yaml:"ball"`
	Panels           PanelConfig  `yaml:"panels"`
	Sleep            SleepConfig  `yaml:"sleep"`
	CCD              CCDConfig    `yaml:"ccd"`
}

type GroundConfig struct {
	HalfExtents [3]float64 `yaml:"half_extents"`
	Friction    float64    `yaml:"friction"`
	Restitution float64    `yaml:"restitution"`
	Combine     string     `yaml:"combine"`
}

type BallConfig struct {
	Radius   float64    `yaml:"radius"`
	Position [3]float64 `yaml:"position"`
	Velocity [3]float64 `yaml:"velocity"`
	// RandomSpeed adds a velocity of this magnitude in a seeded random
	// direction on top of Velocity.
	RandomSpeed float64 `yaml:"random_speed"`
	Friction    float64 `yaml:"friction"`
	Restitution float64 `yaml:"restitution"`
	Density     float64 `yaml:"density"`
	Combine     string  `yaml:"combine"`
	CCD         bool    `yaml:"ccd"`
}

type PanelConfig struct {
	Sides       []string `yaml:"sides"`
	Size        float64  `yaml:"size"`
	Friction    float64  `yaml:"friction"`
	Restitution float64  `yaml:"restitution"`
}

type SleepConfig struct {
	Enabled         bool    `yaml:"enabled"`
	EnergyThreshold float64 `yaml:"energy_threshold"`
	Steps           int     `yaml:"steps"`
}

type CCDConfig struct {
	ThresholdFraction float64 `yaml:"threshold_fraction"`
}

func DefaultConfig() *Config {
	p := physics.DefaultIntegrationParameters()
	return &Config{
		Gravity:          [3]float64{0, DefaultGravityY, 0},
		Dt:               DefaultDt,
		Steps:            DefaultSteps,
		SolverIterations: DefaultSolverIterations,
		Ground: GroundConfig{
			HalfExtents: [3]float64{100, 0.1, 100},
			Friction:    physics.DefaultFriction,
			Restitution: DefaultRestitution,
		},
		Ball: BallConfig{
			Radius:      DefaultBallRadius,
			Position:    [3]float64{0, DefaultBallY, DefaultBallZ},
			Friction:    physics.DefaultFriction,
			Restitution: DefaultRestitution,
			Density:     physics.DefaultDensity,
			CCD:         true,
		},
		Panels: PanelConfig{
			Size:        DefaultPanelSize,
			Friction:    0,
			Restitution: 1,
		},
		Sleep: SleepConfig{
			Enabled:         p.AllowSleep,
			EnergyThreshold: p.SleepEnergyThreshold,
			Steps:           p.SleepSteps,
		},
		CCD: CCDConfig{ThresholdFraction: p.CCDThresholdFraction},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks the numeric settings. Panel side names are checked when
// the scene is built.
func (c *Config) Validate() error {
	if err := c.IntegrationParameters().Validate(); err != nil {
		return err
	}
	if c.Steps < 0 {
		return fmt.Errorf("%w: steps must be >= 0, got %d", physics.ErrInvalidConfig, c.Steps)
	}
	for i, h := range c.Ground.HalfExtents {
		if h <= 0 {
			return fmt.Errorf("%w: ground half extent %d is %v", physics.ErrInvalidConfig, i, h)
		}
	}
	if c.Ball.Radius <= 0 {
		return fmt.Errorf("%w: ball radius must be positive, got %v", physics.ErrInvalidConfig, c.Ball.Radius)
	}
	if c.Ball.RandomSpeed < 0 {
		return fmt.Errorf("%w: random speed must be >= 0, got %v", physics.ErrInvalidConfig, c.Ball.RandomSpeed)
	}
	if len(c.Panels.Sides) > 0 && c.Panels.Size <= 0 {
		return fmt.Errorf("%w: panel size must be positive, got %v", physics.ErrInvalidConfig, c.Panels.Size)
	}
	for _, rule := range []string{c.Ground.Combine, c.Ball.Combine} {
		if _, err := physics.ParseCombineRule(rule); err != nil {
			return err
		}
	}
	return nil
}

// IntegrationParameters maps the config onto solver tuning, keeping the
// physics defaults for everything the config does not expose.
func (c *Config) IntegrationParameters() physics.IntegrationParameters {
	p := physics.DefaultIntegrationParameters()
	p.Dt = c.Dt
	p.SolverIterations = c.SolverIterations
	p.AllowSleep = c.Sleep.Enabled
	p.SleepEnergyThreshold = c.Sleep.EnergyThreshold
	p.SleepSteps = c.Sleep.Steps
	p.CCDThresholdFraction = c.CCD.ThresholdFraction
	return p
}

func (c *Config) GravityVec() mgl64.Vec3 {
	return mgl64.Vec3(c.Gravity)
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	out := *c
	out.Panels.Sides = append([]string(nil), c.Panels.Sides...)
	return &out
}
