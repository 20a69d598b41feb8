package config

import "sort"

var Presets = map[string]*Config{
	"bounce": DefaultConfig(),
	"elastic": with(func(c *Config) {
		c.Ground.Friction, c.Ground.Restitution = 0, 1
		c.Ball.Friction, c.Ball.Restitution = 0, 1
	}),
	"dead": with(func(c *Config) {
		c.Ground.Restitution = 0
		c.Ball.Restitution = 0
		c.Steps = 300
	}),
	// chamber is a five-sided elastic box without gravity. The front (+z) is
	// open, so the episode ends when the ball flies out through it, which
	// the seeded launch does within the run.
	"chamber": with(func(c *Config) {
		c.Panels.Sides = []string{"left", "right", "back", "top", "bottom"}
		c.Ball.Position = [3]float64{0, 2, -5}
		c.Ball.Friction, c.Ball.Restitution = 0, 1
		c.Ball.RandomSpeed = 8
		c.Ground.Friction, c.Ground.Restitution = 0, 1
		c.Gravity = [3]float64{}
		c.Seed = 7
		c.Steps = 300
	}),
	"bullet": with(func(c *Config) {
		c.Ball.Radius = 0.1
		c.Ball.Velocity = [3]float64{0, -150, 0}
		c.Steps = 120
	}),
}

func with(fn func(*Config)) *Config {
	c := DefaultConfig()
	fn(c)
	return c
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	p, ok := Presets[name]
	if !ok {
		return nil
	}
	return p.Clone()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
