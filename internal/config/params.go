package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/san-kum/bouncer/internal/physics"
)

// param reads and writes one scalar setting by name.
type param struct {
	get func(c *Config) float64
	set func(c *Config, v float64)
}

var params = map[string]param{
	"restitution": {
		get: func(c *Config) float64 { return c.Ball.Restitution },
		set: func(c *Config, v float64) { c.Ball.Restitution, c.Ground.Restitution = v, v },
	},
	"friction": {
		get: func(c *Config) float64 { return c.Ball.Friction },
		set: func(c *Config, v float64) { c.Ball.Friction, c.Ground.Friction = v, v },
	},
	"ball.restitution": {
		get: func(c *Config) float64 { return c.Ball.Restitution },
		set: func(c *Config, v float64) { c.Ball.Restitution = v },
	},
	"ball.friction": {
		get: func(c *Config) float64 { return c.Ball.Friction },
		set: func(c *Config, v float64) { c.Ball.Friction = v },
	},
	"ball.radius": {
		get: func(c *Config) float64 { return c.Ball.Radius },
		set: func(c *Config, v float64) { c.Ball.Radius = v },
	},
	"ball.density": {
		get: func(c *Config) float64 { return c.Ball.Density },
		set: func(c *Config, v float64) { c.Ball.Density = v },
	},
	"ball.height": {
		get: func(c *Config) float64 { return c.Ball.Position[1] },
		set: func(c *Config, v float64) { c.Ball.Position[1] = v },
	},
	"ball.speed": {
		get: func(c *Config) float64 { return c.Ball.RandomSpeed },
		set: func(c *Config, v float64) { c.Ball.RandomSpeed = v },
	},
	"ground.restitution": {
		get: func(c *Config) float64 { return c.Ground.Restitution },
		set: func(c *Config, v float64) { c.Ground.Restitution = v },
	},
	"ground.friction": {
		get: func(c *Config) float64 { return c.Ground.Friction },
		set: func(c *Config, v float64) { c.Ground.Friction = v },
	},
	"panels.restitution": {
		get: func(c *Config) float64 { return c.Panels.Restitution },
		set: func(c *Config, v float64) { c.Panels.Restitution = v },
	},
	"gravity": {
		get: func(c *Config) float64 { return c.Gravity[1] },
		set: func(c *Config, v float64) { c.Gravity[1] = v },
	},
	"dt": {
		get: func(c *Config) float64 { return c.Dt },
		set: func(c *Config, v float64) { c.Dt = v },
	},
	"solver_iterations": {
		get: func(c *Config) float64 { return float64(c.SolverIterations) },
		set: func(c *Config, v float64) { c.SolverIterations = int(v) },
	},
}

// ParamNames lists the names accepted by SetParam, sorted.
func ParamNames() []string {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SetParam sets a scalar setting by name. "restitution" and "friction"
// set the ball and the ground together.
func (c *Config) SetParam(name string, v float64) error {
	p, ok := params[name]
	if !ok {
		return fmt.Errorf("%w: unknown parameter %q", physics.ErrInvalidConfig, name)
	}
	p.set(c, v)
	return nil
}

func (c *Config) GetParam(name string) (float64, error) {
	p, ok := params[name]
	if !ok {
		return 0, fmt.Errorf("%w: unknown parameter %q", physics.ErrInvalidConfig, name)
	}
	return p.get(c), nil
}

// ParseAssignment splits "name=value".
func ParseAssignment(s string) (string, float64, error) {
	name, raw, ok := strings.Cut(s, "=")
	if !ok {
		return "", 0, fmt.Errorf("expected name=value, got %q", s)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return "", 0, fmt.Errorf("parameter %s: %w", name, err)
	}
	return strings.TrimSpace(name), v, nil
}

// ParseRange parses "start:end:step" into the inclusive list of values.
func ParseRange(s string) ([]float64, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return nil, fmt.Errorf("expected start:end:step, got %q", s)
	}
	var nums [3]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("range %q: %w", s, err)
		}
		nums[i] = v
	}
	start, end, step := nums[0], nums[1], nums[2]
	if step <= 0 || end < start {
		return nil, fmt.Errorf("range %q must have step > 0 and end >= start", s)
	}
	n := int((end-start)/step+1e-9) + 1
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out, nil
}
