package analysis

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/san-kum/bouncer/internal/config"
	"github.com/san-kum/bouncer/internal/sim"
)

func vy(vs ...float64) [][3]float64 {
	out := make([][3]float64, len(vs))
	for i, v := range vs {
		out[i] = [3]float64{0, v, 0}
	}
	return out
}

func times(n int, dt float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i) * dt
	}
	return out
}

func TestFindImpacts(t *testing.T) {
	vel := vy(-1, -2, 1.4, 1, 0.5, -0.5, -1.4, 1.0, 0.2)
	impacts := FindImpacts(times(len(vel), 0.1), vel)
	if len(impacts) != 2 {
		t.Fatalf("expected 2 impacts, got %d", len(impacts))
	}
	tests := []struct {
		index int
		ratio float64
	}{
		{2, 0.7},
		{7, 1.0 / 1.4},
	}
	for i, tt := range tests {
		if impacts[i].Index != tt.index {
			t.Errorf("impact %d at %d, want %d", i, impacts[i].Index, tt.index)
		}
		if math.Abs(impacts[i].Ratio()-tt.ratio) > 1e-12 {
			t.Errorf("impact %d ratio %v, want %v", i, impacts[i].Ratio(), tt.ratio)
		}
	}
}

func TestFindImpactsIgnoresResting(t *testing.T) {
	vel := vy(-0.01, 0.01, -0.01, 0.02, 0)
	if got := FindImpacts(times(len(vel), 0.1), vel); len(got) != 0 {
		t.Errorf("resting jitter counted as %d impacts", len(got))
	}
	if (Impact{}).Ratio() != 0 {
		t.Error("zero impact speed should give ratio 0")
	}
}

func TestAnalyzeBouncesEmpty(t *testing.T) {
	stats := AnalyzeBounces(nil, nil, nil)
	if stats.Count != 0 || !math.IsNaN(stats.Restitution) || !math.IsNaN(stats.Period) {
		t.Errorf("unexpected stats %+v", stats)
	}
}

func TestSpectrumFindsSine(t *testing.T) {
	const dt, f = 0.01, 2.0
	series := make([]float64, 512)
	for i := range series {
		series[i] = 5 + math.Sin(2*math.Pi*f*float64(i)*dt)
	}
	binWidth := 1 / (512 * dt)
	if got := DominantFrequency(series, dt); math.Abs(got-f) > binWidth {
		t.Errorf("dominant frequency %v, want %v", got, f)
	}
	freqs, mags := Spectrum(series, dt)
	if len(freqs) != 256 || len(mags) != 256 {
		t.Errorf("expected 256 bins, got %d", len(freqs))
	}
	if freqs, _ := Spectrum([]float64{1, 2}, dt); freqs != nil {
		t.Error("short series should give no spectrum")
	}
	if DominantFrequency(nil, dt) != 0 {
		t.Error("empty series should give 0")
	}
}

func TestPhasePortraitToASCII(t *testing.T) {
	p := HeightPhase([][3]float64{{0, 1, 0}, {0, 2, 0}, {0, 0.5, 0}}, vy(-1, 0, 1))
	if len(p.Points) != 3 || p.Points[1] != (Point{X: 2, Y: 0}) {
		t.Fatalf("unexpected points %v", p.Points)
	}
	out := PhasePortraitToASCII(p, 20, 8)
	if strings.Count(out, "•") != 3 {
		t.Errorf("expected 3 points plotted:\n%s", out)
	}
	if !strings.Contains(out, "height") {
		t.Error("missing axis labels")
	}
	if PhasePortraitToASCII(&PhasePortrait{}, 20, 8) != "" {
		t.Error("empty portrait should render nothing")
	}
}

func TestImpactMap(t *testing.T) {
	impacts := []Impact{{SpeedOut: 8}, {SpeedOut: 4}, {SpeedOut: 2}}
	m := ImpactMap(impacts)
	if len(m.Points) != 2 || m.Points[0] != (Point{8, 4}) || m.Points[1] != (Point{4, 2}) {
		t.Errorf("unexpected map %v", m.Points)
	}
}

func run(t *testing.T, preset string, steps int) *sim.Result {
	t.Helper()
	s, err := sim.New(config.GetPreset(preset))
	if err != nil {
		t.Fatal(err)
	}
	res, err := sim.NewRunner(s).Run(context.Background(), steps)
	if err != nil {
		t.Fatal(err)
	}
	return res
}

func TestDefaultSceneRestitution(t *testing.T) {
	res := run(t, "bounce", 180)
	impacts := FindImpacts(res.Times, res.Velocities)
	if len(impacts) == 0 {
		t.Fatal("no impacts in 3 seconds")
	}
	if r := impacts[0].Ratio(); math.Abs(r-0.7) > 0.05 {
		t.Errorf("first rebound ratio %v, want about 0.7", r)
	}
}

func TestElasticSceneBounces(t *testing.T) {
	res := run(t, "elastic", 1800)
	stats := AnalyzeBounces(res.Times, res.Positions, res.Velocities)

	// a drop from 9.5 m above contact repeats every 2*sqrt(2h/g)
	period := 2 * math.Sqrt(2*9.5/9.81)
	if stats.Count < 9 {
		t.Fatalf("only %d bounces in 30 seconds", stats.Count)
	}
	if math.Abs(stats.Restitution-1) > 0.05 {
		t.Errorf("restitution %v, want about 1", stats.Restitution)
	}
	if math.Abs(stats.Period-period) > 0.15 {
		t.Errorf("period %v, want about %v", stats.Period, period)
	}
	for i, a := range stats.Apexes {
		if math.Abs(a-10) > 0.6 {
			t.Errorf("apex %d at %v, want about 10", i, a)
		}
	}

	f := DominantFrequency(res.Heights(), res.Times[1]-res.Times[0])
	if math.Abs(f-1/period) > 0.05 {
		t.Errorf("dominant frequency %v, want about %v", f, 1/period)
	}
}
