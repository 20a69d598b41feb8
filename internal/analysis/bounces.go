package analysis

import "math"

// minRebound ignores velocity flips smaller than this, which come from a
// ball resting on the ground rather than bouncing.
const minRebound = 0.05

// Impact is one upward velocity reversal.
type Impact struct {
	Index    int
	Time     float64
	SpeedIn  float64
	SpeedOut float64
}

// Ratio is the measured coefficient of restitution for this impact.
func (i Impact) Ratio() float64 {
	if i.SpeedIn == 0 {
		return 0
	}
	return i.SpeedOut / i.SpeedIn
}

// FindImpacts reports every sample where the vertical velocity turns from
// falling to rising. SpeedIn is the fall speed one sample earlier.
func FindImpacts(times []float64, velocities [][3]float64) []Impact {
	n := min(len(times), len(velocities))
	var out []Impact
	for i := 1; i < n; i++ {
		in, up := velocities[i-1][1], velocities[i][1]
		if in < 0 && up > minRebound {
			out = append(out, Impact{Index: i, Time: times[i], SpeedIn: -in, SpeedOut: up})
		}
	}
	return out
}

type BounceStats struct {
	Count  int
	Apexes []float64
	// Restitution is the mean rebound ratio, NaN without impacts.
	Restitution float64
	// Period is the mean time between impacts, NaN with fewer than two.
	Period float64
}

// AnalyzeBounces summarises the impacts and the apex height reached after
// each one.
func AnalyzeBounces(times []float64, positions, velocities [][3]float64) BounceStats {
	impacts := FindImpacts(times, velocities)
	stats := BounceStats{
		Count:       len(impacts),
		Restitution: math.NaN(),
		Period:      math.NaN(),
	}
	if len(impacts) == 0 {
		return stats
	}

	sum := 0.0
	for _, im := range impacts {
		sum += im.Ratio()
	}
	stats.Restitution = sum / float64(len(impacts))

	if len(impacts) > 1 {
		stats.Period = (impacts[len(impacts)-1].Time - impacts[0].Time) / float64(len(impacts)-1)
	}

	n := min(len(positions), len(velocities))
	for i := impacts[0].Index + 1; i < n; i++ {
		if velocities[i-1][1] > 0 && velocities[i][1] <= 0 {
			stats.Apexes = append(stats.Apexes, math.Max(positions[i-1][1], positions[i][1]))
		}
	}
	return stats
}
