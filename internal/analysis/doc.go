// Package analysis extracts bounce behaviour from a recorded trajectory.
//
// It works on plain position and velocity series, so it serves both a
// fresh [sim.Result] and a trajectory loaded back from storage:
//
//   - [HeightPhase]: height against vertical velocity
//   - [FindImpacts]: upward velocity reversals and their rebound ratio
//   - [AnalyzeBounces]: bounce count, apex heights, mean restitution
//   - [Spectrum]: magnitude spectrum of a uniformly sampled series
//
// The measured restitution of a run is the mean rebound ratio:
//
//	stats := analysis.AnalyzeBounces(result.Times, result.Positions, result.Velocities)
//	fmt.Printf("e = %.2f over %d bounces\n", stats.Restitution, stats.Count)
package analysis
