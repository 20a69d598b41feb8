package main

import (
	"fmt"
	"math"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/bouncer/internal/analysis"
	"github.com/san-kum/bouncer/internal/audio"
	"github.com/san-kum/bouncer/internal/automation"
	"github.com/san-kum/bouncer/internal/config"
	"github.com/san-kum/bouncer/internal/export"
	"github.com/san-kum/bouncer/internal/gui"
	"github.com/san-kum/bouncer/internal/optim"
	"github.com/san-kum/bouncer/internal/sim"
	"github.com/san-kum/bouncer/internal/storage"
	"github.com/san-kum/bouncer/internal/viz"
)

func runGUI(cmd *cobra.Command, args []string) error {
	var proc *audio.Processor
	if sound {
		proc = audio.NewProcessor()
		if err := proc.Start(); err != nil {
			return fmt.Errorf("start audio: %w", err)
		}
		defer proc.Stop()
	}

	flags := cmd.Flags()
	if !flags.Changed("preset") && !flags.Changed("config") {
		gui.RunInteractive(proc)
		return nil
	}

	cfg, name, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	s, err := sim.New(cfg)
	if err != nil {
		return err
	}
	gui.Run(s, name, proc)
	return nil
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	traj, err := st.LoadTrajectory(runID)
	if err != nil {
		return err
	}
	if len(traj.Times) < 2 {
		return fmt.Errorf("run %s has too few samples", runID)
	}

	fmt.Printf("bounce analysis: %s\n", meta.ID)
	fmt.Printf("scene: %s\n\n", meta.Scene)

	stats := analysis.AnalyzeBounces(traj.Times, traj.Positions, traj.Velocities)
	fmt.Println(viz.Row("bounces", fmt.Sprintf("%d", stats.Count)))
	fmt.Println(viz.Row("restitution", formatMaybe(stats.Restitution)))
	fmt.Println(viz.Row("period", formatMaybe(stats.Period)+" s"))
	if len(stats.Apexes) > 0 {
		parts := make([]string, len(stats.Apexes))
		for i, a := range stats.Apexes {
			parts[i] = fmt.Sprintf("%.2f", a)
		}
		fmt.Println(viz.Row("apexes", strings.Join(parts, " ")))
	}

	heights := traj.Heights()
	freqs, mags := analysis.Spectrum(heights, meta.Dt)
	if len(mags) > 4 {
		// the bounce frequencies sit in the lowest bins
		plotData := mags[:len(mags)/4]
		fmt.Println()
		fmt.Println(asciigraph.Plot(plotData,
			asciigraph.Height(12),
			asciigraph.Width(80),
			asciigraph.Caption(fmt.Sprintf("height spectrum, 0 to %.2f Hz", freqs[len(plotData)-1])),
		))
		fmt.Println(viz.Row("dominant", fmt.Sprintf("%.3f Hz", analysis.DominantFrequency(heights, meta.Dt))))
	}

	portrait := analysis.HeightPhase(traj.Positions, traj.Velocities)
	if showImpacts {
		portrait = analysis.ImpactMap(analysis.FindImpacts(traj.Times, traj.Velocities))
	}
	if out := analysis.PhasePortraitToASCII(portrait, 70, 20); out != "" {
		fmt.Println()
		fmt.Println(out)
	}
	return nil
}

func formatMaybe(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.3f", v)
}

func exportSVG(st *storage.Store, runID string) error {
	traj, err := st.LoadTrajectory(runID)
	if err != nil {
		return err
	}
	write := func(path, svg string) error {
		if svg == "" {
			return fmt.Errorf("run %s has too few samples", runID)
		}
		if err := os.WriteFile(path, []byte(svg), 0644); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", path)
		return nil
	}

	if svgFile != "" {
		if err := write(svgFile, export.HeightSVG(traj.Times, traj.Positions, 800, 400)); err != nil {
			return err
		}
	}
	if phaseFile != "" {
		if err := write(phaseFile, export.PhaseSVG(traj.Positions, traj.Velocities, 600, 600)); err != nil {
			return err
		}
	}
	return nil
}

func snapshotScene(cmd *cobra.Command, args []string) error {
	cfg, name, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	s, err := sim.New(cfg)
	if err != nil {
		return err
	}
	for i := 0; i < snapSteps; i++ {
		if _, err := s.Advance(); err != nil {
			return err
		}
	}

	canvas := viz.NewCanvas(120, 60)
	viz.Render3D(canvas, viz.WorldWireframe(s.World()), viz.NewCamera())
	if err := os.WriteFile(snapFile, []byte(export.CanvasToSVG(canvas, 4)), 0644); err != nil {
		return err
	}
	fmt.Printf("wrote %s at step %d to %s\n", name, snapSteps, snapFile)
	return nil
}

func runScenario(cmd *cobra.Command, args []string) error {
	scenario, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}
	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	fmt.Printf("scenario: %s\n", scenario.Name)
	if scenario.Description != "" {
		fmt.Println(scenario.Description)
	}
	fmt.Println()

	results, err := automation.RunScenario(cmd.Context(), scenario, st, os.Stdout)
	if err != nil {
		return err
	}

	fmt.Println()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STEP\tNAME\tBOUNCES\tAPEX\tDRIFT\tRUN")
	for i, r := range results {
		fmt.Fprintf(w, "%d\t%s\t%.0f\t%.3f\t%.4f\t%s\n",
			i+1, r.Name, r.Result.Metrics["bounces"], r.Result.Metrics["apex"], r.Result.EnergyDrift, r.RunID)
	}
	return w.Flush()
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, name, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	values, err := config.ParseRange(sweepRange)
	if err != nil {
		return err
	}

	fmt.Printf("sweeping %s over %d values on %s\n\n", sweepParam, len(values), name)
	results, err := automation.RunSweep(cmd.Context(), &automation.ParameterSweep{
		Base:   cfg,
		Param:  sweepParam,
		Values: values,
		Steps:  cfg.Steps,
	}, nil)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\tBOUNCES\tAPEX\tDRIFT\tSTABILITY\tROLLBACKS\n", strings.ToUpper(sweepParam))
	series := make([]float64, 0, len(results))
	for _, r := range results {
		fmt.Fprintf(w, "%.4f\t%.0f\t%.3f\t%.4f\t%.3f\t%d\n",
			r.Value, r.Metrics["bounces"], r.Metrics["apex"], r.Metrics["energy_drift"], r.Metrics["stability"], r.Errors)
		if v, ok := r.Metrics[sweepMetric]; ok && !math.IsNaN(v) {
			series = append(series, v)
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if plot := viz.SeriesPlot(series, 60, 10, sweepMetric+" vs "+sweepParam); plot != "" {
		fmt.Println()
		fmt.Println(plot)
	}
	return nil
}

func runMonteCarlo(cmd *cobra.Command, args []string) error {
	cfg, name, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	fmt.Printf("monte carlo: %d trials of %s from seed %d\n\n", numTrials, name, cfg.Seed)
	results, err := automation.RunMonteCarlo(cmd.Context(), &automation.MonteCarloConfig{
		Base:      cfg,
		NumTrials: numTrials,
		Steps:     cfg.Steps,
		Seed:      cfg.Seed,
	})
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TRIAL\tSEED\tBOUNCES\tAPEX\tDRIFT\tSTABLE")
	for _, r := range results {
		fmt.Fprintf(w, "%d\t%d\t%.0f\t%.3f\t%.4f\t%v\n",
			r.TrialID, r.Seed, r.Metrics["bounces"], r.Metrics["apex"], r.Metrics["energy_drift"], r.Stable)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	stable, unstable := automation.MonteCarloStats(results)
	fmt.Printf("\nstable: %d  unstable: %d\n", stable, unstable)
	return nil
}

func runTune(cmd *cobra.Command, args []string) error {
	if len(tuneParams) == 0 {
		return fmt.Errorf("at least one --param is required")
	}
	if len(tuneParams) != len(tuneRanges) {
		return fmt.Errorf("got %d --param but %d --range", len(tuneParams), len(tuneRanges))
	}
	cfg, name, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	ranges := make([][]float64, len(tuneRanges))
	points := 1
	for i, r := range tuneRanges {
		if ranges[i], err = config.ParseRange(r); err != nil {
			return err
		}
		points *= len(ranges[i])
	}

	objective := optim.MetricObjective(tuneMetric)
	goal := "minimising " + tuneMetric
	if cmd.Flags().Changed("target") {
		objective = optim.TargetObjective(tuneMetric, target)
		goal = fmt.Sprintf("bringing %s to %g", tuneMetric, target)
	}
	fmt.Printf("grid search on %s: %d points, %s\n\n", name, points, goal)

	best, score, err := optim.NewGridSearch(tuneParams, ranges).Search(cmd.Context(), cfg, cfg.Steps, objective)
	if err != nil {
		return err
	}
	for _, p := range tuneParams {
		fmt.Println(viz.Row(p, fmt.Sprintf("%.4f", best[p])))
	}
	fmt.Println(viz.Row("score", fmt.Sprintf("%.6f", score)))
	return nil
}

func listParams(cmd *cobra.Command, args []string) error {
	cfg := config.DefaultConfig()
	for _, name := range config.ParamNames() {
		v, _ := cfg.GetParam(name)
		fmt.Printf("  %-20s %g\n", name, v)
	}
	return nil
}
