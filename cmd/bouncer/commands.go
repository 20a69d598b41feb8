package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/san-kum/bouncer/internal/audio"
	"github.com/san-kum/bouncer/internal/config"
	"github.com/san-kum/bouncer/internal/metrics"
	"github.com/san-kum/bouncer/internal/sim"
	"github.com/san-kum/bouncer/internal/storage"
	"github.com/san-kum/bouncer/internal/tui"
	"github.com/san-kum/bouncer/internal/viz"
)

// resolveConfig applies the preset, then the config file, then any flag the
// user set explicitly. The returned name labels stored runs.
func resolveConfig(cmd *cobra.Command) (*config.Config, string, error) {
	name := preset
	cfg := config.GetPreset(preset)
	if cfg == nil {
		return nil, "", fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, "", err
		}
		cfg = loaded
		name = strings.TrimSuffix(filepath.Base(configFile), filepath.Ext(configFile))
	}

	for _, a := range setParams {
		k, v, err := config.ParseAssignment(a)
		if err != nil {
			return nil, "", err
		}
		if err := cfg.SetParam(k, v); err != nil {
			return nil, "", err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("steps") {
		cfg.Steps = steps
	}
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("dt") {
		cfg.Dt = dt
	}
	if flags.Changed("restitution") {
		cfg.Ball.Restitution = restitution
		cfg.Ground.Restitution = restitution
	}
	if cfg.Steps <= 0 {
		cfg.Steps = config.DefaultSteps
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return cfg, name, nil
}

func runScene(cmd *cobra.Command, args []string) error {
	cfg, name, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	s, err := sim.New(cfg)
	if err != nil {
		return err
	}
	runner := sim.NewRunner(s)
	for _, m := range metrics.Default() {
		runner.AddMetric(m)
	}

	var live *tui.LiveRenderer
	if watch && !jsonOut {
		span := 2 * config.DefaultPanelSize
		live = tui.NewLiveRenderer(os.Stdout, name, frameRate, span, span)
		runner.AddObserver(live)
		live.Start()
		defer live.Stop()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()
	result, runErr := runner.Run(ctx, cfg.Steps)
	if result == nil {
		return runErr
	}
	elapsed := time.Since(start)
	if live != nil {
		live.Stop()
	}

	runID := ""
	if !noSave {
		st := storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		if runID, err = st.Save(name, cfg, result); err != nil {
			return err
		}
	}

	if outFile != "" {
		if err := storage.ExportJSON(outFile, name, cfg, result); err != nil {
			return err
		}
	}

	if jsonOut {
		if err := storage.WriteJSON(os.Stdout, name, cfg, result); err != nil {
			return err
		}
		return runErr
	}

	printSummary(name, runID, elapsed, result)
	return runErr
}

func printSummary(name, runID string, elapsed time.Duration, result *sim.Result) {
	var b strings.Builder
	b.WriteString(viz.Title.Render("bouncer · "+name) + "\n\n")
	if runID != "" {
		b.WriteString(viz.Row("run id", runID) + "\n")
	}
	b.WriteString(viz.Row("steps", fmt.Sprintf("%d", result.StepsTaken)) + "\n")
	b.WriteString(viz.Row("elapsed", elapsed.Round(time.Microsecond).String()) + "\n")
	b.WriteString(viz.Row("contacts", fmt.Sprintf("%d", result.Contacts)) + "\n")
	if len(result.Errors) > 0 {
		b.WriteString(viz.MetricLabel.Render("rollbacks") + viz.StatusError.Render(fmt.Sprintf("%d", len(result.Errors))) + "\n")
	}
	b.WriteString(viz.Separator(40) + "\n")
	b.WriteString(viz.MetricRows(result.Metrics))

	fmt.Println(viz.Panel.Render(b.String()))
	if plot := viz.HeightPlot(result.Heights(), 70, 12, "ball height"); plot != "" {
		fmt.Println(plot)
	}
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, name, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	s, err := sim.New(cfg)
	if err != nil {
		return err
	}
	if !sound {
		return viz.RunLive(s, name)
	}

	proc := audio.NewProcessor()
	if err := proc.Start(); err != nil {
		return fmt.Errorf("start audio: %w", err)
	}
	defer proc.Stop()
	m := viz.NewModel(s, name).WithContactHook(func(smp sim.Sample) {
		proc.Impact(smp.Velocity.Len())
	})
	return viz.RunModel(m)
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSCENE\tTIME\tSTEPS\tDT\tE\tCONTACTS")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.4fs\t%.2f\t%d\n",
			run.ID,
			run.Scene,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Steps,
			run.Dt,
			run.Restitution,
			run.Contacts,
		)
	}

	return w.Flush()
}

func plotRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)

	series := make([][]float64, 0, len(args))
	for _, runID := range args {
		meta, err := st.Load(runID)
		if err != nil {
			return err
		}
		traj, err := st.LoadTrajectory(runID)
		if err != nil {
			return err
		}
		if len(traj.Times) == 0 {
			return fmt.Errorf("run %s has no trajectory", runID)
		}
		fmt.Printf("run: %s  scene: %s  samples: %d\n", meta.ID, meta.Scene, len(traj.Times))
		series = append(series, traj.Heights())
	}
	fmt.Println()

	var plot string
	if len(series) == 1 {
		plot = viz.HeightPlot(series[0], 80, 14, "ball height")
	} else {
		plot = viz.ComparePlot(series, 80, 14, "ball height")
	}
	if plot == "" {
		return fmt.Errorf("not enough samples to plot")
	}
	fmt.Println(plot)
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	if svgFile != "" || phaseFile != "" {
		return exportSVG(st, runID)
	}

	if outFile == "" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(meta)
	}

	traj, err := st.LoadTrajectory(runID)
	if err != nil {
		return err
	}
	data := storage.ExportData{
		RunMetadata: *meta,
		Times:       traj.Times,
		Positions:   traj.Positions,
		Velocities:  traj.Velocities,
	}
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(outFile, raw, 0644); err != nil {
		return err
	}
	fmt.Printf("exported %s to %s\n", runID, outFile)
	return nil
}

func comparePresets(cmd *cobra.Command, args []string) error {
	fmt.Printf("%-10s  %-8s  %-8s  %-12s  %-10s\n", "preset", "bounces", "apex", "energy_drift", "time_ms")
	fmt.Println(strings.Repeat("-", 56))

	series := make([][]float64, 0, len(args))
	for _, name := range args {
		cfg := config.GetPreset(name)
		if cfg == nil {
			fmt.Printf("%-10s  error: unknown preset\n", name)
			continue
		}
		n := cfg.Steps
		if steps > 0 {
			n = steps
		}
		if n <= 0 {
			n = config.DefaultSteps
		}

		s, err := sim.New(cfg)
		if err != nil {
			fmt.Printf("%-10s  error: %v\n", name, err)
			continue
		}
		runner := sim.NewRunner(s)
		for _, m := range metrics.Default() {
			runner.AddMetric(m)
		}

		start := time.Now()
		result, err := runner.Run(cmd.Context(), n)
		if err != nil {
			fmt.Printf("%-10s  error: %v\n", name, err)
			continue
		}
		elapsed := time.Since(start)

		fmt.Printf("%-10s  %-8.0f  %-8.3f  %-12.4f  %-10.2f\n",
			name,
			result.Metrics["bounces"],
			result.Metrics["apex"],
			result.EnergyDrift,
			float64(elapsed.Microseconds())/1000,
		)
		series = append(series, result.Heights())
	}
	fmt.Println()

	if plot := viz.ComparePlot(series, 80, 14, strings.Join(args, " · ")); plot != "" {
		fmt.Println(plot)
	}
	return nil
}

func benchScene(cmd *cobra.Command, args []string) error {
	cfg, name, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	fmt.Printf("benchmarking %s\n\n", name)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DT\tSTEPS\tTIME\tSTEPS/SEC")

	for _, d := range []float64{cfg.Dt, cfg.Dt / 2, cfg.Dt / 4} {
		c := cfg.Clone()
		c.Dt = d
		s, err := sim.New(c)
		if err != nil {
			return err
		}
		start := time.Now()
		result, err := sim.NewRunner(s).Run(cmd.Context(), c.Steps)
		if err != nil {
			return err
		}
		elapsed := time.Since(start)
		fmt.Fprintf(w, "%.4fs\t%d\t%v\t%.0f\n",
			d, result.StepsTaken, elapsed, float64(result.StepsTaken)/elapsed.Seconds())
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if numRuns <= 1 {
		return nil
	}

	ens := sim.NewEnsemble(cfg, numRuns, cfg.Seed, metrics.Default)
	start := time.Now()
	results, err := ens.Run(cmd.Context(), cfg.Steps)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	total := 0
	for _, r := range results {
		total += r.StepsTaken
	}
	fmt.Printf("\nensemble: %d runs, %d steps in %v (%.0f steps/sec)\n",
		numRuns, total, elapsed, float64(total)/elapsed.Seconds())

	w = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SEED\tBOUNCES\tAPEX\tDRIFT")
	for i, r := range results {
		fmt.Fprintf(w, "%d\t%.0f\t%.3f\t%.4f\n",
			cfg.Seed+int64(i), r.Metrics["bounces"], r.Metrics["apex"], r.EnergyDrift)
	}
	return w.Flush()
}

func listPresets(cmd *cobra.Command, args []string) error {
	header := lipgloss.NewStyle().Bold(true).Underline(true)
	fmt.Println(header.Render("presets"))
	for _, name := range config.ListPresets() {
		cfg := config.GetPreset(name)
		sides := "ground"
		if len(cfg.Panels.Sides) > 0 {
			sides += " + " + strings.Join(cfg.Panels.Sides, ",")
		}
		fmt.Printf("  %-8s  e=%.2f  r=%.2f  steps=%-5d  %s\n",
			name, cfg.Ball.Restitution, cfg.Ball.Radius, cfg.Steps, sides)
	}
	return nil
}

func initConfig(cmd *cobra.Command, args []string) error {
	cfg := config.GetPreset(preset)
	if cfg == nil {
		return fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
	}
	if err := config.Save(args[0], cfg); err != nil {
		return err
	}
	fmt.Printf("wrote %s preset to %s\n", preset, args[0])
	return nil
}
