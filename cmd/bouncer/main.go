package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/san-kum/bouncer/internal/viz"
)

var (
	dataDir     string
	preset      string
	configFile  string
	steps       int
	seed        int64
	dt          float64
	restitution float64
	watch       bool
	frameRate   int
	jsonOut     bool
	noSave      bool
	outFile     string
	numRuns     int
	setParams   []string
	sound       bool
	svgFile     string
	phaseFile   string
	showImpacts bool
	sweepParam  string
	sweepRange  string
	sweepMetric string
	tuneMetric  string
	numTrials   int
	snapFile    string
	tuneParams  []string
	tuneRanges  []string
	target      float64
	snapSteps   int
)

// main registers the commands and falls back to the interactive preset menu
// when no subcommand is given.
func main() {
	rootCmd := &cobra.Command{
		Use:   "bouncer",
		Short: "rigid-body bouncing ball sandbox",
		RunE: func(cmd *cobra.Command, args []string) error {
			return viz.RunMenu()
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".bouncer", "data directory")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run a scene headless and store the trajectory",
		Args:  cobra.NoArgs,
		RunE:  runScene,
	}
	addSceneFlags(runCmd)
	runCmd.Flags().BoolVar(&watch, "watch", false, "draw the ball in the terminal while running")
	runCmd.Flags().IntVar(&frameRate, "fps", 30, "frame rate for --watch")
	runCmd.Flags().BoolVar(&jsonOut, "json", false, "write the full run as json to stdout")
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")
	runCmd.Flags().StringVar(&outFile, "out", "", "also export the run as json to this file")

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "open the interactive 3d viewer on a scene",
		Args:  cobra.NoArgs,
		RunE:  runLive,
	}
	addSceneFlags(liveCmd)
	liveCmd.Flags().BoolVar(&sound, "sound", false, "play a knock on every impact")

	guiCmd := &cobra.Command{
		Use:   "gui",
		Short: "open the raylib viewer, on the preset menu unless a scene is given",
		Args:  cobra.NoArgs,
		RunE:  runGUI,
	}
	addSceneFlags(guiCmd)
	guiCmd.Flags().BoolVar(&sound, "sound", false, "play a knock on every impact")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]...",
		Short: "plot ball height for one or more runs",
		Args:  cobra.MinimumNArgs(1),
		RunE:  plotRuns,
	}

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export run metadata, or the full trajectory with --out",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}
	exportCmd.Flags().StringVar(&outFile, "out", "", "write metadata and trajectory as json to this file")
	exportCmd.Flags().StringVar(&svgFile, "svg", "", "write the height plot as svg to this file")
	exportCmd.Flags().StringVar(&phaseFile, "phase-svg", "", "write the height/velocity phase plot as svg to this file")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "bounce, spectrum and phase analysis of a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	analyzeCmd.Flags().BoolVar(&showImpacts, "impacts", false, "plot the impact map instead of the phase portrait")

	snapshotCmd := &cobra.Command{
		Use:   "snapshot",
		Short: "render the scene wireframe to svg",
		Args:  cobra.NoArgs,
		RunE:  snapshotScene,
	}
	addSceneFlags(snapshotCmd)
	snapshotCmd.Flags().IntVar(&snapSteps, "at", 0, "step to render")
	snapshotCmd.Flags().StringVar(&snapFile, "out", "scene.svg", "output file")

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run a yaml scenario of scripted runs",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "run a scene once per value of one parameter",
		Args:  cobra.NoArgs,
		RunE:  runSweep,
	}
	addSceneFlags(sweepCmd)
	sweepCmd.Flags().StringVar(&sweepParam, "param", "restitution", "parameter to vary")
	sweepCmd.Flags().StringVar(&sweepRange, "range", "0.1:0.9:0.2", "values as start:end:step")
	sweepCmd.Flags().StringVar(&sweepMetric, "metric", "apex", "metric to plot")

	monteCarloCmd := &cobra.Command{
		Use:   "montecarlo",
		Short: "run a scene with consecutive seeds and count unstable trials",
		Args:  cobra.NoArgs,
		RunE:  runMonteCarlo,
	}
	addSceneFlags(monteCarloCmd)
	monteCarloCmd.Flags().IntVar(&numTrials, "trials", 16, "number of trials")

	tuneCmd := &cobra.Command{
		Use:   "tune",
		Short: "grid search parameters to minimise a metric",
		Args:  cobra.NoArgs,
		RunE:  runTune,
	}
	addSceneFlags(tuneCmd)
	tuneCmd.Flags().StringArrayVar(&tuneParams, "param", nil, "parameter to search, repeatable")
	tuneCmd.Flags().StringArrayVar(&tuneRanges, "range", nil, "start:end:step for each --param")
	tuneCmd.Flags().StringVar(&tuneMetric, "metric", "energy_drift", "metric to minimise")
	tuneCmd.Flags().Float64Var(&target, "target", 0, "minimise the distance from this value instead")

	paramsCmd := &cobra.Command{
		Use:   "params",
		Short: "list parameter names accepted by --set, --param and scenarios",
		RunE:  listParams,
	}

	compareCmd := &cobra.Command{
		Use:   "compare [preset] [preset]...",
		Short: "run several presets and overlay their heights",
		Args:  cobra.MinimumNArgs(2),
		RunE:  comparePresets,
	}
	compareCmd.Flags().IntVar(&steps, "steps", 0, "steps per preset (0 uses each preset's count)")

	benchCmd := &cobra.Command{
		Use:   "bench",
		Short: "measure step throughput",
		Args:  cobra.NoArgs,
		RunE:  benchScene,
	}
	addSceneFlags(benchCmd)
	benchCmd.Flags().IntVar(&numRuns, "runs", 4, "parallel runs with consecutive seeds")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		RunE:  listPresets,
	}

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "manage scene config files",
	}
	configInitCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "write a preset as a yaml config file",
		Args:  cobra.ExactArgs(1),
		RunE:  initConfig,
	}
	configInitCmd.Flags().StringVar(&preset, "preset", "bounce", "preset to write")
	configCmd.AddCommand(configInitCmd)

	rootCmd.AddCommand(runCmd, liveCmd, guiCmd, listCmd, plotCmd, exportCmd, analyzeCmd, snapshotCmd,
		compareCmd, benchCmd, scenarioCmd, sweepCmd, monteCarloCmd, tuneCmd, presetsCmd, paramsCmd, configCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func addSceneFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&preset, "preset", "bounce", "scene preset")
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml), overrides the preset")
	cmd.Flags().IntVar(&steps, "steps", 0, "number of steps")
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed")
	cmd.Flags().Float64Var(&dt, "dt", 0, "timestep")
	cmd.Flags().Float64Var(&restitution, "restitution", 0, "ball and ground restitution")
	cmd.Flags().StringArrayVar(&setParams, "set", nil, "override a parameter as name=value, repeatable")
}
