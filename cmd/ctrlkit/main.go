package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/go-logr/logr"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/ctrlkit/internal/automation"
	"github.com/san-kum/ctrlkit/internal/config"
	"github.com/san-kum/ctrlkit/internal/control"
	"github.com/san-kum/ctrlkit/internal/converter"
	"github.com/san-kum/ctrlkit/internal/experiment"
	"github.com/san-kum/ctrlkit/internal/export"
	"github.com/san-kum/ctrlkit/internal/logging"
	"github.com/san-kum/ctrlkit/internal/lti"
	"github.com/san-kum/ctrlkit/internal/storage"
	"github.com/san-kum/ctrlkit/internal/viz"
	"github.com/spf13/cobra"
)

var (
	dataDir    string
	configFile string
	logLevel   string
	logFormat  string
	themeName  string
	preset     string
	save       bool
	pngOut     bool
	svgOut     bool
	outDir     string
	quiet      bool
	// metrics and fit
	trailing      float64
	band          float64
	referenceTime float64
	stepAmplitude float64
	// transfer functions
	num []float64
	den []float64
	kp  float64
	ki  float64
	kd  float64
	// state space
	ssA string
	ssB []float64
	ssC []float64
	ssD float64
	// laplace
	coef      string
	rate      string
	amplitude float64
	decay     float64
	// converter
	vi          float64
	inductance  float64
	capacitance float64
	ro          float64
	duty        float64
	targetError float64
	refStep     float64
	method      string
	samples     int
	// export
	outFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "ctrlkit",
		Short:         "control systems coursework toolkit",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if themeName != "" {
				if !slices.Contains(viz.ThemeNames(), themeName) {
					return fmt.Errorf("unknown theme %q (available: %v)", themeName, viz.ThemeNames())
				}
				viz.SetTheme(themeName)
			}
			return nil
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&dataDir, "data", ".ctrlkit", "data directory")
	pf.StringVar(&configFile, "config", "", "config file path (yaml)")
	pf.StringVar(&logLevel, "log-level", "", "log level: error, warn, info, debug, trace")
	pf.StringVar(&logFormat, "log-format", "", "log format: console or json")
	pf.StringVar(&themeName, "theme", "", "terminal theme")

	addOutputFlags := func(cmd *cobra.Command) {
		cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
		cmd.Flags().BoolVar(&save, "save", false, "store the run in the data directory")
		cmd.Flags().BoolVar(&pngOut, "png", false, "write PNG figures")
		cmd.Flags().BoolVar(&svgOut, "svg", false, "write SVG figures")
		cmd.Flags().StringVar(&outDir, "out", "", "figure directory (default: the stored run)")
		cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "print only the summary")
	}
	addTFFlags := func(cmd *cobra.Command) {
		cmd.Flags().Float64SliceVar(&num, "num", nil, "numerator coefficients, highest power first")
		cmd.Flags().Float64SliceVar(&den, "den", nil, "denominator coefficients, highest power first")
	}
	addSystemFlags := func(cmd *cobra.Command) {
		cmd.Flags().Float64Var(&trailing, "trailing", 0.1, "fraction of samples averaged into the final value")
		cmd.Flags().Float64Var(&band, "band", 0.02, "settling band as a fraction of the step")
		cmd.Flags().Float64Var(&referenceTime, "reference", 0, "time the input step is applied")
		cmd.Flags().Float64Var(&stepAmplitude, "step", 1, "input step amplitude")
	}

	runCmd := &cobra.Command{
		Use:   "run [exercise]",
		Short: "run a registered exercise",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExercise(cmd, args[0], nil)
		},
	}
	addOutputFlags(runCmd)

	metricsCmd := &cobra.Command{
		Use:   "metrics [csv]",
		Short: "step-response metrics of a measured curve",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return analyzeFiles(cmd, args, false)
		},
	}
	addOutputFlags(metricsCmd)
	addSystemFlags(metricsCmd)

	fitCmd := &cobra.Command{
		Use:   "fit [csv...]",
		Short: "fit first or second order models to measured curves",
		Long:  "fit estimates a model for each CSV given. Without arguments it runs the hw2-fit exercise on the configured systems.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return runExercise(cmd, "hw2-fit", nil)
			}
			return analyzeFiles(cmd, args, true)
		},
	}
	addOutputFlags(fitCmd)
	addSystemFlags(fitCmd)

	stepCmd := &cobra.Command{
		Use:   "step",
		Short: "poles, zeros and step response of a transfer function",
		RunE:  stepTF,
	}
	addOutputFlags(stepCmd)
	addTFFlags(stepCmd)

	loopCmd := &cobra.Command{
		Use:   "loop",
		Short: "step response of a plant under PID unity feedback",
		RunE:  closedLoop,
	}
	addOutputFlags(loopCmd)
	addTFFlags(loopCmd)
	loopCmd.Flags().Float64Var(&kp, "kp", 1, "proportional gain")
	loopCmd.Flags().Float64Var(&ki, "ki", 0, "integral gain")
	loopCmd.Flags().Float64Var(&kd, "kd", 0, "derivative gain")

	ss2tfCmd := &cobra.Command{
		Use:   "ss2tf",
		Short: "convert a state space realization to a transfer function",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExercise(cmd, "hw2-ss2tf", func(cfg *config.Config) error {
				if cmd.Flags().Changed("a") {
					a, err := parseMatrix(ssA)
					if err != nil {
						return err
					}
					cfg.StateSpace.A = a
				}
				if cmd.Flags().Changed("b") {
					cfg.StateSpace.B = ssB
				}
				if cmd.Flags().Changed("c") {
					cfg.StateSpace.C = ssC
				}
				if cmd.Flags().Changed("d") {
					cfg.StateSpace.D = ssD
				}
				return nil
			})
		},
	}
	addOutputFlags(ss2tfCmd)
	ss2tfCmd.Flags().StringVar(&ssA, "a", "", "A matrix, rows separated by ';' (e.g. \"0,1;-5,-2\")")
	ss2tfCmd.Flags().Float64SliceVar(&ssB, "b", nil, "B column")
	ss2tfCmd.Flags().Float64SliceVar(&ssC, "c", nil, "C row")
	ss2tfCmd.Flags().Float64Var(&ssD, "d", 0, "D feedthrough")

	laplaceCmd := &cobra.Command{
		Use:   "laplace",
		Short: "Laplace transform of A*exp(-a*t)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExercise(cmd, "hw1-laplace", func(cfg *config.Config) error {
				f := cmd.Flags()
				if f.Changed("coef") {
					cfg.Laplace.Coef = coef
				}
				if f.Changed("rate") {
					cfg.Laplace.Rate = rate
				}
				if f.Changed("amplitude") {
					cfg.Laplace.Amplitude = amplitude
				}
				if f.Changed("decay") {
					cfg.Laplace.Decay = decay
				}
				return nil
			})
		},
	}
	addOutputFlags(laplaceCmd)
	laplaceCmd.Flags().StringVar(&coef, "coef", "A", "symbol for the amplitude")
	laplaceCmd.Flags().StringVar(&rate, "rate", "a", "symbol for the decay rate")
	laplaceCmd.Flags().Float64Var(&amplitude, "amplitude", 1, "numeric amplitude")
	laplaceCmd.Flags().Float64Var(&decay, "decay", 2, "numeric decay rate")

	ilaplaceCmd := &cobra.Command{
		Use:   "ilaplace",
		Short: "inverse Laplace transform by partial fractions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExercise(cmd, "hw1-inverse", func(cfg *config.Config) error {
				if cmd.Flags().Changed("num") {
					cfg.Laplace.Num = num
				}
				if cmd.Flags().Changed("den") {
					cfg.Laplace.Den = den
				}
				return nil
			})
		},
	}
	addOutputFlags(ilaplaceCmd)
	addTFFlags(ilaplaceCmd)

	dcdcCmd := &cobra.Command{
		Use:   "dcdc",
		Short: "buck-boost converter proportional control study",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExercise(cmd, "dcdc", func(cfg *config.Config) error {
				f := cmd.Flags()
				s := &cfg.Converter
				if f.Changed("vi") {
					s.Params.Vi = vi
				}
				if f.Changed("l") {
					s.Params.L = inductance
				}
				if f.Changed("c") {
					s.Params.C = capacitance
				}
				if f.Changed("ro") {
					s.Params.Ro = ro
				}
				if f.Changed("duty") {
					s.Params.D = duty
				}
				if f.Changed("target-error") {
					s.TargetError = targetError
				}
				if f.Changed("ref-step") {
					s.RefStep = refStep
				}
				if f.Changed("method") {
					s.Method = method
				}
				if f.Changed("samples") {
					s.Samples = samples
				}
				return s.Validate()
			})
		},
	}
	addOutputFlags(dcdcCmd)
	dcdcCmd.Flags().Float64Var(&vi, "vi", 24, "input voltage [V]")
	dcdcCmd.Flags().Float64Var(&inductance, "l", 20e-6, "inductance [H]")
	dcdcCmd.Flags().Float64Var(&capacitance, "c", 80e-6, "capacitance [F]")
	dcdcCmd.Flags().Float64Var(&ro, "ro", 4, "load resistance [Ω]")
	dcdcCmd.Flags().Float64Var(&duty, "duty", 0.4, "duty cycle")
	dcdcCmd.Flags().Float64Var(&targetError, "target-error", 0.1, "steady-state error target")
	dcdcCmd.Flags().Float64Var(&refStep, "ref-step", 1, "reference step [V]")
	dcdcCmd.Flags().StringVar(&method, "method", lti.MethodZOH, "discretization: "+strings.Join(lti.Methods(), ", "))
	dcdcCmd.Flags().IntVar(&samples, "samples", 10000, "samples per simulation")

	exercisesCmd := &cobra.Command{
		Use:   "exercises",
		Short: "list exercises",
		RunE:  listExercises,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets [exercise]",
		Short: "list available presets for an exercise",
		Args:  cobra.ExactArgs(1),
		RunE:  listPresets,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	showCmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "show a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export a stored run to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVarP(&outFile, "output", "o", "", "output file (default: stdout)")

	batchCmd := &cobra.Command{
		Use:   "batch [file]",
		Short: "run a YAML batch of exercises and converter sweeps",
		Args:  cobra.ExactArgs(1),
		RunE:  runBatch,
	}

	browseCmd := &cobra.Command{
		Use:   "browse",
		Short: "browse stored runs interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			return viz.RunBrowser(storage.New(dataDir))
		},
	}

	initCmd := &cobra.Command{
		Use:   "init-config [path]",
		Short: "write the default configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Save(args[0], config.DefaultConfig()); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", args[0])
			return nil
		},
	}

	rootCmd.AddCommand(runCmd, metricsCmd, fitCmd, stepCmd, loopCmd, ss2tfCmd, laplaceCmd, ilaplaceCmd, dcdcCmd,
		exercisesCmd, presetsCmd, listCmd, showCmd, exportJSONCmd, batchCmd, browseCmd, initCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, viz.Warning.Render("error: ")+err.Error())
		stop()
		os.Exit(1)
	}
}

// loadConfig reads --config, or the defaults, and applies the logging flags.
func loadConfig() (*config.Config, error) {
	cfg := config.DefaultConfig()
	if configFile != "" {
		var err error
		cfg, err = config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}
	return cfg, nil
}

func setup() (*config.Config, logr.Logger, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, logr.Discard(), func() {}, err
	}
	log, sync, err := logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return nil, logr.Discard(), func() {}, err
	}
	return cfg, log, sync, nil
}

// runExercise applies the preset and then configure to a copy of the loaded
// configuration before running the named exercise.
func runExercise(cmd *cobra.Command, name string, configure func(*config.Config) error) error {
	base, log, sync, err := setup()
	if err != nil {
		return err
	}
	defer sync()

	exp := experiment.New(name, preset, base, log)
	cfg, err := exp.Config()
	if err != nil {
		return err
	}
	if configure != nil {
		if err := configure(cfg); err != nil {
			return err
		}
	}

	rep, err := experiment.NewRegistry().Run(cmd.Context(), name, cfg, log)
	if err != nil {
		return err
	}
	rep.Preset = preset
	return emit(rep, cfg, log)
}

func analyzeFiles(cmd *cobra.Command, paths []string, identify bool) error {
	cfg, log, sync, err := setup()
	if err != nil {
		return err
	}
	defer sync()

	if cmd.Flags().Changed("band") {
		cfg.Metrics.SettlingBand = band
	}
	for _, path := range paths {
		sys := config.SystemConfig{
			Name:             strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
			Data:             path,
			TrailingFraction: trailing,
			StepAmplitude:    stepAmplitude,
			ReferenceTime:    referenceTime,
		}
		rep, err := experiment.AnalyzeSystem(cmd.Context(), cfg, sys, identify, log)
		if err != nil {
			return err
		}
		if err := emit(rep, cfg, log); err != nil {
			return err
		}
	}
	return nil
}

func plantFromFlags() (lti.TransferFunction, error) {
	if len(num) == 0 || len(den) == 0 {
		return lti.TransferFunction{}, fmt.Errorf("--num and --den are required")
	}
	return lti.NewTF(num, den)
}

func stepTF(cmd *cobra.Command, args []string) error {
	cfg, log, sync, err := setup()
	if err != nil {
		return err
	}
	defer sync()

	tf, err := plantFromFlags()
	if err != nil {
		return err
	}
	rep, err := experiment.AnalyzeTF(cmd.Context(), "step", cfg, tf, log)
	if err != nil {
		return err
	}
	return emit(rep, cfg, log)
}

func closedLoop(cmd *cobra.Command, args []string) error {
	cfg, log, sync, err := setup()
	if err != nil {
		return err
	}
	defer sync()

	plant, err := plantFromFlags()
	if err != nil {
		return err
	}
	pid := control.PID{Kp: kp, Ki: ki, Kd: kd}
	closed, err := control.ClosedLoop(pid, plant)
	if err != nil {
		return err
	}

	rep, err := experiment.AnalyzeTF(cmd.Context(), "loop", cfg, closed, log)
	if err != nil {
		return err
	}
	sec := rep.Section("Controller")
	sec.Add("plant", "%s / %s", plant.Num, plant.Den)
	sec.Add("controller", "%s", pid)
	if ess, err := control.SteadyStateError(pid, plant); err == nil {
		sec.Add("steady-state error", "%.4g", ess)
		rep.Metrics["steady_state_error"] = ess
	} else {
		rep.Note("steady-state error: %v", err)
	}
	return emit(rep, cfg, log)
}

// emit prints rep, stores it with --save and writes its figures.
func emit(rep *experiment.Report, cfg *config.Config, log logr.Logger) error {
	if quiet {
		fmt.Println(rep.Summary)
	} else {
		fmt.Println(viz.RenderReport(rep))
		opts := viz.DefaultPlotOptions()
		opts.Width = cfg.Output.PlotWidth
		opts.Height = cfg.Output.PlotHeight
		fmt.Print(viz.RenderFigures(rep, opts))
	}

	dir := outDir
	if dir == "" {
		dir = cfg.Output.Dir
	}
	if save {
		st := storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		runID, err := st.Save(rep.Run())
		if err != nil {
			return err
		}
		fmt.Printf("run id: %s\n", runID)
		if dir == "" {
			dir = filepath.Join(st.Dir(), runID)
		}
	}
	if dir == "" {
		return nil
	}

	out := cfg.Output
	if pngOut || svgOut {
		out.PNG, out.SVG = pngOut, svgOut
	}
	paths, err := rep.WriteFigures(dir, out)
	if err != nil {
		return err
	}
	for _, p := range paths {
		log.V(1).Info("figure written", "path", p)
	}
	if len(paths) > 0 {
		fmt.Printf("figures: %d written to %s\n", len(paths), dir)
	}
	return nil
}

// parseMatrix reads rows separated by ';' and columns by ','.
func parseMatrix(s string) ([][]float64, error) {
	var rows [][]float64
	for _, line := range strings.Split(s, ";") {
		var row []float64
		for _, field := range strings.Split(line, ",") {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, fmt.Errorf("matrix %q: %w", s, err)
			}
			row = append(row, v)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func listExercises(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tDESCRIPTION\tPRESETS")
	for _, e := range experiment.NewRegistry().List() {
		fmt.Fprintf(w, "%s\t%s\t%s\n", e.Name, e.Description, strings.Join(config.ListPresets(e.Name), ", "))
	}
	return w.Flush()
}

func listPresets(cmd *cobra.Command, args []string) error {
	names := config.ListPresets(args[0])
	if len(names) == 0 {
		fmt.Printf("no presets for exercise: %s\n", args[0])
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, name := range names {
		fmt.Fprintf(w, "%s\t%s\n", name, config.Presets[args[0]][name].Description)
	}
	return w.Flush()
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
	fmt.Fprintln(w, "ID\tEXERCISE\tPRESET\tTIME\tSUMMARY")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			run.ID,
			run.Exercise,
			run.Preset,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Summary,
		)
	}
	return w.Flush()
}

func showRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	fmt.Println(viz.RenderMetadata(*meta))

	responses, err := st.LoadResponses(args[0])
	if err != nil {
		return err
	}
	for _, resp := range responses {
		opts := viz.DefaultPlotOptions()
		opts.Caption = resp.Name
		fmt.Println(viz.Plot(opts, resp))
		fmt.Println()
	}
	return nil
}

func exportJSON(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	responses, err := st.LoadResponses(args[0])
	if err != nil {
		return err
	}

	data := export.NewExportData(*meta, responses)
	if outFile == "" {
		return export.WriteJSON(os.Stdout, data)
	}
	if err := export.ExportJSON(outFile, data); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", outFile)
	return nil
}

func runBatch(cmd *cobra.Command, args []string) error {
	cfg, log, sync, err := setup()
	if err != nil {
		return err
	}
	defer sync()

	batch, err := automation.LoadBatch(args[0])
	if err != nil {
		return err
	}
	if batch.Name != "" {
		fmt.Println(viz.Title.Render(batch.Name))
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	var batchErr error
	if len(batch.Steps) > 0 {
		results, err := automation.RunBatch(cmd.Context(), batch, cfg, experiment.NewRegistry(), st, log)
		batchErr = err

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "EXERCISE\tPRESET\tRUN\tRESULT")
		for _, r := range results {
			result := "error: "
			if r.Err == nil {
				result = r.Report.Summary
			} else {
				result += r.Err.Error()
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Step.Exercise, r.Step.Preset, r.RunID, result)
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}

	for _, sweep := range batch.Sweeps {
		study := cfg.Converter
		study.Logger = log
		points, err := automation.RunSweep(cmd.Context(), sweep, study, log)
		if err != nil {
			return err
		}

		fmt.Printf("\nsweep %s: %g .. %g\n", sweep.Param, sweep.Min, sweep.Max)
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "VALUE\tK\tFINAL [V]\tESS [%]\tOVERSHOOT [%]\tSETTLING [µs]")
		overshoot := make([]float64, 0, len(points))
		for _, p := range points {
			if p.Err != nil {
				fmt.Fprintf(w, "%.4g\terror: %v\n", p.Value, p.Err)
				continue
			}
			fmt.Fprintf(w, "%.4g\t%.4f\t%.3f\t%.1f\t%.1f\t%.1f\n",
				p.Value, p.K, p.ClosedLoopFinal, p.SteadyStateErrorPercent, p.OvershootPercent, converter.Microseconds(p.SettlingTime))
			if !math.IsNaN(p.OvershootPercent) {
				overshoot = append(overshoot, p.OvershootPercent)
			}
		}
		if err := w.Flush(); err != nil {
			return err
		}
		if len(overshoot) > 1 {
			fmt.Println(asciigraph.Plot(overshoot,
				asciigraph.Height(8),
				asciigraph.Width(60),
				asciigraph.Caption("overshoot [%] vs "+sweep.Param),
			))
		}
	}
	return batchErr
}
