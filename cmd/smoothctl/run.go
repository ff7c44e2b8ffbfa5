package main

import (
	"fmt"
	"os"
	"os/signal"

	"aniso-smooth/internal/algorithms"
	"aniso-smooth/internal/config"
	"aniso-smooth/internal/opencv/memory"
	"aniso-smooth/internal/pipeline"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type runOptions struct {
	input     string
	output    string
	preset    string
	algorithm string
	workers   int
	quiet     bool
	noMetrics bool

	iterations    int
	strength      float64
	edgeThreshold float64
	anisotropy    float64
	tensorSigma   float64
	dt            float64
	boundary      string
	alpha         float64
	kappa         float64
	deltaT        float64
}

// parameterFlags maps command line flags to algorithm parameter keys.
var parameterFlags = map[string]string{
	"iterations":     "iterations",
	"strength":       "strength",
	"edge-threshold": "edge_threshold",
	"anisotropy":     "anisotropy",
	"tensor-sigma":   "tensor_sigma",
	"dt":             "dt",
	"boundary":       "boundary",
	"alpha":          "alpha",
	"kappa":          "kappa",
	"delta-t":        "delta_t",
}

func newRunCommand(global *globalOptions) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run -i INPUT -o OUTPUT",
		Short: "Smooth an image file",
		Long: "Smooth an image with the structure tensor filter or the conductance variant.\n" +
			"Parameters come from the algorithm defaults, then --preset, then individual flags.\n" +
			"The output format follows the output file extension (png, jpg, tif, bmp).",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSmooth(cmd, global, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.input, "input", "i", "", "input image")
	flags.StringVarP(&opts.output, "output", "o", "", "output image")
	flags.StringVarP(&opts.preset, "preset", "p", "", "named preset from the config")
	flags.StringVarP(&opts.algorithm, "algorithm", "a", "", "algorithm name (default from config)")
	flags.IntVarP(&opts.workers, "workers", "w", 0, "worker goroutines, 0 for all cores (default from config)")
	flags.BoolVarP(&opts.quiet, "quiet", "q", false, "do not report iteration progress")
	flags.BoolVar(&opts.noMetrics, "no-metrics", false, "skip PSNR/SSIM reporting")

	flags.IntVar(&opts.iterations, "iterations", 0, "number of diffusion iterations (1-20)")
	flags.Float64Var(&opts.strength, "strength", 0, "diffusion strength")
	flags.Float64Var(&opts.edgeThreshold, "edge-threshold", 0, "edge threshold (0-2)")
	flags.Float64Var(&opts.anisotropy, "anisotropy", 0, "anisotropy (0-1)")
	flags.Float64Var(&opts.tensorSigma, "tensor-sigma", 0, "structure tensor blur sigma (0.5-2)")
	flags.Float64Var(&opts.dt, "dt", 0, "time step (0.01-0.25)")
	flags.StringVar(&opts.boundary, "boundary", "", "boundary policy: clamp, loop or zero")
	flags.Float64Var(&opts.alpha, "alpha", 0, "conductance: diffusion rate (0.1-1)")
	flags.Float64Var(&opts.kappa, "kappa", 0, "conductance: edge sensitivity (1-15)")
	flags.Float64Var(&opts.deltaT, "delta-t", 0, "conductance: time step (0.05-0.5)")

	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("output")
	cmd.MarkFlagsMutuallyExclusive("preset", "algorithm")

	return cmd
}

func runSmooth(cmd *cobra.Command, global *globalOptions, opts *runOptions) error {
	if _, err := pipeline.FormatFromName(opts.output); err != nil {
		return err
	}

	cfg, log, err := global.load(cmd)
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("workers") {
		if opts.workers < 0 {
			return fmt.Errorf("workers must be 0 (auto) or positive, got: %d", opts.workers)
		}
		cfg.Workers = opts.workers
	}

	memoryManager := memory.NewManager(log, cfg.MemoryLimitBytes())
	defer memoryManager.Shutdown()

	coordinator := pipeline.NewCoordinator(memoryManager, log, cfg.Workers)
	defer coordinator.Shutdown()

	algorithm, params, err := resolveParameters(cmd.Flags(), cfg, coordinator.AlgorithmManager(), opts)
	if err != nil {
		return err
	}

	file, err := os.Open(opts.input)
	if err != nil {
		return fmt.Errorf("failed to open input: %w", err)
	}
	original, err := coordinator.LoadImage(file, opts.input)
	file.Close()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	var progress func(done, total int)
	if !opts.quiet {
		progress = func(done, total int) {
			fmt.Fprintf(cmd.ErrOrStderr(), "\riteration %d/%d", done, total)
			if done == total {
				fmt.Fprintln(cmd.ErrOrStderr())
			}
		}
	}

	processed, err := coordinator.ProcessImageWithProgress(ctx, algorithm, params, progress)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("interrupted: %w", err)
		}
		return err
	}

	if err := coordinator.SaveImageToPath(opts.output, processed); err != nil {
		return err
	}

	if opts.noMetrics {
		return nil
	}

	metrics, err := pipeline.Compare(original.Image, processed.Image)
	if err != nil {
		return err
	}
	printMetrics(cmd, algorithm, metrics)
	return nil
}

// resolveParameters layers algorithm defaults, the preset and changed flags.
func resolveParameters(flags *pflag.FlagSet, cfg *config.Config, manager *algorithms.Manager, opts *runOptions) (string, map[string]interface{}, error) {
	algorithmName := cfg.DefaultAlgorithm
	overrides := map[string]interface{}{}

	switch {
	case opts.preset != "":
		preset, err := cfg.Preset(opts.preset)
		if err != nil {
			return "", nil, err
		}
		algorithmName = preset.Algorithm
		overrides = preset.Params()
	case opts.algorithm != "":
		algorithmName = opts.algorithm
	}

	algorithm, err := manager.GetAlgorithm(algorithmName)
	if err != nil {
		return "", nil, err
	}
	defaults := algorithm.GetDefaultParameters()

	var flagErr error
	flags.Visit(func(f *pflag.Flag) {
		key, ok := parameterFlags[f.Name]
		if !ok || flagErr != nil {
			return
		}
		if _, known := defaults[key]; !known {
			flagErr = fmt.Errorf("flag --%s does not apply to %s", f.Name, algorithmName)
			return
		}
		overrides[key] = flagValue(f.Name, opts)
	})
	if flagErr != nil {
		return "", nil, flagErr
	}

	if err := manager.SetParameters(algorithmName, overrides); err != nil {
		return "", nil, err
	}

	return algorithmName, manager.GetParameters(algorithmName), nil
}

func flagValue(name string, opts *runOptions) interface{} {
	switch name {
	case "iterations":
		return opts.iterations
	case "strength":
		return opts.strength
	case "edge-threshold":
		return opts.edgeThreshold
	case "anisotropy":
		return opts.anisotropy
	case "tensor-sigma":
		return opts.tensorSigma
	case "dt":
		return opts.dt
	case "boundary":
		return opts.boundary
	case "alpha":
		return opts.alpha
	case "kappa":
		return opts.kappa
	default:
		return opts.deltaT
	}
}

func printMetrics(cmd *cobra.Command, algorithm string, m pipeline.QualityMetrics) {
	cmd.Printf("algorithm: %s\n", algorithm)
	cmd.Printf("PSNR: %s\n", pipeline.FormatPSNR(m.PSNR))
	cmd.Printf("SSIM: %.4f\n", m.SSIM)
	cmd.Printf("variance R/G/B/A before: %.5f %.5f %.5f %.5f\n",
		m.OriginalVariance[0], m.OriginalVariance[1], m.OriginalVariance[2], m.OriginalVariance[3])
	cmd.Printf("variance R/G/B/A after:  %.5f %.5f %.5f %.5f\n",
		m.ResultVariance[0], m.ResultVariance[1], m.ResultVariance[2], m.ResultVariance[3])
}
