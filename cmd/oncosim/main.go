package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"oncosim/internal/log"
	"oncosim/internal/models"
	"oncosim/pkg/ablation"
	"oncosim/pkg/config"
)

func main() {
	// Parse command line arguments
	input := flag.String("input", "", "MRI slice (PNG or JPEG); a synthetic phantom is used when empty")
	configPath := flag.String("config", "oncosim.yaml", "YAML configuration file")
	initConfig := flag.Bool("init-config", false, "Write the default configuration to -config and exit")
	modelPath := flag.String("model", "", "Classifier model file (YAML); simulation is used when missing")
	outputDir := flag.String("output", "", "Output directory (overrides the config)")
	wavelength := flag.Float64("wavelength", 0, "Laser wavelength in nm (0 uses the config default)")
	depth := flag.Float64("depth", -1, "Lesion depth in mm (negative uses the config default)")
	mode := flag.String("mode", string(ablation.Continuous), "Emission mode: continuous or pulsed")
	maxTicks := flag.Int("max-ticks", 3000, "Upper bound on ablation ticks")
	realtime := flag.Bool("realtime", false, "Run the ablation loop on its wall-clock timer")
	horizon := flag.Float64("horizon", 24, "Growth projection horizon")
	unit := flag.String("unit", string(models.Hours), "Growth time unit: hours or days")
	diffusion := flag.Float64("d", 0.8, "Growth diffusion coefficient")
	rho := flag.Float64("rho", 0.5, "Growth proliferation rate")
	beta := flag.Float64("beta", 0.1, "Treatment-induced death rate")
	playback := flag.Bool("playback", false, "Replay growth frames at the configured interval")
	flag.Parse()

	if *initConfig {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Default configuration written to %s\n", *configPath)
		return
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	log.Init(cfg.Output.LogLevel)

	if *outputDir != "" {
		cfg.Output.Directory = *outputDir
	}
	if *wavelength > 0 {
		cfg.Thermal.DefaultWavelengthNM = *wavelength
	}
	if *depth >= 0 {
		cfg.Thermal.DefaultDepthMM = *depth
	}

	opts := runOptions{
		Input:     *input,
		ModelPath: *modelPath,
		Mode:      ablation.Mode(*mode),
		MaxTicks:  *maxTicks,
		Realtime:  *realtime,
		Growth: growthFlags{
			D:       *diffusion,
			Rho:     *rho,
			Beta:    *beta,
			Unit:    models.TimeUnit(*unit),
			Horizon: *horizon,
		},
		Playback: *playback,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Println("================================")
	fmt.Println("ONCOSIM: TUMOR SEGMENTATION, LASER ABLATION AND GROWTH SIMULATION")
	fmt.Println("================================")

	start := time.Now()
	summary, err := run(ctx, cfg, opts)
	if errors.Is(err, errNoTumor) {
		fmt.Printf("\nNo tumor detected: %s\n", summary.Reason)
		os.Exit(2)
	}
	if err != nil {
		log.Error("pipeline failed", "error", err)
		os.Exit(1)
	}

	summary.Print(os.Stdout)
	fmt.Printf("\nCompleted in %.2f seconds. Outputs in %s\n", time.Since(start).Seconds(), cfg.Output.Directory)
}
