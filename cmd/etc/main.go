// Command etc is the one-shot calculator: compute the SNR of a source, the
// limiting magnitude at a target SNR, or sweep the full SNR curve and
// optionally render it to a PNG.
package main

import (
	"context"
	"errors"
	"fmt"
	"image/png"
	"io"
	"os"
	"strings"

	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/signalsfoundry/hawki-etc/core"
	"github.com/signalsfoundry/hawki-etc/internal/logging"
	"github.com/signalsfoundry/hawki-etc/internal/plot"
	"github.com/signalsfoundry/hawki-etc/model"
	"github.com/signalsfoundry/hawki-etc/photometry"
)

// ErrInvalidFilename flags an unusable output filename. It is raised before
// any rendering or file I/O happens.
var ErrInvalidFilename = errors.New("invalid output filename")

// cliConfig is the resolved command configuration.
type cliConfig struct {
	Filter string

	// Magnitude selects the forward SNR computation when set.
	Magnitude    float64
	MagnitudeSet bool

	// Curve selects the sweep; Save renders it to OutFile.
	Curve     bool
	Brightest float64
	Faintest  float64
	Step      float64
	Save      bool
	OutFile   string

	// TargetSNR drives the default limiting-magnitude computation and the
	// threshold line on a saved curve.
	TargetSNR float64

	Exposure core.ExposureConfig
}

func main() {
	flag.String("filter", "Ks", "filter name (J, H, Ks)")
	flag.Float64("magnitude", 0, "source brightness in Vega magnitudes; computes the SNR")
	flag.Bool("curve", false, "sweep the SNR curve instead of a single computation")
	flag.Float64("brightest", 8, "bright end of the curve sweep, magnitudes")
	flag.Float64("faintest", 26, "faint end of the curve sweep, magnitudes")
	flag.Float64("step", 0.1, "curve sweep step, magnitudes")
	flag.Bool("save", false, "save the curve as a PNG instead of printing it")
	flag.String("out", "etc.png", "output filename for --save")
	flag.Float64("target-snr", 5, "target SNR for the limiting-magnitude solve")
	flag.Float64("exposure-time", 3600, "exposure time, seconds")
	flag.Float64("airmass", 2.0, "airmass")
	flag.Float64("pwv", 5.0, "precipitable water vapor, mm")
	flag.Float64("seeing", 0.8, "seeing, arcsec")
	flag.Float64("obstruction", 1, "obstruction throughput factor")
	flag.Float64("reflectance", 1, "reflectance throughput factor")
	flag.Parse()

	viper.SetEnvPrefix("ETC")
	if err := viper.BindPFlags(flag.CommandLine); err != nil {
		panic(err)
	}
	viper.AutomaticEnv()

	cfg := cliConfig{
		Filter:       viper.GetString("filter"),
		Magnitude:    viper.GetFloat64("magnitude"),
		MagnitudeSet: flag.CommandLine.Changed("magnitude"),
		Curve:        viper.GetBool("curve"),
		Brightest:    viper.GetFloat64("brightest"),
		Faintest:     viper.GetFloat64("faintest"),
		Step:         viper.GetFloat64("step"),
		Save:         viper.GetBool("save"),
		OutFile:      viper.GetString("out"),
		TargetSNR:    viper.GetFloat64("target-snr"),
		Exposure: core.ExposureConfig{
			ExposureTimeS:     viper.GetFloat64("exposure-time"),
			Airmass:           viper.GetFloat64("airmass"),
			PWVmm:             viper.GetFloat64("pwv"),
			SeeingArcsec:      viper.GetFloat64("seeing"),
			ObstructionFactor: viper.GetFloat64("obstruction"),
			ReflectanceFactor: viper.GetFloat64("reflectance"),
		},
	}

	log := logging.NewFromEnv()
	if err := run(context.Background(), cfg, os.Stdout, log); err != nil {
		fmt.Fprintf(os.Stderr, "etc: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg cliConfig, out io.Writer, log logging.Logger) error {
	f, err := model.ParseFilter(cfg.Filter)
	if err != nil {
		return err
	}

	// Validate the output filename before doing any work: a long sweep
	// should not be thrown away over a bad --out.
	if cfg.Save {
		if err := validateOutputFilename(cfg.OutFile); err != nil {
			return err
		}
	}

	m, err := core.NewExposureModel(cfg.Exposure, core.HAWKIProfile(), photometry.NewCached(photometry.NewLocalService(log), nil))
	if err != nil {
		return err
	}

	switch {
	case cfg.Curve:
		return runCurve(ctx, cfg, m, f, out)

	case cfg.MagnitudeSet:
		snr, err := m.ComputeSN(ctx, cfg.Magnitude, f)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "SNR of a %.2f mag source in %s: %.3f\n", cfg.Magnitude, f, snr)
		return nil

	default:
		mag, err := m.DetectableStarBrightness(ctx, cfg.TargetSNR, f)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Detectable star brightness at SNR %.1f in %s: %.3f mag\n", cfg.TargetSNR, f, mag)
		return nil
	}
}

func runCurve(ctx context.Context, cfg cliConfig, m *core.ExposureModel, f model.Filter, out io.Writer) error {
	points, err := m.SweepSN(ctx, f, cfg.Brightest, cfg.Faintest, cfg.Step)
	if err != nil {
		return err
	}

	if !cfg.Save {
		fmt.Fprintln(out, "magnitude,snr")
		for _, p := range points {
			fmt.Fprintf(out, "%.2f,%.6g\n", p.Magnitude, p.SNR)
		}
		return nil
	}

	img, err := plot.RenderCurve(points, plot.Options{
		Threshold: cfg.TargetSNR,
		Title:     fmt.Sprintf("SNR vs. brightness (%s, %.0fs)", f, cfg.Exposure.ExposureTimeS),
	})
	if err != nil {
		return err
	}

	file, err := os.Create(cfg.OutFile)
	if err != nil {
		return fmt.Errorf("create %s: %w", cfg.OutFile, err)
	}
	defer file.Close()
	if err := png.Encode(file, img); err != nil {
		return fmt.Errorf("encode %s: %w", cfg.OutFile, err)
	}

	fmt.Fprintf(out, "wrote %d curve points to %s\n", len(points), cfg.OutFile)
	return nil
}

// validateOutputFilename rejects names that cannot hold a PNG before any
// I/O is attempted.
func validateOutputFilename(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return fmt.Errorf("%w: filename is empty", ErrInvalidFilename)
	}
	if strings.HasSuffix(trimmed, "/") {
		return fmt.Errorf("%w: %q is a directory path", ErrInvalidFilename, name)
	}
	if !strings.HasSuffix(strings.ToLower(trimmed), ".png") {
		return fmt.Errorf("%w: %q must end in .png", ErrInvalidFilename, name)
	}
	return nil
}
