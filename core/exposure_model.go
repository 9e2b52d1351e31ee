package core

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/signalsfoundry/hawki-etc/internal/logging"
	"github.com/signalsfoundry/hawki-etc/model"
	"github.com/signalsfoundry/hawki-etc/photometry"
)

var (
	// ErrDomain indicates a value outside the mathematically valid domain of
	// a formula, e.g. a non-positive argument reaching a logarithm.
	ErrDomain = errors.New("value outside valid domain")
	// ErrDegenerateNoise indicates the total noise variance came out zero or
	// negative, so no finite SNR exists. This only happens for degenerate
	// configurations (zero exposure time or zero aperture).
	ErrDegenerateNoise = errors.New("degenerate noise variance")
	// ErrInvalidConfig indicates an observing configuration that the model
	// rejects at construction time.
	ErrInvalidConfig = errors.New("invalid exposure configuration")
)

// ExposureConfig describes one observation. It is read once at model
// construction; changing conditions means building a new model.
type ExposureConfig struct {
	// ExposureTimeS is the integration time in seconds. Must be positive.
	ExposureTimeS float64
	// Airmass is the atmospheric slant path, 1 at zenith.
	Airmass float64
	// PWVmm is the precipitable water vapor column in millimetres.
	PWVmm float64
	// SeeingArcsec is the seeing disc diameter in arcseconds. Must be
	// positive; it defines the photometric aperture.
	SeeingArcsec float64
	// ObstructionFactor and ReflectanceFactor are throughput multipliers on
	// the collecting area. Zero values default to 1.
	ObstructionFactor float64
	ReflectanceFactor float64
}

// DefaultExposureConfig returns the reference observation used throughout
// the documentation: a one-hour integration at airmass 2 with 5 mm of water
// vapor and 0.8" seeing.
func DefaultExposureConfig() ExposureConfig {
	return ExposureConfig{
		ExposureTimeS: 3600,
		Airmass:       2.0,
		PWVmm:         5.0,
		SeeingArcsec:  0.8,
	}
}

// ExposureModel computes point-source signal-to-noise ratios for one
// instrument under one set of observing conditions. All derived constants
// are fixed at construction; every method is a read-only query, so a model
// is safe for concurrent use.
type ExposureModel struct {
	cfg     ExposureConfig
	profile InstrumentProfile
	phot    photometry.Service

	// Derived once from cfg and profile.
	collectionAreaM2 float64 // telescope area x throughput, m²
	apertureArcsec2  float64 // photometric aperture π·seeing², arcsec²
	pixelsInAperture float64 // aperture expressed as a pixel count
}

// NewExposureModel validates cfg and precomputes the derived constants.
func NewExposureModel(cfg ExposureConfig, profile InstrumentProfile, phot photometry.Service) (*ExposureModel, error) {
	if phot == nil {
		return nil, fmt.Errorf("%w: photometry service is required", ErrInvalidConfig)
	}
	if cfg.ExposureTimeS <= 0 {
		return nil, fmt.Errorf("%w: exposure time must be positive, got %g", ErrInvalidConfig, cfg.ExposureTimeS)
	}
	if cfg.SeeingArcsec <= 0 {
		return nil, fmt.Errorf("%w: seeing must be positive, got %g", ErrInvalidConfig, cfg.SeeingArcsec)
	}
	if cfg.ObstructionFactor == 0 {
		cfg.ObstructionFactor = 1
	}
	if cfg.ReflectanceFactor == 0 {
		cfg.ReflectanceFactor = 1
	}

	efficiency := cfg.ObstructionFactor * cfg.ReflectanceFactor
	aperture := math.Pi * cfg.SeeingArcsec * cfg.SeeingArcsec

	return &ExposureModel{
		cfg:              cfg,
		profile:          profile,
		phot:             phot,
		collectionAreaM2: profile.TelescopeArea() * efficiency,
		apertureArcsec2:  aperture,
		pixelsInAperture: aperture / (profile.PixelScaleArcsec * profile.PixelScaleArcsec),
	}, nil
}

// Config returns the configuration the model was built with (with defaulted
// throughput factors filled in).
func (m *ExposureModel) Config() ExposureConfig { return m.cfg }

// Profile returns the instrument profile the model was built with.
func (m *ExposureModel) Profile() InstrumentProfile { return m.profile }

// CollectionAreaM2 returns the throughput-scaled collecting area, m².
func (m *ExposureModel) CollectionAreaM2() float64 { return m.collectionAreaM2 }

// PhotometricApertureArcsec2 returns the on-sky integration aperture,
// arcsec².
func (m *ExposureModel) PhotometricApertureArcsec2() float64 { return m.apertureArcsec2 }

// electronsPerUnitFlux is the factor converting a photon flux
// (photons·s⁻¹·m⁻²) into accumulated electrons over the exposure.
func (m *ExposureModel) electronsPerUnitFlux() float64 {
	return m.collectionAreaM2 * m.profile.QuantumEfficiency * m.cfg.ExposureTimeS
}

// SkyNoise returns the sky electrons accumulated in the photometric
// aperture over the exposure.
//
// The sky-background lookup is known to emit cosmetic diagnostics (table
// extrapolation warnings); those are silenced for the duration of this call
// by scoping a no-op logger onto the context. Errors from the lookup still
// propagate.
func (m *ExposureModel) SkyNoise(ctx context.Context, f model.Filter) (float64, error) {
	quiet := logging.ContextWithLogger(ctx, logging.Noop())

	sky, err := m.phot.SkyBackground(quiet, f, m.cfg.Airmass, m.cfg.PWVmm)
	if err != nil {
		return 0, err
	}

	return sky * m.electronsPerUnitFlux() * m.apertureArcsec2, nil
}

// DarkCurrentNoise returns the dark-current electrons accumulated across
// the aperture's pixels over the exposure. Pure; no external lookup.
func (m *ExposureModel) DarkCurrentNoise() float64 {
	return m.profile.DarkCurrentRate * m.pixelsInAperture * m.cfg.ExposureTimeS
}

// ReadNoise returns the readout-noise VARIANCE across the aperture's
// pixels, in electrons². Read noise combines in quadrature per pixel, so
// unlike the other two terms this is already a variance, not an electron
// count.
func (m *ExposureModel) ReadNoise() float64 {
	rn := m.profile.ReadNoisePerPixel
	return rn * rn * m.pixelsInAperture
}

// noiseFloorVariance is the source-independent variance: sky and dark
// contribute their electron counts as Poisson variances, read noise is a
// variance already.
func (m *ExposureModel) noiseFloorVariance(ctx context.Context, f model.Filter) (float64, error) {
	sky, err := m.SkyNoise(ctx, f)
	if err != nil {
		return 0, err
	}
	return sky + m.DarkCurrentNoise() + m.ReadNoise(), nil
}

// ComputeSN returns the signal-to-noise ratio for a point source of the
// given brightness (Vega magnitudes) through filter f.
//
// The total variance is the Poisson approximation: signal and sky each
// contribute their electron count, dark current its electron count, read
// noise its per-pixel variance summed over the aperture. A zero or negative
// total variance fails with ErrDegenerateNoise rather than dividing by
// zero.
func (m *ExposureModel) ComputeSN(ctx context.Context, magnitude float64, f model.Filter) (float64, error) {
	photons, err := m.phot.SourcePhotonFlux(ctx, f, magnitude, m.profile.Instrument, m.profile.Observatory)
	if err != nil {
		return 0, err
	}
	signal := photons * m.electronsPerUnitFlux()

	floor, err := m.noiseFloorVariance(ctx, f)
	if err != nil {
		return 0, err
	}

	variance := signal + floor
	if variance <= 0 {
		return 0, fmt.Errorf("%w: total variance %g e-² for %g mag in %s", ErrDegenerateNoise, variance, magnitude, f)
	}

	return signal / math.Sqrt(variance), nil
}

// FluxToMag converts an electron flux into a magnitude via the Pogson law,
// using a zero point given as a photon flux. The zero point goes through
// the same area x QE x time product as the signal in ComputeSN, so the two
// directions are mutually consistent.
func (m *ExposureModel) FluxToMag(fluxElectrons, zeroPointPhotonFlux float64) (float64, error) {
	zpElectrons := zeroPointPhotonFlux * m.electronsPerUnitFlux()
	if zpElectrons <= 0 || fluxElectrons <= 0 {
		return 0, fmt.Errorf("%w: flux ratio %g/%g is not positive", ErrDomain, fluxElectrons, zpElectrons)
	}
	return -2.5 * math.Log10(fluxElectrons/zpElectrons), nil
}

// DetectableStarBrightness returns the faintest point-source brightness
// (Vega magnitudes) reaching the target SNR through filter f.
//
// The noise floor deliberately excludes the threshold source's own shot
// noise: at the detection limit the source is assumed faint against
// sky+dark+read. This keeps the solve closed-form instead of iterative and
// makes the returned limit very slightly optimistic.
func (m *ExposureModel) DetectableStarBrightness(ctx context.Context, targetSN float64, f model.Filter) (float64, error) {
	if targetSN <= 0 {
		return 0, fmt.Errorf("%w: target SNR must be positive, got %g", ErrDomain, targetSN)
	}

	floor, err := m.noiseFloorVariance(ctx, f)
	if err != nil {
		return 0, err
	}
	if floor <= 0 {
		return 0, fmt.Errorf("%w: noise floor variance %g e-² in %s", ErrDegenerateNoise, floor, f)
	}

	requiredElectrons := targetSN * math.Sqrt(floor)

	zp, err := m.phot.ZeroPointFlux(ctx, f, m.profile.Instrument, m.profile.Observatory)
	if err != nil {
		return 0, err
	}

	return m.FluxToMag(requiredElectrons, zp)
}
