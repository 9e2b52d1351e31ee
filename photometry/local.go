package photometry

import (
	"context"
	"fmt"
	"math"

	"github.com/signalsfoundry/hawki-etc/internal/logging"
	"github.com/signalsfoundry/hawki-etc/model"
)

// filterTable holds the per-filter calibration the local service is built on.
// Zero points are Vega photon fluxes integrated over the HAWKI passband.
// Sky backgrounds are parameterised as a base rate at airmass 1 and the
// reference water-vapor column, scaled linearly with airmass (the emitting
// column grows with the slant path) and with a per-filter pwv sensitivity.
type filterTable struct {
	// ZeroPointFlux is the magnitude-0 photon flux, photons·s⁻¹·m⁻².
	ZeroPointFlux float64
	// SkyBase is the sky surface brightness at airmass 1 and reference pwv,
	// photons·s⁻¹·m⁻²·arcsec⁻².
	SkyBase float64
	// PWVCoeff is the fractional sky-brightness change per millimetre of
	// water vapor away from the reference column.
	PWVCoeff float64
}

// Reference water-vapor column for the sky tables, millimetres.
const referencePWVmm = 2.0

// Calibrated validity ranges. Lookups outside these still return a value,
// but the service emits a warning about the extrapolation.
const (
	minCalibratedAirmass = 1.0
	maxCalibratedAirmass = 3.0
	minCalibratedPWVmm   = 0.5
	maxCalibratedPWVmm   = 20.0
)

// hawkiParanalTables is the bundled calibration for HAWKI at Paranal.
// J and H sky levels follow the Paranal broadband sky brightness; Ks is
// dominated by thermal emission between the OH lines.
var hawkiParanalTables = map[model.Filter]filterTable{
	model.FilterJ:  {ZeroPointFlux: 3.05e9, SkyBase: 760, PWVCoeff: 0.045},
	model.FilterH:  {ZeroPointFlux: 2.55e9, SkyBase: 2200, PWVCoeff: 0.025},
	model.FilterKs: {ZeroPointFlux: 1.52e9, SkyBase: 688, PWVCoeff: 0.010},
}

// LocalService is a table-backed Service for HAWKI at Paranal. It is
// stateless and safe for concurrent use.
//
// Diagnostics (extrapolation warnings and the like) are written to the
// logger found on the call context if one is attached, otherwise to the
// logger the service was constructed with. Callers that must not see
// diagnostic output attach a Noop logger for the duration of a call.
type LocalService struct {
	log      logging.Logger
	tables   map[model.Filter]filterTable
	recorder LookupRecorder
}

// LocalOption customises a LocalService.
type LocalOption func(*LocalService)

// WithLookupRecorder wires a metrics recorder into the service.
func WithLookupRecorder(r LookupRecorder) LocalOption {
	return func(s *LocalService) { s.recorder = r }
}

// NewLocalService constructs the bundled HAWKI/Paranal service. A nil logger
// is replaced with a Noop logger.
func NewLocalService(log logging.Logger, opts ...LocalOption) *LocalService {
	if log == nil {
		log = logging.Noop()
	}
	s := &LocalService{
		log:    log,
		tables: hawkiParanalTables,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SkyBackground returns the sky surface brightness through f at the given
// airmass and water-vapor column, photons·s⁻¹·m⁻²·arcsec⁻².
func (s *LocalService) SkyBackground(ctx context.Context, f model.Filter, airmass, pwv float64) (float64, error) {
	tbl, err := s.table(f)
	if err != nil {
		s.record(LookupSky, f, "error")
		return 0, err
	}

	log := s.diagnostics(ctx)
	if airmass < minCalibratedAirmass || airmass > maxCalibratedAirmass {
		log.Warn(ctx, "airmass outside calibrated sky table range, extrapolating",
			logging.String("filter", string(f)),
			logging.Float64("airmass", airmass),
		)
	}
	if pwv < minCalibratedPWVmm || pwv > maxCalibratedPWVmm {
		log.Warn(ctx, "water vapor outside calibrated sky table range, extrapolating",
			logging.String("filter", string(f)),
			logging.Float64("pwv_mm", pwv),
		)
	}

	// Emission scales with the slant column; the pwv term is a linear
	// sensitivity around the reference column, floored so an unphysically
	// dry input cannot drive the rate negative.
	pwvFactor := 1 + tbl.PWVCoeff*(pwv-referencePWVmm)
	if pwvFactor < 0.05 {
		pwvFactor = 0.05
	}
	rate := tbl.SkyBase * airmass * pwvFactor

	s.record(LookupSky, f, "ok")
	return rate, nil
}

// SourcePhotonFlux converts a Vega magnitude into a photon flux through f,
// photons·s⁻¹·m⁻².
func (s *LocalService) SourcePhotonFlux(ctx context.Context, f model.Filter, magnitude float64, inst model.Instrument, obs model.Observatory) (float64, error) {
	zp, err := s.ZeroPointFlux(ctx, f, inst, obs)
	if err != nil {
		s.record(LookupFlux, f, "error")
		return 0, err
	}
	s.record(LookupFlux, f, "ok")
	return zp * math.Pow(10, -magnitude/2.5), nil
}

// ZeroPointFlux returns the magnitude-0 photon flux for f,
// photons·s⁻¹·m⁻².
func (s *LocalService) ZeroPointFlux(_ context.Context, f model.Filter, inst model.Instrument, obs model.Observatory) (float64, error) {
	if inst != model.InstrumentHAWKI || obs != model.ObservatoryParanal {
		s.record(LookupZeroPoint, f, "error")
		return 0, fmt.Errorf("%w: %w: %s/%s", ErrService, ErrUnsupported, inst, obs)
	}
	tbl, err := s.table(f)
	if err != nil {
		s.record(LookupZeroPoint, f, "error")
		return 0, err
	}
	s.record(LookupZeroPoint, f, "ok")
	return tbl.ZeroPointFlux, nil
}

func (s *LocalService) table(f model.Filter) (filterTable, error) {
	tbl, ok := s.tables[f]
	if !ok {
		return filterTable{}, fmt.Errorf("%w: %w: %q", ErrService, ErrUnknownFilter, f)
	}
	return tbl, nil
}

// diagnostics picks the logger for cosmetic warnings: a context-scoped
// logger wins over the service's own.
func (s *LocalService) diagnostics(ctx context.Context) logging.Logger {
	if l := logging.LoggerFromContext(ctx); l != nil {
		return l
	}
	return s.log
}

func (s *LocalService) record(kind string, f model.Filter, outcome string) {
	if s.recorder != nil {
		s.recorder.RecordLookup(kind, f, outcome)
	}
}
