// Package photometry provides the photometric lookup service the
// exposure-time model depends on: sky-background surface brightness for a
// filter under given atmospheric conditions, and photon fluxes for sources
// of known brightness. Any implementation of Service — the bundled local
// tables, a remote calculator, or a cache in front of either — is
// interchangeable from the model's point of view.
package photometry

import (
	"context"
	"errors"

	"github.com/signalsfoundry/hawki-etc/model"
)

var (
	// ErrService is a package-level sentinel wrapping any failure of a
	// photometric lookup. Callers match it with errors.Is.
	ErrService = errors.New("photometry lookup failed")
	// ErrUnknownFilter indicates the requested filter is not covered by the
	// service's tables.
	ErrUnknownFilter = errors.New("unknown filter")
	// ErrUnsupported indicates the instrument/observatory pair is not one the
	// service is calibrated for.
	ErrUnsupported = errors.New("unsupported instrument/observatory")
)

// Service is the full photometric surface the exposure-time model depends on.
//
// All rates are photon rates: SkyBackground returns
// photons·s⁻¹·m⁻²·arcsec⁻², the two flux lookups return photons·s⁻¹·m⁻².
// Implementations are pure functions of their inputs; repeated calls with
// identical arguments return identical results, which is what makes the
// memoizing decorator in this package transparent.
type Service interface {
	// SkyBackground returns the sky surface brightness seen through filter f
	// at the given airmass and precipitable water vapor (millimetres).
	SkyBackground(ctx context.Context, f model.Filter, airmass, pwv float64) (float64, error)

	// SourcePhotonFlux returns the photon flux of a point source of the given
	// brightness (Vega magnitudes) through filter f.
	SourcePhotonFlux(ctx context.Context, f model.Filter, magnitude float64, inst model.Instrument, obs model.Observatory) (float64, error)

	// ZeroPointFlux returns the photon flux corresponding to magnitude 0 in
	// filter f for the given instrument and observatory.
	ZeroPointFlux(ctx context.Context, f model.Filter, inst model.Instrument, obs model.Observatory) (float64, error)
}

// LookupRecorder receives one event per photometric lookup. The observability
// collector implements it; a nil recorder disables recording.
type LookupRecorder interface {
	RecordLookup(kind string, filter model.Filter, outcome string)
}

// Lookup kinds reported to a LookupRecorder.
const (
	LookupSky       = "sky_background"
	LookupFlux      = "source_flux"
	LookupZeroPoint = "zero_point"
)
