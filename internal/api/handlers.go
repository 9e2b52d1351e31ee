package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/signalsfoundry/hawki-etc/core"
	"github.com/signalsfoundry/hawki-etc/internal/logging"
	"github.com/signalsfoundry/hawki-etc/model"
)

// Conditions carries the per-request observing condition overrides. Unset
// fields fall back to the server's defaults.
type Conditions struct {
	ExposureTimeS     *float64 `json:"exposure_time_s,omitempty"`
	Airmass           *float64 `json:"airmass,omitempty"`
	PWVmm             *float64 `json:"pwv_mm,omitempty"`
	SeeingArcsec      *float64 `json:"seeing_arcsec,omitempty"`
	ObstructionFactor *float64 `json:"obstruction_factor,omitempty"`
	ReflectanceFactor *float64 `json:"reflectance_factor,omitempty"`
}

// ResolvedConditions echoes the configuration a computation actually used.
type ResolvedConditions struct {
	ExposureTimeS     float64 `json:"exposure_time_s"`
	Airmass           float64 `json:"airmass"`
	PWVmm             float64 `json:"pwv_mm"`
	SeeingArcsec      float64 `json:"seeing_arcsec"`
	ObstructionFactor float64 `json:"obstruction_factor"`
	ReflectanceFactor float64 `json:"reflectance_factor"`
}

type snrRequest struct {
	Filter     string      `json:"filter"`
	Magnitude  *float64    `json:"magnitude"`
	Conditions *Conditions `json:"conditions,omitempty"`
}

type snrResponse struct {
	Filter            model.Filter       `json:"filter"`
	Magnitude         float64            `json:"magnitude"`
	SNR               float64            `json:"snr"`
	SignalElectrons   float64            `json:"signal_electrons"`
	SkyElectrons      float64            `json:"sky_electrons"`
	DarkElectrons     float64            `json:"dark_electrons"`
	ReadNoiseVariance float64            `json:"read_noise_variance_e2"`
	Conditions        ResolvedConditions `json:"conditions"`
}

type limitingMagnitudeRequest struct {
	Filter     string      `json:"filter"`
	TargetSNR  *float64    `json:"target_snr,omitempty"`
	Conditions *Conditions `json:"conditions,omitempty"`
}

type limitingMagnitudeResponse struct {
	Filter     model.Filter       `json:"filter"`
	TargetSNR  float64            `json:"target_snr"`
	Magnitude  float64            `json:"magnitude"`
	Conditions ResolvedConditions `json:"conditions"`
}

type snrCurveRequest struct {
	Filter     string      `json:"filter"`
	Brightest  *float64    `json:"brightest,omitempty"`
	Faintest   *float64    `json:"faintest,omitempty"`
	Step       *float64    `json:"step,omitempty"`
	Conditions *Conditions `json:"conditions,omitempty"`
}

type snrCurveResponse struct {
	Filter     model.Filter       `json:"filter"`
	Points     []core.CurvePoint  `json:"points"`
	Conditions ResolvedConditions `json:"conditions"`
}

type filterInfo struct {
	Name          model.Filter `json:"name"`
	ZeroPointFlux float64      `json:"zero_point_flux_photons_s_m2"`
}

// Default sweep range, matching the published SNR curve: 8th to 26th
// magnitude in 0.1 mag steps.
const (
	defaultCurveBrightest = 8.0
	defaultCurveFaintest  = 26.0
	defaultCurveStep      = 0.1
	defaultTargetSNR      = 5.0
)

func (a *API) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) handleFilters(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	infos := make([]filterInfo, 0, len(model.Filters()))
	for _, f := range model.Filters() {
		zp, err := a.phot.ZeroPointFlux(ctx, f, a.profile.Instrument, a.profile.Observatory)
		if err != nil {
			a.writeError(w, r, err)
			return
		}
		infos = append(infos, filterInfo{Name: f, ZeroPointFlux: zp})
	}
	writeJSON(w, http.StatusOK, infos)
}

func (a *API) handleSNR(w http.ResponseWriter, r *http.Request) {
	var req snrRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	if req.Magnitude == nil {
		a.writeError(w, r, fmt.Errorf("%w: magnitude is required", ErrInvalidRequest))
		return
	}

	f, m, err := a.buildModel(req.Filter, req.Conditions)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	ctx := r.Context()
	snr, err := m.ComputeSN(ctx, *req.Magnitude, f)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	// The breakdown repeats the lookups the SNR already performed; the
	// memoizing service makes that free.
	sky, err := m.SkyNoise(ctx, f)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	photons, err := a.phot.SourcePhotonFlux(ctx, f, *req.Magnitude, a.profile.Instrument, a.profile.Observatory)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	a.recordComputation("snr", f)
	writeJSON(w, http.StatusOK, snrResponse{
		Filter:            f,
		Magnitude:         *req.Magnitude,
		SNR:               snr,
		SignalElectrons:   photons * m.CollectionAreaM2() * m.Profile().QuantumEfficiency * m.Config().ExposureTimeS,
		SkyElectrons:      sky,
		DarkElectrons:     m.DarkCurrentNoise(),
		ReadNoiseVariance: m.ReadNoise(),
		Conditions:        resolved(m.Config()),
	})
}

func (a *API) handleLimitingMagnitude(w http.ResponseWriter, r *http.Request) {
	var req limitingMagnitudeRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	target := defaultTargetSNR
	if req.TargetSNR != nil {
		target = *req.TargetSNR
	}

	f, m, err := a.buildModel(req.Filter, req.Conditions)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	mag, err := m.DetectableStarBrightness(r.Context(), target, f)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	a.recordComputation("limiting_magnitude", f)
	writeJSON(w, http.StatusOK, limitingMagnitudeResponse{
		Filter:     f,
		TargetSNR:  target,
		Magnitude:  mag,
		Conditions: resolved(m.Config()),
	})
}

func (a *API) handleSNRCurve(w http.ResponseWriter, r *http.Request) {
	var req snrCurveRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	brightest, faintest, step := defaultCurveBrightest, defaultCurveFaintest, defaultCurveStep
	if req.Brightest != nil {
		brightest = *req.Brightest
	}
	if req.Faintest != nil {
		faintest = *req.Faintest
	}
	if req.Step != nil {
		step = *req.Step
	}

	f, m, err := a.buildModel(req.Filter, req.Conditions)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	points, err := m.SweepSN(r.Context(), f, brightest, faintest, step)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	a.recordComputation("snr_curve", f)
	writeJSON(w, http.StatusOK, snrCurveResponse{
		Filter:     f,
		Points:     points,
		Conditions: resolved(m.Config()),
	})
}

// buildModel resolves the filter and merges request overrides over the
// server defaults into a ready exposure model.
func (a *API) buildModel(filter string, overrides *Conditions) (model.Filter, *core.ExposureModel, error) {
	f, err := model.ParseFilter(filter)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	cfg := a.defaults
	if overrides != nil {
		if overrides.ExposureTimeS != nil {
			cfg.ExposureTimeS = *overrides.ExposureTimeS
		}
		if overrides.Airmass != nil {
			cfg.Airmass = *overrides.Airmass
		}
		if overrides.PWVmm != nil {
			cfg.PWVmm = *overrides.PWVmm
		}
		if overrides.SeeingArcsec != nil {
			cfg.SeeingArcsec = *overrides.SeeingArcsec
		}
		if overrides.ObstructionFactor != nil {
			cfg.ObstructionFactor = *overrides.ObstructionFactor
		}
		if overrides.ReflectanceFactor != nil {
			cfg.ReflectanceFactor = *overrides.ReflectanceFactor
		}
	}

	m, err := core.NewExposureModel(cfg, a.profile, a.phot)
	if err != nil {
		return "", nil, err
	}
	return f, m, nil
}

func (a *API) recordComputation(operation string, f model.Filter) {
	if a.collector != nil {
		a.collector.RecordComputation(operation, f)
	}
}

func (a *API) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusForError(err)

	log := logging.LoggerFromContext(r.Context())
	if log == nil {
		log = a.log
	}
	if status >= http.StatusInternalServerError {
		log.Error(r.Context(), "request failed",
			logging.Int("status", status),
			logging.String("error", err.Error()),
		)
	} else {
		log.Debug(r.Context(), "request rejected",
			logging.Int("status", status),
			logging.String("error", err.Error()),
		)
	}

	writeJSON(w, status, errorBody{Error: err.Error()})
}

func resolved(cfg core.ExposureConfig) ResolvedConditions {
	return ResolvedConditions{
		ExposureTimeS:     cfg.ExposureTimeS,
		Airmass:           cfg.Airmass,
		PWVmm:             cfg.PWVmm,
		SeeingArcsec:      cfg.SeeingArcsec,
		ObstructionFactor: cfg.ObstructionFactor,
		ReflectanceFactor: cfg.ReflectanceFactor,
	}
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
