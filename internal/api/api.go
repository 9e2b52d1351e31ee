// Package api exposes the exposure-time calculator over HTTP. The router is
// plain chi; computation happens in core, photometric data comes from the
// photometry service the API was built with.
package api

import (
	"net/http"
	"time"

	chiprometheus "github.com/766b/chi-prometheus"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/signalsfoundry/hawki-etc/core"
	"github.com/signalsfoundry/hawki-etc/internal/logging"
	"github.com/signalsfoundry/hawki-etc/internal/observability"
	"github.com/signalsfoundry/hawki-etc/photometry"
)

// Config assembles the collaborators of the API.
type Config struct {
	Photometry photometry.Service
	Profile    core.InstrumentProfile
	// Defaults fills in any observing condition a request leaves unset.
	Defaults core.ExposureConfig
	Logger   logging.Logger
	// Collector is optional; without it domain metrics are not recorded.
	Collector *observability.ETCCollector
	// HTTPMetrics wires the chi-prometheus request middleware into the
	// router. It registers against the global Prometheus registry, so it is
	// opt-in: the server enables it, tests leave it off.
	HTTPMetrics bool
}

// API is the HTTP surface of the calculator.
type API struct {
	phot        photometry.Service
	profile     core.InstrumentProfile
	defaults    core.ExposureConfig
	log         logging.Logger
	collector   *observability.ETCCollector
	httpMetrics bool
}

// New constructs the API. The photometry service is the only mandatory
// collaborator.
func New(cfg Config) (*API, error) {
	if cfg.Photometry == nil {
		return nil, core.ErrInvalidConfig
	}
	log := cfg.Logger
	if log == nil {
		log = logging.Noop()
	}
	defaults := cfg.Defaults
	if defaults.ExposureTimeS == 0 && defaults.SeeingArcsec == 0 {
		defaults = core.DefaultExposureConfig()
	}
	profile := cfg.Profile
	if profile.TelescopeRadiusM == 0 {
		profile = core.HAWKIProfile()
	}
	return &API{
		phot:        cfg.Photometry,
		profile:     profile,
		defaults:    defaults,
		log:         log,
		collector:   cfg.Collector,
		httpMetrics: cfg.HTTPMetrics,
	}, nil
}

// Router builds the chi router with the full middleware stack and routes.
func (a *API) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", requestIDHeaderKey},
		MaxAge:         300,
	}).Handler)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	if a.httpMetrics {
		r.Use(chiprometheus.NewMiddleware("etc"))
	}
	r.Use(RequestIDMiddleware(a.log))
	r.Use(TracingMiddleware())

	r.Get("/healthz", a.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/filters", a.handleFilters)
		r.Post("/snr", a.handleSNR)
		r.Post("/limiting-magnitude", a.handleLimitingMagnitude)
		r.Post("/snr-curve", a.handleSNRCurve)
	})

	return r
}
