package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/signalsfoundry/hawki-etc/core"
	"github.com/signalsfoundry/hawki-etc/internal/api"
	"github.com/signalsfoundry/hawki-etc/internal/logging"
	"github.com/signalsfoundry/hawki-etc/internal/observability"
	"github.com/signalsfoundry/hawki-etc/photometry"
)

func main() {
	flag.String("host", "0.0.0.0", "host the API listens on")
	flag.Int("port", 8080, "port the API listens on")
	flag.String("metrics-addr", ":9090", "HTTP address for Prometheus /metrics")
	flag.Float64("exposure-time", 3600, "default exposure time, seconds")
	flag.Float64("airmass", 2.0, "default airmass")
	flag.Float64("pwv", 5.0, "default precipitable water vapor, mm")
	flag.Float64("seeing", 0.8, "default seeing, arcsec")
	flag.Parse()

	viper.SetEnvPrefix("ETC")
	if err := viper.BindPFlags(flag.CommandLine); err != nil {
		panic(err)
	}
	viper.AutomaticEnv()

	log := logging.NewFromEnv()
	ctx := context.Background()

	collector, err := observability.NewETCCollector(nil)
	if err != nil {
		log.Error(ctx, "failed to initialise metrics collector", logging.String("error", err.Error()))
		os.Exit(1)
	}

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(), log)
	if err != nil {
		log.Error(ctx, "failed to initialise tracing", logging.String("error", err.Error()))
		os.Exit(1)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	local := photometry.NewLocalService(
		log.With(logging.String("component", "photometry")),
		photometry.WithLookupRecorder(collector),
	)
	phot := photometry.NewCached(local, collector)

	defaults := core.ExposureConfig{
		ExposureTimeS: viper.GetFloat64("exposure-time"),
		Airmass:       viper.GetFloat64("airmass"),
		PWVmm:         viper.GetFloat64("pwv"),
		SeeingArcsec:  viper.GetFloat64("seeing"),
	}

	a, err := api.New(api.Config{
		Photometry:  phot,
		Profile:     core.HAWKIProfile(),
		Defaults:    defaults,
		Logger:      log,
		Collector:   collector,
		HTTPMetrics: true,
	})
	if err != nil {
		log.Error(ctx, "failed to build API", logging.String("error", err.Error()))
		os.Exit(1)
	}

	metricsSrv := serveMetrics(viper.GetString("metrics-addr"), collector, log)

	addr := fmt.Sprintf("%s:%d", viper.GetString("host"), viper.GetInt("port"))
	srv := &http.Server{
		Addr:    addr,
		Handler: a.Router(),
	}

	log.Info(ctx, "starting exposure-time calculator API", logging.String("addr", addr))
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error(ctx, "API server exited", logging.String("error", err.Error()))
		}
	}()

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-stopCtx.Done()

	log.Info(ctx, "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
}

func serveMetrics(addr string, collector *observability.ETCCollector, log logging.Logger) *http.Server {
	if collector == nil || addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn(context.Background(), "metrics server exited", logging.String("error", err.Error()))
		}
	}()

	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}
