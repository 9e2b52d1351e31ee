package core

import (
	"context"
	"sync"
	"testing"

	"github.com/signalsfoundry/hawki-etc/internal/logging"
	"github.com/signalsfoundry/hawki-etc/model"
	"github.com/signalsfoundry/hawki-etc/photometry"
)

// recordingLogger captures every message it is handed.
type recordingLogger struct {
	mu       sync.Mutex
	messages []string
}

func (r *recordingLogger) With(...logging.Field) logging.Logger { return r }

func (r *recordingLogger) log(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
}

func (r *recordingLogger) Debug(_ context.Context, msg string, _ ...logging.Field) { r.log(msg) }
func (r *recordingLogger) Info(_ context.Context, msg string, _ ...logging.Field)  { r.log(msg) }
func (r *recordingLogger) Warn(_ context.Context, msg string, _ ...logging.Field)  { r.log(msg) }
func (r *recordingLogger) Error(_ context.Context, msg string, _ ...logging.Field) { r.log(msg) }

func (r *recordingLogger) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.messages)
}

// An airmass outside the calibrated table range makes the local service
// emit an extrapolation warning on every sky lookup. SkyNoise must swallow
// it; a direct call must not.
func TestSkyNoise_SuppressesLookupDiagnostics(t *testing.T) {
	rec := &recordingLogger{}
	svc := photometry.NewLocalService(rec)

	cfg := DefaultExposureConfig()
	cfg.Airmass = 4.5 // beyond the calibrated range
	m, err := NewExposureModel(cfg, HAWKIProfile(), svc)
	if err != nil {
		t.Fatalf("NewExposureModel: %v", err)
	}

	sky, err := m.SkyNoise(context.Background(), model.FilterKs)
	if err != nil {
		t.Fatalf("SkyNoise: %v", err)
	}
	if sky <= 0 {
		t.Errorf("sky noise = %v e-, want > 0 even when extrapolating", sky)
	}
	if got := rec.count(); got != 0 {
		t.Errorf("lookup diagnostics leaked through SkyNoise: %d messages %q", got, rec.messages)
	}

	// The same lookup performed directly does warn, proving the silence
	// above came from the scoped suppression and not from the service.
	if _, err := svc.SkyBackground(context.Background(), model.FilterKs, cfg.Airmass, cfg.PWVmm); err != nil {
		t.Fatalf("SkyBackground: %v", err)
	}
	if got := rec.count(); got == 0 {
		t.Error("expected an extrapolation warning from the direct lookup")
	}
}

// Suppression is cosmetic only: hard failures from the lookup still reach
// the caller.
func TestSkyNoise_SuppressionDoesNotSwallowErrors(t *testing.T) {
	rec := &recordingLogger{}
	svc := photometry.NewLocalService(rec)

	m, err := NewExposureModel(DefaultExposureConfig(), HAWKIProfile(), svc)
	if err != nil {
		t.Fatalf("NewExposureModel: %v", err)
	}

	if _, err := m.SkyNoise(context.Background(), model.Filter("narrowband-CH4")); err == nil {
		t.Error("expected an unknown-filter error to propagate through SkyNoise")
	}
}
