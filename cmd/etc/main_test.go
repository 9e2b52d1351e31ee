package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/signalsfoundry/hawki-etc/core"
	"github.com/signalsfoundry/hawki-etc/internal/logging"
)

func defaultCLIConfig() cliConfig {
	return cliConfig{
		Filter:    "Ks",
		Brightest: 8,
		Faintest:  26,
		Step:      0.1,
		TargetSNR: 5,
		OutFile:   "etc.png",
		Exposure:  core.DefaultExposureConfig(),
	}
}

func TestValidateOutputFilename(t *testing.T) {
	cases := []struct {
		name    string
		file    string
		wantErr bool
	}{
		{"valid", "etc.png", false},
		{"valid with path", "out/curve.PNG", false},
		{"empty", "", true},
		{"whitespace", "   ", true},
		{"directory", "out/", true},
		{"wrong extension", "etc.jpg", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := validateOutputFilename(tc.file)
			if tc.wantErr && !errors.Is(err, ErrInvalidFilename) {
				t.Errorf("validateOutputFilename(%q) = %v, want ErrInvalidFilename", tc.file, err)
			}
			if !tc.wantErr && err != nil {
				t.Errorf("validateOutputFilename(%q) = %v, want nil", tc.file, err)
			}
		})
	}
}

func TestRun_LimitingMagnitudeDefault(t *testing.T) {
	var out bytes.Buffer
	if err := run(context.Background(), defaultCLIConfig(), &out, logging.Noop()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out.String(), "Detectable star brightness") {
		t.Errorf("unexpected output: %q", out.String())
	}
}

func TestRun_SNRForMagnitude(t *testing.T) {
	cfg := defaultCLIConfig()
	cfg.Magnitude = 23.3
	cfg.MagnitudeSet = true

	var out bytes.Buffer
	if err := run(context.Background(), cfg, &out, logging.Noop()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out.String(), "SNR of a 23.30 mag source in Ks") {
		t.Errorf("unexpected output: %q", out.String())
	}
}

func TestRun_CurvePrintsCSV(t *testing.T) {
	cfg := defaultCLIConfig()
	cfg.Curve = true
	cfg.Brightest = 20
	cfg.Faintest = 22
	cfg.Step = 1

	var out bytes.Buffer
	if err := run(context.Background(), cfg, &out, logging.Noop()); err != nil {
		t.Fatalf("run: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 4 { // header + three samples
		t.Fatalf("got %d CSV lines, want 4: %q", len(lines), out.String())
	}
	if lines[0] != "magnitude,snr" {
		t.Errorf("CSV header = %q", lines[0])
	}
}

func TestRun_CurveSavesPNG(t *testing.T) {
	cfg := defaultCLIConfig()
	cfg.Curve = true
	cfg.Save = true
	cfg.Brightest = 18
	cfg.Faintest = 24
	cfg.Step = 0.5
	cfg.OutFile = filepath.Join(t.TempDir(), "curve.png")

	var out bytes.Buffer
	if err := run(context.Background(), cfg, &out, logging.Noop()); err != nil {
		t.Fatalf("run: %v", err)
	}

	info, err := os.Stat(cfg.OutFile)
	if err != nil {
		t.Fatalf("expected PNG at %s: %v", cfg.OutFile, err)
	}
	if info.Size() == 0 {
		t.Error("saved PNG is empty")
	}
}

func TestRun_BadFilenameFailsBeforeSweep(t *testing.T) {
	cfg := defaultCLIConfig()
	cfg.Curve = true
	cfg.Save = true
	cfg.OutFile = "curve.txt"

	err := run(context.Background(), cfg, &bytes.Buffer{}, logging.Noop())
	if !errors.Is(err, ErrInvalidFilename) {
		t.Errorf("run = %v, want ErrInvalidFilename", err)
	}
}

func TestRun_UnknownFilter(t *testing.T) {
	cfg := defaultCLIConfig()
	cfg.Filter = "L-prime"

	if err := run(context.Background(), cfg, &bytes.Buffer{}, logging.Noop()); err == nil {
		t.Error("expected an error for an unknown filter")
	}
}
