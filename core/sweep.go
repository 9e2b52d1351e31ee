package core

import (
	"context"
	"fmt"

	"github.com/signalsfoundry/hawki-etc/model"
)

// CurvePoint is one sample of the SNR-vs-brightness curve.
type CurvePoint struct {
	Magnitude float64 `json:"magnitude"`
	SNR       float64 `json:"snr"`
}

// SweepSN samples ComputeSN from the brightest to the faintest magnitude in
// steps of step (magnitudes, positive). Brighter means numerically smaller,
// so brightest must be <= faintest. The faint endpoint is included when the
// range is an exact multiple of step.
func (m *ExposureModel) SweepSN(ctx context.Context, f model.Filter, brightest, faintest, step float64) ([]CurvePoint, error) {
	if step <= 0 {
		return nil, fmt.Errorf("%w: sweep step must be positive, got %g", ErrDomain, step)
	}
	if brightest > faintest {
		return nil, fmt.Errorf("%w: brightest magnitude %g exceeds faintest %g", ErrDomain, brightest, faintest)
	}

	// Walk on an integer index so accumulated float error cannot drop or
	// duplicate the final sample.
	n := int((faintest-brightest)/step + 0.5)
	points := make([]CurvePoint, 0, n+1)
	for i := 0; i <= n; i++ {
		mag := brightest + float64(i)*step
		if mag > faintest+step/2 {
			break
		}
		snr, err := m.ComputeSN(ctx, mag, f)
		if err != nil {
			return nil, err
		}
		points = append(points, CurvePoint{Magnitude: mag, SNR: snr})
	}
	return points, nil
}
