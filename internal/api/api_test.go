package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/signalsfoundry/hawki-etc/core"
	"github.com/signalsfoundry/hawki-etc/internal/logging"
	"github.com/signalsfoundry/hawki-etc/model"
	"github.com/signalsfoundry/hawki-etc/photometry"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	svc := photometry.NewCached(photometry.NewLocalService(logging.Noop()), nil)
	a, err := New(Config{
		Photometry: svc,
		Profile:    core.HAWKIProfile(),
		Defaults:   core.DefaultExposureConfig(),
		Logger:     logging.Noop(),
	})
	qt.Assert(t, err, qt.IsNil)

	srv := httptest.NewServer(a.Router())
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	qt.Assert(t, err, qt.IsNil)
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	qt.Assert(t, err, qt.IsNil)
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	qt.Assert(t, json.NewDecoder(resp.Body).Decode(&out), qt.IsNil)
	return out
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	qt.Assert(t, err, qt.IsNil)
	defer resp.Body.Close()
	qt.Assert(t, resp.StatusCode, qt.Equals, http.StatusOK)
}

func TestFilters_ListsCalibratedSet(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/v1/filters")
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, resp.StatusCode, qt.Equals, http.StatusOK)

	infos := decodeBody[[]filterInfo](t, resp)
	qt.Assert(t, infos, qt.HasLen, 3)
	qt.Assert(t, infos[0].Name, qt.Equals, model.FilterJ)
	qt.Assert(t, infos[2].Name, qt.Equals, model.FilterKs)
	qt.Assert(t, infos[2].ZeroPointFlux > 0, qt.IsTrue)
}

func TestSNR_ReferenceComputation(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/v1/snr", map[string]any{
		"filter":    "Ks",
		"magnitude": 23.3,
	})
	qt.Assert(t, resp.StatusCode, qt.Equals, http.StatusOK)

	out := decodeBody[snrResponse](t, resp)
	qt.Assert(t, out.Filter, qt.Equals, model.FilterKs)
	qt.Assert(t, out.SNR > 4 && out.SNR < 6, qt.IsTrue,
		qt.Commentf("SNR = %v, want the documented (4, 6) window", out.SNR))
	qt.Assert(t, out.SignalElectrons > 0, qt.IsTrue)
	qt.Assert(t, out.SkyElectrons > 0, qt.IsTrue)
	qt.Assert(t, out.Conditions.ExposureTimeS, qt.Equals, 3600.0)
}

func TestSNR_ConditionOverrides(t *testing.T) {
	srv := newTestServer(t)

	short := postJSON(t, srv.URL+"/v1/snr", map[string]any{
		"filter":     "Ks",
		"magnitude":  22.0,
		"conditions": map[string]any{"exposure_time_s": 600},
	})
	qt.Assert(t, short.StatusCode, qt.Equals, http.StatusOK)
	shortOut := decodeBody[snrResponse](t, short)
	qt.Assert(t, shortOut.Conditions.ExposureTimeS, qt.Equals, 600.0)

	long := postJSON(t, srv.URL+"/v1/snr", map[string]any{
		"filter":    "Ks",
		"magnitude": 22.0,
	})
	longOut := decodeBody[snrResponse](t, long)
	qt.Assert(t, longOut.SNR > shortOut.SNR, qt.IsTrue,
		qt.Commentf("hour-long exposure (%v) should beat 10 minutes (%v)", longOut.SNR, shortOut.SNR))
}

func TestSNR_ValidationFailures(t *testing.T) {
	srv := newTestServer(t)

	// Missing magnitude.
	resp := postJSON(t, srv.URL+"/v1/snr", map[string]any{"filter": "Ks"})
	qt.Assert(t, resp.StatusCode, qt.Equals, http.StatusBadRequest)
	resp.Body.Close()

	// Unknown filter name is rejected at parse time.
	resp = postJSON(t, srv.URL+"/v1/snr", map[string]any{"filter": "Q", "magnitude": 20})
	qt.Assert(t, resp.StatusCode, qt.Equals, http.StatusBadRequest)
	resp.Body.Close()

	// Unknown top-level fields are rejected.
	resp = postJSON(t, srv.URL+"/v1/snr", map[string]any{"filter": "Ks", "magnitude": 20, "bogus": 1})
	qt.Assert(t, resp.StatusCode, qt.Equals, http.StatusBadRequest)
	resp.Body.Close()

	// Degenerate conditions fail model construction.
	resp = postJSON(t, srv.URL+"/v1/snr", map[string]any{
		"filter":     "Ks",
		"magnitude":  20,
		"conditions": map[string]any{"seeing_arcsec": -1},
	})
	qt.Assert(t, resp.StatusCode, qt.Equals, http.StatusBadRequest)
	out := decodeBody[errorBody](t, resp)
	qt.Assert(t, out.Error, qt.Contains, "seeing")
}

func TestLimitingMagnitude_DefaultTarget(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/v1/limiting-magnitude", map[string]any{"filter": "Ks"})
	qt.Assert(t, resp.StatusCode, qt.Equals, http.StatusOK)

	out := decodeBody[limitingMagnitudeResponse](t, resp)
	qt.Assert(t, out.TargetSNR, qt.Equals, 5.0)
	qt.Assert(t, out.Magnitude > 23 && out.Magnitude < 24, qt.IsTrue,
		qt.Commentf("limiting magnitude = %v, want the documented (23, 24) window", out.Magnitude))
}

func TestLimitingMagnitude_NonPositiveTargetRejected(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/v1/limiting-magnitude", map[string]any{
		"filter":     "Ks",
		"target_snr": -3,
	})
	qt.Assert(t, resp.StatusCode, qt.Equals, http.StatusUnprocessableEntity)
	resp.Body.Close()
}

func TestSNRCurve_DefaultSweep(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/v1/snr-curve", map[string]any{"filter": "Ks"})
	qt.Assert(t, resp.StatusCode, qt.Equals, http.StatusOK)

	out := decodeBody[snrCurveResponse](t, resp)
	qt.Assert(t, out.Points, qt.HasLen, 181)
	qt.Assert(t, out.Points[0].Magnitude, qt.Equals, 8.0)
	// The bright end is wildly detected, the faint end is not.
	qt.Assert(t, out.Points[0].SNR > out.Points[len(out.Points)-1].SNR, qt.IsTrue)
}

func TestSNRCurve_InvertedRangeRejected(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/v1/snr-curve", map[string]any{
		"filter":    "Ks",
		"brightest": 24,
		"faintest":  10,
	})
	qt.Assert(t, resp.StatusCode, qt.Equals, http.StatusUnprocessableEntity)
	resp.Body.Close()
}

func TestRequestID_EchoedOnResponses(t *testing.T) {
	srv := newTestServer(t)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/healthz", nil)
	qt.Assert(t, err, qt.IsNil)
	req.Header.Set("X-Request-Id", "etc-test-42")

	resp, err := http.DefaultClient.Do(req)
	qt.Assert(t, err, qt.IsNil)
	defer resp.Body.Close()
	qt.Assert(t, resp.Header.Get("X-Request-Id"), qt.Equals, "etc-test-42")
}
