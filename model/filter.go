package model

import (
	"fmt"
	"strings"
)

// Filter identifies a broadband near-infrared filter of the imager.
type Filter string

// The HAWKI broadband filter set covered by the photometry tables.
const (
	FilterJ  Filter = "J"
	FilterH  Filter = "H"
	FilterKs Filter = "Ks"
)

// Filters lists every supported filter in wavelength order.
func Filters() []Filter {
	return []Filter{FilterJ, FilterH, FilterKs}
}

// ParseFilter normalises a user-supplied filter name. Matching is
// case-insensitive so "ks" and "KS" both resolve to FilterKs.
func ParseFilter(s string) (Filter, error) {
	for _, f := range Filters() {
		if strings.EqualFold(strings.TrimSpace(s), string(f)) {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown filter %q", s)
}

// Instrument identifies the imaging instrument a photometric quantity
// was calibrated for.
type Instrument string

// Observatory identifies the site the atmospheric tables apply to.
type Observatory string

// The instrument/observatory pair the bundled tables are calibrated for.
const (
	InstrumentHAWKI    Instrument  = "HAWKI"
	ObservatoryParanal Observatory = "Paranal"
)
