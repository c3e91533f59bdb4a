// Package fits reads raw spectrograph frames from FITS files and writes
// combined masters back out. Only 2-D image HDUs are supported; that is the
// whole universe of this pipeline.
package fits

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	ErrHeader          = errors.New("malformed FITS header")
	ErrUnsupportedData = errors.New("unsupported FITS data layout")
	ErrNoSuchHDU       = errors.New("no such HDU")
)

// mjdEpoch is 1858-11-17T00:00:00 UTC, the zero point of the modified
// Julian date scale used in observation headers.
var mjdEpoch = time.Date(1858, time.November, 17, 0, 0, 0, 0, time.UTC)

// Header holds one HDU's parsed cards, keyed by upper-cased keyword with
// string values unquoted.
type Header map[string]string

// String returns the value for key, or "" when absent.
func (h Header) String(key string) string {
	return h[strings.ToUpper(key)]
}

// Int returns the integer value for key.
func (h Header) Int(key string) (int, bool) {
	v, ok := h[strings.ToUpper(key)]
	if !ok {
		return 0, false
	}
	i, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, false
	}
	return i, true
}

// Float returns the floating-point value for key.
func (h Header) Float(key string) (float64, bool) {
	v, ok := h[strings.ToUpper(key)]
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// ObsTime extracts the observation timestamp: MJD when present, otherwise
// DATE-OBS in the FITS ISO layouts.
func (h Header) ObsTime() (time.Time, error) {
	if mjd, ok := h.Float("MJD"); ok {
		return mjdEpoch.Add(time.Duration(mjd * float64(24*time.Hour))), nil
	}
	if mjd, ok := h.Float("MJD-OBS"); ok {
		return mjdEpoch.Add(time.Duration(mjd * float64(24*time.Hour))), nil
	}
	raw := h.String("DATE-OBS")
	if raw == "" {
		return time.Time{}, fmt.Errorf("%w: no MJD or DATE-OBS card", ErrHeader)
	}
	for _, layout := range []string{
		"2006-01-02T15:04:05.999999999",
		"2006-01-02T15:04:05",
		"2006-01-02",
	} {
		if t, err := time.Parse(layout, strings.TrimSpace(raw)); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unparseable DATE-OBS %q", ErrHeader, raw)
}
