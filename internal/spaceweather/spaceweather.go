package spaceweather

import (
	"errors"
	"time"
)

// Source tells callers how a snapshot was obtained.
type Source string

const (
	// SourceLive means the snapshot came from a refresh in this call.
	SourceLive Source = "live"
	// SourceCached means the snapshot was served within its TTL.
	SourceCached Source = "cached"
	// SourceFallback means the refresh failed and a stale snapshot was served.
	SourceFallback Source = "fallback"
)

// StormThresholdKp is the Kp index at which NOAA classifies a geomagnetic storm (G1).
const StormThresholdKp = 5.0

// ErrUpstreamUnavailable is returned when the upstream feed fails and no
// previously fetched snapshot exists to fall back on.
var ErrUpstreamUnavailable = errors.New("space weather upstream unavailable and no cached snapshot")

// Snapshot is one reading of global space weather conditions. The same
// snapshot applies to every location; it is replaced whole on refresh and
// never mutated in place.
type Snapshot struct {
	KpIndex          float64   `json:"kpIndex"`
	Bz               float64   `json:"bz"`
	SolarWindSpeed   float64   `json:"solarWindSpeed"`
	SolarWindDensity float64   `json:"solarWindDensity"`
	Dst              float64   `json:"dst"`
	GeomagneticStorm bool      `json:"geomagneticStorm"`
	ObservedAt       time.Time `json:"observedAt"`
	FetchedAt        time.Time `json:"fetchedAt"`
	Source           Source    `json:"source"`
}
