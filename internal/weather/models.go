package weather

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrInvalidCoordinates is returned for out-of-range latitude or longitude.
// Coordinates are rejected, never clamped.
var ErrInvalidCoordinates = errors.New("coordinates out of range")

// ErrUnavailable is returned when every configured provider failed.
var ErrUnavailable = errors.New("all weather providers unavailable")

// Source identifies which provider produced an observation.
type Source string

const (
	SourceWeatherKit Source = "weatherkit"
	SourceOpenMeteo  Source = "open_meteo"
)

// Location is a point on Earth in decimal degrees.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Validate rejects coordinates outside [-90,90] x [-180,180].
func (l Location) Validate() error {
	if l.Latitude < -90 || l.Latitude > 90 {
		return fmt.Errorf("%w: latitude %v", ErrInvalidCoordinates, l.Latitude)
	}
	if l.Longitude < -180 || l.Longitude > 180 {
		return fmt.Errorf("%w: longitude %v", ErrInvalidCoordinates, l.Longitude)
	}
	return nil
}

// Key returns a canonical string key for indexing this location in stores.
func (l Location) Key() string {
	return fmt.Sprintf("%.2f:%.2f", l.Latitude, l.Longitude)
}

// Observation is a provider reading normalized to the units the feature
// schema was trained on. Both providers must produce identical semantics;
// only Source differs.
type Observation struct {
	CloudCoverPct float64   `json:"cloudCoverPct"`
	PrecipMM      float64   `json:"precipMm"`
	TempC         float64   `json:"temperatureC"`
	PressureHpa   float64   `json:"pressureHpa"`
	WindSpeedKmh  float64   `json:"windSpeedKmh"`
	WindDirDeg    float64   `json:"windDirDeg"`
	HumidityPct   float64   `json:"humidityPct"`
	DewPointC     float64   `json:"dewPointC"`
	ObservedAt    time.Time `json:"observedAt"`
	Source        Source    `json:"source"`
}

// Provider abstracts a weather data source (WeatherKit, Open-Meteo).
type Provider interface {
	Name() string
	Fetch(ctx context.Context, loc Location) (Observation, error)
}
