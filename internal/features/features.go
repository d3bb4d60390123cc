// Package features assembles the fixed-width numeric vector the aurora
// classifiers consume. The schema (names, order, engineering rules) is a
// contract shared with the training pipeline: changing anything here without
// retraining silently corrupts predictions, so the schema is versioned and
// model artifacts are checked against SchemaVersion at load time.
package features

import (
	"errors"
	"fmt"
	"math"

	"auroracast/internal/astronomy"
	"auroracast/internal/spaceweather"
	"auroracast/internal/weather"
)

// SchemaVersion identifies the feature schema below. Bump together with the
// model artifacts whenever names, order, or computation change.
const SchemaVersion = 1

// Count is the fixed width of the vector.
const Count = 30

// ErrFeatureSchema marks a structural contract violation in an upstream
// value (NaN or infinity). Merely missing fields are defaulted upstream and
// never reach this error.
var ErrFeatureSchema = errors.New("feature schema violation")

// Order lists the features in the exact order the models were trained on.
var Order = [Count]string{
	"latitude", "longitude", "hour", "day_of_year",
	"magnetic_latitude", "sun_altitude", "moon_phase", "moon_illumination", "moon_altitude",
	"cloudcover", "precip", "temp", "pressure", "windspeed", "winddir", "dew", "humidity",
	"kp_index", "bz", "solar_wind_speed", "solar_wind_density", "dst",
	"is_dark", "moon_interference", "storm", "strong_storm",
	"lat_kp", "dark_storm", "good_conditions", "sw_pressure",
}

// Vector is the 30-feature input to the classifiers.
type Vector struct {
	Latitude  float64
	Longitude float64

	Hour      float64
	DayOfYear float64

	MagneticLatitude float64
	SunAltitude      float64
	MoonPhase        float64
	MoonIllumination float64
	MoonAltitude     float64

	CloudCover float64
	Precip     float64
	Temp       float64
	Pressure   float64
	WindSpeed  float64
	WindDir    float64
	Dew        float64
	Humidity   float64

	KpIndex          float64
	Bz               float64
	SolarWindSpeed   float64
	SolarWindDensity float64
	Dst              float64

	IsDark           float64
	MoonInterference float64
	Storm            float64
	StrongStorm      float64
	LatKp            float64
	DarkStorm        float64
	GoodConditions   float64
	SwPressure       float64
}

// Values projects the vector into Order's positions.
func (v Vector) Values() [Count]float64 {
	return [Count]float64{
		v.Latitude, v.Longitude, v.Hour, v.DayOfYear,
		v.MagneticLatitude, v.SunAltitude, v.MoonPhase, v.MoonIllumination, v.MoonAltitude,
		v.CloudCover, v.Precip, v.Temp, v.Pressure, v.WindSpeed, v.WindDir, v.Dew, v.Humidity,
		v.KpIndex, v.Bz, v.SolarWindSpeed, v.SolarWindDensity, v.Dst,
		v.IsDark, v.MoonInterference, v.Storm, v.StrongStorm,
		v.LatKp, v.DarkStorm, v.GoodConditions, v.SwPressure,
	}
}

// Build assembles the feature vector from the three upstream signals.
// Deterministic and total: identical inputs always yield a bit-identical
// vector; the only failure mode is a structurally invalid upstream value.
func Build(loc weather.Location, astro astronomy.State, space spaceweather.Snapshot, obs weather.Observation) (Vector, error) {
	v := Vector{
		Latitude:  loc.Latitude,
		Longitude: loc.Longitude,

		Hour:      float64(astro.Hour),
		DayOfYear: float64(astro.DayOfYear),

		MagneticLatitude: astro.MagneticLatitude,
		SunAltitude:      astro.SunAltitude,
		MoonPhase:        astro.MoonPhase,
		MoonIllumination: astro.MoonIllumination,
		MoonAltitude:     astro.MoonAltitude,

		CloudCover: obs.CloudCoverPct,
		Precip:     obs.PrecipMM,
		Temp:       obs.TempC,
		Pressure:   obs.PressureHpa,
		WindSpeed:  obs.WindSpeedKmh,
		WindDir:    obs.WindDirDeg,
		Dew:        obs.DewPointC,
		Humidity:   obs.HumidityPct,

		KpIndex:          space.KpIndex,
		Bz:               space.Bz,
		SolarWindSpeed:   space.SolarWindSpeed,
		SolarWindDensity: space.SolarWindDensity,
		Dst:              space.Dst,
	}

	v.IsDark = flag(astro.SunAltitude < astronomy.DarknessThresholdDeg)
	v.MoonInterference = flag(astro.MoonAltitude > 0 && astro.MoonIllumination > 0.5)
	v.Storm = flag(space.KpIndex >= spaceweather.StormThresholdKp)
	v.StrongStorm = flag(space.Dst < -50)
	v.LatKp = astro.MagneticLatitude * space.KpIndex
	v.DarkStorm = v.IsDark * v.Storm
	v.GoodConditions = flag(obs.CloudCoverPct < 50 && astro.SunAltitude < astronomy.DarknessThresholdDeg)
	v.SwPressure = space.SolarWindSpeed * space.SolarWindDensity

	for i, val := range v.Values() {
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return Vector{}, fmt.Errorf("%w: %s is not finite", ErrFeatureSchema, Order[i])
		}
	}
	return v, nil
}

func flag(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
