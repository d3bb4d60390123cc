package features

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auroracast/internal/astronomy"
	"auroracast/internal/spaceweather"
	"auroracast/internal/weather"
)

func sampleInputs() (weather.Location, astronomy.State, spaceweather.Snapshot, weather.Observation) {
	loc := weather.Location{Latitude: 65.0, Longitude: -18.0}
	astro := astronomy.State{
		Hour: 22, DayOfYear: 45,
		MagneticLatitude: 67.5, SunAltitude: -15,
		MoonPhase: 0.1, MoonIllumination: 0.2, MoonAltitude: -20,
	}
	space := spaceweather.Snapshot{
		KpIndex: 6, Bz: -8, SolarWindSpeed: 550, SolarWindDensity: 8, Dst: -75,
	}
	obs := weather.Observation{
		CloudCoverPct: 20, PrecipMM: 0, TempC: -5, PressureHpa: 1020,
		WindSpeedKmh: 15, WindDirDeg: 270, HumidityPct: 60, DewPointC: -10,
	}
	return loc, astro, space, obs
}

func TestBuildMatchesTrainingSchema(t *testing.T) {
	v, err := Build(sampleInputs())
	require.NoError(t, err)

	vals := v.Values()
	require.Len(t, vals, Count)
	require.Len(t, Order, Count)

	// Spot-check position/semantics pairs against the training schema.
	assert.InDelta(t, 65.0, vals[0], 0)  // latitude
	assert.InDelta(t, -18.0, vals[1], 0) // longitude
	assert.InDelta(t, 22, vals[2], 0)    // hour
	assert.InDelta(t, 67.5, vals[4], 0)  // magnetic_latitude
	assert.InDelta(t, 20, vals[9], 0)    // cloudcover
	assert.InDelta(t, 6, vals[17], 0)    // kp_index
	assert.InDelta(t, -75, vals[21], 0)  // dst
	assert.InDelta(t, 1, vals[22], 0)    // is_dark
	assert.InDelta(t, 0, vals[23], 0)    // moon_interference (moon below horizon)
	assert.InDelta(t, 1, vals[24], 0)    // storm (kp >= 5)
	assert.InDelta(t, 1, vals[25], 0)    // strong_storm (dst < -50)
	assert.InDelta(t, 405, vals[26], 0)  // lat_kp = 67.5 * 6
	assert.InDelta(t, 1, vals[27], 0)    // dark_storm
	assert.InDelta(t, 1, vals[28], 0)    // good_conditions
	assert.InDelta(t, 4400, vals[29], 0) // sw_pressure = 550 * 8
}

func TestBuildIsDeterministic(t *testing.T) {
	a, err := Build(sampleInputs())
	require.NoError(t, err)
	b, err := Build(sampleInputs())
	require.NoError(t, err)

	assert.Equal(t, a.Values(), b.Values())
}

func TestBuildEngineeredFlagBoundaries(t *testing.T) {
	loc, astro, space, obs := sampleInputs()

	// Exactly at the darkness threshold is not dark.
	astro.SunAltitude = astronomy.DarknessThresholdDeg
	v, err := Build(loc, astro, space, obs)
	require.NoError(t, err)
	assert.InDelta(t, 0, v.IsDark, 0)
	assert.InDelta(t, 0, v.GoodConditions, 0)

	// Storm flag is inclusive at kp = 5.
	space.KpIndex = 5
	v, err = Build(loc, astro, space, obs)
	require.NoError(t, err)
	assert.InDelta(t, 1, v.Storm, 0)

	// Moon interference requires both altitude and illumination.
	astro.MoonAltitude = 10
	astro.MoonIllumination = 0.51
	v, err = Build(loc, astro, space, obs)
	require.NoError(t, err)
	assert.InDelta(t, 1, v.MoonInterference, 0)
}

func TestBuildRejectsNonFiniteValues(t *testing.T) {
	loc, astro, space, obs := sampleInputs()
	obs.CloudCoverPct = math.NaN()

	_, err := Build(loc, astro, space, obs)
	assert.ErrorIs(t, err, ErrFeatureSchema)

	obs.CloudCoverPct = math.Inf(1)
	_, err = Build(loc, astro, space, obs)
	assert.ErrorIs(t, err, ErrFeatureSchema)
}
