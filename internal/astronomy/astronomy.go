package astronomy

import (
	"math"
	"time"
)

// DarknessThresholdDeg is the solar altitude below which the sky is dark
// enough for aurora viewing (civil twilight ends at -6 degrees).
const DarknessThresholdDeg = -6.0

// synodicMonth is the mean length of a lunar cycle in days.
const synodicMonth = 29.530588853

// knownNewMoon is a reference new moon used to anchor the phase cycle.
var knownNewMoon = time.Date(2000, time.January, 6, 18, 14, 0, 0, time.UTC)

// Geomagnetic north pole position used by the dipole approximation.
const (
	poleLatDeg = 80.7
	poleLonDeg = -72.7
)

// State holds the astronomical quantities the feature schema consumes.
// Values are rounded to the same precision the training data carried.
type State struct {
	Hour             int     `json:"hour"`
	DayOfYear        int     `json:"dayOfYear"`
	MagneticLatitude float64 `json:"magneticLatitude"`
	SunAltitude      float64 `json:"sunAltitude"`
	MoonPhase        float64 `json:"moonPhase"`
	MoonIllumination float64 `json:"moonIllumination"`
	MoonAltitude     float64 `json:"moonAltitude"`
}

// IsDark reports whether the sun is far enough below the horizon.
func (s State) IsDark() bool {
	return s.SunAltitude < DarknessThresholdDeg
}

// MoonInterference reports whether a bright moon is above the horizon.
func (s State) MoonInterference() bool {
	return s.MoonAltitude > 0 && s.MoonIllumination > 0.5
}

// Compute derives the full astronomical state for a location and instant.
// Pure math, no I/O; safe to call from any number of goroutines.
func Compute(lat, lon float64, at time.Time) State {
	at = at.UTC()
	return State{
		Hour:             at.Hour(),
		DayOfYear:        at.YearDay(),
		MagneticLatitude: MagneticLatitude(lat, lon),
		SunAltitude:      SunAltitude(lat, lon, at),
		MoonPhase:        MoonPhase(at),
		MoonIllumination: MoonIllumination(at),
		MoonAltitude:     MoonAltitude(lat, lon, at),
	}
}

// MagneticLatitude returns the geomagnetic latitude of a point using the
// centered dipole approximation.
func MagneticLatitude(lat, lon float64) float64 {
	latR, lonR := radians(lat), radians(lon)
	poleLatR, poleLonR := radians(poleLatDeg), radians(poleLonDeg)

	cosColat := math.Sin(latR)*math.Sin(poleLatR) +
		math.Cos(latR)*math.Cos(poleLatR)*math.Cos(lonR-poleLonR)
	return round(90-degrees(math.Acos(clamp(cosColat, -1, 1))), 2)
}

// SunAltitude returns the sun's altitude above the horizon in degrees
// (negative at night), from solar declination and hour angle.
func SunAltitude(lat, lon float64, at time.Time) float64 {
	at = at.UTC()

	n := float64(at.YearDay())
	declination := 23.45 * math.Sin(radians((360.0/365.0)*(n-81)))
	hour := float64(at.Hour()) + float64(at.Minute())/60
	hourAngle := 15*(hour-12) - lon

	latR := radians(lat)
	decR := radians(declination)
	haR := radians(hourAngle)

	sinAlt := math.Sin(latR)*math.Sin(decR) +
		math.Cos(latR)*math.Cos(decR)*math.Cos(haR)
	return round(degrees(math.Asin(clamp(sinAlt, -1, 1))), 1)
}

// MoonPhase returns the lunar phase as a fraction of the synodic cycle:
// 0 = new, 0.5 = full, approaching 1 = new again.
func MoonPhase(at time.Time) float64 {
	daysSince := at.UTC().Sub(knownNewMoon).Seconds() / 86400
	frac := math.Mod(daysSince, synodicMonth) / synodicMonth
	if frac < 0 {
		frac += 1
	}
	return round(frac, 3)
}

// MoonIllumination maps the phase onto illuminated fraction: 0 at new moon,
// peaking at 1 when full.
func MoonIllumination(at time.Time) float64 {
	phase := MoonPhase(at)
	return round(1-math.Abs(2*phase-1), 3)
}

// MoonAltitude approximates the moon's altitude from the sun's position and
// the current phase: near full moon the moon is roughly opposite the sun.
func MoonAltitude(lat, lon float64, at time.Time) float64 {
	phase := MoonPhase(at)
	sunAlt := SunAltitude(lat, lon, at)

	if sunAlt < 0 {
		return round(-sunAlt*(0.5+0.5*math.Abs(phase-0.5)*2), 1)
	}
	return round(clamp(sunAlt-30, -90, 90), 1)
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

func degrees(rad float64) float64 { return rad * 180 / math.Pi }

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// round keeps the fixed decimal precision the training pipeline used, so
// feature vectors stay bit-identical to training-time ones.
func round(v float64, decimals int) float64 {
	scale := math.Pow(10, float64(decimals))
	return math.Round(v*scale) / scale
}
