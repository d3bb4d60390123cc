// Package predict orchestrates one aurora visibility prediction: it fans out
// to the weather and space weather sources, computes astronomy inline, builds
// the feature vector, and reconciles the two classifiers' scores.
package predict

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"auroracast/internal/astronomy"
	"auroracast/internal/features"
	"auroracast/internal/model"
	"auroracast/internal/spaceweather"
	"auroracast/internal/weather"
)

// ErrModelInference is returned when either classifier fails to score.
// Confidence needs both models, so no single-model degraded result exists.
var ErrModelInference = errors.New("model inference failed")

// Confidence summarizes how much the two classifiers agree on an input.
type Confidence string

const (
	ConfidenceHigh     Confidence = "high"
	ConfidenceModerate Confidence = "moderate"
	ConfidenceLow      Confidence = "low"
)

// Disagreement bounds for the confidence buckets; ties resolve to the
// lower-disagreement bucket.
const (
	highAgreementMax     = 0.10
	moderateAgreementMax = 0.20
)

// Conditions is the human-readable summary of the inputs a prediction used.
type Conditions struct {
	IsDark           bool    `json:"is_dark"`
	CloudCover       float64 `json:"cloud_cover"`
	KpIndex          float64 `json:"kp_index"`
	GeomagneticStorm bool    `json:"geomagnetic_storm"`
	MoonInterference bool    `json:"moon_interference"`
}

// Result is one completed prediction.
type Result struct {
	Probability    float64    `json:"probability"`
	Confidence     Confidence `json:"confidence"`
	GBProbability  float64    `json:"gb_probability"`
	XGBProbability float64    `json:"xgb_probability"`
	Conditions     Conditions `json:"conditions"`
}

// WeatherResolver supplies a normalized weather observation.
type WeatherResolver interface {
	Resolve(ctx context.Context, loc weather.Location) (weather.Observation, error)
}

// SpaceWeatherSource supplies the current space weather snapshot.
type SpaceWeatherSource interface {
	Get(ctx context.Context) (spaceweather.Snapshot, error)
}

// Service runs the prediction pipeline. Stateless per request; the space
// weather cache behind SpaceWeatherSource is the only shared mutable state.
type Service struct {
	resolver WeatherResolver
	space    SpaceWeatherSource
	gb       model.Scorer
	xgb      model.Scorer
}

// NewService wires the pipeline. Scorers are loaded by the caller at process
// start and treated as immutable.
func NewService(resolver WeatherResolver, space SpaceWeatherSource, gb, xgb model.Scorer) *Service {
	return &Service{
		resolver: resolver,
		space:    space,
		gb:       gb,
		xgb:      xgb,
	}
}

// Predict scores aurora visibility for a location at the given instant.
// Coordinates are validated before any upstream call. Weather and space
// weather are fetched concurrently; both must resolve (each has its own
// fallback chain) before features are built.
func (s *Service) Predict(ctx context.Context, loc weather.Location, at time.Time) (Result, error) {
	if err := loc.Validate(); err != nil {
		return Result{}, err
	}

	astro := astronomy.Compute(loc.Latitude, loc.Longitude, at)

	var (
		obs  weather.Observation
		snap spaceweather.Snapshot
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		obs, err = s.resolver.Resolve(gctx, loc)
		return err
	})
	g.Go(func() error {
		var err error
		snap, err = s.space.Get(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	vec, err := features.Build(loc, astro, snap, obs)
	if err != nil {
		return Result{}, err
	}
	vals := vec.Values()

	gbProb, err := s.gb.Score(vals)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %s: %v", ErrModelInference, s.gb.ModelID(), err)
	}
	xgbProb, err := s.xgb.Score(vals)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %s: %v", ErrModelInference, s.xgb.ModelID(), err)
	}

	return Result{
		// Reconciled probability is the arithmetic mean of the two models,
		// fixed since training time.
		Probability:    round3((gbProb + xgbProb) / 2),
		Confidence:     confidenceFor(gbProb, xgbProb),
		GBProbability:  round3(gbProb),
		XGBProbability: round3(xgbProb),
		Conditions: Conditions{
			IsDark:           astro.IsDark(),
			CloudCover:       obs.CloudCoverPct,
			KpIndex:          snap.KpIndex,
			GeomagneticStorm: snap.GeomagneticStorm,
			MoonInterference: astro.MoonInterference(),
		},
	}, nil
}

// confidenceFor buckets the absolute disagreement between the two models.
func confidenceFor(gb, xgb float64) Confidence {
	d := math.Abs(gb - xgb)
	switch {
	case d <= highAgreementMax:
		return ConfidenceHigh
	case d <= moderateAgreementMax:
		return ConfidenceModerate
	default:
		return ConfidenceLow
	}
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
