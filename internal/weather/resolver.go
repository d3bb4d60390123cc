package weather

import (
	"context"
	"fmt"
	"log"
)

// Resolver tries providers in fixed order and returns the first successful
// observation. The primary provider (WeatherKit) is listed first when its
// credentials are configured; Open-Meteo serves as the keyless fallback.
type Resolver struct {
	providers []Provider
}

// NewResolver creates a Resolver over the given providers, tried in order.
func NewResolver(providers ...Provider) *Resolver {
	return &Resolver{providers: providers}
}

// Resolve fetches a normalized observation for the location. Provider
// failures are logged and recovered by falling through to the next provider;
// only exhaustion of every provider surfaces an error.
func (r *Resolver) Resolve(ctx context.Context, loc Location) (Observation, error) {
	if len(r.providers) == 0 {
		return Observation{}, fmt.Errorf("%w: no providers configured", ErrUnavailable)
	}

	var lastErr error
	for _, p := range r.providers {
		obs, err := p.Fetch(ctx, loc)
		if err != nil {
			log.Printf("weather: provider %s failed for %s, trying next: %v", p.Name(), loc.Key(), err)
			lastErr = err
			continue
		}
		return obs, nil
	}

	return Observation{}, fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}
