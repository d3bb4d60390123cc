package spaceweather

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/sony/gobreaker"
)

// NOAA SWPC product endpoints. All free, no authentication.
const (
	defaultBaseURL = "https://services.swpc.noaa.gov"
	kpPath         = "/products/noaa-planetary-k-index.json"
	plasmaPath     = "/products/solar-wind/plasma-1-day.json"
	magPath        = "/products/solar-wind/mag-1-day.json"
)

// Defaults substituted when a secondary feed is down. The Kp feed has no
// default: it is the primary signal and its failure fails the whole fetch.
const (
	defaultSolarWindSpeed   = 400.0
	defaultSolarWindDensity = 5.0
	defaultBz               = 0.0
)

// noaaTimeLayout matches the time_tag column of SWPC product payloads.
const noaaTimeLayout = "2006-01-02 15:04:05.000"

// Fetcher is the upstream capability the cache wraps.
type Fetcher interface {
	Fetch(ctx context.Context) (Snapshot, error)
}

// Client fetches current space weather from the NOAA SWPC product feeds.
type Client struct {
	client  *http.Client
	baseURL string
	circuit *gobreaker.CircuitBreaker
}

// NewClient creates a NOAA SWPC client sharing the given HTTP client.
func NewClient(client *http.Client) *Client {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "noaa-swpc",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	return &Client{
		client:  client,
		baseURL: defaultBaseURL,
		circuit: cb,
	}
}

// Fetch pulls the Kp, plasma, and magnetometer feeds concurrently and
// assembles a snapshot. Plasma and Bz fall back to documented defaults when
// their feeds fail; a Kp failure fails the fetch.
func (c *Client) Fetch(ctx context.Context) (Snapshot, error) {
	var (
		wg    sync.WaitGroup
		kp    float64
		kpAt  time.Time
		kpErr error

		speed   = defaultSolarWindSpeed
		density = defaultSolarWindDensity
		bz      = defaultBz
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		kp, kpAt, kpErr = c.fetchKp(ctx)
	}()
	go func() {
		defer wg.Done()
		s, d, err := c.fetchPlasma(ctx)
		if err != nil {
			log.Printf("spaceweather: plasma fetch failed, using defaults: %v", err)
			return
		}
		speed, density = s, d
	}()
	go func() {
		defer wg.Done()
		v, err := c.fetchBz(ctx)
		if err != nil {
			log.Printf("spaceweather: mag fetch failed, using default bz: %v", err)
			return
		}
		bz = v
	}()
	wg.Wait()

	if kpErr != nil {
		return Snapshot{}, fmt.Errorf("fetch kp index: %w", kpErr)
	}

	return Snapshot{
		KpIndex:          kp,
		Bz:               bz,
		SolarWindSpeed:   speed,
		SolarWindDensity: density,
		Dst:              EstimateDst(kp),
		GeomagneticStorm: kp >= StormThresholdKp,
		ObservedAt:       kpAt,
	}, nil
}

// fetchKp reads the planetary K-index product. Rows are
// ["time_tag","Kp","a_running","station_count"], header first.
func (c *Client) fetchKp(ctx context.Context) (float64, time.Time, error) {
	rows, err := c.getProduct(ctx, kpPath)
	if err != nil {
		return 0, time.Time{}, err
	}
	if len(rows) < 2 {
		return 0, time.Time{}, fmt.Errorf("kp payload has no data rows")
	}

	latest := rows[len(rows)-1]
	if len(latest) < 2 {
		return 0, time.Time{}, fmt.Errorf("kp row too short")
	}
	kp, ok := cellFloat(latest[1])
	if !ok {
		return 0, time.Time{}, fmt.Errorf("kp value not numeric: %v", latest[1])
	}

	observedAt := time.Now().UTC()
	if tag, ok := latest[0].(string); ok {
		if ts, err := time.Parse(noaaTimeLayout, tag); err == nil {
			observedAt = ts.UTC()
		}
	}
	return kp, observedAt, nil
}

// fetchPlasma reads solar wind speed and density. Rows are
// ["time_tag","density","speed","temperature"]; nulls are skipped from the end.
func (c *Client) fetchPlasma(ctx context.Context) (speed, density float64, err error) {
	rows, err := c.getProduct(ctx, plasmaPath)
	if err != nil {
		return 0, 0, err
	}

	for i := len(rows) - 1; i >= 1; i-- {
		row := rows[i]
		if len(row) < 3 {
			continue
		}
		d, dok := cellFloat(row[1])
		s, sok := cellFloat(row[2])
		if dok && sok {
			return s, d, nil
		}
	}
	return 0, 0, fmt.Errorf("plasma payload has no valid rows")
}

// fetchBz reads the IMF Bz component (index 3 of the mag product rows).
func (c *Client) fetchBz(ctx context.Context) (float64, error) {
	rows, err := c.getProduct(ctx, magPath)
	if err != nil {
		return 0, err
	}

	for i := len(rows) - 1; i >= 1; i-- {
		row := rows[i]
		if len(row) < 4 {
			continue
		}
		if bz, ok := cellFloat(row[3]); ok {
			return bz, nil
		}
	}
	return 0, fmt.Errorf("mag payload has no valid rows")
}

// getProduct fetches one SWPC product behind the circuit breaker and decodes
// its row-of-rows JSON shape.
func (c *Client) getProduct(ctx context.Context, path string) ([][]any, error) {
	result, err := c.circuit.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
		if err != nil {
			return nil, err
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, path)
		}

		var rows [][]any
		if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		return rows, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([][]any), nil
}

// EstimateDst approximates the Dst index from Kp using the empirical
// relationship the models were trained with. The Kyoto real-time Dst feed is
// HTML and too fragile to scrape.
func EstimateDst(kp float64) float64 {
	var dst float64
	switch {
	case kp < 3:
		dst = -5 * kp
	case kp < 5:
		dst = -15 - 15*(kp-3)
	case kp < 7:
		dst = -45 - 25*(kp-5)
	default:
		dst = -95 - 30*(kp-7)
	}
	return round1(dst)
}

// cellFloat coerces a product cell to float64. SWPC serves numbers as JSON
// strings in some products and as numbers in others; nulls report false.
func cellFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case string:
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
