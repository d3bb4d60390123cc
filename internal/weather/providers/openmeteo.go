package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"auroracast/internal/weather"
)

const openMeteoCurrentFields = "cloud_cover,precipitation,temperature_2m,pressure_msl," +
	"wind_speed_10m,wind_direction_10m,relative_humidity_2m,dew_point_2m"

// OpenMeteoProvider implements weather.Provider for Open-Meteo, the free
// keyless fallback source.
type OpenMeteoProvider struct {
	name    string
	baseURL string
	client  *http.Client
	circuit *gobreaker.CircuitBreaker
}

func NewOpenMeteoProvider(client *http.Client) *OpenMeteoProvider {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openmeteo",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	return &OpenMeteoProvider{
		name:    string(weather.SourceOpenMeteo),
		baseURL: "https://api.open-meteo.com/v1/forecast",
		client:  client,
		circuit: cb,
	}
}

func (p *OpenMeteoProvider) Name() string {
	return p.name
}

func (p *OpenMeteoProvider) Fetch(ctx context.Context, loc weather.Location) (weather.Observation, error) {
	values := url.Values{}
	values.Set("latitude", fmt.Sprintf("%f", loc.Latitude))
	values.Set("longitude", fmt.Sprintf("%f", loc.Longitude))
	values.Set("current", openMeteoCurrentFields)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"?"+values.Encode(), nil)
	if err != nil {
		return weather.Observation{}, err
	}

	resp, err := doRequest(p.client, p.circuit, req)
	if err != nil {
		return weather.Observation{}, err
	}
	defer resp.Body.Close()

	var payload struct {
		Current struct {
			Time             string   `json:"time"`
			CloudCover       *float64 `json:"cloud_cover"`
			Precipitation    *float64 `json:"precipitation"`
			Temperature2m    *float64 `json:"temperature_2m"`
			PressureMsl      *float64 `json:"pressure_msl"`
			WindSpeed10m     *float64 `json:"wind_speed_10m"`
			WindDirection10m *float64 `json:"wind_direction_10m"`
			Humidity2m       *float64 `json:"relative_humidity_2m"`
			DewPoint2m       *float64 `json:"dew_point_2m"`
		} `json:"current"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return weather.Observation{}, err
	}

	observedAt := time.Now().UTC()
	if ts, err := time.Parse("2006-01-02T15:04", payload.Current.Time); err == nil {
		observedAt = ts.UTC()
	}

	cur := payload.Current
	return weather.Observation{
		CloudCoverPct: orDefault(cur.CloudCover, 50),
		PrecipMM:      orDefault(cur.Precipitation, 0),
		TempC:         orDefault(cur.Temperature2m, 10),
		PressureHpa:   orDefault(cur.PressureMsl, 1013),
		WindSpeedKmh:  orDefault(cur.WindSpeed10m, 0),
		WindDirDeg:    orDefault(cur.WindDirection10m, 0),
		HumidityPct:   orDefault(cur.Humidity2m, 50),
		DewPointC:     orDefault(cur.DewPoint2m, 0),
		ObservedAt:    observedAt,
		Source:        weather.SourceOpenMeteo,
	}, nil
}
