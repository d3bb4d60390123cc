package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sony/gobreaker"

	"auroracast/internal/weather"
)

// WeatherKitCredentials holds the Apple Developer identifiers needed to sign
// WeatherKit API tokens. PrivateKey accepts either inline PEM content or a
// path to a .p8 file.
type WeatherKitCredentials struct {
	KeyID      string
	TeamID     string
	ServiceID  string
	PrivateKey string
}

// Configured reports whether every credential field is present.
func (c WeatherKitCredentials) Configured() bool {
	return c.KeyID != "" && c.TeamID != "" && c.ServiceID != "" && c.PrivateKey != ""
}

// WeatherKitProvider implements weather.Provider for Apple WeatherKit, the
// primary source when credentials are configured.
type WeatherKitProvider struct {
	name    string
	baseURL string
	creds   WeatherKitCredentials
	client  *http.Client
	circuit *gobreaker.CircuitBreaker
}

func NewWeatherKitProvider(client *http.Client, creds WeatherKitCredentials) *WeatherKitProvider {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "weatherkit",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	return &WeatherKitProvider{
		name:    string(weather.SourceWeatherKit),
		baseURL: "https://weatherkit.apple.com/api/v1/weather",
		creds:   creds,
		client:  client,
		circuit: cb,
	}
}

func (p *WeatherKitProvider) Name() string {
	return p.name
}

func (p *WeatherKitProvider) Fetch(ctx context.Context, loc weather.Location) (weather.Observation, error) {
	token, err := p.token()
	if err != nil {
		return weather.Observation{}, err
	}

	u := fmt.Sprintf("%s/en/%g/%g?dataSets=currentWeather", p.baseURL, loc.Latitude, loc.Longitude)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return weather.Observation{}, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := doRequest(p.client, p.circuit, req)
	if err != nil {
		return weather.Observation{}, err
	}
	defer resp.Body.Close()

	var payload struct {
		CurrentWeather struct {
			AsOf                   string   `json:"asOf"`
			CloudCover             *float64 `json:"cloudCover"`
			PrecipitationIntensity *float64 `json:"precipitationIntensity"`
			Temperature            *float64 `json:"temperature"`
			Pressure               *float64 `json:"pressure"`
			WindSpeed              *float64 `json:"windSpeed"`
			WindDirection          *float64 `json:"windDirection"`
			Humidity               *float64 `json:"humidity"`
			TemperatureDewPoint    *float64 `json:"temperatureDewPoint"`
		} `json:"currentWeather"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return weather.Observation{}, err
	}

	observedAt := time.Now().UTC()
	if ts, err := time.Parse(time.RFC3339, payload.CurrentWeather.AsOf); err == nil {
		observedAt = ts.UTC()
	}

	cur := payload.CurrentWeather
	return weather.Observation{
		// WeatherKit reports fractions for cloud cover and humidity and m/s
		// for wind; normalize to the Open-Meteo units.
		CloudCoverPct: orDefault(cur.CloudCover, 0) * 100,
		PrecipMM:      orDefault(cur.PrecipitationIntensity, 0),
		TempC:         orDefault(cur.Temperature, 10),
		PressureHpa:   orDefault(cur.Pressure, 1013),
		WindSpeedKmh:  orDefault(cur.WindSpeed, 0) * 3.6,
		WindDirDeg:    orDefault(cur.WindDirection, 0),
		HumidityPct:   orDefault(cur.Humidity, 0.5) * 100,
		DewPointC:     orDefault(cur.TemperatureDewPoint, 0),
		ObservedAt:    observedAt,
		Source:        weather.SourceWeatherKit,
	}, nil
}

// token signs a short-lived ES256 JWT for the WeatherKit REST API.
func (p *WeatherKitProvider) token() (string, error) {
	if !p.creds.Configured() {
		return "", fmt.Errorf("weatherkit credentials not configured")
	}

	pemData := p.creds.PrivateKey
	if !strings.HasPrefix(pemData, "-----BEGIN") {
		raw, err := os.ReadFile(p.creds.PrivateKey)
		if err != nil {
			return "", fmt.Errorf("read weatherkit private key: %w", err)
		}
		pemData = string(raw)
	}

	key, err := jwt.ParseECPrivateKeyFromPEM([]byte(pemData))
	if err != nil {
		return "", fmt.Errorf("parse weatherkit private key: %w", err)
	}

	now := time.Now()
	tok := jwt.NewWithClaims(jwt.SigningMethodES256, jwt.MapClaims{
		"iss": p.creds.TeamID,
		"iat": now.Unix(),
		"exp": now.Add(time.Hour).Unix(),
		"sub": p.creds.ServiceID,
	})
	tok.Header["kid"] = p.creds.KeyID
	tok.Header["id"] = p.creds.TeamID + "." + p.creds.ServiceID

	return tok.SignedString(key)
}
