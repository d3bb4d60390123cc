package providers

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auroracast/internal/weather"
)

func TestOpenMeteoFetchNormalizesObservation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "64.100000", r.URL.Query().Get("latitude"))
		assert.Equal(t, "-21.900000", r.URL.Query().Get("longitude"))
		w.Write([]byte(`{"current":{
			"time":"2024-12-11T22:00",
			"cloud_cover":89,
			"precipitation":0.2,
			"temperature_2m":-3.5,
			"pressure_msl":1008.4,
			"wind_speed_10m":21.6,
			"wind_direction_10m":270,
			"relative_humidity_2m":81,
			"dew_point_2m":-6.1
		}}`))
	}))
	defer srv.Close()

	p := NewOpenMeteoProvider(srv.Client())
	p.baseURL = srv.URL

	obs, err := p.Fetch(context.Background(), weather.Location{Latitude: 64.1, Longitude: -21.9})
	require.NoError(t, err)

	assert.InDelta(t, 89, obs.CloudCoverPct, 0)
	assert.InDelta(t, -3.5, obs.TempC, 0)
	assert.InDelta(t, 1008.4, obs.PressureHpa, 0)
	assert.InDelta(t, 21.6, obs.WindSpeedKmh, 0)
	assert.InDelta(t, 81, obs.HumidityPct, 0)
	assert.InDelta(t, -6.1, obs.DewPointC, 0)
	assert.Equal(t, weather.SourceOpenMeteo, obs.Source)
}

func TestOpenMeteoFetchDefaultsMissingFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"current":{"time":"2024-12-11T22:00"}}`))
	}))
	defer srv.Close()

	p := NewOpenMeteoProvider(srv.Client())
	p.baseURL = srv.URL

	obs, err := p.Fetch(context.Background(), weather.Location{})
	require.NoError(t, err)

	assert.InDelta(t, 50, obs.CloudCoverPct, 0)
	assert.InDelta(t, 10, obs.TempC, 0)
	assert.InDelta(t, 1013, obs.PressureHpa, 0)
	assert.InDelta(t, 50, obs.HumidityPct, 0)
}

func TestOpenMeteoFetchPropagatesServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	p := NewOpenMeteoProvider(srv.Client())
	p.baseURL = srv.URL

	_, err := p.Fetch(context.Background(), weather.Location{})
	assert.ErrorIs(t, err, errServerError)
}

func testPrivateKeyPEM(t *testing.T) string {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	der, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)
	return string(pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der}))
}

func TestWeatherKitFetchSignsAndNormalizes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		assert.Contains(t, auth, "Bearer ")
		w.Write([]byte(`{"currentWeather":{
			"asOf":"2024-12-11T22:00:00Z",
			"cloudCover":0.89,
			"precipitationIntensity":0,
			"temperature":-3.5,
			"pressure":1008.4,
			"windSpeed":6.0,
			"windDirection":270,
			"humidity":0.81,
			"temperatureDewPoint":-6.1
		}}`))
	}))
	defer srv.Close()

	p := NewWeatherKitProvider(srv.Client(), WeatherKitCredentials{
		KeyID:      "KEY123",
		TeamID:     "TEAM123",
		ServiceID:  "com.example.weather",
		PrivateKey: testPrivateKeyPEM(t),
	})
	p.baseURL = srv.URL

	obs, err := p.Fetch(context.Background(), weather.Location{Latitude: 64.1, Longitude: -21.9})
	require.NoError(t, err)

	assert.InDelta(t, 89, obs.CloudCoverPct, 1e-9)
	assert.InDelta(t, 21.6, obs.WindSpeedKmh, 1e-9)
	assert.InDelta(t, 81, obs.HumidityPct, 1e-9)
	assert.Equal(t, weather.SourceWeatherKit, obs.Source)
}

func TestWeatherKitFetchFailsWithoutCredentials(t *testing.T) {
	p := NewWeatherKitProvider(http.DefaultClient, WeatherKitCredentials{})

	_, err := p.Fetch(context.Background(), weather.Location{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "credentials not configured")
}
