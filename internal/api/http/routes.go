package httpapi

import (
	"errors"
	"log"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"auroracast/internal/features"
	"auroracast/internal/predict"
	"auroracast/internal/spaceweather"
	"auroracast/internal/store"
	"auroracast/internal/weather"
)

var validate = validator.New()

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, svc *predict.Service, hist *store.MemoryStore) {
	v1 := app.Group("/api/v1")

	v1.Post("/predict", func(c *fiber.Ctx) error {
		var req predictRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		at := time.Now().UTC()
		if req.Timestamp != "" {
			ts, err := time.Parse(time.RFC3339, req.Timestamp)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "timestamp must be RFC3339")
			}
			at = ts.UTC()
		}

		loc := weather.Location{Latitude: *req.Latitude, Longitude: *req.Longitude}
		result, err := svc.Predict(c.UserContext(), loc, at)
		if err != nil {
			return fiber.NewError(statusForError(err), err.Error())
		}

		hist.Save(store.Record{Location: loc, Timestamp: at, Result: result})
		return c.JSON(result)
	})

	v1.Get("/aurora/history", func(c *fiber.Ctx) error {
		loc, err := parseLocationQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		now := time.Now().UTC()
		from, to := now.Add(-24*time.Hour), now
		if s := c.Query("from"); s != "" {
			if from, err = parseTime(s); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
		}
		if s := c.Query("to"); s != "" {
			if to, err = parseTime(s); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
		}

		records, err := hist.Range(loc, from, to)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no predictions for requested range")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch prediction history")
		}

		return c.JSON(fiber.Map{
			"location":    loc,
			"from":        from,
			"to":          to,
			"predictions": records,
		})
	})
}

// statusForError maps the error taxonomy onto HTTP status codes so callers
// can distinguish retryable failures from bugs.
func statusForError(err error) int {
	switch {
	case errors.Is(err, weather.ErrInvalidCoordinates):
		return fiber.StatusBadRequest
	case errors.Is(err, spaceweather.ErrUpstreamUnavailable), errors.Is(err, weather.ErrUnavailable):
		return fiber.StatusServiceUnavailable
	case errors.Is(err, features.ErrFeatureSchema):
		// Contract violation from an upstream source: a bug, not transient.
		log.Printf("ERROR: feature schema violation: %v", err)
		return fiber.StatusInternalServerError
	default:
		return fiber.StatusInternalServerError
	}
}

// predictRequest is the /predict body. Pointers distinguish an omitted
// coordinate from a legitimate zero.
type predictRequest struct {
	Latitude  *float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
	Timestamp string   `json:"timestamp,omitempty"`
}

// parseLocationQuery reads lat/lon query parameters.
func parseLocationQuery(c *fiber.Ctx) (weather.Location, error) {
	lat, err := strconv.ParseFloat(c.Query("lat"), 64)
	if err != nil {
		return weather.Location{}, errors.New("lat query parameter is required and must be numeric")
	}
	lon, err := strconv.ParseFloat(c.Query("lon"), 64)
	if err != nil {
		return weather.Location{}, errors.New("lon query parameter is required and must be numeric")
	}

	loc := weather.Location{Latitude: lat, Longitude: lon}
	if err := loc.Validate(); err != nil {
		return weather.Location{}, err
	}
	return loc, nil
}

// parseTime tries to parse either RFC3339 or Unix seconds.
func parseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts.UTC(), nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errors.New("invalid time format; use RFC3339 or unix seconds")
}
