package httpapi

import (
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/i474232898/weather-forecast/internal/artifact"
	"github.com/i474232898/weather-forecast/internal/features"
	"github.com/i474232898/weather-forecast/internal/forecast"
	"github.com/i474232898/weather-forecast/internal/scheduler"
	"github.com/i474232898/weather-forecast/internal/store"
	"github.com/i474232898/weather-forecast/internal/weather"
)

var validate = validator.New()

// StatusReporter exposes the background scheduler state.
type StatusReporter interface {
	Status() scheduler.Status
}

// Deps are the components the handlers call into.
type Deps struct {
	Engine    *forecast.Engine
	Service   *weather.Service
	Scheduler StatusReporter // nil when the scheduler is disabled
	Logger    *zap.Logger
	Now       func() time.Time
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, deps Deps) {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":       "ok",
			"service":      "weather-forecast",
			"model_exists": deps.Engine.Metrics().ModelExists,
		})
	})

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api")

	api.Get("/metrics", func(c *fiber.Ctx) error {
		return c.JSON(deps.Engine.Metrics())
	})

	api.Post("/predict", func(c *fiber.Ctx) error {
		var req predictRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid JSON body")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		p, err := deps.Engine.PredictCalendar(c.UserContext(), *req.Month, *req.Day, *req.Hour, *req.Temp)
		if err != nil {
			return err
		}
		return c.JSON(p)
	})

	api.Post("/forecast", func(c *fiber.Ctx) error {
		var req forecastRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "invalid JSON body")
			}
		}

		ts, temp, err := resolveObservation(c, deps, req)
		if err != nil {
			return err
		}

		report, err := deps.Engine.Report(c.UserContext(), ts, temp)
		if err != nil {
			return err
		}
		return c.JSON(report)
	})

	api.Get("/observations", func(c *fiber.Ctx) error {
		var req historyQuery
		if err := req.bind(c, deps.Engine.Location()); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		observations, err := deps.Service.Range(c.UserContext(), req.From, req.To)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no observations for requested range")
			}
			return err
		}

		return c.JSON(fiber.Map{
			"from":         req.From,
			"to":           req.To,
			"observations": observations,
		})
	})

	api.Get("/scheduler", func(c *fiber.Ctx) error {
		if deps.Scheduler == nil {
			return c.JSON(fiber.Map{"enabled": false})
		}
		return c.JSON(fiber.Map{
			"enabled": true,
			"status":  deps.Scheduler.Status(),
		})
	})
}

// resolveObservation picks the observation a forecast starts from. Without a
// temperature the current conditions are fetched and recorded; with one the
// submitted value is recorded for its hour.
func resolveObservation(c *fiber.Ctx, deps Deps, req forecastRequest) (time.Time, float64, error) {
	if req.Temperature == nil {
		if deps.Service == nil {
			return time.Time{}, 0, fiber.NewError(fiber.StatusBadRequest, "temperature is required")
		}
		cond, err := deps.Service.FetchAndStore(c.UserContext())
		if err != nil {
			return time.Time{}, 0, err
		}
		return cond.StartTime, cond.Temperature, nil
	}

	ts := deps.Now()
	if req.Timestamp != "" {
		parsed, err := parseTime(req.Timestamp, deps.Engine.Location())
		if err != nil {
			return time.Time{}, 0, fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		ts = parsed
	}

	if deps.Service != nil {
		if _, err := deps.Service.Observe(c.UserContext(), ts, *req.Temperature); err != nil {
			// The forecast does not depend on this write.
			deps.Logger.Warn("failed to record submitted temperature", zap.Error(err))
		}
	}
	return ts, *req.Temperature, nil
}

// predictRequest is the legacy calendar prediction body. Ranges are checked
// by the engine so the error names the offending field.
type predictRequest struct {
	Month *int     `json:"month" validate:"required"`
	Day   *int     `json:"day" validate:"required"`
	Hour  *int     `json:"hour" validate:"required"`
	Temp  *float64 `json:"temp" validate:"required"`
}

type forecastRequest struct {
	Timestamp   string   `json:"timestamp"`
	Temperature *float64 `json:"temperature"`
}

// historyQuery holds query parameters for the observations endpoint.
type historyQuery struct {
	From time.Time `validate:"required"`
	To   time.Time `validate:"required,gtefield=From"`
}

func (h *historyQuery) bind(c *fiber.Ctx, loc *time.Location) error {
	fromStr := c.Query("from")
	toStr := c.Query("to")
	if fromStr == "" || toStr == "" {
		return errors.New("from and to query parameters are required")
	}

	from, err := parseTime(fromStr, loc)
	if err != nil {
		return err
	}
	to, err := parseTime(toStr, loc)
	if err != nil {
		return err
	}

	h.From = from
	h.To = to
	return nil
}

// parseTime tries to parse RFC3339, the dashboard layout or Unix seconds.
// The dashboard layout carries no offset and is read as wall time in loc.
func parseTime(s string, loc *time.Location) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	if ts, err := time.ParseInLocation("2006-01-02T15:04", s, loc); err == nil {
		return ts, nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errors.New("invalid time format; use RFC3339 or unix seconds")
}

// StatusFor maps domain errors to HTTP status codes.
func StatusFor(err error) int {
	var (
		fe  *fiber.Error
		ve  *features.ValidationError
		vse validator.ValidationErrors
		le  *artifact.LoadError
	)
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.As(err, &ve), errors.As(err, &vse):
		return fiber.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return fiber.StatusNotFound
	case errors.As(err, &le), errors.Is(err, artifact.ErrUnavailable):
		return fiber.StatusServiceUnavailable
	case errors.Is(err, weather.ErrNoReadings):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

// ErrorHandler is the centralized error response.
func ErrorHandler(c *fiber.Ctx, err error) error {
	return c.Status(StatusFor(err)).JSON(fiber.Map{
		"error":   true,
		"message": err.Error(),
	})
}
