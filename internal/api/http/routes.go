package httpapi

import (
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/route-risk/internal/metrics"
	"github.com/i474232898/route-risk/internal/query"
	"github.com/i474232898/route-risk/internal/remote"
	"github.com/i474232898/route-risk/internal/route"
	"github.com/i474232898/route-risk/internal/session"
	"github.com/i474232898/route-risk/internal/suggest"
	"github.com/i474232898/route-risk/internal/view"
)

var validate = validator.New()

// RegisterRoutes wires the HTTP and WebSocket handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, sess *session.Session, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}

	app.Use(metrics.Middleware())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", metrics.Handler())

	registerWebSocket(app, sess, logger)

	v1 := app.Group("/api/v1")

	v1.Get("/session", func(c *fiber.Ctx) error {
		return c.JSON(sess.Snapshot())
	})

	fields := v1.Group("/fields/:field")

	fields.Put("/text", func(c *fiber.Ctx) error {
		engine, err := fieldEngine(c, sess)
		if err != nil {
			return err
		}
		var req textRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		engine.OnTextChanged(req.Text)
		return c.Status(fiber.StatusAccepted).JSON(engine.Snapshot())
	})

	fields.Post("/select", func(c *fiber.Ctx) error {
		engine, err := fieldEngine(c, sess)
		if err != nil {
			return err
		}
		var req selectRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if !engine.SelectIndex(*req.Index) {
			return fiber.NewError(fiber.StatusConflict, "no suggestion at index "+strconv.Itoa(*req.Index))
		}
		return c.JSON(engine.Snapshot())
	})

	fields.Post("/key", func(c *fiber.Ctx) error {
		engine, err := fieldEngine(c, sess)
		if err != nil {
			return err
		}
		var req keyRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		key, err := suggest.ParseKey(req.Key)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		handled := engine.HandleKey(key)
		return c.JSON(fiber.Map{"handled": handled, "field": engine.Snapshot()})
	})

	fields.Post("/retry", func(c *fiber.Ctx) error {
		engine, err := fieldEngine(c, sess)
		if err != nil {
			return err
		}
		engine.Retry()
		return c.Status(fiber.StatusAccepted).JSON(engine.Snapshot())
	})

	v1.Post("/route/plan", func(c *fiber.Ctx) error {
		var req planRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
			}
		}
		err := sess.Orchestrator.PlanRoute(query.PlanOptions{
			DepartureTime:       req.DepartureTime,
			ClearRecommendation: req.ClearRecommendation,
		})
		if err != nil {
			return validationFailure(c, err)
		}
		return c.Status(fiber.StatusAccepted).JSON(sess.Orchestrator.Snapshot())
	})

	v1.Post("/recommendation", func(c *fiber.Ctx) error {
		var req recommendRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
			}
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := sess.Orchestrator.RecommendDeparture(req.WindowHours); err != nil {
			return validationFailure(c, err)
		}
		return c.Status(fiber.StatusAccepted).JSON(sess.Orchestrator.Snapshot())
	})

	v1.Get("/route/map", func(c *fiber.Ctx) error {
		planned, err := currentRoute(sess)
		if err != nil {
			return err
		}
		c.Set(fiber.HeaderContentType, "application/geo+json")
		body, err := view.Map(planned, sess.Classifier).MarshalJSON()
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to render map")
		}
		return c.Send(body)
	})

	v1.Get("/route/legend", func(c *fiber.Ctx) error {
		return c.JSON(view.Legend(sess.Classifier))
	})

	v1.Get("/route/timeline", func(c *fiber.Ctx) error {
		planned, err := currentRoute(sess)
		if err != nil {
			return err
		}
		return c.JSON(view.BuildTimeline(planned, sess.Classifier))
	})

	v1.Get("/route/alerts", func(c *fiber.Ctx) error {
		planned, err := currentRoute(sess)
		if err != nil {
			return err
		}
		return c.JSON(view.BuildAlerts(planned.Segments, sess.Classifier))
	})

	v1.Get("/weather/forecast", func(c *fiber.Ctx) error {
		var req forecastQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		loc, err := route.NewCoordinate(*req.Lat, *req.Lon)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		forecast, err := sess.Forecast(c.UserContext(), loc, req.Start)
		if err != nil {
			logger.Warn("forecast lookup failed", "error", err)
			var remoteErr *remote.RemoteError
			if errors.As(err, &remoteErr) && remoteErr.Timeout() {
				return fiber.NewError(fiber.StatusGatewayTimeout, err.Error())
			}
			return fiber.NewError(fiber.StatusBadGateway, err.Error())
		}
		return c.JSON(forecast)
	})
}

func fieldEngine(c *fiber.Ctx, sess *session.Session) (*suggest.Engine, error) {
	engine, ok := sess.Field(session.Field(c.Params("field")))
	if !ok {
		return nil, fiber.NewError(fiber.StatusNotFound, "unknown field; use start or end")
	}
	return engine, nil
}

func currentRoute(sess *session.Session) (*route.PlannedRoute, error) {
	planned := sess.Orchestrator.Snapshot().Plan.Data
	if planned == nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "no planned route")
	}
	return planned, nil
}

func validationFailure(c *fiber.Ctx, err error) error {
	var verr *query.ValidationError
	if errors.As(err, &verr) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":     verr.Error(),
			"endpoints": verr.Endpoints,
		})
	}
	return fiber.NewError(fiber.StatusInternalServerError, err.Error())
}

type textRequest struct {
	Text string `json:"text"`
}

type selectRequest struct {
	Index *int `json:"index" validate:"required,gte=0"`
}

type keyRequest struct {
	Key string `json:"key" validate:"required"`
}

type planRequest struct {
	DepartureTime       *time.Time `json:"departure_time"`
	ClearRecommendation bool       `json:"clear_recommendation"`
}

type recommendRequest struct {
	WindowHours int `json:"time_window_hours" validate:"omitempty,gte=1,lte=48"`
}

// forecastQuery holds query parameters for the forecast endpoint.
type forecastQuery struct {
	Lat   *float64 `validate:"required,gte=-90,lte=90"`
	Lon   *float64 `validate:"required,gte=-180,lte=180"`
	Start time.Time
}

func (f *forecastQuery) bind(c *fiber.Ctx) error {
	latStr, lonStr := c.Query("lat"), c.Query("lon")
	if latStr == "" || lonStr == "" {
		return errors.New("lat and lon query parameters are required")
	}
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return errors.New("lat must be a number")
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return errors.New("lon must be a number")
	}
	f.Lat, f.Lon = &lat, &lon

	if s := c.Query("start"); s != "" {
		start, err := parseTime(s)
		if err != nil {
			return err
		}
		f.Start = start
	}
	return nil
}

// parseTime tries to parse either RFC3339 or Unix seconds.
func parseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errors.New("invalid time format; use RFC3339 or unix seconds")
}
