package remote

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/i474232898/route-risk/internal/route"
)

// SearchLocations returns geocoder matches for q. Queries shorter than
// route.MinQueryLength return no suggestions without calling the service.
func (c *Client) SearchLocations(ctx context.Context, q string) ([]route.Suggestion, error) {
	q = strings.TrimSpace(q)
	if utf8.RuneCountInString(q) < route.MinQueryLength {
		return nil, nil
	}

	body, err := c.Call(ctx, OpSearchLocations, Params{"q": q})
	if err != nil {
		return nil, err
	}

	var payload searchPayload
	if err := decode(OpSearchLocations, body, &payload); err != nil {
		return nil, err
	}

	out := make([]route.Suggestion, 0, len(payload.Results))
	for _, r := range payload.Results {
		coord, err := route.NewCoordinate(r.Lat, r.Lon)
		if err != nil {
			c.log.Warn("skipping suggestion with invalid coordinate", "name", r.DisplayName, "error", err)
			continue
		}
		out = append(out, route.Suggestion{DisplayName: r.DisplayName, Coordinate: coord})
	}
	return out, nil
}

// PlanRoute asks the service for a segmented, risk-scored route.
func (c *Client) PlanRoute(ctx context.Context, req route.PlanRequest) (*route.PlannedRoute, error) {
	params := Params{
		"start_lat": req.Start.Latitude,
		"start_lon": req.Start.Longitude,
		"end_lat":   req.End.Latitude,
		"end_lon":   req.End.Longitude,
	}
	if req.DepartureTime != nil {
		params["departure_time"] = req.DepartureTime.Format(time.RFC3339)
	}

	body, err := c.Call(ctx, OpPlanRoute, params)
	if err != nil {
		return nil, err
	}

	var payload planPayload
	if err := decode(OpPlanRoute, body, &payload); err != nil {
		return nil, err
	}
	planned, err := payload.toRoute()
	if err != nil {
		return nil, invalidPayload(OpPlanRoute, err)
	}
	return planned, nil
}

// RecommendDeparture asks the service for the least risky departure within the window.
// A non-positive window falls back to route.DefaultWindowHours.
func (c *Client) RecommendDeparture(ctx context.Context, req route.RecommendRequest) (*route.DepartureRecommendation, error) {
	window := req.WindowHours
	if window <= 0 {
		window = route.DefaultWindowHours
	}

	body, err := c.Call(ctx, OpRecommendDeparture, Params{
		"start_lat":         req.Start.Latitude,
		"start_lon":         req.Start.Longitude,
		"end_lat":           req.End.Latitude,
		"end_lon":           req.End.Longitude,
		"time_window_hours": window,
	})
	if err != nil {
		return nil, err
	}

	var payload recommendPayload
	if err := decode(OpRecommendDeparture, body, &payload); err != nil {
		return nil, err
	}
	return payload.toRecommendation(), nil
}

// ForecastWeather returns the hourly outlook at loc starting from start.
func (c *Client) ForecastWeather(ctx context.Context, loc route.Coordinate, start time.Time) (*route.Forecast, error) {
	if start.IsZero() {
		start = time.Now()
	}

	body, err := c.Call(ctx, OpForecastWeather, Params{
		"latitude":   loc.Latitude,
		"longitude":  loc.Longitude,
		"start_time": start.Format(time.RFC3339),
	})
	if err != nil {
		return nil, err
	}

	var payload forecastPayload
	if err := decode(OpForecastWeather, body, &payload); err != nil {
		return nil, err
	}
	forecast, err := payload.toForecast()
	if err != nil {
		return nil, invalidPayload(OpForecastWeather, err)
	}
	return forecast, nil
}

func invalidPayload(op Operation, err error) *RemoteError {
	return newRemoteError(op, http.StatusOK, err.Error(), fmt.Errorf("%w: %w", errDecode, err))
}
