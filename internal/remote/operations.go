package remote

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Operation names a remote service call.
type Operation string

const (
	OpSearchLocations    Operation = "searchLocations"
	OpPlanRoute          Operation = "planRoute"
	OpForecastWeather    Operation = "forecastWeather"
	OpRecommendDeparture Operation = "recommendDeparture"
)

// Params are the named arguments of a call.
type Params map[string]any

type endpoint struct {
	method string
	path   string
	// Only lookups whose result does not depend on the wall clock are memoized.
	cacheable bool
}

var endpoints = map[Operation]endpoint{
	OpSearchLocations:    {method: http.MethodGet, path: "/geocoding/search", cacheable: true},
	OpPlanRoute:          {method: http.MethodPost, path: "/route/plan"},
	OpForecastWeather:    {method: http.MethodPost, path: "/weather/forecast"},
	OpRecommendDeparture: {method: http.MethodPost, path: "/recommendation/departure"},
}

// Cacheable reports whether results of op are memoized.
func Cacheable(op Operation) bool {
	return endpoints[op].cacheable
}

// keyPrecision is the number of decimals floats are normalized to in cache keys.
const keyPrecision = 6

// CacheKey derives the deterministic key of a call: method, path and the
// parameters sorted by name with numbers normalized to a fixed precision.
func CacheKey(op Operation, params Params) (string, error) {
	ep, ok := endpoints[op]
	if !ok {
		return "", fmt.Errorf("unknown operation %q", op)
	}

	values := url.Values{}
	for k, v := range params {
		if s, ok := canonicalValue(v); ok {
			values.Set(k, s)
		}
	}
	return ep.method + " " + ep.path + "?" + values.Encode(), nil
}

// canonicalValue renders v for keys and query strings. Nil values are dropped.
func canonicalValue(v any) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "", false
	case string:
		return x, true
	case float64:
		return strconv.FormatFloat(x, 'f', keyPrecision, 64), true
	case float32:
		return strconv.FormatFloat(float64(x), 'f', keyPrecision, 32), true
	case int:
		return strconv.Itoa(x), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case bool:
		return strconv.FormatBool(x), true
	case time.Time:
		return x.UTC().Format(time.RFC3339), true
	case *time.Time:
		if x == nil {
			return "", false
		}
		return x.UTC().Format(time.RFC3339), true
	default:
		return fmt.Sprint(x), true
	}
}
