package query

import "strings"

// Endpoint names used in validation errors.
const (
	EndpointStart       = "start"
	EndpointDestination = "destination"
)

// ValidationError reports endpoints without a selected coordinate.
// It is returned before any call is made.
type ValidationError struct {
	Endpoints []string
}

func (e *ValidationError) Error() string {
	return "select a " + strings.Join(e.Endpoints, " and ") + " location from the suggestions"
}
