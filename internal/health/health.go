// Package health defines the probe contract surfaced on the readiness
// endpoint. Each broker producer registers a checker; the HTTP boundary
// aggregates the results.
package health

import "context"

// CheckResult is one probe outcome as exposed to the health aggregation
// endpoint.
type CheckResult struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Message string `json:"message"`
}

// Checker is anything that can report on its own connection health.
type Checker interface {
	Check(ctx context.Context) CheckResult
}

// CheckAll runs every checker and reports whether all of them are healthy.
func CheckAll(ctx context.Context, checkers []Checker) ([]CheckResult, bool) {
	results := make([]CheckResult, 0, len(checkers))
	healthy := true
	for _, c := range checkers {
		result := c.Check(ctx)
		if !result.Healthy {
			healthy = false
		}
		results = append(results, result)
	}
	return results, healthy
}
