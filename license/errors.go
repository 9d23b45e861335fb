/*
errors.go - Centralized error types for the license engine

ERROR TAXONOMY (see also reconcile.go Notes):
  1. Data-quality gaps  - never surfaced as errors; collected as notes
  2. Missing prerequisite data - sentinel errors below, mapped to 404s
  3. Persistence failures - wrapped storage errors, mapped to 500s

USAGE:
  if errors.Is(err, license.ErrNoBaselineData) { ... }
*/
package license

import "errors"

var (
	// ErrNoBaselineData is returned when a tenant has not loaded the source
	// license extract the working set is rebuilt from.
	ErrNoBaselineData = errors.New("no baseline license data loaded for tenant")

	// ErrRoleNotFound is returned when a role detail read targets a role
	// absent from the tenant's working set.
	ErrRoleNotFound = errors.New("role not found")

	// ErrNoReferenceData is returned when a reference read finds no rows for
	// the requested (object, field).
	ErrNoReferenceData = errors.New("no reference data for authorization object and field")
)

// IsNotFound reports whether err indicates missing prerequisite or requested
// data, i.e. a client-visible 404 rather than a server fault.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNoBaselineData) ||
		errors.Is(err, ErrRoleNotFound) ||
		errors.Is(err, ErrNoReferenceData)
}
