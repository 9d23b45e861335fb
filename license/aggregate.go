/*
aggregate.go - Full User Equivalent (FUE) aggregation

PURPOSE:
  Joins the reconciled working set against the user-to-role mapping and
  computes the per-tenant FUE pivot: how many users land in each license
  tier, and how many whole licenses that requires.

RESOLUTION CHAIN:
  object license -> role license -> user license, each step taking the most
  restrictive classification (see classification.go). Roles with no
  recognized-tier object drop out entirely; users whose roles all dropped
  out are excluded from every count.

FUE WEIGHTS (fixed):
  GB Advanced Use      1 user  = 1 FUE
  GC Core Use          5 users = 1 FUE
  GD Self-Service Use 30 users = 1 FUE

  Per-tier FUE is ceil(users / divisor) computed in decimal, so 0.2 users
  round up to 1 FUE and 0 users stay exactly 0. The total is the sum of the
  three per-tier values; rounding happens per tier, never on the grand total.

SEE ALSO:
  - reconcile.go: Produces the working set consumed here
  - api/handlers.go: Read-only FUE pivot endpoint
*/
package license

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// RESULT TYPES
// =============================================================================

// TierCounts holds one figure per license tier plus the total.
type TierCounts struct {
	Advanced    int64
	Core        int64
	SelfService int64
	Total       int64
}

// FUEReport is the per-tenant license pivot: user headcount per tier and
// the whole-license FUE requirement per tier.
type FUEReport struct {
	Users TierCounts
	FUE   TierCounts
}

// TotalFUE is the run total as a decimal, convenient for string encoding.
func (r FUEReport) TotalFUE() decimal.Decimal {
	return decimal.NewFromInt(r.FUE.Total)
}

// =============================================================================
// ROLE RESOLUTION
// =============================================================================

// RoleLicenses resolves each role's single current classification: the most
// restrictive recognized NEW license among the role's reconciled rows.
// Roles with no recognized-tier row are absent from the result.
func RoleLicenses(snapshot []RoleObjectAssignment) map[string]Classification {
	byRole := make(map[string][]Classification)
	for _, row := range snapshot {
		if row.NewLicense.Recognized() {
			byRole[row.Role] = append(byRole[row.Role], row.NewLicense)
		}
	}

	resolved := make(map[string]Classification, len(byRole))
	for role, labels := range byRole {
		resolved[role] = MostRestrictive(labels)
	}
	return resolved
}

// =============================================================================
// FUE AGGREGATION
// =============================================================================

var (
	coreDivisor        = decimal.NewFromInt(5)
	selfServiceDivisor = decimal.NewFromInt(30)
)

// ComputeFUE resolves every user's effective classification and buckets the
// results into the FUE pivot. An empty working set or user mapping yields
// an all-zero report, never an error.
func ComputeFUE(snapshot []RoleObjectAssignment, userRoles []UserRole) FUEReport {
	roleLic := RoleLicenses(snapshot)

	byUser := make(map[string][]Classification)
	for _, ur := range userRoles {
		lic, ok := roleLic[ur.Role]
		if !ok {
			continue
		}
		byUser[ur.User] = append(byUser[ur.User], lic)
	}

	var report FUEReport
	for _, labels := range byUser {
		switch MostRestrictive(labels) {
		case ClassAdvanced:
			report.Users.Advanced++
		case ClassCore:
			report.Users.Core++
		case ClassSelfService:
			report.Users.SelfService++
		default:
			continue
		}
		report.Users.Total++
	}

	report.FUE.Advanced = report.Users.Advanced
	report.FUE.Core = ceilDiv(report.Users.Core, coreDivisor)
	report.FUE.SelfService = ceilDiv(report.Users.SelfService, selfServiceDivisor)
	report.FUE.Total = report.FUE.Advanced + report.FUE.Core + report.FUE.SelfService

	return report
}

// ceilDiv returns ceil(count / divisor) computed in decimal. Exact multiples
// divide exactly, so there is no floating-point under-rounding.
func ceilDiv(count int64, divisor decimal.Decimal) int64 {
	if count == 0 {
		return 0
	}
	return decimal.NewFromInt(count).Div(divisor).Ceil().IntPart()
}
