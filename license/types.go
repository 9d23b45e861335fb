/*
Package license provides the core license-classification simulation engine.

PURPOSE:
  This package contains the domain types and algorithms for simulating the
  license impact of changes to SAP role authorizations. Given a working set
  of role-to-authorization-object assignments and a batch of proposed
  changes, it reconciles the working set, resolves the effective license
  classification per role and per user, and aggregates Full User Equivalent
  (FUE) counts.

KEY CONCEPTS IN THIS FILE (types.go):
  - Tenant: A (client, system) pair scoping all data
  - RoleObjectAssignment: One row of the simulation working set
  - ChangeRequest: One proposed change submitted for a simulation run
  - SimulationResultRecord: The persisted outcome of one change in a run
  - UserRole: One user-to-role membership

DESIGN PRINCIPLES:
  1. Purity: Reconcile and ComputeFUE take working sets by value and return
     new state; persistence happens only at transaction boundaries.
  2. Precision: FUE fractions use decimal.Decimal, never float64.
  3. Type Safety: Classification and Operation are enumerated types, not
     loosely-typed strings.

SEE ALSO:
  - classification.go: Severity ordering and most-restrictive resolution
  - reconcile.go: Working-set reconciliation
  - aggregate.go: FUE aggregation
  - runid.go: Simulation run id sequencing
*/
package license

import (
	"fmt"
	"time"
)

// =============================================================================
// TENANT - (client, system) scope for all data
// =============================================================================

// Tenant identifies one (client, system) pair. Every table row is scoped to
// a tenant; there is no cross-tenant read or write anywhere in the engine.
type Tenant struct {
	Client string
	System string
}

func (t Tenant) String() string {
	return fmt.Sprintf("%s/%s", t.Client, t.System)
}

// IsZero reports whether either component is missing.
func (t Tenant) IsZero() bool {
	return t.Client == "" || t.System == ""
}

// =============================================================================
// OPERATIONS - Pending operation on a working-set row
// =============================================================================

type Operation string

const (
	OpNone   Operation = ""       // Untouched copy-forward
	OpAdd    Operation = "Add"    // Freshly materialized row
	OpChange Operation = "Change" // Activity value changed
	OpRemove Operation = "Remove" // Authorization removed
)

// =============================================================================
// ROLE OBJECT ASSIGNMENT - One row of the simulation working set
// =============================================================================

// RoleObjectAssignment is one role x object x field x low x high tuple.
// The five identity fields form the composite natural key; no two rows in
// a tenant's working set share all five.
//
// Classification is the baseline license from the source extract. Operation,
// NewValue and NewLicense describe the row's state after reconciliation:
// every row ends a run in exactly one of copy-forward, Change, Remove or Add.
// Empty strings stand for null throughout.
type RoleObjectAssignment struct {
	Role     string // AGR_NAME
	RoleText string // AGR_TEXT
	Object   string
	Text     string // TTEXT, object description
	Field    string
	Low      string
	High     string

	Classification     Classification // baseline object license (CLASSIF_S4)
	RoleClassification Classification // baseline role license (AGR_CLASSIF)

	Operation  Operation
	NewValue   string
	NewLicense Classification
}

// AssignmentKey is the composite natural key of a working-set row.
type AssignmentKey struct {
	Role   string
	Object string
	Field  string
	Low    string
	High   string
}

// Key returns the composite natural key of the row.
func (a RoleObjectAssignment) Key() AssignmentKey {
	return AssignmentKey{Role: a.Role, Object: a.Object, Field: a.Field, Low: a.Low, High: a.High}
}

// =============================================================================
// CHANGE REQUEST - One proposed change in a simulation batch
// =============================================================================

// ChangeRequest is one proposed change against the working set. It is
// ephemeral: its effects are persisted via working-set mutation and
// SimulationResultRecord creation, never as-is.
type ChangeRequest struct {
	Role           string
	Object         string
	Field          string
	ValueLow       string
	ValueHigh      string
	RoleText       string
	Classification Classification // baseline, as the client saw it
	Action         Operation      // OpAdd, OpChange, OpRemove or OpNone
	NewValueUIText string         // "activity;description;license"
	IsNewObject    bool
}

// Key returns the composite natural key the change targets.
func (c ChangeRequest) Key() AssignmentKey {
	return AssignmentKey{Role: c.Role, Object: c.Object, Field: c.Field, Low: c.ValueLow, High: c.ValueHigh}
}

// =============================================================================
// USER ROLE MEMBERSHIP
// =============================================================================

// UserRole maps a user identifier to a role name. Many-to-many; read-only
// within the engine.
type UserRole struct {
	User string // UNAME
	Role string // AGR_NAME
}

// =============================================================================
// REFERENCE DATA - Authorization object license lookup
// =============================================================================

// AuthObjectLicense maps (authorization object, field, activity) to a
// canonical license classification. Loaded from CSV by ingestion and used
// read-only by the reconciler when materializing Add operations.
type AuthObjectLicense struct {
	Object   string
	Field    string
	Activity string
	Text     string
	License  Classification
	UIText   string
}

// LicenseLookup resolves the license for (object, field, activity).
// The second return value is false when no reference row matches; per the
// error taxonomy that is a data-quality gap, never a failure.
type LicenseLookup func(object, field, activity string) (Classification, bool)

// =============================================================================
// SIMULATION RESULT RECORD - Per-change outcome of a run
// =============================================================================

type RunStatus string

const (
	StatusInProgress RunStatus = "In Progress"
	StatusCompleted  RunStatus = "Completed"
	StatusFailed     RunStatus = "Failed"
)

// SimulationResultRecord is one row per change in a run. Created eagerly with
// StatusInProgress before reconciliation, then finalized by primary key once
// the run completes. Never deleted; accumulates history across runs.
type SimulationResultRecord struct {
	ID        int64
	RunID     string
	Timestamp time.Time
	Status    RunStatus
	Tenant    Tenant

	// FUERequired is the denormalized run total, string-encoded.
	FUERequired string

	Role           string
	RoleText       string
	Object         string
	Field          string
	ValueLow       string
	ValueHigh      string
	Operation      Operation
	PrevLicense    Classification
	CurrentLicense Classification
}
