/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract. Field names
  follow the UI's existing wire format (role_id, field_name, ttext and so
  on), so the frontend needs no changes.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Payload: Request body types from clients
  - *Response: Complex response wrappers

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - license/types.go: Domain equivalents
*/
package api

import "github.com/warp/license-engine/license"

// =============================================================================
// SIMULATION SUBMISSION
// =============================================================================

// ChangePayload is one proposed change in a simulation batch, as the UI
// sends it.
type ChangePayload struct {
	RoleID         string `json:"role_id"`
	Object         string `json:"object"`
	FieldName      string `json:"field_name"`
	ValueLow       string `json:"value_low"`
	ValueHigh      string `json:"value_high"`
	TText          string `json:"ttext,omitempty"`
	Classification string `json:"classification,omitempty"`
	Action         string `json:"action"`
	NewValueUIText string `json:"new_value_ui_text,omitempty"`
	IsNewObject    bool   `json:"is_new_object"`
	FrontendID     int    `json:"frontend_id,omitempty"`
}

func (p ChangePayload) toDomain() license.ChangeRequest {
	return license.ChangeRequest{
		Role:           p.RoleID,
		Object:         p.Object,
		Field:          p.FieldName,
		ValueLow:       p.ValueLow,
		ValueHigh:      p.ValueHigh,
		RoleText:       p.TText,
		Classification: license.Classification(p.Classification),
		Action:         license.Operation(p.Action),
		NewValueUIText: p.NewValueUIText,
		IsNewObject:    p.IsNewObject,
	}
}

// SubmitRunResponse acknowledges an accepted simulation run.
type SubmitRunResponse struct {
	SimulationRunID string `json:"simulation_run_id"`
	Status          string `json:"status"`
	Timestamp       string `json:"timestamp"`
	ChangesReceived int    `json:"changes_received"`
	RolesAffected   int    `json:"roles_affected"`
}

// =============================================================================
// RUN HISTORY
// =============================================================================

// RunChangeDTO is one change row within a run.
type RunChangeDTO struct {
	Role            string `json:"role"`
	RoleDescription string `json:"role_description"`
	Object          string `json:"object"`
	Field           string `json:"field"`
	ValueLow        string `json:"value_low"`
	ValueHigh       string `json:"value_high"`
	Operation       string `json:"operation"`
	PrevLicense     string `json:"prev_license"`
	CurrentLicense  string `json:"current_license"`
	Status          string `json:"status"`
}

// RunDTO is one simulation run with its changes. Status is the rollup of
// the run's rows: Failed > In Progress > Completed.
type RunDTO struct {
	SimulationRunID string         `json:"simulation_run_id"`
	Timestamp       string         `json:"timestamp"`
	FUERequired     string         `json:"fue_required"`
	Status          string         `json:"status"`
	Changes         []RunChangeDTO `json:"changes"`
}

// RunListResponse wraps the run history.
type RunListResponse struct {
	Message    string   `json:"message"`
	ClientName string   `json:"client_name"`
	SystemName string   `json:"system_name"`
	Results    []RunDTO `json:"results"`
}

// =============================================================================
// FUE PIVOT
// =============================================================================

// FUEPivotResponse mirrors the UI's pivot table: user counts per tier plus
// the FUE summary.
type FUEPivotResponse struct {
	PivotTable struct {
		Users map[string]int64 `json:"Users"`
	} `json:"pivot_table"`
	FUESummary map[string]int64 `json:"fue_summary"`
	ClientName string           `json:"client_name"`
	SystemName string           `json:"system_name"`
}

// =============================================================================
// ROLES
// =============================================================================

// RoleDetailDTO is one role in the role listing.
type RoleDetailDTO struct {
	ID             string `json:"id"`
	Profile        string `json:"profile"`
	Description    string `json:"description"`
	Classification string `json:"classification"`
	AssignedUsers  int64  `json:"assignedUsers"`
	GB             int64  `json:"gb"`
	GC             int64  `json:"gc"`
	GD             int64  `json:"gd"`
}

// RoleObjectDetailDTO is one authorization object row of a role.
type RoleObjectDetailDTO struct {
	Object         string `json:"object"`
	Classification string `json:"classification"`
	FieldName      string `json:"fieldName"`
	ValueLow       string `json:"valueLow"`
	ValueHigh      string `json:"valueHigh"`
	TText          string `json:"ttext"`
}

// RoleObjectsResponse lists one role's objects, most restrictive first.
type RoleObjectsResponse struct {
	RoleName      string                `json:"roleName"`
	ObjectDetails []RoleObjectDetailDTO `json:"objectDetails"`
}

// =============================================================================
// REFERENCE SUGGESTIONS
// =============================================================================

// SuggestionDTO is one Add-operation suggestion for (object, field).
type SuggestionDTO struct {
	Value   string `json:"value"`
	License string `json:"license"`
	UIText  string `json:"ui_text"`
	Text    string `json:"text"`
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is the error body for all non-2xx responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
