/*
handlers.go - HTTP request handlers

PURPOSE:
  Implements all HTTP endpoints of the simulation API. Each handler:
  1. Extracts the tenant from query parameters
  2. Parses and validates input
  3. Calls into the store and the license engine
  4. Serializes the response

TENANT SCOPING:
  Every endpoint requires client_name and system_name query parameters.
  A missing pair is a 400; no handler ever falls back to a default tenant.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input, malformed uploads
  - 404: Unknown role, missing baseline or reference data
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - runner.go: Background run processing
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/warp/license-engine/ingest"
	"github.com/warp/license-engine/license"
	"github.com/warp/license-engine/obs"
	"github.com/warp/license-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store  *sqlite.Store
	Loader *ingest.Loader
	Runner *Runner
}

// NewHandler creates a new handler with the given store and runner.
func NewHandler(store *sqlite.Store, runner *Runner) *Handler {
	return &Handler{
		Store:  store,
		Loader: ingest.NewLoader(store),
		Runner: runner,
	}
}

// tenantFromRequest extracts the (client_name, system_name) pair. The
// boolean is false when the pair is incomplete; the 400 has been written.
func tenantFromRequest(w http.ResponseWriter, r *http.Request) (license.Tenant, bool) {
	t := license.Tenant{
		Client: r.URL.Query().Get("client_name"),
		System: r.URL.Query().Get("system_name"),
	}
	if t.IsZero() {
		writeError(w, http.StatusBadRequest, "client_name and system_name are required", nil)
		return license.Tenant{}, false
	}
	return t, true
}

// =============================================================================
// SIMULATION RUNS
// =============================================================================

// SubmitSimulation accepts a batch of changes, eagerly persists one
// In Progress result row per change, and hands the run to the background
// runner. The response returns immediately with the new run id.
func (h *Handler) SubmitSimulation(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantFromRequest(w, r)
	if !ok {
		return
	}

	var payload []ChangePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if len(payload) == 0 {
		writeError(w, http.StatusBadRequest, "At least one change is required", nil)
		return
	}

	changes := make([]license.ChangeRequest, len(payload))
	roles := make(map[string]struct{})
	for i, p := range payload {
		switch license.Operation(p.Action) {
		case license.OpAdd, license.OpChange, license.OpRemove, license.OpNone:
		default:
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid action %q", p.Action), nil)
			return
		}
		if p.RoleID == "" || p.Object == "" {
			writeError(w, http.StatusBadRequest, "role_id and object are required on every change", nil)
			return
		}
		changes[i] = p.toDomain()
		roles[p.RoleID] = struct{}{}
	}

	last, err := h.Store.LatestRunID(r.Context(), tenant)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to allocate run id", err)
		return
	}
	runID := license.NextRunID(last)

	now := time.Now()
	ids, err := h.Store.InsertResultPlaceholders(r.Context(), tenant, runID, now, changes)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create run records", err)
		return
	}

	obs.RunSubmitted()
	h.Runner.Enqueue(runJob{
		Tenant:    tenant,
		RunID:     runID,
		RecordIDs: ids,
		Changes:   changes,
		Submitted: now,
	})

	writeJSON(w, http.StatusAccepted, SubmitRunResponse{
		SimulationRunID: runID,
		Status:          string(license.StatusInProgress),
		Timestamp:       now.UTC().Format(time.RFC3339),
		ChangesReceived: len(changes),
		RolesAffected:   len(roles),
	})
}

// ListSimulationResults returns the tenant's run history, one entry per run
// with its changes. A run's rollup status is the worst of its rows.
func (h *Handler) ListSimulationResults(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantFromRequest(w, r)
	if !ok {
		return
	}

	records, err := h.Store.ListResults(r.Context(), tenant)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list simulation results", err)
		return
	}

	runs := make(map[string]*RunDTO)
	var order []string
	for _, rec := range records {
		run, seen := runs[rec.RunID]
		if !seen {
			run = &RunDTO{
				SimulationRunID: rec.RunID,
				Timestamp:       rec.Timestamp.UTC().Format(time.RFC3339),
				FUERequired:     rec.FUERequired,
				Status:          string(rec.Status),
				Changes:         []RunChangeDTO{},
			}
			runs[rec.RunID] = run
			order = append(order, rec.RunID)
		}
		run.Status = rollupStatus(run.Status, string(rec.Status))
		run.Changes = append(run.Changes, RunChangeDTO{
			Role:            rec.Role,
			RoleDescription: rec.RoleText,
			Object:          rec.Object,
			Field:           rec.Field,
			ValueLow:        rec.ValueLow,
			ValueHigh:       rec.ValueHigh,
			Operation:       string(rec.Operation),
			PrevLicense:     string(rec.PrevLicense),
			CurrentLicense:  string(rec.CurrentLicense),
			Status:          string(rec.Status),
		})
	}

	results := make([]RunDTO, 0, len(order))
	for _, id := range order {
		results = append(results, *runs[id])
	}

	msg := fmt.Sprintf("Found %d simulation runs", len(results))
	if len(results) == 0 {
		msg = "No simulation results found"
	}
	writeJSON(w, http.StatusOK, RunListResponse{
		Message:    msg,
		ClientName: tenant.Client,
		SystemName: tenant.System,
		Results:    results,
	})
}

// rollupStatus merges row statuses into a run status.
// Priority: Failed > In Progress > Completed.
func rollupStatus(current, next string) string {
	if current == string(license.StatusFailed) || next == string(license.StatusFailed) {
		return string(license.StatusFailed)
	}
	if current == string(license.StatusInProgress) || next == string(license.StatusInProgress) {
		return string(license.StatusInProgress)
	}
	return current
}

// =============================================================================
// FUE PIVOT
// =============================================================================

// GetFUEPivot computes the license distribution and FUE requirement from
// the current working set, materializing it from the baseline when needed.
func (h *Handler) GetFUEPivot(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantFromRequest(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	if err := h.Store.EnsureSnapshot(ctx, tenant); err != nil {
		if errors.Is(err, license.ErrNoBaselineData) {
			writeError(w, http.StatusNotFound, "No baseline data loaded for this client and system", nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to prepare working set", err)
		return
	}

	snapshot, err := h.Store.LoadSnapshot(ctx, tenant)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load working set", err)
		return
	}
	userRoles, err := h.Store.UserRoles(ctx, tenant)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load user roles", err)
		return
	}

	report := license.ComputeFUE(snapshot, userRoles)

	resp := FUEPivotResponse{
		FUESummary: map[string]int64{
			"GB Advanced Use FUE":     report.FUE.Advanced,
			"GC Core Use FUE":         report.FUE.Core,
			"GD Self-Service Use FUE": report.FUE.SelfService,
			"Total FUE Required":      report.FUE.Total,
		},
		ClientName: tenant.Client,
		SystemName: tenant.System,
	}
	resp.PivotTable.Users = map[string]int64{
		"GB Advanced Use":     report.Users.Advanced,
		"GC Core Use":         report.Users.Core,
		"GD Self-Service Use": report.Users.SelfService,
		"Total":               report.Users.Total,
	}
	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// ROLES
// =============================================================================

// ListRoles returns per-role aggregates from the baseline extract.
func (h *Handler) ListRoles(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantFromRequest(w, r)
	if !ok {
		return
	}

	summaries, err := h.Store.RoleSummaries(r.Context(), tenant)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list roles", err)
		return
	}

	dtos := make([]RoleDetailDTO, len(summaries))
	for i, s := range summaries {
		dtos[i] = RoleDetailDTO{
			ID:             s.Role,
			Profile:        s.Role,
			Description:    s.Description,
			Classification: string(s.Classification),
			AssignedUsers:  s.AssignedUsers,
			GB:             s.Advanced,
			GC:             s.Core,
			GD:             s.SelfService,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetRoleObjects returns one role's working-set rows, most restrictive
// classification first.
func (h *Handler) GetRoleObjects(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantFromRequest(w, r)
	if !ok {
		return
	}
	role := chi.URLParam(r, "role")

	ctx := r.Context()
	if err := h.Store.EnsureSnapshot(ctx, tenant); err != nil {
		if errors.Is(err, license.ErrNoBaselineData) {
			writeError(w, http.StatusNotFound, "No baseline data loaded for this client and system", nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to prepare working set", err)
		return
	}

	rows, err := h.Store.RoleSnapshot(ctx, tenant, role)
	if err != nil {
		if errors.Is(err, license.ErrRoleNotFound) {
			writeError(w, http.StatusNotFound, fmt.Sprintf("Role %q not found", role), nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to load role details", err)
		return
	}

	details := make([]RoleObjectDetailDTO, len(rows))
	for i, row := range rows {
		details[i] = RoleObjectDetailDTO{
			Object:         row.Object,
			Classification: string(row.Classification),
			FieldName:      row.Field,
			ValueLow:       row.Low,
			ValueHigh:      row.High,
			TText:          row.Text,
		}
	}
	writeJSON(w, http.StatusOK, RoleObjectsResponse{
		RoleName:      role,
		ObjectDetails: details,
	})
}

// =============================================================================
// REFERENCE SUGGESTIONS
// =============================================================================

// GetAddSuggestions returns activity suggestions for an Add operation on
// (authorization_object, field). Rows without UI text are skipped; they
// cannot be rendered as a dropdown option.
func (h *Handler) GetAddSuggestions(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantFromRequest(w, r)
	if !ok {
		return
	}
	object := r.URL.Query().Get("authorization_object")
	field := r.URL.Query().Get("field")
	if object == "" || field == "" {
		writeError(w, http.StatusBadRequest, "authorization_object and field are required", nil)
		return
	}

	rows, err := h.Store.ReferenceRows(r.Context(), tenant, object, field)
	if err != nil {
		if errors.Is(err, license.ErrNoReferenceData) {
			writeJSON(w, http.StatusOK, []SuggestionDTO{})
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to load suggestions", err)
		return
	}

	suggestions := make([]SuggestionDTO, 0, len(rows))
	for _, row := range rows {
		if row.UIText == "" {
			continue
		}
		suggestions = append(suggestions, SuggestionDTO{
			Value:   row.Activity,
			License: string(row.License),
			UIText:  row.UIText,
			Text:    row.Text,
		})
	}
	writeJSON(w, http.StatusOK, suggestions)
}

// =============================================================================
// DATA LOADING
// =============================================================================

// LoadBaseline ingests the ABAP XML baseline extract.
func (h *Handler) LoadBaseline(w http.ResponseWriter, r *http.Request) {
	h.handleUpload(w, r, h.Loader.LoadBaseline)
}

// LoadReference ingests the authorization reference CSV.
func (h *Handler) LoadReference(w http.ResponseWriter, r *http.Request) {
	h.handleUpload(w, r, h.Loader.LoadAuthReferences)
}

// LoadUserRoles ingests the user-role membership CSV.
func (h *Handler) LoadUserRoles(w http.ResponseWriter, r *http.Request) {
	h.handleUpload(w, r, h.Loader.LoadUserRoles)
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request,
	load func(context.Context, license.Tenant, io.Reader) (ingest.Result, error)) {

	tenant, ok := tenantFromRequest(w, r)
	if !ok {
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Multipart field 'file' is required", err)
		return
	}
	defer file.Close()

	result, err := load(r.Context(), tenant, file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to load dataset", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// =============================================================================
// HEALTH
// =============================================================================

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
