package license_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/license-engine/license"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func row(role, object, field, low, high string, classif license.Classification) license.RoleObjectAssignment {
	return license.RoleObjectAssignment{
		Role:           role,
		Object:         object,
		Field:          field,
		Low:            low,
		High:           high,
		Classification: classif,
	}
}

func findRow(t *testing.T, rows []license.RoleObjectAssignment, key license.AssignmentKey) license.RoleObjectAssignment {
	t.Helper()
	for _, r := range rows {
		if r.Key() == key {
			return r
		}
	}
	t.Fatalf("row %v not found in result", key)
	return license.RoleObjectAssignment{}
}

func noLookup(object, field, activity string) (license.Classification, bool) {
	return license.ClassNone, false
}

// =============================================================================
// COPY-FORWARD NORMALIZATION
// =============================================================================

func TestReconcile_EmptyBatch_PureCopyForward(t *testing.T) {
	// GIVEN: A working set and no changes
	// WHEN: Reconciling
	// THEN: Every row carries forward with operation cleared, new value =
	//       low, new license = baseline; nothing added or removed

	snapshot := []license.RoleObjectAssignment{
		row("R1", "S_TCODE", "TCD", "FB01", "", license.ClassAdvanced),
		row("R1", "F_BKPF_BUK", "ACTVT", "03", "", license.ClassSelfService),
		row("R2", "S_TCODE", "TCD", "VA01", "", license.ClassCore),
	}

	res := license.Reconcile(snapshot, nil, noLookup)

	require.Len(t, res.Snapshot, 3)
	assert.Equal(t, 0, res.Counts.Added)
	assert.Equal(t, 0, res.Counts.Changed)
	assert.Equal(t, 0, res.Counts.Removed)
	assert.Equal(t, 3, res.Counts.CarriedForward)

	for _, r := range res.Snapshot {
		assert.Equal(t, license.OpNone, r.Operation)
		assert.Equal(t, r.Low, r.NewValue)
		assert.Equal(t, r.Classification, r.NewLicense)
	}
}

func TestReconcile_UnmentionedRowsNormalized(t *testing.T) {
	// Rows not named by the batch end the run in the same state as an
	// explicit no-op: this is full-snapshot normalization, not a patch.

	snapshot := []license.RoleObjectAssignment{
		row("R1", "S_TCODE", "TCD", "FB01", "", license.ClassAdvanced),
		row("R2", "S_TCODE", "TCD", "VA01", "", license.ClassCore),
	}
	changes := []license.ChangeRequest{{
		Role: "R1", Object: "S_TCODE", Field: "TCD", ValueLow: "FB01", ValueHigh: "",
		Action: license.OpRemove,
	}}

	res := license.Reconcile(snapshot, changes, noLookup)

	untouched := findRow(t, res.Snapshot, license.AssignmentKey{Role: "R2", Object: "S_TCODE", Field: "TCD", Low: "VA01"})
	assert.Equal(t, license.OpNone, untouched.Operation)
	assert.Equal(t, "VA01", untouched.NewValue)
	assert.Equal(t, license.ClassCore, untouched.NewLicense)
}

// =============================================================================
// CHANGE / REMOVE
// =============================================================================

func TestReconcile_Change_ParsesUIText(t *testing.T) {
	snapshot := []license.RoleObjectAssignment{
		row("R1", "S_TCODE", "TCD", "FB01", "", license.ClassAdvanced),
	}
	changes := []license.ChangeRequest{{
		Role: "R1", Object: "S_TCODE", Field: "TCD", ValueLow: "FB01", ValueHigh: "",
		Action:         license.OpChange,
		NewValueUIText: "F-02;Post Document;GC Core Use",
	}}

	res := license.Reconcile(snapshot, changes, noLookup)

	require.Len(t, res.Snapshot, 1)
	got := res.Snapshot[0]
	assert.Equal(t, license.OpChange, got.Operation)
	assert.Equal(t, "F-02", got.NewValue)
	assert.Equal(t, license.ClassCore, got.NewLicense)
	assert.Equal(t, 1, res.Counts.Changed)
}

func TestReconcile_Change_ShortUIText_YieldsNulls(t *testing.T) {
	// GIVEN: A Change whose UI text has fewer than 3 semicolon parts
	// THEN: Activity and license end up null, processing continues

	snapshot := []license.RoleObjectAssignment{
		row("R1", "S_TCODE", "TCD", "FB01", "", license.ClassAdvanced),
	}
	changes := []license.ChangeRequest{{
		Role: "R1", Object: "S_TCODE", Field: "TCD", ValueLow: "FB01", ValueHigh: "",
		Action:         license.OpChange,
		NewValueUIText: "F-02;only two parts",
	}}

	res := license.Reconcile(snapshot, changes, noLookup)

	got := res.Snapshot[0]
	assert.Equal(t, license.OpChange, got.Operation)
	assert.Equal(t, "", got.NewValue)
	assert.Equal(t, license.ClassNone, got.NewLicense)
	assert.NotEmpty(t, res.Notes, "unparseable UI text should leave a note")
}

func TestReconcile_Remove_ClearsCurrentState(t *testing.T) {
	snapshot := []license.RoleObjectAssignment{
		row("R1", "S_TCODE", "TCD", "FB01", "", license.ClassAdvanced),
	}
	changes := []license.ChangeRequest{{
		Role: "R1", Object: "S_TCODE", Field: "TCD", ValueLow: "FB01", ValueHigh: "",
		Action: license.OpRemove,
	}}

	res := license.Reconcile(snapshot, changes, noLookup)

	got := res.Snapshot[0]
	assert.Equal(t, license.OpRemove, got.Operation)
	assert.Equal(t, "", got.NewValue)
	assert.Equal(t, license.ClassNone, got.NewLicense)
	assert.Equal(t, 1, res.Counts.Removed)
}

func TestReconcile_ExplicitNoOp_ConfirmedUnchanged(t *testing.T) {
	// An empty action on an existing key is an explicit confirmation:
	// treated identically to an unmentioned row.

	snapshot := []license.RoleObjectAssignment{
		row("R1", "S_TCODE", "TCD", "FB01", "", license.ClassAdvanced),
	}
	changes := []license.ChangeRequest{{
		Role: "R1", Object: "S_TCODE", Field: "TCD", ValueLow: "FB01", ValueHigh: "",
		Action: license.OpNone,
	}}

	res := license.Reconcile(snapshot, changes, noLookup)

	got := res.Snapshot[0]
	assert.Equal(t, license.OpNone, got.Operation)
	assert.Equal(t, "FB01", got.NewValue)
	assert.Equal(t, license.ClassAdvanced, got.NewLicense)
}

// =============================================================================
// ADD
// =============================================================================

func TestReconcile_Add_LicenseFromReferenceLookup(t *testing.T) {
	snapshot := []license.RoleObjectAssignment{
		row("R1", "S_TCODE", "TCD", "FB01", "", license.ClassAdvanced),
	}
	changes := []license.ChangeRequest{{
		Role: "R2", Object: "S_TCODE", Field: "TCD", ValueLow: "VA01", ValueHigh: "",
		Action: license.OpAdd, RoleText: "Sales",
	}}
	lookup := func(object, field, activity string) (license.Classification, bool) {
		if object == "S_TCODE" && field == "TCD" && activity == "VA01" {
			return license.ClassCore, true
		}
		return license.ClassNone, false
	}

	res := license.Reconcile(snapshot, changes, lookup)

	require.Len(t, res.Snapshot, 2)
	added := findRow(t, res.Snapshot, license.AssignmentKey{Role: "R2", Object: "S_TCODE", Field: "TCD", Low: "VA01"})
	assert.Equal(t, license.OpAdd, added.Operation)
	assert.Equal(t, "VA01", added.NewValue)
	assert.Equal(t, license.ClassCore, added.NewLicense)
	// The payload's description carries onto the new row.
	assert.Equal(t, "Sales", added.RoleText)
	assert.Equal(t, "Sales", added.Text)
	assert.Equal(t, 1, res.Counts.Added)
}

func TestReconcile_Add_UITextFallbackWhenLookupMisses(t *testing.T) {
	// GIVEN: An Add with no matching reference row but a UI-text fallback
	// THEN: The new row's license comes from the UI text, not null

	changes := []license.ChangeRequest{{
		Role: "R2", Object: "S_TCODE", Field: "TCD", ValueLow: "F-02", ValueHigh: "",
		Action:         license.OpAdd,
		NewValueUIText: "F-02;Post Document;GC Core Use",
	}}

	res := license.Reconcile(nil, changes, noLookup)

	require.Len(t, res.Snapshot, 1)
	assert.Equal(t, license.ClassCore, res.Snapshot[0].NewLicense)
}

func TestReconcile_Add_NoLicenseAnywhere_NullWithNote(t *testing.T) {
	changes := []license.ChangeRequest{{
		Role: "R2", Object: "Z_CUSTOM", Field: "ACTVT", ValueLow: "99", ValueHigh: "",
		Action: license.OpAdd,
	}}

	res := license.Reconcile(nil, changes, noLookup)

	require.Len(t, res.Snapshot, 1)
	assert.Equal(t, license.ClassNone, res.Snapshot[0].NewLicense)
	assert.NotEmpty(t, res.Notes, "missing license should leave a data-quality note")
}

func TestReconcile_Add_ExistingKey_CarriedForwardWithNote(t *testing.T) {
	// An Add aimed at a key that already exists is a client redundancy:
	// the existing row carries forward and the batch adds nothing.

	snapshot := []license.RoleObjectAssignment{
		row("R1", "S_TCODE", "TCD", "FB01", "", license.ClassAdvanced),
	}
	changes := []license.ChangeRequest{{
		Role: "R1", Object: "S_TCODE", Field: "TCD", ValueLow: "FB01", ValueHigh: "",
		Action: license.OpAdd,
	}}

	res := license.Reconcile(snapshot, changes, noLookup)

	require.Len(t, res.Snapshot, 1)
	assert.Equal(t, 0, res.Counts.Added)
	assert.Equal(t, license.OpNone, res.Snapshot[0].Operation)
	assert.Equal(t, license.ClassAdvanced, res.Snapshot[0].NewLicense)
	assert.NotEmpty(t, res.Notes)
}

// =============================================================================
// SIZE AND ISOLATION PROPERTIES
// =============================================================================

func TestReconcile_ResultSize_IsSnapshotPlusNovelAdds(t *testing.T) {
	snapshot := []license.RoleObjectAssignment{
		row("R1", "S_TCODE", "TCD", "FB01", "", license.ClassAdvanced),
		row("R2", "S_TCODE", "TCD", "VA01", "", license.ClassCore),
	}
	changes := []license.ChangeRequest{
		{Role: "R1", Object: "S_TCODE", Field: "TCD", ValueLow: "FB01", Action: license.OpAdd},  // existing key
		{Role: "R3", Object: "S_TCODE", Field: "TCD", ValueLow: "MM01", Action: license.OpAdd}, // novel
		{Role: "R2", Object: "S_TCODE", Field: "TCD", ValueLow: "VA01", Action: license.OpRemove},
	}

	res := license.Reconcile(snapshot, changes, noLookup)

	assert.Len(t, res.Snapshot, len(snapshot)+1, "|S| + |novel adds|")
}

func TestReconcile_DistinctRoles_DoNotCrossContaminate(t *testing.T) {
	// GIVEN: One batch touching two roles
	// THEN: Role A's Add never affects role B's rows

	snapshot := []license.RoleObjectAssignment{
		row("RA", "S_TCODE", "TCD", "FB01", "", license.ClassCore),
		row("RB", "S_TCODE", "TCD", "FB01", "", license.ClassSelfService),
	}
	changes := []license.ChangeRequest{
		{Role: "RA", Object: "F_NEW", Field: "ACTVT", ValueLow: "01", Action: license.OpAdd,
			NewValueUIText: "01;Create;GB Advanced Use"},
	}

	res := license.Reconcile(snapshot, changes, noLookup)

	rb := findRow(t, res.Snapshot, license.AssignmentKey{Role: "RB", Object: "S_TCODE", Field: "TCD", Low: "FB01"})
	assert.Equal(t, license.ClassSelfService, rb.NewLicense)

	roleLic := license.RoleLicenses(res.Snapshot)
	assert.Equal(t, license.ClassAdvanced, roleLic["RA"])
	assert.Equal(t, license.ClassSelfService, roleLic["RB"])
}

// =============================================================================
// UI TEXT PARSING
// =============================================================================

func TestParseUIText(t *testing.T) {
	activity, lic := license.ParseUIText("F-02;Post Document;GC Core Use")
	assert.Equal(t, "F-02", activity)
	assert.Equal(t, license.ClassCore, lic)

	// Extra parts beyond three: license is the third part.
	activity, lic = license.ParseUIText("01;Create;GB Advanced Use;extra")
	assert.Equal(t, "01", activity)
	assert.Equal(t, license.ClassAdvanced, lic)

	activity, lic = license.ParseUIText("")
	assert.Equal(t, "", activity)
	assert.Equal(t, license.ClassNone, lic)

	activity, lic = license.ParseUIText("no-delimiters")
	assert.Equal(t, "", activity)
	assert.Equal(t, license.ClassNone, lic)
}
