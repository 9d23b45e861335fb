/*
reconcile.go - Working-set reconciliation for one simulation run

PURPOSE:
  Merges a batch of proposed changes into the simulation working set,
  producing a fully normalized "current state" for every row. This is
  intentionally full-snapshot normalization, not a partial patch: every row
  ends the run with a deterministic current value and current license, even
  rows the batch never mentioned.

ALGORITHM:
  1. Index the working set and the change batch by the composite natural key
     (role, object, field, low, high).
  2. Every existing row gets exactly one outcome:
       Change  -> activity/license parsed from the change's UI text
       Remove  -> new value and new license cleared
       else    -> copy-forward (new value = low, new license = baseline)
  3. Every Add whose key is absent from the working set materializes a new
     row; its license comes from the reference lookup, falling back to the
     change's UI text, else stays null.

PURITY:
  Reconcile never touches storage. It takes the working set by value and
  returns the updated set plus counts and data-quality notes; the caller
  persists the result transactionally and logs the notes. (See Runner.)

SEE ALSO:
  - aggregate.go: Consumes the reconciled working set
  - api/runner.go: Drives reconciliation inside a background run
*/
package license

import (
	"fmt"
	"strings"
)

// =============================================================================
// INPUT / OUTPUT
// =============================================================================

// ReconcileCounts reports what a reconciliation did, for observability.
type ReconcileCounts struct {
	Added          int // new rows materialized from Add operations
	Changed        int // rows with an explicit Change applied
	Removed        int // rows with an explicit Remove applied
	CarriedForward int // rows normalized to their baseline values
}

// ReconcileResult is the outcome of merging one change batch.
type ReconcileResult struct {
	// Snapshot is the fully normalized working set: every input row plus
	// one row per Add whose key was not already present.
	Snapshot []RoleObjectAssignment

	Counts ReconcileCounts

	// Notes records data-quality gaps and client redundancies encountered
	// while reconciling. They are never fatal; the caller logs them.
	Notes []string
}

// =============================================================================
// RECONCILE
// =============================================================================

// Reconcile merges changes into the working set. lookup resolves licenses
// for Add operations and may be nil when no reference data is loaded.
func Reconcile(snapshot []RoleObjectAssignment, changes []ChangeRequest, lookup LicenseLookup) ReconcileResult {
	var res ReconcileResult

	existing := make(map[AssignmentKey]struct{}, len(snapshot))
	for _, row := range snapshot {
		existing[row.Key()] = struct{}{}
	}

	// Last write wins when a batch repeats a key, matching map semantics
	// all the way through.
	byKey := make(map[AssignmentKey]ChangeRequest, len(changes))
	for _, c := range changes {
		byKey[c.Key()] = c
	}

	res.Snapshot = make([]RoleObjectAssignment, 0, len(snapshot)+len(changes))

	// Step 1: every existing row gets a deterministic outcome.
	for _, row := range snapshot {
		change, mentioned := byKey[row.Key()]

		switch {
		case mentioned && change.Action == OpChange:
			activity, lic := ParseUIText(change.NewValueUIText)
			if activity == "" && lic == ClassNone && change.NewValueUIText != "" {
				res.Notes = append(res.Notes, fmt.Sprintf(
					"unparseable UI text %q for change on %s/%s, applying null activity and license",
					change.NewValueUIText, row.Role, row.Object))
			}
			row.Operation = OpChange
			row.NewValue = activity
			row.NewLicense = lic
			res.Counts.Changed++

		case mentioned && change.Action == OpRemove:
			row.Operation = OpRemove
			row.NewValue = ""
			row.NewLicense = ClassNone
			res.Counts.Removed++

		default:
			if mentioned && change.Action == OpAdd {
				// Client redundancy: an Add aimed at a key that already
				// exists. The copy-forward below already covers it.
				res.Notes = append(res.Notes, fmt.Sprintf(
					"Add for existing key %s/%s/%s/%s/%s ignored, row carried forward",
					row.Role, row.Object, row.Field, row.Low, row.High))
			}
			row.Operation = OpNone
			row.NewValue = row.Low
			row.NewLicense = row.Classification
			res.Counts.CarriedForward++
		}

		res.Snapshot = append(res.Snapshot, row)
	}

	// Step 2: materialize Adds for keys not already present.
	for _, c := range changes {
		if c.Action != OpAdd {
			continue
		}
		if _, ok := existing[c.Key()]; ok {
			continue // handled (and noted) above
		}

		lic := ClassNone
		if lookup != nil {
			if found, ok := lookup(c.Object, c.Field, c.ValueLow); ok {
				lic = found
			}
		}
		if lic == ClassNone {
			// Reference table had no match; the change's own UI text is
			// the fallback before giving up to null.
			if _, fromUI := ParseUIText(c.NewValueUIText); fromUI != ClassNone {
				lic = fromUI
			} else {
				res.Notes = append(res.Notes, fmt.Sprintf(
					"no license found for add %s/%s/%s, new row left unclassified",
					c.Object, c.Field, c.ValueLow))
			}
		}

		res.Snapshot = append(res.Snapshot, RoleObjectAssignment{
			Role:           c.Role,
			RoleText:       c.RoleText,
			Object:         c.Object,
			Text:           c.RoleText,
			Field:          c.Field,
			Low:            c.ValueLow,
			High:           c.ValueHigh,
			Classification: c.Classification,
			Operation:      OpAdd,
			NewValue:       c.ValueLow,
			NewLicense:     lic,
		})
		res.Counts.Added++
	}

	return res
}

// =============================================================================
// UI TEXT PARSING
// =============================================================================

// ParseUIText extracts the activity code and license classification from a
// semicolon-delimited "activity;description;license" string. Fewer than
// three parts yields empty values rather than an error.
func ParseUIText(uiText string) (activity string, lic Classification) {
	if uiText == "" {
		return "", ClassNone
	}
	parts := strings.Split(uiText, ";")
	if len(parts) < 3 {
		return "", ClassNone
	}
	return parts[0], Classification(parts[2])
}
