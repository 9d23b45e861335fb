package license_test

import (
	"testing"

	"github.com/warp/license-engine/license"
)

// =============================================================================
// SEVERITY ORDER TESTS
// =============================================================================

func TestMostRestrictive_TotalOrder(t *testing.T) {
	// GIVEN: All three recognized tiers
	// WHEN: Resolving the most restrictive
	// THEN: GB Advanced Use wins, regardless of input order

	orderings := [][]license.Classification{
		{license.ClassAdvanced, license.ClassCore, license.ClassSelfService},
		{license.ClassSelfService, license.ClassCore, license.ClassAdvanced},
		{license.ClassCore, license.ClassAdvanced, license.ClassSelfService},
	}

	for _, labels := range orderings {
		if got := license.MostRestrictive(labels); got != license.ClassAdvanced {
			t.Errorf("MostRestrictive(%v) = %q, want %q", labels, got, license.ClassAdvanced)
		}
	}
}

func TestMostRestrictive_CoreBeatsSelfService(t *testing.T) {
	got := license.MostRestrictive([]license.Classification{
		license.ClassSelfService, license.ClassCore,
	})
	if got != license.ClassCore {
		t.Errorf("got %q, want %q", got, license.ClassCore)
	}
}

func TestMostRestrictive_UnrecognizedAndEmptyScoreZero(t *testing.T) {
	// GIVEN: A mix of nulls, unknown labels and one recognized tier
	// THEN: The recognized tier wins over everything scoring zero

	got := license.MostRestrictive([]license.Classification{
		"", "N/A", "Something Else", license.ClassSelfService,
	})
	if got != license.ClassSelfService {
		t.Errorf("got %q, want %q", got, license.ClassSelfService)
	}
}

func TestMostRestrictive_AllUnrecognized_ReturnsNone(t *testing.T) {
	got := license.MostRestrictive([]license.Classification{"", "N/A", "bogus"})
	if got != license.ClassNone {
		t.Errorf("got %q, want ClassNone", got)
	}
}

func TestMostRestrictive_EmptyInput_ReturnsNone(t *testing.T) {
	if got := license.MostRestrictive(nil); got != license.ClassNone {
		t.Errorf("got %q, want ClassNone", got)
	}
}

func TestMostRestrictive_IdempotentOnOwnOutput(t *testing.T) {
	// Property: resolving a singleton list of the previous result yields
	// the same result.

	inputs := [][]license.Classification{
		{license.ClassAdvanced, license.ClassCore},
		{license.ClassSelfService},
		{"N/A"},
		nil,
	}

	for _, labels := range inputs {
		first := license.MostRestrictive(labels)
		again := license.MostRestrictive([]license.Classification{first})
		if first != again {
			t.Errorf("not idempotent: %q then %q for %v", first, again, labels)
		}
	}
}

func TestRecognized(t *testing.T) {
	cases := []struct {
		label license.Classification
		want  bool
	}{
		{license.ClassAdvanced, true},
		{license.ClassCore, true},
		{license.ClassSelfService, true},
		{license.ClassNone, false},
		{"N/A", false},
		{"GB advanced use", false}, // labels are case-sensitive
	}
	for _, c := range cases {
		if got := c.label.Recognized(); got != c.want {
			t.Errorf("Recognized(%q) = %v, want %v", c.label, got, c.want)
		}
	}
}
