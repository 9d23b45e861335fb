/*
classification.go - License classification tiers and severity ordering

PURPOSE:
  Defines the enumerated license classifications and the single source of
  truth for "most restrictive" resolution. The same total order applies at
  every level: object -> role -> user.

SEVERITY ORDER (most restrictive first):
  GB Advanced Use > GC Core Use > GD Self-Service Use > anything else

  Unrecognized or empty labels score zero and never win resolution. If every
  input is unrecognized the resolver returns ClassNone rather than echoing
  an arbitrary unknown label.

SEE ALSO:
  - aggregate.go: Applies the resolver transitively from role to user
  - reconcile.go: Produces the per-row classifications being resolved
*/
package license

// Classification is a license tier label. The empty string (ClassNone)
// stands for null/unclassified.
type Classification string

const (
	ClassNone        Classification = ""
	ClassAdvanced    Classification = "GB Advanced Use"
	ClassCore        Classification = "GC Core Use"
	ClassSelfService Classification = "GD Self-Service Use"
)

// severity returns the restrictiveness score. Higher wins. Unrecognized
// labels (including "N/A" and ClassNone) score zero.
func (c Classification) severity() int {
	switch c {
	case ClassAdvanced:
		return 3
	case ClassCore:
		return 2
	case ClassSelfService:
		return 1
	default:
		return 0
	}
}

// Recognized reports whether c is one of the three defined license tiers.
func (c Classification) Recognized() bool {
	return c.severity() > 0
}

// MostRestrictive returns the single most restrictive classification among
// labels. Input order never matters: the score is a strict total order over
// the three recognized tiers. Returns ClassNone when labels is empty or
// contains no recognized tier.
func MostRestrictive(labels []Classification) Classification {
	best := ClassNone
	bestScore := 0
	for _, l := range labels {
		if s := l.severity(); s > bestScore {
			best = l
			bestScore = s
		}
	}
	return best
}
