/*
runid.go - Simulation run id sequencing

Run ids are SIM-prefixed and monotonically increasing within a tenant:
SIM100000, SIM100001, ... The next id derives from the highest persisted id;
a missing or malformed predecessor restarts numbering at the base rather
than failing a run over bookkeeping.
*/
package license

import (
	"strconv"
	"strings"
)

const (
	runIDPrefix = "SIM"
	runIDBase   = 100000
)

// NextRunID returns the run id that follows last. An empty, unprefixed or
// non-numeric last id falls back to the base id.
func NextRunID(last string) string {
	if !strings.HasPrefix(last, runIDPrefix) {
		return runIDPrefix + strconv.Itoa(runIDBase)
	}
	n, err := strconv.Atoi(last[len(runIDPrefix):])
	if err != nil {
		return runIDPrefix + strconv.Itoa(runIDBase)
	}
	return runIDPrefix + strconv.Itoa(n+1)
}
