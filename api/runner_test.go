package api

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/license-engine/license"
)

// =============================================================================
// FAILURE CONTAINMENT
// =============================================================================

func TestAbortRun_DiscardsWorkingSet(t *testing.T) {
	// GIVEN: A run that already rewrote the working set before failing
	// WHEN: The run is aborted
	// THEN: Its rows flip to Failed and the working set is discarded, so
	//       the next access rebuilds a clean copy from the baseline

	env := newTestEnv(t)
	env.seedTenant(t)
	ctx := context.Background()

	require.NoError(t, env.store.EnsureSnapshot(ctx, envTenant))

	// Partially reconciled state: the sole object downgraded mid-run.
	contaminated := []license.RoleObjectAssignment{
		{
			Role: "Z_FI_CLERK", RoleText: "Finance Clerk",
			RoleClassification: license.ClassAdvanced,
			Object:             "S_TCODE", Text: "Transaction Code Check",
			Field: "TCD", Low: "FB01",
			Classification: license.ClassAdvanced,
			Operation:      license.OpChange,
			NewValue:       "FB01",
			NewLicense:     license.ClassSelfService,
		},
	}
	require.NoError(t, env.store.ReplaceSnapshot(ctx, envTenant, contaminated))

	changes := []license.ChangeRequest{
		{Action: license.OpChange, Role: "Z_FI_CLERK", Object: "S_TCODE"},
	}
	ids, err := env.store.InsertResultPlaceholders(ctx, envTenant, "SIM100000", time.Now(), changes)
	require.NoError(t, err)

	env.runner.abortRun(ctx, runJob{
		Tenant:    envTenant,
		RunID:     "SIM100000",
		RecordIDs: ids,
		Changes:   changes,
		Submitted: time.Now(),
	})

	records, err := env.store.ListResults(ctx, envTenant)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, license.StatusFailed, records[0].Status)

	require.NoError(t, env.store.EnsureSnapshot(ctx, envTenant))
	snapshot, err := env.store.LoadSnapshot(ctx, envTenant)
	require.NoError(t, err)
	require.Len(t, snapshot, 1)
	assert.Equal(t, license.OpNone, snapshot[0].Operation)
	assert.Equal(t, license.ClassAdvanced, snapshot[0].NewLicense)
}
