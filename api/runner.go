/*
runner.go - Background simulation run processing

PURPOSE:
  Executes simulation runs off the request path. SubmitSimulation persists
  the In Progress placeholder rows and enqueues a job here; the single
  worker goroutine reconciles the working set, computes FUE, finalizes each
  placeholder by primary key and clears the working set.

SERIALIZATION:
  One worker drains the queue, so at most one run mutates a working set at
  a time. Runs for different tenants also serialize; acceptable at current
  scale, and trivially shardable by tenant later.

FAILURE CONTAINMENT:
  A failed run marks its remaining In Progress rows Failed, logs, and the
  worker moves on. Nothing propagates; earlier completed runs and other
  tenants are unaffected.

SEE ALSO:
  - handlers.go: SubmitSimulation enqueues jobs
  - license/reconcile.go, license/aggregate.go: The algorithms driven here
*/
package api

import (
	"context"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/warp/license-engine/license"
	"github.com/warp/license-engine/obs"
	"github.com/warp/license-engine/store/sqlite"
)

// runJob is one accepted simulation run awaiting processing. RecordIDs are
// positionally aligned with Changes.
type runJob struct {
	Tenant    license.Tenant
	RunID     string
	RecordIDs []int64
	Changes   []license.ChangeRequest
	Submitted time.Time
}

// Runner processes simulation runs on a single background worker.
type Runner struct {
	store *sqlite.Store

	jobs chan runJob
	wg   sync.WaitGroup
}

// NewRunner creates a runner. The queue holds up to queueSize pending runs;
// Enqueue blocks when it is full.
func NewRunner(store *sqlite.Store, queueSize int) *Runner {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Runner{
		store: store,
		jobs:  make(chan runJob, queueSize),
	}
}

// Start launches the worker goroutine.
func (rn *Runner) Start() {
	rn.wg.Add(1)
	go rn.run()
	log.Println("[Runner] Started")
}

// Stop closes the queue and waits for in-flight work to finish. Enqueue
// must not be called after Stop.
func (rn *Runner) Stop() {
	close(rn.jobs)
	rn.wg.Wait()
	log.Println("[Runner] Stopped")
}

// Enqueue hands a run to the worker.
func (rn *Runner) Enqueue(job runJob) {
	rn.jobs <- job
}

func (rn *Runner) run() {
	defer rn.wg.Done()
	for job := range rn.jobs {
		rn.process(job)
	}
}

// process executes one run end to end. Errors never escape: any failure
// marks the run's remaining rows Failed and the worker continues.
func (rn *Runner) process(job runJob) {
	ctx := context.Background()
	log.Printf("[Runner] Processing run %s for %s (%d changes)", job.RunID, job.Tenant, len(job.Changes))

	if err := rn.execute(ctx, job); err != nil {
		log.Printf("[Runner] Run %s failed: %v", job.RunID, err)
		rn.abortRun(ctx, job)
		obs.RunFailed(time.Since(job.Submitted))
		return
	}

	obs.RunCompleted(time.Since(job.Submitted))
	log.Printf("[Runner] Run %s completed", job.RunID)
}

// abortRun finalizes a failed run: remaining In Progress rows flip to
// Failed and the working set is discarded so a partially reconciled
// snapshot cannot leak into the next run. Cleanup errors are logged only.
func (rn *Runner) abortRun(ctx context.Context, job runJob) {
	n, failErr := rn.store.FailRun(ctx, job.Tenant, job.RunID, time.Now())
	if failErr != nil {
		log.Printf("[Runner] Failed to mark run %s as failed: %v", job.RunID, failErr)
	} else if n > 0 {
		log.Printf("[Runner] Marked %d records of run %s as Failed", n, job.RunID)
	}
	if clearErr := rn.store.ClearSnapshot(ctx, job.Tenant); clearErr != nil {
		log.Printf("[Runner] Failed to clear working set for %s after run %s: %v", job.Tenant, job.RunID, clearErr)
	}
}

func (rn *Runner) execute(ctx context.Context, job runJob) error {
	if err := rn.store.EnsureSnapshot(ctx, job.Tenant); err != nil {
		return err
	}
	snapshot, err := rn.store.LoadSnapshot(ctx, job.Tenant)
	if err != nil {
		return err
	}

	lookup := func(object, field, activity string) (license.Classification, bool) {
		lic, ok, lookupErr := rn.store.LookupLicense(ctx, job.Tenant, object, field, activity)
		if lookupErr != nil {
			log.Printf("[Runner] Reference lookup failed for %s/%s/%s: %v", object, field, activity, lookupErr)
			return license.ClassNone, false
		}
		return lic, ok
	}

	result := license.Reconcile(snapshot, job.Changes, lookup)
	for _, note := range result.Notes {
		log.Printf("[Runner] Run %s: %s", job.RunID, note)
	}
	log.Printf("[Runner] Run %s reconciled: %d added, %d changed, %d removed, %d carried forward",
		job.RunID, result.Counts.Added, result.Counts.Changed, result.Counts.Removed, result.Counts.CarriedForward)

	if err := rn.store.ReplaceSnapshot(ctx, job.Tenant, result.Snapshot); err != nil {
		return err
	}

	userRoles, err := rn.store.UserRoles(ctx, job.Tenant)
	if err != nil {
		return err
	}
	report := license.ComputeFUE(result.Snapshot, userRoles)
	totalFUE := strconv.FormatInt(report.FUE.Total, 10)

	// Each change record gets the run total and the changed role's resolved
	// license after reconciliation.
	roleLicenses := license.RoleLicenses(result.Snapshot)
	now := time.Now()
	for i, change := range job.Changes {
		current := roleLicenses[change.Role]
		if err := rn.store.CompleteResult(ctx, job.RecordIDs[i], totalFUE, current, now); err != nil {
			return err
		}
	}

	// The working set is scratch space per run; the next read rebuilds it
	// from the baseline.
	return rn.store.ClearSnapshot(ctx, job.Tenant)
}
