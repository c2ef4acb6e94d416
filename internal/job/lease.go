package job

import "github.com/powermaps/contact/internal/models"

// Lease identifies one claim of a job. AcquireNext bumps Attempt on every
// claim, so a lease from an earlier claim no longer matches once the job
// has been released and claimed again.
type Lease struct {
	JobID    uint
	WorkerID uint
	Attempt  int
}

// LeaseOf returns the lease held by whoever claimed j.
func LeaseOf(j *models.Job, workerID uint) Lease {
	return Lease{JobID: j.ID, WorkerID: workerID, Attempt: j.Attempts}
}
