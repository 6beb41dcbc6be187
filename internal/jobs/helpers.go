// Package jobs defines River Queue job types for background maintenance.
//
// Jobs carry ids only and reload state when they run, so a job that
// outlives its entity cancels instead of failing forever.
package jobs

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"

	apperrors "factorymanager.io/manager/internal/pkg/errors"
	"factorymanager.io/manager/internal/repository"
)

// Inserter enqueues jobs. *river.Client satisfies it.
type Inserter interface {
	Insert(ctx context.Context, args river.JobArgs, opts *river.InsertOpts) (*rivertype.JobInsertResult, error)
}

// PeriodicJobs returns the maintenance schedule. A non-positive
// sweepInterval disables the reference sweep.
func PeriodicJobs(sweepInterval time.Duration) []*river.PeriodicJob {
	jobs := []*river.PeriodicJob{
		river.NewPeriodicJob(
			river.PeriodicInterval(24*time.Hour),
			func() (river.JobArgs, *river.InsertOpts) { return ActionLogRetentionArgs{}, nil },
			&river.PeriodicJobOpts{RunOnStart: true},
		),
	}
	if sweepInterval > 0 {
		jobs = append(jobs, river.NewPeriodicJob(
			river.PeriodicInterval(sweepInterval),
			func() (river.JobArgs, *river.InsertOpts) { return ReferenceSweepArgs{}, nil },
			&river.PeriodicJobOpts{RunOnStart: true},
		))
	}
	return jobs
}

// isPermanent reports errors that retrying cannot fix: the entity is gone
// or the arguments are malformed.
func isPermanent(err error) bool {
	appErr, ok := apperrors.IsAppError(err)
	if !ok {
		return errors.Is(err, repository.ErrNotFound)
	}
	return appErr.HTTPStatus == http.StatusNotFound || appErr.Code == apperrors.CodeValidationFailed
}
