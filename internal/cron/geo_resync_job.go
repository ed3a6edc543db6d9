package cron

import (
	"context"
	"fmt"
)

const geoResyncJobName = "geo-resync"

type resyncer interface {
	Resync(ctx context.Context) error
}

// GeoResyncJob rebuilds the donor proximity index from the user table.
// Steady-state updates flow through per-mutation re-indexing; this job
// repairs drift after crashes or missed updates.
type GeoResyncJob struct {
	syncer resyncer
}

// NewGeoResyncJob builds the resync job.
func NewGeoResyncJob(syncer resyncer) (*GeoResyncJob, error) {
	if syncer == nil {
		return nil, fmt.Errorf("syncer required")
	}
	return &GeoResyncJob{syncer: syncer}, nil
}

// Name implements Job.
func (j *GeoResyncJob) Name() string { return geoResyncJobName }

// Run implements Job.
func (j *GeoResyncJob) Run(ctx context.Context) error {
	return j.syncer.Resync(ctx)
}
