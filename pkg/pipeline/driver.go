// Package pipeline implements the per-patch state machine that drives the
// Builder from a CIJob through to a terminal CIResult (spec.md §4.3,
// component C2 - the algorithmic core of this repository).
package pipeline

import (
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/jenkins-x/radicle-ci/pkg/concourse"
	"github.com/jenkins-x/radicle-ci/pkg/job"
	"github.com/jenkins-x/radicle-ci/pkg/metrics"
)

// PollInterval is the fixed delay between build-status polls (spec.md §4.3
// S6). Polling is unbounded in time: no explicit max attempts, no timeout.
const PollInterval = 3 * time.Second

// builderClient is the subset of *concourse.Client the driver needs,
// narrowed to an interface so tests can substitute an httptest.Server-backed
// client or a hand-rolled fake without depending on the concrete type.
type builderClient interface {
	GetPipelineConfig(name string) (concourse.PipelineConfiguration, error)
	CreatePipelineConfig(name, config, version string) error
	UnpausePipeline(name string) error
	GetAllPipelineJobs(name string) ([]concourse.PipelineJobView, error)
	TriggerNewPipelineJobBuild(name, job string) (concourse.Build, error)
	GetBuild(id int) (concourse.Build, error)
}

// NoJobsError is returned when a freshly created pipeline reports zero
// jobs. Spec.md §4.3 S4 treats this as fatal: "a freshly created pipeline
// has ≥1 job. Empty list is fatal."
type NoJobsError struct {
	PipelineName string
}

func (e *NoJobsError) Error() string {
	return "pipeline: " + e.PipelineName + ": no jobs declared"
}

// Driver walks one CIJob through S0 (Auth) .. S7 (Report), per spec.md §4.3.
type Driver struct {
	client       builderClient
	concourseURL string
	sleep        func(time.Duration)
	log          *logrus.Entry
	metrics      *metrics.Metrics
}

// NewDriver returns a Driver bound to client. concourseURL is the Builder's
// base URL, used only to synthesize the report URL in S7.
func NewDriver(client builderClient, concourseURL string, log *logrus.Entry) *Driver {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Driver{
		client:       client,
		concourseURL: concourseURL,
		sleep:        time.Sleep,
		log:          log.WithField("component", "pipeline-driver"),
	}
}

// SetSleep overrides the delay function used between S6 polls. Exposed for
// tests that need to drive the poll loop without waiting on a real clock.
func (d *Driver) SetSleep(sleep func(time.Duration)) {
	d.sleep = sleep
}

// SetMetrics attaches a collector that S5 (trigger) and S7 (report)
// increment. A Driver with no metrics attached skips these calls.
func (d *Driver) SetMetrics(m *metrics.Metrics) {
	d.metrics = m
}

// Run executes S0..S7 for j and returns the terminal CIResult. Any error
// besides the S2 (WriteConfig) case aborts the run; S2's error is logged
// and processing continues into S3.
func (d *Driver) Run(j job.CIJob) (CIResult, error) {
	name := job.PipelineName(j.ProjectID)
	log := d.log.WithFields(logrus.Fields{"pipeline": name, "patch_revision_id": j.PatchRevisionID})

	// S0 Auth happens lazily: every client operation below acquires and
	// caches its bearer token on first use (spec.md §4.1).

	// S1 ReadConfig - fetch current pipeline config and its version.
	current, err := d.client.GetPipelineConfig(name)
	if err != nil {
		log.WithError(err).Error("S1: failed to read pipeline config")
		return CIResult{}, errors.Wrap(err, "pipeline: read config")
	}
	version := current.Version

	// S2 WriteConfig - PUT new config. Non-fatal: a pre-existing pipeline
	// may already be current; unpause + trigger still proceed regardless.
	if err := d.client.CreatePipelineConfig(name, j.PipelineConfig, version); err != nil {
		log.WithError(err).Warn("S2: failed to write pipeline config, proceeding anyway")
	} else {
		log.Debug("S2: pipeline config written")
	}

	// S3 Unpause - fatal on failure.
	if err := d.client.UnpausePipeline(name); err != nil {
		log.WithError(err).Error("S3: failed to unpause pipeline")
		return CIResult{}, errors.Wrap(err, "pipeline: unpause")
	}

	// S4 FindJob - list pipeline jobs, take the first.
	jobs, err := d.client.GetAllPipelineJobs(name)
	if err != nil {
		log.WithError(err).Error("S4: failed to list pipeline jobs")
		return CIResult{}, errors.Wrap(err, "pipeline: list jobs")
	}
	if len(jobs) == 0 {
		log.Error("S4: pipeline has no jobs")
		return CIResult{}, &NoJobsError{PipelineName: name}
	}
	jobName := jobs[0].Name()

	// S5 Trigger - POST a new build.
	build, err := d.client.TriggerNewPipelineJobBuild(name, jobName)
	if err != nil {
		log.WithError(err).Error("S5: failed to trigger build")
		return CIResult{}, errors.Wrap(err, "pipeline: trigger build")
	}
	log.WithField("build_id", build.ID).Info("S5: build triggered")
	if d.metrics != nil {
		d.metrics.BuildsTriggered.Inc()
	}

	// S6 Poll - every PollInterval, GET the build until it has completed.
	for !build.HasCompleted() {
		d.sleep(PollInterval)
		build, err = d.client.GetBuild(build.ID)
		if err != nil {
			log.WithError(err).Error("S6: failed to poll build")
			return CIResult{}, errors.Wrap(err, "pipeline: poll build")
		}
	}

	// S7 Report - map terminal status to a CIResult.
	result := CIResult{
		Status: StatusFailure,
		URL: d.concourseURL + "/teams/main/pipelines/" + name +
			"/jobs/" + jobName + "/builds/" + build.Name,
	}
	if build.HasCompletedSuccessfully() {
		result.Status = StatusSuccess
	}
	if d.metrics != nil {
		outcome := "failure"
		if result.Status == StatusSuccess {
			outcome = "success"
		}
		d.metrics.BuildOutcomes.WithLabelValues(outcome).Inc()
	}
	log.WithField("result", result.ReportMessage()).Info("S7: pipeline run complete")
	return result, nil
}
