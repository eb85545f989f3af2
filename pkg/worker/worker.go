// Package worker implements the per-job processing loop that turns one
// node.WorkerContext into a completed CI run (spec.md §4.6, component C5).
package worker

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/jenkins-x/radicle-ci/pkg/concourse"
	"github.com/jenkins-x/radicle-ci/pkg/job"
	"github.com/jenkins-x/radicle-ci/pkg/metrics"
	"github.com/jenkins-x/radicle-ci/pkg/node"
	"github.com/jenkins-x/radicle-ci/pkg/pipeline"
	"github.com/jenkins-x/radicle-ci/pkg/publisher"
)

// driver is the subset of *pipeline.Driver a Worker needs, narrowed so
// tests can inject a fake that skips the real S0-S7 sequence.
type driver interface {
	Run(j job.CIJob) (pipeline.CIResult, error)
}

// Config bundles the collaborators a Worker needs to build a job, run it
// against the Builder, and publish the outcome.
type Config struct {
	ConcourseURL  string
	ConcourseUser string
	ConcoursePass string
	RadicleAPIURL string
	Metrics       *metrics.Metrics
}

// Worker processes WorkerContexts pulled from a shared channel until it is
// closed (spec.md §4.6, §2 "Pool spawns N Workers"). Each job gets a fresh
// concourse.Client from newDriver, so a cached bearer token never crosses
// workers (or jobs).
type Worker struct {
	id        int
	cfg       Config
	jobs      *job.Builder
	publisher *publisher.Publisher
	log       *logrus.Entry
	metrics   *metrics.Metrics

	newDriver func(cfg Config, log *logrus.Entry) driver
}

// New returns a Worker numbered id, used only for log correlation.
func New(id int, cfg Config, log *logrus.Entry) *Worker {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	log = log.WithField("worker_id", id)
	return &Worker{
		id:        id,
		cfg:       cfg,
		jobs:      job.NewBuilder(cfg.RadicleAPIURL),
		publisher: publisher.New(log),
		log:       log,
		metrics:   cfg.Metrics,
		newDriver: defaultDriver,
	}
}

func defaultDriver(cfg Config, log *logrus.Entry) driver {
	client := concourse.NewClient(cfg.ConcourseURL, cfg.ConcourseUser, cfg.ConcoursePass, log)
	client.SetMetrics(cfg.Metrics)
	d := pipeline.NewDriver(client, cfg.ConcourseURL, log)
	d.SetMetrics(cfg.Metrics)
	return d
}

// Run drains wctxs until the channel is closed, processing one
// node.WorkerContext at a time. It recovers from panics in ProcessOne so a
// single bad patch cannot take the whole pool down.
func (w *Worker) Run(ctx context.Context, wctxs <-chan node.WorkerContext) {
	for wctx := range wctxs {
		w.processOneSafely(ctx, wctx)
	}
}

func (w *Worker) processOneSafely(ctx context.Context, wctx node.WorkerContext) {
	if w.metrics != nil {
		w.metrics.ActiveWorkers.Inc()
		defer w.metrics.ActiveWorkers.Dec()
	}
	defer func() {
		if r := recover(); r != nil {
			w.log.WithField("patch_id", wctx.PatchID).Errorf("recovered from panic processing job: %v", r)
		}
	}()
	w.ProcessOne(ctx, wctx)
}

// ProcessOne builds a CIJob, publishes the starting comment, drives it
// through the Builder, and publishes the terminal result (spec.md §4.6).
// A build failure is reported as a CIResult with StatusFailure rather than
// dropped: the patch author always learns the outcome.
func (w *Worker) ProcessOne(ctx context.Context, wctx node.WorkerContext) {
	log := w.log.WithFields(logrus.Fields{"repository_id": wctx.RepositoryID, "patch_id": wctx.PatchID})

	j, err := w.jobs.Build(wctx)
	if err != nil {
		log.WithError(err).Warn("failed to assemble CI job, dropping patch")
		return
	}

	revision, err := w.latestRevisionID(wctx)
	if err != nil {
		log.WithError(err).Warn("failed to resolve latest revision for comment, dropping patch")
		return
	}

	w.publisher.PublishStarting(ctx, wctx.Profile, wctx.RepositoryID, wctx.PatchID, revision)

	d := w.newDriver(w.cfg, log)
	result, err := d.Run(j)
	if err != nil {
		log.WithError(err).Error("pipeline run failed")
		result = pipeline.CIResult{Status: pipeline.StatusFailure, URL: w.cfg.ConcourseURL}
	}

	w.publisher.PublishResult(ctx, wctx.Profile, wctx.RepositoryID, wctx.PatchID, revision, result)
}

func (w *Worker) latestRevisionID(wctx node.WorkerContext) (string, error) {
	patches, err := wctx.Profile.PatchStore(wctx.RepositoryID)
	if err != nil {
		return "", err
	}
	revision, err := patches.LatestRevision(wctx.PatchID)
	if err != nil {
		return "", err
	}
	return revision.ID, nil
}
