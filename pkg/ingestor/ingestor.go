// Package ingestor subscribes to a node's ref-update event stream, filters
// it down to patch updates, and submits a node.WorkerContext for each one
// to the worker pool (spec.md §4.2, component C7).
package ingestor

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/jenkins-x/radicle-ci/pkg/node"
)

// patchRefMarker identifies a ref as belonging to a Radicle patch, per
// spec.md §4.2: "refs whose name contains xyz.radicle.patch".
const patchRefMarker = "xyz.radicle.patch"

// submitter is the subset of *pool.Pool the ingestor needs.
type submitter interface {
	Submit(wctx node.WorkerContext)
}

// Ingestor turns node.RefsFetchedEvent values into WorkerContexts.
type Ingestor struct {
	stream  node.EventStream
	profile node.Profile
	pool    submitter
	log     *logrus.Entry
}

// New returns an Ingestor reading events from stream for profile and
// submitting derived jobs to pool.
func New(stream node.EventStream, profile node.Profile, pool submitter, log *logrus.Entry) *Ingestor {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Ingestor{
		stream:  stream,
		profile: profile,
		pool:    pool,
		log:     log.WithField("component", "ingestor"),
	}
}

// Run subscribes to the event stream and processes events until ctx is
// cancelled or the stream closes. Errors from the stream are logged and do
// not stop ingestion - a single malformed event should not end the run.
func (in *Ingestor) Run(ctx context.Context) {
	events, errs := in.stream.Subscribe(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			in.handle(event)
		case err, ok := <-errs:
			if !ok {
				continue
			}
			in.log.WithError(err).Warn("event stream reported an error")
		}
	}
}

// handle extracts patch ids from event's created/updated refs and submits
// one WorkerContext per patch ref found (spec.md §4.2). Deleted refs and
// refs without the patch marker are ignored.
func (in *Ingestor) handle(event node.RefsFetchedEvent) {
	for _, update := range event.Updated {
		if update.Kind == node.RefUpdateDeleted {
			continue
		}
		if !strings.Contains(update.Name, patchRefMarker) {
			continue
		}
		patchID := lastSegment(update.Name)
		if patchID == "" {
			in.log.WithField("ref", update.Name).Warn("patch ref has no trailing segment, skipping")
			continue
		}

		wctx := node.WorkerContext{
			RepositoryID: event.RepositoryID,
			PatchID:      patchID,
			Profile:      in.profile,
		}
		in.submit(wctx)
	}
}

// submit hands wctx to the pool. A full, non-blocking submit isn't
// required here: the pool's channel already applies backpressure, and a
// blocked Submit simply delays ingesting the next event, which is
// acceptable per spec.md §4.6's "no overflow policy" stance.
func (in *Ingestor) submit(wctx node.WorkerContext) {
	in.pool.Submit(wctx)
}

func lastSegment(ref string) string {
	idx := strings.LastIndex(ref, "/")
	if idx == -1 || idx == len(ref)-1 {
		return ""
	}
	return ref[idx+1:]
}
