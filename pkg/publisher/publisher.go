// Package publisher writes the "starting" and "finished" comments on a
// patch revision (spec.md §4.5, component C4).
package publisher

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/jenkins-x/radicle-ci/pkg/node"
	"github.com/jenkins-x/radicle-ci/pkg/pipeline"
)

// StartingMessage is the comment posted before the pipeline driver runs.
const StartingMessage = "New CI build is starting"

// Publisher writes comments on a patch revision using the node's signer.
type Publisher struct {
	log *logrus.Entry
}

// New returns a Publisher. A nil log falls back to the standard logger.
func New(log *logrus.Entry) *Publisher {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Publisher{log: log.WithField("component", "publisher")}
}

// PublishStarting writes the "starting" comment (spec.md §4.5, before S0).
// A write failure is logged but does not propagate - the worker must still
// proceed to run the pipeline.
func (p *Publisher) PublishStarting(ctx context.Context, profile node.Profile, repositoryID, patchID, revisionID string) {
	p.comment(ctx, profile, repositoryID, patchID, revisionID, StartingMessage)
}

// PublishResult writes the "finished" comment (spec.md §4.5, after S7).
func (p *Publisher) PublishResult(ctx context.Context, profile node.Profile, repositoryID, patchID, revisionID string, result pipeline.CIResult) {
	p.comment(ctx, profile, repositoryID, patchID, revisionID, result.ReportMessage())
}

func (p *Publisher) comment(ctx context.Context, profile node.Profile, repositoryID, patchID, revisionID, body string) {
	patches, err := profile.PatchStore(repositoryID)
	if err != nil {
		p.log.WithError(err).Warn("failed to open patch store for comment")
		return
	}
	signer, err := profile.Signer()
	if err != nil {
		p.log.WithError(err).Warn("failed to load signer for comment")
		return
	}
	if err := patches.Comment(ctx, patchID, revisionID, body, signer); err != nil {
		p.log.WithError(err).Warn("failed to write patch comment")
	}
}
