package publisher_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jenkins-x/radicle-ci/pkg/node"
	"github.com/jenkins-x/radicle-ci/pkg/pipeline"
	"github.com/jenkins-x/radicle-ci/pkg/publisher"
)

func TestPublishStartingWritesComment(t *testing.T) {
	profile := node.NewFakeProfile()
	store := node.NewFakePatchStore(profile)
	store.AddRevision("patch1", node.Revision{ID: "rev1", Head: "headsha"})
	profile.Patches["proj"] = store

	p := publisher.New(nil)
	p.PublishStarting(context.Background(), profile, "proj", "patch1", "rev1")

	require.Len(t, profile.Comments, 1)
	assert.Equal(t, publisher.StartingMessage, profile.Comments[0].Body)
	assert.Equal(t, "rev1", profile.Comments[0].RevisionID)
}

func TestPublishResultWritesReportMessage(t *testing.T) {
	profile := node.NewFakeProfile()
	store := node.NewFakePatchStore(profile)
	profile.Patches["proj"] = store

	p := publisher.New(nil)
	result := pipeline.CIResult{Status: pipeline.StatusSuccess, URL: "https://builder.example/build/7"}
	p.PublishResult(context.Background(), profile, "proj", "patch1", "rev1", result)

	require.Len(t, profile.Comments, 1)
	assert.Equal(t, "The CI job has PASSED! 🎉\n\nPlease visit https://builder.example/build/7 for more details.", profile.Comments[0].Body)
}

func TestPublishResultSwallowsMissingPatchStore(t *testing.T) {
	profile := node.NewFakeProfile()

	p := publisher.New(nil)
	assert.NotPanics(t, func() {
		p.PublishResult(context.Background(), profile, "missing-repo", "patch1", "rev1", pipeline.CIResult{})
	})
}
