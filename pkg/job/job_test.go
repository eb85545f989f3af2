package job_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jenkins-x/radicle-ci/pkg/job"
	"github.com/jenkins-x/radicle-ci/pkg/node"
)

func TestPipelineNameIsPureFunctionOfProjectID(t *testing.T) {
	assert.Equal(t, "acme-pipeline", job.PipelineName("acme"))
	assert.Equal(t, "acme-pipeline", job.PipelineName("acme"))
}

func TestBuilderBuildSubstitutesPlaceholders(t *testing.T) {
	profile := node.NewFakeProfile()
	profile.Repositories["proj"] = &node.FakeRepository{
		Files: map[string]map[string]string{
			"headsha": {
				".concourse/config.yaml": "url: ((repo_url))\nrev: ((patch_revision_id))\nhead: ((patch_head))\n",
			},
		},
	}
	store := node.NewFakePatchStore(profile)
	store.AddRevision("patch1", node.Revision{ID: "rev1", Head: "headsha"})
	profile.Patches["proj"] = store

	builder := job.NewBuilder("https://radicle.example")
	ciJob, err := builder.Build(node.WorkerContext{RepositoryID: "proj", PatchID: "patch1", Profile: profile})
	require.NoError(t, err)

	assert.Equal(t, "rev1", ciJob.PatchRevisionID)
	assert.Equal(t, "headsha", ciJob.PatchHead)
	assert.Equal(t, "proj", ciJob.ProjectID)
	assert.Equal(t, "url: https://radicle.example/proj.git\nrev: rev1\nhead: headsha\n", ciJob.PipelineConfig)
}

func TestBuilderBuildMissingTemplateIsRepositoryError(t *testing.T) {
	profile := node.NewFakeProfile()
	profile.Repositories["proj"] = &node.FakeRepository{Files: map[string]map[string]string{}}
	store := node.NewFakePatchStore(profile)
	store.AddRevision("patch1", node.Revision{ID: "rev1", Head: "headsha"})
	profile.Patches["proj"] = store

	builder := job.NewBuilder("https://radicle.example")
	_, err := builder.Build(node.WorkerContext{RepositoryID: "proj", PatchID: "patch1", Profile: profile})

	require.Error(t, err)
	_, ok := err.(*job.RepositoryError)
	assert.True(t, ok)
}
