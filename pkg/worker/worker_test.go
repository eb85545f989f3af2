package worker

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jenkins-x/radicle-ci/pkg/job"
	"github.com/jenkins-x/radicle-ci/pkg/node"
	"github.com/jenkins-x/radicle-ci/pkg/pipeline"
)

type fakeDriver struct {
	result pipeline.CIResult
	err    error
}

func (f fakeDriver) Run(j job.CIJob) (pipeline.CIResult, error) {
	return f.result, f.err
}

func newTestProfile(t *testing.T) *node.FakeProfile {
	t.Helper()
	profile := node.NewFakeProfile()
	profile.Repositories["proj"] = &node.FakeRepository{
		Files: map[string]map[string]string{
			"headsha": {".concourse/config.yaml": "jobs: []"},
		},
	}
	store := node.NewFakePatchStore(profile)
	store.AddRevision("patch1", node.Revision{ID: "rev1", Head: "headsha"})
	profile.Patches["proj"] = store
	return profile
}

func TestProcessOnePublishesStartingAndResult(t *testing.T) {
	profile := newTestProfile(t)
	w := New(0, Config{RadicleAPIURL: "https://radicle.example"}, logrus.NewEntry(logrus.StandardLogger()))
	w.newDriver = func(cfg Config, log *logrus.Entry) driver {
		return fakeDriver{result: pipeline.CIResult{Status: pipeline.StatusSuccess, URL: "https://builder.example/7"}}
	}

	w.ProcessOne(context.Background(), node.WorkerContext{RepositoryID: "proj", PatchID: "patch1", Profile: profile})

	require.Len(t, profile.Comments, 2)
	assert.Equal(t, "New CI build is starting", profile.Comments[0].Body)
	assert.Contains(t, profile.Comments[1].Body, "PASSED")
}

func TestProcessOneReportsDriverFailureAsFailureResult(t *testing.T) {
	profile := newTestProfile(t)
	w := New(0, Config{RadicleAPIURL: "https://radicle.example"}, logrus.NewEntry(logrus.StandardLogger()))
	w.newDriver = func(cfg Config, log *logrus.Entry) driver {
		return fakeDriver{err: assertErr("builder unreachable")}
	}

	w.ProcessOne(context.Background(), node.WorkerContext{RepositoryID: "proj", PatchID: "patch1", Profile: profile})

	require.Len(t, profile.Comments, 2)
	assert.Contains(t, profile.Comments[1].Body, "FAILED")
}

func TestProcessOneDropsPatchWithNoPipelineTemplate(t *testing.T) {
	profile := node.NewFakeProfile()
	profile.Repositories["proj"] = &node.FakeRepository{Files: map[string]map[string]string{}}
	store := node.NewFakePatchStore(profile)
	store.AddRevision("patch1", node.Revision{ID: "rev1", Head: "headsha"})
	profile.Patches["proj"] = store

	w := New(0, Config{RadicleAPIURL: "https://radicle.example"}, nil)
	w.ProcessOne(context.Background(), node.WorkerContext{RepositoryID: "proj", PatchID: "patch1", Profile: profile})

	assert.Empty(t, profile.Comments)
}

type stubErr string

func (e stubErr) Error() string { return string(e) }

func assertErr(msg string) error { return stubErr(msg) }
