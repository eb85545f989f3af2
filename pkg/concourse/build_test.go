package concourse_test

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jenkins-x/radicle-ci/pkg/concourse"
)

func TestBuildUnmarshalJSONKnownStatus(t *testing.T) {
	raw := `{"id":7,"name":"12","status":"succeeded","pipeline_name":"p","job_name":"build"}`

	var b concourse.Build
	require.NoError(t, json.Unmarshal([]byte(raw), &b))

	assert.Equal(t, 7, b.ID)
	assert.Equal(t, "succeeded", b.Status.String())
	assert.False(t, b.Status.IsUnknown())
	assert.True(t, b.HasCompleted())
	assert.True(t, b.HasCompletedSuccessfully())
}

func TestBuildUnmarshalJSONUnknownStatusDoesNotFail(t *testing.T) {
	raw := `{"id":1,"name":"1","status":"some-future-status"}`

	var b concourse.Build
	require.NoError(t, json.Unmarshal([]byte(raw), &b))

	assert.True(t, b.Status.IsUnknown())
	assert.Equal(t, "some-future-status", b.Status.String())
	// An unrecognized status is neither Started nor Pending, so it reads as
	// completed - matching spec.md §4.2's definition over the known set.
	assert.True(t, b.HasCompleted())
	assert.False(t, b.HasCompletedSuccessfully())
}

func TestBuildUnmarshalJSONFullShape(t *testing.T) {
	raw := `{"id":7,"name":"12","status":"started","pipeline_name":"demo-pipeline","job_name":"build","api_url":"/builds/7","created_by":"ci"}`

	var got concourse.Build
	require.NoError(t, json.Unmarshal([]byte(raw), &got))

	want := concourse.Build{
		ID:           7,
		Name:         "12",
		Status:       concourse.StatusStarted,
		PipelineName: "demo-pipeline",
		JobName:      "build",
		APIURL:       "/builds/7",
		CreatedBy:    "ci",
	}

	if diff := cmp.Diff(want, got, cmp.AllowUnexported(concourse.BuildStatus{})); diff != "" {
		t.Errorf("decoded Build mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildHasCompleted(t *testing.T) {
	tests := []struct {
		status         concourse.BuildStatus
		wantCompleted  bool
		wantSuccessful bool
	}{
		{concourse.StatusPending, false, false},
		{concourse.StatusStarted, false, false},
		{concourse.StatusSucceeded, true, true},
		{concourse.StatusFailed, true, false},
		{concourse.StatusErrored, true, false},
		{concourse.StatusAborted, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.status.String(), func(t *testing.T) {
			b := concourse.Build{Status: tt.status}
			assert.Equal(t, tt.wantCompleted, b.HasCompleted())
			assert.Equal(t, tt.wantSuccessful, b.HasCompletedSuccessfully())
		})
	}
}
