// Package job assembles a CIJob from a patch (spec.md §4.4, component C3).
package job

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/jenkins-x/radicle-ci/pkg/node"
)

// templatePath is the file JobBuilder loads from the patch's head commit.
const templatePath = ".concourse/config.yaml"

const (
	placeholderRepoURL   = "((repo_url))"
	placeholderRevision  = "((patch_revision_id))"
	placeholderHead      = "((patch_head))"
)

// CIJob is the immutable description of one build request (spec.md §3).
type CIJob struct {
	PatchRevisionID string
	PatchHead       string
	ProjectID       string
	PipelineConfig  string
}

// PipelineName derives the Builder's pipeline name for a project. It is a
// pure function of project_id (spec.md §3 invariant, §8 testable property).
func PipelineName(projectID string) string {
	return fmt.Sprintf("%s-pipeline", projectID)
}

// RepositoryError is returned when the patch's head commit, tree path, or
// blob cannot be resolved, or the blob isn't valid UTF-8 (spec.md §7).
type RepositoryError struct {
	ProjectID string
	Path      string
	Err       error
}

func (e *RepositoryError) Error() string {
	return fmt.Sprintf("job: repository: %s: %s: %v", e.ProjectID, e.Path, e.Err)
}

func (e *RepositoryError) Unwrap() error { return e.Err }

// Builder assembles CIJobs from WorkerContext values.
type Builder struct {
	RadicleAPIURL string
}

// NewBuilder returns a Builder that composes clone URLs against apiURL.
func NewBuilder(apiURL string) *Builder {
	return &Builder{RadicleAPIURL: apiURL}
}

// Build implements spec.md §4.4's five steps: open the repository, locate
// the patch's latest revision, load the pipeline template at its head
// commit, substitute placeholders, and emit a CIJob. A missing template
// file is fatal - the patch has no pipeline to run.
func (b *Builder) Build(ctx node.WorkerContext) (CIJob, error) {
	repository, err := ctx.Profile.Repository(ctx.RepositoryID)
	if err != nil {
		return CIJob{}, errors.Wrap(err, "job: open repository")
	}

	patches, err := ctx.Profile.PatchStore(ctx.RepositoryID)
	if err != nil {
		return CIJob{}, errors.Wrap(err, "job: open patch store")
	}

	revision, err := patches.LatestRevision(ctx.PatchID)
	if err != nil {
		return CIJob{}, errors.Wrap(err, "job: latest revision")
	}

	template, err := repository.ReadFile(revision.Head, templatePath)
	if err != nil {
		return CIJob{}, &RepositoryError{ProjectID: ctx.RepositoryID, Path: templatePath, Err: err}
	}

	repoURL := fmt.Sprintf("%s/%s.git", strings.TrimRight(b.RadicleAPIURL, "/"), ctx.RepositoryID)

	config := template
	config = strings.ReplaceAll(config, placeholderRepoURL, repoURL)
	config = strings.ReplaceAll(config, placeholderRevision, revision.ID)
	config = strings.ReplaceAll(config, placeholderHead, revision.Head)

	return CIJob{
		PatchRevisionID: revision.ID,
		PatchHead:       revision.Head,
		ProjectID:       ctx.RepositoryID,
		PipelineConfig:  config,
	}, nil
}
