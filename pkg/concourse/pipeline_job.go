package concourse

import "encoding/json"

// pipelineJobViewKind discriminates the three shapes the Builder's jobs
// endpoint can return, per spec.md §3/§4.2. There is no wire-level tag;
// which shape a given response is in must be probed from field presence.
type pipelineJobViewKind int

const (
	kindTriggered pipelineJobViewKind = iota
	kindFinished
	kindGeneric
)

// PipelineJobView is a tagged union over the Builder's three job-list
// response shapes: Triggered (has next_build), Finished (has finished_build
// and transition_build), or Generic (neither).
type PipelineJobView struct {
	kind          pipelineJobViewKind
	name          string
	nextBuild     Build
	finishedBuild Build
}

type pipelineJobWire struct {
	Name          string `json:"name"`
	NextBuild     *Build `json:"next_build"`
	FinishedBuild *Build `json:"finished_build"`
	// TransitionBuild must be present for the Finished shape to match, but
	// its value itself isn't needed by any accessor.
	TransitionBuild *Build `json:"transition_build"`
}

// UnmarshalJSON probes, in order, for the Triggered shape (next_build
// present), then the Finished shape (finished_build and transition_build
// both present), falling back to Generic otherwise - the order spec.md §4.2
// and original_source/src/concourse/pipeline_job.rs both use.
func (v *PipelineJobView) UnmarshalJSON(data []byte) error {
	var w pipelineJobWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	switch {
	case w.NextBuild != nil:
		*v = PipelineJobView{kind: kindTriggered, name: w.Name, nextBuild: *w.NextBuild}
	case w.FinishedBuild != nil && w.TransitionBuild != nil:
		*v = PipelineJobView{kind: kindFinished, name: w.Name, finishedBuild: *w.FinishedBuild}
	default:
		*v = PipelineJobView{kind: kindGeneric, name: w.Name}
	}
	return nil
}

// Name is the job's name, common to all three variants.
func (v PipelineJobView) Name() string { return v.name }

// Status returns the variant's governing build status, or the zero
// BuildStatus for Generic (which has no build attached).
func (v PipelineJobView) Status() BuildStatus {
	switch v.kind {
	case kindTriggered:
		return v.nextBuild.Status
	case kindFinished:
		return v.finishedBuild.Status
	default:
		return BuildStatus{}
	}
}

// HasCompleted implements spec.md §4.2:
// Triggered → false; Finished → finished_build.has_completed(); Generic → true.
func (v PipelineJobView) HasCompleted() bool {
	switch v.kind {
	case kindTriggered:
		return false
	case kindFinished:
		return v.finishedBuild.HasCompleted()
	default:
		return true
	}
}

// HasCompletedSuccessfully implements spec.md §4.2: Finished →
// finished_build.has_completed_successfully(); else false.
func (v PipelineJobView) HasCompletedSuccessfully() bool {
	if v.kind == kindFinished {
		return v.finishedBuild.HasCompletedSuccessfully()
	}
	return false
}

// IsTriggered reports whether this view is the Triggered variant.
func (v PipelineJobView) IsTriggered() bool { return v.kind == kindTriggered }

// IsFinished reports whether this view is the Finished variant.
func (v PipelineJobView) IsFinished() bool { return v.kind == kindFinished }

// IsGeneric reports whether this view is the Generic variant.
func (v PipelineJobView) IsGeneric() bool { return v.kind == kindGeneric }
