package concourse

import "encoding/json"

// BuildStatus is total: any wire string outside the known set lands in
// Unknown(s) rather than failing to decode (spec.md §4.2, §9 "Unknown enum
// values must not be errors").
type BuildStatus struct {
	kind    string
	unknown string
}

var (
	StatusAborted   = BuildStatus{kind: "aborted"}
	StatusErrored   = BuildStatus{kind: "errored"}
	StatusFailed    = BuildStatus{kind: "failed"}
	StatusPending   = BuildStatus{kind: "pending"}
	StatusStarted   = BuildStatus{kind: "started"}
	StatusSucceeded = BuildStatus{kind: "succeeded"}
)

// UnknownStatus wraps any build status string the Builder returns that
// isn't one of the six known values.
func UnknownStatus(s string) BuildStatus { return BuildStatus{kind: "unknown", unknown: s} }

// IsUnknown reports whether this is the Unknown(s) variant.
func (s BuildStatus) IsUnknown() bool { return s.kind == "unknown" }

// String returns the original wire value.
func (s BuildStatus) String() string {
	if s.IsUnknown() {
		return s.unknown
	}
	return s.kind
}

func parseBuildStatus(s string) BuildStatus {
	switch s {
	case "aborted":
		return StatusAborted
	case "errored":
		return StatusErrored
	case "failed":
		return StatusFailed
	case "pending":
		return StatusPending
	case "started":
		return StatusStarted
	case "succeeded":
		return StatusSucceeded
	default:
		return UnknownStatus(s)
	}
}

// UnsetTime is the Builder's sentinel for an absent start_time/end_time:
// the zero value of Go's time.Time serialized as epoch seconds by
// Concourse, i.e. January 1, year 1, 00:00:00 UTC.
const UnsetTime int64 = -62135596800

// Build is the Builder's record of one pipeline-job execution (spec.md §3).
type Build struct {
	ID           int
	Name         string
	Status       BuildStatus
	PipelineName string
	JobName      string
	StartTime    *int64
	EndTime      *int64
	APIURL       string
	CreatedBy    string
}

type buildWire struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	Status       string `json:"status"`
	PipelineName string `json:"pipeline_name"`
	JobName      string `json:"job_name"`
	StartTime    *int64 `json:"start_time"`
	EndTime      *int64 `json:"end_time"`
	APIURL       string `json:"api_url"`
	CreatedBy    string `json:"created_by"`
}

// UnmarshalJSON decodes a Build, mapping unknown status strings to
// Unknown(s) instead of failing.
func (b *Build) UnmarshalJSON(data []byte) error {
	var w buildWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*b = Build{
		ID:           w.ID,
		Name:         w.Name,
		Status:       parseBuildStatus(w.Status),
		PipelineName: w.PipelineName,
		JobName:      w.JobName,
		StartTime:    w.StartTime,
		EndTime:      w.EndTime,
		APIURL:       w.APIURL,
		CreatedBy:    w.CreatedBy,
	}
	return nil
}

// HasCompleted implements spec.md §4.2:
// has_completed(build) ≡ status ∉ {Started, Pending}.
func (b Build) HasCompleted() bool {
	return b.Status != StatusStarted && b.Status != StatusPending
}

// HasCompletedSuccessfully implements spec.md §4.2:
// has_completed_successfully(build) ≡ status = Succeeded.
func (b Build) HasCompletedSuccessfully() bool {
	return b.Status == StatusSucceeded
}
