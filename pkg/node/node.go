// Package node defines the contracts this bridge expects from the
// code-collaboration node it sits next to. The node itself - its event
// stream, patch store, signing identity, and object database - is out of
// scope for this repository; only the interfaces it must satisfy are
// specified here.
package node

import "context"

// RefUpdateKind describes how a single ref changed in a RefsFetched event.
type RefUpdateKind string

const (
	// RefUpdateCreated is reported for a ref observed for the first time.
	RefUpdateCreated RefUpdateKind = "created"
	// RefUpdateUpdated is reported for a ref whose target moved.
	RefUpdateUpdated RefUpdateKind = "updated"
	// RefUpdateDeleted is reported for a ref that no longer exists.
	RefUpdateDeleted RefUpdateKind = "deleted"
)

// RefUpdate is one entry in a RefsFetched event's updated list.
type RefUpdate struct {
	Name string
	Kind RefUpdateKind
}

// RefsFetchedEvent is emitted by the node whenever a remote push updates one
// or more refs under a repository.
type RefsFetchedEvent struct {
	RepositoryID string
	Updated      []RefUpdate
}

// WorkerContext is a single unit of work drained from the event channel. It
// is created once by the EventIngestor and consumed exactly once by a
// Worker; it is never mutated after creation.
type WorkerContext struct {
	RepositoryID string
	PatchID      string
	Profile      Profile
}

// Profile is the node's local identity: signing key plus access to its
// storage. Out of scope to implement; this repository only depends on the
// interface.
type Profile interface {
	Signer() (Signer, error)
	Repository(repositoryID string) (Repository, error)
	PatchStore(repositoryID string) (PatchStore, error)
}

// Signer authorizes writes (such as patch comments) on behalf of the node's
// local identity.
type Signer interface {
	// Sign returns an opaque signature over payload. Implementations and
	// their cryptographic details live in the node, not here.
	Sign(payload []byte) ([]byte, error)
}

// Revision identifies one immutable version of a patch.
type Revision struct {
	ID   string
	Head string
}

// PatchStore is read-mostly access to a repository's collaborative patch
// objects, plus the ability to append comments (which uses the node's own
// concurrency discipline internally).
type PatchStore interface {
	// Revisions returns the patch's revisions in chronological order.
	Revisions(patchID string) ([]Revision, error)
	// LatestRevision is the convenience accessor JobBuilder uses: the most
	// recent revision's id and head commit.
	LatestRevision(patchID string) (Revision, error)
	// Comment appends a comment to the given revision of the given patch,
	// authorized by signer.
	Comment(ctx context.Context, patchID string, revisionID string, body string, signer Signer) error
}

// Repository is read access to a project's object database: commit and tree
// lookup, used by JobBuilder to load the pipeline template at a patch's
// head commit.
type Repository interface {
	// ReadFile returns the UTF-8 text of path as it exists in the tree
	// rooted at commit. Returns an error when the commit, path, or blob
	// cannot be resolved, or the content isn't valid UTF-8; JobBuilder
	// wraps that error in a RepositoryError (see pkg/job).
	ReadFile(commit string, path string) (string, error)
}

// EventStream is the node's subscription interface: a long-lived, infinite
// read of node events. Implementations close Events and Errors when the
// subscription itself ends (node shutdown, connection drop).
type EventStream interface {
	// Subscribe starts (or returns an already-started) subscription.
	// Cancel the context to stop receiving events.
	Subscribe(ctx context.Context) (<-chan RefsFetchedEvent, <-chan error)
}
