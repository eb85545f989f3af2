package node

import (
	"context"
	"fmt"
	"sync"
)

// FakeProfile is an in-memory Profile used by tests across pkg/ingestor,
// pkg/job, and pkg/publisher, following the teacher's preference for small
// local fakes over a live external collaborator (test/e2e/helpers.go).
type FakeProfile struct {
	mu           sync.Mutex
	Repositories map[string]Repository
	Patches      map[string]PatchStore
	Comments     []FakeComment
}

// FakeComment records one comment written through FakePatchStore.Comment.
type FakeComment struct {
	PatchID    string
	RevisionID string
	Body       string
}

// NewFakeProfile returns an empty FakeProfile ready for populating.
func NewFakeProfile() *FakeProfile {
	return &FakeProfile{
		Repositories: map[string]Repository{},
		Patches:      map[string]PatchStore{},
	}
}

// Signer implements Profile.
func (p *FakeProfile) Signer() (Signer, error) { return fakeSigner{}, nil }

// Repository implements Profile.
func (p *FakeProfile) Repository(repositoryID string) (Repository, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	repo, ok := p.Repositories[repositoryID]
	if !ok {
		return nil, fmt.Errorf("no repository %q registered", repositoryID)
	}
	return repo, nil
}

// PatchStore implements Profile.
func (p *FakeProfile) PatchStore(repositoryID string) (PatchStore, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	store, ok := p.Patches[repositoryID]
	if !ok {
		return nil, fmt.Errorf("no patch store for repository %q registered", repositoryID)
	}
	return store, nil
}

type fakeSigner struct{}

func (fakeSigner) Sign(payload []byte) ([]byte, error) { return payload, nil }

// FakeRepository is an in-memory Repository backed by a map of
// commit -> path -> content.
type FakeRepository struct {
	Files map[string]map[string]string
}

// ReadFile implements Repository.
func (r *FakeRepository) ReadFile(commit string, path string) (string, error) {
	byPath, ok := r.Files[commit]
	if !ok {
		return "", fmt.Errorf("commit %q not found", commit)
	}
	content, ok := byPath[path]
	if !ok {
		return "", fmt.Errorf("path %q not found in commit %q", path, commit)
	}
	return content, nil
}

// FakePatchStore is an in-memory PatchStore.
type FakePatchStore struct {
	mu        sync.Mutex
	revisions map[string][]Revision
	comments  *[]FakeComment
}

// NewFakePatchStore returns a FakePatchStore that records comments into the
// given profile's Comments slice, so tests can assert on both the starting
// and finished comments a single run produced.
func NewFakePatchStore(profile *FakeProfile) *FakePatchStore {
	return &FakePatchStore{
		revisions: map[string][]Revision{},
		comments:  &profile.Comments,
	}
}

// AddRevision registers a revision as the newest for patchID.
func (s *FakePatchStore) AddRevision(patchID string, revision Revision) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revisions[patchID] = append(s.revisions[patchID], revision)
}

// Revisions implements PatchStore.
func (s *FakePatchStore) Revisions(patchID string) ([]Revision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	revisions, ok := s.revisions[patchID]
	if !ok {
		return nil, fmt.Errorf("patch %q not found", patchID)
	}
	return revisions, nil
}

// LatestRevision implements PatchStore.
func (s *FakePatchStore) LatestRevision(patchID string) (Revision, error) {
	revisions, err := s.Revisions(patchID)
	if err != nil {
		return Revision{}, err
	}
	return revisions[len(revisions)-1], nil
}

// Comment implements PatchStore.
func (s *FakePatchStore) Comment(_ context.Context, patchID string, revisionID string, body string, _ Signer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	*s.comments = append(*s.comments, FakeComment{PatchID: patchID, RevisionID: revisionID, Body: body})
	return nil
}

// FakeEventStream is an in-memory EventStream that replays a fixed slice of
// events then closes its channels, simulating a node subscription.
type FakeEventStream struct {
	Events []RefsFetchedEvent
	Err    error
}

// Subscribe implements EventStream.
func (f *FakeEventStream) Subscribe(ctx context.Context) (<-chan RefsFetchedEvent, <-chan error) {
	events := make(chan RefsFetchedEvent, len(f.Events))
	errs := make(chan error, 1)

	go func() {
		defer close(events)
		defer close(errs)
		for _, e := range f.Events {
			select {
			case events <- e:
			case <-ctx.Done():
				return
			}
		}
		if f.Err != nil {
			select {
			case errs <- f.Err:
			case <-ctx.Done():
			}
		}
	}()

	return events, errs
}
