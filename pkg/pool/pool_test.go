package pool_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jenkins-x/radicle-ci/pkg/node"
	"github.com/jenkins-x/radicle-ci/pkg/pool"
	"github.com/jenkins-x/radicle-ci/pkg/worker"
)

func TestPoolDrainsSubmittedWork(t *testing.T) {
	profile := node.NewFakeProfile()
	profile.Repositories["proj"] = &node.FakeRepository{Files: map[string]map[string]string{}}
	store := node.NewFakePatchStore(profile)
	for i := 0; i < 3; i++ {
		store.AddRevision("patch", node.Revision{ID: "rev", Head: "nonexistent"})
	}
	profile.Patches["proj"] = store

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := pool.New(ctx, worker.Config{RadicleAPIURL: "https://radicle.example"}, nil)

	for i := 0; i < 3; i++ {
		p.Submit(node.WorkerContext{RepositoryID: "proj", PatchID: "patch", Profile: profile})
	}

	done := make(chan struct{})
	go func() {
		p.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("pool did not drain within timeout")
	}
}
