// Package pool fans a single channel of node.WorkerContext values out to a
// fixed number of worker.Worker goroutines and joins them on shutdown
// (spec.md §4.6, component C6).
package pool

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/jenkins-x/radicle-ci/pkg/node"
	"github.com/jenkins-x/radicle-ci/pkg/worker"
)

// Size is the fixed worker-pool capacity. spec.md §4.6 fixes this at 5 and
// leaves tuning it an open question (§9.1); a configurable size is not
// wired up because nothing downstream varies it yet.
const Size = 5

// Pool owns the channel WorkerContexts are submitted on and the goroutines
// draining it.
type Pool struct {
	jobs chan node.WorkerContext
	wg   sync.WaitGroup
	log  *logrus.Entry
}

// New starts Size workers, each built from cfg, reading off a shared
// channel of capacity Size. Submit blocks once the channel is full -
// spec.md §4.6 specifies no overflow/drop policy.
func New(ctx context.Context, cfg worker.Config, log *logrus.Entry) *Pool {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	log = log.WithField("component", "pool")

	p := &Pool{
		jobs: make(chan node.WorkerContext, Size),
		log:  log,
	}

	for i := 0; i < Size; i++ {
		w := worker.New(i, cfg, log)
		p.wg.Add(1)
		go func(w *worker.Worker) {
			defer p.wg.Done()
			w.Run(ctx, p.jobs)
		}(w)
	}

	log.WithField("pool_size", Size).Info("worker pool started")
	return p
}

// Submit enqueues wctx for processing, blocking while the channel is full.
// A submit after Close has closed the channel is logged and dropped: the
// send panic is recovered here. Submit itself never closes the channel.
func (p *Pool) Submit(wctx node.WorkerContext) {
	defer func() {
		if r := recover(); r != nil {
			p.log.WithField("patch_id", wctx.PatchID).Warn("pool is closed, dropping submitted work")
		}
	}()
	p.jobs <- wctx
}

// Close stops accepting new work and waits for every in-flight job to
// finish before returning.
func (p *Pool) Close() {
	close(p.jobs)
	p.wg.Wait()
	p.log.Info("worker pool drained")
}
