package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jenkins-x/radicle-ci/pkg/ingestor"
	"github.com/jenkins-x/radicle-ci/pkg/logging"
	"github.com/jenkins-x/radicle-ci/pkg/metrics"
	"github.com/jenkins-x/radicle-ci/pkg/node"
	"github.com/jenkins-x/radicle-ci/pkg/pool"
	"github.com/jenkins-x/radicle-ci/pkg/worker"
)

const (
	// HealthPath is the URL path for the HTTP endpoint that returns health status.
	HealthPath = "/health"
	// ReadyPath is the URL path for the HTTP endpoint that returns ready status.
	ReadyPath = "/ready"
	// MetricsPath is the URL path Prometheus scrapes.
	MetricsPath = "/metrics"
)

// options holds the command line arguments (spec.md §6.1).
type options struct {
	concourseURL  string
	concourseUser string
	concoursePass string
	radicleAPIURL string

	port     int
	jsonLog  bool
	logLevel string
	workers  int // documented, not yet wired - pool size is fixed at pool.Size
}

func (o *options) validate() error {
	if o.concourseURL == "" || o.concourseUser == "" || o.concoursePass == "" || o.radicleAPIURL == "" {
		return errors.New("config: --concourse-url, --concourse-user, --concourse-pass and --radicle-api-url are all required")
	}
	return nil
}

func newCmdRadicleCI() *cobra.Command {
	o := options{}

	cmd := &cobra.Command{
		Use:   "radicle-ci",
		Short: "Bridges patch updates on a Radicle node to Builder CI runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run()
		},
	}

	cmd.Flags().StringVar(&o.concourseURL, "concourse-url", "", "Base URL of the Builder.")
	cmd.Flags().StringVar(&o.concourseUser, "concourse-user", "", "Builder username.")
	cmd.Flags().StringVar(&o.concoursePass, "concourse-pass", "", "Builder password.")
	cmd.Flags().StringVar(&o.radicleAPIURL, "radicle-api-url", "", "Base URL of the node's HTTP API, used to compose git clone URIs.")
	cmd.Flags().IntVar(&o.port, "port", 8080, "The TCP port to serve /health, /ready and /metrics on.")
	cmd.Flags().BoolVar(&o.jsonLog, "json", true, "Enable JSON logging.")
	cmd.Flags().StringVar(&o.logLevel, "log-level", "info", "Log level (debug, info, warn, error).")
	cmd.Flags().IntVar(&o.workers, "workers", pool.Size, "Worker pool size (not yet wired - pool.Size is fixed).")

	return cmd
}

// run wires C1-C7 together and blocks until an interrupt is received.
//
// The node profile and its event stream are out of this repository's
// scope (spec.md §1, §6.4): production wiring would dial the local
// Radicle node's HTTP control plane here. In its absence this process
// runs against node.NewFakeProfile and an empty node.FakeEventStream, the
// same seams the test suite uses; that stream carries no events, so no
// patch is processed and the ingestor returns as soon as it subscribes.
func (o *options) run() error {
	if err := o.validate(); err != nil {
		return err
	}

	logging.Init(logging.ParseLevel(o.logLevel), o.jsonLog)
	log := logrus.WithField("component", "radicle-ci")

	m := metrics.NewMetrics()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := worker.Config{
		ConcourseURL:  o.concourseURL,
		ConcourseUser: o.concourseUser,
		ConcoursePass: o.concoursePass,
		RadicleAPIURL: o.radicleAPIURL,
		Metrics:       m,
	}

	p := pool.New(ctx, cfg, log)
	defer p.Close()

	profile := node.NewFakeProfile()
	stream := &node.FakeEventStream{}
	in := ingestor.New(stream, profile, p, log)
	go in.Run(ctx)

	mux := http.NewServeMux()
	mux.Handle(HealthPath, http.HandlerFunc(health))
	mux.Handle(ReadyPath, http.HandlerFunc(ready))
	mux.Handle(MetricsPath, metrics.Handler())

	srv := &http.Server{Addr: ":" + strconv.Itoa(o.port), Handler: mux}
	go func() {
		log.WithField("port", o.port).Info("serving health, readiness and metrics")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("http server exited")
		}
	}()

	<-stopper()
	log.Warn("interrupt received, shutting down")
	cancel()
	return srv.Shutdown(context.Background())
}

func health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func ready(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

// stopper returns a channel that closes on the first interrupt and force
// exits on the second, matching the teacher's status-command idiom.
func stopper() chan struct{} {
	stop := make(chan struct{})
	c := make(chan os.Signal, 2)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		close(stop)
		<-c
		os.Exit(1)
	}()
	return stop
}

func main() {
	if err := newCmdRadicleCI().Execute(); err != nil {
		logrus.WithError(err).Fatal("radicle-ci exited with an error")
	}
}
