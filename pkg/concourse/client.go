// Package concourse is the typed wrapper over the Builder's HTTP API (the
// "BuilderClient" of spec.md §4.1). It owns the bearer token and its
// refresh; every other package in this repository reaches the Builder only
// through a Client.
package concourse

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/jenkins-x/radicle-ci/pkg/metrics"
)

const (
	fixedBasicAuth   = "Basic Zmx5OlpteDU=" // the Builder's public CLI credential, not a secret
	teamPipelinesFmt = "%s/api/v1/teams/main/pipelines/%s"
)

// Client is the sole interface to the Builder. Not shared between workers:
// each worker constructs its own so that the cached token stays local to
// the job processing it (spec.md §3 "Ownership").
type Client struct {
	httpClient *http.Client
	baseURL    string
	user       string
	pass       string

	token *Token
	now   func() time.Time

	log     *logrus.Entry
	metrics *metrics.Metrics
}

// NewClient constructs a Client for one Builder instance. baseURL must not
// have a trailing slash.
func NewClient(baseURL, user, pass string, log *logrus.Entry) *Client {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Client{
		httpClient: &http.Client{},
		baseURL:    baseURL,
		user:       user,
		pass:       pass,
		now:        time.Now,
		log:        log.WithField("component", "concourse-client"),
	}
}

// GetAccessToken unconditionally fetches a fresh token via the password
// grant (spec.md §4.1) and caches it.
func (c *Client) GetAccessToken() (Token, error) {
	const op = "get_access_token"

	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("username", c.user)
	form.Set("password", c.pass)
	form.Set("scope", "openid profile email federated:id groups")

	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/sky/issuer/token", bytes.NewBufferString(form.Encode()))
	if err != nil {
		return Token{}, errors.Wrapf(err, "concourse: %s: build request", op)
	}
	req.Header.Set("Authorization", fixedBasicAuth)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var resp tokenResponse
	if err := c.do(op, req, &resp); err != nil {
		return Token{}, err
	}

	token := tokenFromResponse(resp, c.now())
	c.token = &token
	c.log.Debug("acquired new access token")
	return token, nil
}

// SetMetrics attaches a collector that is incremented on every Builder
// request, by operation and outcome. A Client with no metrics attached
// skips the increment.
func (c *Client) SetMetrics(m *metrics.Metrics) {
	c.metrics = m
}

// AcquireAccessToken returns the cached token if present and not expired;
// otherwise it calls GetAccessToken. This is the suspension point every
// other operation goes through first (spec.md §4.1).
func (c *Client) AcquireAccessToken() (Token, error) {
	if c.token != nil && !c.token.HasExpired(c.now()) {
		return *c.token, nil
	}
	return c.GetAccessToken()
}

// PipelineConfiguration is the text of a pipeline definition together with
// the optimistic-concurrency version it was read at, if any.
type PipelineConfiguration struct {
	Text    string
	Version string // empty means "no current version" (pipeline does not yet exist)
}

// GetPipelineConfig fetches name's current config and the
// X-Concourse-Config-Version header verbatim. A 4xx response (pipeline
// doesn't exist yet) is reported as a zero-value PipelineConfiguration, nil
// error - spec.md §4.1: "not fatal: drivers treat it as 'no current
// version'". A 5xx response is returned as a ResponseError.
func (c *Client) GetPipelineConfig(name string) (PipelineConfiguration, error) {
	const op = "get_pipeline_config"

	token, err := c.AcquireAccessToken()
	if err != nil {
		return PipelineConfiguration{}, err
	}

	req, err := http.NewRequest(http.MethodGet, fmt.Sprintf(teamPipelinesFmt+"/config", c.baseURL, name), nil)
	if err != nil {
		return PipelineConfiguration{}, errors.Wrapf(err, "concourse: %s: build request", op)
	}
	if err := setBearer(req, token); err != nil {
		return PipelineConfiguration{}, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(op, "transport_error")
		return PipelineConfiguration{}, &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		c.observe(op, "transport_error")
		return PipelineConfiguration{}, errors.Wrapf(err, "concourse: %s: read body", op)
	}

	if resp.StatusCode >= 500 {
		c.observe(op, "response_error")
		return PipelineConfiguration{}, &ResponseError{Op: op, StatusCode: resp.StatusCode, Errors: []string{string(body)}}
	}
	if resp.StatusCode >= 400 {
		c.observe(op, "response_error")
		c.log.WithField("pipeline", name).Debug("pipeline config not found, treating as no current version")
		return PipelineConfiguration{}, nil
	}

	c.observe(op, "success")
	return PipelineConfiguration{
		Text:    string(body),
		Version: resp.Header.Get("X-Concourse-Config-Version"),
	}, nil
}

// CreatePipelineConfig PUTs a new config for name. version is the
// optimistic-concurrency token to submit; an empty version submits "1" as
// spec.md §4.1 prescribes for a pipeline with no prior version.
func (c *Client) CreatePipelineConfig(name, config, version string) error {
	const op = "create_pipeline_config"

	token, err := c.AcquireAccessToken()
	if err != nil {
		return err
	}
	if version == "" {
		version = "1"
	}

	req, err := http.NewRequest(http.MethodPut, fmt.Sprintf(teamPipelinesFmt+"/config", c.baseURL, name), bytes.NewBufferString(config))
	if err != nil {
		return errors.Wrapf(err, "concourse: %s: build request", op)
	}
	if err := setBearer(req, token); err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-yaml")
	req.Header.Set("X-Concourse-Config-Version", version)

	return c.do(op, req, nil)
}

// UnpausePipeline unpauses name.
func (c *Client) UnpausePipeline(name string) error {
	const op = "unpause_pipeline"

	token, err := c.AcquireAccessToken()
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPut, fmt.Sprintf(teamPipelinesFmt+"/unpause", c.baseURL, name), nil)
	if err != nil {
		return errors.Wrapf(err, "concourse: %s: build request", op)
	}
	if err := setBearer(req, token); err != nil {
		return err
	}

	return c.do(op, req, nil)
}

// GetAllPipelineJobs lists every job declared by name's pipeline.
func (c *Client) GetAllPipelineJobs(name string) ([]PipelineJobView, error) {
	const op = "get_all_pipeline_jobs"

	token, err := c.AcquireAccessToken()
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequest(http.MethodGet, fmt.Sprintf(teamPipelinesFmt+"/jobs", c.baseURL, name), nil)
	if err != nil {
		return nil, errors.Wrapf(err, "concourse: %s: build request", op)
	}
	if err := setBearer(req, token); err != nil {
		return nil, err
	}

	var jobs []PipelineJobView
	if err := c.do(op, req, &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

// TriggerNewPipelineJobBuild triggers a fresh build of job on pipeline name.
func (c *Client) TriggerNewPipelineJobBuild(name, job string) (Build, error) {
	const op = "trigger_new_pipeline_job_build"

	token, err := c.AcquireAccessToken()
	if err != nil {
		return Build{}, err
	}

	req, err := http.NewRequest(http.MethodPost, fmt.Sprintf(teamPipelinesFmt+"/jobs/%s/builds", c.baseURL, name, job), nil)
	if err != nil {
		return Build{}, errors.Wrapf(err, "concourse: %s: build request", op)
	}
	if err := setBearer(req, token); err != nil {
		return Build{}, err
	}

	var build Build
	if err := c.do(op, req, &build); err != nil {
		return Build{}, err
	}
	return build, nil
}

// GetBuild fetches the current state of build id.
func (c *Client) GetBuild(id int) (Build, error) {
	const op = "get_build"

	token, err := c.AcquireAccessToken()
	if err != nil {
		return Build{}, err
	}

	req, err := http.NewRequest(http.MethodGet, fmt.Sprintf("%s/api/v1/builds/%s", c.baseURL, strconv.Itoa(id)), nil)
	if err != nil {
		return Build{}, errors.Wrapf(err, "concourse: %s: build request", op)
	}
	if err := setBearer(req, token); err != nil {
		return Build{}, err
	}

	var build Build
	if err := c.do(op, req, &build); err != nil {
		return Build{}, err
	}
	return build, nil
}

// setBearer attaches token's Authorization header via the standard
// golang.org/x/oauth2 carrier (Token.OAuth2), rather than formatting the
// header by hand. It returns NoAccessTokenError if token has no access
// token to offer - in practice this only happens if the Builder's token
// endpoint returns 200 with an empty access_token field, since
// AcquireAccessToken otherwise always fetches one first.
func setBearer(req *http.Request, token Token) error {
	if token.AccessToken == "" {
		return NoAccessTokenError{}
	}
	oauthToken := token.OAuth2()
	oauthToken.SetAuthHeader(req)
	return nil
}

// do issues req and, on a 2xx response, decodes the JSON body into out (a
// nil out skips decoding, for operations with an empty response body like
// unpause/create). 4xx/5xx bodies are read as plain text per spec.md §4.1
// and surfaced as a ResponseError; transport failures are surfaced as a
// TransportError.
func (c *Client) do(op string, req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(op, "transport_error")
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		c.observe(op, "transport_error")
		return errors.Wrapf(err, "concourse: %s: read body", op)
	}

	if resp.StatusCode >= 400 {
		c.observe(op, "response_error")
		return &ResponseError{Op: op, StatusCode: resp.StatusCode, Errors: []string{string(body)}}
	}

	if out == nil {
		c.observe(op, "success")
		return nil
	}

	if err := json.Unmarshal(body, out); err != nil {
		c.observe(op, "decode_error")
		return &DecodeError{Op: op, Err: err}
	}
	c.observe(op, "success")
	return nil
}

// observe increments BuilderRequests{op,outcome} if a collector is attached.
func (c *Client) observe(op, outcome string) {
	if c.metrics != nil {
		c.metrics.BuilderRequests.WithLabelValues(op, outcome).Inc()
	}
}
