// Package orchestrator is the HTTP client for the descriptor, behaviour and
// resource package APIs of an orchestration environment.
package orchestrator

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// Object is a JSON document exchanged with the behaviour API.
type Object = map[string]any

// ErrNotFound is returned when the requested object does not exist.
var ErrNotFound = errors.New("not found")

// StatusError is returned for any unexpected response status.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("Request returned unexpected error: status_code=%d", e.StatusCode)
	if e.Message != "" {
		msg += ", message=" + e.Message
	}
	return msg
}

// DescriptorStore manages descriptors and assembly templates.
type DescriptorStore interface {
	GetDescriptor(ctx context.Context, name string) (string, error)
	CreateDescriptor(ctx context.Context, content string) error
	UpdateDescriptor(ctx context.Context, name, content string) error
	DeleteDescriptor(ctx context.Context, name string) error
	GetDescriptorTemplate(ctx context.Context, name string) (string, error)
	CreateDescriptorTemplate(ctx context.Context, content string) error
	UpdateDescriptorTemplate(ctx context.Context, name, content string) error
}

// BehaviourStore manages behaviour projects, assembly configurations,
// scenarios and their executions.
type BehaviourStore interface {
	GetProject(ctx context.Context, id string) (Object, error)
	CreateProject(ctx context.Context, project Object) error
	UpdateProject(ctx context.Context, project Object) error
	ListConfigurations(ctx context.Context, projectID string) ([]Object, error)
	CreateConfiguration(ctx context.Context, configuration Object) error
	UpdateConfiguration(ctx context.Context, configuration Object) error
	ListScenarios(ctx context.Context, projectID string) ([]Object, error)
	CreateScenario(ctx context.Context, scenario Object) error
	UpdateScenario(ctx context.Context, scenario Object) error
	// ExecuteScenario starts an execution and returns its Location.
	ExecuteScenario(ctx context.Context, scenarioID string) (string, error)
	GetExecution(ctx context.Context, id string) (Object, error)
}

// ResourcePackageStore onboards and removes resource packages.
type ResourcePackageStore interface {
	OnboardPackage(ctx context.Context, fileName string, content io.Reader) error
	DeletePackage(ctx context.Context, name string) error
}

// Stores bundles the capabilities used by push, pull and test.
type Stores struct {
	Descriptors DescriptorStore
	Behaviour   BehaviourStore
	Packages    ResourcePackageStore
}

// Client talks to one environment.
type Client struct {
	address string
	http    *http.Client
}

// Options configure a Client.
type Options struct {
	Address string
	// Secure enables TLS certificate verification.
	Secure  bool
	Auth    Auth
	Timeout time.Duration
}

// New returns a Client for the environment described by opts.
func New(opts Options) (*Client, error) {
	if opts.Address == "" {
		return nil, fmt.Errorf("environment address must be set")
	}
	base := &http.Client{Timeout: opts.Timeout}
	if !opts.Secure {
		base.Transport = &http.Transport{
			Proxy:           http.ProxyFromEnvironment,
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec // environments commonly use self-signed certificates
		}
	}

	if opts.Auth.Address == "" {
		opts.Auth.Address = opts.Address
	}
	ts, err := opts.Auth.TokenSource(base)
	if err != nil {
		return nil, err
	}
	httpClient := base
	if ts != nil {
		httpClient = &http.Client{
			Timeout:   opts.Timeout,
			Transport: &oauth2.Transport{Source: ts, Base: base.Transport},
		}
	}
	return &Client{address: strings.TrimSuffix(opts.Address, "/"), http: httpClient}, nil
}

// Stores returns c as each of the store interfaces.
func (c *Client) Stores() Stores {
	return Stores{Descriptors: c, Behaviour: c, Packages: c}
}

type request struct {
	method      string
	path        string
	body        io.Reader
	contentType string
	accept      string
	// expect lists the success statuses.
	expect []int
}

func (c *Client) do(ctx context.Context, r request) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, r.method, c.address+r.path, r.body)
	if err != nil {
		return nil, err
	}
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if r.accept != "" {
		req.Header.Set("Accept", r.accept)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", r.method, r.path, err)
	}
	for _, code := range r.expect {
		if resp.StatusCode == code {
			return resp, nil
		}
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%s %s: %w", r.method, r.path, ErrNotFound)
	}
	return nil, statusError(resp)
}

func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	var payload struct {
		LocalizedMessage string `json:"localizedMessage"`
	}
	_ = json.Unmarshal(body, &payload)
	return &StatusError{StatusCode: resp.StatusCode, Message: payload.LocalizedMessage}
}

// text performs r and returns the response body as a string.
func (c *Client) text(ctx context.Context, r request) (string, error) {
	resp, err := c.do(ctx, r)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%s %s: reading response: %w", r.method, r.path, err)
	}
	return string(data), nil
}

// decode performs r and decodes a JSON response into out.
func (c *Client) decode(ctx context.Context, r request, out any) error {
	resp, err := c.do(ctx, r)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: decoding response: %w", r.method, r.path, err)
	}
	return nil
}

// send performs r and discards the response body.
func (c *Client) send(ctx context.Context, r request) error {
	resp, err := c.do(ctx, r)
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.Body.Close()
}

func jsonBody(v any) (io.Reader, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(data), nil
}
