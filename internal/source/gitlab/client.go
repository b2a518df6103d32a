package gitlab

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/machinebox/graphql"
	"github.com/sirupsen/logrus"

	"github.com/nhle/gitlab-import/internal/source"
)

// DefaultEndpoint is the GitLab GraphQL API.
const DefaultEndpoint = "https://gitlab.com/api/graphql"

// maxErrorBody bounds how much of a failed response body is kept.
const maxErrorBody = 4096

// RequestFunc issues one GraphQL request and decodes its data into resp.
type RequestFunc func(
	ctx context.Context,
	name QueryName,
	vars map[string]interface{},
	resp interface{},
) error

// Client talks to the GitLab GraphQL API on behalf of an Authenticator.
type Client struct {
	auth *Authenticator
	gql  *graphql.Client
	log  logrus.FieldLogger
}

// ClientOption customizes a Client.
type ClientOption func(*clientOptions)

type clientOptions struct {
	endpoint   string
	httpClient *http.Client
}

// WithEndpoint points the client at a different GraphQL endpoint.
func WithEndpoint(endpoint string) ClientOption {
	return func(o *clientOptions) { o.endpoint = endpoint }
}

// WithHTTPClient sets the HTTP client used for GraphQL requests. Its
// transport is wrapped so non-2xx responses surface as errors.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(o *clientOptions) { o.httpClient = c }
}

// NewClient creates a GraphQL client that authenticates through auth.
func NewClient(auth *Authenticator, log logrus.FieldLogger, opts ...ClientOption) *Client {
	o := clientOptions{
		endpoint:   DefaultEndpoint,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(&o)
	}

	base := o.httpClient.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	hc := *o.httpClient
	hc.Transport = &statusTransport{base: base}

	gql := graphql.NewClient(o.endpoint, graphql.WithHTTPClient(&hc))
	gql.Log = func(s string) { log.Debug(s) }

	return &Client{
		auth: auth,
		gql:  gql,
		log:  log,
	}
}

// Authenticate acquires a credential through the client's Authenticator.
func (c *Client) Authenticate(ctx context.Context) (*Credential, error) {
	return c.auth.Authenticate(ctx)
}

// RequestFunc authenticates and returns a function bound to the resulting
// credential. No retry is attempted by the returned function.
func (c *Client) RequestFunc(ctx context.Context) (RequestFunc, error) {
	cred, err := c.auth.Authenticate(ctx)
	if err != nil {
		return nil, err
	}

	return func(
		ctx context.Context,
		name QueryName,
		vars map[string]interface{},
		resp interface{},
	) error {
		return c.run(ctx, cred, name, vars, resp)
	}, nil
}

func (c *Client) run(
	ctx context.Context,
	cred *Credential,
	name QueryName,
	vars map[string]interface{},
	resp interface{},
) error {
	q, err := lookup(name)
	if err != nil {
		return err
	}

	req := graphql.NewRequest(q.document)
	for k, v := range vars {
		req.Var(k, v)
	}
	req.Header.Set("Authorization", "Bearer "+cred.Token)

	c.log.WithField("query", name).Debug("graphql request")

	if err := c.gql.Run(ctx, req, resp); err != nil {
		return c.classify(name, err)
	}
	return nil
}

// classify maps a transport library error onto the source error taxonomy.
func (c *Client) classify(name QueryName, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("running %s: %w", name, err)
	}

	var se *statusError
	if errors.As(err, &se) {
		tErr := &source.TransportError{StatusCode: se.statusCode, Body: se.body, Err: se}
		if se.statusCode == http.StatusUnauthorized {
			c.auth.Invalidate()
			return &source.AuthError{
				SourceType: source.SourceTypeGitLab,
				Message:    fmt.Sprintf("%s rejected the token", name),
				Err:        tErr,
			}
		}
		return tErr
	}

	// Server-side errors come back as "graphql: <message>" after the data
	// has been decoded.
	if msg, ok := strings.CutPrefix(err.Error(), "graphql: "); ok {
		return &source.GraphQLError{Query: string(name), Message: msg}
	}

	return &source.TransportError{Err: fmt.Errorf("running %s: %w", name, err)}
}

// statusError is a non-2xx HTTP response.
type statusError struct {
	statusCode int
	body       string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.statusCode)
}

// statusTransport turns non-2xx responses into errors. GitLab answers some
// failures (401 in particular) with a JSON body the GraphQL client would
// otherwise decode as an empty result.
type statusTransport struct {
	base http.RoundTripper
}

func (t *statusTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	resp.Body.Close()
	return nil, &statusError{
		statusCode: resp.StatusCode,
		body:       strings.TrimSpace(string(body)),
	}
}
