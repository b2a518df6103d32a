package gitlab

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sync"
	"testing"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/require"

	"github.com/nhle/gitlab-import/internal/credential"
	"github.com/nhle/gitlab-import/internal/logging"
)

// graphqlRequest is what a GraphQL client POSTs.
type graphqlRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables"`
}

// recordedRequest is a request seen by the fake server.
type recordedRequest struct {
	Operation string
	Variables map[string]interface{}
	Auth      string
}

// operationHandler answers one GraphQL operation with a status and a body.
type operationHandler func(vars map[string]interface{}) (int, string)

// fakeGitLab serves GraphQL operations by name.
type fakeGitLab struct {
	t        *testing.T
	server   *httptest.Server
	handlers map[string]operationHandler

	mu       sync.Mutex
	requests []recordedRequest
}

var testOperationPattern = regexp.MustCompile(`query\s+(\w+)`)

func newFakeGitLab(t *testing.T) *fakeGitLab {
	t.Helper()

	f := &fakeGitLab{t: t, handlers: make(map[string]operationHandler)}
	f.server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeGitLab) handle(operation string, h operationHandler) {
	f.handlers[operation] = h
}

func (f *fakeGitLab) serve(w http.ResponseWriter, r *http.Request) {
	var req graphqlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	m := testOperationPattern.FindStringSubmatch(req.Query)
	if m == nil {
		http.Error(w, "no operation", http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	f.requests = append(f.requests, recordedRequest{
		Operation: m[1],
		Variables: req.Variables,
		Auth:      r.Header.Get("Authorization"),
	})
	f.mu.Unlock()

	h, ok := f.handlers[m[1]]
	if !ok {
		http.Error(w, "unexpected operation "+m[1], http.StatusNotImplemented)
		return
	}

	status, body := h(req.Variables)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func (f *fakeGitLab) recorded() []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]recordedRequest, len(f.requests))
	copy(out, f.requests)
	return out
}

// staticValidator accepts every token as belonging to user.
type staticValidator struct {
	user  string
	err   error
	calls int
}

func (v *staticValidator) ValidateToken(_ context.Context, _ string) (string, error) {
	v.calls++
	return v.user, v.err
}

// newCachedStore returns a token cache holding token.
func newCachedStore(t *testing.T, token string) *credential.Store {
	t.Helper()
	s := credential.New(keyring.NewArrayKeyring(nil))
	if token != "" {
		require.NoError(t, s.Set(TokenKey, token))
	}
	return s
}

// newTestClient builds a client against f that authenticates with a cached
// token.
func newTestClient(t *testing.T, f *fakeGitLab) *Client {
	t.Helper()
	auth := NewAuthenticator(
		newCachedStore(t, "test-token"),
		nil,
		&staticValidator{user: "alice"},
		AuthOptions{UseCachedCredential: true},
		logging.Discard(),
	)
	return NewClient(auth, logging.Discard(), WithEndpoint(f.server.URL))
}
