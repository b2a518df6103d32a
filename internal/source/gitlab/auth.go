package gitlab

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/sirupsen/logrus"
	gl "gitlab.com/gitlab-org/api/client-go"

	"github.com/nhle/gitlab-import/internal/source"
)

// TokenKey is the token cache key for GitLab credentials.
const TokenKey = "gitlab-token"

// DefaultRESTURL is the GitLab REST API used to validate tokens.
const DefaultRESTURL = "https://gitlab.com/api/v4"

// Credential is an authenticated GitLab session.
type Credential struct {
	Token    string
	Username string

	// Cached is true when the token came from the cache without validation.
	Cached bool
}

// TokenCache persists tokens between runs.
type TokenCache interface {
	Get(key string) (string, error)
	Set(key string, value string) error
	Delete(key string) error
}

// Prompter obtains a fresh token, usually by asking the user.
type Prompter interface {
	PromptToken(ctx context.Context) (string, error)
}

// PrompterFunc adapts a function to Prompter.
type PrompterFunc func(ctx context.Context) (string, error)

// PromptToken calls f(ctx).
func (f PrompterFunc) PromptToken(ctx context.Context) (string, error) {
	return f(ctx)
}

// TokenValidator checks a token against GitLab and returns the username it
// belongs to.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (string, error)
}

// AuthOptions is the cache-or-refresh policy of an Authenticator.
type AuthOptions struct {
	// UseCachedCredential returns a cached token, when present, without
	// prompting. When false a new token is always requested.
	UseCachedCredential bool
}

// Authenticator acquires GitLab credentials. A credential obtained once is
// reused for the rest of the process until Invalidate is called.
type Authenticator struct {
	cache     TokenCache
	prompter  Prompter
	validator TokenValidator
	opts      AuthOptions
	log       logrus.FieldLogger

	mu      sync.Mutex
	session *Credential
}

// NewAuthenticator creates an Authenticator. cache may be nil, in which case
// every call prompts.
func NewAuthenticator(
	cache TokenCache,
	prompter Prompter,
	validator TokenValidator,
	opts AuthOptions,
	log logrus.FieldLogger,
) *Authenticator {
	return &Authenticator{
		cache:     cache,
		prompter:  prompter,
		validator: validator,
		opts:      opts,
		log:       log,
	}
}

// Authenticate returns a credential, from the cache when the policy allows
// it, otherwise from the prompter after validating the token with GitLab.
func (a *Authenticator) Authenticate(ctx context.Context) (*Credential, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.session != nil {
		return a.session, nil
	}

	if a.opts.UseCachedCredential && a.cache != nil {
		token, err := a.cache.Get(TokenKey)
		if err == nil && token != "" {
			a.log.Debug("using cached GitLab token")
			a.session = &Credential{Token: token, Cached: true}
			return a.session, nil
		}
		if err != nil {
			a.log.WithError(err).Debug("no cached GitLab token")
		}
	}

	if a.prompter == nil {
		return nil, &source.AuthError{
			SourceType: source.SourceTypeGitLab,
			Message:    "no cached token and no way to prompt for one",
		}
	}

	token, err := a.prompter.PromptToken(ctx)
	if err != nil {
		return nil, &source.AuthError{
			SourceType: source.SourceTypeGitLab,
			Message:    "prompting for token",
			Err:        err,
		}
	}
	if token == "" {
		return nil, &source.AuthError{
			SourceType: source.SourceTypeGitLab,
			Message:    "empty token",
		}
	}

	username, err := a.validator.ValidateToken(ctx, token)
	if err != nil {
		if source.IsAuthError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("validating GitLab token: %w", err)
	}

	if a.cache != nil {
		if err := a.cache.Set(TokenKey, token); err != nil {
			// The session still works, it just will not survive a restart.
			a.log.WithError(err).Warn("caching GitLab token")
		}
	}

	a.log.WithField("user", username).Info("authenticated with GitLab")
	a.session = &Credential{Token: token, Username: username}
	return a.session, nil
}

// Invalidate forgets the session and drops the cached token so the next
// Authenticate prompts.
func (a *Authenticator) Invalidate() {
	a.mu.Lock()
	a.session = nil
	a.mu.Unlock()

	if a.cache == nil {
		return
	}
	if err := a.cache.Delete(TokenKey); err != nil {
		a.log.WithError(err).Warn("removing cached GitLab token")
	}
}

// CurrentUserService is the part of the REST users API used for validation.
type CurrentUserService interface {
	CurrentUser(options ...gl.RequestOptionFunc) (*gl.User, *gl.Response, error)
}

// RESTValidator validates tokens by fetching the current user from the
// GitLab REST API.
type RESTValidator struct {
	baseURL    string
	httpClient *http.Client

	// newService is swapped in tests.
	newService func(token string) (CurrentUserService, error)
}

// NewRESTValidator creates a validator for the REST API at baseURL. An empty
// baseURL means DefaultRESTURL; a nil httpClient means the library default.
func NewRESTValidator(baseURL string, httpClient *http.Client) *RESTValidator {
	if baseURL == "" {
		baseURL = DefaultRESTURL
	}
	v := &RESTValidator{baseURL: baseURL, httpClient: httpClient}
	v.newService = v.usersService
	return v
}

func (v *RESTValidator) usersService(token string) (CurrentUserService, error) {
	opts := []gl.ClientOptionFunc{gl.WithBaseURL(v.baseURL)}
	if v.httpClient != nil {
		opts = append(opts, gl.WithHTTPClient(v.httpClient))
	}
	client, err := gl.NewClient(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating GitLab REST client: %w", err)
	}
	return client.Users, nil
}

// ValidateToken returns the username owning token. A 401 or 403 from GitLab
// is an AuthError; anything else is a TransportError.
func (v *RESTValidator) ValidateToken(ctx context.Context, token string) (string, error) {
	svc, err := v.newService(token)
	if err != nil {
		return "", err
	}

	user, resp, err := svc.CurrentUser(gl.WithContext(ctx))
	if err != nil {
		if resp != nil && resp.Response != nil &&
			(resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return "", &source.AuthError{
				SourceType: source.SourceTypeGitLab,
				Message:    "token rejected",
				Err:        err,
			}
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
		status := 0
		if resp != nil && resp.Response != nil {
			status = resp.StatusCode
		}
		return "", &source.TransportError{StatusCode: status, Err: err}
	}

	return user.Username, nil
}
