package source

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorHelpersSeeThroughWrapping(t *testing.T) {
	transport := &TransportError{StatusCode: 401, Body: "Invalid token"}
	auth := &AuthError{SourceType: SourceTypeGitLab, Message: "rejected", Err: transport}
	wrapped := fmt.Errorf("fetching issues: %w", auth)

	assert.True(t, IsAuthError(wrapped))
	assert.True(t, IsTransportError(wrapped))
	assert.False(t, IsGraphQLError(wrapped))
	assert.False(t, IsSaveError(wrapped))

	save := fmt.Errorf("importing: %w", &SaveError{UniqueID: "x", Err: errors.New("disk full")})
	assert.True(t, IsSaveError(save))
	assert.EqualError(t, save, "importing: saving record x: disk full")
}

func TestTransportErrorMessage(t *testing.T) {
	assert.Equal(t, "transport error: status 502", (&TransportError{StatusCode: 502}).Error())
	assert.Equal(t, "transport error: dial tcp: refused",
		(&TransportError{Err: errors.New("dial tcp: refused")}).Error())
}
