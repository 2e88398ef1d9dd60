package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/hackx/skillos/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSONSuccess(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSONSuccess(&buf, map[string]int{"capacity": 50}))

	var env JSONEnvelope
	require.NoError(t, json.Unmarshal(buf.Bytes(), &env))
	assert.True(t, env.Success)
	assert.Nil(t, env.Error)
	assert.Equal(t, map[string]interface{}{"capacity": float64(50)}, env.Data)
	assert.Contains(t, buf.String(), "\n  \"success\": true", "indented output")
}

func TestWriteJSONFromError(t *testing.T) {
	var buf bytes.Buffer
	err := errors.New(errors.ErrAuth, notSignedInMessage, "Run 'skillos login'")
	require.NoError(t, WriteJSONFromError(&buf, err))

	var env JSONEnvelope
	require.NoError(t, json.Unmarshal(buf.Bytes(), &env))
	assert.False(t, env.Success)
	assert.Nil(t, env.Data)
	require.NotNil(t, env.Error)
	assert.Equal(t, ErrCodeNotSignedIn, env.Error.Code)
	assert.Equal(t, notSignedInMessage, env.Error.Message)
	assert.Equal(t, "Run 'skillos login'", env.Error.Suggestion)
}

func TestErrorToJSON(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"config not found", errors.New(errors.ErrConfig, "Config file not found", ""), ErrCodeConfigNotFound},
		{"gateway not set", errors.New(errors.ErrConfig, "Gateway URL is not set", ""), ErrCodeConfigNotFound},
		{"config invalid", errors.New(errors.ErrConfig, "Invalid config format", ""), ErrCodeConfigInvalid},
		{"not signed in", errors.New(errors.ErrAuth, notSignedInMessage, ""), ErrCodeNotSignedIn},
		{"auth failed", errors.New(errors.ErrAuth, "Token has expired or is invalid", ""), ErrCodeAuthFailed},
		{"validation", errors.New(errors.ErrValidation, "Enter the 6-digit code we sent you", ""), ErrCodeInvalidInput},
		{"connection", errors.New(errors.ErrConnection, "Realtime channel closed", ""), ErrCodeConnectionFailed},
		{"fetch", errors.New(errors.ErrFetch, "Failed to load metrics", ""), ErrCodeFetchFailed},
		{"wrapped", fmt.Errorf("outer: %w", errors.New(errors.ErrFetch, "Failed to load metrics", "")), ErrCodeFetchFailed},
		{"plain", fmt.Errorf("boom"), ErrCodeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ErrorToJSON(tt.err)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.Code)
		})
	}

	assert.Nil(t, ErrorToJSON(nil))
	assert.Equal(t, "boom", ErrorToJSON(fmt.Errorf("boom")).Message)
}
