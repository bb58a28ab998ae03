package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localnerve/jam-build-nodedb/internal/config"
)

func TestAuthService_InitRetriesAfterFailure(t *testing.T) {
	cfg := &config.Config{AuthzURL: "http://authorizer:8080", AuthzClientID: "nodedb"}
	auth := NewAuthService(cfg, nil)

	pings := 0
	down := true
	auth.ping = func(_ context.Context, url string) error {
		pings++
		assert.Equal(t, cfg.AuthzURL, url)
		if down {
			return errors.New("connection refused")
		}
		return nil
	}

	err := auth.Init("http", "localhost:3000")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "authorizer ping failed")
	assert.False(t, auth.Initialized())

	_, err = auth.ValidateSession("cookie", []string{"user"})
	assert.EqualError(t, err, "authorizer client not initialized")

	down = false
	require.NoError(t, auth.Init("http", "localhost:3000"))
	assert.True(t, auth.Initialized())

	require.NoError(t, auth.Init("http", "localhost:3000"))
	assert.Equal(t, 2, pings, "an initialized client is reused")
}
