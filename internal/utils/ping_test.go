package utils

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialAddress(t *testing.T) {
	tests := []struct {
		url     string
		want    string
		wantErr bool
	}{
		{"http://authorizer", "authorizer:80", false},
		{"https://auth.example.com", "auth.example.com:443", false},
		{"http://localhost:8080/graphql", "localhost:8080", false},
		{"redis://cache", "cache:6379", false},
		{"http://[::1]:9000", "[::1]:9000", false},
		{"/no/host", "", true},
		{"http://bad host", "", true},
	}
	for _, tt := range tests {
		got, err := DialAddress(tt.url)
		if tt.wantErr {
			assert.Error(t, err, tt.url)
			continue
		}
		require.NoError(t, err, tt.url)
		assert.Equal(t, tt.want, got)
	}
}

func TestPingService(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	addr := "http://" + ln.Addr().String()
	assert.NoError(t, PingService(context.Background(), addr, time.Second))

	ln.Close()
	assert.Error(t, PingService(context.Background(), addr, 200*time.Millisecond))
}

func TestPingService_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, PingAuthorizer(ctx, "http://127.0.0.1:1"))
}
