package utils

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"time"
)

// AuthorizerPingTimeout bounds a single Authorizer reachability probe
const AuthorizerPingTimeout = 1500 * time.Millisecond

var defaultPorts = map[string]string{
	"http":     "80",
	"https":    "443",
	"redis":    "6379",
	"postgres": "5432",
	"mysql":    "3306",
}

// DialAddress resolves the host:port a service URL listens on, filling in
// the scheme's default port
func DialAddress(serviceURL string) (string, error) {
	parsedURL, err := url.Parse(serviceURL)
	if err != nil {
		return "", fmt.Errorf("invalid URL: %w", err)
	}
	host := parsedURL.Hostname()
	if host == "" {
		return "", fmt.Errorf("invalid URL %q: missing host", serviceURL)
	}

	port := parsedURL.Port()
	if port == "" {
		var ok bool
		if port, ok = defaultPorts[parsedURL.Scheme]; !ok {
			port = "80"
		}
	}
	return net.JoinHostPort(host, port), nil
}

// PingService checks that something accepts TCP connections at serviceURL
// before ctx or timeout expires
func PingService(ctx context.Context, serviceURL string, timeout time.Duration) error {
	address, err := DialAddress(serviceURL)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", address)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", address, err)
	}
	return conn.Close()
}

// PingAuthorizer checks if the Authorizer service is reachable
func PingAuthorizer(ctx context.Context, authzURL string) error {
	return PingService(ctx, authzURL, AuthorizerPingTimeout)
}
