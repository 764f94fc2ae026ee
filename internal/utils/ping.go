package utils

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"time"
)

// defaultPorts fills in the port for URLs that omit one
var defaultPorts = map[string]string{
	"https":    "443",
	"http":     "80",
	"ws":       "80",
	"wss":      "443",
	"redis":    "6379",
	"rediss":   "6379",
	"postgres": "5432",
	"mysql":    "3306",
}

// PingService checks that a TCP connection to the host of serviceURL can be opened
func PingService(ctx context.Context, serviceURL string, timeout time.Duration) error {
	parsedURL, err := url.Parse(serviceURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if parsedURL.Hostname() == "" {
		return fmt.Errorf("invalid URL: missing host in %q", serviceURL)
	}

	port := parsedURL.Port()
	if port == "" {
		port = defaultPorts[parsedURL.Scheme]
		if port == "" {
			port = "80"
		}
	}
	address := net.JoinHostPort(parsedURL.Hostname(), port)

	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", address, err)
	}
	defer conn.Close()

	return nil
}

// PingAuthorizer checks if the Authorizer service is reachable
func PingAuthorizer(authzURL string) error {
	return PingService(context.Background(), authzURL, 1500*time.Millisecond)
}
