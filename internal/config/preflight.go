package config

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"
)

// Reachable probes base with a TCP dial followed by an HTTP GET.
// Any HTTP response counts as reachable; only transport failures do not.
func Reachable(ctx context.Context, base string, timeout time.Duration) error {
	u, err := url.Parse(base)
	if err != nil {
		return fmt.Errorf("invalid target url %q: %w", base, err)
	}
	host := u.Host
	if u.Port() == "" {
		if u.Scheme == "https" {
			host = net.JoinHostPort(u.Hostname(), "443")
		} else {
			host = net.JoinHostPort(u.Hostname(), "80")
		}
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// TCP probe
	d := net.Dialer{}
	conn, err := d.DialContext(ctx, "tcp", host)
	if err != nil {
		return fmt.Errorf("target %s is not accepting connections: %w", host, err)
	}
	_ = conn.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base, nil)
	if err != nil {
		return fmt.Errorf("failed to build probe request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("target %s did not answer: %w", base, err)
	}
	_ = resp.Body.Close()
	return nil
}
