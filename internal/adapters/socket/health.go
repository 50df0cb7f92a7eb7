package socket

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/avidela/meetkit/internal/core"
)

const probeTimeout = 3 * time.Second

// HealthProbe answers "is the signaling endpoint reachable" for connectivity
// indicators. It probes the HTTP health route signaling servers expose next
// to their websocket endpoint.
type HealthProbe struct {
	client *http.Client
	url    string
}

// NewHealthProbe derives the health URL from the websocket URL
// (wss://host/path -> https://host/health).
func NewHealthProbe(wsURL string) (*HealthProbe, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, fmt.Errorf("parse signal url: %w", err)
	}
	switch u.Scheme {
	case "ws":
		u.Scheme = "http"
	case "wss":
		u.Scheme = "https"
	}
	u.Path = "/health"
	u.RawQuery = ""
	return &HealthProbe{
		client: &http.Client{Timeout: probeTimeout},
		url:    u.String(),
	}, nil
}

func (p *HealthProbe) Check(ctx context.Context) core.HealthStatus {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return core.HealthStatus{OK: false, Detail: err.Error()}
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return core.HealthStatus{OK: false, Detail: err.Error()}
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return core.HealthStatus{OK: false, Detail: fmt.Sprintf("status %d", resp.StatusCode)}
	}
	return core.HealthStatus{OK: true, Detail: "reachable"}
}
