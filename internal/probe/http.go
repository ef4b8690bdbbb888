package probe

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Result is what one GET probe observed. StatusCode is nil when the
// request never completed; ErrorText carries the transport error instead.
type Result struct {
	StatusCode *int
	ErrorText  *string
	LatencyMS  *float64
}

type Prober struct {
	client  *http.Client
	timeout time.Duration
}

func New(timeout time.Duration) *Prober {
	return &Prober{
		timeout: timeout,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					MinVersion: tls.VersionTLS12,
				},
				MaxIdleConns:        100,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
	}
}

// Timeout returns the probe's request deadline.
func (p *Prober) Timeout() time.Duration { return p.timeout }

// Probe performs one bounded GET against the target and captures status,
// latency and error. A failed request is an ordinary result, never an
// error return.
func (p *Prober) Probe(ctx context.Context, target string) Result {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return errorResult(fmt.Sprintf("invalid URL: %v", err), nil)
	}
	req.Header.Set("User-Agent", "UpWatch-Probe/1.0")

	start := time.Now()
	resp, err := p.client.Do(req)
	latency := float64(time.Since(start).Milliseconds())

	if err != nil {
		return errorResult(err.Error(), &latency)
	}
	defer resp.Body.Close()

	// Drain a bounded amount so the connection can be reused.
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	status := resp.StatusCode
	return Result{StatusCode: &status, LatencyMS: &latency}
}

func errorResult(message string, latency *float64) Result {
	return Result{ErrorText: &message, LatencyMS: latency}
}
