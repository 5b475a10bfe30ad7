package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	neturl "net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/developmentseed/labs-gpt-stac/framework"
)

// DefaultTimeout bounds every outbound tool request when no client is supplied.
const DefaultTimeout = 30 * time.Second

const userAgent = "labs-gpt-stac/1.0"

// NewHTTPClient returns a traced client with the given timeout, falling back
// to DefaultTimeout.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}

func httpClientOrDefault(c *http.Client) *http.Client {
	if c != nil {
		return c
	}
	return NewHTTPClient(0)
}

// doJSON sends a request and decodes a JSON response into out. Non-2xx
// responses, transport errors and timeouts all map to ErrToolFailure.
func doJSON(ctx context.Context, client *http.Client, method, url string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := httpClientOrDefault(client).Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		// url.Error repeats the full URL, which may carry an api key.
		var uerr *neturl.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return fmt.Errorf("%w: %s %s%s: %w", framework.ErrToolFailure, method, req.URL.Host, req.URL.Path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		detail := strings.TrimSpace(string(msg))
		if detail != "" {
			return fmt.Errorf("%w: %s: %s", framework.ErrToolFailure, resp.Status, truncate(detail, 512))
		}
		return fmt.Errorf("%w: %s", framework.ErrToolFailure, resp.Status)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %w", framework.ErrToolFailure, err)
	}
	return nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
