package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/sirupsen/logrus"
)

// provider bundles what every HTTP-backed source needs.
type provider struct {
	name    string
	http    *RateLimitedHTTPClient
	cache   *ResponseCache
	logger  *logrus.Logger
	baseURL string
	headers map[string]string
}

// getJSON fetches baseURL+endpoint?params, serving from the response cache
// when possible, and decodes the body into out.
func (p *provider) getJSON(ctx context.Context, endpoint string, params url.Values, out interface{}) error {
	var key string
	if p.cache != nil {
		key = Key(p.name, endpoint, params)
		if body, ok := p.cache.Get(key); ok {
			p.logger.WithFields(logrus.Fields{"source": p.name, "endpoint": endpoint}).Debug("Response cache hit")
			return p.decode(body, out)
		}
	}

	u := p.baseURL + endpoint
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return NewDataSourceError(p.name, ErrCodeNetworkError, "failed to create request", err)
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range p.headers {
		req.Header.Set(k, v)
	}

	resp, err := p.http.Do(ctx, req)
	if err != nil {
		return NewDataSourceError(p.name, ErrCodeNetworkError, "request failed", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return NewDataSourceError(p.name, ErrCodeAuthenticationFailed, "invalid API key", nil)
	case resp.StatusCode == http.StatusTooManyRequests:
		return NewDataSourceError(p.name, ErrCodeRateLimitExceeded, "rate limit exceeded", nil)
	case resp.StatusCode == http.StatusNotFound:
		return NewDataSourceError(p.name, ErrCodeNotFound, endpoint, nil)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return NewDataSourceError(p.name, ErrCodeServerError, fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, string(body)), nil)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return NewDataSourceError(p.name, ErrCodeNetworkError, "failed to read response", err)
	}
	if err := p.decode(body, out); err != nil {
		return err
	}
	if p.cache != nil {
		p.cache.Set(key, body)
	}
	return nil
}

func (p *provider) decode(body []byte, out interface{}) error {
	if err := json.Unmarshal(body, out); err != nil {
		return NewDataSourceError(p.name, ErrCodeInvalidData, "failed to parse response", err)
	}
	return nil
}
