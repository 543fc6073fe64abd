package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/tidwall/gjson"
)

// ParamClient fetches per-identification parameters from the configuration
// service: GET {base}/{identification}/param returning a JSON object with
// integer-like chewiness and firmness fields.
type ParamClient struct {
	base   string
	client *http.Client
	logger *slog.Logger
}

func NewParamClient(baseURL string, timeout time.Duration, logger *slog.Logger) (*ParamClient, error) {
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid api base url: %w", err)
	}
	return &ParamClient{
		base:   baseURL,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}, nil
}

// Fetch retrieves and coerces the parameters for id. A non-2xx status is a
// fetch failure; malformed or missing fields are not (they coerce to the
// clamped default instead).
func (c *ParamClient) Fetch(ctx context.Context, id string) (Params, error) {
	reqURL := fmt.Sprintf("%s/%s/param", c.base, url.PathEscape(id))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return Params{}, fmt.Errorf("build param request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return Params{}, fmt.Errorf("fetch param: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Params{}, fmt.Errorf("fetch param: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Params{}, fmt.Errorf("read param body: %w", err)
	}
	if !gjson.ValidBytes(body) {
		return Params{}, fmt.Errorf("fetch param: response is not valid JSON")
	}

	p := Params{
		Chewiness: coerceScale(gjson.GetBytes(body, "chewiness")),
		Firmness:  coerceScale(gjson.GetBytes(body, "firmness")),
	}
	c.logger.Debug("parameters fetched", "identification", id,
		"chewiness", p.Chewiness, "firmness", p.Firmness)
	return p, nil
}
