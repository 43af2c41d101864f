package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

// Gridpoint fetches initial conditions from a gridded-forecast HTTP API.
// Requests are rate limited client-side so that assembly-time fan-out does
// not trip the service's quota.
type Gridpoint struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	lats, lons []float64
}

// NewGridpoint discovers the remote grid and returns a ready source.
// rps may be fractional for quotas below one request per second.
func NewGridpoint(ctx context.Context, baseURL, apiKey string, rps float64, burst int) (*Gridpoint, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("source: gridpoint base_url is required")
	}
	if rps <= 0 {
		rps = 1
	}
	if burst <= 0 {
		burst = 5
	}
	g := &Gridpoint{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
	var meta struct {
		Lats []float64 `json:"lats"`
		Lons []float64 `json:"lons"`
	}
	if err := g.get(ctx, "/v1/grid", nil, &meta); err != nil {
		return nil, fmt.Errorf("source: discovering gridpoint grid: %w", err)
	}
	if len(meta.Lats) == 0 || len(meta.Lons) == 0 {
		return nil, fmt.Errorf("source: gridpoint API returned an empty grid")
	}
	g.lats, g.lons = meta.Lats, meta.Lons
	return g, nil
}

func (g *Gridpoint) Name() string { return "gridpoint" }

func (g *Gridpoint) Grid() (lats, lons []float64) { return g.lats, g.lons }

func (g *Gridpoint) Fetch(ctx context.Context, t time.Time, lead time.Duration, variable string) ([]float64, error) {
	params := url.Values{}
	params.Add("time", t.Format(time.RFC3339))
	params.Add("lead_hours", fmt.Sprintf("%g", lead.Hours()))
	params.Add("variable", variable)

	var payload struct {
		Values []float64 `json:"values"`
	}
	if err := g.get(ctx, "/v1/fields", params, &payload); err != nil {
		return nil, err
	}
	return payload.Values, nil
}

// get performs one rate-limited JSON request against the API.
func (g *Gridpoint) get(ctx context.Context, path string, params url.Values, out any) error {
	if err := g.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait canceled: %w", err)
	}

	endpoint := g.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if g.apiKey != "" {
		req.Header.Set("X-Api-Key", g.apiKey)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
