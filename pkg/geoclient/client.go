// Package geoclient is a Go client for the plat-geoview REST API. A Client
// is also a registry.Fetcher, so a local session can style and build
// legends for layers served by a remote server.
package geoclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/paulmach/orb/geojson"
)

// APIError is a non-2xx response, decoded from Huma's problem+json body
// when present.
type APIError struct {
	Status int    `json:"status"`
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%d %s: %s", e.Status, e.Title, e.Detail)
	}
	return fmt.Sprintf("%d %s", e.Status, e.Title)
}

type HealthBody struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

type InfoBody struct {
	Name     string   `json:"name"`
	Version  string   `json:"version"`
	DataDir  string   `json:"data_dir"`
	Layers   int      `json:"layers"`
	Features []string `json:"features"`
}

type LayerRef struct {
	Name   string `json:"name"`
	Source string `json:"source"`
}

type LayersBody struct {
	Layers  []LayerRef          `json:"layers"`
	Sources map[string]string   `json:"sources"`
	Groups  map[string][]string `json:"groups"`
}

type Gradient struct {
	Attribute string   `json:"attribute"`
	Kind      string   `json:"kind,omitempty"`
	Options   []string `json:"options,omitempty"`
}

type Ramp struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// LayerEntry is a layer's presentation metadata.
type LayerEntry struct {
	Name     string    `json:"name"`
	Source   string    `json:"source"`
	Label    string    `json:"label,omitempty"`
	Color    string    `json:"color,omitempty"`
	Group    string    `json:"group,omitempty"`
	Category string    `json:"category,omitempty"`
	Gradient *Gradient `json:"gradient,omitempty"`
	Ramp     *Ramp     `json:"ramp,omitempty"`
}

type SourceFile struct {
	Name  string `json:"name"`
	Size  string `json:"size"`
	Layer string `json:"layer,omitempty"`
}

// Client talks to one server.
type Client struct {
	base string
	http *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New creates a client for baseURL, e.g. "http://localhost:8086".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Health(ctx context.Context) (*http.Response, HealthBody, error) {
	var body HealthBody
	resp, err := c.getJSON(ctx, "/health", &body)
	return resp, body, err
}

func (c *Client) GetInfo(ctx context.Context) (*http.Response, InfoBody, error) {
	var body InfoBody
	resp, err := c.getJSON(ctx, "/api/v1/info", &body)
	return resp, body, err
}

func (c *Client) ListLayers(ctx context.Context) (*http.Response, LayersBody, error) {
	var body LayersBody
	resp, err := c.getJSON(ctx, "/api/v1/layers", &body)
	return resp, body, err
}

func (c *Client) GetLayer(ctx context.Context, name string) (*http.Response, LayerEntry, error) {
	var body LayerEntry
	resp, err := c.getJSON(ctx, "/api/v1/layers/"+url.PathEscape(name), &body)
	return resp, body, err
}

func (c *Client) ListSources(ctx context.Context) (*http.Response, []SourceFile, error) {
	var body []SourceFile
	resp, err := c.getJSON(ctx, "/api/v1/sources", &body)
	return resp, body, err
}

// Fetch downloads a layer's FeatureCollection.
func (c *Client) Fetch(ctx context.Context, name string) (*geojson.FeatureCollection, error) {
	resp, err := c.do(ctx, "/api/v1/layers/"+url.PathEscape(name)+"/geojson")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", name, err)
	}
	return fc, nil
}

func (c *Client) getJSON(ctx context.Context, path string, v any) (*http.Response, error) {
	resp, err := c.do(ctx, path)
	if err != nil {
		return resp, err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return resp, fmt.Errorf("decoding %s: %w", path, err)
	}
	return resp, nil
}

// do issues a GET and turns non-2xx responses into *APIError.
func (c *Client) do(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		apiErr := &APIError{Status: resp.StatusCode, Title: http.StatusText(resp.StatusCode)}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(apiErr)
		return resp, apiErr
	}
	return resp, nil
}
