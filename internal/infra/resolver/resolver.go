// Package resolver fetches item metadata and resolves external references
// into playable items.
package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/amplfr/amplfrd/internal/domain/item"
)

// Config represents resolver configuration.
type Config struct {
	BaseURL   string        // Metadata API base, e.g. https://amplfr.example
	Timeout   time.Duration // Per-request timeout, default 10s
	HeadProbe bool          // Probe source byte sizes with HEAD requests
}

// Client resolves references against a metadata API.
type Client struct {
	baseURL    string
	headProbe  bool
	httpClient *http.Client

	cacheMu sync.RWMutex
	cache   map[string]item.Item
}

// itemResponse is the metadata API wire format for a single item.
type itemResponse struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Artists []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"artists"`
	Album *struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	} `json:"album"`
	Duration float64 `json:"duration"` // Seconds
	Files    []struct {
		URL      string `json:"url"`
		MimeType string `json:"mime"`
		Size     int64  `json:"size"`
	} `json:"files"`
	Start float64 `json:"start"` // Optional trim points, seconds
	End   float64 `json:"end"`
}

// New creates a resolver client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("resolver base URL is required")
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		headProbe:  cfg.HeadProbe,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// Resolve turns a reference (item ID or metadata URL) into a resolved item.
// Results are cached by reference.
func (c *Client) Resolve(ctx context.Context, ref string) (item.Item, error) {
	c.cacheMu.RLock()
	cached, ok := c.cache[ref]
	c.cacheMu.RUnlock()
	if ok {
		return cached, nil
	}

	endpoint, err := c.endpointFor(ref)
	if err != nil {
		return item.Item{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return item.Item{}, errors.Wrap(err, "build metadata request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return item.Item{}, errors.Wrapf(err, "fetch metadata for %q", ref)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return item.Item{}, errors.Newf("metadata fetch for %q returned %d: %s", ref, resp.StatusCode, string(body))
	}

	var payload itemResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return item.Item{}, errors.Wrapf(err, "decode metadata for %q", ref)
	}
	if payload.ID == "" {
		return item.Item{}, errors.Newf("metadata for %q carries no item ID", ref)
	}

	it := c.toItem(payload)
	if c.headProbe {
		c.probeSizes(ctx, &it)
	}

	c.cacheMu.Lock()
	if c.cache == nil {
		c.cache = make(map[string]item.Item)
	}
	c.cache[ref] = it
	c.cacheMu.Unlock()

	return it, nil
}

// endpointFor maps a reference to its metadata endpoint. Absolute URLs are
// fetched as-is; bare IDs resolve against the API base.
func (c *Client) endpointFor(ref string) (string, error) {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		if _, err := url.Parse(ref); err != nil {
			return "", errors.Wrapf(err, "invalid reference %q", ref)
		}
		return ref, nil
	}
	if strings.ContainsAny(ref, " /") {
		return "", errors.Newf("invalid reference %q", ref)
	}
	return fmt.Sprintf("%s/api/%s.json", c.baseURL, url.PathEscape(ref)), nil
}

func (c *Client) toItem(payload itemResponse) item.Item {
	it := item.Item{
		ID:        payload.ID,
		Title:     payload.Title,
		Duration:  secondsToDuration(payload.Duration),
		StartTime: secondsToDuration(payload.Start),
		EndTime:   secondsToDuration(payload.End),
	}
	for _, a := range payload.Artists {
		it.Artists = append(it.Artists, item.Artist{ID: a.ID, Name: a.Name})
	}
	if payload.Album != nil {
		it.Album = &item.AlbumRef{ID: payload.Album.ID, Title: payload.Album.Title}
	}
	for _, f := range payload.Files {
		it.Sources = append(it.Sources, item.Source{
			URL:       c.absoluteURL(f.URL),
			MimeType:  f.MimeType,
			SizeBytes: f.Size,
		})
	}
	return it
}

// absoluteURL resolves relative source paths against the API base.
func (c *Client) absoluteURL(ref string) string {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	return c.baseURL + "/" + strings.TrimLeft(ref, "/")
}

// probeSizes fills in unknown source sizes with HEAD requests. Best-effort;
// failures only log.
func (c *Client) probeSizes(ctx context.Context, it *item.Item) {
	for i := range it.Sources {
		src := &it.Sources[i]
		if src.SizeBytes > 0 {
			continue
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodHead, src.URL, nil)
		if err != nil {
			continue
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			zlog.Debug().Msgf("resolver: HEAD probe of %s failed: %v", src.URL, err)
			continue
		}
		resp.Body.Close()
		if resp.ContentLength > 0 {
			src.SizeBytes = resp.ContentLength
		}
	}
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
