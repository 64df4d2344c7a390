package openlibrary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// ErrNotFound means the catalog has no entry for the key. Every other
// failure (network, 5xx, malformed payload) is transient from the caller's
// point of view.
var ErrNotFound = errors.New("openlibrary: not found")

// Work is a normalized OpenLibrary work record.
type Work struct {
	Key         string
	Title       string
	Description string
	CoverURL    string
	AuthorKeys  []string
}

// Author is a normalized OpenLibrary author record.
type Author struct {
	Key  string
	Name string
	Bio  string
}

type Client struct {
	baseURL      string
	fetchTimeout time.Duration
	httpClient   *http.Client
	logger       *slog.Logger
}

func NewClient(baseURL string, fetchTimeout time.Duration, logger *slog.Logger) *Client {
	if fetchTimeout <= 0 {
		fetchTimeout = 10 * time.Second
	}
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		fetchTimeout: fetchTimeout,
		httpClient:   &http.Client{Timeout: fetchTimeout},
		logger:       logger,
	}
}

// GetWork fetches a work by its catalog key, e.g. "/works/OL45804W".
func (c *Client) GetWork(ctx context.Context, key string) (*Work, error) {
	var payload struct {
		Key         string          `json:"key"`
		Title       string          `json:"title"`
		Description json.RawMessage `json:"description"`
		Covers      []int64         `json:"covers"`
		Authors     []struct {
			Author struct {
				Key string `json:"key"`
			} `json:"author"`
		} `json:"authors"`
	}

	if err := c.getJSON(ctx, key, &payload); err != nil {
		return nil, err
	}

	work := &Work{
		Key:         payload.Key,
		Title:       payload.Title,
		Description: decodeText(payload.Description),
	}
	if len(payload.Covers) > 0 && payload.Covers[0] > 0 {
		work.CoverURL = fmt.Sprintf("https://covers.openlibrary.org/b/id/%d-M.jpg", payload.Covers[0])
	}
	for _, a := range payload.Authors {
		if a.Author.Key != "" {
			work.AuthorKeys = append(work.AuthorKeys, a.Author.Key)
		}
	}

	if work.Title == "" {
		return nil, fmt.Errorf("openlibrary: work %s has no title", key)
	}

	return work, nil
}

// GetAuthor fetches an author by its catalog key, e.g. "/authors/OL23919A".
func (c *Client) GetAuthor(ctx context.Context, key string) (*Author, error) {
	var payload struct {
		Key  string          `json:"key"`
		Name string          `json:"name"`
		Bio  json.RawMessage `json:"bio"`
	}

	if err := c.getJSON(ctx, key, &payload); err != nil {
		return nil, err
	}

	if payload.Name == "" {
		return nil, fmt.Errorf("openlibrary: author %s has no name", key)
	}

	return &Author{
		Key:  payload.Key,
		Name: payload.Name,
		Bio:  decodeText(payload.Bio),
	}, nil
}

func (c *Client) getJSON(ctx context.Context, key string, out interface{}) error {
	if !strings.HasPrefix(key, "/") {
		key = "/" + key
	}
	url := c.baseURL + key + ".json"

	ctx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("openlibrary: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("openlibrary: request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("openlibrary: unexpected status %d for %s", resp.StatusCode, key)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("openlibrary: decode response: %w", err)
	}

	c.logger.Debug("openlibrary fetch succeeded", "key", key)
	return nil
}

// decodeText handles OpenLibrary's two text shapes: a bare string or a
// {"type": ..., "value": ...} object.
func decodeText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var obj struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.Value
	}

	return ""
}
