package tmdb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/vadimtrunov/marquee/internal/httpclient"
)

const (
	DefaultBaseURL  = "https://api.themoviedb.org/3"
	DefaultLanguage = "pt-BR"
	imageBaseURL    = "https://image.tmdb.org/t/p/"

	// maxErrorBody caps how much of an error response ends up in HTTPError.
	maxErrorBody = 512
)

// Options configures a Client. Zero values fall back to the package defaults.
type Options struct {
	BaseURL  string
	APIKey   string
	Language string
	Page     int
	HTTP     httpclient.Config

	// VideoTTL caches successful video lookups per movie. 0 disables caching.
	VideoTTL time.Duration
}

// Client is a TMDb API v3 client.
type Client struct {
	baseURL  string
	apiKey   string
	language string
	page     int
	http     *httpclient.Client
	videos   *ttlCache[int, []Video] // nil when caching is off
	logger   *slog.Logger
}

// New creates a new TMDb client.
func New(opts Options, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Language == "" {
		opts.Language = DefaultLanguage
	}
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.HTTP == (httpclient.Config{}) {
		opts.HTTP = httpclient.DefaultConfig()
	}
	c := &Client{
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		apiKey:   opts.APIKey,
		language: opts.Language,
		page:     opts.Page,
		http:     httpclient.New(opts.HTTP, logger),
		logger:   logger,
	}
	if opts.VideoTTL > 0 {
		c.videos = newTTLCache[int, []Video](opts.VideoTTL)
	}
	return c
}

// NewForTest creates a TMDb client with a custom base URL for testing.
// Exported because it is used by cross-package tests.
func NewForTest(baseURL string, logger *slog.Logger) *Client {
	return New(Options{BaseURL: baseURL, APIKey: "test-key"}, logger)
}

// PopularMovies returns the first page of the popular movies listing.
func (c *Client) PopularMovies(ctx context.Context) (*MoviePage, error) {
	var page MoviePage
	if err := c.Get(ctx, "movie/popular", nil, &page); err != nil {
		return nil, fmt.Errorf("popular movies: %w", err)
	}
	return &page, nil
}

// SearchMovies searches for movies by title.
func (c *Client) SearchMovies(ctx context.Context, query string) (*MoviePage, error) {
	var page MoviePage
	params := url.Values{"query": {query}}
	if err := c.Get(ctx, "search/movie", params, &page); err != nil {
		return nil, fmt.Errorf("search movies %q: %w", query, err)
	}
	return &page, nil
}

// MovieVideos returns the videos attached to a movie, in the order TMDb lists them.
// Failed lookups are never cached.
func (c *Client) MovieVideos(ctx context.Context, movieID int) ([]Video, error) {
	if c.videos != nil {
		if videos, ok := c.videos.get(movieID); ok {
			c.logger.Debug("video cache hit", slog.Int("movie_id", movieID))
			return videos, nil
		}
	}

	var resp videosResponse
	path := "movie/" + strconv.Itoa(movieID) + "/videos"
	if err := c.Get(ctx, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("videos for movie %d: %w", movieID, err)
	}

	if c.videos != nil {
		c.videos.set(movieID, resp.Results)
	}
	return resp.Results, nil
}

// PosterURL returns the full URL for a poster path.
func PosterURL(posterPath, size string) string {
	if posterPath == "" {
		return ""
	}
	return imageBaseURL + size + posterPath
}

// Get performs a GET against path relative to the base URL and decodes the
// JSON body into result. The client defaults (api_key, language, page) are
// sent with every request; params override them.
func (c *Client) Get(ctx context.Context, path string, params url.Values, result any) error {
	u, err := url.Parse(c.baseURL + "/" + strings.TrimLeft(path, "/"))
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	q := u.Query()
	q.Set("api_key", c.apiKey)
	q.Set("language", c.language)
	q.Set("page", strconv.Itoa(c.page))
	for k, vs := range params {
		for _, v := range vs {
			q.Set(k, v)
		}
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &httpclient.HTTPError{
			URL:        httpclient.RedactURL(u),
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
