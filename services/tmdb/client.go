package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"

	"pleura/models"
)

// Minimal TMDB v3 client (bearer token auth, the search, discover, listing
// and detail endpoints the app needs). The client is stateless and does not
// cache; every call re-fetches.

const (
	// DefaultBaseURL is the production TMDB API root.
	DefaultBaseURL = "https://api.themoviedb.org/3"

	imageBaseURL = "https://image.tmdb.org/t/p"
)

// ProviderError describes a failed TMDB request: a transport failure or a
// non-2xx status. Callers that convert it to an empty page must surface the
// message so "no matches" stays distinguishable in logs.
type ProviderError struct {
	Endpoint string
	Status   int
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("tmdb %s: status %d: %v", e.Endpoint, e.Status, e.Err)
	}
	return fmt.Sprintf("tmdb %s: %v", e.Endpoint, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

type Client struct {
	accessToken string
	language    string
	baseURL     string
	httpc       *http.Client
}

// NewClient returns a TMDB client. baseURL may be empty for production;
// tests point it at a local server.
func NewClient(accessToken, language, baseURL string, httpc *http.Client) *Client {
	if httpc == nil {
		httpc = &http.Client{Timeout: 15 * time.Second}
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		accessToken: accessToken,
		language:    normalizeLanguage(language),
		baseURL:     strings.TrimRight(baseURL, "/"),
		httpc:       httpc,
	}
}

// IsConfigured reports whether an access token is present.
func (c *Client) IsConfigured() bool { return c.accessToken != "" }

// normalizeLanguage maps loose language inputs to the BCP 47 form TMDB
// expects ("en" -> "en-US", "pt-br" -> "pt-BR").
func normalizeLanguage(lang string) string {
	lang = strings.TrimSpace(strings.ReplaceAll(lang, "_", "-"))
	if lang == "" {
		return "en-US"
	}
	parts := strings.SplitN(lang, "-", 2)
	base := strings.ToLower(parts[0])
	if len(parts) == 2 && parts[1] != "" {
		return base + "-" + strings.ToUpper(parts[1])
	}
	// Bare language codes get the region TMDB serves them under.
	regions := map[string]string{
		"en": "US",
		"es": "US",
		"pt": "BR",
		"fr": "FR",
		"de": "DE",
		"it": "IT",
		"ja": "JP",
		"ko": "KR",
	}
	if region, ok := regions[base]; ok {
		return base + "-" + region
	}
	return base + "-" + strings.ToUpper(base)
}

// pageEnvelope maps TMDB's snake_case pagination payload.
type pageEnvelope struct {
	Page         int                  `json:"page"`
	Results      []models.ContentItem `json:"results"`
	Items        []models.ContentItem `json:"items"` // list endpoint uses "items"
	TotalPages   int                  `json:"total_pages"`
	TotalResults int                  `json:"total_results"`
}

func (e pageEnvelope) toPage() models.PageResult {
	pages := e.TotalPages
	if pages < 1 {
		pages = 1
	}
	items := e.Results
	if items == nil {
		items = []models.ContentItem{}
	}
	return models.PageResult{
		Items:        items,
		TotalResults: e.TotalResults,
		TotalPages:   pages,
	}
}

// doGET issues an authenticated GET and decodes the JSON body into v.
// 429s and 5xxs are retried a few times with backoff; other failures are
// returned immediately as *ProviderError.
func (c *Client) doGET(ctx context.Context, path string, q url.Values, v any) error {
	u := c.baseURL + path
	if len(q) > 0 {
		u = u + "?" + q.Encode()
	}

	err := retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			req.Header.Set("Authorization", "Bearer "+c.accessToken)
			req.Header.Set("Accept", "application/json")

			resp, err := c.httpc.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode >= 300 {
				body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
				perr := &ProviderError{
					Endpoint: path,
					Status:   resp.StatusCode,
					Err:      errors.New(strings.TrimSpace(string(body))),
				}
				if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
					return perr
				}
				return retry.Unrecoverable(perr)
			}

			if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
				return retry.Unrecoverable(&ProviderError{Endpoint: path, Err: fmt.Errorf("decode: %w", err)})
			}
			return nil
		},
		retry.Attempts(3),
		retry.Delay(300*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		var perr *ProviderError
		if !errors.As(err, &perr) {
			return &ProviderError{Endpoint: path, Err: err}
		}
		return err
	}
	return nil
}

// fetchPage gets one paginated payload.
func (c *Client) fetchPage(ctx context.Context, path string, q url.Values) (models.PageResult, error) {
	var env pageEnvelope
	if err := c.doGET(ctx, path, q, &env); err != nil {
		return models.PageResult{}, err
	}
	return env.toPage(), nil
}

// fetchCurated is fetchPage for browse rows: items without a poster are
// dropped so the shelves never render blank tiles.
func (c *Client) fetchCurated(ctx context.Context, path string, q url.Values) (models.PageResult, error) {
	page, err := c.fetchPage(ctx, path, q)
	if err != nil {
		return models.PageResult{}, err
	}
	kept := page.Items[:0]
	for _, it := range page.Items {
		if it.PosterPath != "" {
			kept = append(kept, it)
		}
	}
	page.Items = kept
	return page, nil
}

func (c *Client) baseQuery() url.Values {
	q := url.Values{}
	q.Set("language", c.language)
	return q
}

// ImageURL builds a full image URL from a TMDB path. Valid sizes are w200,
// w300, w500, w780 and original; empty paths yield "".
func ImageURL(path, size string) string {
	if path == "" {
		return ""
	}
	if size == "" {
		size = "w500"
	}
	return imageBaseURL + "/" + size + path
}

// parseYear extracts the release year from a date string, falling back to a
// second date (first air date) when the primary is missing or malformed.
func parseYear(date, fallback string) int {
	for _, d := range []string{date, fallback} {
		if len(d) >= 4 {
			if year, err := strconv.Atoi(d[:4]); err == nil {
				return year
			}
		}
	}
	return 0
}
