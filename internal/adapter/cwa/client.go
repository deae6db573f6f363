package cwa

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/couchcryptid/quake-data-etl/internal/adapter/filestore"
	"github.com/couchcryptid/quake-data-etl/internal/config"
	"github.com/couchcryptid/quake-data-etl/internal/domain"
	"github.com/couchcryptid/quake-data-etl/internal/observability"
)

// Request endpoints, used as the fetch-duration metric label.
const (
	endpointBulletin = "bulletin"
	endpointDetails  = "details"
)

// maxBodyBytes caps a single response body.
const maxBodyBytes = 16 << 20

// Client retrieves bulletins and detail pages from the CWA earthquake site.
// Every request is a single attempt bounded by the client timeout.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a CWA client from the retrieval settings in cfg.
func NewClient(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		baseURL:   cfg.CWABaseURL,
		userAgent: cfg.UserAgent,
		httpClient: &http.Client{
			Timeout: cfg.HTTPTimeout,
		},
		metrics: metrics,
		logger:  logger,
	}
}

// BulletinURL is the direct download location of the {year}{id} bulletin.
func (c *Client) BulletinURL(year, id string) string {
	file := fmt.Sprintf("/drawTrace/outcome/%s/%s%s.txt", year, year, id)
	return c.baseURL + "/download?file=" + url.QueryEscape(file)
}

// DetailURL is the HTML detail page for an encoded identifier.
func (c *Client) DetailURL(encoded string) string {
	return c.baseURL + "/details/" + url.PathEscape(encoded)
}

// BulletinPath is where DownloadBulletin stores a bulletin under dir.
func BulletinPath(dir, year, id string) string {
	return filepath.Join(dir, year+"_"+id+".txt")
}

// RegionalPath is where FetchRegional stores the record for an identifier.
func RegionalPath(dir, id string) string {
	return filepath.Join(dir, id+"_regional.json")
}

// DownloadBulletin saves the raw bulletin bytes to dir/{year}_{id}.txt and
// returns the file path. An existing file is never re-fetched: the call
// returns a KindAlreadyExists error without issuing a request.
func (c *Client) DownloadBulletin(ctx context.Context, year, id, dir string) (string, error) {
	out := BulletinPath(dir, year, id)
	if filestore.Exists(out) {
		return out, &domain.Error{Kind: domain.KindAlreadyExists, Detail: out}
	}

	body, err := c.get(ctx, c.BulletinURL(year, id), endpointBulletin)
	if err != nil {
		return "", err
	}
	if err := filestore.WriteFile(out, body); err != nil {
		return "", fmt.Errorf("save bulletin: %w", err)
	}
	c.logger.Info("bulletin downloaded", "file", out, "bytes", len(body))
	return out, nil
}

// FetchRegional retrieves one detail page, extracts its regional record and
// persists it as dir/{id}_regional.json, where id is the last path segment
// of pageURL. An existing output file short-circuits the request with a
// KindAlreadyExists error.
func (c *Client) FetchRegional(ctx context.Context, pageURL, dir string) (domain.RegionalRecord, error) {
	id, err := pageID(pageURL)
	if err != nil {
		return domain.RegionalRecord{}, err
	}
	out := RegionalPath(dir, id)
	if filestore.Exists(out) {
		return domain.RegionalRecord{}, &domain.Error{Kind: domain.KindAlreadyExists, Detail: out}
	}

	body, err := c.get(ctx, pageURL, endpointDetails)
	if err != nil {
		return domain.RegionalRecord{}, err
	}

	rec, err := ExtractRegional(id, body)
	if err != nil {
		return domain.RegionalRecord{}, err
	}
	if err := filestore.WriteJSON(out, rec, filestore.IndentStage); err != nil {
		return domain.RegionalRecord{}, fmt.Errorf("save regional record: %w", err)
	}
	c.logger.Info("regional data saved", "file", out, "locations", len(rec.Locations))
	return rec, nil
}

// get issues one GET and returns the body. Transport errors and non-200
// responses are KindTransportFailure.
//
// Retry with backoff belongs here if the upstream ever needs it; callers
// already treat every error as a per-item skip.
func (c *Client) get(ctx context.Context, rawURL, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	c.logger.Debug("fetching", "endpoint", endpoint, "url", rawURL)
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.FetchDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, &domain.Error{Kind: domain.KindTransportFailure, Detail: "GET " + rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096)) //nolint:errcheck,gosec // drain for connection reuse
		return nil, &domain.Error{
			Kind:   domain.KindTransportFailure,
			Detail: fmt.Sprintf("GET %s: status %d", rawURL, resp.StatusCode),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &domain.Error{Kind: domain.KindTransportFailure, Detail: "read body " + rawURL, Err: err}
	}
	return body, nil
}

// pageID returns the last path segment of a detail page URL.
func pageID(pageURL string) (string, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("parse detail url: %w", err)
	}
	id := path.Base(strings.TrimRight(u.Path, "/"))
	if id == "" || id == "." || id == "/" {
		return "", fmt.Errorf("detail url %q has no identifier", pageURL)
	}
	return id, nil
}
