package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-resty/resty/v2"
	"github.com/tomnomnom/linkheader"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"portfolio/internal/apperr"
	"portfolio/internal/config"
	"portfolio/internal/httpclient"
	"portfolio/internal/metrics"
	"portfolio/internal/model"
)

const (
	// PerPage is the largest page size the listing endpoint accepts.
	PerPage = 100

	acceptHeader = "application/vnd.github.v3+json"
	userAgent    = "portfolio-generator"
	reposPath    = "/users/{owner}/repos"

	maxBodyExcerpt = 512
)

var ErrOwnerRequired = errors.New("owner is required")

// StatusError reports a non-2xx response from the API.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.Code)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

// Client lists repositories through the GitHub REST API.
type Client struct {
	rc      *resty.Client
	log     *zap.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger used for per-page and summary entries.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithMetrics records every fetched page on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.rc = newResty(hc) }
}

// NewClient builds a Client for cfg. The token, when set, is sent as
// "Authorization: token <t>" on every request.
func NewClient(cfg config.GitHubConfig, opts ...Option) *Client {
	c := &Client{
		rc:     newResty(httpclient.New(httpclient.DefaultConfig().WithTimeout(cfg.Timeout))),
		log:    zap.NewNop(),
		tracer: otel.Tracer("portfolio/internal/github"),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.rc.SetBaseURL(cfg.BaseURL).
		SetLogger(c.log.Sugar())
	if cfg.Token != "" {
		c.rc.SetAuthScheme("token").SetAuthToken(cfg.Token)
	}
	return c
}

func newResty(hc *http.Client) *resty.Client {
	return resty.NewWithClient(hc).
		SetHeader("Accept", acceptHeader).
		SetHeader("User-Agent", userAgent)
}

// Fetch returns every repository of owner that has GitHub Pages enabled and is
// not a fork, in API order.
//
// Pages are requested until one comes back empty, or until a page carries a
// Link header without a rel="next" entry. Any failure aborts the whole fetch;
// no partial list is returned.
func (c *Client) Fetch(ctx context.Context, owner string) ([]model.Repository, error) {
	if owner == "" {
		return nil, apperr.New("github.fetch", apperr.KindConfiguration, ErrOwnerRequired)
	}

	ctx, span := c.tracer.Start(ctx, "github.fetch", trace.WithAttributes(attribute.String("github.owner", owner)))
	defer span.End()

	var kept []model.Repository
	pages := 0
	for page := 1; ; page++ {
		items, last, err := c.fetchPage(ctx, owner, page)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "fetch failed")
			return nil, err
		}
		pages++
		c.metrics.ObservePage(len(items))

		if len(items) == 0 {
			break
		}

		before := len(kept)
		for _, r := range items {
			if Keep(r) {
				kept = append(kept, r)
			}
		}
		c.log.Debug("fetched page",
			zap.Int("page", page),
			zap.Int("items", len(items)),
			zap.Int("kept", len(kept)-before),
		)

		if last {
			break
		}
	}

	span.SetAttributes(attribute.Int("github.pages", pages), attribute.Int("github.kept", len(kept)))
	c.log.Info("fetched repositories",
		zap.String("owner", owner),
		zap.Int("pages", pages),
		zap.Int("with_pages", len(kept)),
	)
	return kept, nil
}

// fetchPage requests one listing page. last reports that the server said there
// is no next page.
func (c *Client) fetchPage(ctx context.Context, owner string, page int) (items []model.Repository, last bool, err error) {
	res, err := c.rc.R().
		SetContext(ctx).
		SetPathParam("owner", owner).
		SetQueryParams(map[string]string{
			"per_page": strconv.Itoa(PerPage),
			"page":     strconv.Itoa(page),
		}).
		Get(reposPath)
	if err != nil {
		return nil, false, apperr.Newf("github.fetch", apperr.KindTransport, "page %d: %w", page, err)
	}

	if !res.IsSuccess() {
		serr := &StatusError{Code: res.StatusCode(), Body: excerpt(res.Body())}
		return nil, false, apperr.Newf("github.fetch", apperr.KindTransport, "page %d: %w", page, serr).
			WithPath(res.Request.URL)
	}

	if err := json.Unmarshal(res.Body(), &items); err != nil {
		return nil, false, apperr.Newf("github.fetch", apperr.KindTransport, "page %d: decode response: %w", page, err)
	}

	return items, isLastPage(res.Header().Get("Link")), nil
}

// isLastPage reports whether a Link header is present and has no next entry.
// A missing header says nothing, so the caller falls back to the empty page.
func isLastPage(link string) bool {
	if link == "" {
		return false
	}
	return len(linkheader.Parse(link).FilterByRel("next")) == 0
}

func excerpt(b []byte) string {
	if len(b) > maxBodyExcerpt {
		return string(b[:maxBodyExcerpt]) + "..."
	}
	return string(b)
}
