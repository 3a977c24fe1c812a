package service

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"portfolio/internal/apperr"
	"portfolio/internal/config"
	"portfolio/internal/metrics"
	"portfolio/internal/model"
	"portfolio/internal/render"
	"portfolio/internal/storage"
)

const htmlContentType = "text/html; charset=utf-8"

// Fetcher lists the repositories of a GitHub user that belong in the portfolio.
type Fetcher interface {
	Fetch(ctx context.Context, owner string) ([]model.Repository, error)
}

// Result describes a completed run.
type Result struct {
	RunID        string
	Repositories int
	OutputPath   string
	Bytes        int
	PublishedKey string
}

// Generator runs the fetch, render and write pipeline once.
type Generator struct {
	cfg     *config.AppConfig
	fetcher Fetcher
	store   storage.Storage
	metrics *metrics.Metrics
	log     *zap.Logger
	tracer  trace.Tracer
	now     func() time.Time
}

// NewGenerator constructs a Generator. store and m may be nil: a nil store
// skips publishing and nil metrics record nothing.
func NewGenerator(cfg *config.AppConfig, fetcher Fetcher, store storage.Storage, m *metrics.Metrics, log *zap.Logger) *Generator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Generator{
		cfg:     cfg,
		fetcher: fetcher,
		store:   store,
		metrics: m,
		log:     log,
		tracer:  otel.Tracer("portfolio/internal/service"),
		now:     time.Now,
	}
}

// Run produces the output page. On error nothing is written to the output
// path; an earlier file stays untouched.
func (g *Generator) Run(ctx context.Context) (*Result, error) {
	start := g.now()
	res := &Result{RunID: uuid.NewString(), OutputPath: g.cfg.Paths.Output}
	owner := g.cfg.GitHub.Actor
	log := g.log.With(zap.String("run_id", res.RunID))

	ctx, span := g.tracer.Start(ctx, "generator.run", trace.WithAttributes(
		attribute.String("portfolio.run_id", res.RunID),
		attribute.String("github.owner", owner),
	))
	defer span.End()

	err := g.run(ctx, log, owner, res)
	elapsed := g.now().Sub(start)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(apperr.KindOf(err)))
		g.metrics.ObserveFailure(string(apperr.KindOf(err)), elapsed)
		return nil, err
	}

	g.metrics.ObserveSuccess(res.Repositories, elapsed, g.now())
	log.Info("generated portfolio",
		zap.String("output", res.OutputPath),
		zap.Int("repositories", res.Repositories),
		zap.Int("bytes", res.Bytes),
		zap.Duration("elapsed", elapsed),
	)
	return res, nil
}

func (g *Generator) run(ctx context.Context, log *zap.Logger, owner string, res *Result) error {
	page, err := g.loadTemplate()
	if err != nil {
		return err
	}

	log.Info("fetching repositories", zap.String("owner", owner))
	repos, err := g.fetcher.Fetch(ctx, owner)
	if err != nil {
		return err
	}

	repos = Exclude(repos, owner, g.cfg.Portfolio)
	res.Repositories = len(repos)

	_, span := g.tracer.Start(ctx, "render.page", trace.WithAttributes(attribute.Int("portfolio.cards", len(repos))))
	out, err := page.Render(owner, repos)
	span.End()
	if err != nil {
		return err
	}
	res.Bytes = len(out)

	if err := writeFileAtomic(g.cfg.Paths.Output, out); err != nil {
		return err
	}

	if g.store == nil {
		return nil
	}
	key, err := g.publish(ctx, res.RunID, owner, out)
	if err != nil {
		return err
	}
	res.PublishedKey = key
	log.Info("published portfolio", zap.String("key", key))
	return nil
}

func (g *Generator) loadTemplate() (*render.Page, error) {
	path := g.cfg.Paths.Template
	text, err := os.ReadFile(path)
	if err != nil {
		return nil, apperr.New("template.read", apperr.KindTemplate, err).WithPath(path)
	}
	page, err := render.ParsePage(string(text))
	if err != nil {
		if ae, ok := err.(*apperr.Error); ok {
			return nil, ae.WithPath(path)
		}
		return nil, err
	}
	return page, nil
}

func (g *Generator) publish(ctx context.Context, runID, owner string, out []byte) (string, error) {
	key := g.cfg.MinIO.ObjectKey
	ctx, span := g.tracer.Start(ctx, "storage.put", trace.WithAttributes(attribute.String("storage.key", key)))
	defer span.End()

	info, err := g.store.Put(ctx, key, bytes.NewReader(out), storage.PutObjectOptions{
		Size:        int64(len(out)),
		ContentType: htmlContentType,
		Metadata: map[string]string{
			"run-id": runID,
			"owner":  owner,
		},
	})
	if err != nil {
		span.RecordError(err)
		return "", apperr.New("storage.put", apperr.KindPublish, err).WithPath(key)
	}
	return info.Key, nil
}

// Exclude drops repositories named in cfg.Exclude (case-insensitive) and,
// when cfg.SkipUserSite is set, the owner's own <owner>.github.io site.
func Exclude(repos []model.Repository, owner string, cfg config.PortfolioConfig) []model.Repository {
	if len(cfg.Exclude) == 0 && !cfg.SkipUserSite {
		return repos
	}

	skip := make(map[string]bool, len(cfg.Exclude)+1)
	for _, name := range cfg.Exclude {
		skip[strings.ToLower(name)] = true
	}
	if cfg.SkipUserSite {
		skip[strings.ToLower(owner+".github.io")] = true
	}

	out := make([]model.Repository, 0, len(repos))
	for _, r := range repos {
		if !skip[strings.ToLower(r.Name)] {
			out = append(out, r)
		}
	}
	return out
}

// writeFileAtomic writes data to a temporary file beside path and renames it
// into place, so readers never observe a partial page.
func writeFileAtomic(path string, data []byte) (err error) {
	fail := func(err error) error {
		return apperr.New("output.write", apperr.KindFileSystem, err).WithPath(path)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".portfolio-*.tmp")
	if err != nil {
		return fail(err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fail(err)
	}
	if err := tmp.Close(); err != nil {
		return fail(err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fail(err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fail(fmt.Errorf("rename into place: %w", err))
	}
	return nil
}
