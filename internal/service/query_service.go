package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jengzang/simplegis/internal/cache"
	"github.com/jengzang/simplegis/internal/database"
	"github.com/jengzang/simplegis/internal/metrics"
	"github.com/jengzang/simplegis/internal/models"
	"github.com/jengzang/simplegis/internal/spatial"
)

// ResultCache stores assembled success payloads
type ResultCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, body []byte) error
}

// QueryService runs ad-hoc queries and shapes the rows for the map
type QueryService struct {
	source  database.Source
	maxRows int
	cache   ResultCache
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// Option configures a QueryService
type Option func(*QueryService)

// WithCache enables the payload cache
func WithCache(c ResultCache) Option {
	return func(s *QueryService) { s.cache = c }
}

// WithMetrics records pipeline metrics
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *QueryService) { s.metrics = m }
}

// WithLogger overrides the default slog logger
func WithLogger(l *slog.Logger) Option {
	return func(s *QueryService) { s.logger = l }
}

// NewQueryService creates a new query service
func NewQueryService(source database.Source, maxRows int, opts ...Option) *QueryService {
	s := &QueryService{source: source, maxRows: maxRows, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Options resolves the request fields with their defaults
func (s *QueryService) Options(req models.QueryRequest) AggregateOptions {
	t := models.ElementType(req.Type)
	if t == "" {
		t = models.ElementMarker
	}
	color := models.Null()
	if req.Color != "" {
		color = models.Text(req.Color)
	}
	return AggregateOptions{
		Type:    t,
		GroupBy: req.GroupBy,
		Color:   color,
		Frame:   spatial.ParseFrame(req.Fix),
		MaxRows: s.maxRows,
	}
}

// Run executes the query and aggregates its rows
func (s *QueryService) Run(ctx context.Context, req models.QueryRequest) (Aggregation, error) {
	if strings.TrimSpace(req.Query) == "" {
		return Aggregation{}, ErrEmptyQuery
	}

	opts := s.Options(req)
	if !opts.Frame.Known() {
		s.logger.Warn("unknown fix, positions passed through as wgs", "fix", string(opts.Frame))
	}
	cur, err := s.source.Execute(ctx, req.Query)
	if err != nil {
		return Aggregation{}, err
	}
	return Aggregate(cur, opts)
}

// Handle runs the full request pipeline and returns the status and JSON
// body to send back
func (s *QueryService) Handle(ctx context.Context, req models.QueryRequest) (int, []byte) {
	start := time.Now()
	opts := s.Options(req)

	key := ""
	if s.cache != nil && strings.TrimSpace(req.Query) != "" {
		key = cache.Key(s.source.Kind(), req)
		if body, ok, err := s.cache.Get(ctx, key); err != nil {
			s.logger.Warn("cache lookup failed", "error", err)
		} else if ok {
			s.metrics.CacheHit()
			s.metrics.ObserveQuery(opts.Type, "cached", time.Since(start))
			return http.StatusOK, body
		}
		s.metrics.CacheMiss()
	}

	res, err := s.Run(ctx, req)
	status, payload := Assemble(res, err)
	body, merr := json.Marshal(payload)
	if merr != nil {
		err = merr
		status, payload = Assemble(Aggregation{}, merr)
		body, _ = json.Marshal(payload)
	}

	s.metrics.AddRows(opts.Type, res.Rows)
	switch {
	case err == nil:
		if res.Notice != "" {
			s.metrics.Truncated(opts.Type)
		}
		s.metrics.ObserveQuery(opts.Type, "ok", time.Since(start))
		if key != "" {
			if cerr := s.cache.Set(ctx, key, body); cerr != nil {
				s.logger.Warn("cache store failed", "error", cerr)
			}
		}
		s.logger.Debug("query served",
			"type", opts.Type,
			"rows", res.Rows,
			"elements", len(res.Elements),
			"truncated", res.Notice != "",
			"duration", time.Since(start),
		)
	case status == http.StatusBadRequest:
		s.metrics.ObserveQuery(opts.Type, "rejected", time.Since(start))
	default:
		s.metrics.ObserveQuery(opts.Type, "error", time.Since(start))
		s.logger.Error("query failed",
			"category", Category(err),
			"error", err,
			"type", opts.Type,
			"fix", string(opts.Frame),
		)
	}
	return status, body
}
