package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/flood-risk-service/internal/domain"
	"github.com/couchcryptid/flood-risk-service/internal/observability"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const opRun = "pipeline.run"

// MaxCandidates is the largest candidate list the geocoding endpoint returns.
const MaxCandidates = 5

const defaultPublishTimeout = 10 * time.Second

// ResultPublisher receives every successful result. Publishing is best-effort:
// it runs in the background after the run returns, and a publish failure is
// logged and counted but never fails the run.
type ResultPublisher interface {
	Publish(ctx context.Context, r Result) error
}

// Pipeline orchestrates geocode, fetch and classify for a single query.
type Pipeline struct {
	geocoder     domain.Geocoder
	current      domain.ConditionsFetcher
	forecast     domain.ForecastFetcher
	publisher      ResultPublisher
	publishTimeout time.Duration
	publishing     sync.WaitGroup
	logger         *slog.Logger
	metrics        *observability.Metrics
	geocodeLimit   int
	draining       atomic.Bool
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithPublisher sends each successful result to pub.
func WithPublisher(pub ResultPublisher) Option {
	return func(p *Pipeline) { p.publisher = pub }
}

// WithPublishTimeout bounds each background publish. Non-positive values are
// ignored.
func WithPublishTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.publishTimeout = d
		}
	}
}

// WithGeocodeLimit sets how many candidates Run requests from the geocoder.
// Values outside [1,MaxCandidates] are ignored.
func WithGeocodeLimit(n int) Option {
	return func(p *Pipeline) {
		if n >= 1 && n <= MaxCandidates {
			p.geocodeLimit = n
		}
	}
}

// New creates a Pipeline with the given collaborators and observability.
func New(g domain.Geocoder, c domain.ConditionsFetcher, f domain.ForecastFetcher, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Pipeline {
	p := &Pipeline{
		geocoder:       g,
		current:        c,
		forecast:       f,
		publishTimeout: defaultPublishTimeout,
		logger:         logger,
		metrics:        metrics,
		geocodeLimit:   1,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// CheckReadiness returns nil while the pipeline accepts runs. It reports an
// error once Drain has been called so load balancers stop routing to us
// during shutdown.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if p.draining.Load() {
		return errors.New("pipeline is draining")
	}
	return nil
}

// Drain marks the pipeline as shutting down. In-flight runs complete normally.
func (p *Pipeline) Drain() {
	p.draining.Store(true)
}

// Flush waits for background publishes to finish or ctx to expire. Call it
// once no further runs can start, e.g. after the HTTP server has shut down.
func (p *Pipeline) Flush(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.publishing.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Locations resolves query to at most limit candidates without fetching weather.
func (p *Pipeline) Locations(ctx context.Context, query string, limit int) ([]domain.Location, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.InvalidInputf("pipeline.locations", "query is empty")
	}
	return p.geocoder.Resolve(ctx, query, limit)
}

// Run resolves query, selects a candidate with sel (FirstCandidate when nil),
// then fetches current conditions and the forecast concurrently. Geocoding
// and current-conditions failures abort the run. A forecast failure is
// recorded on the result and the run still succeeds.
func (p *Pipeline) Run(ctx context.Context, query string, sel Selector) (Result, error) {
	return p.execute(ctx, query, p.geocodeLimit, sel)
}

// RunAt is Run with the i-th geocoding candidate selected. It requests enough
// candidates to cover i, up to the provider maximum of MaxCandidates.
func (p *Pipeline) RunAt(ctx context.Context, query string, i int) (Result, error) {
	if i < 0 || i >= MaxCandidates {
		err := domain.InvalidInputf(opRun, "candidate index %d out of range [0,%d)", i, MaxCandidates)
		p.metrics.PipelineRuns.WithLabelValues(outcome(err)).Inc()
		return Result{}, err
	}
	return p.execute(ctx, query, max(p.geocodeLimit, i+1), CandidateAt(i))
}

func (p *Pipeline) execute(ctx context.Context, query string, limit int, sel Selector) (Result, error) {
	start := time.Now()
	res, err := p.run(ctx, query, limit, sel)
	p.metrics.PipelineDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		p.metrics.PipelineRuns.WithLabelValues(outcome(err)).Inc()
		p.logger.Warn("pipeline run failed", "query", query, "kind", domain.KindOf(err), "error", err)
		return Result{}, err
	}

	p.metrics.PipelineRuns.WithLabelValues("success").Inc()
	p.metrics.RiskClassifications.WithLabelValues(res.Risk.String()).Inc()
	if res.ForecastErr != nil {
		p.metrics.ForecastDegraded.Inc()
	}
	p.logger.Info("pipeline run complete",
		"run_id", res.RunID,
		"query", query,
		"lat", res.Location.Latitude,
		"lon", res.Location.Longitude,
		"risk", res.Risk,
		"forecast_points", len(res.Forecast),
		"duration", time.Since(start),
	)

	p.publish(ctx, res)
	return res, nil
}

func (p *Pipeline) run(ctx context.Context, query string, limit int, sel Selector) (Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Result{}, domain.InvalidInputf(opRun, "query is empty")
	}
	if sel == nil {
		sel = FirstCandidate
	}

	candidates, err := p.geocoder.Resolve(ctx, query, limit)
	if err != nil {
		return Result{}, err
	}
	if len(candidates) == 0 {
		return Result{}, domain.NotFoundf(opRun, "no location matches %q", query)
	}
	loc, err := sel(candidates)
	if err != nil {
		return Result{}, err
	}

	var (
		current     domain.CurrentConditions
		forecast    domain.Forecast
		forecastErr error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		current, err = p.current.FetchCurrent(gctx, loc)
		return err
	})
	g.Go(func() error {
		// Forecast failures degrade the result instead of cancelling the group.
		forecast, forecastErr = p.forecast.FetchForecast(gctx, loc)
		return nil
	})
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	if forecastErr != nil {
		p.logger.Warn("forecast unavailable, returning current conditions only",
			"query", query,
			"lat", loc.Latitude,
			"lon", loc.Longitude,
			"kind", domain.KindOf(forecastErr),
			"error", forecastErr,
		)
		forecast = nil
	}

	return Result{
		RunID:       uuid.NewString(),
		Location:    loc,
		Current:     current,
		Forecast:    forecast,
		ForecastErr: forecastErr,
		Risk:        domain.Classify(current.HumidityPct, current.RainLastHourMm),
		FetchedAt:   domain.Now(),
	}, nil
}

// publish hands res to the publisher without blocking the caller. The publish
// outlives the caller's context but is bounded by publishTimeout.
func (p *Pipeline) publish(ctx context.Context, res Result) {
	if p.publisher == nil {
		return
	}
	p.publishing.Add(1)
	go func() {
		defer p.publishing.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.publishTimeout)
		defer cancel()

		if err := p.publisher.Publish(ctx, res); err != nil {
			p.metrics.ReportsPublished.WithLabelValues("error").Inc()
			p.logger.Warn("publish report failed", "run_id", res.RunID, "error", err)
			return
		}
		p.metrics.ReportsPublished.WithLabelValues("success").Inc()
	}()
}

// outcome maps an error to the pipeline_runs_total label.
func outcome(err error) string {
	k := domain.KindOf(err)
	if k == domain.KindUnknown {
		return "error"
	}
	return k.String()
}
