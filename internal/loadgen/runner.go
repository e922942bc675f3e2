package loadgen

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/studiowebux/loadreport/internal/config"
)

const (
	// HTTP client configuration timeouts
	TCPDialTimeout        = 5 * time.Second
	TCPKeepAliveInterval  = 30 * time.Second
	TLSHandshakeTimeout   = 5 * time.Second
	IdleConnTimeout       = 90 * time.Second
	ExpectContinueTimeout = 1 * time.Second
	DefaultRequestTimeout = 30 * time.Second
)

// Options controls one load run
type Options struct {
	Users          int
	SpawnRate      float64       // Users started per second
	Duration       time.Duration // Zero runs until ctx is cancelled
	Host           string        // Base for relative task URLs, overrides the profile host
	CSVPrefix      string        // Writes <prefix>_stats.csv when set
	MetricsAddr    string        // Serves Prometheus metrics when set
	RequestTimeout time.Duration
	Seed           uint64 // Zero picks a time based seed
}

// Result is the outcome of a finished run
type Result struct {
	Entries   []*Stats
	Total     *Stats
	StartedAt time.Time
	Elapsed   time.Duration
	StatsPath string
}

// Runner simulates users executing the profile tasks
type Runner struct {
	profile    *Profile
	opts       Options
	httpClient *http.Client
	collector  *Collector
	metrics    *Metrics
	logger     *zap.Logger
}

// NewRunner validates the profile and options and prepares the HTTP client
func NewRunner(profile *Profile, opts Options, logger *zap.Logger) (*Runner, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Users < 1 {
		return nil, fmt.Errorf("users must be at least 1")
	}
	if opts.SpawnRate <= 0 {
		return nil, fmt.Errorf("spawn rate must be positive")
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}
	if opts.Seed == 0 {
		opts.Seed = uint64(time.Now().UnixNano())
	}
	if opts.Host == "" {
		opts.Host = profile.Host
	}

	if err := profile.Validate(); err != nil {
		return nil, fmt.Errorf("invalid profile: %w", err)
	}
	for _, t := range profile.Tasks {
		if _, err := targetURL(opts.Host, t.URL); err != nil {
			return nil, fmt.Errorf("task %s: %w", t.Name, err)
		}
	}

	return &Runner{
		profile:    profile,
		opts:       opts,
		httpClient: buildHTTPClient(opts),
		collector:  NewCollector(),
		metrics:    NewMetrics(),
		logger:     logger.With(zap.String("mod", "loadgen")),
	}, nil
}

// Metrics returns the live Prometheus collectors of the run
func (r *Runner) Metrics() *Metrics {
	return r.metrics
}

// Run spawns users at the configured rate and lets them work until the
// duration elapses or ctx is cancelled. Stopping is not an error.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	var cancel context.CancelFunc
	if r.opts.Duration > 0 {
		ctx, cancel = context.WithTimeout(ctx, r.opts.Duration)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	if r.opts.MetricsAddr != "" {
		go func() {
			if err := r.metrics.Serve(ctx, r.opts.MetricsAddr, r.logger); err != nil {
				r.logger.Warn("metrics endpoint stopped", zap.Error(err))
			}
		}()
	}

	r.logger.Info("starting load",
		zap.Int("users", r.opts.Users),
		zap.Float64("spawn_rate", r.opts.SpawnRate),
		zap.Duration("duration", r.opts.Duration),
		zap.Int("tasks", len(r.profile.Tasks)))

	startedAt := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	limiter := rate.NewLimiter(rate.Limit(r.opts.SpawnRate), 1)

	for i := 0; i < r.opts.Users; i++ {
		if err := limiter.Wait(gctx); err != nil {
			break
		}
		id := i
		g.Go(func() error {
			return r.user(gctx, id)
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	elapsed := time.Since(startedAt)

	entries, total := r.collector.Snapshot()
	result := &Result{
		Entries:   entries,
		Total:     total,
		StartedAt: startedAt,
		Elapsed:   elapsed,
	}

	r.logger.Info("load finished",
		zap.Int64("requests", total.NumRequests),
		zap.Int64("failures", total.NumFailures),
		zap.Duration("elapsed", elapsed))

	if r.opts.CSVPrefix != "" {
		path := r.opts.CSVPrefix + StatsFileSuffix
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, config.DirPermissions); err != nil {
				return result, fmt.Errorf("failed to create stats directory: %w", err)
			}
		}
		if err := WriteStats(path, entries, total, elapsed); err != nil {
			return result, err
		}
		result.StatsPath = path
		r.logger.Info("stats written", zap.String("path", path))
	}

	return result, nil
}

// user runs tasks until ctx is done
func (r *Runner) user(ctx context.Context, id int) error {
	r.metrics.userStarted()
	defer r.metrics.userStopped()

	rng := rand.New(rand.NewPCG(r.opts.Seed, uint64(id)))

	for {
		if ctx.Err() != nil {
			return nil
		}

		if err := r.execute(ctx, r.profile.pick(rng), rng); err != nil {
			return err
		}

		wait := time.NewTimer(r.profile.wait(rng))
		select {
		case <-ctx.Done():
			wait.Stop()
			return nil
		case <-wait.C:
		}
	}
}

// execute issues one request and records it. A request fails on transport
// error or a status of 400 and above. Requests interrupted by shutdown are
// not recorded.
func (r *Runner) execute(ctx context.Context, task *Task, rng *rand.Rand) error {
	target, err := targetURL(r.opts.Host, resolve(task.URL, rng))
	if err != nil {
		return fmt.Errorf("task %s: %w", task.Name, err)
	}

	var body io.Reader
	if task.Body != "" {
		body = strings.NewReader(resolve(task.Body, rng))
	}
	req, err := http.NewRequestWithContext(ctx, task.Method, target, body)
	if err != nil {
		return fmt.Errorf("task %s: failed to build request: %w", task.Name, err)
	}
	for k, v := range task.Headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := r.httpClient.Do(req)
	var size int64
	failed := err != nil
	if err == nil {
		size, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		failed = resp.StatusCode >= 400
	}
	duration := time.Since(start)

	if err != nil && ctx.Err() != nil {
		return nil
	}
	if err != nil {
		r.logger.Debug("request failed", zap.String("task", task.Name), zap.Error(err))
	}

	r.collector.Record(task.Method, task.Name, float64(duration.Microseconds())/1000, size, failed)
	r.metrics.observe(task.Method, task.Name, duration, failed)
	return nil
}

// targetURL joins relative task URLs onto host
func targetURL(host, raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", raw, err)
	}
	if u.IsAbs() {
		return raw, nil
	}
	if host == "" {
		return "", fmt.Errorf("relative url %q needs a host", raw)
	}

	base, err := url.Parse(strings.TrimRight(host, "/") + "/")
	if err != nil || !base.IsAbs() {
		return "", fmt.Errorf("invalid host %q", host)
	}
	return base.ResolveReference(&url.URL{Path: strings.TrimLeft(u.Path, "/"), RawQuery: u.RawQuery}).String(), nil
}

// buildHTTPClient creates a client with a connection pool sized for the users
func buildHTTPClient(opts Options) *http.Client {
	transport := &http.Transport{
		MaxIdleConns:        opts.Users,
		MaxIdleConnsPerHost: opts.Users,
		MaxConnsPerHost:     opts.Users * 2,
		IdleConnTimeout:     IdleConnTimeout,
		ForceAttemptHTTP2:   true,

		DialContext: (&net.Dialer{
			Timeout:   TCPDialTimeout,
			KeepAlive: TCPKeepAliveInterval,
		}).DialContext,

		TLSHandshakeTimeout:   TLSHandshakeTimeout,
		ResponseHeaderTimeout: opts.RequestTimeout,
		ExpectContinueTimeout: ExpectContinueTimeout,
	}

	return &http.Client{
		Timeout:   opts.RequestTimeout,
		Transport: transport,
	}
}
