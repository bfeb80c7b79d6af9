// Command cratesmcp runs the crates.io MCP server over stdio or
// streamable HTTP.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/cratesmcp/cache"
	"github.com/jonwraymond/cratesmcp/crates"
	"github.com/jonwraymond/cratesmcp/docscache"
	"github.com/jonwraymond/cratesmcp/docsrs"
	"github.com/jonwraymond/cratesmcp/middleware"
	"github.com/jonwraymond/cratesmcp/observe"
	"github.com/jonwraymond/cratesmcp/osv"
	"github.com/jonwraymond/cratesmcp/resilience"
	"github.com/jonwraymond/cratesmcp/server"
	"github.com/jonwraymond/cratesmcp/tools"
)

const version = "0.1.0"

// userAgent satisfies the crates.io crawling policy: it names the
// project and gives a way to reach its maintainers.
const userAgent = "cratesmcp/" + version + " (https://github.com/jonwraymond/cratesmcp)"

type options struct {
	transport string
	host      string
	port      int

	logLevel       string
	traceExporter  string
	metricExporter string

	requestTimeout time.Duration
	maxConcurrent  int
	rateInterval   time.Duration
	rateBurst      int

	cacheEnabled bool
	cacheTTL     time.Duration
	cacheMaxSize int

	docsCacheEntries int
	docsCacheTTL     time.Duration
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:     "cratesmcp",
		Short:   "MCP server for the Rust crate ecosystem",
		Long:    "cratesmcp exposes crates.io metadata, docs.rs documentation, and OSV.dev\nsecurity advisories as MCP tools, behind a caching and rate-limiting layer.",
		Version: version,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts)
		},
		SilenceUsage: true,
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.transport, "transport", "stdio", "transport to serve on: stdio or http")
	flags.StringVar(&opts.host, "host", "127.0.0.1", "bind address for the http transport")
	flags.IntVar(&opts.port, "port", 3000, "port for the http transport")

	flags.StringVar(&opts.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	flags.StringVar(&opts.traceExporter, "trace-exporter", "none", "trace exporter: stdout or none")
	flags.StringVar(&opts.metricExporter, "metric-exporter", "none", "metric exporter: stdout or none")

	flags.DurationVar(&opts.requestTimeout, "request-timeout", 30*time.Second, "per-request deadline")
	flags.IntVar(&opts.maxConcurrent, "max-concurrent", 10, "maximum concurrent upstream requests")
	flags.DurationVar(&opts.rateInterval, "rate-interval", time.Second, "token refill interval for upstream calls")
	flags.IntVar(&opts.rateBurst, "rate-burst", 1, "token bucket capacity for upstream calls")

	flags.BoolVar(&opts.cacheEnabled, "cache", true, "cache tool responses")
	flags.DurationVar(&opts.cacheTTL, "cache-ttl", 5*time.Minute, "response cache entry lifetime")
	flags.IntVar(&opts.cacheMaxSize, "cache-max-size", 200, "response cache entry capacity")

	flags.IntVar(&opts.docsCacheEntries, "docs-cache-entries", 10, "documentation cache entry capacity")
	flags.DurationVar(&opts.docsCacheTTL, "docs-cache-ttl", time.Hour, "documentation cache entry lifetime")

	return cmd
}

func run(ctx context.Context, opts *options) error {
	if opts.transport != "stdio" && opts.transport != "http" {
		return fmt.Errorf("unknown transport %q (want stdio or http)", opts.transport)
	}

	obs, err := observe.NewObserver(ctx, observe.Config{
		ServiceName: "cratesmcp",
		Version:     version,
		Tracing: observe.TracingConfig{
			Enabled:  opts.traceExporter == "stdout",
			Exporter: opts.traceExporter,
		},
		Metrics: observe.MetricsConfig{
			Enabled:  opts.metricExporter == "stdout",
			Exporter: opts.metricExporter,
		},
		Logging: observe.LoggingConfig{
			Enabled: true,
			Level:   opts.logLevel,
		},
	})
	if err != nil {
		return fmt.Errorf("initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = obs.Shutdown(shutdownCtx)
	}()

	metrics, err := observe.NewMetrics(obs.Meter())
	if err != nil {
		return fmt.Errorf("initialize metrics: %w", err)
	}

	st := &tools.State{
		Client:    crates.NewClient(crates.ClientConfig{UserAgent: userAgent}),
		DocsRs:    docsrs.NewClient(docsrs.ClientConfig{UserAgent: userAgent}),
		OSV:       osv.NewClient(osv.ClientConfig{UserAgent: userAgent}),
		DocsCache: docscache.New(docscache.Config{MaxEntries: opts.docsCacheEntries, TTL: opts.docsCacheTTL}),
	}

	stack := middleware.NewStack(middleware.StackConfig{
		Timeout:  resilience.NewTimeout(resilience.TimeoutConfig{Timeout: opts.requestTimeout}),
		Bulkhead: resilience.NewBulkhead(resilience.BulkheadConfig{MaxConcurrent: opts.maxConcurrent}),
		Cache: cache.NewResponseCache(cache.ResponseCacheConfig{
			Enabled: opts.cacheEnabled,
			TTL:     opts.cacheTTL,
			MaxSize: opts.cacheMaxSize,
		}),
		Limiter: resilience.NewRateLimiter(resilience.RateLimiterConfig{
			Interval: opts.rateInterval,
			Burst:    opts.rateBurst,
		}),
		Logger:  obs.Logger(),
		Metrics: metrics,
		Tracer:  observe.NewTracer(obs.Tracer()),
	})

	srv := server.New(server.Config{
		Name:    "cratesmcp",
		Version: version,
		Logger:  obs.Logger(),
	}, st, stack)

	if opts.transport == "http" {
		return srv.ServeHTTP(fmt.Sprintf("%s:%d", opts.host, opts.port))
	}
	return srv.ServeStdio()
}
