// Command lookup runs a single flood-risk lookup and prints the JSON report.
// It reads the same environment as the service (OPENWEATHER_API_KEY etc.).
//
// Usage:
//
//	go run ./cmd/lookup -q Chennai
//	go run ./cmd/lookup -q Portland -candidates
//	go run ./cmd/lookup -q Portland -pick 1 -points 12
//
// Exit status is 0 on success, 2 for invalid input, 3 when no location
// matches, 4 when the provider reports a failure and 5 when it is unreachable.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/flood-risk-service/internal/adapter/openweather"
	"github.com/couchcryptid/flood-risk-service/internal/config"
	"github.com/couchcryptid/flood-risk-service/internal/domain"
	"github.com/couchcryptid/flood-risk-service/internal/observability"
	"github.com/couchcryptid/flood-risk-service/internal/pipeline"
	"github.com/joho/godotenv"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr, observability.NewMetrics()))
}

func run(args []string, stdout, stderr io.Writer, metrics *observability.Metrics) int {
	fs := flag.NewFlagSet("lookup", flag.ContinueOnError)
	fs.SetOutput(stderr)
	query := fs.String("q", "", "place name to look up")
	pick := fs.Int("pick", 0, "index of the geocoding candidate to use")
	points := fs.Int("points", 12, "forecast points to print (0 for all)")
	candidates := fs.Bool("candidates", false, "list geocoding candidates instead of running a lookup")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *query == "" && fs.NArg() > 0 {
		*query = fs.Arg(0)
	}

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(stderr, "config:", err)
		return 1
	}

	logger := observability.NewStderrLogger(cfg)
	client := openweather.NewClient(cfg.OpenWeatherAPIKey, openweather.Options{
		BaseURL:    cfg.OpenWeatherBaseURL,
		Timeout:    cfg.OpenWeatherTimeout,
		MaxRetries: cfg.OpenWeatherMaxRetries,
		RateLimit:  cfg.OpenWeatherRateLimit,
		RateBurst:  cfg.OpenWeatherRateBurst,
	}, metrics, logger)
	p := pipeline.New(client, client, client, logger, metrics, pipeline.WithGeocodeLimit(cfg.GeocodeLimit))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var out any
	if *candidates {
		out, err = p.Locations(ctx, *query, pipeline.MaxCandidates)
	} else {
		var res pipeline.Result
		if res, err = p.RunAt(ctx, *query, *pick); err == nil {
			out = res.Report(*points)
		}
	}
	if err != nil {
		writeJSON(stderr, map[string]any{"error": pipeline.DescribeError(err)})
		return exitCode(err)
	}
	writeJSON(stdout, out)
	return 0
}

func exitCode(err error) int {
	switch domain.KindOf(err) {
	case domain.KindInvalidInput:
		return 2
	case domain.KindNotFound:
		return 3
	case domain.KindUpstreamError:
		return 4
	case domain.KindUpstreamUnavailable:
		return 5
	default:
		return 1
	}
}

func writeJSON(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
