package search

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/jllopis/specforge/pkg/telemetry"
)

type instrumented struct {
	next    Searcher
	logger  *slog.Logger
	metrics *telemetry.RunMetrics
}

// Instrument wraps s with a Search.Query span, structured logs and error
// metrics. logger and metrics may be nil.
func Instrument(s Searcher, logger *slog.Logger, metrics *telemetry.RunMetrics) Searcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &instrumented{next: s, logger: logger, metrics: metrics}
}

func (i *instrumented) Name() string { return i.next.Name() }

func (i *instrumented) Search(ctx context.Context, q Query) (*Response, error) {
	ctx, span := otel.Tracer("specforge/search").Start(ctx, "Search.Query")
	defer span.End()
	span.SetAttributes(telemetry.SearchAttributes(i.next.Name(), q.Text, -1)...)

	start := time.Now()
	resp, err := i.next.Search(ctx, q)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		i.metrics.RecordError(ctx, err, "search")
		i.logger.WarnContext(ctx, "search.error",
			slog.String("provider", i.next.Name()),
			slog.String("query", q.Text),
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	span.SetAttributes(telemetry.SearchAttributes(i.next.Name(), q.Text, len(resp.Results))...)
	i.logger.DebugContext(ctx, "search.complete",
		slog.String("provider", i.next.Name()),
		slog.String("query", q.Text),
		slog.Int("results", len(resp.Results)),
		slog.Duration("duration", time.Since(start)),
	)
	return resp, nil
}
