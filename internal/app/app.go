package app

import (
	"context"
	"io"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/xenking/toyland-batch/internal/domain/discount"
	"github.com/xenking/toyland-batch/internal/domain/inventory"
	"github.com/xenking/toyland-batch/internal/domain/order"
	"github.com/xenking/toyland-batch/internal/report"
	"github.com/xenking/toyland-batch/internal/source"
)

// batchMetrics holds the batch-level OTel counters.
type batchMetrics struct {
	processed metric.Int64Counter
	succeeded metric.Int64Counter
	failed    metric.Int64Counter
}

func newBatchMetrics(m *app.Telemetry) (*batchMetrics, error) {
	meter := m.MeterProvider().Meter("toyland-batch")

	processed, err := meter.Int64Counter("orders_processed_total",
		metric.WithDescription("Orders read from the feed and run through the pipeline"))
	if err != nil {
		return nil, errors.Wrap(err, "create processed counter")
	}
	succeeded, err := meter.Int64Counter("orders_succeeded_total",
		metric.WithDescription("Orders that priced successfully"))
	if err != nil {
		return nil, errors.Wrap(err, "create succeeded counter")
	}
	failed, err := meter.Int64Counter("orders_failed_total",
		metric.WithDescription("Orders rejected by the pipeline, by failure kind"))
	if err != nil {
		return nil, errors.Wrap(err, "create failed counter")
	}

	return &batchMetrics{processed: processed, succeeded: succeeded, failed: failed}, nil
}

// Run wires the order feed, pricing pipeline and report sink together and
// drives one batch to completion. It is the single wiring point for the
// application.
//
// Individual order failures never make Run return an error; only an
// unavailable feed (or a broken report sink) aborts the run.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	runID := uuid.New().String()
	lg = lg.With(zap.String("run_id", runID))
	ctx = zctx.Base(ctx, lg)

	lg.Info("Starting batch run", zap.String("orders", cfg.OrdersPath))

	feed, err := source.Open(cfg.OrdersPath)
	if err != nil {
		lg.Error("Order feed unavailable, no orders will be processed", zap.Error(err))
		return errors.Wrap(err, "open order feed")
	}
	defer func() { _ = feed.Close() }()

	var sink *report.Writer
	if cfg.ReportPath != "" {
		sink, err = report.NewWriter(cfg.ReportPath)
		if err != nil {
			return errors.Wrap(err, "create report writer")
		}
		defer func() { _ = sink.Close() }()
	}

	metrics, err := newBatchMetrics(m)
	if err != nil {
		return errors.Wrap(err, "create metrics")
	}

	ledger := discount.NewLedger()
	pipeline := order.NewPipeline(
		discount.NewResolver(ledger),
		inventory.StubChecker{},
	)

	var summary report.Summary
	for {
		// Orders are processed strictly one at a time; cancellation is only
		// observed between orders.
		if err := ctx.Err(); err != nil {
			return err
		}

		raw, err := feed.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return errors.Wrap(err, "read order feed")
		}

		out := pipeline.Process(ctx, raw)
		summary.Observe(out)

		metrics.processed.Add(ctx, 1)
		if out.Success() {
			metrics.succeeded.Add(ctx, 1)
			logSuccess(lg, out)
		} else {
			metrics.failed.Add(ctx, 1, metric.WithAttributes(
				attribute.String("kind", string(out.Failure.Kind)),
			))
			lg.Warn("Order rejected",
				zap.String("order_id", out.OrderID),
				zap.String("kind", string(out.Failure.Kind)),
				zap.String("reason", out.Failure.Message),
			)
		}

		if sink != nil {
			if err := sink.Write(out); err != nil {
				return errors.Wrap(err, "write outcome report")
			}
		}
	}

	lg.Info("Batch processing complete",
		zap.Int("total_orders", summary.TotalOrders),
		zap.Int("successful", summary.SuccessCount),
		zap.Int("failed", summary.ErrorCount),
		zap.Int("flagged_for_review", summary.FlaggedCount),
		zap.Int("distinct_order_ids", ledger.Len()),
	)

	return nil
}

func logSuccess(lg *zap.Logger, out order.Outcome) {
	p := out.Pricing
	lg.Info("Order processed",
		zap.String("order_id", out.OrderID),
		zap.String("customer", out.CustomerName),
		zap.String("product", out.ProductName),
		zap.String("subtotal", p.Subtotal.StringFixed(2)),
		zap.String("after_discount", p.DiscountedTotal.StringFixed(2)),
		zap.String("tax", p.Tax.StringFixed(2)),
		zap.String("shipping", p.Shipping.StringFixed(2)),
		zap.String("final_total", p.FinalTotal.StringFixed(2)),
		zap.Bool("flagged_for_review", out.FlaggedForReview),
	)
}
