package telemetry

import (
	"context"
	"errors"
	"log/slog"

	"spacepurchase/internal/types"
)

// ErrorReporter is the error-monitoring sink for purchase failures. Each
// report is logged at ERROR and counted as a PurchaseError metric.
type ErrorReporter struct {
	metrics *CloudWatchMetrics
	logger  *slog.Logger
}

// NewErrorReporter creates an ErrorReporter. metrics may be nil.
func NewErrorReporter(metrics *CloudWatchMetrics, logger *slog.Logger) *ErrorReporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &ErrorReporter{metrics: metrics, logger: logger}
}

// Report records a failure of kind during the receipt variant. Cancellation
// is not a failure and is dropped; a timeout is reported.
func (r *ErrorReporter) Report(ctx context.Context, kind types.ErrorCode, variant string, err error, attrs ...any) {
	if errors.Is(err, context.Canceled) {
		return
	}

	args := append([]any{
		"kind", string(kind),
		"variant", variant,
		"error", err,
		"upstream_code", string(types.CodeOf(err)),
		"request_id", types.GetRequestID(ctx),
	}, attrs...)
	r.logger.ErrorContext(ctx, "purchase step failed", args...)

	if r.metrics == nil {
		return
	}
	datum := count(types.MetricPurchaseError, dims(types.DimKind, string(kind), types.DimVariant, variant))
	if mErr := r.metrics.put(context.WithoutCancel(ctx), datum); mErr != nil {
		r.logger.WarnContext(ctx, "failed to record purchase error metric", "error", mErr.Error(), "kind", string(kind))
	}
}
