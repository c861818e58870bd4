// Package telemetry emits purchase funnel metrics to CloudWatch and reports
// purchase failures to error monitoring.
package telemetry

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"spacepurchase/internal/types"
)

// CloudWatchClient abstracts the CloudWatch PutMetricData operation for testability.
type CloudWatchClient interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// CloudWatchMetrics emits the service's metrics. A nil client disables
// emission; every method then succeeds without a call.
//
// Metrics emitted:
//   - PurchaseStepViewed: Dims {Step}
//   - PurchaseError: Dims {Kind}, or {Kind, Variant} from the error reporter
//   - PurchaseCompleted: Dims {Variant}
//   - APIRequests / APILatency: Dims {Method, Endpoint, Status}
type CloudWatchMetrics struct {
	client    CloudWatchClient
	namespace string
	logger    *slog.Logger
}

// NewCloudWatchMetrics creates a CloudWatchMetrics publishing to namespace,
// falling back to the default namespace when empty.
func NewCloudWatchMetrics(client CloudWatchClient, namespace string, logger *slog.Logger) *CloudWatchMetrics {
	if namespace == "" {
		namespace = types.MetricNamespace
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CloudWatchMetrics{client: client, namespace: namespace, logger: logger}
}

func dims(kv ...string) []cwtypes.Dimension {
	out := make([]cwtypes.Dimension, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		out = append(out, cwtypes.Dimension{Name: aws.String(kv[i]), Value: aws.String(kv[i+1])})
	}
	return out
}

func count(name string, dimensions []cwtypes.Dimension) cwtypes.MetricDatum {
	return cwtypes.MetricDatum{
		MetricName: aws.String(name),
		Value:      aws.Float64(1),
		Unit:       cwtypes.StandardUnitCount,
		Dimensions: dimensions,
	}
}

func (m *CloudWatchMetrics) put(ctx context.Context, data ...cwtypes.MetricDatum) error {
	if m.client == nil {
		return nil
	}
	_, err := m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(m.namespace),
		MetricData: data,
	})
	return err
}

// EmitStepViewed counts one view of a wizard step.
func (m *CloudWatchMetrics) EmitStepViewed(ctx context.Context, step string) error {
	return m.put(ctx, count(types.MetricPurchaseStepViewed, dims(types.DimStep, step)))
}

// EmitPurchaseError counts one purchase failure of the given kind.
func (m *CloudWatchMetrics) EmitPurchaseError(ctx context.Context, kind string) error {
	return m.put(ctx, count(types.MetricPurchaseError, dims(types.DimKind, kind)))
}

// EmitPurchaseCompleted counts one completed receipt of the given variant.
func (m *CloudWatchMetrics) EmitPurchaseCompleted(ctx context.Context, variant string) error {
	return m.put(ctx, count(types.MetricPurchaseCompleted, dims(types.DimVariant, variant)))
}

// RecordAPIRequest counts one HTTP request and its latency. Failures are
// logged, never returned.
func (m *CloudWatchMetrics) RecordAPIRequest(ctx context.Context, method, endpoint string, status int, duration time.Duration) {
	d := dims(types.DimMethod, method, types.DimEndpoint, endpoint, types.DimStatus, strconv.Itoa(status))
	err := m.put(ctx,
		count(types.MetricAPIRequests, d),
		cwtypes.MetricDatum{
			MetricName: aws.String(types.MetricAPILatency),
			Value:      aws.Float64(float64(duration.Milliseconds())),
			Unit:       cwtypes.StandardUnitMilliseconds,
			Dimensions: d,
		},
	)
	if err != nil {
		m.logger.WarnContext(ctx, "failed to record api request metric",
			"error", err.Error(),
			"method", method,
			"endpoint", endpoint,
			"status", status,
		)
	}
}
