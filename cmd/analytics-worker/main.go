// Package main is the entrypoint for the Analytics Worker Lambda function.
//
// The worker consumes purchase analytics events published by the API to the
// analytics SQS queue and turns them into CloudWatch funnel metrics:
//
//	purchase_navigate  -> PurchaseStepViewed{Step}
//	purchase_error     -> PurchaseError{Kind}
//	purchase_completed -> PurchaseCompleted{Variant}
//
// Malformed and unknown messages are acknowledged so they never block the
// queue. A failed metric emission is returned as a batch item failure and
// retried by SQS.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"

	"spacepurchase/internal/config"
	"spacepurchase/internal/telemetry"
	"spacepurchase/internal/types"
)

// FunnelMetrics emits the purchase funnel metrics.
type FunnelMetrics interface {
	EmitStepViewed(ctx context.Context, step string) error
	EmitPurchaseError(ctx context.Context, kind string) error
	EmitPurchaseCompleted(ctx context.Context, variant string) error
}

// Handler holds the dependencies for the analytics worker Lambda handler.
type Handler struct {
	metrics FunnelMetrics
	logger  *slog.Logger
}

// Handle processes an SQS event. Each message is handled independently and
// only failed emissions are reported back for redelivery.
func (h *Handler) Handle(ctx context.Context, sqsEvent events.SQSEvent) (events.SQSEventResponse, error) {
	response := events.SQSEventResponse{}

	for _, record := range sqsEvent.Records {
		if err := h.processMessage(ctx, record); err != nil {
			h.logger.ErrorContext(ctx, "failed to process analytics message",
				"message_id", record.MessageId,
				"error", err.Error(),
			)
			response.BatchItemFailures = append(response.BatchItemFailures,
				events.SQSBatchItemFailure{ItemIdentifier: record.MessageId},
			)
		}
	}

	return response, nil
}

func (h *Handler) processMessage(ctx context.Context, record events.SQSMessage) error {
	var msg types.AnalyticsMessage
	if err := json.Unmarshal([]byte(record.Body), &msg); err != nil {
		// Permanent parse failure; ACK so the message is not redelivered.
		h.logger.ErrorContext(ctx, "failed to unmarshal analytics message",
			"message_id", record.MessageId,
			"error", err.Error(),
		)
		return nil
	}

	logger := h.logger.With(
		"event_id", msg.EventID,
		"event_type", string(msg.EventType),
		"session_id", msg.SessionID,
		"organization_id", msg.OrganizationID,
	)

	var err error
	switch msg.EventType {
	case types.AnalyticsNavigate:
		if msg.ToStep == "" {
			logger.WarnContext(ctx, "navigate event without target step")
			return nil
		}
		err = h.metrics.EmitStepViewed(ctx, msg.ToStep)
	case types.AnalyticsError:
		err = h.metrics.EmitPurchaseError(ctx, msg.ErrorKind)
	case types.AnalyticsCompleted:
		err = h.metrics.EmitPurchaseCompleted(ctx, msg.Variant)
	default:
		logger.WarnContext(ctx, "unknown analytics event type")
		return nil
	}
	if err != nil {
		return fmt.Errorf("emitting %s metric: %w", msg.EventType, err)
	}

	logger.DebugContext(ctx, "analytics event recorded")
	return nil
}

func main() {
	cfg, err := config.LoadWorkerConfig(config.NewSSMProvider(os.Getenv("AWS_REGION")))
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: loading configuration: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("Analytics Worker Lambda initializing (cold start)",
		"environment", cfg.Environment,
		"version", cfg.Build.Version,
	)

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		logger.Error("failed to load AWS SDK config", "error", err)
		os.Exit(1)
	}

	cwClient := cloudwatch.NewFromConfig(awsCfg, func(o *cloudwatch.Options) {
		if cfg.AWS.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.AWS.EndpointURL)
		}
	})

	var client telemetry.CloudWatchClient
	if cfg.Observability.EnableMetrics {
		client = cwClient
	}

	handler := &Handler{
		metrics: telemetry.NewCloudWatchMetrics(client, cfg.Observability.MetricNamespace, logger),
		logger:  logger,
	}

	logger.Info("Analytics Worker Lambda initialized",
		"metric_namespace", cfg.Observability.MetricNamespace,
		"metrics_enabled", cfg.Observability.EnableMetrics,
	)

	lambda.Start(handler.Handle)
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
