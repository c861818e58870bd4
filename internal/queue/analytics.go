// Package queue publishes purchase analytics events to SQS for the analytics
// worker.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqsTypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/google/uuid"

	"spacepurchase/internal/types"
)

// SQSSender abstracts the SQS SendMessage operation for testability.
// Production code uses the *sqs.Client from aws-sdk-go-v2.
type SQSSender interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// AnalyticsPublisher serializes AnalyticsMessages onto the analytics queue.
// With an empty queue URL publishing is disabled and Publish is a no-op.
type AnalyticsPublisher struct {
	client   SQSSender
	queueURL string
	logger   *slog.Logger
	now      func() time.Time
}

// NewAnalyticsPublisher creates an AnalyticsPublisher for queueURL.
func NewAnalyticsPublisher(client SQSSender, queueURL string, logger *slog.Logger) *AnalyticsPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnalyticsPublisher{
		client:   client,
		queueURL: queueURL,
		logger:   logger,
		now:      time.Now,
	}
}

// Enabled reports whether messages are actually sent.
func (p *AnalyticsPublisher) Enabled() bool {
	return p.queueURL != "" && p.client != nil
}

// Publish sends msg, filling in its event id and timestamp when unset.
func (p *AnalyticsPublisher) Publish(ctx context.Context, msg types.AnalyticsMessage) error {
	if !p.Enabled() {
		return nil
	}
	if msg.EventID == "" {
		msg.EventID = uuid.New().String()
	}
	if msg.OccurredAt.IsZero() {
		msg.OccurredAt = p.now().UTC()
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("queue: failed to marshal AnalyticsMessage: %w", err)
	}

	input := &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]sqsTypes.MessageAttributeValue{
			"event_type": {
				DataType:    aws.String("String"),
				StringValue: aws.String(string(msg.EventType)),
			},
		},
	}

	if _, err := p.client.SendMessage(ctx, input); err != nil {
		return fmt.Errorf("queue: failed to send AnalyticsMessage to %s: %w", p.queueURL, err)
	}

	p.logger.DebugContext(ctx, "analytics message sent",
		"event_id", msg.EventID,
		"event_type", string(msg.EventType),
		"session_id", msg.SessionID,
	)
	return nil
}
