// Package events publishes domain events to the outbound queue.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// Event types.
const (
	TypeAutoPurchaseRequested = "autopurchase.requested"
	TypeTopupFinalized        = "topup.finalized"
)

// Envelope is the JSON body of every queued message.
type Envelope struct {
	Type       string      `json:"type"`
	OccurredAt time.Time   `json:"occurred_at"`
	Data       interface{} `json:"data"`
}

// Publisher sends events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, eventType string, data interface{}) error
}

type sqsAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSConfig configures the SQS publisher. Static credentials are used when
// both keys are set, otherwise the default AWS credential chain.
type SQSConfig struct {
	QueueURL  string
	Region    string
	AccessKey string
	Secret    string
}

// SQSPublisher writes events to an SQS queue.
type SQSPublisher struct {
	client   sqsAPI
	queueURL string
}

// NewSQSPublisher loads AWS configuration and builds an SQS client.
func NewSQSPublisher(ctx context.Context, cfg SQSConfig) (*SQSPublisher, error) {
	opts := []func(*awsConfig.LoadOptions) error{awsConfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.Secret != "" {
		opts = append(opts, awsConfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.Secret, ""),
		))
	}

	awsCfg, err := awsConfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &SQSPublisher{client: sqs.NewFromConfig(awsCfg), queueURL: cfg.QueueURL}, nil
}

func (p *SQSPublisher) Publish(ctx context.Context, eventType string, data interface{}) error {
	body, err := json.Marshal(Envelope{Type: eventType, OccurredAt: time.Now().UTC(), Data: data})
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", eventType, err)
	}

	out, err := p.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(body)),
	})
	if err != nil {
		return fmt.Errorf("send %s event: %w", eventType, err)
	}
	slog.DebugContext(ctx, "event published", "type", eventType, "message_id", aws.ToString(out.MessageId))
	return nil
}

// NopPublisher discards events. Used when no queue is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, interface{}) error { return nil }
