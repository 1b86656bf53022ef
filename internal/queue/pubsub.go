package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"
)

var ErrMalformedEvent = errors.New("malformed storage event")

// ObjectEvent is the subset of a GCS object-finalize notification the
// pipeline cares about. Real notifications use "name"/"bucket"; events
// republished by the reprocess endpoint use the same shape.
type ObjectEvent struct {
	Name   string `json:"name"`
	Bucket string `json:"bucket"`
}

// looseEvent tolerates the alternate field names some publishers emit.
type looseEvent struct {
	Name       string `json:"name"`
	Object     string `json:"object"`
	FileName   string `json:"fileName"`
	Bucket     string `json:"bucket"`
	BucketName string `json:"bucketName"`
}

// ParseObjectEvent decodes a finalize notification payload, accepting the
// field aliases seen across GCS notification formats.
func ParseObjectEvent(data []byte) (ObjectEvent, error) {
	var loose looseEvent
	if err := json.Unmarshal(data, &loose); err != nil {
		return ObjectEvent{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	event := ObjectEvent{Name: loose.Name, Bucket: loose.Bucket}
	if event.Name == "" {
		event.Name = loose.Object
	}
	if event.Name == "" {
		event.Name = loose.FileName
	}
	if event.Bucket == "" {
		event.Bucket = loose.BucketName
	}

	if event.Name == "" {
		return ObjectEvent{}, fmt.Errorf("%w: missing object name", ErrMalformedEvent)
	}
	return event, nil
}

type Client struct {
	client       *pubsub.Client
	topic        *pubsub.Topic
	subscription *pubsub.Subscription
	logger       *zap.Logger
}

type Options struct {
	ProjectID      string
	TopicID        string
	SubscriptionID string
	Logger         *zap.Logger
}

type Option func(*Options)

func WithTopic(id string) Option {
	return func(o *Options) { o.TopicID = id }
}

func WithSubscription(id string) Option {
	return func(o *Options) { o.SubscriptionID = id }
}

func WithLogger(logger *zap.Logger) Option {
	return func(o *Options) { o.Logger = logger }
}

func New(ctx context.Context, projectID string, opts ...Option) (*Client, error) {
	options := &Options{
		ProjectID: projectID,
		Logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(options)
	}

	if options.ProjectID == "" {
		return nil, fmt.Errorf("pubsub project id cannot be empty")
	}

	client, err := pubsub.NewClient(ctx, options.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create pubsub client: %w", err)
	}

	c := &Client{client: client, logger: options.Logger}
	if options.TopicID != "" {
		c.topic = client.Topic(options.TopicID)
	}
	if options.SubscriptionID != "" {
		sub := client.Subscription(options.SubscriptionID)
		// One message at a time keeps transcription and scoring memory
		// bounded and makes per-message retry accounting deterministic.
		sub.ReceiveSettings.MaxOutstandingMessages = 1
		c.subscription = sub
	}

	return c, nil
}

// PublishObjectFinalized emits a synthetic finalize event for an object that
// already exists in the bucket. The reprocess flow uses it to re-enter an
// evaluation into the worker pipeline.
func (c *Client) PublishObjectFinalized(ctx context.Context, objectKey, bucket string) (string, error) {
	if c.topic == nil {
		return "", fmt.Errorf("pubsub topic is not configured")
	}

	data, err := json.Marshal(ObjectEvent{Name: objectKey, Bucket: bucket})
	if err != nil {
		return "", err
	}

	result := c.topic.Publish(ctx, &pubsub.Message{Data: data})
	id, err := result.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to publish finalize event: %w", err)
	}

	c.logger.Info("published object finalize event",
		zap.String("object", objectKey),
		zap.String("messageId", id))
	return id, nil
}

// Handler processes one message. Returning nil acks the message; returning
// an error nacks it so the subscription redelivers. The message ID is
// stable across redeliveries, which lets handlers count attempts.
type Handler func(ctx context.Context, messageID string, data []byte) error

// Receive blocks consuming the subscription until ctx is cancelled.
func (c *Client) Receive(ctx context.Context, handler Handler) error {
	if c.subscription == nil {
		return fmt.Errorf("pubsub subscription is not configured")
	}

	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if err := handler(ctx, msg.ID, msg.Data); err != nil {
			c.logger.Warn("message handling failed, nacking",
				zap.String("messageId", msg.ID),
				zap.Error(err))
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

func (c *Client) Close() error {
	if c.topic != nil {
		c.topic.Stop()
	}
	return c.client.Close()
}
