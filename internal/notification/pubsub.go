package notification

import (
	"context"
	"fmt"
	"log"
	"strings"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"
)

// PubSubPublisher publishes task events to a Google Cloud Pub/Sub topic
type PubSubPublisher struct {
	client *pubsub.Client
	topic  *pubsub.Topic
}

// NewPubSubPublisher connects to projectID and makes sure topicName exists.
// A full resource name (projects/x/topics/y) is accepted as well.
func NewPubSubPublisher(ctx context.Context, projectID, topicName, credentialsFile string) (*PubSubPublisher, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create pubsub client: %w", err)
	}

	if parts := strings.Split(topicName, "/"); len(parts) > 1 {
		topicName = parts[len(parts)-1]
	}

	topic := client.Topic(topicName)
	exists, err := topic.Exists(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to check topic %s: %w", topicName, err)
	}
	if !exists {
		topic, err = client.CreateTopic(ctx, topicName)
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to create topic %s: %w", topicName, err)
		}
		log.Printf("[PubSub] Created topic: %s", topicName)
	}

	log.Printf("[PubSub] Publishing task events to topic: %s", topicName)
	return &PubSubPublisher{client: client, topic: topic}, nil
}

// Publish blocks until the server acknowledges the message
func (p *PubSubPublisher) Publish(ctx context.Context, data []byte, attributes map[string]string) error {
	result := p.topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: attributes,
	})
	_, err := result.Get(ctx)
	return err
}

// Close flushes pending messages and releases the client
func (p *PubSubPublisher) Close() error {
	p.topic.Stop()
	return p.client.Close()
}
