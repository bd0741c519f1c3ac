package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/pubsub"

	"github.com/havenhome/storefront-api/internal/services"
)

// PubSubContentPublisher publishes content change events to a Pub/Sub topic.
// Storefront caches and search indexers subscribe to the topic downstream.
type PubSubContentPublisher struct {
	topic   *pubsub.Topic
	marshal func(any) ([]byte, error)
}

// NewPubSubContentPublisher constructs a Pub/Sub backed content event publisher.
func NewPubSubContentPublisher(topic *pubsub.Topic) (*PubSubContentPublisher, error) {
	if topic == nil {
		return nil, errors.New("pubsub content publisher: topic is required")
	}
	return &PubSubContentPublisher{
		topic:   topic,
		marshal: json.Marshal,
	}, nil
}

// PublishContentEvent enqueues a content change event on the configured topic.
func (p *PubSubContentPublisher) PublishContentEvent(ctx context.Context, event services.ContentEvent) (string, error) {
	if p == nil || p.topic == nil {
		return "", errors.New("pubsub content publisher: not initialised")
	}

	data, err := p.marshal(event)
	if err != nil {
		return "", fmt.Errorf("marshal content event: %w", err)
	}

	attrs := make(map[string]string)
	setAttr(attrs, "sectionKey", event.SectionKey)
	setAttr(attrs, "action", event.Action)
	setAttr(attrs, "actor", event.Actor)

	result := p.topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: attrs,
	})

	id, err := result.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish content event: %w", err)
	}
	return id, nil
}

func setAttr(attrs map[string]string, key string, value string) {
	if v := strings.TrimSpace(value); v != "" {
		attrs[key] = v
	}
}
