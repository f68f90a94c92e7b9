package cartevents

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"

	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/metrics"
)

const ackTimeout = 30 * time.Second

type publishResult interface {
	Get(ctx context.Context) (string, error)
}

type topic interface {
	Publish(ctx context.Context, msg *pubsub.Message) publishResult
	Stop()
}

type pubsubTopic struct {
	publisher *pubsub.Publisher
}

func (t pubsubTopic) Publish(ctx context.Context, msg *pubsub.Message) publishResult {
	return t.publisher.Publish(ctx, msg)
}

func (t pubsubTopic) Stop() {
	t.publisher.Stop()
}

// PubSubPublisher sends events to a Pub/Sub topic. Publish returns once the
// message is handed to the client's batcher; acknowledgements are awaited in
// the background.
type PubSubPublisher struct {
	topic   topic
	logg    *logger.Logger
	metrics *metrics.CartMetrics
	wg      sync.WaitGroup
}

// NewPubSubPublisher wraps a Pub/Sub publisher handle.
func NewPubSubPublisher(publisher *pubsub.Publisher, logg *logger.Logger, m *metrics.CartMetrics) (*PubSubPublisher, error) {
	if publisher == nil {
		return nil, fmt.Errorf("pubsub publisher is required")
	}
	return newPubSubPublisher(pubsubTopic{publisher: publisher}, logg, m), nil
}

func newPubSubPublisher(t topic, logg *logger.Logger, m *metrics.CartMetrics) *PubSubPublisher {
	return &PubSubPublisher{topic: t, logg: logg, metrics: m}
}

// Publish implements Publisher.
func (p *PubSubPublisher) Publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal cart event: %w", err)
	}

	result := p.topic.Publish(ctx, &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"event_id":    event.ID.String(),
			"event_type":  event.Type.String(),
			"session_id":  event.SessionID,
			"total_cents": strconv.FormatInt(event.TotalCents, 10),
		},
	})

	logCtx := ctx
	if p.logg != nil {
		logCtx = p.logg.WithFields(context.WithoutCancel(ctx), map[string]any{
			"event_id":   event.ID.String(),
			"event_type": event.Type.String(),
		})
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ackCtx, cancel := context.WithTimeout(context.WithoutCancel(logCtx), ackTimeout)
		defer cancel()
		if _, err := result.Get(ackCtx); err != nil {
			p.metrics.IncEvent(event.Type.String(), false)
			if p.logg != nil {
				p.logg.Warn(p.logg.WithField(logCtx, "error", err.Error()), "cart.event.publish_failed")
			}
			return
		}
		p.metrics.IncEvent(event.Type.String(), true)
	}()
	return nil
}

// Close waits for outstanding acknowledgements and stops the publisher.
func (p *PubSubPublisher) Close() {
	p.wg.Wait()
	p.topic.Stop()
}
