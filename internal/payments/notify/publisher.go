package notify

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"

	"github.com/sheelmorjaria/rdjcustoms-payments/internal/payments"
	pkgerrors "github.com/sheelmorjaria/rdjcustoms-payments/pkg/errors"
)

// Publisher pushes payment-completed events to the fulfillment topic.
type Publisher struct {
	publisher *pubsub.Publisher
}

// NewPublisher wraps a Pub/Sub publisher handle.
func NewPublisher(publisher *pubsub.Publisher) (*Publisher, error) {
	if publisher == nil {
		return nil, fmt.Errorf("pubsub publisher required")
	}
	return &Publisher{publisher: publisher}, nil
}

// PaymentCompleted publishes the completion event and waits for the broker ack.
func (p *Publisher) PaymentCompleted(ctx context.Context, event payments.CompletedEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal completion event")
	}
	result := p.publisher.Publish(ctx, &pubsub.Message{
		Data: payload,
		Attributes: map[string]string{
			"event":  "payment.completed",
			"method": event.Method.String(),
		},
	})
	if _, err := result.Get(ctx); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "publish completion event")
	}
	return nil
}
