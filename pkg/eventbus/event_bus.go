// Package eventbus provides the messaging infrastructure notification
// intents travel on between the workflow core and the delivery worker.
package eventbus

import (
	"context"

	"github.com/sgcbr/sgcflow/pkg/events"
)

type Event interface {
	GetType() events.EventType
}

type Publisher interface {
	Publish(ctx context.Context, key string, event Event) error
}

type Subscriber interface {
	Handle(eventType events.EventType, handler EventHandler) error
	Subscribe(ctx context.Context) error
}

type EventHandler func(ctx context.Context, event any) error

type EventBus interface {
	Publisher
	Subscriber
	Close() error
	GenerateID() string
}
