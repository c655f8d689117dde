package events

import (
	"time"

	"github.com/kelindar/event"
	"github.com/smazurov/sdinode/internal/media"
)

// Bus wraps kelindar/event dispatcher for event broadcasting.
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates a new event bus.
func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
	}
}

// Publish publishes an event to all subscribers of its concrete type.
func (b *Bus) Publish(ev Event) {
	switch e := ev.(type) {
	case MediaEvent:
		event.Publish(b.dispatcher, e)
	case DeviceArrivedEvent:
		event.Publish(b.dispatcher, e)
	case DeviceDepartedEvent:
		event.Publish(b.dispatcher, e)
	case PlayerStateEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe registers handler, whose parameter type selects the events it
// receives, and returns an unsubscribe function. Unknown handler types get a
// no-op.
//
//	unsub := bus.Subscribe(func(e DeviceArrivedEvent) { ... })
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(MediaEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(DeviceArrivedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(DeviceDepartedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(PlayerStateEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		return func() {}
	}
}

// SubscribeToChannel forwards events of type T into ch, dropping them when
// ch is full.
func SubscribeToChannel[T Event](bus *Bus, ch chan<- any) func() {
	return event.Subscribe(bus.dispatcher, func(e T) {
		select {
		case ch <- e:
		default:
		}
	})
}

// MediaSink returns a media.EventSink that republishes player events on the
// bus tagged with player, and forwards them to next when it is non-nil.
func (b *Bus) MediaSink(player string, next media.EventSink) media.EventSink {
	return media.EventSinkFunc(func(e media.Event) {
		if next != nil {
			next.ReceiveMediaEvent(e)
		}
		b.Publish(MediaEvent{
			Player:    player,
			Event:     e,
			Name:      e.String(),
			Timestamp: Now(),
		})
	})
}

// Now formats the current time for event timestamps.
func Now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
