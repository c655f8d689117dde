package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"
	"github.com/smazurov/sdinode/internal/events"
)

// sseBuffer is the per-connection event backlog. Events beyond it are
// dropped for that client only.
const sseBuffer = 32

// registerSSERoutes registers the native Huma SSE endpoint.
func (s *Server) registerSSERoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "events-stream",
		Method:      http.MethodGet,
		Path:        "/api/events",
		Summary:     "Server-Sent Events Stream",
		Description: "Real-time stream of player lifecycle events, player state changes and device arrivals and departures",
		Tags:        []string{"events"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, map[string]any{
		"media":           events.MediaEvent{},
		"player-state":    events.PlayerStateEvent{},
		"device-arrived":  events.DeviceArrivedEvent{},
		"device-departed": events.DeviceDepartedEvent{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		if s.module == nil {
			<-ctx.Done()
			return
		}
		bus := s.module.Bus()

		eventCh := make(chan any, sseBuffer)
		unsubscribers := []func(){
			events.SubscribeToChannel[events.MediaEvent](bus, eventCh),
			events.SubscribeToChannel[events.PlayerStateEvent](bus, eventCh),
			events.SubscribeToChannel[events.DeviceArrivedEvent](bus, eventCh),
			events.SubscribeToChannel[events.DeviceDepartedEvent](bus, eventCh),
		}
		defer func() {
			for _, unsub := range unsubscribers {
				unsub()
			}
		}()

		// The first message is the current player state so clients need no
		// separate status request.
		if s.player != nil {
			if err := send.Data(events.PlayerStateEvent{
				Player:    s.player.ID(),
				URL:       s.player.URL(),
				State:     s.player.State().String(),
				Timestamp: events.Now(),
			}); err != nil {
				return
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case event := <-eventCh:
				if err := send.Data(event); err != nil {
					return
				}
			}
		}
	})
}
