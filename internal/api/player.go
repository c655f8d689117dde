package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/sdinode/internal/api/models"
	"github.com/smazurov/sdinode/internal/media"
)

func (s *Server) registerPlayerRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-player",
		Method:      http.MethodGet,
		Path:        "/api/player",
		Summary:     "Player Status",
		Description: "Report the player's state, open device and session counters",
		Tags:        []string{"player"},
		Security:    withAuth(),
		Errors:      []int{401, 503},
	}, func(_ context.Context, _ *struct{}) (*models.PlayerResponse, error) {
		if s.player == nil {
			return nil, huma.Error503ServiceUnavailable("no player")
		}
		return &models.PlayerResponse{Body: s.player.Stats()}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "open-player",
		Method:      http.MethodPost,
		Path:        "/api/player/open",
		Summary:     "Open Device",
		Description: "Close any open session and open the device named by an sdi://<n> selector",
		Tags:        []string{"player"},
		Security:    withAuth(),
		Errors:      []int{400, 401, 404, 409, 422, 503},
	}, func(ctx context.Context, input *models.PlayerOpenRequest) (*models.PlayerResponse, error) {
		return s.control(ctx, func() error {
			return s.player.Open(input.Body.URL, nil)
		})
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "close-player",
		Method:      http.MethodPost,
		Path:        "/api/player/close",
		Summary:     "Close Device",
		Description: "Stop capturing and close the session. Closing a closed player is a no-op",
		Tags:        []string{"player"},
		Security:    withAuth(),
		Errors:      []int{401, 503},
	}, func(ctx context.Context, _ *struct{}) (*models.PlayerResponse, error) {
		return s.control(ctx, func() error {
			s.player.Close()
			return nil
		})
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "set-player-rate",
		Method:      http.MethodPost,
		Path:        "/api/player/rate",
		Summary:     "Set Rate",
		Description: "Pause with rate 0 or resume with rate 1. Other rates are rejected",
		Tags:        []string{"player"},
		Security:    withAuth(),
		Errors:      []int{401, 422, 503},
	}, func(ctx context.Context, input *models.PlayerRateRequest) (*models.PlayerResponse, error) {
		return s.control(ctx, func() error {
			return s.player.SetRate(input.Body.Rate)
		})
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "select-player-track",
		Method:      http.MethodPost,
		Path:        "/api/player/track",
		Summary:     "Select Video Track",
		Description: "Select video track 0 or deselect with -1. While deselected no samples are produced",
		Tags:        []string{"player"},
		Security:    withAuth(),
		Errors:      []int{401, 422, 503},
	}, func(ctx context.Context, input *models.PlayerTrackRequest) (*models.PlayerResponse, error) {
		return s.control(ctx, func() error {
			return s.player.SelectTrack(media.TrackVideo, input.Body.Index)
		})
	})
}

// control runs op on the player goroutine and reports the resulting stats.
// Stats are read after the command returns, so they reflect op.
func (s *Server) control(ctx context.Context, op func() error) (*models.PlayerResponse, error) {
	if s.player == nil || s.runner == nil {
		return nil, huma.Error503ServiceUnavailable("no player")
	}

	var opErr error
	if err := s.runner.Do(ctx, func() { opErr = op() }); err != nil {
		return nil, playerError(err)
	}
	if opErr != nil {
		return nil, playerError(opErr)
	}
	return &models.PlayerResponse{Body: s.player.Stats()}, nil
}
