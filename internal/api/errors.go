package api

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/sdinode/internal/capture"
	"github.com/smazurov/sdinode/internal/playback"
	"github.com/smazurov/sdinode/internal/player"
)

// playerError maps player, capture and driver errors to HTTP statuses.
func playerError(err error) error {
	switch {
	case errors.Is(err, player.ErrInvalidURL):
		return huma.Error400BadRequest("invalid device selector", err)
	case errors.Is(err, player.ErrNotFound):
		return huma.Error404NotFound("device not found", err)
	case errors.Is(err, player.ErrUnsupported), errors.Is(err, capture.ErrModeNotSupported):
		return huma.Error422UnprocessableEntity("operation not supported", err)
	case errors.Is(err, capture.ErrAlreadyCapturing):
		return huma.Error409Conflict("device is already capturing", err)
	case errors.Is(err, playback.ErrStopped),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return huma.Error503ServiceUnavailable("playback is not running", err)
	default:
		return huma.Error500InternalServerError("player operation failed", err)
	}
}
