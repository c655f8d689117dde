package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/sdinode/internal/api/models"
	"github.com/smazurov/sdinode/internal/devices"
)

func (s *Server) registerDeviceRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-devices",
		Method:      http.MethodGet,
		Path:        "/api/devices",
		Summary:     "List Devices",
		Description: "List the SDI inputs found by the last discovery",
		Tags:        []string{"devices"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(_ context.Context, _ *struct{}) (*models.DeviceListResponse, error) {
		list := []devices.Info{}
		if s.module != nil {
			if snap := s.module.Devices().Snapshot(); snap != nil {
				list = snap
			}
		}
		return &models.DeviceListResponse{
			Body: models.DeviceListData{Devices: list, Count: len(list)},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-device",
		Method:      http.MethodGet,
		Path:        "/api/devices/{id}",
		Summary:     "Get Device",
		Description: "Describe one device by identifier",
		Tags:        []string{"devices"},
		Security:    withAuth(),
		Errors:      []int{401, 404},
	}, func(_ context.Context, input *models.DeviceInput) (*models.DeviceResponse, error) {
		if s.module == nil {
			return nil, huma.Error404NotFound(fmt.Sprintf("device %d not found", input.ID))
		}
		d, ok := s.module.Devices().Get(uint8(input.ID))
		if !ok {
			return nil, huma.Error404NotFound(fmt.Sprintf("device %d not found", input.ID))
		}
		return &models.DeviceResponse{Body: devices.Describe(d)}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "rescan-devices",
		Method:      http.MethodPost,
		Path:        "/api/devices/rescan",
		Summary:     "Rescan Devices",
		Description: "Enumerate hardware again and report the resulting device list",
		Tags:        []string{"devices"},
		Security:    withAuth(),
		Errors:      []int{401, 503},
	}, func(ctx context.Context, _ *struct{}) (*models.DeviceListResponse, error) {
		if s.module == nil || !s.module.Started() {
			return nil, huma.Error503ServiceUnavailable("device module not started")
		}
		if err := s.module.Rescan(ctx); err != nil {
			return nil, huma.Error500InternalServerError("rescan failed", err)
		}
		list := s.module.Devices().Snapshot()
		if list == nil {
			list = []devices.Info{}
		}
		return &models.DeviceListResponse{
			Body: models.DeviceListData{Devices: list, Count: len(list)},
		}, nil
	})
}
