// Package models holds the request and response bodies of the HTTP API.
package models

import (
	"github.com/smazurov/sdinode/internal/devices"
	"github.com/smazurov/sdinode/internal/player"
)

// Health check models
type HealthData struct {
	Status  string `json:"status" example:"ok" doc:"Service status"`
	Devices int    `json:"devices" example:"2" doc:"Number of devices currently present"`
	Player  string `json:"player" example:"playing" doc:"Lifecycle state of the player"`
}

type HealthResponse struct {
	Body HealthData
}

// Version models
type VersionData struct {
	Version   string `json:"version" example:"1.0.0" doc:"Application version"`
	GitCommit string `json:"git_commit" example:"abc123" doc:"Git commit hash"`
	BuildDate string `json:"build_date" example:"2025-01-01T00:00:00Z" doc:"Build timestamp"`
	BuildID   string `json:"build_id" example:"42" doc:"Build identifier"`
	GoVersion string `json:"go_version" example:"go1.24.11" doc:"Go toolchain version"`
	Compiler  string `json:"compiler" example:"gc" doc:"Go compiler"`
	Platform  string `json:"platform" example:"linux/amd64" doc:"Target platform"`
}

type VersionResponse struct {
	Body VersionData
}

// Device models
type DeviceListData struct {
	Devices []devices.Info `json:"devices" doc:"Devices in id order"`
	Count   int            `json:"count" example:"2" doc:"Number of devices"`
}

type DeviceListResponse struct {
	Body DeviceListData
}

type DeviceInput struct {
	ID int `path:"id" minimum:"0" maximum:"255" example:"0" doc:"Device identifier"`
}

type DeviceResponse struct {
	Body devices.Info
}

// Player models
type PlayerResponse struct {
	Body player.Stats
}

type PlayerOpenData struct {
	URL string `json:"url" minLength:"1" example:"sdi://1" doc:"Device selector, 1-based"`
}

type PlayerOpenRequest struct {
	Body PlayerOpenData
}

type PlayerRateData struct {
	Rate float64 `json:"rate" example:"1" doc:"Playback rate; 0 pauses, 1 resumes"`
}

type PlayerRateRequest struct {
	Body PlayerRateData
}

type PlayerTrackData struct {
	Index int `json:"index" minimum:"-1" example:"0" doc:"Video track index, -1 deselects"`
}

type PlayerTrackRequest struct {
	Body PlayerTrackData
}
