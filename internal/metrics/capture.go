// Package metrics provides Prometheus metrics for SDI capture and playback.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	captureFrames = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sdinode",
		Subsystem: "capture",
		Name:      "frames_total",
		Help:      "Frames delivered by the hardware and published to the latest-frame cell",
	}, []string{"device"})

	captureDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sdinode",
		Subsystem: "capture",
		Name:      "dropped_frames_total",
		Help:      "Frames overwritten before the consumer fetched them",
	}, []string{"device"})

	captureNoSignal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sdinode",
		Subsystem: "capture",
		Name:      "no_signal_frames_total",
		Help:      "Frames delivered without a locked input source",
	}, []string{"device"})

	captureActive = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "sdinode",
		Subsystem: "capture",
		Name:      "capturing",
		Help:      "1 while the device is streaming",
	}, []string{"device"})

	devicesPresent = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "sdinode",
		Subsystem: "devices",
		Name:      "present",
		Help:      "Number of capture devices in the device map",
	})
)

// CaptureCounters holds the per-device collectors resolved once so the
// capture callback does not pay for label lookups on every frame.
type CaptureCounters struct {
	Frames   prometheus.Counter
	Dropped  prometheus.Counter
	NoSignal prometheus.Counter
	Active   prometheus.Gauge
}

// ForDevice returns the capture collectors for a device label.
func ForDevice(device string) CaptureCounters {
	return CaptureCounters{
		Frames:   captureFrames.WithLabelValues(device),
		Dropped:  captureDropped.WithLabelValues(device),
		NoSignal: captureNoSignal.WithLabelValues(device),
		Active:   captureActive.WithLabelValues(device),
	}
}

// DeleteDevice removes all capture series for a device.
func DeleteDevice(device string) {
	captureFrames.DeleteLabelValues(device)
	captureDropped.DeleteLabelValues(device)
	captureNoSignal.DeleteLabelValues(device)
	captureActive.DeleteLabelValues(device)
}

// SetDevicesPresent records the current device map size.
func SetDevicesPresent(n int) {
	devicesPresent.Set(float64(n))
}
