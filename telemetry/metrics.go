package telemetry

import "time"

// DeviceStatus is the reported health of a simulated edge device.
type DeviceStatus string

const (
	StatusOnline  DeviceStatus = "online"
	StatusOffline DeviceStatus = "offline"
	StatusWarning DeviceStatus = "warning"
)

// ComponentHealth describes one board component on a PCB.
type ComponentHealth struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Status      string  `json:"status"` // healthy, warning, critical
	Temperature float64 `json:"temperature"`
	Voltage     float64 `json:"voltage"`
}

// SensorData is one sensor sample attached to an edge device report.
type SensorData struct {
	SensorID  string    `json:"sensorId"`
	Type      string    `json:"type"`
	Value     float64   `json:"value"`
	Unit      string    `json:"unit"`
	Timestamp time.Time `json:"timestamp"`
}

// PCBMetrics is a full board-level telemetry snapshot.
type PCBMetrics struct {
	Temperature     float64           `json:"temperature"`
	Voltage         float64           `json:"voltage"`
	Current         float64           `json:"current"`
	SignalIntegrity float64           `json:"signalIntegrity"`
	ComponentHealth []ComponentHealth `json:"componentHealth"`
	Timestamp       time.Time         `json:"timestamp"`
}

// IoTEdgeMetrics is a full edge-device telemetry snapshot.
type IoTEdgeMetrics struct {
	DeviceID         string       `json:"deviceId"`
	DeviceName       string       `json:"deviceName"`
	Status           DeviceStatus `json:"status"`
	DataThroughput   float64      `json:"dataThroughput"`
	NetworkLatency   float64      `json:"networkLatency"`
	BatteryLevel     float64      `json:"batteryLevel"`
	PowerConsumption float64      `json:"powerConsumption"`
	SensorReadings   []SensorData `json:"sensorReadings"`
	Timestamp        time.Time    `json:"timestamp"`
}

// MetricHistory is one point in a time series.
type MetricHistory struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// DashboardSummary aggregates board and edge-device fleets into the
// top-of-dashboard counters.
type DashboardSummary struct {
	TotalPCBs          int     `json:"totalPCBs"`
	TotalIoTDevices    int     `json:"totalIoTDevices"`
	OnlineDevices      int     `json:"onlineDevices"`
	AverageTemperature float64 `json:"averageTemperature"`
	AverageThroughput  float64 `json:"averageThroughput"`
	CriticalAlerts     int     `json:"criticalAlerts"`
}

// Summarize computes the dashboard summary for a set of board and edge
// snapshots. Critical alerts count critical PCB components plus edge devices
// that are warning or offline.
func Summarize(pcbs []PCBMetrics, devices []IoTEdgeMetrics) DashboardSummary {
	s := DashboardSummary{
		TotalPCBs:       len(pcbs),
		TotalIoTDevices: len(devices),
	}

	var tempSum float64
	for _, pcb := range pcbs {
		tempSum += pcb.Temperature
		for _, c := range pcb.ComponentHealth {
			if c.Status == "critical" {
				s.CriticalAlerts++
			}
		}
	}
	if len(pcbs) > 0 {
		s.AverageTemperature = tempSum / float64(len(pcbs))
	}

	var throughputSum float64
	for _, d := range devices {
		throughputSum += d.DataThroughput
		switch d.Status {
		case StatusOnline:
			s.OnlineDevices++
		case StatusWarning, StatusOffline:
			s.CriticalAlerts++
		}
	}
	if len(devices) > 0 {
		s.AverageThroughput = throughputSum / float64(len(devices))
	}

	return s
}
