package chat

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/c360/pulseboard/telemetry"
)

func ctxWithPCB(pcb telemetry.PCBMetrics) MetricsContext {
	return MetricsContext{PCB: &pcb}
}

func TestTemperatureBands(t *testing.T) {
	cases := []struct {
		temp float64
		want string
	}{
		{82.0, "quite high"},
		{68.0, "on the warmer side"},
		{45.0, "optimal range"},
	}
	for _, tc := range cases {
		answer := Respond("what is the temperature?", ctxWithPCB(telemetry.PCBMetrics{Temperature: tc.temp}))
		assert.Contains(t, answer, tc.want, "temp %.1f", tc.temp)
	}
}

func TestTemperatureFallsBackToSummary(t *testing.T) {
	ctx := MetricsContext{Summary: &telemetry.DashboardSummary{AverageTemperature: 50.0}}
	answer := Respond("temp?", ctx)
	assert.Contains(t, answer, "50.0°C")
}

func TestTemperatureUnavailable(t *testing.T) {
	answer := Respond("temperature", MetricsContext{})
	assert.Contains(t, answer, "not available")
}

func TestVoltageWindow(t *testing.T) {
	ok := Respond("voltage?", ctxWithPCB(telemetry.PCBMetrics{Voltage: 3.3}))
	assert.Contains(t, ok, "normal operating range")

	low := Respond("voltage?", ctxWithPCB(telemetry.PCBMetrics{Voltage: 2.5}))
	assert.Contains(t, low, "Warning")

	high := Respond("volt", ctxWithPCB(telemetry.PCBMetrics{Voltage: 6.1}))
	assert.Contains(t, high, "Warning")
}

func TestCurrentQualifier(t *testing.T) {
	normal := Respond("current draw?", ctxWithPCB(telemetry.PCBMetrics{Current: 0.8}))
	assert.Contains(t, normal, "within normal range")

	high := Respond("amperage", ctxWithPCB(telemetry.PCBMetrics{Current: 2.4}))
	assert.Contains(t, high, "relatively high")
}

func TestSignalIntegrityThreshold(t *testing.T) {
	good := Respond("signal integrity", ctxWithPCB(telemetry.PCBMetrics{SignalIntegrity: 96.0}))
	assert.Contains(t, good, "excellent")

	poor := Respond("how is the signal", ctxWithPCB(telemetry.PCBMetrics{SignalIntegrity: 84.0}))
	assert.Contains(t, poor, "below optimal")
}

func TestDevicesAnswer(t *testing.T) {
	allOnline := Respond("device status", MetricsContext{
		Devices: &DeviceStats{Total: 4, Online: 4},
	})
	assert.Contains(t, allOnline, "All devices are online")

	someOffline := Respond("iot devices", MetricsContext{
		Devices: &DeviceStats{Total: 5, Online: 3},
	})
	assert.Contains(t, someOffline, "2 device(s) need attention")
}

func TestLatencyThreshold(t *testing.T) {
	slow := Respond("what is the latency", MetricsContext{Devices: &DeviceStats{AvgLatency: 140}})
	assert.Contains(t, slow, "high")

	fast := Respond("delay?", MetricsContext{Devices: &DeviceStats{AvgLatency: 25}})
	assert.Contains(t, fast, "good")
}

func TestAlertsAnswer(t *testing.T) {
	some := Respond("any alerts?", MetricsContext{Summary: &telemetry.DashboardSummary{CriticalAlerts: 3}})
	assert.Contains(t, some, "3 critical alert(s)")

	none := Respond("critical?", MetricsContext{Summary: &telemetry.DashboardSummary{}})
	assert.Contains(t, none, "No critical alerts")
}

func TestOverviewAnswer(t *testing.T) {
	answer := Respond("give me an overview", MetricsContext{Summary: &telemetry.DashboardSummary{
		TotalPCBs:          2,
		TotalIoTDevices:    6,
		OnlineDevices:      5,
		AverageTemperature: 48.2,
		AverageThroughput:  312.5,
	}})
	assert.Contains(t, answer, "System Overview")
	assert.Contains(t, answer, "5/6")
	assert.Contains(t, answer, "48.2°C")
	assert.Contains(t, answer, "All systems operational")
}

func TestHelpAnswer(t *testing.T) {
	answer := Respond("help", MetricsContext{})
	assert.Contains(t, answer, "Ask me about")
}

func TestDefaultAnswerEchoesQuestion(t *testing.T) {
	answer := Respond("tell me about the weather", MetricsContext{})
	assert.Contains(t, answer, "tell me about the weather")
	assert.Contains(t, answer, "Could you be more specific")
}

func TestKeywordPriority(t *testing.T) {
	// "temperature" wins over "status" per match order
	answer := Respond("temperature status", ctxWithPCB(telemetry.PCBMetrics{Temperature: 40}))
	assert.True(t, strings.Contains(answer, "°C"))
}
