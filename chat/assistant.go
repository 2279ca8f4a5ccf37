// Package chat answers operator questions about live metrics with canned,
// threshold-aware responses. No external AI service is involved: replies are
// keyword-matched against the current metrics context, so the assistant
// works offline and never leaks telemetry.
package chat

import (
	"fmt"
	"strings"

	"github.com/c360/pulseboard/telemetry"
)

// MetricsContext is the snapshot of fleet state the assistant answers from.
// Any part may be nil when the corresponding data is unavailable.
type MetricsContext struct {
	PCB     *telemetry.PCBMetrics       `json:"pcbMetrics,omitempty"`
	Devices *DeviceStats                `json:"iotDevices,omitempty"`
	Summary *telemetry.DashboardSummary `json:"summary,omitempty"`
}

// DeviceStats aggregates the edge fleet for chat answers.
type DeviceStats struct {
	Total         int     `json:"total"`
	Online        int     `json:"online"`
	AvgThroughput float64 `json:"avgThroughput"`
	AvgLatency    float64 `json:"avgLatency"`
}

// Thresholds used when phrasing answers.
const (
	tempWarm     = 60.0 // °C, upper end of the comfortable band
	tempHigh     = 75.0 // °C, needs attention
	voltageLow   = 3.0  // V
	voltageHigh  = 5.5  // V
	currentHigh  = 2.0  // A
	integrityMin = 90.0 // %
	latencyHigh  = 100.0
)

// Respond produces the assistant's answer for one user message. Matching is
// keyword-based and first-match-wins, in a fixed priority order; an
// unrecognized question gets a redirect listing what the assistant knows.
func Respond(userMessage string, ctx MetricsContext) string {
	message := strings.ToLower(strings.TrimSpace(userMessage))

	switch {
	case containsAny(message, "temperature", "temp"):
		return temperatureAnswer(ctx)
	case containsAny(message, "voltage", "volt"):
		return voltageAnswer(ctx)
	case containsAny(message, "current", "amperage"):
		return currentAnswer(ctx)
	case containsAny(message, "signal integrity", "signal"):
		return signalAnswer(ctx)
	case containsAny(message, "iot", "device"):
		return devicesAnswer(ctx)
	case containsAny(message, "throughput", "bandwidth"):
		return throughputAnswer(ctx)
	case containsAny(message, "latency", "delay"):
		return latencyAnswer(ctx)
	case containsAny(message, "alert", "critical", "warning"):
		return alertsAnswer(ctx)
	case containsAny(message, "status", "overview", "summary"):
		return overviewAnswer(ctx)
	case containsAny(message, "help", "what can you"):
		return helpAnswer()
	default:
		return defaultAnswer(userMessage)
	}
}

func containsAny(message string, keywords ...string) bool {
	for _, kw := range keywords {
		if strings.Contains(message, kw) {
			return true
		}
	}
	return false
}

func temperatureAnswer(ctx MetricsContext) string {
	var temp float64
	switch {
	case ctx.PCB != nil && ctx.PCB.Temperature != 0:
		temp = ctx.PCB.Temperature
	case ctx.Summary != nil && ctx.Summary.AverageTemperature != 0:
		temp = ctx.Summary.AverageTemperature
	default:
		return "Temperature data is currently not available. Please check your PCB metrics."
	}

	switch {
	case temp > tempHigh:
		return fmt.Sprintf("The current PCB temperature is %.1f°C, which is quite high. This could indicate:\n\n"+
			"• High CPU/component load\n• Insufficient cooling\n• Potential thermal throttling\n\n"+
			"Recommendation: Check cooling systems and consider reducing workload if temperatures continue to rise above 80°C.", temp)
	case temp > tempWarm:
		return fmt.Sprintf("The PCB temperature is %.1f°C, which is within normal operating range but on the warmer side. "+
			"This is typically acceptable, but monitor for any upward trends.", temp)
	default:
		return fmt.Sprintf("The PCB temperature is %.1f°C, which is in the optimal range. "+
			"Your system appears to be running cool and efficiently.", temp)
	}
}

func voltageAnswer(ctx MetricsContext) string {
	if ctx.PCB == nil || ctx.PCB.Voltage == 0 {
		return "Voltage data is currently not available."
	}
	v := ctx.PCB.Voltage
	if v < voltageLow || v > voltageHigh {
		return fmt.Sprintf("⚠️ Warning: Voltage is %.2fV, which is outside the typical 3.0V-5.0V range. This could indicate:\n\n"+
			"• Power supply issues\n• Voltage regulator problems\n• Potential component damage risk\n\n"+
			"Recommendation: Investigate power supply and regulator immediately.", v)
	}
	return fmt.Sprintf("The voltage is %.2fV, which is within the normal operating range. This indicates stable power delivery.", v)
}

func currentAnswer(ctx MetricsContext) string {
	if ctx.PCB == nil || ctx.PCB.Current == 0 {
		return "Current data is currently not available."
	}
	c := ctx.PCB.Current
	qualifier := "This is within normal range."
	if c > currentHigh {
		qualifier = "This is relatively high and may indicate high component activity."
	}
	return fmt.Sprintf("The current draw is %.2fA. %s Current consumption varies based on workload and component activity.", c, qualifier)
}

func signalAnswer(ctx MetricsContext) string {
	if ctx.PCB == nil || ctx.PCB.SignalIntegrity == 0 {
		return "Signal integrity data is currently not available."
	}
	s := ctx.PCB.SignalIntegrity
	if s < integrityMin {
		return fmt.Sprintf("Signal integrity is %.1f%%, which is below optimal. This could indicate:\n\n"+
			"• Signal degradation\n• Interference issues\n• Connection problems\n\n"+
			"Recommendation: Check connections and EMI sources.", s)
	}
	return fmt.Sprintf("Signal integrity is %.1f%%, which is excellent. Your signals are clean and transmission quality is high.", s)
}

func devicesAnswer(ctx MetricsContext) string {
	var total, online int
	switch {
	case ctx.Devices != nil && ctx.Devices.Total > 0:
		total, online = ctx.Devices.Total, ctx.Devices.Online
	case ctx.Summary != nil && ctx.Summary.TotalIoTDevices > 0:
		total, online = ctx.Summary.TotalIoTDevices, ctx.Summary.OnlineDevices
	default:
		return "IoT device data is currently not available."
	}

	offline := total - online
	answer := fmt.Sprintf("You have %d IoT devices total, with %d online and %d offline/warning.\n\n", total, online, offline)
	switch {
	case online == total:
		answer += "✅ All devices are online - excellent connectivity!"
	case offline > 0:
		answer += fmt.Sprintf("⚠️ %d device(s) need attention. Check network connectivity and device status.", offline)
	}
	return answer
}

func throughputAnswer(ctx MetricsContext) string {
	var throughput float64
	switch {
	case ctx.Devices != nil && ctx.Devices.AvgThroughput != 0:
		throughput = ctx.Devices.AvgThroughput
	case ctx.Summary != nil && ctx.Summary.AverageThroughput != 0:
		throughput = ctx.Summary.AverageThroughput
	default:
		return "Throughput data is currently not available."
	}

	var qualifier string
	switch {
	case throughput > 500:
		qualifier = "This indicates high data transfer activity - your network is handling significant traffic well."
	case throughput > 100:
		qualifier = "This is moderate throughput - typical for IoT deployments."
	default:
		qualifier = "Throughput is on the lower side, which is normal for sensor networks with periodic updates."
	}
	return fmt.Sprintf("Average data throughput is %.2f Mbps. %s", throughput, qualifier)
}

func latencyAnswer(ctx MetricsContext) string {
	if ctx.Devices == nil || ctx.Devices.AvgLatency == 0 {
		return "Latency data is currently not available."
	}
	l := ctx.Devices.AvgLatency
	if l > latencyHigh {
		return fmt.Sprintf("⚠️ Average latency is %.0fms, which is high. This could indicate:\n\n"+
			"• Network congestion\n• Distance to gateway\n• Poor signal quality\n\n"+
			"Recommendation: Check network conditions and device placement.", l)
	}
	return fmt.Sprintf("Average latency is %.0fms, which is good. Your network is responding quickly.", l)
}

func alertsAnswer(ctx MetricsContext) string {
	if ctx.Summary == nil {
		return "Alert data is currently not available."
	}
	alerts := ctx.Summary.CriticalAlerts
	if alerts > 0 {
		return fmt.Sprintf("⚠️ You have %d critical alert(s) that require attention. Check the dashboard for details on:\n\n"+
			"• Component health status\n• Device connectivity issues\n• Out-of-range metrics\n\n"+
			"Recommendation: Review each alert and take appropriate action.", alerts)
	}
	return "✅ No critical alerts! All systems are operating normally."
}

func overviewAnswer(ctx MetricsContext) string {
	if ctx.Summary == nil {
		return "Summary data is currently not available."
	}
	s := ctx.Summary
	closing := "All systems operational!"
	if s.CriticalAlerts != 0 {
		closing = "⚠️ Some issues require attention."
	}
	return fmt.Sprintf("**System Overview:**\n\n"+
		"• Total PCBs: %d\n• Total IoT Devices: %d\n• Online Devices: %d/%d\n"+
		"• Avg Temperature: %.1f°C\n• Avg Throughput: %.2f Mbps\n• Critical Alerts: %d\n\n%s",
		s.TotalPCBs, s.TotalIoTDevices, s.OnlineDevices, s.TotalIoTDevices,
		s.AverageTemperature, s.AverageThroughput, s.CriticalAlerts, closing)
}

func helpAnswer() string {
	return "I can help you understand your PCB and IoT Edge metrics! Ask me about:\n\n" +
		"• Temperature readings\n• Voltage and current\n• Signal integrity\n• IoT device status\n" +
		"• Network throughput and latency\n• Critical alerts\n• System overview\n\n" +
		`Try asking: "What does the temperature reading mean?" or "How is my IoT device status?"`
}

func defaultAnswer(userMessage string) string {
	return fmt.Sprintf("I understand you're asking about: %q. Could you be more specific? I can help explain:\n\n"+
		"• Temperature, voltage, current readings\n• IoT device status and network metrics\n"+
		"• Signal integrity\n• Alerts and warnings\n\n"+
		`Try asking specific questions like "What does the temperature mean?" or "How many devices are online?"`,
		userMessage)
}
