package telemetry

import (
	"fmt"
	"math/rand"
	"time"
)

var componentNames = []string{
	"CPU", "GPU", "Memory Controller", "Power IC", "RF Module",
	"Bluetooth Module", "WiFi Module", "ADC", "DAC", "Regulator",
}

var sensorTypes = []string{
	"Temperature", "Humidity", "Pressure", "Accelerometer", "Gyroscope", "Magnetometer",
}

var edgeDeviceNames = []string{
	"Edge Sensor 1", "Edge Sensor 2", "Gateway Node A", "Gateway Node B",
	"Field Monitor X", "Field Monitor Y", "IoT Device Alpha", "IoT Device Beta",
	"Smart Sensor 1", "Smart Sensor 2", "Hub Device A", "Hub Device B",
}

// Generator produces mock fleet telemetry for dashboard views. It carries its
// own rand source so concurrent callers and tests do not contend on the
// global one.
type Generator struct {
	rng *rand.Rand
}

// NewGenerator creates a generator seeded from the current time.
func NewGenerator() *Generator {
	return NewGeneratorWithSeed(time.Now().UnixNano())
}

// NewGeneratorWithSeed creates a generator with a fixed seed, for
// reproducible output.
func NewGeneratorWithSeed(seed int64) *Generator {
	return &Generator{rng: rand.New(rand.NewSource(seed))}
}

func (g *Generator) between(min, max float64) float64 {
	return g.rng.Float64()*(max-min) + min
}

func (g *Generator) intBetween(min, max int) int {
	return g.rng.Intn(max-min+1) + min
}

// PCBMetrics generates one full board snapshot with 5-10 components.
func (g *Generator) PCBMetrics() PCBMetrics {
	statuses := []string{"healthy", "warning", "critical"}
	count := g.intBetween(5, 10)
	components := make([]ComponentHealth, count)
	for i := range components {
		components[i] = ComponentHealth{
			ID:          fmt.Sprintf("comp-%d", i),
			Name:        componentNames[i%len(componentNames)],
			Status:      statuses[g.intBetween(0, 2)],
			Temperature: g.between(25, 85),
			Voltage:     g.between(1.8, 5.0),
		}
	}
	return PCBMetrics{
		Temperature:     g.between(30, 75),
		Voltage:         g.between(3.0, 5.0),
		Current:         g.between(0.1, 2.5),
		SignalIntegrity: g.between(85, 100),
		ComponentHealth: components,
		Timestamp:       time.Now(),
	}
}

// IoTEdgeMetrics generates one edge-device snapshot. Offline devices report
// zero throughput, battery, and power, and a sentinel 999ms latency.
func (g *Generator) IoTEdgeMetrics(deviceID, deviceName string) IoTEdgeMetrics {
	roll := g.rng.Float64()
	status := StatusOnline
	switch {
	case roll > 0.9:
		status = StatusOffline
	case roll > 0.75:
		status = StatusWarning
	}

	m := IoTEdgeMetrics{
		DeviceID:       deviceID,
		DeviceName:     deviceName,
		Status:         status,
		SensorReadings: g.sensorReadings(),
		Timestamp:      time.Now(),
	}
	if status == StatusOffline {
		m.NetworkLatency = 999
		return m
	}
	m.DataThroughput = g.between(10, 1000)
	m.NetworkLatency = g.between(5, 150)
	m.BatteryLevel = g.between(20, 100)
	m.PowerConsumption = g.between(0.5, 5.0)
	return m
}

// IoTDevices generates a fleet of edge-device snapshots.
func (g *Generator) IoTDevices(count int) []IoTEdgeMetrics {
	if count <= 0 {
		count = 10
	}
	devices := make([]IoTEdgeMetrics, count)
	for i := range devices {
		devices[i] = g.IoTEdgeMetrics(
			fmt.Sprintf("device-%d", i),
			edgeDeviceNames[i%len(edgeDeviceNames)],
		)
	}
	return devices
}

func (g *Generator) sensorReadings() []SensorData {
	readings := make([]SensorData, len(sensorTypes))
	for i, typ := range sensorTypes {
		unit := "units"
		switch typ {
		case "Temperature":
			unit = "°C"
		case "Pressure":
			unit = "hPa"
		}
		readings[i] = SensorData{
			SensorID:  fmt.Sprintf("sensor-%d", i),
			Type:      typ,
			Value:     g.between(0, 100),
			Unit:      unit,
			Timestamp: time.Now(),
		}
	}
	return readings
}

// MockFields generates one reading's worth of metric fields for a device
// type. The simulated transport uses this to emit periodic payloads.
func (g *Generator) MockFields(deviceType DeviceType) map[string]any {
	switch deviceType {
	case DeviceIoT:
		return map[string]any{
			"temperature":    20 + g.rng.Float64()*15,
			"humidity":       40 + g.rng.Float64()*30,
			"signalStrength": -50 - g.rng.Float64()*30,
		}
	case DevicePCB:
		return map[string]any{
			"temperature":     30 + g.rng.Float64()*40,
			"voltage":         3.3 + g.rng.Float64()*1.7,
			"current":         0.1 + g.rng.Float64()*2.0,
			"signalIntegrity": 85 + g.rng.Float64()*15,
		}
	case DeviceRelay:
		state := "off"
		if g.rng.Float64() > 0.5 {
			state = "on"
		}
		return map[string]any{
			"state":   state,
			"voltage": 5.0 + g.rng.Float64()*5.0,
			"current": 0.01 + g.rng.Float64()*0.5,
		}
	case DeviceVibration:
		return map[string]any{
			"amplitude": g.rng.Float64() * 10,
			"frequency": 50 + g.rng.Float64()*50,
			"x":         (g.rng.Float64() - 0.5) * 2,
			"y":         (g.rng.Float64() - 0.5) * 2,
			"z":         (g.rng.Float64() - 0.5) * 2,
		}
	default:
		return map[string]any{}
	}
}
