package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/c360/pulseboard/chat"
	"github.com/c360/pulseboard/engine"
	"github.com/c360/pulseboard/errors"
	"github.com/c360/pulseboard/registry"
	"github.com/c360/pulseboard/sysinfo"
	"github.com/c360/pulseboard/telemetry"
)

const fleetSize = 10 // simulated edge devices per dashboard refresh

func (s *Server) handleHealth(c *gin.Context) {
	if s.monitor == nil {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
		return
	}
	report := s.monitor.Report()
	code := http.StatusOK
	if report.Status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, report)
}

func (s *Server) handleSummary(c *gin.Context) {
	pcbs := []telemetry.PCBMetrics{s.generator.PCBMetrics()}
	devices := s.generator.IoTDevices(fleetSize)
	c.JSON(http.StatusOK, telemetry.Summarize(pcbs, devices))
}

func (s *Server) handlePCB(c *gin.Context) {
	c.JSON(http.StatusOK, s.generator.PCBMetrics())
}

func (s *Server) handleIoTEdge(c *gin.Context) {
	c.JSON(http.StatusOK, s.generator.IoTDevices(fleetSize))
}

func (s *Server) handleSystem(c *gin.Context) {
	snap, err := sysinfo.Collect()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (s *Server) handleDevicesList(c *gin.Context) {
	c.JSON(http.StatusOK, s.registry.List())
}

func (s *Server) handleDeviceDetail(c *gin.Context) {
	snap, ok := s.registry.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "device not found"})
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (s *Server) handleDeviceConnect(c *gin.Context) {
	var req engine.ConnectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	snap, err := s.engine.Connect(c.Request.Context(), req)
	if err != nil {
		c.JSON(connectErrorStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, snap)
}

// connectErrorStatus maps the error taxonomy onto HTTP codes.
func connectErrorStatus(err error) int {
	switch {
	case errors.Is(err, errors.ErrInvalidConfig), errors.Is(err, errors.ErrUnsupported):
		return http.StatusBadRequest
	case errors.Is(err, errors.ErrPermissionDenied):
		return http.StatusForbidden
	default:
		return http.StatusBadGateway
	}
}

func (s *Server) handleDeviceDisconnect(c *gin.Context) {
	if err := s.engine.Disconnect(c.Param("id")); err != nil {
		if errors.Is(err, errors.ErrDeviceNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "device not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "disconnected"})
}

func (s *Server) handleDeviceRemove(c *gin.Context) {
	s.engine.Remove(c.Param("id"))
	c.Status(http.StatusNoContent)
}

type chatRequest struct {
	Message string `json:"message" binding:"required"`
}

func (s *Server) handleChatAsk(c *gin.Context) {
	if s.transcript == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "chat unavailable"})
		return
	}
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message required"})
		return
	}

	reply := s.transcript.Ask(req.Message, s.metricsContext())
	c.JSON(http.StatusOK, reply)
}

// metricsContext assembles what the assistant knows: a fresh board sample,
// the live device fleet, and the aggregate summary.
func (s *Server) metricsContext() chat.MetricsContext {
	pcb := s.generator.PCBMetrics()
	devices := s.generator.IoTDevices(fleetSize)

	stats := &chat.DeviceStats{Total: len(devices)}
	var latencySum float64
	var throughputSum float64
	for _, d := range devices {
		if d.Status == telemetry.StatusOnline {
			stats.Online++
		}
		latencySum += d.NetworkLatency
		throughputSum += d.DataThroughput
	}
	if len(devices) > 0 {
		stats.AvgLatency = latencySum / float64(len(devices))
		stats.AvgThroughput = throughputSum / float64(len(devices))
	}

	// Real connected devices count into the totals too
	for _, snap := range s.registry.List() {
		stats.Total++
		if snap.Status == registry.StatusConnected {
			stats.Online++
		}
	}

	summary := telemetry.Summarize([]telemetry.PCBMetrics{pcb}, devices)
	return chat.MetricsContext{
		PCB:     &pcb,
		Devices: stats,
		Summary: &summary,
	}
}

func (s *Server) handleChatHistory(c *gin.Context) {
	if s.transcript == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "chat unavailable"})
		return
	}
	c.JSON(http.StatusOK, s.transcript.Messages())
}

func (s *Server) handleChatClear(c *gin.Context) {
	if s.transcript == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "chat unavailable"})
		return
	}
	s.transcript.Clear()
	c.Status(http.StatusNoContent)
}

func (s *Server) handleChatVoiceGet(c *gin.Context) {
	if s.transcript == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "chat unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"enabled": s.transcript.VoiceEnabled()})
}

type voiceRequest struct {
	Enabled bool `json:"enabled"`
}

func (s *Server) handleChatVoiceSet(c *gin.Context) {
	if s.transcript == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "chat unavailable"})
		return
	}
	var req voiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	s.transcript.SetVoiceEnabled(req.Enabled)
	c.JSON(http.StatusOK, gin.H{"enabled": req.Enabled})
}
