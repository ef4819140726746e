package handler

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	infra "github.com/mfirdausali/wif-fin-sub004/internal/infrastructure/printing"
	"github.com/mfirdausali/wif-fin-sub004/internal/interfaces/http/dto"
	"github.com/mfirdausali/wif-fin-sub004/internal/interfaces/http/router"
)

// EngineStatus reports the render engine without launching it
type EngineStatus interface {
	EngineStats() infra.EngineStats
	Draining() bool
}

// SystemHandler serves health and identity endpoints
type SystemHandler struct {
	BaseHandler
	service   string
	version   string
	engine    EngineStatus
	startTime time.Time
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(service, version string, engine EngineStatus) *SystemHandler {
	return &SystemHandler{
		service:   service,
		version:   version,
		engine:    engine,
		startTime: time.Now(),
	}
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status    string            `json:"status"`
	Service   string            `json:"service"`
	Timestamp string            `json:"timestamp"`
	Engine    infra.EngineStats `json:"engine"`
}

// Health answers from process state only, so it succeeds before the first
// render has launched the engine. A draining service reports 503.
func (h *SystemHandler) Health(c *gin.Context) {
	resp := HealthResponse{
		Status:    "ok",
		Service:   h.service,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Engine:    h.engine.EngineStats(),
	}
	status := http.StatusOK
	if h.engine.Draining() {
		resp.Status = "shutting_down"
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, resp)
}

// SystemInfoResponse represents the system information response
type SystemInfoResponse struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
	Uptime    string `json:"uptime"`
}

// GetSystemInfo returns version and uptime
func (h *SystemHandler) GetSystemInfo(c *gin.Context) {
	h.Success(c, SystemInfoResponse{
		Name:      h.service,
		Version:   h.version,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	})
}

// PingResponse represents the ping response
type PingResponse struct {
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// Ping is a liveness probe
func (h *SystemHandler) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(PingResponse{
		Message:   "pong",
		Timestamp: time.Now().Format(time.RFC3339),
	}))
}

// SystemRoutes creates the /system route group
func SystemRoutes(handler *SystemHandler) *router.DomainGroup {
	group := router.NewDomainGroup("system", "/system")
	group.GET("/ping", handler.Ping)
	group.GET("/info", handler.GetSystemInfo)
	return group
}
