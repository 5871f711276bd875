package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/zou/appbridge/internal/channel"
	"github.com/zou/appbridge/internal/infrastructure/monitoring"
	"github.com/zou/appbridge/internal/infrastructure/resilience"
	"github.com/zou/appbridge/internal/providers/apps"
	"github.com/zou/appbridge/internal/shared/types"
)

// maxBodyBytes caps a single channel call
const maxBodyBytes = 64 << 10

// Dispatcher runs one raw channel call
type Dispatcher interface {
	Dispatch(ctx context.Context, method string, args map[string]interface{}) types.Result
}

// Options configures Handlers
type Options struct {
	Channel string
	// Lister backs GET /apps; nil disables the listing
	Lister  apps.Lister
	Breaker *resilience.Breaker
	Metrics *monitoring.Metrics
	Logger  *zap.Logger
	Version string
}

// Handlers contains the HTTP side of the channel
type Handlers struct {
	dispatcher Dispatcher
	channel    string
	lister     apps.Lister
	breaker    *resilience.Breaker
	metrics    *monitoring.Metrics
	logger     *zap.Logger
	version    string
	started    time.Time
}

// NewHandlers creates a new handler set
func NewHandlers(dispatcher Dispatcher, opts Options) *Handlers {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Handlers{
		dispatcher: dispatcher,
		channel:    opts.Channel,
		lister:     opts.Lister,
		breaker:    opts.Breaker,
		metrics:    opts.Metrics,
		logger:     opts.Logger,
		version:    opts.Version,
		started:    time.Now(),
	}
}

// Channel returns the channel name the handlers answer on
func (h *Handlers) Channel() string {
	return h.channel
}

// MatchChannel aborts with 404 unless the :channel param names this channel
// exactly. Other channel names are never routed.
func (h *Handlers) MatchChannel(c *gin.Context) {
	if c.Param("channel") != h.channel {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
			"error": "unknown channel",
		})
		return
	}
	c.Next()
}

// Call handles POST /channels/:channel. Every dispatched call answers 200
// with a Reply; structured failures are replies, not transport errors.
func (h *Handlers) Call(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}

	call, err := channel.DecodeCall(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result := h.dispatcher.Dispatch(c.Request.Context(), call.Method, call.Args)

	data, err := channel.EncodeReply(result.Reply(call.ID))
	if err != nil {
		h.logger.Error("Failed to encode reply", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to encode reply"})
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", data)
}

// Root handles GET /
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "appbridge",
		"version": h.version,
		"channel": h.channel,
	})
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	resp := gin.H{
		"status":  "healthy",
		"channel": h.channel,
		"uptime":  time.Since(h.started).Round(time.Second).String(),
	}

	if h.breaker != nil {
		state := h.breaker.State()
		resp["registry"] = gin.H{
			"breaker": state.String(),
			"counts":  h.breaker.Counts(),
		}
		if state == resilience.StateOpen {
			resp["status"] = "degraded"
		}
	}
	if h.metrics != nil {
		resp["calls"] = h.metrics.Snapshot()
	}

	c.JSON(http.StatusOK, resp)
}

// ListApps handles GET /apps, a diagnostic view of the registry
func (h *Handlers) ListApps(c *gin.Context) {
	if h.lister == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "registry does not support listing"})
		return
	}

	entries, err := h.lister.List(c.Request.Context())
	if err != nil {
		h.logger.Warn("Failed to list applications", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	if entries == nil {
		entries = []types.AppEntry{}
	}

	c.JSON(http.StatusOK, gin.H{
		"apps":  entries,
		"stats": apps.Stats(entries),
	})
}

// MetricsJSON handles GET /metrics/json
func (h *Handlers) MetricsJSON(c *gin.Context) {
	if h.metrics == nil {
		c.JSON(http.StatusOK, monitoring.Snapshot{})
		return
	}
	c.JSON(http.StatusOK, h.metrics.Snapshot())
}

// Register mounts the handlers on r
func (h *Handlers) Register(r gin.IRouter) {
	r.GET("/", h.Root)
	r.GET("/health", h.Health)
	r.GET("/apps", h.ListApps)
	r.GET("/metrics/json", h.MetricsJSON)
	r.POST("/channels/:channel", h.MatchChannel, h.Call)
}
