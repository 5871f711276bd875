package ws

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/zou/appbridge/internal/channel"
	"github.com/zou/appbridge/internal/infrastructure/monitoring"
	"github.com/zou/appbridge/internal/shared/id"
	"github.com/zou/appbridge/internal/shared/types"
)

const (
	maxFrameBytes = 64 << 10
	writeWait     = 10 * time.Second
)

// Frame types sent outside of replies
const (
	FrameSystem = "system"
	FrameError  = "error"
	FramePing   = "ping"
	FramePong   = "pong"
)

// Dispatcher runs one raw channel call
type Dispatcher interface {
	Dispatch(ctx context.Context, method string, args map[string]interface{}) types.Result
}

// Options configures a Handler
type Options struct {
	Channel string
	// CheckOrigin defaults to allowing every origin
	CheckOrigin func(r *http.Request) bool
	Metrics     *monitoring.Metrics
	Logger      *zap.Logger
}

// Handler serves the channel as a websocket stream
type Handler struct {
	dispatcher Dispatcher
	channel    string
	upgrader   websocket.Upgrader
	metrics    *monitoring.Metrics
	logger     *zap.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(dispatcher Dispatcher, opts Options) *Handler {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	checkOrigin := opts.CheckOrigin
	if checkOrigin == nil {
		checkOrigin = func(r *http.Request) bool { return true }
	}
	return &Handler{
		dispatcher: dispatcher,
		channel:    opts.Channel,
		upgrader:   websocket.Upgrader{CheckOrigin: checkOrigin},
		metrics:    opts.Metrics,
		logger:     opts.Logger,
	}
}

// Register mounts the stream route on r
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/channels/:channel/stream", h.HandleConnection)
}

// HandleConnection upgrades the request and serves calls until the peer
// disconnects. Calls on one connection are handled strictly in order.
func (h *Handler) HandleConnection(c *gin.Context) {
	if c.Param("channel") != h.channel {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "unknown channel"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxFrameBytes)

	connID := id.NewConnID()
	logger := h.logger.With(zap.String("conn_id", connID.String()))
	logger.Debug("WebSocket connected", zap.String("remote", c.ClientIP()))

	if h.metrics != nil {
		h.metrics.IncWSConnections()
		defer h.metrics.DecWSConnections()
	}

	ctx := c.Request.Context()

	if err := h.sendFrame(conn, FrameSystem, "connected to "+h.channel); err != nil {
		return
	}

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debug("WebSocket read error", zap.Error(err))
			}
			break
		}

		if err := h.handleMessage(ctx, conn, msgType, data); err != nil {
			logger.Debug("WebSocket write error", zap.Error(err))
			break
		}
	}

	logger.Debug("WebSocket disconnected")
}

func (h *Handler) handleMessage(ctx context.Context, conn *websocket.Conn, msgType int, data []byte) error {
	if msgType != websocket.TextMessage {
		h.record("in", "invalid")
		return h.sendFrame(conn, FrameError, "expected a text frame")
	}

	if frame, err := channel.DecodeFrame(data); err == nil && frame.Type == FramePing {
		h.record("in", FramePing)
		return h.sendFrame(conn, FramePong, "")
	}

	call, err := channel.DecodeCall(data)
	if err != nil {
		h.record("in", "invalid")
		return h.sendFrame(conn, FrameError, err.Error())
	}
	h.record("in", "call")

	result := h.dispatcher.Dispatch(ctx, call.Method, call.Args)

	reply, err := channel.EncodeReply(result.Reply(call.ID))
	if err != nil {
		return h.sendFrame(conn, FrameError, "failed to encode reply")
	}
	h.record("out", "reply")
	return h.write(conn, reply)
}

func (h *Handler) sendFrame(conn *websocket.Conn, frameType, message string) error {
	data, err := channel.EncodeFrame(types.StreamFrame{
		Type:      frameType,
		Message:   message,
		Timestamp: time.Now().Unix(),
	})
	if err != nil {
		return err
	}
	h.record("out", frameType)
	return h.write(conn, data)
}

func (h *Handler) write(conn *websocket.Conn, data []byte) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	err := conn.WriteMessage(websocket.TextMessage, data)
	if errors.Is(err, websocket.ErrCloseSent) {
		return nil
	}
	return err
}

func (h *Handler) record(direction, msgType string) {
	if h.metrics != nil {
		h.metrics.RecordWSMessage(direction, msgType)
	}
}
