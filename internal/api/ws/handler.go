package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/uibuilder/internal/api/middleware"
	"github.com/GriffinCanCode/uibuilder/internal/domain/generation"
	"github.com/GriffinCanCode/uibuilder/internal/domain/payload"
	"github.com/GriffinCanCode/uibuilder/internal/domain/preview"
	"github.com/GriffinCanCode/uibuilder/internal/domain/workspace"
	"github.com/GriffinCanCode/uibuilder/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/uibuilder/internal/shared/id"
)

const (
	writeWait       = 10 * time.Second
	pongWait        = 60 * time.Second
	pingPeriod      = pongWait * 9 / 10
	maxMessageBytes = 1 << 20
	generateTimeout = 3 * time.Minute
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Message is the envelope for both directions.
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// FrameData is the payload of a frame message.
type FrameData struct {
	Generation uint64 `json:"generation"`
	Trigger    string `json:"trigger"`
	Document   string `json:"document"`
	Hash       string `json:"hash"`
}

type generateData struct {
	Prompt       string `json:"prompt"`
	Model        string `json:"model"`
	SubmissionID string `json:"submission_id"`
}

type renderedData struct {
	Generation uint64 `json:"generation"`
}

// Handler manages WebSocket connections.
type Handler struct {
	generator *generation.Service
	workspace *workspace.Workspace
	surface   *preview.Surface
	metrics   *monitoring.Metrics
	logger    *zap.Logger
}

// NewHandler creates a new WebSocket handler.
func NewHandler(generator *generation.Service, ws *workspace.Workspace, surface *preview.Surface, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		generator: generator,
		workspace: ws,
		surface:   surface,
		logger:    logger.Named("ws"),
	}
}

// WithMetrics attaches a metrics collector.
func (h *Handler) WithMetrics(m *monitoring.Metrics) *Handler {
	h.metrics = m
	return h
}

// conn serializes writes; gorilla allows one concurrent writer.
type conn struct {
	id      string
	ws      *websocket.Conn
	mu      sync.Mutex
	metrics *monitoring.Metrics
	jobs    sync.WaitGroup
}

func (c *conn) send(msgType string, data interface{}) error {
	msg := map[string]interface{}{"type": msgType}
	if data != nil {
		msg["data"] = data
	}
	raw, err := sonic.Marshal(msg)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.ws.WriteMessage(websocket.TextMessage, raw); err != nil {
		return err
	}
	if c.metrics != nil {
		c.metrics.RecordWSMessage("out", msgType)
	}
	return nil
}

func (c *conn) sendError(code, message string) error {
	return c.send("error", middleware.ErrorBody{Code: code, Message: message})
}

func (c *conn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

func frameData(f preview.Frame) FrameData {
	return FrameData{
		Generation: f.Generation,
		Trigger:    f.Trigger,
		Document:   f.Document.Source,
		Hash:       f.Document.Hash,
	}
}

// HandleConnection upgrades the request and serves the connection until
// the client goes away.
func (h *Handler) HandleConnection(c *gin.Context) {
	wsConn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer wsConn.Close()

	cn := &conn{id: uuid.NewString(), ws: wsConn, metrics: h.metrics}
	logger := h.logger.With(zap.String("conn_id", cn.id))
	if h.metrics != nil {
		h.metrics.IncWSConnections()
		defer h.metrics.DecWSConnections()
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	frames, unsubscribe := h.surface.Subscribe()
	defer unsubscribe()

	hello := map[string]interface{}{"connection_id": cn.id}
	if f, ok := h.surface.Current(); ok {
		hello["generation"] = f.Generation
	}
	if err := cn.send("connected", hello); err != nil {
		return
	}
	if f, ok := h.surface.Current(); ok {
		_ = cn.send("frame", frameData(f))
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		h.writeLoop(ctx, cn, frames, logger)
	}()

	logger.Info("WebSocket connected")
	h.readLoop(ctx, cn, logger)
	cancel()
	cn.jobs.Wait()
	wg.Wait()
	logger.Info("WebSocket disconnected")
}

func (h *Handler) writeLoop(ctx context.Context, cn *conn, frames <-chan preview.Frame, logger *zap.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case f, ok := <-frames:
			if !ok {
				return
			}
			if err := cn.send("frame", frameData(f)); err != nil {
				logger.Debug("Frame write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			if err := cn.ping(); err != nil {
				return
			}
		}
	}
}

func (h *Handler) readLoop(ctx context.Context, cn *conn, logger *zap.Logger) {
	cn.ws.SetReadLimit(maxMessageBytes)
	_ = cn.ws.SetReadDeadline(time.Now().Add(pongWait))
	cn.ws.SetPongHandler(func(string) error {
		return cn.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := cn.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("WebSocket read error", zap.Error(err))
			}
			return
		}
		_ = cn.ws.SetReadDeadline(time.Now().Add(pongWait))

		var msg Message
		if err := sonic.Unmarshal(raw, &msg); err != nil {
			_ = cn.sendError(middleware.CodeInvalidRequest, "message must be {type, data}")
			continue
		}
		if h.metrics != nil {
			h.metrics.RecordWSMessage("in", msg.Type)
		}

		switch msg.Type {
		case "generate":
			var data generateData
			if err := decodeData(msg, &data); err != nil {
				_ = cn.sendError(middleware.CodeInvalidRequest, err.Error())
				continue
			}
			cn.jobs.Add(1)
			go func() {
				defer cn.jobs.Done()
				h.generate(ctx, cn, data, logger)
			}()
		case "update":
			h.update(ctx, cn, msg)
		case "rendered":
			var data renderedData
			if err := decodeData(msg, &data); err != nil {
				_ = cn.sendError(middleware.CodeInvalidRequest, err.Error())
				continue
			}
			acked := h.surface.Acknowledge(data.Generation)
			_ = cn.send("ack", map[string]interface{}{
				"generation":   data.Generation,
				"acknowledged": acked,
			})
		case "ping":
			_ = cn.send("pong", nil)
		default:
			_ = cn.sendError(middleware.CodeInvalidRequest, "unknown message type")
		}
	}
}

var errMissingData = errors.New("message data is required")

func decodeData(msg Message, v interface{}) error {
	if len(msg.Data) == 0 || string(msg.Data) == "null" {
		return errMissingData
	}
	return sonic.Unmarshal(msg.Data, v)
}

func (h *Handler) generate(ctx context.Context, cn *conn, data generateData, logger *zap.Logger) {
	if data.SubmissionID != "" && !id.Valid(data.SubmissionID, id.SubmissionPrefix) {
		_ = cn.sendError(middleware.CodeInvalidRequest, "submission_id is not a valid submission id")
		return
	}
	sid := id.SubmissionID(data.SubmissionID)
	if sid == "" {
		sid = id.NewSubmissionID()
	}

	ctx, cancel := context.WithTimeout(ctx, generateTimeout)
	defer cancel()

	_ = cn.send("generation_start", map[string]interface{}{"submission_id": sid})
	res, err := h.generator.Generate(ctx, generation.Request{
		Prompt:       data.Prompt,
		Model:        data.Model,
		SubmissionID: sid,
	})
	switch {
	case errors.Is(err, generation.ErrEmptyPrompt):
		_ = cn.sendError(middleware.CodeInvalidRequest, err.Error())
	case errors.Is(err, generation.ErrSubmissionInFlight):
		_ = cn.sendError(middleware.CodeConflict, err.Error())
	case err != nil:
		if ctx.Err() == nil {
			logger.Error("Generation failed", zap.Error(err))
		}
		_ = cn.sendError(middleware.CodeInternal, err.Error())
	default:
		_ = cn.send("generation_complete", res)
	}
}

func (h *Handler) update(ctx context.Context, cn *conn, msg Message) {
	if len(msg.Data) == 0 {
		_ = cn.sendError(middleware.CodeInvalidRequest, errMissingData.Error())
		return
	}
	p, err := payload.Decode(msg.Data)
	if err != nil {
		_ = cn.sendError(middleware.CodeInvalidRequest, "data must be a {html, css, js} object")
		return
	}
	rev, err := h.workspace.Replace(ctx, p, workspace.Change{Source: preview.TriggerEdit})
	if err != nil {
		_ = cn.sendError(middleware.CodeInternal, err.Error())
		return
	}
	_ = cn.send("updated", map[string]interface{}{"revision": rev})
}
