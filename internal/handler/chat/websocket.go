package chat

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	model "github.com/zhouzirui/study-buddy/internal/model/chat"
	"github.com/zhouzirui/study-buddy/pkg/utils"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	writeWait  = 10 * time.Second
)

type inboundMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// handleWebSocket 推送会话事件，并接受草稿与提交指令
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sub, err := h.chatSvc.Subscribe(64)
	if err != nil {
		utils.RespondError(w, http.StatusServiceUnavailable, "session closed")
		return
	}
	defer sub.Close()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	// The snapshot goes out before the writer starts, so it is always the first frame.
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(outgoingMessage{Type: "snapshot", Data: sub.Snapshot, Timestamp: time.Now().UnixMilli()}); err != nil {
		h.logger.Warn().Err(err).Msg("websocket snapshot write failed")
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	outbox := make(chan outgoingMessage, 8)
	writerDone := make(chan struct{})
	go h.writeLoop(ctx, conn, sub.Events(), outbox, writerDone)

	h.logger.Info().Str("remote", r.RemoteAddr).Msg("websocket connected")

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn().Err(err).Msg("websocket read error")
			}
			break
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))
		h.handleInbound(ctx, msg, outbox)
	}

	cancel()
	<-writerDone
	h.logger.Info().Str("remote", r.RemoteAddr).Msg("websocket disconnected")
}

func (h *Handler) handleInbound(ctx context.Context, msg inboundMessage, outbox chan<- outgoingMessage) {
	switch msg.Type {
	case "draft":
		h.chatSvc.SetDraft(msg.Text)
	case "submit":
		ex, err := h.chatSvc.Begin(msg.Text)
		if err != nil {
			h.sendError(ctx, outbox, err.Error())
			return
		}
		// The exchange outlives this connection: it has no cancellation path.
		go h.chatSvc.Resolve(context.WithoutCancel(ctx), ex)
	default:
		h.sendError(ctx, outbox, "unsupported message type: "+msg.Type)
	}
}

func (h *Handler) sendError(ctx context.Context, outbox chan<- outgoingMessage, message string) {
	select {
	case outbox <- outgoingMessage{Type: "error", Data: map[string]string{"error": message}, Timestamp: time.Now().UnixMilli()}:
	case <-ctx.Done():
	}
}

// writeLoop is the only goroutine writing to conn.
func (h *Handler) writeLoop(ctx context.Context, conn *websocket.Conn, events <-chan model.Event, outbox <-chan outgoingMessage, done chan<- struct{}) {
	defer close(done)
	// Unblocks the reader when a write fails.
	defer conn.Close()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	write := func(msg outgoingMessage) bool {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(msg); err != nil {
			h.logger.Warn().Err(err).Str("type", msg.Type).Msg("websocket write failed")
			return false
		}
		return true
	}

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-outbox:
			if !write(msg) {
				return
			}
		case ev, ok := <-events:
			if !ok {
				return
			}
			if !write(outgoingMessage{Type: string(ev.Type), Data: ev, Timestamp: time.Now().UnixMilli()}) {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleEvents 以SSE形式推送会话事件
func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	sub, err := h.chatSvc.Subscribe(64)
	if err != nil {
		utils.RespondError(w, http.StatusServiceUnavailable, "session closed")
		return
	}
	defer sub.Close()
	events := sub.Events()

	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)

	if err := utils.SendSSEEvent(w, flusher, "snapshot", sub.Snapshot); err != nil {
		return
	}

	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := utils.SendSSEEvent(w, flusher, string(ev.Type), ev); err != nil {
				h.logger.Debug().Err(err).Msg("sse client gone")
				return
			}
		case <-ticker.C:
			if err := utils.SendSSEComment(w, flusher, "heartbeat"); err != nil {
				return
			}
		}
	}
}
