package chat

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	chatService "github.com/zhouzirui/study-buddy/internal/service/chat"
	"github.com/zhouzirui/study-buddy/pkg/utils"
)

// Handler 会话窗口的HTTP处理器
type Handler struct {
	chatSvc  *chatService.Service
	logger   zerolog.Logger
	upgrader websocket.Upgrader
}

// New 创建会话处理器
func New(chatSvc *chatService.Service, logger zerolog.Logger) *Handler {
	return &Handler{
		chatSvc: chatSvc,
		logger:  logger.With().Str("component", "chat-handler").Logger(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes 注册会话相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/session", func(r chi.Router) {
		r.Get("/", h.handleSnapshot)
		r.Put("/draft", h.handleSetDraft)
		r.Post("/messages", h.handleSubmit)
		r.Get("/ws", h.handleWebSocket)
		r.Get("/events", h.handleEvents)
	})
}

// handleSnapshot 返回当前会话状态
func (h *Handler) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.chatSvc.Snapshot())
}

// handleSetDraft 更新草稿
func (h *Handler) handleSetDraft(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Text string `json:"text"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	h.chatSvc.SetDraft(payload.Text)
	utils.RespondJSON(w, http.StatusOK, h.chatSvc.Snapshot())
}

// handleSubmit 提交一条消息并等待本轮交换结束
func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Message string `json:"message"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// An in-flight exchange cannot be aborted, even if the caller goes away.
	ctx := context.WithoutCancel(r.Context())
	if err := h.chatSvc.Submit(ctx, payload.Message); err != nil {
		utils.RespondError(w, submitStatus(err), err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusOK, h.chatSvc.Snapshot())
}

func submitStatus(err error) int {
	switch {
	case errors.Is(err, chatService.ErrEmptyDraft):
		return http.StatusBadRequest
	case errors.Is(err, chatService.ErrBusy):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
