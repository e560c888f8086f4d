package fakeapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/memoria-app/memoria/internal/model/conversation"
	"github.com/memoria-app/memoria/pkg/utils"
)

// conversationHandler 会话与消息的HTTP处理器
type conversationHandler struct {
	store   *Store
	replier Replier
	logger  *zap.Logger
}

func (h *conversationHandler) RegisterRoutes(r chi.Router) {
	r.Get("/conversations/", h.handleList)
	r.Post("/conversations/", h.handleCreate)
	r.Post("/conversations/{conversationID}/send_message/", h.handleSendMessage)
}

// handleList 列出会话（含消息）
func (h *conversationHandler) handleList(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.store.ListConversations(ownerFrom(r.Context())))
}

// handleCreate 为 avatar 创建会话，每个 avatar 只允许一个
func (h *conversationHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req conversation.CreateRequest
	if err := utils.DecodeJSON(w, r, maxJSONBody, &req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.AvatarID <= 0 {
		utils.RespondFieldErrors(w, map[string][]string{"avatar": {"This field is required."}})
		return
	}

	created, err := h.store.CreateConversation(ownerFrom(r.Context()), req.AvatarID)
	switch {
	case errors.Is(err, ErrAvatarNotFound):
		utils.RespondFieldErrors(w, map[string][]string{"avatar": {"Invalid pk - object does not exist."}})
		return
	case errors.Is(err, ErrAvatarNotReady):
		utils.RespondError(w, http.StatusBadRequest, "Avatar is not ready yet")
		return
	case errors.Is(err, ErrConversationExists):
		utils.RespondError(w, http.StatusBadRequest, "Conversation with this avatar already exists")
		return
	case err != nil:
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusCreated, created)
}

// handleSendMessage 保存用户消息并生成 avatar 回复，成对返回
func (h *conversationHandler) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "conversationID")
	if !ok {
		return
	}

	var req conversation.SendMessageRequest
	if err := utils.DecodeJSON(w, r, maxJSONBody, &req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		utils.RespondError(w, http.StatusBadRequest, "Message text is required")
		return
	}

	owner := ownerFrom(r.Context())
	thread, av, err := h.store.Thread(owner, id)
	if err != nil {
		utils.RespondDetail(w, http.StatusNotFound, "Not found.")
		return
	}

	reply, err := h.replier.Reply(r.Context(), av, thread.Messages, req.Text)
	if err != nil {
		h.logger.Error("reply generation failed", zap.Int64("conversation_id", id), zap.Error(err))
		utils.RespondError(w, http.StatusBadGateway, "Failed to generate a reply")
		return
	}

	exchange, err := h.store.AppendExchange(owner, id, req.Text, reply)
	if err != nil {
		utils.RespondDetail(w, http.StatusNotFound, "Not found.")
		return
	}

	utils.RespondJSON(w, http.StatusCreated, exchange)
}
