package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/docuchat/docuchat-backend/internal/http/response"
	"github.com/docuchat/docuchat-backend/internal/pkg/ctxutil"
	"github.com/docuchat/docuchat-backend/internal/services"
)

type ChatHandler struct {
	chat services.ChatService
}

func NewChatHandler(chat services.ChatService) *ChatHandler {
	return &ChatHandler{chat: chat}
}

type askQuestionReq struct {
	Question string `json:"question"`
}

// POST /api/documents/:id/messages
func (h *ChatHandler) AskQuestion(c *gin.Context) {
	docID := strings.TrimSpace(c.Param("id"))
	if docID == "" {
		response.RespondError(c, http.StatusBadRequest, "invalid_document_id", nil)
		return
	}
	var req askQuestionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	rd := ctxutil.GetRequestData(c.Request.Context())
	answer, err := h.chat.AskQuestion(c.Request.Context(), rd.UserID, docID, req.Question)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"success": true, "message": answer})
}

// POST /api/documents/:id/embeddings
func (h *ChatHandler) GenerateEmbeddings(c *gin.Context) {
	docID := strings.TrimSpace(c.Param("id"))
	if docID == "" {
		response.RespondError(c, http.StatusBadRequest, "invalid_document_id", nil)
		return
	}

	rd := ctxutil.GetRequestData(c.Request.Context())
	if err := h.chat.GenerateEmbeddings(c.Request.Context(), rd.UserID, docID); err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"completed": true})
}

// GET /api/documents/:id/messages
func (h *ChatHandler) ListMessages(c *gin.Context) {
	docID := strings.TrimSpace(c.Param("id"))
	if docID == "" {
		response.RespondError(c, http.StatusBadRequest, "invalid_document_id", nil)
		return
	}

	rd := ctxutil.GetRequestData(c.Request.Context())
	turns, err := h.chat.ListTurns(c.Request.Context(), rd.UserID, docID)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"messages": turns})
}
