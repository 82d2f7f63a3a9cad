package handler

import (
	"net/http"

	"ragbot-go/internal/service"

	"github.com/gin-gonic/gin"
)

// ConversationHandler 负责处理对话历史查询的 API 请求。
type ConversationHandler struct {
	conversationService service.ConversationService
}

// NewConversationHandler 创建一个新的 ConversationHandler 实例。
func NewConversationHandler(conversationService service.ConversationService) *ConversationHandler {
	return &ConversationHandler{conversationService: conversationService}
}

// GetHistory 处理获取对话历史的请求。
func (h *ConversationHandler) GetHistory(c *gin.Context) {
	conversationID := c.Param("conversationId")
	if conversationID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "缺少对话 ID"})
		return
	}

	messages, err := h.conversationService.GetHistory(c.Request.Context(), conversationID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "获取对话历史失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "获取对话历史成功",
		"data":    messages,
	})
}
