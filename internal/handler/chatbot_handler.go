// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"net/http"
	"strconv"

	"ragbot-go/internal/model"
	"ragbot-go/internal/service"
	"ragbot-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// ChatbotHandler 负责处理机器人配置管理的 API 请求。
type ChatbotHandler struct {
	chatbotService service.ChatbotService
}

// NewChatbotHandler 创建一个新的 ChatbotHandler 实例。
func NewChatbotHandler(chatbotService service.ChatbotService) *ChatbotHandler {
	return &ChatbotHandler{chatbotService: chatbotService}
}

type createChatbotRequest struct {
	Name         string  `json:"name" binding:"required"`
	Description  string  `json:"description"`
	SystemPrompt string  `json:"system_prompt"`
	Temperature  float64 `json:"temperature"`
	MaxTokens    int     `json:"max_tokens"`
}

type updateChatbotRequest struct {
	Name         *string  `json:"name"`
	Description  *string  `json:"description"`
	SystemPrompt *string  `json:"system_prompt"`
	Temperature  *float64 `json:"temperature"`
	MaxTokens    *int     `json:"max_tokens"`
	IsActive     *bool    `json:"is_active"`
}

// Create 处理创建机器人的请求。
func (h *ChatbotHandler) Create(c *gin.Context) {
	var req createChatbotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求参数: " + err.Error()})
		return
	}

	bot := &model.Chatbot{
		Name:         req.Name,
		Description:  req.Description,
		SystemPrompt: req.SystemPrompt,
		Temperature:  req.Temperature,
		MaxTokens:    req.MaxTokens,
	}
	if err := h.chatbotService.Create(bot); err != nil {
		log.Error("Create chatbot: failed", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "创建机器人失败"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"code":    http.StatusCreated,
		"message": "机器人创建成功",
		"data":    bot,
	})
}

// Get 处理获取单个机器人的请求。
func (h *ChatbotHandler) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	bot, err := h.chatbotService.Get(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "机器人不存在"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "获取机器人成功",
		"data":    bot,
	})
}

// List 处理获取机器人列表的请求。
func (h *ChatbotHandler) List(c *gin.Context) {
	bots, err := h.chatbotService.List()
	if err != nil {
		log.Error("List chatbots: failed", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "获取机器人列表失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "获取机器人列表成功",
		"data":    bots,
	})
}

// Update 处理更新机器人配置的请求。
func (h *ChatbotHandler) Update(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req updateChatbotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求参数: " + err.Error()})
		return
	}

	bot, err := h.chatbotService.Update(id, service.ChatbotUpdate{
		Name:         req.Name,
		Description:  req.Description,
		SystemPrompt: req.SystemPrompt,
		Temperature:  req.Temperature,
		MaxTokens:    req.MaxTokens,
		IsActive:     req.IsActive,
	})
	if err != nil {
		log.Warnf("Update chatbot: failed for id %d, err: %v", id, err)
		c.JSON(http.StatusNotFound, gin.H{"error": "更新机器人失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "机器人更新成功",
		"data":    bot,
	})
}

// Delete 处理删除机器人的请求，会级联删除其名下全部文档资源。
func (h *ChatbotHandler) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.chatbotService.Delete(c.Request.Context(), id); err != nil {
		log.Warnf("Delete chatbot: failed for id %d, err: %v", id, err)
		c.JSON(http.StatusNotFound, gin.H{"error": "删除机器人失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "机器人删除成功",
	})
}

// parseIDParam 从路径参数解析一个无符号整数 ID。
func parseIDParam(c *gin.Context, name string) (uint, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的 " + name + " 参数"})
		return 0, false
	}
	return uint(id), true
}
