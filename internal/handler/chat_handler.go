package handler

import (
	"encoding/json"
	"net/http"

	"ragbot-go/internal/service"
	"ragbot-go/pkg/log"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // 允许所有来源
	},
}

// ChatHandler 负责处理问答请求，包括 REST 与 WebSocket 两种形式。
type ChatHandler struct {
	chatService service.ChatService
}

// NewChatHandler 创建一个新的 ChatHandler。
func NewChatHandler(chatService service.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

type chatRequest struct {
	Message        string `json:"message" binding:"required"`
	ConversationID string `json:"conversation_id"`
}

// Chat 处理一次同步问答请求。
// 检索或生成失败时仍返回 200，结果体中的 success 标记为 false。
func (h *ChatHandler) Chat(c *gin.Context) {
	chatbotID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求参数: " + err.Error()})
		return
	}

	result, err := h.chatService.GenerateResponse(c.Request.Context(), chatbotID, req.ConversationID, req.Message)
	if err != nil {
		log.Warnf("Chat: failed for chatbot %d, err: %v", chatbotID, err)
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "success",
		"data":    result,
	})
}

// wsChatMessage 是 WebSocket 上行消息的格式。
type wsChatMessage struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id"`
}

// HandleWebSocket 处理一个传入的 WebSocket 连接。
// 每条上行消息触发一次流式问答，回答分块以 JSON 下发。
func (h *ChatHandler) HandleWebSocket(c *gin.Context) {
	chatbotID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("WebSocket 升级失败", err)
		return
	}
	defer conn.Close()

	log.Infof("WebSocket 连接已建立, chatbotID: %d", chatbotID)

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			log.Warnf("从 WebSocket 读取消息失败: %v", err)
			break
		}

		var req wsChatMessage
		if err := json.Unmarshal(message, &req); err != nil || req.Message == "" {
			// 非 JSON 消息按纯文本问题处理
			req = wsChatMessage{Message: string(message)}
		}

		err = h.chatService.StreamResponse(c.Request.Context(), chatbotID, req.ConversationID, req.Message, conn)
		if err != nil {
			log.Errorf("处理流式响应失败: %v", err)
			errResp := map[string]string{"error": "AI服务暂时不可用，请稍后重试"}
			b, _ := json.Marshal(errResp)
			_ = conn.WriteMessage(websocket.TextMessage, b)
			break
		}
	}
}
