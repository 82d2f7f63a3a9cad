package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"ragbot-go/internal/config"
	"ragbot-go/internal/model"
	"ragbot-go/internal/prompt"
	"ragbot-go/internal/repository"
	"ragbot-go/pkg/llm"
	"ragbot-go/pkg/log"

	"github.com/gorilla/websocket"
)

// fallbackResponse 是检索或生成失败时返回给用户的降级提示语。
const fallbackResponse = "I'm sorry, I encountered an error processing your request."

// 引用分块预览的最大字符数。
const previewLength = 200

// ChatService 定义了问答交互的接口。
type ChatService interface {
	// GenerateResponse 执行一次完整的 RAG 问答：检索 → 组装上下文 → 生成。
	// conversationID 为空时开启新对话。检索或生成失败时返回降级结果而非错误。
	GenerateResponse(ctx context.Context, chatbotID uint, conversationID, userMessage string) (*model.ChatResultDTO, error)
	// StreamResponse 与 GenerateResponse 流程相同，但通过 WebSocket 流式下发回答。
	StreamResponse(ctx context.Context, chatbotID uint, conversationID, userMessage string, ws *websocket.Conn) error
}

type chatService struct {
	retrievalService RetrievalService
	llmClient        llm.Client
	chatbotRepo      repository.ChatbotRepository
	conversationRepo repository.ConversationRepository
}

// NewChatService 创建一个新的 ChatService 实例。
func NewChatService(
	retrievalService RetrievalService,
	llmClient llm.Client,
	chatbotRepo repository.ChatbotRepository,
	conversationRepo repository.ConversationRepository,
) ChatService {
	return &chatService{
		retrievalService: retrievalService,
		llmClient:        llmClient,
		chatbotRepo:      chatbotRepo,
		conversationRepo: conversationRepo,
	}
}

// GenerateResponse 协调 RAG 流程并返回结构化结果。
func (s *chatService) GenerateResponse(ctx context.Context, chatbotID uint, conversationID, userMessage string) (*model.ChatResultDTO, error) {
	bot, err := s.chatbotRepo.FindByID(chatbotID)
	if err != nil {
		return nil, fmt.Errorf("chatbot %d not found: %w", chatbotID, err)
	}
	if !bot.IsActive {
		return nil, errors.New("chatbot is not active")
	}

	if conversationID == "" {
		conversationID = s.conversationRepo.NewConversationID()
	}

	// 1. 检索相关分块；失败则降级为固定提示语，不影响其它请求
	chunks, err := s.retrievalService.Retrieve(ctx, chatbotID, userMessage, config.Conf.RAG.TopK)
	if err != nil {
		log.Errorf("[ChatService] 检索失败, chatbotID: %d, Error: %v", chatbotID, err)
		return s.degraded(conversationID, err), nil
	}

	// 2. 组装上下文与消息序列
	contextText := prompt.BuildContext(chunks)
	history := s.loadHistory(ctx, conversationID)
	messages := prompt.BuildMessages(bot.SystemPrompt, contextText, history, userMessage, config.Conf.RAG.HistoryWindow)

	// 3. 调用 LLM 生成回答（使用机器人配置的生成参数）
	result, err := s.llmClient.Chat(ctx, messages, generationParams(bot))
	if err != nil {
		log.Errorf("[ChatService] 生成回答失败, chatbotID: %d, Error: %v", chatbotID, err)
		return s.degraded(conversationID, err), nil
	}

	// 4. 把本轮问答写回对话历史
	s.appendToConversation(ctx, conversationID, userMessage, result.Content)

	return &model.ChatResultDTO{
		Success:        true,
		Response:       result.Content,
		TokensUsed:     result.TokensUsed,
		ChunksUsed:     chunkUsages(chunks),
		ConversationID: conversationID,
	}, nil
}

// StreamResponse 协调 RAG 流程并通过 WebSocket 流式传输 LLM 响应。
func (s *chatService) StreamResponse(ctx context.Context, chatbotID uint, conversationID, userMessage string, ws *websocket.Conn) error {
	bot, err := s.chatbotRepo.FindByID(chatbotID)
	if err != nil {
		return fmt.Errorf("chatbot %d not found: %w", chatbotID, err)
	}
	if !bot.IsActive {
		return errors.New("chatbot is not active")
	}

	if conversationID == "" {
		conversationID = s.conversationRepo.NewConversationID()
	}

	chunks, err := s.retrievalService.Retrieve(ctx, chatbotID, userMessage, config.Conf.RAG.TopK)
	if err != nil {
		return fmt.Errorf("failed to retrieve context: %w", err)
	}

	contextText := prompt.BuildContext(chunks)
	history := s.loadHistory(ctx, conversationID)
	messages := prompt.BuildMessages(bot.SystemPrompt, contextText, history, userMessage, config.Conf.RAG.HistoryWindow)

	// 拦截 websocket writer 以捕获完整答案，并包装为 JSON 分块
	answerBuilder := &strings.Builder{}
	interceptor := &wsWriterInterceptor{conn: ws, writer: answerBuilder}

	if err := s.llmClient.StreamChat(ctx, messages, generationParams(bot), interceptor); err != nil {
		return err
	}

	sendCompletion(ws, conversationID)
	fullAnswer := answerBuilder.String()
	if len(fullAnswer) > 0 {
		// 使用后台上下文：即使原始请求被取消，也要保存已成功生成的答案
		s.appendToConversation(context.Background(), conversationID, userMessage, fullAnswer)
	}
	return nil
}

// degraded 构造一次降级响应，错误只记录在结果中，不向上传播。
func (s *chatService) degraded(conversationID string, cause error) *model.ChatResultDTO {
	return &model.ChatResultDTO{
		Success:        false,
		Response:       fallbackResponse,
		ConversationID: conversationID,
		Error:          cause.Error(),
	}
}

// loadHistory 读取对话历史，失败时仅记录日志并以空历史继续。
func (s *chatService) loadHistory(ctx context.Context, conversationID string) []model.ChatMessage {
	history, err := s.conversationRepo.GetConversationHistory(ctx, conversationID)
	if err != nil {
		log.Errorf("Failed to load conversation history: %v", err)
		return []model.ChatMessage{}
	}
	return history
}

// appendToConversation 把一轮问答追加到对话历史，失败只记录日志。
func (s *chatService) appendToConversation(ctx context.Context, conversationID, question, answer string) {
	history, err := s.conversationRepo.GetConversationHistory(ctx, conversationID)
	if err != nil {
		log.Errorf("Failed to get conversation history: %v", err)
		return
	}

	now := time.Now()
	history = append(history,
		model.ChatMessage{Role: "user", Content: question, Timestamp: now},
		model.ChatMessage{Role: "assistant", Content: answer, Timestamp: now},
	)

	if err := s.conversationRepo.UpdateConversationHistory(ctx, conversationID, history); err != nil {
		log.Errorf("Failed to save conversation history: %v", err)
	}
}

// generationParams 从机器人配置构建生成参数。
func generationParams(bot *model.Chatbot) *llm.GenerationParams {
	var gp llm.GenerationParams
	if bot.Temperature != 0 {
		t := bot.Temperature
		gp.Temperature = &t
	}
	if bot.MaxTokens != 0 {
		m := bot.MaxTokens
		gp.MaxTokens = &m
	}
	if gp.Temperature == nil && gp.MaxTokens == nil {
		return nil
	}
	return &gp
}

// chunkUsages 把检索结果转换为带内容预览的引用列表。
func chunkUsages(chunks []model.RetrievedChunk) []model.ChunkUsageDTO {
	usages := make([]model.ChunkUsageDTO, 0, len(chunks))
	for _, chunk := range chunks {
		preview := chunk.Content
		if runes := []rune(preview); len(runes) > previewLength {
			preview = string(runes[:previewLength]) + "..."
		}
		usages = append(usages, model.ChunkUsageDTO{
			Document:       chunk.DocumentName,
			Similarity:     chunk.Similarity,
			ContentPreview: preview,
		})
	}
	return usages
}

// wsWriterInterceptor 是对 websocket.Conn 的封装，用于捕获写入的消息。
type wsWriterInterceptor struct {
	conn   *websocket.Conn
	writer *strings.Builder
}

// WriteMessage 满足 llm.MessageWriter 接口。
func (w *wsWriterInterceptor) WriteMessage(messageType int, data []byte) error {
	w.writer.Write(data)
	// 将原始分块包装成 {"chunk":"..."}
	payload := map[string]string{"chunk": string(data)}
	b, _ := json.Marshal(payload)
	return w.conn.WriteMessage(messageType, b)
}

// sendCompletion 发送完成通知 JSON
func sendCompletion(ws *websocket.Conn, conversationID string) {
	notif := map[string]interface{}{
		"type":           "completion",
		"status":         "finished",
		"conversationId": conversationID,
		"timestamp":      time.Now().UnixMilli(),
	}
	b, _ := json.Marshal(notif)
	_ = ws.WriteMessage(websocket.TextMessage, b)
}
