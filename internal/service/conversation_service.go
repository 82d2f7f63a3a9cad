package service

import (
	"context"

	"ragbot-go/internal/model"
	"ragbot-go/internal/repository"
)

// ConversationService 定义了对话历史查询的接口。
type ConversationService interface {
	GetHistory(ctx context.Context, conversationID string) ([]model.ChatMessage, error)
}

type conversationService struct {
	conversationRepo repository.ConversationRepository
}

// NewConversationService 创建一个新的 ConversationService 实例。
func NewConversationService(conversationRepo repository.ConversationRepository) ConversationService {
	return &conversationService{conversationRepo: conversationRepo}
}

// GetHistory 返回一个对话的近期历史记录。
func (s *conversationService) GetHistory(ctx context.Context, conversationID string) ([]model.ChatMessage, error) {
	return s.conversationRepo.GetConversationHistory(ctx, conversationID)
}
