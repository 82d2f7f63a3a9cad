package service

import (
	"context"
	"fmt"

	"ragbot-go/internal/model"
	"ragbot-go/internal/repository"
	"ragbot-go/pkg/log"
	"ragbot-go/pkg/storage"
)

// ChatbotUpdate 描述一次部分更新，nil 字段保持原值。
type ChatbotUpdate struct {
	Name         *string
	Description  *string
	SystemPrompt *string
	Temperature  *float64
	MaxTokens    *int
	IsActive     *bool
}

// ChatbotService 定义了机器人配置管理的接口。
type ChatbotService interface {
	Create(bot *model.Chatbot) error
	Get(id uint) (*model.Chatbot, error)
	List() ([]model.Chatbot, error)
	Update(id uint, updates ChatbotUpdate) (*model.Chatbot, error)
	// Delete 级联删除机器人及其名下的全部文档、分块和存储文件。
	Delete(ctx context.Context, id uint) error
}

type chatbotService struct {
	chatbotRepo repository.ChatbotRepository
	docRepo     repository.DocumentRepository
	objectStore storage.ObjectStore
}

// NewChatbotService 创建一个新的 ChatbotService 实例。
func NewChatbotService(
	chatbotRepo repository.ChatbotRepository,
	docRepo repository.DocumentRepository,
	objectStore storage.ObjectStore,
) ChatbotService {
	return &chatbotService{
		chatbotRepo: chatbotRepo,
		docRepo:     docRepo,
		objectStore: objectStore,
	}
}

// Create 创建机器人，空缺字段填入默认值。
func (s *chatbotService) Create(bot *model.Chatbot) error {
	if bot.Name == "" {
		return fmt.Errorf("chatbot name is required")
	}
	if bot.SystemPrompt == "" {
		bot.SystemPrompt = model.DefaultSystemPrompt
	}
	if bot.Temperature == 0 {
		bot.Temperature = 0.7
	}
	if bot.MaxTokens == 0 {
		bot.MaxTokens = 500
	}
	bot.IsActive = true
	return s.chatbotRepo.Create(bot)
}

// Get 返回一个机器人的配置。
func (s *chatbotService) Get(id uint) (*model.Chatbot, error) {
	return s.chatbotRepo.FindByID(id)
}

// List 返回全部机器人。
func (s *chatbotService) List() ([]model.Chatbot, error) {
	return s.chatbotRepo.FindAll()
}

// Update 更新机器人配置，未提供的字段保持原值。
func (s *chatbotService) Update(id uint, updates ChatbotUpdate) (*model.Chatbot, error) {
	bot, err := s.chatbotRepo.FindByID(id)
	if err != nil {
		return nil, err
	}
	if updates.Name != nil {
		bot.Name = *updates.Name
	}
	if updates.Description != nil {
		bot.Description = *updates.Description
	}
	if updates.SystemPrompt != nil {
		bot.SystemPrompt = *updates.SystemPrompt
	}
	if updates.Temperature != nil {
		bot.Temperature = *updates.Temperature
	}
	if updates.MaxTokens != nil {
		bot.MaxTokens = *updates.MaxTokens
	}
	if updates.IsActive != nil {
		bot.IsActive = *updates.IsActive
	}
	if err := s.chatbotRepo.Update(bot); err != nil {
		return nil, err
	}
	return bot, nil
}

// Delete 级联删除机器人名下的全部资源，最后删除机器人记录。
func (s *chatbotService) Delete(ctx context.Context, id uint) error {
	if _, err := s.chatbotRepo.FindByID(id); err != nil {
		return err
	}

	docs, err := s.docRepo.FindByChatbotID(id)
	if err != nil {
		return err
	}
	for _, doc := range docs {
		if err := s.docRepo.Delete(doc.ID); err != nil {
			return err
		}
		if err := s.objectStore.Remove(ctx, doc.ObjectName); err != nil {
			log.Errorf("[ChatbotService] 删除对象存储文件失败, Object: %s, Error: %v", doc.ObjectName, err)
		}
	}

	if err := s.chatbotRepo.Delete(id); err != nil {
		return err
	}
	log.Infof("[ChatbotService] 机器人删除成功, ChatbotID: %d, 级联删除文档数: %d", id, len(docs))
	return nil
}
