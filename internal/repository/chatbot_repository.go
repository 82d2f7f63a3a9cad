package repository

import (
	"fmt"

	"ragbot-go/internal/model"

	"gorm.io/gorm"
)

// ChatbotRepository 定义了机器人配置的数据操作接口。
type ChatbotRepository interface {
	Create(bot *model.Chatbot) error
	FindByID(id uint) (*model.Chatbot, error)
	FindAll() ([]model.Chatbot, error)
	Update(bot *model.Chatbot) error
	Delete(id uint) error
}

type chatbotRepository struct {
	db *gorm.DB
}

// NewChatbotRepository 创建一个新的 ChatbotRepository 实例。
func NewChatbotRepository(db *gorm.DB) ChatbotRepository {
	return &chatbotRepository{db: db}
}

// Create 创建一条机器人记录。
func (r *chatbotRepository) Create(bot *model.Chatbot) error {
	if err := r.db.Create(bot).Error; err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}

// FindByID 根据主键查找机器人。
func (r *chatbotRepository) FindByID(id uint) (*model.Chatbot, error) {
	var bot model.Chatbot
	if err := r.db.First(&bot, id).Error; err != nil {
		return nil, err
	}
	return &bot, nil
}

// FindAll 返回全部机器人，按创建时间倒序。
func (r *chatbotRepository) FindAll() ([]model.Chatbot, error) {
	var bots []model.Chatbot
	err := r.db.Order("created_at DESC").Find(&bots).Error
	return bots, err
}

// Update 保存机器人配置的变更。
func (r *chatbotRepository) Update(bot *model.Chatbot) error {
	if err := r.db.Save(bot).Error; err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}

// Delete 删除一条机器人记录。
func (r *chatbotRepository) Delete(id uint) error {
	if err := r.db.Delete(&model.Chatbot{}, id).Error; err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}
