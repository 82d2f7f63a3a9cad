package model

import "time"

// DefaultSystemPrompt 是未显式配置时机器人的系统提示词。
const DefaultSystemPrompt = "You are a helpful AI assistant. Answer questions based on the provided context."

// Chatbot 对应于数据库中的 chatbots 表。
// 一个 Chatbot 拥有一组文档，构成一次检索的作用域（知识库）。
type Chatbot struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name         string    `gorm:"type:varchar(200);not null" json:"name"`
	Description  string    `gorm:"type:text" json:"description"`
	SystemPrompt string    `gorm:"type:text;not null" json:"systemPrompt"`
	Temperature  float64   `gorm:"not null;default:0.7" json:"temperature"`
	MaxTokens    int       `gorm:"not null;default:500" json:"maxTokens"`
	IsActive     bool      `gorm:"not null;default:true" json:"isActive"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (Chatbot) TableName() string {
	return "chatbots"
}
