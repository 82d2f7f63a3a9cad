// Package model 包含了应用的数据模型定义。
package model

import "time"

// ChatMessage 代表存储在 Redis 中的单条对话消息。
type ChatMessage struct {
	Role      string    `json:"role"` // "user" 或 "assistant"
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// RetrievedChunk 是一次检索命中的分块，按相似度降序排列。
// 它是临时值，随查询产生，不做持久化。
type RetrievedChunk struct {
	DocumentID   uint          `json:"documentId"`
	DocumentName string        `json:"documentName"`
	ChunkIndex   int           `json:"chunkIndex"`
	Content      string        `json:"content"`
	Similarity   float64       `json:"similarity"`
	Metadata     ChunkMetadata `json:"metadata"`
}

// ChunkUsageDTO 描述了生成回答时引用的分块，返回给前端。
type ChunkUsageDTO struct {
	Document       string  `json:"document"`
	Similarity     float64 `json:"similarity"`
	ContentPreview string  `json:"contentPreview"`
}

// ChatResultDTO 是一次问答交互的结构化结果。
// Success 为 false 时 Response 为降级提示语，Error 记录失败原因。
type ChatResultDTO struct {
	Success        bool            `json:"success"`
	Response       string          `json:"response"`
	TokensUsed     int             `json:"tokensUsed,omitempty"`
	ChunksUsed     []ChunkUsageDTO `json:"chunksUsed,omitempty"`
	ConversationID string          `json:"conversationId,omitempty"`
	Error          string          `json:"error,omitempty"`
}

// ProcessResultDTO 是一次文档摄取的结构化结果。
type ProcessResultDTO struct {
	Success         bool   `json:"success"`
	DocumentID      uint   `json:"documentId"`
	ChunksCreated   int    `json:"chunksCreated,omitempty"`
	TotalCharacters int    `json:"totalCharacters,omitempty"`
	Error           string `json:"error,omitempty"`
}
