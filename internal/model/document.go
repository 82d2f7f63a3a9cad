// Package model 定义了与数据库表对应的 Go 结构体。
package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// 文档处理状态机的四个状态。
// pending → processing → completed | failed；
// completed 和 failed 可以通过 reprocess 回到 pending。
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// 支持的文件类型（封闭集合）。
const (
	FileTypePDF      = "pdf"
	FileTypeText     = "txt"
	FileTypeDocx     = "docx"
	FileTypeMarkdown = "md"
)

// Document 对应于数据库中的 documents 表。
// 它记录了每个上传文档的元数据和处理状态。
type Document struct {
	ID           uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	ChatbotID    uint       `gorm:"not null;index" json:"chatbotId"`
	FileName     string     `gorm:"type:varchar(255);not null" json:"fileName"`
	FileType     string     `gorm:"type:varchar(10);not null" json:"fileType"`
	FileSize     int64      `gorm:"not null" json:"fileSize"`
	ObjectName   string     `gorm:"type:varchar(512);not null" json:"-"` // MinIO 对象键
	Status       string     `gorm:"type:varchar(20);not null;default:pending;index" json:"status"`
	ChunkCount   int        `gorm:"not null;default:0" json:"chunkCount"`
	ErrorMessage string     `gorm:"type:text" json:"errorMessage,omitempty"`
	UploadedAt   time.Time  `gorm:"autoCreateTime" json:"uploadedAt"`
	ProcessedAt  *time.Time `gorm:"default:null" json:"processedAt,omitempty"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (Document) TableName() string {
	return "documents"
}

// IsValidFileType 判断文件类型是否在支持的封闭集合内。
func IsValidFileType(fileType string) bool {
	switch fileType {
	case FileTypePDF, FileTypeText, FileTypeDocx, FileTypeMarkdown:
		return true
	}
	return false
}

// Vector 是分块的向量表示，在 MySQL 中以 JSON 文本存储。
// nil 表示向量尚未计算（该分块不可被检索）。
type Vector []float32

// Value 实现 driver.Valuer 接口。
func (v Vector) Value() (driver.Value, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

// Scan 实现 sql.Scanner 接口。
func (v *Vector) Scan(value interface{}) error {
	if value == nil {
		*v = nil
		return nil
	}
	switch data := value.(type) {
	case []byte:
		return json.Unmarshal(data, v)
	case string:
		return json.Unmarshal([]byte(data), v)
	}
	return errors.New("unsupported data type for Vector")
}

// ChunkMetadata 是分块的附加元数据，一经写入不再变更。
// 其结构在 reprocess 前后保持稳定，以保证可复现性。
type ChunkMetadata struct {
	CharCount   int `json:"char_count"`
	ChunkNumber int `json:"chunk_number"` // 从 1 开始的序号
	TotalChunks int `json:"total_chunks"`
}

// Value 实现 driver.Valuer 接口。
func (m ChunkMetadata) Value() (driver.Value, error) {
	return json.Marshal(m)
}

// Scan 实现 sql.Scanner 接口。
func (m *ChunkMetadata) Scan(value interface{}) error {
	if value == nil {
		*m = ChunkMetadata{}
		return nil
	}
	switch data := value.(type) {
	case []byte:
		return json.Unmarshal(data, m)
	case string:
		return json.Unmarshal([]byte(data), m)
	}
	return fmt.Errorf("unsupported data type for ChunkMetadata: %T", value)
}

// DocumentChunk 对应于数据库中的 document_chunks 表。
// ChunkIndex 在同一文档内从 0 开始连续递增，定义了检索与重建顺序；
// 主键 ID 同时作为创建顺序，用于相似度打分的平局裁决。
type DocumentChunk struct {
	ID         uint          `gorm:"primaryKey;autoIncrement" json:"id"`
	DocumentID uint          `gorm:"not null;index:idx_document_chunk,priority:1" json:"documentId"`
	ChunkIndex int           `gorm:"not null;index:idx_document_chunk,priority:2" json:"chunkIndex"`
	Content    string        `gorm:"type:text;not null" json:"content"`
	Embedding  Vector        `gorm:"type:json" json:"-"`
	Metadata   ChunkMetadata `gorm:"type:json" json:"metadata"`
	CreatedAt  time.Time     `gorm:"autoCreateTime" json:"createdAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (DocumentChunk) TableName() string {
	return "document_chunks"
}
