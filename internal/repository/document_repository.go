// Package repository 提供了数据访问层的实现。
package repository

import (
	"errors"
	"fmt"
	"time"

	"ragbot-go/internal/model"

	"gorm.io/gorm"
)

// ErrPersistence 表示数据库写入失败，具体原因通过 %w 包装。
var ErrPersistence = errors.New("persistence error")

// EligibleChunk 是一条可参与检索的分块：向量已计算、所属文档已处理完成。
// FileName 来自 documents 表的联查，用于上下文来源标注。
type EligibleChunk struct {
	ID         uint
	DocumentID uint
	ChunkIndex int
	Content    string
	Embedding  model.Vector
	Metadata   model.ChunkMetadata
	FileName   string
}

// DocumentRepository 定义了文档与分块的数据操作接口。
// 分块的批量写入是全有或全无的：一次摄取尝试要么写入全部分块，要么一条不留。
type DocumentRepository interface {
	Create(doc *model.Document) error
	FindByID(id uint) (*model.Document, error)
	FindByChatbotID(chatbotID uint) ([]model.Document, error)
	Delete(id uint) error

	MarkProcessing(id uint) error
	MarkCompleted(id uint, chunkCount int, processedAt time.Time) error
	MarkFailed(id uint, errMessage string) error
	ResetForReprocess(id uint) error

	ReplaceChunks(documentID uint, chunks []*model.DocumentChunk) error
	DeleteChunks(documentID uint) error
	FindChunksByDocumentID(documentID uint) ([]model.DocumentChunk, error)
	FindEligibleChunks(chatbotID uint) ([]EligibleChunk, error)
}

type documentRepository struct {
	db *gorm.DB
}

// NewDocumentRepository 创建一个新的 DocumentRepository 实例。
func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &documentRepository{db: db}
}

// Create 创建一条文档记录，初始状态为 pending。
func (r *documentRepository) Create(doc *model.Document) error {
	if err := r.db.Create(doc).Error; err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}

// FindByID 根据主键查找文档。
func (r *documentRepository) FindByID(id uint) (*model.Document, error) {
	var doc model.Document
	if err := r.db.First(&doc, id).Error; err != nil {
		return nil, err
	}
	return &doc, nil
}

// FindByChatbotID 查找一个机器人名下的全部文档，按上传时间倒序。
func (r *documentRepository) FindByChatbotID(chatbotID uint) ([]model.Document, error) {
	var docs []model.Document
	err := r.db.Where("chatbot_id = ?", chatbotID).Order("uploaded_at DESC").Find(&docs).Error
	return docs, err
}

// Delete 在同一事务中删除文档记录及其全部分块。
func (r *documentRepository) Delete(id uint) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("document_id = ?", id).Delete(&model.DocumentChunk{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Document{}, id).Error
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}

// MarkProcessing 将文档置为 processing，同时清空历史错误与分块计数。
func (r *documentRepository) MarkProcessing(id uint) error {
	err := r.db.Model(&model.Document{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":        model.StatusProcessing,
		"error_message": "",
		"chunk_count":   0,
	}).Error
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}

// MarkCompleted 将文档置为 completed，记录分块数与处理完成时间。
func (r *documentRepository) MarkCompleted(id uint, chunkCount int, processedAt time.Time) error {
	err := r.db.Model(&model.Document{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":       model.StatusCompleted,
		"chunk_count":  chunkCount,
		"processed_at": processedAt,
	}).Error
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}

// MarkFailed 将文档置为 failed 并原样记录失败原因，分块计数归零。
func (r *documentRepository) MarkFailed(id uint, errMessage string) error {
	err := r.db.Model(&model.Document{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":        model.StatusFailed,
		"error_message": errMessage,
		"chunk_count":   0,
	}).Error
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}

// ResetForReprocess 在同一事务中清除文档的全部分块，并把状态重置为 pending。
func (r *documentRepository) ResetForReprocess(id uint) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("document_id = ?", id).Delete(&model.DocumentChunk{}).Error; err != nil {
			return err
		}
		return tx.Model(&model.Document{}).Where("id = ?", id).Updates(map[string]interface{}{
			"status":        model.StatusPending,
			"error_message": "",
			"chunk_count":   0,
			"processed_at":  nil,
		}).Error
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}

// ReplaceChunks 在同一事务中先清除该文档既有分块，再批量写入新分块。
// 任一步失败则整体回滚，保证文档不会处于半索引状态。
func (r *documentRepository) ReplaceChunks(documentID uint, chunks []*model.DocumentChunk) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("document_id = ?", documentID).Delete(&model.DocumentChunk{}).Error; err != nil {
			return err
		}
		if len(chunks) == 0 {
			return nil
		}
		return tx.CreateInBatches(chunks, 100).Error // 每100条记录一批
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}

// DeleteChunks 删除一个文档的全部分块。
func (r *documentRepository) DeleteChunks(documentID uint) error {
	if err := r.db.Where("document_id = ?", documentID).Delete(&model.DocumentChunk{}).Error; err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}

// FindChunksByDocumentID 按分块序号升序返回一个文档的全部分块。
func (r *documentRepository) FindChunksByDocumentID(documentID uint) ([]model.DocumentChunk, error) {
	var chunks []model.DocumentChunk
	err := r.db.Where("document_id = ?", documentID).Order("chunk_index ASC").Find(&chunks).Error
	return chunks, err
}

// FindEligibleChunks 返回一个机器人作用域内全部可检索的分块：
// 所属文档状态为 completed 且向量非空，按分块主键升序（即创建顺序）。
func (r *documentRepository) FindEligibleChunks(chatbotID uint) ([]EligibleChunk, error) {
	var chunks []EligibleChunk
	err := r.db.Table("document_chunks").
		Select("document_chunks.id, document_chunks.document_id, document_chunks.chunk_index, document_chunks.content, document_chunks.embedding, document_chunks.metadata, documents.file_name").
		Joins("JOIN documents ON documents.id = document_chunks.document_id").
		Where("documents.chatbot_id = ? AND documents.status = ? AND document_chunks.embedding IS NOT NULL", chatbotID, model.StatusCompleted).
		Order("document_chunks.id ASC").
		Scan(&chunks).Error
	return chunks, err
}
