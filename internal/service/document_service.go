package service

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"ragbot-go/internal/model"
	"ragbot-go/internal/pipeline"
	"ragbot-go/internal/repository"
	"ragbot-go/pkg/kafka"
	"ragbot-go/pkg/log"
	"ragbot-go/pkg/storage"
	"ragbot-go/pkg/tasks"
)

// DocumentService 定义了文档管理的接口。
type DocumentService interface {
	// Upload 接收上传文件，存入对象存储并投递摄取任务。文档初始状态为 pending。
	Upload(ctx context.Context, chatbotID uint, fileHeader *multipart.FileHeader) (*model.Document, error)
	List(chatbotID uint) ([]model.Document, error)
	Get(documentID uint) (*model.Document, error)
	// Delete 删除文档记录、全部分块以及对象存储中的文件。
	Delete(ctx context.Context, documentID uint) error
	// Reprocess 把 completed 或 failed 的文档重置回 pending 并重新投递摄取任务。
	Reprocess(ctx context.Context, documentID uint) error
	GetChunks(documentID uint) ([]model.DocumentChunk, error)
}

type documentService struct {
	docRepo     repository.DocumentRepository
	chatbotRepo repository.ChatbotRepository
	objectStore storage.ObjectStore
	processor   *pipeline.Processor
}

// NewDocumentService 创建一个新的 DocumentService 实例。
func NewDocumentService(
	docRepo repository.DocumentRepository,
	chatbotRepo repository.ChatbotRepository,
	objectStore storage.ObjectStore,
	processor *pipeline.Processor,
) DocumentService {
	return &documentService{
		docRepo:     docRepo,
		chatbotRepo: chatbotRepo,
		objectStore: objectStore,
		processor:   processor,
	}
}

// Upload 处理文档上传：校验 → 存储文件 → 创建记录 → 投递摄取任务。
func (s *documentService) Upload(ctx context.Context, chatbotID uint, fileHeader *multipart.FileHeader) (*model.Document, error) {
	if _, err := s.chatbotRepo.FindByID(chatbotID); err != nil {
		return nil, fmt.Errorf("chatbot %d not found: %w", chatbotID, err)
	}

	// 文件类型在入口处校验，不支持的格式直接拒绝
	fileType := strings.TrimPrefix(strings.ToLower(filepath.Ext(fileHeader.Filename)), ".")
	if !model.IsValidFileType(fileType) {
		return nil, fmt.Errorf("unsupported file type: %q (supported: pdf, txt, docx, md)", fileType)
	}

	file, err := fileHeader.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read uploaded file: %w", err)
	}

	// 步骤1: 上传原始文件到对象存储
	objectName := fmt.Sprintf("documents/chatbot_%d/%d_%s", chatbotID, time.Now().UnixNano(), fileHeader.Filename)
	log.Infof("[DocumentService] 步骤1: 上传文件到对象存储, Object: %s", objectName)
	if err := s.objectStore.Put(ctx, objectName, data, fileHeader.Header.Get("Content-Type")); err != nil {
		return nil, err
	}

	// 步骤2: 创建文档记录, 初始状态 pending
	doc := &model.Document{
		ChatbotID:  chatbotID,
		FileName:   fileHeader.Filename,
		FileType:   fileType,
		FileSize:   fileHeader.Size,
		ObjectName: objectName,
		Status:     model.StatusPending,
	}
	log.Infof("[DocumentService] 步骤2: 创建文档记录, FileName: %s", doc.FileName)
	if err := s.docRepo.Create(doc); err != nil {
		// 记录创建失败时清理已上传的文件
		if rmErr := s.objectStore.Remove(ctx, objectName); rmErr != nil {
			log.Errorf("[DocumentService] 清理对象存储文件失败, Object: %s, Error: %v", objectName, rmErr)
		}
		return nil, err
	}

	// 步骤3: 投递异步摄取任务
	log.Infof("[DocumentService] 步骤3: 投递摄取任务, DocumentID: %d", doc.ID)
	if err := kafka.ProduceDocumentTask(tasks.DocumentProcessingTask{DocumentID: doc.ID}); err != nil {
		// 投递失败不回滚记录, 文档停留在 pending, 可通过 reprocess 补投
		log.Errorf("[DocumentService] 投递摄取任务失败, DocumentID: %d, Error: %v", doc.ID, err)
	}

	return doc, nil
}

// List 返回一个机器人名下的全部文档。
func (s *documentService) List(chatbotID uint) ([]model.Document, error) {
	return s.docRepo.FindByChatbotID(chatbotID)
}

// Get 返回一个文档的详情。
func (s *documentService) Get(documentID uint) (*model.Document, error) {
	return s.docRepo.FindByID(documentID)
}

// Delete 级联删除文档：数据库记录与分块在同一事务中删除，
// 对象存储中的文件随后删除，文件删除失败只记录日志。
func (s *documentService) Delete(ctx context.Context, documentID uint) error {
	doc, err := s.docRepo.FindByID(documentID)
	if err != nil {
		return err
	}
	if err := s.docRepo.Delete(documentID); err != nil {
		return err
	}
	if err := s.objectStore.Remove(ctx, doc.ObjectName); err != nil {
		log.Errorf("[DocumentService] 删除对象存储文件失败, Object: %s, Error: %v", doc.ObjectName, err)
	}
	log.Infof("[DocumentService] 文档删除成功, DocumentID: %d", documentID)
	return nil
}

// Reprocess 重置文档状态并重新投递摄取任务。
func (s *documentService) Reprocess(ctx context.Context, documentID uint) error {
	if err := s.processor.Reprocess(ctx, documentID); err != nil {
		return err
	}
	if err := kafka.ProduceDocumentTask(tasks.DocumentProcessingTask{DocumentID: documentID}); err != nil {
		return fmt.Errorf("failed to enqueue reprocessing task: %w", err)
	}
	log.Infof("[DocumentService] 文档已重置并重新投递, DocumentID: %d", documentID)
	return nil
}

// GetChunks 返回一个文档的全部分块，按序号升序。
func (s *documentService) GetChunks(documentID uint) ([]model.DocumentChunk, error) {
	if _, err := s.docRepo.FindByID(documentID); err != nil {
		return nil, err
	}
	return s.docRepo.FindChunksByDocumentID(documentID)
}
