// Package pipeline 定义了文档摄取的核心流程与处理状态机。
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"ragbot-go/internal/chunker"
	"ragbot-go/internal/config"
	"ragbot-go/internal/model"
	"ragbot-go/internal/repository"
	"ragbot-go/pkg/embedding"
	"ragbot-go/pkg/log"
	"ragbot-go/pkg/storage"
	"ragbot-go/pkg/tasks"
)

var (
	// ErrNoExtractableText 表示文件提取后没有任何有效文本。
	ErrNoExtractableText = errors.New("no text could be extracted from document")
	// ErrEmptyChunkingResult 表示切分没有产生任何分块。
	ErrEmptyChunkingResult = errors.New("document splitting produced no chunks")
)

// 单次 Embedding API 调用的最大分块数。
const embeddingBatchSize = 32

// TextExtractor 抽象了文本提取能力，便于在测试中替换。
type TextExtractor interface {
	Extract(data []byte, fileType string) (string, error)
}

// Processor 封装了文档摄取的所有依赖和逻辑。
// 状态机：pending → processing → completed | failed；
// completed 和 failed 通过 Reprocess 回到 pending。
type Processor struct {
	extractor       TextExtractor
	embeddingClient embedding.Client
	objectStore     storage.ObjectStore
	docRepo         repository.DocumentRepository
	ragCfg          config.RAGConfig

	// 按文档ID串行化摄取尝试，防止同一文档的重复或交错写入
	locks sync.Map

	// 切分函数，默认为 chunker.Split
	splitFn func(text string, chunkSize, overlap int) []string
}

// NewProcessor 创建一个新的 Processor 实例。
func NewProcessor(
	extractor TextExtractor,
	embeddingClient embedding.Client,
	objectStore storage.ObjectStore,
	docRepo repository.DocumentRepository,
	ragCfg config.RAGConfig,
) *Processor {
	return &Processor{
		extractor:       extractor,
		embeddingClient: embeddingClient,
		objectStore:     objectStore,
		docRepo:         docRepo,
		ragCfg:          ragCfg,
		splitFn:         chunker.Split,
	}
}

// Process 实现 kafka.TaskProcessor，由消费者驱动。
// 返回 error 时消费者会按重试策略重新投递。
func (p *Processor) Process(ctx context.Context, task tasks.DocumentProcessingTask) error {
	result := p.ProcessDocument(ctx, task.DocumentID)
	if !result.Success {
		return errors.New(result.Error)
	}
	return nil
}

// ProcessDocument 驱动一个文档走完 提取 → 分块 → 向量化 → 持久化 的完整管道。
// 任一阶段失败都会把文档置为 failed、原样记录错误信息，并保证没有分块残留。
func (p *Processor) ProcessDocument(ctx context.Context, documentID uint) *model.ProcessResultDTO {
	mu := p.lockFor(documentID)
	mu.Lock()
	defer mu.Unlock()

	doc, err := p.docRepo.FindByID(documentID)
	if err != nil {
		log.Errorf("[Processor] 查找文档失败, DocumentID: %d, Error: %v", documentID, err)
		return &model.ProcessResultDTO{Success: false, DocumentID: documentID, Error: fmt.Sprintf("document not found: %v", err)}
	}

	switch doc.Status {
	case model.StatusCompleted:
		// 重复投递：已完成的文档不再处理
		log.Infof("[Processor] 文档已处理完成，跳过, DocumentID: %d", doc.ID)
		return &model.ProcessResultDTO{Success: true, DocumentID: doc.ID, ChunksCreated: doc.ChunkCount}
	case model.StatusProcessing:
		// 同进程内有锁保护，出现该状态说明存在上次运行遗留的孤儿状态。
		// 先清理回 pending，保证摄取总是从 pending 进入管道
		log.Warnf("[Processor] 文档处于 processing 状态, 视为孤儿状态重新处理, DocumentID: %d", doc.ID)
		if err := p.docRepo.ResetForReprocess(doc.ID); err != nil {
			return p.fail(doc.ID, err)
		}
	case model.StatusFailed:
		// 消费者重试：按 reprocess 语义先清理并回到 pending
		if err := p.docRepo.ResetForReprocess(doc.ID); err != nil {
			return p.fail(doc.ID, err)
		}
	}

	log.Infof("[Processor] 开始处理文档, DocumentID: %d, FileName: %s, FileType: %s", doc.ID, doc.FileName, doc.FileType)

	// pending → processing
	if err := p.docRepo.MarkProcessing(doc.ID); err != nil {
		return p.fail(doc.ID, err)
	}

	// 步骤1: 从对象存储下载文件
	log.Infof("[Processor] 步骤1: 下载文件, Object: %s", doc.ObjectName)
	data, err := p.objectStore.Get(ctx, doc.ObjectName)
	if err != nil {
		return p.fail(doc.ID, err)
	}
	log.Infof("[Processor] 步骤1: 文件下载成功, 大小: %d字节", len(data))

	// 步骤2: 按文件类型提取文本
	log.Info("[Processor] 步骤2: 提取文本内容")
	text, err := p.extractor.Extract(data, doc.FileType)
	if err != nil {
		return p.fail(doc.ID, err)
	}
	if strings.TrimSpace(text) == "" {
		return p.fail(doc.ID, ErrNoExtractableText)
	}
	totalChars := utf8.RuneCountInString(text)
	log.Infof("[Processor] 步骤2: 文本提取成功, 内容长度: %d 字符", totalChars)

	// 步骤3: 文本切块
	log.Infof("[Processor] 步骤3: 进行文本分块, chunkSize: %d, overlap: %d", p.ragCfg.ChunkSize, p.ragCfg.ChunkOverlap)
	pieces := p.splitFn(text, p.ragCfg.ChunkSize, p.ragCfg.ChunkOverlap)
	if len(pieces) == 0 {
		return p.fail(doc.ID, ErrEmptyChunkingResult)
	}
	log.Infof("[Processor] 步骤3: 文本分块完成, 共生成 %d 个分块", len(pieces))

	// 步骤4: 分批向量化
	log.Info("[Processor] 步骤4: 开始向量化分块")
	vectors, err := p.embedChunks(ctx, pieces)
	if err != nil {
		return p.fail(doc.ID, err)
	}
	log.Infof("[Processor] 步骤4: 全部 %d 个分块向量化成功", len(vectors))

	// 步骤5: 构建分块记录并一次性持久化（全有或全无）
	records := make([]*model.DocumentChunk, 0, len(pieces))
	for i, piece := range pieces {
		records = append(records, &model.DocumentChunk{
			DocumentID: doc.ID,
			ChunkIndex: i,
			Content:    piece,
			Embedding:  vectors[i],
			Metadata: model.ChunkMetadata{
				CharCount:   utf8.RuneCountInString(piece),
				ChunkNumber: i + 1,
				TotalChunks: len(pieces),
			},
		})
	}
	if err := p.docRepo.ReplaceChunks(doc.ID, records); err != nil {
		return p.fail(doc.ID, err)
	}
	log.Infof("[Processor] 步骤5: 成功写入 %d 个分块", len(records))

	// processing → completed
	if err := p.docRepo.MarkCompleted(doc.ID, len(records), time.Now()); err != nil {
		return p.fail(doc.ID, err)
	}

	log.Infof("[Processor] 文档处理成功完成, DocumentID: %d, 分块数: %d", doc.ID, len(records))
	return &model.ProcessResultDTO{
		Success:         true,
		DocumentID:      doc.ID,
		ChunksCreated:   len(records),
		TotalCharacters: totalChars,
	}
}

// Reprocess 把 completed 或 failed 的文档重置回 pending，并同步清除既有分块。
// 与同一文档的在途摄取互斥。
func (p *Processor) Reprocess(ctx context.Context, documentID uint) error {
	mu := p.lockFor(documentID)
	mu.Lock()
	defer mu.Unlock()

	doc, err := p.docRepo.FindByID(documentID)
	if err != nil {
		return err
	}
	if doc.Status != model.StatusCompleted && doc.Status != model.StatusFailed {
		return fmt.Errorf("document %d cannot be reprocessed in status %q", documentID, doc.Status)
	}
	return p.docRepo.ResetForReprocess(documentID)
}

// embedChunks 分批调用 Embedding API，保持与输入一致的顺序。
func (p *Processor) embedChunks(ctx context.Context, pieces []string) ([]model.Vector, error) {
	vectors := make([]model.Vector, 0, len(pieces))
	for start := 0; start < len(pieces); start += embeddingBatchSize {
		end := start + embeddingBatchSize
		if end > len(pieces) {
			end = len(pieces)
		}
		batch, err := p.embeddingClient.CreateEmbeddings(ctx, pieces[start:end])
		if err != nil {
			return nil, fmt.Errorf("块 %d-%d 向量化失败: %w", start, end-1, err)
		}
		for _, v := range batch {
			vectors = append(vectors, model.Vector(v))
		}
	}
	return vectors, nil
}

// fail 把文档转入 failed 终态：清除残留分块、记录错误信息、分块计数归零。
func (p *Processor) fail(documentID uint, cause error) *model.ProcessResultDTO {
	log.Errorf("[Processor] 文档处理失败, DocumentID: %d, Error: %v", documentID, cause)
	if err := p.docRepo.DeleteChunks(documentID); err != nil {
		log.Errorf("[Processor] 清理失败文档的分块残留失败, DocumentID: %d, Error: %v", documentID, err)
	}
	if err := p.docRepo.MarkFailed(documentID, cause.Error()); err != nil {
		log.Errorf("[Processor] 标记文档为 failed 失败, DocumentID: %d, Error: %v", documentID, err)
	}
	return &model.ProcessResultDTO{Success: false, DocumentID: documentID, Error: cause.Error()}
}

func (p *Processor) lockFor(documentID uint) *sync.Mutex {
	mu, _ := p.locks.LoadOrStore(documentID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}
