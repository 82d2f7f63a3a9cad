// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"ragbot-go/internal/model"
	"ragbot-go/internal/repository"
	"ragbot-go/pkg/embedding"
	"ragbot-go/pkg/log"
)

// ErrRetrieval 表示一次检索失败（通常是查询向量化失败）。
var ErrRetrieval = errors.New("retrieval failed")

// RetrievalService 定义了语义检索操作的接口。
type RetrievalService interface {
	// Retrieve 在一个机器人的文档作用域内检索与查询最相似的 topK 个分块。
	// 作用域内没有可检索分块时返回空切片而非错误。
	Retrieve(ctx context.Context, chatbotID uint, query string, topK int) ([]model.RetrievedChunk, error)
}

type retrievalService struct {
	embeddingClient embedding.Client
	docRepo         repository.DocumentRepository
}

// NewRetrievalService 创建一个新的 RetrievalService 实例。
func NewRetrievalService(embeddingClient embedding.Client, docRepo repository.DocumentRepository) RetrievalService {
	return &retrievalService{
		embeddingClient: embeddingClient,
		docRepo:         docRepo,
	}
}

// Retrieve 执行一次全量精确检索。
//
// 对作用域内的全部可检索分块逐一计算余弦相似度（每次查询 O(n)），
// 这是面向中小规模单租户语料的刻意取舍，不做近似索引优化。
func (s *retrievalService) Retrieve(ctx context.Context, chatbotID uint, query string, topK int) ([]model.RetrievedChunk, error) {
	log.Infof("[RetrievalService] 开始检索, chatbotID: %d, topK: %d", chatbotID, topK)

	// 1. 向量化查询
	queryVector, err := s.embeddingClient.CreateEmbedding(ctx, query)
	if err != nil {
		log.Errorf("[RetrievalService] 向量化查询失败: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrRetrieval, err)
	}

	// 2. 获取作用域内全部可检索分块（已按创建顺序升序）
	chunks, err := s.docRepo.FindEligibleChunks(chatbotID)
	if err != nil {
		log.Errorf("[RetrievalService] 查询可检索分块失败: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrRetrieval, err)
	}
	if len(chunks) == 0 {
		log.Infof("[RetrievalService] 作用域内没有可检索分块, chatbotID: %d", chatbotID)
		return []model.RetrievedChunk{}, nil
	}

	// 3. 逐块计算余弦相似度。
	// 存量向量与查询向量维度不一致属于致命配置错误，直接报错而非静默截断。
	results := make([]model.RetrievedChunk, 0, len(chunks))
	for _, chunk := range chunks {
		if len(chunk.Embedding) != len(queryVector) {
			return nil, fmt.Errorf("embedding dimension mismatch: query %d, chunk %d (document %d)", len(queryVector), len(chunk.Embedding), chunk.DocumentID)
		}
		results = append(results, model.RetrievedChunk{
			DocumentID:   chunk.DocumentID,
			DocumentName: chunk.FileName,
			ChunkIndex:   chunk.ChunkIndex,
			Content:      chunk.Content,
			Similarity:   cosineSimilarity(queryVector, chunk.Embedding),
			Metadata:     chunk.Metadata,
		})
	}

	// 4. 按相似度降序稳定排序：相似度相同时保持创建顺序，保证结果可复现
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})

	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	log.Infof("[RetrievalService] 检索完成, 返回 %d 条结果", len(results))
	return results, nil
}

// cosineSimilarity 计算两个向量的余弦相似度，取值范围 [-1, 1]。
// 任一向量模长为零时返回 0.0，避免除零，绝不报错。
func cosineSimilarity(a, b []float32) float64 {
	var dot, magA, magB float64
	for i := 0; i < len(a) && i < len(b); i++ {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 0.0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}
