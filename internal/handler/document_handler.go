package handler

import (
	"net/http"

	"ragbot-go/internal/service"
	"ragbot-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// DocumentHandler 负责处理所有与文档管理相关的 API 请求。
type DocumentHandler struct {
	docService service.DocumentService
}

// NewDocumentHandler 创建一个新的 DocumentHandler 实例。
func NewDocumentHandler(docService service.DocumentService) *DocumentHandler {
	return &DocumentHandler{docService: docService}
}

// Upload 处理文档上传请求。文件以 multipart 表单字段 "file" 提交。
func (h *DocumentHandler) Upload(c *gin.Context) {
	chatbotID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "缺少上传文件"})
		return
	}

	doc, err := h.docService.Upload(c.Request.Context(), chatbotID, fileHeader)
	if err != nil {
		log.Warnf("Upload: failed for chatbot %d, file %s, err: %v", chatbotID, fileHeader.Filename, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"code":    http.StatusAccepted,
		"message": "文档上传成功，已进入处理队列",
		"data":    doc,
	})
}

// List 处理获取机器人文档列表的请求。
func (h *DocumentHandler) List(c *gin.Context) {
	chatbotID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	docs, err := h.docService.List(chatbotID)
	if err != nil {
		log.Error("List documents: failed", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "获取文档列表失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "获取文档列表成功",
		"data":    docs,
	})
}

// Get 处理获取文档详情的请求，包含处理状态与错误信息。
func (h *DocumentHandler) Get(c *gin.Context) {
	documentID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	doc, err := h.docService.Get(documentID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "文档不存在"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "获取文档成功",
		"data":    doc,
	})
}

// Delete 处理删除文档的请求。
func (h *DocumentHandler) Delete(c *gin.Context) {
	documentID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.docService.Delete(c.Request.Context(), documentID); err != nil {
		log.Warnf("Delete document: failed for id %d, err: %v", documentID, err)
		c.JSON(http.StatusNotFound, gin.H{"error": "删除文档失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "文档删除成功",
	})
}

// Reprocess 处理文档重新摄取的请求。
func (h *DocumentHandler) Reprocess(c *gin.Context) {
	documentID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.docService.Reprocess(c.Request.Context(), documentID); err != nil {
		log.Warnf("Reprocess document: failed for id %d, err: %v", documentID, err)
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"code":    http.StatusAccepted,
		"message": "文档已重置，重新进入处理队列",
	})
}

// GetChunks 处理获取文档分块列表的请求。
func (h *DocumentHandler) GetChunks(c *gin.Context) {
	documentID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	chunks, err := h.docService.GetChunks(documentID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "文档不存在"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "获取文档分块成功",
		"data":    chunks,
	})
}
