// Package main 是应用程序的入口点。
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ragbot-go/internal/config"
	"ragbot-go/internal/handler"
	"ragbot-go/internal/middleware"
	"ragbot-go/internal/pipeline"
	"ragbot-go/internal/repository"
	"ragbot-go/internal/service"
	"ragbot-go/pkg/database"
	"ragbot-go/pkg/embedding"
	"ragbot-go/pkg/extractor"
	"ragbot-go/pkg/kafka"
	"ragbot-go/pkg/llm"
	"ragbot-go/pkg/log"
	"ragbot-go/pkg/storage"

	"github.com/gin-gonic/gin"
)

func main() {
	// 1. 初始化配置
	config.Init("./configs/config.yaml")
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync() // 确保在程序退出时刷新所有缓冲的日志条目
	log.Info("日志记录器初始化成功")

	// 3. 初始化数据库、Redis、对象存储与消息队列
	database.InitMySQL(cfg.Database.MySQL.DSN)
	database.InitRedis(cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)
	storage.InitMinIO(cfg.MinIO)
	kafka.InitProducer(cfg.Kafka)

	// 4. 初始化 Repository
	chatbotRepo := repository.NewChatbotRepository(database.DB)
	docRepo := repository.NewDocumentRepository(database.DB)
	conversationRepo := repository.NewConversationRepository(database.RDB)

	// 5. 初始化 Service (依赖注入)
	objectStore := storage.NewObjectStore(cfg.MinIO)
	embeddingClient := embedding.NewClient(cfg.Embedding)
	llmClient := llm.NewClient(cfg.LLM)

	// 6. 初始化文档摄取管道 (Processor)
	processor := pipeline.NewProcessor(
		extractor.New(),
		embeddingClient,
		objectStore,
		docRepo,
		cfg.RAG,
	)

	chatbotService := service.NewChatbotService(chatbotRepo, docRepo, objectStore)
	documentService := service.NewDocumentService(docRepo, chatbotRepo, objectStore, processor)
	retrievalService := service.NewRetrievalService(embeddingClient, docRepo)
	conversationService := service.NewConversationService(conversationRepo)
	chatService := service.NewChatService(retrievalService, llmClient, chatbotRepo, conversationRepo)

	// 7. 启动后台 Kafka 消费者
	go kafka.StartConsumer(cfg.Kafka, processor)

	// 8. 设置 Gin 模式并创建路由引擎
	gin.SetMode(cfg.Server.Mode)
	r := gin.New() // 使用 New() 创建一个不带默认中间件的引擎
	// 添加我们自定义的日志中间件和 Gin 的 Recovery 中间件
	r.Use(middleware.RequestLogger(), gin.Recovery())

	// 9. 注册路由
	chatbotHandler := handler.NewChatbotHandler(chatbotService)
	documentHandler := handler.NewDocumentHandler(documentService)
	chatHandler := handler.NewChatHandler(chatService)
	conversationHandler := handler.NewConversationHandler(conversationService)

	apiV1 := r.Group("/api/v1")
	{
		chatbots := apiV1.Group("/chatbots")
		{
			chatbots.POST("", chatbotHandler.Create)
			chatbots.GET("", chatbotHandler.List)
			chatbots.GET("/:id", chatbotHandler.Get)
			chatbots.PUT("/:id", chatbotHandler.Update)
			chatbots.DELETE("/:id", chatbotHandler.Delete)

			// 文档归属于机器人
			chatbots.POST("/:id/documents", documentHandler.Upload)
			chatbots.GET("/:id/documents", documentHandler.List)

			// 问答
			chatbots.POST("/:id/chat", chatHandler.Chat)
		}

		documents := apiV1.Group("/documents")
		{
			documents.GET("/:id", documentHandler.Get)
			documents.DELETE("/:id", documentHandler.Delete)
			documents.POST("/:id/reprocess", documentHandler.Reprocess)
			documents.GET("/:id/chunks", documentHandler.GetChunks)
		}

		conversations := apiV1.Group("/conversations")
		{
			conversations.GET("/:conversationId", conversationHandler.GetHistory)
		}
	}

	// Chat 路由 (WebSocket)
	r.GET("/chat/:id", chatHandler.HandleWebSocket)

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	// 等待中断信号以实现优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	// 设置一个5秒的超时上下文
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// 关闭 HTTP 服务器
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("HTTP 服务器关闭失败: %v", err)
	}

	// Kafka 消费者是一个阻塞循环，随进程退出自然结束。
	log.Info("服务已优雅关闭")
}
