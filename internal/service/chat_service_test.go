package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"ragbot-go/internal/config"
	"ragbot-go/internal/model"
	"ragbot-go/pkg/llm"
)

type fakeRetrieval struct {
	chunks []model.RetrievedChunk
	err    error
}

func (f *fakeRetrieval) Retrieve(ctx context.Context, chatbotID uint, query string, topK int) ([]model.RetrievedChunk, error) {
	return f.chunks, f.err
}

type fakeLLM struct {
	result   *llm.ChatResult
	err      error
	called   bool
	messages []llm.Message
}

func (f *fakeLLM) Chat(ctx context.Context, messages []llm.Message, gen *llm.GenerationParams) (*llm.ChatResult, error) {
	f.called = true
	f.messages = messages
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeLLM) StreamChat(ctx context.Context, messages []llm.Message, gen *llm.GenerationParams, writer llm.MessageWriter) error {
	f.called = true
	return f.err
}

type stubChatbotRepo struct {
	bot *model.Chatbot
	err error
}

func (s *stubChatbotRepo) Create(bot *model.Chatbot) error { return nil }
func (s *stubChatbotRepo) FindByID(id uint) (*model.Chatbot, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.bot, nil
}
func (s *stubChatbotRepo) FindAll() ([]model.Chatbot, error) { return nil, nil }
func (s *stubChatbotRepo) Update(bot *model.Chatbot) error   { return nil }
func (s *stubChatbotRepo) Delete(id uint) error              { return nil }

type stubConversationRepo struct {
	history map[string][]model.ChatMessage
	saved   map[string][]model.ChatMessage
}

func newStubConversationRepo() *stubConversationRepo {
	return &stubConversationRepo{
		history: make(map[string][]model.ChatMessage),
		saved:   make(map[string][]model.ChatMessage),
	}
}

func (s *stubConversationRepo) NewConversationID() string { return "conv-new" }

func (s *stubConversationRepo) GetConversationHistory(ctx context.Context, conversationID string) ([]model.ChatMessage, error) {
	return s.history[conversationID], nil
}

func (s *stubConversationRepo) UpdateConversationHistory(ctx context.Context, conversationID string, messages []model.ChatMessage) error {
	s.saved[conversationID] = messages
	return nil
}

func activeBot() *model.Chatbot {
	return &model.Chatbot{
		ID:           1,
		Name:         "bot",
		SystemPrompt: model.DefaultSystemPrompt,
		Temperature:  0.7,
		MaxTokens:    500,
		IsActive:     true,
	}
}

func setTestRAGConfig(t *testing.T) {
	t.Helper()
	prev := config.Conf.RAG
	config.Conf.RAG = config.RAGConfig{ChunkSize: 500, ChunkOverlap: 50, TopK: 5, HistoryWindow: 5}
	t.Cleanup(func() { config.Conf.RAG = prev })
}

func TestGenerateResponseSuccess(t *testing.T) {
	setTestRAGConfig(t)
	convRepo := newStubConversationRepo()
	llmClient := &fakeLLM{result: &llm.ChatResult{Content: "the answer", TokensUsed: 42}}
	svc := NewChatService(
		&fakeRetrieval{chunks: []model.RetrievedChunk{
			{DocumentName: "a.pdf", Content: "relevant text", Similarity: 0.9},
		}},
		llmClient,
		&stubChatbotRepo{bot: activeBot()},
		convRepo,
	)

	result, err := svc.GenerateResponse(context.Background(), 1, "", "what is it?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got error %q", result.Error)
	}
	if result.Response != "the answer" {
		t.Errorf("expected llm content, got %q", result.Response)
	}
	if result.TokensUsed != 42 {
		t.Errorf("expected 42 tokens, got %d", result.TokensUsed)
	}
	if result.ConversationID != "conv-new" {
		t.Errorf("expected a new conversation id, got %q", result.ConversationID)
	}
	if len(result.ChunksUsed) != 1 || result.ChunksUsed[0].Document != "a.pdf" {
		t.Errorf("expected chunk usage for a.pdf, got %+v", result.ChunksUsed)
	}

	saved := convRepo.saved["conv-new"]
	if len(saved) != 2 {
		t.Fatalf("expected 2 history messages saved, got %d", len(saved))
	}
	if saved[0].Role != "user" || saved[0].Content != "what is it?" {
		t.Errorf("unexpected first saved message: %+v", saved[0])
	}
	if saved[1].Role != "assistant" || saved[1].Content != "the answer" {
		t.Errorf("unexpected second saved message: %+v", saved[1])
	}
}

func TestGenerateResponseKeepsConversationID(t *testing.T) {
	setTestRAGConfig(t)
	svc := NewChatService(
		&fakeRetrieval{},
		&fakeLLM{result: &llm.ChatResult{Content: "ok"}},
		&stubChatbotRepo{bot: activeBot()},
		newStubConversationRepo(),
	)

	result, err := svc.GenerateResponse(context.Background(), 1, "conv-existing", "question")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ConversationID != "conv-existing" {
		t.Errorf("expected existing conversation id preserved, got %q", result.ConversationID)
	}
}

func TestGenerateResponseRetrievalFailureDegrades(t *testing.T) {
	setTestRAGConfig(t)
	convRepo := newStubConversationRepo()
	llmClient := &fakeLLM{result: &llm.ChatResult{Content: "unused"}}
	svc := NewChatService(
		&fakeRetrieval{err: errors.New("vector service down")},
		llmClient,
		&stubChatbotRepo{bot: activeBot()},
		convRepo,
	)

	result, err := svc.GenerateResponse(context.Background(), 1, "conv-1", "question")
	if err != nil {
		t.Fatalf("degradation must not surface an error, got %v", err)
	}
	if result.Success {
		t.Fatal("expected degraded result with Success=false")
	}
	if result.Response != fallbackResponse {
		t.Errorf("expected fallback response %q, got %q", fallbackResponse, result.Response)
	}
	if !strings.Contains(result.Error, "vector service down") {
		t.Errorf("expected cause recorded in result, got %q", result.Error)
	}
	if llmClient.called {
		t.Error("llm must not be called when retrieval fails")
	}
	if len(convRepo.saved) != 0 {
		t.Error("history must not be saved on a degraded response")
	}
}

func TestGenerateResponseGenerationFailureDegrades(t *testing.T) {
	setTestRAGConfig(t)
	convRepo := newStubConversationRepo()
	svc := NewChatService(
		&fakeRetrieval{},
		&fakeLLM{err: errors.New("model overloaded")},
		&stubChatbotRepo{bot: activeBot()},
		convRepo,
	)

	result, err := svc.GenerateResponse(context.Background(), 1, "conv-1", "question")
	if err != nil {
		t.Fatalf("degradation must not surface an error, got %v", err)
	}
	if result.Success {
		t.Fatal("expected degraded result with Success=false")
	}
	if result.Response != fallbackResponse {
		t.Errorf("expected fallback response %q, got %q", fallbackResponse, result.Response)
	}
	if !strings.Contains(result.Error, "model overloaded") {
		t.Errorf("expected cause recorded in result, got %q", result.Error)
	}
	if len(convRepo.saved) != 0 {
		t.Error("history must not be saved on a degraded response")
	}
}

func TestGenerateResponseInactiveChatbot(t *testing.T) {
	setTestRAGConfig(t)
	bot := activeBot()
	bot.IsActive = false
	svc := NewChatService(
		&fakeRetrieval{},
		&fakeLLM{result: &llm.ChatResult{Content: "ok"}},
		&stubChatbotRepo{bot: bot},
		newStubConversationRepo(),
	)

	if _, err := svc.GenerateResponse(context.Background(), 1, "", "question"); err == nil {
		t.Fatal("expected error for inactive chatbot")
	}
}

func TestGenerateResponseChunkPreviewTruncation(t *testing.T) {
	setTestRAGConfig(t)
	long := strings.Repeat("x", 300)
	svc := NewChatService(
		&fakeRetrieval{chunks: []model.RetrievedChunk{
			{DocumentName: "big.txt", Content: long, Similarity: 0.5},
		}},
		&fakeLLM{result: &llm.ChatResult{Content: "ok"}},
		&stubChatbotRepo{bot: activeBot()},
		newStubConversationRepo(),
	)

	result, err := svc.GenerateResponse(context.Background(), 1, "", "question")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	preview := result.ChunksUsed[0].ContentPreview
	if len([]rune(preview)) != previewLength+3 {
		t.Errorf("expected preview of %d runes plus ellipsis, got %d", previewLength, len([]rune(preview)))
	}
	if !strings.HasSuffix(preview, "...") {
		t.Errorf("expected preview to end with ellipsis, got %q", preview[len(preview)-10:])
	}
}

func TestGenerateResponseUsesHistoryWindow(t *testing.T) {
	setTestRAGConfig(t)
	config.Conf.RAG.HistoryWindow = 2

	convRepo := newStubConversationRepo()
	convRepo.history["conv-1"] = []model.ChatMessage{
		{Role: "user", Content: "m1"},
		{Role: "assistant", Content: "m2"},
		{Role: "user", Content: "m3"},
		{Role: "assistant", Content: "m4"},
	}
	llmClient := &fakeLLM{result: &llm.ChatResult{Content: "ok"}}
	svc := NewChatService(
		&fakeRetrieval{},
		llmClient,
		&stubChatbotRepo{bot: activeBot()},
		convRepo,
	)

	if _, err := svc.GenerateResponse(context.Background(), 1, "conv-1", "question"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 1 条 system + 窗口内 2 条历史 + 1 条新用户消息
	if len(llmClient.messages) != 4 {
		t.Fatalf("expected 4 messages sent to llm, got %d", len(llmClient.messages))
	}
	if llmClient.messages[1].Content != "m3" || llmClient.messages[2].Content != "m4" {
		t.Errorf("expected last 2 history messages, got %q and %q", llmClient.messages[1].Content, llmClient.messages[2].Content)
	}
}
