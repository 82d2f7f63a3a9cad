package prompt

import (
	"strings"
	"testing"

	"ragbot-go/internal/model"
)

func TestBuildContextEmpty(t *testing.T) {
	if got := BuildContext(nil); got != NoResultContext {
		t.Fatalf("expected sentinel context %q, got %q", NoResultContext, got)
	}
	if got := BuildContext([]model.RetrievedChunk{}); got != NoResultContext {
		t.Fatalf("expected sentinel context %q, got %q", NoResultContext, got)
	}
}

func TestBuildContextFormat(t *testing.T) {
	chunks := []model.RetrievedChunk{
		{DocumentName: "a.pdf", Content: "content one"},
		{DocumentName: "b.txt", Content: "content two"},
	}
	want := "[Source 1 - a.pdf]\ncontent one\n\n---\n[Source 2 - b.txt]\ncontent two\n"
	if got := BuildContext(chunks); got != want {
		t.Fatalf("unexpected context:\nwant %q\ngot  %q", want, got)
	}
}

func TestBuildMessagesStructure(t *testing.T) {
	history := []model.ChatMessage{
		{Role: "user", Content: "q1"},
		{Role: "assistant", Content: "a1"},
	}
	messages := BuildMessages("You are a bot.", "some context", history, "q2", 0)

	if len(messages) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(messages))
	}
	if messages[0].Role != "system" {
		t.Errorf("expected first message role system, got %q", messages[0].Role)
	}
	if !strings.Contains(messages[0].Content, "You are a bot.") {
		t.Error("system message should contain the system prompt")
	}
	if !strings.Contains(messages[0].Content, "some context") {
		t.Error("system message should contain the retrieval context")
	}
	if messages[1].Role != "user" || messages[1].Content != "q1" {
		t.Errorf("history message 1 wrong: %+v", messages[1])
	}
	if messages[2].Role != "assistant" || messages[2].Content != "a1" {
		t.Errorf("history message 2 wrong: %+v", messages[2])
	}
	last := messages[len(messages)-1]
	if last.Role != "user" || last.Content != "q2" {
		t.Errorf("final message should be the new user message, got %+v", last)
	}
}

func TestBuildMessagesHistoryWindow(t *testing.T) {
	history := make([]model.ChatMessage, 0, 8)
	for _, content := range []string{"m1", "m2", "m3", "m4", "m5", "m6", "m7", "m8"} {
		history = append(history, model.ChatMessage{Role: "user", Content: content})
	}
	messages := BuildMessages("prompt", "ctx", history, "new question", 0)

	// 1 条 system + 最近 5 条历史 + 1 条新用户消息
	if len(messages) != HistoryWindow+2 {
		t.Fatalf("expected %d messages, got %d", HistoryWindow+2, len(messages))
	}
	if messages[1].Content != "m4" {
		t.Errorf("expected oldest kept history m4, got %q", messages[1].Content)
	}
	if messages[HistoryWindow].Content != "m8" {
		t.Errorf("expected newest history m8, got %q", messages[HistoryWindow].Content)
	}
}

func TestBuildMessagesConfiguredWindow(t *testing.T) {
	history := make([]model.ChatMessage, 0, 6)
	for _, content := range []string{"m1", "m2", "m3", "m4", "m5", "m6"} {
		history = append(history, model.ChatMessage{Role: "user", Content: content})
	}
	messages := BuildMessages("prompt", "ctx", history, "new question", 2)

	if len(messages) != 4 {
		t.Fatalf("expected 4 messages with window 2, got %d", len(messages))
	}
	if messages[1].Content != "m5" || messages[2].Content != "m6" {
		t.Errorf("expected last 2 history messages kept, got %q and %q", messages[1].Content, messages[2].Content)
	}
}

func TestBuildMessagesNoHistory(t *testing.T) {
	messages := BuildMessages("prompt", NoResultContext, nil, "hello", 0)
	if len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(messages))
	}
	if messages[1].Role != "user" || messages[1].Content != "hello" {
		t.Errorf("unexpected user message: %+v", messages[1])
	}
}
