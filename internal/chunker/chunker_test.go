package chunker

import (
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSplitEmptyInput(t *testing.T) {
	if got := Split("", 500, 50); got != nil {
		t.Fatalf("expected nil for empty input, got %v", got)
	}
}

func TestSplitShortText(t *testing.T) {
	chunks := Split("hello world", 500, 50)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0] != "hello world" {
		t.Fatalf("expected chunk to equal input, got %q", chunks[0])
	}
}

func TestSplitPrefersParagraphSeparator(t *testing.T) {
	text := "para one.\n\npara two."
	chunks := Split(text, 500, 50)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0] != text {
		t.Fatalf("expected paragraphs rejoined with blank line, got %q", chunks[0])
	}
}

func TestSplitLongTextWithOverlap(t *testing.T) {
	// 1200 个无分隔符字符，500/50 应产出三个分块：500、500、300
	text := strings.Repeat("a", 1200)
	chunks := Split(text, 500, 50)

	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	wantLens := []int{500, 500, 300}
	for i, want := range wantLens {
		if got := utf8.RuneCountInString(chunks[i]); got != want {
			t.Errorf("chunk %d: expected length %d, got %d", i, want, got)
		}
	}
	// 相邻分块共享 50 个字符
	if chunks[0][450:] != chunks[1][:50] {
		t.Error("chunks 0 and 1 do not share a 50-char overlap")
	}
	if chunks[1][450:] != chunks[2][:50] {
		t.Error("chunks 1 and 2 do not share a 50-char overlap")
	}
}

func TestSplitInvalidOverlapDisablesIt(t *testing.T) {
	// overlap >= chunkSize 时按 0 处理，分块首尾相接
	text := strings.Repeat("b", 1200)
	chunks := Split(text, 100, 100)

	if len(chunks) != 12 {
		t.Fatalf("expected 12 chunks, got %d", len(chunks))
	}
	if strings.Join(chunks, "") != text {
		t.Error("with zero overlap, concatenated chunks should equal the input")
	}
}

func TestSplitOversizedWordFallsBackToRunes(t *testing.T) {
	text := strings.Repeat("x", 600) + " tail"
	chunks := Split(text, 500, 50)

	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		if utf8.RuneCountInString(chunk) > 500 {
			t.Errorf("chunk %d exceeds chunk size: %d runes", i, utf8.RuneCountInString(chunk))
		}
	}
	if chunks[len(chunks)-1] != "tail" {
		t.Errorf("expected final chunk %q, got %q", "tail", chunks[len(chunks)-1])
	}
}

func TestSplitDeterministic(t *testing.T) {
	text := "first paragraph with several words.\n\nsecond paragraph.\nthird line " + strings.Repeat("word ", 200)
	a := Split(text, 100, 20)
	b := Split(text, 100, 20)
	if !reflect.DeepEqual(a, b) {
		t.Fatal("identical input and configuration must produce identical chunks")
	}
}

func TestSplitDefaultsOnZeroChunkSize(t *testing.T) {
	text := strings.Repeat("c", 600)
	chunks := Split(text, 0, 50)
	if len(chunks) != 2 {
		t.Fatalf("expected default chunk size %d to apply, got %d chunks", DefaultChunkSize, len(chunks))
	}
	if got := utf8.RuneCountInString(chunks[0]); got != DefaultChunkSize {
		t.Errorf("expected first chunk of %d runes, got %d", DefaultChunkSize, got)
	}
}
