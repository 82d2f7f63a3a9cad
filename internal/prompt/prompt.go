// Package prompt 负责把检索结果组装为上下文，并构建发给 LLM 的消息序列。
package prompt

import (
	"fmt"
	"strings"

	"ragbot-go/internal/model"
	"ragbot-go/pkg/llm"
)

// NoResultContext 是检索无命中时的固定上下文占位文本。
// 保持非空可以让下游 prompt 结构始终确定。
const NoResultContext = "No relevant information found in uploaded documents."

// HistoryWindow 是保留历史消息条数的默认上限，更早的历史静默丢弃。
const HistoryWindow = 5

// 分块之间的固定分隔符。
const blockSeparator = "\n---\n"

// BuildContext 将排序后的检索结果渲染为带来源标注的上下文文本。
// 输入顺序即相似度降序，渲染顺序必须与之一致。
func BuildContext(chunks []model.RetrievedChunk) string {
	if len(chunks) == 0 {
		return NoResultContext
	}

	parts := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		parts = append(parts, fmt.Sprintf("[Source %d - %s]\n%s\n", i+1, chunk.DocumentName, chunk.Content))
	}
	return strings.Join(parts, blockSeparator)
}

// BuildMessages 构建一次生成所需的完整消息序列：
// 一条 system 消息（机器人指令 + 上下文），最多 window 条历史消息
// （按原始时间顺序、保留原始角色），最后一条是新的用户消息。
// window <= 0 时使用 HistoryWindow 默认值。
func BuildMessages(systemPrompt, contextText string, history []model.ChatMessage, userMessage string, window int) []llm.Message {
	systemContent := fmt.Sprintf("%s\n\nYou have access to the following information from uploaded documents:\n%s\n", systemPrompt, contextText)

	if window <= 0 {
		window = HistoryWindow
	}
	if len(history) > window {
		history = history[len(history)-window:]
	}

	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: "system", Content: systemContent})
	for _, msg := range history {
		messages = append(messages, llm.Message{Role: msg.Role, Content: msg.Content})
	}
	messages = append(messages, llm.Message{Role: "user", Content: userMessage})
	return messages
}
