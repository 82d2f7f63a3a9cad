// Package chunker 将长文本切分为带重叠的有序分块。
//
// 采用递归字符切分：按分隔符优先级（段落、换行、空格、单字符）
// 递归切分，在不超过 chunkSize 的前提下尽量保留较长的片段，
// 相邻分块共享 overlap 个字符的上下文。
// 纯函数，相同输入与配置下输出完全确定。
package chunker

import (
	"strings"
	"unicode/utf8"
)

// 默认切分配置。
const (
	DefaultChunkSize = 500
	DefaultOverlap   = 50
)

// 分隔符按从粗到细的优先级排列，空串表示按单个字符切分。
var defaultSeparators = []string{"\n\n", "\n", " ", ""}

type splitter struct {
	chunkSize int
	overlap   int
}

// Split 将文本切分为有序分块序列。空输入返回 nil。
func Split(text string, chunkSize, overlap int) []string {
	if text == "" {
		return nil
	}
	s := splitter{chunkSize: chunkSize, overlap: overlap}
	if s.chunkSize <= 0 {
		s.chunkSize = DefaultChunkSize
	}
	if s.overlap < 0 || s.overlap >= s.chunkSize {
		s.overlap = 0
	}
	return s.split(text, defaultSeparators)
}

// split 选择第一个在文本中出现的分隔符进行切分；
// 仍超过 chunkSize 的片段递归使用更细的分隔符。
func (s splitter) split(text string, separators []string) []string {
	separator := separators[len(separators)-1]
	var remaining []string
	for i, sep := range separators {
		if sep == "" || strings.Contains(text, sep) {
			separator = sep
			remaining = separators[i+1:]
			break
		}
	}

	splits := splitOn(text, separator)

	var chunks []string
	var good []string
	for _, piece := range splits {
		if utf8.RuneCountInString(piece) < s.chunkSize {
			good = append(good, piece)
			continue
		}
		if len(good) > 0 {
			chunks = append(chunks, s.merge(good, separator)...)
			good = nil
		}
		if len(remaining) == 0 {
			chunks = append(chunks, piece)
		} else {
			chunks = append(chunks, s.split(piece, remaining)...)
		}
	}
	if len(good) > 0 {
		chunks = append(chunks, s.merge(good, separator)...)
	}
	return chunks
}

// merge 将细粒度片段贪心合并为不超过 chunkSize 的分块，
// 发出一个分块后从头部弹出片段，直到剩余长度落入 overlap 窗口。
func (s splitter) merge(splits []string, separator string) []string {
	sepLen := utf8.RuneCountInString(separator)

	var docs []string
	var current []string
	total := 0
	for _, piece := range splits {
		pieceLen := utf8.RuneCountInString(piece)
		if total+pieceLen+sepLenIf(sepLen, len(current) > 0) > s.chunkSize {
			if len(current) > 0 {
				if doc := joinPieces(current, separator); doc != "" {
					docs = append(docs, doc)
				}
				for total > s.overlap || (total+pieceLen+sepLenIf(sepLen, len(current) > 0) > s.chunkSize && total > 0) {
					total -= utf8.RuneCountInString(current[0]) + sepLenIf(sepLen, len(current) > 1)
					current = current[1:]
				}
			}
		}
		current = append(current, piece)
		total += pieceLen + sepLenIf(sepLen, len(current) > 1)
	}
	if doc := joinPieces(current, separator); doc != "" {
		docs = append(docs, doc)
	}
	return docs
}

func splitOn(text, separator string) []string {
	if separator == "" {
		pieces := make([]string, 0, utf8.RuneCountInString(text))
		for _, r := range text {
			pieces = append(pieces, string(r))
		}
		return pieces
	}
	var pieces []string
	for _, p := range strings.Split(text, separator) {
		if p != "" {
			pieces = append(pieces, p)
		}
	}
	return pieces
}

func joinPieces(pieces []string, separator string) string {
	return strings.TrimSpace(strings.Join(pieces, separator))
}

func sepLenIf(sepLen int, cond bool) int {
	if cond {
		return sepLen
	}
	return 0
}
