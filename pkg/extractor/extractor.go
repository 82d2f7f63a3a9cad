// Package extractor 提供了按文件类型提取纯文本的能力。
package extractor

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"ragbot-go/internal/model"

	"github.com/ledongthuc/pdf"
)

var (
	// ErrUnsupportedFormat 表示文件类型不在支持的封闭集合内。
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrExtraction 表示文件不可读或已损坏，具体原因通过 %w 包装。
	ErrExtraction = errors.New("text extraction failed")
)

// Extractor 将存储的文件字节流转换为纯文本。
// 纯转换，不修改任何文档状态；空文本的判定由摄取管道负责。
type Extractor struct{}

// New 创建一个新的 Extractor 实例。
func New() *Extractor {
	return &Extractor{}
}

// Extract 根据声明的文件类型提取文本。
func (e *Extractor) Extract(data []byte, fileType string) (string, error) {
	switch fileType {
	case model.FileTypePDF:
		return e.extractPDF(data)
	case model.FileTypeDocx:
		return e.extractDocx(data)
	case model.FileTypeText, model.FileTypeMarkdown:
		// 纯文本与 Markdown 按 UTF-8 原样读取，不做任何转换
		return string(data), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, fileType)
	}
}

// extractPDF 按页序拼接每页的纯文本，页与页之间以空行分隔。
// 没有提取出文本的页不产生占位内容。
func (e *Extractor) extractPDF(data []byte) (text string, err error) {
	// pdf 库在个别损坏文件上会 panic，这里统一转换为 ErrExtraction
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("%w: pdf parsing panicked: %v", ErrExtraction, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExtraction, err)
	}

	var pages []string
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("%w: page %d: %v", ErrExtraction, i, err)
		}
		if strings.TrimSpace(pageText) == "" {
			continue
		}
		pages = append(pages, pageText)
	}
	return strings.Join(pages, "\n\n"), nil
}

// extractDocx 解析 word/document.xml，按文档顺序拼接非空段落，段落之间以空行分隔。
func (e *Extractor) extractDocx(data []byte) (string, error) {
	zipReader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExtraction, err)
	}

	var docFile *zip.File
	for _, f := range zipReader.File {
		if f.Name == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return "", fmt.Errorf("%w: word/document.xml not found", ErrExtraction)
	}

	rc, err := docFile.Open()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExtraction, err)
	}
	defer rc.Close()

	paragraphs, err := parseDocumentXML(rc)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExtraction, err)
	}
	return strings.Join(paragraphs, "\n\n"), nil
}

// parseDocumentXML 遍历 OOXML 标记流，收集 w:p 段落中 w:t 节点的文本。
func parseDocumentXML(r io.Reader) ([]string, error) {
	decoder := xml.NewDecoder(r)

	var paragraphs []string
	var current strings.Builder
	inTextRun := false

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inTextRun = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inTextRun = false
			case "p":
				text := strings.TrimSpace(current.String())
				if text != "" {
					paragraphs = append(paragraphs, text)
				}
				current.Reset()
			}
		case xml.CharData:
			if inTextRun {
				current.Write(t)
			}
		}
	}
	return paragraphs, nil
}
