// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package extract converts uploaded file formats into plain text suitable
// for chunking and embedding.
//
// Plain-text formats (txt, markdown, json, csv) pass through unchanged.
// PDF files are parsed page by page, HTML files are stripped down to their
// visible text. Unsupported formats yield ErrUnsupportedFormat.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrUnsupportedFormat indicates the file type has no registered extractor.
var ErrUnsupportedFormat = errors.New("unsupported file format")

var htmlTagPattern = regexp.MustCompile(`<[^>]*>`)

// Extractor converts file content to plain text based on file type.
type Extractor struct {
	logger *slog.Logger
}

// NewExtractor creates a text extractor.
func NewExtractor() *Extractor {
	return &Extractor{
		logger: slog.Default().With("component", "extractor"),
	}
}

// Supports reports whether the given file type has a registered extractor.
// File types are matched case-insensitively and without a leading dot.
func (e *Extractor) Supports(fileType string) bool {
	switch normalizeFileType(fileType) {
	case "txt", "text", "md", "markdown", "json", "csv", "pdf", "html", "htm":
		return true
	}
	return false
}

// Text extracts plain text from the given file content.
// Returns ErrUnsupportedFormat for file types without a registered extractor.
func (e *Extractor) Text(content []byte, fileType string) (string, error) {
	switch normalizeFileType(fileType) {
	case "txt", "text", "md", "markdown", "json", "csv":
		return string(content), nil
	case "pdf":
		return e.pdfText(content)
	case "html", "htm":
		return e.htmlText(content), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, fileType)
	}
}

// pdfText extracts text from all pages of a PDF document.
// Pages that fail to parse are skipped so one corrupt page does not lose
// the whole document.
func (e *Extractor) pdfText(content []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %w", err)
	}

	var text strings.Builder
	numPages := reader.NumPage()

	for pageNum := 1; pageNum <= numPages; pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}

		pageText, err := page.GetPlainText(nil)
		if err != nil {
			e.logger.Warn("failed to extract pdf page", "page", pageNum, "err", err)
			continue
		}

		text.WriteString(pageText)
		text.WriteString("\n\n")
	}

	return text.String(), nil
}

// htmlText strips markup from HTML content, returning the visible text.
// Script and style bodies are removed entirely, not just their tags.
func (e *Extractor) htmlText(content []byte) string {
	text := string(content)
	text = removeElement(text, "script")
	text = removeElement(text, "style")
	text = htmlTagPattern.ReplaceAllString(text, " ")
	return strings.Join(strings.Fields(text), " ")
}

// removeElement drops every <name ...>...</name> block from the text,
// including its body.
func removeElement(text, name string) string {
	pattern := regexp.MustCompile(`(?is)<` + name + `[^>]*>.*?</` + name + `>`)
	return pattern.ReplaceAllString(text, " ")
}

func normalizeFileType(fileType string) string {
	return strings.ToLower(strings.TrimPrefix(fileType, "."))
}
