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


package ingestion

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/quillstone/docbase/core"
)

const (
	// MaxFileSize is the per-file upload limit.
	MaxFileSize = 55 * 1024 * 1024 // 55MB

	// MaxBatchFiles is the maximum number of files per upload batch.
	MaxBatchFiles = 10
)

// allowedFileTypes maps normalized type tokens to their MIME types.
// Uploads with any other type are rejected before storage is touched.
var allowedFileTypes = map[string]string{
	"txt":  "text/plain",
	"md":   "text/markdown",
	"pdf":  "application/pdf",
	"html": "text/html",
	"json": "application/json",
	"csv":  "text/csv",
}

// Upload is one file submitted for ingestion.
type Upload struct {
	Filename string
	Content  []byte
	Metadata core.Metadata
}

// NormalizeFileType maps a filename extension to its canonical type token
// ("txt", "md", "pdf", "html", "json", "csv"). Returns "" for types outside
// the allow-list.
func NormalizeFileType(filename string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	switch ext {
	case "text":
		ext = "txt"
	case "markdown":
		ext = "md"
	case "htm":
		ext = "html"
	}
	if _, ok := allowedFileTypes[ext]; !ok {
		return ""
	}
	return ext
}

// MIMEType returns the MIME type for a normalized type token, or
// "application/octet-stream" for unknown tokens.
func MIMEType(fileType string) string {
	if mime, ok := allowedFileTypes[fileType]; ok {
		return mime
	}
	return "application/octet-stream"
}

// ValidateUpload checks a single upload against the file rules: a safe
// filename, an allow-listed type, and the size limit. Empty files are
// allowed here; they fail later at extraction with a clear status.
func ValidateUpload(upload Upload) error {
	if err := core.ValidateFilename(upload.Filename); err != nil {
		return err
	}
	if NormalizeFileType(upload.Filename) == "" {
		return fmt.Errorf("%w: %s", ErrUnsupportedFileType, filepath.Ext(upload.Filename))
	}
	if int64(len(upload.Content)) > MaxFileSize {
		return fmt.Errorf("%w: %s is %d bytes, limit is %d",
			ErrFileTooLarge, upload.Filename, len(upload.Content), MaxFileSize)
	}
	return nil
}

// ValidateBatch checks the batch limits and every file in the batch.
// The whole batch is rejected if any file fails; nothing is partially
// accepted.
func ValidateBatch(uploads []Upload) error {
	if len(uploads) == 0 {
		return ErrNoFiles
	}
	if len(uploads) > MaxBatchFiles {
		return fmt.Errorf("%w: %d files, limit is %d", ErrTooManyFiles, len(uploads), MaxBatchFiles)
	}
	for _, upload := range uploads {
		if err := ValidateUpload(upload); err != nil {
			return err
		}
	}
	return nil
}
