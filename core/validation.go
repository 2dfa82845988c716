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


package core

import (
	"fmt"
	"regexp"
	"strings"
)

// MaxCollectionNameLen is the maximum collection name length in runes.
const MaxCollectionNameLen = 100

// Collection names allow latin letters, digits, Hangul, spaces, hyphens
// and underscores.
var collectionNameRe = regexp.MustCompile(`^[A-Za-z0-9가-힣 \-_]+$`)

// ValidateCollectionName validates a collection name according to domain rules.
//
// Validation rules:
//   - 1 to 100 characters
//   - charset: latin letters, digits, Hangul syllables, space, hyphen, underscore
//
// Uniqueness is NOT validated here; it requires storage access and is
// enforced by the registry.
func ValidateCollectionName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: name is empty", ErrInvalidName)
	}
	if len([]rune(name)) > MaxCollectionNameLen {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidName, MaxCollectionNameLen)
	}
	if !collectionNameRe.MatchString(name) {
		return fmt.Errorf("%w: name contains disallowed characters", ErrInvalidName)
	}
	return nil
}

// ValidateFilename rejects filenames that could escape the storage root.
// Checked: path separator traversal ("../", "..\"), percent-encoded
// variants, and NUL bytes.
func ValidateFilename(name string) error {
	if name == "" {
		return fmt.Errorf("%w: filename is empty", ErrInvalidFile)
	}
	if strings.ContainsRune(name, 0) {
		return fmt.Errorf("%w: filename contains NUL byte", ErrInvalidFile)
	}

	lower := strings.ToLower(name)
	// Decode the cheap percent-encodings attackers actually use before
	// checking for traversal sequences.
	decoded := strings.NewReplacer(
		"%2e", ".", "%2E", ".",
		"%2f", "/", "%2F", "/",
		"%5c", `\`, "%5C", `\`,
	).Replace(lower)

	for _, candidate := range []string{lower, decoded} {
		if strings.Contains(candidate, "../") || strings.Contains(candidate, `..\`) ||
			candidate == ".." || strings.HasPrefix(candidate, "/") {
			return fmt.Errorf("%w: filename contains path traversal", ErrInvalidFile)
		}
	}
	return nil
}

// ValidateChunk validates a Chunk according to domain rules.
//
// Validation rules:
//   - Content must not be empty
//   - Index must not be negative
//
// NOT validated (populated by the pipeline):
//   - Vector (can be empty until the embedding step runs)
//   - ID (0 is valid from database sequences)
func ValidateChunk(chunk *Chunk) error {
	if chunk == nil {
		return fmt.Errorf("%w: chunk is nil", ErrInvalidChunk)
	}
	if chunk.Content == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyContent)
	}
	if chunk.Index < 0 {
		return fmt.Errorf("%w: negative chunk index %d", ErrInvalidChunk, chunk.Index)
	}
	return nil
}

// ValidateStatusTransition reports whether moving a document from one
// processing status to another is legal.
//
// Legal transitions:
//
//	pending    -> processing
//	processing -> completed | failed
//	failed     -> processing  (reprocess)
//	completed  -> processing  (explicit reprocess)
//
// There is no transition back to pending.
func ValidateStatusTransition(from, to ProcessingStatus) error {
	ok := false
	switch from {
	case StatusPending:
		ok = to == StatusProcessing
	case StatusProcessing:
		ok = to == StatusCompleted || to == StatusFailed
	case StatusFailed, StatusCompleted:
		ok = to == StatusProcessing
	}
	if !ok {
		return fmt.Errorf("%w: cannot transition from %s to %s", ErrInvalidStatus, from, to)
	}
	return nil
}
