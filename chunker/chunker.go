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


// Package chunker splits extracted document text into overlapping segments
// sized for embedding.
//
// Splitting is recursive-character based: paragraph boundaries are preferred
// over sentence boundaries, which are preferred over word boundaries, so a
// segment rarely cuts a sentence in half. Consecutive segments overlap so
// that context spanning a boundary survives in at least one of them.
package chunker

import (
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"
)

const (
	// DefaultChunkSize is the target segment length in characters.
	DefaultChunkSize = 1000

	// DefaultChunkOverlap is the number of characters shared between
	// consecutive segments.
	DefaultChunkOverlap = 100
)

// Segment is one piece of a split document.
type Segment struct {
	// Index is the 0-based position of the segment within the document.
	Index int

	// Content is the segment text. Never empty or whitespace-only.
	Content string
}

// Chunker splits text into overlapping segments.
type Chunker struct {
	splitter textsplitter.RecursiveCharacter
}

// Option configures a Chunker.
type Option func(*config)

type config struct {
	chunkSize    int
	chunkOverlap int
}

// WithChunkSize sets the target segment length in characters.
func WithChunkSize(size int) Option {
	return func(c *config) {
		c.chunkSize = size
	}
}

// WithChunkOverlap sets the overlap between consecutive segments.
func WithChunkOverlap(overlap int) Option {
	return func(c *config) {
		c.chunkOverlap = overlap
	}
}

// NewChunker creates a chunker with the default size and overlap, applying
// any options.
func NewChunker(opts ...Option) *Chunker {
	cfg := &config{
		chunkSize:    DefaultChunkSize,
		chunkOverlap: DefaultChunkOverlap,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return &Chunker{
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(cfg.chunkSize),
			textsplitter.WithChunkOverlap(cfg.chunkOverlap),
		),
	}
}

// Split divides text into overlapping segments with sequential 0-based
// indices. Whitespace-only pieces are dropped, so the result never contains
// an empty segment. Splitting empty text yields no segments.
func (c *Chunker) Split(text string) ([]Segment, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	pieces, err := c.splitter.SplitText(text)
	if err != nil {
		return nil, fmt.Errorf("failed to split text: %w", err)
	}

	segments := make([]Segment, 0, len(pieces))
	for _, piece := range pieces {
		if strings.TrimSpace(piece) == "" {
			continue
		}
		segments = append(segments, Segment{
			Index:   len(segments),
			Content: piece,
		})
	}

	return segments, nil
}
