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
	"sort"
	"sync"
	"time"

	"github.com/quillstone/docbase/core"
)

// Stage names a step of the per-document ingestion sequence.
type Stage string

const (
	StageQueued     Stage = "queued"
	StageExtracting Stage = "extracting"
	StageChunking   Stage = "chunking"
	StageEmbedding  Stage = "embedding"
	StageStoring    Stage = "storing"
	StageCompleted  Stage = "completed"
	StageFailed     Stage = "failed"
)

// FileProgress is a point-in-time view of one document moving through the
// pipeline.
type FileProgress struct {
	DocumentId core.ID
	Filename   string
	Stage      Stage
	Error      string
	UpdatedAt  time.Time
}

// ProgressTracker records per-document pipeline progress for status
// reporting. Safe for concurrent use by pipeline workers.
type ProgressTracker struct {
	mu      sync.Mutex
	entries map[core.ID]*FileProgress
}

// NewProgressTracker creates an empty tracker.
func NewProgressTracker() *ProgressTracker {
	return &ProgressTracker{
		entries: make(map[core.ID]*FileProgress),
	}
}

// Track registers a document in the queued stage.
func (p *ProgressTracker) Track(id core.ID, filename string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.entries[id] = &FileProgress{
		DocumentId: id,
		Filename:   filename,
		Stage:      StageQueued,
		UpdatedAt:  time.Now().UTC(),
	}
}

// Advance moves a document to the given stage. Unknown documents are ignored.
func (p *ProgressTracker) Advance(id core.ID, stage Stage) {
	p.mu.Lock()
	defer p.mu.Unlock()

	entry, ok := p.entries[id]
	if !ok {
		return
	}
	entry.Stage = stage
	entry.UpdatedAt = time.Now().UTC()
}

// Fail moves a document to the failed stage with its user-facing message.
func (p *ProgressTracker) Fail(id core.ID, msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	entry, ok := p.entries[id]
	if !ok {
		return
	}
	entry.Stage = StageFailed
	entry.Error = msg
	entry.UpdatedAt = time.Now().UTC()
}

// Forget drops a document from the tracker.
func (p *ProgressTracker) Forget(id core.ID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.entries, id)
}

// Snapshot returns a copy of all tracked progress, ordered by document ID.
func (p *ProgressTracker) Snapshot() []FileProgress {
	p.mu.Lock()
	defer p.mu.Unlock()

	snapshot := make([]FileProgress, 0, len(p.entries))
	for _, entry := range p.entries {
		snapshot = append(snapshot, *entry)
	}
	sort.Slice(snapshot, func(i, j int) bool {
		return snapshot[i].DocumentId < snapshot[j].DocumentId
	})
	return snapshot
}
