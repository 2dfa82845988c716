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


// Package blob stores uploaded file content outside the record store.
//
// Document records keep only an opaque storage handle. The handle is a
// generated identifier, never the client-supplied filename, so stored
// files can never collide or escape the storage root.
package blob

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrNotFound indicates no blob exists for the given handle.
var ErrNotFound = errors.New("blob not found")

// ErrInvalidHandle indicates a malformed storage handle.
var ErrInvalidHandle = errors.New("invalid blob handle")

// Store persists raw uploaded file content keyed by opaque handles.
type Store interface {
	// Put stores the content and returns a new opaque handle for it.
	// The filename is used only to preserve the extension for tooling;
	// it never becomes part of the storage path directly.
	Put(content []byte, filename string) (string, error)

	// Get retrieves the content for the given handle.
	// Returns ErrNotFound if no blob exists for the handle.
	Get(handle string) ([]byte, error)

	// Delete removes the blob for the given handle.
	// Deleting a missing blob is not an error.
	Delete(handle string) error
}

// LocalStore is a filesystem-backed blob store. Handles are UUIDs with the
// original file extension appended.
type LocalStore struct {
	root string
}

// NewLocalStore creates a blob store rooted at the given directory,
// creating it if necessary.
func NewLocalStore(root string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create blob root: %w", err)
	}
	return &LocalStore{root: root}, nil
}

// Put stores the content under a freshly generated handle.
func (s *LocalStore) Put(content []byte, filename string) (string, error) {
	handle := uuid.NewString()
	if ext := sanitizeExt(filepath.Ext(filename)); ext != "" {
		handle += ext
	}

	if err := os.WriteFile(filepath.Join(s.root, handle), content, 0o644); err != nil {
		return "", fmt.Errorf("failed to write blob: %w", err)
	}
	return handle, nil
}

// Get retrieves the content for the given handle.
func (s *LocalStore) Get(handle string) ([]byte, error) {
	path, err := s.path(handle)
	if err != nil {
		return nil, err
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, handle)
		}
		return nil, fmt.Errorf("failed to read blob: %w", err)
	}
	return content, nil
}

// Delete removes the blob for the given handle.
func (s *LocalStore) Delete(handle string) error {
	path, err := s.path(handle)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete blob: %w", err)
	}
	return nil
}

// path resolves a handle to its on-disk location, rejecting handles that
// would resolve outside the storage root.
func (s *LocalStore) path(handle string) (string, error) {
	if handle == "" || handle != filepath.Base(handle) || strings.Contains(handle, "..") {
		return "", fmt.Errorf("%w: %q", ErrInvalidHandle, handle)
	}
	return filepath.Join(s.root, handle), nil
}

// sanitizeExt keeps only simple alphanumeric extensions.
func sanitizeExt(ext string) string {
	if len(ext) < 2 || len(ext) > 11 {
		return ""
	}
	for _, r := range ext[1:] {
		isAlnum := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
		if !isAlnum {
			return ""
		}
	}
	return strings.ToLower(ext)
}
