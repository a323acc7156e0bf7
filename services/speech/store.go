// Copyright (C) 2026 The agrovers Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See <https://www.gnu.org/licenses/> for the full license text.

// Package speech provides speech-to-text and text-to-speech collaborators
// backed by the OpenAI audio API, plus the on-disk store that serves the
// synthesized clips.
package speech

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrUnknownAudio is returned for handles that are malformed or not stored.
var ErrUnknownAudio = errors.New("unknown audio handle")

const audioExt = ".mp3"

// FileStore keeps synthesized audio as files named by a random handle.
//
// # Description
//
// Handles are UUIDs, so a handle taken from a URL can be mapped back to a
// path without allowing traversal outside the directory.
type FileStore struct {
	dir       string
	urlPrefix string
}

// NewFileStore creates dir when needed. urlPrefix is the public path under
// which the HTTP layer serves the files (for example "/api/v1/audio").
func NewFileStore(dir, urlPrefix string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create audio dir: %w", err)
	}
	return &FileStore{dir: dir, urlPrefix: strings.TrimSuffix(urlPrefix, "/")}, nil
}

// Save writes data and returns its handle.
func (s *FileStore) Save(data []byte) (string, error) {
	handle := uuid.NewString()
	if err := os.WriteFile(filepath.Join(s.dir, handle+audioExt), data, 0o644); err != nil {
		return "", fmt.Errorf("write audio: %w", err)
	}
	return handle, nil
}

// URL maps a handle to its public URL.
func (s *FileStore) URL(handle string) (string, error) {
	if _, err := uuid.Parse(handle); err != nil {
		return "", ErrUnknownAudio
	}
	return s.urlPrefix + "/" + handle + audioExt, nil
}

// Path maps a served file name ("<handle>.mp3" or a bare handle) to the file
// on disk.
func (s *FileStore) Path(name string) (string, error) {
	handle := strings.TrimSuffix(name, audioExt)
	if _, err := uuid.Parse(handle); err != nil {
		return "", ErrUnknownAudio
	}
	path := filepath.Join(s.dir, handle+audioExt)
	if _, err := os.Stat(path); err != nil {
		return "", ErrUnknownAudio
	}
	return path, nil
}
