// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package audit

import (
	"context"
	"sync"
)

// MemoryLog is a mutex-guarded map of per-entity slices.
//
// Thread Safety: Safe for concurrent use.
type MemoryLog struct {
	mu      sync.RWMutex
	entries map[string][]Entry
}

// NewMemoryLog creates an empty MemoryLog.
func NewMemoryLog() *MemoryLog {
	return &MemoryLog{entries: make(map[string][]Entry)}
}

// Append implements Log.
func (m *MemoryLog) Append(_ context.Context, entity string, e Entry) (Entry, error) {
	if entity == "" {
		return Entry{}, ErrEmptyEntity
	}
	e = stamp(entity, e)

	m.mu.Lock()
	m.entries[entity] = append(m.entries[entity], e)
	m.mu.Unlock()

	return e, nil
}

// Entries implements Log. The returned slice is a copy.
func (m *MemoryLog) Entries(_ context.Context, entity string) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	src := m.entries[entity]
	out := make([]Entry, len(src))
	copy(out, src)
	return out, nil
}
