// Package document provides the editable text surface consumed by the
// interaction session. Only whole-buffer operations exist; the AI path
// never performs partial or range edits.
package document

import "sync"

// Buffer is an in-memory whole-document text buffer.
type Buffer struct {
	mu      sync.RWMutex
	content string
}

// NewBuffer returns a buffer seeded with the given content.
func NewBuffer(content string) *Buffer {
	return &Buffer{content: content}
}

// FullContent returns the entire document.
func (b *Buffer) FullContent() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.content
}

// ReplaceFullContent overwrites the entire document.
func (b *Buffer) ReplaceFullContent(text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.content = text
}
