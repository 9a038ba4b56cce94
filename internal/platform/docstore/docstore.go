// Package docstore archives generated documents. It defines the Store
// interface, an in-memory implementation with a size limit and oldest-first
// eviction, and Echo handlers to list, download and delete archived
// documents.
package docstore

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ehr/healthreport/pkg/pagination"
)

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrDocumentTooLarge = errors.New("document exceeds maximum allowed size")
	ErrEmptyContent     = errors.New("document content is empty")
	ErrInvalidKind      = errors.New("unknown document kind")
)

// Kind identifies which builder produced a document.
type Kind string

const (
	KindMainReport      Kind = "main_report"
	KindSingleRecord    Kind = "single_record"
	KindCombinedRecords Kind = "combined_records"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindMainReport, KindSingleRecord, KindCombinedRecords:
		return true
	}
	return false
}

// Metadata describes an archived document.
type Metadata struct {
	ID          string    `json:"id"`
	Kind        Kind      `json:"kind"`
	PatientID   string    `json:"patient_id,omitempty"`
	RecordID    string    `json:"record_id,omitempty"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	Pages       int       `json:"pages"`
	Hash        string    `json:"hash"`
	CreatedAt   time.Time `json:"created_at"`
	CreatedBy   string    `json:"created_by,omitempty"`
}

// ListParams filters and pages a listing. Results are newest first.
type ListParams struct {
	PatientID     string
	Kind          Kind
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
	Limit         int
	Offset        int
}

// Store is the contract for document archive backends.
type Store interface {
	Put(ctx context.Context, meta Metadata, content []byte) (*Metadata, error)
	Get(ctx context.Context, id string) ([]byte, *Metadata, error)
	Metadata(ctx context.Context, id string) (*Metadata, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, params ListParams) ([]*Metadata, int, error)
	Len() int
}

type stored struct {
	meta    Metadata
	content []byte
	seq     uint64
}

// MemoryStore is a thread-safe in-memory Store. When MaxDocuments is
// reached the oldest document is evicted.
type MemoryStore struct {
	mu       sync.RWMutex
	docs     map[string]*stored
	seq      uint64
	maxBytes int64
	maxDocs  int
	now      func() time.Time
}

// NewMemoryStore creates a store accepting documents up to maxBytes and
// holding at most maxDocs documents. Zero disables either limit.
func NewMemoryStore(maxBytes int64, maxDocs int) *MemoryStore {
	return &MemoryStore{
		docs:     make(map[string]*stored),
		maxBytes: maxBytes,
		maxDocs:  maxDocs,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Put validates and stores a document, assigning its id, size, hash and
// creation time.
func (s *MemoryStore) Put(_ context.Context, meta Metadata, content []byte) (*Metadata, error) {
	if len(content) == 0 {
		return nil, ErrEmptyContent
	}
	if s.maxBytes > 0 && int64(len(content)) > s.maxBytes {
		return nil, ErrDocumentTooLarge
	}
	if !meta.Kind.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidKind, meta.Kind)
	}

	meta.ID = uuid.New().String()
	meta.Size = int64(len(content))
	meta.Hash = fmt.Sprintf("%x", sha256.Sum256(content))
	meta.CreatedAt = s.now()
	if meta.FileName == "" {
		meta.FileName = string(meta.Kind) + ".pdf"
	}
	if meta.ContentType == "" {
		meta.ContentType = "application/pdf"
	}

	data := make([]byte, len(content))
	copy(data, content)

	s.mu.Lock()
	s.seq++
	s.docs[meta.ID] = &stored{meta: meta, content: data, seq: s.seq}
	for s.maxDocs > 0 && len(s.docs) > s.maxDocs {
		s.evictOldestLocked()
	}
	s.mu.Unlock()

	out := meta
	return &out, nil
}

func (s *MemoryStore) evictOldestLocked() {
	var oldest *stored
	for _, d := range s.docs {
		if oldest == nil || d.seq < oldest.seq {
			oldest = d
		}
	}
	if oldest != nil {
		delete(s.docs, oldest.meta.ID)
	}
}

// Get returns the document content and metadata.
func (s *MemoryStore) Get(_ context.Context, id string) ([]byte, *Metadata, error) {
	s.mu.RLock()
	d, ok := s.docs[id]
	s.mu.RUnlock()
	if !ok {
		return nil, nil, ErrDocumentNotFound
	}
	meta := d.meta
	return d.content, &meta, nil
}

// Metadata returns document metadata without content.
func (s *MemoryStore) Metadata(_ context.Context, id string) (*Metadata, error) {
	s.mu.RLock()
	d, ok := s.docs[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrDocumentNotFound
	}
	meta := d.meta
	return &meta, nil
}

// Delete removes a document by id.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[id]; !ok {
		return ErrDocumentNotFound
	}
	delete(s.docs, id)
	return nil
}

// List returns one page of matching documents, newest first, and the total
// match count.
func (s *MemoryStore) List(_ context.Context, p ListParams) ([]*Metadata, int, error) {
	s.mu.RLock()
	matched := make([]*stored, 0, len(s.docs))
	for _, d := range s.docs {
		if matches(&d.meta, p) {
			matched = append(matched, d)
		}
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool { return matched[i].seq > matched[j].seq })

	total := len(matched)
	start, end := pagination.Params{Limit: p.Limit, Offset: p.Offset}.Window(total)

	out := make([]*Metadata, 0, end-start)
	for _, d := range matched[start:end] {
		m := d.meta
		out = append(out, &m)
	}
	return out, total, nil
}

// Len returns the number of archived documents.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

func matches(m *Metadata, p ListParams) bool {
	if p.PatientID != "" && m.PatientID != p.PatientID {
		return false
	}
	if p.Kind != "" && m.Kind != p.Kind {
		return false
	}
	if p.CreatedAfter != nil && m.CreatedAt.Before(*p.CreatedAfter) {
		return false
	}
	if p.CreatedBefore != nil && m.CreatedAt.After(*p.CreatedBefore) {
		return false
	}
	return true
}
