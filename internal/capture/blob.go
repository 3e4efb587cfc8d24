package capture

import (
	"sync"

	"github.com/google/uuid"
)

// Blob is an in-memory payload behind a transient URL.
type Blob struct {
	Data        []byte
	ContentType string
}

// BlobStore maps transient playback URLs to in-memory payloads. URLs are
// not reclaimed automatically; callers revoke them when done.
type BlobStore struct {
	mu    sync.Mutex
	blobs map[string]Blob
}

// NewBlobStore creates an empty blob table.
func NewBlobStore() *BlobStore {
	return &BlobStore{blobs: make(map[string]Blob)}
}

// Create registers a payload and returns its transient URL.
func (s *BlobStore) Create(data []byte, contentType string) string {
	url := "blob:mixcap/" + uuid.NewString()
	s.mu.Lock()
	s.blobs[url] = Blob{Data: data, ContentType: contentType}
	s.mu.Unlock()
	return url
}

// Resolve returns the payload behind a URL.
func (s *BlobStore) Resolve(url string) (Blob, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.blobs[url]
	return b, ok
}

// Revoke releases a URL. Revoking an unknown URL is a no-op.
func (s *BlobStore) Revoke(url string) {
	s.mu.Lock()
	delete(s.blobs, url)
	s.mu.Unlock()
}
