// Package document keeps generated MELs for download.  Documents are held
// in Redis (or in memory when Redis is unavailable) under an opaque key and
// handed out through signed, expiring download tokens.
package document

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/mel-roster/internal/model"
)

// ErrNotFound is returned for a key that was never saved or has expired.
var ErrNotFound = errors.New("document not found or expired")

// Document is a stored MEL.
type Document struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Filename is the download name of a MEL: <kind>_mel_<session_id>.pdf.
func Filename(kind model.Kind, sessionID string) string {
	return fmt.Sprintf("%s_mel_%s.pdf", kind, sessionID)
}

// Store saves documents for a limited time.
type Store interface {
	Save(ctx context.Context, key string, doc Document, ttl time.Duration) error
	Load(ctx context.Context, key string) (Document, error)
	Delete(ctx context.Context, key string) error
}

// RedisStore keeps each document as a hash with an expiry.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisStore returns a store writing under prefix.
func NewRedisStore(rdb *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "doc"
	}
	return &RedisStore{rdb: rdb, prefix: prefix}
}

func (s *RedisStore) key(k string) string { return s.prefix + ":" + k }

// Save implements Store.
func (s *RedisStore) Save(ctx context.Context, key string, doc Document, ttl time.Duration) error {
	k := s.key(key)
	_, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, k, map[string]any{
			"filename":     doc.Filename,
			"content_type": doc.ContentType,
			"size":         len(doc.Data),
			"data":         doc.Data,
		})
		p.Expire(ctx, k, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save document %s: %w", key, err)
	}
	return nil
}

// Load implements Store.
func (s *RedisStore) Load(ctx context.Context, key string) (Document, error) {
	m, err := s.rdb.HGetAll(ctx, s.key(key)).Result()
	if err != nil {
		return Document{}, fmt.Errorf("load document %s: %w", key, err)
	}
	if len(m) == 0 {
		return Document{}, ErrNotFound
	}
	doc := Document{
		Filename:    m["filename"],
		ContentType: m["content_type"],
		Data:        []byte(m["data"]),
	}
	if n, err := strconv.Atoi(m["size"]); err == nil && n != len(doc.Data) {
		return Document{}, fmt.Errorf("load document %s: stored %d bytes, read %d", key, n, len(doc.Data))
	}
	return doc, nil
}

// Delete implements Store.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, s.key(key)).Err()
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu   sync.Mutex
	docs map[string]memEntry
	now  func() time.Time
}

type memEntry struct {
	doc     Document
	expires time.Time
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]memEntry), now: time.Now}
}

// Save implements Store.
func (s *MemoryStore) Save(_ context.Context, key string, doc Document, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc.Data = append([]byte(nil), doc.Data...)
	s.docs[key] = memEntry{doc: doc, expires: s.now().Add(ttl)}
	return nil
}

// Load implements Store.
func (s *MemoryStore) Load(_ context.Context, key string) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.docs[key]
	if !ok {
		return Document{}, ErrNotFound
	}
	if !s.now().Before(e.expires) {
		delete(s.docs, key)
		return Document{}, ErrNotFound
	}
	return e.doc, nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.docs, key)
	s.mu.Unlock()
	return nil
}
