// Package testutil provides an in-memory object store for exercising
// enumeration, planning, and execution without a live backend.
package testutil

import (
	"bytes"
	"context"
	"crypto/md5"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/NYPL/snowsync/errors"
	"github.com/NYPL/snowsync/types"
)

// defaultPageSize mirrors the S3 listing page size.
const defaultPageSize = 1000

type memObject struct {
	data  []byte
	entry types.ObjectEntry
	cfg   types.PutConfig
}

// MemStore is an in-memory types.Store. Listings are served in key order
// with literal prefix matching, and ETags are MD5 hex digests the way
// simple S3 puts report them.
//
// The On* hooks run before the corresponding operation and inject
// failures; a nil hook means the operation always succeeds.
type MemStore struct {
	// PageSize caps entries per listing page. Zero means defaultPageSize.
	PageSize int

	// OnList is invoked before each page is served.
	OnList func(prefix, token string) error

	// OnOpen is invoked before the object body is returned.
	OnOpen func(key string) error

	// OnPut is invoked before the object is stored.
	OnPut func(key string) error

	// OnDelete overrides batch deletion when set: returned failures are
	// reported per key and the matching objects stay in place.
	OnDelete func(keys []string) ([]types.DeleteFailure, error)

	name    string
	mu      sync.Mutex
	objects map[string]*memObject
}

// NewMemStore creates an empty store identified by name in errors and
// listings.
func NewMemStore(name string) *MemStore {
	return &MemStore{
		name:    name,
		objects: make(map[string]*memObject),
	}
}

// Name implements types.Store.
func (s *MemStore) Name() string { return s.name }

// List implements types.Store. The continuation token is the last key of
// the previous page.
func (s *MemStore) List(ctx context.Context, prefix, token string) (*types.ListPage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.OnList != nil {
		if err := s.OnList(prefix, token); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var keys []string
	for key := range s.objects {
		if strings.HasPrefix(key, prefix) && key > token {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	pageSize := s.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	page := &types.ListPage{}
	if len(keys) > pageSize {
		page.Truncated = true
		keys = keys[:pageSize]
		page.NextToken = keys[len(keys)-1]
	}
	for _, key := range keys {
		page.Entries = append(page.Entries, s.objects[key].entry)
	}
	return page, nil
}

// Open implements types.Store.
func (s *MemStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.OnOpen != nil {
		if err := s.OnOpen(key); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	obj, ok := s.objects[key]
	if !ok {
		return nil, errors.NewObjectError("open", s.name, key, errors.ErrObjectNotFound)
	}
	return io.NopCloser(bytes.NewReader(obj.data)), nil
}

// Put implements types.Store. A non-negative size must match the body
// length.
func (s *MemStore) Put(ctx context.Context, key string, body io.Reader, size int64, cfg types.PutConfig) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.OnPut != nil {
		if err := s.OnPut(key); err != nil {
			return err
		}
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return errors.NewObjectError("put", s.name, key, err)
	}
	if size >= 0 && int64(len(data)) != size {
		return errors.NewObjectError("put", s.name, key,
			fmt.Errorf("%w: body is %d bytes, size says %d", errors.ErrInvalidInput, len(data), size))
	}

	storageClass := cfg.StorageClass
	if storageClass == "" {
		storageClass = types.StorageClassStandard
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = &memObject{
		data: data,
		cfg:  cfg,
		entry: types.ObjectEntry{
			Key:          key,
			Size:         int64(len(data)),
			LastModified: time.Now().UTC(),
			StorageClass: string(storageClass),
			ETag:         RawETag(data),
		},
	}
	return nil
}

// Delete implements types.Store. Missing keys delete successfully, the
// way S3 batch deletion treats them.
func (s *MemStore) Delete(ctx context.Context, keys []string) ([]types.DeleteFailure, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var failures []types.DeleteFailure
	if s.OnDelete != nil {
		var err error
		failures, err = s.OnDelete(keys)
		if err != nil {
			return nil, err
		}
	}

	failed := make(map[string]bool, len(failures))
	for _, f := range failures {
		failed[f.Key] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		if !failed[key] {
			delete(s.objects, key)
		}
	}
	return failures, nil
}

// Seed stores data under key without invoking hooks and returns the
// resulting entry. Use it to arrange fixtures.
func (s *MemStore) Seed(key string, data []byte) types.ObjectEntry {
	entry := types.ObjectEntry{
		Key:          key,
		Size:         int64(len(data)),
		LastModified: time.Now().UTC(),
		StorageClass: string(types.StorageClassStandard),
		ETag:         RawETag(data),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = &memObject{data: append([]byte(nil), data...), entry: entry}
	return entry
}

// Bytes returns the stored body for key.
func (s *MemStore) Bytes(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.objects[key]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), obj.data...), true
}

// Config returns the PutConfig recorded when key was written.
func (s *MemStore) Config(key string) (types.PutConfig, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.objects[key]
	if !ok {
		return types.PutConfig{}, false
	}
	return obj.cfg, true
}

// Keys returns all stored keys in sorted order.
func (s *MemStore) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.objects))
	for key := range s.objects {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of stored objects.
func (s *MemStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

// RawETag returns the unquoted MD5 hex digest a simple S3 put would
// report for data.
func RawETag(data []byte) string {
	return fmt.Sprintf("%x", md5.Sum(data))
}

// ServerCopyStore wraps a MemStore with a server-side copy fast path so
// executor tests can assert the streaming fallback is skipped.
type ServerCopyStore struct {
	*MemStore

	copyCalls int64
}

// NewServerCopyStore wraps store with a CopyFrom implementation.
func NewServerCopyStore(store *MemStore) *ServerCopyStore {
	return &ServerCopyStore{MemStore: store}
}

// CopyFrom implements types.ServerCopier by reading the source object
// and storing it directly.
func (s *ServerCopyStore) CopyFrom(ctx context.Context, src types.Store, srcKey, destKey string, cfg types.PutConfig) error {
	atomic.AddInt64(&s.copyCalls, 1)

	rc, err := src.Open(ctx, srcKey)
	if err != nil {
		return err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return err
	}
	return s.MemStore.Put(ctx, destKey, bytes.NewReader(data), int64(len(data)), cfg)
}

// CopyCalls returns how many times CopyFrom was invoked.
func (s *ServerCopyStore) CopyCalls() int64 {
	return atomic.LoadInt64(&s.copyCalls)
}

// Compile-time interface checks.
var (
	_ types.Store        = (*MemStore)(nil)
	_ types.Store        = (*ServerCopyStore)(nil)
	_ types.ServerCopier = (*ServerCopyStore)(nil)
)
