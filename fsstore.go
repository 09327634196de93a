package snowsync

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/input-output-hk/catalyst-forge-libs/fs"

	"github.com/NYPL/snowsync/errors"
	"github.com/NYPL/snowsync/internal/pool"
	"github.com/NYPL/snowsync/internal/validate"
	"github.com/NYPL/snowsync/types"
)

// DefaultContentType is used when content type detection fails.
const DefaultContentType = "application/octet-stream"

// FSStore adapts a directory on a Filesystem to the Store interface. Keys
// are forward-slash paths relative to the root, so plans diff cleanly
// against object stores.
type FSStore struct {
	fsys fs.Filesystem
	root string
}

var (
	_ types.Store        = (*FSStore)(nil)
	_ types.ContentTyper = (*FSStore)(nil)
)

// NewFSStore wraps the directory root on fsys as a store.
func NewFSStore(fsys fs.Filesystem, root string) *FSStore {
	return &FSStore{fsys: fsys, root: filepath.ToSlash(filepath.Clean(root))}
}

// Name identifies the store in errors and logs.
func (s *FSStore) Name() string {
	return s.root
}

// List walks the tree under the root into a single key-ordered page. A
// missing root lists as empty, matching an object store with no keys.
func (s *FSStore) List(ctx context.Context, prefix, token string) (*types.ListPage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if token != "" {
		return nil, errors.NewStoreError("list", s.Name(), errors.ErrInvalidInput).
			WithMessage("local listings are single-page, token must be empty")
	}

	exists, err := s.fsys.Exists(s.root)
	if err != nil {
		return nil, errors.NewStoreError("list", s.Name(), err)
	}
	if !exists {
		return &types.ListPage{}, nil
	}

	var entries []types.ObjectEntry
	err = s.fsys.Walk(s.root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if prefix != "" && !strings.HasPrefix(key, prefix) {
			return nil
		}

		entries = append(entries, types.ObjectEntry{
			Key:          key,
			Size:         info.Size(),
			LastModified: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, errors.NewStoreError("list", s.Name(), err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return &types.ListPage{Entries: entries}, nil
}

// Open returns the file body. The caller must close it.
func (s *FSStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validate.ObjectKey(key); err != nil {
		return nil, err
	}

	file, err := s.fsys.Open(s.path(key))
	if err != nil {
		if stderrors.Is(err, os.ErrNotExist) {
			return nil, errors.NewObjectError("open", s.Name(), key, errors.ErrObjectNotFound)
		}
		return nil, errors.NewObjectError("open", s.Name(), key, err)
	}
	return file, nil
}

// Put writes body to key, creating parent directories as needed. A
// negative size is accepted as unknown; a known size must match the bytes
// written. PutConfig only applies to object stores and is ignored here.
func (s *FSStore) Put(ctx context.Context, key string, body io.Reader, size int64, cfg types.PutConfig) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validate.ObjectKey(key); err != nil {
		return err
	}
	if body == nil {
		return errors.NewObjectError("put", s.Name(), key, errors.ErrInvalidInput).
			WithMessage("body cannot be nil")
	}

	target := s.path(key)
	if dir := path.Dir(target); dir != "." {
		if err := s.fsys.MkdirAll(dir, 0o755); err != nil {
			return errors.NewObjectError("put", s.Name(), key, err)
		}
	}

	file, err := s.fsys.Create(target)
	if err != nil {
		return errors.NewObjectError("put", s.Name(), key, err)
	}

	buf := pool.Get(pool.MediumBufferSize)
	defer pool.Put(buf)

	written, err := io.CopyBuffer(file, body, buf)
	if err != nil {
		file.Close()
		return errors.NewObjectError("put", s.Name(), key, err)
	}
	if err := file.Close(); err != nil {
		return errors.NewObjectError("put", s.Name(), key, err)
	}

	if size >= 0 && written != size {
		return errors.NewObjectError("put", s.Name(), key, errors.ErrInvalidInput).
			WithMessage(fmt.Sprintf("wrote %d bytes, expected %d", written, size))
	}
	return nil
}

// Delete removes keys. Missing keys delete cleanly; keys the filesystem
// rejects are reported without failing the batch. Emptied directories are
// left in place.
func (s *FSStore) Delete(ctx context.Context, keys []string) ([]types.DeleteFailure, error) {
	var failures []types.DeleteFailure
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return failures, err
		}
		if err := s.fsys.Remove(s.path(key)); err != nil && !stderrors.Is(err, os.ErrNotExist) {
			failures = append(failures, types.DeleteFailure{Key: key, Message: err.Error()})
		}
	}
	return failures, nil
}

// ContentType sniffs the file's MIME type, falling back to the key
// extension and finally to DefaultContentType.
func (s *FSStore) ContentType(key string) string {
	if file, err := s.fsys.Open(s.path(key)); err == nil {
		buf := pool.Get(pool.SmallBufferSize)
		defer pool.Put(buf)
		n, _ := file.Read(buf)
		file.Close()
		if n > 0 {
			if mt := mimetype.Detect(buf[:n]); mt != nil {
				return mt.String()
			}
		}
	}

	if ext := strings.ToLower(path.Ext(key)); ext != "" {
		if byExt := mime.TypeByExtension(ext); byExt != "" {
			return byExt
		}
	}
	return DefaultContentType
}

func (s *FSStore) path(key string) string {
	return path.Join(s.root, key)
}
