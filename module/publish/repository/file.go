package repository

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/octandevelopment/mvnpub/util/common/errors"
	"github.com/octandevelopment/mvnpub/util/common/fileutil"
	"github.com/rs/zerolog/log"
)

const stagingDirName = ".mvnpub-staging"

// FileRepository is a Maven repository on the local filesystem. Writes
// made through a transaction are staged below the root and moved into
// place by rename on commit.
type FileRepository struct {
	name string
	root string
}

var (
	_ Repository = (*FileRepository)(nil)
	_ Stager     = (*FileRepository)(nil)
)

func NewFileRepository(name, root string) (*FileRepository, error) {
	if root == "" {
		return nil, errors.NewValidationError("repository.url", "file repository needs a path")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, storeError("open", root, errors.NewFileError(root, "resolve", err))
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, storeError("open", abs, errors.NewFileError(abs, "create", err))
	}
	return &FileRepository{name: name, root: abs}, nil
}

func (r *FileRepository) Name() string { return r.name }
func (r *FileRepository) URL() string  { return "file://" + filepath.ToSlash(r.root) }

func (r *FileRepository) local(p string) (string, error) {
	clean, err := cleanPath(p)
	if err != nil {
		return "", err
	}
	return filepath.Join(r.root, filepath.FromSlash(clean)), nil
}

func (r *FileRepository) Get(ctx context.Context, p string) ([]byte, error) {
	local, err := r.local(p)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(local)
	if os.IsNotExist(err) {
		return nil, errors.ErrNotFound
	}
	if err != nil {
		return nil, storeError("read", p, errors.NewFileError(local, "read", err))
	}
	return data, nil
}

func (r *FileRepository) Exists(ctx context.Context, p string) (bool, error) {
	local, err := r.local(p)
	if err != nil {
		return false, err
	}
	return fileutil.Exists(local), nil
}

func (r *FileRepository) Put(ctx context.Context, p string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	local, err := r.local(p)
	if err != nil {
		return err
	}
	if err := fileutil.WriteFileAtomic(local, data); err != nil {
		return storeError("write", p, err)
	}
	return nil
}

func (r *FileRepository) Delete(ctx context.Context, p string) error {
	local, err := r.local(p)
	if err != nil {
		return err
	}
	if err := os.Remove(local); err != nil && !os.IsNotExist(err) {
		return storeError("delete", p, errors.NewFileError(local, "delete", err))
	}
	return nil
}

// Begin opens a staging directory for a new transaction.
func (r *FileRepository) Begin(ctx context.Context) (Transaction, error) {
	dir := filepath.Join(r.root, stagingDirName, uuid.New().String())
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, storeError("stage", "", errors.NewFileError(dir, "create", err))
	}
	return &stagedTransaction{repo: r, dir: dir}, nil
}

// storeError marks a filesystem failure as a transport failure of the
// repository so it maps to the same exit code as an HTTP upload error.
func storeError(op, p string, err error) error {
	return errors.NewNetworkError(op, p, err)
}

type commitUnit struct {
	rel    string
	isDir  bool
	backup string
}

// stagedTransaction mirrors the repository layout in a staging directory.
// Commit moves the highest directory that does not exist yet in one rename,
// so a new version directory appears complete or not at all.
type stagedTransaction struct {
	mu        sync.Mutex
	repo      *FileRepository
	dir       string
	staged    []string
	committed []commitUnit
	done      bool
}

func (t *stagedTransaction) Put(ctx context.Context, p string, data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return fmt.Errorf("transaction already finished")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	clean, err := cleanPath(p)
	if err != nil {
		return err
	}
	if err := fileutil.WriteFileAtomic(filepath.Join(t.dir, filepath.FromSlash(clean)), data); err != nil {
		return storeError("stage", clean, err)
	}
	t.staged = append(t.staged, clean)
	return nil
}

func (t *stagedTransaction) Replace(ctx context.Context, p string, data, previous []byte) error {
	return t.Put(ctx, p, data)
}

func (t *stagedTransaction) Uploaded() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.staged...)
}

func (t *stagedTransaction) units() []commitUnit {
	var units []commitUnit
	seen := map[string]bool{}
	for _, rel := range t.staged {
		unit := commitUnit{rel: rel}
		segs := strings.Split(rel, "/")
		for i := 1; i < len(segs); i++ {
			dir := path.Join(segs[:i]...)
			if !fileutil.Exists(filepath.Join(t.repo.root, filepath.FromSlash(dir))) {
				unit = commitUnit{rel: dir, isDir: true}
				break
			}
		}
		if !seen[unit.rel] {
			seen[unit.rel] = true
			units = append(units, unit)
		}
	}
	return units
}

func (t *stagedTransaction) Commit(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return fmt.Errorf("transaction already finished")
	}
	t.done = true

	for _, u := range t.units() {
		src := filepath.Join(t.dir, filepath.FromSlash(u.rel))
		dst := filepath.Join(t.repo.root, filepath.FromSlash(u.rel))
		if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
			t.undoCommitted()
			return storeError("commit", u.rel, errors.NewFileError(dst, "commit", err))
		}
		if !u.isDir && fileutil.Exists(dst) {
			u.backup = filepath.Join(t.dir, ".backup", filepath.FromSlash(u.rel))
			if err := os.MkdirAll(filepath.Dir(u.backup), 0755); err != nil {
				t.undoCommitted()
				return storeError("commit", u.rel, errors.NewFileError(dst, "commit", err))
			}
			if err := os.Rename(dst, u.backup); err != nil {
				t.undoCommitted()
				return storeError("commit", u.rel, errors.NewFileError(dst, "commit", err))
			}
		}
		if err := os.Rename(src, dst); err != nil {
			if u.backup != "" {
				os.Rename(u.backup, dst)
			}
			t.undoCommitted()
			return storeError("commit", u.rel, errors.NewFileError(dst, "commit", err))
		}
		t.committed = append(t.committed, u)
		log.Debug().Str("path", u.rel).Bool("dir", u.isDir).Msg("Committed")
	}

	t.cleanup()
	return nil
}

// undoCommitted reverts already committed units, newest first.
func (t *stagedTransaction) undoCommitted() {
	for i := len(t.committed) - 1; i >= 0; i-- {
		u := t.committed[i]
		dst := filepath.Join(t.repo.root, filepath.FromSlash(u.rel))
		if u.isDir {
			os.RemoveAll(dst)
			continue
		}
		os.Remove(dst)
		if u.backup != "" {
			os.Rename(u.backup, dst)
		}
	}
	t.committed = nil
}

func (t *stagedTransaction) Abort(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.done = true
	t.undoCommitted()
	return t.cleanup()
}

func (t *stagedTransaction) cleanup() error {
	if err := os.RemoveAll(t.dir); err != nil {
		return storeError("cleanup", "", errors.NewFileError(t.dir, "remove", err))
	}
	parent := filepath.Dir(t.dir)
	if entries, err := os.ReadDir(parent); err == nil && len(entries) == 0 {
		os.Remove(parent)
	}
	return nil
}
