package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/octandevelopment/mvnpub/util/common/errors"
	"github.com/rs/zerolog/log"
)

type undoEntry struct {
	path     string
	previous []byte
}

// rollbackTransaction writes straight to the repository and on Abort
// deletes new files and restores replaced ones, newest first. It is the
// best effort available on repositories without staging.
type rollbackTransaction struct {
	mu       sync.Mutex
	repo     Repository
	undo     []undoEntry
	uploaded []string
	done     bool
}

func newRollbackTransaction(repo Repository) *rollbackTransaction {
	return &rollbackTransaction{repo: repo}
}

func (t *rollbackTransaction) Put(ctx context.Context, path string, data []byte) error {
	return t.Replace(ctx, path, data, nil)
}

func (t *rollbackTransaction) Replace(ctx context.Context, path string, data, previous []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return fmt.Errorf("transaction already finished")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	// Recorded before the write: a PUT that failed in transit may still
	// have stored the file.
	t.undo = append(t.undo, undoEntry{path: path, previous: previous})
	if err := t.repo.Put(ctx, path, data); err != nil {
		if Refused(err) || errors.KindOf(err) == errors.KindConflict {
			// The server kept whatever it had; never undo it.
			t.undo = t.undo[:len(t.undo)-1]
		}
		return err
	}
	t.uploaded = append(t.uploaded, path)
	return nil
}

func (t *rollbackTransaction) Uploaded() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.uploaded...)
}

func (t *rollbackTransaction) Commit(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.done = true
	return nil
}

func (t *rollbackTransaction) Abort(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.done = true

	var firstErr error
	for i := len(t.undo) - 1; i >= 0; i-- {
		u := t.undo[i]
		var err error
		if u.previous != nil {
			err = t.repo.Put(ctx, u.path, u.previous)
		} else {
			err = t.repo.Delete(ctx, u.path)
		}
		if err != nil {
			log.Error().Err(err).Str("path", u.path).Msg("Rollback failed")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		log.Debug().Str("path", u.path).Msg("Rolled back")
	}
	t.undo = nil
	return firstErr
}
