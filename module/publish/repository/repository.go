// Package repository stores files in a Maven layout repository, either
// remote over HTTP or on the local filesystem.
package repository

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/octandevelopment/mvnpub/util/common/errors"
)

// Target is the remote repository endpoint.
type Target struct {
	Name string
	URL  string
	// Auth is "basic" or "bearer".
	Auth string
}

// Credentials authenticate against a Target. They are never persisted.
type Credentials struct {
	Username string
	Password string
	Token    string
}

// Empty reports whether no credential was supplied.
func (c Credentials) Empty() bool {
	return c.Username == "" && c.Password == "" && c.Token == ""
}

// Options tune the transport of remote repositories.
type Options struct {
	// Attempts is the number of tries per request for transient failures.
	Attempts     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	Timeout      time.Duration
	// Progress shows a progress bar per uploaded file.
	Progress bool
}

// Repository is a Maven layout file store addressed by slash separated
// paths relative to its root.
type Repository interface {
	Name() string
	URL() string
	// Get returns errors.ErrNotFound when path does not exist.
	Get(ctx context.Context, path string) ([]byte, error)
	Exists(ctx context.Context, path string) (bool, error)
	Put(ctx context.Context, path string, data []byte) error
	Delete(ctx context.Context, path string) error
}

// Transaction groups writes so that they become visible together or not at all.
type Transaction interface {
	// Put writes a file that did not exist before.
	Put(ctx context.Context, path string, data []byte) error
	// Replace overwrites a file; previous is its old content, nil if it was absent.
	Replace(ctx context.Context, path string, data, previous []byte) error
	// Uploaded lists the paths written so far, in order.
	Uploaded() []string
	Commit(ctx context.Context) error
	// Abort undoes every write. It must be safe to call after a failed Commit.
	Abort(ctx context.Context) error
}

// Stager is implemented by repositories that can stage writes and commit
// them atomically.
type Stager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// Begin starts a transaction on repo: a staged one when repo supports it,
// otherwise one that rolls back by deleting what it uploaded.
func Begin(ctx context.Context, repo Repository) (Transaction, error) {
	if s, ok := repo.(Stager); ok {
		return s.Begin(ctx)
	}
	return newRollbackTransaction(repo), nil
}

// New returns the repository implementation for the target's URL scheme.
func New(target Target, creds Credentials, opts Options) (Repository, error) {
	u, err := url.Parse(target.URL)
	if err != nil {
		return nil, errors.NewValidationError("repository.url", err.Error())
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return NewHTTPRepository(target, creds, opts)
	case "file":
		return NewFileRepository(target.Name, u.Path)
	default:
		return nil, errors.NewValidationError("repository.url", fmt.Sprintf("unsupported scheme %q", u.Scheme))
	}
}

func cleanPath(p string) (string, error) {
	p = strings.TrimPrefix(p, "/")
	if p == "" {
		return "", errors.NewValidationError("path", "path cannot be empty")
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return "", errors.NewValidationError("path", fmt.Sprintf("invalid repository path %q", p))
		}
	}
	return p, nil
}
