// Package vcs reads the state of a Git working copy without shelling out to
// git, so releases can record where they were built from.
package vcs

import (
	"bufio"
	"bytes"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/octandevelopment/mvnpub/util/common/errors"
	"github.com/octandevelopment/mvnpub/util/common/fileutil"

	"gopkg.in/ini.v1"
)

// GitInfo describes the checked out commit of a working copy.
type GitInfo struct {
	URL    string `json:"url,omitempty"`
	Branch string `json:"branch,omitempty"`
	Hash   string `json:"hash,omitempty"`
}

// Connection renders the remote as a Maven SCM connection string.
func (g *GitInfo) Connection() string {
	u := g.publicURL()
	if u == "" {
		return ""
	}
	return "scm:git:" + u
}

// BrowseURL turns common remote forms into a web URL:
// git@host:org/repo.git becomes https://host/org/repo.
func (g *GitInfo) BrowseURL() string {
	u := strings.TrimSuffix(g.publicURL(), ".git")
	switch {
	case strings.HasPrefix(u, "git@"):
		host, p, ok := strings.Cut(strings.TrimPrefix(u, "git@"), ":")
		if !ok {
			return ""
		}
		return "https://" + host + "/" + p
	case strings.HasPrefix(u, "https://"), strings.HasPrefix(u, "http://"):
		return u
	case strings.HasPrefix(u, "ssh://"):
		rest := strings.TrimPrefix(u, "ssh://")
		if at := strings.Index(rest, "@"); at >= 0 {
			rest = rest[at+1:]
		}
		return "https://" + rest
	}
	return ""
}

// publicURL drops credentials from the remote. CI checkouts carry tokens
// in the userinfo of http remotes; ssh keeps only its login name.
func (g *GitInfo) publicURL() string {
	if !strings.Contains(g.URL, "://") {
		return g.URL
	}
	u, err := url.Parse(g.URL)
	if err != nil {
		return ""
	}
	if u.User != nil {
		if u.Scheme == "ssh" {
			u.User = url.User(u.User.Username())
		} else {
			u.User = nil
		}
	}
	return u.String()
}

// FindRoot walks up from dir to the directory holding .git.
func FindRoot(dir string) (string, bool) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", false
	}
	for {
		if fileutil.IsDir(filepath.Join(dir, ".git")) {
			return dir, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

// Inspect reads HEAD, the ref it points at and the origin remote of the
// working copy containing dir.
func Inspect(dir string) (*GitInfo, error) {
	root, ok := FindRoot(dir)
	if !ok {
		return nil, errors.NewFileError(dir, "find_git", errors.ErrNotFound)
	}
	gitDir := filepath.Join(root, ".git")

	headBytes, err := fileutil.ReadFile(filepath.Join(gitDir, "HEAD"))
	if err != nil {
		return nil, err
	}
	head := strings.TrimSpace(string(headBytes))

	info := &GitInfo{}
	if ref, ok := strings.CutPrefix(head, "ref: "); ok {
		info.Branch = strings.TrimPrefix(ref, "refs/heads/")
		hash, err := resolveRef(gitDir, ref)
		if err != nil {
			return nil, err
		}
		info.Hash = hash
	} else {
		info.Hash = head
	}
	if !isValidSHA(info.Hash) {
		return nil, errors.NewFileError(gitDir, "read_head", errors.ErrInvalidOperation)
	}

	info.URL, err = remoteURL(gitDir, "origin")
	if err != nil {
		return nil, err
	}
	return info, nil
}

// resolveRef looks for a loose ref first and falls back to packed-refs.
func resolveRef(gitDir, ref string) (string, error) {
	if data, err := os.ReadFile(filepath.Join(gitDir, filepath.FromSlash(ref))); err == nil {
		return strings.TrimSpace(string(data)), nil
	}
	packed, err := os.ReadFile(filepath.Join(gitDir, "packed-refs"))
	if err != nil {
		// unborn branch
		return "", errors.NewFileError(ref, "resolve_ref", errors.ErrNotFound)
	}
	sc := bufio.NewScanner(bytes.NewReader(packed))
	for sc.Scan() {
		line := sc.Text()
		if line == "" || line[0] == '#' || line[0] == '^' {
			continue
		}
		hash, name, ok := strings.Cut(line, " ")
		if ok && name == ref {
			return hash, nil
		}
	}
	return "", errors.NewFileError(ref, "resolve_ref", errors.ErrNotFound)
}

func remoteURL(gitDir, remote string) (string, error) {
	configPath := filepath.Join(gitDir, "config")
	if !fileutil.IsFile(configPath) {
		return "", nil
	}
	cfg, err := ini.Load(configPath)
	if err != nil {
		return "", errors.NewFileError(configPath, "parse", err)
	}
	return cfg.Section(`remote "` + remote + `"`).Key("url").String(), nil
}

func isValidSHA(hash string) bool {
	if len(hash) != 40 {
		return false
	}
	for _, c := range hash {
		if !strings.ContainsRune("0123456789abcdef", c) {
			return false
		}
	}
	return true
}
