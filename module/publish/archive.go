package publish

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gobwas/glob"
	"github.com/klauspost/compress/zip"
	"github.com/octandevelopment/mvnpub/util/common/fileutil"
)

const manifestPath = "META-INF/MANIFEST.MF"

// reproducibleTime is stamped on every archive entry, matching Gradle's
// constant timestamp for reproducible archives.
var reproducibleTime = time.Date(1980, time.February, 1, 0, 0, 0, 0, time.UTC)

type archiveEntry struct {
	name string
	data []byte
}

// buildJar writes entries into a zip with the manifest first, the rest
// sorted by name and every timestamp fixed, so equal inputs give equal bytes.
func buildJar(entries []archiveEntry) ([]byte, error) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].name == manifestPath {
			return entries[j].name != manifestPath
		}
		if entries[j].name == manifestPath {
			return false
		}
		return entries[i].name < entries[j].name
	})

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		if seen[e.name] {
			return nil, fmt.Errorf("duplicate archive entry %q", e.name)
		}
		seen[e.name] = true

		hdr := &zip.FileHeader{
			Name:     e.name,
			Method:   zip.Deflate,
			Modified: reproducibleTime,
		}
		hdr.SetMode(0644)
		w, err := zw.CreateHeader(hdr)
		if err != nil {
			return nil, fmt.Errorf("failed to add %s: %w", e.name, err)
		}
		if _, err := w.Write(e.data); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", e.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish archive: %w", err)
	}
	return buf.Bytes(), nil
}

// readJar returns the entries of an in-memory archive by name.
func readJar(data []byte) (map[string][]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	out := make(map[string][]byte, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		b, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, err
		}
		out[f.Name] = b
	}
	return out, nil
}

// manifest renders a jar manifest with the attributes in sorted order.
func manifest(attrs map[string]string) []byte {
	var b strings.Builder
	b.WriteString("Manifest-Version: 1.0\r\n")
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		if k == "Manifest-Version" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteString(k + ": " + attrs[k] + "\r\n")
	}
	b.WriteString("\r\n")
	return []byte(b.String())
}

// fileFilter selects files by include and exclude globs. Patterns support
// * (one path segment) and ** (any depth).
type fileFilter struct {
	include []glob.Glob
	exclude []glob.Glob
}

func newFileFilter(include, exclude []string) (*fileFilter, error) {
	f := &fileFilter{}
	for _, p := range include {
		g, err := glob.Compile(strings.TrimPrefix(p, "/"), '/')
		if err != nil {
			return nil, fmt.Errorf("invalid include pattern %q: %w", p, err)
		}
		f.include = append(f.include, g)
	}
	for _, p := range exclude {
		g, err := glob.Compile(strings.TrimPrefix(p, "/"), '/')
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", p, err)
		}
		f.exclude = append(f.exclude, g)
	}
	return f, nil
}

func (f *fileFilter) Match(rel string) bool {
	for _, g := range f.exclude {
		if g.Match(rel) {
			return false
		}
	}
	if len(f.include) == 0 {
		return true
	}
	for _, g := range f.include {
		if g.Match(rel) {
			return true
		}
	}
	return false
}

// collectDir reads every file below dir accepted by filter as archive
// entries named relative to dir. An existing manifest is dropped; the
// archive writer generates its own.
func collectDir(dir string, filter *fileFilter) ([]archiveEntry, error) {
	files, err := fileutil.ListFiles(dir)
	if err != nil {
		return nil, err
	}
	var entries []archiveEntry
	for _, rel := range files {
		if rel == manifestPath || (filter != nil && !filter.Match(rel)) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(rel)))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", rel, err)
		}
		entries = append(entries, archiveEntry{name: rel, data: data})
	}
	return entries, nil
}
