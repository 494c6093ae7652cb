package publish

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/openpgp"
	"golang.org/x/crypto/openpgp/armor"
)

var testCoords = Coordinates{Group: "me.thealgorithm476", ArtifactID: "osfetch", Version: "2.0.1"}

var fixedNow = func() time.Time { return time.Date(2024, time.March, 9, 12, 0, 0, 0, time.UTC) }

// writeProject lays out a compiled project with sources and a README.
func writeProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"build/classes/java/main/me/thealgorithm476/osfetch/OSFetch.class": "\xca\xfe\xba\xbe",
		"build/classes/java/main/me/thealgorithm476/osfetch/OS.class":      "\xca\xfe\xba\xbe os",
		"src/main/java/me/thealgorithm476/osfetch/OSFetch.java":            "package me.thealgorithm476.osfetch;\n",
		"src/main/java/me/thealgorithm476/osfetch/OS.java":                 "package me.thealgorithm476.osfetch;\nenum OS {}\n",
		"README.md": "# OSFetch\n\nDetects the operating system.\n",
	}
	for rel, content := range files {
		full := filepath.Join(dir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0644))
	}
	return dir
}

func newAssembler(dir string) *Assembler {
	return &Assembler{
		Spec: BuildSpec{
			Dir:        dir,
			ClassesDir: "build/classes/java/main",
			SourceDirs: []string{"src/main/java"},
			DocsDir:    "build/docs/javadoc",
			Readme:     "README.md",
		},
		Project: ProjectInfo{Name: "OSFetch", Description: "Operating system detection"},
	}
}

// newTestEntity generates an unencrypted signing key.
func newTestEntity(t *testing.T) *openpgp.Entity {
	t.Helper()
	e, err := openpgp.NewEntity("Release Bot", "test", "release@example.com", nil)
	require.NoError(t, err)
	return e
}

func armoredPrivateKey(t *testing.T, e *openpgp.Entity) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := armor.Encode(&buf, openpgp.PrivateKeyType, nil)
	require.NoError(t, err)
	require.NoError(t, e.SerializePrivate(w, nil))
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func newTestSigner(t *testing.T) (*Signer, *SigningKey) {
	t.Helper()
	e := newTestEntity(t)
	key, err := LoadSigningKey(bytes.NewReader(armoredPrivateKey(t, e)), "", nil)
	require.NoError(t, err)
	return &Signer{Key: key, Now: fixedNow}, key
}

// mavenServer is an in-memory Maven repository speaking GET, HEAD, PUT and
// DELETE behind basic auth.
type mavenServer struct {
	*httptest.Server

	mu       sync.Mutex
	files    map[string][]byte
	username string
	password string
	puts     int

	// onPut runs after the n-th successful PUT, 1-based.
	onPut func(n int)
	// failPut returns a status to answer a PUT with, 0 to accept it.
	failPut func(path string, attempt int) int
	attempts map[string]int
}

func newMavenServer(t *testing.T) *mavenServer {
	t.Helper()
	s := &mavenServer{
		files:    map[string][]byte{},
		username: "deployer",
		password: "s3cret",
		attempts: map[string]int{},
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

func (s *mavenServer) handle(w http.ResponseWriter, r *http.Request) {
	user, pass, ok := r.BasicAuth()
	if !ok || user != s.username || pass != s.password {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	p := strings.TrimPrefix(r.URL.Path, "/")

	s.mu.Lock()
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		data, ok := s.files[p]
		s.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.Method == http.MethodGet {
			w.Write(data)
		}
	case http.MethodPut:
		s.attempts[p]++
		attempt := s.attempts[p]
		failPut := s.failPut
		s.mu.Unlock()
		body, _ := io.ReadAll(r.Body)
		if failPut != nil {
			if status := failPut(p, attempt); status != 0 {
				w.WriteHeader(status)
				return
			}
		}
		s.mu.Lock()
		s.files[p] = body
		s.puts++
		n := s.puts
		onPut := s.onPut
		s.mu.Unlock()
		w.WriteHeader(http.StatusCreated)
		if onPut != nil {
			onPut(n)
		}
	case http.MethodDelete:
		delete(s.files, p)
		s.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	default:
		s.mu.Unlock()
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *mavenServer) seed(p string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[p] = data
}

func (s *mavenServer) paths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for p := range s.files {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func (s *mavenServer) file(p string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.files[p]
	return data, ok
}

func (s *mavenServer) putCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.puts
}

// stubBuilder returns a fixed artifact set.
type stubBuilder struct {
	set *ArtifactSet
	err error
}

func (b stubBuilder) Assemble(ctx context.Context, coords Coordinates) (*ArtifactSet, error) {
	return b.set, b.err
}

func assembleFixture(t *testing.T) *ArtifactSet {
	t.Helper()
	set, err := newAssembler(writeProject(t)).Assemble(context.Background(), testCoords)
	require.NoError(t, err)
	return set
}
