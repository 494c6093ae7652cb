package publish

import (
	"encoding/hex"
	"path/filepath"
	"sort"

	"github.com/octandevelopment/mvnpub/util/common/errors"
	"github.com/octandevelopment/mvnpub/util/common/fileutil"
	"github.com/zeebo/blake3"
)

const (
	ClassifierSources = "sources"
	ClassifierJavadoc = "javadoc"

	jarExtension = "jar"
	pomExtension = "pom"
)

// Artifact is one published file held in memory.
type Artifact struct {
	Classifier string
	Extension  string
	Content    []byte
}

// FileName returns the file name of a within the version directory.
func (a Artifact) FileName(c Coordinates) string {
	return c.FileName(a.Classifier, a.Extension)
}

// ArtifactSet is the output of one assembly: the binary, sources and docs
// archives, plus the POM descriptor describing them.
type ArtifactSet struct {
	Coordinates Coordinates
	Binary      Artifact
	Sources     Artifact
	Docs        Artifact
	POM         Artifact
}

// Artifacts returns the three archives.
func (s *ArtifactSet) Artifacts() []Artifact {
	return []Artifact{s.Binary, s.Sources, s.Docs}
}

// Files returns every file that gets signed and uploaded: the three
// archives followed by the POM.
func (s *ArtifactSet) Files() []Artifact {
	return append(s.Artifacts(), s.POM)
}

// Fingerprint is a BLAKE3 digest over the names and contents of all files.
// Two assemblies of the same inputs have the same fingerprint.
func (s *ArtifactSet) Fingerprint() string {
	files := s.Files()
	sort.Slice(files, func(i, j int) bool {
		return files[i].FileName(s.Coordinates) < files[j].FileName(s.Coordinates)
	})

	h := blake3.New()
	for _, f := range files {
		h.Write([]byte(f.FileName(s.Coordinates)))
		h.Write([]byte{0})
		h.Write(f.Content)
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// WriteTo stores every file of the set in dir using repository file names.
func (s *ArtifactSet) WriteTo(dir string) ([]string, error) {
	var written []string
	for _, f := range s.Files() {
		p := filepath.Join(dir, f.FileName(s.Coordinates))
		if err := fileutil.WriteFileAtomic(p, f.Content); err != nil {
			return written, errors.Wrap(err, "write artifact")
		}
		written = append(written, p)
	}
	return written, nil
}
