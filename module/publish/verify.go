package publish

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/octandevelopment/mvnpub/util/common/errors"
	"github.com/octandevelopment/mvnpub/util/common/fileutil"
	"golang.org/x/crypto/openpgp"
)

const (
	VerifyOK       = "ok"
	VerifyBad      = "bad signature"
	VerifyUnsigned = "unsigned"
	VerifyOrphan   = "missing file"
)

// Verification is the outcome for one file of a bundle directory.
type Verification struct {
	File   string `json:"file"`
	Status string `json:"status"`
	KeyID  string `json:"keyId,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// VerifyDir checks that every file below dir has a detached .asc signature
// made by a key in keyring. Checksum files are ignored. A SigningFailure is
// returned alongside the results when any file does not verify.
func VerifyDir(dir string, keyring openpgp.KeyRing) ([]Verification, error) {
	files, err := fileutil.ListFiles(dir)
	if err != nil {
		return nil, err
	}

	present := make(map[string]bool, len(files))
	for _, f := range files {
		present[f] = true
	}

	var results []Verification
	failed := 0
	for _, f := range files {
		if isChecksumFile(f) {
			continue
		}
		if strings.HasSuffix(f, SignatureExtension) {
			if !present[strings.TrimSuffix(f, SignatureExtension)] {
				results = append(results, Verification{File: f, Status: VerifyOrphan})
				failed++
			}
			continue
		}

		v := Verification{File: f}
		if !present[f+SignatureExtension] {
			v.Status = VerifyUnsigned
			failed++
			results = append(results, v)
			continue
		}
		content, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(f)))
		if err != nil {
			return nil, errors.NewFileError(f, "read", err)
		}
		sig, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(f+SignatureExtension)))
		if err != nil {
			return nil, errors.NewFileError(f+SignatureExtension, "read", err)
		}
		keyID, err := VerifySignature(keyring, content, sig)
		if err != nil {
			v.Status = VerifyBad
			v.Detail = err.Error()
			failed++
		} else {
			v.Status = VerifyOK
			v.KeyID = keyID
		}
		results = append(results, v)
	}

	if len(results) == 0 {
		return nil, errors.NewSigningError("verify", fmt.Errorf("no files to verify in %s", dir))
	}
	if failed > 0 {
		return results, errors.NewSigningError("verify", fmt.Errorf("%d of %d files failed verification", failed, len(results)))
	}
	return results, nil
}

func isChecksumFile(name string) bool {
	for _, alg := range checksumAlgorithms {
		if strings.HasSuffix(name, "."+alg.ext) {
			return true
		}
	}
	return false
}
