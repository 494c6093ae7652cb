package publish

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"hash"
	"io"
)

// checksumAlgorithms are uploaded next to every file, in this order.
var checksumAlgorithms = []struct {
	ext string
	new func() hash.Hash
}{
	{"md5", md5.New},
	{"sha1", sha1.New},
	{"sha256", sha256.New},
	{"sha512", sha512.New},
}

// InMemoryUploadFile is a file generated during the run and never written
// to disk before upload.
type InMemoryUploadFile struct {
	FileName string
	Content  []byte
}

// checksumFiles returns name.md5, name.sha1, name.sha256 and name.sha512
// for content.
func checksumFiles(name string, content []byte) []InMemoryUploadFile {
	hashes := make([]hash.Hash, len(checksumAlgorithms))
	writers := make([]io.Writer, len(checksumAlgorithms))
	for i, alg := range checksumAlgorithms {
		hashes[i] = alg.new()
		writers[i] = hashes[i]
	}
	io.MultiWriter(writers...).Write(content)

	files := make([]InMemoryUploadFile, len(checksumAlgorithms))
	for i, alg := range checksumAlgorithms {
		files[i] = InMemoryUploadFile{
			FileName: name + "." + alg.ext,
			Content:  []byte(hex.EncodeToString(hashes[i].Sum(nil))),
		}
	}
	return files
}

// SHA1Hex returns the hex SHA-1 of content, as listed in receipts.
func SHA1Hex(content []byte) string {
	sum := sha1.Sum(content)
	return hex.EncodeToString(sum[:])
}
