package publish

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/octandevelopment/mvnpub/util/common/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSignedBundle(t *testing.T) (string, *SigningKey) {
	t.Helper()
	set := assembleFixture(t)
	signer, key := newTestSigner(t)
	signed, err := signer.Sign(context.Background(), set)
	require.NoError(t, err)

	dir := t.TempDir()
	_, err = set.WriteTo(dir)
	require.NoError(t, err)
	_, err = signed.WriteSignatures(dir)
	require.NoError(t, err)
	return dir, key
}

func TestVerifyDir(t *testing.T) {
	dir, key := writeSignedBundle(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "osfetch-2.0.1.jar.sha1"), []byte("ignored"), 0644))

	results, err := VerifyDir(dir, key.PublicKeyRing())
	require.NoError(t, err)
	require.Len(t, results, 4)
	for _, r := range results {
		assert.Equal(t, VerifyOK, r.Status, r.File)
		assert.Equal(t, key.KeyID(), r.KeyID)
	}
}

func TestVerifyDirFailures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(t *testing.T, dir string)
		file   string
		status string
	}{
		{
			name: "tampered",
			mutate: func(t *testing.T, dir string) {
				require.NoError(t, os.WriteFile(filepath.Join(dir, "osfetch-2.0.1.pom"), []byte("<project/>"), 0644))
			},
			file:   "osfetch-2.0.1.pom",
			status: VerifyBad,
		},
		{
			name: "unsigned",
			mutate: func(t *testing.T, dir string) {
				require.NoError(t, os.Remove(filepath.Join(dir, "osfetch-2.0.1-sources.jar.asc")))
			},
			file:   "osfetch-2.0.1-sources.jar",
			status: VerifyUnsigned,
		},
		{
			name: "orphan signature",
			mutate: func(t *testing.T, dir string) {
				require.NoError(t, os.Remove(filepath.Join(dir, "osfetch-2.0.1-javadoc.jar")))
			},
			file:   "osfetch-2.0.1-javadoc.jar.asc",
			status: VerifyOrphan,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir, key := writeSignedBundle(t)
			tt.mutate(t, dir)

			results, err := VerifyDir(dir, key.PublicKeyRing())
			require.Error(t, err)
			assert.Equal(t, errors.KindSigning, errors.KindOf(err))

			var found bool
			for _, r := range results {
				if r.File == tt.file {
					found = true
					assert.Equal(t, tt.status, r.Status)
				}
			}
			assert.True(t, found, "no result for %s", tt.file)
		})
	}
}

func TestVerifyDirWrongKey(t *testing.T) {
	dir, _ := writeSignedBundle(t)
	_, other := newTestSigner(t)

	_, err := VerifyDir(dir, other.PublicKeyRing())
	assert.Equal(t, errors.KindSigning, errors.KindOf(err))
}

func TestVerifyDirEmpty(t *testing.T) {
	_, err := VerifyDir(t.TempDir(), nil)
	assert.Equal(t, errors.KindSigning, errors.KindOf(err))
}
