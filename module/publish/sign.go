package publish

import (
	"bufio"
	"bytes"
	"context"
	"crypto"
	_ "crypto/sha512"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/octandevelopment/mvnpub/util/common/errors"
	"github.com/octandevelopment/mvnpub/util/common/fileutil"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/openpgp"
	"golang.org/x/crypto/openpgp/packet"
)

// SignatureExtension is appended to a file name for its detached signature.
const SignatureExtension = ".asc"

// SigningKey is an unlocked OpenPGP private key. It is only read.
type SigningKey struct {
	entity *openpgp.Entity
}

// KeyID returns the 16 hex digit id of the primary key.
func (k *SigningKey) KeyID() string {
	return k.entity.PrimaryKey.KeyIdString()
}

// PublicKeyRing returns a keyring that can verify signatures made with k.
func (k *SigningKey) PublicKeyRing() openpgp.EntityList {
	return openpgp.EntityList{k.entity}
}

// ReadSigningKeyFile loads a signing key from an armored or binary keyring.
func ReadSigningKeyFile(path, keyID string, passphrase []byte) (*SigningKey, error) {
	if path == "" {
		return nil, errors.NewSigningError("load key", fmt.Errorf("no signing key configured"))
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewSigningError("load key", err)
	}
	defer f.Close()
	return LoadSigningKey(f, keyID, passphrase)
}

// LoadSigningKey reads a keyring from r, selects the key matching keyID (any
// key holding private material when keyID is empty) and decrypts it with
// passphrase. keyID may be the long or short hex id of the primary key or a
// subkey.
func LoadSigningKey(r io.Reader, keyID string, passphrase []byte) (*SigningKey, error) {
	entities, err := readKeyRing(r)
	if err != nil {
		return nil, errors.NewSigningError("read keyring", err)
	}

	entity := selectEntity(entities, keyID)
	if entity == nil {
		if keyID != "" {
			return nil, errors.NewSigningError("select key", fmt.Errorf("no private key with id %s in keyring", keyID))
		}
		return nil, errors.NewSigningError("select key", fmt.Errorf("keyring holds no private key"))
	}

	if err := unlock(entity, passphrase); err != nil {
		return nil, errors.NewSigningError("unlock key", err)
	}
	return &SigningKey{entity: entity}, nil
}

func readKeyRing(r io.Reader) (openpgp.EntityList, error) {
	br := bufio.NewReader(r)
	head, _ := br.Peek(64)
	if bytes.Contains(head, []byte("-----BEGIN PGP")) {
		return openpgp.ReadArmoredKeyRing(br)
	}
	return openpgp.ReadKeyRing(br)
}

func selectEntity(entities openpgp.EntityList, keyID string) *openpgp.Entity {
	want := strings.ToUpper(strings.TrimPrefix(strings.TrimSpace(keyID), "0x"))
	matches := func(pk *packet.PublicKey) bool {
		if want == "" {
			return true
		}
		return strings.HasSuffix(strings.ToUpper(pk.KeyIdString()), want)
	}

	for _, e := range entities {
		if e.PrivateKey == nil {
			continue
		}
		if matches(e.PrimaryKey) {
			return e
		}
		for _, sk := range e.Subkeys {
			if sk.PrivateKey != nil && matches(sk.PublicKey) {
				return e
			}
		}
	}
	return nil
}

func unlock(e *openpgp.Entity, passphrase []byte) error {
	keys := []*packet.PrivateKey{e.PrivateKey}
	for _, sk := range e.Subkeys {
		if sk.PrivateKey != nil {
			keys = append(keys, sk.PrivateKey)
		}
	}
	for _, k := range keys {
		if !k.Encrypted {
			continue
		}
		if len(passphrase) == 0 {
			return fmt.Errorf("%w: key %s is encrypted", errors.ErrPassphraseRequired, k.KeyIdString())
		}
		if err := k.Decrypt(passphrase); err != nil {
			return fmt.Errorf("passphrase rejected for key %s: %w", k.KeyIdString(), err)
		}
	}
	return nil
}

// SignedArtifactSet is an ArtifactSet with one detached armored signature
// per file, keyed by file name.
type SignedArtifactSet struct {
	*ArtifactSet
	KeyID      string
	Signatures map[string][]byte
}

// Signature returns the signature for the file called name.
func (s *SignedArtifactSet) Signature(name string) ([]byte, bool) {
	sig, ok := s.Signatures[name]
	return sig, ok
}

// Signer makes detached signatures with a fixed key.
type Signer struct {
	Key *SigningKey
	// Now stamps signatures; time.Now when nil.
	Now func() time.Time
}

// Sign signs every file of set and checks each signature against the
// key's public half. Either every file gets its signature or an error is
// returned and no SignedArtifactSet exists.
func (s *Signer) Sign(ctx context.Context, set *ArtifactSet) (*SignedArtifactSet, error) {
	if s.Key == nil || s.Key.entity == nil {
		return nil, errors.NewSigningError("sign", fmt.Errorf("no signing key loaded"))
	}
	if set == nil {
		return nil, errors.NewSigningError("sign", fmt.Errorf("nothing to sign"))
	}

	now := s.Now
	if now == nil {
		now = time.Now
	}
	cfg := &packet.Config{
		DefaultHash: crypto.SHA512,
		Time:        now,
	}

	signed := &SignedArtifactSet{
		ArtifactSet: set,
		KeyID:       s.Key.KeyID(),
		Signatures:  make(map[string][]byte, 4),
	}
	for _, f := range set.Files() {
		if err := ctx.Err(); err != nil {
			return nil, errors.NewSigningError("sign", err)
		}
		name := f.FileName(set.Coordinates)
		var buf bytes.Buffer
		if err := openpgp.ArmoredDetachSign(&buf, s.Key.entity, bytes.NewReader(f.Content), cfg); err != nil {
			return nil, errors.NewSigningError("sign "+name, err)
		}
		// A key whose public half does not match its private material
		// produces signatures nobody can check.
		if _, err := VerifySignature(s.Key.PublicKeyRing(), f.Content, buf.Bytes()); err != nil {
			return nil, errors.NewSigningError("check signature of "+name, err)
		}
		signed.Signatures[name] = buf.Bytes()
		log.Debug().Str("file", name).Str("key_id", signed.KeyID).Msg("Signed")
	}
	return signed, nil
}

// VerifySignature checks an armored detached signature over content and
// returns the id of the signing key.
func VerifySignature(keyring openpgp.KeyRing, content, signature []byte) (string, error) {
	signer, err := openpgp.CheckArmoredDetachedSignature(keyring, bytes.NewReader(content), bytes.NewReader(signature))
	if err != nil {
		return "", errors.NewSigningError("verify", err)
	}
	return signer.PrimaryKey.KeyIdString(), nil
}

// ReadPublicKeyRing loads an armored or binary keyring for verification.
func ReadPublicKeyRing(path string) (openpgp.EntityList, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewSigningError("load keyring", err)
	}
	defer f.Close()
	ring, err := readKeyRing(f)
	if err != nil {
		return nil, errors.NewSigningError("read keyring", err)
	}
	return ring, nil
}

// WriteSignatures stores each signature next to its file in dir.
func (s *SignedArtifactSet) WriteSignatures(dir string) ([]string, error) {
	var written []string
	for _, f := range s.Files() {
		name := f.FileName(s.Coordinates)
		sig, ok := s.Signatures[name]
		if !ok {
			return written, errors.NewSigningError("write signatures", fmt.Errorf("%s is not signed", name))
		}
		p := filepath.Join(dir, name+SignatureExtension)
		if err := fileutil.WriteFileAtomic(p, sig); err != nil {
			return written, errors.Wrap(err, "write signature")
		}
		written = append(written, p)
	}
	return written, nil
}
